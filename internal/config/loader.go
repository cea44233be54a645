package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the manifest name searched for when no explicit path is given.
const DefaultFileName = "services.yaml"

// EnvConfigPath names the environment variable that overrides the manifest location.
const EnvConfigPath = "LAUNCHPAD_CONFIG"

// ErrNotFound is returned when no manifest exists at any searched location.
var ErrNotFound = errors.New("service configuration not found")

// SearchError reports every location that was tried before giving up.
type SearchError struct {
	Searched []string
}

func (e *SearchError) Error() string {
	return fmt.Sprintf("%s (searched: %s)", ErrNotFound, strings.Join(e.Searched, ", "))
}

func (e *SearchError) Unwrap() error { return ErrNotFound }

// Candidates builds the ordered list of manifest locations. An explicit path
// wins, followed by $LAUNCHPAD_CONFIG, the directory of the running binary and
// finally the current working directory.
func Candidates(explicit string) []string {
	var out []string
	seen := map[string]struct{}{}
	add := func(path string) {
		path = strings.TrimSpace(path)
		if path == "" {
			return
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		out = append(out, path)
	}

	add(explicit)
	add(os.Getenv(EnvConfigPath))
	if exe, err := os.Executable(); err == nil {
		add(filepath.Join(filepath.Dir(exe), DefaultFileName))
	}
	if wd, err := os.Getwd(); err == nil {
		add(filepath.Join(wd, DefaultFileName))
	}
	return out
}

// Locate returns the first candidate that exists as a regular file.
func Locate(candidates ...string) (string, error) {
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", &SearchError{Searched: append([]string(nil), candidates...)}
}

// Find locates and loads the manifest using the default search order.
func Find(explicit string) (*Manifest, error) {
	path, err := Locate(Candidates(explicit)...)
	if err != nil {
		return nil, err
	}
	return Load(path)
}

// Load reads a service manifest from the provided path.
func Load(path string) (*Manifest, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &SearchError{Searched: []string{absPath}}
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	doc, err := Parse(data, filepath.Dir(absPath))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	doc.Source = absPath
	return doc, nil
}

// Parse decodes, validates and normalises a manifest. Relative working
// directories are resolved against baseDir.
func Parse(data []byte, baseDir string) (*Manifest, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if raw == nil {
		return nil, errors.New("config is empty")
	}
	if err := validateAgainstSchema(raw); err != nil {
		return nil, err
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	var doc Manifest
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	for _, svc := range doc.Services {
		if svc == nil {
			continue
		}
		svc.Name = strings.TrimSpace(svc.Name)
		svc.Executable = strings.TrimSpace(svc.Executable)
		svc.WorkingDirectory = resolveDir(baseDir, os.ExpandEnv(svc.WorkingDirectory))
		if svc.EnvFile != "" {
			svc.EnvFile = os.ExpandEnv(svc.EnvFile)
		}
		for i, arg := range svc.Arguments {
			svc.Arguments[i] = os.ExpandEnv(arg)
		}
		if svc.HealthCheck != nil {
			svc.HealthCheck.BaseURL = os.ExpandEnv(strings.TrimSpace(svc.HealthCheck.BaseURL))
		}
	}

	doc.ApplyDefaults()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func resolveDir(base, dir string) string {
	if dir == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Clean(filepath.Join(base, dir))
}
