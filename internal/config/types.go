package config

import (
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultMaxAttempts is applied when a health check omits maxAttempts.
	DefaultMaxAttempts = 30
	// DefaultRetryIntervalMs is applied when a health check omits retryIntervalMs.
	DefaultRetryIntervalMs = 1000
	// DefaultTimeoutMs bounds a single health check request.
	DefaultTimeoutMs = 2000
	// DefaultHealthPath is requested when a health check omits path.
	DefaultHealthPath = "/"
)

// Manifest mirrors the services.yaml document structure.
type Manifest struct {
	Version  string     `yaml:"version"`
	Services []*Service `yaml:"services"`

	// Source is the absolute path the manifest was read from.
	Source string `yaml:"-"`
}

// Service describes one externally launched program and how to verify that it
// is ready. The executable image name is the join key used for launching,
// stale-instance cleanup and shutdown cleanup.
type Service struct {
	Name             string            `yaml:"name"`
	Executable       string            `yaml:"executable"`
	WorkingDirectory string            `yaml:"workingDirectory"`
	Arguments        []string          `yaml:"arguments"`
	ShowWindow       bool              `yaml:"showWindow"`
	EnvFile          string            `yaml:"envFile"`
	Env              map[string]string `yaml:"env"`
	HealthCheck      *HealthCheck      `yaml:"healthCheck"`
}

// HealthCheck configures the HTTP readiness probe for a service.
type HealthCheck struct {
	Enabled         bool   `yaml:"enabled"`
	BaseURL         string `yaml:"baseUrl"`
	Path            string `yaml:"path"`
	MaxAttempts     int    `yaml:"maxAttempts"`
	RetryIntervalMs int    `yaml:"retryIntervalMs"`
	TimeoutMs       int    `yaml:"timeoutMs"`
}

// ExecutablePath joins the working directory with the executable image name.
func (s *Service) ExecutablePath() string {
	if s == nil {
		return ""
	}
	return filepath.Join(s.WorkingDirectory, s.Executable)
}

// Active reports whether the health check should be executed at all. A nil,
// disabled or URL-less health check means the service is ready once launched.
func (h *HealthCheck) Active() bool {
	return h != nil && h.Enabled && strings.TrimSpace(h.BaseURL) != ""
}

// URL returns the full probe target, baseUrl joined with path.
func (h *HealthCheck) URL() string {
	if h == nil {
		return ""
	}
	base := strings.TrimRight(strings.TrimSpace(h.BaseURL), "/")
	path := h.Path
	if path == "" {
		path = DefaultHealthPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// RetryInterval returns the configured delay between attempts.
func (h *HealthCheck) RetryInterval() time.Duration {
	if h == nil || h.RetryIntervalMs <= 0 {
		return 0
	}
	return time.Duration(h.RetryIntervalMs) * time.Millisecond
}

// Timeout returns the per-attempt request timeout.
func (h *HealthCheck) Timeout() time.Duration {
	if h == nil || h.TimeoutMs <= 0 {
		return 0
	}
	return time.Duration(h.TimeoutMs) * time.Millisecond
}

// ApplyDefaults fills unset health check values.
func (m *Manifest) ApplyDefaults() {
	for _, svc := range m.Services {
		if svc == nil || svc.HealthCheck == nil {
			continue
		}
		hc := svc.HealthCheck
		if hc.MaxAttempts == 0 {
			hc.MaxAttempts = DefaultMaxAttempts
		}
		if hc.RetryIntervalMs == 0 {
			hc.RetryIntervalMs = DefaultRetryIntervalMs
		}
		if hc.TimeoutMs == 0 {
			hc.TimeoutMs = DefaultTimeoutMs
		}
		if strings.TrimSpace(hc.Path) == "" {
			hc.Path = DefaultHealthPath
		}
	}
}

// ServiceNames returns the service names in configuration order.
func (m *Manifest) ServiceNames() []string {
	out := make([]string, 0, len(m.Services))
	for _, svc := range m.Services {
		if svc == nil {
			continue
		}
		out = append(out, svc.Name)
	}
	return out
}
