package process

import (
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"

	"github.com/Paintersrp/launchpad/internal/config"
	"github.com/Paintersrp/launchpad/internal/runtime"
)

// buildEnv returns the child environment: the launcher's own environment,
// overlaid by the service env file, overlaid by inline env entries.
func buildEnv(svc *config.Service) ([]string, error) {
	merged := make(map[string]string)
	order := make([]string, 0)
	set := func(key, value string) {
		if _, ok := merged[key]; !ok {
			order = append(order, key)
		}
		merged[key] = value
	}

	for _, kv := range os.Environ() {
		key, value, ok := splitEnv(kv)
		if !ok {
			continue
		}
		set(key, value)
	}

	if svc.EnvFile != "" {
		path := svc.EnvFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(svc.WorkingDirectory, path)
		}
		values, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, &runtime.LaunchError{Service: svc.Name, Path: path, Kind: runtime.ErrEnvFileNotFound}
			}
			return nil, &runtime.LaunchError{Service: svc.Name, Path: path, Kind: runtime.ErrSpawnFailed, Err: err}
		}
		for _, key := range sortedKeys(values) {
			set(key, values[key])
		}
	}

	for _, key := range sortedKeys(svc.Env) {
		set(key, svc.Env[key])
	}

	env := make([]string, 0, len(order))
	for _, key := range order {
		env = append(env, key+"="+merged[key])
	}
	return env, nil
}

func splitEnv(kv string) (string, string, bool) {
	// Windows carries hidden per-drive entries such as "=C:=C:\\".
	for i := 1; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], true
		}
	}
	return "", "", false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
