package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate enforces manifest invariants.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Version) == "" {
		return fmt.Errorf("%s: is required", fieldPath("version"))
	}
	if len(m.Services) == 0 {
		return fmt.Errorf("%s: must define at least one service", fieldPath("services"))
	}

	seen := make(map[string]int, len(m.Services))
	for i, svc := range m.Services {
		if svc == nil {
			return fmt.Errorf("%s: service entry is null", indexField(i))
		}
		if svc.Name == "" {
			return fmt.Errorf("%s: is required", indexField(i, "name"))
		}
		if prev, dup := seen[svc.Name]; dup {
			return fmt.Errorf("%s: duplicates service %d", serviceField(svc.Name, "name"), prev)
		}
		seen[svc.Name] = i

		if svc.Executable == "" {
			return fmt.Errorf("%s: is required", serviceField(svc.Name, "executable"))
		}
		if strings.ContainsAny(svc.Executable, `/\`) {
			return fmt.Errorf("%s: must be an image name, not a path (got %q)", serviceField(svc.Name, "executable"), svc.Executable)
		}
		if err := validateHealthCheck(svc.Name, svc.HealthCheck); err != nil {
			return err
		}
	}
	return nil
}

func validateHealthCheck(service string, hc *HealthCheck) error {
	if hc == nil || !hc.Enabled || hc.BaseURL == "" {
		return nil
	}
	u, err := url.Parse(hc.BaseURL)
	if err != nil {
		return fmt.Errorf("%s: %w", healthField(service, "baseUrl"), err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: unsupported scheme %q", healthField(service, "baseUrl"), u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: missing host", healthField(service, "baseUrl"))
	}
	if hc.MaxAttempts < 1 {
		return fmt.Errorf("%s: must be at least 1", healthField(service, "maxAttempts"))
	}
	if hc.RetryIntervalMs < 0 {
		return fmt.Errorf("%s: must be non-negative", healthField(service, "retryIntervalMs"))
	}
	if hc.TimeoutMs < 0 {
		return fmt.Errorf("%s: must be non-negative", healthField(service, "timeoutMs"))
	}
	return nil
}

func fieldPath(parts ...string) string {
	return strings.Join(parts, ".")
}

func indexField(index int, parts ...string) string {
	pathParts := append([]string{fmt.Sprintf("services[%d]", index)}, parts...)
	return fieldPath(pathParts...)
}

func serviceField(service string, parts ...string) string {
	pathParts := append([]string{"services", service}, parts...)
	return fieldPath(pathParts...)
}

func healthField(service string, parts ...string) string {
	pathParts := append([]string{"healthCheck"}, parts...)
	return serviceField(service, pathParts...)
}
