// Package logging configures the logrus logger shared by every launchpad component.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Format represents the log output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Field keys used across the codebase.
const (
	ServiceKey    = "service"
	ExecutableKey = "executable"
	PIDKey        = "pid"
	AttemptKey    = "attempt"
	URLKey        = "url"
	StateKey      = "state"
)

// EnvLevel names the environment variable that overrides the log level.
const EnvLevel = "LAUNCHPAD_LOG_LEVEL"

// Config holds the logging configuration.
type Config struct {
	// Level sets the minimum level (debug, info, warn, error). Default: info.
	Level string
	// Format selects text or json output. Default: text.
	Format Format
	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns a Config with defaults, honouring LAUNCHPAD_LOG_LEVEL.
func DefaultConfig() Config {
	cfg := Config{Level: "info", Format: FormatText, Output: os.Stderr}
	if level := strings.TrimSpace(os.Getenv(EnvLevel)); level != "" {
		cfg.Level = strings.ToLower(level)
	}
	return cfg
}

// New creates a logger from the given configuration. Unknown levels fall back
// to info rather than failing startup.
func New(cfg Config) *logrus.Logger {
	logger := logrus.New()
	if cfg.Output != nil {
		logger.SetOutput(cfg.Output)
	} else {
		logger.SetOutput(os.Stderr)
	}

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	switch Format(strings.ToLower(string(cfg.Format))) {
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// Discard returns a logger that drops everything. Useful as a default for
// components constructed without an explicit logger, and in tests.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// OrDiscard returns log when non-nil, otherwise a discarding logger.
func OrDiscard(log logrus.FieldLogger) logrus.FieldLogger {
	if log == nil {
		return Discard()
	}
	return log
}
