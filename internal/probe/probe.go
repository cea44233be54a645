// Package probe decides whether a launched service answers over HTTP within a
// bounded number of attempts.
package probe

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Paintersrp/launchpad/internal/config"
	"github.com/Paintersrp/launchpad/internal/logging"
	"github.com/Paintersrp/launchpad/internal/metrics"
	"github.com/Paintersrp/launchpad/internal/runtime"
)

// Prober performs a single readiness attempt.
type Prober interface {
	Probe(ctx context.Context) error
}

// Failure classes attached to attempt logs.
const (
	FailureSoft       = "soft"
	FailureConnection = "connection"
)

// Result summarises a readiness check.
type Result struct {
	Ready bool
	// Attempts is zero when the check was skipped.
	Attempts int
	URL      string
	LastErr  error
}

// Classify maps an attempt error to FailureSoft or FailureConnection.
func Classify(err error) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return FailureSoft
	}
	return FailureConnection
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger used for attempt failures.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Checker) {
		if log != nil {
			c.log = log
		}
	}
}

// WithSleep replaces the wait between attempts.
func WithSleep(fn runtime.SleepFunc) Option {
	return func(c *Checker) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// WithClient sets the HTTP client used by the default prober.
func WithClient(client *http.Client) Option {
	return func(c *Checker) {
		if client != nil {
			c.client = client
		}
	}
}

// Checker runs the bounded retry loop for a health check.
type Checker struct {
	client    *http.Client
	newProber func(url string) Prober
	sleep     runtime.SleepFunc
	log       logrus.FieldLogger
}

// NewChecker constructs a Checker with the supplied options.
func NewChecker(opts ...Option) *Checker {
	c := &Checker{
		client: &http.Client{},
		sleep:  runtime.Sleep,
		log:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.newProber == nil {
		client := c.client
		c.newProber = func(url string) Prober { return NewHTTP(client, url) }
	}
	return c
}

// Check reports ready immediately when hc is nil, disabled, or has no base
// URL. Otherwise it probes hc.URL() up to MaxAttempts times, waiting
// RetryInterval between attempts, and stops at the first 2xx response.
func (c *Checker) Check(ctx context.Context, service string, hc *config.HealthCheck) Result {
	if !hc.Active() {
		return Result{Ready: true}
	}

	url := hc.URL()
	attempts := hc.MaxAttempts
	if attempts <= 0 {
		attempts = config.DefaultMaxAttempts
	}
	timeout := hc.Timeout()
	prober := c.newProber(url)
	log := c.log.WithFields(logrus.Fields{
		logging.ServiceKey: service,
		logging.URLKey:     url,
	})

	res := Result{URL: url}
	for attempt := 1; attempt <= attempts; attempt++ {
		res.Attempts = attempt

		attemptCtx := ctx
		cancel := func() {}
		if timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		start := time.Now()
		err := prober.Probe(attemptCtx)
		cancel()
		metrics.ObserveProbeLatency(service, time.Since(start))

		if err == nil {
			res.Ready = true
			res.LastErr = nil
			log.WithField(logging.AttemptKey, attempt).Debug("health check passed")
			return res
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			res.LastErr = ctxErr
			return res
		}
		res.LastErr = err

		log.WithFields(logrus.Fields{
			logging.AttemptKey: attempt,
			"max_attempts":     attempts,
			"failure":          Classify(err),
		}).WithError(err).Debug("health check attempt failed")

		if attempt == attempts {
			break
		}
		if err := c.sleep(ctx, hc.RetryInterval()); err != nil {
			res.LastErr = err
			return res
		}
	}

	log.WithField(logging.AttemptKey, res.Attempts).WithError(res.LastErr).Warn("health check timed out")
	return res
}
