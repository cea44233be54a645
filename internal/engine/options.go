package engine

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Paintersrp/launchpad/internal/logging"
	"github.com/Paintersrp/launchpad/internal/runtime"
)

const (
	// DefaultLaunchSettle separates a successful spawn from the first probe.
	DefaultLaunchSettle = 2 * time.Second
	// DefaultExitGrace separates cleanup from the forced exit.
	DefaultExitGrace = 500 * time.Millisecond
)

type options struct {
	log    logrus.FieldLogger
	sleep  runtime.SleepFunc
	settle time.Duration
	grace  time.Duration
	exit   func(code int)
}

func defaultOptions() options {
	return options{
		log:    logging.Discard(),
		sleep:  runtime.Sleep,
		settle: DefaultLaunchSettle,
		grace:  DefaultExitGrace,
		exit:   os.Exit,
	}
}

// Option configures an Orchestrator or a Coordinator.
type Option func(*options)

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithSleep replaces the ctx-aware wait used for settle and grace delays.
func WithSleep(fn runtime.SleepFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

// WithLaunchSettle overrides the delay between spawn and first probe.
func WithLaunchSettle(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.settle = d
		}
	}
}

// WithExitGrace overrides the delay between cleanup and exit.
func WithExitGrace(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.grace = d
		}
	}
}

// WithExit replaces the function that terminates the process.
func WithExit(fn func(code int)) Option {
	return func(o *options) {
		if fn != nil {
			o.exit = fn
		}
	}
}
