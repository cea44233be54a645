package engine

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/Paintersrp/launchpad/internal/config"
	"github.com/Paintersrp/launchpad/internal/logging"
	"github.com/Paintersrp/launchpad/internal/metrics"
	"github.com/Paintersrp/launchpad/internal/probe"
	"github.com/Paintersrp/launchpad/internal/runtime"
)

// ErrHealthTimeout is carried by the error event of a service whose health
// check never passed.
var ErrHealthTimeout = errors.New("health check timed out")

// HealthChecker decides whether a launched service is ready.
type HealthChecker interface {
	Check(ctx context.Context, service string, hc *config.HealthCheck) probe.Result
}

// ConfigLoader returns the ordered service list.
type ConfigLoader func() (*config.Manifest, error)

// Orchestrator starts services one after another and reports their progress
// to a Sink.
type Orchestrator struct {
	launcher runtime.Launcher
	checker  HealthChecker
	sink     Sink
	opts     options
}

// NewOrchestrator constructs an orchestrator. A nil sink discards events.
func NewOrchestrator(launcher runtime.Launcher, checker HealthChecker, sink Sink, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		launcher: launcher,
		checker:  checker,
		sink:     sink,
		opts:     defaultOptions(),
	}
	if o.sink == nil {
		o.sink = SinkFunc(nil)
	}
	for _, opt := range opts {
		opt(&o.opts)
	}
	return o
}

// Run loads the service list and starts it. A load failure emits a single
// error event for ConfigService and launches nothing.
func (o *Orchestrator) Run(ctx context.Context, load ConfigLoader) error {
	manifest, err := load()
	if err != nil {
		o.opts.log.WithError(err).Error("load service configuration")
		ev := newEvent(ConfigService, StatusError)
		ev.Err = err
		o.sink.Emit(ev)
		return err
	}
	return o.StartAll(ctx, manifest.Services)
}

// StartAll launches and probes services strictly in order. A failing service
// produces an error event and the batch moves on. The only error returned is
// the context's when ctx ends mid-batch; the interrupted service still gets
// its error event and later services are never started.
func (o *Orchestrator) StartAll(ctx context.Context, services []*config.Service) error {
	for _, svc := range services {
		if svc == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.start(ctx, svc); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) start(ctx context.Context, svc *config.Service) error {
	log := o.opts.log.WithField(logging.ServiceKey, svc.Name)
	o.sink.Emit(newEvent(svc.Name, StatusStarting))
	log.Info("starting service")

	if err := o.launcher.Launch(ctx, svc); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return o.abort(log, svc.Name, ctxErr)
		}
		log.WithError(err).Error("launch failed")
		o.fail(svc.Name, err)
		return nil
	}

	if err := o.opts.sleep(ctx, o.opts.settle); err != nil {
		return o.abort(log, svc.Name, err)
	}

	res := o.checker.Check(ctx, svc.Name, svc.HealthCheck)
	if !res.Ready {
		if err := ctx.Err(); err != nil {
			return o.abort(log, svc.Name, err)
		}
		log.WithFields(logrus.Fields{
			logging.AttemptKey: res.Attempts,
			logging.URLKey:     res.URL,
		}).WithError(res.LastErr).Error("service did not become ready")
		o.fail(svc.Name, ErrHealthTimeout)
		return nil
	}

	ev := newEvent(svc.Name, StatusReady)
	if svc.HealthCheck != nil {
		ev.URL = svc.HealthCheck.BaseURL
	}
	metrics.SetServiceReady(svc.Name, true)
	o.sink.Emit(ev)
	log.WithField(logging.URLKey, ev.URL).Info("service ready")
	return nil
}

// abort closes out a service that already reported starting when ctx ends,
// so every starting event is followed by exactly one terminal event.
func (o *Orchestrator) abort(log logrus.FieldLogger, service string, err error) error {
	log.WithError(err).Warn("startup interrupted")
	o.fail(service, err)
	return err
}

func (o *Orchestrator) fail(service string, err error) {
	metrics.SetServiceReady(service, false)
	ev := newEvent(service, StatusError)
	ev.Err = err
	o.sink.Emit(ev)
}
