package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Paintersrp/launchpad/internal/config"
	"github.com/Paintersrp/launchpad/internal/probe"
	"github.com/Paintersrp/launchpad/internal/runtime"
)

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) add(s string) {
	c.mu.Lock()
	c.calls = append(c.calls, s)
	c.mu.Unlock()
}

func (c *callLog) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type fakeChecker struct {
	log   *callLog
	ready map[string]bool
}

func (f *fakeChecker) Check(ctx context.Context, service string, hc *config.HealthCheck) probe.Result {
	f.log.add("probe:" + service)
	return probe.Result{Ready: f.ready[service], Attempts: 1}
}

func noWait(ctx context.Context, d time.Duration) error { return nil }

func svc(name string, hc *config.HealthCheck) *config.Service {
	return &config.Service{Name: name, Executable: name + ".exe", HealthCheck: hc}
}

func TestStartAllEmitsOrderedEventsPerService(t *testing.T) {
	calls := &callLog{}
	launcher := runtime.LauncherFunc(func(ctx context.Context, s *config.Service) error {
		calls.add("launch:" + s.Name)
		if s.Name == "broken" {
			return &runtime.LaunchError{Service: s.Name, Path: "/srv/broken.exe", Kind: runtime.ErrExecutableNotFound}
		}
		return nil
	})
	checker := &fakeChecker{log: calls, ready: map[string]bool{"api": true, "worker": false}}
	rec := &Recorder{}

	orch := NewOrchestrator(launcher, checker, rec, WithSleep(noWait))
	services := []*config.Service{
		svc("api", &config.HealthCheck{Enabled: true, BaseURL: "http://127.0.0.1:9860"}),
		svc("broken", nil),
		svc("worker", &config.HealthCheck{Enabled: true, BaseURL: "http://127.0.0.1:9861"}),
	}
	if err := orch.StartAll(context.Background(), services); err != nil {
		t.Fatalf("StartAll returned error: %v", err)
	}

	events := rec.Events()
	want := []struct {
		service string
		status  Status
	}{
		{"api", StatusStarting}, {"api", StatusReady},
		{"broken", StatusStarting}, {"broken", StatusError},
		{"worker", StatusStarting}, {"worker", StatusError},
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(events), events)
	}
	for i, w := range want {
		if events[i].Service != w.service || events[i].Status != w.status {
			t.Fatalf("event %d: expected %s/%s, got %s/%s", i, w.service, w.status, events[i].Service, events[i].Status)
		}
	}
	if events[1].URL != "http://127.0.0.1:9860" {
		t.Fatalf("ready event must carry baseUrl, got %q", events[1].URL)
	}
	if !errors.Is(events[3].Err, runtime.ErrExecutableNotFound) {
		t.Fatalf("expected launch error on broken, got %v", events[3].Err)
	}
	if events[5].Message() != "health check timed out" {
		t.Fatalf("unexpected timeout message %q", events[5].Message())
	}

	// A failed launch is never probed.
	wantCalls := []string{"launch:api", "probe:api", "launch:broken", "launch:worker", "probe:worker"}
	got := calls.snapshot()
	if len(got) != len(wantCalls) {
		t.Fatalf("expected calls %v, got %v", wantCalls, got)
	}
	for i := range wantCalls {
		if got[i] != wantCalls[i] {
			t.Fatalf("expected calls %v, got %v", wantCalls, got)
		}
	}
}

func TestStartAllSettlesBeforeProbe(t *testing.T) {
	calls := &callLog{}
	launcher := runtime.LauncherFunc(func(ctx context.Context, s *config.Service) error {
		calls.add("launch:" + s.Name)
		return nil
	})
	checker := &fakeChecker{log: calls, ready: map[string]bool{"api": true}}
	sleep := func(ctx context.Context, d time.Duration) error {
		calls.add("settle:" + d.String())
		return nil
	}

	orch := NewOrchestrator(launcher, checker, nil, WithSleep(sleep))
	if err := orch.StartAll(context.Background(), []*config.Service{svc("api", nil)}); err != nil {
		t.Fatalf("StartAll returned error: %v", err)
	}
	got := calls.snapshot()
	want := []string{"launch:api", "settle:" + DefaultLaunchSettle.String(), "probe:api"}
	if len(got) != 3 || got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestRunConfigFailureEmitsSingleEvent(t *testing.T) {
	var launches atomic.Int32
	launcher := runtime.LauncherFunc(func(ctx context.Context, s *config.Service) error {
		launches.Add(1)
		return nil
	})
	rec := &Recorder{}
	orch := NewOrchestrator(launcher, &fakeChecker{log: &callLog{}}, rec, WithSleep(noWait))

	loadErr := config.ErrNotFound
	err := orch.Run(context.Background(), func() (*config.Manifest, error) { return nil, loadErr })
	if !errors.Is(err, config.ErrNotFound) {
		t.Fatalf("expected load error, got %v", err)
	}
	events := rec.Events()
	if len(events) != 1 {
		t.Fatalf("expected exactly one event, got %+v", events)
	}
	if events[0].Service != ConfigService || events[0].Status != StatusError {
		t.Fatalf("unexpected event %+v", events[0])
	}
	if launches.Load() != 0 {
		t.Fatalf("expected no launches, got %d", launches.Load())
	}
}

func TestStartAllExampleScenario(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	launcher := runtime.LauncherFunc(func(ctx context.Context, s *config.Service) error { return nil })
	rec := &Recorder{}
	orch := NewOrchestrator(launcher, probe.NewChecker(), rec, WithLaunchSettle(0))

	hc := &config.HealthCheck{Enabled: true, BaseURL: server.URL, Path: "/", MaxAttempts: 2, RetryIntervalMs: 5}
	if err := orch.StartAll(context.Background(), []*config.Service{svc("api", hc)}); err != nil {
		t.Fatalf("StartAll returned error: %v", err)
	}

	events := rec.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %+v", events)
	}
	if events[0].Status != StatusStarting || events[0].Service != "api" {
		t.Fatalf("unexpected first event %+v", events[0])
	}
	if events[1].Status != StatusReady || events[1].URL != server.URL {
		t.Fatalf("unexpected second event %+v", events[1])
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 probe attempts, got %d", hits.Load())
	}
}

func TestStartAllStopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	launcher := runtime.LauncherFunc(func(ctx context.Context, s *config.Service) error {
		cancel()
		return nil
	})
	rec := &Recorder{}
	orch := NewOrchestrator(launcher, &fakeChecker{log: &callLog{}}, rec)

	err := orch.StartAll(ctx, []*config.Service{svc("api", nil), svc("worker", nil)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	events := rec.Events()
	for _, ev := range events {
		if ev.Service == "worker" {
			t.Fatalf("worker must not start after cancellation")
		}
	}
	if len(events) != 2 {
		t.Fatalf("expected starting and error for api, got %+v", events)
	}
	if events[0].Status != StatusStarting || events[1].Status != StatusError {
		t.Fatalf("unexpected api lifecycle %+v", events)
	}
	if !errors.Is(events[1].Err, context.Canceled) {
		t.Fatalf("expected cancellation in error event, got %v", events[1].Err)
	}
}

func TestStartAllClosesServiceInterruptedDuringSettle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	checks := &callLog{}
	rec := &Recorder{}
	orch := NewOrchestrator(
		runtime.LauncherFunc(func(context.Context, *config.Service) error { return nil }),
		&fakeChecker{log: checks},
		rec,
		WithSleep(func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		}),
	)

	err := orch.StartAll(ctx, []*config.Service{svc("api", nil)})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	events := rec.Events()
	if len(events) != 2 || events[0].Status != StatusStarting || events[1].Status != StatusError {
		t.Fatalf("expected starting then error, got %+v", events)
	}
	if got := checks.snapshot(); len(got) != 0 {
		t.Fatalf("interrupted service must not be probed, got %v", got)
	}
}
