package probe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Paintersrp/launchpad/internal/config"
)

type countingProber struct {
	calls atomic.Int32
	err   error
}

func (p *countingProber) Probe(ctx context.Context) error {
	p.calls.Add(1)
	return p.err
}

func withProberFactory(fn func(url string) Prober) Option {
	return func(c *Checker) {
		c.newProber = fn
	}
}

func TestCheckSkipsInactiveHealthChecks(t *testing.T) {
	cases := map[string]*config.HealthCheck{
		"nil":       nil,
		"disabled":  {Enabled: false, BaseURL: "http://127.0.0.1:1", MaxAttempts: 3},
		"empty url": {Enabled: true, BaseURL: "  ", MaxAttempts: 3},
	}
	for name, hc := range cases {
		t.Run(name, func(t *testing.T) {
			prober := &countingProber{err: errors.New("unreachable")}
			checker := NewChecker(withProberFactory(func(string) Prober { return prober }))

			res := checker.Check(context.Background(), "api", hc)
			if !res.Ready {
				t.Fatalf("expected ready, got %+v", res)
			}
			if res.Attempts != 0 || prober.calls.Load() != 0 {
				t.Fatalf("expected no network attempts, got %d (calls=%d)", res.Attempts, prober.calls.Load())
			}
		})
	}
}

func TestCheckExhaustsAttemptsWithInterval(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	hc := &config.HealthCheck{
		Enabled:         true,
		BaseURL:         "http://" + addr,
		MaxAttempts:     3,
		RetryIntervalMs: 10,
		TimeoutMs:       200,
	}

	start := time.Now()
	res := NewChecker().Check(context.Background(), "api", hc)
	elapsed := time.Since(start)

	if res.Ready {
		t.Fatalf("expected not ready against a closed port")
	}
	if res.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", res.Attempts)
	}
	if elapsed < 20*time.Millisecond {
		t.Fatalf("expected at least 20ms between attempts, took %s", elapsed)
	}
	if res.LastErr == nil || Classify(res.LastErr) != FailureConnection {
		t.Fatalf("expected connection failure, got %v", res.LastErr)
	}
}

func TestCheckRetriesUntilSuccess(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			http.NotFound(w, r)
			return
		}
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	hc := &config.HealthCheck{
		Enabled:         true,
		BaseURL:         server.URL + "/",
		Path:            "healthz",
		MaxAttempts:     5,
		RetryIntervalMs: 1,
	}
	res := NewChecker().Check(context.Background(), "api", hc)
	if !res.Ready {
		t.Fatalf("expected ready, got %+v", res)
	}
	if res.Attempts != 2 {
		t.Fatalf("expected ready on the second attempt, got %d", res.Attempts)
	}
	if res.URL != server.URL+"/healthz" {
		t.Fatalf("unexpected probe url %q", res.URL)
	}
}

func TestHTTPProberRejectsNon2xx(t *testing.T) {
	for _, code := range []int{http.StatusNoContent, http.StatusMovedPermanently, http.StatusNotFound, http.StatusServiceUnavailable} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// No Location header, so the client returns a 301 as-is.
			w.WriteHeader(code)
		}))

		err := NewHTTP(server.Client(), server.URL).Probe(context.Background())
		server.Close()

		if code == http.StatusNoContent {
			if err != nil {
				t.Fatalf("expected 204 to succeed, got %v", err)
			}
			continue
		}
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || statusErr.Code != code {
			t.Fatalf("expected StatusError{%d}, got %v", code, err)
		}
		if Classify(err) != FailureSoft {
			t.Fatalf("expected soft failure for %d", code)
		}
	}
}

func TestCheckStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	prober := &countingProber{err: &StatusError{Code: 503}}
	var sleeps int
	checker := NewChecker(
		withProberFactory(func(string) Prober { return prober }),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			sleeps++
			cancel()
			return ctx.Err()
		}),
	)

	hc := &config.HealthCheck{Enabled: true, BaseURL: "http://127.0.0.1:9860", MaxAttempts: 30, RetryIntervalMs: 1000}
	res := checker.Check(ctx, "api", hc)
	if res.Ready {
		t.Fatalf("expected not ready")
	}
	if !errors.Is(res.LastErr, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", res.LastErr)
	}
	if prober.calls.Load() != 1 || sleeps != 1 {
		t.Fatalf("expected one attempt and one wait, got calls=%d sleeps=%d", prober.calls.Load(), sleeps)
	}
}

func TestCheckDoesNotWaitAfterFinalAttempt(t *testing.T) {
	prober := &countingProber{err: &StatusError{Code: 500}}
	var sleeps []time.Duration
	checker := NewChecker(
		withProberFactory(func(string) Prober { return prober }),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		}),
	)
	hc := &config.HealthCheck{Enabled: true, BaseURL: "http://127.0.0.1:9860", MaxAttempts: 4, RetryIntervalMs: 250}
	res := checker.Check(context.Background(), "api", hc)
	if res.Ready || res.Attempts != 4 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(sleeps) != 3 {
		t.Fatalf("expected 3 waits between 4 attempts, got %d", len(sleeps))
	}
	for _, d := range sleeps {
		if d != 250*time.Millisecond {
			t.Fatalf("unexpected wait %s", d)
		}
	}
}

func TestCheckExhaustsAttemptsOnNonSuccessStatus(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	hc := &config.HealthCheck{
		Enabled:         true,
		BaseURL:         server.URL,
		MaxAttempts:     3,
		RetryIntervalMs: 10,
	}

	start := time.Now()
	res := NewChecker().Check(context.Background(), "api", hc)
	elapsed := time.Since(start)

	if res.Ready {
		t.Fatalf("expected not ready, got %+v", res)
	}
	if res.Attempts != 3 || hits.Load() != 3 {
		t.Fatalf("expected 3 attempts, got attempts=%d hits=%d", res.Attempts, hits.Load())
	}
	if elapsed < 20*time.Millisecond {
		t.Fatalf("expected at least two retry intervals, took %v", elapsed)
	}
	if Classify(res.LastErr) != FailureSoft {
		t.Fatalf("expected soft failure, got %v (%v)", Classify(res.LastErr), res.LastErr)
	}
	var statusErr *StatusError
	if !errors.As(res.LastErr, &statusErr) || statusErr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500 error, got %v", res.LastErr)
	}
}

type countingTransport struct {
	requests atomic.Int32
	next     http.RoundTripper
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.requests.Add(1)
	return c.next.RoundTrip(req)
}

func TestCheckUsesConfiguredClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := &countingTransport{next: http.DefaultTransport}
	checker := NewChecker(WithClient(&http.Client{Transport: transport}))

	res := checker.Check(context.Background(), "api", &config.HealthCheck{Enabled: true, BaseURL: server.URL, MaxAttempts: 1})
	if !res.Ready {
		t.Fatalf("expected ready, got %+v", res)
	}
	if transport.requests.Load() != 1 {
		t.Fatalf("expected request through configured client, got %d", transport.requests.Load())
	}
}
