package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Paintersrp/launchpad/internal/engine"
)

func TestApplyEventKeepsStartOrder(t *testing.T) {
	ui := New()
	base := time.Now()
	events := []engine.Event{
		{Timestamp: base, Service: "worker", Status: engine.StatusStarting},
		{Timestamp: base, Service: "worker", Status: engine.StatusError, Err: errors.New("health check timed out")},
		{Timestamp: base, Service: "api", Status: engine.StatusStarting},
		{Timestamp: base, Service: "api", Status: engine.StatusReady, URL: "http://127.0.0.1:9860"},
	}
	for _, ev := range events {
		ui.applyEvent(ev)
	}

	ui.mu.Lock()
	ui.refreshTableLocked()
	visible := append([]string(nil), ui.visible...)
	worker := *ui.services["worker"]
	api := *ui.services["api"]
	history := len(ui.history)
	ui.mu.Unlock()

	if len(visible) != 2 || visible[0] != "worker" || visible[1] != "api" {
		t.Fatalf("expected start order preserved, got %v", visible)
	}
	if worker.status != engine.StatusError || worker.message != "health check timed out" {
		t.Fatalf("unexpected worker state %+v", worker)
	}
	if api.status != engine.StatusReady || api.url != "http://127.0.0.1:9860" || api.message != "" {
		t.Fatalf("unexpected api state %+v", api)
	}
	if history != 4 {
		t.Fatalf("expected 4 history records, got %d", history)
	}
	if got := ui.table.GetCell(2, 2).Text; got != "http://127.0.0.1:9860" {
		t.Fatalf("expected url cell, got %q", got)
	}
}

func TestEventHistoryIsBounded(t *testing.T) {
	ui := New(WithMaxEvents(3))
	for i := 0; i < 5; i++ {
		ui.applyEvent(engine.Event{Service: "api", Status: engine.StatusStarting})
	}
	ui.mu.RLock()
	defer ui.mu.RUnlock()
	if len(ui.history) != 3 {
		t.Fatalf("expected history capped at 3, got %d", len(ui.history))
	}
}

func TestFilterLimitsVisibleServices(t *testing.T) {
	ui := New()
	ui.applyEvent(engine.Event{Service: "api", Status: engine.StatusStarting})
	ui.applyEvent(engine.Event{Service: "worker", Status: engine.StatusStarting})

	ui.applyFilter("^wor")
	ui.mu.RLock()
	visible := append([]string(nil), ui.visible...)
	title := ui.table.GetTitle()
	ui.mu.RUnlock()
	if len(visible) != 1 || visible[0] != "worker" {
		t.Fatalf("expected only worker visible, got %v", visible)
	}
	if !strings.Contains(title, "/^wor/") {
		t.Fatalf("expected filter in title, got %q", title)
	}

	ui.applyFilter("")
	ui.mu.RLock()
	defer ui.mu.RUnlock()
	if len(ui.visible) != 2 {
		t.Fatalf("expected filter cleared, got %v", ui.visible)
	}
}

func TestHideStopsWindowAndDropsEvents(t *testing.T) {
	ui := New()
	if err := ui.Hide(); err != nil {
		t.Fatalf("Hide returned error: %v", err)
	}
	select {
	case <-ui.Done():
	default:
		t.Fatalf("expected Done to be closed after Hide")
	}
	// Hiding twice and emitting afterwards must not block or panic.
	if err := ui.Hide(); err != nil {
		t.Fatalf("second Hide returned error: %v", err)
	}
	for i := 0; i < 1000; i++ {
		ui.Emit(engine.Event{Service: "api", Status: engine.StatusStarting})
	}
}
