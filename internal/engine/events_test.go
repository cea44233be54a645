package engine

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

// Recorder is a Sink that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestEventPayloadAndName(t *testing.T) {
	cases := []struct {
		ev      Event
		name    string
		payload string
	}{
		{Event{Service: "api", Status: StatusStarting}, EventServiceStarting, `{"service":"api","status":"starting"}`},
		{Event{Service: "api", Status: StatusReady, URL: "http://127.0.0.1:9860"}, EventServiceReady, `{"service":"api","status":"ready","url":"http://127.0.0.1:9860"}`},
		{Event{Service: "config", Status: StatusError, Err: errors.New("boom")}, EventServiceError, `{"service":"config","status":"error","error":"boom"}`},
	}
	for _, tc := range cases {
		if got := tc.ev.Name(); got != tc.name {
			t.Fatalf("expected name %s, got %s", tc.name, got)
		}
		data, err := json.Marshal(tc.ev)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(data) != tc.payload {
			t.Fatalf("expected %s, got %s", tc.payload, data)
		}
	}
}

func TestMessageOnlyForErrors(t *testing.T) {
	ev := Event{Status: StatusReady, Err: errors.New("ignored")}
	if ev.Message() != "" {
		t.Fatalf("non-error events carry no message")
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	MultiSink{a, nil, b}.Emit(Event{Service: "api"})
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatalf("expected both sinks to receive the event")
	}
}
