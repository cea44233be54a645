package engine

// Sink receives lifecycle events. Delivery is fire-and-forget: Emit must not
// block the orchestrator for long and has no way to report failure.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Emit calls f(ev).
func (f SinkFunc) Emit(ev Event) {
	if f != nil {
		f(ev)
	}
}

// MultiSink fans events out to every non-nil sink in order.
type MultiSink []Sink

// Emit implements Sink.
func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(ev)
		}
	}
}
