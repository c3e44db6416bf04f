package feedback

import (
	"context"
	"sync"
)

// Recorder keeps every event it receives.  Test-only helper.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Signal(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Signals returns just the signal names, in order.
func (r *Recorder) Signals() []Signal {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Signal, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Signal
	}
	return out
}
