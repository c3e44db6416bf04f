// Package feedback carries operator signals (lights and buzzer) out of the
// engine.  Signals are presentation only; a failed signal never changes an
// attendance decision.
package feedback

import (
	"context"
	"time"
)

type Signal string

const (
	SignalSuccess      Signal = "success"
	SignalError        Signal = "error"
	SignalDuplicate    Signal = "duplicate"
	SignalSessionStart Signal = "session_start"
	SignalSessionReady Signal = "session_ready"

	SignalEnrolled      Signal = "enrolled"
	SignalOwnerEnrolled Signal = "owner_enrolled"
	SignalEnrollFailed  Signal = "enroll_failed"
)

type Light string

const (
	LightYellow Light = "yellow"
	LightRed    Light = "red"
)

// Pattern is how a signal is rendered by the box's lights and buzzer.
// Hold keeps the lights on until the next pattern instead of blinking.
type Pattern struct {
	Lights       []Light       `json:"lights,omitempty"`
	Blink        time.Duration `json:"blink,omitempty"`
	Blinks       int           `json:"blinks,omitempty"`
	Hold         bool          `json:"hold,omitempty"`
	Beeps        int           `json:"beeps,omitempty"`
	BeepDuration time.Duration `json:"beep_duration,omitempty"`
	BeepInterval time.Duration `json:"beep_interval,omitempty"`
}

var patterns = map[Signal]Pattern{
	SignalSuccess:      {Lights: []Light{LightYellow}, Blink: 500 * time.Millisecond, Blinks: 1, Beeps: 1, BeepDuration: 100 * time.Millisecond},
	SignalError:        {Lights: []Light{LightRed}, Blink: 500 * time.Millisecond, Blinks: 1},
	SignalDuplicate:    {Lights: []Light{LightRed}, Blink: 250 * time.Millisecond, Blinks: 2},
	SignalSessionStart: {Lights: []Light{LightYellow, LightRed}, Hold: true, Beeps: 3, BeepDuration: 100 * time.Millisecond, BeepInterval: 100 * time.Millisecond},
	SignalSessionReady: {},

	SignalEnrolled:      {Lights: []Light{LightYellow}, Blink: time.Second, Blinks: 1, Beeps: 1, BeepDuration: 200 * time.Millisecond},
	SignalOwnerEnrolled: {Lights: []Light{LightYellow}, Blink: time.Second, Blinks: 1, Beeps: 2, BeepDuration: 200 * time.Millisecond, BeepInterval: 100 * time.Millisecond},
	SignalEnrollFailed:  {Lights: []Light{LightRed}, Blink: time.Second, Blinks: 1},
}

// PatternFor returns the rendering for s.  SessionReady is the all-off
// pattern.
func PatternFor(s Signal) (Pattern, bool) {
	p, ok := patterns[s]
	return p, ok
}

// Event is one signal with enough context for a display to label it.
type Event struct {
	Signal     Signal    `json:"signal"`
	Pattern    Pattern   `json:"pattern"`
	SessionID  string    `json:"session_id,omitempty"`
	IdentityID string    `json:"identity_id,omitempty"`
	Token      string    `json:"token,omitempty"`
	At         time.Time `json:"at"`
}

func NewEvent(s Signal) Event {
	p, _ := PatternFor(s)
	return Event{Signal: s, Pattern: p, At: time.Now().UTC()}
}

type Signaler interface {
	Signal(ctx context.Context, ev Event) error
}

type Noop struct{}

func (Noop) Signal(context.Context, Event) error { return nil }
