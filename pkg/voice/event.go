// CLAUDE:SUMMARY Voice adapter states, recognizer events and the Recognizer contract.
package voice

import (
	"context"
	"fmt"
)

// State is the listening state of a session.
type State int

const (
	Idle State = iota
	Listening
	Processing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Processing:
		return "processing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText renders the state as its lowercase name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name written by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = Idle
	case "listening":
		*s = Listening
	case "processing":
		*s = Processing
	default:
		return fmt.Errorf("unknown state %q", b)
	}
	return nil
}

// Status labels shown to the user.
const (
	StatusListening  = "Listening…"
	StatusProcessing = "Processing…"
	StatusError      = "Error: Try again"
)

// EventKind identifies a recognizer callback.
type EventKind string

const (
	EventStarted EventKind = "started"
	EventEnded   EventKind = "ended"
	EventResult  EventKind = "result"
	EventError   EventKind = "error"
)

// Valid reports whether k is one of the known event kinds.
func (k EventKind) Valid() bool {
	switch k {
	case EventStarted, EventEnded, EventResult, EventError:
		return true
	}
	return false
}

// Event is one callback from a speech recognizer.
// Text is set for results, Reason for errors.
type Event struct {
	Kind   EventKind `json:"type"`
	Text   string    `json:"text,omitempty"`
	Reason string    `json:"reason,omitempty"`
}

// Sink receives the events of one recognition pass.
type Sink func(Event)

// Recognizer is a speech-to-text engine. Start begins one recognition pass and
// reports its progress to sink; it must not call sink synchronously while
// holding locks the caller might need. Stop aborts the current pass.
type Recognizer interface {
	Start(ctx context.Context, sink Sink) error
	Stop() error
}

// External is a Recognizer whose passes are driven from outside the process,
// e.g. a browser speech API posting its events over HTTP.
type External struct{}

func (External) Start(context.Context, Sink) error { return nil }
func (External) Stop() error                        { return nil }
