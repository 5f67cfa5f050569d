// Package playback drives a subtitle timeline against a virtual clock that the
// user pauses, resumes and nudges by hand while watching the media.
package playback

import (
	"time"
)

// State represents the playback state.
type State int

const (
	StatePaused     State = iota // Virtual clock frozen, nothing shown
	StatePlaying                 // Display loop running
	StateTerminated              // Timeline exhausted, commands ignored
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// EventType represents a playback event type.
type EventType int

const (
	EventStateChanged EventType = iota // Pause, resume or termination
	EventCueShown                      // Cue text handed to the presenter
	EventCueCleared                    // Cue text removed after its end time
	EventCueSkipped                    // Cue passed without being shown
	EventSeeked                        // Cursor moved by a skip command
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventStateChanged:
		return "state_changed"
	case EventCueShown:
		return "cue_shown"
	case EventCueCleared:
		return "cue_cleared"
	case EventCueSkipped:
		return "cue_skipped"
	case EventSeeked:
		return "seeked"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type     EventType
	State    State
	Cursor   int
	Position time.Duration // Virtual time when the event was emitted
	Text     string        // Cue text for cue events
}

// Snapshot is a consistent view of the controller state.
type Snapshot struct {
	State    State
	Cursor   int
	Total    int
	Position time.Duration
}
