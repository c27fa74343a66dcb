package listing

import (
	"fmt"
	"time"

	"github.com/passin-dev/attendees/pkg/attendee"
)

// State is the lifecycle of the listing for its current (page, search) key.
type State int

const (
	Idle     State = iota // Created, nothing requested yet
	Fetching              // Request for the current key in flight
	Settled               // Result for the current key applied
	Failed                // Latest request failed; previous result, if any, kept
)

var stateNames = [...]string{"idle", "fetching", "settled", "failed"}

// String returns the lowercase state name.
func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state as its name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("listing: unknown state %q", b)
}

// Outcome is how a finished request was resolved.
type Outcome int

const (
	// OutcomeSettled means the response was applied.
	OutcomeSettled Outcome = iota
	// OutcomeFailed means the latest request failed.
	OutcomeFailed
	// OutcomeDiscarded means a newer request had been issued and the
	// response was dropped. This is expected, not an error.
	OutcomeDiscarded
)

// String returns the outcome name used as a metric label.
func (o Outcome) String() string {
	switch o {
	case OutcomeSettled:
		return "settled"
	case OutcomeFailed:
		return "failed"
	case OutcomeDiscarded:
		return "discarded"
	}
	return "unknown"
}

// Observer is notified about every request the controller issues.
// Calls may come from any goroutine and must not call back into the controller.
type Observer interface {
	FetchStarted(q attendee.Query)
	FetchFinished(q attendee.Query, outcome Outcome, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) FetchStarted(attendee.Query)                          {}
func (noopObserver) FetchFinished(attendee.Query, Outcome, time.Duration) {}

// Observers fans out to several observers.
type Observers []Observer

func (obs Observers) FetchStarted(q attendee.Query) {
	for _, o := range obs {
		o.FetchStarted(q)
	}
}

func (obs Observers) FetchFinished(q attendee.Query, outcome Outcome, elapsed time.Duration) {
	for _, o := range obs {
		o.FetchFinished(q, outcome, elapsed)
	}
}
