package signal

import "errors"

// Outcome is the dispatch directive derived from a listener's return value
type Outcome int

const (
	// Continue proceeds to the next listener
	Continue Outcome = iota
	// Break stops the current emission, the listener stays registered
	Break
	// Unsubscribe removes the listener from the registry
	Unsubscribe
)

// ErrBreak stops the current emission (not considered an error)
var ErrBreak = errors.New("signal: break")

// ErrUnsubscribe removes the returning listener (not considered an error)
var ErrUnsubscribe = errors.New("signal: unsubscribe")

// OutcomeOf classifies a listener return value. Wrapped sentinels are recognized;
// nil and every other error map to Continue.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return Continue
	case errors.Is(err, ErrUnsubscribe):
		return Unsubscribe
	case errors.Is(err, ErrBreak):
		return Break
	default:
		return Continue
	}
}

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case Break:
		return "break"
	case Unsubscribe:
		return "unsubscribe"
	default:
		return "unknown"
	}
}
