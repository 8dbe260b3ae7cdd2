package collection

import "time"

// Phase is the operation lifecycle of a Store.
type Phase int

const (
	// PhaseIdle means no operation has been dispatched since construction or Reset.
	PhaseIdle Phase = iota
	// PhaseLoading means at least one operation is in flight.
	PhaseLoading
	// PhaseSettled means every dispatched operation has settled.
	PhaseSettled
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseSettled:
		return "settled"
	default:
		return "idle"
	}
}

// Outcome is the result of the most recently settled operation.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeOK
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeFailed:
		return "failed"
	default:
		return "none"
	}
}

// Status is the UI status of a Store.
type Status struct {
	Phase   Phase
	Outcome Outcome
	// Error is the message of the last failure. Cleared whenever an operation is dispatched.
	Error string
	// RefreshedAt is when a list operation last succeeded.
	RefreshedAt time.Time
}

// Loading reports whether any operation is in flight.
func (s Status) Loading() bool {
	return s.Phase == PhaseLoading
}

// Failed reports whether the last settled operation failed and nothing has cleared it since.
func (s Status) Failed() bool {
	return s.Error != ""
}

// State is an immutable snapshot of a Store.
type State[T any] struct {
	Items      []T
	Pagination Pagination
	Status     Status
}
