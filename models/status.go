package models

import "fmt"

// TabStatus is the persisted lifecycle state of a tab. Transitions move
// forward through the pipeline; the only backward edges are error states
// re-entering their pending stage for a retry.
type TabStatus string

const (
	StatusNew          TabStatus = "new"
	StatusFetchPending TabStatus = "fetch_pending"
	StatusParsed       TabStatus = "parsed"
	StatusFetchError   TabStatus = "fetch_error"
	StatusLLMPending   TabStatus = "llm_pending"
	StatusEnriched     TabStatus = "enriched"
	StatusLLMError     TabStatus = "llm_error"
)

// allowedTransitions is the full edge set of the status state machine.
// StatusEnriched is terminal.
var allowedTransitions = map[TabStatus][]TabStatus{
	StatusNew:          {StatusFetchPending},
	StatusFetchPending: {StatusParsed, StatusFetchError},
	StatusFetchError:   {StatusFetchPending},
	StatusParsed:       {StatusLLMPending},
	StatusLLMPending:   {StatusEnriched, StatusLLMError},
	StatusLLMError:     {StatusLLMPending},
	StatusEnriched:     {},
}

// Valid reports whether s is a known status value.
func (s TabStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransitionTo reports whether the edge s -> next is permitted.
func (s TabStatus) CanTransitionTo(next TabStatus) bool {
	for _, t := range allowedTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Transition returns next if the edge is permitted, or an error naming
// the rejected edge. Callers persist the result; this type holds no state.
func (s TabStatus) Transition(next TabStatus) (TabStatus, error) {
	if !next.Valid() {
		return s, fmt.Errorf("unknown tab status %q", next)
	}
	if !s.CanTransitionTo(next) {
		return s, fmt.Errorf("invalid status transition %s -> %s", s, next)
	}
	return next, nil
}
