package session

import (
	"fmt"

	"memoria/internal/domain"
)

// validTransitions encodes the session lifecycle:
// Initialized -> Running -> Consolidating* -> Running -> Closed, with
// Consolidating always reentering Running.
var validTransitions = map[domain.SessionState][]domain.SessionState{
	domain.StateInitialized:   {domain.StateRunning},
	domain.StateRunning:       {domain.StateConsolidating, domain.StateClosed},
	domain.StateConsolidating: {domain.StateRunning},
}

func transition(from, to domain.SessionState) error {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("session: invalid transition %s -> %s", from, to)
}
