package responsehandler

import (
	"strings"

	"memoria/internal/domain"
)

// ValidateAction rejects a memory action that claims something about
// the user (source ai_observed or ai_inferred) without citing evidence,
// keeping unverified inference out of semantic/episodic storage.
// user_stated and ai_reflection actions need no evidence: the former is
// a direct quote, the latter is the agent's own claim about itself.
func ValidateAction(a domain.MemoryAction) (bool, string) {
	switch a.Source {
	case domain.SourceAIObserved, domain.SourceAIInferred:
		if strings.TrimSpace(a.Evidence) == "" {
			return false, "ai_observed/ai_inferred actions require evidence"
		}
	}
	if a.Action == domain.ActionForget {
		return false, "forget actions are not supported"
	}
	if strings.TrimSpace(a.Content) == "" {
		return false, "action content must not be empty"
	}
	return true, ""
}

// ValidActions filters a structured response's memory actions down to
// the ones that pass ValidateAction, in order.
func ValidActions(resp domain.StructuredResponse) []domain.MemoryAction {
	var out []domain.MemoryAction
	for _, a := range resp.MemoryActions {
		if ok, _ := ValidateAction(a); ok {
			out = append(out, a)
		}
	}
	return out
}
