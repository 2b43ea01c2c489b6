package responsehandler

import (
	"go.uber.org/zap"

	"memoria/internal/domain"
)

// Handler parses a raw LLM completion into a StructuredResponse and
// filters its memory actions through ValidateAction, logging what was
// dropped rather than silently discarding it.
type Handler struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Handler {
	return &Handler{logger: logger}
}

// Result is the outcome of handling one raw completion.
type Result struct {
	Response      domain.StructuredResponse
	ValidActions  []domain.MemoryAction
	RejectedCount int
}

func (h *Handler) Handle(raw string) Result {
	resp := Parse(raw)
	if resp.Degraded && h.logger != nil {
		h.logger.Warn("structured response parse degraded to raw text fallback")
	}

	var valid []domain.MemoryAction
	rejected := 0
	for _, a := range resp.MemoryActions {
		if ok, reason := ValidateAction(a); ok {
			valid = append(valid, a)
		} else {
			rejected++
			if h.logger != nil {
				h.logger.Info("rejected memory action", zap.String("action", string(a.Action)), zap.String("reason", reason))
			}
		}
	}

	return Result{Response: resp, ValidActions: valid, RejectedCount: rejected}
}
