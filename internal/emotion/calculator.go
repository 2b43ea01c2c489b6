// Package emotion implements the engine's emotional resonance
// calculation: a pure function, no text analysis, no keywords, no
// heuristics. All cognitive assessment (importance, alignment) must
// originate from the LLM's structured response; this package never
// invents them.
package emotion

import (
	"fmt"
	"math"

	"memoria/internal/domain"
)

// Calculate clamps importance to [0,1] and alignment to [-1,1], then
// computes intensity = importance * abs(alignment), rounded to three
// decimals for determinism (invariant I3). Valence is positive when
// alignment > 0.3, negative when alignment < -0.3, mixed otherwise.
//
// If reason is empty, a default reason is generated from the clamped
// inputs — the LLM is expected to supply one, but a default keeps the
// bundle well-formed when it doesn't.
func Calculate(importance, alignment float64, reason string) domain.EmotionResonance {
	importance = clamp(importance, 0, 1)
	alignment = clamp(alignment, -1, 1)

	intensity := round3(importance * math.Abs(alignment))

	var valence string
	switch {
	case alignment > 0.3:
		valence = domain.ValencePositive
	case alignment < -0.3:
		valence = domain.ValenceNegative
	default:
		valence = domain.ValenceMixed
	}

	if reason == "" {
		reason = defaultReason(valence, importance, alignment)
	}

	return domain.EmotionResonance{
		Intensity:  intensity,
		Valence:    valence,
		Reason:     reason,
		Importance: round3(importance),
		Alignment:  round3(alignment),
	}
}

// IsAnchorEvent reports whether intensity crosses the fixed anchor
// threshold above which an exchange is significant enough to anchor.
func IsAnchorEvent(intensity float64) bool {
	return intensity > domain.AnchorThreshold
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func defaultReason(valence string, importance, alignment float64) string {
	switch valence {
	case domain.ValencePositive:
		return fmt.Sprintf("Aligns with core values (importance=%.2f, alignment=%.2f)", importance, alignment)
	case domain.ValenceNegative:
		return fmt.Sprintf("Contradicts core values (importance=%.2f, alignment=%.2f)", importance, alignment)
	default:
		return fmt.Sprintf("Neutral alignment (importance=%.2f, alignment=%.2f)", importance, alignment)
	}
}
