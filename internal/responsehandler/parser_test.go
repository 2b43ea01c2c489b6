package responsehandler

import (
	"testing"

	"memoria/internal/domain"
)

func TestParseCleanJSON(t *testing.T) {
	raw := `{"answer":"hi there","experiential_note":"note","emotional_resonance":{"importance":0.5,"alignment_with_values":0.2,"reason":"r"},"memory_actions":[],"unresolved_questions":[]}`
	resp := Parse(raw)
	if resp.Degraded {
		t.Fatal("expected clean parse, got degraded")
	}
	if resp.Answer != "hi there" {
		t.Fatalf("answer = %q", resp.Answer)
	}
}

func TestParseStripsCodeFence(t *testing.T) {
	raw := "```json\n{\"answer\":\"fenced\",\"memory_actions\":[]}\n```"
	resp := Parse(raw)
	if resp.Degraded {
		t.Fatal("expected clean parse after fence strip")
	}
	if resp.Answer != "fenced" {
		t.Fatalf("answer = %q", resp.Answer)
	}
}

func TestParseExtractsFromSurroundingText(t *testing.T) {
	raw := "Sure, here you go:\n{\"answer\":\"wrapped\",\"memory_actions\":[]}\nHope that helps."
	resp := Parse(raw)
	if resp.Degraded {
		t.Fatal("expected clean parse from embedded object")
	}
	if resp.Answer != "wrapped" {
		t.Fatalf("answer = %q", resp.Answer)
	}
}

func TestParseFallsBackToRegexOnMalformedJSON(t *testing.T) {
	raw := `{"answer": "partial", "experiential_note": "truncated`
	resp := Parse(raw)
	if !resp.Degraded {
		t.Fatal("expected degraded result for truncated JSON")
	}
	if resp.Answer != "partial" {
		t.Fatalf("answer = %q, want regex-extracted %q", resp.Answer, "partial")
	}
}

func TestParseFallsBackToRawText(t *testing.T) {
	raw := "no json here at all"
	resp := Parse(raw)
	if !resp.Degraded {
		t.Fatal("expected degraded fallback")
	}
	if resp.Answer != raw {
		t.Fatalf("answer = %q, want raw text preserved", resp.Answer)
	}
}

func TestValidateActionRejectsUnsupportedEvidenceFreeObservation(t *testing.T) {
	a := domain.MemoryAction{Action: domain.ActionRemember, Content: "x", Source: domain.SourceAIObserved}
	ok, _ := ValidateAction(a)
	if ok {
		t.Fatal("expected rejection of ai_observed action with no evidence")
	}
}

func TestValidateActionAllowsUserStatedWithoutEvidence(t *testing.T) {
	a := domain.MemoryAction{Action: domain.ActionRemember, Content: "x", Source: domain.SourceUserStated}
	ok, _ := ValidateAction(a)
	if !ok {
		t.Fatal("expected user_stated action to pass without evidence")
	}
}

func TestValidateActionRejectsForget(t *testing.T) {
	a := domain.MemoryAction{Action: domain.ActionForget, Content: "x", Source: domain.SourceUserStated}
	ok, _ := ValidateAction(a)
	if ok {
		t.Fatal("expected forget action to be rejected")
	}
}
