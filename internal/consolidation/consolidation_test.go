package consolidation

import (
	"context"
	"strings"
	"testing"
	"time"

	"memoria/internal/domain"
	"memoria/internal/fsstore"
	"memoria/internal/llmport"
	"memoria/internal/tiers"
)

func TestDuePrioritizesHighestCadence(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	sched := domain.ConsolidationSchedule{NextDaily: past, NextWeekly: past, NextMonthly: past}
	if got := Due(sched, now); got != domain.ModeMonthly {
		t.Fatalf("Due() = %q, want monthly when all are overdue", got)
	}

	sched = domain.ConsolidationSchedule{NextDaily: past, NextWeekly: past, NextMonthly: future}
	if got := Due(sched, now); got != domain.ModeWeekly {
		t.Fatalf("Due() = %q, want weekly", got)
	}

	sched = domain.ConsolidationSchedule{NextDaily: past, NextWeekly: future, NextMonthly: future}
	if got := Due(sched, now); got != domain.ModeDaily {
		t.Fatalf("Due() = %q, want daily", got)
	}

	sched = domain.ConsolidationSchedule{NextDaily: future, NextWeekly: future, NextMonthly: future}
	if got := Due(sched, now); got != "" {
		t.Fatalf("Due() = %q, want none due", got)
	}
}

func TestApplyLimitationsRewriteAddsYet(t *testing.T) {
	text := "The agent cannot parse images and cannot yet write code reliably."
	got := applyLimitationsRewrite(domain.ComponentLimitations, text)
	if strings.Contains(got, "cannot parse") {
		t.Fatalf("expected 'cannot parse' rewritten, got: %s", got)
	}
	if !strings.Contains(got, "cannot yet parse") {
		t.Fatalf("expected 'cannot yet parse', got: %s", got)
	}
	if strings.Count(got, "cannot yet write") != 1 {
		t.Fatalf("expected existing 'cannot yet' to stay singular, got: %s", got)
	}
}

func TestApplyLimitationsRewriteIgnoresOtherComponents(t *testing.T) {
	text := "The agent cannot do this."
	got := applyLimitationsRewrite(domain.ComponentPurpose, text)
	if got != text {
		t.Fatalf("expected non-limitations component unchanged, got: %s", got)
	}
}

func TestChangeMagnitudeZeroForIdenticalContent(t *testing.T) {
	if m := changeMagnitude("same text", "same text"); m != 0 {
		t.Fatalf("changeMagnitude(same, same) = %f, want 0", m)
	}
	if m := changeMagnitude("", ""); m != 0 {
		t.Fatalf("changeMagnitude(empty, empty) = %f, want 0", m)
	}
	if m := changeMagnitude("abc", "xyz"); m <= 0 {
		t.Fatalf("changeMagnitude(abc, xyz) = %f, want > 0", m)
	}
}

func TestRunSkipsComponentsBelowConfidenceGate(t *testing.T) {
	dir := t.TempDir()
	store := fsstore.New(dir)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	if err := store.WriteFile(store.NotePath(time.Now(), "n1"), []byte("a note about purpose")); err != nil {
		t.Fatal(err)
	}

	llm := &llmport.MockClient{Response: `{"insights": ["x"], "patterns": [], "summary": "low confidence summary", "confidence": 0.1}`}
	semantic := tiers.NewSemanticManager(store)
	library := tiers.NewLibraryManager(store)
	profiles := tiers.NewProfileManager(store, 5)

	e := New(store, llm, semantic, library, profiles, nil)
	result, err := e.Run(context.Background(), domain.ModeDaily, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Updated) != 0 {
		t.Fatalf("Updated = %v, want none below confidence gate", result.Updated)
	}
	if len(result.Skipped) != len(domain.AllConsolidatedComponents) {
		t.Fatalf("Skipped = %d, want %d", len(result.Skipped), len(domain.AllConsolidatedComponents))
	}
}

func TestRunWritesComponentsAboveConfidenceGate(t *testing.T) {
	dir := t.TempDir()
	store := fsstore.New(dir)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	if err := store.WriteFile(store.NotePath(time.Now(), "n1"), []byte("a note about purpose and values")); err != nil {
		t.Fatal(err)
	}

	llm := &llmport.MockClient{Response: `{"insights": ["clarity"], "patterns": ["consistency"], "summary": "This agent exists to help.", "confidence": 0.9}`}
	semantic := tiers.NewSemanticManager(store)
	library := tiers.NewLibraryManager(store)
	profiles := tiers.NewProfileManager(store, 5)

	e := New(store, llm, semantic, library, profiles, nil)
	result, err := e.Run(context.Background(), domain.ModeDaily, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Updated) != len(domain.AllConsolidatedComponents) {
		t.Fatalf("Updated = %v, want all %d components", result.Updated, len(domain.AllConsolidatedComponents))
	}

	data, err := store.ReadFile(store.CorePath(string(domain.ComponentPurpose)))
	if err != nil || len(data) == 0 {
		t.Fatalf("expected purpose component written, err=%v", err)
	}
}

func TestReflectOnPersistsReflectionRecord(t *testing.T) {
	dir := t.TempDir()
	store := fsstore.New(dir)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	if err := store.WriteFile(store.NotePath(time.Now(), "n1"), []byte("a note about the weather")); err != nil {
		t.Fatal(err)
	}

	llm := &llmport.MockClient{Response: `{"insights": ["it rains often"], "patterns": [], "contradictions": [], "evolution_narrative": "n", "confidence": 0.5}`}
	semantic := tiers.NewSemanticManager(store)
	library := tiers.NewLibraryManager(store)
	profiles := tiers.NewProfileManager(store, 5)

	e := New(store, llm, semantic, library, profiles, nil)
	reflection, err := e.ReflectOn(context.Background(), "weather", domain.DepthShallow, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	raw, err := store.ReadFile(store.ReflectionsPath())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), reflection.ID) {
		t.Fatalf("reflections.json does not contain reflection id %s: %s", reflection.ID, raw)
	}
}

func TestGenerateProfileOnlyUsesTargetUsersVerbatim(t *testing.T) {
	dir := t.TempDir()
	store := fsstore.New(dir)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	if err := store.WriteFile(store.VerbatimPath("user-a", now, "v1"), []byte("user-a talks about gardening")); err != nil {
		t.Fatal(err)
	}
	if err := store.WriteFile(store.VerbatimPath("user-b", now, "v1"), []byte("user-b talks about rockets")); err != nil {
		t.Fatal(err)
	}

	var seenUserText string
	llm := &capturingLLM{response: `{"profile": "p"}`, onGenerate: func(_, user string) { seenUserText = user }}
	semantic := tiers.NewSemanticManager(store)
	library := tiers.NewLibraryManager(store)
	profiles := tiers.NewProfileManager(store, 5)

	e := New(store, llm, semantic, library, profiles, nil)
	if _, err := e.GenerateProfile(context.Background(), "user-a", 5, now); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(seenUserText, "gardening") {
		t.Fatalf("expected user-a's own verbatim in the prompt, got: %s", seenUserText)
	}
	if strings.Contains(seenUserText, "rockets") {
		t.Fatalf("profile generation leaked user-b's verbatim into user-a's prompt: %s", seenUserText)
	}
}

// capturingLLM records the user prompt of its last Generate call.
type capturingLLM struct {
	response   string
	onGenerate func(system, user string)
}

func (c *capturingLLM) Generate(_ context.Context, system, user string) (string, error) {
	if c.onGenerate != nil {
		c.onGenerate(system, user)
	}
	return c.response, nil
}
