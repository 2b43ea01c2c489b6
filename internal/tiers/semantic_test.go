package tiers

import (
	"strings"
	"testing"
	"time"

	"memoria/internal/fsstore"
)

func TestAppendInsightRoundTrips(t *testing.T) {
	dir := t.TempDir()
	store := fsstore.New(dir)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	m := NewSemanticManager(store)
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	if _, err := m.AppendInsight("users prefer terse replies", 0.82, []string{"note_1", "note_2"}, "positive", at); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AppendInsight("dark mode matters", 0.4, []string{"note_3"}, "mixed", at.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}

	all, err := m.allInsights()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d insights, want 2", len(all))
	}
	if all[0].Content != "users prefer terse replies" || all[0].Confidence != 0.82 {
		t.Fatalf("unexpected first insight: %+v", all[0])
	}
	if len(all[0].EvidenceRefs) != 2 || all[0].EvidenceRefs[0] != "note_1" {
		t.Fatalf("evidence refs not round-tripped: %+v", all[0].EvidenceRefs)
	}

	top, err := m.TopConfidence(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 1 || top[0].Content != "users prefer terse replies" {
		t.Fatalf("TopConfidence picked wrong insight: %+v", top)
	}

	rollup, err := store.ReadFile(store.SemanticPath("concepts.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(rollup), "users prefer terse replies") {
		t.Fatal("concepts.md rollup missing top insight")
	}
}

func TestByTopicFiltersCaseInsensitively(t *testing.T) {
	dir := t.TempDir()
	store := fsstore.New(dir)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	m := NewSemanticManager(store)
	at := time.Now()
	if _, err := m.AppendInsight("Go generics are useful", 0.6, nil, "", at); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AppendInsight("rust borrow checker", 0.6, nil, "", at); err != nil {
		t.Fatal(err)
	}

	matches, err := m.ByTopic("GO")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || !strings.Contains(matches[0].Content, "generics") {
		t.Fatalf("ByTopic returned %+v", matches)
	}
}

func TestConceptGraphDerivesCoOccurrence(t *testing.T) {
	dir := t.TempDir()
	store := fsstore.New(dir)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	m := NewSemanticManager(store)
	at := time.Now()
	if _, err := m.AppendInsight("x", 0.5, []string{"a", "b", "c"}, "", at); err != nil {
		t.Fatal(err)
	}

	graph, err := m.ConceptGraph()
	if err != nil {
		t.Fatal(err)
	}
	if len(graph["a"]) != 2 {
		t.Fatalf("a's neighbors = %v, want 2 entries", graph["a"])
	}
}
