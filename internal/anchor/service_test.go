package anchor

import (
	"strings"
	"testing"
	"time"

	"memoria/internal/domain"
	"memoria/internal/fsstore"
)

func TestMaybeAnchorBelowThresholdNoOp(t *testing.T) {
	dir := t.TempDir()
	store := fsstore.New(dir)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	svc := New(store, nil)

	marker, err := svc.MaybeAnchor("note_1", "content", domain.EmotionResonance{Intensity: 0.7}, time.Now(), "")
	if err != nil {
		t.Fatal(err)
	}
	if marker != nil {
		t.Fatal("expected no anchor at exactly the threshold")
	}
	if store.Exists(store.EpisodicPath("key_moments.md")) {
		t.Fatal("key_moments.md should not have been created")
	}
}

func TestMaybeAnchorAboveThresholdWritesAll(t *testing.T) {
	dir := t.TempDir()
	store := fsstore.New(dir)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	svc := New(store, nil)

	r := domain.EmotionResonance{Intensity: 0.85, Valence: "positive", Reason: "breakthrough", Importance: 0.9, Alignment: 0.94}
	marker, err := svc.MaybeAnchor("note_20260101_120000_ab12", "Discovered something important", r, time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC), "")
	if err != nil {
		t.Fatal(err)
	}
	if marker == nil {
		t.Fatal("expected an anchor")
	}

	km, err := store.ReadFile(store.EpisodicPath("key_moments.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(km), "note_20260101_120000_ab12") {
		t.Fatal("key_moments.md missing memory id")
	}

	hist, err := store.ReadFile(store.EpisodicPath("history.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(hist), "note_20260101_120000_ab12") {
		t.Fatal("history.json missing memory id")
	}

	sig, err := store.ReadFile(store.CorePath("emotional_significance"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(sig), "Chronological Anchors") {
		t.Fatal("emotional_significance.md missing section header")
	}
}

func TestMaybeAnchorDiscoveryRouting(t *testing.T) {
	dir := t.TempDir()
	store := fsstore.New(dir)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	svc := New(store, nil)

	r := domain.EmotionResonance{Intensity: 0.9, Valence: "positive"}
	if _, err := svc.MaybeAnchor("note_1", "found a new pattern", r, time.Now(), "discovery"); err != nil {
		t.Fatal(err)
	}
	if !store.Exists(store.EpisodicPath("key_discoveries.md")) {
		t.Fatal("expected key_discoveries.md to be created")
	}
	if store.Exists(store.EpisodicPath("key_experiments.md")) {
		t.Fatal("did not expect key_experiments.md")
	}
}
