package tools

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"

	"memoria/internal/anchor"
	"memoria/internal/consolidation"
	"memoria/internal/domain"
	"memoria/internal/embedport"
	"memoria/internal/fsstore"
	"memoria/internal/llmport"
	"memoria/internal/memory"
	"memoria/internal/reconstruct"
	"memoria/internal/tiers"
	"memoria/internal/vectorindex"
)

func newTestSurface(t *testing.T) *Surface {
	t.Helper()
	dir := t.TempDir()
	store := fsstore.New(dir)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	index := vectorindex.NewLinearIndex()
	embed := &embedport.MockClient{Vector: []float32{1, 0, 0}}
	logger := zap.NewNop()

	episodic := tiers.NewEpisodicManager(store)
	library := tiers.NewLibraryManager(store)
	working := tiers.NewWorkingManager(store, 10)
	semantic := tiers.NewSemanticManager(store)
	profiles := tiers.NewProfileManager(store, 5)
	anchors := anchor.New(store, logger)

	recon := reconstruct.New(store, index, embed, episodic, library, working, profiles)
	mem := memory.New(store, index, embed, anchors, semantic, library, working, episodic, profiles, logger)
	llm := &llmport.MockClient{Response: `{"insights": ["x"], "patterns": [], "contradictions": [], "evolution_narrative": "n", "confidence": 0.9}`}
	cons := consolidation.New(store, llm, semantic, library, profiles, logger)

	return New(mem, recon, cons)
}

func TestRememberFactWritesInsight(t *testing.T) {
	s := newTestSurface(t)
	insight, err := s.RememberFact(context.Background(), RememberFactRequest{
		Content:    "the sky is blue",
		Importance: 0.3,
		Alignment:  0.1,
		Reason:     "trivial observation",
		Source:     domain.SourceUserStated,
	}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if insight.ID == "" {
		t.Fatal("expected non-empty insight ID")
	}
}

func TestRememberFactRejectsUnevidencedAIObservation(t *testing.T) {
	s := newTestSurface(t)
	_, err := s.RememberFact(context.Background(), RememberFactRequest{
		Content:    "the user prefers dark mode",
		Importance: 0.5,
		Alignment:  0.2,
		Reason:     "inferred from settings",
		Source:     domain.SourceAIObserved,
	}, time.Now())
	if !errors.Is(err, memory.ErrValidationRejected) {
		t.Fatalf("err = %v, want ErrValidationRejected", err)
	}
}

// TestRememberFactHighIntensityCreatesAnchor exercises the mandatory
// seed scenario: importance 0.9 and alignment 0.8 yield intensity
// 0.720, which crosses the anchor threshold and must produce a
// key_moments.md entry and a history.json timeline row.
func TestRememberFactHighIntensityCreatesAnchor(t *testing.T) {
	dir := t.TempDir()
	store := fsstore.New(dir)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	index := vectorindex.NewLinearIndex()
	embed := &embedport.MockClient{Vector: []float32{1, 0, 0}}
	logger := zap.NewNop()

	episodic := tiers.NewEpisodicManager(store)
	library := tiers.NewLibraryManager(store)
	working := tiers.NewWorkingManager(store, 10)
	semantic := tiers.NewSemanticManager(store)
	profiles := tiers.NewProfileManager(store, 5)
	anchors := anchor.New(store, logger)

	recon := reconstruct.New(store, index, embed, episodic, library, working, profiles)
	mem := memory.New(store, index, embed, anchors, semantic, library, working, episodic, profiles, logger)
	cons := consolidation.New(store, &llmport.MockClient{}, semantic, library, profiles, logger)
	s := New(mem, recon, cons)

	insight, err := s.RememberFact(context.Background(), RememberFactRequest{
		Content:    "the breakthrough changed everything",
		Importance: 0.9,
		Alignment:  0.8,
		Reason:     "major realization",
		Source:     domain.SourceAIReflection,
	}, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	keyMoments, err := store.ReadFile(store.EpisodicPath("key_moments.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(keyMoments), insight.ID) {
		t.Fatalf("key_moments.md does not reference insight id %s", insight.ID)
	}

	historyData, err := store.ReadFile(store.EpisodicPath("history.json"))
	if err != nil {
		t.Fatal(err)
	}
	var history []anchor.HistoryEntry
	if err := gojson.Unmarshal(historyData, &history); err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Fatalf("history entries = %d, want 1", len(history))
	}
	if history[0].Intensity != 0.720 {
		t.Fatalf("intensity = %v, want 0.720", history[0].Intensity)
	}
}

func TestCaptureDocumentThenSearchLibraryFindsIt(t *testing.T) {
	s := newTestSurface(t)
	ctx := context.Background()
	_, err := s.CaptureDocument(ctx, CaptureDocumentRequest{
		SourcePath:  "notes/design.md",
		ContentType: "text/markdown",
		Content:     "the retry policy uses exponential backoff",
	}, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	docs, err := s.SearchLibrary(SearchLibraryRequest{Query: "retry policy"})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
}

func TestReconstructContextRejectsOutOfRangeFocusLevel(t *testing.T) {
	s := newTestSurface(t)
	_, err := s.ReconstructContext(context.Background(), ReconstructContextRequest{
		UserID:     "user-1",
		Query:      "hello",
		FocusLevel: 9,
	})
	if err == nil {
		t.Fatal("expected an error for focus_level out of [0,5]")
	}
}

func TestReconstructContextReturnsTraceAlongsideContext(t *testing.T) {
	s := newTestSurface(t)
	resp, err := s.ReconstructContext(context.Background(), ReconstructContextRequest{
		UserID:     "user-1",
		Query:      "hello",
		FocusLevel: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Context == "" {
		t.Fatal("expected non-empty context")
	}
}

func TestReflectOnReturnsReflectionWithDefaultDepth(t *testing.T) {
	s := newTestSurface(t)
	reflection, err := s.ReflectOn(context.Background(), ReflectOnRequest{Topic: "weather"}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if reflection.Depth != domain.DepthShallow {
		t.Fatalf("Depth = %s, want default shallow", reflection.Depth)
	}
}
