package session

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"memoria/internal/anchor"
	"memoria/internal/consolidation"
	"memoria/internal/domain"
	"memoria/internal/embedport"
	"memoria/internal/fsstore"
	"memoria/internal/llmport"
	"memoria/internal/memory"
	"memoria/internal/reconstruct"
	"memoria/internal/taskqueue"
	"memoria/internal/tiers"
	"memoria/internal/vectorindex"
)

const chatResponse = `{"answer": "the weather is fine", "experiential_note": "user asked about weather", "emotional_resonance": {"importance": 0.4, "alignment_with_values": 0.1, "reason": "small talk"}, "memory_actions": [], "unresolved_questions": []}`

func newTestCoordinator(t *testing.T, dir string, llm llmport.Client, frequency int) *Coordinator {
	t.Helper()
	store := fsstore.New(dir)
	index := vectorindex.NewLinearIndex()
	embed := &embedport.MockClient{Vector: []float32{1, 0, 0}}
	logger := zap.NewNop()

	episodic := tiers.NewEpisodicManager(store)
	library := tiers.NewLibraryManager(store)
	working := tiers.NewWorkingManager(store, 10)
	semantic := tiers.NewSemanticManager(store)
	profiles := tiers.NewProfileManager(store, 1000)
	anchors := anchor.New(store, logger)

	recon := reconstruct.New(store, index, embed, episodic, library, working, profiles)
	mem := memory.New(store, index, embed, anchors, semantic, library, working, episodic, profiles, logger)
	cons := consolidation.New(store, llm, semantic, library, profiles, logger)

	c, err := New(store, recon, mem, cons, working, profiles, llm, frequency, logger)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewStartsRunningAndChatReturnsAnswer(t *testing.T) {
	dir := t.TempDir()
	llm := &llmport.MockClient{Response: chatResponse}
	c := newTestCoordinator(t, dir, llm, 1000)
	defer c.Close()

	if c.state != domain.StateRunning {
		t.Fatalf("state = %s, want running", c.state)
	}

	answer, err := c.Chat(context.Background(), "user-1", "home", "what's the weather?", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if answer != "the weather is fine" {
		t.Fatalf("answer = %q", answer)
	}
	if c.meta.TotalInteractions != 1 {
		t.Fatalf("TotalInteractions = %d, want 1", c.meta.TotalInteractions)
	}
}

func TestCounterPersistsAcrossSessionRestart(t *testing.T) {
	dir := t.TempDir()
	llm := &llmport.MockClient{Response: chatResponse}

	c1 := newTestCoordinator(t, dir, llm, 1000)
	ctx := context.Background()
	if _, err := c1.Chat(ctx, "user-1", "home", "hi", time.Now()); err != nil {
		t.Fatal(err)
	}
	if _, err := c1.Chat(ctx, "user-1", "home", "hi again", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := c1.Close(); err != nil {
		t.Fatal(err)
	}

	c2 := newTestCoordinator(t, dir, llm, 1000)
	defer c2.Close()
	if c2.meta.TotalInteractions != 2 {
		t.Fatalf("restarted session TotalInteractions = %d, want 2 (counts must not reset)", c2.meta.TotalInteractions)
	}
}

func TestConsolidationRunsOnConfiguredFrequency(t *testing.T) {
	dir := t.TempDir()
	llm := &llmport.MockClient{Response: chatResponse}
	c := newTestCoordinator(t, dir, llm, 1)
	defer c.Close()

	if _, err := c.Chat(context.Background(), "user-1", "home", "hi", time.Now()); err != nil {
		t.Fatal(err)
	}
	if c.state != domain.StateRunning {
		t.Fatalf("state after consolidation should return to running, got %s", c.state)
	}
}

func TestDueWeeklyOrMonthlyConsolidationIsEnqueuedNotInlineWhenQueueAttached(t *testing.T) {
	dir := t.TempDir()
	llm := &llmport.MockClient{Response: chatResponse}
	c := newTestCoordinator(t, dir, llm, 1000)
	defer c.Close()

	store := fsstore.New(dir)
	queue := taskqueue.New(nil, store)
	c.SetTaskQueue(queue)

	// A freshly initialized schedule has every cadence due immediately,
	// so the first chat turn always finds monthly consolidation due.
	if _, err := c.Chat(context.Background(), "user-1", "home", "hi", time.Now()); err != nil {
		t.Fatal(err)
	}

	task, ok, err := queue.Dequeue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected a consolidation task to be enqueued")
	}
	if task.Kind != "consolidation" {
		t.Fatalf("task.Kind = %q, want consolidation", task.Kind)
	}
}

func TestChatRejectedOutsideRunningState(t *testing.T) {
	dir := t.TempDir()
	llm := &llmport.MockClient{Response: chatResponse}
	c := newTestCoordinator(t, dir, llm, 1000)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Chat(context.Background(), "user-1", "home", "hi", time.Now()); err == nil {
		t.Fatal("expected chat on a closed session to fail")
	}
}

func TestTransitionRejectsInvalidMoves(t *testing.T) {
	if err := transition(domain.StateInitialized, domain.StateClosed); err == nil {
		t.Fatal("expected Initialized -> Closed to be rejected")
	}
	if err := transition(domain.StateRunning, domain.StateConsolidating); err != nil {
		t.Fatalf("expected Running -> Consolidating to be allowed: %v", err)
	}
	if err := transition(domain.StateConsolidating, domain.StateClosed); err == nil {
		t.Fatal("expected Consolidating -> Closed to be rejected; it must reenter Running first")
	}
}
