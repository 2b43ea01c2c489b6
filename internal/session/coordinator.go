// Package session implements the Session Coordinator façade: the single
// entry point that owns every manager and walks one memory_base_path
// through its chat() lifecycle.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"memoria/internal/consolidation"
	"memoria/internal/domain"
	"memoria/internal/fsstore"
	"memoria/internal/llmport"
	"memoria/internal/memory"
	"memoria/internal/reconstruct"
	"memoria/internal/responsehandler"
	"memoria/internal/taskqueue"
	"memoria/internal/tiers"
)

const systemPrompt = `You are a memory-augmented agent. You are given reconstructed context from your own accumulated memory, followed by the user's current input. Respond with a single JSON object: {"answer": string, "experiential_note": string, "emotional_resonance": {"importance": number 0-1, "alignment_with_values": number -1 to 1, "reason": string}, "memory_actions": [{"action": "remember"|"link", "content": string, "importance": number, "alignment_with_values": number, "reason": string, "emotion": string, "source": "user_stated"|"ai_observed"|"ai_inferred"|"ai_reflection", "evidence": string, "links_to": [string], "content_kind": string}], "unresolved_questions": [string]}. experiential_note is your own first-person reflection on this exchange.`

// Coordinator holds references to every manager a chat turn touches, and
// enforces the state machine and single-in-flight-call policy around
// them.
type Coordinator struct {
	store         *fsstore.Store
	recon         *reconstruct.Pipeline
	mem           *memory.Engine
	consolidation *consolidation.Engine
	working       *tiers.WorkingManager
	profiles      *tiers.ProfileManager
	llm           llmport.Client
	logger        *zap.Logger
	queue         *taskqueue.Queue

	consolidationFrequency int

	mu         sync.Mutex // serializes chat turns, and so their LLM/embedding calls
	state      domain.SessionState
	meta       domain.SessionMetadata
	schedule   domain.ConsolidationSchedule
	sessionID  string
	userCounts map[string]int
	lastTrace  reconstruct.Trace
}

// New acquires the exclusive lock on store's base path, loads (or
// initializes) session metadata and the consolidation schedule, and
// returns a Coordinator in state Running. Call Close to release the
// lock and flush final metadata.
func New(store *fsstore.Store, recon *reconstruct.Pipeline, mem *memory.Engine, cons *consolidation.Engine, working *tiers.WorkingManager, profiles *tiers.ProfileManager, llm llmport.Client, consolidationFrequency int, logger *zap.Logger) (*Coordinator, error) {
	if err := store.Init(); err != nil {
		return nil, fmt.Errorf("session: init store: %w", err)
	}
	if err := store.AcquireLock(); err != nil {
		return nil, err
	}

	now := time.Now()
	meta, err := loadMetadata(store)
	if err != nil {
		_ = store.ReleaseLock()
		return nil, fmt.Errorf("session: load metadata: %w", err)
	}
	schedule, err := consolidation.LoadSchedule(store, now)
	if err != nil {
		_ = store.ReleaseLock()
		return nil, fmt.Errorf("session: load schedule: %w", err)
	}

	if consolidationFrequency <= 0 {
		consolidationFrequency = 10
	}

	c := &Coordinator{
		store:                  store,
		recon:                  recon,
		mem:                    mem,
		consolidation:          cons,
		working:                working,
		profiles:               profiles,
		llm:                    llm,
		logger:                 logger,
		consolidationFrequency: consolidationFrequency,
		state:                  domain.StateInitialized,
		meta:                   meta,
		schedule:               schedule,
		sessionID:              uuid.NewString(),
		userCounts:             make(map[string]int),
	}

	if err := transition(c.state, domain.StateRunning); err != nil {
		_ = store.ReleaseLock()
		return nil, err
	}
	c.state = domain.StateRunning
	c.meta.Sessions = append(c.meta.Sessions, domain.SessionRecord{SessionID: c.sessionID, Started: now})

	return c, nil
}

// Chat runs the full nine-step turn: reconstruct context, prompt the
// LLM, parse and apply its structured response, update counters and
// trigger consolidation where due, then return the answer field.
func (c *Coordinator) Chat(ctx context.Context, userID, location, userInput string, at time.Time) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != domain.StateRunning {
		return "", fmt.Errorf("session: chat called in state %s", c.state)
	}

	if err := c.profiles.EnsureStub(userID, at); err != nil && c.logger != nil {
		c.logger.Warn("ensure profile stub failed", zap.Error(err))
	}

	// Step 1: reconstruct context.
	contextBlock, trace, err := c.recon.Reconstruct(ctx, userID, userInput, location, defaultFocusLevel)
	if err != nil {
		return "", fmt.Errorf("session: reconstruct: %w", err)
	}
	c.lastTrace = trace
	c.meta.TotalReconstructions++

	// Step 2+3: compose prompt, call the LLM port. Chat holds c.mu for the
	// whole turn, so a session makes one turn's LLM/embedding calls at a time.
	userPrompt := contextBlock + "\n\n[User Input]\n" + userInput
	raw, err := c.llm.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("session: generate: %w", err)
	}

	// Step 4: structured response handler.
	resp := responsehandler.Parse(raw)

	// Step 5+ capture: writes verbatim/note, applies memory_actions,
	// maybe anchors, rewrites current_context.md.
	result, err := c.mem.CaptureExchange(ctx, userID, location, userInput, resp.Answer, resp, at)
	if err != nil {
		return "", fmt.Errorf("session: capture exchange: %w", err)
	}
	c.meta.TotalMemories += result.AppliedCount

	// Step 6: counters, daily consolidation on the configured cadence.
	c.meta.TotalInteractions++
	c.userCounts[userID]++
	if n := len(c.meta.Sessions); n > 0 {
		c.meta.Sessions[n-1].Interactions++
	}
	if c.consolidationFrequency > 0 && c.meta.TotalInteractions%c.consolidationFrequency == 0 {
		if err := c.runConsolidation(ctx, domain.ModeDaily, at); err != nil && c.logger != nil {
			c.logger.Warn("scheduled consolidation failed", zap.Error(err))
		}
	}
	if due := consolidation.Due(c.schedule, at); due != "" && due != domain.ModeDaily {
		if c.queue != nil {
			if err := c.enqueueConsolidation(ctx, due); err != nil && c.logger != nil {
				c.logger.Warn("enqueue consolidation failed", zap.Error(err), zap.String("mode", string(due)))
			}
		} else if err := c.runConsolidation(ctx, due, at); err != nil && c.logger != nil {
			c.logger.Warn("due consolidation failed", zap.Error(err), zap.String("mode", string(due)))
		}
	}

	// Step 7: profile threshold.
	if c.profiles.ShouldGenerate(c.userCounts[userID]) {
		if _, err := c.consolidation.GenerateProfile(ctx, userID, c.userCounts[userID], at); err != nil && c.logger != nil {
			c.logger.Warn("profile generation failed", zap.Error(err))
		}
	}

	// Step 8: persist session metadata.
	if err := c.persistMetadata(); err != nil {
		return "", fmt.Errorf("session: persist metadata: %w", err)
	}

	// Step 9: return the answer.
	return resp.Answer, nil
}

// defaultFocusLevel is the focus level chat() reconstructs at absent an
// explicit caller override; the tool surface's reconstruct_context
// operation lets a caller pick any level directly.
const defaultFocusLevel = 2

func (c *Coordinator) runConsolidation(ctx context.Context, mode domain.ConsolidationMode, at time.Time) error {
	prev := c.state
	if err := transition(prev, domain.StateConsolidating); err != nil {
		return err
	}
	c.state = domain.StateConsolidating
	defer func() { c.state = domain.StateRunning }()

	if _, err := c.consolidation.Run(ctx, mode, at); err != nil {
		return err
	}
	c.schedule = consolidation.Advance(c.schedule, mode, at)
	return consolidation.SaveSchedule(c.store, c.schedule)
}

// SetTaskQueue attaches a background task queue. Once set, weekly and
// monthly consolidation runs are enqueued instead of running inline on
// the chat turn that discovers they're due; daily consolidation always
// stays inline since it's what consolidationFrequency is tuned around.
func (c *Coordinator) SetTaskQueue(q *taskqueue.Queue) {
	c.queue = q
}

func (c *Coordinator) enqueueConsolidation(ctx context.Context, mode domain.ConsolidationMode) error {
	payload, err := json.Marshal(struct {
		Mode domain.ConsolidationMode `json:"mode"`
	}{Mode: mode})
	if err != nil {
		return fmt.Errorf("session: marshal consolidation task: %w", err)
	}
	return c.queue.Enqueue(ctx, taskqueue.Task{
		ID:         uuid.NewString(),
		Kind:       "consolidation",
		Payload:    payload,
		EnqueuedAt: time.Now(),
	})
}

// LastTrace exposes the most recent reconstruction's trace for the
// external /trace observability surface.
func (c *Coordinator) LastTrace() reconstruct.Trace {
	return c.lastTrace
}

// Close transitions to Closed, flushes session metadata one last time,
// and releases the base-path lock.
func (c *Coordinator) Close() error {
	if err := transition(c.state, domain.StateClosed); err != nil {
		return err
	}
	c.state = domain.StateClosed

	now := time.Now()
	if n := len(c.meta.Sessions); n > 0 {
		c.meta.Sessions[n-1].Ended = &now
	}
	if err := c.persistMetadata(); err != nil {
		_ = c.store.ReleaseLock()
		return err
	}
	return c.store.ReleaseLock()
}

func loadMetadata(store *fsstore.Store) (domain.SessionMetadata, error) {
	data, err := store.ReadFile(store.SessionMetadataPath())
	if err != nil {
		return domain.SessionMetadata{}, err
	}
	if len(data) == 0 {
		return domain.SessionMetadata{}, nil
	}
	var meta domain.SessionMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.SessionMetadata{}, fmt.Errorf("session: parse metadata: %w", err)
	}
	return meta, nil
}

func (c *Coordinator) persistMetadata() error {
	data, err := json.MarshalIndent(c.meta, "", "  ")
	if err != nil {
		return err
	}
	return c.store.WriteFile(c.store.SessionMetadataPath(), data)
}
