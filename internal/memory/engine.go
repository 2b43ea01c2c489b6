// Package memory is the engine's write/read hub: it ties the filesystem
// tiers, the emotion calculator, the anchor service, and the vector
// index together into the operations the session coordinator and the
// tool surface call.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"memoria/internal/anchor"
	"memoria/internal/domain"
	"memoria/internal/embedport"
	"memoria/internal/emotion"
	"memoria/internal/fsstore"
	"memoria/internal/ids"
	"memoria/internal/responsehandler"
	"memoria/internal/tiers"
	"memoria/internal/vectorindex"
)

// ErrValidationRejected is returned by RememberFact when
// responsehandler.ValidateAction rejects the action. Rejection is a
// normal outcome, not a failure: callers map it to a null id rather
// than an error response.
var ErrValidationRejected = errors.New("memory: remember_fact rejected by validation")

// Engine owns every dependency a memory operation needs.
type Engine struct {
	store    *fsstore.Store
	index    vectorindex.Index
	embed    embedport.Client
	anchors  *anchor.Service
	semantic *tiers.SemanticManager
	library  *tiers.LibraryManager
	working  *tiers.WorkingManager
	episodic *tiers.EpisodicManager
	profiles *tiers.ProfileManager
	logger   *zap.Logger
}

func New(store *fsstore.Store, index vectorindex.Index, embed embedport.Client, anchors *anchor.Service, semantic *tiers.SemanticManager, library *tiers.LibraryManager, working *tiers.WorkingManager, episodic *tiers.EpisodicManager, profiles *tiers.ProfileManager, logger *zap.Logger) *Engine {
	return &Engine{store: store, index: index, embed: embed, anchors: anchors, semantic: semantic, library: library, working: working, episodic: episodic, profiles: profiles, logger: logger}
}

// ExchangeResult summarizes everything one turn's capture produced, for
// the session coordinator's counters.
type ExchangeResult struct {
	VerbatimID    string
	NoteID        string
	Resonance     domain.EmotionResonance
	Anchored      bool
	AppliedCount  int
	RejectedCount int
}

// CaptureExchange is the write-side of one chat turn: it persists the
// verbatim record, the experiential note, applies validated memory
// actions, maybe creates a temporal anchor, and indexes everything that
// needs to be searchable later.
func (e *Engine) CaptureExchange(ctx context.Context, userID, location, query, answer string, resp domain.StructuredResponse, at time.Time) (ExchangeResult, error) {
	var result ExchangeResult

	verbatim := domain.Verbatim{
		ID:            ids.New("verbatim", at),
		UserID:        userID,
		Location:      location,
		Timestamp:     at,
		UserQuery:     query,
		AgentResponse: answer,
	}
	if err := e.writeVerbatim(verbatim); err != nil {
		return result, fmt.Errorf("memory: write verbatim: %w", err)
	}
	result.VerbatimID = verbatim.ID

	resonance := emotion.Calculate(resp.EmotionalResonance.Importance, resp.EmotionalResonance.Alignment, resp.EmotionalResonance.Reason)
	result.Resonance = resonance

	note := domain.ExperientialNote{
		ID:         ids.New("note", at),
		Timestamp:  at,
		UserID:     userID,
		Content:    resp.ExperientialNote,
		Importance: resonance.Importance,
		Alignment:  resonance.Alignment,
		Intensity:  resonance.Intensity,
		Valence:    resonance.Valence,
		Reason:     resonance.Reason,
	}
	handled := responsehandler.ValidActions(resp)
	for _, a := range handled {
		if a.Action == domain.ActionLink {
			note.Links = append(note.Links, a.LinksTo...)
		}
		if a.ContentKind != "" {
			note.ContentKind = a.ContentKind
		}
	}
	if err := e.writeNote(note); err != nil {
		return result, fmt.Errorf("memory: write note: %w", err)
	}
	result.NoteID = note.ID

	if err := e.indexNote(ctx, note); err != nil {
		if e.logger != nil {
			e.logger.Warn("index note failed", zap.Error(err))
		}
	}

	if e.anchors != nil {
		marker, err := e.anchors.MaybeAnchor(note.ID, note.Content, resonance, at, note.ContentKind)
		if err != nil {
			return result, fmt.Errorf("memory: anchor: %w", err)
		}
		result.Anchored = marker != nil
	}

	for _, a := range handled {
		if err := e.applyAction(ctx, userID, a, at); err != nil {
			if e.logger != nil {
				e.logger.Warn("apply memory action failed", zap.Error(err), zap.String("action", string(a.Action)))
			}
			continue
		}
		result.AppliedCount++
	}
	result.RejectedCount = len(resp.MemoryActions) - len(handled)

	if err := e.working.WriteCurrentContext(tiers.CurrentContextView{
		LatestQuery:   query,
		EmotionalTone: resonance.Valence,
	}); err != nil {
		if e.logger != nil {
			e.logger.Warn("update current context failed", zap.Error(err))
		}
	}

	for _, q := range resp.UnresolvedQuestions {
		if _, err := e.working.RaiseQuestion(q, query, at); err != nil && e.logger != nil {
			e.logger.Warn("raise question failed", zap.Error(err))
		}
	}

	return result, nil
}

// applyAction executes one validated memory action: "remember" appends
// its content as a semantic insight and indexes it; "link" is folded
// into the note's Links above and needs no further write.
func (e *Engine) applyAction(ctx context.Context, userID string, a domain.MemoryAction, at time.Time) error {
	switch a.Action {
	case domain.ActionRemember:
		confidence := a.Importance
		if a.Alignment != 0 {
			confidence = (a.Importance + (a.Alignment+1)/2) / 2
		}
		insight, err := e.semantic.AppendInsight(a.Content, confidence, a.LinksTo, a.Emotion, at)
		if err != nil {
			return err
		}
		return e.indexInsight(ctx, insight)
	case domain.ActionLink:
		return nil
	default:
		return fmt.Errorf("memory: unsupported action %q", a.Action)
	}
}

func (e *Engine) writeVerbatim(v domain.Verbatim) error {
	data := fmt.Sprintf("# Verbatim Exchange\n\n**ID**: `%s`\n**User**: %s\n**Location**: %s\n**Timestamp**: %s\n\n## Query\n%s\n\n## Response\n%s\n",
		v.ID, v.UserID, v.Location, v.Timestamp.UTC().Format(time.RFC3339), v.UserQuery, v.AgentResponse)
	return e.store.WriteFile(e.store.VerbatimPath(v.UserID, v.Timestamp, v.ID), []byte(data))
}

func (e *Engine) writeNote(n domain.ExperientialNote) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Experiential Note\n\n**ID**: `%s`\n**Timestamp**: %s\n**Importance**: %.3f\n**Alignment**: %+.3f\n**Intensity**: %.3f\n**Valence**: %s\n", n.ID, n.Timestamp.UTC().Format(time.RFC3339), n.Importance, n.Alignment, n.Intensity, n.Valence)
	if n.ContentKind != "" {
		fmt.Fprintf(&b, "**Content Kind**: %s\n", n.ContentKind)
	}
	if len(n.Links) > 0 {
		fmt.Fprintf(&b, "**Links**: %s\n", strings.Join(n.Links, ", "))
	}
	fmt.Fprintf(&b, "\n%s\n\n**Reason**: %s\n", n.Content, n.Reason)
	return e.store.WriteFile(e.store.NotePath(n.Timestamp, n.ID), []byte(b.String()))
}

func (e *Engine) indexNote(ctx context.Context, n domain.ExperientialNote) error {
	vec, err := e.embed.Embed(ctx, n.Content)
	if err != nil {
		return err
	}
	return e.index.Upsert(ctx, vectorindex.Entry{
		RecordID:  n.ID,
		Tier:      "note",
		Content:   n.Content,
		Embedding: vec,
		Timestamp: n.Timestamp,
		Intensity: n.Intensity,
		Valence:   n.Valence,
		Links:     n.Links,
	})
}

func (e *Engine) indexInsight(ctx context.Context, s domain.SemanticInsight) error {
	vec, err := e.embed.Embed(ctx, s.Content)
	if err != nil {
		return err
	}
	return e.index.Upsert(ctx, vectorindex.Entry{
		RecordID:  s.ID,
		Tier:      "semantic",
		Content:   s.Content,
		Embedding: vec,
		Timestamp: s.Timestamp,
		Links:     s.EvidenceRefs,
	})
}

// RememberFactRequest carries the full remember_fact tool contract: a
// direct, out-of-band write not tied to a chat turn's structured
// response, but scored for emotional resonance exactly like one.
type RememberFactRequest struct {
	Content    string
	Importance float64
	Alignment  float64
	Reason     string
	Emotion    string
	Source     domain.MemoryActionSource
	Evidence   string
	LinksTo    []string
}

// RememberFact is the tool-surface entry point for remember_fact. It
// validates the action exactly like a chat-turn memory action, computes
// the same emotion resonance experiential notes get, and anchors the
// fact when that resonance crosses the threshold.
func (e *Engine) RememberFact(ctx context.Context, req RememberFactRequest, at time.Time) (domain.SemanticInsight, error) {
	action := domain.MemoryAction{
		Action:     domain.ActionRemember,
		Content:    req.Content,
		Importance: req.Importance,
		Alignment:  req.Alignment,
		Reason:     req.Reason,
		Emotion:    req.Emotion,
		Source:     req.Source,
		Evidence:   req.Evidence,
		LinksTo:    req.LinksTo,
	}
	if ok, reason := responsehandler.ValidateAction(action); !ok {
		if e.logger != nil {
			e.logger.Info("remember_fact rejected", zap.String("reason", reason))
		}
		return domain.SemanticInsight{}, ErrValidationRejected
	}

	resonance := emotion.Calculate(req.Importance, req.Alignment, req.Reason)

	confidence := req.Importance
	if req.Alignment != 0 {
		confidence = (req.Importance + (req.Alignment+1)/2) / 2
	}

	insight, err := e.semantic.AppendInsight(req.Content, confidence, req.LinksTo, req.Emotion, at)
	if err != nil {
		return domain.SemanticInsight{}, err
	}
	if err := e.indexInsight(ctx, insight); err != nil && e.logger != nil {
		e.logger.Warn("index remembered fact failed", zap.Error(err))
	}

	if e.anchors != nil {
		if _, err := e.anchors.MaybeAnchor(insight.ID, req.Content, resonance, at, ""); err != nil {
			return domain.SemanticInsight{}, fmt.Errorf("memory: anchor remembered fact: %w", err)
		}
	}

	return insight, nil
}

// SearchMemories runs a semantic search over notes and semantic
// insights, the read-side of the tool surface's search_memories.
func (e *Engine) SearchMemories(ctx context.Context, query string, k int) ([]vectorindex.Match, error) {
	vec, err := e.embed.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	notes, err := e.index.Search(ctx, vec, "note", k)
	if err != nil {
		return nil, err
	}
	insights, err := e.index.Search(ctx, vec, "semantic", k)
	if err != nil {
		return nil, err
	}
	return append(notes, insights...), nil
}

// SearchLibrary is the tool surface's search_library: it reads from the
// filesystem, not the index, since library importance re-ranks on every
// access rather than relying on a stale cached score.
func (e *Engine) SearchLibrary(query string) ([]domain.LibraryDocument, error) {
	return e.library.Search(query)
}

// CaptureDocument is the tool surface's capture_document: store, then
// index so it becomes reachable from reconstruction and search.
func (e *Engine) CaptureDocument(ctx context.Context, sourcePath, contentType, content string, tags []string, at time.Time) (domain.LibraryDocument, error) {
	doc, err := e.library.Capture(sourcePath, contentType, content, tags, at)
	if err != nil {
		return domain.LibraryDocument{}, err
	}
	vec, err := e.embed.Embed(ctx, content)
	if err != nil {
		return doc, nil
	}
	_ = e.index.Upsert(ctx, vectorindex.Entry{
		RecordID:  doc.DocID,
		Tier:      "library",
		Content:   doc.Content,
		Embedding: vec,
		Timestamp: doc.CapturedAt,
	})
	return doc, nil
}
