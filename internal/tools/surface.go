// Package tools exposes the memory engine's six callable operations as
// a single service the HTTP layer (or any other caller, such as a
// ReAct-style client embedded directly in this process) can invoke
// without reaching into internal/memory, internal/reconstruct, or
// internal/consolidation directly.
package tools

import (
	"context"
	"fmt"
	"time"

	"memoria/internal/consolidation"
	"memoria/internal/domain"
	"memoria/internal/memory"
	"memoria/internal/reconstruct"
	"memoria/internal/vectorindex"
)

// Surface wraps the engine and reconstruction/consolidation services
// behind the fixed six-operation tool contract.
type Surface struct {
	mem   *memory.Engine
	recon *reconstruct.Pipeline
	cons  *consolidation.Engine
}

func New(mem *memory.Engine, recon *reconstruct.Pipeline, cons *consolidation.Engine) *Surface {
	return &Surface{mem: mem, recon: recon, cons: cons}
}

// RememberFactRequest is the remember_fact tool call's input, matching
// the tool contract's full field set: a remembered fact is scored for
// emotional resonance exactly like an experiential note is.
type RememberFactRequest struct {
	Content    string                    `json:"content" binding:"required"`
	Importance float64                   `json:"importance" binding:"required"`
	Alignment  float64                   `json:"alignment_with_values" binding:"required"`
	Reason     string                    `json:"reason" binding:"required"`
	Emotion    string                    `json:"emotion"`
	Source     domain.MemoryActionSource `json:"source" binding:"required"`
	Evidence   string                    `json:"evidence"`
	LinksTo    []string                  `json:"links_to"`
}

// RememberFact writes a fact directly to semantic memory, independent
// of any chat turn. It returns memory.ErrValidationRejected when
// validation rejects the fact — a normal outcome, not a failure — and
// callers must map that to an absent id rather than an error response.
func (s *Surface) RememberFact(ctx context.Context, req RememberFactRequest, at time.Time) (domain.SemanticInsight, error) {
	return s.mem.RememberFact(ctx, memory.RememberFactRequest{
		Content:    req.Content,
		Importance: req.Importance,
		Alignment:  req.Alignment,
		Reason:     req.Reason,
		Emotion:    req.Emotion,
		Source:     req.Source,
		Evidence:   req.Evidence,
		LinksTo:    req.LinksTo,
	}, at)
}

// SearchMemoriesRequest is the search_memories tool call's input.
type SearchMemoriesRequest struct {
	Query string `json:"query" binding:"required"`
	K     int    `json:"k"`
}

// SearchMemories runs a semantic search across notes and insights.
func (s *Surface) SearchMemories(ctx context.Context, req SearchMemoriesRequest) ([]vectorindex.Match, error) {
	k := req.K
	if k <= 0 {
		k = 5
	}
	return s.mem.SearchMemories(ctx, req.Query, k)
}

// SearchLibraryRequest is the search_library tool call's input.
type SearchLibraryRequest struct {
	Query string `json:"query" binding:"required"`
}

// SearchLibrary searches captured library documents.
func (s *Surface) SearchLibrary(req SearchLibraryRequest) ([]domain.LibraryDocument, error) {
	return s.mem.SearchLibrary(req.Query)
}

// ReflectOnRequest is the reflect_on tool call's input.
type ReflectOnRequest struct {
	Topic string                 `json:"topic" binding:"required"`
	Depth domain.ReflectionDepth `json:"depth"`
}

// ReflectOn asks the consolidation engine to reflect on a topic across
// accumulated memories at the requested depth.
func (s *Surface) ReflectOn(ctx context.Context, req ReflectOnRequest, at time.Time) (domain.Reflection, error) {
	depth := req.Depth
	if depth == "" {
		depth = domain.DepthShallow
	}
	return s.cons.ReflectOn(ctx, req.Topic, depth, at)
}

// CaptureDocumentRequest is the capture_document tool call's input.
type CaptureDocumentRequest struct {
	SourcePath  string   `json:"source_path" binding:"required"`
	ContentType string   `json:"content_type" binding:"required"`
	Content     string   `json:"content" binding:"required"`
	Tags        []string `json:"tags"`
}

// CaptureDocument stores and indexes one library document.
func (s *Surface) CaptureDocument(ctx context.Context, req CaptureDocumentRequest, at time.Time) (domain.LibraryDocument, error) {
	return s.mem.CaptureDocument(ctx, req.SourcePath, req.ContentType, req.Content, req.Tags, at)
}

// ReconstructContextRequest is the reconstruct_context tool call's
// input — the one tool operation that exposes focus_level directly,
// since a caller outside a chat turn may want a narrower or wider
// reconstruction than the session coordinator's default.
type ReconstructContextRequest struct {
	UserID     string `json:"user_id" binding:"required"`
	Query      string `json:"query" binding:"required"`
	Location   string `json:"location"`
	FocusLevel int    `json:"focus_level"`
}

// ReconstructContextResponse carries both the assembled context and the
// retrieval trace, so a caller can inspect what fed the context without
// a separate /trace round trip.
type ReconstructContextResponse struct {
	Context string             `json:"context"`
	Trace   reconstruct.Trace `json:"trace"`
}

// ReconstructContext runs the nine-step pipeline directly.
func (s *Surface) ReconstructContext(ctx context.Context, req ReconstructContextRequest) (ReconstructContextResponse, error) {
	if req.FocusLevel < 0 || req.FocusLevel > 5 {
		return ReconstructContextResponse{}, fmt.Errorf("tools: focus_level %d out of range [0,5]", req.FocusLevel)
	}
	text, trace, err := s.recon.Reconstruct(ctx, req.UserID, req.Query, req.Location, req.FocusLevel)
	if err != nil {
		return ReconstructContextResponse{}, err
	}
	return ReconstructContextResponse{Context: text, Trace: trace}, nil
}
