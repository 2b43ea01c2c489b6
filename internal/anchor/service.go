// Package anchor implements the temporal anchor service: when a newly
// written experiential note or remembered fact crosses the emotion
// anchor threshold, it is marked as a "before/after" moment in
// experiential history.
package anchor

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"memoria/internal/domain"
	"memoria/internal/fsstore"
	"memoria/internal/ids"
)

const keyMomentsHeader = `# Key Moments

**Purpose**: Track significant moments that mark turning points in development

**Threshold**: Emotion intensity > %.1f

These are the temporal anchors - "before/after" divisions in experiential history.

---
`

const emotionalSignificanceHeader = `# Emotional Significance

**Last Updated**: %s
**Purpose**: Track what is emotionally significant

This file tracks chronological anchors, learning rate modulators, and value-aligned significance.

---

## Chronological Anchors (Before/After Moments)

Temporal anchors mark turning points where understanding shifts fundamentally.

`

const chronAnchorsMarker = "Temporal anchors mark turning points where understanding shifts fundamentally.\n"

// Service appends anchors to episodic/key_moments.md, episodic/history.json,
// core/emotional_significance.md, and — when content_kind says so — the
// key_discoveries.md / key_experiments.md files.
type Service struct {
	store  *fsstore.Store
	logger *zap.Logger
}

func New(store *fsstore.Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// HistoryEntry is one row of episodic/history.json.
type HistoryEntry struct {
	MemoryID  string    `json:"memory_id"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Intensity float64   `json:"intensity"`
}

// MaybeAnchor creates a temporal anchor if resonance.Intensity crosses
// the threshold (invariant I2: an episodic marker exists iff intensity >
// 0.7). Returns the created marker, or nil if no anchor was warranted.
func (s *Service) MaybeAnchor(memoryID string, content string, resonance domain.EmotionResonance, at time.Time, contentKind string) (*domain.EpisodicMarker, error) {
	if resonance.Intensity <= domain.AnchorThreshold {
		return nil, nil
	}

	if s.logger != nil {
		s.logger.Info("creating temporal anchor", zap.String("memory_id", memoryID), zap.Float64("intensity", resonance.Intensity))
	}

	if err := s.appendKeyMoment(memoryID, content, resonance, at); err != nil {
		return nil, err
	}
	if err := s.appendHistory(memoryID, at, resonance); err != nil {
		return nil, err
	}
	if err := s.updateEmotionalSignificance(memoryID, content, resonance, at); err != nil {
		return nil, err
	}

	switch strings.ToLower(strings.TrimSpace(contentKind)) {
	case "discovery":
		if err := s.appendKind("key_discoveries.md", "Discoveries", memoryID, content, resonance, at); err != nil {
			return nil, err
		}
	case "experiment":
		if err := s.appendKind("key_experiments.md", "Experiments", memoryID, content, resonance, at); err != nil {
			return nil, err
		}
	}

	marker := &domain.EpisodicMarker{
		ID:        ids.New("anchor", at),
		MemoryRef: memoryID,
		Intensity: resonance.Intensity,
		Valence:   resonance.Valence,
		Summary:   firstN(content, 60),
		Timestamp: at,
	}
	return marker, nil
}

func (s *Service) appendKeyMoment(memoryID, content string, r domain.EmotionResonance, at time.Time) error {
	path := s.store.EpisodicPath("key_moments.md")
	header := fmt.Sprintf(keyMomentsHeader, domain.AnchorThreshold)
	entry := fmt.Sprintf(`
---

## Key Moment: %s

**Memory ID**: `+"`%s`"+`
**Date**: %s
**Emotion Intensity**: %.2f (High)
**Valence**: %s

### What Happened
%s

### Why Significant
%s

This marks a temporal anchor - a "before/after" moment in development.

`, firstN(content, 60), memoryID, at.UTC().Format("2006-01-02 15:04:05"), r.Intensity, strings.Title(r.Valence), content, r.Reason)

	return s.store.AppendSection(path, header, []byte(entry))
}

func (s *Service) appendKind(filename, title, memoryID, content string, r domain.EmotionResonance, at time.Time) error {
	path := s.store.EpisodicPath(filename)
	header := fmt.Sprintf("# Key %s\n\n---\n", title)
	entry := fmt.Sprintf(`
---

## %s

**Memory ID**: `+"`%s`"+`
**Date**: %s
**Emotion Intensity**: %.2f

%s

`, firstN(content, 60), memoryID, at.UTC().Format("2006-01-02 15:04:05"), r.Intensity, content)
	return s.store.AppendSection(path, header, []byte(entry))
}

func (s *Service) appendHistory(memoryID string, at time.Time, r domain.EmotionResonance) error {
	path := s.store.EpisodicPath("history.json")
	data, err := s.store.ReadFile(path)
	if err != nil {
		return err
	}
	var entries []HistoryEntry
	if len(data) > 0 {
		if err := json.Unmarshal(data, &entries); err != nil {
			return fmt.Errorf("anchor: parse history.json: %w", err)
		}
	}
	entries = append(entries, HistoryEntry{
		MemoryID:  memoryID,
		Timestamp: at,
		Type:      "anchor",
		Intensity: r.Intensity,
	})
	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return s.store.WriteFile(path, out)
}

func (s *Service) updateEmotionalSignificance(memoryID, content string, r domain.EmotionResonance, at time.Time) error {
	path := s.store.CorePath("emotional_significance")
	existing, err := s.store.ReadFile(path)
	if err != nil {
		return err
	}
	text := string(existing)
	if text == "" {
		text = fmt.Sprintf(emotionalSignificanceHeader, at.UTC().Format("2006-01-02"))
	}

	entry := fmt.Sprintf(`
### %s: %s

**Intensity**: %.2f (High)
**Valence**: %s (Alignment: %+.2f)

%s

**Memory ID**: `+"`%s`"+`

`, at.UTC().Format("2006-01-02"), firstN(content, 60), r.Intensity, strings.Title(r.Valence), r.Alignment, r.Reason, memoryID)

	var updated string
	if idx := strings.Index(text, chronAnchorsMarker); idx >= 0 {
		insertAt := idx + len(chronAnchorsMarker)
		updated = text[:insertAt] + entry + text[insertAt:]
	} else {
		updated = text + entry
	}
	return s.store.WriteFile(path, []byte(updated))
}

func firstN(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}
