package tiers

import (
	"encoding/json"
	"time"

	"memoria/internal/anchor"
	"memoria/internal/fsstore"
)

// EpisodicManager owns key_moments, key_discoveries, key_experiments, and
// history.json. Markers are created by the anchor service; this manager
// offers the read-side operations over them.
type EpisodicManager struct {
	store *fsstore.Store
}

func NewEpisodicManager(store *fsstore.Store) *EpisodicManager {
	return &EpisodicManager{store: store}
}

// ListSince returns history.json entries at or after since.
func (e *EpisodicManager) ListSince(since time.Time) ([]anchor.HistoryEntry, error) {
	data, err := e.store.ReadFile(e.store.EpisodicPath("history.json"))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var entries []anchor.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	out := entries[:0]
	for _, e := range entries {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Count returns the total number of episodic markers ever recorded.
func (e *EpisodicManager) Count() (int, error) {
	data, err := e.store.ReadFile(e.store.EpisodicPath("history.json"))
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, nil
	}
	var entries []anchor.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}
