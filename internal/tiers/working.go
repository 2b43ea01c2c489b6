// Package tiers implements the memory tier managers: Working, Episodic,
// Semantic, Library, and Profile. Each owns a slice of the filesystem
// store and exposes tier-specific operations.
package tiers

import (
	"fmt"
	"strings"
	"time"

	"memoria/internal/domain"
	"memoria/internal/fsstore"
	"memoria/internal/ids"
)

// WorkingManager maintains the five working-memory files.
type WorkingManager struct {
	store *fsstore.Store
	cap   int
}

// NewWorkingManager builds a manager bounded at capEntries active
// entries per file (default 10).
func NewWorkingManager(store *fsstore.Store, capEntries int) *WorkingManager {
	if capEntries <= 0 {
		capEntries = 10
	}
	return &WorkingManager{store: store, cap: capEntries}
}

// CurrentContextView is the data rewritten into current_context.md on
// every interaction.
type CurrentContextView struct {
	LatestQuery   string
	RecentHistory []string
	ActiveTasks   []string
	OpenQuestions []string
	EmotionalTone string
}

// WriteCurrentContext rewrites current_context.md in full (it is the one
// file this manager overwrites rather than appends to).
func (w *WorkingManager) WriteCurrentContext(v CurrentContextView) error {
	var b strings.Builder
	b.WriteString("# Current Context\n\n")
	b.WriteString("## Latest Query\n" + v.LatestQuery + "\n\n")
	if len(v.RecentHistory) > 0 {
		b.WriteString("## Recent History\n")
		for _, h := range v.RecentHistory {
			b.WriteString("- " + h + "\n")
		}
		b.WriteString("\n")
	}
	if len(v.ActiveTasks) > 0 {
		b.WriteString("## Active Tasks\n")
		for _, t := range v.ActiveTasks {
			b.WriteString("- " + t + "\n")
		}
		b.WriteString("\n")
	}
	if len(v.OpenQuestions) > 0 {
		b.WriteString("## Open Questions\n")
		for _, q := range v.OpenQuestions {
			b.WriteString("- " + q + "\n")
		}
		b.WriteString("\n")
	}
	if v.EmotionalTone != "" {
		b.WriteString("## Emotional Tone\n" + v.EmotionalTone + "\n")
	}
	return w.store.WriteFile(w.store.WorkingPath("current_context.md"), []byte(b.String()))
}

// ReadCurrentContext returns the raw current_context.md content, or ""
// if it has not been written yet.
func (w *WorkingManager) ReadCurrentContext() (string, error) {
	data, err := w.store.ReadFile(w.store.WorkingPath("current_context.md"))
	return string(data), err
}

// AddTask appends an active task, FIFO-pruning current_tasks.md down to
// the configured cap.
func (w *WorkingManager) AddTask(topic, text string, at time.Time) error {
	return w.appendBoundedEntry("current_tasks.md", "# Active Tasks\n\n", topic, text, at)
}

// AddReference appends to current_references.md with the same bound.
func (w *WorkingManager) AddReference(topic, text string, at time.Time) error {
	return w.appendBoundedEntry("current_references.md", "# Current References\n\n", topic, text, at)
}

func (w *WorkingManager) appendBoundedEntry(filename, header, topic, text string, at time.Time) error {
	path := w.store.WorkingPath(filename)
	entries, err := w.readEntries(path)
	if err != nil {
		return err
	}
	entries = append(entries, domain.WorkingEntry{Topic: topic, Text: text, Created: at, LastTouched: at})
	if len(entries) > w.cap {
		entries = entries[len(entries)-w.cap:]
	}
	return w.writeEntries(path, header, entries)
}

func (w *WorkingManager) readEntries(path string) ([]domain.WorkingEntry, error) {
	data, err := w.store.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseWorkingEntries(string(data)), nil
}

func (w *WorkingManager) writeEntries(path, header string, entries []domain.WorkingEntry) error {
	var b strings.Builder
	b.WriteString(header)
	for _, e := range entries {
		b.WriteString(fmt.Sprintf("## %s\n**Created**: %s\n**Last Touched**: %s\n\n%s\n\n---\n\n",
			e.Topic, e.Created.UTC().Format(time.RFC3339), e.LastTouched.UTC().Format(time.RFC3339), e.Text))
	}
	return w.store.WriteFile(path, []byte(b.String()))
}

// RaiseQuestion appends an entry to unresolved.md.
func (w *WorkingManager) RaiseQuestion(question, context string, at time.Time) (domain.UnresolvedQuestion, error) {
	q := domain.UnresolvedQuestion{
		ID:       ids.New("question", at),
		Question: question,
		RaisedAt: at,
		Context:  context,
	}
	entry := fmt.Sprintf("## %s\n**ID**: `%s`\n**Raised**: %s\n**Context**: %s\n\n---\n\n",
		q.Question, q.ID, q.RaisedAt.UTC().Format(time.RFC3339), q.Context)
	path := w.store.WorkingPath("unresolved.md")
	if err := w.store.AppendSection(path, "# Unresolved Questions\n\n", []byte(entry)); err != nil {
		return domain.UnresolvedQuestion{}, err
	}
	return q, nil
}

// ResolveQuestion appends an entry to resolved.md with a resolution
// note. It does not attempt to remove the original entry from
// unresolved.md — that file remains an append-only raise-log, and
// resolution status is tracked by presence in resolved.md, matching the
// append-only posture the other tiers use.
func (w *WorkingManager) ResolveQuestion(q domain.UnresolvedQuestion, resolution string, at time.Time) error {
	q.Resolution = resolution
	q.ResolvedAt = &at
	entry := fmt.Sprintf("## %s\n**ID**: `%s`\n**Raised**: %s\n**Resolved**: %s\n**Resolution**: %s\n\n---\n\n",
		q.Question, q.ID, q.RaisedAt.UTC().Format(time.RFC3339), at.UTC().Format(time.RFC3339), resolution)
	path := w.store.WorkingPath("resolved.md")
	return w.store.AppendSection(path, "# Resolved Questions\n\n", []byte(entry))
}

// parseWorkingEntries is a minimal reader for the "## topic" block format
// written by writeEntries, used only to re-load entries for bound
// enforcement across process restarts.
func parseWorkingEntries(content string) []domain.WorkingEntry {
	if content == "" {
		return nil
	}
	var entries []domain.WorkingEntry
	blocks := strings.Split(content, "\n---\n")
	for _, blk := range blocks {
		blk = strings.TrimSpace(blk)
		if blk == "" || !strings.HasPrefix(blk, "## ") {
			continue
		}
		lines := strings.SplitN(blk, "\n", 2)
		topic := strings.TrimPrefix(lines[0], "## ")
		var text string
		var created, touched time.Time
		if len(lines) > 1 {
			rest := lines[1]
			for _, line := range strings.Split(rest, "\n") {
				switch {
				case strings.HasPrefix(line, "**Created**: "):
					created, _ = time.Parse(time.RFC3339, strings.TrimPrefix(line, "**Created**: "))
				case strings.HasPrefix(line, "**Last Touched**: "):
					touched, _ = time.Parse(time.RFC3339, strings.TrimPrefix(line, "**Last Touched**: "))
				default:
					if strings.TrimSpace(line) != "" {
						text += line + "\n"
					}
				}
			}
		}
		entries = append(entries, domain.WorkingEntry{
			Topic:       topic,
			Text:        strings.TrimSpace(text),
			Created:     created,
			LastTouched: touched,
		})
	}
	return entries
}
