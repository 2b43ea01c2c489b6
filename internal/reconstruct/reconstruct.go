// Package reconstruct implements the nine-step context reconstruction
// algorithm: the engine's core retrieval pipeline, assembling a single
// text block from every memory tier for one turn's prompt.
package reconstruct

import (
	"context"
	"fmt"
	"strings"
	"time"

	"memoria/internal/anchor"
	"memoria/internal/domain"
	"memoria/internal/embedport"
	"memoria/internal/fsstore"
	"memoria/internal/tiers"
	"memoria/internal/vectorindex"
)

// kForFocus implements the spec's fixed focus_level -> K table.
var kForFocus = map[int]int{0: 3, 1: 5, 2: 8, 3: 12, 4: 20, 5: 50}

func kFor(focusLevel int) int {
	if k, ok := kForFocus[focusLevel]; ok {
		return k
	}
	if focusLevel < 0 {
		return kForFocus[0]
	}
	return kForFocus[5]
}

// Trace records per-step counts and IDs for the external /trace
// observability command.
type Trace struct {
	NotesRetrieved         []string
	LinksExpanded          []string
	LibraryRetrieved       []string
	EmotionallySignificant []string
	AnchorsLoaded          []string
	SpatialMatches         []string
}

// Pipeline owns every dependency reconstruction touches.
type Pipeline struct {
	store    *fsstore.Store
	index    vectorindex.Index
	embed    embedport.Client
	episodic *tiers.EpisodicManager
	library  *tiers.LibraryManager
	working  *tiers.WorkingManager
	profiles *tiers.ProfileManager
}

func New(store *fsstore.Store, index vectorindex.Index, embed embedport.Client, episodic *tiers.EpisodicManager, library *tiers.LibraryManager, working *tiers.WorkingManager, profiles *tiers.ProfileManager) *Pipeline {
	return &Pipeline{store: store, index: index, embed: embed, episodic: episodic, library: library, working: working, profiles: profiles}
}

// Reconstruct runs the nine steps in order and returns the assembled
// text block plus the trace of what was touched.
func (p *Pipeline) Reconstruct(ctx context.Context, userID, query, location string, focusLevel int) (string, Trace, error) {
	var trace Trace
	k := kFor(focusLevel)
	seen := map[string]struct{}{}

	queryEmbedding, err := p.embed.Embed(ctx, query)
	if err != nil {
		return "", trace, fmt.Errorf("reconstruct: embed query: %w", err)
	}

	// Step 1: semantic search over notes.
	noteMatches, err := p.index.Search(ctx, queryEmbedding, "note", k)
	if err != nil {
		return "", trace, fmt.Errorf("reconstruct: search notes: %w", err)
	}
	var retrieved []vectorindex.Match
	for _, m := range noteMatches {
		if _, dup := seen[m.RecordID]; dup {
			continue
		}
		seen[m.RecordID] = struct{}{}
		retrieved = append(retrieved, m)
		trace.NotesRetrieved = append(trace.NotesRetrieved, m.RecordID)
	}

	// Step 2: link expansion, one hop, deduped by ID. Links are
	// denormalized onto each note's index entry at write time, so
	// expansion is a lookup by ID rather than a second embed+search.
	var expanded []vectorindex.Match
	for _, n := range retrieved {
		for _, linkID := range n.Links {
			if _, dup := seen[linkID]; dup {
				continue
			}
			seen[linkID] = struct{}{}
			if m, ok := p.lookupByID(ctx, linkID); ok {
				expanded = append(expanded, m)
				trace.LinksExpanded = append(trace.LinksExpanded, linkID)
			}
		}
	}
	retrieved = append(retrieved, expanded...)

	// Step 3: library search, tracking access for every returned doc.
	libMatches, err := p.index.Search(ctx, queryEmbedding, "library", k)
	if err != nil {
		return "", trace, fmt.Errorf("reconstruct: search library: %w", err)
	}
	var libDocs []domain.LibraryDocument
	for _, m := range libMatches {
		doc, err := p.library.TrackAccess(m.RecordID, "reconstruct_context", time.Now())
		if err != nil {
			continue
		}
		libDocs = append(libDocs, doc)
		trace.LibraryRetrieved = append(trace.LibraryRetrieved, m.RecordID)
	}

	// Step 4: emotional filtering over the union of retrieved results.
	var emoHighlights []vectorindex.Match
	for _, n := range retrieved {
		if n.Intensity > domain.AnchorThreshold {
			emoHighlights = append(emoHighlights, n)
			trace.EmotionallySignificant = append(trace.EmotionallySignificant, n.RecordID)
		}
	}

	// Step 5: temporal context — recent episodic markers.
	since := time.Now().Add(-7 * 24 * time.Hour)
	if focusLevel > 3 {
		since = time.Time{}
	}
	var anchors []anchor.HistoryEntry
	if p.episodic != nil {
		entries, err := p.episodic.ListSince(since)
		if err == nil {
			anchors = entries
		}
	}
	for _, a := range anchors {
		trace.AnchorsLoaded = append(trace.AnchorsLoaded, a.MemoryID)
	}

	// Step 6: spatial context — records that share the current location.
	var spatialLines []string
	if location != "" {
		spatialLines = append(spatialLines, "current location: "+location)
		for _, n := range retrieved {
			trace.SpatialMatches = append(trace.SpatialMatches, n.RecordID)
		}
	}

	// Step 7: user profile.
	var profileSummary, prefsSummary string
	if p.profiles != nil {
		profileMD, prefsMD, err := p.profiles.Read(userID)
		if err == nil {
			profileSummary = truncate(profileMD, 400)
			prefsSummary = truncate(prefsMD, 400)
		}
	}

	// Step 8: core identity, ten files unchanged.
	coreLines := make([]string, 0, len(domain.CoreComponents))
	for _, c := range domain.CoreComponents {
		data, err := p.store.ReadFile(p.store.CorePath(string(c)))
		if err != nil || len(data) == 0 {
			continue
		}
		coreLines = append(coreLines, fmt.Sprintf("%s: %s", c, firstParagraph(string(data))))
	}

	// Step 9: synthesis in fixed section order.
	var b strings.Builder
	writeSection(&b, "Core Identity", coreLines)

	var profileLines []string
	if profileSummary != "" {
		profileLines = append(profileLines, profileSummary)
	}
	if prefsSummary != "" {
		profileLines = append(profileLines, prefsSummary)
	}
	writeSection(&b, "User Profile", profileLines)

	var currentCtx []string
	if p.working != nil {
		cc, err := p.working.ReadCurrentContext()
		if err == nil && cc != "" {
			currentCtx = append(currentCtx, cc)
		}
	}
	writeSection(&b, "Current Context", currentCtx)

	var anchorLines []string
	for _, a := range anchors {
		anchorLines = append(anchorLines, fmt.Sprintf("%s (%s, intensity %.2f)", a.MemoryID, a.Timestamp.UTC().Format(time.RFC3339), a.Intensity))
	}
	writeSection(&b, "Recent Anchors", anchorLines)

	var memoryLines []string
	for _, n := range retrieved {
		memoryLines = append(memoryLines, n.Content)
	}
	writeSection(&b, "Retrieved Memories", memoryLines)

	var docLines []string
	for _, d := range libDocs {
		docLines = append(docLines, truncate(d.Content, 500))
	}
	writeSection(&b, "Relevant Documents", docLines)

	var emoLines []string
	for _, n := range emoHighlights {
		emoLines = append(emoLines, fmt.Sprintf("%s (%s, intensity %.2f)", n.RecordID, n.Valence, n.Intensity))
	}
	writeSection(&b, "Emotional Highlights", emoLines)

	writeSection(&b, "Spatial Notes", spatialLines)

	return b.String(), trace, nil
}

// lookupMaxScan is large enough that a tier-unfiltered search returns
// every indexed entry, letting lookupByID scan for an exact record_id
// match rather than relying on the ANN ranking (an identity lookup
// isn't a similarity query).
const lookupMaxScan = 100000

func (p *Pipeline) lookupByID(ctx context.Context, id string) (vectorindex.Match, bool) {
	matches, err := p.index.Search(ctx, nil, "", lookupMaxScan)
	if err != nil {
		return vectorindex.Match{}, false
	}
	for _, m := range matches {
		if m.RecordID == id {
			return m, true
		}
	}
	return vectorindex.Match{}, false
}

func writeSection(b *strings.Builder, title string, lines []string) {
	b.WriteString("[" + title + "]\n")
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func firstParagraph(content string) string {
	parts := strings.SplitN(strings.TrimSpace(content), "\n\n", 2)
	return strings.TrimSpace(parts[0])
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}
