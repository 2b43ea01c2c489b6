package tiers

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"memoria/internal/domain"
	"memoria/internal/fsstore"
)

// LibraryManager owns library/documents/<doc_id>/{content.md,metadata.json},
// library/access_log.json, library/importance_map.json, and
// library/index.json.
type LibraryManager struct {
	store *fsstore.Store
}

func NewLibraryManager(store *fsstore.Store) *LibraryManager {
	return &LibraryManager{store: store}
}

// Capture stores captured external content, keyed by the content's own
// SHA-256 hash so capturing the same document twice is idempotent
// (invariant: a doc_id always resolves to the same bytes).
func (m *LibraryManager) Capture(sourcePath, contentType, content string, tags []string, at time.Time) (domain.LibraryDocument, error) {
	docID := fsstore.ContentHash([]byte(content))[:16]

	existing, err := m.Get(docID)
	if err == nil && existing.DocID != "" {
		existing.SourcePath = sourcePath
		existing.ContentType = contentType
		existing.Tags = tags
		existing.AccessCount++
		existing.LastAccessed = at

		globalMax, err := m.globalMaxAccess(existing.DocID, existing.AccessCount)
		if err != nil {
			return domain.LibraryDocument{}, err
		}
		existing.Importance = importanceScore(existing.AccessCount, globalMax, at.Sub(existing.CapturedAt))

		if err := m.writeMetadata(existing); err != nil {
			return domain.LibraryDocument{}, err
		}
		if err := m.updateImportanceMap(existing.DocID, existing.Importance); err != nil {
			return domain.LibraryDocument{}, err
		}
		return existing, nil
	}

	doc := domain.LibraryDocument{
		DocID:        docID,
		SourcePath:   sourcePath,
		ContentType:  contentType,
		Content:      content,
		Tags:         tags,
		AccessCount:  0,
		Importance:   0,
		CapturedAt:   at,
		LastAccessed: at,
	}
	if err := m.store.WriteFile(m.store.LibraryDocContentPath(docID), []byte(content)); err != nil {
		return domain.LibraryDocument{}, err
	}
	if err := m.writeMetadata(doc); err != nil {
		return domain.LibraryDocument{}, err
	}
	if err := m.appendIndex(doc); err != nil {
		return domain.LibraryDocument{}, err
	}
	return doc, nil
}

// Get loads one document's metadata + content.
func (m *LibraryManager) Get(docID string) (domain.LibraryDocument, error) {
	data, err := m.store.ReadFile(m.store.LibraryDocMetadataPath(docID))
	if err != nil {
		return domain.LibraryDocument{}, err
	}
	if len(data) == 0 {
		return domain.LibraryDocument{}, nil
	}
	var doc domain.LibraryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.LibraryDocument{}, fmt.Errorf("library: parse metadata for %s: %w", docID, err)
	}
	content, err := m.store.ReadFile(m.store.LibraryDocContentPath(docID))
	if err != nil {
		return domain.LibraryDocument{}, err
	}
	doc.Content = string(content)
	return doc, nil
}

// TrackAccess records one access event and recomputes the document's
// importance using the recency-weighted access formula:
//
//	importance = log(1+access_count) / log(1+global_max_access) * exp(-age_days/30)
func (m *LibraryManager) TrackAccess(docID, context string, at time.Time) (domain.LibraryDocument, error) {
	doc, err := m.Get(docID)
	if err != nil {
		return domain.LibraryDocument{}, err
	}
	if doc.DocID == "" {
		return domain.LibraryDocument{}, fmt.Errorf("library: unknown doc_id %q", docID)
	}

	if err := m.appendAccessLog(domain.LibraryAccessEvent{DocID: docID, Context: context, Timestamp: at}); err != nil {
		return domain.LibraryDocument{}, err
	}

	doc.AccessCount++
	doc.LastAccessed = at

	globalMax, err := m.globalMaxAccess(doc.DocID, doc.AccessCount)
	if err != nil {
		return domain.LibraryDocument{}, err
	}
	doc.Importance = importanceScore(doc.AccessCount, globalMax, at.Sub(doc.CapturedAt))

	if err := m.writeMetadata(doc); err != nil {
		return domain.LibraryDocument{}, err
	}
	if err := m.updateImportanceMap(doc.DocID, doc.Importance); err != nil {
		return domain.LibraryDocument{}, err
	}
	return doc, nil
}

func importanceScore(accessCount, globalMax int, age time.Duration) float64 {
	if globalMax < 1 {
		globalMax = 1
	}
	ageDays := age.Hours() / 24
	recency := math.Exp(-ageDays / 30)
	score := math.Log(1+float64(accessCount)) / math.Log(1+float64(globalMax)) * recency
	return math.Round(score*1000) / 1000
}

// Search does a coarse substring scan over captured content and tags;
// semantic search over library documents goes through the vector index.
func (m *LibraryManager) Search(query string) ([]domain.LibraryDocument, error) {
	entries, err := m.index()
	if err != nil {
		return nil, err
	}
	var out []domain.LibraryDocument
	for _, e := range entries {
		doc, err := m.Get(e.DocID)
		if err != nil {
			return nil, err
		}
		if matchesQuery(doc, query) {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	return out, nil
}

func matchesQuery(doc domain.LibraryDocument, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(doc.Content), q) || strings.Contains(strings.ToLower(doc.SourcePath), q) {
		return true
	}
	for _, tag := range doc.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}

func (m *LibraryManager) writeMetadata(doc domain.LibraryDocument) error {
	withoutContent := doc
	withoutContent.Content = ""
	data, err := json.MarshalIndent(withoutContent, "", "  ")
	if err != nil {
		return err
	}
	return m.store.WriteFile(m.store.LibraryDocMetadataPath(doc.DocID), data)
}

func (m *LibraryManager) index() ([]domain.LibraryDocument, error) {
	data, err := m.store.ReadFile(m.store.LibraryIndexPath())
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var entries []domain.LibraryDocument
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (m *LibraryManager) appendIndex(doc domain.LibraryDocument) error {
	entries, err := m.index()
	if err != nil {
		return err
	}
	entries = append(entries, domain.LibraryDocument{DocID: doc.DocID, SourcePath: doc.SourcePath, ContentType: doc.ContentType, Tags: doc.Tags, CapturedAt: doc.CapturedAt})
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return m.store.WriteFile(m.store.LibraryIndexPath(), data)
}

func (m *LibraryManager) appendAccessLog(evt domain.LibraryAccessEvent) error {
	data, err := m.store.ReadFile(m.store.LibraryAccessLogPath())
	if err != nil {
		return err
	}
	var log []domain.LibraryAccessEvent
	if len(data) > 0 {
		if err := json.Unmarshal(data, &log); err != nil {
			return fmt.Errorf("library: parse access_log.json: %w", err)
		}
	}
	log = append(log, evt)
	out, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return err
	}
	return m.store.WriteFile(m.store.LibraryAccessLogPath(), out)
}

// globalMaxAccess scans the access log for the highest access count any
// document has reached, including the in-flight update for docID.
func (m *LibraryManager) globalMaxAccess(docID string, candidate int) (int, error) {
	data, err := m.store.ReadFile(m.store.LibraryAccessLogPath())
	if err != nil {
		return candidate, err
	}
	var log []domain.LibraryAccessEvent
	if len(data) > 0 {
		if err := json.Unmarshal(data, &log); err != nil {
			return candidate, fmt.Errorf("library: parse access_log.json: %w", err)
		}
	}
	counts := map[string]int{}
	for _, evt := range log {
		counts[evt.DocID]++
	}
	counts[docID] = candidate
	max := candidate
	for _, c := range counts {
		if c > max {
			max = c
		}
	}
	return max, nil
}

func (m *LibraryManager) updateImportanceMap(docID string, importance float64) error {
	data, err := m.store.ReadFile(m.store.LibraryImportanceMapPath())
	if err != nil {
		return err
	}
	scores := map[string]float64{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &scores); err != nil {
			return fmt.Errorf("library: parse importance_map.json: %w", err)
		}
	}
	scores[docID] = importance
	out, err := json.MarshalIndent(scores, "", "  ")
	if err != nil {
		return err
	}
	return m.store.WriteFile(m.store.LibraryImportanceMapPath(), out)
}
