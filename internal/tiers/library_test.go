package tiers

import (
	"testing"
	"time"

	"memoria/internal/fsstore"
)

func TestCaptureIsIdempotentByContentHash(t *testing.T) {
	dir := t.TempDir()
	store := fsstore.New(dir)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	m := NewLibraryManager(store)
	at := time.Now()

	d1, err := m.Capture("/docs/a.md", "text/markdown", "hello world", []string{"intro"}, at)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := m.Capture("/docs/a.md", "text/markdown", "hello world", []string{"intro"}, at.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if d1.DocID != d2.DocID {
		t.Fatalf("expected identical doc_id for identical content, got %s vs %s", d1.DocID, d2.DocID)
	}
}

func TestRecaptureRefreshesMetadataAndIncrementsAccessCount(t *testing.T) {
	dir := t.TempDir()
	store := fsstore.New(dir)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	m := NewLibraryManager(store)
	at := time.Now()

	first, err := m.Capture("/docs/a.md", "text/markdown", "hello world", []string{"intro"}, at)
	if err != nil {
		t.Fatal(err)
	}
	if first.AccessCount != 0 {
		t.Fatalf("fresh capture access_count = %d, want 0", first.AccessCount)
	}

	second, err := m.Capture("/docs/a-renamed.md", "text/markdown", "hello world", []string{"intro", "renamed"}, at.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if second.AccessCount != 1 {
		t.Fatalf("re-capture access_count = %d, want 1", second.AccessCount)
	}
	if second.SourcePath != "/docs/a-renamed.md" {
		t.Fatalf("re-capture source_path = %q, want refreshed path", second.SourcePath)
	}
	if len(second.Tags) != 2 {
		t.Fatalf("re-capture tags = %v, want refreshed tag set", second.Tags)
	}
	if !second.LastAccessed.After(first.LastAccessed) {
		t.Fatal("re-capture should advance last_accessed")
	}

	stored, err := m.Get(first.DocID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.AccessCount != 1 {
		t.Fatalf("persisted access_count = %d, want 1", stored.AccessCount)
	}
}

func TestTrackAccessRaisesImportance(t *testing.T) {
	dir := t.TempDir()
	store := fsstore.New(dir)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	m := NewLibraryManager(store)
	at := time.Now()

	doc, err := m.Capture("/docs/b.md", "text/markdown", "content body", nil, at)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Importance != 0 {
		t.Fatalf("fresh capture importance = %v, want 0", doc.Importance)
	}

	updated, err := m.TrackAccess(doc.DocID, "lookup", at)
	if err != nil {
		t.Fatal(err)
	}
	if updated.AccessCount != 1 {
		t.Fatalf("access count = %d, want 1", updated.AccessCount)
	}
	if updated.Importance <= 0 {
		t.Fatalf("importance after access = %v, want > 0", updated.Importance)
	}
}

func TestSearchMatchesContentAndTags(t *testing.T) {
	dir := t.TempDir()
	store := fsstore.New(dir)
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	m := NewLibraryManager(store)
	at := time.Now()

	if _, err := m.Capture("/docs/c.md", "text/markdown", "talks about databases", []string{"storage"}, at); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Capture("/docs/d.md", "text/markdown", "talks about networking", []string{"transport"}, at); err != nil {
		t.Fatal(err)
	}

	results, err := m.Search("storage")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].SourcePath != "/docs/c.md" {
		t.Fatalf("Search(storage) = %+v", results)
	}
}
