package vectorindex

import (
	"context"
	"testing"
)

func TestLinearIndexSearchRanksByCosineSimilarity(t *testing.T) {
	idx := NewLinearIndex()
	ctx := context.Background()

	if err := idx.Upsert(ctx, Entry{RecordID: "a", Tier: "semantic", Embedding: []float32{1, 0, 0}}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Upsert(ctx, Entry{RecordID: "b", Tier: "semantic", Embedding: []float32{0, 1, 0}}); err != nil {
		t.Fatal(err)
	}

	matches, err := idx.Search(ctx, []float32{1, 0, 0}, "", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 2 || matches[0].RecordID != "a" {
		t.Fatalf("expected a ranked first, got %+v", matches)
	}
}

func TestLinearIndexSearchFiltersByTier(t *testing.T) {
	idx := NewLinearIndex()
	ctx := context.Background()
	_ = idx.Upsert(ctx, Entry{RecordID: "a", Tier: "semantic", Embedding: []float32{1, 0}})
	_ = idx.Upsert(ctx, Entry{RecordID: "b", Tier: "episodic", Embedding: []float32{1, 0}})

	matches, err := idx.Search(ctx, []float32{1, 0}, "episodic", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].RecordID != "b" {
		t.Fatalf("tier filter failed, got %+v", matches)
	}
}

func TestLinearIndexDeleteRemovesEntry(t *testing.T) {
	idx := NewLinearIndex()
	ctx := context.Background()
	_ = idx.Upsert(ctx, Entry{RecordID: "a", Embedding: []float32{1}})
	if err := idx.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	matches, err := idx.Search(ctx, []float32{1}, "", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected empty index after delete, got %+v", matches)
	}
}
