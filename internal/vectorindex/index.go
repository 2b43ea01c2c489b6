// Package vectorindex implements the engine's approximate-nearest-
// neighbor cache over memory content. The filesystem is the record of
// truth; this index exists purely to make semantic search fast and is
// always rebuildable from the files under memory_base_path.
package vectorindex

import (
	"context"
	"time"
)

// Entry is one embedded unit of content tracked by the index. Intensity,
// Valence, and Links are denormalized from the owning record so
// reconstruction's emotional-filtering and link-expansion steps don't
// need a filesystem round trip per hit — the index is a cache, but it
// caches everything reconstruction reads at query time.
type Entry struct {
	RecordID  string
	Tier      string
	Content   string
	Embedding []float32
	Timestamp time.Time
	Intensity float64
	Valence   string
	Links     []string
}

// Match is a single search result.
type Match struct {
	Entry
	Score float64
}

// Index is the façade every search/reconstruct caller depends on. Two
// implementations exist: Postgres (PgIndex, backed by pgvector) and a
// pure in-memory linear scan (LinearIndex) used when no DATABASE_URL is
// configured or the database is unreachable — a degraded mode search
// must keep working under.
type Index interface {
	Upsert(ctx context.Context, e Entry) error
	Search(ctx context.Context, embedding []float32, tier string, k int) ([]Match, error)
	Delete(ctx context.Context, recordID string) error
	Rebuild(ctx context.Context, entries []Entry) error
}
