package vectorindex

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"memoria/internal/config"
)

// NewPool builds a pgxpool.Pool scoped to the vector index's own
// concerns.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 30 * time.Second
	poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second
	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// Ping verifies database connectivity.
func Ping(ctx context.Context, pool *pgxpool.Pool) error {
	return pool.Ping(ctx)
}

// PgIndex is the production Index backed by a pgvector-enabled
// memory_embeddings table (one row per tiered record, keyed by the
// record's own filesystem-derived ID).
type PgIndex struct {
	pool *pgxpool.Pool
}

func NewPgIndex(pool *pgxpool.Pool) *PgIndex {
	return &PgIndex{pool: pool}
}

// EnsureSchema creates the embeddings table and its ANN index if they
// don't exist yet. Called once at startup, not per-request.
func (p *PgIndex) EnsureSchema(ctx context.Context, dimensions int) error {
	_, err := p.pool.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector`)
	if err != nil {
		return fmt.Errorf("vectorindex: enable pgvector extension: %w", err)
	}
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS memory_embeddings (
			record_id   TEXT PRIMARY KEY,
			tier        TEXT NOT NULL,
			content     TEXT NOT NULL,
			embedding   vector(%d) NOT NULL,
			timestamp   TIMESTAMPTZ NOT NULL,
			intensity   REAL NOT NULL DEFAULT 0,
			valence     TEXT NOT NULL DEFAULT '',
			links       TEXT[] NOT NULL DEFAULT '{}'
		)`, dimensions)
	if _, err := p.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("vectorindex: create table: %w", err)
	}
	const idx = `
		CREATE INDEX IF NOT EXISTS memory_embeddings_ann
		ON memory_embeddings USING hnsw (embedding vector_cosine_ops)`
	if _, err := p.pool.Exec(ctx, idx); err != nil {
		return fmt.Errorf("vectorindex: create ann index: %w", err)
	}
	return nil
}

func (p *PgIndex) Upsert(ctx context.Context, e Entry) error {
	const query = `
		INSERT INTO memory_embeddings (record_id, tier, content, embedding, timestamp, intensity, valence, links)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (record_id) DO UPDATE SET
			tier = EXCLUDED.tier,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			timestamp = EXCLUDED.timestamp,
			intensity = EXCLUDED.intensity,
			valence = EXCLUDED.valence,
			links = EXCLUDED.links`
	_, err := p.pool.Exec(ctx, query, e.RecordID, e.Tier, e.Content, pgvector.NewVector(e.Embedding), e.Timestamp, e.Intensity, e.Valence, e.Links)
	return err
}

func (p *PgIndex) Search(ctx context.Context, embedding []float32, tier string, k int) ([]Match, error) {
	if k <= 0 {
		k = 5
	}
	query := `
		SELECT record_id, tier, content, embedding, timestamp, intensity, valence, links, 1 - (embedding <=> $1) AS score
		FROM memory_embeddings
		WHERE ($2 = '' OR tier = $2)
		ORDER BY embedding <=> $1
		LIMIT $3`
	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(embedding), tier, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		var vec pgvector.Vector
		if err := rows.Scan(&m.RecordID, &m.Tier, &m.Content, &vec, &m.Timestamp, &m.Intensity, &m.Valence, &m.Links, &m.Score); err != nil {
			return nil, err
		}
		m.Embedding = vec.Slice()
		out = append(out, m)
	}
	return out, rows.Err()
}

func (p *PgIndex) Delete(ctx context.Context, recordID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM memory_embeddings WHERE record_id = $1`, recordID)
	return err
}

// Rebuild truncates and repopulates the table from entries derived by
// walking the filesystem store — the index's only source of truth.
func (p *PgIndex) Rebuild(ctx context.Context, entries []Entry) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE memory_embeddings`); err != nil {
		return err
	}
	const insert = `INSERT INTO memory_embeddings (record_id, tier, content, embedding, timestamp, intensity, valence, links) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	for _, e := range entries {
		if _, err := tx.Exec(ctx, insert, e.RecordID, e.Tier, e.Content, pgvector.NewVector(e.Embedding), e.Timestamp, e.Intensity, e.Valence, e.Links); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
