// Package postgres provides a PostgreSQL-backed implementation of
// [github.com/tastycandy/rlmtrans/pkg/memory]: session snapshot persistence
// (for crash recovery) and a pgvector-backed semantic index over glossary
// terms (for near-duplicate detection).
//
// Both layers share a single [pgxpool.Pool]. The pgvector extension must be
// available in the target database; [Migrate] installs it automatically via
// CREATE EXTENSION IF NOT EXISTS.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlSnapshots = `
CREATE TABLE IF NOT EXISTS session_snapshots (
    session_id   TEXT         PRIMARY KEY,
    state        JSONB        NOT NULL,
    updated_at   TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_session_snapshots_updated_at
    ON session_snapshots (updated_at);
`

// ddlTermIndex returns the glossary term-index DDL with the embedding
// dimension substituted. The vector dimension is baked into the column type
// at schema creation time, matching the configured embeddings provider.
func ddlTermIndex(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS glossary_terms (
    session_id  TEXT         NOT NULL DEFAULT '',
    term        TEXT         NOT NULL,
    target      TEXT         NOT NULL,
    embedding   vector(%d),
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (session_id, term)
);

CREATE INDEX IF NOT EXISTS idx_glossary_terms_embedding
    ON glossary_terms USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates or ensures all required tables and extensions exist. It is
// idempotent (CREATE TABLE IF NOT EXISTS / CREATE INDEX IF NOT EXISTS) and
// safe to call on every application start.
//
// embeddingDimensions must match the vector model configured for the
// embeddings provider feeding [Store.IndexTerm] (e.g. 1536 for
// OpenAI text-embedding-3-small, 768 for nomic-embed-text). Changing this
// value after the first migration requires a manual schema update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	statements := []string{ddlSnapshots, ddlTermIndex(embeddingDimensions)}
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
