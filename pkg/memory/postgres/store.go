package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/tastycandy/rlmtrans/pkg/memory"
)

// Compile-time interface checks.
var (
	_ memory.StateStore = (*Store)(nil)
	_ memory.TermIndex  = (*Store)(nil)
)

// Store is the PostgreSQL-backed project-memory store. It holds a single
// [pgxpool.Pool] and implements both [memory.StateStore] (session snapshot
// persistence) and [memory.TermIndex] (the glossary semantic index).
//
// All operations are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store, establishes a connection pool to the PostgreSQL
// database at dsn, registers pgvector types on every connection, and runs
// [Migrate] to ensure all required tables and extensions exist.
//
// embeddingDimensions must match the output dimension of the embedding model
// configured for the glossary semantic index (see
// [github.com/tastycandy/rlmtrans/internal/config.MemoryConfig]). A value of
// 0 or less creates the embedding column as vector(1), a placeholder size for
// when the semantic index is not in use.
func NewStore(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	dims := embeddingDimensions
	if dims <= 0 {
		dims = 1
	}
	if err := Migrate(ctx, pool, dims); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Ping satisfies [github.com/tastycandy/rlmtrans/internal/health.Pinger] so
// a Store can be wired into the process health-check aggregator directly.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all connections held by the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}
