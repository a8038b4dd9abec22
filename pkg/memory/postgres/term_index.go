package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/tastycandy/rlmtrans/pkg/memory"
)

// IndexTerm implements [memory.TermIndex]. It upserts a pre-embedded
// [memory.TermCandidate], keyed by (SessionID, Term).
func (s *Store) IndexTerm(ctx context.Context, term memory.TermCandidate) error {
	const q = `
		INSERT INTO glossary_terms (session_id, term, target, embedding, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (session_id, term) DO UPDATE SET
		    target     = EXCLUDED.target,
		    embedding  = EXCLUDED.embedding,
		    updated_at = EXCLUDED.updated_at`

	vec := pgvector.NewVector(term.Embedding)
	_, err := s.pool.Exec(ctx, q, term.SessionID, term.Term, term.Target, vec)
	if err != nil {
		return fmt.Errorf("term index: index term: %w", err)
	}
	return nil
}

// NearestTerms implements [memory.TermIndex]. It finds the topK glossary
// terms whose embeddings are closest (cosine distance) to embedding. A
// non-empty sessionID limits results to that session's entries plus the
// cross-session entries (empty session_id); an empty sessionID searches
// every session.
//
// Results are ordered by ascending cosine distance (most similar first).
func (s *Store) NearestTerms(ctx context.Context, sessionID string, embedding []float32, topK int) ([]memory.TermMatch, error) {
	queryVec := pgvector.NewVector(embedding)

	var (
		rows pgx.Rows
		err  error
	)
	if sessionID == "" {
		const q = `
			SELECT session_id, term, target, embedding, embedding <=> $1 AS distance
			FROM   glossary_terms
			ORDER  BY distance
			LIMIT  $2`
		rows, err = s.pool.Query(ctx, q, queryVec, topK)
	} else {
		const q = `
			SELECT session_id, term, target, embedding, embedding <=> $1 AS distance
			FROM   glossary_terms
			WHERE  session_id = $2 OR session_id = ''
			ORDER  BY distance
			LIMIT  $3`
		rows, err = s.pool.Query(ctx, q, queryVec, sessionID, topK)
	}
	if err != nil {
		return nil, fmt.Errorf("term index: nearest terms: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (memory.TermMatch, error) {
		var (
			m   memory.TermMatch
			vec pgvector.Vector
		)
		if err := row.Scan(&m.Candidate.SessionID, &m.Candidate.Term, &m.Candidate.Target, &vec, &m.Distance); err != nil {
			return memory.TermMatch{}, err
		}
		m.Candidate.Embedding = vec.Slice()
		return m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("term index: scan rows: %w", err)
	}
	if results == nil {
		results = []memory.TermMatch{}
	}
	return results, nil
}
