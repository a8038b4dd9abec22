// Package memory defines the persistence boundary for translation project
// memory: crash-recoverable session snapshots and an optional semantic index
// over glossary terms.
//
// The orchestration core (internal/state, internal/glossary) never imports a
// concrete backend directly; it depends on these interfaces so a Postgres
// implementation (pkg/memory/postgres), an in-memory test double
// (pkg/memory/mock), or any other store can be swapped in without touching
// orchestration logic.
//
// Implementations must be safe for concurrent use.
package memory

import (
	"context"
	"time"

	"github.com/tastycandy/rlmtrans/internal/state"
)

// SessionSnapshot pairs a session identifier with the exported project
// memory captured at some point during a translation run, for resuming a
// long document after a crash or restart: partial results stay in project
// memory and must be recoverable.
type SessionSnapshot struct {
	// SessionID identifies the document/session this snapshot belongs to.
	SessionID string

	// State is the full exported project memory (chunk history, glossary
	// tiers, entities, summaries, counters).
	State state.Export

	// UpdatedAt is when this snapshot was captured.
	UpdatedAt time.Time
}

// StateStore persists [SessionSnapshot] values so a long-running session can
// resume from its last committed round instead of restarting from chunk
// zero. The chunker, project memory, and orchestrator are all in-memory by
// design; snapshot persistence is a resume convenience layered on top.
type StateStore interface {
	// SaveSnapshot persists (or replaces, keyed by SessionID) snap.
	SaveSnapshot(ctx context.Context, snap SessionSnapshot) error

	// LoadSnapshot retrieves the most recently saved snapshot for sessionID.
	// Returns (nil, nil) when no snapshot exists — not an error condition.
	LoadSnapshot(ctx context.Context, sessionID string) (*SessionSnapshot, error)

	// DeleteSnapshot removes a session's snapshot once the document has
	// completed. Deleting a non-existent snapshot is not an error.
	DeleteSnapshot(ctx context.Context, sessionID string) error
}

// TermCandidate is a glossary term with a pre-computed embedding, ready for
// semantic near-duplicate lookup.
type TermCandidate struct {
	// Term is the source-language glossary key.
	Term string

	// Target is the current translation mapped to Term.
	Target string

	// SessionID scopes the candidate to one translation session. An empty
	// SessionID is a cross-session (shared) entry.
	SessionID string

	// Embedding is the vector representation of Term, produced by a
	// pkg/provider/embeddings.Provider. Its dimension must match the
	// TermIndex's configured dimensionality.
	Embedding []float32
}

// TermMatch pairs a retrieved TermCandidate with its vector-space distance
// from a query embedding. Lower Distance means more similar.
type TermMatch struct {
	Candidate TermCandidate
	Distance  float64
}

// TermIndex is an optional semantic-neighbor lookup over glossary terms,
// used by internal/glossary.Manager to flag near-duplicate spellings
// ("Kontroller" vs "Controller") that exact-key or Jaro-Winkler comparison
// alone would miss. Gated behind configuration; the orchestrator runs
// correctly with no TermIndex at all, exact-key conflict resolution being
// the default.
type TermIndex interface {
	// IndexTerm upserts a pre-embedded TermCandidate, keyed by
	// (SessionID, Term). A repeat call with the same key replaces the
	// embedding and Target.
	IndexTerm(ctx context.Context, term TermCandidate) error

	// NearestTerms returns the topK terms (scoped to sessionID, or
	// cross-session when sessionID is empty) whose embeddings are closest
	// to embedding, ordered by ascending distance.
	NearestTerms(ctx context.Context, sessionID string, embedding []float32, topK int) ([]TermMatch, error)
}
