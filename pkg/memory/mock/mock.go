// Package mock provides in-memory test doubles for the memory.StateStore and
// memory.TermIndex interfaces, for tests that exercise snapshot/resume or
// semantic-index wiring without a live PostgreSQL instance.
package mock

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/tastycandy/rlmtrans/pkg/memory"
)

// Store is an in-memory implementation of both [memory.StateStore] and
// [memory.TermIndex].
type Store struct {
	mu sync.Mutex

	snapshots map[string]memory.SessionSnapshot
	terms     map[string]memory.TermCandidate // keyed by sessionID+"\x00"+term
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		snapshots: make(map[string]memory.SessionSnapshot),
		terms:     make(map[string]memory.TermCandidate),
	}
}

// SaveSnapshot implements [memory.StateStore].
func (s *Store) SaveSnapshot(_ context.Context, snap memory.SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.SessionID] = snap
	return nil
}

// LoadSnapshot implements [memory.StateStore].
func (s *Store) LoadSnapshot(_ context.Context, sessionID string) (*memory.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[sessionID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

// DeleteSnapshot implements [memory.StateStore].
func (s *Store) DeleteSnapshot(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, sessionID)
	return nil
}

// IndexTerm implements [memory.TermIndex].
func (s *Store) IndexTerm(_ context.Context, term memory.TermCandidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms[termKey(term.SessionID, term.Term)] = term
	return nil
}

// NearestTerms implements [memory.TermIndex] using brute-force cosine
// distance, fine for the small term sets exercised by tests.
func (s *Store) NearestTerms(_ context.Context, sessionID string, embedding []float32, topK int) ([]memory.TermMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []memory.TermMatch
	for _, cand := range s.terms {
		if sessionID != "" && cand.SessionID != sessionID && cand.SessionID != "" {
			continue
		}
		matches = append(matches, memory.TermMatch{
			Candidate: cand,
			Distance:  cosineDistance(embedding, cand.Embedding),
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func termKey(sessionID, term string) string {
	return sessionID + "\x00" + term
}

func cosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return 1 - similarity
}

var (
	_ memory.StateStore = (*Store)(nil)
	_ memory.TermIndex  = (*Store)(nil)
)
