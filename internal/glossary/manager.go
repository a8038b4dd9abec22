// Package glossary resolves conflicts between a document's existing
// glossary entries and newly proposed term mappings, deterministically and
// without ever silently discarding a losing proposal.
package glossary

import (
	"context"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/tastycandy/rlmtrans/internal/state"
	"github.com/tastycandy/rlmtrans/pkg/memory"
	"github.com/tastycandy/rlmtrans/pkg/provider/embeddings"
)

// ConflictResolutionRule selects how Manager breaks a tie between an
// existing glossary entry and a newly proposed mapping for the same term.
type ConflictResolutionRule string

const (
	// RulePresetFirst: a mapping sourced from the preset always wins over
	// one discovered from the document.
	RulePresetFirst ConflictResolutionRule = "preset_first"
	// RuleDocumentInitial: the first occurrence in the document wins once
	// it has recorded chunk indices.
	RuleDocumentInitial ConflictResolutionRule = "document_initial"
	// RuleMajority: compares an occurrence-count proxy (existing indices
	// vs. proposed confidence x10); the higher count wins.
	RuleMajority ConflictResolutionRule = "majority"
	// RuleMostRecent: the most recently proposed mapping wins.
	RuleMostRecent ConflictResolutionRule = "most_recent"
)

// Origin tags where a proposed mapping came from.
type Origin string

const (
	OriginPreset   Origin = "preset"
	OriginDocument Origin = "document"
	OriginUser     Origin = "user"
)

// Proposal is a candidate mapping competing against an existing glossary
// entry for the same source term.
type Proposal struct {
	Term       string
	Target     string
	Origin     Origin
	Confidence float64
}

// fuzzyNearDuplicateThreshold is the Jaro-Winkler similarity above which two
// distinct source terms are flagged as likely spelling variants of the same
// underlying term (e.g. "Kontroller" vs "Controller").
const fuzzyNearDuplicateThreshold = 0.92

// Manager resolves glossary conflicts under a fixed rule.
type Manager struct {
	rule ConflictResolutionRule

	index      memory.TermIndex
	embeddings embeddings.Provider
}

// New creates a Manager applying rule to every conflict.
func New(rule ConflictResolutionRule) *Manager {
	return &Manager{rule: rule}
}

// WithSemanticIndex enables the embedding-backed near-duplicate lookup
// (NearDuplicateSemantic). Without it, Manager falls back to the
// Jaro-Winkler pre-filter alone (NearDuplicate) — the default, exact-key
// conflict model. Passing a nil index or provider disables the feature
// again.
func (m *Manager) WithSemanticIndex(index memory.TermIndex, provider embeddings.Provider) *Manager {
	m.index = index
	m.embeddings = provider
	return m
}

// Resolve decides whether proposal should replace existing (nil if the term
// is new) and returns the winning target plus a conflict event recording
// both options. When existing is nil there is no conflict: the proposal
// simply wins and the event's Options has a single element.
func (m *Manager) Resolve(existing *state.TermEntry, proposal Proposal) (string, state.ConflictEvent) {
	if existing == nil {
		return proposal.Target, state.ConflictEvent{
			Term:        proposal.Term,
			Options:     []string{proposal.Target},
			Sources:     []string{string(proposal.Origin)},
			RuleApplied: string(m.rule),
		}
	}

	ev := state.ConflictEvent{
		Term:        proposal.Term,
		Options:     []string{existing.Target, proposal.Target},
		Sources:     []string{existingOrigin(existing), string(proposal.Origin)},
		RuleApplied: string(m.rule),
	}

	if existing.Target == proposal.Target {
		return existing.Target, ev
	}

	switch m.rule {
	case RulePresetFirst:
		if proposal.Origin == OriginPreset {
			return proposal.Target, ev
		}
		return existing.Target, ev

	case RuleDocumentInitial:
		if len(existing.SourceChunkIndices) > 0 {
			return existing.Target, ev
		}
		return proposal.Target, ev

	case RuleMajority:
		existingScore := float64(len(existing.SourceChunkIndices))
		proposedScore := proposal.Confidence * 10
		if existingScore >= proposedScore {
			return existing.Target, ev
		}
		return proposal.Target, ev

	case RuleMostRecent:
		return proposal.Target, ev

	default:
		return proposal.Target, ev
	}
}

func existingOrigin(e *state.TermEntry) string {
	if e.IsHard {
		return string(OriginPreset)
	}
	return string(OriginDocument)
}

// OverlapScore returns a cheap word-overlap similarity proxy between a and
// b: the size of their lowercase word-set intersection, doubled. It is not
// normalized to [0,1] — it is meant as a pre-filter ranking, not a metric,
// ahead of a full Jaccard computation on larger documents.
func OverlapScore(a, b string) int {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) > len(setB) {
		setA, setB = setB, setA
	}
	overlap := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			overlap++
		}
	}
	return overlap * 2
}

func wordSet(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// NearDuplicate reports whether term is a likely spelling variant of any
// key already present in existingTerms, using Jaro-Winkler similarity as a
// fast pre-filter ahead of any embedding-based semantic lookup.
func NearDuplicate(term string, existingTerms map[string]string) (string, bool) {
	bestTerm := ""
	bestScore := 0.0
	for candidate := range existingTerms {
		if candidate == term {
			continue
		}
		score := matchr.JaroWinkler(strings.ToLower(term), strings.ToLower(candidate), false)
		if score > bestScore {
			bestScore = score
			bestTerm = candidate
		}
	}
	if bestScore >= fuzzyNearDuplicateThreshold {
		return bestTerm, true
	}
	return "", false
}

// semanticNearDuplicateDistance is the pgvector cosine-distance threshold
// below which two terms are treated as semantic near-duplicates. Lower is
// stricter; 0 is identical, 1 is orthogonal.
const semanticNearDuplicateDistance = 0.15

// NearDuplicateSemantic extends NearDuplicate with an embedding-based
// lookup through the Manager's configured [memory.TermIndex], catching
// near-duplicates that Jaro-Winkler on surface form misses (a term and its
// translation expressed with different tokenization or transliteration).
// Requires [Manager.WithSemanticIndex] to have been called; otherwise it
// reports no match without error, so callers can call it unconditionally.
func (m *Manager) NearDuplicateSemantic(ctx context.Context, sessionID, term string) (memory.TermMatch, bool, error) {
	if m.index == nil || m.embeddings == nil {
		return memory.TermMatch{}, false, nil
	}
	vec, err := m.embeddings.Embed(ctx, term)
	if err != nil {
		return memory.TermMatch{}, false, err
	}
	matches, err := m.index.NearestTerms(ctx, sessionID, vec, 1)
	if err != nil {
		return memory.TermMatch{}, false, err
	}
	if len(matches) == 0 || matches[0].Distance > semanticNearDuplicateDistance {
		return memory.TermMatch{}, false, nil
	}
	return matches[0], true, nil
}

// IndexTerm records a confirmed term's embedding in the Manager's semantic
// index, if one is configured, so future NearDuplicateSemantic lookups can
// find it. A no-op when no index is configured.
func (m *Manager) IndexTerm(ctx context.Context, sessionID, term, target string) error {
	if m.index == nil || m.embeddings == nil {
		return nil
	}
	vec, err := m.embeddings.Embed(ctx, term)
	if err != nil {
		return err
	}
	return m.index.IndexTerm(ctx, memory.TermCandidate{
		Term:      term,
		Target:    target,
		SessionID: sessionID,
		Embedding: vec,
	})
}
