// Package state implements TranslationState, the project memory an
// orchestrator mutates across a document's translation session: chunk
// history, glossary tiers, entities, style guide, summaries, and counters.
package state

import (
	"time"

	"github.com/tastycandy/rlmtrans/pkg/types"
)

// TermEntry is one glossary entry, the canonical record behind the
// hard/soft/proper-noun/reference-sign/technical-term views.
type TermEntry struct {
	Source             string
	Target             string
	Confidence         float64
	SourceChunkIndices []int
	IsHard             bool
	UsageCount         int
}

// EntityEntry tracks a named entity's chosen translation.
type EntityEntry struct {
	Name        string
	Translation string
	Type        types.EntityType
	Context     string
	UsageCount  int
}

// StyleGuide captures tone and lexical constraints applied across a document.
type StyleGuide struct {
	Tone             string
	Politeness       string
	SentenceLength   string
	ForbiddenWords   []string
	ForbiddenPhrases []string
	CustomRules      []string
}

// ErrorRecord is one entry in QualityFlags.ErrorChunks.
type ErrorRecord struct {
	ChunkIndex int
	Kind       string
	Message    string
}

// QualityFlags tracks per-session outcome counters.
type QualityFlags struct {
	TotalChunks     int
	CompletedChunks int
	FailedChunks    int
	RetryCount      map[string]int
	ErrorChunks     []ErrorRecord
	QualityScore    float64
}

// CostStats accumulates provider usage across a session.
type CostStats struct {
	RootCalls     int
	SubCalls      int
	VerifierCalls int
	TotalCost     float64
	TotalTokens   int
	TotalTime     time.Duration
}

// ConflictEvent records a glossary conflict and the rule that resolved it.
// Losing proposals are kept here rather than discarded.
type ConflictEvent struct {
	Term        string
	Options     []string
	Sources     []string
	RuleApplied string
}

// ChunkPlan is the ordered work list a session was seeded with.
type ChunkPlan struct {
	Chunks       []types.Chunk
	CurrentIndex int
	Strategy     types.SelectionStrategy
}

// Export is a complete, serializable copy of a session's project memory,
// suitable for persisting to a store between rounds and restoring into a
// fresh State to resume a long document after a crash or restart. Unlike
// Snapshot, it carries everything needed to reconstruct the session, not
// just what a ContextPackager reads.
type Export struct {
	PresetID            types.Preset
	DocumentType        string
	Plan                ChunkPlan
	MaxHistorySummaries int
	ChunkHistory        []string
	TranslationHistory  []string
	Glossary            map[string]TermEntry
	ProperNouns         map[string]string
	ReferenceSigns      map[string]string
	TechnicalTerms      map[string]string
	TermCandidates      map[string]string
	ConfirmedTerms      map[string]string
	Entities            map[string]EntityEntry
	HistorySummaries    []string
	StyleGuide          StyleGuide
	QualityFlags        QualityFlags
	CostStats           CostStats
	ConflictLog         []ConflictEvent
}

// Snapshot is a read-only, single-locked-pass view of the fields a
// ContextPackager needs. It never aliases internal mutable state: every
// map and slice is a fresh copy.
type Snapshot struct {
	DocumentType       string
	HardGlossary       map[string]string
	SoftGlossary       map[string]string
	ConfirmedTerms     map[string]string
	ProperNouns        map[string]string
	ReferenceSigns     map[string]string
	TechnicalTerms     map[string]string
	Entities           []EntityEntry
	HistorySummaries   []string
	StyleGuide         StyleGuide
	RecentOriginals    []string
	RecentTranslations []string
	CurrentChunkIndex  int
	TotalChunks        int
}
