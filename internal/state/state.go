package state

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tastycandy/rlmtrans/pkg/types"
)

const defaultMaxHistorySummaries = 5

// State is the project memory for one translation session. It is owned
// exclusively by an orchestrator for writes; other components receive
// read-only snapshots produced by GetContextPackage. All methods are safe
// for concurrent use, though the engine's contract is strictly serial
// writes per document (see the concurrency design notes).
type State struct {
	mu sync.RWMutex

	presetID            types.Preset
	documentType        string
	plan                ChunkPlan
	maxHistorySummaries int

	chunkHistory       []string
	translationHistory []string

	glossary       map[string]*TermEntry
	properNouns    map[string]string
	referenceSigns map[string]string
	technicalTerms map[string]string
	termCandidates map[string]string
	confirmedTerms map[string]string

	entities map[string]*EntityEntry

	historySummaries []string
	styleGuide       StyleGuide

	qualityFlags QualityFlags
	costStats    CostStats

	conflictLog []ConflictEvent
}

// New creates a State seeded with a chunk plan. totalChunks and strategy
// come from the plan; when strategy is adaptive or priority (non-monotone
// commit order), New pre-allocates translation_history so that
// UpdateChunk(i, …) can write to any index (see design note on the
// add_chunk/adaptive pre-allocation inconsistency).
func New(presetID types.Preset, chunks []types.Chunk, strategy types.SelectionStrategy) *State {
	s := &State{
		presetID:            presetID,
		documentType:        string(presetID),
		maxHistorySummaries: defaultMaxHistorySummaries,
		glossary:            make(map[string]*TermEntry),
		properNouns:         make(map[string]string),
		referenceSigns:      make(map[string]string),
		technicalTerms:      make(map[string]string),
		termCandidates:      make(map[string]string),
		confirmedTerms:      make(map[string]string),
		entities:            make(map[string]*EntityEntry),
		qualityFlags: QualityFlags{
			TotalChunks: len(chunks),
			RetryCount:  make(map[string]int),
		},
	}
	s.plan = ChunkPlan{Chunks: chunks, Strategy: strategy}
	if strategy == types.SelectionAdaptive || strategy == types.SelectionPriority {
		s.preallocateTranslationHistoryLocked(len(chunks))
	}
	return s
}

// SetMaxHistorySummaries overrides the sliding-window size (default 5).
func (s *State) SetMaxHistorySummaries(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.maxHistorySummaries = n
		s.truncateSummariesLocked()
	}
}

// SetStyleGuide replaces the active style guide.
func (s *State) SetStyleGuide(sg StyleGuide) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.styleGuide = sg
}

// SetDocumentType overrides document_type independent of preset_id.
func (s *State) SetDocumentType(dt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documentType = dt
}

// PreallocateTranslationHistory grows chunkHistory/translationHistory to n
// empty slots so adaptive commits can target any index via UpdateChunk.
func (s *State) PreallocateTranslationHistory(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preallocateTranslationHistoryLocked(n)
}

func (s *State) preallocateTranslationHistoryLocked(n int) {
	if len(s.chunkHistory) >= n {
		return
	}
	grow := n - len(s.chunkHistory)
	s.chunkHistory = append(s.chunkHistory, make([]string, grow)...)
	s.translationHistory = append(s.translationHistory, make([]string, grow)...)
}

// TotalChunks returns the number of chunks in the plan.
func (s *State) TotalChunks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.plan.Chunks)
}

// Chunk returns the chunk at index i and whether it exists.
func (s *State) Chunk(i int) (types.Chunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.plan.Chunks) {
		return types.Chunk{}, false
	}
	return s.plan.Chunks[i], true
}

// CurrentChunkIndex returns the plan cursor.
func (s *State) CurrentChunkIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plan.CurrentIndex
}

// Preset returns the session's preset id.
func (s *State) Preset() types.Preset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.presetID
}

// DocumentType returns the active document_type label.
func (s *State) DocumentType() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documentType
}

// Strategy returns the configured selection strategy.
func (s *State) Strategy() types.SelectionStrategy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.plan.Strategy
}

// RemainingIndices returns the plan indices that have not yet received a
// non-empty committed translation, in ascending order.
func (s *State) RemainingIndices() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []int
	for i := range s.plan.Chunks {
		if i >= len(s.translationHistory) || s.translationHistory[i] == "" {
			out = append(out, i)
		}
	}
	return out
}

// MostRecentCommittedTranslation returns the last non-empty translation in
// plan order and whether one exists, for the adaptive similarity heuristic.
func (s *State) MostRecentCommittedTranslation() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.translationHistory) - 1; i >= 0; i-- {
		if s.translationHistory[i] != "" {
			return s.translationHistory[i], true
		}
	}
	return "", false
}

// AddChunk appends an original/translation pair, advances the cursor, and
// increments counters. Used by the sequential commit path; adaptive
// sessions use UpdateChunk against pre-allocated slots instead.
func (s *State) AddChunk(source, translation string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunkHistory = append(s.chunkHistory, source)
	s.translationHistory = append(s.translationHistory, translation)
	s.plan.CurrentIndex++
	s.qualityFlags.CompletedChunks++
}

// UpdateChunk replaces the translation at index i in place, for repairs and
// adaptive (non-monotone) commits. The slot must already exist (via AddChunk
// or PreallocateTranslationHistory).
func (s *State) UpdateChunk(i int, translation string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.translationHistory) {
		return false
	}
	wasEmpty := s.translationHistory[i] == ""
	s.translationHistory[i] = translation
	if wasEmpty {
		s.qualityFlags.CompletedChunks++
	}
	if i >= s.plan.CurrentIndex {
		s.plan.CurrentIndex = i + 1
	}
	return true
}

// SeedChunkHistory records source text at index i for adaptive sessions
// where chunkHistory was pre-allocated rather than appended.
func (s *State) SeedChunkHistory(i int, source string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.chunkHistory) {
		return false
	}
	s.chunkHistory[i] = source
	return true
}

// upsertGlossaryLocked inserts or merges a glossary entry. Must be called
// with s.mu held for writing.
func (s *State) upsertGlossaryLocked(source, target string, confidence float64, indices []int, isHard bool) {
	existing, ok := s.glossary[source]
	if !ok {
		s.glossary[source] = &TermEntry{
			Source:             source,
			Target:             target,
			Confidence:         confidence,
			SourceChunkIndices: append([]int(nil), indices...),
			IsHard:             isHard,
			UsageCount:         1,
		}
		return
	}
	existing.Target = target
	if confidence > existing.Confidence {
		existing.Confidence = confidence
	}
	existing.SourceChunkIndices = unionInts(existing.SourceChunkIndices, indices)
	existing.IsHard = existing.IsHard || isHard
	existing.UsageCount++
}

// AddGlossaryEntry upserts a term. On update the target is replaced,
// confidence is max-merged, indices are unioned, and usage_count increments.
func (s *State) AddGlossaryEntry(source, target string, confidence float64, indices []int, isHard bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertGlossaryLocked(source, target, confidence, indices, isHard)
}

// addTypedTerm populates a typed subset (proper nouns, reference signs,
// technical terms) alongside the canonical glossary entry, and — when
// isHard — synchronizes confirmed_terms and removes any pending candidate,
// per invariants 3 and 4.
func (s *State) addTypedTerm(subset map[string]string, source, target string, indices []int, isHard bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if subset != nil {
		subset[source] = target
	}
	s.upsertGlossaryLocked(source, target, 1.0, indices, isHard)
	if isHard {
		s.confirmedTerms[source] = target
		delete(s.termCandidates, source)
	}
}

// AddHardTerm records a term that must always translate the same way.
func (s *State) AddHardTerm(source, target string, indices []int) {
	s.addTypedTerm(nil, source, target, indices, true)
}

// AddProperNoun records a proper noun's fixed translation.
func (s *State) AddProperNoun(source, target string, indices []int) {
	s.addTypedTerm(s.properNouns, source, target, indices, true)
}

// AddReferenceSign records a reference sign's labeled-phrase translation.
// Reference signs are always promoted to the hard tier (invariant 4).
func (s *State) AddReferenceSign(source, target string, indices []int) {
	s.addTypedTerm(s.referenceSigns, source, target, indices, true)
}

// AddTechnicalTerm records a technical term, hard or soft per isHard.
func (s *State) AddTechnicalTerm(source, target string, indices []int, isHard bool) {
	s.addTypedTerm(s.technicalTerms, source, target, indices, isHard)
}

// ProposeTerms inserts candidate mappings that are not already confirmed.
func (s *State) ProposeTerms(candidates map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for src, tgt := range candidates {
		if _, confirmed := s.confirmedTerms[src]; confirmed {
			continue
		}
		s.termCandidates[src] = tgt
	}
}

// UpdateGlossary promotes source→target into confirmed_terms and removes
// it from term_candidates. If a different mapping is already confirmed and
// force is false, the call is a no-op and returns false.
func (s *State) UpdateGlossary(source, target string, force bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.confirmedTerms[source]; ok && existing != target && !force {
		return false
	}
	s.confirmedTerms[source] = target
	delete(s.termCandidates, source)
	s.upsertGlossaryLocked(source, target, 1.0, nil, false)
	return true
}

// CheckTermConflict reports an existing confirmed (or glossary) mapping
// for source that differs from newTarget, for sub-translator candidate
// intake. The orchestrator calls it when choosing a repair type, so a
// conflicting candidate selects a glossary_update repair; the commit path
// itself does not call it.
func (s *State) CheckTermConflict(source, newTarget string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if existing, ok := s.confirmedTerms[source]; ok && existing != newTarget {
		return existing, true
	}
	if entry, ok := s.glossary[source]; ok && entry.Target != newTarget {
		return entry.Target, true
	}
	return "", false
}

// RecordConflict appends a conflict event to the debugging log. Losing
// proposals are never discarded.
func (s *State) RecordConflict(ev ConflictEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflictLog = append(s.conflictLog, ev)
}

// ConflictLog returns a copy of the recorded conflict events.
func (s *State) ConflictLog() []ConflictEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ConflictEvent(nil), s.conflictLog...)
}

// AddHistorySummary appends a per-round summary, dropping from the front
// once the sliding window overflows.
func (s *State) AddHistorySummary(summary string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historySummaries = append(s.historySummaries, summary)
	s.truncateSummariesLocked()
}

func (s *State) truncateSummariesLocked() {
	if over := len(s.historySummaries) - s.maxHistorySummaries; over > 0 {
		s.historySummaries = s.historySummaries[over:]
	}
}

// RecordError appends an error_chunks entry and increments failed_chunks.
func (s *State) RecordError(chunkIndex int, kind, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qualityFlags.ErrorChunks = append(s.qualityFlags.ErrorChunks, ErrorRecord{
		ChunkIndex: chunkIndex,
		Kind:       kind,
		Message:    message,
	})
	s.qualityFlags.FailedChunks++
	s.qualityFlags.RetryCount[kind]++
}

// RecordRetry increments the retry counter for kind without touching
// failed_chunks or error_chunks, for a repair attempt that has not (yet)
// exhausted the retry budget. RecordError covers the terminal failure case.
func (s *State) RecordRetry(kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qualityFlags.RetryCount[kind]++
}

// QualityFlags returns a copy of the current quality counters.
func (s *State) QualityFlags() QualityFlags {
	s.mu.RLock()
	defer s.mu.RUnlock()
	qf := s.qualityFlags
	qf.RetryCount = make(map[string]int, len(s.qualityFlags.RetryCount))
	for k, v := range s.qualityFlags.RetryCount {
		qf.RetryCount[k] = v
	}
	qf.ErrorChunks = append([]ErrorRecord(nil), s.qualityFlags.ErrorChunks...)
	return qf
}

// RecordCost accumulates provider usage into cost_stats.
func (s *State) RecordCost(cost float64, tokens int, elapsed time.Duration, kind string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.costStats.TotalCost += cost
	s.costStats.TotalTokens += tokens
	s.costStats.TotalTime += elapsed
	switch kind {
	case "root":
		s.costStats.RootCalls++
	case "sub":
		s.costStats.SubCalls++
	case "verifier":
		s.costStats.VerifierCalls++
	}
}

// CostStats returns a copy of accumulated cost statistics.
func (s *State) CostStats() CostStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.costStats
}

// TranslatedText returns the concatenation of translation_history in index
// order, the engine's final result payload.
func (s *State) TranslatedText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return strings.Join(s.translationHistory, "")
}

// HardGlossary returns a materialized view: source→target for every hard
// glossary entry.
func (s *State) HardGlossary() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hardGlossaryLocked()
}

func (s *State) hardGlossaryLocked() map[string]string {
	out := make(map[string]string)
	for src, e := range s.glossary {
		if e.IsHard {
			out[src] = e.Target
		}
	}
	return out
}

// SoftGlossary returns a materialized view: source→target for every
// non-hard glossary entry.
func (s *State) SoftGlossary() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.softGlossaryLocked()
}

func (s *State) softGlossaryLocked() map[string]string {
	out := make(map[string]string)
	for src, e := range s.glossary {
		if !e.IsHard {
			out[src] = e.Target
		}
	}
	return out
}

// ConfirmedTerms returns a copy of the confirmed_terms map.
func (s *State) ConfirmedTerms() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyStringMap(s.confirmedTerms)
}

// GlossaryEntry returns a copy of the glossary entry for source, if any.
func (s *State) GlossaryEntry(source string) (TermEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.glossary[source]
	if !ok {
		return TermEntry{}, false
	}
	return *e, true
}

// HardGlossaryText renders the hard glossary as labeled "source -> target"
// lines sorted by source, suitable for embedding directly into a prompt or
// human-readable export.
func (s *State) HardGlossaryText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return glossaryText(s.hardGlossaryLocked())
}

// SoftGlossaryText renders the soft glossary the same way as HardGlossaryText.
func (s *State) SoftGlossaryText() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return glossaryText(s.softGlossaryLocked())
}

func glossaryText(m map[string]string) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(" -> ")
		b.WriteString(m[k])
		b.WriteString("\n")
	}
	return b.String()
}

// GetContextPackage returns a single-locked-pass, read-only snapshot of the
// state a ContextPackager needs: glossary tiers, entities, summaries, style
// guide, and the last few original/translated chunks.
func (s *State) GetContextPackage() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entities := make([]EntityEntry, 0, len(s.entities))
	for _, e := range s.entities {
		entities = append(entities, *e)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].UsageCount > entities[j].UsageCount })

	return Snapshot{
		DocumentType:       s.documentType,
		HardGlossary:       s.hardGlossaryLocked(),
		SoftGlossary:       s.softGlossaryLocked(),
		ConfirmedTerms:     copyStringMap(s.confirmedTerms),
		ProperNouns:        copyStringMap(s.properNouns),
		ReferenceSigns:     copyStringMap(s.referenceSigns),
		TechnicalTerms:     copyStringMap(s.technicalTerms),
		Entities:           entities,
		HistorySummaries:   append([]string(nil), s.historySummaries...),
		StyleGuide:         s.styleGuide,
		RecentOriginals:    lastNNonEmpty(s.chunkHistory, 3),
		RecentTranslations: lastNNonEmpty(s.translationHistory, 3),
		CurrentChunkIndex:  s.plan.CurrentIndex,
		TotalChunks:        len(s.plan.Chunks),
	}
}

// AddEntity records or refreshes an entity's chosen translation.
func (s *State) AddEntity(name, translation string, kind types.EntityType, context string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entities[name]; ok {
		e.Translation = translation
		e.Context = context
		e.UsageCount++
		return
	}
	s.entities[name] = &EntityEntry{
		Name:        name,
		Translation: translation,
		Type:        kind,
		Context:     context,
		UsageCount:  1,
	}
}

// Reset zeros all collections and counters, for reuse between sessions.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunkHistory = nil
	s.translationHistory = nil
	s.glossary = make(map[string]*TermEntry)
	s.properNouns = make(map[string]string)
	s.referenceSigns = make(map[string]string)
	s.technicalTerms = make(map[string]string)
	s.termCandidates = make(map[string]string)
	s.confirmedTerms = make(map[string]string)
	s.entities = make(map[string]*EntityEntry)
	s.historySummaries = nil
	s.styleGuide = StyleGuide{}
	s.qualityFlags = QualityFlags{RetryCount: make(map[string]int)}
	s.costStats = CostStats{}
	s.conflictLog = nil
	s.plan = ChunkPlan{}
}

// Export returns a complete, serializable copy of the session for
// persistence between rounds (e.g. to a [github.com/tastycandy/rlmtrans/pkg/memory.StateStore]).
// See [Import] for the reverse operation.
func (s *State) Export() Export {
	s.mu.RLock()
	defer s.mu.RUnlock()

	glossary := make(map[string]TermEntry, len(s.glossary))
	for k, v := range s.glossary {
		glossary[k] = *v
	}
	entities := make(map[string]EntityEntry, len(s.entities))
	for k, v := range s.entities {
		entities[k] = *v
	}

	return Export{
		PresetID:            s.presetID,
		DocumentType:        s.documentType,
		Plan:                s.plan,
		MaxHistorySummaries: s.maxHistorySummaries,
		ChunkHistory:        append([]string(nil), s.chunkHistory...),
		TranslationHistory:  append([]string(nil), s.translationHistory...),
		Glossary:            glossary,
		ProperNouns:         copyStringMap(s.properNouns),
		ReferenceSigns:      copyStringMap(s.referenceSigns),
		TechnicalTerms:      copyStringMap(s.technicalTerms),
		TermCandidates:      copyStringMap(s.termCandidates),
		ConfirmedTerms:      copyStringMap(s.confirmedTerms),
		Entities:            entities,
		HistorySummaries:    append([]string(nil), s.historySummaries...),
		StyleGuide:          s.styleGuide,
		QualityFlags:        s.QualityFlags(),
		CostStats:           s.costStats,
		ConflictLog:         append([]ConflictEvent(nil), s.conflictLog...),
	}
}

// Import replaces the session's entire project memory with exp, restoring a
// session previously captured by [Export]. Existing state is discarded.
func Import(exp Export) *State {
	s := &State{
		presetID:            exp.PresetID,
		documentType:        exp.DocumentType,
		plan:                exp.Plan,
		maxHistorySummaries: exp.MaxHistorySummaries,
		chunkHistory:        append([]string(nil), exp.ChunkHistory...),
		translationHistory:  append([]string(nil), exp.TranslationHistory...),
		glossary:            make(map[string]*TermEntry, len(exp.Glossary)),
		properNouns:         copyStringMap(exp.ProperNouns),
		referenceSigns:      copyStringMap(exp.ReferenceSigns),
		technicalTerms:      copyStringMap(exp.TechnicalTerms),
		termCandidates:      copyStringMap(exp.TermCandidates),
		confirmedTerms:      copyStringMap(exp.ConfirmedTerms),
		entities:            make(map[string]*EntityEntry, len(exp.Entities)),
		historySummaries:    append([]string(nil), exp.HistorySummaries...),
		styleGuide:          exp.StyleGuide,
		qualityFlags:        exp.QualityFlags,
		costStats:           exp.CostStats,
		conflictLog:         append([]ConflictEvent(nil), exp.ConflictLog...),
	}
	if s.maxHistorySummaries <= 0 {
		s.maxHistorySummaries = defaultMaxHistorySummaries
	}
	if s.qualityFlags.RetryCount == nil {
		s.qualityFlags.RetryCount = make(map[string]int)
	}
	for k, v := range exp.Glossary {
		entry := v
		s.glossary[k] = &entry
	}
	for k, v := range exp.Entities {
		entry := v
		s.entities[k] = &entry
	}
	return s
}

func copyStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func lastNNonEmpty(items []string, n int) []string {
	var out []string
	for i := len(items) - 1; i >= 0 && len(out) < n; i-- {
		if items[i] != "" {
			out = append([]string{items[i]}, out...)
		}
	}
	return out
}

func unionInts(a, b []int) []int {
	seen := make(map[int]struct{}, len(a)+len(b))
	out := make([]int, 0, len(a)+len(b))
	for _, v := range a {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	for _, v := range b {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
