// Package orchestrator drives the per-chunk translation round: plan,
// retrieve, translate, verify, repair, commit. It is the sole writer of
// [state.State] and the only component aware of the full session lifecycle.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tastycandy/rlmtrans/internal/chunk"
	"github.com/tastycandy/rlmtrans/internal/contextpkg"
	"github.com/tastycandy/rlmtrans/internal/glossary"
	"github.com/tastycandy/rlmtrans/internal/preset"
	"github.com/tastycandy/rlmtrans/internal/state"
	"github.com/tastycandy/rlmtrans/internal/subtranslator"
	"github.com/tastycandy/rlmtrans/internal/verifier"
	"github.com/tastycandy/rlmtrans/pkg/memory"
	"github.com/tastycandy/rlmtrans/pkg/provider/llm"
	"github.com/tastycandy/rlmtrans/pkg/types"
)

// defaultMaxRetries is the per-chunk repair budget when Config.MaxRetries
// is left unset.
const defaultMaxRetries = 2

// defaultProviderTimeout bounds a single TRANSLATE or model-assisted VERIFY
// call to the provider.
const defaultProviderTimeout = 120 * time.Second

// safetyBoundExtraRounds caps total rounds at total_chunks+10 even if
// selection logic would otherwise loop.
const safetyBoundExtraRounds = 10

// Observer receives progress and lifecycle events from a running session.
// All methods may be called from the orchestrator's single goroutine only;
// implementations that fan out to other goroutines must synchronize
// themselves.
type Observer interface {
	Progress(message string, fraction float64)
	Step(name string)
	QualityFlags(flags []types.QualityFlag)
	CostStats(cost float64, calls int, chunks int)
	Repair(repairType types.RepairType, message string)
}

// NoopObserver implements Observer with no-ops, for callers that don't need
// progress reporting.
type NoopObserver struct{}

func (NoopObserver) Progress(string, float64)         {}
func (NoopObserver) Step(string)                      {}
func (NoopObserver) QualityFlags([]types.QualityFlag) {}
func (NoopObserver) CostStats(float64, int, int)      {}
func (NoopObserver) Repair(types.RepairType, string)  {}

// Config configures one orchestration run.
type Config struct {
	SourceLang string
	TargetLang string
	MaxRetries *int // nil uses the default budget of 2; an explicit 0 disables repairs.
	Toggles    verifier.Toggles
	Observer   Observer

	// SessionID and Store, when both set, make each COMMIT also persist a
	// snapshot of project memory (see [memory.StateStore]) so a crashed or
	// restarted process can resume the session with [Resume] instead of
	// starting over from chunk zero. Snapshot failures are logged through
	// Observer.Repair (reusing the existing side-channel rather than adding
	// a new one) and never abort the run — persistence is best-effort.
	SessionID string
	Store     memory.StateStore
}

// Result is the final payload returned from Run: success, the assembled
// text, counters, glossary, and cost accounting.
type Result struct {
	Success        bool
	TranslatedText string
	SourceLang     string
	TargetLang     string
	ChunksCount    int
	Glossary       map[string]string
	CostSummary    state.CostStats
	PresetUsed     types.Preset
	ErrorMessage   string
}

// Orchestrator drives the six-phase loop over a State's chunk plan.
type Orchestrator struct {
	state       *state.State
	translator  *subtranslator.Translator
	preset      preset.Preset
	glossaryMgr *glossary.Manager
	cfg         Config

	cancelled atomic.Bool
}

// New creates an Orchestrator over st using gateway for TRANSLATE calls and
// p as the active preset. cfg.Observer defaults to NoopObserver when nil.
func New(st *state.State, gateway llm.Gateway, p preset.Preset, mgr *glossary.Manager, cfg Config) *Orchestrator {
	if cfg.Observer == nil {
		cfg.Observer = NoopObserver{}
	}
	return &Orchestrator{
		state:       st,
		translator:  subtranslator.New(gateway, cfg.TargetLang),
		preset:      p,
		glossaryMgr: mgr,
		cfg:         cfg,
	}
}

// Cancel requests the run stop at the next phase boundary. In-flight
// provider calls are not aborted; their results are discarded on return.
func (o *Orchestrator) Cancel() {
	o.cancelled.Store(true)
}

func (o *Orchestrator) maxRetries() int {
	if o.cfg.MaxRetries == nil {
		return defaultMaxRetries
	}
	if *o.cfg.MaxRetries < 0 {
		return 0
	}
	return *o.cfg.MaxRetries
}

// Run executes rounds until every chunk has been attempted, the cancel flag
// is set, or the safety bound is reached. It never returns an error for
// per-chunk failures — those are absorbed into State's error log and the
// result counters — only for a fatal invariant violation or construction
// problem.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	total := o.state.TotalChunks()
	maxRounds := total + safetyBoundExtraRounds

	for round := 0; round < maxRounds; round++ {
		if o.cancelled.Load() || ctx.Err() != nil {
			o.cfg.Observer.Step("cancelled")
			break
		}

		index, done := o.planNext()
		if done {
			break
		}

		if err := o.runRound(ctx, index); err != nil {
			return nil, fmt.Errorf("orchestrator: round for chunk %d: %w", index, err)
		}

		qf := o.state.QualityFlags()
		o.cfg.Observer.Progress(
			fmt.Sprintf("chunk %d/%d", qf.CompletedChunks+qf.FailedChunks, total),
			float64(qf.CompletedChunks+qf.FailedChunks)/float64(max1(total)),
		)
	}

	return o.buildResult(), nil
}

// planNext implements PLAN: select_next_chunk(strategy). Returns the
// sentinel done=true when no chunks remain.
func (o *Orchestrator) planNext() (int, bool) {
	o.cfg.Observer.Step("PLAN")

	switch o.state.Strategy() {
	case types.SelectionAdaptive, types.SelectionPriority:
		return o.selectAdaptive()
	default:
		remaining := o.state.RemainingIndices()
		if len(remaining) == 0 {
			return 0, true
		}
		return remaining[0], false
	}
}

// selectAdaptive picks the remaining index with the highest Jaccard
// word-overlap similarity to the most recently committed translation,
// lower index breaking ties. Falls back to the lowest remaining index when
// no translation has been committed yet.
func (o *Orchestrator) selectAdaptive() (int, bool) {
	remaining := o.state.RemainingIndices()
	if len(remaining) == 0 {
		return 0, true
	}

	anchor, ok := o.state.MostRecentCommittedTranslation()
	if !ok {
		return remaining[0], false
	}

	best := remaining[0]
	bestScore := -1.0
	for _, idx := range remaining {
		c, ok := o.state.Chunk(idx)
		if !ok {
			continue
		}
		score := jaccardSimilarity(anchor, c.Text)
		if score > bestScore {
			bestScore = score
			best = idx
		}
	}
	return best, false
}

// runRound executes RETRIEVE through COMMIT for chunk index.
func (o *Orchestrator) runRound(ctx context.Context, index int) error {
	o.cfg.Observer.Step("RETRIEVE")
	original, ok := o.state.Chunk(index)
	if !ok {
		return fmt.Errorf("chunk %d not found in plan", index)
	}

	callCtx, cancel := context.WithTimeout(ctx, defaultProviderTimeout)
	defer cancel()

	o.cfg.Observer.Step("TRANSLATE")
	result, err := o.translator.Translate(callCtx, o.state, o.preset, original, index)
	if err != nil {
		o.state.RecordError(index, providerErrorKind(err), err.Error())
		return o.finishFailedChunk(ctx, index, original.Text)
	}
	o.state.RecordCost(result.TokenUsage.Cost, result.TokenUsage.TotalTokens, result.Duration, "sub")

	translation := result.Translation
	retries := 0
	var lastVerify verifier.Result

	for {
		o.cfg.Observer.Step("VERIFY")
		pkg, pkgErr := contextpkg.Build(ctx, o.state, o.preset.ID(), original, index)
		if pkgErr != nil {
			return fmt.Errorf("build context for verify: %w", pkgErr)
		}
		lastVerify = verifier.Verify(translation, original, pkg, o.preset.ID(), o.cfg.Toggles)

		if lastVerify.Valid {
			flag := types.QualityFresh
			if retries > 0 {
				flag = types.QualityRepaired
			}
			o.commit(ctx, index, original.Text, translation, result.TermCandidates, flag)
			return nil
		}

		if retries >= o.maxRetries() {
			o.state.RecordError(index, string(lastVerify.RepairType), "repair budget exhausted: "+joinFindingMessages(lastVerify.Errors))
			o.commit(ctx, index, original.Text, translation, result.TermCandidates, types.QualityFailed)
			return nil
		}

		effectiveType := o.effectiveRepairType(original, result.TermCandidates, lastVerify)
		o.state.RecordRetry(dominantFindingKind(lastVerify.Errors))

		o.cfg.Observer.Step("REPAIR")
		o.cfg.Observer.Repair(effectiveType, joinFindingMessages(lastVerify.Errors))

		lastVerify.RepairType = effectiveType
		repaired, repairErr := o.repair(ctx, index, original, translation, result.TermCandidates, lastVerify)
		retries++
		if repairErr != nil {
			o.state.RecordError(index, providerErrorKind(repairErr), repairErr.Error())
			o.commit(ctx, index, original.Text, translation, result.TermCandidates, types.QualityFailed)
			return nil
		}
		translation = repaired.Translation
		result = repaired
	}
}

func (o *Orchestrator) finishFailedChunk(ctx context.Context, index int, sourceText string) error {
	o.commit(ctx, index, sourceText, "", nil, types.QualityFailed)
	return nil
}

// repair dispatches by repair_type. split_chunk is engine-level: it
// re-chunks the original text at a sentence boundary and retranslates the
// first half in place, a best-effort approximation since the plan's chunk
// boundaries are otherwise fixed once seeded.
func (o *Orchestrator) repair(ctx context.Context, index int, original types.Chunk, previous string, candidates map[string]string, v verifier.Result) (subtranslator.Result, error) {
	switch v.RepairType {
	case types.RepairTemplateReinforce:
		o.translator.SystemSuffix = "The previous attempt violated a hard requirement: " +
			joinFindingMessages(v.Errors) + ". Previous attempt: " + previous + ". Correct it strictly."
		defer func() { o.translator.SystemSuffix = "" }()
		return o.translator.Translate(ctx, o.state, o.preset, original, index)

	case types.RepairGlossaryUpdate:
		o.applyGlossaryUpdate(candidates)
		return o.translator.Translate(ctx, o.state, o.preset, original, index)

	case types.RepairSplitChunk:
		head, _, ok := chunk.SplitAtSentenceBoundary(original.Text)
		if !ok {
			return o.translator.Translate(ctx, o.state, o.preset, original, index)
		}
		return o.translator.Translate(ctx, o.state, o.preset, types.Chunk{Index: original.Index, Text: head}, index)

	case types.RepairContextAdjust:
		o.state.AddHistorySummary(fmt.Sprintf("chunk %d: context refreshed after stale-summary repair", index))
		return o.translator.Translate(ctx, o.state, o.preset, original, index)

	default: // re_translate and any unrecognized type
		return o.translator.Translate(ctx, o.state, o.preset, original, index)
	}
}

// effectiveRepairType takes the verifier's dominant-error recommendation and
// overrides it with an orchestrator-level signal when one applies: a known
// term conflict among the candidates just returned, or an oversize chunk
// relative to the active preset. Both are "additional repair types, chosen
// by the orchestrator based on error context" per the repair dispatch table.
func (o *Orchestrator) effectiveRepairType(original types.Chunk, candidates map[string]string, v verifier.Result) types.RepairType {
	for src, tgt := range candidates {
		if _, conflict := o.state.CheckTermConflict(src, tgt); conflict {
			return types.RepairGlossaryUpdate
		}
	}
	if o.preset.ChunkSize > 0 && len([]rune(original.Text)) > o.preset.ChunkSize {
		return types.RepairSplitChunk
	}
	return v.RepairType
}

// applyGlossaryUpdate resolves every candidate that conflicts with an
// existing glossary mapping through the configured GlossaryManager rule,
// recording the losing option in the conflict log rather than discarding
// it. The winner is promoted to the hard tier: once a conflict has been
// resolved explicitly, the mapping is enforced, not merely preferred.
func (o *Orchestrator) applyGlossaryUpdate(candidates map[string]string) {
	for src, tgt := range candidates {
		existing, hasExisting := o.state.GlossaryEntry(src)
		if !hasExisting {
			continue
		}
		if existing.Target == tgt {
			continue
		}
		resolved, ev := o.glossaryMgr.Resolve(&existing, glossary.Proposal{
			Term: src, Target: tgt, Origin: glossary.OriginDocument, Confidence: 0.5,
		})
		o.state.RecordConflict(ev)
		if glossary.ClassifyTerm(src) == glossary.KindReferenceSign {
			o.state.AddReferenceSign(src, resolved, nil)
		} else {
			o.state.AddHardTerm(src, resolved, nil)
		}
	}
}

// commit implements COMMIT: write the translation, append a context
// summary, fold accepted term candidates into term_candidates, and report
// the chunk's terminal quality flag.
func (o *Orchestrator) commit(ctx context.Context, index int, source, translation string, candidates map[string]string, flag types.QualityFlag) {
	if o.state.Strategy() == types.SelectionSequential && index == o.state.CurrentChunkIndex() {
		o.state.AddChunk(source, translation)
	} else {
		o.state.SeedChunkHistory(index, source)
		o.state.UpdateChunk(index, translation)
	}

	if len(candidates) > 0 {
		o.ingestCandidates(index, candidates)
	}

	switch flag {
	case types.QualityFresh:
		o.state.AddHistorySummary(fmt.Sprintf("Chunk %d/%d completed successfully", index+1, o.state.TotalChunks()))
	case types.QualityRepaired:
		o.state.AddHistorySummary(fmt.Sprintf("Chunk %d/%d completed after repair", index+1, o.state.TotalChunks()))
	case types.QualityFailed:
		o.state.AddHistorySummary(fmt.Sprintf("Chunk %d/%d failed after repair budget exhausted", index+1, o.state.TotalChunks()))
	}

	o.cfg.Observer.QualityFlags([]types.QualityFlag{flag})
	cs := o.state.CostStats()
	o.cfg.Observer.CostStats(cs.TotalCost, cs.SubCalls+cs.RootCalls+cs.VerifierCalls, o.state.TotalChunks())

	o.snapshot(ctx)
}

// ingestCandidates folds the sub-translator's term proposals into project
// memory. Candidates whose source term classifies as a reference sign, a
// proper noun, or a technical term go straight into the corresponding
// typed subset — reference signs and proper nouns at the hard tier, so
// their mappings are enforced by the verifier's terminology check from the
// next round on. Everything else stays in term_candidates pending
// promotion.
func (o *Orchestrator) ingestCandidates(index int, candidates map[string]string) {
	pending := make(map[string]string, len(candidates))
	for src, tgt := range candidates {
		switch glossary.ClassifyTerm(src) {
		case glossary.KindReferenceSign:
			o.state.AddReferenceSign(src, tgt, []int{index})
		case glossary.KindProperNoun:
			o.state.AddProperNoun(src, tgt, []int{index})
		case glossary.KindTechnical:
			o.state.AddTechnicalTerm(src, tgt, []int{index}, false)
		default:
			pending[src] = tgt
		}
	}
	if len(pending) > 0 {
		o.state.ProposeTerms(pending)
	}
}

// snapshot persists the current project memory through cfg.Store, if both
// SessionID and Store are configured. Failures are reported through the
// Repair observer channel and otherwise swallowed: persistence is a resume
// convenience, never a correctness requirement — State stays the
// authoritative in-memory record for the running process.
func (o *Orchestrator) snapshot(ctx context.Context) {
	if o.cfg.Store == nil || o.cfg.SessionID == "" {
		return
	}
	err := o.cfg.Store.SaveSnapshot(ctx, memory.SessionSnapshot{
		SessionID: o.cfg.SessionID,
		State:     o.state.Export(),
		UpdatedAt: time.Now(),
	})
	if err != nil {
		o.cfg.Observer.Repair(types.RepairContextAdjust, "snapshot save failed: "+err.Error())
	}
}

// Resume reconstructs an Orchestrator from a previously persisted snapshot
// for sessionID, for continuing a long document after a crash or restart.
// Returns (nil, nil, false, nil) when no snapshot exists — not an error.
func Resume(ctx context.Context, store memory.StateStore, sessionID string, gateway llm.Gateway, p preset.Preset, mgr *glossary.Manager, cfg Config) (*Orchestrator, *state.State, bool, error) {
	snap, err := store.LoadSnapshot(ctx, sessionID)
	if err != nil {
		return nil, nil, false, fmt.Errorf("orchestrator: resume: load snapshot: %w", err)
	}
	if snap == nil {
		return nil, nil, false, nil
	}
	st := state.Import(snap.State)
	cfg.SessionID = sessionID
	cfg.Store = store
	return New(st, gateway, p, mgr, cfg), st, true, nil
}

func (o *Orchestrator) buildResult() *Result {
	qf := o.state.QualityFlags()
	success := qf.FailedChunks < qf.TotalChunks || qf.TotalChunks == 0

	hard := o.state.HardGlossary()
	soft := o.state.SoftGlossary()
	merged := make(map[string]string, len(hard)+len(soft))
	for k, v := range soft {
		merged[k] = v
	}
	for k, v := range hard {
		merged[k] = v
	}

	var errMsg string
	if qf.FailedChunks > 0 {
		errMsg = fmt.Sprintf("%d of %d chunks failed", qf.FailedChunks, qf.TotalChunks)
	}

	return &Result{
		Success:        success,
		TranslatedText: o.state.TranslatedText(),
		SourceLang:     o.cfg.SourceLang,
		TargetLang:     o.cfg.TargetLang,
		ChunksCount:    qf.TotalChunks,
		Glossary:       merged,
		CostSummary:    o.state.CostStats(),
		PresetUsed:     o.state.Preset(),
		ErrorMessage:   errMsg,
	}
}

// dominantFindingKind returns the Kind of the first hard error in errs,
// preferring forbidden/format over completion/other, matching the priority
// verifier.selectRepairType uses to pick a repair strategy. Used as the
// retry-counter key so RetryCount stays aligned with what actually triggered
// the repair.
func dominantFindingKind(errs []verifier.Finding) string {
	present := make(map[string]bool, len(errs))
	for _, e := range errs {
		present[e.Kind] = true
	}
	switch {
	case present["forbidden"]:
		return "forbidden"
	case present["format"]:
		return "format"
	case present["completion"]:
		return "completion"
	case len(errs) > 0:
		return errs[0].Kind
	default:
		return "other"
	}
}

func joinFindingMessages(findings []verifier.Finding) string {
	msgs := make([]string, 0, len(findings))
	for _, f := range findings {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

func max1(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// providerErrorKind refines the error-log kind for a failed TRANSLATE call
// when the gateway classified the failure ("provider_timeout",
// "provider_auth", ...), falling back to plain "provider".
func providerErrorKind(err error) string {
	var pe *llm.ProviderError
	if errors.As(err, &pe) {
		return "provider_" + pe.Kind
	}
	return "provider"
}
