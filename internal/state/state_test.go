package state

import (
	"testing"

	"github.com/tastycandy/rlmtrans/pkg/types"
)

func newTestState(n int, strategy types.SelectionStrategy) *State {
	chunks := make([]types.Chunk, n)
	for i := range chunks {
		chunks[i] = types.Chunk{Index: i, Text: "chunk text"}
	}
	return New(types.PresetGeneral, chunks, strategy)
}

func TestAddChunkKeepsHistoriesAligned(t *testing.T) {
	s := newTestState(3, types.SelectionSequential)
	s.AddChunk("orig1", "trans1")
	s.AddChunk("orig2", "trans2")

	if got := s.TranslatedText(); got != "trans1trans2" {
		t.Errorf("TranslatedText = %q, want %q", got, "trans1trans2")
	}
	if qf := s.QualityFlags(); qf.CompletedChunks != 2 {
		t.Errorf("CompletedChunks = %d, want 2", qf.CompletedChunks)
	}
}

func TestAdaptivePreallocationEnablesOutOfOrderUpdate(t *testing.T) {
	s := newTestState(3, types.SelectionAdaptive)
	if !s.UpdateChunk(2, "third") {
		t.Fatal("UpdateChunk(2, ...) = false, want true after adaptive preallocation")
	}
	if !s.UpdateChunk(0, "first") {
		t.Fatal("UpdateChunk(0, ...) = false, want true")
	}
	qf := s.QualityFlags()
	if qf.CompletedChunks != 2 {
		t.Errorf("CompletedChunks = %d, want 2", qf.CompletedChunks)
	}
	remaining := s.RemainingIndices()
	if len(remaining) != 1 || remaining[0] != 1 {
		t.Errorf("RemainingIndices = %v, want [1]", remaining)
	}
}

func TestAddGlossaryEntryUpsertMerges(t *testing.T) {
	s := newTestState(1, types.SelectionSequential)
	s.AddGlossaryEntry("controller", "Controller", 0.5, []int{0}, false)
	s.AddGlossaryEntry("controller", "Kontroller", 0.9, []int{1, 0}, false)

	e, ok := s.GlossaryEntry("controller")
	if !ok {
		t.Fatal("GlossaryEntry missing after upsert")
	}
	if e.Target != "Kontroller" {
		t.Errorf("Target = %q, want Kontroller", e.Target)
	}
	if e.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9 (max-merged)", e.Confidence)
	}
	if len(e.SourceChunkIndices) != 2 {
		t.Errorf("SourceChunkIndices = %v, want union of length 2", e.SourceChunkIndices)
	}
	if e.UsageCount != 2 {
		t.Errorf("UsageCount = %d, want 2", e.UsageCount)
	}
}

// Invariant 3: every hard_glossary term is also in confirmed_terms with an
// identical mapping.
func TestHardGlossaryImpliesConfirmed(t *testing.T) {
	s := newTestState(1, types.SelectionSequential)
	s.AddHardTerm("widget", "Gadget", []int{0})

	hard := s.HardGlossary()
	confirmed := s.ConfirmedTerms()
	if hard["widget"] != "Gadget" {
		t.Fatalf("HardGlossary[widget] = %q, want Gadget", hard["widget"])
	}
	if confirmed["widget"] != hard["widget"] {
		t.Errorf("ConfirmedTerms[widget] = %q, want %q", confirmed["widget"], hard["widget"])
	}
}

// Invariant 4: reference_signs entries are always also hard_glossary entries.
func TestReferenceSignIsAlwaysHard(t *testing.T) {
	s := newTestState(1, types.SelectionSequential)
	s.AddReferenceSign("100", "Controller (100)", nil)

	hard := s.HardGlossary()
	if hard["100"] != "Controller (100)" {
		t.Errorf("reference sign not promoted to hard glossary: %v", hard)
	}
}

// Invariant 6: term_candidates and confirmed_terms are disjoint on keys.
func TestProposeThenConfirmRemovesFromCandidates(t *testing.T) {
	s := newTestState(1, types.SelectionSequential)
	s.ProposeTerms(map[string]string{"A": "alpha", "B": "beta"})
	s.UpdateGlossary("A", "alpha", true)

	candidates := s.termCandidates
	if _, stillCandidate := candidates["A"]; stillCandidate {
		t.Error("A still present in term_candidates after confirmation")
	}
	if _, stillCandidate := candidates["B"]; !stillCandidate {
		t.Error("B should remain a candidate")
	}
	confirmed := s.ConfirmedTerms()
	if confirmed["A"] != "alpha" {
		t.Errorf("ConfirmedTerms[A] = %q, want alpha", confirmed["A"])
	}
}

func TestProposeTermsSkipsAlreadyConfirmed(t *testing.T) {
	s := newTestState(1, types.SelectionSequential)
	s.UpdateGlossary("A", "alpha", true)
	s.ProposeTerms(map[string]string{"A": "different"})

	if _, isCandidate := s.termCandidates["A"]; isCandidate {
		t.Error("A should not become a candidate once confirmed")
	}
}

// Invariant 5: history_summaries length <= max_history_summaries.
func TestHistorySummariesSlidingWindow(t *testing.T) {
	s := newTestState(1, types.SelectionSequential)
	for i := 0; i < 8; i++ {
		s.AddHistorySummary("summary")
	}
	snap := s.GetContextPackage()
	if len(snap.HistorySummaries) != defaultMaxHistorySummaries {
		t.Errorf("len(HistorySummaries) = %d, want %d", len(snap.HistorySummaries), defaultMaxHistorySummaries)
	}
}

func TestRecordErrorIncrementsFailedChunks(t *testing.T) {
	s := newTestState(1, types.SelectionSequential)
	s.RecordError(0, "completion", "empty translation")
	qf := s.QualityFlags()
	if qf.FailedChunks != 1 {
		t.Errorf("FailedChunks = %d, want 1", qf.FailedChunks)
	}
	if len(qf.ErrorChunks) != 1 || qf.ErrorChunks[0].Kind != "completion" {
		t.Errorf("ErrorChunks = %+v", qf.ErrorChunks)
	}
}

func TestRecordRetryLeavesFailedChunksUntouched(t *testing.T) {
	s := newTestState(1, types.SelectionSequential)
	s.RecordRetry("forbidden")
	s.RecordRetry("forbidden")
	qf := s.QualityFlags()
	if qf.RetryCount["forbidden"] != 2 {
		t.Errorf("RetryCount[forbidden] = %d, want 2", qf.RetryCount["forbidden"])
	}
	if qf.FailedChunks != 0 {
		t.Errorf("FailedChunks = %d, want 0: a repair attempt is not a failure", qf.FailedChunks)
	}
	if len(qf.ErrorChunks) != 0 {
		t.Errorf("ErrorChunks = %+v, want empty", qf.ErrorChunks)
	}
}

func TestCheckTermConflictDetectsDivergence(t *testing.T) {
	s := newTestState(1, types.SelectionSequential)
	s.UpdateGlossary("A", "alpha", true)

	if _, conflict := s.CheckTermConflict("A", "alpha"); conflict {
		t.Error("identical mapping should not be a conflict")
	}
	existing, conflict := s.CheckTermConflict("A", "omega")
	if !conflict || existing != "alpha" {
		t.Errorf("CheckTermConflict = (%q, %v), want (alpha, true)", existing, conflict)
	}
}

func TestResetClearsEverything(t *testing.T) {
	s := newTestState(2, types.SelectionSequential)
	s.AddChunk("o", "t")
	s.AddHardTerm("x", "y", []int{0})
	s.AddHistorySummary("note")
	s.RecordError(0, "completion", "bad")

	s.Reset()

	if s.TranslatedText() != "" {
		t.Error("TranslatedText not cleared after Reset")
	}
	if len(s.HardGlossary()) != 0 {
		t.Error("HardGlossary not cleared after Reset")
	}
	qf := s.QualityFlags()
	if qf.FailedChunks != 0 || qf.CompletedChunks != 0 {
		t.Errorf("counters not cleared: %+v", qf)
	}
	snap := s.GetContextPackage()
	if len(snap.HistorySummaries) != 0 {
		t.Error("HistorySummaries not cleared after Reset")
	}
}

func TestGlossaryTextSortedOutput(t *testing.T) {
	s := newTestState(1, types.SelectionSequential)
	s.AddHardTerm("zeta", "Z", nil)
	s.AddHardTerm("alpha", "A", nil)

	want := "alpha -> A\nzeta -> Z\n"
	if got := s.HardGlossaryText(); got != want {
		t.Errorf("HardGlossaryText = %q, want %q", got, want)
	}
}
