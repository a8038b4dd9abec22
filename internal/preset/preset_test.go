package preset

import (
	"testing"

	"github.com/tastycandy/rlmtrans/pkg/types"
)

func TestBuiltinCoversAllSixDocumentClasses(t *testing.T) {
	for _, id := range BuiltinIDs() {
		p, ok := Builtin(id)
		if !ok {
			t.Fatalf("Builtin(%q) missing", id)
		}
		if p.Name != string(id) {
			t.Errorf("Builtin(%q).Name = %q, want %q", id, p.Name, id)
		}
		if p.LLMParams.MaxTokens <= 0 {
			t.Errorf("Builtin(%q).LLMParams.MaxTokens = %d, want > 0", id, p.LLMParams.MaxTokens)
		}
		if p.ChunkSize <= 0 {
			t.Errorf("Builtin(%q).ChunkSize = %d, want > 0", id, p.ChunkSize)
		}
		if p.SystemPrompt == "" {
			t.Errorf("Builtin(%q).SystemPrompt is empty", id)
		}
	}
}

func TestBuiltinUnknownIDNotFound(t *testing.T) {
	if _, ok := Builtin("nonexistent"); ok {
		t.Fatalf("Builtin(%q) = ok, want missing", "nonexistent")
	}
}

func TestPatentAndTechnicalPreserveFormattingAndGlossary(t *testing.T) {
	for _, id := range []types.Preset{types.PresetPatent, types.PresetPaper, types.PresetTechnical} {
		p, ok := Builtin(id)
		if !ok {
			t.Fatalf("Builtin(%q) missing", id)
		}
		if !p.PreserveFormatting {
			t.Errorf("%s: PreserveFormatting = false, want true", id)
		}
		if !p.UseGlossary {
			t.Errorf("%s: UseGlossary = false, want true", id)
		}
	}
}
