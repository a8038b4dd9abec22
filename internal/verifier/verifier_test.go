package verifier

import (
	"strings"
	"testing"

	"github.com/tastycandy/rlmtrans/internal/contextpkg"
	"github.com/tastycandy/rlmtrans/internal/state"
	"github.com/tastycandy/rlmtrans/pkg/types"
)

func TestVerifyEmptyTranslationIsHardCompletionError(t *testing.T) {
	result := Verify("   ", types.Chunk{Text: "hello"}, nil, types.PresetGeneral, Toggles{})
	if result.Valid {
		t.Fatal("Valid = true, want false")
	}
	if len(result.Errors) != 1 || result.Errors[0].Kind != "completion" {
		t.Errorf("Errors = %+v, want one completion error", result.Errors)
	}
}

func TestVerifyTruncationMarkerIsHardError(t *testing.T) {
	result := Verify("안녕하세요 세계…", types.Chunk{Text: "hello world"}, nil, types.PresetGeneral, Toggles{})
	if result.Valid {
		t.Fatal("Valid = true, want false")
	}
	found := false
	for _, e := range result.Errors {
		if e.Kind == "completion" {
			found = true
		}
	}
	if !found {
		t.Errorf("Errors = %+v, want a completion error for truncation", result.Errors)
	}
}

func TestVerifySentenceCompletionToggleOnFlagsMissingTerminator(t *testing.T) {
	translation := strings.Repeat("가", 60) + "말이"
	result := Verify(translation, types.Chunk{Text: "source"}, nil, types.PresetGeneral, Toggles{CheckSentence: true})
	if result.Valid {
		t.Fatal("Valid = true, want false with check_sentence on and no terminator")
	}
}

func TestVerifySentenceCompletionToggleOffSkipsCheck(t *testing.T) {
	translation := strings.Repeat("가", 60) + "말이"
	result := Verify(translation, types.Chunk{Text: "source"}, nil, types.PresetGeneral, Toggles{CheckSentence: false})
	if !result.Valid {
		t.Errorf("Valid = false, want true when check_sentence is off: %+v", result.Errors)
	}
}

func TestVerifyLengthFloorHardErrorWhenUnderHalf(t *testing.T) {
	original := types.Chunk{Text: strings.Repeat("word ", 40)} // > 100 chars
	short := "short."
	result := Verify(short, original, nil, types.PresetGeneral, Toggles{CheckLength: true})
	if result.Valid {
		t.Fatal("Valid = true, want false: translation under half original length")
	}
}

func TestVerifyLengthCeilingIsSoftWarningOnly(t *testing.T) {
	original := types.Chunk{Text: "short"}
	long := strings.Repeat("word ", 10) + "."
	result := Verify(long, original, nil, types.PresetGeneral, Toggles{})
	if !result.Valid {
		t.Errorf("Valid = false, want true: length ceiling is a soft warning, not a hard error")
	}
	found := false
	for _, w := range result.Warnings {
		if w.Kind == "length" {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %+v, want a length warning", result.Warnings)
	}
}

func TestVerifyForbiddenWordIsCaseInsensitiveHardError(t *testing.T) {
	pkg := &contextpkg.ContextPackage{
		StyleGuide: state.StyleGuide{ForbiddenWords: []string{"lorem"}},
	}
	result := Verify("This contains Lorem ipsum.", types.Chunk{Text: "source"}, pkg, types.PresetGeneral, Toggles{})
	if result.Valid {
		t.Fatal("Valid = true, want false: forbidden word present")
	}
	if result.RepairType != types.RepairTemplateReinforce {
		t.Errorf("RepairType = %q, want template_reinforce", result.RepairType)
	}
}

func TestVerifySubtitlePresetEmptyLineIsHardFormatError(t *testing.T) {
	result := Verify("\n  \n", types.Chunk{Text: "x"}, nil, types.PresetSubtitle, Toggles{})
	if result.Valid {
		t.Fatal("Valid = true, want false for a subtitle with no non-empty line")
	}
	var hardFormat bool
	for _, e := range result.Errors {
		if e.Kind == "format" && e.Severity == types.SeverityHard {
			hardFormat = true
		}
	}
	if !hardFormat {
		t.Errorf("Errors = %+v, want a hard format error", result.Errors)
	}
	if result.RepairType != types.RepairTemplateReinforce {
		t.Errorf("RepairType = %q, want template_reinforce for a format error", result.RepairType)
	}
}

func TestVerifyPatentPresetWarnsWithoutWhereinOrDigits(t *testing.T) {
	result := Verify("a plain sentence with no markers.", types.Chunk{Text: "source"}, nil, types.PresetPatent, Toggles{})
	if !result.Valid {
		t.Fatalf("Valid = false, want true (format issues are soft): %+v", result.Errors)
	}
	kinds := map[string]int{}
	for _, w := range result.Warnings {
		kinds[w.Kind]++
	}
	if kinds["format"] < 2 {
		t.Errorf("Warnings = %+v, want format warnings for missing digits and wherein", result.Warnings)
	}
}

func TestVerifyTerminologyCoverageWarnsOnMissingHardTerm(t *testing.T) {
	pkg := &contextpkg.ContextPackage{
		HardGlossary: map[string]string{"widget": "Gerät"},
	}
	result := Verify("Ein Satz ohne den Begriff.", types.Chunk{Text: "A sentence with widget."}, pkg, types.PresetGeneral, Toggles{})
	if !result.Valid {
		t.Fatalf("Valid = false, want true (terminology coverage is soft): %+v", result.Errors)
	}
	found := false
	for _, w := range result.Warnings {
		if w.Kind == "terminology" {
			found = true
		}
	}
	if !found {
		t.Errorf("Warnings = %+v, want a terminology warning", result.Warnings)
	}
}

func TestVerifyValidTranslationProducesNoFindings(t *testing.T) {
	result := Verify("Hallo Welt.", types.Chunk{Text: "Hello world."}, nil, types.PresetGeneral, Toggles{CheckSentence: true, CheckLength: true})
	if !result.Valid {
		t.Fatalf("Valid = false, want true: %+v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Warnings = %+v, want none", result.Warnings)
	}
}

func TestSelectRepairTypePriorityOrder(t *testing.T) {
	cases := []struct {
		kinds []string
		want  types.RepairType
	}{
		{[]string{"completion"}, types.RepairRetranslate},
		{[]string{"forbidden", "completion"}, types.RepairTemplateReinforce},
		{[]string{"format"}, types.RepairTemplateReinforce},
		{[]string{"length"}, types.RepairRetranslate},
	}
	for _, c := range cases {
		var findings []Finding
		for _, k := range c.kinds {
			findings = append(findings, Finding{Kind: k, Severity: types.SeverityHard})
		}
		got := selectRepairType(findings)
		if got != c.want {
			t.Errorf("selectRepairType(%v) = %q, want %q", c.kinds, got, c.want)
		}
	}
}
