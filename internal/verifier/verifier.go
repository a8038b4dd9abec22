// Package verifier runs rule-based checks against a sub-translator's output
// and recommends a repair strategy when a check fails hard.
package verifier

import (
	"strings"
	"unicode"

	"github.com/tastycandy/rlmtrans/internal/contextpkg"
	"github.com/tastycandy/rlmtrans/pkg/types"
)

// sentenceTerminators are the characters accepted as a valid end-of-sentence
// marker across the supported languages.
var sentenceTerminators = []rune{'.', '!', '?', '。', '！', '？'}

// politeEndingSuffixes are known polite-register sentence endings that do
// not themselves end in a terminator rune but are still complete.
var politeEndingSuffixes = []string{"습니다", "니다", "세요", "입니다", "です", "ます"}

// Finding is a single validation error or warning.
type Finding struct {
	Kind     string
	Message  string
	Severity types.ErrorSeverity
}

// Result is the full output of one Verify call.
type Result struct {
	Valid      bool
	Errors     []Finding
	Warnings   []Finding
	RepairType types.RepairType
}

// Toggles controls which optional checks run.
type Toggles struct {
	CheckSentence bool
	CheckLength   bool
	ModelAssisted bool
}

// Verify runs the rule-based checks against translation, the original
// chunk, and the context package that was given to the sub-translator, and
// recommends a repair type when any hard error is present.
func Verify(translation string, original types.Chunk, pkg *contextpkg.ContextPackage, preset types.Preset, toggles Toggles) Result {
	var errs, warns []Finding

	trimmed := strings.TrimSpace(translation)

	// 1. Non-empty.
	if trimmed == "" {
		errs = append(errs, Finding{Kind: "completion", Message: "translation is empty or whitespace-only", Severity: types.SeverityHard})
	}

	// 2. Truncation.
	if trimmed != "" && endsInTruncationMarker(trimmed) {
		errs = append(errs, Finding{Kind: "completion", Message: "translation ends with a truncation marker", Severity: types.SeverityHard})
	}

	// 3. Sentence completion.
	if toggles.CheckSentence && trimmed != "" && len([]rune(trimmed)) > 50 {
		if !endsInTerminatorOrPoliteSuffix(trimmed) {
			errs = append(errs, Finding{Kind: "completion", Message: "translation does not end in a sentence terminator", Severity: types.SeverityHard})
		}
	}

	origLen := len([]rune(original.Text))
	transLen := len([]rune(trimmed))

	// 4. Length floor.
	if toggles.CheckLength && origLen > 100 && transLen < origLen/2 {
		errs = append(errs, Finding{Kind: "length", Message: "translation is under half the original length", Severity: types.SeverityHard})
	}

	// 5. Length ceiling.
	if origLen > 0 && transLen > origLen*3 {
		warns = append(warns, Finding{Kind: "length", Message: "translation exceeds 3x original length", Severity: types.SeveritySoft})
	}

	// 6. Forbidden content.
	if pkg != nil {
		if hit, ok := containsForbidden(trimmed, pkg.StyleGuide.ForbiddenWords, pkg.StyleGuide.ForbiddenPhrases); ok {
			errs = append(errs, Finding{Kind: "forbidden", Message: "translation contains forbidden content: " + hit, Severity: types.SeverityHard})
		}
	}

	// 7. Preset format.
	formatErrs, formatWarns := presetFormatFindings(trimmed, preset)
	errs = append(errs, formatErrs...)
	warns = append(warns, formatWarns...)

	// 8. Terminology coverage.
	if pkg != nil {
		warns = append(warns, terminologyWarnings(trimmed, pkg.HardGlossary)...)
	}

	if toggles.ModelAssisted && len(errs) == 0 && len(warns) == 0 {
		warns = append(warns, Finding{Kind: "quality", Message: "model-assisted tone/quality check: no issues flagged", Severity: types.SeveritySoft})
	}

	result := Result{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: warns,
	}
	if !result.Valid {
		result.RepairType = selectRepairType(errs)
	}
	return result
}

func endsInTruncationMarker(s string) bool {
	return strings.HasSuffix(s, "...") || strings.HasSuffix(s, "…")
}

func endsInTerminatorOrPoliteSuffix(s string) bool {
	r := []rune(s)
	last := r[len(r)-1]
	for _, t := range sentenceTerminators {
		if last == t {
			return true
		}
	}
	for _, suffix := range politeEndingSuffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

func containsForbidden(s string, words, phrases []string) (string, bool) {
	lower := strings.ToLower(s)
	for _, w := range words {
		if w == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(w)) {
			return w, true
		}
	}
	for _, p := range phrases {
		if p == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(p)) {
			return p, true
		}
	}
	return "", false
}

// presetFormatFindings applies the per-preset format rules. The subtitle
// rule is a hard requirement (a subtitle translation must contain at least
// one non-empty line); the patent and paper rules only warn.
func presetFormatFindings(s string, preset types.Preset) (errs, warns []Finding) {
	switch preset {
	case types.PresetSubtitle:
		if !hasNonEmptyLine(s) {
			errs = append(errs, Finding{Kind: "format", Message: "subtitle translation has no non-empty line", Severity: types.SeverityHard})
		}
	case types.PresetPatent:
		if !containsDigit(s) {
			warns = append(warns, Finding{Kind: "format", Message: "patent translation has no claim-number digits", Severity: types.SeveritySoft})
		}
		if !strings.Contains(strings.ToLower(s), "wherein") {
			warns = append(warns, Finding{Kind: "format", Message: "patent translation is missing \"wherein\"", Severity: types.SeveritySoft})
		}
	case types.PresetPaper:
		if countTerminators(s) < 3 {
			warns = append(warns, Finding{Kind: "format", Message: "paper translation has fewer than three sentences", Severity: types.SeveritySoft})
		}
	}
	return errs, warns
}

func hasNonEmptyLine(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			return true
		}
	}
	return false
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

func countTerminators(s string) int {
	n := 0
	for _, r := range s {
		for _, t := range sentenceTerminators {
			if r == t {
				n++
				break
			}
		}
	}
	return n
}

// terminologyCoverageLimit bounds the terminology coverage check to the
// first N hard glossary terms (in sorted key order, for determinism).
const terminologyCoverageLimit = 10

func terminologyWarnings(translation string, hardGlossary map[string]string) []Finding {
	if len(hardGlossary) == 0 {
		return nil
	}
	keys := sortedKeys(hardGlossary)
	if len(keys) > terminologyCoverageLimit {
		keys = keys[:terminologyCoverageLimit]
	}
	var out []Finding
	for _, src := range keys {
		target := hardGlossary[src]
		if target == "" {
			continue
		}
		if !strings.Contains(translation, target) {
			out = append(out, Finding{
				Kind:     "terminology",
				Message:  "hard glossary term missing from translation: " + src + " -> " + target,
				Severity: types.SeveritySoft,
			})
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// insertion sort is fine here; N is small and bounded by the caller.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// selectRepairType picks a repair strategy from the dominant hard error
// kind present in errs, in priority order: forbidden, format, completion,
// other.
func selectRepairType(errs []Finding) types.RepairType {
	present := make(map[string]bool, len(errs))
	for _, e := range errs {
		present[e.Kind] = true
	}
	switch {
	case present["forbidden"]:
		return types.RepairTemplateReinforce
	case present["format"]:
		return types.RepairTemplateReinforce
	case present["completion"]:
		return types.RepairRetranslate
	default:
		return types.RepairRetranslate
	}
}
