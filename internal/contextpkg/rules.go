package contextpkg

import "github.com/tastycandy/rlmtrans/pkg/types"

// presetRules carries the canonical per-preset directive lists a
// sub-translator is instructed to follow. Order is fixed: it is the order
// the directives render in the serialized prompt.
var presetRules = map[types.Preset][]string{
	types.PresetSubtitle: {
		"Keep lines short and spoken, as if read aloud.",
		"Use colloquial, natural speech register.",
		"Preserve breaks that keep pace with subtitle timing.",
	},
	types.PresetPatent: {
		"Use exact legal terminology; avoid paraphrase.",
		"Preserve claim numbering exactly as given.",
		"Preserve reference numbers and figure citations verbatim.",
		"Favor literal translation over idiomatic rendering.",
	},
	types.PresetPaper: {
		"Use precise academic tone.",
		"Preserve citations exactly as given.",
		"Preserve figure and table captions.",
	},
	types.PresetNovel: {
		"Preserve each character's voice and register.",
		"Naturalize idioms into the target language's equivalent.",
		"Adapt cultural references for the target audience.",
	},
	types.PresetTechnical: {
		"Be unambiguous; prefer one correct reading over stylistic variety.",
		"Preserve code blocks, commands, and placeholders verbatim.",
		"Preserve list and heading structure.",
	},
	types.PresetGeneral: {
		"Write with natural fluency in the target language.",
		"Preserve the original formatting.",
	},
}

// RulesFor returns the directive list for preset, or the general preset's
// rules if preset is unrecognized.
func RulesFor(preset types.Preset) []string {
	if rules, ok := presetRules[preset]; ok {
		return append([]string(nil), rules...)
	}
	return append([]string(nil), presetRules[types.PresetGeneral]...)
}
