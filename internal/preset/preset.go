// Package preset defines the document-class presets that shape a
// translation session: generation parameters, chunk sizing, style
// guidance, and the system-prompt scaffold a SubTranslator embeds.
// Built-in presets for {subtitle, patent, paper, novel, technical,
// general} always exist and cannot be deleted; a Registry additionally
// loads user-supplied presets from disk, one structured file per preset.
package preset

import (
	"github.com/tastycandy/rlmtrans/internal/state"
	"github.com/tastycandy/rlmtrans/pkg/types"
)

// LLMParams mirrors the provider gateway's generation parameters:
// temperature in [0,2], max_tokens >= 256, top_p in [0,1].
type LLMParams struct {
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	TopP        float64 `yaml:"top_p"`
}

// Preset bundles everything a document class needs: generation
// parameters, rules, chunk sizing, and style guidance.
type Preset struct {
	Name                string           `yaml:"name"`
	Description         string           `yaml:"description"`
	DocumentType        string           `yaml:"document_type"`
	LLMParams           LLMParams        `yaml:"llm_params"`
	ChunkSize           int              `yaml:"chunk_size"`
	PreserveFormatting  bool             `yaml:"preserve_formatting"`
	UseGlossary         bool             `yaml:"use_glossary"`
	SystemPrompt        string           `yaml:"system_prompt"`
	ContextInstructions string           `yaml:"context_instructions"`
	StyleGuide          state.StyleGuide `yaml:"style_guide"`
}

// ID returns the preset's [types.Preset] identifier derived from Name.
func (p Preset) ID() types.Preset {
	return types.Preset(p.Name)
}

// builtins are the six document-class presets every Registry is seeded
// with: a name-keyed table of fixed configuration, one entry per
// supported document type.
var builtins = map[types.Preset]Preset{
	types.PresetSubtitle: {
		Name:         string(types.PresetSubtitle),
		Description:  "Spoken subtitle dialogue; short, colloquial, timing-aware.",
		DocumentType: string(types.PresetSubtitle),
		LLMParams:    LLMParams{Temperature: 0.3, MaxTokens: 1024, TopP: 0.9},
		ChunkSize:    1200,
		SystemPrompt: "You translate subtitle dialogue. Keep lines short and natural to speak aloud.",
		StyleGuide:   state.StyleGuide{Tone: "colloquial", SentenceLength: "short"},
	},
	types.PresetPatent: {
		Name:               string(types.PresetPatent),
		Description:        "Patent specifications and claims; exact legal terminology.",
		DocumentType:       string(types.PresetPatent),
		LLMParams:          LLMParams{Temperature: 0.1, MaxTokens: 2048, TopP: 0.85},
		ChunkSize:          2500,
		PreserveFormatting: true,
		UseGlossary:        true,
		SystemPrompt:       "You translate patent documents. Preserve claim numbering, reference signs, and legal terminology exactly.",
		StyleGuide:         state.StyleGuide{Tone: "formal", SentenceLength: "long"},
	},
	types.PresetPaper: {
		Name:               string(types.PresetPaper),
		Description:        "Academic papers; precise tone, preserved citations and captions.",
		DocumentType:       string(types.PresetPaper),
		LLMParams:          LLMParams{Temperature: 0.2, MaxTokens: 2048, TopP: 0.9},
		ChunkSize:          2000,
		PreserveFormatting: true,
		UseGlossary:        true,
		SystemPrompt:       "You translate academic papers. Preserve citations, figure/table captions, and precise academic register.",
		StyleGuide:         state.StyleGuide{Tone: "academic", SentenceLength: "long"},
	},
	types.PresetNovel: {
		Name:         string(types.PresetNovel),
		Description:  "Literary prose; voice preservation and cultural adaptation.",
		DocumentType: string(types.PresetNovel),
		LLMParams:    LLMParams{Temperature: 0.7, MaxTokens: 2048, TopP: 0.95},
		ChunkSize:    2200,
		SystemPrompt: "You translate literary prose. Preserve each character's voice, naturalize idioms, and adapt cultural references.",
		StyleGuide:   state.StyleGuide{Tone: "literary", SentenceLength: "varied"},
	},
	types.PresetTechnical: {
		Name:               string(types.PresetTechnical),
		Description:        "Technical documentation; unambiguous, preserves code and structure.",
		DocumentType:       string(types.PresetTechnical),
		LLMParams:          LLMParams{Temperature: 0.15, MaxTokens: 2048, TopP: 0.9},
		ChunkSize:          2000,
		PreserveFormatting: true,
		UseGlossary:        true,
		SystemPrompt:       "You translate technical documentation. Be unambiguous; preserve code blocks, commands, placeholders, lists, and headings verbatim.",
		StyleGuide:         state.StyleGuide{Tone: "neutral", SentenceLength: "medium"},
	},
	types.PresetGeneral: {
		Name:         string(types.PresetGeneral),
		Description:  "General-purpose text; natural fluency.",
		DocumentType: string(types.PresetGeneral),
		LLMParams:    LLMParams{Temperature: 0.4, MaxTokens: 1536, TopP: 0.9},
		ChunkSize:    2000,
		SystemPrompt: "You translate general text. Write with natural fluency and preserve the original formatting.",
		StyleGuide:   state.StyleGuide{Tone: "neutral", SentenceLength: "medium"},
	},
}

// Builtin returns the built-in default for id and whether it exists.
func Builtin(id types.Preset) (Preset, bool) {
	p, ok := builtins[id]
	return p, ok
}

// BuiltinIDs returns the six built-in preset identifiers in a fixed order.
func BuiltinIDs() []types.Preset {
	return []types.Preset{
		types.PresetSubtitle,
		types.PresetPatent,
		types.PresetPaper,
		types.PresetNovel,
		types.PresetTechnical,
		types.PresetGeneral,
	}
}
