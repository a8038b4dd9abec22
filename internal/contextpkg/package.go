// Package contextpkg builds the structured payload a SubTranslator needs
// to translate one chunk: preset rules, glossary tiers, local context, and
// the chunk itself, plus a deterministic string rendering for prompt
// embedding and golden-file testing.
package contextpkg

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tastycandy/rlmtrans/internal/state"
	"github.com/tastycandy/rlmtrans/pkg/types"
)

// maxEntityTranslations bounds the entity_translations field to the most
// frequently used entities.
const maxEntityTranslations = 20

// LocalContext carries the sliding-window fields specific to one round.
type LocalContext struct {
	RecentOriginals    []string
	RecentTranslations []string
	ContextSummaries   []string
	EntityTranslations map[string]string
}

// ContextPackage is the full payload delivered to a sub-translator for one
// chunk. Field order here is the field order String() renders in, except
// that ChunkIndex is rendered before Chunk.
type ContextPackage struct {
	Rules          []string
	HardGlossary   map[string]string
	SoftGlossary   map[string]string
	ConfirmedTerms map[string]string
	ProperNouns    map[string]string
	ReferenceSigns map[string]string
	StyleGuide     state.StyleGuide
	LocalContext   LocalContext
	DocumentType   string
	Chunk          string
	ChunkIndex     int
}

// Build assembles a ContextPackage for chunk at chunkIndex against st's
// current snapshot. Independent fields are fetched concurrently via
// errgroup, matching the fan-out pattern used elsewhere in this module for
// context assembly; none of the current fetches can fail, but the shape
// keeps cancellation propagation consistent if a future field is sourced
// from an external store (e.g. a semantic glossary index).
func Build(ctx context.Context, st *state.State, preset types.Preset, chunk types.Chunk, chunkIndex int) (*ContextPackage, error) {
	snap := st.GetContextPackage()

	var (
		rules []string
		local LocalContext
	)

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		rules = RulesFor(preset)
		return nil
	})

	eg.Go(func() error {
		if err := egCtx.Err(); err != nil {
			return fmt.Errorf("contextpkg: build local context: %w", err)
		}
		local = buildLocalContext(snap)
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return &ContextPackage{
		Rules:          rules,
		HardGlossary:   snap.HardGlossary,
		SoftGlossary:   snap.SoftGlossary,
		ConfirmedTerms: snap.ConfirmedTerms,
		ProperNouns:    snap.ProperNouns,
		ReferenceSigns: snap.ReferenceSigns,
		StyleGuide:     snap.StyleGuide,
		LocalContext:   local,
		DocumentType:   snap.DocumentType,
		Chunk:          chunk.Text,
		ChunkIndex:     chunkIndex,
	}, nil
}

func buildLocalContext(snap state.Snapshot) LocalContext {
	entities := make(map[string]string, maxEntityTranslations)
	for i, e := range snap.Entities {
		if i >= maxEntityTranslations {
			break
		}
		entities[e.Name] = e.Translation
	}
	return LocalContext{
		RecentOriginals:    snap.RecentOriginals,
		RecentTranslations: snap.RecentTranslations,
		ContextSummaries:   snap.HistorySummaries,
		EntityTranslations: entities,
	}
}

// String renders a deterministic textual form of the package: fixed
// section order, sorted glossary keys, suitable for direct prompt embedding
// and golden-file comparison across identical state.
func (p *ContextPackage) String() string {
	var b strings.Builder

	b.WriteString("## Rules\n")
	for _, r := range p.Rules {
		fmt.Fprintf(&b, "- %s\n", r)
	}

	writeSortedMap(&b, "Hard Glossary", p.HardGlossary)
	writeSortedMap(&b, "Soft Glossary", p.SoftGlossary)
	writeSortedMap(&b, "Confirmed Terms", p.ConfirmedTerms)
	writeSortedMap(&b, "Proper Nouns", p.ProperNouns)
	writeSortedMap(&b, "Reference Signs", p.ReferenceSigns)

	b.WriteString("## Style Guide\n")
	fmt.Fprintf(&b, "tone: %s\n", p.StyleGuide.Tone)
	fmt.Fprintf(&b, "politeness: %s\n", p.StyleGuide.Politeness)
	fmt.Fprintf(&b, "sentence_length: %s\n", p.StyleGuide.SentenceLength)
	writeSortedList(&b, "forbidden_words", p.StyleGuide.ForbiddenWords)
	writeSortedList(&b, "forbidden_phrases", p.StyleGuide.ForbiddenPhrases)
	writeSortedList(&b, "custom_rules", p.StyleGuide.CustomRules)

	b.WriteString("## Local Context\n")
	writeNumberedList(&b, "Recent Originals", p.LocalContext.RecentOriginals)
	writeNumberedList(&b, "Recent Translations", p.LocalContext.RecentTranslations)
	writeNumberedList(&b, "Context Summaries", p.LocalContext.ContextSummaries)
	writeSortedMap(&b, "Entity Translations", p.LocalContext.EntityTranslations)

	fmt.Fprintf(&b, "## Document Type\n%s\n", p.DocumentType)
	fmt.Fprintf(&b, "## Chunk Index\n%d\n", p.ChunkIndex)
	b.WriteString("## Chunk\n")
	b.WriteString(p.Chunk)
	b.WriteString("\n")

	return b.String()
}

func writeSortedMap(b *strings.Builder, title string, m map[string]string) {
	fmt.Fprintf(b, "## %s\n", title)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s -> %s\n", k, m[k])
	}
}

func writeSortedList(b *strings.Builder, title string, items []string) {
	sorted := append([]string(nil), items...)
	sort.Strings(sorted)
	fmt.Fprintf(b, "%s: %s\n", title, strings.Join(sorted, ", "))
}

func writeNumberedList(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "%s:\n", title)
	for i, item := range items {
		fmt.Fprintf(b, "%d. %s\n", i+1, item)
	}
}

// GetTranslationInstructions returns the fixed closing instruction block a
// SubTranslator appends as the final user-message section, independent of
// preset.
func GetTranslationInstructions() string {
	return "Output only the translation. Do not include commentary. " +
		"Translate the complete chunk; never emit ellipsis or truncation markers. " +
		"Preserve the original structure. Obey the hard glossary literally."
}
