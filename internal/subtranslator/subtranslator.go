// Package subtranslator executes a single chunk translation against an LLM
// gateway and parses the structured response back into a translation plus
// term candidates.
package subtranslator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tastycandy/rlmtrans/internal/contextpkg"
	"github.com/tastycandy/rlmtrans/internal/preset"
	"github.com/tastycandy/rlmtrans/internal/state"
	"github.com/tastycandy/rlmtrans/pkg/provider/llm"
	"github.com/tastycandy/rlmtrans/pkg/types"
)

// Result is what one chunk translation attempt produces.
type Result struct {
	Translation    string
	TermCandidates map[string]string
	Warnings       []string
	Success        bool
	Duration       time.Duration
	TokenUsage     llm.Usage
}

// Translator invokes an LLM gateway to translate one chunk.
type Translator struct {
	Gateway      llm.Gateway
	TargetLang   string
	SystemSuffix string // appended to the system message; used by repair for stricter directives.
}

// New creates a Translator against gateway for targetLang (a human-readable
// language name, e.g. "German").
func New(gateway llm.Gateway, targetLang string) *Translator {
	return &Translator{Gateway: gateway, TargetLang: targetLang}
}

// Translate runs the full protocol for one chunk: build the context
// package, compose messages, invoke the gateway, and parse the response.
// st is read through contextpkg.Build only; Translate never mutates state.
func (t *Translator) Translate(ctx context.Context, st *state.State, p preset.Preset, chunk types.Chunk, chunkIndex int) (Result, error) {
	start := time.Now()

	pkg, err := contextpkg.Build(ctx, st, p.ID(), chunk, chunkIndex)
	if err != nil {
		return Result{}, fmt.Errorf("subtranslator: build context: %w", err)
	}

	systemMsg := t.systemMessage(p)
	userMsg := t.userMessage(pkg)

	req := llm.CompletionRequest{
		Messages: []types.Message{
			{Role: "system", Content: systemMsg},
			{Role: "user", Content: userMsg},
		},
		Params: llm.GenParams{
			Temperature: p.LLMParams.Temperature,
			MaxTokens:   p.LLMParams.MaxTokens,
			TopP:        p.LLMParams.TopP,
		},
	}

	resp, err := t.Gateway.Complete(ctx, req)
	if err != nil {
		return Result{Duration: time.Since(start)}, fmt.Errorf("subtranslator: complete: %w", err)
	}

	parsed := parseResponse(resp.Content)

	return Result{
		Translation:    strings.TrimSpace(parsed.translation),
		TermCandidates: parsed.termCandidates,
		Warnings:       parsed.warnings,
		Success:        true,
		Duration:       time.Since(start),
		TokenUsage:     resp.Usage,
	}, nil
}

func (t *Translator) systemMessage(p preset.Preset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", p.SystemPrompt)
	fmt.Fprintf(&b, "Target language: %s.\n", t.TargetLang)
	b.WriteString("Output strict structured form: a fenced code block containing JSON with keys " +
		"translated_text, term_candidates, comments.\n")
	b.WriteString("Output only the translation content inside that structure; no extra commentary. ")
	b.WriteString("Translate the complete chunk; never emit ellipsis or truncation markers. ")
	b.WriteString("Preserve the original structure. Obey the hard glossary literally.\n")
	if t.SystemSuffix != "" {
		b.WriteString(t.SystemSuffix)
		b.WriteString("\n")
	}
	return b.String()
}

func (t *Translator) userMessage(pkg *contextpkg.ContextPackage) string {
	var b strings.Builder
	b.WriteString(pkg.String())
	b.WriteString("\n")
	b.WriteString(contextpkg.GetTranslationInstructions())
	return b.String()
}
