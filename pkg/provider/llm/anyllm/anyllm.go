// Package anyllm provides a universal llm.Gateway backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and
// more through a single client surface.
//
// This is a reference gateway: the orchestration core never imports this
// package directly, only the llm.Gateway interface it satisfies. Embedding
// applications register it (or any other implementation) through
// config.Registry.
//
// Usage:
//
//	g, err := anyllm.New("openai", "gpt-4o-mini", anyllmlib.WithAPIKey("sk-..."))
//	g, err := anyllm.NewOllama("llama3.1", anyllmlib.WithBaseURL("http://localhost:11434"))
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/tastycandy/rlmtrans/pkg/provider/llm"
	"github.com/tastycandy/rlmtrans/pkg/types"
)

// Gateway implements llm.Gateway by wrapping github.com/mozilla-ai/any-llm-go.
type Gateway struct {
	backend  anyllmlib.Provider
	provider string
	model    string
}

// New creates a new Gateway backed by the given any-llm-go provider name.
//
// providerName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp", "llamafile". model is the
// specific model to request (e.g. "gpt-4o-mini"). opts configure the
// underlying backend (API key, base URL); absent an API key option, the
// backend falls back to the provider's standard environment variable.
func New(providerName, model string, opts ...anyllmlib.Option) (*Gateway, error) {
	if providerName == "" {
		return nil, fmt.Errorf("anyllm: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}
	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", providerName, err)
	}
	return &Gateway{backend: backend, provider: strings.ToLower(providerName), model: model}, nil
}

// NewOllama creates a Gateway backed by Ollama (local inference), the
// natural default for a self-hosted translation run.
func NewOllama(model string, opts ...anyllmlib.Option) (*Gateway, error) {
	return New("ollama", model, opts...)
}

// NewOpenAI creates a Gateway backed by OpenAI.
func NewOpenAI(model string, opts ...anyllmlib.Option) (*Gateway, error) {
	return New("openai", model, opts...)
}

// NewAnthropic creates a Gateway backed by Anthropic.
func NewAnthropic(model string, opts ...anyllmlib.Option) (*Gateway, error) {
	return New("anthropic", model, opts...)
}

func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", providerName)
	}
}

// Complete implements llm.Gateway.
func (g *Gateway) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	params := g.buildParams(req)

	resp, err := g.backend.Completion(ctx, params)
	if err != nil {
		return nil, llm.WrapProviderError("anyllm", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("anyllm: empty choices in response")
	}

	result := &llm.CompletionResponse{
		Content: resp.Choices[0].Message.ContentString(),
		Model:   g.model,
	}
	if resp.Usage != nil {
		result.Usage = llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}
	return result, nil
}

// CountTokens implements llm.Gateway using a character-based approximation;
// any-llm-go does not expose a unified tokenizer across backends.
func (g *Gateway) CountTokens(messages []types.Message) (int, error) {
	total := 0
	for _, m := range messages {
		total += (len(m.Content) + 3) / 4
		total += 4
	}
	return total, nil
}

// Capabilities implements llm.Gateway.
func (g *Gateway) Capabilities() types.ModelCapabilities {
	return modelCapabilities(g.model)
}

// ListModels implements llm.Gateway. any-llm-go does not expose a unified
// model-listing call across backends, so this reports the single configured
// model.
func (g *Gateway) ListModels(ctx context.Context) ([]string, error) {
	return []string{g.model}, nil
}

// TestConnection implements llm.Gateway by issuing a minimal completion
// request and checking it does not error.
func (g *Gateway) TestConnection(ctx context.Context) bool {
	_, err := g.Complete(ctx, llm.CompletionRequest{
		Messages: []types.Message{{Role: "user", Content: "ping"}},
		Params:   llm.GenParams{MaxTokens: 256},
	})
	return err == nil
}

// buildParams converts req into any-llm-go's CompletionParams.
func (g *Gateway) buildParams(req llm.CompletionRequest) anyllmlib.CompletionParams {
	messages := make([]anyllmlib.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, anyllmlib.Message{Role: m.Role, Content: m.Content})
	}

	model := req.Model
	if model == "" {
		model = g.model
	}
	params := anyllmlib.CompletionParams{
		Model:    model,
		Messages: messages,
	}
	if req.Params.Temperature != 0 {
		t := req.Params.Temperature
		params.Temperature = &t
	}
	if req.Params.MaxTokens > 0 {
		mt := req.Params.MaxTokens
		params.MaxTokens = &mt
	}
	return params
}

// modelCapabilities returns sensible defaults by model family. Unknown
// models receive conservative defaults appropriate for chunked translation
// (no tool calling or vision is required by this engine).
func modelCapabilities(model string) types.ModelCapabilities {
	caps := types.ModelCapabilities{
		SupportsStreaming: true,
		ContextWindow:     128_000,
		MaxOutputTokens:   4_096,
	}

	lower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(lower, "gpt-4o"):
		caps.ContextWindow = 128_000
		caps.MaxOutputTokens = 16_384
	case strings.Contains(lower, "claude-3-5"):
		caps.ContextWindow = 200_000
		caps.MaxOutputTokens = 8_192
	case strings.HasPrefix(lower, "claude"):
		caps.ContextWindow = 200_000
		caps.MaxOutputTokens = 8_192
	case strings.Contains(lower, "gemini-1.5-pro"):
		caps.ContextWindow = 2_097_152
		caps.MaxOutputTokens = 8_192
	case strings.HasPrefix(lower, "gemini"):
		caps.ContextWindow = 1_048_576
		caps.MaxOutputTokens = 8_192
	case strings.HasPrefix(lower, "llama"):
		caps.ContextWindow = 128_000
		caps.MaxOutputTokens = 4_096
	}
	return caps
}

var _ llm.Gateway = (*Gateway)(nil)
