// Package llm defines the Gateway interface the translation engine uses to
// reach a text-completion LLM backend, plus the request/response shapes
// that cross that boundary.
//
// Gateway is the only point where the orchestration core talks to a
// concrete model. The core imports only this interface; concrete
// implementations (anyllm, openai — see the sibling packages) live behind
// it so the engine never depends on a specific vendor SDK.
//
// Implementors must be safe for concurrent use.
package llm

import (
	"context"

	"github.com/tastycandy/rlmtrans/pkg/types"
)

// Usage holds token accounting and estimated cost for one completion call.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input messages.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int

	// Cost is the estimated cost of the call in the provider's native
	// currency unit (typically USD). Zero when the provider does not report
	// pricing.
	Cost float64
}

// GenParams carries the generation parameters for one completion request.
type GenParams struct {
	// Temperature controls output randomness, range [0, 2].
	Temperature float64

	// MaxTokens caps the number of completion tokens the model may
	// generate. Must be >= 256 per the contract; zero means provider
	// default.
	MaxTokens int

	// TopP is the nucleus-sampling cutoff, range [0, 1].
	TopP float64
}

// CompletionRequest carries everything the LLM needs to produce a response.
type CompletionRequest struct {
	// Messages is the ordered conversation; roles are "system", "user", or
	// "assistant".
	Messages []types.Message

	// Model selects which model the gateway should invoke. Gateways that
	// wrap a single fixed model may ignore this field.
	Model string

	// Params holds the generation parameters for this call.
	Params GenParams
}

// CompletionResponse is returned by a successful Complete call.
type CompletionResponse struct {
	// Content is the full text of the model's reply.
	Content string

	// Model is the model identifier that actually served the request
	// (useful when the gateway performs its own routing/fallback).
	Model string

	Usage Usage
}

// Gateway is the abstraction over any text-completion LLM backend.
//
// Implementations must be safe for concurrent use from multiple
// goroutines and must propagate context cancellation promptly.
type Gateway interface {
	// Complete sends req to the model and waits for the full response.
	// Returns an error if the request fails or ctx is cancelled first.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// CountTokens estimates the token cost of messages in the model's
	// native tokenization. The result need not be exact but should not
	// undercount.
	CountTokens(messages []types.Message) (int, error)

	// Capabilities returns static metadata about the underlying model.
	Capabilities() types.ModelCapabilities

	// ListModels returns the model identifiers this gateway can serve.
	ListModels(ctx context.Context) ([]string, error)

	// TestConnection verifies the gateway can reach its backend without
	// performing a full completion.
	TestConnection(ctx context.Context) bool
}

// ModelLoader is an optional capability implemented by gateways that wrap
// a local inference server where a model must be explicitly loaded before
// it can serve completions (e.g. llama.cpp, llamafile). Callers should
// type-assert for this interface rather than requiring it on [Gateway].
type ModelLoader interface {
	// EnsureModelLoaded blocks until id is loaded and ready to serve, or
	// returns an error if loading fails.
	EnsureModelLoaded(ctx context.Context, id string) error
}
