// Package mock provides a test double for the llm.Gateway interface.
//
// Use Gateway in unit tests to verify that the sub-translator and
// orchestrator send correct CompletionRequests and to feed scripted
// responses without a live LLM backend.
//
// Example:
//
//	g := &mock.Gateway{
//	    CompleteResponses: []*llm.CompletionResponse{
//	        {Content: "```json\n{\"translated_text\":\"hola\"}\n```"},
//	    },
//	}
//	resp, err := g.Complete(ctx, req)
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/tastycandy/rlmtrans/pkg/provider/llm"
	"github.com/tastycandy/rlmtrans/pkg/types"
)

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	Ctx context.Context
	Req llm.CompletionRequest
}

// Gateway is a scriptable implementation of llm.Gateway.
//
// CompleteResponses is consumed in order, one response per call; once
// exhausted, the last entry is reused for any further calls. Set CompleteErr
// to make every call fail instead.
type Gateway struct {
	mu sync.Mutex

	// CompleteResponses is the queue of responses returned by successive
	// Complete calls.
	CompleteResponses []*llm.CompletionResponse

	// CompleteErr, if non-nil, is returned as the error from every Complete
	// call instead of consuming CompleteResponses.
	CompleteErr error

	// TokenCount is returned by CountTokens.
	TokenCount int

	// ModelCaps is returned by Capabilities.
	ModelCaps types.ModelCapabilities

	// Models is returned by ListModels.
	Models []string

	// Connected is returned by TestConnection.
	Connected bool

	// Calls records every invocation of Complete in order.
	Calls []CompleteCall
}

// Complete implements llm.Gateway.
func (g *Gateway) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.Calls = append(g.Calls, CompleteCall{Ctx: ctx, Req: req})

	if g.CompleteErr != nil {
		return nil, g.CompleteErr
	}
	if len(g.CompleteResponses) == 0 {
		return nil, fmt.Errorf("mock: no CompleteResponses configured")
	}
	idx := len(g.Calls) - 1
	if idx >= len(g.CompleteResponses) {
		idx = len(g.CompleteResponses) - 1
	}
	resp := *g.CompleteResponses[idx]
	return &resp, nil
}

// CountTokens implements llm.Gateway.
func (g *Gateway) CountTokens(messages []types.Message) (int, error) {
	if g.TokenCount != 0 {
		return g.TokenCount, nil
	}
	total := 0
	for _, m := range messages {
		total += (len(m.Content) + 3) / 4
	}
	return total, nil
}

// Capabilities implements llm.Gateway.
func (g *Gateway) Capabilities() types.ModelCapabilities {
	return g.ModelCaps
}

// ListModels implements llm.Gateway.
func (g *Gateway) ListModels(ctx context.Context) ([]string, error) {
	return g.Models, nil
}

// TestConnection implements llm.Gateway.
func (g *Gateway) TestConnection(ctx context.Context) bool {
	return g.Connected
}

var _ llm.Gateway = (*Gateway)(nil)
