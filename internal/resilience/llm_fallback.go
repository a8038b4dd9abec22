package resilience

import (
	"context"

	"github.com/tastycandy/rlmtrans/pkg/provider/llm"
	"github.com/tastycandy/rlmtrans/pkg/types"
)

// LLMFallback implements [llm.Gateway] with automatic failover across
// multiple provider gateways. Each backend has its own circuit breaker;
// when the primary fails or its breaker is open, the next healthy fallback
// is tried. A transport failure during a translation round is non-fatal to
// the run, and trying a second backend before the round gives up its retry
// budget costs nothing the orchestrator needs to know about.
type LLMFallback struct {
	group *FallbackGroup[llm.Gateway]
}

// Compile-time interface assertion.
var _ llm.Gateway = (*LLMFallback)(nil)

// NewLLMFallback creates an [LLMFallback] with primary as the preferred
// backend.
func NewLLMFallback(primary llm.Gateway, primaryName string, cfg FallbackConfig) *LLMFallback {
	return &LLMFallback{
		group: NewFallbackGroup(primary, primaryName, cfg),
	}
}

// AddFallback registers an additional gateway as a fallback.
func (f *LLMFallback) AddFallback(name string, gateway llm.Gateway) {
	f.group.AddFallback(name, gateway)
}

// Complete sends the request to the first healthy gateway and returns its
// response. If the primary fails, subsequent fallbacks are tried.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return ExecuteWithResult(f.group, func(g llm.Gateway) (*llm.CompletionResponse, error) {
		return g.Complete(ctx, req)
	})
}

// CountTokens delegates to the first healthy gateway's token counter.
func (f *LLMFallback) CountTokens(messages []types.Message) (int, error) {
	return ExecuteWithResult(f.group, func(g llm.Gateway) (int, error) {
		return g.CountTokens(messages)
	})
}

// Capabilities returns the capabilities of the first entry (the primary).
// This does not participate in failover because capabilities are static
// metadata, not a live call.
func (f *LLMFallback) Capabilities() types.ModelCapabilities {
	if len(f.group.entries) > 0 {
		return f.group.entries[0].value.Capabilities()
	}
	return types.ModelCapabilities{}
}

// ListModels delegates to the first healthy gateway.
func (f *LLMFallback) ListModels(ctx context.Context) ([]string, error) {
	return ExecuteWithResult(f.group, func(g llm.Gateway) ([]string, error) {
		return g.ListModels(ctx)
	})
}

// TestConnection reports true if any entry in the group can reach its
// backend.
func (f *LLMFallback) TestConnection(ctx context.Context) bool {
	for _, entry := range f.group.entries {
		if entry.value.TestConnection(ctx) {
			return true
		}
	}
	return false
}
