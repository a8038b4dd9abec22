package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/tastycandy/rlmtrans/pkg/provider/llm"
	llmmock "github.com/tastycandy/rlmtrans/pkg/provider/llm/mock"
	"github.com/tastycandy/rlmtrans/pkg/types"
)

func TestLLMFallback_Complete_PrimarySuccess(t *testing.T) {
	primary := &llmmock.Gateway{
		CompleteResponses: []*llm.CompletionResponse{{Content: "hello from primary"}},
	}
	secondary := &llmmock.Gateway{
		CompleteResponses: []*llm.CompletionResponse{{Content: "hello from secondary"}},
	}

	fb := NewLLMFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello from primary" {
		t.Fatalf("content = %q, want 'hello from primary'", resp.Content)
	}
	if len(primary.Calls) != 1 {
		t.Fatalf("primary called %d times, want 1", len(primary.Calls))
	}
	if len(secondary.Calls) != 0 {
		t.Fatalf("secondary called %d times, want 0", len(secondary.Calls))
	}
}

func TestLLMFallback_Complete_Failover(t *testing.T) {
	primary := &llmmock.Gateway{CompleteErr: errors.New("primary down")}
	secondary := &llmmock.Gateway{
		CompleteResponses: []*llm.CompletionResponse{{Content: "hello from secondary"}},
	}

	fb := NewLLMFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "hello from secondary" {
		t.Fatalf("content = %q, want 'hello from secondary'", resp.Content)
	}
}

func TestLLMFallback_Complete_AllFail(t *testing.T) {
	primary := &llmmock.Gateway{CompleteErr: errors.New("primary down")}
	secondary := &llmmock.Gateway{CompleteErr: errors.New("secondary down")}

	fb := NewLLMFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	_, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestLLMFallback_CountTokens(t *testing.T) {
	primary := &llmmock.Gateway{TokenCount: 7}
	secondary := &llmmock.Gateway{TokenCount: 42}

	fb := NewLLMFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	count, err := fb.CountTokens([]types.Message{{Role: "user", Content: "test"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 7 {
		t.Fatalf("count = %d, want 7 (primary healthy)", count)
	}
}

func TestLLMFallback_Capabilities(t *testing.T) {
	primary := &llmmock.Gateway{
		ModelCaps: types.ModelCapabilities{
			ContextWindow:     128000,
			SupportsStreaming: true,
		},
	}

	fb := NewLLMFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})

	caps := fb.Capabilities()
	if caps.ContextWindow != 128000 {
		t.Fatalf("ContextWindow = %d, want 128000", caps.ContextWindow)
	}
	if !caps.SupportsStreaming {
		t.Fatal("SupportsStreaming should be true")
	}
}

func TestLLMFallback_TestConnection(t *testing.T) {
	primary := &llmmock.Gateway{Connected: false}
	secondary := &llmmock.Gateway{Connected: true}

	fb := NewLLMFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3},
	})
	fb.AddFallback("secondary", secondary)

	if !fb.TestConnection(context.Background()) {
		t.Fatal("expected TestConnection to report healthy via secondary")
	}
}
