package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestWrapProviderErrorClassifiesTimeout(t *testing.T) {
	wrapped := WrapProviderError("openai", fmt.Errorf("request: %w", context.DeadlineExceeded))

	var pe *ProviderError
	if !errors.As(wrapped, &pe) {
		t.Fatalf("errors.As = false, want *ProviderError, got %T", wrapped)
	}
	if pe.Kind != KindTimeout {
		t.Errorf("Kind = %q, want %q", pe.Kind, KindTimeout)
	}
	if pe.Provider != "openai" {
		t.Errorf("Provider = %q, want openai", pe.Provider)
	}
	if !errors.Is(wrapped, context.DeadlineExceeded) {
		t.Error("errors.Is(wrapped, DeadlineExceeded) = false, want true via Unwrap")
	}
}

func TestWrapProviderErrorDefaultsToTransport(t *testing.T) {
	wrapped := WrapProviderError("anyllm", errors.New("connection refused"))

	var pe *ProviderError
	if !errors.As(wrapped, &pe) {
		t.Fatalf("errors.As = false, want *ProviderError")
	}
	if pe.Kind != KindTransport {
		t.Errorf("Kind = %q, want %q", pe.Kind, KindTransport)
	}
}

func TestWrapProviderErrorNil(t *testing.T) {
	if err := WrapProviderError("openai", nil); err != nil {
		t.Errorf("WrapProviderError(nil) = %v, want nil", err)
	}
}
