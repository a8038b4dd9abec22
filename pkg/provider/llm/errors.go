package llm

import (
	"context"
	"errors"
	"fmt"
)

// ProviderError kinds. Transport covers connection-level failures, Timeout
// a deadline hit, Auth a credential rejection, and Rejected a payload the
// backend refused (content filter, context overflow, malformed request).
const (
	KindTransport = "transport"
	KindTimeout   = "timeout"
	KindAuth      = "auth"
	KindRejected  = "rejected"
)

// ProviderError wraps a failure from a concrete Gateway so callers can
// classify it with errors.As without importing the vendor SDK that
// produced it.
type ProviderError struct {
	// Provider names the gateway that failed ("openai", "anyllm", ...).
	Provider string

	// Kind is one of the Kind* constants above.
	Kind string

	// Err is the underlying SDK or transport error.
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// WrapProviderError classifies err and wraps it as a *ProviderError.
// Returns nil when err is nil.
func WrapProviderError(provider string, err error) error {
	if err == nil {
		return nil
	}
	kind := KindTransport
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, context.Canceled):
		kind = KindTransport
	}
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}
