// Package resilience shields the translation loop from flaky completion
// backends. A provider outage mid-document would otherwise burn every
// chunk's retry budget against a dead endpoint; the [CircuitBreaker] stops
// calling a backend that keeps failing, and [FallbackGroup] routes around
// it to the next configured gateway so the run keeps committing chunks.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] when the backend
// is considered down and the cool-off period has not yet elapsed.
var ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

// State represents the current operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed is the normal mode: every call goes through to the
	// backend.
	StateClosed State = iota

	// StateOpen means the backend failed too many times in a row. Calls
	// fail fast with [ErrCircuitOpen] until the cool-off elapses, so a
	// translation round spends its retry budget on a different backend
	// instead of a dead one.
	StateOpen

	// StateHalfOpen is the recovery probe mode entered after the
	// cool-off: a few calls are let through, and the breaker closes again
	// only if they all succeed.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes a [CircuitBreaker].
type CircuitBreakerConfig struct {
	// Name labels the protected backend in log output.
	Name string

	// MaxFailures is how many consecutive failures trip the breaker.
	// Default 3: completion calls already carry a long per-call timeout,
	// so three misses in a row is strong evidence the backend is down.
	MaxFailures int

	// ResetTimeout is the cool-off before recovery probing starts.
	// Default 30s.
	ResetTimeout time.Duration

	// HalfOpenMax is how many probe calls the recovery phase allows
	// before deciding. Default 3.
	HalfOpenMax int
}

func (cfg *CircuitBreakerConfig) applyDefaults() {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
}

// CircuitBreaker is a three-state (closed → open → half-open) breaker
// guarding one completion backend.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int

	mu          sync.Mutex
	state       State
	failStreak  int
	lastFailure time.Time
	probeCalls  int
	probeFails  int
}

// NewCircuitBreaker creates a breaker from cfg, substituting defaults for
// zero-value fields.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	cfg.applyDefaults()
	return &CircuitBreaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
		state:        StateClosed,
	}
}

// Execute runs fn if the breaker allows it, then folds the outcome back
// into the breaker's state. When the backend is considered down it returns
// [ErrCircuitOpen] without calling fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	probing, ok := cb.allow()
	if !ok {
		return ErrCircuitOpen
	}

	err := fn()
	cb.observe(err, probing)
	return err
}

// allow decides whether a call may proceed, performing the open→half-open
// transition when the cool-off has elapsed. The returned probing flag
// marks calls made in the recovery phase.
func (cb *CircuitBreaker) allow() (probing, ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.resetTimeout {
			return false, false
		}
		cb.state = StateHalfOpen
		cb.probeCalls = 0
		cb.probeFails = 0
		slog.Info("backend cool-off elapsed, probing recovery", "backend", cb.name)

	case StateHalfOpen:
		if cb.probeCalls >= cb.halfOpenMax {
			return false, false
		}
	}

	if cb.state == StateHalfOpen {
		cb.probeCalls++
		return true, true
	}
	return false, true
}

// observe folds one call outcome into the breaker state.
func (cb *CircuitBreaker) observe(err error, probing bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.lastFailure = time.Now()
		if probing {
			cb.probeFails++
			cb.state = StateOpen
			cb.failStreak = cb.maxFailures
			slog.Warn("backend failed during recovery probe, re-opening", "backend", cb.name)
			return
		}
		cb.failStreak++
		if cb.failStreak >= cb.maxFailures {
			cb.state = StateOpen
			slog.Warn("backend circuit opened",
				"backend", cb.name,
				"consecutive_failures", cb.failStreak)
		}
		return
	}

	if probing {
		if cb.probeCalls-cb.probeFails >= cb.halfOpenMax {
			cb.state = StateClosed
			cb.failStreak = 0
			cb.probeCalls = 0
			cb.probeFails = 0
			slog.Info("backend recovered, circuit closed", "backend", cb.name)
		}
		return
	}
	cb.failStreak = 0
}

// State returns the breaker's current [State]. An open breaker whose
// cool-off has elapsed reports [StateHalfOpen]; the stored transition
// happens on the next [Execute].
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.lastFailure) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to [StateClosed] and clears all counters,
// for operators who know the backend is healthy again.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failStreak = 0
	cb.probeCalls = 0
	cb.probeFails = 0
	slog.Info("backend circuit manually reset", "backend", cb.name)
}
