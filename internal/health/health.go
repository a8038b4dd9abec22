// Package health exposes liveness and readiness probes for a running
// translation service.
//
//   - /healthz — liveness; a process that can serve HTTP is alive.
//   - /readyz  — readiness; 200 only when every registered [Checker]
//     (completion backend, embeddings provider, snapshot store) passes.
//
// The readiness body reports each check by name with its outcome and how
// long it took, so a slow-but-passing backend is visible before it starts
// timing out translation rounds.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// defaultCheckTimeout bounds one readiness check. Kept well under the
// per-call completion timeout: a readiness probe that hangs for minutes is
// worse than one that reports failure.
const defaultCheckTimeout = 5 * time.Second

// Checker is a named probe of one dependency. Check returns nil when the
// dependency can serve the engine and an error describing why not
// otherwise. It must respect context cancellation.
type Checker struct {
	// Name keys the check in the response body ("llm", "embeddings",
	// "memory").
	Name string

	Check func(ctx context.Context) error
}

// checkResult is one check's entry in the readiness response.
type checkResult struct {
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// response is the JSON body for both probes.
type response struct {
	Status string                 `json:"status"`
	Checks map[string]checkResult `json:"checks,omitempty"`
}

// Handler serves the two probe endpoints. Safe for concurrent use; the
// checker list is fixed at construction.
type Handler struct {
	checkers []Checker
	timeout  time.Duration
}

// Option configures a [Handler].
type Option func(*Handler)

// WithCheckTimeout overrides the per-check deadline.
func WithCheckTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// New creates a [Handler] that evaluates checkers, in order, on each
// /readyz request.
func New(checkers ...Checker) *Handler {
	h := &Handler{
		checkers: append([]Checker(nil), checkers...),
		timeout:  defaultCheckTimeout,
	}
	return h
}

// NewWithOptions creates a [Handler] with options applied.
func NewWithOptions(checkers []Checker, opts ...Option) *Handler {
	h := New(checkers...)
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Healthz always answers 200: liveness only.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{Status: "ok"})
}

// Readyz answers 200 only when every checker passes within its deadline.
// A failing dependency yields 503 with the failing checks named, so an
// operator can tell a dead completion backend from a dead snapshot store
// without reading logs.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]checkResult, len(h.checkers))
	ready := true

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		start := time.Now()
		err := c.Check(ctx)
		elapsed := time.Since(start)
		cancel()

		cr := checkResult{Status: "ok", DurationMS: elapsed.Milliseconds()}
		if err != nil {
			cr.Status = "fail"
			cr.Error = err.Error()
			ready = false
		}
		checks[c.Name] = cr
	}

	res := response{Status: "ok", Checks: checks}
	code := http.StatusOK
	if !ready {
		res.Status = "fail"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, res)
}

// Register mounts both probes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
