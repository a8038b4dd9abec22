package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func passing(name string) Checker {
	return Checker{Name: name, Check: func(context.Context) error { return nil }}
}

func failing(name, msg string) Checker {
	return Checker{Name: name, Check: func(context.Context) error { return errors.New(msg) }}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response {
	t.Helper()
	var body response
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return body
}

func TestHealthzAlwaysOK(t *testing.T) {
	h := New()
	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := decode(t, rec); body.Status != "ok" {
		t.Errorf("status field = %q, want ok", body.Status)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestReadyzAllDependenciesHealthy(t *testing.T) {
	h := New(passing("llm"), passing("memory"))
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := decode(t, rec)
	if body.Checks["llm"].Status != "ok" || body.Checks["memory"].Status != "ok" {
		t.Errorf("checks = %+v, want both ok", body.Checks)
	}
}

func TestReadyzNamesTheFailingDependency(t *testing.T) {
	h := New(failing("llm", "connection refused"), passing("memory"))
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	body := decode(t, rec)
	if body.Status != "fail" {
		t.Errorf("status field = %q, want fail", body.Status)
	}
	if got := body.Checks["llm"]; got.Status != "fail" || got.Error != "connection refused" {
		t.Errorf("llm check = %+v, want fail with the backend error", got)
	}
	if body.Checks["memory"].Status != "ok" {
		t.Errorf("memory check = %+v, want ok: one dead dependency must not mask the healthy one", body.Checks["memory"])
	}
}

func TestReadyzNoCheckersIsReady(t *testing.T) {
	h := New()
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d with nothing to check", rec.Code, http.StatusOK)
	}
}

func TestReadyzAllDependenciesDown(t *testing.T) {
	h := New(failing("llm", "timeout"), failing("embeddings", "no provider configured"))
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	body := decode(t, rec)
	if body.Checks["llm"].Error != "timeout" {
		t.Errorf("llm error = %q, want timeout", body.Checks["llm"].Error)
	}
	if body.Checks["embeddings"].Error != "no provider configured" {
		t.Errorf("embeddings error = %q", body.Checks["embeddings"].Error)
	}
}

func TestReadyzReportsCheckDuration(t *testing.T) {
	h := New(Checker{Name: "slow", Check: func(context.Context) error {
		time.Sleep(20 * time.Millisecond)
		return nil
	}})
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	body := decode(t, rec)
	if body.Checks["slow"].DurationMS < 10 {
		t.Errorf("duration_ms = %d, want the check's elapsed time recorded", body.Checks["slow"].DurationMS)
	}
}

func TestRegisterMountsBothProbes(t *testing.T) {
	mux := http.NewServeMux()
	New(passing("llm")).Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
			}
		})
	}
}

func TestReadyzRespectsCallerCancellation(t *testing.T) {
	h := New(Checker{Name: "slow", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d when the caller gave up", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestWithCheckTimeoutBoundsSlowChecker(t *testing.T) {
	h := NewWithOptions([]Checker{{Name: "hung", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}}, WithCheckTimeout(15*time.Millisecond))

	start := time.Now()
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Readyz took %v, want the hung check cut off near the 15ms deadline", elapsed)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
