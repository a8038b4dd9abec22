package observe

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newRecordingProvider returns a TracerProvider backed by an in-memory
// exporter so tests can inspect the spans a translation round would emit.
func newRecordingProvider(t *testing.T) (*sdktrace.TracerProvider, *tracetest.InMemoryExporter) {
	t.Helper()
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return tp, exp
}

func TestCorrelationIDEmptyWithoutSpan(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID(background) = %q, want empty outside any span", got)
	}
}

func TestCorrelationIDIsHexTraceID(t *testing.T) {
	tp, _ := newRecordingProvider(t)

	ctx, span := tp.Tracer("engine").Start(context.Background(), "round")
	defer span.End()

	cid := CorrelationID(ctx)
	if len(cid) != 32 {
		t.Fatalf("correlation ID length = %d, want 32 hex chars", len(cid))
	}
	if strings.Trim(cid, "0123456789abcdef") != "" {
		t.Errorf("correlation ID %q contains non-hex characters", cid)
	}
}

func TestStartSpanRecordsNamedSpan(t *testing.T) {
	tp, exp := newRecordingProvider(t)

	origTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(origTP) })

	ctx, span := StartSpan(context.Background(), "TRANSLATE")
	if CorrelationID(ctx) == "" {
		t.Error("StartSpan produced no trace ID")
	}
	span.End()

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Name != "TRANSLATE" {
		t.Errorf("span name = %q, want TRANSLATE", spans[0].Name)
	}
}

func TestCorrelationIDsDifferAcrossRounds(t *testing.T) {
	tp, _ := newRecordingProvider(t)
	tracer := tp.Tracer("engine")

	seen := make(map[string]struct{}, 50)
	for range 50 {
		ctx, span := tracer.Start(context.Background(), "round")
		cid := CorrelationID(ctx)
		span.End()
		if _, dup := seen[cid]; dup {
			t.Fatalf("duplicate correlation ID across rounds: %s", cid)
		}
		seen[cid] = struct{}{}
	}
}

func TestLoggerCarriesTraceAndSpanIDs(t *testing.T) {
	tp, _ := newRecordingProvider(t)

	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(slog.Default()) })

	ctx, span := tp.Tracer("engine").Start(context.Background(), "round")
	defer span.End()

	Logger(ctx).Info("chunk committed")

	out := buf.String()
	if !strings.Contains(out, "trace_id=") {
		t.Errorf("log line missing trace_id: %s", out)
	}
	if !strings.Contains(out, "span_id=") {
		t.Errorf("log line missing span_id: %s", out)
	}
}

func TestLoggerPlainOutsideSpan(t *testing.T) {
	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(slog.Default()) })

	Logger(context.Background()).Info("startup")

	if out := buf.String(); strings.Contains(out, "trace_id") {
		t.Errorf("log line outside a span should carry no trace_id: %s", out)
	}
}

func TestTracerNeverNil(t *testing.T) {
	if Tracer() == nil {
		t.Fatal("Tracer() returned nil")
	}
}
