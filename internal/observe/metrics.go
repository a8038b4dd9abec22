// Package observe provides application-wide observability primitives for
// the translation engine: OpenTelemetry metrics, distributed tracing,
// structured logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all engine metrics.
const meterName = "github.com/tastycandy/rlmtrans"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// RoundDuration tracks one PLAN-through-COMMIT round's wall-clock time.
	RoundDuration metric.Float64Histogram

	// SubTranslateDuration tracks a single sub-translator provider call.
	SubTranslateDuration metric.Float64Histogram

	// VerifyDuration tracks a single rule-based verify pass.
	VerifyDuration metric.Float64Histogram

	// --- Counters ---

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderTokens counts tokens consumed per call. Use with attribute:
	//   attribute.String("kind", "prompt"|"completion")
	ProviderTokens metric.Int64Counter

	// ChunksCompleted counts chunks that reached a terminal quality flag.
	// Use with attribute: attribute.String("flag", "fresh"|"repaired"|"failed")
	ChunksCompleted metric.Int64Counter

	// RepairAttempts counts repair dispatches by type. Use with attribute:
	//   attribute.String("repair_type", ...)
	RepairAttempts metric.Int64Counter

	// GlossaryConflicts counts term proposals that conflicted with an
	// existing glossary entry and were resolved by the GlossaryManager.
	GlossaryConflicts metric.Int64Counter

	// --- Error counters ---

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveRuns tracks the number of currently executing orchestration runs.
	ActiveRuns metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for per-chunk translation round latencies.
var latencyBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.RoundDuration, err = m.Float64Histogram("rlmtrans.round.duration",
		metric.WithDescription("Latency of one PLAN-through-COMMIT round."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SubTranslateDuration, err = m.Float64Histogram("rlmtrans.sub_translate.duration",
		metric.WithDescription("Latency of a single sub-translator provider call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.VerifyDuration, err = m.Float64Histogram("rlmtrans.verify.duration",
		metric.WithDescription("Latency of a single verify pass."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ProviderRequests, err = m.Int64Counter("rlmtrans.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderTokens, err = m.Int64Counter("rlmtrans.provider.tokens",
		metric.WithDescription("Total tokens consumed by provider calls, by kind."),
	); err != nil {
		return nil, err
	}
	if met.ChunksCompleted, err = m.Int64Counter("rlmtrans.chunks.completed",
		metric.WithDescription("Total chunks reaching a terminal quality flag."),
	); err != nil {
		return nil, err
	}
	if met.RepairAttempts, err = m.Int64Counter("rlmtrans.repair.attempts",
		metric.WithDescription("Total repair dispatches by repair type."),
	); err != nil {
		return nil, err
	}
	if met.GlossaryConflicts, err = m.Int64Counter("rlmtrans.glossary.conflicts",
		metric.WithDescription("Total glossary term conflicts resolved."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.ProviderErrors, err = m.Int64Counter("rlmtrans.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveRuns, err = m.Int64UpDownCounter("rlmtrans.active_runs",
		metric.WithDescription("Number of currently executing orchestration runs."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("rlmtrans.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest is a convenience method that records a provider
// request counter increment with the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderTokens is a convenience method that records prompt and
// completion token counts from one provider call.
func (m *Metrics) RecordProviderTokens(ctx context.Context, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		m.ProviderTokens.Add(ctx, int64(promptTokens), metric.WithAttributes(attribute.String("kind", "prompt")))
	}
	if completionTokens > 0 {
		m.ProviderTokens.Add(ctx, int64(completionTokens), metric.WithAttributes(attribute.String("kind", "completion")))
	}
}

// RecordChunkCompleted is a convenience method that records a chunk reaching
// a terminal quality flag.
func (m *Metrics) RecordChunkCompleted(ctx context.Context, flag string) {
	m.ChunksCompleted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("flag", flag)),
	)
}

// RecordRepairAttempt is a convenience method that records a repair dispatch
// by type.
func (m *Metrics) RecordRepairAttempt(ctx context.Context, repairType string) {
	m.RepairAttempts.Add(ctx, 1,
		metric.WithAttributes(attribute.String("repair_type", repairType)),
	)
}

// RecordProviderError is a convenience method that records a provider error
// counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}
