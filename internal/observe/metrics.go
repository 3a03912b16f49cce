// Package observe holds the OpenTelemetry instruments and tracing helpers
// shared by the analysis and correction paths, plus the SDK wiring that
// exposes them to Prometheus.
//
// Tests should build [Metrics] with [NewMetrics] on their own
// [metric.MeterProvider] to avoid cross-test pollution.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope for every instrument.
const meterName = "github.com/tphakala/go-audio-retune"

// Operation names used as the "op" attribute.
const (
	OpAnalyze = "analyze"
	OpCorrect = "correct"
)

// Status values used as the "status" attribute.
const (
	StatusOK        = "ok"
	StatusNoPitch   = "no_pitch"
	StatusError     = "error"
	StatusCancelled = "cancelled"
	StatusRejected  = "rejected"
)

// Metrics holds the instruments. All fields are safe for concurrent use.
type Metrics struct {
	// AnalyzeDuration tracks wall time of pitch analyses.
	AnalyzeDuration metric.Float64Histogram

	// CorrectDuration tracks wall time of corrections, decode to commit.
	CorrectDuration metric.Float64Histogram

	// Operations counts finished operations. Attributes: op, status.
	Operations metric.Int64Counter

	// RenderFrames counts output frames written by successful renders.
	RenderFrames metric.Int64Counter

	// ActiveOperations tracks operations currently running. Attribute: op.
	ActiveOperations metric.Int64UpDownCounter
}

// Audio work runs from milliseconds to minutes.
var durationBuckets = []float64{
	0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.AnalyzeDuration, err = m.Float64Histogram("retune.analyze.duration",
		metric.WithDescription("Wall time of pitch analysis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CorrectDuration, err = m.Float64Histogram("retune.correct.duration",
		metric.WithDescription("Wall time of pitch correction including encoding."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Operations, err = m.Int64Counter("retune.operations",
		metric.WithDescription("Finished operations by op and status."),
	); err != nil {
		return nil, err
	}
	if met.RenderFrames, err = m.Int64Counter("retune.render.frames",
		metric.WithDescription("Output sample frames written by completed renders."),
	); err != nil {
		return nil, err
	}
	if met.ActiveOperations, err = m.Int64UpDownCounter("retune.active_operations",
		metric.WithDescription("Operations currently in flight by op."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// RecordOperation records the outcome and duration of one operation.
func (m *Metrics) RecordOperation(ctx context.Context, op, status string, elapsed time.Duration) {
	m.Operations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("status", status),
		),
	)
	hist := m.AnalyzeDuration
	if op == OpCorrect {
		hist = m.CorrectDuration
	}
	hist.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("status", status)))
}

// Begin marks an operation as active and returns a func that ends it.
func (m *Metrics) Begin(ctx context.Context, op string) func() {
	attrs := metric.WithAttributes(attribute.String("op", op))
	m.ActiveOperations.Add(ctx, 1, attrs)
	return func() { m.ActiveOperations.Add(ctx, -1, attrs) }
}
