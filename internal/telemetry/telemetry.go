// Package telemetry records run metrics for the sync engine.
//
// Metrics are disabled unless the --telemetry flag is set; the nil
// Recorder is safe to call and does nothing. When enabled, counters are
// flushed through the OTel stdout exporter at the end of the run, so
// unattended (cron) runs leave an inspectable trail.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const instrumentationScope = "github.com/privacytools/ucx"

// Recorder accumulates counters for one sync run.
type Recorder struct {
	provider *sdkmetric.MeterProvider

	bugs    metric.Int64Counter
	created metric.Int64Counter
	removed metric.Int64Counter
}

// New builds a Recorder backed by the stdout metric exporter.
func New() (*Recorder, error) {
	exporter, err := stdoutmetric.New()
	if err != nil {
		return nil, fmt.Errorf("telemetry: stdout exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(resource.Default()),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	)
	meter := provider.Meter(instrumentationScope)

	bugs, err := meter.Int64Counter("ucx.bugs.processed",
		metric.WithDescription("Bugs processed, by outcome"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: bugs counter: %w", err)
	}
	created, err := meter.Int64Counter("ucx.records.created",
		metric.WithDescription("Exception records created"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: created counter: %w", err)
	}
	removed, err := meter.Int64Counter("ucx.records.removed",
		metric.WithDescription("Exception records removed"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: removed counter: %w", err)
	}

	return &Recorder{
		provider: provider,
		bugs:     bugs,
		created:  created,
		removed:  removed,
	}, nil
}

// RecordOutcome counts one processed bug under its outcome.
func (r *Recorder) RecordOutcome(ctx context.Context, outcome string) {
	if r == nil {
		return
	}
	r.bugs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordMutations counts store mutations performed for one bug.
func (r *Recorder) RecordMutations(ctx context.Context, created, removed int) {
	if r == nil {
		return
	}
	if created > 0 {
		r.created.Add(ctx, int64(created))
	}
	if removed > 0 {
		r.removed.Add(ctx, int64(removed))
	}
}

// Shutdown flushes pending metrics. Safe on a nil Recorder.
func (r *Recorder) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.provider.Shutdown(ctx)
}
