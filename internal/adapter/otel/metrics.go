package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "dispatchd"

// Metrics holds all dispatchd metric instruments.
type Metrics struct {
	DispatchesCreated  metric.Int64Counter
	DispatchDuplicates metric.Int64Counter
	DispatchesSkipped  metric.Int64Counter
	CyclesIdle         metric.Int64Counter
	CycleDuration      metric.Float64Histogram
	RegistryDuration   metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.DispatchesCreated, err = meter.Int64Counter("dispatchd.dispatches.created",
		metric.WithDescription("Number of handoff files written"))
	if err != nil {
		return nil, err
	}

	m.DispatchDuplicates, err = meter.Int64Counter("dispatchd.dispatches.duplicates",
		metric.WithDescription("Number of dispatches suppressed by the dedup guard"))
	if err != nil {
		return nil, err
	}

	m.DispatchesSkipped, err = meter.Int64Counter("dispatchd.dispatches.skipped",
		metric.WithDescription("Number of candidate tasks skipped"))
	if err != nil {
		return nil, err
	}

	m.CyclesIdle, err = meter.Int64Counter("dispatchd.cycles.idle",
		metric.WithDescription("Number of cycles that found no actionable task"))
	if err != nil {
		return nil, err
	}

	m.CycleDuration, err = meter.Float64Histogram("dispatchd.cycle.duration_seconds",
		metric.WithDescription("Orchestration cycle duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.RegistryDuration, err = meter.Float64Histogram("dispatchd.registry.query.duration_seconds",
		metric.WithDescription("Task registry query duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
