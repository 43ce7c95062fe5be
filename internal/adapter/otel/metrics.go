// Package otel provides OpenTelemetry instrumentation for the sync
// layer. Instruments are API-level; wiring an exporter is left to the
// embedding application.
package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "arenasync"

// Metrics holds all arenasync metric instruments.
type Metrics struct {
	Reloads         metric.Int64Counter
	ReloadFailures  metric.Int64Counter
	DeltasApplied   metric.Int64Counter
	DeltasDiscarded metric.Int64Counter
	Notifications   metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Reloads, err = meter.Int64Counter("arenasync.store.reloads",
		metric.WithDescription("Number of full collection reloads committed"))
	if err != nil {
		return nil, err
	}

	m.ReloadFailures, err = meter.Int64Counter("arenasync.store.reload_failures",
		metric.WithDescription("Number of reloads that failed and kept the last-known-good collection"))
	if err != nil {
		return nil, err
	}

	m.DeltasApplied, err = meter.Int64Counter("arenasync.store.deltas_applied",
		metric.WithDescription("Number of single-entity deltas merged into a store"))
	if err != nil {
		return nil, err
	}

	m.DeltasDiscarded, err = meter.Int64Counter("arenasync.store.deltas_discarded",
		metric.WithDescription("Number of deltas dropped as stale (terminal-state guard or sequence guard)"))
	if err != nil {
		return nil, err
	}

	m.Notifications, err = meter.Int64Counter("arenasync.store.notifications",
		metric.WithDescription("Number of subscriber notification rounds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
