// Package component provides component interface definitions
package component

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsProvider is implemented by anything that owns OpenTelemetry instruments and
// wants them created from a centrally configured Meter.
//
// Example implementation:
//
//	func (m *Metrics) MetricsName() string {
//	    return "signal"
//	}
//
//	func (m *Metrics) RegisterMetrics(meter metric.Meter) error {
//	    counter, err := meter.Int64Counter("signal_emit_total")
//	    if err != nil {
//	        return err
//	    }
//	    m.emits = counter
//	    return nil
//	}
type MetricsProvider interface {
	// MetricsName returns the metrics group name (used for Meter naming).
	MetricsName() string

	// RegisterMetrics creates the provider's instruments on meter.
	RegisterMetrics(meter metric.Meter) error

	// IsMetricsEnabled returns whether the provider wants to be registered at all.
	IsMetricsEnabled() bool
}

// MetricsCollector is the centralized registry side of MetricsProvider.
// Implemented by telemetry.MetricsRegistry.
type MetricsCollector interface {
	Register(provider MetricsProvider) error
	GetMeter(name string) metric.Meter
	GetBaseLabels() []attribute.KeyValue
	IsEnabled() bool
}
