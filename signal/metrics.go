package signal

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	resultError = "error"
	resultPanic = "panic"
)

// MetricsConfig holds configuration for Signal metrics
type MetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	RecordListeners bool `mapstructure:"record_listeners"` // observable listener-count gauge
}

// Metrics implements component.MetricsProvider for Signal instrumentation.
// One Metrics can be shared by many signals; the "signal" attribute tells them apart.
type Metrics struct {
	config     MetricsConfig
	registered atomic.Bool
	mu         sync.Mutex

	emits        metric.Int64Counter         // signal_emit_total
	invocations  metric.Int64Counter         // signal_listener_invocations_total
	panics       metric.Int64Counter         // signal_listener_panics_total
	emitDuration metric.Float64Histogram     // signal_emit_duration_seconds
	listeners    metric.Int64ObservableGauge // signal_listeners (optional)

	gaugeMu   sync.RWMutex
	gauges    map[uint64]gaugeSource
	nextGauge atomic.Uint64
}

// gaugeSource is one tracked signal; several may share a name
type gaugeSource struct {
	signal string
	count  func() int64
}

// NewMetrics creates a new Signal metrics provider
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		config: cfg,
		gauges: make(map[uint64]gaugeSource),
	}
}

// MetricsName returns the metrics group name
func (m *Metrics) MetricsName() string {
	return "signal"
}

// IsMetricsEnabled returns whether metrics collection is enabled
func (m *Metrics) IsMetricsEnabled() bool {
	return m.config.Enabled
}

// RegisterMetrics registers all Signal instruments with the provided Meter
func (m *Metrics) RegisterMetrics(meter metric.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered.Load() {
		return nil
	}

	var err error

	m.emits, err = meter.Int64Counter(
		"signal_emit_total",
		metric.WithDescription("Total number of emissions"),
		metric.WithUnit("{emission}"),
	)
	if err != nil {
		return err
	}

	m.invocations, err = meter.Int64Counter(
		"signal_listener_invocations_total",
		metric.WithDescription("Total number of listener invocations by result"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return err
	}

	m.panics, err = meter.Int64Counter(
		"signal_listener_panics_total",
		metric.WithDescription("Total number of recovered listener panics"),
		metric.WithUnit("{panic}"),
	)
	if err != nil {
		return err
	}

	m.emitDuration, err = meter.Float64Histogram(
		"signal_emit_duration_seconds",
		metric.WithDescription("Emission duration distribution, listeners included"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	if m.config.RecordListeners {
		m.listeners, err = meter.Int64ObservableGauge(
			"signal_listeners",
			metric.WithDescription("Current number of registered listeners"),
			metric.WithUnit("{listener}"),
			metric.WithInt64Callback(m.collectListeners),
		)
		if err != nil {
			return err
		}
	}

	m.registered.Store(true)
	return nil
}

// track registers a listener-count source for the gauge and returns its token
func (m *Metrics) track(signal string, count func() int64) uint64 {
	token := m.nextGauge.Add(1)
	m.gaugeMu.Lock()
	m.gauges[token] = gaugeSource{signal: signal, count: count}
	m.gaugeMu.Unlock()
	return token
}

// untrack drops the source registered under token
func (m *Metrics) untrack(token uint64) {
	m.gaugeMu.Lock()
	delete(m.gauges, token)
	m.gaugeMu.Unlock()
}

// tracked returns the number of live gauge sources
func (m *Metrics) tracked() int {
	m.gaugeMu.RLock()
	defer m.gaugeMu.RUnlock()
	return len(m.gauges)
}

// collectListeners 同名 signal 的计数相加，每个名字一个点
func (m *Metrics) collectListeners(_ context.Context, observer metric.Int64Observer) error {
	m.gaugeMu.RLock()
	totals := make(map[string]int64, len(m.gauges))
	for _, src := range m.gauges {
		totals[src.signal] += src.count()
	}
	m.gaugeMu.RUnlock()

	for name, total := range totals {
		observer.Observe(total, metric.WithAttributes(attribute.String("signal", name)))
	}
	return nil
}

// RecordEmit records a finished emission
func (m *Metrics) RecordEmit(ctx context.Context, signal string, haltedBy Outcome, duration time.Duration) {
	if !m.registered.Load() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("signal", signal),
		attribute.String("halted_by", haltedBy.String()),
	)
	m.emits.Add(ctx, 1, attrs)
	m.emitDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordInvocation records one listener invocation; result is an Outcome name,
// "error" or "panic"
func (m *Metrics) RecordInvocation(ctx context.Context, signal, result string) {
	if !m.registered.Load() {
		return
	}

	m.invocations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("signal", signal),
		attribute.String("result", result),
	))
	if result == resultPanic {
		m.panics.Add(ctx, 1, metric.WithAttributes(attribute.String("signal", signal)))
	}
}

// IsRegistered returns whether metrics have been registered
func (m *Metrics) IsRegistered() bool {
	return m.registered.Load()
}
