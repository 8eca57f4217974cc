package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/KOMKZ/go-yogan-signal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Manager owns the TracerProvider, the MetricsManager and the MetricsRegistry built on it
type Manager struct {
	config          Config
	logger          *logger.CtxZapLogger
	tracerProvider  *trace.TracerProvider
	metricsManager  *MetricsManager
	metricsRegistry *MetricsRegistry
	mu              sync.RWMutex
}

// NewManager creates a telemetry manager
func NewManager(config Config, log *logger.CtxZapLogger) *Manager {
	if log == nil {
		log = logger.NewNop()
	}
	return &Manager{
		config: config,
		logger: log,
	}
}

// Start builds the providers and installs them globally
func (m *Manager) Start(ctx context.Context) error {
	if !m.config.Enabled {
		m.logger.InfoCtx(ctx, "Telemetry disabled, skipping initialization")
		return nil
	}

	res, err := createResource(ctx, m.config)
	if err != nil {
		return fmt.Errorf("create resource failed: %w", err)
	}

	tp, err := createTracerProvider(ctx, m.config, res)
	if err != nil {
		return fmt.Errorf("create tracer provider failed: %w", err)
	}

	mm, err := NewMetricsManager(ctx, m.config, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("create metrics manager failed: %w", err)
	}

	registry := NewMetricsRegistry(mm.MeterProvider(),
		WithNamespace(m.config.Metrics.Namespace),
		WithBaseLabels(m.buildBaseLabels()),
		WithLogger(m.logger),
	)
	registry.SetEnabled(mm.IsEnabled())

	m.mu.Lock()
	m.tracerProvider = tp
	m.metricsManager = mm
	m.metricsRegistry = registry
	m.mu.Unlock()

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	if mm.IsEnabled() {
		otel.SetMeterProvider(mm.MeterProvider())
	}

	m.logger.InfoCtx(ctx, "✅ Telemetry started",
		zap.String("service_name", m.config.ServiceName),
		zap.String("exporter", m.config.Exporter.Type),
		zap.Bool("metrics", mm.IsEnabled()),
	)
	return nil
}

// ForceFlush exports pending spans and metrics
func (m *Manager) ForceFlush(ctx context.Context) error {
	m.mu.RLock()
	tp, mm := m.tracerProvider, m.metricsManager
	m.mu.RUnlock()

	var errs []error
	if tp != nil {
		errs = append(errs, tp.ForceFlush(ctx))
	}
	if mm != nil {
		errs = append(errs, mm.ForceFlush(ctx))
	}
	return errors.Join(errs...)
}

// Shutdown flushes and releases both providers
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	tp, mm := m.tracerProvider, m.metricsManager
	m.tracerProvider, m.metricsManager = nil, nil
	m.mu.Unlock()

	var errs []error
	if mm != nil {
		if err := mm.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown metrics failed: %w", err))
		}
	}
	if tp != nil {
		if err := tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider failed: %w", err))
		}
	}
	return errors.Join(errs...)
}

// GetTracer obtain tracer (global no-op tracer before Start)
func (m *Manager) GetTracer(name string) otelTrace.Tracer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.tracerProvider == nil {
		return otel.GetTracerProvider().Tracer(name)
	}
	return m.tracerProvider.Tracer(name)
}

// GetMetricsManager obtain Metrics manager
func (m *Manager) GetMetricsManager() *MetricsManager {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metricsManager
}

// GetMetricsRegistry obtain the metrics registry (nil before Start)
func (m *Manager) GetMetricsRegistry() *MetricsRegistry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.metricsRegistry
}

// IsEnabled whether enabled
func (m *Manager) IsEnabled() bool {
	return m.config.Enabled
}

// GetConfig Retrieve configuration
func (m *Manager) GetConfig() Config {
	return m.config
}

// buildBaseLabels 构建全局基础标签
func (m *Manager) buildBaseLabels() []attribute.KeyValue {
	labels := []attribute.KeyValue{
		attribute.String("service.name", m.config.ServiceName),
		attribute.String("service.version", m.config.ServiceVersion),
	}
	for k, v := range m.config.Metrics.Labels {
		labels = append(labels, attribute.String(k, v))
	}
	return labels
}
