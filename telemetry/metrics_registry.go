package telemetry

import (
	"fmt"
	"sync"

	"github.com/KOMKZ/go-yogan-signal/component"
	"github.com/KOMKZ/go-yogan-signal/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// MetricsRegistry hands out one namespaced Meter per MetricsProvider.
// Base labels are attached to every Meter as instrumentation scope attributes.
type MetricsRegistry struct {
	meterProvider metric.MeterProvider
	meters        map[string]metric.Meter
	providers     map[string]component.MetricsProvider
	order         []string
	baseLabels    []attribute.KeyValue
	namespace     string
	enabled       bool
	logger        *logger.CtxZapLogger
	mu            sync.RWMutex
}

// MetricsRegistryOption configures the MetricsRegistry.
type MetricsRegistryOption func(*MetricsRegistry)

// WithNamespace sets the meter name prefix.
func WithNamespace(namespace string) MetricsRegistryOption {
	return func(r *MetricsRegistry) {
		r.namespace = namespace
	}
}

// WithBaseLabels sets the labels every meter carries.
func WithBaseLabels(labels []attribute.KeyValue) MetricsRegistryOption {
	return func(r *MetricsRegistry) {
		r.baseLabels = append([]attribute.KeyValue{}, labels...)
	}
}

// WithLogger sets the logger for the registry.
func WithLogger(l *logger.CtxZapLogger) MetricsRegistryOption {
	return func(r *MetricsRegistry) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewMetricsRegistry creates a new MetricsRegistry.
// If mp is nil, the global MeterProvider will be used.
func NewMetricsRegistry(mp metric.MeterProvider, opts ...MetricsRegistryOption) *MetricsRegistry {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	r := &MetricsRegistry{
		meterProvider: mp,
		meters:        make(map[string]metric.Meter),
		providers:     make(map[string]component.MetricsProvider),
		namespace:     "signal",
		enabled:       true,
		logger:        logger.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register creates the provider's instruments on its own Meter.
// Registering the same provider twice is a no-op; a different provider under a taken
// name is an error.
func (r *MetricsRegistry) Register(provider component.MetricsProvider) error {
	if provider == nil {
		return fmt.Errorf("metrics provider is nil")
	}
	if !r.IsEnabled() {
		return nil
	}
	if !provider.IsMetricsEnabled() {
		r.logger.Debug("metrics disabled for provider", zap.String("provider", provider.MetricsName()))
		return nil
	}

	name := provider.MetricsName()
	if name == "" {
		return fmt.Errorf("metrics provider name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.providers[name]; ok {
		if existing == provider {
			return nil
		}
		return fmt.Errorf("metrics provider %q already registered", name)
	}

	if err := provider.RegisterMetrics(r.getMeterLocked(name)); err != nil {
		return fmt.Errorf("register metrics for %q failed: %w", name, err)
	}

	r.providers[name] = provider
	r.order = append(r.order, name)
	r.logger.Info("metrics provider registered", zap.String("provider", name))
	return nil
}

// GetMeter returns the Meter for name, named {namespace}_{name}.
func (r *MetricsRegistry) GetMeter(name string) metric.Meter {
	r.mu.RLock()
	meter, ok := r.meters[name]
	r.mu.RUnlock()
	if ok {
		return meter
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getMeterLocked(name)
}

// getMeterLocked creates or returns a Meter (must hold lock).
func (r *MetricsRegistry) getMeterLocked(name string) metric.Meter {
	if meter, ok := r.meters[name]; ok {
		return meter
	}

	meterName := name
	if r.namespace != "" {
		meterName = r.namespace + "_" + name
	}

	var opts []metric.MeterOption
	if len(r.baseLabels) > 0 {
		opts = append(opts, metric.WithInstrumentationAttributes(r.baseLabels...))
	}

	meter := r.meterProvider.Meter(meterName, opts...)
	r.meters[name] = meter
	return meter
}

// GetBaseLabels returns a copy of the base labels.
func (r *MetricsRegistry) GetBaseLabels() []attribute.KeyValue {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]attribute.KeyValue{}, r.baseLabels...)
}

// IsEnabled returns whether metrics collection is enabled.
func (r *MetricsRegistry) IsEnabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

// SetEnabled enables or disables registration.
func (r *MetricsRegistry) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

// GetProviders returns registered providers in registration order.
func (r *MetricsRegistry) GetProviders() []component.MetricsProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]component.MetricsProvider, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.providers[name])
	}
	return out
}

// GetProviderCount returns the number of registered providers.
func (r *MetricsRegistry) GetProviderCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

var _ component.MetricsCollector = (*MetricsRegistry)(nil)
