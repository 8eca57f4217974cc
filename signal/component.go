package signal

import (
	"context"
	"fmt"

	"github.com/KOMKZ/go-yogan-signal/component"
	"github.com/KOMKZ/go-yogan-signal/logger"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Component wires signals into the application lifecycle: it loads the "signal"
// configuration section, owns the shared Metrics and hands the resulting options to
// every Signal created through Attach.
type Component struct {
	config    Config
	metrics   *Metrics
	logger    *logger.CtxZapLogger
	collector component.MetricsCollector
	tracer    trace.Tracer
	started   bool
}

// NewComponent creates a signal component
func NewComponent() *Component {
	return &Component{
		config: DefaultConfig(),
		logger: logger.NewNop(),
	}
}

// Name returns the component name
func (c *Component) Name() string {
	return component.ComponentSignal
}

// SetLogger sets the component logger (used by every attached Signal)
func (c *Component) SetLogger(l *logger.CtxZapLogger) {
	if l != nil {
		c.logger = l
	}
}

// SetMetricsCollector sets the registry Metrics are registered with on Start
func (c *Component) SetMetricsCollector(collector component.MetricsCollector) {
	c.collector = collector
}

// SetTracer sets the tracer used when tracing is enabled
func (c *Component) SetTracer(t trace.Tracer) {
	c.tracer = t
}

// Init loads and validates the configuration
func (c *Component) Init(ctx context.Context, loader component.ConfigLoader) error {
	c.config = DefaultConfig()
	if loader != nil {
		if err := loader.Unmarshal("signal", &c.config); err != nil {
			c.logger.DebugCtx(ctx, "using default signal config", zap.Error(err))
		}
	}

	if err := c.config.Validate(); err != nil {
		return fmt.Errorf("invalid signal config: %w", err)
	}

	if !c.config.Enabled {
		c.logger.InfoCtx(ctx, "signal component disabled")
		return nil
	}

	c.metrics = NewMetrics(c.config.Metrics)
	c.logger.InfoCtx(ctx, "signal component initialized",
		zap.String("name", c.config.Name),
		zap.Bool("continue_on_unsubscribe", c.config.ContinueOnUnsubscribe),
		zap.Bool("metrics", c.config.Metrics.Enabled),
		zap.Bool("tracing", c.config.Tracing))
	return nil
}

// Start registers Metrics with the collector when both are enabled
func (c *Component) Start(ctx context.Context) error {
	if c.started || c.metrics == nil {
		return nil
	}
	c.started = true

	if c.collector == nil || !c.collector.IsEnabled() || !c.metrics.IsMetricsEnabled() {
		return nil
	}
	if err := c.collector.Register(c.metrics); err != nil {
		return fmt.Errorf("register signal metrics: %w", err)
	}
	return nil
}

// Stop has nothing to release; emissions in flight finish on their own goroutines
func (c *Component) Stop(ctx context.Context) error {
	c.logger.DebugCtx(ctx, "signal component stopped")
	return nil
}

// Config returns the loaded configuration
func (c *Component) Config() Config {
	return c.config
}

// Metrics returns the shared metrics provider (nil when disabled)
func (c *Component) Metrics() *Metrics {
	return c.metrics
}

// IsEnabled reports whether the component is enabled
func (c *Component) IsEnabled() bool {
	return c.config.Enabled
}

// Attach creates a Signal configured by c. name overrides the configured name when
// not empty; opts are applied last.
func Attach[T any](c *Component, name string, opts ...Option) *Signal[T] {
	base := c.config.Options()
	if name != "" {
		base = append(base, WithName(name))
	}
	base = append(base, WithLogger(c.logger.With(zap.String("component", component.ComponentSignal))))
	if c.metrics != nil {
		base = append(base, WithMetrics(c.metrics))
	}
	if c.config.Tracing && c.tracer != nil {
		base = append(base, WithTracer(c.tracer))
	}
	return New[T](append(base, opts...)...)
}
