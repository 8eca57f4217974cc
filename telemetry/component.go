package telemetry

import (
	"context"
	"fmt"

	"github.com/KOMKZ/go-yogan-signal/component"
	"github.com/KOMKZ/go-yogan-signal/logger"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Component OpenTelemetry 组件
type Component struct {
	config  Config
	logger  *logger.CtxZapLogger
	manager *Manager
}

// NewComponent 创建 Telemetry 组件
func NewComponent() *Component {
	return &Component{
		logger: logger.NewNop(),
		config: DefaultConfig(),
	}
}

// Name 返回组件名称
func (c *Component) Name() string {
	return component.ComponentTelemetry
}

// SetLogger 设置日志
func (c *Component) SetLogger(l *logger.CtxZapLogger) {
	if l != nil {
		c.logger = l
	}
}

// Init 初始化组件
func (c *Component) Init(ctx context.Context, loader component.ConfigLoader) error {
	c.config = DefaultConfig()

	if loader != nil && loader.IsSet("telemetry") {
		if err := loader.Unmarshal("telemetry", &c.config); err != nil {
			c.logger.ErrorCtx(ctx, "telemetry config exists but unmarshal failed", zap.Error(err))
			return fmt.Errorf("unmarshal telemetry config failed: %w", err)
		}
	}

	if err := c.config.Validate(); err != nil {
		return fmt.Errorf("validate telemetry config failed: %w", err)
	}

	c.manager = NewManager(c.config, c.logger)
	return nil
}

// Start 启动组件
func (c *Component) Start(ctx context.Context) error {
	if c.manager == nil {
		return fmt.Errorf("telemetry component not initialized")
	}
	return c.manager.Start(ctx)
}

// Stop 停止组件
func (c *Component) Stop(ctx context.Context) error {
	if c.manager == nil {
		return nil
	}
	if err := c.manager.Shutdown(ctx); err != nil {
		c.logger.ErrorCtx(ctx, "Failed to shutdown OpenTelemetry", zap.Error(err))
		return err
	}
	return nil
}

// GetTracer 获取 Tracer
func (c *Component) GetTracer(name string) otelTrace.Tracer {
	if c.manager == nil {
		return NewManager(c.config, c.logger).GetTracer(name)
	}
	return c.manager.GetTracer(name)
}

// GetMetricsRegistry 获取统一 Metrics 注册中心（未启动时为 nil）
func (c *Component) GetMetricsRegistry() *MetricsRegistry {
	if c.manager == nil {
		return nil
	}
	return c.manager.GetMetricsRegistry()
}

// ForceFlush 立即导出
func (c *Component) ForceFlush(ctx context.Context) error {
	if c.manager == nil {
		return nil
	}
	return c.manager.ForceFlush(ctx)
}

// IsEnabled 是否启用
func (c *Component) IsEnabled() bool {
	return c.config.Enabled
}

// GetConfig 获取配置
func (c *Component) GetConfig() Config {
	return c.config
}
