package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// MetricsManager Metrics 管理器
type MetricsManager struct {
	meterProvider *sdkmetric.MeterProvider
	config        MetricsConfig
	enabled       bool
}

// NewMetricsManager 创建 Metrics 管理器
func NewMetricsManager(ctx context.Context, cfg Config, res *resource.Resource) (*MetricsManager, error) {
	if !cfg.Enabled || !cfg.Metrics.Enabled {
		return &MetricsManager{config: cfg.Metrics}, nil
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	var exporter sdkmetric.Exporter
	var err error

	switch cfg.Exporter.Type {
	case "otlp":
		grpcOpts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Exporter.Endpoint),
			otlpmetricgrpc.WithTimeout(cfg.Exporter.Timeout),
		}
		if cfg.Exporter.Insecure {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithInsecure())
		}
		if len(cfg.Exporter.Headers) > 0 {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithHeaders(cfg.Exporter.Headers))
		}
		exporter, err = otlpmetricgrpc.New(ctx, grpcOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}

	case "stdout":
		var stdoutOpts []stdoutmetric.Option
		if cfg.Exporter.Writer != nil {
			stdoutOpts = append(stdoutOpts, stdoutmetric.WithWriter(cfg.Exporter.Writer))
		}
		exporter, err = stdoutmetric.New(stdoutOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout metrics exporter: %w", err)
		}

	case "noop":
		// instruments still aggregate, nothing is exported

	default:
		return nil, fmt.Errorf("unsupported metrics exporter type: %s", cfg.Exporter.Type)
	}

	if exporter != nil {
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(cfg.Metrics.ExportInterval),
				sdkmetric.WithTimeout(cfg.Metrics.ExportTimeout),
			),
		))
	}

	return &MetricsManager{
		meterProvider: sdkmetric.NewMeterProvider(opts...),
		config:        cfg.Metrics,
		enabled:       true,
	}, nil
}

// MeterProvider returns the SDK provider, or a noop provider when disabled
func (m *MetricsManager) MeterProvider() metric.MeterProvider {
	if m.meterProvider == nil {
		return noop.NewMeterProvider()
	}
	return m.meterProvider
}

// ForceFlush exports everything recorded so far
func (m *MetricsManager) ForceFlush(ctx context.Context) error {
	if m.meterProvider == nil {
		return nil
	}
	return m.meterProvider.ForceFlush(ctx)
}

// Shutdown 关闭 Metrics
func (m *MetricsManager) Shutdown(ctx context.Context) error {
	if m.meterProvider != nil {
		return m.meterProvider.Shutdown(ctx)
	}
	return nil
}

// IsEnabled 是否启用
func (m *MetricsManager) IsEnabled() bool {
	return m.enabled
}

// GetConfig 获取配置
func (m *MetricsManager) GetConfig() MetricsConfig {
	return m.config
}
