package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

// createTracerProvider 创建 TracerProvider
func createTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*trace.TracerProvider, error) {
	exporter, err := createSpanExporter(ctx, cfg.Exporter)
	if err != nil {
		return nil, fmt.Errorf("create exporter failed: %w", err)
	}

	opts := []trace.TracerProviderOption{
		trace.WithResource(res),
		trace.WithSampler(createSampler(cfg.Sampler)),
	}

	// 批处理（生产）或同步（调试）
	if cfg.Batch.Enabled {
		opts = append(opts, trace.WithBatcher(exporter,
			trace.WithMaxQueueSize(cfg.Batch.MaxQueueSize),
			trace.WithMaxExportBatchSize(cfg.Batch.MaxExportBatchSize),
			trace.WithBatchTimeout(cfg.Batch.ScheduleDelay),
			trace.WithExportTimeout(cfg.Batch.ExportTimeout),
		))
	} else {
		opts = append(opts, trace.WithSyncer(exporter))
	}

	return trace.NewTracerProvider(opts...), nil
}

// createSampler 创建 Sampler
func createSampler(cfg SamplerConfig) trace.Sampler {
	switch cfg.Type {
	case "always_on":
		return trace.AlwaysSample()
	case "always_off":
		return trace.NeverSample()
	case "trace_id_ratio":
		return trace.TraceIDRatioBased(cfg.Ratio)
	default:
		return trace.ParentBased(trace.AlwaysSample())
	}
}
