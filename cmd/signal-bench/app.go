package main

import (
	"context"
	"fmt"

	"github.com/KOMKZ/go-yogan-signal/component"
	"github.com/KOMKZ/go-yogan-signal/config"
	"github.com/KOMKZ/go-yogan-signal/logger"
	"github.com/KOMKZ/go-yogan-signal/signal"
	"github.com/KOMKZ/go-yogan-signal/telemetry"
	"github.com/samber/do/v2"
	"go.uber.org/zap"
)

// App bench services resolved from a do injector
type App struct {
	injector  *do.RootScope
	logs      *logger.Manager
	log       *logger.CtxZapLogger
	telemetry *telemetry.Component
	signals   *signal.Component
}

// newApp 注册 Provider 并按依赖顺序初始化：config -> logger -> telemetry -> signal
func newApp(ctx context.Context, opts Options) (*App, error) {
	injector := do.New()

	do.Provide(injector, config.ProvideLoader(config.ProvideLoaderOptions{
		ConfigPath: opts.ConfigDir,
		Files:      opts.ConfigFiles,
		EnvPrefix:  opts.EnvPrefix,
		Sections:   configSections,
	}))
	do.Provide(injector, provideLoggerManager)
	do.Provide(injector, provideTelemetry(ctx))
	do.Provide(injector, provideSignalComponent(ctx))

	signals, err := do.Invoke[*signal.Component](injector)
	if err != nil {
		_ = injector.Shutdown()
		return nil, fmt.Errorf("初始化 signal 组件失败: %w", err)
	}

	logs := do.MustInvoke[*logger.Manager](injector)
	return &App{
		injector:  injector,
		logs:      logs,
		log:       logs.GetLogger("bench"),
		telemetry: do.MustInvoke[*telemetry.Component](injector),
		signals:   signals,
	}, nil
}

func provideLoggerManager(i do.Injector) (*logger.Manager, error) {
	loader := do.MustInvoke[*config.Loader](i)

	cfg := logger.DefaultManagerConfig()
	cfg.DisableFile = true
	if loader.IsSet(component.ComponentLogger) {
		if err := loader.Unmarshal(component.ComponentLogger, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal logger config: %w", err)
		}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid logger config: %w", err)
	}

	mgr := logger.NewManager(cfg)
	if err := logger.SetManager(mgr); err != nil {
		return nil, err
	}
	return mgr, nil
}

func provideTelemetry(ctx context.Context) func(do.Injector) (*telemetry.Component, error) {
	return func(i do.Injector) (*telemetry.Component, error) {
		loader := do.MustInvoke[*config.Loader](i)
		logs := do.MustInvoke[*logger.Manager](i)

		c := telemetry.NewComponent()
		c.SetLogger(logs.GetLogger(component.ComponentTelemetry))
		if err := c.Init(ctx, loader); err != nil {
			return nil, err
		}
		if err := c.Start(ctx); err != nil {
			return nil, err
		}
		return c, nil
	}
}

func provideSignalComponent(ctx context.Context) func(do.Injector) (*signal.Component, error) {
	return func(i do.Injector) (*signal.Component, error) {
		loader := do.MustInvoke[*config.Loader](i)
		logs := do.MustInvoke[*logger.Manager](i)
		tel := do.MustInvoke[*telemetry.Component](i)

		c := signal.NewComponent()
		c.SetLogger(logs.GetLogger(component.ComponentSignal))
		c.SetTracer(tel.GetTracer(component.ComponentSignal))
		if registry := tel.GetMetricsRegistry(); registry != nil {
			c.SetMetricsCollector(registry)
		}

		if err := c.Init(ctx, loader); err != nil {
			return nil, err
		}
		if err := c.Start(ctx); err != nil {
			return nil, err
		}
		return c, nil
	}
}

// NewSignal creates the tick signal from the loaded configuration
func (a *App) NewSignal() *signal.Signal[Tick] {
	return signal.Attach[Tick](a.signals, "tick")
}

// Logger bench logger
func (a *App) Logger() *logger.CtxZapLogger {
	return a.log
}

// Flush exports pending telemetry
func (a *App) Flush(ctx context.Context) error {
	return a.telemetry.ForceFlush(ctx)
}

// Shutdown stops components in reverse order and closes log files
func (a *App) Shutdown(ctx context.Context) {
	if err := a.signals.Stop(ctx); err != nil {
		a.log.WarnCtx(ctx, "signal component stop failed", zap.Error(err))
	}
	if err := a.telemetry.Stop(ctx); err != nil {
		a.log.WarnCtx(ctx, "telemetry component stop failed", zap.Error(err))
	}
	// 组件已显式停止，容器内没有注册 Shutdowner
	_ = a.injector.Shutdown()
	a.logs.CloseAll()
}
