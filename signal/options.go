package signal

import (
	"context"

	"github.com/KOMKZ/go-yogan-signal/logger"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Signal
type Option func(*settings)

type settings struct {
	name             string
	logger           logger.Logger
	metrics          *Metrics
	tracer           trace.Tracer
	cloner           any // func(T) T, checked in New
	unsubscribeHalts bool
	panicHandler     func(ctx context.Context, err *PanicError)
}

func defaultSettings() settings {
	return settings{
		name:             "signal",
		unsubscribeHalts: true,
	}
}

// WithName sets the name used in logs, metrics and spans
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets the logger; the default discards everything
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithMetrics records emissions and invocations on m
func WithMetrics(m *Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithTracer wraps every emission in a "signal.emit" span
func WithTracer(t trace.Tracer) Option {
	return func(s *settings) {
		s.tracer = t
	}
}

// WithCloner duplicates args before each listener invocation, so listeners never
// observe each other's mutations of reference-typed arguments.
// The function type must match the Signal's argument type.
func WithCloner[T any](clone func(T) T) Option {
	return func(s *settings) {
		if clone != nil {
			s.cloner = clone
		}
	}
}

// WithUnsubscribeHalts controls whether ErrUnsubscribe also stops the current
// emission (default true). With false the listener is removed and dispatch continues.
func WithUnsubscribeHalts(halts bool) Option {
	return func(s *settings) {
		s.unsubscribeHalts = halts
	}
}

// WithPanicHandler is called after a listener panic has been recovered and logged
func WithPanicHandler(fn func(ctx context.Context, err *PanicError)) Option {
	return func(s *settings) {
		s.panicHandler = fn
	}
}
