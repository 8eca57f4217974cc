package signal

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/KOMKZ/go-yogan-signal/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Disposer unregisters the listener it was returned for.
// It reports whether the listener was still registered.
type Disposer func() bool

func noopDisposer() bool { return false }

// Signal dispatches values of type T to its registered listeners
type Signal[T any] struct {
	registry *registry[T]

	imu          sync.RWMutex
	interceptors []Interceptor[T]

	name             string
	logger           logger.Logger
	metrics          *Metrics
	gaugeToken       uint64
	closeOnce        sync.Once
	tracer           trace.Tracer
	cloner           func(T) T
	unsubscribeHalts bool
	panicHandler     func(ctx context.Context, err *PanicError)
}

// New creates a Signal with an empty registry
func New[T any](opts ...Option) *Signal[T] {
	st := defaultSettings()
	for _, opt := range opts {
		opt(&st)
	}

	s := &Signal[T]{
		registry:         newRegistry[T](),
		name:             st.name,
		metrics:          st.metrics,
		tracer:           st.tracer,
		unsubscribeHalts: st.unsubscribeHalts,
		panicHandler:     st.panicHandler,
	}

	if st.cloner != nil {
		cloner, ok := st.cloner.(func(T) T)
		if !ok {
			var zero T
			panic(fmt.Sprintf("signal %s: cloner %T does not match argument type %T", st.name, st.cloner, zero))
		}
		s.cloner = cloner
	}

	if st.logger == nil {
		st.logger = logger.NewNop()
	}
	s.logger = st.logger

	if s.metrics != nil {
		// 只引用 registry；s 不可达后由 AddCleanup 释放 gauge 条目
		reg, m := s.registry, s.metrics
		s.gaugeToken = m.track(s.name, func() int64 { return int64(reg.len()) })
		runtime.AddCleanup(s, m.untrack, s.gaugeToken)
	}

	return s
}

// Close removes every listener and releases the signal's listener-count gauge.
// The signal stays usable afterwards but is no longer reported by the gauge.
func (s *Signal[T]) Close() {
	s.Clear()
	s.closeOnce.Do(func() {
		if s.metrics != nil {
			s.metrics.untrack(s.gaugeToken)
		}
	})
}

// Name returns the signal name
func (s *Signal[T]) Name() string {
	return s.name
}

// Listen registers l. Registering an already registered listener is a no-op.
// The returned Disposer calls Off(l).
func (s *Signal[T]) Listen(l *Listener[T]) Disposer {
	if l == nil {
		return noopDisposer
	}

	if s.registry.insert(l) {
		s.logger.DebugCtx(context.Background(), "listener registered",
			zap.String("signal", s.name),
			zap.Uint64("listener_id", uint64(l.id)),
			zap.String("listener", l.name))
	}

	return func() bool {
		return s.Off(l)
	}
}

// On wraps fn into a new listener and registers it
func (s *Signal[T]) On(fn ListenerFunc[T], opts ...ListenerOption) (*Listener[T], Disposer) {
	if fn == nil {
		return nil, noopDisposer
	}
	l := NewListener(fn, opts...)
	return l, s.Listen(l)
}

// Off removes l by identity, reporting whether it was registered
func (s *Signal[T]) Off(l *Listener[T]) bool {
	if l == nil {
		return false
	}
	return s.OffID(l.id)
}

// OffID removes the listener with id, reporting whether it was registered
func (s *Signal[T]) OffID(id ListenerID) bool {
	removed := s.registry.remove(id)
	if removed {
		s.logger.DebugCtx(context.Background(), "listener removed",
			zap.String("signal", s.name),
			zap.Uint64("listener_id", uint64(id)))
	}
	return removed
}

// Has reports whether l is currently registered
func (s *Signal[T]) Has(l *Listener[T]) bool {
	return l != nil && s.registry.contains(l.id)
}

// Len returns the number of registered listeners
func (s *Signal[T]) Len() int {
	return s.registry.len()
}

// Clear removes every listener. Emissions already in progress are not affected.
func (s *Signal[T]) Clear() {
	n := s.registry.clear()
	s.logger.DebugCtx(context.Background(), "listeners cleared",
		zap.String("signal", s.name),
		zap.Int("removed", n))
}

// Use registers an interceptor; the first registered runs outermost
func (s *Signal[T]) Use(interceptor Interceptor[T]) {
	if interceptor == nil {
		return
	}
	s.imu.Lock()
	s.interceptors = append(s.interceptors, interceptor)
	s.imu.Unlock()
}

// Emit synchronously invokes the registered listeners with args and returns once the
// dispatch loop is exhausted or halted. ctx is handed to every listener; it is not
// used for cancellation.
func (s *Signal[T]) Emit(ctx context.Context, args T) {
	if ctx == nil {
		ctx = context.Background()
	}

	s.imu.RLock()
	interceptors := s.interceptors
	s.imu.RUnlock()

	if len(interceptors) == 0 {
		s.dispatch(ctx, args)
		return
	}
	s.buildChain(interceptors)(ctx, args)
}

// buildChain interceptor -> ... -> dispatch
func (s *Signal[T]) buildChain(interceptors []Interceptor[T]) Next[T] {
	handler := Next[T](s.dispatch)

	for i := len(interceptors) - 1; i >= 0; i-- {
		interceptor := interceptors[i]
		next := handler
		handler = func(ctx context.Context, args T) {
			interceptor(ctx, args, next)
		}
	}
	return handler
}

// dispatch is the emission loop over a registry snapshot
func (s *Signal[T]) dispatch(ctx context.Context, args T) {
	start := time.Now()
	snapshot := s.registry.snapshot()

	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, "signal.emit",
			trace.WithAttributes(
				attribute.String("signal.name", s.name),
				attribute.Int("signal.listeners", len(snapshot)),
			))
		defer span.End()
	}

	invoked := 0
	haltedBy := Continue

loop:
	for _, l := range snapshot {
		invoked++
		outcome := s.invoke(ctx, l, args)

		if l.once && outcome != Unsubscribe {
			s.registry.remove(l.id)
		}

		switch outcome {
		case Break:
			haltedBy = Break
			break loop
		case Unsubscribe:
			s.registry.remove(l.id)
			s.logger.DebugCtx(ctx, "listener unsubscribed during emission",
				zap.String("signal", s.name),
				zap.Uint64("listener_id", uint64(l.id)))
			if s.unsubscribeHalts {
				haltedBy = Unsubscribe
				break loop
			}
		}
	}

	if span != nil {
		span.SetAttributes(
			attribute.Int("signal.invoked", invoked),
			attribute.String("signal.halted_by", haltedBy.String()),
		)
	}
	if s.metrics != nil {
		s.metrics.RecordEmit(ctx, s.name, haltedBy, time.Since(start))
	}
}

// invoke clones args when a cloner is set and runs one listener, isolating panics
// from both
func (s *Signal[T]) invoke(ctx context.Context, l *Listener[T], args T) (outcome Outcome) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		perr := &PanicError{
			Signal:   s.name,
			Listener: l.id,
			Name:     l.name,
			Value:    r,
			Stack:    string(debug.Stack()),
		}
		s.logger.ErrorCtx(ctx, "listener panicked",
			zap.String("signal", s.name),
			zap.Uint64("listener_id", uint64(l.id)),
			zap.String("listener", l.name),
			zap.Any("panic", r))

		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.RecordError(perr)
			span.SetStatus(codes.Error, "listener panicked")
		}
		if s.metrics != nil {
			s.metrics.RecordInvocation(ctx, s.name, resultPanic)
		}
		s.handlePanic(ctx, perr)
		outcome = Continue
	}()

	arg := args
	if s.cloner != nil {
		arg = s.cloner(args)
	}

	err := l.fn(ctx, arg)
	outcome = OutcomeOf(err)

	result := outcome.String()
	if err != nil && outcome == Continue {
		result = resultError
		s.logger.WarnCtx(ctx, "listener returned error",
			zap.String("signal", s.name),
			zap.Uint64("listener_id", uint64(l.id)),
			zap.String("listener", l.name),
			zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RecordInvocation(ctx, s.name, result)
	}
	return outcome
}

// handlePanic hands perr to the panic handler; a panic inside the handler is logged and dropped
func (s *Signal[T]) handlePanic(ctx context.Context, perr *PanicError) {
	if s.panicHandler == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorCtx(ctx, "panic handler panicked",
				zap.String("signal", s.name),
				zap.Uint64("listener_id", uint64(perr.Listener)),
				zap.Any("panic", r))
		}
	}()
	s.panicHandler(ctx, perr)
}
