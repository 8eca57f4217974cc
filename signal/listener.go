package signal

import (
	"context"
	"strconv"
	"sync/atomic"
)

// ListenerID identifies one registration. IDs are process-wide and never reused.
type ListenerID uint64

var lastListenerID atomic.Uint64

// ListenerFunc is the body of a listener
type ListenerFunc[T any] func(ctx context.Context, args T) error

// Listener is a registrable unit. Its identity is its ID: copies of the pointer are the
// same listener, two listeners built from identical functions are not.
type Listener[T any] struct {
	id   ListenerID
	name string
	fn   ListenerFunc[T]
	once bool // removed after its first invocation
}

// ListenerOption listener options
type ListenerOption func(*listenerOptions)

type listenerOptions struct {
	name string
	once bool
}

// WithListenerName sets the label used in logs
func WithListenerName(name string) ListenerOption {
	return func(o *listenerOptions) {
		o.name = name
	}
}

// WithOnce executes only once and then automatically unsubscribes.
// Unlike ErrUnsubscribe this never halts the emission.
func WithOnce() ListenerOption {
	return func(o *listenerOptions) {
		o.once = true
	}
}

// NewListener wraps fn into a listener with a fresh ID. It panics if fn is nil.
func NewListener[T any](fn ListenerFunc[T], opts ...ListenerOption) *Listener[T] {
	if fn == nil {
		panic(ErrNilListenerFunc)
	}

	var o listenerOptions
	for _, opt := range opts {
		opt(&o)
	}

	id := ListenerID(lastListenerID.Add(1))
	if o.name == "" {
		o.name = "listener-" + strconv.FormatUint(uint64(id), 10)
	}

	return &Listener[T]{
		id:   id,
		name: o.name,
		fn:   fn,
		once: o.once,
	}
}

// ID returns the listener identity
func (l *Listener[T]) ID() ListenerID {
	return l.id
}

// Name returns the listener label
func (l *Listener[T]) Name() string {
	return l.name
}

// Once reports whether the listener was built WithOnce
func (l *Listener[T]) Once() bool {
	return l.once
}

// Invoke calls the listener body directly. Concurrent calls are not serialized.
func (l *Listener[T]) Invoke(ctx context.Context, args T) error {
	return l.fn(ctx, args)
}
