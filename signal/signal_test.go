package signal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/KOMKZ/go-yogan-signal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// recorder collects the order listeners ran in
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) listener(name string, ret error) ListenerFunc[int] {
	return func(ctx context.Context, n int) error {
		r.mu.Lock()
		r.calls = append(r.calls, name)
		r.mu.Unlock()
		return ret
	}
}

func (r *recorder) got() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

// ===== 注册 / 注销 测试 =====

func TestSignal_New(t *testing.T) {
	s := New[int]()
	assert.Equal(t, "signal", s.Name())
	assert.Equal(t, 0, s.Len())

	named := New[int](WithName("orders"))
	assert.Equal(t, "orders", named.Name())
}

func TestSignal_ListenIsIdempotent(t *testing.T) {
	s := New[int]()
	var count int
	l := NewListener(func(ctx context.Context, n int) error {
		count++
		return nil
	})

	s.Listen(l)
	s.Listen(l)
	assert.Equal(t, 1, s.Len())

	s.Emit(context.Background(), 1)
	assert.Equal(t, 1, count, "listener registered twice must run once")
}

func TestSignal_ListenNil(t *testing.T) {
	s := New[int]()

	dispose := s.Listen(nil)
	assert.False(t, dispose())

	l, dispose := s.On(nil)
	assert.Nil(t, l)
	assert.False(t, dispose())
	assert.Equal(t, 0, s.Len())
}

func TestSignal_Off(t *testing.T) {
	s := New[int]()
	l := newTestListener()

	assert.False(t, s.Off(l), "off before listen")
	s.Listen(l)
	assert.True(t, s.Off(l))
	assert.False(t, s.Off(l), "second off")
	assert.False(t, s.Off(nil))
	assert.Equal(t, 0, s.Len())
}

func TestSignal_OffID(t *testing.T) {
	s := New[int]()
	l, _ := s.On(func(ctx context.Context, n int) error { return nil })

	assert.True(t, s.OffID(l.ID()))
	assert.False(t, s.OffID(l.ID()))
	assert.False(t, s.OffID(ListenerID(0)))
}

func TestSignal_Disposer(t *testing.T) {
	s := New[int]()
	l := newTestListener()

	dispose := s.Listen(l)
	assert.True(t, s.Has(l))
	assert.True(t, dispose())
	assert.False(t, s.Has(l))
	assert.False(t, dispose(), "repeated dispose reports false")
}

func TestSignal_DisposerAfterClear(t *testing.T) {
	s := New[int]()
	_, dispose := s.On(func(ctx context.Context, n int) error { return nil })

	s.Clear()
	assert.NotPanics(t, func() {
		assert.False(t, dispose())
	})
}

func TestSignal_SameListenerOnTwoSignals(t *testing.T) {
	a, b := New[int](), New[int]()
	var count atomic.Int32
	l := NewListener(func(ctx context.Context, n int) error {
		count.Add(1)
		return nil
	})

	a.Listen(l)
	b.Listen(l)
	a.Off(l)

	a.Emit(context.Background(), 1)
	b.Emit(context.Background(), 1)
	assert.Equal(t, int32(1), count.Load())
}

// ===== Emit 测试 =====

func TestSignal_EmitNoListeners(t *testing.T) {
	s := New[int]()
	assert.NotPanics(t, func() {
		s.Emit(context.Background(), 1)
	})
}

func TestSignal_EmitFanOutInOrder(t *testing.T) {
	s := New[int]()
	rec := &recorder{}
	s.On(rec.listener("a", nil))
	s.On(rec.listener("b", nil))
	s.On(rec.listener("c", nil))

	s.Emit(context.Background(), 1)
	assert.Equal(t, []string{"a", "b", "c"}, rec.got())
}

func TestSignal_EmitPassesArgs(t *testing.T) {
	type payload struct {
		ID   int
		Name string
	}
	s := New[payload]()

	var got payload
	s.On(func(ctx context.Context, p payload) error {
		got = p
		return nil
	})

	s.Emit(context.Background(), payload{ID: 3, Name: "x"})
	assert.Equal(t, payload{ID: 3, Name: "x"}, got)
}

func TestSignal_EmitNilContext(t *testing.T) {
	s := New[int]()
	var gotCtx context.Context
	s.On(func(ctx context.Context, n int) error {
		gotCtx = ctx
		return nil
	})

	//nolint:staticcheck // nil ctx is tolerated
	s.Emit(nil, 1)
	require.NotNil(t, gotCtx)
}

func TestSignal_Break(t *testing.T) {
	s := New[int]()
	var counter int

	s.On(func(ctx context.Context, n int) error {
		counter++
		return nil
	})
	s.On(func(ctx context.Context, n int) error {
		counter++
		return ErrBreak
	})
	s.On(func(ctx context.Context, n int) error {
		counter++
		return nil
	})

	s.Emit(context.Background(), 7)
	assert.Equal(t, 2, counter)
	assert.Equal(t, 3, s.Len(), "break keeps every listener registered")

	s.Emit(context.Background(), 7)
	assert.Equal(t, 4, counter)
}

func TestSignal_UnsubscribeHalts(t *testing.T) {
	s := New[int]()
	rec := &recorder{}
	s.On(rec.listener("a", nil))
	quitter, _ := s.On(rec.listener("quit", ErrUnsubscribe))
	s.On(rec.listener("c", nil))

	s.Emit(context.Background(), 1)
	assert.Equal(t, []string{"a", "quit"}, rec.got())
	assert.False(t, s.Has(quitter))
	assert.Equal(t, 2, s.Len())

	rec.reset()
	s.Emit(context.Background(), 1)
	assert.Equal(t, []string{"a", "c"}, rec.got())
}

func TestSignal_UnsubscribeContinues(t *testing.T) {
	s := New[int](WithUnsubscribeHalts(false))
	rec := &recorder{}
	s.On(rec.listener("a", nil))
	s.On(rec.listener("quit", ErrUnsubscribe))
	s.On(rec.listener("c", nil))

	s.Emit(context.Background(), 1)
	assert.Equal(t, []string{"a", "quit", "c"}, rec.got())
	assert.Equal(t, 2, s.Len())
}

func TestSignal_WrappedDirectives(t *testing.T) {
	s := New[int]()
	rec := &recorder{}
	s.On(rec.listener("a", fmt.Errorf("enough: %w", ErrBreak)))
	s.On(rec.listener("b", nil))

	s.Emit(context.Background(), 1)
	assert.Equal(t, []string{"a"}, rec.got())
}

func TestSignal_ErrorMeansContinue(t *testing.T) {
	testLogger := logger.NewTestCtxLogger()
	s := New[int](WithName("orders"), WithLogger(testLogger))
	rec := &recorder{}
	failing, _ := s.On(rec.listener("fail", errors.New("db down")))
	s.On(rec.listener("b", nil))

	s.Emit(context.Background(), 1)

	assert.Equal(t, []string{"fail", "b"}, rec.got())
	assert.True(t, s.Has(failing))
	assert.True(t, testLogger.HasLogWithField("WARN", "listener returned error", "listener_id", uint64(failing.ID())))
	assert.True(t, testLogger.HasLogWithField("WARN", "listener returned error", "signal", "orders"))
}

func TestSignal_Once(t *testing.T) {
	s := New[int]()
	var count int
	once, _ := s.On(func(ctx context.Context, n int) error {
		count++
		return nil
	}, WithOnce())
	rec := &recorder{}
	s.On(rec.listener("after", nil))

	s.Emit(context.Background(), 1)
	s.Emit(context.Background(), 1)

	assert.Equal(t, 1, count)
	assert.False(t, s.Has(once))
	assert.Equal(t, []string{"after", "after"}, rec.got(), "once never halts the emission")
}

func TestSignal_Clear(t *testing.T) {
	s := New[int]()
	rec := &recorder{}
	s.On(rec.listener("a", nil))
	s.On(rec.listener("b", nil))

	s.Clear()
	assert.Equal(t, 0, s.Len())

	s.Emit(context.Background(), 1)
	assert.Empty(t, rec.got())

	s.On(rec.listener("c", nil))
	s.Emit(context.Background(), 1)
	assert.Equal(t, []string{"c"}, rec.got())
}

// ===== 快照语义 / 重入 测试 =====

func TestSignal_SnapshotIsolation_OffDuringEmit(t *testing.T) {
	s := New[int]()
	rec := &recorder{}

	later := NewListener(rec.listener("later", nil))
	s.On(func(ctx context.Context, n int) error {
		rec.listener("first", nil)(ctx, n)
		s.Off(later)
		return nil
	})
	s.Listen(later)

	s.Emit(context.Background(), 1)
	assert.Equal(t, []string{"first", "later"}, rec.got(), "removal is visible from the next emission")

	rec.reset()
	s.Emit(context.Background(), 1)
	assert.Equal(t, []string{"first"}, rec.got())
}

func TestSignal_SnapshotIsolation_ListenDuringEmit(t *testing.T) {
	s := New[int]()
	rec := &recorder{}
	added := NewListener(rec.listener("added", nil))

	s.On(func(ctx context.Context, n int) error {
		rec.listener("first", nil)(ctx, n)
		s.Listen(added)
		return nil
	})

	s.Emit(context.Background(), 1)
	assert.Equal(t, []string{"first"}, rec.got())

	rec.reset()
	s.Emit(context.Background(), 1)
	assert.Equal(t, []string{"first", "added"}, rec.got())
}

func TestSignal_ClearDuringEmit(t *testing.T) {
	s := New[int]()
	rec := &recorder{}
	s.On(func(ctx context.Context, n int) error {
		s.Clear()
		return nil
	})
	s.On(rec.listener("b", nil))

	s.Emit(context.Background(), 1)
	assert.Equal(t, []string{"b"}, rec.got(), "in-flight emission keeps its snapshot")
	assert.Equal(t, 0, s.Len())
}

func TestSignal_ReentrantEmit(t *testing.T) {
	s := New[int]()
	var seen []int

	s.On(func(ctx context.Context, n int) error {
		seen = append(seen, n)
		if n < 3 {
			s.Emit(ctx, n+1)
		}
		return nil
	})

	s.Emit(context.Background(), 1)
	assert.Equal(t, []int{1, 2, 3}, seen)
}

// ===== Panic 隔离 测试 =====

func TestSignal_PanicIsolation(t *testing.T) {
	testLogger := logger.NewTestCtxLogger()
	var handled *PanicError
	s := New[int](
		WithName("jobs"),
		WithLogger(testLogger),
		WithPanicHandler(func(ctx context.Context, err *PanicError) {
			handled = err
		}),
	)
	rec := &recorder{}
	s.On(rec.listener("a", nil))
	bad, _ := s.On(func(ctx context.Context, n int) error {
		panic("kaboom")
	}, WithListenerName("bad"))
	s.On(rec.listener("c", nil))

	assert.NotPanics(t, func() {
		s.Emit(context.Background(), 1)
	})

	assert.Equal(t, []string{"a", "c"}, rec.got())
	require.NotNil(t, handled)
	assert.Equal(t, "jobs", handled.Signal)
	assert.Equal(t, bad.ID(), handled.Listener)
	assert.Equal(t, "bad", handled.Name)
	assert.Equal(t, "kaboom", handled.Value)
	assert.NotEmpty(t, handled.Stack)
	assert.True(t, testLogger.HasLog("ERROR", "listener panicked"))
	assert.True(t, s.Has(bad), "panicking listener stays registered")

	// the signal stays usable
	rec.reset()
	s.On(rec.listener("d", nil))
	s.Emit(context.Background(), 2)
	assert.Equal(t, []string{"a", "c", "d"}, rec.got())
}

func TestSignal_PanicWithError(t *testing.T) {
	cause := errors.New("bad state")
	var handled *PanicError
	s := New[int](WithPanicHandler(func(ctx context.Context, err *PanicError) {
		handled = err
	}))
	s.On(func(ctx context.Context, n int) error {
		panic(cause)
	})

	s.Emit(context.Background(), 1)
	require.NotNil(t, handled)
	assert.ErrorIs(t, handled, cause)
}

func TestSignal_PanicHandlerPanicIsContained(t *testing.T) {
	testLogger := logger.NewTestCtxLogger()
	s := New[int](
		WithLogger(testLogger),
		WithPanicHandler(func(ctx context.Context, err *PanicError) {
			panic("handler")
		}),
	)
	rec := &recorder{}
	s.On(func(ctx context.Context, n int) error { panic("listener") })
	s.On(rec.listener("after", nil))

	assert.NotPanics(t, func() {
		s.Emit(context.Background(), 1)
	})

	assert.Equal(t, []string{"after"}, rec.got())
	assert.True(t, testLogger.HasLog("ERROR", "panic handler panicked"))
}

// ===== Cloner 测试 =====

func TestSignal_Cloner(t *testing.T) {
	s := New[[]int](WithCloner(func(in []int) []int {
		out := make([]int, len(in))
		copy(out, in)
		return out
	}))

	var second []int
	s.On(func(ctx context.Context, v []int) error {
		v[0] = 100
		return nil
	})
	s.On(func(ctx context.Context, v []int) error {
		second = v
		return nil
	})

	original := []int{1, 2}
	s.Emit(context.Background(), original)

	assert.Equal(t, []int{1, 2}, second)
	assert.Equal(t, []int{1, 2}, original)
}

func TestSignal_ClonerPanicIsIsolated(t *testing.T) {
	testLogger := logger.NewTestCtxLogger()
	var handled []*PanicError
	calls := 0
	s := New[int](
		WithLogger(testLogger),
		WithCloner(func(n int) int {
			calls++
			if calls == 1 {
				panic("clone")
			}
			return n
		}),
		WithPanicHandler(func(ctx context.Context, err *PanicError) {
			handled = append(handled, err)
		}),
	)
	rec := &recorder{}
	first, _ := s.On(rec.listener("a", nil))
	s.On(rec.listener("b", nil))

	assert.NotPanics(t, func() {
		s.Emit(context.Background(), 1)
	})

	assert.Equal(t, []string{"b"}, rec.got())
	require.Len(t, handled, 1)
	assert.Equal(t, first.ID(), handled[0].Listener)
	assert.Equal(t, "clone", handled[0].Value)
	assert.True(t, testLogger.HasLog("ERROR", "listener panicked"))
}

func TestSignal_ClonerTypeMismatchPanics(t *testing.T) {
	assert.Panics(t, func() {
		New[int](WithCloner(func(s string) string { return s }))
	})
}

// ===== 拦截器 测试 =====

func TestSignal_Use(t *testing.T) {
	s := New[int]()
	rec := &recorder{}

	s.Use(func(ctx context.Context, n int, next Next[int]) {
		rec.listener("outer-before", nil)(ctx, n)
		next(ctx, n)
		rec.listener("outer-after", nil)(ctx, n)
	})
	s.Use(func(ctx context.Context, n int, next Next[int]) {
		rec.listener("inner", nil)(ctx, n)
		next(ctx, n*2)
	})
	s.Use(nil)

	var got int
	s.On(func(ctx context.Context, n int) error {
		got = n
		rec.listener("listener", nil)(ctx, n)
		return nil
	})

	s.Emit(context.Background(), 5)
	assert.Equal(t, []string{"outer-before", "inner", "listener", "outer-after"}, rec.got())
	assert.Equal(t, 10, got)
}

func TestSignal_UseSuppress(t *testing.T) {
	s := New[int]()
	s.Use(func(ctx context.Context, n int, next Next[int]) {
		if n < 0 {
			return
		}
		next(ctx, n)
	})

	var count int
	s.On(func(ctx context.Context, n int) error {
		count++
		return nil
	})

	s.Emit(context.Background(), -1)
	s.Emit(context.Background(), 1)
	assert.Equal(t, 1, count)
}

// ===== 并发 测试 =====

func TestSignal_ConcurrentListenEmit(t *testing.T) {
	s := New[int]()
	var total atomic.Int64

	const workers = 8
	const rounds = 200

	g, ctx := errgroup.WithContext(context.Background())
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := 0; i < rounds; i++ {
				l, dispose := s.On(func(ctx context.Context, n int) error {
					total.Add(int64(n))
					return nil
				})
				s.Emit(ctx, 1)
				if !dispose() && s.Has(l) {
					return fmt.Errorf("listener %d still registered after dispose", l.ID())
				}
			}
			return nil
		})
	}

	require.NoError(t, g.Wait())
	assert.Equal(t, 0, s.Len())
	assert.GreaterOrEqual(t, total.Load(), int64(workers*rounds), "each emission sees at least its own listener")
}

func TestSignal_ConcurrentUnsubscribe(t *testing.T) {
	s := New[int](WithUnsubscribeHalts(false))
	var calls atomic.Int32
	l, _ := s.On(func(ctx context.Context, n int) error {
		calls.Add(1)
		return ErrUnsubscribe
	})

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			s.Emit(context.Background(), 1)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.False(t, s.Has(l))
	before := calls.Load()
	assert.GreaterOrEqual(t, before, int32(1))

	s.Emit(context.Background(), 1)
	assert.Equal(t, before, calls.Load(), "no invocation after the removal is visible")
}
