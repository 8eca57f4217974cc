package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KOMKZ/go-yogan-signal/logger"
	"github.com/KOMKZ/go-yogan-signal/signal"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Tick is the payload emitted by producers
type Tick struct {
	RunID    string
	Producer int
	Seq      int
}

// Report run totals
type Report struct {
	RunID        string
	Emits        int64
	Invocations  int64 // counting listeners only
	Breaks       int64
	Unsubscribed int64 // invocations of the self-removing listener
	Listeners    int   // still registered after the run
	Duration     time.Duration
}

// Print writes a human-readable summary
func (r Report) Print(w io.Writer) {
	fmt.Fprintf(w, "run %s finished in %s\n", r.RunID, r.Duration)
	fmt.Fprintf(w, "  emits:        %d\n", r.Emits)
	fmt.Fprintf(w, "  invocations:  %d\n", r.Invocations)
	fmt.Fprintf(w, "  breaks:       %d\n", r.Breaks)
	fmt.Fprintf(w, "  unsubscribed: %d\n", r.Unsubscribed)
	fmt.Fprintf(w, "  listeners:    %d\n", r.Listeners)
}

// Run registers the bench listeners on sig and emits Producers*Emits ticks from an
// ants pool. Listener order: breaker (optional), counters, self-unsubscriber.
func Run(ctx context.Context, sig *signal.Signal[Tick], opts Options, log logger.Logger) (Report, error) {
	if err := opts.Validate(); err != nil {
		return Report{}, err
	}
	if log == nil {
		log = logger.NewNop()
	}

	report := Report{RunID: uuid.NewString()}
	var emits, invocations, breaks, unsubscribed atomic.Int64

	if opts.BreakEvery > 0 {
		sig.On(func(ctx context.Context, t Tick) error {
			if t.Seq%opts.BreakEvery == 0 {
				breaks.Add(1)
				return signal.ErrBreak
			}
			return nil
		}, signal.WithListenerName("breaker"))
	}

	for i := 0; i < opts.Listeners; i++ {
		sig.On(func(ctx context.Context, t Tick) error {
			invocations.Add(1)
			return nil
		}, signal.WithListenerName(fmt.Sprintf("counter-%d", i)))
	}

	sig.On(func(ctx context.Context, t Tick) error {
		unsubscribed.Add(1)
		return signal.ErrUnsubscribe
	}, signal.WithListenerName("one-shot"))

	pool, err := ants.NewPool(opts.Producers)
	if err != nil {
		return Report{}, fmt.Errorf("create producer pool: %w", err)
	}
	defer pool.Release()

	log.InfoCtx(ctx, "bench started",
		zap.String("run_id", report.RunID),
		zap.Int("listeners", sig.Len()),
		zap.Int("producers", opts.Producers),
		zap.Int("emits", opts.Emits))

	start := time.Now()
	var wg sync.WaitGroup
	for p := 0; p < opts.Producers; p++ {
		wg.Add(1)
		producer := p
		if err := pool.Submit(func() {
			defer wg.Done()
			for seq := 1; seq <= opts.Emits; seq++ {
				if ctx.Err() != nil {
					return
				}
				sig.Emit(ctx, Tick{RunID: report.RunID, Producer: producer, Seq: seq})
				emits.Add(1)
			}
		}); err != nil {
			wg.Done()
			wg.Wait()
			return Report{}, fmt.Errorf("submit producer %d: %w", producer, err)
		}
	}
	wg.Wait()

	report.Duration = time.Since(start)
	report.Emits = emits.Load()
	report.Invocations = invocations.Load()
	report.Breaks = breaks.Load()
	report.Unsubscribed = unsubscribed.Load()
	report.Listeners = sig.Len()

	log.InfoCtx(ctx, "bench finished",
		zap.String("run_id", report.RunID),
		zap.Int64("emits", report.Emits),
		zap.Int64("invocations", report.Invocations),
		zap.Int64("breaks", report.Breaks),
		zap.Duration("duration", report.Duration))

	return report, ctx.Err()
}
