// Package signal provides Signal[T], a typed, thread-safe, in-process event dispatcher.
//
// Producers call Emit; every registered listener is invoked synchronously on the
// caller's goroutine, in registration order, against a snapshot of the registry taken
// when the emission starts. A listener steers the rest of the emission through its
// return value:
//
//	nil / any other error  -> continue with the next listener
//	signal.ErrBreak        -> stop this emission, stay registered
//	signal.ErrUnsubscribe  -> unregister, and stop this emission (see WithUnsubscribeHalts)
//
// Basic usage:
//
//	sig := signal.New[Tick](signal.WithName("tick"))
//
//	l, dispose := sig.On(func(ctx context.Context, t Tick) error {
//		if t.Seq > 100 {
//			return signal.ErrUnsubscribe
//		}
//		return nil
//	})
//	defer dispose()
//
//	sig.Emit(ctx, Tick{Seq: 1})
//	sig.Off(l)
//
// Listeners may call Emit, Listen, Off and Clear on the same Signal from inside their
// body; registry changes become visible from the next emission. A panicking listener
// is recovered and reported, the emission moves on to the next listener.
package signal
