package signal

import "context"

// Next continues with the next interceptor, or the dispatch loop itself
type Next[T any] func(ctx context.Context, args T)

// Interceptor wraps a whole emission. It can be used for logging, filtering or
// context enrichment; not calling next suppresses the emission.
type Interceptor[T any] func(ctx context.Context, args T, next Next[T])
