package application

import (
	"context"
	"sync"
	"time"

	"venue-pulse/internal/observability/metrics"
)

// Settled is the outcome of one independent upstream fetch.
type Settled[T any] struct {
	Value T
	Err   error
}

// OK reports whether the fetch succeeded.
func (s Settled[T]) OK() bool { return s.Err == nil }

// fanOut runs fetch on its own goroutine and records the outcome in out.
// Callers wait on wg before reading out.
func fanOut[T any](ctx context.Context, wg *sync.WaitGroup, source string, out *Settled[T], fetch func(context.Context) (T, error)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		started := time.Now()
		value, err := fetch(ctx)
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
		}
		metrics.ObserveUpstreamFetch(source, result, time.Since(started))
		*out = Settled[T]{Value: value, Err: err}
	}()
}
