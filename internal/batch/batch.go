// Package batch runs an ordered batch of independent evaluations on a bounded worker pool.
package batch

import (
	"context"
	"fmt"
	"sync"
)

// EvalFunc evaluates a single item.
type EvalFunc[In, Out any] func(ctx context.Context, item In) (Out, error)

// FallbackFunc converts a failed or panicked evaluation into a result for that slot.
type FallbackFunc[In, Out any] func(item In, err error) Out

// Run evaluates items with at most min(maxWorkers, len(items)) workers and
// returns one output per input at the same index.
//
// Workers pull indices from a shared FIFO and write into their own slot of a
// pre-allocated output slice, so completion order never affects result order.
// Errors and panics stay with their item: fallback decides what lands in the
// slot, and a nil fallback leaves the zero value there.
func Run[In, Out any](ctx context.Context, items []In, maxWorkers int, eval EvalFunc[In, Out], fallback FallbackFunc[In, Out]) []Out {
	if len(items) == 0 {
		return []Out{}
	}

	workers := min(maxWorkers, len(items))
	if workers < 1 {
		workers = 1
	}

	results := make([]Out, len(items))
	indexCh := make(chan int, len(items))
	for i := range items {
		indexCh <- i
	}
	close(indexCh)

	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			for i := range indexCh {
				// Each goroutine writes to a unique index, which is safe
				results[i] = evaluate(ctx, items[i], eval, fallback)
			}
		})
	}
	wg.Wait()

	return results
}

// evaluate runs eval for one item and routes errors and panics through fallback.
func evaluate[In, Out any](ctx context.Context, item In, eval EvalFunc[In, Out], fallback FallbackFunc[In, Out]) (out Out) {
	defer func() {
		if r := recover(); r != nil {
			out = fallbackFor(item, fmt.Errorf("panic during evaluation: %v", r), fallback)
		}
	}()

	if err := ctx.Err(); err != nil {
		return fallbackFor(item, err, fallback)
	}

	res, err := eval(ctx, item)
	if err != nil {
		return fallbackFor(item, err, fallback)
	}
	return res
}

func fallbackFor[In, Out any](item In, err error, fallback FallbackFunc[In, Out]) Out {
	var zero Out
	if fallback == nil {
		return zero
	}
	return fallback(item, err)
}
