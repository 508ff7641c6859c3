// Package parallel runs a function over a list of items on a bounded set of
// goroutines.
package parallel

import (
	"context"
	"github.com/pkg/errors"
	"runtime"
	"sync"
)

var ErrNoItems = errors.New("parallel: items list can not be empty")

type result[R any] struct {
	idx int
	val R
	err error
}

// Run calls fn for every item on up to n goroutines, NumCPU when n <= 0.
// Results come back in input order. When a call fails, the remaining items
// still run and the error of the earliest failed item is returned once
// every worker has finished.
func Run[T, R any](ctx context.Context, items []T, n int, fn func(context.Context, T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if n <= 0 {
		n = runtime.NumCPU()
	}
	if n > len(items) {
		n = len(items)
	}

	var (
		wg      sync.WaitGroup
		queue   = make(chan int)
		results = make(chan result[R], len(items))
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range queue {
				val, err := call(ctx, fn, items[idx])
				results <- result[R]{idx, val, err}
			}
		}()
	}

Feed:
	for i := range items {
		select {
		case queue <- i:
		case <-ctx.Done():
			break Feed
		}
	}
	close(queue)
	wg.Wait()
	close(results)

	out := make([]R, len(items))
	errAt, firstErr := len(items), error(nil)
	for r := range results {
		out[r.idx] = r.val
		if r.err != nil && r.idx < errAt {
			errAt, firstErr = r.idx, errors.WithMessagef(r.err, "item %d", r.idx)
		}
	}
	if firstErr != nil {
		return out, firstErr
	}
	return out, errors.WithStack(ctx.Err())
}

func call[T, R any](ctx context.Context, fn func(context.Context, T) (R, error), item T) (val R, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx, item)
}
