package concurrent

import (
	"context"
	"sync"
)

// Result represents the result of a parallel operation
type Result[T any] struct {
	Value T
	Error error
	Index int // Original index in the input slice
}

// Map executes fn on each item in parallel and returns the results in input
// order. limit caps the number of concurrent calls; zero or less means no
// limit. Items not yet started when ctx is done get ctx.Err() as their error.
func Map[T any, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, item T) (R, error)) []Result[R] {
	if limit <= 0 {
		limit = len(items)
	}

	results := make([]Result[R], len(items))
	var wg sync.WaitGroup

	// Create a semaphore channel to limit concurrency
	semaphore := make(chan struct{}, max(limit, 1))

	for i, item := range items {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i].Index = i

			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				results[i].Error = ctx.Err()
				return
			}
			defer func() { <-semaphore }()

			if err := ctx.Err(); err != nil {
				results[i].Error = err
				return
			}
			results[i].Value, results[i].Error = fn(ctx, item)
		}()
	}

	wg.Wait()
	return results
}
