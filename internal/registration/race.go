package registration

import (
	"context"
	"sync"
)

type outcome[T any] struct {
	index int
	value T
	err   error
}

// firstOf runs every wait concurrently and returns the index and value of
// the first one to succeed. The others are cancelled and have returned
// before firstOf does. When all fail, the first error is returned.
func firstOf[T any](ctx context.Context, waits ...func(context.Context) (T, error)) (int, T, error) {
	ctx, cancel := context.WithCancel(ctx)
	results := make(chan outcome[T], len(waits))

	var wg sync.WaitGroup
	for i, wait := range waits {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := wait(ctx)
			results <- outcome[T]{index: i, value: v, err: err}
		}()
	}
	defer func() {
		cancel()
		wg.Wait()
	}()

	var firstErr error
	for range waits {
		r := <-results
		if r.err == nil {
			return r.index, r.value, nil
		}
		if firstErr == nil {
			firstErr = r.err
		}
	}
	var zero T
	return -1, zero, firstErr
}
