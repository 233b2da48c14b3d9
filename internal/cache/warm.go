package cache

import (
	"context"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// WarmOptions bounds a warming run
type WarmOptions struct {
	Parallelism  int  // concurrent generator calls, default 5
	IgnoreErrors bool // when false, the first generator failure is returned
	EntryOptions EntryOptions
}

// WarmResult reports one key's warming outcome
type WarmResult struct {
	Key string
	Err error
}

// Warm populates the cache for the given keys by calling generate on a
// bounded worker pool and joining before returning. A failing generator call
// is recorded in the results but does not abort the run unless IgnoreErrors
// is false, in which case the first failure is returned after the join.
func (c *Cache[T]) Warm(ctx context.Context, keys []string, generate func(ctx context.Context, key string) (T, error), opts WarmOptions) ([]WarmResult, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = 5
	}

	pool, err := ants.NewPool(parallelism)
	if err != nil {
		return nil, fmt.Errorf("failed to create warming pool: %w", err)
	}
	defer pool.Release()

	results := make([]WarmResult, len(keys))
	var wg sync.WaitGroup

	for i, key := range keys {
		i, key := i, key
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()

			if err := ctx.Err(); err != nil {
				results[i] = WarmResult{Key: key, Err: err}
				return
			}
			value, err := generate(ctx, key)
			if err != nil {
				results[i] = WarmResult{Key: key, Err: err}
				return
			}
			c.Set(key, value, opts.EntryOptions)
			results[i] = WarmResult{Key: key}
		})
		if submitErr != nil {
			wg.Done()
			results[i] = WarmResult{Key: key, Err: submitErr}
		}
	}
	wg.Wait()

	if !opts.IgnoreErrors {
		for _, r := range results {
			if r.Err != nil {
				return results, fmt.Errorf("cache warming failed for key %s: %w", r.Key, r.Err)
			}
		}
	}
	return results, nil
}
