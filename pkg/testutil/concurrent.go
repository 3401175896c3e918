// Package testutil provides shared test helpers.
package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/Manoelfg123/wpp-ohi/pkg/sentinel"
)

// ConcurrentResult tracks outcomes of concurrent test operations.
type ConcurrentResult struct {
	Successes     int32
	Errors        int32
	InvalidStates int32
	NotFounds     int32
}

// Total returns the total number of operations executed.
func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.InvalidStates + r.NotFounds
}

// RunConcurrent executes fn in parallel goroutines and categorizes outcomes
// by sentinel error. It replaces the WaitGroup plus atomic counters pattern
// in concurrency tests.
func RunConcurrent(goroutines int, fn func(idx int) error) *ConcurrentResult {
	var wg sync.WaitGroup
	var successes, errs, invalid, notFounds atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			err := fn(idx)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrInvalidState):
				invalid.Add(1)
			case errors.Is(err, sentinel.ErrNotFound):
				notFounds.Add(1)
			default:
				errs.Add(1)
			}
		}(i)
	}
	wg.Wait()

	return &ConcurrentResult{
		Successes:     successes.Load(),
		Errors:        errs.Load(),
		InvalidStates: invalid.Load(),
		NotFounds:     notFounds.Load(),
	}
}
