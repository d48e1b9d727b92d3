// Package testutil holds helpers shared by service and store tests.
package testutil

import (
	"errors"
	"sync"
	"sync/atomic"

	dErrors "consentd/pkg/domain-errors"
	"consentd/pkg/platform/sentinel"
)

// ConcurrentResult counts outcomes of a concurrent run by category.
type ConcurrentResult struct {
	Successes int32
	Errors    int32
	// Conflicts are lost races: store conflicts and rejected state transitions.
	Conflicts int32
	NotFounds int32
	// Denied are calls refused for lack of consent.
	Denied int32
}

func (r *ConcurrentResult) Total() int32 {
	return r.Successes + r.Errors + r.Conflicts + r.NotFounds + r.Denied
}

// RunConcurrent starts n goroutines at once and classifies what fn returns.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var (
		start sync.WaitGroup
		done  sync.WaitGroup
		res   [5]atomic.Int32
	)
	start.Add(1)
	for i := range n {
		done.Add(1)
		go func() {
			defer done.Done()
			start.Wait()
			res[classify(fn(i))].Add(1)
		}()
	}
	start.Done()
	done.Wait()

	return &ConcurrentResult{
		Successes: res[outcomeSuccess].Load(),
		Errors:    res[outcomeError].Load(),
		Conflicts: res[outcomeConflict].Load(),
		NotFounds: res[outcomeNotFound].Load(),
		Denied:    res[outcomeDenied].Load(),
	}
}

const (
	outcomeSuccess = iota
	outcomeError
	outcomeConflict
	outcomeNotFound
	outcomeDenied
)

func classify(err error) int {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, sentinel.ErrConflict), dErrors.HasCode(err, dErrors.CodeInvalidTransition):
		return outcomeConflict
	case errors.Is(err, sentinel.ErrNotFound), dErrors.IsNotFound(err):
		return outcomeNotFound
	case dErrors.HasCode(err, dErrors.CodeConsentRequired):
		return outcomeDenied
	default:
		return outcomeError
	}
}
