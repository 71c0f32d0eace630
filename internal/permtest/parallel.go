package permtest

import (
	"context"
	"math/rand"
	"sync"

	"golang.org/x/sync/semaphore"

	"permsig/domain/core"
	"permsig/domain/frame"
	"permsig/domain/sig"
	"permsig/internal/errors"
)

// ParallelRunner fans permutation trials out over a bounded number of
// workers. Trials are independent and identically distributed given the
// fixed feature matrix, so any interleaving yields a valid exchangeable
// null sample; no ordering guarantee is needed or given. Each trial still
// lands at its own index, so the output is byte-for-byte reproducible for a
// given seed regardless of scheduling.
type ParallelRunner struct {
	engine  *Engine
	workers int64
}

// NewParallelRunner wraps an engine with a worker bound (minimum 1)
func NewParallelRunner(engine *Engine, workers int) *ParallelRunner {
	if workers < 1 {
		workers = 1
	}
	return &ParallelRunner{engine: engine, workers: int64(workers)}
}

// Run mirrors Engine.Run with bounded concurrency. Trial seeds are drawn
// sequentially from the caller's stream before any goroutine starts, so the
// draw sequence is deterministic; each trial then owns a private stream.
func (pr *ParallelRunner) Run(ctx context.Context, rng *rand.Rand, f *frame.Frame, positiveClass string,
	features []core.FeatureKey, trials int, scorer Scorer) (sig.NullSample, error) {

	if trials < 1 {
		return nil, core.ErrInvalidTrials
	}
	if err := f.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid frame for permutation run")
	}

	seeds := make([]int64, trials)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	sem := semaphore.NewWeighted(pr.workers)
	null := make(sig.NullSample, trials)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for trial := 0; trial < trials; trial++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return nil, err
		}
		mu.Lock()
		if firstErr != nil {
			mu.Unlock()
			sem.Release(1)
			break
		}
		mu.Unlock()

		wg.Add(1)
		go func(trial int) {
			defer wg.Done()
			defer sem.Release(1)

			trialRNG := rand.New(rand.NewSource(seeds[trial]))
			value, err := pr.engine.runTrial(ctx, trialRNG, f, f, positiveClass, features, scorer)

			mu.Lock()
			defer mu.Unlock()
			if err != nil && firstErr == nil {
				firstErr = errors.Wrapf(err, "permutation trial %d failed", trial)
				return
			}
			null[trial] = value
		}(trial)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return null, nil
}
