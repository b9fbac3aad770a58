// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"context"

	"github.com/golem9247/fuzzcore/pkg/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// JobRunner is a bounded worker pool for follow-up work that a stage
// wants to fan out without blocking the single-threaded stage loop
// itself — a minimization pass over several candidates, or re-running a
// batch of risky inputs. It generalizes the teacher's startJob
// goroutine-per-job pattern into an admission-gated pool backed by
// errgroup/semaphore, so a burst of follow-up jobs can't spawn
// unbounded goroutines. The stage loop's own traversal (spec.md §5,
// single-threaded cooperative) is unaffected — this is additive
// machinery a stage may use internally, not a replacement for it.
type JobRunner struct {
	sem *semaphore.Weighted
}

// NewJobRunner returns a JobRunner admitting at most maxConcurrent jobs
// at a time.
func NewJobRunner(maxConcurrent int64) *JobRunner {
	return &JobRunner{sem: semaphore.NewWeighted(maxConcurrent)}
}

// Run executes each of jobs with up to maxConcurrent running at once,
// returning the first error encountered (errgroup semantics: once one
// job fails, ctx is cancelled for the rest, jobs not yet admitted are
// not started, and Run returns after the in-flight jobs finish).
func (r *JobRunner) Run(ctx context.Context, jobs ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		job := job
		if err := r.sem.Acquire(gctx, 1); err != nil {
			if werr := g.Wait(); werr != nil {
				return werr
			}
			return err
		}
		g.Go(func() error {
			defer r.sem.Release(1)
			if err := job(gctx); err != nil {
				log.Logf(1, "background job failed: %v", err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
