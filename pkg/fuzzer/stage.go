// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"fmt"
	"sync/atomic"

	"github.com/golem9247/fuzzcore/pkg/log"
)

// Stage is one unit of work applied per corpus entry per fuzzing
// iteration: coverage-guided mutation, a grammar pass, a periodic
// minimization sweep. See spec.md §4.3.
type Stage[I any, E Executor[I], EM EventManager] interface {
	// ShouldRestart initializes (or reinitializes, on process restart)
	// this stage's restart tracking and reports whether Perform should
	// run. A false return means "skip this stage for this corpus id".
	// With the retry helper, a corpus id that used up its retry budget
	// stays skipped even after ClearProgress.
	ShouldRestart(state *State[I]) (bool, error)

	// ClearProgress marks the stage as no longer in progress. Must
	// only be called by PerformRestartable (or a test standing in for
	// it): after a successful Perform, or after ShouldRestart reported
	// false. It is not called after a failed Perform.
	ClearProgress(state *State[I]) error

	// Perform runs the stage. Callers must not invoke this directly —
	// go through PerformRestartable, which brackets it with
	// ShouldRestart/ClearProgress.
	Perform(fuzzer *Fuzzer[I, E, EM], executor E, state *State[I], manager EM) error
}

// PerformRestartable runs stage's ShouldRestart/Perform/ClearProgress
// in the contractual order. Per spec.md §4.3's resolved open question,
// ClearProgress runs only when Perform returns nil — on error, progress
// is preserved so the retry helper sees the failure on the next round.
func PerformRestartable[I any, E Executor[I], EM EventManager](stage Stage[I, E, EM], fuzzer *Fuzzer[I, E, EM], executor E, state *State[I], manager EM) error {
	restart, err := stage.ShouldRestart(state)
	if err != nil {
		return err
	}
	if restart {
		if err := stage.Perform(fuzzer, executor, state, manager); err != nil {
			log.Logf(0, "stage perform failed, progress kept for retry: %v", err)
			return err
		}
	}
	return stage.ClearProgress(state)
}

// closureStageCounter uniquifies default ClosureStage names. The
// reference implementation uses a process-global counter; spec.md §9
// explicitly endorses a per-state counter instead, which keeps multiple
// States (e.g. in parallel tests) from sharing mutable global state.
type closureStageCounter struct {
	next atomic.Int64
}

// ClosureStage is a Stage built from a plain function, for ad hoc
// pipeline steps — coverage rotation, a periodic corpus-minimization
// hook — that don't warrant a dedicated type. It carries no restart
// safety of its own: ShouldRestart always runs with NoRetry's one-shot
// budget. Ground: ClosureStage in stages/mod.rs.
type ClosureStage[I any, E Executor[I], EM EventManager] struct {
	name string
	fn   func(fuzzer *Fuzzer[I, E, EM], executor E, state *State[I], manager EM) error
}

// NewClosureStage wraps fn as a Stage, deriving a unique default name
// from a per-state counter metadata entry.
func NewClosureStage[I any, E Executor[I], EM EventManager](
	state *State[I],
	fn func(fuzzer *Fuzzer[I, E, EM], executor E, state *State[I], manager EM) error,
) *ClosureStage[I, E, EM] {
	counter := NamedMetadataOrInsert(state, "", func() *closureStageCounter { return &closureStageCounter{} })
	id := counter.next.Add(1) - 1
	return &ClosureStage[I, E, EM]{
		name: fmt.Sprintf("closure:%d", id),
		fn:   fn,
	}
}

func (s *ClosureStage[I, E, EM]) Name() string { return s.name }

func (s *ClosureStage[I, E, EM]) ShouldRestart(state *State[I]) (bool, error) {
	return NoRetry(state, s.name)
}

func (s *ClosureStage[I, E, EM]) ClearProgress(state *State[I]) error {
	return ClearProgressRetry(state, s.name)
}

func (s *ClosureStage[I, E, EM]) Perform(fuzzer *Fuzzer[I, E, EM], executor E, state *State[I], manager EM) error {
	return s.fn(fuzzer, executor, state, manager)
}
