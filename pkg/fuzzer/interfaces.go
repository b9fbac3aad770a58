// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"time"

	"github.com/golem9247/fuzzcore/pkg/corpus"
	"github.com/golem9247/fuzzcore/pkg/observer"
	"github.com/golem9247/fuzzcore/pkg/queue"
)

// MutationResult reports what Mutator.Mutate did to its input, mainly
// so callers can skip executing a mutation that turned out to be a
// no-op.
type MutationResult int

const (
	MutationSkipped MutationResult = iota
	Mutated
)

// Mutator is the sole capability the core delegates input mutation to
// (spec.md §6, "external collaborator"). Mutate receives a pointer so
// in-place mutators don't need to reallocate; the stage is responsible
// for having already cloned the input out of the corpus.
type Mutator[I any] interface {
	Mutate(state *State[I], input *I) (MutationResult, error)
	PostExec(state *State[I], id corpus.Id) error
}

// Scheduler picks the next corpus entry to work on (spec.md §6,
// external collaborator — the core ships no scheduling policy of its
// own beyond the corpus package's optional weighted picker).
type Scheduler[I any] interface {
	Next(state *State[I]) (corpus.Id, error)
}

// Executor runs the target for one input and reports the observer set
// that was populated doing so (spec.md §6).
type Executor[I any] interface {
	RunTarget(state *State[I], manager EventManager, input I) (queue.ExitKind, error)
	Observers() *observer.Set
}

// EventManager is the out-of-core message bus boundary (spec.md §6):
// firing arbitrary events, periodic progress reports, and the shutdown
// notification the stage tuple issues when it honors a stop request.
type EventManager interface {
	Fire(event any) error
	MaybeReportProgress(execs int64, interval time.Duration) error
	OnShutdown() error
}

// Feedback judges whether a just-completed run is interesting and, for
// preserved testcases, attaches metadata (spec.md §4.2). Declared here
// rather than imported from a feedback package so Fuzzer.EvaluateExecution
// can call it without a dependency cycle; concrete feedbacks (coverage,
// concolic, Nautilus) satisfy this interface from wherever they live.
type Feedback[I any] interface {
	IsInteresting(state *State[I], manager EventManager, input I, observers *observer.Set, exitKind queue.ExitKind) (bool, error)
	AppendMetadata(state *State[I], manager EventManager, observers *observer.Set, tc *corpus.Testcase[I]) error
}
