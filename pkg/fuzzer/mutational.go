// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"github.com/golem9247/fuzzcore/pkg/corelog"
	"github.com/golem9247/fuzzcore/pkg/corpus"
	"github.com/golem9247/fuzzcore/pkg/observer"
	"github.com/golem9247/fuzzcore/pkg/queue"
)

// StdMutationalPushStage clones the current corpus entry, mutates it a
// random number of times, executes each mutation, and hands the result
// to the fuzzer's evaluator — the concrete realization of C7 (spec.md
// §4.5). Ground: StdMutationalPushStage in
// libafl/src/stages/push/mutational.rs.
type StdMutationalPushStage[I any, E Executor[I], EM EventManager] struct {
	currentCorpusId    corpus.Id
	hasCurrentCorpusId bool

	testcasesToDo int
	testcasesDone int

	mutator Mutator[I]

	// Debug and Serialize together enable per-mutation triage logging
	// via corelog.DiffPrograms. Both are optional; leaving Serialize
	// nil disables the diff regardless of Debug.
	Debug     bool
	Serialize func(I) []byte

	// Timer optionally reports GetInputFromCorpus/Mutate/MutatePostExec
	// phase times (spec.md §4.5, §9 NEW). Nil disables timing entirely.
	Timer *FeatureTimer

	// MaxIterations bounds how many mutated inputs one round yields,
	// defaulting to DefaultMutationalMaxIterations when left at zero
	// (spec.md §4.5 boundary behavior; overridable via
	// fuzzconfig.Config.MutationalMaxIterations).
	MaxIterations int
}

// NewStdMutationalPushStage returns a push stage driving mutator over
// whatever corpus entry it is told to work on.
func NewStdMutationalPushStage[I any, E Executor[I], EM EventManager](mutator Mutator[I]) *StdMutationalPushStage[I, E, EM] {
	return &StdMutationalPushStage[I, E, EM]{mutator: mutator}
}

// SetCurrentCorpusId lets an external caller (PushStageAdapter, or a
// driver wiring the corpus id in from the scheduler directly) pin which
// entry this round works on, instead of asking the scheduler itself.
func (s *StdMutationalPushStage[I, E, EM]) SetCurrentCorpusId(id corpus.Id) {
	s.currentCorpusId = id
	s.hasCurrentCorpusId = true
}

func (s *StdMutationalPushStage[I, E, EM]) iterations(state *State[I]) int {
	max := s.MaxIterations
	if max <= 0 {
		max = DefaultMutationalMaxIterations
	}
	return 1 + state.Rand.Intn(max)
}

// Init picks a corpus entry (if one wasn't already set) and rolls how
// many mutated inputs this round will yield.
func (s *StdMutationalPushStage[I, E, EM]) Init(fuzzer *Fuzzer[I, E, EM], state *State[I], manager EM, observers *observer.Set) error {
	if !s.hasCurrentCorpusId {
		id, err := fuzzer.Scheduler.Next(state)
		if err != nil {
			return err
		}
		s.currentCorpusId = id
		s.hasCurrentCorpusId = true
	}
	s.testcasesToDo = s.iterations(state)
	s.testcasesDone = 0
	return nil
}

// PreExec clones the current entry's input, mutates it, and returns the
// mutation for execution — or reports done once testcasesToDo mutations
// have been produced.
func (s *StdMutationalPushStage[I, E, EM]) PreExec(fuzzer *Fuzzer[I, E, EM], state *State[I], manager EM, observers *observer.Set) (I, bool, error) {
	var zero I
	if s.testcasesDone >= s.testcasesToDo {
		return zero, false, nil
	}

	s.Timer.StartTimer()
	tc := state.Corpus.Get(s.currentCorpusId)
	if tc == nil {
		return zero, false, newError(IllegalState, "current corpus id no longer present in the corpus")
	}
	input := tc.Clone(cloneIdentity[I])
	before := input
	s.Timer.MarkFeatureTime("GetInputFromCorpus")

	s.Timer.StartTimer()
	if _, err := s.mutator.Mutate(state, &input); err != nil {
		return zero, false, err
	}
	s.Timer.MarkFeatureTime("Mutate")

	if s.Serialize != nil {
		corelog.DiffPrograms(s.Debug, s.currentCorpusId.String(), s.Serialize(before), s.Serialize(input))
	}

	return input, true, nil
}

// cloneIdentity is the default Testcase.Clone strategy for input types
// with no deep-copy requirements of their own (e.g. []byte, which the
// fixture mutator copies itself before mutating in place).
func cloneIdentity[I any](in I) I { return in }

// PostExec hands the executed mutation to the evaluator, notifies the
// mutator of the outcome, and advances the done counter.
func (s *StdMutationalPushStage[I, E, EM]) PostExec(
	fuzzer *Fuzzer[I, E, EM], state *State[I], manager EM, observers *observer.Set,
	lastInput I, exitKind queue.ExitKind,
) error {
	if _, _, err := fuzzer.EvaluateExecution(state, manager, lastInput, observers, exitKind, true); err != nil {
		return err
	}
	s.Timer.StartTimer()
	if err := s.mutator.PostExec(state, s.currentCorpusId); err != nil {
		return err
	}
	s.Timer.MarkFeatureTime("MutatePostExec")
	s.testcasesDone++
	return nil
}

// Deinit clears the current corpus id so the next outer iteration picks
// a fresh entry from the scheduler.
func (s *StdMutationalPushStage[I, E, EM]) Deinit(fuzzer *Fuzzer[I, E, EM], state *State[I], manager EM, observers *observer.Set) error {
	s.hasCurrentCorpusId = false
	s.currentCorpusId = corpus.Id{}
	return nil
}
