// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"github.com/golem9247/fuzzcore/pkg/corpus"
	"github.com/golem9247/fuzzcore/pkg/log"
	"github.com/golem9247/fuzzcore/pkg/observer"
	"github.com/golem9247/fuzzcore/pkg/queue"
)

// Fuzzer is the core's "evaluator": the concrete realization of the
// Fuzzer/evaluator capability interface spec.md §6 describes.
// ExecuteInput runs a target and EvaluateExecution applies every
// configured Feedback to decide whether to preserve the result — this
// is the one core-owned component that actually exercises the Feedback
// protocol end to end, since the feedbacks themselves are typically
// external collaborators (coverage) mixed with the core's own examples
// (ConcolicFeedback, NautilusFeedback).
type Fuzzer[I any, E Executor[I], EM EventManager] struct {
	Scheduler Scheduler[I]
	Feedbacks []Feedback[I]
}

// NewFuzzer returns a Fuzzer applying feedbacks in the given order.
func NewFuzzer[I any, E Executor[I], EM EventManager](scheduler Scheduler[I], feedbacks ...Feedback[I]) *Fuzzer[I, E, EM] {
	return &Fuzzer[I, E, EM]{Scheduler: scheduler, Feedbacks: feedbacks}
}

// ExecuteInput is the core's sole blocking call (spec.md §5): it runs
// the target once and records the execution in State.
func (f *Fuzzer[I, E, EM]) ExecuteInput(state *State[I], executor E, manager EM, input I) (queue.ExitKind, error) {
	kind, err := executor.RunTarget(state, manager, input)
	state.RecordExecution()
	if err != nil {
		return kind, wrapError(ExecutorError, "target execution failed", err)
	}
	return kind, nil
}

// EvaluateExecution asks every configured feedback whether the run was
// interesting; if any says yes, the input is preserved as a new
// testcase and every feedback's AppendMetadata runs against it exactly
// once, in feedback-declaration order (spec.md §4.2, §5 ordering
// guarantee) — regardless of which feedback actually voted yes, so a
// metadata-only feedback like ConcolicFeedback still gets to attach its
// side data when a different feedback preserves the testcase.
func (f *Fuzzer[I, E, EM]) EvaluateExecution(
	state *State[I],
	manager EM,
	input I,
	observers *observer.Set,
	exitKind queue.ExitKind,
	sendEvents bool,
) (bool, *corpus.Id, error) {
	interesting := false
	for _, fb := range f.Feedbacks {
		ok, err := fb.IsInteresting(state, manager, input, observers, exitKind)
		if err != nil {
			return false, nil, err
		}
		if ok {
			interesting = true
		}
	}

	if !interesting {
		return false, nil, nil
	}

	tc := corpus.NewTestcase(input, "")
	for _, fb := range f.Feedbacks {
		if err := fb.AppendMetadata(state, manager, observers, tc); err != nil {
			return false, nil, err
		}
	}
	state.Corpus.Add(tc, 1)
	log.Logf(1, "new testcase %v added to corpus (%v total)", tc.ID, state.Corpus.Len())

	if sendEvents {
		if err := manager.Fire(NewInputEvent[I]{CorpusId: tc.ID}); err != nil {
			return false, nil, err
		}
	}

	id := tc.ID
	return true, &id, nil
}

// NewInputEvent is fired via EventManager.Fire when EvaluateExecution
// preserves a new testcase, so external event-manager transports have a
// concrete value to serialize — the transport itself remains out of
// core scope (spec.md §1).
type NewInputEvent[I any] struct {
	CorpusId corpus.Id
}
