// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"fmt"
	"time"

	"github.com/golem9247/fuzzcore/pkg/corpus"
	"github.com/golem9247/fuzzcore/pkg/observer"
	"github.com/golem9247/fuzzcore/pkg/queue"
)

// DefaultMutationalMaxIterations bounds how many mutated inputs a
// mutational push stage yields per corpus entry per outer iteration
// (spec.md §4.5, §8 boundary behavior).
const DefaultMutationalMaxIterations = 128

// PushStage is a pull-based stage: the surrounding driver repeatedly
// asks for the next input rather than the stage driving the loop
// itself (spec.md §4.5).
type PushStage[I any, E Executor[I], EM EventManager] interface {
	SetCurrentCorpusId(id corpus.Id)
	Init(fuzzer *Fuzzer[I, E, EM], state *State[I], manager EM, observers *observer.Set) error
	// PreExec returns (input, true, nil) for the next mutated input, or
	// (_, false, nil) once the stage is done for this outer iteration.
	PreExec(fuzzer *Fuzzer[I, E, EM], state *State[I], manager EM, observers *observer.Set) (I, bool, error)
	PostExec(fuzzer *Fuzzer[I, E, EM], state *State[I], manager EM, observers *observer.Set, lastInput I, exitKind queue.ExitKind) error
	Deinit(fuzzer *Fuzzer[I, E, EM], state *State[I], manager EM, observers *observer.Set) error
}

// Cell is a single-owner value temporarily taken for the duration of
// one call and returned before that call's caller returns — the "push
// stage shared cell" spec.md §9 describes, so code driving a PushStage
// can hold fuzzer/state/manager/observers disjointly across a PreExec
// and the execution it triggers without a data race, matching the
// reference's Rc<RefCell<Option<...>>>. Take panics on double-take and
// Put panics on an empty cell: in the single-threaded cooperative model
// spec.md §5 describes, both indicate a caller bug, not a resource a
// second goroutine could race to acquire.
type Cell[T any] struct {
	value *T
}

// NewCell returns a Cell holding value.
func NewCell[T any](value T) *Cell[T] { return &Cell[T]{value: &value} }

// Take removes and returns the cell's contents. Panics if already
// taken.
func (c *Cell[T]) Take() T {
	if c.value == nil {
		panic("fuzzer: Cell.Take called on an already-taken cell")
	}
	v := *c.value
	c.value = nil
	return v
}

// Put restores value into the cell. Panics if the cell is not
// currently empty (i.e. Take was not called first).
func (c *Cell[T]) Put(value T) {
	if c.value != nil {
		panic("fuzzer: Cell.Put called on a cell that was never taken")
	}
	c.value = &value
}

// sharedPushState is what a PushStage's driving loop borrows for the
// duration of one Next call.
type sharedPushState[I any, E Executor[I], EM EventManager] struct {
	fuzzer    *Fuzzer[I, E, EM]
	executor  E
	state     *State[I]
	manager   EM
	observers *observer.Set
}

// PushStageHelper is the driver-side companion passed to Next alongside
// a PushStage (PushStageAdapter.Perform creates one per round). It owns
// the shared cell and the small amount of cross-call state the
// pull protocol needs (whether Init has run yet, the input handed out
// by the last PreExec, the ExitKind reported by the matching
// execution).
type PushStageHelper[I any, E Executor[I], EM EventManager] struct {
	cell *Cell[sharedPushState[I, E, EM]]

	initialized  bool
	currentInput *I
	exitKind     *queue.ExitKind
}

// NewPushStageHelper returns a helper borrowing fuzzer/executor/state/
// manager/observers for the stage's calls.
func NewPushStageHelper[I any, E Executor[I], EM EventManager](
	fuzzer *Fuzzer[I, E, EM], executor E, state *State[I], manager EM, observers *observer.Set,
) *PushStageHelper[I, E, EM] {
	return &PushStageHelper[I, E, EM]{
		cell: NewCell(sharedPushState[I, E, EM]{
			fuzzer: fuzzer, executor: executor, state: state, manager: manager, observers: observers,
		}),
	}
}

// resetExitKind clears the exit kind recorded for the last execution,
// called once PreExec has handed out a fresh input.
func (h *PushStageHelper[I, E, EM]) resetExitKind() { h.exitKind = nil }

// Next drives one step of stage's pull protocol, implementing the
// default loop from spec.md §4.6: call PostExec for the previous input
// if this isn't the first call, otherwise call Init; then call PreExec
// for the next input. Returns (input, true, nil) to keep going, or
// (_, false, err) once the stage reports it is done (err is nil on a
// clean finish). The shared cell is always restored before Next
// returns, on every exit path, including errors — matching the
// end-of-iter guarantee spec.md §9 requires.
func Next[I any, E Executor[I], EM EventManager](stage PushStage[I, E, EM], helper *PushStageHelper[I, E, EM]) (I, bool, error) {
	shared := helper.cell.Take()
	defer func() { helper.cell.Put(shared) }()

	var stepErr error
	if helper.initialized {
		lastInput := *helper.currentInput
		helper.currentInput = nil
		var exitKind queue.ExitKind
		if helper.exitKind != nil {
			exitKind = *helper.exitKind
		}
		stepErr = stage.PostExec(shared.fuzzer, shared.state, shared.manager, shared.observers, lastInput, exitKind)
	} else {
		stepErr = stage.Init(shared.fuzzer, shared.state, shared.manager, shared.observers)
		helper.initialized = true
	}
	if stepErr != nil {
		var zero I
		return zero, false, stepErr
	}

	input, ok, err := stage.PreExec(shared.fuzzer, shared.state, shared.manager, shared.observers)
	if err != nil {
		var zero I
		return zero, false, err
	}
	if !ok {
		helper.currentInput = nil
		helper.initialized = false
		if err := stage.Deinit(shared.fuzzer, shared.state, shared.manager, shared.observers); err != nil {
			var zero I
			return zero, false, err
		}
		const statsReportInterval = 15 * time.Second // spec.md §5 default cadence
		if err := shared.manager.MaybeReportProgress(shared.state.Executions(), statsReportInterval); err != nil {
			var zero I
			return zero, false, err
		}
		var zero I
		return zero, false, nil
	}

	helper.currentInput = &input
	helper.resetExitKind()
	return input, true, nil
}

// ReportExitKind records the ExitKind for the input most recently
// handed out by Next, to be delivered to the stage's next PostExec
// call. The push-stage driver (PushStageAdapter) is responsible for
// calling this between PreExec and the following Next call.
func (h *PushStageHelper[I, E, EM]) ReportExitKind(kind queue.ExitKind) { h.exitKind = &kind }

// pushStageAdapterCounter uniquifies default PushStageAdapter names,
// mirroring closureStageCounter.
type pushStageAdapterCounter struct {
	next int64
}

// PushStageAdapter wraps any PushStage as a plain Stage, so a
// pull-based stage can be dropped into a StagesTuple alongside classic
// stages (spec.md §9 SUPPLEMENTED FEATURES; ground: PushStageAdapter in
// stages/mod.rs). It carries no restart safety of its own — like the
// reference implementation, ShouldRestart always uses NoRetry.
type PushStageAdapter[I any, E Executor[I], EM EventManager] struct {
	name      string
	pushStage PushStage[I, E, EM]
}

// NewPushStageAdapter wraps pushStage, deriving a unique default name
// from a per-state counter metadata entry.
func NewPushStageAdapter[I any, E Executor[I], EM EventManager](state *State[I], pushStage PushStage[I, E, EM]) *PushStageAdapter[I, E, EM] {
	counter := NamedMetadataOrInsert(state, "", func() *pushStageAdapterCounter { return &pushStageAdapterCounter{} })
	id := counter.next
	counter.next++
	return &PushStageAdapter[I, E, EM]{
		name:      fmt.Sprintf("pushstageadapter:%d", id),
		pushStage: pushStage,
	}
}

func (a *PushStageAdapter[I, E, EM]) ShouldRestart(state *State[I]) (bool, error) {
	return NoRetry(state, a.name)
}

func (a *PushStageAdapter[I, E, EM]) ClearProgress(state *State[I]) error {
	return ClearProgressRetry(state, a.name)
}

// Perform drives pushStage to completion using the default driver loop
// of spec.md §4.6, reporting the current corpus id from state first.
func (a *PushStageAdapter[I, E, EM]) Perform(fuzzer *Fuzzer[I, E, EM], executor E, state *State[I], manager EM) error {
	corpusID, ok := state.CurrentCorpusId()
	if !ok {
		return newError(IllegalState, "state is not currently processing a corpus id")
	}
	a.pushStage.SetCurrentCorpusId(corpusID)

	observers := executor.Observers()
	helper := NewPushStageHelper[I, E, EM](fuzzer, executor, state, manager, observers)

	for {
		input, ok, err := Next[I, E, EM](a.pushStage, helper)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		exitKind, err := fuzzer.ExecuteInput(state, executor, manager, input)
		if err != nil {
			return err
		}
		helper.ReportExitKind(exitKind)
	}
}
