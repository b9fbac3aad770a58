// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

// StagesTuple is a fixed ordered composition of heterogeneous stages
// known at construction, with resume-safe iteration: the tuple itself
// holds no state, all resume information lives on State's
// current-stage-index slot (spec.md §4.4).
type StagesTuple[I any, E Executor[I], EM EventManager] interface {
	PerformAll(fuzzer *Fuzzer[I, E, EM], executor E, state *State[I], manager EM) error
}

// EmptyTuple terminates a ConsTuple chain. Reaching it with a
// still-set current-stage-index is the "resume fell off the end" error
// spec.md §4.4 calls out.
type EmptyTuple[I any, E Executor[I], EM EventManager] struct{}

func (EmptyTuple[I, E, EM]) PerformAll(fuzzer *Fuzzer[I, E, EM], executor E, state *State[I], manager EM) error {
	if state.stageIdx() != noStage {
		return newError(IllegalState, "got to the end of the stage tuple without completing resume")
	}
	return nil
}

// ConsTuple is one (head, tail) link of a StagesTuple: head is the
// stage at this position, tail is the remaining tuple. Len is the
// number of stages in this node and everything after it (used as the
// count-from-end resume index, matching the reference traversal).
type ConsTuple[I any, E Executor[I], EM EventManager] struct {
	Head Stage[I, E, EM]
	Tail StagesTuple[I, E, EM]
	Len  int
}

// Cons prepends head to tail, deriving Len from tail's declared length.
// tail must be either EmptyTuple (length 0) or another ConsTuple —
// callers build tuples back-to-front with nested Cons calls.
func Cons[I any, E Executor[I], EM EventManager](head Stage[I, E, EM], tail StagesTuple[I, E, EM]) *ConsTuple[I, E, EM] {
	length := 1
	if ct, ok := tail.(*ConsTuple[I, E, EM]); ok {
		length = ct.Len + 1
	}
	return &ConsTuple[I, E, EM]{Head: head, Tail: tail, Len: length}
}

// PerformAll implements the resume-safe traversal from spec.md §4.4:
// StageId is counted from the end of the remaining tuple, so a value
// equal to this node's Len means "resume here", less than Len means
// "already completed, skip to tail", and unset means "fresh start".
func (c *ConsTuple[I, E, EM]) PerformAll(fuzzer *Fuzzer[I, E, EM], executor E, state *State[I], manager EM) error {
	idx := state.stageIdx()
	switch {
	case idx == noStage:
		state.setStageIdx(StageId(c.Len))
		if err := PerformRestartable[I, E, EM](c.Head, fuzzer, executor, state, manager); err != nil {
			return err
		}
		state.clearStageIdx()
	case int(idx) == c.Len:
		// Resuming inside head: don't reset the index, just run it.
		if err := PerformRestartable[I, E, EM](c.Head, fuzzer, executor, state, manager); err != nil {
			return err
		}
		state.clearStageIdx()
	case int(idx) < c.Len:
		// Head already completed in a previous life; skip straight to tail.
	default:
		return newError(IllegalState, "stage index is ahead of the tuple length; resume state is corrupt")
	}

	if state.StopRequested() {
		state.DiscardStopRequest()
		if err := manager.OnShutdown(); err != nil {
			return err
		}
		return newError(ShuttingDown, "stop requested during stage tuple traversal")
	}

	return c.Tail.PerformAll(fuzzer, executor, state, manager)
}

// StageList is the dynamic-vector alternative to ConsTuple: it runs
// each stage in order with no resume-index participation, just the
// cooperative stop check between stages (spec.md §4.4, "simpler
// semantics"). Ground: the Vec<Box<dyn Stage<...>>> impl in
// stages/mod.rs.
type StageList[I any, E Executor[I], EM EventManager] struct {
	Stages []Stage[I, E, EM]
}

func (sl *StageList[I, E, EM]) PerformAll(fuzzer *Fuzzer[I, E, EM], executor E, state *State[I], manager EM) error {
	for _, stage := range sl.Stages {
		if state.StopRequested() {
			state.DiscardStopRequest()
			if err := manager.OnShutdown(); err != nil {
				return err
			}
			return newError(ShuttingDown, "stop requested during stage list traversal")
		}
		if err := PerformRestartable[I, E, EM](stage, fuzzer, executor, state, manager); err != nil {
			return err
		}
	}
	return nil
}
