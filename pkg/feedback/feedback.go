// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package feedback provides example realizations of the Feedback
// protocol (spec.md §4.2): ConcolicFeedback and NautilusFeedback are
// both "always not interesting, metadata-only" feedbacks, included to
// exercise fuzzer.Fuzzer.EvaluateExecution end to end. A real coverage
// feedback remains an external collaborator's concern — the core
// itself doesn't prescribe one (spec.md §1 Non-goals).
package feedback

import (
	"github.com/golem9247/fuzzcore/pkg/corpus"
	"github.com/golem9247/fuzzcore/pkg/fuzzer"
	"github.com/golem9247/fuzzcore/pkg/observer"
	"github.com/golem9247/fuzzcore/pkg/queue"
)

// Any combines feedbacks so the group is interesting if any one member
// is — a convenience the core ships but does not mandate (spec.md §4.2
// notes the combiner is the caller's choice, not the core's).
type Any[I any] []fuzzer.Feedback[I]

func (fs Any[I]) IsInteresting(state *fuzzer.State[I], manager fuzzer.EventManager, input I, observers *observer.Set, exitKind queue.ExitKind) (bool, error) {
	interesting := false
	for _, f := range fs {
		ok, err := f.IsInteresting(state, manager, input, observers, exitKind)
		if err != nil {
			return false, err
		}
		if ok {
			interesting = true
		}
	}
	return interesting, nil
}

func (fs Any[I]) AppendMetadata(state *fuzzer.State[I], manager fuzzer.EventManager, observers *observer.Set, tc *corpus.Testcase[I]) error {
	for _, f := range fs {
		if err := f.AppendMetadata(state, manager, observers, tc); err != nil {
			return err
		}
	}
	return nil
}

// All combines feedbacks so the group is interesting only if every
// member is.
type All[I any] []fuzzer.Feedback[I]

func (fs All[I]) IsInteresting(state *fuzzer.State[I], manager fuzzer.EventManager, input I, observers *observer.Set, exitKind queue.ExitKind) (bool, error) {
	for _, f := range fs {
		ok, err := f.IsInteresting(state, manager, input, observers, exitKind)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return len(fs) > 0, nil
}

func (fs All[I]) AppendMetadata(state *fuzzer.State[I], manager fuzzer.EventManager, observers *observer.Set, tc *corpus.Testcase[I]) error {
	for _, f := range fs {
		if err := f.AppendMetadata(state, manager, observers, tc); err != nil {
			return err
		}
	}
	return nil
}
