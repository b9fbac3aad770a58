// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"testing"

	"github.com/golem9247/fuzzcore/pkg/corpus"
	"github.com/golem9247/fuzzcore/pkg/observer"
	"github.com/golem9247/fuzzcore/pkg/queue"
	"github.com/stretchr/testify/assert"
)

// coverageFeedback stands in for a real coverage feedback: it says yes
// whenever told to, and records every testcase it was asked to append
// metadata to.
type coverageFeedback struct {
	interesting bool
	appendedTo  []corpus.Id
}

func (f *coverageFeedback) IsInteresting(state *State[[]byte], manager EventManager, input []byte, observers *observer.Set, exitKind queue.ExitKind) (bool, error) {
	return f.interesting, nil
}

func (f *coverageFeedback) AppendMetadata(state *State[[]byte], manager EventManager, observers *observer.Set, tc *corpus.Testcase[[]byte]) error {
	f.appendedTo = append(f.appendedTo, tc.ID)
	return nil
}

// alwaysNoMetadataOnlyFeedback stands in for ConcolicFeedback/
// NautilusFeedback: it always says a run is not interesting on its own,
// but still expects AppendMetadata to run against any testcase some
// other feedback preserved (spec.md §8 scenario 5).
type alwaysNoMetadataOnlyFeedback struct {
	appendedTo []corpus.Id
	appendErr  error
}

func (f *alwaysNoMetadataOnlyFeedback) IsInteresting(state *State[[]byte], manager EventManager, input []byte, observers *observer.Set, exitKind queue.ExitKind) (bool, error) {
	return false, nil
}

func (f *alwaysNoMetadataOnlyFeedback) AppendMetadata(state *State[[]byte], manager EventManager, observers *observer.Set, tc *corpus.Testcase[[]byte]) error {
	f.appendedTo = append(f.appendedTo, tc.ID)
	return f.appendErr
}

func TestEvaluateExecutionComposesMetadataOnlyFeedbackWithCoverageVote(t *testing.T) {
	state := newTestState(t)
	coverage := &coverageFeedback{interesting: true}
	concolic := &alwaysNoMetadataOnlyFeedback{}
	fz := NewFuzzer[[]byte, fakeExecutor, *fakeEventManager](&RoundRobinScheduler[[]byte]{}, coverage, concolic)

	preserved, id, err := fz.EvaluateExecution(state, &fakeEventManager{}, []byte("input"), observer.NewSet(), queue.Ok, true)
	assert.NoError(t, err)
	assert.True(t, preserved)
	assert.NotNil(t, id)
	assert.Equal(t, 1, state.Corpus.Len())

	assert.Len(t, concolic.appendedTo, 1, "a metadata-only feedback must still run even though it voted no itself")
	assert.Equal(t, *id, concolic.appendedTo[0])
	assert.Equal(t, concolic.appendedTo, coverage.appendedTo, "every feedback must see the same preserved testcase")
}

func TestEvaluateExecutionSkipsCorpusAndMetadataWhenNoFeedbackVotesYes(t *testing.T) {
	state := newTestState(t)
	coverage := &coverageFeedback{interesting: false}
	concolic := &alwaysNoMetadataOnlyFeedback{}
	fz := NewFuzzer[[]byte, fakeExecutor, *fakeEventManager](&RoundRobinScheduler[[]byte]{}, coverage, concolic)

	preserved, id, err := fz.EvaluateExecution(state, &fakeEventManager{}, []byte("input"), observer.NewSet(), queue.Ok, true)
	assert.NoError(t, err)
	assert.False(t, preserved)
	assert.Nil(t, id)
	assert.Equal(t, 0, state.Corpus.Len())
	assert.Empty(t, concolic.appendedTo, "append_metadata must not run for a run nothing found interesting")
}

func TestEvaluateExecutionPropagatesAppendMetadataError(t *testing.T) {
	state := newTestState(t)
	coverage := &coverageFeedback{interesting: true}
	concolic := &alwaysNoMetadataOnlyFeedback{appendErr: newError(SerializationError, "disk full")}
	fz := NewFuzzer[[]byte, fakeExecutor, *fakeEventManager](&RoundRobinScheduler[[]byte]{}, coverage, concolic)

	_, _, err := fz.EvaluateExecution(state, &fakeEventManager{}, []byte("input"), observer.NewSet(), queue.Ok, true)
	var fuzzErr *Error
	assert.ErrorAs(t, err, &fuzzErr)
	assert.Equal(t, SerializationError, fuzzErr.Kind)
	assert.Equal(t, 0, state.Corpus.Len(), "a testcase must not be added to the corpus when metadata attachment fails")
}

func TestExecuteInputRecordsExecutionAndWrapsExecutorError(t *testing.T) {
	state := newTestState(t)
	fz := NewFuzzer[[]byte, fakeExecutor, *fakeEventManager](&RoundRobinScheduler[[]byte]{})

	kind, err := fz.ExecuteInput(state, fakeExecutor{exitKind: queue.Ok}, &fakeEventManager{}, []byte("a"))
	assert.NoError(t, err)
	assert.Equal(t, queue.Ok, kind)
	assert.Equal(t, int64(1), state.Executions())

	wantErr := assert.AnError
	_, err = fz.ExecuteInput(state, fakeExecutor{err: wantErr}, &fakeEventManager{}, []byte("b"))
	var fuzzErr *Error
	assert.ErrorAs(t, err, &fuzzErr)
	assert.Equal(t, ExecutorError, fuzzErr.Kind)
	assert.Equal(t, int64(2), state.Executions(), "a failed execution still counts toward the total")
}
