// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"errors"
	"testing"

	"github.com/golem9247/fuzzcore/pkg/corpus"
	"github.com/stretchr/testify/assert"
)

type fakeStage struct {
	restart      bool
	performErr   error
	performCalls int
	clearCalls   int
	restartCalls int
}

func (s *fakeStage) ShouldRestart(state *State[[]byte]) (bool, error) {
	s.restartCalls++
	return s.restart, nil
}

func (s *fakeStage) ClearProgress(state *State[[]byte]) error {
	s.clearCalls++
	return nil
}

func (s *fakeStage) Perform(fuzzer *Fuzzer[[]byte, fakeExecutor, *fakeEventManager], executor fakeExecutor, state *State[[]byte], manager *fakeEventManager) error {
	s.performCalls++
	return s.performErr
}

func TestPerformRestartableClearsProgressOnlyAfterSuccess(t *testing.T) {
	state := newTestState(t)
	stage := &fakeStage{restart: true}

	err := PerformRestartable[[]byte, fakeExecutor, *fakeEventManager](stage, nil, fakeExecutor{}, state, &fakeEventManager{})
	assert.NoError(t, err)
	assert.Equal(t, 1, stage.performCalls)
	assert.Equal(t, 1, stage.clearCalls, "clear_progress must run after a successful perform")
}

func TestPerformRestartableSkipsClearProgressOnError(t *testing.T) {
	state := newTestState(t)
	wantErr := errors.New("perform failed")
	stage := &fakeStage{restart: true, performErr: wantErr}

	err := PerformRestartable[[]byte, fakeExecutor, *fakeEventManager](stage, nil, fakeExecutor{}, state, &fakeEventManager{})
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 0, stage.clearCalls, "progress must be preserved on error")
}

func TestPerformRestartableSkipsPerformWhenShouldRestartFalse(t *testing.T) {
	state := newTestState(t)
	stage := &fakeStage{restart: false}

	err := PerformRestartable[[]byte, fakeExecutor, *fakeEventManager](stage, nil, fakeExecutor{}, state, &fakeEventManager{})
	assert.NoError(t, err)
	assert.Equal(t, 0, stage.performCalls)
	assert.Equal(t, 1, stage.clearCalls, "clear_progress still runs when the stage is skipped entirely")
}

func TestClosureStageNamesAreUniquePerState(t *testing.T) {
	state := newTestState(t)
	noop := func(fuzzer *Fuzzer[[]byte, fakeExecutor, *fakeEventManager], executor fakeExecutor, state *State[[]byte], manager *fakeEventManager) error {
		return nil
	}

	s0 := NewClosureStage[[]byte, fakeExecutor, *fakeEventManager](state, noop)
	s1 := NewClosureStage[[]byte, fakeExecutor, *fakeEventManager](state, noop)
	assert.NotEqual(t, s0.Name(), s1.Name())
}

func TestClosureStageRunsOnceThenIsFreshAfterClear(t *testing.T) {
	state := newTestState(t)
	state.SetCurrentCorpusId(corpus.NewId())
	calls := 0
	stage := NewClosureStage[[]byte, fakeExecutor, *fakeEventManager](state, func(fuzzer *Fuzzer[[]byte, fakeExecutor, *fakeEventManager], executor fakeExecutor, state *State[[]byte], manager *fakeEventManager) error {
		calls++
		return nil
	})

	assert.NoError(t, PerformRestartable[[]byte, fakeExecutor, *fakeEventManager](stage, nil, fakeExecutor{}, state, &fakeEventManager{}))
	assert.Equal(t, 1, calls)

	restart, err := stage.ShouldRestart(state)
	assert.NoError(t, err)
	assert.True(t, restart, "clear_progress ran after the first successful perform, so the stage is fresh again")
}
