// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"math/rand"
	"testing"

	"github.com/golem9247/fuzzcore/pkg/corpus"
	"github.com/golem9247/fuzzcore/pkg/observer"
	"github.com/golem9247/fuzzcore/pkg/queue"
	"github.com/stretchr/testify/assert"
)

// fixedSource63 is a math/rand.Source whose Int63 always returns the
// same value, so Rand.Intn(128) is deterministic: 128 is a power of
// two, so Intn(128) reduces to Int31()&127, and Int31() is
// int32(Int63()>>32). Fixing Int63 to 5<<32 makes Intn(128) always
// yield 5.
type fixedSource63 struct{ v uint64 }

func (f fixedSource63) Int63() int64 { return int64(f.v << 32) }
func (f fixedSource63) Seed(int64)   {}

func TestStdMutationalPushStageYieldsExactlyRolledIterationCount(t *testing.T) {
	c := corpus.New[[]byte]()
	c.Add(corpus.NewTestcase([]byte("seed"), ""), 1)
	state := NewState(c, rand.New(fixedSource63{v: 5}))
	id := c.All()[0].ID
	state.SetCurrentCorpusId(id)

	stage := NewStdMutationalPushStage[[]byte, fakeExecutor, *fakeEventManager](ByteSliceMutator{})
	stage.SetCurrentCorpusId(id)
	fz := NewFuzzer[[]byte, fakeExecutor, *fakeEventManager](&RoundRobinScheduler[[]byte]{})
	helper := NewPushStageHelper[[]byte, fakeExecutor, *fakeEventManager](fz, fakeExecutor{exitKind: queue.Ok}, state, &fakeEventManager{}, observer.NewSet())

	yielded := 0
	for {
		_, ok, err := Next[[]byte, fakeExecutor, *fakeEventManager](stage, helper)
		assert.NoError(t, err)
		if !ok {
			break
		}
		yielded++
		helper.ReportExitKind(queue.Ok)
	}

	assert.Equal(t, 6, yielded, "below(128) fixed to 5 must yield exactly 1+5 mutated inputs")
	assert.False(t, stage.hasCurrentCorpusId, "deinit must clear the current corpus id")
}

func TestSingleStageSingleCorpusRoundRobinAsksSchedulerEachIteration(t *testing.T) {
	c := corpus.New[[]byte]()
	c.Add(corpus.NewTestcase([]byte("seed"), ""), 1)
	state := NewState(c, rand.New(fixedSource63{v: 5}))

	sched := &RoundRobinScheduler[[]byte]{}
	fz := NewFuzzer[[]byte, fakeExecutor, *fakeEventManager](sched)
	mutational := NewStdMutationalPushStage[[]byte, fakeExecutor, *fakeEventManager](ByteSliceMutator{})
	adapter := NewPushStageAdapter[[]byte, fakeExecutor, *fakeEventManager](state, mutational)
	manager := &fakeEventManager{}

	for i := 0; i < 3; i++ {
		id, err := sched.Next(state)
		assert.NoError(t, err)
		state.SetCurrentCorpusId(id)

		err = PerformRestartable[[]byte, fakeExecutor, *fakeEventManager](adapter, fz, fakeExecutor{exitKind: queue.Ok}, state, manager)
		assert.NoError(t, err)
	}

	assert.Equal(t, 3, sched.next, "the scheduler must be consulted once per outer iteration")

	retry, ok := NamedMetadata[*retryMetadata](state, adapter.name)
	assert.True(t, ok)
	assert.Empty(t, retry.skipped, "no crash occurred, so nothing should ever land in skipped")
}
