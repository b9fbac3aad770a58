// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package feedback

import (
	"math/rand"
	"testing"

	"github.com/golem9247/fuzzcore/pkg/corpus"
	"github.com/golem9247/fuzzcore/pkg/fuzzer"
	"github.com/golem9247/fuzzcore/pkg/observer"
	"github.com/golem9247/fuzzcore/pkg/queue"
	"github.com/stretchr/testify/assert"
)

// treeInput is a minimal TreeInput: tree is nil unless set when the
// value is built, standing in for an input a grammar mutator has not yet
// derived.
type treeInput struct {
	tree any
}

func (t treeInput) Tree() any { return t.tree }

func newTestState(t *testing.T) *fuzzer.State[treeInput] {
	t.Helper()
	c := corpus.New[treeInput]()
	return fuzzer.NewState(c, rand.New(rand.NewSource(1)))
}

func TestNautilusFeedbackIsNeverInteresting(t *testing.T) {
	fb := NewNautilusFeedback[treeInput](nil)
	ok, err := fb.IsInteresting(nil, nil, treeInput{}, observer.NewSet(), queue.Ok)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestNautilusFeedbackAppendMetadataRejectsUnfilledTree(t *testing.T) {
	state := newTestState(t)
	fuzzer.PutMetadata(state, NewChunkStoreMetadata())
	fb := NewNautilusFeedback[treeInput]("grammar")

	tc := corpus.NewTestcase(treeInput{}, "")
	err := fb.AppendMetadata(state, nil, observer.NewSet(), tc)
	var fuzzErr *fuzzer.Error
	assert.ErrorAs(t, err, &fuzzErr)
	assert.Equal(t, fuzzer.IllegalState, fuzzErr.Kind)
}

func TestNautilusFeedbackAppendMetadataRequiresChunkStoreInState(t *testing.T) {
	state := newTestState(t)
	fb := NewNautilusFeedback[treeInput]("grammar")

	tc := corpus.NewTestcase(treeInput{tree: "root"}, "")
	err := fb.AppendMetadata(state, nil, observer.NewSet(), tc)
	var fuzzErr *fuzzer.Error
	assert.ErrorAs(t, err, &fuzzErr)
	assert.Equal(t, fuzzer.IllegalState, fuzzErr.Kind)
}

func TestNautilusFeedbackAppendMetadataAddsTreeToChunkStore(t *testing.T) {
	state := newTestState(t)
	meta := NewChunkStoreMetadata()
	fuzzer.PutMetadata(state, meta)
	fb := NewNautilusFeedback[treeInput]("grammar")

	tc := corpus.NewTestcase(treeInput{tree: "root"}, "")
	assert.NoError(t, fb.AppendMetadata(state, nil, observer.NewSet(), tc))
	assert.Equal(t, []any{"root"}, meta.Trees)
}
