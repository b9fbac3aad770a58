// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package feedback

import (
	"sync"

	"github.com/golem9247/fuzzcore/pkg/corpus"
	"github.com/golem9247/fuzzcore/pkg/fuzzer"
	"github.com/golem9247/fuzzcore/pkg/observer"
	"github.com/golem9247/fuzzcore/pkg/queue"
)

// TreeInput is satisfied by inputs that carry a grammar derivation tree —
// the representation a grammar-based mutator (e.g. a Nautilus-style one)
// produces and NautilusFeedback records into the chunk store. Tree
// returns nil for an input that was never built from the grammar.
type TreeInput interface {
	Tree() any
}

// ChunkStoreMetadata is the state-global home for every grammar tree
// NautilusFeedback has seen. Ground: libafl/src/feedbacks/nautilus.rs's
// NautilusChunksMetadata, minus the on-disk chunk directory bookkeeping —
// the storage backend remains an external collaborator's concern here.
type ChunkStoreMetadata struct {
	mu    sync.Mutex
	Trees []any
}

// NewChunkStoreMetadata returns an empty ChunkStoreMetadata.
func NewChunkStoreMetadata() *ChunkStoreMetadata {
	return &ChunkStoreMetadata{}
}

// AddTree appends tree to Trees. ctx identifies the grammar the tree was
// derived from; it is accepted but not stored, and trees are not indexed
// by rule or ctx.
func (m *ChunkStoreMetadata) AddTree(tree any, ctx any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Trees = append(m.Trees, tree)
}

// NautilusFeedback is a grammar-fuzzing feedback: it never judges a
// testcase interesting on its own, but whenever some other feedback
// preserves one it appends the testcase's derivation tree to the
// state's chunk store, growing the pool a grammar mutator draws
// sub-trees from. The stored value is the one Tree returns, not a copy:
// a tree that is later modified in place changes in the store too.
// Ground: libafl/src/feedbacks/nautilus.rs.
type NautilusFeedback[I TreeInput] struct {
	ctx any
}

// NewNautilusFeedback returns a NautilusFeedback recording trees against
// the given grammar context.
func NewNautilusFeedback[I TreeInput](ctx any) *NautilusFeedback[I] {
	return &NautilusFeedback[I]{ctx: ctx}
}

func (f *NautilusFeedback[I]) IsInteresting(
	state *fuzzer.State[I], manager fuzzer.EventManager, input I, observers *observer.Set, exitKind queue.ExitKind,
) (bool, error) {
	return false, nil
}

func (f *NautilusFeedback[I]) AppendMetadata(
	state *fuzzer.State[I], manager fuzzer.EventManager, observers *observer.Set, tc *corpus.Testcase[I],
) error {
	tree := tc.Input.Tree()
	if tree == nil {
		return fuzzer.NewError(fuzzer.IllegalState, "testcase presumed to be filled when calling append metadata")
	}
	meta, ok := fuzzer.Metadata[*ChunkStoreMetadata](state)
	if !ok {
		return fuzzer.NewError(fuzzer.IllegalState, "chunk store metadata not in the state")
	}
	meta.AddTree(tree, f.ctx)
	return nil
}
