// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package corpus

import (
	"math/rand"
	"sync"
)

// Corpus is the default, thread-safe, in-memory testcase store. It
// implements the add/get/iterate surface spec.md §3 requires of State's
// corpus, plus a priority-weighted picker (ground: pkg/corpus/prio.go's
// ProgramsList.ChooseProgram) for schedulers that want a ready-made
// "pick something, weighted by how interesting it was" policy instead of
// writing their own.
type Corpus[I any] struct {
	mu        sync.RWMutex
	byID      map[Id]*Testcase[I]
	order     []Id // insertion order, for stable iteration
	weights   []int64
	sumWeight int64
}

// New returns an empty Corpus.
func New[I any]() *Corpus[I] {
	return &Corpus[I]{byID: make(map[Id]*Testcase[I])}
}

// Add inserts tc with the given selection weight (e.g. the size of the
// new-coverage signal it contributed). A weight of 0 is normalized to 1
// so every testcase remains selectable (ground: prio.go, "if prio == 0,
// prio = 1").
func (c *Corpus[I]) Add(tc *Testcase[I], weight int64) {
	if weight <= 0 {
		weight = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[tc.ID] = tc
	c.order = append(c.order, tc.ID)
	c.weights = append(c.weights, weight)
	c.sumWeight += weight
}

// Get returns the testcase for id, or nil if it is not (or no longer) in
// the corpus.
func (c *Corpus[I]) Get(id Id) *Testcase[I] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byID[id]
}

// Len returns the number of testcases currently stored.
func (c *Corpus[I]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Iterate calls fn for every testcase in insertion order. fn must not
// call back into the Corpus (Iterate holds a read lock for its duration).
func (c *Corpus[I]) Iterate(fn func(*Testcase[I])) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, id := range c.order {
		fn(c.byID[id])
	}
}

// All returns a snapshot slice of every testcase currently stored.
func (c *Corpus[I]) All() []*Testcase[I] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Testcase[I], 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// ChooseWeighted returns a random testcase, favoring higher-weight
// entries proportionally, or nil if the corpus is empty.
func (c *Corpus[I]) ChooseWeighted(r *rand.Rand) *Testcase[I] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.order) == 0 {
		return nil
	}
	if c.sumWeight <= 0 {
		return c.byID[c.order[r.Intn(len(c.order))]]
	}
	target := r.Int63n(c.sumWeight)
	var running int64
	for i, w := range c.weights {
		running += w
		if running > target {
			return c.byID[c.order[i]]
		}
	}
	return c.byID[c.order[len(c.order)-1]]
}

// ChooseUniform returns a uniformly random testcase, or nil if empty.
func (c *Corpus[I]) ChooseUniform(r *rand.Rand) *Testcase[I] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.order) == 0 {
		return nil
	}
	return c.byID[c.order[r.Intn(len(c.order))]]
}
