// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package stats holds the engine's own named counters: queue depth,
// retry counts, stage throughput. It is deliberately small — spec.md
// explicitly leaves telemetry wire format out of core scope, so this
// package only keeps numbers in memory and optionally exposes them to
// Prometheus; it prescribes no schema collaborators must follow.
//
// Ground: the usage pattern is taken from pkg/fuzzer/retry.go
// (stats.Create(name, desc, Rate{}, StackedGraph("...")), a dynamic
// gauge built from a getter func, and stats.AverageValue[float64]).
package stats

import (
	"sync"
	"sync/atomic"

	"github.com/VividCortex/gohistogram"
)

// Rate marks a Val as a throughput counter for display purposes (a hint
// to renderers, not a behavioral change).
type Rate struct{}

// StackedGraph groups several Vals under one named graph for display.
type StackedGraph string

type option interface{ apply(*Val) }

func (Rate) apply(v *Val)         { v.isRate = true }
func (g StackedGraph) apply(v *Val) { v.graph = string(g) }

// Val is one named, process-wide counter or gauge.
type Val struct {
	Name string
	Desc string

	isRate bool
	graph  string

	count  atomic.Int64
	getter func() int

	mu   sync.Mutex
	hist *gohistogram.NumericHistogram
}

var (
	registryMu sync.Mutex
	registry   = map[string]*Val{}
)

// Create registers (or returns the existing) Val named name. opts may
// mix rendering hints (Rate{}, StackedGraph("...")) with a single
// func() int, which turns the Val into a dynamic gauge backed by that
// function instead of an addable counter.
func Create(name, desc string, opts ...any) *Val {
	registryMu.Lock()
	defer registryMu.Unlock()
	if v, ok := registry[name]; ok {
		return v
	}
	v := &Val{
		Name: name,
		Desc: desc,
		hist: gohistogram.NewHistogram(64),
	}
	for _, o := range opts {
		switch t := o.(type) {
		case func() int:
			v.getter = t
		case option:
			t.apply(v)
		}
	}
	registry[name] = v
	return v
}

// Add adjusts a counter-backed Val by delta. It panics if called on a
// dynamic (getter-backed) gauge — those are read-only by construction.
func (v *Val) Add(delta int) {
	if v.getter != nil {
		panic("stats: Add called on a dynamic gauge: " + v.Name)
	}
	v.count.Add(int64(delta))
	v.mu.Lock()
	v.hist.Add(float64(delta))
	v.mu.Unlock()
}

// Val returns the counter's current value, or the getter's live value
// for dynamic gauges.
func (v *Val) Val() int {
	if v.getter != nil {
		return v.getter()
	}
	return int(v.count.Load())
}

// Mean returns the running mean of values passed to Add, 0 for an empty
// or getter-backed Val.
func (v *Val) Mean() float64 {
	if v.getter != nil {
		return 0
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hist.Mean()
}

// All returns every Val registered so far, for a reporter to snapshot.
func All() []*Val {
	registryMu.Lock()
	defer registryMu.Unlock()
	out := make([]*Val, 0, len(registry))
	for _, v := range registry {
		out = append(out, v)
	}
	return out
}

// reset is a test-only escape hatch: Create otherwise returns the same
// *Val for a given name for the lifetime of the process, which makes
// independent tests collide on shared names.
func reset() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = map[string]*Val{}
}
