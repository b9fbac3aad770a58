// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package queue is the concrete vocabulary the core's Executor boundary
// (spec.md §6) is expressed in: a Request/Result round trip, a plain
// thread-safe FIFO queue, and Source combinators for composing several
// request producers. The OS mechanics of actually running a target are
// an external collaborator's concern — this package only moves values
// between producers and a single consuming executor loop.
//
// Ground: pkg/fuzzer/queue/queue.go, generalized from *prog.Prog to an
// arbitrary input type I.
package queue

import (
	"context"
	"math/rand"
	"sync"

	"github.com/golem9247/fuzzcore/pkg/stats"
)

// ExitKind is the closed classification an executor yields after one
// target run (spec.md §6).
type ExitKind int

const (
	Ok ExitKind = iota
	Crash
	Oom
	Timeout
	Diff
	User
)

func (k ExitKind) String() string {
	switch k {
	case Ok:
		return "ok"
	case Crash:
		return "crash"
	case Oom:
		return "oom"
	case Timeout:
		return "timeout"
	case Diff:
		return "diff"
	case User:
		return "user"
	default:
		return "unknown"
	}
}

// Status is the queue-level disposition of a Request, distinct from the
// target-level ExitKind: it describes whether the request round trip
// itself succeeded.
type Status int

const (
	Success     Status = iota
	ExecFailure        // e.g. a serialization error
	Crashed            // the executor process holding the request crashed
	Restarted          // the executor process was restarted holding the request
)

// Request is one unit of work handed to an Executor: an input plus
// bookkeeping for delivering the Result back to its submitter.
type Request[I any] struct {
	Input I

	// Stat, if set, is incremented by one on request completion.
	Stat *stats.Val

	// callback runs on completion in LIFO registration order; returning
	// false stops further callbacks from running (lets a wrapper
	// intercept Done() calls).
	callback doneCallback[I]

	resultC chan *Result[I]
}

type doneCallback[I any] func(*Request[I], *Result[I]) bool

// OnDone registers cb to run when the request completes, composing with
// any previously registered callback.
func (r *Request[I]) OnDone(cb doneCallback[I]) {
	old := r.callback
	r.callback = func(req *Request[I], res *Result[I]) bool {
		r.callback = old
		if !cb(req, res) {
			return false
		}
		if old == nil {
			return true
		}
		return old(req, res)
	}
}

// Done delivers res to whoever is waiting on r, running any registered
// callbacks first.
func (r *Request[I]) Done(res *Result[I]) {
	if r.callback != nil {
		if !r.callback(r, res) {
			return
		}
	}
	if r.Stat != nil {
		r.Stat.Add(1)
	}
	if r.resultC != nil {
		r.resultC <- res
	}
}

// Result is the outcome of one Request round trip.
type Result[I any] struct {
	ExitKind ExitKind
	Status   Status
}

// Stop reports whether this result should halt further processing of
// the owning queue (the executor failed or crashed outright).
func (r *Result[I]) Stop() bool {
	return r.Status == ExecFailure || r.Status == Crashed
}

// Execute submits req to executor and blocks until either the request
// completes or ctx is cancelled.
func Execute[I any](ctx context.Context, executor Executor[I], req *Request[I]) *Result[I] {
	req.resultC = make(chan *Result[I], 1)
	executor.Submit(req)
	select {
	case <-ctx.Done():
		return &Result[I]{Status: ExecFailure}
	case res := <-req.resultC:
		close(req.resultC)
		return res
	}
}

// Executor is the interface wanted by producers of requests.
type Executor[I any] interface {
	Submit(req *Request[I])
}

// Source is the interface wanted by consumers of requests.
type Source[I any] interface {
	Next() *Request[I]
}

// PlainQueue is a straightforward thread-safe Request queue.
type PlainQueue[I any] struct {
	stat  *stats.Val
	mu    sync.Mutex
	queue []*Request[I]
	pos   int
}

// Plain returns an empty PlainQueue.
func Plain[I any]() *PlainQueue[I] { return &PlainQueue[I]{} }

// PlainWithStat returns an empty PlainQueue that keeps val in sync with
// its depth.
func PlainWithStat[I any](val *stats.Val) *PlainQueue[I] {
	return &PlainQueue[I]{stat: val}
}

// Len returns the number of requests not yet handed out by Next.
func (pq *PlainQueue[I]) Len() int {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	return len(pq.queue) - pq.pos
}

func (pq *PlainQueue[I]) Submit(req *Request[I]) {
	if pq.stat != nil {
		pq.stat.Add(1)
	}
	pq.mu.Lock()
	defer pq.mu.Unlock()

	// It doesn't make sense to compact the queue too often.
	const minSizeToCompact = 128
	if pq.pos > len(pq.queue)/2 && len(pq.queue) >= minSizeToCompact {
		copy(pq.queue, pq.queue[pq.pos:])
		for pq.pos > 0 {
			newLen := len(pq.queue) - 1
			pq.queue[newLen] = nil
			pq.queue = pq.queue[:newLen]
			pq.pos--
		}
	}
	pq.queue = append(pq.queue, req)
}

func (pq *PlainQueue[I]) Next() *Request[I] {
	pq.mu.Lock()
	defer pq.mu.Unlock()
	return pq.nextLocked()
}

func (pq *PlainQueue[I]) nextLocked() *Request[I] {
	if pq.pos < len(pq.queue) {
		ret := pq.queue[pq.pos]
		pq.queue[pq.pos] = nil
		pq.pos++
		if pq.stat != nil {
			pq.stat.Add(-1)
		}
		return ret
	}
	return nil
}

// sourceMultiplexer combines several sources in a fixed order.
type sourceMultiplexer[I any] struct {
	sources []Source[I]
}

// Multiplex returns a Source that tries each of sources in order,
// returning the first non-nil Request.
func Multiplex[I any](sources ...Source[I]) Source[I] {
	return &sourceMultiplexer[I]{sources: sources}
}

func (sm *sourceMultiplexer[I]) Next() *Request[I] {
	for _, s := range sm.sources {
		if req := s.Next(); req != nil {
			return req
		}
	}
	return nil
}

type callbackSource[I any] struct {
	cb func() *Request[I]
}

// Callback returns a Source that delegates every Next() to cb.
func Callback[I any](cb func() *Request[I]) Source[I] {
	return &callbackSource[I]{cb}
}

func (c *callbackSource[I]) Next() *Request[I] { return c.cb() }

type alternate[I any] struct {
	base Source[I]
	mu   sync.Mutex
	rnd  *rand.Rand
	prob float32
}

// Alternate wraps base so that Next() returns nil for prob share of
// calls instead of delegating — useful for interleaving a low-priority
// source without starving a higher-priority one.
func Alternate[I any](base Source[I], rnd *rand.Rand, prob float32) Source[I] {
	return &alternate[I]{base: base, rnd: rnd, prob: prob}
}

func (a *alternate[I]) Next() *Request[I] {
	var skip bool
	if a.mu.TryLock() {
		skip = a.rnd.Float32() < a.prob
		a.mu.Unlock()
	}
	if skip {
		return nil
	}
	return a.base.Next()
}
