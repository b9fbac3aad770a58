// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package fuzzer implements the stage-scheduling and restart-resumption
// machinery that glues an executor, a scheduler, and a corpus into one
// fuzzing round: restart helpers, the push-stage protocol, the classic
// Stage contract, and the resume-safe stage tuple.
package fuzzer

import (
	"math/rand"
	"reflect"
	"sync/atomic"

	"github.com/golem9247/fuzzcore/pkg/corpus"
)

// StageId is the position of a stage within a StagesTuple, counted from
// the end of the remaining tuple — matching the reference traversal so
// the resume index is meaningful regardless of how deep the tuple has
// already been unwound.
type StageId int

// noStage marks State.currentStageIdx as unset.
const noStage StageId = -1

type namedKey struct {
	typ  reflect.Type
	name string
}

// State is the process-wide fuzzer state for one worker. Per spec.md §5
// it is owned by exactly one worker and accessed single-threaded; the
// core takes no locks on it.
type State[I any] struct {
	Corpus *corpus.Corpus[I]
	Rand   *rand.Rand

	executions int64

	metadata      map[reflect.Type]any
	namedMetadata map[namedKey]any

	currentCorpusID    corpus.Id
	hasCurrentCorpusID bool

	currentStageIdx StageId

	stopRequested atomic.Bool
}

// NewState returns a State wrapping the given corpus and rand source.
func NewState[I any](c *corpus.Corpus[I], r *rand.Rand) *State[I] {
	return &State[I]{
		Corpus:          c,
		Rand:            r,
		metadata:        map[reflect.Type]any{},
		namedMetadata:   map[namedKey]any{},
		currentStageIdx: noStage,
	}
}

// Executions returns the number of target executions recorded so far.
func (s *State[I]) Executions() int64 { return s.executions }

// RecordExecution increments the execution counter by one. Called by
// the fuzzer/evaluator after every target run, not by the stage engine
// itself.
func (s *State[I]) RecordExecution() { s.executions++ }

// CurrentCorpusId returns the corpus id currently being processed, if
// any.
func (s *State[I]) CurrentCorpusId() (corpus.Id, bool) {
	return s.currentCorpusID, s.hasCurrentCorpusID
}

// SetCurrentCorpusId records which corpus entry is being worked on. A
// stage must never begin processing a corpus id without this being set
// first (spec.md §3 invariant).
func (s *State[I]) SetCurrentCorpusId(id corpus.Id) {
	s.currentCorpusID = id
	s.hasCurrentCorpusID = true
}

// ClearCurrentCorpusId unsets the current corpus id slot.
func (s *State[I]) ClearCurrentCorpusId() {
	s.hasCurrentCorpusID = false
	s.currentCorpusID = corpus.Id{}
}

// StopRequested reports whether a cooperative shutdown has been
// requested.
func (s *State[I]) StopRequested() bool { return s.stopRequested.Load() }

// RequestStop sets the cooperative stop flag. Safe to call from any
// goroutine (e.g. a signal handler or an event manager callback); the
// stage tuple observes it at the next stage boundary.
func (s *State[I]) RequestStop() { s.stopRequested.Store(true) }

// DiscardStopRequest clears the stop flag once it has been acted on.
func (s *State[I]) DiscardStopRequest() { s.stopRequested.Store(false) }

// Metadata returns the state-global entry of type T, if present.
func Metadata[T any, I any](s *State[I]) (T, bool) {
	var zero T
	v, ok := s.metadata[reflect.TypeOf(zero)]
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// PutMetadata stores a state-global entry keyed by its concrete type,
// overwriting any previous entry of that type.
func PutMetadata[T any, I any](s *State[I], v T) {
	s.metadata[reflect.TypeOf(v)] = v
}

// RemoveMetadata deletes the state-global entry of type T and reports
// whether one was present.
func RemoveMetadata[T any, I any](s *State[I]) bool {
	var zero T
	typ := reflect.TypeOf(zero)
	_, ok := s.metadata[typ]
	delete(s.metadata, typ)
	return ok
}

// NamedMetadata returns the (type, name)-keyed entry of type T.
func NamedMetadata[T any, I any](s *State[I], name string) (T, bool) {
	var zero T
	v, ok := s.namedMetadata[namedKey{reflect.TypeOf(zero), name}]
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// NamedMetadataOrInsert returns the (type, name)-keyed entry of type T,
// creating it from makeDefault if absent.
func NamedMetadataOrInsert[T any, I any](s *State[I], name string, makeDefault func() T) T {
	key := namedKey{reflect.TypeOf(*new(T)), name}
	v, ok := s.namedMetadata[key]
	if !ok {
		fresh := makeDefault()
		s.namedMetadata[key] = fresh
		return fresh
	}
	return v.(T)
}

// PutNamedMetadata stores v under (type of T, name).
func PutNamedMetadata[T any, I any](s *State[I], name string, v T) {
	s.namedMetadata[namedKey{reflect.TypeOf(v), name}] = v
}

// RemoveNamedMetadata deletes the (type, name)-keyed entry of type T and
// reports whether one was present.
func RemoveNamedMetadata[T any, I any](s *State[I], name string) bool {
	key := namedKey{reflect.TypeOf(*new(T)), name}
	_, ok := s.namedMetadata[key]
	delete(s.namedMetadata, key)
	return ok
}

// stageIdx, setStageIdx and clearStageIdx implement HasCurrentStage from the
// reference implementation (stages/mod.rs): the tuple's resume index
// lives on State, not on the tuple itself.

func (s *State[I]) stageIdx() StageId { return s.currentStageIdx }

func (s *State[I]) setStageIdx(idx StageId) { s.currentStageIdx = idx }

func (s *State[I]) clearStageIdx() { s.currentStageIdx = noStage }

// ResumeStageIdx exposes the current resume index as a plain int, the
// one piece of State a driver must persist across a process restart for
// StagesTuple to resume correctly (spec.md §5 — surviving the restart
// itself is the embedder's concern; restartio.Snapshot.StageIdx is the
// concrete slot this round-trips through).
func (s *State[I]) ResumeStageIdx() int { return int(s.currentStageIdx) }

// SetResumeStageIdx restores a resume index previously read from
// ResumeStageIdx.
func (s *State[I]) SetResumeStageIdx(idx int) { s.currentStageIdx = StageId(idx) }
