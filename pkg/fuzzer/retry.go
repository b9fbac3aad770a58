// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"github.com/golem9247/fuzzcore/pkg/corpus"
)

// retryMetadata is the named-metadata entry backing
// RetryCountRestartHelper: one per (stage name, worker). triesRemaining
// is nil between rounds ("unset"); it is (re)initialized to
// maxRetries+1 on the first should_restart of a fresh round.
type retryMetadata struct {
	triesRemaining *int
	skipped        map[corpus.Id]struct{}
}

// NoRetry runs should_restart with a one-shot budget, the convention
// used by ClosureStage and PushStageAdapter for stages that carry no
// restart safety of their own.
func NoRetry[I any](state *State[I], name string) (bool, error) {
	return ShouldRestart(state, name, 1)
}

// ShouldRestart initializes (or counts down in) the retry budget for
// (name, state.CurrentCorpusId), returning whether the stage should run
// this time. See spec.md §4.7 for the exact state machine.
func ShouldRestart[I any](state *State[I], name string, maxRetries int) (bool, error) {
	corpusID, ok := state.CurrentCorpusId()
	if !ok {
		return false, newError(IllegalState,
			"no current corpus id set in state, but RetryCountRestartHelper.ShouldRestart was called")
	}

	initial := maxRetries + 1
	meta := NamedMetadataOrInsert(state, name, func() *retryMetadata {
		remaining := initial
		return &retryMetadata{triesRemaining: &remaining, skipped: map[corpus.Id]struct{}{}}
	})

	remaining := initial
	if meta.triesRemaining != nil {
		remaining = *meta.triesRemaining
	}
	if remaining == 0 {
		return false, newError(IllegalState,
			"attempted further retries after we had already gotten to none remaining")
	}
	remaining--
	meta.triesRemaining = &remaining

	if remaining == 0 {
		meta.skipped[corpusID] = struct{}{}
		return false, nil
	}
	if _, skipped := meta.skipped[corpusID]; skipped {
		return false, nil
	}
	return true, nil
}

// ClearProgressRetry marks (name)'s retry helper as no longer in
// progress: the next ShouldRestart call re-initializes triesRemaining
// to maxRetries+1. The skipped set is untouched — it persists for the
// lifetime of the stage instance.
func ClearProgressRetry[I any](state *State[I], name string) error {
	meta, ok := NamedMetadata[*retryMetadata](state, name)
	if !ok {
		return newErrorf(KeyNotFound, "no retry metadata for stage %q", name)
	}
	meta.triesRemaining = nil
	return nil
}

// execCountMetadata backs ExecutionCountRestartHelper: the execution
// counter observed when the stage started this round.
type execCountMetadata struct {
	startedAtExecs int64
}

// ExecutionCountRestartHelper records how many target executions have
// happened since a stage started its current round, surviving a
// restart by re-reading the same named-metadata entry.
type ExecutionCountRestartHelper struct {
	startedAtExecs *int64
}

// ExecsSinceProgressStart returns how many executions have happened
// since (name)'s current round began.
func ExecsSinceProgressStart[I any](h *ExecutionCountRestartHelper, state *State[I], name string) (int64, error) {
	if h.startedAtExecs == nil {
		meta, ok := NamedMetadata[execCountMetadata](state, name)
		if !ok {
			return 0, newErrorf(IllegalState,
				"ExecutionCountRestartHelperMetadata should have been set for %q by now", name)
		}
		h.startedAtExecs = &meta.startedAtExecs
	}
	return state.Executions() - *h.startedAtExecs, nil
}

// ExecCountShouldRestart initializes (or resumes) the execution-count
// helper for name and reports true unconditionally.
func ExecCountShouldRestart[I any](h *ExecutionCountRestartHelper, state *State[I], name string) (bool, error) {
	executions := state.Executions()
	meta := NamedMetadataOrInsert(state, name, func() execCountMetadata {
		return execCountMetadata{startedAtExecs: executions}
	})
	h.startedAtExecs = &meta.startedAtExecs
	return true, nil
}

// ExecCountClearProgress clears the execution-count helper for name,
// asserting one was actually present (mirrors the reference
// implementation's debug assertion that stages aren't nested).
func ExecCountClearProgress[I any](h *ExecutionCountRestartHelper, state *State[I], name string) error {
	h.startedAtExecs = nil
	if !RemoveNamedMetadata[execCountMetadata](state, name) {
		return newErrorf(IllegalState,
			"ExecCountClearProgress called for %q, but ShouldRestart was never called (or stages are nested)", name)
	}
	return nil
}
