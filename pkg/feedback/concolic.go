// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package feedback

import (
	"github.com/golem9247/fuzzcore/pkg/corpus"
	"github.com/golem9247/fuzzcore/pkg/fuzzer"
	"github.com/golem9247/fuzzcore/pkg/observer"
	"github.com/golem9247/fuzzcore/pkg/queue"
)

// ConcolicFeedback always reports "not interesting" and exists purely
// to attach concolic-trace metadata to a testcase some other feedback
// preserved: concolic tracing is expensive and orthogonal to coverage,
// so it piggy-backs on whichever feedback actually decided to keep the
// input. Ground: libafl/src/feedbacks/concolic.rs.
type ConcolicFeedback[I any] struct {
	handle observer.Handle[*observer.ConcolicObserver]
}

// NewConcolicFeedback returns a ConcolicFeedback reading the
// ConcolicObserver registered under name.
func NewConcolicFeedback[I any](name string) *ConcolicFeedback[I] {
	return &ConcolicFeedback[I]{handle: observer.NewHandle[*observer.ConcolicObserver](name)}
}

func (f *ConcolicFeedback[I]) IsInteresting(
	state *fuzzer.State[I], manager fuzzer.EventManager, input I, observers *observer.Set, exitKind queue.ExitKind,
) (bool, error) {
	return false, nil
}

func (f *ConcolicFeedback[I]) AppendMetadata(
	state *fuzzer.State[I], manager fuzzer.EventManager, observers *observer.Set, tc *corpus.Testcase[I],
) error {
	obs, ok := observer.Get(observers, f.handle)
	if !ok {
		// No concolic observer registered under this handle: nothing to
		// attach. Not an error — composing feedbacks may run against
		// observer sets that don't include this one.
		return nil
	}
	return tc.PutMetadata(obs.CreateMetadataFromCurrentMap())
}
