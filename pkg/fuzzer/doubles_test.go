// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"time"

	"github.com/golem9247/fuzzcore/pkg/observer"
	"github.com/golem9247/fuzzcore/pkg/queue"
)

// fakeExecutor and fakeEventManager are the minimal Executor/EventManager
// stand-ins shared by this package's tests: real implementations of both
// are external collaborators the core only consumes through these
// interfaces (spec.md §6).

type fakeExecutor struct {
	exitKind queue.ExitKind
	err      error
	obs      *observer.Set
}

func (e fakeExecutor) RunTarget(state *State[[]byte], manager EventManager, input []byte) (queue.ExitKind, error) {
	return e.exitKind, e.err
}

func (e fakeExecutor) Observers() *observer.Set {
	if e.obs == nil {
		return observer.NewSet()
	}
	return e.obs
}

type fakeEventManager struct {
	fired      []any
	shutdowns  int
	progressAt []int64
}

func (m *fakeEventManager) Fire(event any) error {
	m.fired = append(m.fired, event)
	return nil
}

func (m *fakeEventManager) MaybeReportProgress(execs int64, interval time.Duration) error {
	m.progressAt = append(m.progressAt, execs)
	return nil
}

func (m *fakeEventManager) OnShutdown() error {
	m.shutdowns++
	return nil
}
