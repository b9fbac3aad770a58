// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"sync"
	"time"

	"github.com/golem9247/fuzzcore/pkg/stats"
)

// FeatureTimer optionally records wall time spent in named phases of a
// stage's work into per-feature stats.Val counters — the Go realization
// of libafl's start_timer!/mark_feature_time! macros (ground:
// stages/push/mutational.rs, whose GetInputFromCorpus/Mutate/
// MutatePostExec phases StdMutationalPushStage reports through this
// type). A nil *FeatureTimer is a safe no-op, so attaching one is
// opt-in: stages call these methods unconditionally and pay nothing
// when no timer is attached.
type FeatureTimer struct {
	namePrefix string

	mu      sync.Mutex
	started time.Time
	vals    map[string]*stats.Val
}

// NewFeatureTimer returns a FeatureTimer whose per-feature counters are
// registered as "<namePrefix>/<feature>".
func NewFeatureTimer(namePrefix string) *FeatureTimer {
	return &FeatureTimer{namePrefix: namePrefix, vals: map[string]*stats.Val{}}
}

// StartTimer marks the beginning of a timed phase. A nil receiver does
// nothing.
func (t *FeatureTimer) StartTimer() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.started = time.Now()
	t.mu.Unlock()
}

// MarkFeatureTime adds the time since the last StartTimer call to the
// named feature's counter, in microseconds. A nil receiver does
// nothing.
func (t *FeatureTimer) MarkFeatureTime(feature string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	elapsed := time.Since(t.started)
	v, ok := t.vals[feature]
	if !ok {
		v = stats.Create(t.namePrefix+"/"+feature, "feature time (microseconds)", stats.Rate{})
		t.vals[feature] = v
	}
	t.mu.Unlock()
	v.Add(int(elapsed.Microseconds()))
}
