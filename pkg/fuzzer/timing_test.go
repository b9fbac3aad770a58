// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNilFeatureTimerIsANoop(t *testing.T) {
	var timer *FeatureTimer
	assert.NotPanics(t, func() {
		timer.StartTimer()
		timer.MarkFeatureTime("Mutate")
	})
}

func TestFeatureTimerAccumulatesPerFeature(t *testing.T) {
	timer := NewFeatureTimer("testtimer-" + t.Name())

	timer.StartTimer()
	timer.MarkFeatureTime("Mutate")
	timer.StartTimer()
	timer.MarkFeatureTime("Mutate")
	timer.StartTimer()
	timer.MarkFeatureTime("GetInputFromCorpus")

	_, ok := timer.vals["Mutate"]
	assert.True(t, ok)
	_, ok = timer.vals["GetInputFromCorpus"]
	assert.True(t, ok)
	assert.Len(t, timer.vals, 2, "each distinct feature gets its own counter, reused across repeated marks")
}
