// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stats

import (
	"sync"
)

// floatType is kept local rather than pulled from golang.org/x/exp/constraints
// since this package needs nothing else from that module.
type floatType interface{ ~float32 | ~float64 }

// AverageValue tracks the running mean of a stream of samples. Ground:
// pkg/fuzzer/retry.go's crashEstimator, which keeps one
// AverageValue[float64] per syscall to estimate crash probability.
type AverageValue[T floatType] struct {
	mu    sync.Mutex
	sum   T
	count int64
}

// Save records one sample.
func (a *AverageValue[T]) Save(v T) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sum += v
	a.count++
}

// Value returns the running mean, or 0 if no sample was ever saved.
func (a *AverageValue[T]) Value() T {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.count == 0 {
		return 0
	}
	return a.sum / T(a.count)
}

// Count returns the number of samples saved so far.
func (a *AverageValue[T]) Count() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}
