// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package observer

import "github.com/golem9247/fuzzcore/pkg/log"

// capturedOutputLimit bounds how much of a single run's stdout/stderr an
// observer keeps: a wedged target can write unbounded output, and the
// observer set lives as long as the testcase it's attached to.
const capturedOutputLimit = 16 << 10

// StdOutObserver captures the stdout of the last target run. Only
// executors that explicitly support stdout capture populate it. Ground:
// libafl/src/observers/stdio.rs's StdOutObserver.
type StdOutObserver struct {
	Base
	Stdout []byte
}

// NewStdOutObserver returns a StdOutObserver named name.
func NewStdOutObserver(name string) *StdOutObserver {
	return &StdOutObserver{Base: NewBase(name)}
}

func (o *StdOutObserver) ObservesStdout() bool { return true }
func (o *StdOutObserver) ObserveStdout(data []byte) {
	o.Stdout = log.Truncate(append([]byte(nil), data...), capturedOutputLimit/2, capturedOutputLimit/2)
}

// StdErrObserver is StdOutObserver's stderr counterpart.
type StdErrObserver struct {
	Base
	Stderr []byte
}

// NewStdErrObserver returns a StdErrObserver named name.
func NewStdErrObserver(name string) *StdErrObserver {
	return &StdErrObserver{Base: NewBase(name)}
}

func (o *StdErrObserver) ObservesStderr() bool { return true }
func (o *StdErrObserver) ObserveStderr(data []byte) {
	o.Stderr = log.Truncate(append([]byte(nil), data...), capturedOutputLimit/2, capturedOutputLimit/2)
}
