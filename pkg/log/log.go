// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package log

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// verbosity controls which Logf calls actually print: a call at level L is
// emitted only when L <= verbosity. This mirrors the level-gated Logf
// sprinkled through the fuzzer (fuzzer.Logf(2, ...), fuzzer.Logf(0, ...))
// rather than a named-level logger; callers pick their own scale.
var verbosity atomic.Int32

// SetVerbosity sets the global verbosity threshold. Negative values
// silence all output.
func SetVerbosity(v int) {
	verbosity.Store(int32(v))
}

var mu sync.Mutex

// Logf prints a leveled log line to stderr, prefixed with a timestamp.
// It is safe for concurrent use.
func Logf(level int, msg string, args ...interface{}) {
	if int32(level) > verbosity.Load() {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(os.Stderr, "%v %v\n", time.Now().Format("2006/01/02 15:04:05"), fmt.Sprintf(msg, args...))
}

// Fatalf prints the message regardless of verbosity and exits the process.
// Reserved for startup/config errors that leave the engine unable to run;
// the core itself never calls this (see spec.md §7 — the core surfaces
// errors, it does not exit the process).
func Fatalf(msg string, args ...interface{}) {
	mu.Lock()
	fmt.Fprintf(os.Stderr, "%v FATAL: %v\n", time.Now().Format("2006/01/02 15:04:05"), fmt.Sprintf(msg, args...))
	mu.Unlock()
	os.Exit(1)
}
