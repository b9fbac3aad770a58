// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package corelog holds the verbose, debug-only diagnostics a
// mutational stage wants to emit on triage — mirroring the teacher's
// own verbose Logf(2, ...) messages, but gated behind an explicit
// Debug flag rather than a verbosity level, since this package's sole
// consumer (diffing two serialized inputs) is expensive enough that
// callers shouldn't pay to format it only to discard it.
package corelog

import (
	"github.com/golem9247/fuzzcore/pkg/log"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffPrograms logs a line-level diff between before and after (a
// testcase's previous and mutated serialized forms) at verbosity level
// 2, the same level the teacher reserves for per-mutation triage
// detail. It is a no-op unless debug is true, since computing a diff on
// every mutation would defeat the point of gating it behind -v.
func DiffPrograms(debug bool, name string, before, after []byte) {
	if !debug {
		return
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(before), string(after))
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)
	log.Logf(2, "%v: mutation diff:\n%v", name, dmp.DiffPrettyText(diffs))
}
