// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package corpus holds the default, in-memory corpus storage used by the
// fuzzer package: a collection of testcases keyed by an opaque, stable
// Id, plus type-keyed metadata attached to each testcase and a
// priority-weighted picker for schedulers that want one.
//
// The concrete storage backend (on-disk format, replication, pruning
// policy) is an external collaborator's concern; this package only
// supplies a usable default so the core is runnable without one.
package corpus

import "github.com/google/uuid"

// Id stably identifies one testcase for the lifetime of a Corpus.
type Id uuid.UUID

// NewId returns a fresh, random Id.
func NewId() Id {
	return Id(uuid.New())
}

func (id Id) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether id is the zero value (never assigned).
func (id Id) IsZero() bool {
	return id == Id{}
}
