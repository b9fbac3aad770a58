// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package corpus

import (
	"fmt"
	"reflect"
	"sync"
)

// Testcase holds one input plus the typed metadata stages and feedbacks
// have attached to it. The metadata map is append-only and keyed by the
// concrete type of the stored value: two components that attach metadata
// of the same type collide, which is an author error, not a runtime
// race to resolve silently.
type Testcase[I any] struct {
	ID    Id
	Name  string
	Input I

	mu   sync.Mutex
	meta map[reflect.Type]any
}

// NewTestcase wraps input into a fresh Testcase with a new Id.
func NewTestcase[I any](input I, name string) *Testcase[I] {
	return &Testcase[I]{
		ID:    NewId(),
		Name:  name,
		Input: input,
		meta:  make(map[reflect.Type]any),
	}
}

// PutMetadata attaches v to the testcase, keyed by its concrete type.
// It returns an error if metadata of that type is already present —
// callers that legitimately want to replace an entry should fetch, mutate,
// and the metadata's own method should do so in place instead of calling
// PutMetadata twice.
func (t *Testcase[I]) PutMetadata(v any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	typ := reflect.TypeOf(v)
	if _, ok := t.meta[typ]; ok {
		return fmt.Errorf("testcase %v: metadata of type %v already present", t.ID, typ)
	}
	t.meta[typ] = v
	return nil
}

// HasMetadata reports whether metadata of type typ is attached.
func (t *Testcase[I]) HasMetadata(typ reflect.Type) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.meta[typ]
	return ok
}

// TestcaseMetadata fetches metadata of type T from a testcase. The second
// return is false if no value of that type was ever attached.
func TestcaseMetadata[T any, I any](t *Testcase[I]) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero T
	raw, ok := t.meta[reflect.TypeOf(zero)]
	if !ok {
		return zero, false
	}
	return raw.(T), true
}

// Clone returns cloneInput applied to the testcase's input, read under
// the testcase's lock. The result is detached from the stored value only
// if cloneInput copies it; an identity function returns the stored value
// itself. Stages must clone before mutating (see spec.md §9 — mutators
// never touch corpus entries in place).
func (t *Testcase[I]) Clone(cloneInput func(I) I) I {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneInput(t.Input)
}
