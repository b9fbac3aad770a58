// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package observer implements the observer protocol of spec.md §4.1: a
// named sink updated by the executor around each target run, retrieved
// from an ordered, heterogeneous Set by a type-and-name-safe handle.
package observer

// Observer is a named sink the executor updates around a target run.
// All hooks are opt-in: an observer that doesn't capture stdout simply
// returns false from ObservesStdout and ignores ObserveStdout calls.
type Observer interface {
	Name() string
	PreExec(input any) error
	PostExec(input any, exitKind any) error
	ObservesStdout() bool
	ObservesStderr() bool
	ObserveStdout(data []byte)
	ObserveStderr(data []byte)
}

// Base embeds into a concrete observer to satisfy Observer's full
// method set with no-ops, so implementations only override the hooks
// they actually care about — mirroring the opt-in default methods the
// Rust trait gives for free.
type Base struct {
	name string
}

// NewBase returns a Base reporting name from Name().
func NewBase(name string) Base { return Base{name: name} }

func (b Base) Name() string                          { return b.name }
func (b Base) PreExec(input any) error                { return nil }
func (b Base) PostExec(input any, exitKind any) error { return nil }
func (b Base) ObservesStdout() bool                   { return false }
func (b Base) ObservesStderr() bool                   { return false }
func (b Base) ObserveStdout(data []byte)              {}
func (b Base) ObserveStderr(data []byte)              {}

// Handle is a name-plus-type token captured at construction time, used
// to retrieve an observer from a Set without a fallible downcast at the
// call site: Get[T] only compiles when T matches the handle's type
// parameter, and only succeeds at runtime if an observer of that name
// was actually registered as that type.
type Handle[T Observer] struct {
	name string
}

// NewHandle returns a Handle for the observer named name, to be
// resolved against a Set with Get.
func NewHandle[T Observer](name string) Handle[T] { return Handle[T]{name: name} }

func (h Handle[T]) Name() string { return h.name }

// Set is an ordered, heterogeneous collection of Observers. Insertion
// order is fixed at construction — observers are not added or removed
// while fuzzing (spec.md §3).
type Set struct {
	order     []string
	observers map[string]Observer
}

// NewSet constructs a Set from a fixed list of observers, in order.
func NewSet(observers ...Observer) *Set {
	s := &Set{observers: make(map[string]Observer, len(observers))}
	for _, o := range observers {
		s.order = append(s.order, o.Name())
		s.observers[o.Name()] = o
	}
	return s
}

// Get resolves h against the set, returning the observer and true if
// one was registered under that name with exactly type T.
func Get[T Observer](s *Set, h Handle[T]) (T, bool) {
	var zero T
	raw, ok := s.observers[h.name]
	if !ok {
		return zero, false
	}
	typed, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// All returns every observer in construction order.
func (s *Set) All() []Observer {
	out := make([]Observer, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.observers[name])
	}
	return out
}

// PreExec calls PreExec on every observer in order.
func (s *Set) PreExec(input any) error {
	for _, o := range s.All() {
		if err := o.PreExec(input); err != nil {
			return err
		}
	}
	return nil
}

// PostExec calls PostExec on every observer in order.
func (s *Set) PostExec(input any, exitKind any) error {
	for _, o := range s.All() {
		if err := o.PostExec(input, exitKind); err != nil {
			return err
		}
	}
	return nil
}

// ObservesStdout reports whether any observer in the set wants stdout
// capture, so an executor can skip the work entirely when nobody cares.
func (s *Set) ObservesStdout() bool {
	for _, o := range s.All() {
		if o.ObservesStdout() {
			return true
		}
	}
	return false
}

// ObservesStderr is ObservesStdout's stderr counterpart.
func (s *Set) ObservesStderr() bool {
	for _, o := range s.All() {
		if o.ObservesStderr() {
			return true
		}
	}
	return false
}

// ObserveStdout forwards data to every observer that opted in.
func (s *Set) ObserveStdout(data []byte) {
	for _, o := range s.All() {
		if o.ObservesStdout() {
			o.ObserveStdout(data)
		}
	}
}

// ObserveStderr forwards data to every observer that opted in.
func (s *Set) ObserveStderr(data []byte) {
	for _, o := range s.All() {
		if o.ObservesStderr() {
			o.ObserveStderr(data)
		}
	}
}
