// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package observer

// TraceMetadata is the opaque per-run output of a concolic execution —
// a symbolic trace in practice; kept here as a simple byte payload
// since the concolic backend itself is an external collaborator's
// concern (spec.md §4.1).
type TraceMetadata struct {
	Trace []byte
}

// ConcolicObserver exposes the current concolic trace map. A real
// implementation populates it from an external collaborator's tracing
// backend during PostExec; this one only stores whatever trace was set
// on it, standing in for that collaborator in tests and the demo.
// Ground: ConcolicObserver referenced by libafl's concolic feedback.
type ConcolicObserver struct {
	Base
	trace []byte
}

// NewConcolicObserver returns a ConcolicObserver named name.
func NewConcolicObserver(name string) *ConcolicObserver {
	return &ConcolicObserver{Base: NewBase(name)}
}

// SetTrace records the trace an external collaborator produced for the
// run just finished.
func (o *ConcolicObserver) SetTrace(trace []byte) { o.trace = trace }

// CreateMetadataFromCurrentMap snapshots the observer's current trace
// into a TraceMetadata, the value ConcolicFeedback attaches to a
// preserved testcase.
func (o *ConcolicObserver) CreateMetadataFromCurrentMap() TraceMetadata {
	return TraceMetadata{Trace: append([]byte(nil), o.trace...)}
}
