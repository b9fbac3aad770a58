// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package restartio persists the slice of State a process needs to
// resume a StagesTuple traversal across a restart: the stage index and
// whichever named metadata a retry helper stashed. The core itself
// never touches a filesystem (spec.md §5 — State crossing a restart is
// the embedder's problem); this package is the concrete mechanism a
// binary wires in to actually survive one.
package restartio

import (
	"bytes"
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"
)

// Snapshot is the restart-relevant slice of a fuzzer.State: the
// resume-index counter plus named retry/iteration metadata, keyed by
// name the same way State's own namedMetadata map is. Every concrete
// type stored in Named must be registered with gob.Register before
// Save/Load is called — gob requires this for anything held behind an
// interface, including plain ints.
type Snapshot struct {
	StageIdx int
	Named    map[string]any
}

// Save writes snap to path as xz-compressed gob, replacing path
// atomically via a temp-file rename so a crash mid-write never leaves a
// truncated snapshot behind.
func Save(path string, snap Snapshot) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snap); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "restartio-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w, err := xz.NewWriter(tmp)
	if err != nil {
		tmp.Close()
		return err
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		w.Close()
		tmp.Close()
		return err
	}
	if err := w.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads back a Snapshot written by Save. A missing file returns a
// zero Snapshot and no error — the first run of a process has nothing
// to resume from.
func Load(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, nil
		}
		return Snapshot{}, err
	}
	defer f.Close()

	r, err := xz.NewReader(f)
	if err != nil {
		return Snapshot{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
