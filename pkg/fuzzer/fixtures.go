// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package fuzzer

import (
	"github.com/golem9247/fuzzcore/pkg/corpus"
)

// ByteSliceMutator performs random byte flips and splices on []byte
// inputs. It exists purely so package tests and the demo command have a
// concrete Mutator to exercise the stage machinery with, without
// pulling in a real target's grammar — it is not "the" mutator the
// specification describes, which is an external collaborator's concern.
type ByteSliceMutator struct{}

func (ByteSliceMutator) Mutate(state *State[[]byte], input *[]byte) (MutationResult, error) {
	if len(*input) == 0 {
		*input = []byte{byte(state.Rand.Intn(256))}
		return Mutated, nil
	}
	out := append([]byte(nil), *input...)
	switch state.Rand.Intn(2) {
	case 0:
		out[state.Rand.Intn(len(out))] = byte(state.Rand.Intn(256))
	case 1:
		out = append(out, byte(state.Rand.Intn(256)))
	}
	*input = out
	return Mutated, nil
}

func (ByteSliceMutator) PostExec(state *State[[]byte], id corpus.Id) error { return nil }

// RoundRobinScheduler hands out corpus entries in a fixed cycle. A
// test/demo fixture standing in for a real coverage-guided scheduler,
// which the specification treats as an external collaborator.
type RoundRobinScheduler[I any] struct {
	next int
}

func (s *RoundRobinScheduler[I]) Next(state *State[I]) (corpus.Id, error) {
	entries := state.Corpus.All()
	if len(entries) == 0 {
		return corpus.Id{}, newError(IllegalState, "scheduler asked for next entry of an empty corpus")
	}
	tc := entries[s.next%len(entries)]
	s.next++
	return tc.ID, nil
}
