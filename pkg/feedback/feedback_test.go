// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package feedback

import (
	"errors"
	"testing"

	"github.com/golem9247/fuzzcore/pkg/corpus"
	"github.com/golem9247/fuzzcore/pkg/fuzzer"
	"github.com/golem9247/fuzzcore/pkg/observer"
	"github.com/golem9247/fuzzcore/pkg/queue"
	"github.com/stretchr/testify/assert"
)

// constFeedback always answers interesting with a fixed value and, when
// appended is set, counts its AppendMetadata calls, so combinator tests
// can check both the outcome and that every member's AppendMetadata ran.
type constFeedback struct {
	interesting bool
	err         error
	appendErr   error
	appended    *int
}

func (f constFeedback) IsInteresting(state *fuzzer.State[[]byte], manager fuzzer.EventManager, input []byte, observers *observer.Set, exitKind queue.ExitKind) (bool, error) {
	return f.interesting, f.err
}

func (f constFeedback) AppendMetadata(state *fuzzer.State[[]byte], manager fuzzer.EventManager, observers *observer.Set, tc *corpus.Testcase[[]byte]) error {
	if f.appended != nil {
		*f.appended++
	}
	return f.appendErr
}

func TestAnyIsInterestingWhenAnyMemberIs(t *testing.T) {
	fs := Any[[]byte]{constFeedback{interesting: false}, constFeedback{interesting: true}, constFeedback{interesting: false}}
	ok, err := fs.IsInteresting(nil, nil, nil, nil, queue.Ok)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestAnyIsNotInterestingWhenNoMemberIs(t *testing.T) {
	fs := Any[[]byte]{constFeedback{interesting: false}, constFeedback{interesting: false}}
	ok, err := fs.IsInteresting(nil, nil, nil, nil, queue.Ok)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestAnyStopsAtFirstError(t *testing.T) {
	wantErr := errors.New("boom")
	fs := Any[[]byte]{constFeedback{interesting: true}, constFeedback{err: wantErr}}
	_, err := fs.IsInteresting(nil, nil, nil, nil, queue.Ok)
	assert.ErrorIs(t, err, wantErr)
}

func TestAnyAppendMetadataRunsEveryMember(t *testing.T) {
	var calls int
	fs := Any[[]byte]{constFeedback{appended: &calls}, constFeedback{appended: &calls}}
	assert.NoError(t, fs.AppendMetadata(nil, nil, nil, corpus.NewTestcase([]byte("x"), "")))
	assert.Equal(t, 2, calls)
}

func TestAllRequiresEveryMemberInteresting(t *testing.T) {
	fs := All[[]byte]{constFeedback{interesting: true}, constFeedback{interesting: false}}
	ok, err := fs.IsInteresting(nil, nil, nil, nil, queue.Ok)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestAllInterestingWhenEveryMemberIs(t *testing.T) {
	fs := All[[]byte]{constFeedback{interesting: true}, constFeedback{interesting: true}}
	ok, err := fs.IsInteresting(nil, nil, nil, nil, queue.Ok)
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestAllEmptyIsNeverInteresting(t *testing.T) {
	var fs All[[]byte]
	ok, err := fs.IsInteresting(nil, nil, nil, nil, queue.Ok)
	assert.NoError(t, err)
	assert.False(t, ok, "an empty All group has nothing to vote yes, so it must not claim everything is interesting")
}
