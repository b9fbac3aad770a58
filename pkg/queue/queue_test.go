// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package queue

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainQueueOrder(t *testing.T) {
	pq := Plain[string]()
	pq.Submit(&Request[string]{Input: "a"})
	pq.Submit(&Request[string]{Input: "b"})
	assert.Equal(t, 2, pq.Len())
	assert.Equal(t, "a", pq.Next().Input)
	assert.Equal(t, "b", pq.Next().Input)
	assert.Nil(t, pq.Next())
}

func TestExecuteRoundTrip(t *testing.T) {
	pq := Plain[int]()
	go func() {
		req := pq.Next()
		for req == nil {
			req = pq.Next()
		}
		req.Done(&Result[int]{ExitKind: Ok, Status: Success})
	}()
	res := Execute[int](context.Background(), pq, &Request[int]{Input: 7})
	assert.Equal(t, Ok, res.ExitKind)
	assert.False(t, res.Stop())
}

func TestMultiplexPrefersFirstNonNil(t *testing.T) {
	empty := Callback(func() *Request[int] { return nil })
	full := Callback(func() *Request[int] { return &Request[int]{Input: 1} })
	m := Multiplex[int](empty, full)
	assert.Equal(t, 1, m.Next().Input)
}

func TestAlternateSkipsByProbability(t *testing.T) {
	base := Callback(func() *Request[int] { return &Request[int]{Input: 1} })
	a := Alternate[int](base, rand.New(rand.NewSource(1)), 1.0)
	assert.Nil(t, a.Next())
}

func TestOnDoneComposesCallbacks(t *testing.T) {
	var order []string
	req := &Request[int]{Input: 1}
	req.OnDone(func(*Request[int], *Result[int]) bool {
		order = append(order, "first")
		return true
	})
	req.OnDone(func(*Request[int], *Result[int]) bool {
		order = append(order, "second")
		return true
	})
	req.Done(&Result[int]{})
	assert.Equal(t, []string{"second", "first"}, order)
}
