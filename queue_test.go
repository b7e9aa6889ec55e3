package threadpool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	traits Traits
}

func (s *stubSource) Traits() Traits { return s.traits }
func (s *stubSource) TakeNextTask() (Task, bool) {
	return func(ctx context.Context) {}, true
}

func newStubEntry(p Priority, seq int64) *taskSourceEntry {
	e := newTaskSourceEntry(&stubSource{traits: Traits{Priority: p}}, seq)
	e.traits = Traits{Priority: p}
	return e
}

func TestPriorityQueue_PopOrdersByPrecedence(t *testing.T) {
	q := newPriorityQueue()
	low := newStubEntry(BestEffort, 1)
	mid := newStubEntry(UserVisible, 2)
	high := newStubEntry(UserBlocking, 3)

	q.Push(low, low.sortKey(true))
	q.Push(high, high.sortKey(true))
	q.Push(mid, mid.sortKey(true))

	require.Equal(t, 3, q.Len())

	top, ok := q.PopTop()
	require.True(t, ok)
	assert.Same(t, high, top)

	top, ok = q.PopTop()
	require.True(t, ok)
	assert.Same(t, mid, top)

	top, ok = q.PopTop()
	require.True(t, ok)
	assert.Same(t, low, top)

	assert.True(t, q.IsEmpty())
}

func TestPriorityQueue_FairnessTiebreakPreservesInsertionOrder(t *testing.T) {
	q := newPriorityQueue()
	first := newStubEntry(UserVisible, 1)
	second := newStubEntry(UserVisible, 2)
	third := newStubEntry(UserVisible, 3)

	q.Push(third, third.sortKey(true))
	q.Push(first, first.sortKey(true))
	q.Push(second, second.sortKey(true))

	top, _ := q.PopTop()
	assert.Same(t, first, top)
	top, _ = q.PopTop()
	assert.Same(t, second, top)
	top, _ = q.PopTop()
	assert.Same(t, third, top)
}

func TestPriorityQueue_RemoveByHandle(t *testing.T) {
	q := newPriorityQueue()
	a := newStubEntry(UserVisible, 1)
	b := newStubEntry(UserVisible, 2)
	c := newStubEntry(UserVisible, 3)
	q.Push(a, a.sortKey(true))
	q.Push(b, b.sortKey(true))
	q.Push(c, c.sortKey(true))

	require.True(t, q.Remove(b))
	assert.False(t, b.inQueue())
	assert.Equal(t, 2, q.Len())
	assert.False(t, q.Remove(b), "removing twice should report false")

	top, _ := q.PopTop()
	assert.Same(t, a, top)
	top, _ = q.PopTop()
	assert.Same(t, c, top)
}

func TestPriorityQueue_UpdateSortKeyRepositions(t *testing.T) {
	q := newPriorityQueue()
	a := newStubEntry(BestEffort, 1)
	b := newStubEntry(UserVisible, 2)
	q.Push(a, a.sortKey(true))
	q.Push(b, b.sortKey(true))

	top, _, _ := q.PeekTop()
	assert.Same(t, b, top)

	q.UpdateSortKey(a, SortKey{Priority: UserBlocking})
	top, _, _ = q.PeekTop()
	assert.Same(t, a, top)
}

func TestPriorityQueue_NumWithPriority(t *testing.T) {
	q := newPriorityQueue()
	q.Push(newStubEntry(BestEffort, 1), SortKey{Priority: BestEffort})
	q.Push(newStubEntry(BestEffort, 2), SortKey{Priority: BestEffort})
	q.Push(newStubEntry(UserVisible, 3), SortKey{Priority: UserVisible})

	assert.Equal(t, 2, q.NumWithPriority(BestEffort))
	assert.Equal(t, 1, q.NumWithPriority(UserVisible))
	assert.Equal(t, 0, q.NumWithPriority(UserBlocking))
}

func TestPriorityQueue_PushPanicsOnDoubleQueue(t *testing.T) {
	q := newPriorityQueue()
	a := newStubEntry(UserVisible, 1)
	q.Push(a, a.sortKey(true))
	assert.Panics(t, func() {
		q.Push(a, a.sortKey(true))
	})
}
