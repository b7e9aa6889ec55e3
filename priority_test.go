package threadpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortKeyLess_HigherPriorityWins(t *testing.T) {
	high := SortKey{Priority: UserBlocking, WorkerCount: 5, Tiebreaker: 100}
	low := SortKey{Priority: BestEffort, WorkerCount: 0, Tiebreaker: 1}
	assert.True(t, high.less(low))
	assert.False(t, low.less(high))
}

func TestSortKeyLess_FewerWorkersWinsAtSamePriority(t *testing.T) {
	fewer := SortKey{Priority: UserVisible, WorkerCount: 1}
	more := SortKey{Priority: UserVisible, WorkerCount: 3}
	assert.True(t, fewer.less(more))
	assert.False(t, more.less(fewer))
}

func TestSortKeyLess_TiebreakerOnlyWhenBothFair(t *testing.T) {
	earlier := SortKey{Priority: UserVisible, WorkerCount: 1, Tiebreaker: 1}
	later := SortKey{Priority: UserVisible, WorkerCount: 1, Tiebreaker: 2}
	assert.True(t, earlier.less(later))

	unfairA := SortKey{Priority: UserVisible, WorkerCount: 1, Tiebreaker: 0}
	unfairB := SortKey{Priority: UserVisible, WorkerCount: 1, Tiebreaker: 0}
	assert.False(t, unfairA.less(unfairB))
	assert.False(t, unfairB.less(unfairA))
}

func TestSortKeyLess_Irreflexive(t *testing.T) {
	k := SortKey{Priority: UserVisible, WorkerCount: 2, Tiebreaker: 5}
	assert.False(t, k.less(k))
}

func TestInsertionClock_Monotonic(t *testing.T) {
	var c insertionClock
	a := c.tick()
	b := c.tick()
	assert.Less(t, a, b)
}

func TestPriorityString(t *testing.T) {
	assert.Equal(t, "BEST_EFFORT", BestEffort.String())
	assert.Equal(t, "USER_VISIBLE", UserVisible.String())
	assert.Equal(t, "USER_BLOCKING", UserBlocking.String())
}
