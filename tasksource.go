package threadpool

import "context"

// Task is one runnable unit drawn from a TaskSource. ctx carries the
// calling worker's BlockingObserver (see blocking.go) and is cancelled
// when the owning ThreadGroup is torn down via JoinForTesting.
type Task func(ctx context.Context)

// TaskSource is an ordered stream of tasks treated as a single unit of
// concurrency: the pool never reorders tasks drawn from one TaskSource
// relative to each other, but different TaskSources may interleave freely.
//
// Implementations must be safe for TakeNextTask to be called repeatedly
// by whichever worker currently holds the source's registration; the pool
// never calls TakeNextTask concurrently for the same TaskSource.
type TaskSource interface {
	// Traits returns the source's current scheduling traits. It may be
	// called often (e.g. every time the source is enqueued) and must be
	// cheap; implementations that want the priority to change over time
	// should return the latest value and call ThreadGroup.UpdateSortKey
	// to let the scheduler notice.
	Traits() Traits

	// TakeNextTask returns the next task to run, or ok=false if the
	// source is (for now, or forever) exhausted. Returning ok=false does
	// not mean the source is done forever: it may produce more tasks
	// later, in which case the caller is expected to push it again.
	TakeNextTask() (Task, bool)
}

// taskSourceEntry is the scheduler-owned wrapper around a caller's
// TaskSource. It carries the mutable bookkeeping state described in
// spec.md §3: worker_count, heap_handle (heapIndex) and the cached sort
// key the priority queue is ordered by. At most one taskSourceEntry
// exists per registered TaskSource.
type taskSourceEntry struct {
	source TaskSource
	traits Traits
	seq    int64 // stable tiebreaker, assigned once at registration

	heapIndex   int // -1 when not in the priority queue (heap_handle invalid)
	workerCount uint32

	key SortKey // cached sort key; see priorityQueue.UpdateSortKey
}

func newTaskSourceEntry(source TaskSource, seq int64) *taskSourceEntry {
	return &taskSourceEntry{
		source:    source,
		traits:    source.Traits(),
		seq:       seq,
		heapIndex: -1,
	}
}

// sortKey computes a fresh SortKey from current state. fair controls
// whether the insertion-order tiebreaker participates (spec.md §4.1
// fairness toggle).
func (e *taskSourceEntry) sortKey(fair bool) SortKey {
	tb := int64(0)
	if fair {
		tb = e.seq
	}
	return SortKey{Priority: e.traits.Priority, WorkerCount: e.workerCount, Tiebreaker: tb}
}

func (e *taskSourceEntry) inQueue() bool { return e.heapIndex >= 0 }

// RegisteredTaskSource is a handle to a TaskSource that a TaskTracker has
// confirmed is currently allowed to run. It is the currency the priority
// queue, producers and workers pass around; a zero-value
// RegisteredTaskSource is invalid (admission was refused).
type RegisteredTaskSource struct {
	entry *taskSourceEntry
}

// Valid reports whether this handle refers to a real task source.
func (r RegisteredTaskSource) Valid() bool { return r.entry != nil }

// Traits returns the task source's current traits.
func (r RegisteredTaskSource) Traits() Traits { return r.entry.traits }

// TakeNextTask draws the next task from the underlying source.
func (r RegisteredTaskSource) TakeNextTask() (Task, bool) { return r.entry.source.TakeNextTask() }

// Unwrap returns the caller-supplied TaskSource this handle wraps, for
// collaborators (e.g. a GroupSelector) that need to inspect it directly.
func (r RegisteredTaskSource) Unwrap() TaskSource { return r.entry.source }
