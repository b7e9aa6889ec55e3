package threadpool

// priorityQueue is an intrusive binary heap of *taskSourceEntry keyed by
// SortKey, adapted from the teacher's PriorityQueue[T] bubbleUp/bubbleDown
// implementation (workerpool.go) generalized from Job[T] values to
// *taskSourceEntry pointers so that heap position (heapIndex) can be
// tracked on the element itself, giving Remove/UpdateSortKey by identity
// in O(log n) instead of O(n) — the one thing container/heap doesn't
// offer without also hand-writing a heap.Interface, so this stays
// hand-rolled like the teacher's.
//
// Not safe for concurrent use; callers (ThreadGroup) serialize access
// under their own lock.
type priorityQueue struct {
	items       []*taskSourceEntry
	countByPrio [3]int
}

func newPriorityQueue() *priorityQueue {
	return &priorityQueue{}
}

// Len reports the number of task sources currently queued.
func (q *priorityQueue) Len() int { return len(q.items) }

// IsEmpty reports whether the queue has no task sources.
func (q *priorityQueue) IsEmpty() bool { return len(q.items) == 0 }

// NumWithPriority returns how many queued task sources have priority p,
// counted by the priority of the sort key each is currently queued under.
func (q *priorityQueue) NumWithPriority(p Priority) int { return q.countByPrio[p] }

// Push inserts e into the queue with the given key. It panics if e is
// already queued (heap_handle already valid) — that would mean a caller
// violated the "at most one live queue entry per task source" invariant.
func (q *priorityQueue) Push(e *taskSourceEntry, key SortKey) {
	if e.inQueue() {
		invariant(false, "priorityQueue.Push: task source already queued")
	}
	e.key = key
	e.heapIndex = len(q.items)
	q.items = append(q.items, e)
	q.countByPrio[e.key.Priority]++
	q.siftUp(e.heapIndex)
}

// PeekTop returns the highest-precedence task source without removing it.
func (q *priorityQueue) PeekTop() (*taskSourceEntry, SortKey, bool) {
	if len(q.items) == 0 {
		return nil, SortKey{}, false
	}
	top := q.items[0]
	return top, top.key, true
}

// PopTop removes and returns the highest-precedence task source.
func (q *priorityQueue) PopTop() (*taskSourceEntry, bool) {
	if len(q.items) == 0 {
		return nil, false
	}
	top := q.items[0]
	q.removeAt(0)
	return top, true
}

// Remove removes e from the queue by identity. Reports whether e was
// actually queued.
func (q *priorityQueue) Remove(e *taskSourceEntry) bool {
	if !e.inQueue() {
		return false
	}
	q.removeAt(e.heapIndex)
	return true
}

// UpdateSortKey changes e's key and re-sifts it into position. e must
// currently be queued.
func (q *priorityQueue) UpdateSortKey(e *taskSourceEntry, newKey SortKey) {
	if !e.inQueue() {
		invariant(false, "priorityQueue.UpdateSortKey: task source not queued")
	}
	q.countByPrio[e.key.Priority]--
	q.countByPrio[newKey.Priority]++
	e.key = newKey
	q.siftUpThenDown(e.heapIndex)
}

func (q *priorityQueue) removeAt(i int) {
	e := q.items[i]
	q.countByPrio[e.key.Priority]--
	last := len(q.items) - 1
	q.swap(i, last)
	q.items[last] = nil
	q.items = q.items[:last]
	e.heapIndex = -1
	if i < len(q.items) {
		q.siftUpThenDown(i)
	}
}

func (q *priorityQueue) siftUpThenDown(i int) {
	if q.siftUp(i) == i {
		q.siftDown(i)
	}
}

// siftUp moves the element at i up while it has higher precedence than
// its parent, returning its final index.
func (q *priorityQueue) siftUp(i int) int {
	for i > 0 {
		parent := (i - 1) / 2
		if q.items[i].key.less(q.items[parent].key) {
			q.swap(i, parent)
			i = parent
		} else {
			break
		}
	}
	return i
}

func (q *priorityQueue) siftDown(i int) {
	n := len(q.items)
	for {
		left := 2*i + 1
		right := 2*i + 2
		best := i
		if left < n && q.items[left].key.less(q.items[best].key) {
			best = left
		}
		if right < n && q.items[right].key.less(q.items[best].key) {
			best = right
		}
		if best == i {
			return
		}
		q.swap(i, best)
		i = best
	}
}

func (q *priorityQueue) swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].heapIndex = i
	q.items[j].heapIndex = j
}
