// Package delayed provides a single-goroutine runner for delayed
// closures, the reference DelayedRunner a ThreadGroup uses to schedule
// its periodic AdjustMaxTasks polling without handing every delay its own
// goroutine and timer.
package delayed

import (
	"container/heap"
	"sync"
	"time"
)

// entry is one scheduled closure, ordered by deadline. Grounded on the
// deadline-ordered work item shape; dispatch itself follows the
// timer-plus-select single-dispatcher loop in
// vishalbelsare-lindb/internal/concurrent/pool.go's workerPool.dispatch.
type entry struct {
	deadline  time.Time
	fn        func()
	cancelled bool
	index     int
}

type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].deadline.Before(h[j].deadline) }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *entryHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// ServiceThread runs scheduled closures on one dedicated goroutine, the
// way Chromium's delayed task runner service thread does, rather than
// spawning time.AfterFunc goroutines per caller.
type ServiceThread struct {
	mu      sync.Mutex
	heap    entryHeap
	wake    chan struct{}
	stop    chan struct{}
	stopped bool
}

// NewServiceThread starts the dispatcher goroutine and returns a handle
// to it. Call Stop to shut it down.
func NewServiceThread() *ServiceThread {
	s := &ServiceThread{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
	go s.dispatch()
	return s
}

// RunAfter schedules fn to run on the service goroutine after d elapses.
// The returned cancel func prevents fn from running if called before the
// deadline; it is a no-op after fn has started or the service has
// stopped.
func (s *ServiceThread) RunAfter(d time.Duration, fn func()) (cancel func()) {
	e := &entry{deadline: time.Now().Add(d), fn: fn}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return func() {}
	}
	heap.Push(&s.heap, e)
	s.mu.Unlock()
	s.poke()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if e.index >= 0 {
			e.cancelled = true
		}
	}
}

// Stop halts the dispatcher goroutine; scheduled closures that have not
// yet fired are dropped.
func (s *ServiceThread) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()
	close(s.stop)
}

func (s *ServiceThread) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *ServiceThread) dispatch() {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		s.mu.Lock()
		var timeout time.Duration
		if len(s.heap) == 0 {
			timeout = time.Hour
		} else {
			timeout = time.Until(s.heap[0].deadline)
		}
		s.mu.Unlock()

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		if timeout < 0 {
			timeout = 0
		}
		timer.Reset(timeout)

		select {
		case <-s.stop:
			return
		case <-s.wake:
			continue
		case <-timer.C:
			s.runDue()
		}
	}
}

func (s *ServiceThread) runDue() {
	now := time.Now()
	for {
		s.mu.Lock()
		if len(s.heap) == 0 || s.heap[0].deadline.After(now) {
			s.mu.Unlock()
			return
		}
		e := heap.Pop(&s.heap).(*entry)
		s.mu.Unlock()

		if !e.cancelled {
			e.fn()
		}
	}
}
