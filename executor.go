package threadpool

// scopedCommandsExecutor batches the side effects a ThreadGroup method
// decides on while holding its lock — waking idle workers and starting new
// ones — and performs them after the lock is released. Grounded on
// Chromium's ThreadGroupImpl::ScopedCommandsExecutor: goroutine creation
// and signalling a worker's wake channel are themselves cheap, but doing them
// while still holding group.mu would let a newly-woken worker immediately
// block on the same lock the caller is about to release anyway, and
// widens the lock's critical section for no reason.
//
// Callers construct one per lock-holding method, append commands to it,
// and call flush after releasing the lock. It is not safe for concurrent
// use and is not meant to outlive a single call.
type scopedCommandsExecutor struct {
	group *ThreadGroup

	workersToWake  []*worker
	workersToStart []*worker
}

func newScopedCommandsExecutor(g *ThreadGroup) *scopedCommandsExecutor {
	return &scopedCommandsExecutor{group: g}
}

// scheduleWakeUp queues w to be signalled once the lock is released.
func (e *scopedCommandsExecutor) scheduleWakeUp(w *worker) {
	e.workersToWake = append(e.workersToWake, w)
}

// scheduleStart queues w's goroutine to be launched once the lock is
// released.
func (e *scopedCommandsExecutor) scheduleStart(w *worker) {
	e.workersToStart = append(e.workersToStart, w)
}

// flush performs every queued command. The caller must not be holding
// group.mu when this is called.
func (e *scopedCommandsExecutor) flush() {
	for _, w := range e.workersToStart {
		w.start()
	}
	for _, w := range e.workersToWake {
		w.wake()
	}
	e.workersToStart = nil
	e.workersToWake = nil
}
