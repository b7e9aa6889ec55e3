package threadpool

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/atomic"
)

// wakeResult reports why a sleeping worker's select returned.
type wakeResult int

const (
	wakeResultWork wakeResult = iota
	wakeResultTimeout
	wakeResultCleanup
)

// workerState is the lifecycle Chromium's WorkerThread moves through;
// spec.md §4.2 names the same four states plus the terminal Joined state
// this adds for JoinForTesting bookkeeping.
type workerState int32

const (
	workerNotStarted workerState = iota
	workerIdle
	workerRunning
	workerCleaningUp
	workerJoined
)

// worker is one goroutine pinned to an OS thread for its whole lifetime,
// modelling Chromium's WorkerThread: a real OS thread is what makes
// MAY_BLOCK/WILL_BLOCK accounting meaningful (a blocked worker truly holds
// a thread, not just a goroutine that could be descheduled cheaply), so
// runtime.LockOSThread is load-bearing here, not decorative. Grounded on
// spec.md §4.2's GetWork loop pseudocode and the teacher's per-worker
// goroutine shape in workerpool.go (worker/workerWithSlice).
type worker struct {
	group *ThreadGroup
	id    uint64

	// isExcess is frozen at creation time: true if this worker was
	// created while the group already had at least initialMaxTasks
	// workers. Per spec.md §9 Open Question, this never changes after
	// the fact even if max_tasks later drops.
	isExcess bool

	state atomic.Int32 // workerState

	wakeCh  chan struct{} // buffered 1; signalled to re-check for work
	cleanup chan struct{} // closed to request this worker exit its loop
	done    chan struct{} // closed once the worker's goroutine has returned

	// blocking scope state, mutated only while group.mu is held (via
	// delegate's *LockRequired methods), read by this worker's own
	// BlockingObserver callbacks.
	blockingActive bool
	blockingKind   BlockingType
	blockingSince  time.Time
	compensated    bool

	// compensatedForShutdown is set by OnShutdownStarted when this worker
	// was running a CONTINUE_ON_SHUTDOWN task source at the moment
	// shutdown began, granting it extra max_tasks capacity; didProcessTask
	// reclaims that capacity and clears the flag (spec.md §4.4/§4.5).
	compensatedForShutdown bool

	// currentEntry is the task source this worker is currently bound to,
	// if any; mutated only while group.mu is held. A worker keeps running
	// the same task source across tasks (task-source affinity) until it
	// is exhausted or yields to a higher-precedence source.
	currentEntry *taskSourceEntry

	// onIdleStack and lastIdleAt are mutated only while group.mu is held.
	onIdleStack bool
	lastIdleAt  time.Time
}

func newWorker(g *ThreadGroup, id uint64, isExcess bool) *worker {
	return &worker{
		group:    g,
		id:       id,
		isExcess: isExcess,
		wakeCh:   make(chan struct{}, 1),
		cleanup:  make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (w *worker) setState(s workerState) { w.state.Store(int32(s)) }
func (w *worker) getState() workerState  { return workerState(w.state.Load()) }

// start launches the worker's goroutine. Called by scopedCommandsExecutor
// outside the group lock.
func (w *worker) start() {
	w.setState(workerIdle)
	go w.mainLoop()
}

// wake signals the worker to re-check CanGetWorkLockRequired without
// blocking the caller if the worker is already awake.
func (w *worker) wake() {
	select {
	case w.wakeCh <- struct{}{}:
	default:
	}
}

// requestCleanup asks the worker to exit its loop at its next
// opportunity. Safe to call more than once.
func (w *worker) requestCleanup() {
	select {
	case <-w.cleanup:
	default:
		close(w.cleanup)
	}
}

// join blocks until the worker's goroutine has returned.
func (w *worker) join() { <-w.done }

// mainLoop is the Go translation of WorkerThreadDelegateImpl's GetWork
// loop (spec.md §4.2): repeatedly draw a task, run it, report it done,
// and either exit or go idle when none is available.
func (w *worker) mainLoop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(w.done)

	ctx := withObserver(w.group.baseCtx, w)
	g := w.group

	g.env.OnMainEntry(ctx, g.config.Name)
	g.delegate.onMainEntry(w)

loop:
	for {
		task, rts, ok := g.delegate.getWork(w)
		if !ok {
			timeout := g.delegate.getSleepTimeout(w)
			switch w.sleep(timeout) {
			case wakeResultCleanup:
				break loop
			case wakeResultTimeout:
				g.mu.Lock()
				cleanedUp := g.delegate.canCleanupLockRequired(w)
				if cleanedUp {
					g.delegate.cleanupLockRequired(w)
				}
				g.mu.Unlock()
				if cleanedUp {
					break loop
				}
				continue
			case wakeResultWork:
				continue
			}
			continue
		}

		w.setState(workerRunning)
		task(ctx)
		w.setState(workerIdle)
		g.delegate.didProcessTask(w, rts)
	}

	w.setState(workerCleaningUp)
	g.delegate.onMainExit(w)
	g.env.OnMainExit(ctx, g.config.Name)
	w.setState(workerJoined)
}

// sleep parks the worker until it is woken, cleanup is requested, or
// timeout elapses (if positive). A non-positive timeout blocks forever,
// which is what getSleepTimeout returns for a non-excess worker, since
// only excess workers are ever candidates for reclaim.
func (w *worker) sleep(timeout time.Duration) wakeResult {
	if timeout <= 0 {
		select {
		case <-w.cleanup:
			return wakeResultCleanup
		case <-w.wakeCh:
			return wakeResultWork
		}
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-w.cleanup:
		return wakeResultCleanup
	case <-w.wakeCh:
		return wakeResultWork
	case <-t.C:
		return wakeResultTimeout
	}
}

// The following three methods make *worker a BlockingObserver: task code
// calls ScopedBlockingCall/UpgradeBlockingType with a ctx that resolves
// back to the specific worker running it, and the worker forwards the
// notification to its delegate under the group lock, exactly as
// Chromium's WorkerThreadDelegateImpl::BlockingStarted/
// BlockingTypeUpgraded/BlockingEnded do.

func (w *worker) BlockingStarted(ctx context.Context, kind BlockingType) {
	w.group.delegate.blockingStarted(w, kind)
}

func (w *worker) BlockingTypeUpgraded(ctx context.Context) {
	w.group.delegate.blockingTypeUpgraded(w)
}

func (w *worker) BlockingEnded(ctx context.Context) {
	w.group.delegate.blockingEnded(w)
}
