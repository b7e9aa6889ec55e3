package threadpool

import "time"

// workerDelegate is a concrete struct, not an interface, per spec.md §9's
// design note: there is exactly one implementation (the pool's own), so a
// full interface only adds an indirection no embedder needs. It holds the
// logic Chromium splits into WorkerThreadDelegateImpl, translated close to
// line-for-line from thread_group_impl.cc: GetWork, DidProcessTask, the
// *LockRequired helpers that decide whether a worker may keep running,
// go idle, or clean itself up, and the BlockingObserver callbacks that
// drive max_tasks compensation.
type workerDelegate struct {
	group *ThreadGroup
}

func newWorkerDelegate(g *ThreadGroup) *workerDelegate {
	return &workerDelegate{group: g}
}

// getWork draws the next task this worker should run. It returns
// ok=false when the worker should go idle: either no task source is
// runnable right now, or num_running_tasks has reached max_tasks.
//
// A worker keeps running the same task source across calls (task-source
// affinity) until that source is exhausted; didProcessTask is what
// decides whether to keep the affinity or yield the source back to the
// queue for a higher-precedence one.
func (d *workerDelegate) getWork(w *worker) (Task, RegisteredTaskSource, bool) {
	g := d.group
	for {
		g.mu.Lock()
		if !d.canGetWorkLockRequired(w) {
			d.onWorkerBecomesIdleLockRequired(w)
			g.mu.Unlock()
			return nil, RegisteredTaskSource{}, false
		}

		entry := w.currentEntry
		if entry == nil {
			e, _, ok := g.queue.PeekTop()
			if !ok {
				d.onWorkerBecomesIdleLockRequired(w)
				g.mu.Unlock()
				return nil, RegisteredTaskSource{}, false
			}
			if !g.tracker.CanRunPriority(e.traits.Priority) ||
				(e.traits.Priority == BestEffort && g.numRunningBestEffortTasks >= g.maxBestEffortTasks) {
				d.onWorkerBecomesIdleLockRequired(w)
				g.mu.Unlock()
				return nil, RegisteredTaskSource{}, false
			}
			g.queue.Remove(e)
			entry = e
			w.currentEntry = entry
			entry.workerCount++
			d.incrementRunningCountLockRequired(entry)
		}
		g.mu.Unlock()

		task, ok := entry.source.TakeNextTask()
		if ok {
			g.metrics.IncTasksStarted()
			return task, RegisteredTaskSource{entry: entry}, true
		}

		g.mu.Lock()
		w.currentEntry = nil
		entry.workerCount--
		d.decrementRunningCountLockRequired(entry)
		g.mu.Unlock()
		if g.tracker != nil {
			g.tracker.OnTaskSourceCompleted(entry.traits)
		}
	}
}

// didProcessTask runs after a task from rts has finished executing. It
// reclaims any shutdown compensation this worker was granted, then decides
// whether this worker should keep its affinity for rts's source, or
// relinquish it because something of higher precedence is now waiting
// (spec.md §5 ShouldYield). A relinquished source is re-enqueued inline
// here (Chromium's ReEnqueueTaskSourceLockRequired step): the group
// selector picks its destination group, which may or may not be this one
// (spec.md §4.2, §8 scenario 6).
func (d *workerDelegate) didProcessTask(w *worker, rts RegisteredTaskSource) {
	g := d.group
	entry := rts.entry
	g.metrics.IncTasksCompleted()

	g.mu.Lock()

	if w.compensatedForShutdown {
		w.compensatedForShutdown = false
		isBestEffort := entry.traits.Priority == BestEffort
		g.decrementMaxTasksLockRequired(isBestEffort)
	}

	// The group selector is consulted on every completed task, not just
	// when this source is about to yield, so a traits change (e.g. a
	// priority drop to BEST_EFFORT) is picked up and migrated even when
	// nothing else is queued to force a yield. The running counts are
	// released under the traits they were taken with, before the refresh.
	d.decrementRunningCountLockRequired(entry)
	entry.traits = entry.source.Traits()
	dest := g
	if g.selector != nil {
		if sel := g.selector.SelectGroup(entry.traits); sel != nil {
			dest = sel
		}
	}

	if dest == g {
		_, topKey, hasTop := g.queue.PeekTop()
		myKey := entry.sortKey(g.config.FairScheduling)
		if !hasTop || !topKey.less(myKey) {
			d.incrementRunningCountLockRequired(entry)
			g.mu.Unlock()
			return
		}

		w.currentEntry = nil
		entry.workerCount--
		if !entry.inQueue() {
			g.queue.Push(entry, entry.sortKey(g.config.FairScheduling))
		}
		ex := newScopedCommandsExecutor(g)
		g.ensureEnoughWorkersLockRequired(ex)
		g.mu.Unlock()
		ex.flush()
		return
	}

	// Migrating to a different group: release this worker's affinity
	// unconditionally and hand the source off once g's lock is released,
	// per spec.md §5's strict lock-ordering requirement (never hold two
	// ThreadGroup locks at once).
	w.currentEntry = nil
	entry.workerCount--
	g.mu.Unlock()

	destEx := newScopedCommandsExecutor(dest)
	dest.mu.Lock()
	if !entry.inQueue() {
		dest.queue.Push(entry, entry.sortKey(dest.config.FairScheduling))
	}
	dest.ensureEnoughWorkersLockRequired(destEx)
	dest.mu.Unlock()
	destEx.flush()
}

// canGetWorkLockRequired mirrors CanGetWorkLockRequired: a worker that
// already holds a task source may keep going (its capacity is already
// accounted for); one about to acquire a new source needs spare capacity
// under max_tasks and a group that has not been joined. The
// max_best_effort_tasks check for BEST_EFFORT work is made separately, in
// getWork, against the top of the queue.
func (d *workerDelegate) canGetWorkLockRequired(w *worker) bool {
	g := d.group
	if w.currentEntry != nil {
		return true
	}
	if g.joined {
		return false
	}
	if g.numRunningTasks >= g.maxTasks {
		return false
	}
	return true
}

// canCleanupLockRequired mirrors CanCleanupLockRequired: only a worker
// created once the group already had initial_max_tasks workers (isExcess) is ever
// eligible for reclaim, and only if the embedder hasn't disabled reclaim
// entirely.
func (d *workerDelegate) canCleanupLockRequired(w *worker) bool {
	return w.isExcess && !d.group.config.NoWorkerReclaim
}

// cleanupLockRequired removes w from the group's bookkeeping; the caller
// (worker.mainLoop) is responsible for actually exiting the goroutine
// right after this returns.
func (d *workerDelegate) cleanupLockRequired(w *worker) {
	g := d.group
	g.removeWorkerLockRequired(w)
}

// onWorkerBecomesIdleLockRequired mirrors OnWorkerBecomesIdleLockRequired:
// pushes w onto the idle stack (LIFO, so recently active workers are
// reused first and long-idle ones surface for reclaim) and records the
// time in lastIdleAt. The reclaim decision does not read that timestamp:
// it rests on getSleepTimeout's timer expiring.
func (d *workerDelegate) onWorkerBecomesIdleLockRequired(w *worker) {
	w.lastIdleAt = d.group.clockNow()
	if !w.onIdleStack {
		w.onIdleStack = true
		d.group.idleStack = append(d.group.idleStack, w)
	}
}

// getSleepTimeout mirrors GetSleepTimeout: non-excess workers block
// forever (they are never reclaimed), excess workers wake up periodically
// to re-check whether they're eligible for cleanup. Chromium multiplies
// the reclaim time by 1.1 so that a worker woken just shy of the reclaim
// deadline doesn't immediately get reclaimed on a second, premature check.
func (d *workerDelegate) getSleepTimeout(w *worker) time.Duration {
	if !w.isExcess || d.group.config.NoWorkerReclaim {
		return 0
	}
	return time.Duration(float64(d.group.config.SuggestedReclaimTime) * 1.1)
}

// onMainEntry/onMainExit mirror OnMainEntry/OnMainExit: hooks for
// lifecycle logging only, no bookkeeping decisions live here.
func (d *workerDelegate) onMainEntry(w *worker) {
	d.group.logger.onWorkerStarted(d.group.config.Name, w.id, w.isExcess)
}

func (d *workerDelegate) onMainExit(w *worker) {
	g := d.group
	g.logger.onWorkerExited(g.config.Name, w.id)

	// Mirrors the source's DCHECK in OnMainExit: once shutdown has fully
	// drained (or JoinForTesting is tearing everything down deliberately),
	// it's fine for a worker to still be registered; otherwise a worker
	// should never reach its exit hook while still in the group's
	// bookkeeping.
	g.mu.Lock()
	joined := g.joined
	stillRegistered := w.onIdleStack
	if !stillRegistered {
		for _, candidate := range g.workers {
			if candidate == w {
				stillRegistered = true
				break
			}
		}
	}
	g.mu.Unlock()

	if !joined && !g.tracker.IsShutdownComplete() {
		invariant(!stillRegistered, "worker exited its main loop while still registered with its group")
	}
}

func (d *workerDelegate) incrementRunningCountLockRequired(e *taskSourceEntry) {
	g := d.group
	g.numRunningTasks++
	if e.traits.Priority == BestEffort {
		g.numRunningBestEffortTasks++
	}
}

func (d *workerDelegate) decrementRunningCountLockRequired(e *taskSourceEntry) {
	g := d.group
	g.numRunningTasks--
	if e.traits.Priority == BestEffort {
		g.numRunningBestEffortTasks--
	}
}

// blockingStarted mirrors BlockingStarted: a MAY_BLOCK scope is tracked
// but doesn't immediately free up capacity (it might finish quickly); a
// WILL_BLOCK scope compensates right away since it's known to run long.
func (d *workerDelegate) blockingStarted(w *worker, kind BlockingType) {
	g := d.group
	g.mu.Lock()
	w.blockingActive = true
	w.blockingKind = kind
	w.blockingSince = g.clockNow()
	var shouldPoll bool
	var ex *scopedCommandsExecutor
	if kind == WillBlock {
		ex = newScopedCommandsExecutor(g)
		g.maybeIncrementMaxTasksLockRequired(w, ex)
	} else {
		shouldPoll = g.scheduleMayBlockPollLockRequired()
	}
	g.mu.Unlock()
	if ex != nil {
		ex.flush()
	}
	if shouldPoll {
		g.delayed.RunAfter(g.config.MayBlockThreshold, g.AdjustMaxTasks)
	}
}

// blockingTypeUpgraded mirrors BlockingTypeUpgraded: a scope that started
// as MAY_BLOCK turns out to need WILL_BLOCK's immediate compensation.
func (d *workerDelegate) blockingTypeUpgraded(w *worker) {
	g := d.group
	g.mu.Lock()
	if !w.blockingActive || w.blockingKind == WillBlock {
		g.mu.Unlock()
		return
	}
	w.blockingKind = WillBlock
	ex := newScopedCommandsExecutor(g)
	g.maybeIncrementMaxTasksLockRequired(w, ex)
	g.mu.Unlock()
	ex.flush()
}

// blockingEnded mirrors BlockingEnded: if this scope's blocking already
// earned compensation (immediately for WILL_BLOCK, or via a later
// AdjustMaxTasks pass for a long-running MAY_BLOCK), that capacity is
// reclaimed right now rather than waiting for another AdjustMaxTasks
// pass to notice the scope is gone.
func (d *workerDelegate) blockingEnded(w *worker) {
	g := d.group
	ex := newScopedCommandsExecutor(g)

	g.mu.Lock()
	w.blockingActive = false
	if w.compensated {
		w.compensated = false
		isBestEffort := w.currentEntry != nil && w.currentEntry.traits.Priority == BestEffort
		g.decrementMaxTasksLockRequired(isBestEffort)
	}
	g.mu.Unlock()

	ex.flush()
}
