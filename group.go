package threadpool

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/go-foundations/threadpool/threadpool/delayed"
	"github.com/go-foundations/threadpool/threadpool/logging"
	"github.com/go-foundations/threadpool/threadpool/metrics"
)

// ThreadGroup is a pool of workers that share one priority queue of task
// sources, one max_tasks budget, and one lock. It is the Go translation
// of Chromium's ThreadGroupImpl (thread_group_impl.cc): everything that
// mutates scheduling state — the queue, the worker list, the idle stack,
// max_tasks/max_best_effort_tasks — does so under mu, and every method
// that needs to wake or start workers defers those side effects to a
// scopedCommandsExecutor flushed after mu is released.
type ThreadGroup struct {
	config Config

	mu    sync.Mutex
	queue *priorityQueue
	clock insertionClock

	workers      []*worker
	idleStack    []*worker // LIFO; most-recently-idle worker on top
	nextWorkerID uint64

	initialMaxTasks           int
	maxTasks                  int
	maxBestEffortTasks        int
	numRunningTasks           int
	numRunningBestEffortTasks int

	adjustScheduled bool
	shutdownStarted bool
	joined          bool

	delegate *workerDelegate
	tracker  TaskTracker
	delayed  DelayedRunner
	selector GroupSelector
	env      ThreadEnvironment
	logger   groupLogger
	metrics  metrics.Counters

	baseCtx    context.Context
	cancelBase context.CancelFunc

	// numExtraMaxTasks counts the capacity currently granted on top of
	// config.MaxTasks as blocking or shutdown compensation. It is kept in
	// step with maxTasks by increment/decrementMaxTasksLockRequired and is
	// not read anywhere else.
	numExtraMaxTasks atomic.Int64
}

// NewThreadGroup builds a ThreadGroup from config but does not start it;
// call Start to begin accepting and running work.
func NewThreadGroup(config Config) *ThreadGroup {
	g := &ThreadGroup{
		config:             config,
		queue:              newPriorityQueue(),
		initialMaxTasks:    config.MaxTasks,
		maxTasks:           config.MaxTasks,
		maxBestEffortTasks: config.MaxBestEffortTasks,
		tracker:            config.Tracker,
		delayed:            config.Delayed,
		selector:           config.Selector,
		env:                config.Environment,
	}
	if g.tracker == nil {
		g.tracker = alwaysAdmitTracker{}
	}
	if g.delayed == nil {
		g.delayed = delayed.NewServiceThread()
	}
	if g.env == nil {
		g.env = noEnvironment{}
	}
	g.logger = groupLogger{l: logging.Default()}
	g.delegate = newWorkerDelegate(g)
	g.baseCtx, g.cancelBase = context.WithCancel(context.Background())
	return g
}

// alwaysAdmitTracker is the zero-overhead default TaskTracker; it lives in
// the root package (rather than threadpool/tracker, which depends on this
// package for its types) to avoid an import cycle.
type alwaysAdmitTracker struct{}

func (alwaysAdmitTracker) WillQueueTaskSource(Traits) bool { return true }
func (alwaysAdmitTracker) OnTaskSourceCompleted(Traits)    {}
func (alwaysAdmitTracker) CanRunPriority(Priority) bool    { return true }
func (alwaysAdmitTracker) IsShutdownComplete() bool        { return true }

func (g *ThreadGroup) clockNow() time.Time { return now() }

func (g *ThreadGroup) nextSeq() int64 { return g.clock.tick() }

// Start brings the group's first worker online so it's ready to pick up
// work the instant it's pushed, via Chromium's
// MaintainAtLeastOneIdleWorkerLockRequired step. A group whose max_tasks
// is 0 is left with no worker.
func (g *ThreadGroup) Start() error {
	ex := newScopedCommandsExecutor(g)

	g.mu.Lock()
	g.maintainAtLeastOneIdleWorkerLockRequired(ex)
	g.mu.Unlock()

	ex.flush()
	return nil
}

// PushTaskSourceAndWakeUpWorkers registers source with this group and
// wakes (or starts) enough workers to make progress on it. It returns an
// invalid RegisteredTaskSource if the tracker refuses admission.
func (g *ThreadGroup) PushTaskSourceAndWakeUpWorkers(source TaskSource) RegisteredTaskSource {
	traits := source.Traits()
	if !g.tracker.WillQueueTaskSource(traits) {
		return RegisteredTaskSource{}
	}

	ex := newScopedCommandsExecutor(g)

	g.mu.Lock()
	entry := newTaskSourceEntry(source, g.nextSeq())
	entry.traits = traits
	g.queue.Push(entry, entry.sortKey(g.config.FairScheduling))
	g.ensureEnoughWorkersLockRequired(ex)
	g.mu.Unlock()

	ex.flush()
	return RegisteredTaskSource{entry: entry}
}

// UpdateSortKey re-evaluates rts's traits and repositions it in the
// queue if it's still waiting there, then ensures enough workers are
// awake to reflect any new demand. Call this after a TaskSource's
// Traits() would now return something different (e.g. its priority was
// bumped).
func (g *ThreadGroup) UpdateSortKey(rts RegisteredTaskSource) {
	if !rts.Valid() {
		return
	}
	ex := newScopedCommandsExecutor(g)

	g.mu.Lock()
	entry := rts.entry
	entry.traits = entry.source.Traits()
	if entry.inQueue() {
		g.queue.UpdateSortKey(entry, entry.sortKey(g.config.FairScheduling))
	}
	g.ensureEnoughWorkersLockRequired(ex)
	g.mu.Unlock()

	ex.flush()
}

// ShouldYield reports whether a task currently running rts's source
// should cooperatively return control so a higher-precedence task source
// can run. Long-running tasks may poll this periodically.
func (g *ThreadGroup) ShouldYield(rts RegisteredTaskSource) bool {
	if !rts.Valid() {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	_, topKey, hasTop := g.queue.PeekTop()
	if !hasTop {
		return false
	}
	return topKey.less(rts.entry.sortKey(g.config.FairScheduling))
}

// Metrics returns a point-in-time snapshot of this group's counters.
func (g *ThreadGroup) Metrics() metrics.Snapshot { return g.metrics.Snapshot() }

// SetSelector installs s as the GroupSelector didProcessTask consults when
// re-enqueuing a task source. It exists because most useful selectors
// (e.g. groupselect.Default) need references to the very ThreadGroups
// they route between, a construction-order cycle Config, supplied at
// NewThreadGroup time, cannot express on its own.
func (g *ThreadGroup) SetSelector(s GroupSelector) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.selector = s
}

// ensureEnoughWorkersLockRequired mirrors EnsureEnoughWorkersLockRequired:
// wake idle workers or start new ones until the number awake matches
// demand, capped at max_tasks and at the hard worker ceiling.
func (g *ThreadGroup) ensureEnoughWorkersLockRequired(ex *scopedCommandsExecutor) {
	desired := g.desiredNumAwakeWorkersLockRequired()
	for g.numAwakeWorkersLockRequired() < desired {
		if n := len(g.idleStack); n > 0 {
			w := g.idleStack[n-1]
			g.idleStack = g.idleStack[:n-1]
			w.onIdleStack = false
			ex.scheduleWakeUp(w)
			continue
		}
		if len(g.workers) >= maxNumberOfWorkers {
			break
		}
		g.createAndRegisterWorkerLockRequired(ex)
	}
}

// desiredNumAwakeWorkersLockRequired mirrors
// GetDesiredNumAwakeWorkersLockRequired: workers_for_best_effort (BEST_EFFORT
// demand, capped by max_best_effort_tasks but never less than what's already
// running) plus workers_for_foreground (uncapped foreground demand),
// altogether capped at max_tasks and the hard worker ceiling.
func (g *ThreadGroup) desiredNumAwakeWorkersLockRequired() int {
	bestEffortQueued := g.queue.NumWithPriority(BestEffort)
	bestEffortQueuedOrRunning := bestEffortQueued + g.numRunningBestEffortTasks

	workersForBestEffort := bestEffortQueuedOrRunning
	if workersForBestEffort > g.maxBestEffortTasks {
		workersForBestEffort = g.maxBestEffortTasks
	}
	if workersForBestEffort < g.numRunningBestEffortTasks {
		workersForBestEffort = g.numRunningBestEffortTasks
	}

	foregroundQueued := g.queue.Len() - bestEffortQueued
	foregroundRunning := g.numRunningTasks - g.numRunningBestEffortTasks
	workersForForeground := foregroundQueued + foregroundRunning

	desired := workersForBestEffort + workersForForeground
	if desired > g.maxTasks {
		desired = g.maxTasks
	}
	if desired > maxNumberOfWorkers {
		desired = maxNumberOfWorkers
	}
	return desired
}

func (g *ThreadGroup) numAwakeWorkersLockRequired() int {
	return len(g.workers) - len(g.idleStack)
}

// maintainAtLeastOneIdleWorkerLockRequired mirrors
// MaintainAtLeastOneIdleWorkerLockRequired: a thread group always has at
// least one worker ready to be woken, so pushing work never has to wait
// for a worker to be created from scratch — but only while there's
// budget for one: a group started with max_tasks == 0 must stay workerless.
func (g *ThreadGroup) maintainAtLeastOneIdleWorkerLockRequired(ex *scopedCommandsExecutor) {
	if len(g.idleStack) > 0 {
		return
	}
	if len(g.workers) >= g.maxTasks {
		return
	}
	if len(g.workers) >= maxNumberOfWorkers {
		return
	}
	g.createAndRegisterWorkerLockRequired(ex)
}

// createAndRegisterWorkerLockRequired mirrors
// CreateAndRegisterWorkerLockRequired, including its is_excess
// determination: a worker created once the group already has at least
// initial_max_tasks workers is "excess" and becomes eligible for reclaim
// for the rest of its life (spec.md §9 Open Question).
//
// The new worker is deliberately NOT pushed onto the idle stack here: its
// first act on starting is to call GetWork, and it registers itself as
// idle (via onWorkerBecomesIdleLockRequired) only if that call finds
// nothing to do. Pre-marking it idle would make
// numAwakeWorkersLockRequired undercount workers this call is creating
// specifically to satisfy demand, looping ensureEnoughWorkersLockRequired
// straight past max_tasks.
func (g *ThreadGroup) createAndRegisterWorkerLockRequired(ex *scopedCommandsExecutor) *worker {
	isExcess := len(g.workers) >= g.initialMaxTasks
	id := g.nextWorkerID
	g.nextWorkerID++

	w := newWorker(g, id, isExcess)
	g.workers = append(g.workers, w)
	ex.scheduleStart(w)
	g.metrics.IncWorkersCreated()
	return w
}

// removeWorkerLockRequired drops w from the group's bookkeeping once it
// has decided (via canCleanupLockRequired) to exit.
func (g *ThreadGroup) removeWorkerLockRequired(w *worker) {
	for i, candidate := range g.workers {
		if candidate == w {
			g.workers = append(g.workers[:i], g.workers[i+1:]...)
			break
		}
	}
	if w.onIdleStack {
		for i, candidate := range g.idleStack {
			if candidate == w {
				g.idleStack = append(g.idleStack[:i], g.idleStack[i+1:]...)
				break
			}
		}
		w.onIdleStack = false
	}
	g.metrics.IncWorkersReclaimed()
}

// maybeIncrementMaxTasksLockRequired mirrors
// MaybeIncrementMaxTasksLockRequired: grants w's blocking scope immediate
// extra capacity so other task sources keep making progress while w is
// blocked, then asks ex to wake/start whatever that capacity now allows.
func (g *ThreadGroup) maybeIncrementMaxTasksLockRequired(w *worker, ex *scopedCommandsExecutor) {
	if w.compensated {
		return
	}
	w.compensated = true
	isBestEffort := w.currentEntry != nil && w.currentEntry.traits.Priority == BestEffort
	g.incrementMaxTasksLockRequired(isBestEffort)
	g.metrics.IncWillBlockCompensations()
	g.ensureEnoughWorkersLockRequired(ex)
}

func (g *ThreadGroup) incrementMaxTasksLockRequired(isBestEffort bool) {
	g.maxTasks++
	if isBestEffort {
		g.maxBestEffortTasks++
	}
	g.numExtraMaxTasks.Inc()
}

func (g *ThreadGroup) decrementMaxTasksLockRequired(isBestEffort bool) {
	g.maxTasks--
	if isBestEffort {
		g.maxBestEffortTasks--
	}
	g.numExtraMaxTasks.Dec()
}

// scheduleMayBlockPollLockRequired mirrors the ScheduleAdjustMaxTasks
// call BlockingStarted makes for MAY_BLOCK scopes: rather than
// compensating immediately, it arranges for AdjustMaxTasks to check back
// after may_block_threshold, since most MAY_BLOCK calls finish quickly
// and never need compensation at all.
func (g *ThreadGroup) scheduleMayBlockPollLockRequired() bool {
	if g.adjustScheduled {
		return false
	}
	g.adjustScheduled = true
	return true
}

// AdjustMaxTasks mirrors ThreadGroupImpl::AdjustMaxTasks: for every
// worker whose MAY_BLOCK scope has now outlived may_block_threshold,
// grant it compensation capacity. Reclaiming compensation happens
// immediately in blockingEnded rather than here. Reschedules itself via
// the delayed runner as long as any MAY_BLOCK scope is still open and
// uncompensated.
func (g *ThreadGroup) AdjustMaxTasks() {
	ex := newScopedCommandsExecutor(g)

	g.mu.Lock()
	g.adjustScheduled = false
	stillPending := false
	threshold := g.config.MayBlockThreshold
	nowT := g.clockNow()

	for _, w := range g.workers {
		if !w.blockingActive || w.blockingKind != MayBlock || w.compensated {
			continue
		}
		if nowT.Sub(w.blockingSince) >= threshold {
			w.compensated = true
			isBestEffort := w.currentEntry != nil && w.currentEntry.traits.Priority == BestEffort
			g.incrementMaxTasksLockRequired(isBestEffort)
			g.metrics.IncMayBlockCompensations()
		} else {
			stillPending = true
		}
	}

	g.ensureEnoughWorkersLockRequired(ex)
	logName := g.config.Name
	maxTasks, maxBE := g.maxTasks, g.maxBestEffortTasks
	g.mu.Unlock()

	ex.flush()
	g.logger.onAdjustMaxTasks(logName, maxTasks, maxBE)

	if stillPending {
		g.delayed.RunAfter(g.config.BlockedWorkersPoll, g.AdjustMaxTasks)
	}
}

// OnShutdownStarted marks the group as shutting down; SkipOnShutdown task
// sources already queued are dropped, ContinueOnShutdown and BlockShutdown
// ones are left to run to completion. Every worker currently running a
// ContinueOnShutdown task gets its group's max_tasks bumped for the
// duration, so the BlockShutdown work it would otherwise hold a slot
// hostage from can still make progress alongside it; didProcessTask
// reclaims that capacity once the ContinueOnShutdown task finishes.
func (g *ThreadGroup) OnShutdownStarted() {
	ex := newScopedCommandsExecutor(g)

	g.mu.Lock()
	if g.shutdownStarted {
		g.mu.Unlock()
		return
	}
	g.shutdownStarted = true

	var survivors []*taskSourceEntry
	for g.queue.Len() > 0 {
		e, _ := g.queue.PopTop()
		if e.traits.Shutdown == SkipOnShutdown {
			continue
		}
		survivors = append(survivors, e)
	}
	for _, e := range survivors {
		g.queue.Push(e, e.sortKey(g.config.FairScheduling))
	}

	for _, w := range g.workers {
		if w.currentEntry == nil || w.currentEntry.traits.Shutdown != ContinueOnShutdown || w.compensatedForShutdown {
			continue
		}
		w.compensatedForShutdown = true
		g.incrementMaxTasksLockRequired(w.currentEntry.traits.Priority == BestEffort)
	}

	g.ensureEnoughWorkersLockRequired(ex)
	g.mu.Unlock()

	ex.flush()
}

// InvalidateAndHandoffAllTaskSourcesToOtherThreadGroup moves every
// currently-queued task source from g to dest, for a GroupSelector-driven
// handoff (e.g. a background group ceding work to a foreground one). The
// sources are taken out under g's lock and pushed into dest under dest's
// lock; the two locks are never held together, so the move is not atomic
// across both groups, and g keeps accepting pushes afterwards.
func (g *ThreadGroup) InvalidateAndHandoffAllTaskSourcesToOtherThreadGroup(dest *ThreadGroup) {
	if g == dest {
		return
	}
	g.mu.Lock()
	var moved []*taskSourceEntry
	for g.queue.Len() > 0 {
		e, _ := g.queue.PopTop()
		moved = append(moved, e)
	}
	g.mu.Unlock()

	destEx := newScopedCommandsExecutor(dest)
	dest.mu.Lock()
	for _, e := range moved {
		dest.queue.Push(e, e.sortKey(dest.config.FairScheduling))
	}
	dest.ensureEnoughWorkersLockRequired(destEx)
	dest.mu.Unlock()
	destEx.flush()
}

// JoinForTesting blocks until every worker goroutine this group has ever
// created has returned. It requests cleanup of every worker, wakes
// anything sleeping, and waits for each to finish — tests use it to
// assert a clean, deterministic teardown rather than racing goroutines.
func (g *ThreadGroup) JoinForTesting() {
	g.mu.Lock()
	if g.joined {
		g.mu.Unlock()
		return
	}
	g.joined = true
	workers := append([]*worker(nil), g.workers...)
	g.mu.Unlock()

	g.cancelBase()
	for _, w := range workers {
		w.requestCleanup()
		w.wake()
	}
	for _, w := range workers {
		w.join()
	}
}

// groupLogger adapts logiface's fluent Builder API to the small set of
// lifecycle events ThreadGroup reports, following the usage shown in
// logiface-stumpy's own example tests (Logger.Info()/...Str()/...Log()).
type groupLogger struct {
	l *logging.Logger
}

func (gl groupLogger) onWorkerStarted(group string, id uint64, isExcess bool) {
	if gl.l == nil {
		return
	}
	gl.l.Info().Str("group", group).Uint64("worker_id", id).Bool("is_excess", isExcess).Log("worker started")
}

func (gl groupLogger) onWorkerExited(group string, id uint64) {
	if gl.l == nil {
		return
	}
	gl.l.Info().Str("group", group).Uint64("worker_id", id).Log("worker exited")
}

func (gl groupLogger) onAdjustMaxTasks(group string, maxTasks, maxBestEffortTasks int) {
	if gl.l == nil {
		return
	}
	gl.l.Debug().
		Str("group", group).
		Int("max_tasks", maxTasks).
		Int("max_best_effort_tasks", maxBestEffortTasks).
		Log("adjusted max tasks")
}
