package threadpool

import (
	"context"
	"time"
)

// TaskTracker gates admission: it decides whether a task source may be
// registered or re-registered, whether a given priority is currently
// allowed to run at all, and whether shutdown has finished draining. See
// spec.md §4.6/§6 and threadpool/tracker for the reference implementation.
type TaskTracker interface {
	// WillQueueTaskSource is called before a task source is pushed into a
	// thread group. Returning false drops the registration (the task
	// source will never run on this group).
	WillQueueTaskSource(traits Traits) bool
	// OnTaskSourceCompleted is called when a task source's TakeNextTask
	// has returned ok=false and no further push has occurred for it.
	OnTaskSourceCompleted(traits Traits)
	// CanRunPriority gates getWork's pop loop: a worker may only draw a
	// task source of priority p if this returns true. Consulted once per
	// attempt against the top of the queue (spec.md §4.2 step 4).
	CanRunPriority(p Priority) bool
	// IsShutdownComplete reports whether every BLOCK_SHUTDOWN and
	// CONTINUE_ON_SHUTDOWN task source has finished running. A worker
	// exiting its main loop before this is true must already have been
	// removed from its group's bookkeeping (spec.md §4.5).
	IsShutdownComplete() bool
}

// DelayedRunner executes closures after a delay, off the calling
// goroutine. ThreadGroup uses it to schedule periodic AdjustMaxTasks
// polling without dedicating its own goroutine to every such delay. See
// threadpool/delayed for the reference ServiceThread implementation.
type DelayedRunner interface {
	// RunAfter schedules fn to run after d. The returned cancel func
	// prevents fn from running if it hasn't already started.
	RunAfter(d time.Duration, fn func()) (cancel func())
}

// GroupSelector picks which thread group should run a task source newly
// pushed with the given traits, and participates in re-routing a task
// source from one group to another when its traits change. See
// threadpool/groupselect for reference implementations (Default, Sharded,
// Adaptive).
type GroupSelector interface {
	// SelectGroup returns the thread group that should own a task source
	// with the given traits.
	SelectGroup(traits Traits) *ThreadGroup
}

// ThreadEnvironment is invoked by a worker at the start and end of its
// lifetime, giving embedders a hook for e.g. setting a thread name or
// restoring a sandbox profile. The default noEnvironment does nothing.
type ThreadEnvironment interface {
	// OnMainEntry is called once, on the worker's goroutine, before its
	// first GetWork call.
	OnMainEntry(ctx context.Context, groupName string)
	// OnMainExit is called once, on the worker's goroutine, after it has
	// decided to exit its main loop.
	OnMainExit(ctx context.Context, groupName string)
}

// noEnvironment is the default, no-op ThreadEnvironment.
type noEnvironment struct{}

func (noEnvironment) OnMainEntry(context.Context, string) {}
func (noEnvironment) OnMainExit(context.Context, string)  {}
