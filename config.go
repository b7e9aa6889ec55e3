package threadpool

import "time"

// Config bundles the tunables a ThreadGroup needs at Start. Grounded on
// the teacher's Config/DefaultConfig idiom (workerpool.go): a plain struct
// with a constructor that fills in sane defaults, rather than functional
// options, since every field here is load-bearing for correctness (unlike
// the teacher's tuning knobs) and deserves to be visible at a glance.
type Config struct {
	// Name identifies the group in logs and metrics (e.g. "foreground",
	// "background").
	Name string

	// MaxTasks is the initial ceiling on concurrently running tasks.
	MaxTasks int
	// MaxBestEffortTasks is the initial ceiling on concurrently running
	// BEST_EFFORT tasks; must be <= MaxTasks.
	MaxBestEffortTasks int

	// MayBlockThreshold is how long a MAY_BLOCK scope may run before the
	// group compensates by allowing another worker to start.
	MayBlockThreshold time.Duration
	// BlockedWorkersPoll is how often the group re-checks for workers
	// stuck past MayBlockThreshold.
	BlockedWorkersPoll time.Duration

	// SuggestedReclaimTime is how long a worker may sit idle before it is
	// eligible to be reclaimed (see spec.md §4.5).
	SuggestedReclaimTime time.Duration

	// NoWorkerReclaim disables reclaiming idle workers entirely; frozen
	// for the life of the group once Start is called (spec.md §9 Open
	// Question).
	NoWorkerReclaim bool

	// FairScheduling enables the insertion-order tiebreaker in SortKey so
	// that equal-priority, equal-worker-count sources are served in
	// registration order instead of arbitrarily.
	FairScheduling bool

	// Tracker gates task-source registration in
	// PushTaskSourceAndWakeUpWorkers (re-enqueues and handoffs do not
	// consult it) and which priorities getWork may draw; if nil,
	// a permissive always-admit tracker is used (equivalent to
	// threadpool/tracker.AlwaysAdmit).
	Tracker TaskTracker
	// Delayed runs delayed bookkeeping closures (AdjustMaxTasks
	// scheduling); if nil, a group-private ServiceThread is started.
	Delayed DelayedRunner
	// Selector is consulted by DidProcessTask to decide which group a
	// re-enqueued task source should land in; if nil, a task source always
	// stays in the group it is already running in. See
	// threadpool/groupselect for reference implementations.
	Selector GroupSelector
	// Environment is invoked around each worker's lifetime; if nil,
	// noEnvironment is used.
	Environment ThreadEnvironment
}

// DefaultForegroundConfig returns the tuning Chromium uses for
// user-visible work: a short may-block threshold so the group reacts
// quickly to blocked workers.
func DefaultForegroundConfig() Config {
	return Config{
		Name:                 "foreground",
		MaxTasks:             maxNumberOfWorkers,
		MaxBestEffortTasks:   maxNumberOfWorkers,
		MayBlockThreshold:    1000 * time.Millisecond,
		BlockedWorkersPoll:   1200 * time.Millisecond,
		SuggestedReclaimTime: 30 * time.Second,
		FairScheduling:       true,
	}
}

// DefaultBackgroundConfig returns the tuning Chromium uses for
// lower-priority work: a longer may-block threshold, since background
// work reacting slowly to blocking is an acceptable trade against waking
// the machine unnecessarily.
func DefaultBackgroundConfig() Config {
	return Config{
		Name:                 "background",
		MaxTasks:             maxNumberOfWorkers,
		MaxBestEffortTasks:   maxNumberOfWorkers,
		MayBlockThreshold:    10 * time.Second,
		BlockedWorkersPoll:   12 * time.Second,
		SuggestedReclaimTime: 30 * time.Second,
		FairScheduling:       true,
	}
}

// maxNumberOfWorkers mirrors Chromium's kMaxNumberOfWorkers: a hard
// ceiling no thread group will exceed regardless of Config.MaxTasks.
const maxNumberOfWorkers = 256
