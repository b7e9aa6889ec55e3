// Package metrics provides the atomic counter bundle a ThreadGroup
// embeds to track throughput and lifecycle events, grounded on the
// teacher's Metrics struct (workerpool.go) and
// vishalbelsare-lindb/internal/concurrent/pool.go's atomic-fields-plus-
// snapshot shape (ConcurrentStatistics).
package metrics

import "go.uber.org/atomic"

// Counters is a set of atomic counters safe for concurrent increment from
// many worker goroutines at once.
type Counters struct {
	tasksStarted           atomic.Int64
	tasksCompleted         atomic.Int64
	workersCreated         atomic.Int64
	workersReclaimed       atomic.Int64
	mayBlockCompensations  atomic.Int64
	willBlockCompensations atomic.Int64
}

// IncTasksStarted records one task beginning execution.
func (c *Counters) IncTasksStarted() { c.tasksStarted.Inc() }

// IncTasksCompleted records one task finishing execution.
func (c *Counters) IncTasksCompleted() { c.tasksCompleted.Inc() }

// IncWorkersCreated records a new worker goroutine being created.
func (c *Counters) IncWorkersCreated() { c.workersCreated.Inc() }

// IncWorkersReclaimed records an idle excess worker exiting.
func (c *Counters) IncWorkersReclaimed() { c.workersReclaimed.Inc() }

// IncMayBlockCompensations records a MAY_BLOCK scope that outlived the
// poll threshold and triggered a capacity compensation.
func (c *Counters) IncMayBlockCompensations() { c.mayBlockCompensations.Inc() }

// IncWillBlockCompensations records an immediate WILL_BLOCK compensation.
func (c *Counters) IncWillBlockCompensations() { c.willBlockCompensations.Inc() }

// Snapshot is a point-in-time, non-atomic copy of Counters suitable for
// logging or exposing over an introspection endpoint.
type Snapshot struct {
	TasksStarted           int64
	TasksCompleted         int64
	WorkersCreated         int64
	WorkersReclaimed       int64
	MayBlockCompensations  int64
	WillBlockCompensations int64
}

// Snapshot reads every counter into a Snapshot.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		TasksStarted:           c.tasksStarted.Load(),
		TasksCompleted:         c.tasksCompleted.Load(),
		WorkersCreated:         c.workersCreated.Load(),
		WorkersReclaimed:       c.workersReclaimed.Load(),
		MayBlockCompensations:  c.mayBlockCompensations.Load(),
		WillBlockCompensations: c.willBlockCompensations.Load(),
	}
}
