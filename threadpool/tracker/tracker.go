// Package tracker provides the reference TaskTracker implementation:
// an admission gate a ThreadGroup consults before registering a task
// source and notifies when one completes.
package tracker

import "github.com/go-foundations/threadpool"

// AlwaysAdmit admits every task source unconditionally. ThreadGroup
// falls back to an equivalent unexported tracker when Config.Tracker is
// left nil (it cannot depend on this package without an import cycle);
// AlwaysAdmit exists for embedders who want to reference the behavior
// explicitly, e.g. when composing a custom TaskTracker.
type AlwaysAdmit struct{}

func (AlwaysAdmit) WillQueueTaskSource(threadpool.Traits) bool { return true }
func (AlwaysAdmit) OnTaskSourceCompleted(threadpool.Traits)    {}
func (AlwaysAdmit) CanRunPriority(threadpool.Priority) bool    { return true }
func (AlwaysAdmit) IsShutdownComplete() bool                   { return true }

// MinPriorityGate refuses any task source whose priority is below Min,
// the simplest form of the "stop admitting low-priority work" policy a
// shutdown sequence or load-shedding path would install. The same floor
// also governs CanRunPriority, so work already queued below Min is held
// rather than drawn once the gate is tightened.
type MinPriorityGate struct {
	Min threadpool.Priority
}

func (g MinPriorityGate) WillQueueTaskSource(t threadpool.Traits) bool {
	return t.Priority >= g.Min
}

func (g MinPriorityGate) OnTaskSourceCompleted(threadpool.Traits) {}

func (g MinPriorityGate) CanRunPriority(p threadpool.Priority) bool {
	return p >= g.Min
}

func (MinPriorityGate) IsShutdownComplete() bool { return true }
