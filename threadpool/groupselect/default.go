// Package groupselect provides GroupSelector implementations: ways to
// decide which ThreadGroup should run a newly pushed task source. Default
// mirrors Chromium's plain two-pool foreground/background split; Sharded
// and Adaptive are adapted from the teacher's round-robin and
// EMA-switching distribution strategies (workerpool's
// strategies/round_robin.go and strategies/adaptive_strategy.go),
// retargeted from "which worker gets this job" to "which thread group
// gets this task source".
package groupselect

import "github.com/go-foundations/threadpool"

// Default routes USER_VISIBLE and USER_BLOCKING work to Foreground and
// everything else to Background, the split Chromium's thread pool uses
// by default.
type Default struct {
	Foreground *threadpool.ThreadGroup
	Background *threadpool.ThreadGroup
}

// SelectGroup implements threadpool.GroupSelector.
func (d Default) SelectGroup(traits threadpool.Traits) *threadpool.ThreadGroup {
	if traits.Priority == threadpool.BestEffort {
		return d.Background
	}
	return d.Foreground
}
