package groupselect

import (
	"sync"
	"time"

	"github.com/go-foundations/threadpool"
)

// Adaptive picks among a fixed set of candidate groups using an
// exponential-moving-average of recent completion latency per group,
// switching its preferred group only when the gap exceeds switchThreshold
// and it hasn't switched too recently. Adapted from the teacher's
// AdaptiveStrategy/AdaptiveMetrics (strategies/adaptive_strategy.go):
// there it tracked jobs-per-second per distribution strategy and switched
// which strategy ran the next batch; here it tracks mean task latency per
// candidate ThreadGroup and switches which group new task sources are
// routed to.
type Adaptive struct {
	Groups          []*threadpool.ThreadGroup
	SwitchThreshold float64 // fractional performance gap required to switch; 0 uses 0.2

	mu          sync.Mutex
	ema         []float64 // seconds per task, per group index
	preferred   int
	lastSwitch  time.Time
	minInterval time.Duration // 0 uses 5s, matching the teacher's cooldown
}

// SelectGroup implements threadpool.GroupSelector, returning the
// currently preferred group.
func (a *Adaptive) SelectGroup(_ threadpool.Traits) *threadpool.ThreadGroup {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.Groups) == 0 {
		return nil
	}
	if a.preferred >= len(a.Groups) {
		a.preferred = 0
	}
	return a.Groups[a.preferred]
}

// RecordLatency reports that a task routed to Groups[groupIndex] took d
// to run. Callers typically wrap each task source's TakeNextTask to time
// execution and call this once the task returns.
func (a *Adaptive) RecordLatency(groupIndex int, d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ema == nil {
		a.ema = make([]float64, len(a.Groups))
	}
	if groupIndex < 0 || groupIndex >= len(a.ema) {
		return
	}

	const alpha = 0.3 // smoothing factor, matching the teacher's updateMetrics
	sample := d.Seconds()
	if a.ema[groupIndex] == 0 {
		a.ema[groupIndex] = sample
	} else {
		a.ema[groupIndex] = alpha*sample + (1-alpha)*a.ema[groupIndex]
	}

	a.maybeSwitchLocked()
}

// maybeSwitchLocked mirrors shouldSwitchStrategy/findBestStrategy: it
// only switches away from the preferred group if some other group's mean
// latency beats it by more than the threshold, and not more often than
// minInterval.
func (a *Adaptive) maybeSwitchLocked() {
	interval := a.minInterval
	if interval == 0 {
		interval = 5 * time.Second
	}
	if time.Since(a.lastSwitch) < interval {
		return
	}

	threshold := a.SwitchThreshold
	if threshold == 0 {
		threshold = 0.2
	}

	currentLatency := a.ema[a.preferred]
	if currentLatency == 0 {
		return
	}

	best := a.preferred
	bestLatency := currentLatency
	for i, latency := range a.ema {
		if latency > 0 && latency < bestLatency {
			best = i
			bestLatency = latency
		}
	}

	if best != a.preferred && (currentLatency-bestLatency)/currentLatency > threshold {
		a.preferred = best
		a.lastSwitch = time.Now()
	}
}
