package groupselect

import (
	"go.uber.org/atomic"

	"github.com/go-foundations/threadpool"
)

// Sharded spreads task sources across a fixed set of same-priority
// thread groups in round-robin order, adapted from the teacher's
// RoundRobinStrategy (strategies/round_robin.go): there, each worker got
// an even share of a job slice via `i % NumWorkers`; here, each pushed
// task source gets routed to a group via `n % len(Groups)`, so no single
// background group becomes a hotspot for a bursty producer.
type Sharded struct {
	Groups []*threadpool.ThreadGroup
	next   atomic.Uint64
}

// SelectGroup implements threadpool.GroupSelector.
func (s *Sharded) SelectGroup(_ threadpool.Traits) *threadpool.ThreadGroup {
	n := s.next.Inc() - 1
	return s.Groups[int(n%uint64(len(s.Groups)))]
}
