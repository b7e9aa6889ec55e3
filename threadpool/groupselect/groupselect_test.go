package groupselect

import (
	"testing"
	"time"

	"github.com/go-foundations/threadpool"
	"github.com/stretchr/testify/assert"
)

func TestDefault_RoutesByPriority(t *testing.T) {
	fg := new(threadpool.ThreadGroup)
	bg := new(threadpool.ThreadGroup)
	d := Default{Foreground: fg, Background: bg}

	assert.Same(t, bg, d.SelectGroup(threadpool.Traits{Priority: threadpool.BestEffort}))
	assert.Same(t, fg, d.SelectGroup(threadpool.Traits{Priority: threadpool.UserVisible}))
	assert.Same(t, fg, d.SelectGroup(threadpool.Traits{Priority: threadpool.UserBlocking}))
}

func TestSharded_DistributesRoundRobin(t *testing.T) {
	groups := []*threadpool.ThreadGroup{new(threadpool.ThreadGroup), new(threadpool.ThreadGroup), new(threadpool.ThreadGroup)}
	s := &Sharded{Groups: groups}

	var picked []*threadpool.ThreadGroup
	for i := 0; i < 6; i++ {
		picked = append(picked, s.SelectGroup(threadpool.Traits{}))
	}

	for i, g := range picked {
		assert.Same(t, groups[i%len(groups)], g)
	}
}

func TestAdaptive_StartsWithFirstGroupAndSwitchesOnSustainedGap(t *testing.T) {
	groups := []*threadpool.ThreadGroup{new(threadpool.ThreadGroup), new(threadpool.ThreadGroup)}
	a := &Adaptive{Groups: groups, SwitchThreshold: 0.1}
	a.minInterval = time.Millisecond // test-only: don't wait out the real 5s cooldown

	assert.Same(t, groups[0], a.SelectGroup(threadpool.Traits{}))

	a.RecordLatency(0, 100*time.Millisecond)
	a.RecordLatency(1, 10*time.Millisecond)
	time.Sleep(2 * time.Millisecond)
	a.RecordLatency(1, 10*time.Millisecond)

	assert.Same(t, groups[1], a.SelectGroup(threadpool.Traits{}))
}

func TestAdaptive_EmptyGroupsReturnsNil(t *testing.T) {
	a := &Adaptive{}
	assert.Nil(t, a.SelectGroup(threadpool.Traits{}))
}

func TestAdaptive_OutOfRangeLatencyIsIgnored(t *testing.T) {
	groups := []*threadpool.ThreadGroup{new(threadpool.ThreadGroup)}
	a := &Adaptive{Groups: groups}
	assert.NotPanics(t, func() { a.RecordLatency(5, time.Millisecond) })
	assert.NotPanics(t, func() { a.RecordLatency(-1, time.Millisecond) })
}
