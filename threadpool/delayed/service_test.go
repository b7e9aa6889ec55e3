package delayed

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceThread_RunsAfterDelay(t *testing.T) {
	s := NewServiceThread()
	defer s.Stop()

	start := time.Now()
	done := make(chan time.Duration, 1)
	s.RunAfter(30*time.Millisecond, func() {
		done <- time.Since(start)
	})

	select {
	case elapsed := <-done:
		assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("closure never ran")
	}
}

func TestServiceThread_RunsInDeadlineOrder(t *testing.T) {
	s := NewServiceThread()
	defer s.Stop()

	var mu sync.Mutex
	var order []int

	var wg sync.WaitGroup
	wg.Add(3)
	record := func(i int) func() {
		return func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		}
	}

	s.RunAfter(30*time.Millisecond, record(3))
	s.RunAfter(10*time.Millisecond, record(1))
	s.RunAfter(20*time.Millisecond, record(2))

	waitOrFail(t, &wg, time.Second)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestServiceThread_CancelPreventsRun(t *testing.T) {
	s := NewServiceThread()
	defer s.Stop()

	ran := make(chan struct{})
	cancel := s.RunAfter(30*time.Millisecond, func() { close(ran) })
	cancel()

	select {
	case <-ran:
		t.Fatal("cancelled closure ran anyway")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestServiceThread_RunAfterStopIsNoOp(t *testing.T) {
	s := NewServiceThread()
	s.Stop()
	s.Stop() // idempotent

	ran := make(chan struct{})
	cancel := s.RunAfter(time.Millisecond, func() { close(ran) })
	cancel()

	select {
	case <-ran:
		t.Fatal("closure ran after Stop")
	case <-time.After(30 * time.Millisecond):
	}
}

func waitOrFail(t *testing.T, wg *sync.WaitGroup, timeout time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal("timed out waiting for closures")
	}
}
