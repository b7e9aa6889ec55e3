package benchmarks

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/go-foundations/threadpool"
)

// stringJobSource feeds n pre-built jobs into a ThreadGroup, calling done
// once every job has been drawn and run, for benchmarking overhead
// independent of any particular payload. Each source is one independent
// unit of concurrency, so spreading numJobs across several sources (see
// benchmarkThroughput) is what actually lets more workers run in parallel
// — one source alone is always drained by a single worker at a time.
type stringJobSource struct {
	traits threadpool.Traits
	mu     sync.Mutex
	data   []string
	next   int
	done   func()
}

func newStringJobSource(priority threadpool.Priority, n int, done func()) *stringJobSource {
	data := make([]string, n)
	for i := range data {
		data[i] = fmt.Sprintf("data_%d", i)
	}
	return &stringJobSource{
		traits: threadpool.Traits{Priority: priority},
		data:   data,
		done:   done,
	}
}

func (s *stringJobSource) Traits() threadpool.Traits { return s.traits }

func (s *stringJobSource) TakeNextTask() (threadpool.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.data) {
		return nil, false
	}
	d := s.data[s.next]
	s.next++
	last := s.next == len(s.data)
	return func(ctx context.Context) {
		_ = strings.ToUpper(d)
		if last {
			s.done()
		}
	}, true
}

// benchmarkThroughput spreads numJobs evenly across numWorkers independent
// sources, so that max_tasks = numWorkers actually lets that many sources
// run concurrently instead of serializing on one source.
func benchmarkThroughput(b *testing.B, numWorkers, numJobs int) {
	config := threadpool.DefaultForegroundConfig()
	config.MaxTasks = numWorkers
	config.NoWorkerReclaim = true

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		group := threadpool.NewThreadGroup(config)
		_ = group.Start()

		var wg sync.WaitGroup
		wg.Add(numWorkers)
		perSource := numJobs / numWorkers
		if perSource == 0 {
			perSource = 1
		}
		for s := 0; s < numWorkers; s++ {
			source := newStringJobSource(threadpool.UserVisible, perSource, wg.Done)
			group.PushTaskSourceAndWakeUpWorkers(source)
		}
		wg.Wait()

		group.JoinForTesting()
	}
}

func BenchmarkWorkerCounts(b *testing.B) {
	for _, numWorkers := range []int{1, 2, 4, 8, 16} {
		b.Run(fmt.Sprintf("Workers_%d", numWorkers), func(b *testing.B) {
			benchmarkThroughput(b, numWorkers, 100)
		})
	}
}

func BenchmarkJobSizes(b *testing.B) {
	for _, jobSize := range []int{10, 100, 1000, 10000} {
		b.Run(fmt.Sprintf("Jobs_%d", jobSize), func(b *testing.B) {
			benchmarkThroughput(b, 4, jobSize)
		})
	}
}
