package threadpool

import (
	"sync"
)

// listSource is a small, closed TaskSource used across tests: it hands
// out the given tasks one at a time in order, then reports exhaustion.
type listSource struct {
	mu     sync.Mutex
	traits Traits
	tasks  []Task
	idx    int
}

func newListSource(traits Traits, tasks ...Task) *listSource {
	return &listSource{traits: traits, tasks: tasks}
}

func (s *listSource) Traits() Traits { return s.traits }

func (s *listSource) TakeNextTask() (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.tasks) {
		return nil, false
	}
	t := s.tasks[s.idx]
	s.idx++
	return t, true
}
