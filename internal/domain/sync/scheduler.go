package sync

import (
	gosync "sync"
	"time"
)

// Scheduler debounces work per key: scheduling a key that already has a
// pending task resets its timer, coalescing rapid successive edits into one
// execution.
type Scheduler interface {
	Schedule(key string, delay time.Duration, fn func())
	Cancel(key string)
	Stop()
}

// timerScheduler is the production scheduler, one timer per live key.
type timerScheduler struct {
	mu     gosync.Mutex
	timers map[string]*time.Timer
}

func NewTimerScheduler() Scheduler {
	return &timerScheduler{timers: make(map[string]*time.Timer)}
}

func (s *timerScheduler) Schedule(key string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[key]; ok {
		timer.Stop()
	}
	s.timers[key] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()
		fn()
	})
}

func (s *timerScheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[key]; ok {
		timer.Stop()
		delete(s.timers, key)
	}
}

func (s *timerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}
