package engine

import (
	"sync"
	"time"
)

// Scheduler owns the repeating tick that drives countdowns. The session
// starts it while playing and stops it on pause, completion, and
// teardown, so no tick can fire outside the playing state.
type Scheduler interface {
	Start(interval time.Duration, fn func())
	Stop()
}

// TickerScheduler fires ticks from a time.Ticker on its own goroutine.
type TickerScheduler struct {
	mu   sync.Mutex
	stop chan struct{}
}

func NewTickerScheduler() *TickerScheduler {
	return &TickerScheduler{}
}

// Start begins ticking at the given interval. Starting an already
// running scheduler is a no-op.
func (s *TickerScheduler) Start(interval time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	stop := make(chan struct{})
	s.stop = stop

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-stop:
				return
			}
		}
	}()
}

// Stop ends tick scheduling entirely. Safe to call repeatedly.
func (s *TickerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}
	close(s.stop)
	s.stop = nil
}
