// Package ratelimit counts hits per key in fixed time windows, in process memory.
// Counters are not shared between server instances and are lost on restart.
package ratelimit

import (
	"sync"
	"time"
)

type counter struct {
	start time.Time
	hits  int
}

// Limiter allows at most Max hits per key in each Window.
type Limiter struct {
	Window time.Duration
	Max    int

	mu      sync.Mutex
	windows map[string]*counter
	done    chan struct{}
	once    sync.Once
}

// New returns a Limiter whose expired counters are swept every `window`.
// Close must be called to stop the sweeper.
func New(window time.Duration, max int) *Limiter {
	l := &Limiter{
		Window:  window,
		Max:     max,
		windows: make(map[string]*counter),
		done:    make(chan struct{}),
	}
	go l.sweepEvery(window)
	return l
}

// Allow records a hit for `key` at `now`.
// When the limit is reached it returns false with the time left until the window resets.
func (l *Limiter) Allow(key string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.Window {
		l.windows[key] = &counter{start: now, hits: 1}
		return true, 0
	}
	if w.hits >= l.Max {
		return false, w.start.Add(l.Window).Sub(now)
	}
	w.hits++
	return true, 0
}

// Reset forgets the counter of `key`.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	delete(l.windows, key)
	l.mu.Unlock()
}

// Sweep drops the counters whose window has elapsed at `now`.
func (l *Limiter) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.Window {
			delete(l.windows, key)
		}
	}
}

// Len returns the number of live counters.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

func (l *Limiter) sweepEvery(interval time.Duration) {
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			l.Sweep(now)
		case <-l.done:
			return
		}
	}
}

// Close stops the sweeper.
func (l *Limiter) Close() {
	l.once.Do(func() { close(l.done) })
}
