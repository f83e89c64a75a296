// Package ratelimit implements fixed-window request counters keyed by
// caller identity.
package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of one Take.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// RetryAfter is how long a rejected caller should wait, rounded up to a second.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	wait := d.Reset.Sub(now)
	if wait <= 0 {
		return time.Second
	}
	return wait.Truncate(time.Second) + time.Second
}

type counter struct {
	start time.Time
	hits  int
}

// Limiter counts requests per key in fixed windows. Stale counters are swept
// in the background until Stop.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	counters map[string]*counter

	stop     chan struct{}
	stopOnce sync.Once
}

// New allows limit requests per key every window.
func New(limit int, window time.Duration) *Limiter {
	l := &Limiter{
		limit:    limit,
		window:   window,
		now:      time.Now,
		counters: make(map[string]*counter),
		stop:     make(chan struct{}),
	}
	go l.sweepLoop(5 * time.Minute)
	return l
}

// Take counts one request for key against the default limit. An empty key
// is never limited.
func (l *Limiter) Take(key string) Decision {
	if key == "" {
		return Decision{Allowed: true, Limit: l.limit, Remaining: l.limit}
	}
	return l.take(key, l.limit, l.window)
}

// TakeWith counts against a separate limit, e.g. a tighter one for login.
func (l *Limiter) TakeWith(key string, limit int, window time.Duration) Decision {
	return l.take("custom:"+key, limit, window)
}

func (l *Limiter) take(key string, limit int, window time.Duration) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.counters[key]
	if !ok || now.Sub(c.start) >= window {
		c = &counter{start: now}
		l.counters[key] = c
	}
	d := Decision{Limit: limit, Reset: c.start.Add(window)}
	if c.hits >= limit {
		return d
	}
	c.hits++
	d.Allowed = true
	d.Remaining = limit - c.hits
	return d
}

func (l *Limiter) sweepLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
			l.sweep()
		}
	}
}

// sweep drops counters whose window ended long enough ago that no custom
// window could still be open.
func (l *Limiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	horizon := l.now().Add(-15 * time.Minute)
	n := 0
	for key, c := range l.counters {
		if c.start.Before(horizon) {
			delete(l.counters, key)
			n++
		}
	}
	return n
}

// Stop ends the background sweep. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}
