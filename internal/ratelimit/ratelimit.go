// Package ratelimit bounds how fast a single origin can push requests
// through the bridge. A page that floods the queue crowds out every
// other site's approvals, so over-limit requests are answered
// immediately with a limit error instead of being enqueued.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Config defines the per-origin request budget. Zero values disable
// limiting.
type Config struct {
	MaxRequests int           `yaml:"max_requests"`
	Window      time.Duration `yaml:"window"`
}

// Enabled reports whether the config describes an active limit.
func (c Config) Enabled() bool {
	return c.MaxRequests > 0 && c.Window > 0
}

// DefaultConfig allows a generous burst without letting one page
// monopolize the queue.
func DefaultConfig() Config {
	return Config{MaxRequests: 120, Window: time.Minute}
}

type window struct {
	start time.Time
	count int
}

// Limiter tracks fixed windows per origin. Counters reset when the
// window elapses; stale origins are pruned as a side effect of checks.
type Limiter struct {
	cfg   Config
	mu    sync.Mutex
	byOrg map[string]*window
	clock func() time.Time
}

// New creates a limiter. A disabled config yields a limiter that
// allows everything.
func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:   cfg,
		byOrg: make(map[string]*window),
		clock: func() time.Time { return time.Now().UTC() },
	}
}

// Allow records one request from origin and reports whether it is
// within budget. Returns a human-readable reason when the budget is
// exhausted; the over-limit request itself is not counted, so the
// origin recovers as soon as its window rolls over.
func (l *Limiter) Allow(origin string) (bool, string) {
	if !l.cfg.Enabled() {
		return true, ""
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	w, ok := l.byOrg[origin]
	if !ok || now.Sub(w.start) >= l.cfg.Window {
		l.byOrg[origin] = &window{start: now, count: 1}
		l.pruneLocked(now)
		return true, ""
	}

	if w.count >= l.cfg.MaxRequests {
		return false, fmt.Sprintf("rate limit exceeded: %d requests in %s window",
			l.cfg.MaxRequests, l.cfg.Window)
	}
	w.count++
	return true, ""
}

// pruneLocked drops windows that elapsed, keeping the map proportional
// to the set of currently active origins.
func (l *Limiter) pruneLocked(now time.Time) {
	for origin, w := range l.byOrg {
		if now.Sub(w.start) >= l.cfg.Window {
			delete(l.byOrg, origin)
		}
	}
}
