// Package ratelimit bounds how often each named gateway operation may run.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter admits at most limit calls per operation name within any trailing
// window. Operation names never share a budget.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	calls   map[string][]time.Time
	nowFunc func() time.Time
}

func New(limit int, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &Limiter{
		limit:   limit,
		window:  window,
		calls:   make(map[string][]time.Time),
		nowFunc: time.Now,
	}
}

// Allow returns true if a call to the named operation may proceed now.
// A rejected call is not recorded: it consumes none of the budget.
func (l *Limiter) Allow(operation string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	cutoff := now.Add(-l.window)

	// Prune timestamps that have aged out of the window. A timestamp
	// exactly window old no longer counts.
	recent := l.calls[operation]
	valid := 0
	for _, t := range recent {
		if t.After(cutoff) {
			recent[valid] = t
			valid++
		}
	}
	recent = recent[:valid]

	if len(recent) >= l.limit {
		l.calls[operation] = recent
		return false
	}

	l.calls[operation] = append(recent, now)
	return true
}

type Stats struct {
	Operations int `json:"operations"`
}

func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{Operations: len(l.calls)}
}
