// Package ratelimit provides per-client rate limiting for the auth
// endpoints.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config defines the rate limiting configuration.
type Config struct {
	RPS             float64       // Sustained requests per second per client
	Burst           int           // Burst size per client
	CleanupInterval time.Duration // How often to drop idle limiters
}

// DefaultConfig is tuned for login/signup form posts: humans do not
// submit credentials more than a few times per second.
var DefaultConfig = Config{
	RPS:             5,
	Burst:           10,
	CleanupInterval: time.Hour,
}

type entry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// Limiter manages per-client token buckets keyed by an opaque client
// key (remote IP for anonymous endpoints).
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	config  Config

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a limiter and starts its cleanup goroutine.
func New(config Config) *Limiter {
	l := &Limiter{
		entries: make(map[string]*entry),
		config:  config,
		stopCh:  make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop()

	return l
}

// Allow reports whether a request from the given client key is within
// the rate limit.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(l.config.RPS), l.config.Burst)}
		l.entries[key] = e
	}
	e.lastUsed = time.Now()
	return e.limiter.Allow()
}

// Stop terminates the cleanup goroutine.
func (l *Limiter) Stop() {
	close(l.stopCh)
	l.wg.Wait()
}

func (l *Limiter) cleanupLoop() {
	defer l.wg.Done()

	interval := l.config.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			l.cleanup(interval)
		}
	}
}

func (l *Limiter) cleanup(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.entries {
		if e.lastUsed.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}
