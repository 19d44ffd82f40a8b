package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per key (tenant id, or user/IP for callers without one).
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	limit    rate.Limit
	burst    int
	cleanup  *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLimiter allows maxRequests per window with a burst of maxRequests.
// A non-positive maxRequests disables limiting.
func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	limit := rate.Inf
	if maxRequests > 0 && window > 0 {
		limit = rate.Limit(float64(maxRequests) / window.Seconds())
	}
	l := &Limiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		burst:   max(maxRequests, 1),
		cleanup: time.NewTicker(5 * time.Minute),
		done:    make(chan struct{}),
	}
	go l.cleanupOldBuckets()
	return l
}

// Allow consumes one token from key's bucket. Empty keys are never limited.
func (l *Limiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	return l.get(key, l.limit, l.burst).Allow()
}

// AllowStrict applies a tighter, separate budget, used for credential endpoints.
func (l *Limiter) AllowStrict(identifier string, maxReqs int, window time.Duration) bool {
	limit := rate.Limit(float64(maxReqs) / window.Seconds())
	return l.get("strict:"+identifier, limit, maxReqs).Allow()
}

func (l *Limiter) get(key string, limit rate.Limit, burst int) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(limit, burst)}
		l.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b.limiter
}

func (l *Limiter) cleanupOldBuckets() {
	for {
		select {
		case <-l.done:
			return
		case <-l.cleanup.C:
			l.mu.Lock()
			staleThreshold := time.Now().Add(-15 * time.Minute)
			for key, b := range l.buckets {
				if b.lastSeen.Before(staleThreshold) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		l.cleanup.Stop()
		close(l.done)
	})
}
