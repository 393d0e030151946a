package api

import (
	"sync"
	"time"
)

// RateLimitConfig holds per-client request budgets, counted per minute.
type RateLimitConfig struct {
	Enabled bool
	// ReadRequestsPerMin applies to GET endpoints.
	ReadRequestsPerMin int
	// WriteRequestsPerMin applies to endpoints that change the catalog.
	WriteRequestsPerMin int
}

// DefaultRateLimitConfig returns the default request budgets.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:             true,
		ReadRequestsPerMin:  600,
		WriteRequestsPerMin: 60,
	}
}

type bucket struct {
	used    int
	resetAt time.Time
}

// RateLimiter counts requests per key in fixed one-minute windows.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	config  RateLimitConfig
	now     func() time.Time
	done    chan struct{}
	stop    sync.Once
}

// NewRateLimiter creates a limiter and starts its sweeper goroutine.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		config:  cfg,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go rl.sweep(5 * time.Minute)
	return rl
}

// Allow consumes one request from key's budget and reports whether the
// budget had room. A disabled limiter or a non-positive limit allows all.
func (rl *RateLimiter) Allow(key string, limit int) bool {
	if !rl.config.Enabled || limit <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok || !now.Before(b.resetAt) {
		rl.buckets[key] = &bucket{used: 1, resetAt: now.Add(time.Minute)}
		return true
	}
	if b.used >= limit {
		return false
	}
	b.used++
	return true
}

// sweep drops expired buckets until Stop is called.
func (rl *RateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, b := range rl.buckets {
				if !now.Before(b.resetAt) {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.done:
			return
		}
	}
}

// Stop terminates the sweeper. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stop.Do(func() { close(rl.done) })
}
