package discord

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-user token-bucket rate limiter with automatic
// stale-entry cleanup. It keeps one user from spamming the otp command into
// a pile of superseded sessions and outbound emails.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*userLimiter
	r        rate.Limit
	burst    int
}

// NewRateLimiter creates a per-user limiter: r invocations/second, burst up
// to burst invocations.
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*userLimiter),
		r:        r,
		burst:    burst,
	}
	go rl.cleanup()
	return rl
}

// Allow reports whether userID may invoke the command now.
func (rl *RateLimiter) Allow(userID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	v, ok := rl.limiters[userID]
	if !ok {
		v = &userLimiter{limiter: rate.NewLimiter(rl.r, rl.burst)}
		rl.limiters[userID] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

// cleanup removes stale entries every 5 minutes.
func (rl *RateLimiter) cleanup() {
	for {
		time.Sleep(5 * time.Minute)
		rl.mu.Lock()
		for id, v := range rl.limiters {
			if time.Since(v.lastSeen) > 10*time.Minute {
				delete(rl.limiters, id)
			}
		}
		rl.mu.Unlock()
	}
}
