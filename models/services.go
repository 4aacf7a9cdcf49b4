// fedistash/models/services.go
package models

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// --- Stateful Services ---

// RateLimiter hands out a token-bucket limiter per key. Keys are caller
// IPs on the API surface and server slugs on the sync path.
type RateLimiter struct {
	Mu       sync.RWMutex
	Limiters map[string]*rate.Limiter
	LastSeen map[string]time.Time

	every  time.Duration
	burst  int
	expire time.Duration
}

// NewRateLimiter creates and starts a new rate limiter. Entries idle for
// longer than expire are pruned every prune interval.
func NewRateLimiter(every time.Duration, burst int, prune, expire time.Duration) *RateLimiter {
	rl := &RateLimiter{
		Limiters: make(map[string]*rate.Limiter),
		LastSeen: make(map[string]time.Time),
		every:    every,
		burst:    burst,
		expire:   expire,
	}
	go rl.cleanup(prune)
	return rl
}

// GetLimiter retrieves or creates a rate limiter for a given key.
func (rl *RateLimiter) GetLimiter(key string) *rate.Limiter {
	rl.Mu.Lock()
	defer rl.Mu.Unlock()
	limiter, exists := rl.Limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rate.Every(rl.every), rl.burst)
		rl.Limiters[key] = limiter
	}
	rl.LastSeen[key] = time.Now()
	return limiter
}

// cleanup periodically removes idle entries from the limiter maps.
func (rl *RateLimiter) cleanup(prune time.Duration) {
	for range time.Tick(prune) {
		rl.Mu.Lock()
		cutoff := time.Now().Add(-rl.expire)
		for key, lastSeen := range rl.LastSeen {
			if lastSeen.Before(cutoff) {
				delete(rl.Limiters, key)
				delete(rl.LastSeen, key)
			}
		}
		rl.Mu.Unlock()
	}
}
