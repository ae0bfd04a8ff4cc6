package service

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rryowa/weq_api/internal/util"
)

const limiterShards = 32

// RateLimiter admits at most limit attempts per key within a trailing
// window. State is in-memory and per process.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time
	shards [limiterShards]limiterShard
}

type limiterShard struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	// lockedAt holds the oldest attempt of the window that locked the key
	// out; a new oldest attempt means a new lockout.
	lockedAt map[string]time.Time
}

func NewRateLimiter(cfg *util.RateLimiterConfig) *RateLimiter {
	return newRateLimiter(cfg.Limit, cfg.Window, time.Now)
}

func newRateLimiter(limit int, window time.Duration, now func() time.Time) *RateLimiter {
	rl := &RateLimiter{limit: limit, window: window, now: now}
	for i := range rl.shards {
		rl.shards[i].attempts = make(map[string][]time.Time)
		rl.shards[i].lockedAt = make(map[string]time.Time)
	}
	return rl
}

// Allow records an attempt for key and reports whether it is admitted.
// A denied attempt is not recorded.
func (rl *RateLimiter) Allow(key string) bool {
	allowed, _ := rl.Attempt(key)
	return allowed
}

// Attempt is Allow that also reports whether this denial is the first one of
// the current lockout. Further denials in the same lockout return false.
func (rl *RateLimiter) Attempt(key string) (allowed, lockedOut bool) {
	s := rl.shard(key)
	now := rl.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	q := prune(s.attempts[key], now.Add(-rl.window))
	if len(q) >= rl.limit {
		s.attempts[key] = q
		var oldest time.Time
		if len(q) > 0 {
			oldest = q[0]
		}
		if prev, ok := s.lockedAt[key]; ok && prev.Equal(oldest) {
			return false, false
		}
		s.lockedAt[key] = oldest
		return false, true
	}
	s.attempts[key] = append(q, now)
	return true, false
}

// Reset forgets every attempt recorded for key.
func (rl *RateLimiter) Reset(key string) {
	s := rl.shard(key)

	s.mu.Lock()
	delete(s.attempts, key)
	delete(s.lockedAt, key)
	s.mu.Unlock()
}

// Run drops idle keys every window until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	cutoff := rl.now().Add(-rl.window)
	for i := range rl.shards {
		s := &rl.shards[i]
		s.mu.Lock()
		for key, q := range s.attempts {
			if q = prune(q, cutoff); len(q) == 0 {
				delete(s.attempts, key)
				delete(s.lockedAt, key)
			} else {
				s.attempts[key] = q
			}
		}
		s.mu.Unlock()
	}
}

func (rl *RateLimiter) shard(key string) *limiterShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &rl.shards[h.Sum32()%limiterShards]
}

// prune drops timestamps older than cutoff; q is ordered oldest first.
func prune(q []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(q) && q[i].Before(cutoff) {
		i++
	}
	if i == 0 {
		return q
	}
	return append(q[:0], q[i:]...)
}
