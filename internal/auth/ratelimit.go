package auth

import (
	"sync"
	"time"
)

// RateLimiter throttles login attempts per IP+username pair. Failures are
// counted inside a fixed window; reaching the limit locks the pair out.
type RateLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptRecord
	cfg      RateLimitConfig
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

type attemptRecord struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// RateLimitConfig contains configuration for the rate limiter.
type RateLimitConfig struct {
	MaxAttempts     int           // default 5
	WindowDuration  time.Duration // default 15m
	LockoutDuration time.Duration // default 30m
	CleanupInterval time.Duration // default 5m
}

func (cfg RateLimitConfig) withDefaults() RateLimitConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = 15 * time.Minute
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = 30 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 5 * time.Minute
	}
	return cfg
}

// NewRateLimiter creates a rate limiter and starts its cleanup loop.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		attempts: make(map[string]*attemptRecord),
		cfg:      cfg.withDefaults(),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop ends the cleanup loop. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func key(ip, username string) string {
	return ip + ":" + username
}

// Allow reports whether a login attempt may proceed and, if not, how long to wait.
func (rl *RateLimiter) Allow(ip, username string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	record, exists := rl.attempts[key(ip, username)]
	if !exists {
		return true, 0
	}
	if now.Before(record.lockedUntil) {
		return false, record.lockedUntil.Sub(now)
	}
	if now.Sub(record.firstAttempt) > rl.cfg.WindowDuration || record.count < rl.cfg.MaxAttempts {
		return true, 0
	}
	return false, rl.cfg.LockoutDuration
}

// RecordFailure counts a failed attempt and reports whether the pair is now locked.
func (rl *RateLimiter) RecordFailure(ip, username string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	k := key(ip, username)
	record, exists := rl.attempts[k]
	if !exists || now.Sub(record.firstAttempt) > rl.cfg.WindowDuration {
		record = &attemptRecord{firstAttempt: now}
		rl.attempts[k] = record
	}

	record.count++
	if record.count >= rl.cfg.MaxAttempts {
		record.lockedUntil = now.Add(rl.cfg.LockoutDuration)
		return true, rl.cfg.LockoutDuration
	}
	return false, 0
}

// RecordSuccess clears the failure record for a successful login.
func (rl *RateLimiter) RecordSuccess(ip, username string) {
	rl.mu.Lock()
	delete(rl.attempts, key(ip, username))
	rl.mu.Unlock()
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

// cleanup drops records whose window and lockout have both expired.
func (rl *RateLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for k, record := range rl.attempts {
		if now.Sub(record.firstAttempt) > rl.cfg.WindowDuration && !now.Before(record.lockedUntil) {
			delete(rl.attempts, k)
		}
	}
}

func (rl *RateLimiter) tracked() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.attempts)
}
