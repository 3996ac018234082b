// Package ratelimit paces probe dispatch. A token bucket caps requests per
// second; on top of it an optional fixed or random delay and an adaptive
// slowdown that grows while probes fail and decays once they succeed.
package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pocscan/pocscan/pkg/duration"
)

// Config holds rate limiting configuration
type Config struct {
	// RequestsPerSecond limits dispatch rate (0 = unlimited)
	RequestsPerSecond int

	// Burst allows up to N requests before the rate applies (default: RequestsPerSecond)
	Burst int

	// Delay is a fixed pause before every request
	Delay time.Duration

	// DelayMin and DelayMax pick a random pause per request (if both set)
	DelayMin time.Duration
	DelayMax time.Duration

	// AdaptiveSlowdown grows the pause on failures
	AdaptiveSlowdown bool
	SlowdownFactor   float64       // multiply the pause on error (default 1.5)
	SlowdownMaxDelay time.Duration // cap (default 5s)
	RecoveryRate     float64       // multiply the pause on success (default 0.9)
}

// Enabled reports whether cfg would ever delay a request.
func (c Config) Enabled() bool {
	return c.RequestsPerSecond > 0 || c.Delay > 0 || (c.DelayMin > 0 && c.DelayMax > c.DelayMin) || c.AdaptiveSlowdown
}

// Limiter is safe for concurrent use.
type Limiter struct {
	config Config
	bucket *rate.Limiter

	mu           sync.Mutex
	currentDelay time.Duration
}

// New builds a limiter from cfg, filling in adaptive defaults.
func New(cfg Config) *Limiter {
	if cfg.SlowdownFactor <= 1 {
		cfg.SlowdownFactor = 1.5
	}
	if cfg.SlowdownMaxDelay <= 0 {
		cfg.SlowdownMaxDelay = duration.SlowdownMax
	}
	if cfg.RecoveryRate <= 0 || cfg.RecoveryRate >= 1 {
		cfg.RecoveryRate = 0.9
	}
	l := &Limiter{config: cfg, currentDelay: cfg.Delay}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = cfg.RequestsPerSecond
		}
		l.bucket = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return l
}

// NewPerSecond is shorthand for a plain requests-per-second limiter.
func NewPerSecond(rps int) *Limiter {
	return New(Config{RequestsPerSecond: rps})
}

// Wait blocks until the next request may go out or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.bucket != nil {
		if err := l.bucket.Wait(ctx); err != nil {
			return err
		}
	}
	delay := l.nextDelay()
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (l *Limiter) nextDelay() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.config.DelayMin > 0 && l.config.DelayMax > l.config.DelayMin {
		diff := l.config.DelayMax - l.config.DelayMin
		return max(l.config.DelayMin+rand.N(diff), l.currentDelay)
	}
	return l.currentDelay
}

// OnError grows the adaptive delay.
func (l *Limiter) OnError() {
	if !l.config.AdaptiveSlowdown {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentDelay == 0 {
		l.currentDelay = duration.SlowdownStart
	} else {
		l.currentDelay = time.Duration(float64(l.currentDelay) * l.config.SlowdownFactor)
	}
	if l.currentDelay > l.config.SlowdownMaxDelay {
		l.currentDelay = l.config.SlowdownMaxDelay
	}
}

// OnSuccess decays the adaptive delay back toward the configured Delay.
func (l *Limiter) OnSuccess() {
	if !l.config.AdaptiveSlowdown {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentDelay > l.config.Delay {
		l.currentDelay = time.Duration(float64(l.currentDelay) * l.config.RecoveryRate)
		if l.currentDelay < l.config.Delay {
			l.currentDelay = l.config.Delay
		}
	}
}

// CurrentDelay returns the pause applied on top of the token bucket.
func (l *Limiter) CurrentDelay() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentDelay
}
