// ratelimit.go implements token-bucket rate limiting for the OKX v5 REST
// API. OKX enforces per-category rate limits over fixed windows; this file
// maintains a smooth token-bucket per category (rather than a fixed-window
// counter) to avoid bursting right up against the hard limit.
package transport

import (
	"context"
	"sync"
	"time"

	"github.com/okx-bridge/okx/internal/config"
	"github.com/okx-bridge/okx/internal/metrics"
)

// TokenBucket implements a token-bucket rate limiter with continuous
// refill. Callers block in Wait() until a token is available or the
// context is cancelled.
type TokenBucket struct {
	mu       sync.Mutex
	name     string
	tokens   float64
	capacity float64
	rate     float64
	lastTime time.Time
}

// NewTokenBucket creates a rate limiter with the given capacity and refill rate.
func NewTokenBucket(name string, capacity, ratePerSecond float64) *TokenBucket {
	return &TokenBucket{
		name:     name,
		tokens:   capacity,
		capacity: capacity,
		rate:     ratePerSecond,
		lastTime: time.Now(),
	}
}

// Wait blocks until a token is available or ctx is cancelled.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	start := time.Now()
	for {
		tb.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(tb.lastTime).Seconds()
		tb.tokens += elapsed * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastTime = now

		if tb.tokens >= 1 {
			tb.tokens--
			tb.mu.Unlock()
			metrics.ObserveRateWait(tb.name, time.Since(start).Seconds())
			return nil
		}

		wait := time.Duration((1 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// RateLimiter groups token buckets by OKX endpoint category. Each request
// must call the appropriate bucket's Wait() before being sent.
type RateLimiter struct {
	Order   *TokenBucket // POST/amend/cancel on /trade/*
	Account *TokenBucket // GET on /account/*
	Public  *TokenBucket // GET on /public/* and /market/*
}

// NewRateLimiter builds a RateLimiter from the configured bucket tunables.
func NewRateLimiter(cfg config.TransportConfig) *RateLimiter {
	return &RateLimiter{
		Order:   NewTokenBucket("order", cfg.OrderBucketCapacity, cfg.OrderBucketRate),
		Account: NewTokenBucket("account", cfg.AccountBucketCapacity, cfg.AccountBucketRate),
		Public:  NewTokenBucket("public", cfg.PublicBucketCapacity, cfg.PublicBucketRate),
	}
}
