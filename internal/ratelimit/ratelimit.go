// Package ratelimit implements token-bucket admission control for
// HTTP routes.
package ratelimit

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Rule describes one bucket: Rate tokens replenish every Per, capped
// at Burst.
type Rule struct {
	Rate  float64
	Per   time.Duration
	Burst float64
}

// Bucket is a single token bucket. It starts full, so a quiet route
// admits up to Burst requests at once.
type Bucket struct {
	mu     sync.Mutex
	rule   Rule
	tokens float64
	last   time.Time

	now func() time.Time
}

// NewBucket creates a full bucket for the rule.
func NewBucket(rule Rule) *Bucket {
	b := &Bucket{rule: rule, tokens: rule.Burst, now: time.Now}
	b.last = b.now()
	return b
}

// Allow refills the bucket for the elapsed time and admits the request
// if at least one whole token is available.
func (b *Bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	elapsed := now.Sub(b.last).Seconds()
	b.last = now

	b.tokens += elapsed * b.rule.Rate / b.rule.Per.Seconds()
	if b.tokens > b.rule.Burst {
		b.tokens = b.rule.Burst
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Limiter holds named buckets, one per protected route.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*Bucket
}

// NewLimiter creates an empty limiter.
func NewLimiter() *Limiter {
	return &Limiter{buckets: make(map[string]*Bucket)}
}

// Middleware returns route middleware enforcing the rule under the
// given name. Calling it twice with the same name shares one bucket.
func (l *Limiter) Middleware(name string, rule Rule) func(http.Handler) http.Handler {
	l.mu.Lock()
	bucket, ok := l.buckets[name]
	if !ok {
		bucket = NewBucket(rule)
		l.buckets[name] = bucket
	}
	l.mu.Unlock()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !bucket.Allow() {
				slog.Warn("rate limit exceeded", "route", name, "remote", r.RemoteAddr)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"detail": "Rate limit exceeded. Please try again later.",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
