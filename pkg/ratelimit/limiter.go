package ratelimit

import (
	"sync"
	"time"
)

// Limiter paces inbound scrape requests. Each resolve/harvest call costs
// one token; a drained bucket means the caller should back off.
type Limiter interface {
	// Allow consumes a token if one is available.
	Allow() bool
	// Wait blocks until a token is available, then consumes it.
	Wait()
	// Reset refills the bucket.
	Reset()
}

// TokenBucket is a continuously refilling token bucket: capacity tokens,
// replenished evenly over the refill period.
type TokenBucket struct {
	mu       sync.Mutex
	capacity float64
	tokens   float64
	rate     float64 // tokens per second
	last     time.Time
}

// NewTokenBucket creates a bucket holding capacity tokens refilled over
// period.
func NewTokenBucket(capacity int, period time.Duration) *TokenBucket {
	return &TokenBucket{
		capacity: float64(capacity),
		tokens:   float64(capacity),
		rate:     float64(capacity) / period.Seconds(),
		last:     time.Now(),
	}
}

func (b *TokenBucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

func (b *TokenBucket) Wait() {
	for !b.Allow() {
		b.mu.Lock()
		deficit := 1 - b.tokens
		delay := time.Duration(deficit / b.rate * float64(time.Second))
		b.mu.Unlock()

		if delay < 10*time.Millisecond {
			delay = 10 * time.Millisecond
		}
		time.Sleep(delay)
	}
}

func (b *TokenBucket) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = b.capacity
	b.last = time.Now()
}

// refill credits tokens for the time elapsed since the last call. Caller
// holds the lock.
func (b *TokenBucket) refill() {
	now := time.Now()
	b.tokens += now.Sub(b.last).Seconds() * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.last = now
}
