package upstream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"coinproxy/internal/coin"
)

// TokenBucket is a stdlib-only token bucket limiter.
// - rate: tokens per second
// - capacity: maximum tokens the bucket can hold (burst)
type TokenBucket struct {
	rate     float64
	capacity float64

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

func NewTokenBucket(tokensPerSecond float64, burst int) *TokenBucket {
	if tokensPerSecond <= 0 {
		tokensPerSecond = 0.0000001
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		rate:     tokensPerSecond,
		capacity: float64(burst),
		tokens:   float64(burst), // start full to allow an initial burst
		last:     time.Now(),
	}
}

// wait blocks until one token is available or context is canceled.
func (tb *TokenBucket) wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(tb.last).Seconds()
		if elapsed > 0 {
			tb.tokens += elapsed * tb.rate
			if tb.tokens > tb.capacity {
				tb.tokens = tb.capacity
			}
			tb.last = now
		}
		if tb.tokens >= 1 {
			tb.tokens -= 1
			tb.mu.Unlock()
			return nil
		}
		deficit := 1 - tb.tokens
		tb.mu.Unlock()
		// time needed to accumulate one token
		waitDur := time.Duration(deficit / tb.rate * 1e9)
		if waitDur <= 0 {
			waitDur = time.Millisecond
		}
		timer := time.NewTimer(waitDur)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Limited gates provider calls through a token bucket so cache-miss bursts
// cannot exceed the provider quota. A cancelled wait surfaces as
// ErrUpstreamUnavailable, same as any other timeout on the upstream path.
type Limited struct {
	C  *Client
	TB *TokenBucket
}

func NewLimited(c *Client, tokensPerSecond float64, burst int) *Limited {
	return &Limited{C: c, TB: NewTokenBucket(tokensPerSecond, burst)}
}

func (l *Limited) gate(ctx context.Context) error {
	if l.TB == nil {
		return nil
	}
	if err := l.TB.wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", coin.ErrUpstreamUnavailable, err)
	}
	return nil
}

func (l *Limited) FetchBySymbols(ctx context.Context, symbols []string, currency string) ([]RawQuote, error) {
	if err := l.gate(ctx); err != nil {
		return nil, err
	}
	return l.C.FetchBySymbols(ctx, symbols, currency)
}

func (l *Limited) Search(ctx context.Context, term string, limit int) ([]RawQuote, error) {
	if err := l.gate(ctx); err != nil {
		return nil, err
	}
	return l.C.Search(ctx, term, limit)
}

func (l *Limited) Overview(ctx context.Context, limit int, currency string) ([]RawQuote, error) {
	if err := l.gate(ctx); err != nil {
		return nil, err
	}
	return l.C.Overview(ctx, limit, currency)
}

func (l *Limited) MarketStats(ctx context.Context, currency string) (RawStats, error) {
	if err := l.gate(ctx); err != nil {
		return RawStats{}, err
	}
	return l.C.MarketStats(ctx, currency)
}
