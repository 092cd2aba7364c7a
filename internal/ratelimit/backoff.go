package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Backoff computes the delay between fetch retry attempts. The delay grows
// linearly with the attempt number plus jitter; a detected soft block
// stretches subsequent delays by a multiplier until a success resets it.
type Backoff struct {
	mu         sync.Mutex
	base       time.Duration
	max        time.Duration
	multiplier float64
	jitter     bool
}

const softBlockFactor = 2.0

func NewBackoff(base, max time.Duration) *Backoff {
	if base <= 0 {
		base = time.Second
	}
	if max < base {
		max = base
	}
	return &Backoff{
		base:       base,
		max:        max,
		multiplier: 1.0,
		jitter:     true,
	}
}

// Delay returns the wait before the given retry attempt (1-based). Attempt 1
// runs immediately.
func (b *Backoff) Delay(attempt int) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if attempt <= 1 {
		return 0
	}

	d := time.Duration(float64(b.base) * float64(attempt-1) * b.multiplier)
	if b.jitter {
		d += time.Duration(rand.Int63n(int64(b.base)/2 + 1))
	}
	if d > b.max {
		d = b.max
	}
	return d
}

// Wait blocks for the attempt's delay or until the context is cancelled.
func (b *Backoff) Wait(ctx context.Context, attempt int) error {
	d := b.Delay(attempt)
	if d == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// RecordSoftBlock stretches future delays. Repeated soft blocks compound up
// to the max delay cap.
func (b *Backoff) RecordSoftBlock() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.multiplier *= softBlockFactor
	if limit := float64(b.max) / float64(b.base); b.multiplier > limit {
		b.multiplier = limit
	}
}

// RecordSuccess resets the soft-block stretching.
func (b *Backoff) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.multiplier = 1.0
}
