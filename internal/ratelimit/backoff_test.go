package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelayFirstAttemptIsImmediate(t *testing.T) {
	b := NewBackoff(time.Second, 10*time.Second)
	assert.Zero(t, b.Delay(1))
	assert.Zero(t, b.Delay(0))
}

func TestDelayGrowsWithAttempts(t *testing.T) {
	b := NewBackoff(time.Second, time.Minute)
	b.jitter = false

	assert.Equal(t, time.Second, b.Delay(2))
	assert.Equal(t, 2*time.Second, b.Delay(3))
	assert.Equal(t, 4*time.Second, b.Delay(5))
}

func TestDelayIsCapped(t *testing.T) {
	b := NewBackoff(time.Second, 3*time.Second)

	for attempt := 2; attempt <= 20; attempt++ {
		assert.LessOrEqual(t, b.Delay(attempt), 3*time.Second)
	}
}

func TestSoftBlockStretchesDelays(t *testing.T) {
	b := NewBackoff(time.Second, time.Minute)
	b.jitter = false

	before := b.Delay(2)
	b.RecordSoftBlock()
	after := b.Delay(2)
	assert.Equal(t, 2*before, after)

	b.RecordSuccess()
	assert.Equal(t, before, b.Delay(2))
}

func TestSoftBlockMultiplierIsCapped(t *testing.T) {
	b := NewBackoff(time.Second, 4*time.Second)
	b.jitter = false

	for i := 0; i < 10; i++ {
		b.RecordSoftBlock()
	}
	assert.Equal(t, 4*time.Second, b.Delay(2))
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	b := NewBackoff(time.Minute, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := b.Wait(ctx, 5)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitFirstAttemptIgnoresContext(t *testing.T) {
	b := NewBackoff(time.Second, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, b.Wait(ctx, 1))
}
