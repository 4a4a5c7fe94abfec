package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLimiterAllowsUpToLimit(t *testing.T) {
	l := NewLocalLimiter(10, time.Minute)
	ctx := context.Background()
	now := time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		ok, err := l.Allow(ctx, "reg-1", now)
		require.NoError(t, err)
		assert.True(t, ok, "message %d within limit", i+1)
	}

	ok, err := l.Allow(ctx, "reg-1", now)
	require.NoError(t, err)
	assert.False(t, ok, "message 11 over the limit")
}

func TestLocalLimiterRecoversOverTime(t *testing.T) {
	l := NewLocalLimiter(10, time.Minute)
	ctx := context.Background()
	now := time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		_, err := l.Allow(ctx, "reg-1", now)
		require.NoError(t, err)
	}
	ok, _ := l.Allow(ctx, "reg-1", now)
	require.False(t, ok)

	// A full window later the bucket has refilled.
	later := now.Add(time.Minute)
	ok, err := l.Allow(ctx, "reg-1", later)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalLimiterIsPerSender(t *testing.T) {
	l := NewLocalLimiter(1, time.Minute)
	ctx := context.Background()
	now := time.Date(2026, 3, 9, 18, 0, 0, 0, time.UTC)

	ok, _ := l.Allow(ctx, "reg-a", now)
	assert.True(t, ok)
	ok, _ = l.Allow(ctx, "reg-a", now)
	assert.False(t, ok)

	ok, _ = l.Allow(ctx, "reg-b", now)
	assert.True(t, ok, "other senders unaffected")
}
