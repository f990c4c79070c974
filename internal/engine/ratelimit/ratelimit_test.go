package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hooklens/internal/platform/database/dbtest"
	"hooklens/internal/platform/repositories"
)

func TestKeyedLimiter(t *testing.T) {
	l := NewKeyedLimiter(3, 10)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("usr_1"), "attempt %d", i)
	}
	assert.False(t, l.Allow("usr_1"))
	assert.True(t, l.Allow("usr_2"), "keys are independent")
}

func newWindow(t *testing.T, limit int, size time.Duration) (*Window, *time.Time) {
	t.Helper()

	db := dbtest.Open(t)
	w := NewWindow(repositories.NewRateLimitRepository(db), limit, size)
	clock := time.UnixMilli(1_700_000_000_000).Truncate(size)
	w.now = func() time.Time { return clock }
	return w, &clock
}

func TestWindow_Allow(t *testing.T) {
	w, clock := newWindow(t, 5, 15*time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, _, err := w.Allow(ctx, "login:a@example.com")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i)
	}

	*clock = clock.Add(time.Minute)
	ok, retry, err := w.Allow(ctx, "login:a@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 14*time.Minute, retry)

	ok, _, err = w.Allow(ctx, "login:b@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWindow_Slides(t *testing.T) {
	w, clock := newWindow(t, 5, 15*time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _, err := w.Allow(ctx, "k")
		require.NoError(t, err)
	}

	// At the start of the next window the previous one still weighs fully.
	*clock = clock.Add(15 * time.Minute)
	ok, _, err := w.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	// Two thirds through, 5 * 1/3 leaves room for more attempts.
	*clock = clock.Add(10 * time.Minute)
	ok, _, err = w.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	// Two windows later the old attempts no longer count.
	*clock = clock.Add(30 * time.Minute)
	for i := 0; i < 5; i++ {
		ok, _, err := w.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestWindow_Prune(t *testing.T) {
	w, clock := newWindow(t, 5, time.Minute)
	ctx := context.Background()

	_, _, err := w.Allow(ctx, "k")
	require.NoError(t, err)

	n, err := w.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	*clock = clock.Add(3 * time.Minute)
	n, err = w.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
