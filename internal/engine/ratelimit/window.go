package ratelimit

import (
	"context"
	"time"
)

type WindowStore interface {
	Increment(ctx context.Context, key string, windowStart, expiresAt int64) error
	Counts(ctx context.Context, key string, current, previous int64) (cur, prev int64, err error)
	DeleteExpired(ctx context.Context, now int64) (int64, error)
}

// Window is a sliding-window counter kept in the database, so every server
// process sees the same attempts. The previous fixed window is weighted by
// how much of it still overlaps the sliding one.
type Window struct {
	store WindowStore
	limit int
	size  time.Duration
	now   func() time.Time
}

func NewWindow(store WindowStore, limit int, size time.Duration) *Window {
	return &Window{store: store, limit: limit, size: size, now: time.Now}
}

// Allow records an attempt for key unless the limit is already reached. When
// it refuses, retryAfter is how long until the current window rolls over.
func (w *Window) Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error) {
	now := w.now().UnixMilli()
	size := w.size.Milliseconds()
	current := now - now%size
	previous := current - size

	cur, prev, err := w.store.Counts(ctx, key, current, previous)
	if err != nil {
		return false, 0, err
	}

	overlap := 1 - float64(now-current)/float64(size)
	estimate := float64(prev)*overlap + float64(cur)
	if estimate >= float64(w.limit) {
		return false, time.Duration(current+size-now) * time.Millisecond, nil
	}

	if err := w.store.Increment(ctx, key, current, current+2*size); err != nil {
		return false, 0, err
	}
	return true, 0, nil
}

// Prune removes windows that can no longer influence a decision.
func (w *Window) Prune(ctx context.Context) (int64, error) {
	return w.store.DeleteExpired(ctx, w.now().UnixMilli())
}
