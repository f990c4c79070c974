package repositories

import (
	"context"

	"hooklens/internal/platform/database"
)

// RateLimitRepository stores fixed-size counter windows shared by every
// process that talks to the same database.
type RateLimitRepository struct {
	db *database.DB
}

func NewRateLimitRepository(db *database.DB) *RateLimitRepository {
	return &RateLimitRepository{db: db}
}

func (r *RateLimitRepository) Increment(ctx context.Context, key string, windowStart, expiresAt int64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO rate_limit_windows (key, window_start, count, expires_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT (key, window_start) DO UPDATE SET count = rate_limit_windows.count + 1
	`), key, windowStart, expiresAt)
	return err
}

// Counts returns the counters for the current and previous windows; a
// missing window counts as zero.
func (r *RateLimitRepository) Counts(ctx context.Context, key string, current, previous int64) (cur, prev int64, err error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`
		SELECT window_start, count FROM rate_limit_windows
		WHERE key = ? AND window_start IN (?, ?)
	`), key, current, previous)
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		var start, count int64
		if err := rows.Scan(&start, &count); err != nil {
			return 0, 0, err
		}
		switch start {
		case current:
			cur = count
		case previous:
			prev = count
		}
	}
	return cur, prev, rows.Err()
}

func (r *RateLimitRepository) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM rate_limit_windows WHERE expires_at < ?`), now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
