package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type Pruner interface {
	Prune(ctx context.Context) (int64, error)
}

// Every runs job immediately and then on each tick until ctx is done. Job
// errors are logged and the loop continues.
func Every(ctx context.Context, name string, interval time.Duration, job func(context.Context) error) {
	logger := log.With().Str("worker", name).Logger()
	logger.Info().Dur("interval", interval).Msg("Worker started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := job(ctx); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("Worker run failed")
		}

		select {
		case <-ctx.Done():
			logger.Info().Msg("Worker stopped")
			return
		case <-ticker.C:
		}
	}
}

// PruneRateLimitWindows deletes login-throttle windows that have expired.
func PruneRateLimitWindows(p Pruner) func(context.Context) error {
	return func(ctx context.Context) error {
		n, err := p.Prune(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info().Int64("deleted", n).Msg("Pruned expired rate limit windows")
		}
		return nil
	}
}
