package sink

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"hooklens/internal/engine/notify"
	"hooklens/internal/metrics"
	"hooklens/internal/platform/models"
)

type TxBeginner interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)
}

type RequestWriter interface {
	CreateTx(ctx context.Context, tx *sql.Tx, req *models.CapturedRequest) error
}

type UsageToucher interface {
	TouchLastUsedTx(ctx context.Context, tx *sql.Tx, id string, timestamp int64) error
}

type Enqueuer interface {
	Enqueue(ev notify.Event) bool
}

// Sink appends captured requests. The row insert and the last-used bump
// commit together or not at all.
type Sink struct {
	tx       TxBeginner
	requests RequestWriter
	webhooks UsageToucher
	notifier Enqueuer
}

func New(tx TxBeginner, requests RequestWriter, webhooks UsageToucher, notifier Enqueuer) *Sink {
	return &Sink{tx: tx, requests: requests, webhooks: webhooks, notifier: notifier}
}

func (s *Sink) Append(ctx context.Context, webhook *models.Webhook, req *models.CapturedRequest) (err error) {
	start := time.Now()
	defer func() {
		metrics.AppendDuration.Observe(time.Since(start).Seconds())
	}()

	tx, err := s.tx.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.requests.CreateTx(ctx, tx, req); err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	if err = s.webhooks.TouchLastUsedTx(ctx, tx, webhook.ID, req.Timestamp); err != nil {
		return fmt.Errorf("touch webhook: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}

	if s.notifier != nil && webhook.Notifications.Any() {
		if !s.notifier.Enqueue(notify.Event{Webhook: webhook, Request: req}) {
			log.Debug().Str("request_id", req.ID).Msg("Notification not queued")
		}
	}
	return nil
}
