package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"hooklens/internal/platform/database"
	"hooklens/internal/platform/models"
)

const webhookColumns = `id, user_id, name, description, token, secret, notifications, created_at, last_used_at, expires_at`

type WebhookRepository struct {
	db *database.DB
}

func NewWebhookRepository(db *database.DB) *WebhookRepository {
	return &WebhookRepository{db: db}
}

func (r *WebhookRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, nil)
}

func (r *WebhookRepository) Create(ctx context.Context, webhook *models.Webhook) error {
	notificationsJSON, err := json.Marshal(webhook.Notifications)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO webhooks (id, user_id, name, description, token, secret, notifications, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, r.db.Rebind(query),
		webhook.ID,
		webhook.UserID,
		webhook.Name,
		webhook.Description,
		webhook.Token,
		webhook.Secret,
		string(notificationsJSON),
		webhook.CreatedAt,
		webhook.ExpiresAt,
	)
	return err
}

func (r *WebhookRepository) GetByID(ctx context.Context, id string) (*models.Webhook, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT `+webhookColumns+` FROM webhooks WHERE id = ?`), id)
	return scanWebhook(row)
}

func (r *WebhookRepository) GetByToken(ctx context.Context, token string) (*models.Webhook, error) {
	row := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT `+webhookColumns+` FROM webhooks WHERE token = ?`), token)
	return scanWebhook(row)
}

func (r *WebhookRepository) ExistsByToken(ctx context.Context, token string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT COUNT(1) FROM webhooks WHERE token = ?`), token).Scan(&n)
	return n > 0, err
}

func (r *WebhookRepository) ListByUser(ctx context.Context, userID string) ([]*models.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE user_id = ? ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	webhooks := []*models.Webhook{}
	for rows.Next() {
		w, err := scanWebhook(rows)
		if err != nil {
			return nil, err
		}
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

// TouchLastUsedTx moves last_used_at forward only; an older concurrent
// capture never overwrites a newer timestamp.
func (r *WebhookRepository) TouchLastUsedTx(ctx context.Context, tx *sql.Tx, id string, timestamp int64) error {
	_, err := tx.ExecContext(ctx, r.db.Rebind(`
		UPDATE webhooks SET last_used_at = ?
		WHERE id = ? AND (last_used_at IS NULL OR last_used_at < ?)
	`), timestamp, id, timestamp)
	return err
}

func scanWebhook(s interface {
	Scan(dest ...interface{}) error
}) (*models.Webhook, error) {
	var w models.Webhook
	var description sql.NullString
	var notificationsRaw []byte
	var lastUsedAt, expiresAt sql.NullInt64

	err := s.Scan(
		&w.ID,
		&w.UserID,
		&w.Name,
		&description,
		&w.Token,
		&w.Secret,
		&notificationsRaw,
		&w.CreatedAt,
		&lastUsedAt,
		&expiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if description.Valid {
		val := description.String
		w.Description = &val
	}
	if lastUsedAt.Valid {
		val := lastUsedAt.Int64
		w.LastUsedAt = &val
	}
	if expiresAt.Valid {
		val := expiresAt.Int64
		w.ExpiresAt = &val
	}
	if len(notificationsRaw) > 0 {
		if err := json.Unmarshal(notificationsRaw, &w.Notifications); err != nil {
			return nil, err
		}
	}

	return &w, nil
}
