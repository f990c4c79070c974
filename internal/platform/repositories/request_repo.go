package repositories

import (
	"context"
	"database/sql"
	"encoding/json"

	"hooklens/internal/platform/database"
	"hooklens/internal/platform/models"
)

type RequestRepository struct {
	db *database.DB
}

func NewRequestRepository(db *database.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// CreateTx inserts a captured request. JSON columns are passed as strings so
// lib/pq binds them as text rather than bytea.
func (r *RequestRepository) CreateTx(ctx context.Context, tx *sql.Tx, req *models.CapturedRequest) error {
	headersJSON, err := json.Marshal(req.Headers)
	if err != nil {
		return err
	}
	queryJSON, err := json.Marshal(req.QueryParams)
	if err != nil {
		return err
	}

	var body interface{}
	if req.Body != nil {
		body = string(req.Body)
	}

	query := `
		INSERT INTO requests (id, webhook_id, method, headers, query_params, raw_query, body, timestamp, ip, user_agent)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, r.db.Rebind(query),
		req.ID,
		req.WebhookID,
		req.Method,
		string(headersJSON),
		string(queryJSON),
		req.RawQuery,
		body,
		req.Timestamp,
		req.IP,
		req.UserAgent,
	)
	return err
}

func (r *RequestRepository) ListByWebhook(ctx context.Context, webhookID string, limit, offset int) ([]*models.CapturedRequest, error) {
	query := `
		SELECT id, webhook_id, method, headers, query_params, raw_query, body, timestamp, ip, user_agent
		FROM requests
		WHERE webhook_id = ?
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), webhookID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := []*models.CapturedRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func scanRequest(s interface {
	Scan(dest ...interface{}) error
}) (*models.CapturedRequest, error) {
	var req models.CapturedRequest
	var headersRaw, queryRaw, bodyRaw []byte
	var ip, userAgent sql.NullString

	err := s.Scan(
		&req.ID,
		&req.WebhookID,
		&req.Method,
		&headersRaw,
		&queryRaw,
		&req.RawQuery,
		&bodyRaw,
		&req.Timestamp,
		&ip,
		&userAgent,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(headersRaw, &req.Headers); err != nil {
		return nil, err
	}
	if len(queryRaw) > 0 {
		if err := json.Unmarshal(queryRaw, &req.QueryParams); err != nil {
			return nil, err
		}
	}
	if bodyRaw != nil {
		req.Body = json.RawMessage(bodyRaw)
	}
	if ip.Valid {
		val := ip.String
		req.IP = &val
	}
	if userAgent.Valid {
		val := userAgent.String
		req.UserAgent = &val
	}

	return &req, nil
}
