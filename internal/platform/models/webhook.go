package models

import "encoding/json"

type Notifications struct {
	Email bool `json:"email"`
	Slack bool `json:"slack"`
}

func (n Notifications) Any() bool {
	return n.Email || n.Slack
}

// Webhook is a provisioned public endpoint. Token is the opaque path
// segment; Endpoint is derived from the configured base URL for display and
// is never persisted.
type Webhook struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	Name          string        `json:"name"`
	Description   *string       `json:"description,omitempty"`
	Token         string        `json:"token"`
	Endpoint      string        `json:"endpoint"`
	Secret        string        `json:"secret"`
	Notifications Notifications `json:"notifications"`
	CreatedAt     int64         `json:"created_at"`
	LastUsedAt    *int64        `json:"last_used_at"`
	ExpiresAt     *int64        `json:"expires_at,omitempty"`
}

// CapturedRequest is one inbound call to a webhook endpoint. A nil Body is
// the "no body" marker and serializes as JSON null.
type CapturedRequest struct {
	ID          string            `json:"id"`
	WebhookID   string            `json:"webhook_id"`
	Method      string            `json:"method"`
	Headers     map[string]string `json:"headers"`
	QueryParams map[string]string `json:"query_params"`
	RawQuery    string            `json:"raw_query"`
	Body        json.RawMessage   `json:"body"`
	Timestamp   int64             `json:"timestamp"`
	IP          *string           `json:"ip"`
	UserAgent   *string           `json:"user_agent"`
}
