package audit

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"hooklens/internal/pkg/parser"
)

const (
	ActionRegister      = "auth.register"
	ActionLogin         = "auth.login"
	ActionLoginFailed   = "auth.login_failed"
	ActionLoginThrottle = "auth.login_throttled"
	ActionWebhookCreate = "webhook.create"
)

// Logger writes account and provisioning events to a dedicated zerolog
// stream tagged audit=true.
type Logger struct {
	log zerolog.Logger
	now func() time.Time
}

func NewLogger() *Logger {
	return NewLoggerWith(log.Logger)
}

func NewLoggerWith(l zerolog.Logger) *Logger {
	return &Logger{log: l.With().Bool("audit", true).Logger(), now: time.Now}
}

func (l *Logger) Log(r *http.Request, userID, action, resourceType, resourceID string, metadata map[string]interface{}) {
	os, client := parser.ParseUserAgent(r.UserAgent())

	l.log.Info().
		Str("audit_id", "audit_"+uuid.New().String()).
		Str("user_id", userID).
		Str("action", action).
		Str("resource_type", resourceType).
		Str("resource_id", resourceID).
		Fields(metadata).
		Str("ip_address", parser.ClientIP(r)).
		Str("os", os).
		Str("client", client).
		Int64("created_at", l.now().UnixMilli()).
		Msg(action)
}
