package capture

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"hooklens/internal/pkg/parser"
	"hooklens/internal/platform/models"
)

const DefaultMaxBodyBytes int64 = 1 << 20

// Engine turns an inbound HTTP call into a CapturedRequest. It never fails:
// anything it cannot interpret is recorded as absent.
type Engine struct {
	maxBodyBytes int64
	now          func() time.Time
}

func NewEngine(maxBodyBytes int64) *Engine {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Engine{maxBodyBytes: maxBodyBytes, now: time.Now}
}

func (e *Engine) Capture(r *http.Request, webhookID string) *models.CapturedRequest {
	return &models.CapturedRequest{
		ID:          "req_" + uuid.New().String(),
		WebhookID:   webhookID,
		Method:      r.Method,
		Headers:     requestHeaders(r),
		QueryParams: QueryParams(r),
		RawQuery:    r.URL.RawQuery,
		Body:        e.body(r),
		Timestamp:   e.now().UnixMilli(),
		IP:          ClientIP(r),
		UserAgent:   optional(r.Header.Get("User-Agent")),
	}
}

// Headers copies every header; repeated headers are joined the way a fetch
// Headers object reports them.
func Headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for key, values := range h {
		out[key] = strings.Join(values, ", ")
	}
	return out
}

// net/http lifts Host out of r.Header; put it back so the record matches
// what arrived on the wire.
func requestHeaders(r *http.Request) map[string]string {
	out := Headers(r.Header)
	if r.Host != "" {
		out["Host"] = r.Host
	}
	return out
}

// QueryParams flattens the query string. When a key repeats, the last
// occurrence wins; RawQuery keeps the full original.
func QueryParams(r *http.Request) map[string]string {
	values := r.URL.Query()
	out := make(map[string]string, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			out[key] = vals[len(vals)-1]
		}
	}
	return out
}

func (e *Engine) body(r *http.Request) json.RawMessage {
	if r.Body == nil {
		return nil
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, e.maxBodyBytes+1))
	if err != nil || int64(len(raw)) > e.maxBodyBytes {
		return nil
	}
	return ParseBody(raw)
}

// ParseBody returns raw when it is a JSON document other than null, and nil
// otherwise.
func ParseBody(raw []byte) json.RawMessage {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" || !json.Valid([]byte(trimmed)) {
		return nil
	}
	return json.RawMessage(trimmed)
}

// ClientIP returns the caller's address, or nil when none is known.
func ClientIP(r *http.Request) *string {
	return optional(parser.ClientIP(r))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
