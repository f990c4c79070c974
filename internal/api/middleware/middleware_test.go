package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apiContext "hooklens/internal/api/context"
	"hooklens/internal/platform/auth"
	"hooklens/internal/platform/config"
)

func TestAuthMiddleware(t *testing.T) {
	tokenSvc := auth.NewTokenService(config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Hour})
	token, err := tokenSvc.GenerateAccessToken("usr_1", "one@example.com")
	require.NoError(t, err)

	var gotUser string
	handler := NewAuthMiddleware(tokenSvc).Handle(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := apiContext.ClaimsFrom(r.Context())
		require.True(t, ok)
		gotUser = claims.UserID
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/webhooks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Equal(t, "usr_1", gotUser)
}

type denyAfter struct {
	n    int
	seen map[string]int
}

func (d *denyAfter) Allow(key string) bool {
	d.seen[key]++
	return d.seen[key] <= d.n
}

func TestRateLimit(t *testing.T) {
	limiter := &denyAfter{n: 1, seen: map[string]int{}}
	handler := RateLimit(limiter, "api_write")(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	call := func(userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks", nil)
		req = req.WithContext(context.WithValue(req.Context(), apiContext.Claims, &auth.Claims{UserID: userID}))
		rec := httptest.NewRecorder()
		handler(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusCreated, call("usr_1").Code)
	rec := call("usr_1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusCreated, call("usr_2").Code)
	assert.Equal(t, 1, limiter.seen["api_write:user:usr_2"])
}

func TestObserve(t *testing.T) {
	handler := Observe("test")(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, apiContext.RequestIDFrom(r.Context()))
		w.WriteHeader(http.StatusAccepted)
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestObserve_KeepsIncomingRequestID(t *testing.T) {
	handler := Observe("test")(func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestObserve_RecoversPanic(t *testing.T) {
	handler := Observe("test")(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
