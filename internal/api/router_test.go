package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"hooklens/internal/api/handlers"
	"hooklens/internal/api/middleware"
	"hooklens/internal/engine/capture"
	"hooklens/internal/engine/endpoints"
	"hooklens/internal/engine/notify"
	"hooklens/internal/engine/ratelimit"
	"hooklens/internal/engine/sink"
	"hooklens/internal/platform/audit"
	"hooklens/internal/platform/auth"
	"hooklens/internal/platform/config"
	"hooklens/internal/platform/database"
	"hooklens/internal/platform/database/dbtest"
	"hooklens/internal/platform/models"
	"hooklens/internal/platform/repositories"
)

type testEnv struct {
	server   *httptest.Server
	db       *database.DB
	requests *repositories.RequestRepository
	webhooks *repositories.WebhookRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := dbtest.Open(t)
	users := repositories.NewUserRepository(db)
	webhooks := repositories.NewWebhookRepository(db)
	requests := repositories.NewRequestRepository(db)
	windows := repositories.NewRateLimitRepository(db)

	urls := endpoints.URLBuilder{BaseURL: "https://hooks.example.com"}
	tokenSvc := auth.NewTokenService(config.JWTConfig{Secret: "test-secret", AccessTokenTTL: time.Hour})
	auditLog := audit.NewLogger()

	dispatcher := notify.NewDispatcher(config.NotificationsConfig{WorkerCount: 1, QueueSize: 10, RetryAttempts: 1})
	dispatcher.Start()
	t.Cleanup(func() { dispatcher.Close(context.Background()) })

	router := NewRouter(&Dependencies{
		CaptureHandler: handlers.NewCaptureHandler(
			endpoints.NewRegistry(webhooks, endpoints.NewCache(100, time.Minute), urls),
			capture.NewEngine(1024),
			sink.New(webhooks, requests, webhooks, dispatcher),
		),
		WebhookHandler: handlers.NewWebhookHandler(endpoints.NewService(webhooks, requests, urls), auditLog),
		AuthHandler: handlers.NewAuthHandler(users, tokenSvc,
			ratelimit.NewWindow(windows, 5, 15*time.Minute), auditLog, time.Hour),
		HealthHandler:  handlers.NewHealthHandler(db),
		MetricsHandler: handlers.NewMetricsHandler(),
		AuthMiddleware: middleware.NewAuthMiddleware(tokenSvc),
		WriteLimiter:   ratelimit.NewKeyedLimiter(100, 100),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{server: server, db: db, requests: requests, webhooks: webhooks}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()

	resp := e.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": email, "password": "Passw0rdX", "name": "Test User",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = e.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": "Passw0rdX",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out handlers.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out.AccessToken
}

func (e *testEnv) createWebhook(t *testing.T, token, name string) *models.Webhook {
	t.Helper()

	resp := e.do(t, http.MethodPost, "/api/v1/webhooks", token, map[string]interface{}{
		"name":          name,
		"notifications": map[string]bool{"email": false, "slack": false},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var w models.Webhook
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&w))
	return &w
}

func (e *testEnv) send(t *testing.T, method string, w *models.Webhook, body string, headers map[string]string) (int, string) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.server.URL+endpoints.CapturePathPrefix+w.Token, reader)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(data)
}

func (e *testEnv) stored(t *testing.T, w *models.Webhook) []*models.CapturedRequest {
	t.Helper()
	reqs, err := e.requests.ListByWebhook(context.Background(), w.ID, 100, 0)
	require.NoError(t, err)
	return reqs
}

func TestCapture_PaymentWebhookScenario(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "owner@example.com")

	w := env.createWebhook(t, token, "Payment Webhook")
	assert.Equal(t, "https://hooks.example.com/webhook/"+w.Token, w.Endpoint)

	before := time.Now().UnixMilli()
	status, body := env.send(t, http.MethodPost, w, `{"amount":100}`, map[string]string{
		"Content-Type": "application/json",
		"X-Source":     "stripe",
	})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body)

	reqs := env.stored(t, w)
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.JSONEq(t, `{"amount":100}`, string(reqs[0].Body))
	assert.Equal(t, "stripe", reqs[0].Headers["X-Source"])
	assert.GreaterOrEqual(t, reqs[0].Timestamp, before)

	got, err := env.webhooks.GetByID(context.Background(), w.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastUsedAt)
	assert.GreaterOrEqual(t, *got.LastUsedAt, before)

	// The owner reads the same request back through the API.
	resp := env.do(t, http.MethodGet, "/api/v1/webhooks/"+w.ID+"/requests", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []*models.CapturedRequest
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	require.Len(t, listed, 1)
	assert.Equal(t, reqs[0].ID, listed[0].ID)
}

func TestCapture_GetWithoutBody(t *testing.T) {
	env := newTestEnv(t)
	w := env.createWebhook(t, env.login(t, "owner@example.com"), "hook")

	status, body := env.send(t, http.MethodGet, w, "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body)

	reqs := env.stored(t, w)
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Nil(t, reqs[0].Body)
}

func TestCapture_AllMethods(t *testing.T) {
	env := newTestEnv(t)
	w := env.createWebhook(t, env.login(t, "owner@example.com"), "hook")

	for _, method := range captureMethods {
		status, _ := env.send(t, method, w, "", nil)
		assert.Equal(t, http.StatusOK, status, method)
	}
	assert.Len(t, env.stored(t, w), len(captureMethods))
}

func TestCapture_UnknownEndpoint(t *testing.T) {
	env := newTestEnv(t)
	w := env.createWebhook(t, env.login(t, "owner@example.com"), "hook")

	for _, path := range []string{
		"/webhook/ffffffffffffffffffffffffffffffff",
		"/webhook/random-path",
		"/some/random/path",
	} {
		resp := env.do(t, http.MethodPost, path, "", map[string]int{"amount": 100})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}

	status, body := env.send(t, http.MethodPost, &models.Webhook{Token: "0123456789abcdef0123456789abcdef"}, `{}`, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Not Found", body)

	var n int
	require.NoError(t, env.db.QueryRow(`SELECT COUNT(1) FROM requests`).Scan(&n))
	assert.Equal(t, 0, n)
	assert.Empty(t, env.stored(t, w))
}

func TestCapture_ConcurrentPosts(t *testing.T) {
	env := newTestEnv(t)
	w := env.createWebhook(t, env.login(t, "owner@example.com"), "hook")

	var wg sync.WaitGroup
	statuses := make([]int, 2)
	for i := range statuses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req, _ := http.NewRequest(http.MethodPost, env.server.URL+"/webhook/"+w.Token, strings.NewReader(`{"n":1}`))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			statuses[i] = resp.StatusCode
			resp.Body.Close()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, statuses)
	reqs := env.stored(t, w)
	require.Len(t, reqs, 2)
	assert.NotEqual(t, reqs[0].ID, reqs[1].ID)
}

func TestCapture_MalformedBodyTwice(t *testing.T) {
	env := newTestEnv(t)
	w := env.createWebhook(t, env.login(t, "owner@example.com"), "hook")

	for i := 0; i < 2; i++ {
		status, _ := env.send(t, http.MethodPost, w, `{"amount":`, map[string]string{"Content-Type": "application/json"})
		assert.Equal(t, http.StatusOK, status)
	}

	reqs := env.stored(t, w)
	require.Len(t, reqs, 2)
	for _, r := range reqs {
		assert.Nil(t, r.Body)
	}
}

func TestCapture_HeadersRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	w := env.createWebhook(t, env.login(t, "owner@example.com"), "hook")

	sent := map[string]string{
		"X-Custom-One":    "1",
		"X-Github-Event":  "push",
		"X-Hub-Signature": "sha256=abc",
	}
	status, _ := env.send(t, http.MethodPut, w, "", sent)
	require.Equal(t, http.StatusOK, status)

	reqs := env.stored(t, w)
	require.Len(t, reqs, 1)
	for k, v := range sent {
		assert.Equal(t, v, reqs[0].Headers[k], k)
	}
	assert.Equal(t, strings.TrimPrefix(env.server.URL, "http://"), reqs[0].Headers["Host"])
}

func TestWebhooks_CreateRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/webhooks", "", map[string]string{"name": "hook"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/webhooks", "garbage", map[string]string{"name": "hook"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebhooks_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "owner@example.com")

	resp := env.do(t, http.MethodPost, "/api/v1/webhooks", token, map[string]string{"name": ""})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "INVALID_INPUT", body.Code)
	assert.Equal(t, "name is required", body.Message)

	resp = env.do(t, http.MethodPost, "/api/v1/webhooks", token, map[string]interface{}{
		"name": "hook", "description": strings.Repeat("d", 501),
		"notifications": map[string]bool{"email": false, "slack": false},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/webhooks", token, map[string]string{"name": "hook"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body.Code, body.Message = "", ""
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "notifications is required", body.Message)

	resp = env.do(t, http.MethodPost, "/api/v1/webhooks", token, map[string]interface{}{
		"name": "hook", "notifications": map[string]bool{"email": true},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWebhooks_ListGetAndOwnership(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice@example.com")
	bob := env.login(t, "bob@example.com")

	w := env.createWebhook(t, alice, "alice hook")

	resp := env.do(t, http.MethodGet, "/api/v1/webhooks", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []*models.Webhook
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, w.ID, list[0].ID)

	resp = env.do(t, http.MethodGet, "/api/v1/webhooks", bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Empty(t, list)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/webhooks/"+w.ID, alice, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/webhooks/"+w.ID, bob, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/webhooks/"+w.ID+"/requests", bob, nil).StatusCode)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/v1/webhooks/"+w.ID+"/requests?limit=abc", alice, nil).StatusCode)
}

func TestAuth_RegisterConflictAndValidation(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "owner@example.com")

	resp := env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "OWNER@example.com", "password": "Passw0rdX", "name": "Again",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": "new@example.com", "password": "weakpassword", "name": "New",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuth_LoginFailuresAndThrottle(t *testing.T) {
	env := newTestEnv(t)
	env.login(t, "owner@example.com")

	// The successful login above used one of the five attempts.
	for i := 0; i < 4; i++ {
		resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
			"email": "owner@example.com", "password": "WrongPass1",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	resp := env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "owner@example.com", "password": "Passw0rdX",
	})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))

	resp = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "Passw0rdX",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(data), "go_goroutines")
}
