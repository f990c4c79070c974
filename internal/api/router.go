package api

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "hooklens/internal/api/context"
	"hooklens/internal/api/handlers"
	"hooklens/internal/api/middleware"
	"hooklens/internal/pkg/errors"
)

type Dependencies struct {
	CaptureHandler *handlers.CaptureHandler
	WebhookHandler *handlers.WebhookHandler
	AuthHandler    *handlers.AuthHandler
	HealthHandler  *handlers.HealthHandler
	MetricsHandler *handlers.MetricsHandler
	AuthMiddleware *middleware.AuthMiddleware
	WriteLimiter   middleware.Limiter
}

var captureMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodDelete,
	http.MethodPatch,
	http.MethodHead,
	http.MethodOptions,
}

func NewRouter(deps *Dependencies) *httprouter.Router {
	router := httprouter.New()
	// OPTIONS on /webhook/:token is a capture, not a preflight.
	router.HandleOPTIONS = false
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Route not found", nil)
	})

	// Public capture endpoint
	capture := chain(deps.CaptureHandler.Handle, middleware.Observe("capture"))
	for _, method := range captureMethods {
		router.Handle(method, "/webhook/:token", capture)
	}

	// Authentication routes
	router.POST("/api/v1/auth/register",
		chain(deps.AuthHandler.Register, middleware.Observe("auth_register")))
	router.POST("/api/v1/auth/login",
		chain(deps.AuthHandler.Login, middleware.Observe("auth_login")))

	authMid := deps.AuthMiddleware

	// Webhook management
	router.POST("/api/v1/webhooks",
		chain(deps.WebhookHandler.Create, middleware.Observe("webhook_create"), authMid.Handle, middleware.RateLimit(deps.WriteLimiter, "api_write")))
	router.GET("/api/v1/webhooks",
		chain(deps.WebhookHandler.List, middleware.Observe("webhook_list"), authMid.Handle))
	router.GET("/api/v1/webhooks/:webhook_id",
		chain(deps.WebhookHandler.Get, middleware.Observe("webhook_get"), authMid.Handle))
	router.GET("/api/v1/webhooks/:webhook_id/requests",
		chain(deps.WebhookHandler.Requests, middleware.Observe("webhook_requests"), authMid.Handle))

	// Operations
	router.GET("/health", wrap(deps.HealthHandler.Check))
	router.GET("/metrics", wrap(deps.MetricsHandler.Export))

	return router
}

// Helper function to chain middlewares
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// Convert http.HandlerFunc to httprouter.Handle
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}
