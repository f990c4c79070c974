package handlers

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/rs/zerolog/log"
	apiContext "hooklens/internal/api/context"
	"hooklens/internal/engine/capture"
	"hooklens/internal/engine/endpoints"
	"hooklens/internal/metrics"
	"hooklens/internal/platform/models"
)

type Resolver interface {
	Resolve(ctx context.Context, token string) (*models.Webhook, error)
}

type Appender interface {
	Append(ctx context.Context, webhook *models.Webhook, req *models.CapturedRequest) error
}

// CaptureHandler serves the public /webhook/:token endpoint for every
// method. Callers only see 200 once the request is stored.
type CaptureHandler struct {
	registry Resolver
	engine   *capture.Engine
	sink     Appender
}

func NewCaptureHandler(registry Resolver, engine *capture.Engine, sink Appender) *CaptureHandler {
	return &CaptureHandler{registry: registry, engine: engine, sink: sink}
}

func (h *CaptureHandler) Handle(w http.ResponseWriter, r *http.Request) {
	token := apiContext.ParamsFrom(r.Context()).ByName("token")

	webhook, err := h.registry.Resolve(r.Context(), token)
	if err != nil {
		if stderrors.Is(err, endpoints.ErrNotFound) {
			metrics.Captures.WithLabelValues(r.Method, "not_found").Inc()
			writeText(w, http.StatusNotFound, "Not Found")
			return
		}
		log.Error().Err(err).Str("request_id", apiContext.RequestIDFrom(r.Context())).Msg("Failed to resolve webhook")
		metrics.Captures.WithLabelValues(r.Method, "failed").Inc()
		writeText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	captured := h.engine.Capture(r, webhook.ID)
	if err := h.sink.Append(r.Context(), webhook, captured); err != nil {
		log.Error().Err(err).
			Str("request_id", apiContext.RequestIDFrom(r.Context())).
			Str("webhook_id", webhook.ID).
			Str("method", captured.Method).
			Msg("Failed to store captured request")
		metrics.Captures.WithLabelValues(r.Method, "failed").Inc()
		writeText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	metrics.Captures.WithLabelValues(r.Method, "stored").Inc()
	log.Debug().
		Str("webhook_id", webhook.ID).
		Str("request_id", captured.ID).
		Str("method", captured.Method).
		Msg("Captured request")
	writeText(w, http.StatusOK, "OK")
}
