package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"
	apiContext "hooklens/internal/api/context"
	"hooklens/internal/engine/endpoints"
	"hooklens/internal/pkg/errors"
	"hooklens/internal/pkg/validator"
	"hooklens/internal/platform/audit"
)

type WebhookHandler struct {
	service *endpoints.Service
	audit   *audit.Logger
}

func NewWebhookHandler(service *endpoints.Service, auditLog *audit.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, audit: auditLog}
}

func (h *WebhookHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, _ := apiContext.ClaimsFrom(r.Context())

	var req endpoints.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}

	webhook, err := h.service.Create(r.Context(), claims.UserID, req)
	if err != nil {
		var verr *validator.ValidationError
		if stderrors.As(err, &verr) {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, verr.Message, errors.FieldDetails(verr.Field))
			return
		}
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to create webhook")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to create webhook", nil)
		return
	}

	h.audit.Log(r, claims.UserID, audit.ActionWebhookCreate, "webhook", webhook.ID, map[string]interface{}{
		"name":          webhook.Name,
		"notifications": webhook.Notifications,
	})
	writeJSON(w, http.StatusCreated, webhook)
}

func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, _ := apiContext.ClaimsFrom(r.Context())

	webhooks, err := h.service.List(r.Context(), claims.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to list webhooks")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to list webhooks", nil)
		return
	}
	writeJSON(w, http.StatusOK, webhooks)
}

func (h *WebhookHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, _ := apiContext.ClaimsFrom(r.Context())
	id := apiContext.ParamsFrom(r.Context()).ByName("webhook_id")

	webhook, err := h.service.Get(r.Context(), claims.UserID, id)
	if err != nil {
		h.writeLookupError(w, err, "Failed to get webhook")
		return
	}
	writeJSON(w, http.StatusOK, webhook)
}

// Requests lists captured requests newest first, paged by ?limit and
// ?offset.
func (h *WebhookHandler) Requests(w http.ResponseWriter, r *http.Request) {
	claims, _ := apiContext.ClaimsFrom(r.Context())
	id := apiContext.ParamsFrom(r.Context()).ByName("webhook_id")

	limit, err := queryInt(r, "limit")
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "limit must be a non-negative integer", errors.FieldDetails("limit"))
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "offset must be a non-negative integer", errors.FieldDetails("offset"))
		return
	}

	requests, err := h.service.Requests(r.Context(), claims.UserID, id, limit, offset)
	if err != nil {
		h.writeLookupError(w, err, "Failed to list requests")
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

func (h *WebhookHandler) writeLookupError(w http.ResponseWriter, err error, msg string) {
	if stderrors.Is(err, endpoints.ErrNotFound) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Webhook not found", nil)
		return
	}
	log.Error().Err(err).Msg(msg)
	errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, msg, nil)
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, stderrors.New("invalid integer")
	}
	return n, nil
}
