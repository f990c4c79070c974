package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"hooklens/internal/pkg/errors"
	"hooklens/internal/pkg/validator"
	"hooklens/internal/platform/audit"
	"hooklens/internal/platform/auth"
	"hooklens/internal/platform/models"
	"hooklens/internal/platform/repositories"
)

type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

type AuthHandler struct {
	userRepo *repositories.UserRepository
	tokenSvc *auth.TokenService
	limiter  LoginLimiter
	audit    *audit.Logger
	tokenTTL time.Duration
}

func NewAuthHandler(userRepo *repositories.UserRepository, tokenSvc *auth.TokenService, limiter LoginLimiter, auditLog *audit.Logger, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		userRepo: userRepo,
		tokenSvc: tokenSvc,
		limiter:  limiter,
		audit:    auditLog,
		tokenTTL: tokenTTL,
	}
}

type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72,password"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	req.Email = normalizeEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)

	if !h.validate(w, req) {
		return
	}

	// Check if user already exists
	existingUser, err := h.userRepo.GetByEmail(r.Context(), req.Email)
	if err != nil {
		log.Error().Err(err).Msg("Failed to look up user")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Database error", nil)
		return
	}
	if existingUser != nil {
		errors.WriteError(w, http.StatusConflict, errors.ErrCodeConflict, "User already exists", nil)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to hash password", nil)
		return
	}

	user := &models.User{
		ID:           "usr_" + uuid.NewString(),
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now().UnixMilli(),
	}

	if err := h.userRepo.Create(r.Context(), user); err != nil {
		log.Error().Err(err).Msg("Failed to create user")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to create user", nil)
		return
	}

	h.audit.Log(r, user.ID, audit.ActionRegister, "user", user.ID, nil)
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	req.Email = normalizeEmail(req.Email)

	if !h.validate(w, req) {
		return
	}

	allowed, retryAfter, err := h.limiter.Allow(r.Context(), "login:"+req.Email)
	if err != nil {
		log.Error().Err(err).Msg("Login rate limiter unavailable")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Database error", nil)
		return
	}
	if !allowed {
		h.audit.Log(r, "", audit.ActionLoginThrottle, "user", req.Email, nil)
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "Too many login attempts. Please try again later.", nil)
		return
	}

	user, err := h.userRepo.GetByEmail(r.Context(), req.Email)
	if err != nil {
		log.Error().Err(err).Msg("Failed to look up user")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Database error", nil)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		h.audit.Log(r, "", audit.ActionLoginFailed, "user", req.Email, nil)
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Invalid email or password", nil)
		return
	}

	accessToken, err := h.tokenSvc.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Failed to generate token", nil)
		return
	}

	h.audit.Log(r, user.ID, audit.ActionLogin, "user", user.ID, nil)
	writeJSON(w, http.StatusOK, LoginResponse{
		User:        user,
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.tokenTTL.Seconds()),
	})
}

func (h *AuthHandler) validate(w http.ResponseWriter, req interface{}) bool {
	err := validator.Struct(req)
	if err == nil {
		return true
	}

	var verr *validator.ValidationError
	if stderrors.As(err, &verr) {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, verr.Message, errors.FieldDetails(verr.Field))
		return false
	}
	errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, err.Error(), nil)
	return false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
