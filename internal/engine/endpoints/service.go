package endpoints

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"hooklens/internal/pkg/validator"
	"hooklens/internal/platform/models"
	"hooklens/internal/platform/repositories"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

type CreateInput struct {
	Name          string              `json:"name" validate:"required,min=1,max=50"`
	Description   *string             `json:"description,omitempty" validate:"omitempty,max=500"`
	Notifications *NotificationsInput `json:"notifications" validate:"required"`
}

// NotificationsInput uses pointers so an omitted channel is rejected rather
// than read as false.
type NotificationsInput struct {
	Email *bool `json:"email" validate:"required"`
	Slack *bool `json:"slack" validate:"required"`
}

func (n *NotificationsInput) settings() models.Notifications {
	return models.Notifications{Email: *n.Email, Slack: *n.Slack}
}

type WebhookStore interface {
	TokenAvailabilityChecker
	WebhookFinder
	Create(ctx context.Context, webhook *models.Webhook) error
	GetByID(ctx context.Context, id string) (*models.Webhook, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Webhook, error)
}

type RequestLister interface {
	ListByWebhook(ctx context.Context, webhookID string, limit, offset int) ([]*models.CapturedRequest, error)
}

// Service provisions webhooks for authenticated owners and serves their
// captured requests back to them.
type Service struct {
	webhooks WebhookStore
	requests RequestLister
	urls     URLBuilder
	now      func() time.Time
}

func NewService(webhooks WebhookStore, requests RequestLister, urls URLBuilder) *Service {
	return &Service{webhooks: webhooks, requests: requests, urls: urls, now: time.Now}
}

func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (*models.Webhook, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	token, err := GenerateToken(ctx, s.webhooks)
	if err != nil {
		return nil, err
	}
	secret, err := GenerateSecret()
	if err != nil {
		return nil, err
	}

	webhook := &models.Webhook{
		ID:            "wh_" + uuid.New().String(),
		UserID:        ownerID,
		Name:          in.Name,
		Description:   in.Description,
		Token:         token,
		Secret:        secret,
		Notifications: in.Notifications.settings(),
		CreatedAt:     s.now().UnixMilli(),
	}

	if err := s.webhooks.Create(ctx, webhook); err != nil {
		return nil, err
	}

	webhook.Endpoint = s.urls.Endpoint(webhook.Token)
	return webhook, nil
}

func (s *Service) List(ctx context.Context, ownerID string) ([]*models.Webhook, error) {
	webhooks, err := s.webhooks.ListByUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, w := range webhooks {
		w.Endpoint = s.urls.Endpoint(w.Token)
	}
	return webhooks, nil
}

// Get returns ErrNotFound for webhooks owned by someone else so their
// existence is not revealed.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*models.Webhook, error) {
	webhook, err := s.webhooks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if webhook.UserID != ownerID {
		return nil, ErrNotFound
	}
	webhook.Endpoint = s.urls.Endpoint(webhook.Token)
	return webhook, nil
}

func (s *Service) Requests(ctx context.Context, ownerID, id string, limit, offset int) ([]*models.CapturedRequest, error) {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.requests.ListByWebhook(ctx, id, limit, offset)
}
