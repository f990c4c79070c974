package endpoints

import (
	"context"
	"errors"

	"hooklens/internal/platform/models"
	"hooklens/internal/platform/repositories"
)

var ErrNotFound = errors.New("webhook not found")

type WebhookFinder interface {
	GetByToken(ctx context.Context, token string) (*models.Webhook, error)
}

// Registry resolves the opaque path segment of an inbound URL to its
// webhook. Lookups never depend on the serving host or base URL.
type Registry struct {
	finder WebhookFinder
	cache  *Cache
	urls   URLBuilder
}

func NewRegistry(finder WebhookFinder, cache *Cache, urls URLBuilder) *Registry {
	return &Registry{finder: finder, cache: cache, urls: urls}
}

func (r *Registry) Resolve(ctx context.Context, token string) (*models.Webhook, error) {
	if !IsValidToken(token) {
		return nil, ErrNotFound
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(token); ok {
			return cached, nil
		}
	}

	webhook, err := r.finder.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	webhook.Endpoint = r.urls.Endpoint(webhook.Token)
	if r.cache != nil {
		r.cache.Set(token, webhook)
	}
	return webhook, nil
}
