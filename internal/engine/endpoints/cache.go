package endpoints

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"hooklens/internal/platform/models"
)

// Cache holds resolved webhooks by token. Entries expire after ttl and the
// oldest are evicted past maxEntries.
type Cache struct {
	lru *expirable.LRU[string, *models.Webhook]
}

func NewCache(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &Cache{lru: expirable.NewLRU[string, *models.Webhook](maxEntries, nil, ttl)}
}

func (c *Cache) Get(token string) (*models.Webhook, bool) {
	return c.lru.Get(token)
}

func (c *Cache) Set(token string, webhook *models.Webhook) {
	c.lru.Add(token, webhook)
}

func (c *Cache) size() int {
	return c.lru.Len()
}
