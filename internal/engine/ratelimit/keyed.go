package ratelimit

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

// KeyedLimiter keeps an in-memory token bucket per key. Idle keys expire
// and the oldest are evicted once maxKeys are tracked.
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

func NewKeyedLimiter(perMinute, maxKeys int) *KeyedLimiter {
	if perMinute <= 0 {
		perMinute = 100
	}
	if maxKeys <= 0 {
		maxKeys = 1000
	}
	return &KeyedLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](maxKeys, nil, 10*time.Minute),
		rate:     rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
	}
}

func (k *KeyedLimiter) Allow(key string) bool {
	return k.limiter(key).Allow()
}

func (k *KeyedLimiter) limiter(key string) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	l, ok := k.limiters.Get(key)
	if !ok {
		l = rate.NewLimiter(k.rate, k.burst)
		k.limiters.Add(key, l)
	}
	return l
}
