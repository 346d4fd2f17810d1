package financial

import (
	"context"
	"sync"
	"time"

	"screener/internal/screening/models"
	"screener/pkg/platform/sentinel"
)

type memoryEntry struct {
	ratios    models.FinancialRatios
	expiresAt time.Time
}

// InMemoryCache is a TTL cache for a single process.
type InMemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	clock   func() time.Time
	entries map[string]memoryEntry
}

func NewInMemoryCache(ttl time.Duration) *InMemoryCache {
	return &InMemoryCache{ttl: ttl, clock: time.Now, entries: make(map[string]memoryEntry)}
}

func (c *InMemoryCache) Get(_ context.Context, symbol string) (*models.FinancialRatios, error) {
	c.mu.RLock()
	entry, ok := c.entries[symbol]
	c.mu.RUnlock()
	if !ok || !c.clock().Before(entry.expiresAt) {
		return nil, sentinel.ErrNotFound
	}
	ratios := entry.ratios
	return &ratios, nil
}

func (c *InMemoryCache) Set(_ context.Context, symbol string, ratios *models.FinancialRatios) error {
	if ratios == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[symbol] = memoryEntry{ratios: *ratios, expiresAt: c.clock().Add(c.ttl)}
	return nil
}
