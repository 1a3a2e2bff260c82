package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/embedscan/internal/core/domain"
	"github.com/custodia-labs/embedscan/internal/core/ports/driven"
)

// HistoryCache caches file histories per title. Entries are only dropped by
// an explicit Invalidate, which callers issue before any step that depends
// on the current history.
type HistoryCache struct {
	platform driven.Platform

	mu      sync.Mutex
	entries map[string]domain.FileHistory
}

// NewHistoryCache creates an empty cache.
func NewHistoryCache(platform driven.Platform) *HistoryCache {
	return &HistoryCache{
		platform: platform,
		entries:  make(map[string]domain.FileHistory),
	}
}

// Get returns the cached history of title, fetching it on a miss.
// Failed fetches are not cached.
func (c *HistoryCache) Get(ctx context.Context, title string) (domain.FileHistory, error) {
	c.mu.Lock()
	hist, ok := c.entries[title]
	c.mu.Unlock()
	if ok {
		return hist, nil
	}

	hist, err := c.platform.FileHistory(ctx, title)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[title] = hist
	c.mu.Unlock()
	return hist, nil
}

// Invalidate drops the cached history of title.
func (c *HistoryCache) Invalidate(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, title)
}

// Refresh invalidates and re-fetches the history of title.
func (c *HistoryCache) Refresh(ctx context.Context, title string) (domain.FileHistory, error) {
	c.Invalidate(title)
	return c.Get(ctx, title)
}
