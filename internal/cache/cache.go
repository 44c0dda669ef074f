// Package cache stores computed analyses keyed by transaction id. The
// cache is a service-layer optimization: a miss or a backend failure
// always falls through to recomputation, never to an error surfaced to
// the caller.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/banking/fincrime-service/internal/domain"
)

// AnalysisCache caches one analysis per transaction id. Get returns
// (nil, nil) on a miss; errors mean the backend itself failed.
type AnalysisCache interface {
	Get(ctx context.Context, txID string) (*domain.AIAnalysis, error)
	Set(ctx context.Context, txID string, analysis *domain.AIAnalysis) error
	Delete(ctx context.Context, txID string) error
}

type memoryEntry struct {
	analysis  *domain.AIAnalysis
	expiresAt time.Time
}

// MemoryCache is the default in-process cache. Entries expire lazily
// on read; with a zero TTL entries never expire.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// MemoryOption customizes a MemoryCache
type MemoryOption func(*MemoryCache)

// WithClock overrides the time source used for expiry
func WithClock(now func() time.Time) MemoryOption {
	return func(c *MemoryCache) {
		c.now = now
	}
}

// NewMemoryCache creates an in-process analysis cache
func NewMemoryCache(ttl time.Duration, opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get implements AnalysisCache
func (c *MemoryCache) Get(_ context.Context, txID string) (*domain.AIAnalysis, error) {
	c.mu.RLock()
	entry, ok := c.entries[txID]
	c.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, txID)
		c.mu.Unlock()
		return nil, nil
	}
	return entry.analysis, nil
}

// Set implements AnalysisCache
func (c *MemoryCache) Set(_ context.Context, txID string, analysis *domain.AIAnalysis) error {
	entry := memoryEntry{analysis: analysis}
	if c.ttl > 0 {
		entry.expiresAt = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	c.entries[txID] = entry
	c.mu.Unlock()
	return nil
}

// Delete implements AnalysisCache
func (c *MemoryCache) Delete(_ context.Context, txID string) error {
	c.mu.Lock()
	delete(c.entries, txID)
	c.mu.Unlock()
	return nil
}

// Len returns the number of live entries, counting expired ones not
// yet evicted
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
