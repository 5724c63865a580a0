package tools

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCacheTTL is how long discovered tool descriptors stay fresh.
const DefaultCacheTTL = time.Hour

// Discoverer fetches the tool list advertised by an endpoint.
type Discoverer interface {
	Discover(ctx context.Context, endpoint string, headers map[string]string) ([]ToolDescriptor, error)
}

type cacheEntry struct {
	descriptors []ToolDescriptor
	fetchedAt   time.Time
}

// SchemaCache is a process-wide, TTL-bounded cache of discovered tool
// descriptors, keyed by endpoint. Descriptors are server-level data, so
// agents sharing an endpoint share an entry.
//
// Staleness is binary: an entry older than the TTL is treated as absent and
// refreshed before use. A failed refresh yields no tools for that endpoint
// this turn and leaves the stale entry untouched, so the next call retries
// rather than serving stale data.
type SchemaCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry

	discoverer Discoverer
	ttl        time.Duration
	now        func() time.Time
}

// SchemaCacheOption configures a SchemaCache.
type SchemaCacheOption func(*SchemaCache)

// WithTTL overrides the default 1h TTL.
func WithTTL(ttl time.Duration) SchemaCacheOption {
	return func(c *SchemaCache) {
		c.ttl = ttl
	}
}

// WithClock injects a clock so tests can simulate TTL expiry.
func WithClock(now func() time.Time) SchemaCacheOption {
	return func(c *SchemaCache) {
		c.now = now
	}
}

// NewSchemaCache creates a cache that refreshes through the given discoverer.
func NewSchemaCache(discoverer Discoverer, opts ...SchemaCacheOption) *SchemaCache {
	c := &SchemaCache{
		entries:    make(map[string]cacheEntry),
		discoverer: discoverer,
		ttl:        DefaultCacheTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrRefresh returns the cached descriptors for the endpoint, refreshing
// them first when missing or expired. A refresh failure returns nil.
//
// A racing miss may trigger duplicate discovery calls; that is harmless, the
// last writer wins.
func (c *SchemaCache) GetOrRefresh(ctx context.Context, endpoint string, headers map[string]string) []ToolDescriptor {
	c.mu.RLock()
	entry, ok := c.entries[endpoint]
	c.mu.RUnlock()

	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		return entry.descriptors
	}

	descriptors, err := c.discoverer.Discover(ctx, endpoint, headers)
	if err != nil {
		slog.Debug("Tool discovery failed",
			"endpoint", endpoint,
			"error", err)
		return nil
	}

	c.mu.Lock()
	c.entries[endpoint] = cacheEntry{
		descriptors: descriptors,
		fetchedAt:   c.now(),
	}
	c.mu.Unlock()

	return descriptors
}

// Len returns the number of cached endpoints.
func (c *SchemaCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
