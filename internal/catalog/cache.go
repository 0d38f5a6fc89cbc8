package catalog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/catering-configurator/internal/domain"
)

// DefaultTTL is how long a category listing is served from the cache.
const DefaultTTL = 5 * time.Minute

// CacheOption configures a Cached catalog.
type CacheOption func(*Cached)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cached) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides the time source (primarily for tests).
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cached) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger attaches a logger for read failures.
func WithLogger(logger *zap.Logger) CacheOption {
	return func(c *Cached) {
		if logger != nil {
			c.logger = logger
		}
	}
}

type cacheKey struct {
	category domain.Category
	tier     string
}

type cacheEntry struct {
	items   []domain.CatalogItem
	expires time.Time
}

// Cached serves active catalog items from a time-boxed cache in front of a
// Source. Failed reads are returned to the caller and never cached.
type Cached struct {
	source Source
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

// NewCached wraps source with a TTL cache.
func NewCached(source Source, opts ...CacheOption) *Cached {
	c := &Cached{
		source:  source,
		ttl:     DefaultTTL,
		now:     time.Now,
		logger:  zap.NewNop(),
		entries: make(map[cacheKey]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ItemsByCategory returns the active items of category offered for tier.
func (c *Cached) ItemsByCategory(ctx context.Context, category domain.Category, tier string) ([]domain.CatalogItem, error) {
	key := cacheKey{category: category, tier: tier}
	now := c.now()

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if ok && now.Before(entry.expires) {
		return cloneItems(entry.items), nil
	}

	items, err := c.source.ItemsByCategory(ctx, category, tier)
	if err != nil {
		c.logger.Warn("catalog read failed",
			zap.String("category", category.String()),
			zap.String("tier", tier),
			zap.Error(err),
		)
		return nil, err
	}
	active := FilterActive(items, tier)

	c.mu.Lock()
	c.entries[key] = cacheEntry{items: active, expires: now.Add(c.ttl)}
	c.mu.Unlock()
	return cloneItems(active), nil
}

// Package reads through to the source; packages are loaded once per session.
func (c *Cached) Package(ctx context.Context, id string) (domain.Package, error) {
	return c.source.Package(ctx, id)
}

// ListPackages reads through to the source.
func (c *Cached) ListPackages(ctx context.Context) ([]domain.Package, error) {
	return c.source.ListPackages(ctx)
}

// Invalidate drops every cached listing. Call it when the selected package
// changes.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[cacheKey]cacheEntry)
	c.mu.Unlock()
}

// InvalidateTier drops the cached listings of one tier.
func (c *Cached) InvalidateTier(tier string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if key.tier == tier {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
