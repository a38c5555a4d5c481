package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Veraticus/tally/internal/model"
)

// DefaultCacheTTL is how long a tenant's rule set is served from memory.
const DefaultCacheTTL = 5 * time.Minute

// AllTenantsKey is the cache key holding the rules of every tenant.
const AllTenantsKey = "__all_tenants__"

// cacheEntry holds one tenant's active rules.
type cacheEntry struct {
	expiresAt time.Time
	rules     []model.Rule
}

// RuleCache provides thread-safe, time-boxed caching of active rule sets.
// Returned slices are shared and must not be modified.
type RuleCache struct {
	store   RuleStore
	metrics MetricsRecorder
	now     func() time.Time
	entries map[string]cacheEntry
	group   singleflight.Group
	ttl     time.Duration
	version uint64
	mu      sync.RWMutex
}

// NewRuleCache creates a cache in front of store.
func NewRuleCache(store RuleStore, ttl time.Duration) *RuleCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	return &RuleCache{
		store:   store,
		metrics: NopMetrics{},
		now:     time.Now,
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// GetRules returns the active rules of one tenant.
func (c *RuleCache) GetRules(ctx context.Context, tenantID string) ([]model.Rule, error) {
	return c.lookup(ctx, tenantID, func(ctx context.Context) ([]model.Rule, error) {
		return c.store.GetActiveRules(ctx, tenantID)
	})
}

// GetAllRules returns the active rules of every tenant.
func (c *RuleCache) GetAllRules(ctx context.Context) ([]model.Rule, error) {
	return c.lookup(ctx, AllTenantsKey, c.store.GetAllActiveRules)
}

// Invalidate drops the cached rules of one tenant.
func (c *RuleCache) Invalidate(tenantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, tenantID)
	c.version++
	slog.Debug("Invalidated rule cache", "tenant_id", tenantID)
}

// ClearAll drops every cached rule set.
func (c *RuleCache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
	c.version++
	slog.Debug("Cleared rule cache")
}

// Size returns the number of cached rule sets, fresh or not.
func (c *RuleCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *RuleCache) lookup(ctx context.Context, key string, fetch func(context.Context) ([]model.Rule, error)) ([]model.Rule, error) {
	if rules, ok := c.fresh(key); ok {
		c.metrics.ObserveCacheLookup(true)
		return rules, nil
	}
	c.metrics.ObserveCacheLookup(false)

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Another caller may have filled the entry while we waited.
		if rules, ok := c.fresh(key); ok {
			return rules, nil
		}

		c.mu.RLock()
		version := c.version
		c.mu.RUnlock()

		fetched, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		rules := activeOnly(fetched)

		c.mu.Lock()
		// Skip storing if an invalidation raced with the fetch.
		if c.version == version {
			c.entries[key] = cacheEntry{
				rules:     rules,
				expiresAt: c.now().Add(c.ttl),
			}
		}
		c.mu.Unlock()

		slog.Debug("Loaded rules into cache", "key", key, "count", len(rules))
		return rules, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load rules for %q: %w", key, err)
	}

	return v.([]model.Rule), nil
}

// fresh returns the entry for key if it has not expired.
func (c *RuleCache) fresh(key string) ([]model.Rule, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || !c.now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry.rules, true
}

func activeOnly(rules []model.Rule) []model.Rule {
	out := make([]model.Rule, 0, len(rules))
	for _, rule := range rules {
		if rule.IsActive {
			out = append(out, rule)
		}
	}
	return out
}
