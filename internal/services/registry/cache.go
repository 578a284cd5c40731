package registry

import (
	"context"
	"sync"
	"time"

	"github.com/rezilient/restore-request-service/internal/interfaces"
	"github.com/rezilient/restore-request-service/internal/models"
)

// CachingResolver memoizes resolver results: found for the positive TTL,
// not_found for the negative TTL, outage never. Key is the full
// (tenant, instance, service_scope) triple.
type CachingResolver struct {
	inner       interfaces.SourceMappingResolver
	positiveTTL time.Duration
	negativeTTL time.Duration
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	result    models.SourceMappingResult
	expiresAt time.Time
}

// NewCachingResolver wraps inner with TTL memoization.
func NewCachingResolver(inner interfaces.SourceMappingResolver, positiveTTL, negativeTTL time.Duration) *CachingResolver {
	return &CachingResolver{
		inner:       inner,
		positiveTTL: positiveTTL,
		negativeTTL: negativeTTL,
		now:         time.Now,
		entries:     make(map[string]cacheEntry),
	}
}

// ResolveSourceMapping returns a cached result when fresh, otherwise calls
// through and caches found/not_found outcomes.
func (c *CachingResolver) ResolveSourceMapping(ctx context.Context, req interfaces.SourceMappingRequest) models.SourceMappingResult {
	key := req.TenantID + "\x00" + req.InstanceID + "\x00" + req.ServiceScope

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && c.now().Before(entry.expiresAt) {
		c.mu.Unlock()
		return entry.result
	}
	c.mu.Unlock()

	result := c.inner.ResolveSourceMapping(ctx, req)

	var ttl time.Duration
	switch result.Kind {
	case models.MappingFound:
		ttl = c.positiveTTL
	case models.MappingNotFound:
		ttl = c.negativeTTL
	default:
		// Outages are never cached.
		return result
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{result: result, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()

	return result
}
