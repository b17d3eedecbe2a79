package cache

import (
	"context"
	"sync"
	"time"

	"granja/internal/domain/params"
)

// Compile-time check that LocalCache implements params.Cache.
var _ params.Cache = (*LocalCache)(nil)

// LocalCache is an in-process report cache for single-instance deployments.
type LocalCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	gen     int64
	entries map[string]localEntry
}

type localEntry struct {
	report  *params.Report
	expires time.Time
}

// NewLocalCache creates an empty cache. A non-positive ttl uses DefaultTTL.
func NewLocalCache(ttl time.Duration) *LocalCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LocalCache{ttl: ttl, now: time.Now, entries: make(map[string]localEntry)}
}

// Get implements params.Cache.
func (c *LocalCache) Get(_ context.Context, key string) (*params.Report, int64, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	gen := c.gen
	c.mu.RUnlock()
	if !ok || c.now().After(e.expires) {
		return nil, gen, false, nil
	}
	return e.report, gen, true, nil
}

// Set implements params.Cache. A report from an older generation is
// dropped.
func (c *LocalCache) Set(_ context.Context, key string, gen int64, report *params.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	c.entries[key] = localEntry{report: report, expires: c.now().Add(c.ttl)}
	return nil
}

// Invalidate implements params.Cache.
func (c *LocalCache) Invalidate(context.Context) error {
	c.mu.Lock()
	c.gen++
	c.entries = make(map[string]localEntry)
	c.mu.Unlock()
	return nil
}
