package datasource

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"companywise/internal/problems"
)

const (
	companiesKey = "\x00companies"

	// sharedFetchTimeout bounds a fetch that outlives the caller that
	// started it.
	sharedFetchTimeout = 30 * time.Second
)

type cacheEntry struct {
	companies []string
	table     []byte
	cachedAt  time.Time
	expiresAt time.Time
}

// CacheStats reports cache effectiveness.
type CacheStats struct {
	Entries   int     `json:"entries"`
	MaxSize   int     `json:"max_size"`
	HitCount  int64   `json:"hit_count"`
	MissCount int64   `json:"miss_count"`
	HitRatio  float64 `json:"hit_ratio"`
}

// CachedSource memoizes successful fetches for a TTL. Concurrent misses
// for the same key share one upstream fetch. Failures are never cached.
type CachedSource struct {
	inner   Source
	ttl     time.Duration
	maxSize int
	now     func() time.Time
	group   singleflight.Group

	mu        sync.Mutex
	entries   map[string]cacheEntry
	hitCount  int64
	missCount int64
}

func NewCachedSource(inner Source, ttl time.Duration, maxSize int) *CachedSource {
	return &CachedSource{
		inner:   inner,
		ttl:     ttl,
		maxSize: maxSize,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *CachedSource) Companies(ctx context.Context) ([]string, error) {
	if e, ok := c.lookup(companiesKey); ok {
		return append([]string(nil), e.companies...), nil
	}

	v, err := c.shared(ctx, companiesKey, func(ctx context.Context) (any, error) {
		names, err := c.inner.Companies(ctx)
		if err != nil {
			return nil, err
		}
		c.store(companiesKey, cacheEntry{companies: names})
		return names, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]string(nil), v.([]string)...), nil
}

func (c *CachedSource) Table(ctx context.Context, company string, window problems.Window) ([]byte, error) {
	if err := ValidateCompany(company); err != nil {
		return nil, err
	}
	key := company + "/" + window.FileName
	if e, ok := c.lookup(key); ok {
		return e.table, nil
	}

	v, err := c.shared(ctx, key, func(ctx context.Context) (any, error) {
		data, err := c.inner.Table(ctx, company, window)
		if err != nil {
			return nil, err
		}
		c.store(key, cacheEntry{table: data})
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// shared runs fetch once per key across concurrent callers. The fetch is
// detached from any single caller's cancellation; each caller stops
// waiting when its own ctx is done.
func (c *CachedSource) shared(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		return fetch(fetchCtx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops every cached entry.
func (c *CachedSource) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *CachedSource) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Entries:   len(c.entries),
		MaxSize:   c.maxSize,
		HitCount:  c.hitCount,
		MissCount: c.missCount,
	}
	if total := c.hitCount + c.missCount; total > 0 {
		stats.HitRatio = float64(c.hitCount) / float64(total)
	}
	return stats
}

func (c *CachedSource) lookup(key string) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		c.missCount++
		return cacheEntry{}, false
	}
	c.hitCount++
	return e, true
}

func (c *CachedSource) store(key string, e cacheEntry) {
	if c.ttl <= 0 || c.maxSize <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, old := range c.entries {
		if now.After(old.expiresAt) {
			delete(c.entries, k)
		}
	}
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}

	e.cachedAt = now
	e.expiresAt = now.Add(c.ttl)
	c.entries[key] = e
}

func (c *CachedSource) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for key, e := range c.entries {
		if oldestKey == "" || e.cachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.cachedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
