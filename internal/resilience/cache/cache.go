package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/resilience/metrics"
)

// ComputeFunc produces a result on a cache miss (i.e. runs inference).
type ComputeFunc func(ctx context.Context) (domain.Result, error)

// Cache memoizes inference results by fingerprint. Capacity-bounded with
// LRU eviction, time-bounded with per-entry TTLs. Duplicate concurrent
// computations for the same fingerprint collapse into one flight.
type Cache struct {
	mu         sync.Mutex
	index      map[string]*list.Element
	lru        *list.List // front = most recently used
	maxEntries int

	hits      int64
	misses    int64
	evictions int64

	group singleflight.Group
}

// New creates a cache bounded to maxEntries.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 10000
	}
	return &Cache{
		index:      make(map[string]*list.Element),
		lru:        list.New(),
		maxEntries: maxEntries,
	}
}

// Get returns the live entry for a fingerprint. Entries past their TTL are
// treated as absent (and dropped), even if not yet evicted.
func (c *Cache) Get(fingerprint string) (*domain.CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup(fingerprint, time.Now())
}

// lookup is Get without locking. Caller holds c.mu.
func (c *Cache) lookup(fingerprint string, now time.Time) (*domain.CacheEntry, bool) {
	el, ok := c.index[fingerprint]
	if !ok {
		c.misses++
		metrics.CacheMisses.Inc()
		return nil, false
	}

	entry := el.Value.(*domain.CacheEntry)
	if entry.Expired(now) {
		c.removeElement(el)
		c.evictions++
		metrics.CacheEvictions.WithLabelValues("ttl").Inc()
		c.misses++
		metrics.CacheMisses.Inc()
		return nil, false
	}

	entry.LastAccessedAt = now
	entry.HitCount++
	c.lru.MoveToFront(el)
	c.hits++
	metrics.CacheHits.Inc()

	cp := *entry
	cp.Value.Source = domain.SourceCache
	return &cp, true
}

// Put stores a result under a fingerprint with the given TTL, replacing any
// existing entry.
func (c *Cache) Put(fingerprint string, value domain.Result, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(fingerprint, value, ttl, time.Now(), 0)
}

// ApplyCanonical overwrites a local entry with the central service's value
// during reconciliation (cloud-authoritative). Hit stats carry over.
func (c *Cache) ApplyCanonical(fingerprint string, value domain.Result, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var hitCount int64
	if el, ok := c.index[fingerprint]; ok {
		hitCount = el.Value.(*domain.CacheEntry).HitCount
	}
	c.put(fingerprint, value, ttl, time.Now(), hitCount)
}

func (c *Cache) put(fingerprint string, value domain.Result, ttl time.Duration, now time.Time, hitCount int64) {
	entry := &domain.CacheEntry{
		Fingerprint:    fingerprint,
		Value:          value,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
		LastAccessedAt: now,
		HitCount:       hitCount,
	}

	if el, ok := c.index[fingerprint]; ok {
		el.Value = entry
		c.lru.MoveToFront(el)
	} else {
		c.index[fingerprint] = c.lru.PushFront(entry)
	}

	for c.lru.Len() > c.maxEntries {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
		c.evictions++
		metrics.CacheEvictions.WithLabelValues("capacity").Inc()
	}
	metrics.CacheSize.Set(float64(c.lru.Len()))
}

// GetOrCompute returns the cached result for fingerprint or runs compute,
// serializing duplicate in-flight computations for the same key and fanning
// the result out to all waiters. The second return value is true only for
// the caller whose flight actually ran compute, so follow-up side effects
// (queueing the fresh result for sync) happen exactly once.
//
// Compute errors are returned to all waiters and never cached.
func (c *Cache) GetOrCompute(ctx context.Context, fingerprint string, ttl time.Duration, compute ComputeFunc) (domain.Result, bool, error) {
	c.mu.Lock()
	if entry, ok := c.lookup(fingerprint, time.Now()); ok {
		c.mu.Unlock()
		return entry.Value, false, nil
	}
	c.mu.Unlock()

	computed := false
	v, err, _ := c.group.Do(fingerprint, func() (any, error) {
		// A previous flight may have filled the entry between the miss
		// above and this flight starting. Peek without re-counting the miss.
		c.mu.Lock()
		if el, ok := c.index[fingerprint]; ok {
			entry := el.Value.(*domain.CacheEntry)
			if !entry.Expired(time.Now()) {
				res := entry.Value
				res.Source = domain.SourceCache
				c.mu.Unlock()
				return res, nil
			}
		}
		c.mu.Unlock()

		res, err := compute(ctx)
		if err != nil {
			return domain.Result{}, err
		}
		res.Source = domain.SourceInference

		c.mu.Lock()
		c.put(fingerprint, res, ttl, time.Now(), 0)
		c.mu.Unlock()

		computed = true // closure runs only in the winning caller
		return res, nil
	})
	if err != nil {
		return domain.Result{}, false, err
	}
	return v.(domain.Result), computed, nil
}

// EvictExpired drops every entry past its TTL and returns how many.
func (c *Cache) EvictExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for el := c.lru.Back(); el != nil; {
		prev := el.Prev()
		if el.Value.(*domain.CacheEntry).Expired(now) {
			c.removeElement(el)
			removed++
		}
		el = prev
	}
	if removed > 0 {
		c.evictions += int64(removed)
		metrics.CacheEvictions.WithLabelValues("ttl").Add(float64(removed))
		metrics.CacheSize.Set(float64(c.lru.Len()))
	}
	return removed
}

// Stats returns a snapshot of cache effectiveness.
func (c *Cache) Stats() domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := domain.CacheStats{
		Size:      c.lru.Len(),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// Entries returns copies of all live entries, for snapshotting.
func (c *Cache) Entries() []*domain.CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	out := make([]*domain.CacheEntry, 0, c.lru.Len())
	for el := c.lru.Front(); el != nil; el = el.Next() {
		entry := el.Value.(*domain.CacheEntry)
		if entry.Expired(now) {
			continue
		}
		cp := *entry
		out = append(out, &cp)
	}
	return out
}

// LoadEntries seeds the cache from a snapshot, dropping entries already past
// their TTL. Returns how many entries were restored.
func (c *Cache) LoadEntries(entries []*domain.CacheEntry) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	restored := 0
	for _, entry := range entries {
		if entry.Expired(now) {
			continue
		}
		cp := *entry
		if el, ok := c.index[cp.Fingerprint]; ok {
			el.Value = &cp
			continue
		}
		c.index[cp.Fingerprint] = c.lru.PushBack(&cp)
		restored++
	}

	for c.lru.Len() > c.maxEntries {
		oldest := c.lru.Back()
		c.removeElement(oldest)
	}
	metrics.CacheSize.Set(float64(c.lru.Len()))
	return restored
}

func (c *Cache) removeElement(el *list.Element) {
	entry := el.Value.(*domain.CacheEntry)
	c.lru.Remove(el)
	delete(c.index, entry.Fingerprint)
}
