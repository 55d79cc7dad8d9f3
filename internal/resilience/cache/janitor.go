package cache

import (
	"context"
	"log/slog"
	"time"
)

// Janitor periodically evicts expired entries so memory pressure doesn't
// build up between lookups. Expiry is still enforced lazily on Get; this
// only reclaims space.
type Janitor struct {
	cache    *Cache
	interval time.Duration
}

// NewJanitor derives its sweep interval from the shortest configured TTL,
// clamped to [1m, 1h].
func NewJanitor(cache *Cache, shortestTTL time.Duration) *Janitor {
	interval := min(shortestTTL/10, time.Hour)
	interval = max(interval, time.Minute)
	return &Janitor{cache: cache, interval: interval}
}

// Start runs the sweep loop until the context is canceled.
func (j *Janitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := j.cache.EvictExpired(); removed > 0 {
				slog.Debug("Evicted expired cache entries", "count", removed)
			}
		}
	}
}
