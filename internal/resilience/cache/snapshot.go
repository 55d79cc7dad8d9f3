package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
)

// SnapshotStore persists cache entries across restarts.
type SnapshotStore interface {
	Save(ctx context.Context, entries []*domain.CacheEntry) error
	Load(ctx context.Context) ([]*domain.CacheEntry, error)
}

// Snapshotter periodically persists the cache and restores it at startup.
// Persistence failures degrade to in-memory-only operation; they never stop
// the node.
type Snapshotter struct {
	cache    *Cache
	store    SnapshotStore
	interval time.Duration
	running  atomic.Bool
	stop     chan struct{}
	degraded atomic.Bool
}

func NewSnapshotter(cache *Cache, store SnapshotStore, interval time.Duration) *Snapshotter {
	return &Snapshotter{
		cache:    cache,
		store:    store,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Restore loads the snapshot into the cache. Expired entries are dropped
// during load, not restored.
func (s *Snapshotter) Restore(ctx context.Context) error {
	entries, err := s.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load cache snapshot: %w", err)
	}
	restored := s.cache.LoadEntries(entries)
	slog.Info("Cache snapshot restored", "loaded", len(entries), "restored", restored)
	return nil
}

// Start runs the periodic snapshot loop until the context is canceled or
// Stop is called. The final in-flight snapshot completes before return.
func (s *Snapshotter) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("snapshotter already running")
	}
	defer s.running.Store(false)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.stop:
			return nil
		case <-ticker.C:
			s.snapshot(ctx)
		}
	}
}

// Stop halts the loop.
func (s *Snapshotter) Stop() {
	if s.running.Load() {
		close(s.stop)
	}
}

// Flush persists immediately; used at shutdown.
func (s *Snapshotter) Flush(ctx context.Context) error {
	return s.store.Save(ctx, s.cache.Entries())
}

// Degraded reports whether the last snapshot attempt failed.
func (s *Snapshotter) Degraded() bool {
	return s.degraded.Load()
}

func (s *Snapshotter) snapshot(ctx context.Context) {
	saveCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.store.Save(saveCtx, s.cache.Entries()); err != nil {
		if s.degraded.CompareAndSwap(false, true) {
			slog.Warn("Cache snapshot failed, running in-memory only", "error", err)
		}
		return
	}
	if s.degraded.CompareAndSwap(true, false) {
		slog.Info("Cache snapshot persistence recovered")
	}
}
