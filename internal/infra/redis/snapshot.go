package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
)

// Key helpers
func entryKey(fingerprint string) string {
	return fmt.Sprintf("translation_cache:%s", fingerprint)
}

const entryKeyPattern = "translation_cache:*"

// SnapshotStore persists cache entries in Redis. Each entry is written with
// an expiry matching its TTL so Redis drops stale entries on its own.
type SnapshotStore struct {
	client *Client
}

func NewSnapshotStore(client *Client) *SnapshotStore {
	return &SnapshotStore{client: client}
}

// Save writes the given entries in one pipeline. Entries already past their
// TTL are skipped.
func (s *SnapshotStore) Save(ctx context.Context, entries []*domain.CacheEntry) error {
	now := time.Now()
	pipe := s.client.rdb.Pipeline()

	written := 0
	for _, e := range entries {
		ttl := e.ExpiresAt.Sub(now)
		if ttl <= 0 {
			continue
		}
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal entry %s: %w", e.Fingerprint, err)
		}
		pipe.Set(ctx, entryKey(e.Fingerprint), data, ttl)
		written++
	}

	if written == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("snapshot pipeline failed: %w", err)
	}
	return nil
}

// Load scans all persisted entries. Undecodable values are skipped with a
// warning rather than failing the whole load.
func (s *SnapshotStore) Load(ctx context.Context) ([]*domain.CacheEntry, error) {
	var entries []*domain.CacheEntry

	iter := s.client.rdb.Scan(ctx, 0, entryKeyPattern, 100).Iterator()
	for iter.Next(ctx) {
		val, err := s.client.rdb.Get(ctx, iter.Val()).Result()
		if err == redis.Nil {
			continue // expired between SCAN and GET
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", iter.Val(), err)
		}

		var entry domain.CacheEntry
		if err := json.Unmarshal([]byte(val), &entry); err != nil {
			slog.Warn("Skipping undecodable cache snapshot entry", "key", iter.Val(), "error", err)
			continue
		}
		entries = append(entries, &entry)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	return entries, nil
}
