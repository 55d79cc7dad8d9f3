package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
)

var (
	// ErrNotFound is returned when a queue item doesn't exist
	ErrNotFound = errors.New("queue item not found")
)

// QueueRepository handles the durable sync outbox.
//
// Status transitions are the repository's concurrency contract: ClaimNext
// flips pending→in-flight atomically so one drain pass owns the item, and
// Release/MarkDelivered/MarkDead are the only exits from in-flight.
type QueueRepository interface {
	// Add persists a new item. The item is not considered enqueued until
	// Add returns nil.
	Add(ctx context.Context, item *domain.QueueItem) error

	// ClaimNext atomically claims the next eligible pending item
	// (highest priority first, FIFO within a priority) and marks it
	// in-flight. criticalOnly restricts claiming to critical items while
	// non-critical sync is deferred. Returns nil when nothing is eligible.
	ClaimNext(ctx context.Context, now time.Time, criticalOnly bool) (*domain.QueueItem, error)

	// MarkDelivered removes a delivered item.
	MarkDelivered(ctx context.Context, id string) error

	// Release reverts an in-flight item to pending after a failed push,
	// bumping attempts and gating the next try behind nextEligibleAt.
	Release(ctx context.Context, id string, nextEligibleAt time.Time, lastError string) error

	// MarkDead moves an item to the dead-letter status.
	MarkDead(ctx context.Context, id string, lastError string) error

	// RequeueInFlight reverts all in-flight items to pending. Called once
	// at startup so items orphaned by a crash are retried.
	RequeueInFlight(ctx context.Context) (int, error)

	// DeadLetters lists items that exhausted their attempts.
	DeadLetters(ctx context.Context) ([]*domain.QueueItem, error)

	// PurgeDead removes all dead items and returns how many were purged.
	PurgeDead(ctx context.Context) (int, error)

	// Counts returns queue depth per status.
	Counts(ctx context.Context) (domain.QueueCounts, error)
}

// RecoveryHistoryRepository stores append-only recovery episode records.
type RecoveryHistoryRepository interface {
	// Append stores one recovery record.
	Append(ctx context.Context, rec *domain.RecoveryRecord) error

	// Recent returns the most recent records for a cause, newest first.
	Recent(ctx context.Context, cause domain.Cause, limit int) ([]*domain.RecoveryRecord, error)
}
