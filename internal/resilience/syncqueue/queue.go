package syncqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/infra/storage"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/resilience/metrics"
)

// Queue is the durable sync outbox. Items are persisted before Enqueue
// returns and retried with capped exponential backoff. After maxAttempts
// an item moves to the dead-letter status: never retried forever, never
// silently dropped.
type Queue struct {
	repo        storage.QueueRepository
	backoff     Backoff
	maxAttempts int
}

func NewQueue(repo storage.QueueRepository, backoff Backoff, maxAttempts int) *Queue {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Queue{
		repo:        repo,
		backoff:     backoff,
		maxAttempts: maxAttempts,
	}
}

// Enqueue persists a new item and returns its id. The id is generated here
// so the central service can deduplicate redeliveries.
func (q *Queue) Enqueue(ctx context.Context, kind domain.ItemKind, priority domain.Priority, payload []byte) (string, error) {
	now := time.Now()
	item := &domain.QueueItem{
		ID:             uuid.NewString(),
		Kind:           kind,
		Priority:       priority,
		Payload:        payload,
		CreatedAt:      now,
		NextEligibleAt: now,
		Status:         domain.QueueStatusPending,
	}

	if err := q.repo.Add(ctx, item); err != nil {
		return "", fmt.Errorf("failed to enqueue %s item: %w", kind, err)
	}

	metrics.QueueEnqueued.WithLabelValues(string(kind), string(priority)).Inc()
	q.updateDepthMetrics(ctx)
	return item.ID, nil
}

// Recover reverts items orphaned in-flight by a crash back to pending.
// Called once at startup, before the reconciler begins draining.
func (q *Queue) Recover(ctx context.Context) error {
	n, err := q.repo.RequeueInFlight(ctx)
	if err != nil {
		return fmt.Errorf("failed to requeue in-flight items: %w", err)
	}
	if n > 0 {
		slog.Info("Requeued in-flight items from previous run", "count", n)
	}
	return nil
}

// claimNext hands the next deliverable item to the reconciler.
func (q *Queue) claimNext(ctx context.Context, now time.Time, criticalOnly bool) (*domain.QueueItem, error) {
	return q.repo.ClaimNext(ctx, now, criticalOnly)
}

// markDelivered removes a confirmed-delivered item.
func (q *Queue) markDelivered(ctx context.Context, item *domain.QueueItem) error {
	if err := q.repo.MarkDelivered(ctx, item.ID); err != nil {
		return err
	}
	metrics.PushesTotal.WithLabelValues("delivered").Inc()
	q.updateDepthMetrics(ctx)
	return nil
}

// handleFailure reverts a failed push to pending behind a backoff gate, or
// moves the item to dead once attempts are exhausted.
func (q *Queue) handleFailure(ctx context.Context, item *domain.QueueItem, pushErr error) error {
	metrics.PushesTotal.WithLabelValues("failed").Inc()

	if item.Attempts+1 >= q.maxAttempts {
		if err := q.repo.MarkDead(ctx, item.ID, pushErr.Error()); err != nil {
			return fmt.Errorf("failed to dead-letter item %s: %w", item.ID, err)
		}
		metrics.DeadLetters.Inc()
		slog.Error("Item exhausted delivery attempts",
			"id", item.ID, "kind", item.Kind, "attempts", item.Attempts+1, "error", pushErr)
		q.updateDepthMetrics(ctx)
		return nil
	}

	nextEligibleAt := time.Now().Add(q.backoff.Delay(item.Attempts))
	if err := q.repo.Release(ctx, item.ID, nextEligibleAt, pushErr.Error()); err != nil {
		return fmt.Errorf("failed to release item %s: %w", item.ID, err)
	}
	slog.Debug("Push failed, item released for retry",
		"id", item.ID, "attempt", item.Attempts+1, "next_eligible_at", nextEligibleAt, "error", pushErr)
	return nil
}

// DeadLetters lists items awaiting operator inspection.
func (q *Queue) DeadLetters(ctx context.Context) ([]*domain.QueueItem, error) {
	return q.repo.DeadLetters(ctx)
}

// PurgeDead removes all dead items; an operator action, never automatic.
func (q *Queue) PurgeDead(ctx context.Context) (int, error) {
	n, err := q.repo.PurgeDead(ctx)
	if err == nil {
		q.updateDepthMetrics(ctx)
	}
	return n, err
}

// Counts returns queue depth per status.
func (q *Queue) Counts(ctx context.Context) (domain.QueueCounts, error) {
	return q.repo.Counts(ctx)
}

func (q *Queue) updateDepthMetrics(ctx context.Context) {
	counts, err := q.repo.Counts(ctx)
	if err != nil {
		return
	}
	metrics.QueueDepth.WithLabelValues("pending").Set(float64(counts.Pending))
	metrics.QueueDepth.WithLabelValues("in-flight").Set(float64(counts.InFlight))
	metrics.QueueDepth.WithLabelValues("dead").Set(float64(counts.Dead))
}
