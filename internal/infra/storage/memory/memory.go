package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/infra/storage"
)

// MemoryStorage backs the repositories when no database is configured.
// The node runs degraded (queue lost on restart) but keeps serving.
type MemoryStorage struct {
	items   map[string]*domain.QueueItem
	history []*domain.RecoveryRecord
	mu      sync.Mutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		items: make(map[string]*domain.QueueItem),
	}
}

// -----------------------------------------------------------------------------
// Queue Repository
// -----------------------------------------------------------------------------

type QueueRepo struct {
	store *MemoryStorage
}

func NewQueueRepo(store *MemoryStorage) *QueueRepo {
	return &QueueRepo{store: store}
}

func (r *QueueRepo) Add(ctx context.Context, item *domain.QueueItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *item
	r.store.items[item.ID] = &cp
	return nil
}

func (r *QueueRepo) ClaimNext(ctx context.Context, now time.Time, criticalOnly bool) (*domain.QueueItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var eligible []*domain.QueueItem
	for _, it := range r.store.items {
		if it.Status != domain.QueueStatusPending || it.NextEligibleAt.After(now) {
			continue
		}
		if criticalOnly && it.Priority != domain.PriorityCritical {
			continue
		}
		eligible = append(eligible, it)
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	sort.Slice(eligible, func(i, j int) bool {
		ri, rj := eligible[i].Priority.Rank(), eligible[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
	})

	next := eligible[0]
	next.Status = domain.QueueStatusInFlight
	cp := *next
	return &cp, nil
}

func (r *QueueRepo) MarkDelivered(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.items[id]; !ok {
		return storage.ErrNotFound
	}
	delete(r.store.items, id)
	return nil
}

func (r *QueueRepo) Release(ctx context.Context, id string, nextEligibleAt time.Time, lastError string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	it, ok := r.store.items[id]
	if !ok {
		return storage.ErrNotFound
	}
	it.Status = domain.QueueStatusPending
	it.Attempts++
	it.NextEligibleAt = nextEligibleAt
	it.LastError = lastError
	return nil
}

func (r *QueueRepo) MarkDead(ctx context.Context, id string, lastError string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	it, ok := r.store.items[id]
	if !ok {
		return storage.ErrNotFound
	}
	it.Status = domain.QueueStatusDead
	it.Attempts++
	it.LastError = lastError
	return nil
}

func (r *QueueRepo) RequeueInFlight(ctx context.Context) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	count := 0
	for _, it := range r.store.items {
		if it.Status == domain.QueueStatusInFlight {
			it.Status = domain.QueueStatusPending
			count++
		}
	}
	return count, nil
}

func (r *QueueRepo) DeadLetters(ctx context.Context) ([]*domain.QueueItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var dead []*domain.QueueItem
	for _, it := range r.store.items {
		if it.Status == domain.QueueStatusDead {
			cp := *it
			dead = append(dead, &cp)
		}
	}
	sort.Slice(dead, func(i, j int) bool {
		return dead[i].CreatedAt.Before(dead[j].CreatedAt)
	})
	return dead, nil
}

func (r *QueueRepo) PurgeDead(ctx context.Context) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	count := 0
	for id, it := range r.store.items {
		if it.Status == domain.QueueStatusDead {
			delete(r.store.items, id)
			count++
		}
	}
	return count, nil
}

func (r *QueueRepo) Counts(ctx context.Context) (domain.QueueCounts, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var c domain.QueueCounts
	for _, it := range r.store.items {
		switch it.Status {
		case domain.QueueStatusPending:
			c.Pending++
		case domain.QueueStatusInFlight:
			c.InFlight++
		case domain.QueueStatusDead:
			c.Dead++
		}
	}
	return c, nil
}

// -----------------------------------------------------------------------------
// Recovery History Repository
// -----------------------------------------------------------------------------

type HistoryRepo struct {
	store *MemoryStorage
}

func NewHistoryRepo(store *MemoryStorage) *HistoryRepo {
	return &HistoryRepo{store: store}
}

func (r *HistoryRepo) Append(ctx context.Context, rec *domain.RecoveryRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *rec
	r.store.history = append(r.store.history, &cp)
	return nil
}

func (r *HistoryRepo) Recent(ctx context.Context, cause domain.Cause, limit int) ([]*domain.RecoveryRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.RecoveryRecord
	for i := len(r.store.history) - 1; i >= 0 && len(out) < limit; i-- {
		if r.store.history[i].Cause == cause {
			cp := *r.store.history[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}
