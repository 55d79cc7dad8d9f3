package syncqueue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/infra/cloud"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/infra/storage/memory"
)

// =============================================================================
// Mocks
// =============================================================================

type mockClient struct {
	mu     sync.Mutex
	pushed []string // item ids in push order
	failID string   // id that fails every push
	acks   map[string]*cloud.Ack
}

func (m *mockClient) Push(ctx context.Context, item *domain.QueueItem) (*cloud.Ack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushed = append(m.pushed, item.ID)
	if item.ID == m.failID {
		return nil, errors.New("push timeout")
	}
	if ack, ok := m.acks[item.ID]; ok {
		return ack, nil
	}
	return &cloud.Ack{ID: item.ID}, nil
}

func (m *mockClient) pushOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string{}, m.pushed...)
}

type mockLink struct {
	mu     sync.Mutex
	online bool
}

func (m *mockLink) Status() domain.LinkState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.LinkState{Online: m.online}
}

type mockApplier struct {
	mu      sync.Mutex
	applied []string // fingerprints
	ttls    []time.Duration
}

func (m *mockApplier) ApplyCanonical(fingerprint string, value domain.Result, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applied = append(m.applied, fingerprint)
	m.ttls = append(m.ttls, ttl)
}

func newTestReconciler(client cloud.Client, link LinkStatus, applier CanonicalApplier) (*Reconciler, *Queue) {
	store := memory.NewMemoryStorage()
	queue := NewQueue(memory.NewQueueRepo(store), DefaultBackoff(), 5)
	rec := NewReconciler(ReconcilerConfig{
		DrainInterval:     time.Minute,
		PushTimeout:       time.Second,
		BatchSize:         25,
		CanonicalTextTTL:  24 * time.Hour,
		CanonicalAudioTTL: time.Hour,
	}, queue, client, link, applier, &Gate{})
	return rec, queue
}

// =============================================================================
// Tests
// =============================================================================

func TestReconciler_DrainDeliversInPriorityOrder(t *testing.T) {
	client := &mockClient{}
	rec, queue := newTestReconciler(client, &mockLink{online: true}, &mockApplier{})
	ctx := context.Background()

	low1ID, _ := queue.Enqueue(ctx, domain.KindTextResult, domain.PriorityLow, nil)
	low2ID, _ := queue.Enqueue(ctx, domain.KindTextResult, domain.PriorityLow, nil)
	critID, _ := queue.Enqueue(ctx, domain.KindTextResult, domain.PriorityCritical, nil)

	// The second low item's push times out.
	client.failID = low2ID

	rec.drainPass(ctx)

	want := []string{critID, low1ID, low2ID}
	got := client.pushOrder()
	if len(got) != len(want) {
		t.Fatalf("expected %d pushes, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("push %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	// Delivered items are gone; the failed one reverted to pending with one
	// recorded attempt behind a backoff gate.
	counts, _ := queue.Counts(ctx)
	if counts.Pending != 1 || counts.InFlight != 0 || counts.Dead != 0 {
		t.Fatalf("unexpected queue state: %+v", counts)
	}
	item, _ := queue.claimNext(ctx, time.Now().Add(time.Minute), false)
	if item == nil {
		t.Fatal("failed item should still be in the queue")
	}
	if item.ID != low2ID || item.Attempts != 1 {
		t.Errorf("expected %s with attempts=1, got %s attempts=%d", low2ID, item.ID, item.Attempts)
	}
}

func TestReconciler_NoDrainWhileOffline(t *testing.T) {
	client := &mockClient{}
	rec, queue := newTestReconciler(client, &mockLink{online: false}, &mockApplier{})
	ctx := context.Background()

	queue.Enqueue(ctx, domain.KindTextResult, domain.PriorityCritical, nil)

	rec.drainPass(ctx)

	if len(client.pushOrder()) != 0 {
		t.Error("reconciler must not push while the link is offline")
	}
	counts, _ := queue.Counts(ctx)
	if counts.Pending != 1 {
		t.Errorf("item should remain pending, got %+v", counts)
	}
}

func TestReconciler_AppliesCanonicalOverwrite(t *testing.T) {
	client := &mockClient{acks: map[string]*cloud.Ack{}}
	applier := &mockApplier{}
	rec, queue := newTestReconciler(client, &mockLink{online: true}, applier)
	ctx := context.Background()

	id, _ := queue.Enqueue(ctx, domain.KindTextResult, domain.PriorityMedium, nil)
	client.acks[id] = &cloud.Ack{
		ID: id,
		Canonical: &cloud.CanonicalValue{
			Fingerprint: "fp-1",
			Value:       domain.Result{TranslatedText: "canonical"},
		},
	}

	rec.drainPass(ctx)

	if len(applier.applied) != 1 || applier.applied[0] != "fp-1" {
		t.Errorf("expected canonical overwrite for fp-1, got %v", applier.applied)
	}
}

func TestReconciler_CanonicalTTLFollowsItemKind(t *testing.T) {
	client := &mockClient{acks: map[string]*cloud.Ack{}}
	applier := &mockApplier{}
	rec, queue := newTestReconciler(client, &mockLink{online: true}, applier)
	ctx := context.Background()

	textID, _ := queue.Enqueue(ctx, domain.KindTextResult, domain.PriorityHigh, nil)
	audioID, _ := queue.Enqueue(ctx, domain.KindAudioResult, domain.PriorityMedium, nil)
	client.acks[textID] = &cloud.Ack{
		ID:        textID,
		Canonical: &cloud.CanonicalValue{Fingerprint: "fp-text"},
	}
	client.acks[audioID] = &cloud.Ack{
		ID:        audioID,
		Canonical: &cloud.CanonicalValue{Fingerprint: "fp-audio"},
	}

	rec.drainPass(ctx)

	if len(applier.applied) != 2 {
		t.Fatalf("expected 2 canonical overwrites, got %d", len(applier.applied))
	}
	for i, fp := range applier.applied {
		switch fp {
		case "fp-text":
			if applier.ttls[i] != 24*time.Hour {
				t.Errorf("text canonical should carry the text TTL, got %v", applier.ttls[i])
			}
		case "fp-audio":
			if applier.ttls[i] != time.Hour {
				t.Errorf("audio canonical should carry the audio TTL, got %v", applier.ttls[i])
			}
		default:
			t.Errorf("unexpected canonical fingerprint %q", fp)
		}
	}
}

// dedupClient simulates a central service that committed an item but whose
// ack was lost to a timeout: the first push of the marked id errors after
// being recorded, and every later push of a seen id acks as a duplicate.
type dedupClient struct {
	mu        sync.Mutex
	loseAckID string
	seen      map[string]int
}

func (m *dedupClient) Push(ctx context.Context, item *domain.QueueItem) (*cloud.Ack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = make(map[string]int)
	}
	m.seen[item.ID]++
	if m.seen[item.ID] > 1 {
		return &cloud.Ack{ID: item.ID, Duplicate: true}, nil
	}
	if item.ID == m.loseAckID {
		return nil, errors.New("push timeout")
	}
	return &cloud.Ack{ID: item.ID}, nil
}

func TestReconciler_RedeliveryAfterLostAckIsDuplicateNoOp(t *testing.T) {
	client := &dedupClient{}
	store := memory.NewMemoryStorage()
	// Zero backoff so the redelivery is eligible on the next pass; batch of
	// one so the retry lands in a separate pass.
	queue := NewQueue(memory.NewQueueRepo(store), Backoff{}, 5)
	rec := NewReconciler(ReconcilerConfig{
		DrainInterval: time.Minute,
		PushTimeout:   time.Second,
		BatchSize:     1,
	}, queue, client, &mockLink{online: true}, &mockApplier{}, &Gate{})
	ctx := context.Background()

	id, _ := queue.Enqueue(ctx, domain.KindTextResult, domain.PriorityHigh, nil)
	client.loseAckID = id

	// First pass: the service commits the item but the ack is lost, so the
	// item reverts to pending with a recorded attempt.
	rec.drainPass(ctx)
	counts, _ := queue.Counts(ctx)
	if counts.Pending != 1 {
		t.Fatalf("item should be pending for retry after a lost ack, got %+v", counts)
	}

	// Second pass: the same id is redelivered and the service acks it as a
	// duplicate without error, so the item is delivered exactly once.
	rec.drainPass(ctx)
	counts, _ = queue.Counts(ctx)
	if counts.Pending != 0 || counts.InFlight != 0 || counts.Dead != 0 {
		t.Fatalf("duplicate ack should clear the item, got %+v", counts)
	}
	if got := client.seen[id]; got != 2 {
		t.Errorf("expected exactly 2 pushes of the same id, got %d", got)
	}

	// Nothing left: a third pass pushes nothing.
	rec.drainPass(ctx)
	if got := client.seen[id]; got != 2 {
		t.Errorf("delivered item must not be pushed again, got %d pushes", got)
	}
}

func TestReconciler_ModelVersionAckedOnce(t *testing.T) {
	client := &mockClient{acks: map[string]*cloud.Ack{}}
	rec, queue := newTestReconciler(client, &mockLink{online: true}, &mockApplier{})
	ctx := context.Background()

	id1, _ := queue.Enqueue(ctx, domain.KindTextResult, domain.PriorityMedium, nil)
	id2, _ := queue.Enqueue(ctx, domain.KindTextResult, domain.PriorityMedium, nil)
	client.acks[id1] = &cloud.Ack{ID: id1, ModelVersion: "v7"}
	client.acks[id2] = &cloud.Ack{ID: id2, ModelVersion: "v7"}

	rec.drainPass(ctx)
	// Second pass delivers the model-update-ack item itself; it must not
	// spawn another.
	rec.drainPass(ctx)

	pushed := client.pushOrder()
	if len(pushed) != 3 {
		t.Fatalf("expected 3 pushes (2 results + 1 model ack), got %d", len(pushed))
	}
	counts, _ := queue.Counts(ctx)
	if counts.Pending != 0 {
		t.Errorf("expected an empty queue, got %+v", counts)
	}
}

func TestReconciler_DeferNonCritical(t *testing.T) {
	client := &mockClient{}
	rec, queue := newTestReconciler(client, &mockLink{online: true}, &mockApplier{})
	ctx := context.Background()

	lowID, _ := queue.Enqueue(ctx, domain.KindTextResult, domain.PriorityLow, nil)
	critID, _ := queue.Enqueue(ctx, domain.KindTextResult, domain.PriorityCritical, nil)

	rec.DeferNonCritical(time.Now().Add(time.Hour))
	rec.drainPass(ctx)

	pushed := client.pushOrder()
	if len(pushed) != 1 || pushed[0] != critID {
		t.Fatalf("only the critical item should drain during a deferral, got %v", pushed)
	}

	// The deferred item is untouched: still pending, no attempts consumed.
	item, _ := queue.claimNext(ctx, time.Now(), false)
	if item == nil || item.ID != lowID {
		t.Fatal("expected the low item to still be claimable outside the deferral")
	}
	if item.Attempts != 0 {
		t.Errorf("deferral must not consume attempts, got %d", item.Attempts)
	}
}

func TestReconciler_ThrottleShrinksBatch(t *testing.T) {
	client := &mockClient{}
	rec, queue := newTestReconciler(client, &mockLink{online: true}, &mockApplier{})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		queue.Enqueue(ctx, domain.KindTextResult, domain.PriorityMedium, nil)
	}

	// 25 -> 12 -> 6 -> 3 -> 1
	for i := 0; i < 4; i++ {
		rec.Throttle()
	}

	rec.drainPass(ctx)
	if n := len(client.pushOrder()); n != 1 {
		t.Errorf("throttled pass should push a single item, got %d", n)
	}

	rec.ResetThrottle()
	rec.drainPass(ctx)
	if n := len(client.pushOrder()); n != 4 {
		t.Errorf("reset pass should drain the rest, got %d total pushes", n)
	}
}
