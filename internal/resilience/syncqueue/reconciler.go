package syncqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/infra/cloud"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/resilience/metrics"
)

// LinkStatus is the read-only view of the monitor the reconciler needs.
type LinkStatus interface {
	Status() domain.LinkState
}

// CanonicalApplier is the cache's cloud-authoritative overwrite hook.
type CanonicalApplier interface {
	ApplyCanonical(fingerprint string, value domain.Result, ttl time.Duration)
}

// ReconcilerConfig holds drain loop settings.
type ReconcilerConfig struct {
	DrainInterval time.Duration
	PushTimeout   time.Duration
	BatchSize     int // max items per pass, before throttling
	// Canonical overwrites inherit the TTL of the item kind they rode in on.
	CanonicalTextTTL  time.Duration
	CanonicalAudioTTL time.Duration
}

// Reconciler drains the sync queue to the central service while the link is
// online. One pass claims items in strict priority order (FIFO within a
// tier), pushes each with a timeout, and applies any canonical artifacts the
// service returns alongside acks.
type Reconciler struct {
	cfg    ReconcilerConfig
	queue  *Queue
	client cloud.Client
	link   LinkStatus
	cache  CanonicalApplier
	gate   *Gate

	mu               sync.Mutex
	batchSize        int // current, possibly throttled
	deferUntil       time.Time
	lastModelVersion string
	lastSyncAt       time.Time

	running atomic.Bool
	stop    chan struct{}
	kick    chan struct{}
}

func NewReconciler(cfg ReconcilerConfig, queue *Queue, client cloud.Client, link LinkStatus, cache CanonicalApplier, gate *Gate) *Reconciler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = 10 * time.Second
	}
	if cfg.CanonicalTextTTL <= 0 {
		cfg.CanonicalTextTTL = 24 * time.Hour
	}
	if cfg.CanonicalAudioTTL <= 0 {
		cfg.CanonicalAudioTTL = time.Hour
	}
	return &Reconciler{
		cfg:       cfg,
		queue:     queue,
		client:    client,
		link:      link,
		cache:     cache,
		gate:      gate,
		batchSize: cfg.BatchSize,
		stop:      make(chan struct{}),
		kick:      make(chan struct{}, 1),
	}
}

// Start runs the drain loop until the context is canceled or Stop is
// called.
func (r *Reconciler) Start(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return fmt.Errorf("reconciler already running")
	}
	defer r.running.Store(false)

	ticker := time.NewTicker(r.cfg.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.stop:
			return nil
		case <-ticker.C:
			r.drainPass(ctx)
		case <-r.kick:
			r.drainPass(ctx)
		}
	}
}

// Stop halts the loop. An in-flight pass finishes its current push; a push
// interrupted by context cancellation fails cleanly and the item reverts to
// pending.
func (r *Reconciler) Stop() {
	if r.running.Load() {
		close(r.stop)
	}
}

// DrainNow requests an immediate pass (manual sync trigger).
func (r *Reconciler) DrainNow() {
	select {
	case r.kick <- struct{}{}:
	default: // a pass is already scheduled
	}
}

// Throttle shrinks the per-pass batch while the link is congested or
// bandwidth-limited. Strategies call this; ResetThrottle undoes it.
func (r *Reconciler) Throttle() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batchSize = max(1, r.batchSize/2)
	return r.batchSize
}

// ResetThrottle restores the configured batch size.
func (r *Reconciler) ResetThrottle() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batchSize = r.cfg.BatchSize
}

// LastSyncAt reports when the last item was successfully delivered. Zero
// until the first delivery.
func (r *Reconciler) LastSyncAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSyncAt
}

// DeferNonCritical postpones non-critical sync work until the given time.
// Critical items keep flowing.
func (r *Reconciler) DeferNonCritical(until time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deferUntil = until
}

func (r *Reconciler) drainPass(ctx context.Context) {
	if !r.link.Status().Online {
		return
	}

	r.gate.BeginDrain()
	defer r.gate.EndDrain()

	r.mu.Lock()
	batch := r.batchSize
	deferUntil := r.deferUntil
	r.mu.Unlock()

	for i := 0; i < batch; i++ {
		if ctx.Err() != nil {
			return
		}
		if !r.link.Status().Online {
			return
		}

		now := time.Now()
		criticalOnly := now.Before(deferUntil)

		item, err := r.queue.claimNext(ctx, now, criticalOnly)
		if err != nil {
			slog.Warn("Failed to claim next queue item", "error", err)
			return
		}
		if item == nil {
			return
		}

		r.pushOne(ctx, item)
	}
}

func (r *Reconciler) pushOne(ctx context.Context, item *domain.QueueItem) {
	pushCtx, cancel := context.WithTimeout(ctx, r.cfg.PushTimeout)
	defer cancel()

	start := time.Now()
	ack, err := r.client.Push(pushCtx, item)
	metrics.PushLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		// A timed-out push is a failure for backoff purposes, never a hang.
		if ferr := r.queue.handleFailure(ctx, item, err); ferr != nil {
			slog.Error("Failed to record push failure", "id", item.ID, "error", ferr)
		}
		return
	}

	if err := r.queue.markDelivered(ctx, item); err != nil {
		slog.Error("Failed to mark item delivered", "id", item.ID, "error", err)
		return
	}
	r.mu.Lock()
	r.lastSyncAt = time.Now()
	r.mu.Unlock()
	if ack.Duplicate {
		slog.Debug("Central service deduplicated item", "id", item.ID)
	}

	r.applyArtifacts(ctx, item, ack)
}

// applyArtifacts handles the canonical values and model versions the
// central service piggybacks on acks. This is the only path that may
// overwrite a local cache entry.
func (r *Reconciler) applyArtifacts(ctx context.Context, item *domain.QueueItem, ack *cloud.Ack) {
	if ack.Canonical != nil && r.cache != nil {
		ttl := r.cfg.CanonicalTextTTL
		if item.Kind == domain.KindAudioResult {
			ttl = r.cfg.CanonicalAudioTTL
		}
		r.cache.ApplyCanonical(ack.Canonical.Fingerprint, ack.Canonical.Value, ttl)
		slog.Info("Applied canonical cache entry from central service",
			"fingerprint", ack.Canonical.Fingerprint)
	}

	if ack.ModelVersion == "" || item.Kind == domain.KindModelUpdateAck {
		return
	}
	r.mu.Lock()
	seen := r.lastModelVersion == ack.ModelVersion
	if !seen {
		r.lastModelVersion = ack.ModelVersion
	}
	r.mu.Unlock()
	if seen {
		return
	}

	payload, err := json.Marshal(map[string]string{"modelVersion": ack.ModelVersion})
	if err != nil {
		return
	}
	if _, err := r.queue.Enqueue(ctx, domain.KindModelUpdateAck, domain.PriorityLow, payload); err != nil {
		slog.Warn("Failed to enqueue model update ack", "version", ack.ModelVersion, "error", err)
	}
}
