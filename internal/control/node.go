package control

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/config"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/core/domain"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/infra/cloud"
	redisclient "github.com/sreejagatab/medtranslate-ai-sub006/internal/infra/redis"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/infra/storage"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/infra/storage/memory"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/infra/storage/postgres"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/resilience/cache"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/resilience/monitor"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/resilience/recovery"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/resilience/syncqueue"
)

// Node is the edge translation node: it owns every resilience component and
// manages their lifecycle.
type Node struct {
	cfg config.AppConfig

	cache       *cache.Cache
	snapshotter *cache.Snapshotter
	janitor     *cache.Janitor
	queue       *syncqueue.Queue
	reconciler  *syncqueue.Reconciler
	gate        *syncqueue.Gate
	mon         *monitor.Monitor
	engine      *recovery.Engine
	translator  *Translator
	server      *Server
	netctl      *cloud.NetworkController

	db          *postgres.DB
	redisClient *redisclient.Client
	grpcProber  *cloud.GRPCProber

	log    *slog.Logger
	cancel context.CancelFunc
}

// NewNode creates a node with all dependencies initialized. A nil infer
// falls back to the development dictionary inferencer.
func NewNode(ctx context.Context, cfg config.AppConfig, infer InferFunc) (*Node, error) {
	if infer == nil {
		infer = MockInfer
	}

	n := &Node{cfg: cfg, log: slog.Default()}

	// 1. Storage: Postgres when configured, memory otherwise. A failed
	// Postgres connection degrades to memory so the node keeps serving.
	var queueRepo storage.QueueRepository
	var historyRepo storage.RecoveryHistoryRepository

	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			slog.Warn("Failed to init Postgres, falling back to memory storage", "error", err)
		} else {
			n.db = db
			queueRepo = postgres.NewQueueRepo(db)
			historyRepo = postgres.NewHistoryRepo(db)
			slog.Info("Using PostgreSQL storage")
		}
	}
	if queueRepo == nil {
		store := memory.NewMemoryStorage()
		queueRepo = memory.NewQueueRepo(store)
		historyRepo = memory.NewHistoryRepo(store)
		slog.Info("Using memory storage; queue will not survive restarts")
	}

	// 2. Cache, snapshot store (Redis when configured, file otherwise),
	// background expiry.
	n.cache = cache.New(cfg.Cache.MaxEntries)

	var snapStore cache.SnapshotStore
	if cfg.Redis.URL != "" {
		rc, err := redisclient.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("Failed to connect to Redis, using file snapshots", "error", err)
		} else {
			n.redisClient = rc
			snapStore = redisclient.NewSnapshotStore(rc)
			slog.Info("Using Redis cache snapshots")
		}
	}
	if snapStore == nil {
		snapStore = cache.NewFileStore(cfg.Cache.SnapshotPath)
	}
	n.snapshotter = cache.NewSnapshotter(n.cache, snapStore, cfg.Cache.SnapshotInterval)
	n.janitor = cache.NewJanitor(n.cache, minTTL(cfg.Cache.TextTTL, cfg.Cache.AudioTTL))

	// 3. Network path to the central service.
	n.netctl = cloud.NewNetworkController(cfg.Cloud.AltResolvers, cfg.Cloud.AltInterfaces)
	client := cloud.NewHTTPClient(cfg.Cloud.URL, cfg.Cloud.DeviceID, cfg.Cloud.PushTimeout, n.netctl)

	var prober monitor.Prober = cloud.NewHTTPProber(cfg.Cloud.URL, cfg.Monitor.ProbeTimeout, client)
	if cfg.Cloud.GRPCURL != "" {
		gp, err := cloud.NewGRPCProber(ctx, cfg.Cloud.GRPCURL, cfg.Monitor.ProbeTimeout)
		if err != nil {
			slog.Warn("Failed to init gRPC prober, probing over HTTP", "error", err)
		} else {
			n.grpcProber = gp
			prober = gp
		}
	}

	// 4. Monitor, queue, reconciler.
	n.mon = monitor.New(monitor.Config{
		ProbeInterval:    cfg.Monitor.ProbeInterval,
		FailureThreshold: cfg.Monitor.FailureThreshold,
		WindowSize:       cfg.Monitor.WindowSize,
		RiskThreshold:    cfg.Monitor.RiskThreshold,
	}, prober, monitor.NewBus())

	backoff := syncqueue.Backoff{Initial: cfg.Queue.InitialBackoff, Max: cfg.Queue.MaxBackoff}
	n.queue = syncqueue.NewQueue(queueRepo, backoff, cfg.Queue.MaxAttempts)
	n.gate = &syncqueue.Gate{}
	n.reconciler = syncqueue.NewReconciler(syncqueue.ReconcilerConfig{
		DrainInterval:     cfg.Queue.DrainInterval,
		PushTimeout:       cfg.Cloud.PushTimeout,
		BatchSize:         cfg.Queue.BatchSize,
		CanonicalTextTTL:  cfg.Cache.TextTTL,
		CanonicalAudioTTL: cfg.Cache.AudioTTL,
	}, n.queue, client, n.mon, n.cache, n.gate)

	// 5. Recovery engine reacting to monitor events.
	tracker := recovery.NewTracker(historyRepo)
	strategies := recovery.BuildStrategySet(n.netctl, n.reconciler, n.gate, n.mon)
	n.engine = recovery.NewEngine(recovery.Config{
		Enabled:          cfg.Recovery.Enabled,
		ProactiveEnabled: cfg.Recovery.ProactiveEnabled,
		MaxAttempts:      cfg.Recovery.MaxAttempts,
		Cooldown:         cfg.Recovery.CooldownPeriod,
		Strategies:       cfg.Recovery.Strategies,
	}, n.mon, tracker, strategies)

	// 6. Request path and HTTP surface.
	n.translator = NewTranslator(n.cache, n.queue, infer, cfg.Cache.TextTTL, cfg.Cache.AudioTTL)
	n.server = NewServer(n, cfg.Server.Port)

	return n, nil
}

// Start restores persisted state, wires event handlers, and launches every
// background worker. It returns once everything is running.
func (n *Node) Start(ctx context.Context) error {
	ctx, n.cancel = context.WithCancel(ctx)

	// Restore: cache snapshot and orphaned in-flight queue items.
	if err := n.snapshotter.Restore(ctx); err != nil {
		n.log.Warn("Cache snapshot restore failed, starting cold", "error", err)
	}
	if err := n.queue.Recover(ctx); err != nil {
		n.log.Warn("Queue recovery failed", "error", err)
	}

	// Link events: back online → reset throttling and drain immediately;
	// offline/risk → recovery episodes.
	n.mon.On(monitor.EventOnline, func(p monitor.Payload) {
		n.reconciler.ResetThrottle()
		n.reconciler.DrainNow()
	})
	n.mon.On(monitor.EventOffline, func(p monitor.Payload) {
		n.engine.HandleOffline(ctx, p.State)
	})
	n.mon.On(monitor.EventRisk, func(p monitor.Payload) {
		n.engine.HandleRisk(ctx, p.State)
	})

	go func() {
		if err := n.server.Start(); err != nil {
			n.log.Error("HTTP server failed", "error", err)
		}
	}()

	go func() {
		if err := n.mon.Start(ctx); err != nil {
			n.log.Error("Connectivity monitor failed", "error", err)
		}
	}()

	go func() {
		if err := n.reconciler.Start(ctx); err != nil {
			n.log.Error("Reconciler failed", "error", err)
		}
	}()

	go func() {
		if err := n.snapshotter.Start(ctx); err != nil {
			n.log.Error("Cache snapshotter failed", "error", err)
		}
	}()

	go n.janitor.Start(ctx)

	n.log.Info("Edge node started", "port", n.cfg.Server.Port, "device_id", n.cfg.Cloud.DeviceID)
	return nil
}

// Stop shuts everything down and flushes the cache snapshot so a restart
// comes back warm.
func (n *Node) Stop(ctx context.Context) error {
	n.log.Info("Stopping edge node...")

	n.mon.Stop()
	n.reconciler.Stop()
	n.snapshotter.Stop()
	if n.cancel != nil {
		n.cancel()
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := n.snapshotter.Flush(flushCtx); err != nil {
		n.log.Warn("Final cache snapshot failed", "error", err)
	}

	if n.grpcProber != nil {
		if err := n.grpcProber.Close(); err != nil {
			n.log.Warn("Failed to close gRPC prober", "error", err)
		}
	}
	if n.redisClient != nil {
		if err := n.redisClient.Close(); err != nil {
			n.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if n.db != nil {
		if err := n.db.Close(); err != nil {
			n.log.Warn("Failed to close Postgres", "error", err)
		}
	}

	return n.server.Stop(ctx)
}

func minTTL(a, b time.Duration) time.Duration {
	if b > 0 && (a <= 0 || b < a) {
		return b
	}
	if a <= 0 {
		return time.Hour
	}
	return a
}

// Version is reported on the health endpoints.
const Version = "1.0.0"

// Health summarizes node state for the health endpoints.
type Health struct {
	Status           string             `json:"status"`
	Version          string             `json:"version"`
	Link             domain.LinkState   `json:"link"`
	Queue            domain.QueueCounts `json:"queue"`
	Cache            domain.CacheStats  `json:"cache"`
	Recovery         string             `json:"recovery_state"`
	LastSyncAt       *time.Time         `json:"last_sync_at,omitempty"`
	SnapshotDegraded bool               `json:"snapshot_degraded"`
}

func (n *Node) health(ctx context.Context) (Health, error) {
	counts, err := n.queue.Counts(ctx)
	if err != nil {
		return Health{}, fmt.Errorf("queue counts: %w", err)
	}
	link := n.mon.Status()

	status := "healthy"
	switch {
	case !link.Online:
		status = "degraded" // still serving, cache + queue absorb the outage
	case counts.Dead > 0:
		status = "degraded"
	}

	h := Health{
		Status:           status,
		Version:          Version,
		Link:             link,
		Queue:            counts,
		Cache:            n.cache.Stats(),
		Recovery:         string(n.engine.State()),
		SnapshotDegraded: n.snapshotter.Degraded(),
	}
	if last := n.reconciler.LastSyncAt(); !last.IsZero() {
		h.LastSyncAt = &last
	}
	return h, nil
}
