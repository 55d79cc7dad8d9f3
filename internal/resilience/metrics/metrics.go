package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache lookups that returned a live entry
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edge_cache_hits_total",
			Help: "Total number of translation cache hits",
		},
	)

	// CacheMisses tracks cache lookups that fell through to inference
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edge_cache_misses_total",
			Help: "Total number of translation cache misses",
		},
	)

	// CacheEvictions tracks entries removed by TTL or capacity pressure
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_cache_evictions_total",
			Help: "Total number of cache evictions",
		},
		[]string{"reason"},
	)

	// CacheSize tracks the current number of live cache entries
	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "edge_cache_entries",
			Help: "Current number of cache entries",
		},
	)

	// QueueDepth tracks sync queue depth per status
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "edge_sync_queue_depth",
			Help: "Sync queue depth per status",
		},
		[]string{"status"},
	)

	// QueueEnqueued tracks items accepted into the sync queue
	QueueEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_sync_queue_enqueued_total",
			Help: "Total items enqueued for sync",
		},
		[]string{"kind", "priority"},
	)

	// PushesTotal tracks delivery attempts against the central service
	PushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_sync_pushes_total",
			Help: "Total delivery attempts",
		},
		[]string{"result"},
	)

	// PushLatency tracks delivery latency
	PushLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "edge_sync_push_latency_seconds",
			Help:    "Delivery latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// DeadLetters tracks items that exhausted their delivery attempts
	DeadLetters = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "edge_sync_dead_letters_total",
			Help: "Total items moved to the dead-letter status",
		},
	)

	// ProbesTotal tracks connectivity probes by outcome
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_probes_total",
			Help: "Total connectivity probes",
		},
		[]string{"result"},
	)

	// LinkOnline is 1 while the monitor reports the link online
	LinkOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "edge_link_online",
			Help: "1 if the link to the central service is online",
		},
	)

	// LinkRiskScore tracks the predictive risk score
	LinkRiskScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "edge_link_risk_score",
			Help: "Predictive link failure risk (0..1)",
		},
	)

	// RecoveryAttempts tracks recovery episodes by cause and outcome
	RecoveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_recovery_attempts_total",
			Help: "Total recovery episodes",
		},
		[]string{"cause", "outcome"},
	)

	// TranslationsTotal tracks served translations by source
	TranslationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edge_translations_total",
			Help: "Total translations served",
		},
		[]string{"source"},
	)
)
