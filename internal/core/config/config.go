package config

import (
	"time"

	redisclient "github.com/sreejagatab/medtranslate-ai-sub006/internal/infra/redis"
	"github.com/sreejagatab/medtranslate-ai-sub006/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Cloud    CloudConfig        `yaml:"cloud"`
	Cache    CacheConfig        `yaml:"cache"`
	Queue    QueueConfig        `yaml:"queue"`
	Monitor  MonitorConfig      `yaml:"monitor"`
	Recovery RecoveryConfig     `yaml:"recovery"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// CloudConfig holds central-service connection settings.
type CloudConfig struct {
	URL         string        `yaml:"url"`
	GRPCURL     string        `yaml:"grpc_url"` // optional, enables gRPC health probing
	DeviceID    string        `yaml:"device_id"`
	PushTimeout time.Duration `yaml:"push_timeout"`
	// Fallback DNS resolvers and local source addresses the recovery engine
	// may switch to. Resolvers are host:port, interfaces are local IPs.
	AltResolvers  []string `yaml:"alt_resolvers"`
	AltInterfaces []string `yaml:"alt_interfaces"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	MaxEntries       int           `yaml:"max_entries"`
	TextTTL          time.Duration `yaml:"text_ttl"`
	AudioTTL         time.Duration `yaml:"audio_ttl"`
	SnapshotPath     string        `yaml:"snapshot_path"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
}

// QueueConfig holds sync queue and reconciler settings.
type QueueConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	BatchSize      int           `yaml:"batch_size"`
	DrainInterval  time.Duration `yaml:"drain_interval"`
}

// MonitorConfig holds connectivity monitor settings.
type MonitorConfig struct {
	ProbeInterval    time.Duration `yaml:"probe_interval"`
	ProbeTimeout     time.Duration `yaml:"probe_timeout"`
	FailureThreshold int           `yaml:"failure_threshold"` // sustained failures before Offline
	WindowSize       int           `yaml:"window_size"`       // probe history window
	RiskThreshold    float64       `yaml:"risk_threshold"`    // 0 means default; negative disables risk events
}

// RecoveryConfig holds recovery engine settings.
type RecoveryConfig struct {
	Enabled          bool            `yaml:"enabled"`
	ProactiveEnabled bool            `yaml:"proactive_enabled"`
	MaxAttempts      int             `yaml:"max_attempts"`
	CooldownPeriod   time.Duration   `yaml:"cooldown_period"`
	Strategies       map[string]bool `yaml:"strategies"` // per-strategy toggles, default on
}
