package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *AppConfig) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Cloud.PushTimeout == 0 {
		cfg.Cloud.PushTimeout = 10 * time.Second
	}
	if cfg.Cloud.DeviceID == "" {
		cfg.Cloud.DeviceID = "unknown"
	}

	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 10000
	}
	if cfg.Cache.TextTTL == 0 {
		cfg.Cache.TextTTL = 24 * time.Hour
	}
	if cfg.Cache.AudioTTL == 0 {
		cfg.Cache.AudioTTL = time.Hour
	}
	if cfg.Cache.SnapshotInterval == 0 {
		cfg.Cache.SnapshotInterval = 5 * time.Minute
	}
	if cfg.Cache.SnapshotPath == "" {
		cfg.Cache.SnapshotPath = "data/cache_snapshot.json"
	}

	if cfg.Queue.MaxAttempts == 0 {
		cfg.Queue.MaxAttempts = 5
	}
	if cfg.Queue.InitialBackoff == 0 {
		cfg.Queue.InitialBackoff = 2 * time.Second
	}
	if cfg.Queue.MaxBackoff == 0 {
		cfg.Queue.MaxBackoff = 60 * time.Second
	}
	if cfg.Queue.BatchSize == 0 {
		cfg.Queue.BatchSize = 25
	}
	if cfg.Queue.DrainInterval == 0 {
		cfg.Queue.DrainInterval = 10 * time.Second
	}

	if cfg.Monitor.ProbeInterval == 0 {
		cfg.Monitor.ProbeInterval = 15 * time.Second
	}
	if cfg.Monitor.ProbeTimeout == 0 {
		cfg.Monitor.ProbeTimeout = 5 * time.Second
	}
	if cfg.Monitor.FailureThreshold == 0 {
		cfg.Monitor.FailureThreshold = 3
	}
	if cfg.Monitor.WindowSize == 0 {
		cfg.Monitor.WindowSize = 60
	}
	// Negative disables risk events entirely; the monitor only fires them
	// for a positive threshold.
	if cfg.Monitor.RiskThreshold == 0 {
		cfg.Monitor.RiskThreshold = 0.7
	}

	if cfg.Recovery.MaxAttempts == 0 {
		cfg.Recovery.MaxAttempts = 3
	}
	if cfg.Recovery.CooldownPeriod == 0 {
		cfg.Recovery.CooldownPeriod = 2 * time.Minute
	}
}
