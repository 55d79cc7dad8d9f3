package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
cloud:
  url: "http://cloud.example.com"
  device_id: "edge-01"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("expected default port 3000, got %d", cfg.Server.Port)
	}
	if cfg.Cache.TextTTL != 24*time.Hour {
		t.Errorf("expected default text TTL 24h, got %v", cfg.Cache.TextTTL)
	}
	if cfg.Cache.AudioTTL != time.Hour {
		t.Errorf("expected default audio TTL 1h, got %v", cfg.Cache.AudioTTL)
	}
	if cfg.Queue.MaxAttempts != 5 {
		t.Errorf("expected default max attempts 5, got %d", cfg.Queue.MaxAttempts)
	}
	if cfg.Monitor.ProbeInterval != 15*time.Second {
		t.Errorf("expected default probe interval 15s, got %v", cfg.Monitor.ProbeInterval)
	}
	if cfg.Monitor.FailureThreshold != 3 {
		t.Errorf("expected default failure threshold 3, got %d", cfg.Monitor.FailureThreshold)
	}
	if cfg.Monitor.RiskThreshold != 0.7 {
		t.Errorf("expected default risk threshold 0.7, got %f", cfg.Monitor.RiskThreshold)
	}
	if cfg.Recovery.CooldownPeriod != 2*time.Minute {
		t.Errorf("expected default cooldown 2m, got %v", cfg.Recovery.CooldownPeriod)
	}
}

func TestLoad_ExplicitValuesWin(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
cache:
  max_entries: 500
  text_ttl: 1h
queue:
  max_attempts: 2
monitor:
  failure_threshold: 5
recovery:
  enabled: true
  proactive_enabled: true
  strategies:
    switch-interface: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Cache.MaxEntries != 500 {
		t.Errorf("expected 500 entries, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.Cache.TextTTL != time.Hour {
		t.Errorf("expected text TTL 1h, got %v", cfg.Cache.TextTTL)
	}
	if cfg.Queue.MaxAttempts != 2 {
		t.Errorf("expected 2 attempts, got %d", cfg.Queue.MaxAttempts)
	}
	if !cfg.Recovery.Enabled || !cfg.Recovery.ProactiveEnabled {
		t.Error("recovery toggles should be read from the file")
	}
	if on, ok := cfg.Recovery.Strategies["switch-interface"]; !ok || on {
		t.Error("strategy toggle should be read as disabled")
	}
}

func TestLoad_NegativeRiskThresholdDisables(t *testing.T) {
	path := writeConfig(t, `
monitor:
  risk_threshold: -1
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	// A negative threshold must survive defaulting; the monitor only fires
	// risk events for a positive threshold.
	if cfg.Monitor.RiskThreshold != -1 {
		t.Errorf("negative risk threshold should pass through, got %f", cfg.Monitor.RiskThreshold)
	}
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_CLOUD_URL", "http://expanded.example.com")
	path := writeConfig(t, `
cloud:
  url: "${TEST_CLOUD_URL}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Cloud.URL != "http://expanded.example.com" {
		t.Errorf("expected env expansion, got %q", cfg.Cloud.URL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}
