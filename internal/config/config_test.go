package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"LEAKAGE_MIN_CLICKS", "SPEND_COST_THRESHOLD", "SNAPSHOT_CACHE_TTL", "REDIS_URL"} {
		t.Setenv(key, "")
	}
	cfg := Load()

	if cfg.LeakageMinClicks != 20 {
		t.Errorf("LeakageMinClicks = %d, want 20", cfg.LeakageMinClicks)
	}
	if cfg.SpendCostThreshold != 200 {
		t.Errorf("SpendCostThreshold = %v, want 200", cfg.SpendCostThreshold)
	}
	if cfg.SnapshotCacheTTL != 24*time.Hour {
		t.Errorf("SnapshotCacheTTL = %v, want 24h", cfg.SnapshotCacheTTL)
	}
	if cfg.RedisURL != "" {
		t.Errorf("RedisURL = %q, want empty", cfg.RedisURL)
	}
}

func TestLoad_Env(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		check func(*Config) bool
	}{
		{name: "min clicks", key: "LEAKAGE_MIN_CLICKS", value: "50", check: func(c *Config) bool { return c.LeakageMinClicks == 50 }},
		{name: "cost threshold", key: "SPEND_COST_THRESHOLD", value: "75.5", check: func(c *Config) bool { return c.SpendCostThreshold == 75.5 }},
		{name: "warm interval", key: "SNAPSHOT_WARM_INTERVAL", value: "30s", check: func(c *Config) bool { return c.SnapshotWarmInterval == 30*time.Second }},
		{name: "invalid int falls back", key: "BATCH_WORKERS", value: "many", check: func(c *Config) bool { return c.BatchWorkers == 0 }},
		{name: "invalid duration falls back", key: "SNAPSHOT_CACHE_TTL", value: "forever", check: func(c *Config) bool { return c.SnapshotCacheTTL == 24*time.Hour }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if !tt.check(Load()) {
				t.Errorf("%s=%s not applied as expected", tt.key, tt.value)
			}
		})
	}
}

func TestApplyYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("engine:\n  leakage_min_clicks: 5\n  batch_workers: 3\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	y, err := LoadYAMLFile(path)
	if err != nil {
		t.Fatalf("LoadYAMLFile() error = %v", err)
	}
	cfg := &Config{LeakageMinClicks: 20, SpendCostThreshold: 200}
	cfg.ApplyYAML(y)

	if cfg.LeakageMinClicks != 5 || cfg.BatchWorkers != 3 {
		t.Errorf("got min clicks %d, workers %d; want 5 and 3", cfg.LeakageMinClicks, cfg.BatchWorkers)
	}
	if cfg.SpendCostThreshold != 200 {
		t.Errorf("SpendCostThreshold = %v, want unchanged 200", cfg.SpendCostThreshold)
	}

	missing, err := LoadYAMLFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil || missing != nil {
		t.Errorf("LoadYAMLFile(absent) = %v, %v; want nil, nil", missing, err)
	}
	cfg.ApplyYAML(nil)
}
