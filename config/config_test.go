package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that would override defaults
	os.Unsetenv("YBCTL_DATA_DIR")
	os.Unsetenv("YBCTL_BINARY_DIR")
	os.Unsetenv("YBCTL_BUILD_DIR")
	os.Unsetenv("YBCTL_DISABLE_CALLHOME")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ReplicationFactor != 3 {
		t.Errorf("ReplicationFactor = %d, want 3", cfg.ReplicationFactor)
	}
	if cfg.ShardsPerTServer != 2 {
		t.Errorf("ShardsPerTServer = %d, want 2", cfg.ShardsPerTServer)
	}
	if filepath.Base(cfg.DataDir) != "yugabyte-data" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.StopPollInterval != 500*time.Millisecond {
		t.Errorf("StopPollInterval = %s", cfg.StopPollInterval)
	}
	if cfg.ReconfigAttempts != 20 || cfg.ReconfigDelay != time.Second {
		t.Errorf("reconfig budget = %d x %s, want 20 x 1s", cfg.ReconfigAttempts, cfg.ReconfigDelay)
	}
	if cfg.DisableCallHome {
		t.Error("DisableCallHome should default to false")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("YBCTL_DATA_DIR", "/tmp/yb")
	t.Setenv("YBCTL_BINARY_DIR", "/opt/yb/bin")
	t.Setenv("YBCTL_DISABLE_CALLHOME", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.DataDir != "/tmp/yb" {
		t.Errorf("DataDir = %q, want /tmp/yb", cfg.DataDir)
	}
	if cfg.BinaryDir != "/opt/yb/bin" {
		t.Errorf("BinaryDir = %q", cfg.BinaryDir)
	}
	if !cfg.DisableCallHome {
		t.Error("DisableCallHome = false, want true")
	}
	if got := cfg.SearchPaths(); len(got) != 1 || got[0] != "/opt/yb/bin" {
		t.Errorf("SearchPaths = %v, want only the custom dir", got)
	}
}

func TestLoadBadCallHomeEnv(t *testing.T) {
	t.Setenv("YBCTL_DISABLE_CALLHOME", "maybe")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for unparsable YBCTL_DISABLE_CALLHOME")
	}
}

func TestLoadFile(t *testing.T) {
	os.Unsetenv("YBCTL_DATA_DIR")
	dir := t.TempDir()
	path := filepath.Join(dir, "ybctl.yaml")

	yaml := `data_dir: /srv/yb-data
replication_factor: 5
shards_per_tserver: 4
stop_timeout: 15s
max_index: 9
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != "/srv/yb-data" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.ReplicationFactor != 5 {
		t.Errorf("ReplicationFactor = %d, want 5", cfg.ReplicationFactor)
	}
	if cfg.ShardsPerTServer != 4 {
		t.Errorf("ShardsPerTServer = %d, want 4", cfg.ShardsPerTServer)
	}
	if cfg.StopTimeout != 15*time.Second {
		t.Errorf("StopTimeout = %s, want 15s", cfg.StopTimeout)
	}
	if cfg.MaxIndex != 9 {
		t.Errorf("MaxIndex = %d, want 9", cfg.MaxIndex)
	}
	// Untouched keys keep their defaults.
	if cfg.DrivesPerNode != 2 {
		t.Errorf("DrivesPerNode = %d, want 2", cfg.DrivesPerNode)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Fatalf("missing config file should be ignored, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.ReplicationFactor = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for rf=0")
	}

	cfg = Default()
	cfg.MaxIndex = 2
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when rf exceeds max index")
	}
}

func TestSearchPathsDefault(t *testing.T) {
	cfg := &Config{ExeDir: "/usr/local/yb/bin", BuildDir: "/usr/local/yb/bin/../build/latest/bin"}
	got := cfg.SearchPaths()
	want := []string{"/usr/local/yb/bin", "/usr/local/yb/build/latest/bin"}
	if len(got) != len(want) {
		t.Fatalf("SearchPaths = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SearchPaths[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
