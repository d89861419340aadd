package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is built once at startup and handed to every component. Nothing
// below the CLI layer reads the environment.
type Config struct {
	DataDir           string        `yaml:"data_dir"`
	BinaryDir         string        `yaml:"binary_dir"` // custom override, probed alone when set
	BuildDir          string        `yaml:"build_dir"`  // default build output, probed after ExeDir
	ExeDir            string        `yaml:"-"`          // directory of the running ybctl binary
	AdminBinary       string        `yaml:"admin_binary"`
	ReplicationFactor int           `yaml:"replication_factor"`
	ShardsPerTServer  int           `yaml:"shards_per_tserver"`
	RequireClockSync  bool          `yaml:"require_clock_sync"`
	DisableCallHome   bool          `yaml:"disable_callhome"`
	DrivesPerNode     int           `yaml:"drives_per_node"`
	MaxIndex          int           `yaml:"max_index"`
	StopTimeout       time.Duration `yaml:"stop_timeout"`
	StopPollInterval  time.Duration `yaml:"stop_poll_interval"`
	ReconfigAttempts  int           `yaml:"reconfig_attempts"`
	ReconfigDelay     time.Duration `yaml:"reconfig_delay"`
}

func Default() *Config {
	home, _ := os.UserHomeDir()
	exeDir := ""
	if exe, err := os.Executable(); err == nil {
		exeDir = filepath.Dir(exe)
	}
	return &Config{
		DataDir:           filepath.Join(home, "yugabyte-data"),
		ExeDir:            exeDir,
		BuildDir:          filepath.Join(exeDir, "..", "build", "latest", "bin"),
		AdminBinary:       "yb-admin",
		ReplicationFactor: 3,
		ShardsPerTServer:  2,
		DrivesPerNode:     2,
		MaxIndex:          20,
		StopTimeout:       60 * time.Second,
		StopPollInterval:  500 * time.Millisecond,
		ReconfigAttempts:  20,
		ReconfigDelay:     time.Second,
	}
}

// Load layers defaults, the optional YAML file at path, then environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.DataDir = envOr("YBCTL_DATA_DIR", cfg.DataDir)
	cfg.BinaryDir = envOr("YBCTL_BINARY_DIR", cfg.BinaryDir)
	cfg.BuildDir = envOr("YBCTL_BUILD_DIR", cfg.BuildDir)
	if v := os.Getenv("YBCTL_DISABLE_CALLHOME"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("YBCTL_DISABLE_CALLHOME: %w", err)
		}
		cfg.DisableCallHome = b
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data dir must be set")
	}
	if c.ReplicationFactor < 1 {
		return fmt.Errorf("replication factor must be >= 1, got %d", c.ReplicationFactor)
	}
	if c.ReplicationFactor > c.MaxIndex {
		return fmt.Errorf("replication factor %d exceeds max node index %d", c.ReplicationFactor, c.MaxIndex)
	}
	if c.ShardsPerTServer < 1 {
		return fmt.Errorf("shards per tserver must be >= 1, got %d", c.ShardsPerTServer)
	}
	if c.MaxIndex < 1 || c.MaxIndex > 254 {
		return fmt.Errorf("max index must be within [1, 254], got %d", c.MaxIndex)
	}
	return nil
}

// SearchPaths is the ordered list of directories probed for server binaries.
func (c *Config) SearchPaths() []string {
	if c.BinaryDir != "" {
		return []string{c.BinaryDir}
	}
	var dirs []string
	if c.ExeDir != "" {
		dirs = append(dirs, c.ExeDir)
	}
	if c.BuildDir != "" {
		dirs = append(dirs, filepath.Clean(c.BuildDir))
	}
	return dirs
}

// DefaultPath is ~/.ybctl.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".ybctl.yaml")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
