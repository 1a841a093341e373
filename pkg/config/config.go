// Package config loads the server's runtime settings from a YAML
// file: the data root, LSM tuning knobs, and the listen addresses.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the engine tunables plus the listen addresses
// cmd/server binds to.
type Config struct {
	DataRoot            string        `yaml:"data_root"`
	MemtableLimit       int           `yaml:"memtable_limit"`
	CompactionThreshold int           `yaml:"compaction_threshold"`
	CompactionInterval  time.Duration `yaml:"compaction_interval"`
	ListenAddr          string        `yaml:"listen_addr"`
	MetricsAddr         string        `yaml:"metrics_addr"`
}

// DefaultConfig returns a small memtable limit and compaction
// threshold, so flush and compaction kick in without needing
// thousands of records, and a ten-second background compaction tick.
func DefaultConfig() Config {
	return Config{
		DataRoot:            "./data",
		MemtableLimit:       64,
		CompactionThreshold: 4,
		CompactionInterval:  10 * time.Second,
		ListenAddr:          ":8080",
		MetricsAddr:         ":9090",
	}
}

// Load reads a YAML config file at path, applying it on top of
// DefaultConfig so an absent or partial file still yields a usable
// configuration. A missing file is not an error: defaults apply.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate reports the first configuration error found.
func (c Config) Validate() error {
	if c.DataRoot == "" {
		return fmt.Errorf("config: data_root must not be empty")
	}
	if c.MemtableLimit < 1 {
		return fmt.Errorf("config: memtable_limit must be at least 1")
	}
	if c.CompactionThreshold < 1 {
		return fmt.Errorf("config: compaction_threshold must be at least 1")
	}
	if c.CompactionInterval <= 0 {
		return fmt.Errorf("config: compaction_interval must be positive")
	}
	return nil
}
