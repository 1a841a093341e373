package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig() should validate, got: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load with a missing file should not error: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("Load with a missing file should return defaults, got %+v", cfg)
	}
}

func TestLoadAppliesFileOnTopOfDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "data_root: /var/lib/cloude\nmemtable_limit: 256\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataRoot != "/var/lib/cloude" {
		t.Errorf("DataRoot = %q, want /var/lib/cloude", cfg.DataRoot)
	}
	if cfg.MemtableLimit != 256 {
		t.Errorf("MemtableLimit = %d, want 256", cfg.MemtableLimit)
	}
	if cfg.CompactionThreshold != DefaultConfig().CompactionThreshold {
		t.Errorf("CompactionThreshold should keep its default when unset, got %d", cfg.CompactionThreshold)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"empty data root", Config{DataRoot: "", MemtableLimit: 1, CompactionThreshold: 1, CompactionInterval: time.Second}},
		{"zero memtable limit", Config{DataRoot: "x", MemtableLimit: 0, CompactionThreshold: 1, CompactionInterval: time.Second}},
		{"zero compaction threshold", Config{DataRoot: "x", MemtableLimit: 1, CompactionThreshold: 0, CompactionInterval: time.Second}},
		{"non-positive interval", Config{DataRoot: "x", MemtableLimit: 1, CompactionThreshold: 1, CompactionInterval: 0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Fatalf("expected Validate to reject %+v", tc.cfg)
			}
		})
	}
}

func TestLoadRejectsInvalidFileContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("memtable_limit: 0\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected Load to reject a config with memtable_limit: 0")
	}
}
