package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Storage.Backend != BackendNone {
		t.Errorf("storage enabled by default: %q", cfg.Storage.Backend)
	}
	if cfg.Engine.MoveOverhead() != 100*time.Millisecond {
		t.Errorf("overhead = %v, want 100ms", cfg.Engine.MoveOverhead())
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "foxsee.yaml")
	yml := `
engine:
  hash_mb: 64
  max_depth: 20
log:
  level: debug
storage:
  backend: badger
  dir: /tmp/foxsee
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FOXSEE_MAX_DEPTH", "12")
	t.Setenv("FOXSEE_LOG_FORMAT", "json")
	t.Setenv("FOXSEE_ANALYSIS_TTL_SEC", "90")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Engine.HashMB != 64 {
		t.Errorf("hash = %d, want 64 from file", cfg.Engine.HashMB)
	}
	if cfg.Engine.MaxDepth != 12 {
		t.Errorf("max depth = %d, want 12 from env", cfg.Engine.MaxDepth)
	}
	if cfg.Engine.MovesToGo != 20 {
		t.Errorf("moves to go = %d, want default 20", cfg.Engine.MovesToGo)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Storage.Backend != BackendBadger || cfg.Storage.Dir != "/tmp/foxsee" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
	if cfg.Storage.AnalysisTTL() != 90*time.Second {
		t.Errorf("ttl = %v", cfg.Storage.AnalysisTTL())
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("FOXSEE_HASH_MB", "256")
	t.Setenv("FOXSEE_STORAGE", " REDIS ")
	t.Setenv("FOXSEE_REDIS_ADDR", "cache:6380")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.HashMB != 256 {
		t.Errorf("hash = %d", cfg.Engine.HashMB)
	}
	if cfg.Storage.Backend != BackendRedis || cfg.Storage.RedisAddr != "cache:6380" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("engine: [1, 2"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected a parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"hash not a power of two multiple", func(c *Config) { c.Engine.HashMB = 48 }},
		{"hash too small", func(c *Config) { c.Engine.HashMB = 8 }},
		{"zero depth", func(c *Config) { c.Engine.MaxDepth = 0 }},
		{"depth too large", func(c *Config) { c.Engine.MaxDepth = 500 }},
		{"negative overhead", func(c *Config) { c.Engine.MoveOverheadMS = -1 }},
		{"zero moves to go", func(c *Config) { c.Engine.MovesToGo = 0 }},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "sqlite" }},
		{"redis without address", func(c *Config) {
			c.Storage.Backend = BackendRedis
			c.Storage.RedisAddr = ""
		}},
		{"negative ttl", func(c *Config) { c.Storage.AnalysisTTLSec = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("FOXSEE_HASH_MB", "lots")
	t.Setenv("FOXSEE_LOG_CALLER", "maybe")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.HashMB != Default().Engine.HashMB {
		t.Errorf("hash = %d, want default", cfg.Engine.HashMB)
	}
	if cfg.Log.Caller {
		t.Error("caller enabled from an unparsable value")
	}
}
