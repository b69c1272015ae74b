// Package config loads the engine settings from an optional YAML file and
// FOXSEE_* environment variables. The environment wins over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hailam/foxsee/internal/engine"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

// Storage backends.
const (
	BackendNone   = "none"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Log     LogConfig     `yaml:"log"`
	Storage StorageConfig `yaml:"storage"`
}

type EngineConfig struct {
	HashMB         int `yaml:"hash_mb"`
	MaxDepth       int `yaml:"max_depth"`
	MoveOverheadMS int `yaml:"move_overhead_ms"`
	MovesToGo      int `yaml:"moves_to_go"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Caller bool   `yaml:"caller"`
}

type StorageConfig struct {
	Backend        string `yaml:"backend"` // none, badger or redis
	Dir            string `yaml:"dir"`     // badger directory, empty for the user data dir
	RedisAddr      string `yaml:"redis_addr"`
	RedisPassword  string `yaml:"redis_password"`
	RedisDB        int    `yaml:"redis_db"`
	AnalysisTTLSec int    `yaml:"analysis_ttl_sec"` // redis only, 0 keeps analyses forever
}

// MoveOverhead returns the per-move overhead as a duration.
func (e EngineConfig) MoveOverhead() time.Duration {
	return time.Duration(e.MoveOverheadMS) * time.Millisecond
}

// AnalysisTTL returns the redis expiry for analyses.
func (s StorageConfig) AnalysisTTL() time.Duration {
	return time.Duration(s.AnalysisTTLSec) * time.Second
}

// Default returns the built-in configuration. Storage is disabled.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			HashMB:         engine.DefaultHashMB,
			MaxDepth:       engine.DefaultMaxDepth,
			MoveOverheadMS: int(engine.DefaultMoveOverhead / time.Millisecond),
			MovesToGo:      engine.DefaultMovesToGo,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Storage: StorageConfig{
			Backend:   BackendNone,
			RedisAddr: "localhost:6379",
		},
	}
}

// Load reads path (skipped when empty), applies the environment and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	envInt("FOXSEE_HASH_MB", &c.Engine.HashMB)
	envInt("FOXSEE_MAX_DEPTH", &c.Engine.MaxDepth)
	envInt("FOXSEE_MOVE_OVERHEAD_MS", &c.Engine.MoveOverheadMS)
	envInt("FOXSEE_MOVES_TO_GO", &c.Engine.MovesToGo)

	envString("FOXSEE_LOG_LEVEL", &c.Log.Level)
	envString("FOXSEE_LOG_FORMAT", &c.Log.Format)
	if v := strings.TrimSpace(os.Getenv("FOXSEE_LOG_CALLER")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Log.Caller = b
		}
	}

	envString("FOXSEE_STORAGE", &c.Storage.Backend)
	envString("FOXSEE_STORAGE_DIR", &c.Storage.Dir)
	envString("FOXSEE_REDIS_ADDR", &c.Storage.RedisAddr)
	envString("FOXSEE_REDIS_PASSWORD", &c.Storage.RedisPassword)
	envInt("FOXSEE_REDIS_DB", &c.Storage.RedisDB)
	envInt("FOXSEE_ANALYSIS_TTL_SEC", &c.Storage.AnalysisTTLSec)
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// envInt ignores values that do not parse, like the rest of the loader.
func envInt(key string, dst *int) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Validate checks ranges and the storage backend name.
func (c *Config) Validate() error {
	if !engine.HashSizeSupported(c.Engine.HashMB) {
		return fmt.Errorf("%w: hash size %d MB is not supported", ErrInvalid, c.Engine.HashMB)
	}
	if c.Engine.MaxDepth < 1 || c.Engine.MaxDepth >= engine.MaxDepth {
		return fmt.Errorf("%w: max depth %d out of range 1..%d", ErrInvalid, c.Engine.MaxDepth, engine.MaxDepth-1)
	}
	if c.Engine.MoveOverheadMS < 0 {
		return fmt.Errorf("%w: negative move overhead", ErrInvalid)
	}
	if c.Engine.MovesToGo < 1 {
		return fmt.Errorf("%w: moves to go must be positive", ErrInvalid)
	}

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case "":
		c.Storage.Backend = BackendNone
	case BackendNone, BackendBadger:
	case BackendRedis:
		if strings.TrimSpace(c.Storage.RedisAddr) == "" {
			return fmt.Errorf("%w: redis backend needs an address", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalid, c.Storage.Backend)
	}
	if c.Storage.AnalysisTTLSec < 0 {
		return fmt.Errorf("%w: negative analysis ttl", ErrInvalid)
	}
	return nil
}
