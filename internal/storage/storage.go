// Package storage keeps finished analyses and engine preferences between
// runs. It is optional: with the "none" backend nothing is persisted.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hailam/foxsee/internal/config"
)

// ErrNotFound is returned when no record exists for a key.
var ErrNotFound = errors.New("storage: not found")

// Storage keys
const (
	keyPreferences    = "prefs"
	keyAnalysisPrefix = "analysis:"
)

// Analysis is the outcome of a finished search for one position.
type Analysis struct {
	ID        string    `json:"id"`
	FEN       string    `json:"fen"`
	BestMove  string    `json:"best_move"`
	Score     int       `json:"score"`
	Depth     int       `json:"depth"`
	Nodes     uint64    `json:"nodes"`
	ElapsedMS int64     `json:"elapsed_ms"`
	PV        []string  `json:"pv,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Preferences are the engine options that survive a restart.
type Preferences struct {
	HashMB    int       `json:"hash_mb"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is implemented by every backend.
type Store interface {
	// SaveAnalysis stores a, unless a deeper analysis of the same position
	// is already present.
	SaveAnalysis(ctx context.Context, a *Analysis) error
	// LoadAnalysis returns the stored analysis of fen or ErrNotFound.
	LoadAnalysis(ctx context.Context, fen string) (*Analysis, error)
	SavePreferences(ctx context.Context, p *Preferences) error
	// LoadPreferences returns ErrNotFound when nothing was saved yet.
	LoadPreferences(ctx context.Context) (*Preferences, error)
	Close() error
}

// Open creates the store selected by cfg. It returns a nil Store for the
// "none" backend.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", config.BackendNone:
		return nil, nil
	case config.BackendBadger:
		dir, err := DatabaseDir(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("database dir: %w", err)
		}
		s, err := OpenBadger(dir)
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		return s, nil
	case config.BackendRedis:
		s, err := OpenRedis(ctx, RedisOptions{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			AnalysisTTL: cfg.AnalysisTTL(),
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// PositionKey drops the move counters from fen so the same position
// reached at different points of a game shares one record.
func PositionKey(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) > 4 {
		fields = fields[:4]
	}
	return strings.Join(fields, " ")
}

func analysisKey(fen string) string {
	return keyAnalysisPrefix + PositionKey(fen)
}

// prepare fills the ID and timestamp of a before it is written.
func (a *Analysis) prepare() {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
}

// supersedes reports whether a should replace old.
func (a *Analysis) supersedes(old *Analysis) bool {
	return old == nil || a.Depth >= old.Depth
}
