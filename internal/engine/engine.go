package engine

import (
	"context"
	"fmt"
	"math/bits"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hailam/foxsee/internal/board"
	"github.com/hailam/foxsee/internal/obslog"
)

// Hash size limits in megabytes.
const (
	MinHashMB     = 16
	DefaultHashMB = 128
	MaxHashMB     = 4096
)

// pawnTableMB is the fixed size of the pawn-structure cache.
const pawnTableMB = 2

// Engine is the search front door used by the UCI layer. It owns the hash
// tables and the searcher; only one search runs at a time.
type Engine struct {
	mu       sync.Mutex
	searcher *Searcher
	tables   *HashTables
	pawns    *PawnTable
	hashMB   int

	// TimeManager converts clock limits into a time budget.
	TimeManager *TimeManager
	// MaxDepth is used when Limits.Depth is zero.
	MaxDepth int

	// Callbacks
	OnInfo func(Info)
}

// NewEngine creates an engine with hashMB megabytes of transposition tables.
func NewEngine(hashMB int) *Engine {
	if hashMB <= 0 {
		hashMB = DefaultHashMB
	}
	tables := NewHashTables(hashMB)
	pawns := NewPawnTable(pawnTableMB)
	return &Engine{
		searcher:    NewSearcher(tables, pawns),
		tables:      tables,
		pawns:       pawns,
		hashMB:      hashMB,
		TimeManager: NewTimeManager(),
		MaxDepth:    DefaultMaxDepth,
	}
}

// HashSizeSupported reports whether mb is an accepted Hash option value:
// at least MinHashMB and a power-of-two multiple (two or more) of it.
func HashSizeSupported(mb int) bool {
	if mb < MinHashMB || mb > MaxHashMB || mb%MinHashMB != 0 {
		return false
	}
	ratio := mb / MinHashMB
	return ratio >= 2 && bits.OnesCount(uint(ratio)) == 1
}

// SetHashSize reallocates the transposition tables. Unsupported sizes are
// rejected and the current tables are kept.
func (e *Engine) SetHashSize(mb int) error {
	if !HashSizeSupported(mb) {
		return fmt.Errorf("hash size %d is not supported", mb)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tables = NewHashTables(mb)
	e.searcher.tables = e.tables
	e.hashMB = mb
	obslog.L().Info("hash resized", zap.Int("mb", mb), zap.Uint64("entries", e.tables.Entries()))
	return nil
}

// HashSize returns the current table size in megabytes.
func (e *Engine) HashSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hashMB
}

// Search finds the best move for pos within limits. pos is not modified.
// Cancelling ctx or calling Stop ends the search early; the best move of
// the last completed iteration is returned.
func (e *Engine) Search(ctx context.Context, pos *board.Position, limits Limits) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	budget := e.TimeManager.Budget(limits, pos.SideToMove)
	maxDepth := limits.Depth
	if maxDepth <= 0 {
		maxDepth = e.MaxDepth
	}

	id := uuid.NewString()
	log := obslog.L().With(zap.String("search_id", id))
	log.Debug("search started",
		zap.String("fen", pos.FEN()),
		zap.Int("max_depth", maxDepth),
		zap.Duration("budget", budget.Main),
		zap.Duration("extra", budget.Extra),
	)

	root := pos.Copy()
	e.searcher.OnInfo = e.OnInfo
	res := e.searcher.Search(ctx, root, budget, maxDepth)

	san := "0000"
	if res.BestMove != board.NoMove {
		san = pos.MoveToSAN(res.BestMove)
	}
	log.Info("search finished",
		zap.String("best", san),
		zap.Int("score", res.Score),
		zap.Int("depth", res.Depth),
		zap.Uint64("nodes", res.Nodes),
		zap.Duration("elapsed", res.Elapsed),
		zap.Int("hashfull", e.tables.HashFull()),
		zap.Float64("pawn_hit_rate", e.pawns.HitRate()),
	)
	return res
}

// Stop stops the current search. It is safe to call from any goroutine.
func (e *Engine) Stop() {
	// Not under mu: the running search holds it.
	e.searcher.Stop()
}

// Clear clears the transposition tables and the pawn cache.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tables.Clear()
	e.pawns.Clear()
}

// Perft counts the leaf nodes of the legal move tree to depth.
func (e *Engine) Perft(pos *board.Position, depth int) uint64 {
	return pos.Copy().Perft(depth)
}

// Evaluate returns the static evaluation of a position. It may run while a
// search is in progress, so it leaves the search's pawn cache alone.
func (e *Engine) Evaluate(pos *board.Position) int {
	return Evaluate(pos)
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if n := MateDistance(score); n != 0 {
		if n > 0 {
			return fmt.Sprintf("Mate in %d", n)
		}
		return fmt.Sprintf("Mated in %d", -n)
	}

	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	return fmt.Sprintf("%s%d.%02d", sign, score/100, score%100)
}
