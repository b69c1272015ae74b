package engine

import (
	"github.com/hailam/foxsee/internal/board"
)

// Bound indicates the type of score stored in the transposition table.
type Bound uint8

const (
	BoundNone  Bound = iota // empty slot
	BoundExact              // exact score
	BoundLower              // failed high (beta cutoff)
	BoundUpper              // failed low (alpha)
)

func (b Bound) String() string {
	switch b {
	case BoundExact:
		return "exact"
	case BoundLower:
		return "lower"
	case BoundUpper:
		return "upper"
	}
	return "none"
}

// TTEntry represents an entry in a transposition table. Besides the key,
// side to move, castling rights and en passant square must all match before
// an entry is trusted.
type TTEntry struct {
	Key       uint64
	Move      board.Move
	Score     int32
	Depth     uint8
	Player    board.Color
	Castling  board.CastlingRights
	EnPassant board.Square
	Bound     Bound
}

// ttEntrySize is the padded size of TTEntry in bytes.
const ttEntrySize = 24

// ProbeKind classifies the result of a lookup.
type ProbeKind uint8

const (
	ProbeMiss     ProbeKind = iota
	ProbeMoveOnly           // stored depth too shallow, only the move is usable
	ProbeMatch              // bound, score and move are usable
)

// Probe is the result of a transposition table lookup.
type Probe struct {
	Kind  ProbeKind
	Bound Bound
	Score int
	Move  board.Move
}

// ReplacementPolicy decides whether a store may evict the current slot owner.
type ReplacementPolicy uint8

const (
	// DepthPreferred keeps an entry until something searched at least as deep arrives.
	DepthPreferred ReplacementPolicy = iota
	// AlwaysReplace overwrites unconditionally.
	AlwaysReplace
)

// TranspositionTable is a single power-of-two sized table indexed by
// key & mask. There is no chaining; collisions evict.
type TranspositionTable struct {
	entries []TTEntry
	mask    uint64
	policy  ReplacementPolicy
}

// NewTranspositionTable creates a table holding size entries. size is
// rounded down to a power of two.
func NewTranspositionTable(size uint64, policy ReplacementPolicy) *TranspositionTable {
	size = roundDownToPowerOf2(max(size, 1))
	return &TranspositionTable{
		entries: make([]TTEntry, size),
		mask:    size - 1,
		policy:  policy,
	}
}

// roundDownToPowerOf2 rounds n down to the nearest power of 2.
func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Get looks up key. A match at a shallower depth than requested only
// yields the stored move.
func (tt *TranspositionTable) Get(key uint64, player board.Color, depth int, castling board.CastlingRights, ep board.Square) Probe {
	e := &tt.entries[key&tt.mask]
	if e.Bound == BoundNone || e.Key != key || e.Player != player || e.Castling != castling || e.EnPassant != ep {
		return Probe{}
	}
	if int(e.Depth) >= depth {
		return Probe{Kind: ProbeMatch, Bound: e.Bound, Score: int(e.Score), Move: e.Move}
	}
	return Probe{Kind: ProbeMoveOnly, Move: e.Move}
}

// Set stores an entry and reports whether the table accepted it.
func (tt *TranspositionTable) Set(e TTEntry) bool {
	slot := &tt.entries[e.Key&tt.mask]
	if tt.policy == DepthPreferred && slot.Bound != BoundNone && e.Depth < slot.Depth {
		return false
	}
	*slot = e
	return true
}

// Clear empties every slot.
func (tt *TranspositionTable) Clear() {
	clear(tt.entries)
}

// Size returns the number of entries in the table.
func (tt *TranspositionTable) Size() uint64 {
	return uint64(len(tt.entries))
}

// HashFull returns the permille (parts per thousand) of the first thousand
// slots that are in use.
func (tt *TranspositionTable) HashFull() int {
	sample := min(len(tt.entries), 1000)
	used := 0
	for i := 0; i < sample; i++ {
		if tt.entries[i].Bound != BoundNone {
			used++
		}
	}
	return used * 1000 / sample
}

// HashTables pairs a depth-preferred table with an always-replace fallback.
type HashTables struct {
	deep   *TranspositionTable
	recent *TranspositionTable
}

// NewHashTables splits sizeMB evenly between the two tables.
func NewHashTables(sizeMB int) *HashTables {
	total := roundDownToPowerOf2(uint64(max(sizeMB, 1)) * 1024 * 1024 / ttEntrySize)
	half := max(total>>1, 1)
	return &HashTables{
		deep:   NewTranspositionTable(half, DepthPreferred),
		recent: NewTranspositionTable(half, AlwaysReplace),
	}
}

// Get probes the depth-preferred table first and falls back to the
// always-replace table on a miss.
func (h *HashTables) Get(key uint64, player board.Color, depth int, castling board.CastlingRights, ep board.Square) Probe {
	if p := h.deep.Get(key, player, depth, castling, ep); p.Kind != ProbeMiss {
		return p
	}
	return h.recent.Get(key, player, depth, castling, ep)
}

// Set writes to the depth-preferred table, or to the always-replace table
// when the former refuses. It reports whether the depth-preferred table
// took the entry.
func (h *HashTables) Set(key uint64, player board.Color, depth int, castling board.CastlingRights, ep board.Square, bound Bound, score int, move board.Move) bool {
	e := TTEntry{
		Key:       key,
		Move:      move,
		Score:     int32(score),
		Depth:     uint8(min(max(depth, 0), MaxDepth)),
		Player:    player,
		Castling:  castling,
		EnPassant: ep,
		Bound:     bound,
	}
	if h.deep.Set(e) {
		return true
	}
	h.recent.Set(e)
	return false
}

// probe is the search-side lookup for the current position.
func (h *HashTables) probe(pos *board.Position, depth int) Probe {
	return h.Get(pos.Hash, pos.SideToMove, depth, pos.CastlingRights, pos.EnPassant)
}

// store is the search-side write for the current position.
func (h *HashTables) store(pos *board.Position, depth int, bound Bound, score int, move board.Move) {
	h.Set(pos.Hash, pos.SideToMove, depth, pos.CastlingRights, pos.EnPassant, bound, score, move)
}

// Clear empties both tables.
func (h *HashTables) Clear() {
	h.deep.Clear()
	h.recent.Clear()
}

// Entries returns the combined capacity of both tables.
func (h *HashTables) Entries() uint64 {
	return h.deep.Size() + h.recent.Size()
}

// HashFull reports the fill of the depth-preferred table in permille.
func (h *HashTables) HashFull() int {
	return h.deep.HashFull()
}
