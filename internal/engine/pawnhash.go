package engine

import "github.com/hailam/foxsee/internal/board"

// PawnSide is the pawn-only slice of one color's FeatureMap.
type PawnSide struct {
	Passed      board.Bitboard // passed pawns, needed again for king races
	PassedRanks int16
	Isolated    int16
	Behind      int16
	Doubled     int16
	Midgame     int16 // pawn square-table sums
	Endgame     int16
}

// PawnEntry stores the cached pawn structure of a position.
type PawnEntry struct {
	Key   uint64
	Sides [2]PawnSide
	valid bool
}

// PawnTable is a hash table for caching pawn structure evaluations.
// It is keyed by the pawn Zobrist key and never changes an evaluation result.
type PawnTable struct {
	entries []PawnEntry
	mask    uint64

	hits, probes uint64
}

// pawnEntrySize approximates unsafe.Sizeof(PawnEntry{}).
const pawnEntrySize = 40

// NewPawnTable creates a new pawn hash table with the given size in MB.
func NewPawnTable(sizeMB int) *PawnTable {
	size := roundDownToPowerOf2(uint64(max(sizeMB, 1)) * 1024 * 1024 / pawnEntrySize)
	return &PawnTable{
		entries: make([]PawnEntry, size),
		mask:    size - 1,
	}
}

// Probe looks up a pawn structure in the hash table.
func (pt *PawnTable) Probe(key uint64) (*PawnEntry, bool) {
	pt.probes++
	entry := &pt.entries[key&pt.mask]
	if entry.valid && entry.Key == key {
		pt.hits++
		return entry, true
	}
	return nil, false
}

// Store saves a pawn structure in the hash table, evicting whatever shared its slot.
func (pt *PawnTable) Store(e PawnEntry) {
	e.valid = true
	pt.entries[e.Key&pt.mask] = e
}

// HitRate returns the cache hit rate as a percentage.
func (pt *PawnTable) HitRate() float64 {
	if pt.probes == 0 {
		return 0
	}
	return float64(pt.hits) / float64(pt.probes) * 100
}

// Clear clears the pawn hash table.
func (pt *PawnTable) Clear() {
	clear(pt.entries)
	pt.hits, pt.probes = 0, 0
}
