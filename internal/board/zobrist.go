package board

// Zobrist keys come from a fixed-seed xorshift generator so that hashes are
// identical from run to run.
var (
	zobristPiece      [12][64]uint64
	zobristEnPassant  [8]uint64
	zobristCastling   [16]uint64
	zobristSideToMove uint64
)

const zobristSeed = 117

// xorshift is a 64-bit xorshift generator (shifts 15, 7, 19).
type xorshift struct {
	state uint64
}

func (x *xorshift) next() uint64 {
	s := x.state
	s ^= s << 15
	s ^= s >> 7
	s ^= s << 19
	x.state = s
	return s
}

// keyGen hands out distinct non-zero keys.
type keyGen struct {
	rng  xorshift
	seen map[uint64]struct{}
}

func (g *keyGen) key() uint64 {
	for {
		k := g.rng.next()
		if _, dup := g.seen[k]; k != 0 && !dup {
			g.seen[k] = struct{}{}
			return k
		}
	}
}

func init() {
	g := keyGen{rng: xorshift{state: zobristSeed}, seen: make(map[uint64]struct{}, 12*64+25)}
	for pc := range zobristPiece {
		for sq := range zobristPiece[pc] {
			zobristPiece[pc][sq] = g.key()
		}
	}
	for f := range zobristEnPassant {
		zobristEnPassant[f] = g.key()
	}
	for cr := range zobristCastling {
		zobristCastling[cr] = g.key()
	}
	zobristSideToMove = g.key()
}

// ComputeHash rebuilds the Zobrist key from scratch.
func (p *Position) ComputeHash() uint64 {
	var h uint64
	for sq, pc := range p.Board {
		if pc != NoPiece {
			h ^= zobristPiece[pc][sq]
		}
	}
	if p.SideToMove == Black {
		h ^= zobristSideToMove
	}
	h ^= zobristCastling[p.CastlingRights]
	if p.EnPassant != NoSquare {
		h ^= zobristEnPassant[p.EnPassant.File()]
	}
	return h
}

// ComputePawnKey rebuilds the pawn-only key from scratch.
func (p *Position) ComputePawnKey() uint64 {
	var h uint64
	for c := White; c <= Black; c++ {
		pawns := p.Pieces[c][Pawn]
		for pawns != 0 {
			sq := pawns.PopLSB()
			h ^= zobristPiece[NewPiece(Pawn, c)][sq]
		}
	}
	return h
}
