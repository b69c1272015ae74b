package board

var (
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard
)

func init() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)

		knightAttacks[sq] = (bb<<17)&notFileA | (bb<<15)&notFileH |
			(bb>>17)&notFileH | (bb>>15)&notFileA |
			(bb<<10)&notFileAB | (bb<<6)&notFileGH |
			(bb>>10)&notFileGH | (bb>>6)&notFileAB

		kingAttacks[sq] = bb.north() | bb.south() | bb.east() | bb.west() |
			bb.northEast() | bb.northWest() | bb.southEast() | bb.southWest()

		pawnAttacks[White][sq] = bb.northEast() | bb.northWest()
		pawnAttacks[Black][sq] = bb.southEast() | bb.southWest()
	}
	initSliders()
	initEvalMasks()
}

// KnightAttacks returns the knight targets from sq.
func KnightAttacks(sq Square) Bitboard { return knightAttacks[sq] }

// KingAttacks returns the king targets from sq.
func KingAttacks(sq Square) Bitboard { return kingAttacks[sq] }

// PawnAttacks returns the squares a c-colored pawn on sq attacks.
func PawnAttacks(c Color, sq Square) Bitboard { return pawnAttacks[c][sq] }

// QueenAttacks is the union of rook and bishop rays.
func QueenAttacks(sq Square, occ Bitboard) Bitboard {
	return BishopAttacks(sq, occ) | RookAttacks(sq, occ)
}

// PawnAttacksAll returns every square attacked by c's pawns.
func (p *Position) PawnAttacksAll(c Color) Bitboard {
	pawns := p.Pieces[c][Pawn]
	if c == White {
		return pawns.northEast() | pawns.northWest()
	}
	return pawns.southEast() | pawns.southWest()
}

// AttacksFrom returns the attack set of the piece standing on sq, using
// the current occupancy for sliders.
func (p *Position) AttacksFrom(sq Square) Bitboard {
	piece := p.Board[sq]
	switch piece.Type() {
	case Pawn:
		return pawnAttacks[piece.Color()][sq]
	case Knight:
		return knightAttacks[sq]
	case Bishop:
		return BishopAttacks(sq, p.AllOccupied)
	case Rook:
		return RookAttacks(sq, p.AllOccupied)
	case Queen:
		return QueenAttacks(sq, p.AllOccupied)
	case King:
		return kingAttacks[sq]
	}
	return 0
}

// AttackersTo returns pieces of both colors attacking sq under occupancy occ.
func (p *Position) AttackersTo(sq Square, occ Bitboard) Bitboard {
	return p.AttackersBy(White, sq, occ) | p.AttackersBy(Black, sq, occ)
}

// AttackersBy returns c's pieces attacking sq under occupancy occ.
func (p *Position) AttackersBy(c Color, sq Square, occ Bitboard) Bitboard {
	diag := p.Pieces[c][Bishop] | p.Pieces[c][Queen]
	orth := p.Pieces[c][Rook] | p.Pieces[c][Queen]
	return pawnAttacks[c.Other()][sq]&p.Pieces[c][Pawn] |
		knightAttacks[sq]&p.Pieces[c][Knight] |
		kingAttacks[sq]&p.Pieces[c][King] |
		BishopAttacks(sq, occ)&diag |
		RookAttacks(sq, occ)&orth
}

// IsAttacked reports whether c attacks sq.
func (p *Position) IsAttacked(sq Square, by Color) bool {
	return p.AttackersBy(by, sq, p.AllOccupied) != 0
}

// IsInCheck reports whether side's king is attacked. A missing king counts
// as not in check.
func (p *Position) IsInCheck(side Color) bool {
	king := p.Pieces[side][King]
	if king == 0 {
		return false
	}
	return p.IsAttacked(king.LSB(), side.Other())
}

// SmallestAttacker finds the least valuable piece of color c attacking sq,
// ordered pawn, knight, bishop, rook, queen, king. It returns NoSquare when
// there is none.
func (p *Position) SmallestAttacker(c Color, sq Square) (Square, PieceType) {
	occ := p.AllOccupied
	if bb := pawnAttacks[c.Other()][sq] & p.Pieces[c][Pawn]; bb != 0 {
		return bb.LSB(), Pawn
	}
	if bb := knightAttacks[sq] & p.Pieces[c][Knight]; bb != 0 {
		return bb.LSB(), Knight
	}
	diag := BishopAttacks(sq, occ)
	if bb := diag & p.Pieces[c][Bishop]; bb != 0 {
		return bb.LSB(), Bishop
	}
	orth := RookAttacks(sq, occ)
	if bb := orth & p.Pieces[c][Rook]; bb != 0 {
		return bb.LSB(), Rook
	}
	if bb := (diag | orth) & p.Pieces[c][Queen]; bb != 0 {
		return bb.LSB(), Queen
	}
	if bb := kingAttacks[sq] & p.Pieces[c][King]; bb != 0 {
		return bb.LSB(), King
	}
	return NoSquare, NoPieceType
}
