package board

import (
	"errors"
	"fmt"
)

// ErrIllegalMove is returned when a move string does not match any legal move.
var ErrIllegalMove = errors.New("illegal move")

// GeneratePseudoLegalMoves appends every pseudo-legal move to ml. Moves may
// leave the mover's own king attacked.
func (p *Position) GeneratePseudoLegalMoves(ml *MoveList) {
	us := p.SideToMove
	targets := ^p.Occupied[us]
	p.generatePawnMoves(ml, false)
	p.generatePieceMoves(ml, targets)
	p.generateCastling(ml)
}

// GenerateCaptures appends captures, en passant and promotions to ml.
func (p *Position) GenerateCaptures(ml *MoveList) {
	p.generatePawnMoves(ml, true)
	p.generatePieceMoves(ml, p.Occupied[p.SideToMove.Other()])
}

func (p *Position) generatePieceMoves(ml *MoveList, targets Bitboard) {
	us := p.SideToMove
	occ := p.AllOccupied
	for pt := Knight; pt <= King; pt++ {
		pieces := p.Pieces[us][pt]
		for pieces != 0 {
			from := pieces.PopLSB()
			var attacks Bitboard
			switch pt {
			case Knight:
				attacks = knightAttacks[from]
			case Bishop:
				attacks = BishopAttacks(from, occ)
			case Rook:
				attacks = RookAttacks(from, occ)
			case Queen:
				attacks = QueenAttacks(from, occ)
			case King:
				attacks = kingAttacks[from]
			}
			attacks &= targets
			for attacks != 0 {
				ml.Add(NewMove(from, attacks.PopLSB(), KindNormal, NoPieceType))
			}
		}
	}
}

func (p *Position) generatePawnMoves(ml *MoveList, tacticalOnly bool) {
	us := p.SideToMove
	pawns := p.Pieces[us][Pawn]
	enemies := p.Occupied[us.Other()]
	empty := ^p.AllOccupied

	var push, double, capLeft, capRight, lastRank Bitboard
	var step int
	if us == White {
		push = pawns.north() & empty
		double = (push & Rank3).north() & empty
		capLeft = pawns.northWest() & enemies
		capRight = pawns.northEast() & enemies
		lastRank, step = Rank8, 8
	} else {
		push = pawns.south() & empty
		double = (push & Rank6).south() & empty
		capLeft = pawns.southWest() & enemies
		capRight = pawns.southEast() & enemies
		lastRank, step = Rank1, -8
	}

	add := func(targets Bitboard, delta int) {
		for targets != 0 {
			to := targets.PopLSB()
			from := Square(int(to) - delta)
			if lastRank.Has(to) {
				for _, pt := range [...]PieceType{Queen, Rook, Bishop, Knight} {
					ml.Add(NewMove(from, to, KindPromotion, pt))
				}
				continue
			}
			ml.Add(NewMove(from, to, KindNormal, NoPieceType))
		}
	}

	add(capLeft, step-1)
	add(capRight, step+1)
	if tacticalOnly {
		add(push&lastRank, step)
	} else {
		add(push, step)
		for double != 0 {
			to := double.PopLSB()
			ml.Add(NewMove(Square(int(to)-2*step), to, KindDoublePush, NoPieceType))
		}
	}

	if p.EnPassant != NoSquare {
		attackers := pawnAttacks[us.Other()][p.EnPassant] & pawns
		for attackers != 0 {
			ml.Add(NewMove(attackers.PopLSB(), p.EnPassant, KindEnPassant, NoPieceType))
		}
	}
}

type castleRule struct {
	right      CastlingRights
	from, to   Square
	rook       Square
	empty      Bitboard
	kingPassed [3]Square
}

var castleRules = [2][2]castleRule{
	{
		{WhiteKingSide, E1, G1, H1, SquareBB(F1) | SquareBB(G1), [3]Square{E1, F1, G1}},
		{WhiteQueenSide, E1, C1, A1, SquareBB(B1) | SquareBB(C1) | SquareBB(D1), [3]Square{E1, D1, C1}},
	},
	{
		{BlackKingSide, E8, G8, H8, SquareBB(F8) | SquareBB(G8), [3]Square{E8, F8, G8}},
		{BlackQueenSide, E8, C8, A8, SquareBB(B8) | SquareBB(C8) | SquareBB(D8), [3]Square{E8, D8, C8}},
	},
}

func (p *Position) generateCastling(ml *MoveList) {
	us := p.SideToMove
	for _, r := range castleRules[us] {
		if p.CastlingRights&r.right == 0 || p.AllOccupied&r.empty != 0 {
			continue
		}
		if p.Board[r.from] != NewPiece(King, us) || p.Board[r.rook] != NewPiece(Rook, us) {
			continue
		}
		safe := true
		for _, sq := range r.kingPassed {
			if p.IsAttacked(sq, us.Other()) {
				safe = false
				break
			}
		}
		if safe {
			ml.Add(NewMove(r.from, r.to, KindCastle, NoPieceType))
		}
	}
}

// IsLegal plays m and reports whether the mover's king is safe afterwards.
func (p *Position) IsLegal(m Move) bool {
	us := p.SideToMove
	p.DoMove(m)
	ok := !p.IsInCheck(us)
	p.UndoMove()
	return ok
}

// LegalMoves returns the legal moves in generation order.
func (p *Position) LegalMoves() []Move {
	var ml MoveList
	p.GeneratePseudoLegalMoves(&ml)
	legal := make([]Move, 0, ml.Len())
	for _, m := range ml.Slice() {
		if p.IsLegal(m) {
			legal = append(legal, m)
		}
	}
	return legal
}

// HasLegalMove reports whether the side to move has any legal move.
func (p *Position) HasLegalMove() bool {
	var ml MoveList
	p.GeneratePseudoLegalMoves(&ml)
	for _, m := range ml.Slice() {
		if p.IsLegal(m) {
			return true
		}
	}
	return false
}

// IsCheckmate reports the side to move is in check with no legal move.
func (p *Position) IsCheckmate() bool {
	return p.IsInCheck(p.SideToMove) && !p.HasLegalMove()
}

// IsStalemate reports the side to move is not in check but cannot move.
func (p *Position) IsStalemate() bool {
	return !p.IsInCheck(p.SideToMove) && !p.HasLegalMove()
}

// ParseUCIMove resolves a long algebraic move such as "e2e4" or "e7e8q"
// against the legal moves of the position.
func (p *Position) ParseUCIMove(s string) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return NoMove, fmt.Errorf("%w: %q", ErrIllegalMove, s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %v", ErrIllegalMove, err)
	}
	promo := NoPieceType
	if len(s) == 5 {
		pt, ok := promotionPieceFromChar(s[4])
		if !ok {
			return NoMove, fmt.Errorf("%w: invalid promotion piece %q", ErrIllegalMove, s[4:])
		}
		promo = pt
	}
	for _, m := range p.LegalMoves() {
		if m.From() == from && m.To() == to && m.Promotion() == promo {
			return m, nil
		}
	}
	return NoMove, fmt.Errorf("%w: %s in %s", ErrIllegalMove, s, p.FEN())
}
