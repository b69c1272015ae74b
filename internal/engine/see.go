package engine

import (
	"github.com/hailam/foxsee/internal/board"
)

// SEE (Static Exchange Evaluation) returns the material balance of playing
// capture m and letting both sides keep recapturing on the target square
// with their least valuable attacker. Either side may stop recapturing when
// continuing would lose material.
func SEE(pos *board.Position, m board.Move) int {
	to := m.To()
	gain := PieceValue(pos.PieceAt(to).Type()) + PieceValue(m.Promotion())
	if m.Kind() == board.KindEnPassant {
		gain = PawnValue
	}

	pos.DoMove(m)
	score := gain - seeExchange(pos, to, pos.PieceAt(to).Type())
	pos.UndoMove()
	return score
}

// seeExchange returns the best the side to move can gain by recapturing
// the piece of type last standing on sq.
func seeExchange(pos *board.Position, sq board.Square, last board.PieceType) int {
	from, pt := pos.SmallestAttacker(pos.SideToMove, sq)
	if from == board.NoSquare {
		return 0
	}

	m := recapture(pos.SideToMove, from, sq, pt)
	pos.DoMove(m)
	score := max(0, PieceValue(last)+PieceValue(m.Promotion())-seeExchange(pos, sq, pos.PieceAt(sq).Type()))
	pos.UndoMove()
	return score
}

// recapture encodes a capture on sq; pawns reaching the last rank promote
// to a queen.
func recapture(us board.Color, from, sq board.Square, pt board.PieceType) board.Move {
	if pt == board.Pawn && sq.RelativeRank(us) == 7 {
		return board.NewMove(from, sq, board.KindPromotion, board.Queen)
	}
	return board.NewMove(from, sq, board.KindNormal, board.NoPieceType)
}
