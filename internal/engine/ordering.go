package engine

import (
	"slices"

	"github.com/hailam/foxsee/internal/board"
)

// Move ordering scores. Everything tactical sits on top of maxNonCaptureScore
// so it always outranks quiet moves ordered by history.
const (
	maxHistoryScore      = 100000
	maxNonCaptureScore   = 200000
	primaryKillerBonus   = 1
	secondaryKillerBonus = -1000
)

// killer is a quiet move that caused a cutoff, with the score it cut with.
type killer struct {
	move  board.Move
	score int
}

// killerTable keeps a primary and a secondary killer per ply.
type killerTable [MaxDepth][2]killer

// update records a cutoff move. A higher score (or an empty primary slot)
// promotes the move to primary and demotes the old primary.
func (kt *killerTable) update(ply int, m board.Move, score int) {
	if ply >= MaxDepth {
		return
	}
	slot := &kt[ply]
	if score > slot[0].score || slot[0].move == board.NoMove {
		slot[1] = slot[0]
		slot[0] = killer{m, score}
		return
	}
	if score > slot[1].score || slot[1].move == board.NoMove {
		slot[1] = killer{m, score}
	}
}

// get returns the killers for ply. Empty slots borrow from two plies
// earlier, where the same side was to move; below ply 3 there is nothing
// to borrow and the slots stay empty.
func (kt *killerTable) get(ply int) (primary, secondary board.Move) {
	if ply >= MaxDepth {
		return board.NoMove, board.NoMove
	}
	primary = kt[ply][0].move
	if primary == board.NoMove && ply > 2 {
		return kt[ply-2][0].move, kt[ply-2][1].move
	}
	secondary = kt[ply][1].move
	if secondary == board.NoMove && ply > 2 {
		return primary, kt[ply-2][0].move
	}
	return primary, secondary
}

func (kt *killerTable) clear() {
	*kt = killerTable{}
}

// historyTable is indexed by [from][to].
type historyTable [64][64]int

// update adds depth² while the entry stays below maxHistoryScore.
func (ht *historyTable) update(m board.Move, depth int) {
	inc := depth * depth
	h := &ht[m.From()][m.To()]
	if *h < maxHistoryScore-inc {
		*h += inc
	}
}

func (ht *historyTable) score(m board.Move) int {
	return ht[m.From()][m.To()]
}

func (ht *historyTable) clear() {
	*ht = historyTable{}
}

// scoredMove pairs a move with its ordering score.
type scoredMove struct {
	move  board.Move
	score int
}

// isCapture reports whether m takes a piece, en passant included.
func isCapture(pos *board.Position, m board.Move) bool {
	return pos.PieceAt(m.To()) != board.NoPiece || m.Kind() == board.KindEnPassant
}

// orderMoves generates the pseudo-legal moves of pos, drops skip (the hash
// move, already searched) and returns the rest sorted best first.
func (s *Searcher) orderMoves(pos *board.Position, ply int, skip board.Move) []scoredMove {
	var ml board.MoveList
	pos.GeneratePseudoLegalMoves(&ml)
	primary, secondary := s.killers.get(ply)

	out := make([]scoredMove, 0, ml.Len())
	for _, m := range ml.Slice() {
		if m == skip {
			continue
		}
		var score int
		switch {
		case isCapture(pos, m):
			score = maxNonCaptureScore + SEE(pos, m)
		case m.IsPromotion():
			score = maxNonCaptureScore + PieceValue(m.Promotion())
		case m == primary:
			score = maxNonCaptureScore + primaryKillerBonus
		case m == secondary:
			score = maxNonCaptureScore + secondaryKillerBonus
		default:
			score = s.history.score(m)
		}
		out = append(out, scoredMove{m, score})
	}
	sortScored(out)
	return out
}

// sortScored orders moves by descending score. The sort is stable so equal
// scores keep generation order.
func sortScored(moves []scoredMove) {
	slices.SortStableFunc(moves, func(a, b scoredMove) int {
		return b.score - a.score
	})
}
