// Package engine implements the search core: evaluation, transposition
// tables, move ordering, static exchange evaluation and the iterative
// deepening alpha-beta search that ties them together.
package engine

import (
	"github.com/hailam/foxsee/internal/board"
)

// Score bounds. Any score whose magnitude exceeds TermValue is a forced mate.
const (
	MateValue = 20000
	TermValue = 10000
)

// Material values
const (
	QueenValue  = 1000
	RookValue   = 525
	BishopValue = 350
	KnightValue = 340
	PawnValue   = 100
)

// pieceValues is indexed by board.PieceType; the king is worth a mate.
var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, MateValue, 0}

// PieceValue returns the material value of pt, zero for NoPieceType.
func PieceValue(pt board.PieceType) int {
	return pieceValues[pt]
}

// Game phase weights. Phase runs from 0 (bare kings and pawns) to TotalPhase.
const (
	TotalPhase   = 96
	EndgamePhase = 16

	queenPhase  = 16
	rookPhase   = 8
	bishopPhase = 4
	knightPhase = 4
)

// TempoBonus is added for the side to move. It is the only term that does
// not cancel when the same position is scored from the other side.
const TempoBonus = 10

// Feature weights
const (
	kingExposedPen     = -50
	kingThreatPen      = -30
	kingPawnThreatPen  = -30
	lostCastlingPen    = -50
	passedPawnBase     = 30
	passedPawnRank     = 20
	unstoppablePasser  = 200
	controlledPasser   = 30
	doubledPawnPen     = -20
	isolatedPawnPen    = -20
	behindPawnPen      = -10
	rookSemiOpenFile   = 20
	rookOpenFile       = 25
	queenOpenFile      = 20
	threatenedPiecePen = -30
	defendedPieceVal   = 15
	defendedPawnVal    = 10
	midgameMobility    = 2
	endgameMobility    = 2
	endgameRookExtra   = 30
	endgameQueenExtra  = 30

	trappedQueenPen  = -90
	trappedRookPen   = -80
	trappedBishopPen = -60
	trappedKnightPen = -60

	blockedQueenPen  = -30
	blockedRookPen   = -30
	blockedBishopPen = -30
	blockedKnightPen = -30
)

// Square tables from White's point of view, a1 first. Black reads them
// through Square.Mirror.
var (
	pawnMidgameTable = [64]int{
		0, 0, 0, 0, 0, 0, 0, 0,
		5, 10, 10, -20, -20, 10, 10, 5,
		5, -5, -10, 0, 0, -10, -5, 5,
		0, 0, 0, 20, 20, 0, 0, 0,
		5, 5, 10, 25, 25, 10, 5, 5,
		10, 20, 20, 30, 30, 20, 20, 10,
		50, 50, 50, 50, 50, 50, 50, 50,
		0, 0, 0, 0, 0, 0, 0, 0,
	}
	pawnEndgameTable = [64]int{
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
		5, 10, 10, 10, 10, 10, 10, 5,
		10, 15, 15, 15, 15, 15, 15, 10,
		15, 20, 20, 20, 20, 20, 20, 15,
		20, 30, 30, 30, 30, 30, 30, 20,
		0, 0, 0, 0, 0, 0, 0, 0,
	}
	knightTable = [64]int{
		-30, -20, -20, -20, -20, -20, -20, -30,
		-20, -20, 0, 0, 0, 0, -20, -20,
		-20, 5, 10, 15, 15, 10, 5, -20,
		-20, 0, 15, 20, 20, 15, 0, -20,
		-20, 5, 15, 20, 20, 15, 5, -20,
		-20, 0, 10, 15, 15, 10, 0, -20,
		-20, -20, 0, 0, 0, 0, -20, -20,
		-30, -20, -20, -20, -20, -20, -20, -30,
	}
	bishopTable = [64]int{
		-20, -10, -10, -10, -10, -10, -10, -20,
		-10, 5, 0, 0, 0, 0, 5, -10,
		-10, 10, 10, 5, 5, 10, 10, -10,
		-10, 0, 10, 10, 10, 10, 0, -10,
		-10, 5, 5, 10, 10, 5, 5, -10,
		-10, 0, 5, 10, 10, 5, 0, -10,
		-20, 0, 10, 0, 0, 10, 0, -20,
		-20, -10, -10, -10, -10, -10, -10, -20,
	}
	rookTable = [64]int{
		0, 0, 0, 0, 0, 0, 0, 0,
		-10, -5, 0, 0, 0, 0, -5, -10,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		-5, 0, 0, 0, 0, 0, 0, -5,
		10, 20, 30, 30, 30, 30, 20, 10,
		5, 10, 20, 20, 20, 20, 10, 5,
	}
	queenTable = [64]int{
		-20, -10, -10, -5, -5, -10, -10, -20,
		-10, 0, 5, 0, 0, 0, 0, -10,
		-10, 5, 5, 5, 5, 5, 0, -10,
		0, 0, 5, 5, 5, 5, 0, -5,
		-5, 0, 5, 5, 5, 5, 0, -5,
		-10, 0, 5, 5, 5, 5, 0, -10,
		-10, 0, 0, 0, 0, 0, 0, -10,
		-20, -10, -10, -5, -5, -10, -10, -20,
	}
	kingMidgameTable = [64]int{
		20, 30, 10, 0, 0, 10, 30, 20,
		20, 20, 0, 0, 0, 0, 20, 20,
		-10, -20, -20, -20, -20, -20, -20, -10,
		-20, -30, -30, -40, -40, -30, -30, -20,
		-30, -40, -40, -50, -50, -40, -40, -30,
		-30, -40, -40, -50, -50, -40, -40, -30,
		-30, -40, -40, -50, -50, -40, -40, -30,
		-30, -40, -40, -50, -50, -40, -40, -30,
	}
	kingEndgameTable = [64]int{
		-50, -30, -30, -30, -30, -30, -30, -50,
		-30, -30, 0, 0, 0, 0, -30, -30,
		-30, -10, 20, 30, 30, 20, -10, -30,
		-30, -10, 30, 40, 40, 30, -10, -30,
		-30, -10, 30, 40, 40, 30, -10, -30,
		-30, -10, 20, 30, 30, 20, -10, -30,
		-30, -20, -10, 0, 0, -10, -20, -30,
		-50, -40, -30, -20, -20, -30, -40, -50,
	}
)

// tableSquare maps sq into White's frame for c.
func tableSquare(c board.Color, sq board.Square) board.Square {
	if c == board.Black {
		return sq.Mirror()
	}
	return sq
}

// FeatureMap holds the per-side counters the evaluator extracts from a
// position. Two are built per evaluation, one for each color.
type FeatureMap struct {
	Pawns, Knights, Bishops, Rooks, Queens int

	MidgameSquares int
	EndgameSquares int

	PassedPawns        int
	PassedPawnRanks    int
	UnstoppablePassers int
	ControlledPassers  int

	DoubledPawns  int
	IsolatedPawns int
	BehindPawns   int

	Mobility int

	TrappedKnights, TrappedBishops, TrappedRooks, TrappedQueens int
	BlockedKnights, BlockedBishops, BlockedRooks, BlockedQueens int

	SemiOpenRooks int
	OpenRooks     int
	OpenQueens    int

	ThreatenedPieces int
	DefendedPieces   int
	DefendedPawns    int

	KingExposed        int
	KingThreats        int
	KingPawnThreats    int
	LostCastlingRights int
}

// MaterialScore returns the material balance from the side to move's point
// of view. The boolean reports a material configuration that cannot be won,
// in which case the score is 0.
func MaterialScore(pos *board.Position) (int, bool) {
	w, b := &pos.Pieces[board.White], &pos.Pieces[board.Black]

	if w[board.Pawn]|b[board.Pawn]|w[board.Queen]|b[board.Queen]|w[board.Rook]|b[board.Rook] == 0 {
		wMinors := (w[board.Bishop] | w[board.Knight]).Count()
		bMinors := (b[board.Bishop] | b[board.Knight]).Count()
		if abs(wMinors-bMinors) < 2 {
			return 0, true
		}
		if wMinors == 0 && b[board.Bishop] == 0 && b[board.Knight].Count() < 3 {
			return 0, true
		}
		if bMinors == 0 && w[board.Bishop] == 0 && w[board.Knight].Count() < 3 {
			return 0, true
		}
	}

	score := 0
	for pt := board.Pawn; pt <= board.Queen; pt++ {
		score += (w[pt].Count() - b[pt].Count()) * pieceValues[pt]
	}
	if pos.SideToMove == board.Black {
		score = -score
	}
	return score, false
}

// Phase returns the game phase computed from the non-pawn material left on
// the board, capped at TotalPhase.
func Phase(pos *board.Position) int {
	w, b := &pos.Pieces[board.White], &pos.Pieces[board.Black]
	phase := (w[board.Queen]|b[board.Queen]).Count()*queenPhase +
		(w[board.Rook]|b[board.Rook]).Count()*rookPhase +
		(w[board.Bishop]|b[board.Bishop]).Count()*bishopPhase +
		(w[board.Knight]|b[board.Knight]).Count()*knightPhase
	return min(phase, TotalPhase)
}

// InEndgame is the guard used by null move and futility pruning: little
// non-pawn material left, or one side without pawns.
func InEndgame(pos *board.Position) bool {
	return Phase(pos) <= EndgamePhase ||
		pos.Pieces[board.White][board.Pawn] == 0 ||
		pos.Pieces[board.Black][board.Pawn] == 0
}

// Evaluate returns the full static evaluation of pos for the side to move.
func Evaluate(pos *board.Position) int {
	material, draw := MaterialScore(pos)
	if draw {
		return 0
	}
	return PositionalScore(pos, material)
}

// PositionalScore adds the phase-blended positional terms and the tempo
// bonus to a material score obtained from MaterialScore.
func PositionalScore(pos *board.Position, material int) int {
	return positionalScore(pos, material, nil)
}

func positionalScore(pos *board.Position, material int, pawns *PawnTable) int {
	w, b := extractFeatures(pos, pawns)

	shared := sharedTerms(&w) - sharedTerms(&b)
	midgame := midgameTerms(&w) - midgameTerms(&b)
	endgame := endgameTerms(&w) - endgameTerms(&b)

	phase := Phase(pos)
	extra := shared + (midgame*phase+endgame*(TotalPhase-phase))/TotalPhase
	if pos.SideToMove == board.Black {
		extra = -extra
	}
	return material + extra + TempoBonus
}

func sharedTerms(f *FeatureMap) int {
	return f.TrappedKnights*trappedKnightPen +
		f.TrappedBishops*trappedBishopPen +
		f.TrappedRooks*trappedRookPen +
		f.TrappedQueens*trappedQueenPen +
		f.BlockedKnights*blockedKnightPen +
		f.BlockedBishops*blockedBishopPen +
		f.BlockedRooks*blockedRookPen +
		f.BlockedQueens*blockedQueenPen +
		f.ThreatenedPieces*threatenedPiecePen +
		f.DefendedPieces*defendedPieceVal +
		f.DefendedPawns*defendedPawnVal
}

func midgameTerms(f *FeatureMap) int {
	return f.MidgameSquares +
		f.SemiOpenRooks*rookSemiOpenFile +
		f.OpenRooks*rookOpenFile +
		f.OpenQueens*queenOpenFile +
		f.Mobility*midgameMobility +
		f.KingExposed*kingExposedPen +
		f.KingThreats*kingThreatPen +
		f.KingPawnThreats*kingPawnThreatPen +
		f.BehindPawns*behindPawnPen +
		f.LostCastlingRights*lostCastlingPen
}

func endgameTerms(f *FeatureMap) int {
	return f.EndgameSquares +
		f.PassedPawns*passedPawnBase +
		f.PassedPawnRanks*passedPawnRank +
		f.UnstoppablePassers*unstoppablePasser +
		f.ControlledPassers*controlledPasser +
		f.IsolatedPawns*isolatedPawnPen +
		f.DoubledPawns*doubledPawnPen +
		f.Mobility*endgameMobility +
		f.Rooks*endgameRookExtra +
		f.Queens*endgameQueenExtra
}

// ExtractFeatures builds the white and black feature maps of pos.
func ExtractFeatures(pos *board.Position) (white, black FeatureMap) {
	return extractFeatures(pos, nil)
}

// attackSet collects, per color, the squares attacked by each piece type
// (kings excluded) and the movement mask of every non-pawn piece.
type attackSet struct {
	byType [2][5]board.Bitboard
	moves  [64]board.Bitboard
}

func (a *attackSet) all(c board.Color) board.Bitboard {
	t := &a.byType[c]
	return t[board.Pawn] | t[board.Knight] | t[board.Bishop] | t[board.Rook] | t[board.Queen]
}

// upTo returns the union of c's attacks by piece types below pt.
func (a *attackSet) upTo(c board.Color, pt board.PieceType) board.Bitboard {
	var bb board.Bitboard
	for t := board.Pawn; t < pt; t++ {
		bb |= a.byType[c][t]
	}
	return bb
}

func extractFeatures(pos *board.Position, pawns *PawnTable) (white, black FeatureMap) {
	var fm [2]FeatureMap
	var att attackSet

	occ := pos.AllOccupied
	pieceMask := occ &^ (pos.Pieces[board.White][board.Pawn] | pos.Pieces[board.Black][board.Pawn] |
		pos.Pieces[board.White][board.King] | pos.Pieces[board.Black][board.King])

	var pawnInfo *PawnEntry
	if pawns != nil {
		if e, ok := pawns.Probe(pos.PawnKey); ok {
			pawnInfo = e
		}
	}
	if pawnInfo == nil {
		e := pawnStructure(pos)
		pawnInfo = &e
		if pawns != nil {
			pawns.Store(e)
		}
	}

	for c := board.White; c <= board.Black; c++ {
		f := &fm[c]
		own := &pos.Pieces[c]
		enemy := &pos.Pieces[c.Other()]
		ps := &pawnInfo.Sides[c]

		f.PassedPawns = ps.Passed.Count()
		f.PassedPawnRanks = int(ps.PassedRanks)
		f.IsolatedPawns = int(ps.Isolated)
		f.BehindPawns = int(ps.Behind)
		f.DoubledPawns = int(ps.Doubled)
		f.MidgameSquares += int(ps.Midgame)
		f.EndgameSquares += int(ps.Endgame)
		att.byType[c][board.Pawn] = pos.PawnAttacksAll(c)

		if pieceMask == 0 {
			enemyKing := pos.KingSquare(c.Other())
			ownKing := pos.KingSquare(c)
			for passed := ps.Passed; passed != 0; {
				sq := passed.PopLSB()
				rank := sq.RelativeRank(c)
				distance := abs(sq.File() - enemyKing.File())
				if pos.SideToMove != c {
					distance--
				}
				if distance > 7-rank {
					f.UnstoppablePassers++
				}
				control := board.FrontControlMask(c, sq)
				if control == 0 || control.Has(ownKing) {
					f.ControlledPassers++
				}
			}
		}

		for bb := own[board.Knight]; bb != 0; {
			sq := bb.PopLSB()
			f.MidgameSquares += knightTable[tableSquare(c, sq)]
			att.moves[sq] = board.KnightAttacks(sq)
			att.byType[c][board.Knight] |= att.moves[sq]
		}

		for bb := own[board.Bishop]; bb != 0; {
			sq := bb.PopLSB()
			f.MidgameSquares += bishopTable[tableSquare(c, sq)]
			att.moves[sq] = board.BishopAttacks(sq, occ)
			att.byType[c][board.Bishop] |= att.moves[sq]
		}

		var semiOpen board.Bitboard
		for bb := own[board.Rook]; bb != 0; {
			sq := bb.PopLSB()
			f.MidgameSquares += rookTable[tableSquare(c, sq)]
			att.moves[sq] = board.RookAttacks(sq, occ)
			att.byType[c][board.Rook] |= att.moves[sq]

			file := board.FileMask(sq)
			if file&(pos.Occupied[c]^own[board.Rook]) == 0 {
				if file&pos.Occupied[c.Other()] == 0 {
					f.OpenRooks++
				} else if semiOpen&file == 0 {
					f.SemiOpenRooks++
					semiOpen |= file
				}
			}
		}

		for bb := own[board.Queen]; bb != 0; {
			sq := bb.PopLSB()
			f.MidgameSquares += queenTable[tableSquare(c, sq)]
			if board.FileMask(sq)&(occ^board.SquareBB(sq)) == 0 {
				f.OpenQueens++
			}
			att.moves[sq] = board.QueenAttacks(sq, occ)
			att.byType[c][board.Queen] |= att.moves[sq]
		}

		for bb := own[board.King]; bb != 0; {
			sq := bb.PopLSB()
			ts := tableSquare(c, sq)
			f.MidgameSquares += kingMidgameTable[ts]
			f.EndgameSquares += kingEndgameTable[ts]
			if enemy[board.Rook]|enemy[board.Queen] != 0 {
				f.KingExposed += kingExposure(pos, c, sq)
			}
		}

		f.Pawns = own[board.Pawn].Count()
		f.Knights = own[board.Knight].Count()
		f.Bishops = own[board.Bishop].Count()
		f.Rooks = own[board.Rook].Count()
		f.Queens = own[board.Queen].Count()

		if (pos.CastlingRights|pos.CastleHistory)&board.SideCastling[c] == 0 {
			f.LostCastlingRights = 1
		}
	}

	for c := board.White; c <= board.Black; c++ {
		pieceSafety(pos, &att, c, &fm[c])
	}

	return fm[board.White], fm[board.Black]
}

// kingExposure counts open or half-open files around the king at sq.
func kingExposure(pos *board.Position, c board.Color, sq board.Square) int {
	own := &pos.Pieces[c]
	enemy := &pos.Pieces[c.Other()]
	file := board.FileMask(sq)
	exposed := 0

	if file&own[board.Pawn]&board.PawnCoverMask[c] == 0 {
		exposed++
		if file&own[board.Pawn] == 0 {
			exposed++
		}
	}
	if f := sq.File(); f > 0 {
		side := board.Files[f-1]
		if side&own[board.Pawn] == 0 && side&own[board.Rook] == 0 {
			exposed++
		}
	}
	if f := sq.File(); f < 7 {
		side := board.Files[f+1]
		if side&own[board.Pawn] == 0 && side&own[board.Rook] == 0 {
			exposed++
		}
	}
	if enemy[board.Rook] != 0 && file&enemy[board.Pawn] == 0 {
		exposed++
	}
	return exposed
}

// pieceSafety fills the counters that need both sides' attack maps:
// trapped and blocked pieces, king threats, mobility, threats and defence.
func pieceSafety(pos *board.Position, att *attackSet, c board.Color, f *FeatureMap) {
	e := c.Other()
	own := &pos.Pieces[c]
	ownAttacks := att.all(c)
	enemyAttacks := att.all(e)
	enemyPawnAttacks := att.byType[e][board.Pawn]

	minorSafe := func(sq board.Square) board.Bitboard {
		mv := att.moves[sq] &^ enemyPawnAttacks
		return mv &^ (enemyAttacks &^ att.byType[c][board.Pawn])
	}
	classify := func(mv board.Bitboard, sq board.Square, needUndefended bool, trapped, blocked *int) {
		if mv == 0 && (!needUndefended || !ownAttacks.Has(sq)) {
			*trapped++
		} else if mv&^pos.Occupied[c] == 0 {
			*blocked++
		}
	}

	for bb := own[board.Knight]; bb != 0; {
		sq := bb.PopLSB()
		classify(minorSafe(sq), sq, true, &f.TrappedKnights, &f.BlockedKnights)
	}
	for bb := own[board.Bishop]; bb != 0; {
		sq := bb.PopLSB()
		classify(minorSafe(sq), sq, true, &f.TrappedBishops, &f.BlockedBishops)
	}
	for bb := own[board.Rook]; bb != 0; {
		sq := bb.PopLSB()
		classify(att.moves[sq]&^att.upTo(e, board.Rook), sq, true, &f.TrappedRooks, &f.BlockedRooks)
	}
	for bb := own[board.Queen]; bb != 0; {
		sq := bb.PopLSB()
		classify(att.moves[sq]&^att.upTo(e, board.Queen), sq, false, &f.TrappedQueens, &f.BlockedQueens)
	}

	if pos.Pieces[e][board.Queen] != 0 {
		zone := board.KingAttacks(pos.KingSquare(c))
		f.KingPawnThreats = (enemyPawnAttacks & zone).Count()
		f.KingThreats = (att.byType[e][board.Bishop] &^ att.byType[c][board.Pawn] & zone).Count()
		for pt := board.Rook; pt <= board.Queen; pt++ {
			f.KingThreats += (att.byType[e][pt] &^ att.upTo(c, pt) & zone).Count()
		}
	}

	f.Mobility = (att.byType[c][board.Knight] &^ own[board.Pawn] &^ enemyPawnAttacks).Count() +
		(att.byType[c][board.Bishop] &^ own[board.Pawn] &^ enemyPawnAttacks).Count()

	for bb := own[board.Pawn]; bb != 0; {
		sq := bb.PopLSB()
		if !enemyPawnAttacks.Has(sq) && (ownAttacks ^ att.byType[c][board.Queen]).Has(sq) {
			f.DefendedPawns++
		}
	}
	for pt := board.Knight; pt <= board.Queen; pt++ {
		threats := att.upTo(e, pt)
		if pt == board.Bishop {
			threats = enemyPawnAttacks
		}
		for bb := own[pt]; bb != 0; {
			sq := bb.PopLSB()
			switch {
			case threats.Has(sq):
				f.ThreatenedPieces++
			case pt != board.Queen && ownAttacks.Has(sq):
				f.DefendedPieces++
			}
		}
	}
}

// pawnStructure computes the pawn-only part of the evaluation. It depends on
// nothing but the pawns, so it can be cached under the pawn key.
func pawnStructure(pos *board.Position) PawnEntry {
	e := PawnEntry{Key: pos.PawnKey}
	for c := board.White; c <= board.Black; c++ {
		ownPawns := pos.Pieces[c][board.Pawn]
		enemyPawns := pos.Pieces[c.Other()][board.Pawn]
		s := &e.Sides[c]

		for bb := ownPawns; bb != 0; {
			sq := bb.PopLSB()
			ts := tableSquare(c, sq)
			s.Midgame += int16(pawnMidgameTable[ts])
			s.Endgame += int16(pawnEndgameTable[ts])

			file := board.FileMask(sq)
			forward := board.ForwardMask(c, sq)
			behind := board.BehindMask(c, sq)

			if forward&(enemyPawns|(ownPawns&file)) == 0 {
				s.Passed |= board.SquareBB(sq)
				s.PassedRanks += int16(sq.RelativeRank(c))
				if behind&board.KingAttacks(sq)&ownPawns != 0 {
					s.PassedRanks++
				}
			}

			if behind&ownPawns == 0 {
				if forward&^file&ownPawns == 0 {
					s.Isolated++
				} else {
					s.Behind++
					if forward&file&enemyPawns == 0 {
						s.Behind++
					}
				}
			}

			if (file & ownPawns).Count() > 1 {
				s.Doubled++
			}
		}
	}
	return e
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
