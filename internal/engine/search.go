package engine

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/hailam/foxsee/internal/board"
)

// Search constants
const (
	MaxDepth        = 128 // hard bound on ply and on stored depth
	DefaultMaxDepth = 64
	pvPrintLength   = 16
	timeCheckMask   = 4095
)

// Aspiration windows
const (
	windowSize     = 50
	extendedWindow = 200
)

// Pruning constants
const (
	nullMoveDepth     = 6
	nullMoveReduction = 2
	futilityDepth     = 7
	iidDepth          = 7
	iidReduction      = 2
	deltaMargin       = 200
)

// futilityMargin is indexed by remaining depth.
var futilityMargin = [futilityDepth + 1]int{0, 420, 540, 660, 780, 900, 1020, 1140}

// Info is reported once per completed iteration.
type Info struct {
	Depth    int
	SelDepth int
	Score    int // centipawns, side to move
	Mate     int // moves to mate, negative when being mated, 0 if no mate
	Nodes    uint64
	NPS      uint64
	Time     time.Duration
	PV       []board.Move
}

// Result is the outcome of a search.
type Result struct {
	BestMove board.Move
	Score    int
	Depth    int
	Nodes    uint64
	Elapsed  time.Duration
	PV       []board.Move
}

// Searcher holds the state of one search context: the shared hash tables,
// killer and history tables, the clock and the cancellation flag. It is not
// safe for concurrent searches; Stop may be called from any goroutine.
type Searcher struct {
	tables  *HashTables
	pawns   *PawnTable
	killers killerTable
	history historyTable

	stopped    atomic.Bool
	ctx        context.Context
	nodes      uint64 // current iteration
	totalNodes uint64
	selDepth   int
	start      time.Time
	limit      time.Duration

	// OnInfo is called after every completed iteration.
	OnInfo func(Info)
}

// NewSearcher creates a searcher over the given tables. pawns may be nil.
func NewSearcher(tables *HashTables, pawns *PawnTable) *Searcher {
	return &Searcher{tables: tables, pawns: pawns}
}

// Stop aborts the running search. The best move of the last completed
// iteration is still returned.
func (s *Searcher) Stop() {
	s.stopped.Store(true)
}

// IsStopped reports whether the current search has been aborted.
func (s *Searcher) IsStopped() bool {
	return s.stopped.Load()
}

// Nodes returns the node count of the last search.
func (s *Searcher) Nodes() uint64 {
	return s.totalNodes
}

// Search runs iterative deepening on pos until maxDepth is reached, a mate
// is found, the budget runs out or ctx is cancelled. pos is restored before
// returning.
func (s *Searcher) Search(ctx context.Context, pos *board.Position, budget TimeBudget, maxDepth int) Result {
	s.start = time.Now()
	s.limit = budget.Main
	s.ctx = ctx
	s.killers.clear()
	s.history.clear()
	s.stopped.Store(false)
	s.totalNodes = 0
	defer func() { s.ctx = nil }()

	maxDepth = min(max(maxDepth, 1), MaxDepth-1)

	legal := pos.LegalMoves()
	if len(legal) == 0 {
		score := 0
		if pos.IsInCheck(pos.SideToMove) {
			score = -MateValue
		}
		return Result{BestMove: board.NoMove, Score: score, Elapsed: time.Since(s.start)}
	}
	// Something legal is returned even when stopped before depth 1 completes.
	res := Result{BestMove: legal[0]}

	inCheck := pos.IsInCheck(pos.SideToMove)
	alpha, beta := -MateValue, MateValue
	depth := 1
	var lastIteration time.Duration
	extraUsed, widened := false, false

	for {
		if ctx != nil && ctx.Err() != nil {
			s.stopped.Store(true)
		}
		s.nodes = 0
		s.selDepth = 0

		score := s.abSearch(pos, inCheck, false, alpha, beta, depth, 0)
		s.totalNodes += s.nodes

		if s.stopped.Load() {
			break
		}

		if score <= alpha && alpha > -MateValue {
			if !widened {
				alpha = score - extendedWindow
				widened = true
			} else {
				alpha = -MateValue
			}
			if !extraUsed && budget.Extra > 0 && time.Since(s.start) > s.limit/2 {
				s.limit += budget.Extra
				extraUsed = true
			}
			continue
		}

		if score >= beta && beta < MateValue {
			if !widened {
				beta = score + extendedWindow
				widened = true
			} else {
				beta = MateValue
			}
			continue
		}

		elapsed := time.Since(s.start)
		pv := s.retrievePV(pos)
		mate := abs(score) > TermValue

		if len(pv) > 0 {
			res = Result{
				BestMove: pv[0],
				Score:    score,
				Depth:    depth,
				PV:       pv,
			}
			s.report(depth, score, elapsed, elapsed-lastIteration, pv)

			if mate || elapsed-lastIteration > s.limit/2 {
				break
			}
		}

		depth++
		lastIteration = elapsed
		if depth > maxDepth {
			break
		}

		alpha, beta = score-windowSize, score+windowSize
		widened = false
	}

	res.Nodes = s.totalNodes
	res.Elapsed = time.Since(s.start)
	return res
}

// report publishes one completed iteration through OnInfo.
func (s *Searcher) report(depth, score int, elapsed, iteration time.Duration, pv []board.Move) {
	if s.OnInfo == nil {
		return
	}
	info := Info{
		Depth:    depth,
		SelDepth: s.selDepth,
		Score:    score,
		Mate:     MateDistance(score),
		Nodes:    s.nodes,
		NPS:      s.nodes / uint64(max(1, int64(iteration/time.Second))),
		Time:     elapsed,
		PV:       pv,
	}
	s.OnInfo(info)
}

// MateDistance converts a mate score into moves to mate, negative when the
// side to move is being mated. It returns 0 for ordinary scores.
func MateDistance(score int) int {
	switch {
	case score > TermValue:
		return (MateValue - score + 1) / 2
	case score < -TermValue:
		return (-MateValue - score - 1) / 2
	}
	return 0
}

// checkTime polls the clock and the context every timeCheckMask+1 nodes.
func (s *Searcher) checkTime() bool {
	if s.nodes&timeCheckMask != 0 {
		return false
	}
	if time.Since(s.start) > s.limit || (s.ctx != nil && s.ctx.Err() != nil) {
		s.stopped.Store(true)
		return true
	}
	return false
}

// abSearch is the main alpha-beta search. inCheck tells whether the side to
// move is in check, onExtend whether the move leading here was extended.
func (s *Searcher) abSearch(pos *board.Position, inCheck, onExtend bool, alpha, beta, depth, ply int) int {
	if s.stopped.Load() {
		return alpha
	}

	s.nodes++
	if s.checkTime() {
		return alpha
	}

	// The previous move left its own king en prise.
	if pos.IsInCheck(pos.SideToMove.Other()) {
		return MateValue - ply
	}

	if ply > 0 && pos.IsDraw() {
		return 0
	}

	if ply >= MaxDepth-1 {
		return Evaluate(pos)
	}

	onPV := beta-alpha > 1

	// Mate distance pruning
	if ply > 0 {
		if mating := MateValue - ply; mating < beta {
			if alpha >= mating {
				return mating
			}
			beta = mating
		}
		if mated := -MateValue + ply; mated > alpha {
			if beta <= mated {
				return mated
			}
			alpha = mated
		}
	}

	originalAlpha := alpha
	hashMove := board.NoMove

	switch p := s.tables.probe(pos, depth); p.Kind {
	case ProbeMatch:
		hashMove = p.Move
		if ply > 1 {
			score := scoreFromTT(p.Score, ply)
			switch p.Bound {
			case BoundExact:
				return score
			case BoundUpper:
				if score <= alpha {
					return alpha
				}
				beta = min(beta, score)
			case BoundLower:
				if score >= beta {
					return beta
				}
				alpha = max(alpha, score)
			}
		}
	case ProbeMoveOnly:
		hashMove = p.Move
	}

	if depth <= 0 {
		return s.qSearch(pos, alpha, beta, ply)
	}

	endgame := InEndgame(pos)

	// Futility pruning
	if ply > 0 && !onExtend && !inCheck && depth <= futilityDepth && !endgame {
		material, draw := MaterialScore(pos)
		if draw {
			return 0
		}
		if material-futilityMargin[depth] > beta {
			if positionalScore(pos, material, s.pawns)-futilityMargin[depth] > beta {
				return beta
			}
		}
	}

	// Null move pruning
	if ply > 0 && !onExtend && !inCheck && !endgame && depth >= nullMoveDepth {
		r := nullMoveReduction
		if depth > nullMoveDepth {
			r++
		}
		pos.DoNullMove()
		score := -s.abSearch(pos, false, false, -beta, -beta+1, depth-r-1, ply+1)
		pos.UndoNullMove()

		if s.stopped.Load() {
			return alpha
		}
		if score >= beta {
			return beta
		}
	}

	// Internal iterative deepening
	if onPV && hashMove == board.NoMove && depth >= iidDepth {
		s.abSearch(pos, inCheck, onExtend, alpha, beta, depth-iidReduction, ply)
		if s.stopped.Load() {
			return alpha
		}
		if p := s.tables.probe(pos, depth); p.Kind != ProbeMiss {
			hashMove = p.Move
		}
	}

	if hashMove != board.NoMove && !plausible(pos, hashMove) {
		hashMove = board.NoMove
	}

	moveCount := 0
	bestScore := -MateValue
	bestMove := hashMove
	pvFound := false

	if hashMove != board.NoMove {
		moveCount++
		capture := isCapture(pos, hashMove)

		pos.DoMove(hashMove)
		givesCheck := pos.IsInCheck(pos.SideToMove)
		d := depth
		extended := false
		if givesCheck || isPassedPawnPush(pos, hashMove.To()) {
			d++
			extended = true
		}
		score := -s.abSearch(pos, givesCheck, extended, -beta, -alpha, d-1, ply+1)
		pos.UndoMove()

		if s.stopped.Load() {
			return alpha
		}

		if score >= beta {
			s.cutoff(pos, hashMove, capture, depth, ply, score)
			return score
		}
		if score > bestScore {
			bestScore = score
			bestMove = hashMove
		}
		if score > alpha {
			alpha = score
			pvFound = true
		}
	}

	moves := s.orderMoves(pos, ply, hashMove)

	if s.stopped.Load() {
		return alpha
	}

	for _, sm := range moves {
		m := sm.move
		moveCount++

		capture := isCapture(pos, m)
		goodCapture := capture && sm.score >= maxNonCaptureScore

		pos.DoMove(m)
		givesCheck := pos.IsInCheck(pos.SideToMove)
		passer := isPassedPawnPush(pos, m.To())
		d := depth
		extended := false
		if givesCheck || passer {
			d++
			extended = true
		}

		var score int
		if d > 1 && moveCount > 1 && !givesCheck && !goodCapture && !passer {
			r := min(int(math.Sqrt(float64((d+moveCount)/2))), d)
			score = -s.abSearch(pos, givesCheck, extended, -alpha-1, -alpha, d-r, ply+1)
			if score > alpha {
				score = s.pvs(pos, givesCheck, extended, alpha, beta, d, ply, pvFound)
			}
		} else {
			score = s.pvs(pos, givesCheck, extended, alpha, beta, d, ply, pvFound)
		}

		pos.UndoMove()

		if s.stopped.Load() {
			return alpha
		}

		if score >= beta {
			s.cutoff(pos, m, capture, depth, ply, score)
			return score
		}
		if score > bestScore {
			bestScore = score
			bestMove = m
		}
		if score > alpha {
			alpha = score
			pvFound = true
		}
	}

	if alpha > originalAlpha {
		s.tables.store(pos, depth, BoundExact, scoreToTT(alpha, ply), bestMove)
	} else {
		s.tables.store(pos, depth, BoundUpper, scoreToTT(bestScore, ply), bestMove)
	}

	if bestScore < -TermValue && !inCheck && !pos.HasLegalMove() {
		s.tables.store(pos, MaxDepth, BoundExact, 0, board.NoMove)
		return 0
	}

	return alpha
}

// pvs searches the current child with a null window once a PV move has
// been found, re-searching with the full window when the score lands
// inside it.
func (s *Searcher) pvs(pos *board.Position, givesCheck, extended bool, alpha, beta, depth, ply int, pvFound bool) int {
	if pvFound {
		score := -s.abSearch(pos, givesCheck, extended, -alpha-1, -alpha, depth-1, ply+1)
		if score <= alpha || score >= beta {
			return score
		}
	}
	return -s.abSearch(pos, givesCheck, extended, -beta, -alpha, depth-1, ply+1)
}

// cutoff records a fail-high: quiet moves feed history and killers, and a
// lower bound is stored for the position.
func (s *Searcher) cutoff(pos *board.Position, m board.Move, capture bool, depth, ply, score int) {
	if !capture && !m.IsPromotion() {
		s.history.update(m, depth)
		s.killers.update(ply, m, score)
	}
	s.tables.store(pos, depth, BoundLower, scoreToTT(score, ply), m)
}

// qSearch searches captures and promotions until the position is quiet.
func (s *Searcher) qSearch(pos *board.Position, alpha, beta, ply int) int {
	if s.stopped.Load() {
		return alpha
	}
	s.nodes++

	if pos.IsInCheck(pos.SideToMove.Other()) {
		return MateValue - ply
	}

	// Check evasions are not tactical; give them one full ply.
	if pos.IsInCheck(pos.SideToMove) {
		return s.abSearch(pos, true, true, alpha, beta, 1, ply)
	}

	if ply > s.selDepth {
		s.selDepth = ply
	}

	material, draw := MaterialScore(pos)
	if draw {
		return 0
	}
	if material-deltaMargin >= beta {
		return beta
	}

	score := positionalScore(pos, material, s.pawns)
	if score >= beta || ply >= MaxDepth-1 {
		return score
	}
	alpha = max(alpha, score)

	delta := alpha - score - deltaMargin

	var ml board.MoveList
	pos.GenerateCaptures(&ml)

	captures := make([]scoredMove, 0, ml.Len())
	for _, m := range ml.Slice() {
		gain := PieceValue(pos.PieceAt(m.To()).Type()) + PieceValue(m.Promotion())
		if m.Kind() == board.KindEnPassant {
			gain = PawnValue
		}
		if gain < delta {
			continue
		}
		see := SEE(pos, m)
		if see < 0 && !m.IsPromotion() {
			continue
		}
		captures = append(captures, scoredMove{m, see})
	}
	sortScored(captures)

	for _, sm := range captures {
		pos.DoMove(sm.move)
		score := -s.qSearch(pos, -beta, -alpha, ply+1)
		pos.UndoMove()

		if s.stopped.Load() {
			return alpha
		}
		if score >= beta {
			return score
		}
		alpha = max(alpha, score)
	}

	return alpha
}

// retrievePV follows hash moves from the root, stopping at the first
// missing or illegal one.
func (s *Searcher) retrievePV(pos *board.Position) []board.Move {
	var pv []board.Move
	for len(pv) < pvPrintLength {
		p := s.tables.probe(pos, MaxDepth)
		if p.Kind == ProbeMiss || p.Move == board.NoMove || !pos.IsPseudoLegal(p.Move) {
			break
		}
		pos.DoMove(p.Move)
		if pos.IsInCheck(pos.SideToMove.Other()) {
			pos.UndoMove()
			break
		}
		pv = append(pv, p.Move)
		if pos.IsDraw() {
			break
		}
	}
	for range pv {
		pos.UndoMove()
	}
	return pv
}

// isPassedPawnPush reports whether the piece that just moved to sq is an
// advanced pawn with no enemy pawn able to stop it and no enemy piece on
// its file. Call it after DoMove.
func isPassedPawnPush(pos *board.Position, sq board.Square) bool {
	pc := pos.PieceAt(sq)
	if pc.Type() != board.Pawn {
		return false
	}
	us := pc.Color()
	them := us.Other()
	return board.ForwardMask(us, sq)&pos.Pieces[them][board.Pawn] == 0 &&
		board.FileMask(sq)&pos.Occupied[them] == 0 &&
		sq.RelativeRank(us) > 2
}

// plausible is a cheap sanity check on a hash move before it is played.
func plausible(pos *board.Position, m board.Move) bool {
	pc := pos.PieceAt(m.From())
	if pc == board.NoPiece || pc.Color() != pos.SideToMove {
		return false
	}
	target := pos.PieceAt(m.To())
	if target != board.NoPiece && (target.Color() == pos.SideToMove || target.Type() == board.King) {
		return false
	}
	return pos.IsPseudoLegal(m)
}

// scoreToTT makes mate scores relative to the node before storing them.
func scoreToTT(score, ply int) int {
	switch {
	case score > TermValue:
		return score + ply
	case score < -TermValue:
		return score - ply
	}
	return score
}

// scoreFromTT converts a stored mate score back to distance from the root.
func scoreFromTT(score, ply int) int {
	switch {
	case score > TermValue:
		return score - ply
	case score < -TermValue:
		return score + ply
	}
	return score
}
