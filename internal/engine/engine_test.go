package engine

import (
	"context"
	"testing"
	"time"

	"github.com/hailam/foxsee/internal/board"
)

func TestSearchBasic(t *testing.T) {
	pos := board.NewPosition()
	eng := NewEngine(16)
	fen := pos.FEN()

	res := eng.Search(context.Background(), pos, Limits{Depth: 4})
	if res.BestMove == board.NoMove {
		t.Fatal("Search returned NoMove for starting position")
	}
	if !containsMove(pos.LegalMoves(), res.BestMove) {
		t.Errorf("best move %v is not legal", res.BestMove)
	}
	if pos.FEN() != fen {
		t.Errorf("Search modified the position: %s", pos.FEN())
	}
	t.Logf("Best move: %s score %d nodes %d", res.BestMove, res.Score, res.Nodes)
}

func containsMove(moves []board.Move, m board.Move) bool {
	for _, x := range moves {
		if x == m {
			return true
		}
	}
	return false
}

func TestSearchDepthLimit(t *testing.T) {
	eng := NewEngine(16)
	var depths []int
	eng.OnInfo = func(info Info) {
		depths = append(depths, info.Depth)
		if len(info.PV) == 0 {
			t.Errorf("depth %d reported an empty PV", info.Depth)
		}
	}

	res := eng.Search(context.Background(), board.NewPosition(), Limits{Depth: 3})
	if res.Depth > 3 {
		t.Errorf("searched to depth %d, limit 3", res.Depth)
	}
	for i := 1; i < len(depths); i++ {
		if depths[i] <= depths[i-1] {
			t.Errorf("info depths not increasing: %v", depths)
		}
	}
	if len(depths) == 0 || depths[len(depths)-1] != res.Depth {
		t.Errorf("last info depth %v, result depth %d", depths, res.Depth)
	}
}

func TestSearchFindsMate(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		best string
	}{
		{"back rank", "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1", "a1a8"},
		{"queen and king", "7k/8/6K1/8/8/8/8/1Q6 w - - 0 1", "b1b8"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := mustFEN(t, tt.fen)
			eng := NewEngine(16)
			res := eng.Search(context.Background(), pos, Limits{Depth: 4})

			if res.Score <= TermValue {
				t.Errorf("score %d is not a mate score", res.Score)
			}
			if got := MateDistance(res.Score); got != 1 {
				t.Errorf("mate distance %d, want 1", got)
			}
			if tt.best != "" && res.BestMove.String() != tt.best {
				t.Errorf("best move %s, want %s", res.BestMove, tt.best)
			}
		})
	}
}

func TestSearchNoLegalMoves(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		score int
	}{
		{"stalemate", "1k6/1P6/1K6/8/8/8/8/8 b - - 0 1", 0},
		{"stalemate with pawn", "8/8/8/2r5/8/k7/1p6/1K6 w - - 0 1", 0},
		{"checkmate", "R5k1/5ppp/8/8/8/8/8/6K1 b - - 0 1", -MateValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := NewEngine(16)
			res := eng.Search(context.Background(), mustFEN(t, tt.fen), Limits{Depth: 5})
			if res.BestMove != board.NoMove {
				t.Errorf("best move %v, want none", res.BestMove)
			}
			if res.Score != tt.score {
				t.Errorf("score %d, want %d", res.Score, tt.score)
			}
		})
	}
}

func TestStalemateDetectedInTree(t *testing.T) {
	// Every king move is illegal, so the node must score a draw and cache
	// it at full depth instead of reporting a mate.
	pos := mustFEN(t, "1k6/1P6/1K6/8/8/8/8/8 b - - 0 1")
	if pos.HasLegalMove() || pos.IsInCheck(board.Black) {
		t.Fatal("expected a stalemate position")
	}

	s := NewSearcher(NewHashTables(16), nil)
	s.limit = Unlimited
	s.start = time.Now()
	if got := s.abSearch(pos, false, false, -MateValue, MateValue, 2, 1); got != 0 {
		t.Errorf("abSearch = %d, want 0", got)
	}

	p := s.tables.probe(pos, MaxDepth)
	if p.Kind != ProbeMatch || p.Bound != BoundExact || p.Score != 0 || p.Move != board.NoMove {
		t.Errorf("stalemate entry = %+v", p)
	}
}

func TestSearchCancelled(t *testing.T) {
	eng := NewEngine(16)
	pos := board.NewPosition()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := eng.Search(ctx, pos, Limits{Infinite: true})
	if !containsMove(pos.LegalMoves(), res.BestMove) {
		t.Errorf("cancelled search returned %v, want a legal move", res.BestMove)
	}
}

func TestSearchStop(t *testing.T) {
	eng := NewEngine(16)
	pos := board.NewPosition()

	done := make(chan Result, 1)
	go func() {
		done <- eng.Search(context.Background(), pos, Limits{Infinite: true})
	}()

	time.Sleep(100 * time.Millisecond)
	eng.Stop()

	select {
	case res := <-done:
		if res.BestMove == board.NoMove {
			t.Error("stopped search returned NoMove")
		}
		t.Logf("stopped at depth %d after %v", res.Depth, res.Elapsed)
	case <-time.After(5 * time.Second):
		t.Fatal("search did not stop")
	}
}

func TestEvaluateDuringSearch(t *testing.T) {
	eng := NewEngine(32)
	pos := mustFEN(t, "r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3")
	probe := pos.Copy()
	want := Evaluate(probe)

	done := make(chan Result, 1)
	go func() {
		done <- eng.Search(context.Background(), pos, Limits{Depth: 6})
	}()

	for i := 0; i < 50; i++ {
		if got := eng.Evaluate(probe); got != want {
			t.Fatalf("evaluation %d changed to %d while searching", want, got)
		}
	}

	select {
	case res := <-done:
		if !containsMove(pos.LegalMoves(), res.BestMove) {
			t.Errorf("search returned %v", res.BestMove)
		}
	case <-time.After(30 * time.Second):
		eng.Stop()
		t.Fatal("search did not finish")
	}
}

func TestSearchMoveTime(t *testing.T) {
	eng := NewEngine(16)
	start := time.Now()
	res := eng.Search(context.Background(), board.NewPosition(), Limits{MoveTime: 200 * time.Millisecond})
	elapsed := time.Since(start)

	if res.BestMove == board.NoMove {
		t.Fatal("no move found")
	}
	if elapsed > time.Second {
		t.Errorf("movetime 200ms took %v", elapsed)
	}
}

func TestSearchTactics(t *testing.T) {
	if testing.Short() {
		t.Skip("tactics need several seconds each")
	}

	tests := []struct {
		fen  string
		best string
	}{
		{"2k2r2/pp2br2/1np1p2q/2NpP2p/2PP2p1/1P1N4/P3Q1PP/3R1R1K b - - 8 27", "h6d2"},
		{"r3r1k1/ppqb1ppp/8/4p1NQ/8/2P5/PP3PPP/R3R1K1 b - - 0 1", "d7f5"},
		{"8/1k3ppp/8/5PPP/8/8/1K6/8 w - - 9 83", "g5g6"},
		{"8/8/1r2b3/8/8/2p5/2kR4/K7 b - - 3 56", "c2b3"},
	}

	for _, tt := range tests {
		t.Run(tt.best, func(t *testing.T) {
			eng := NewEngine(128)
			res := eng.Search(context.Background(), mustFEN(t, tt.fen), Limits{MoveTime: 5500 * time.Millisecond})
			t.Logf("%s: %s score %d depth %d", tt.fen, res.BestMove, res.Score, res.Depth)
			if tt.best != "" && res.BestMove.String() != tt.best {
				t.Errorf("best move %s, want %s", res.BestMove, tt.best)
			}
		})
	}
}

func TestRetrievePV(t *testing.T) {
	pos := board.NewPosition()
	s := NewSearcher(NewHashTables(16), nil)
	res := s.Search(context.Background(), pos, TimeBudget{Main: Unlimited}, 4)

	if len(res.PV) == 0 || res.PV[0] != res.BestMove {
		t.Fatalf("PV %v does not start with best move %v", res.PV, res.BestMove)
	}
	if len(res.PV) > pvPrintLength {
		t.Errorf("PV has %d moves, max %d", len(res.PV), pvPrintLength)
	}

	// Every PV move must be legal in sequence.
	p := pos.Copy()
	for i, m := range res.PV {
		if !containsMove(p.LegalMoves(), m) {
			t.Fatalf("PV move %d (%v) is illegal", i, m)
		}
		p.DoMove(m)
	}
}

func TestMateDistance(t *testing.T) {
	tests := []struct {
		score, want int
	}{
		{MateValue - 1, 1},
		{MateValue - 2, 1},
		{MateValue - 3, 2},
		{-MateValue + 2, -1},
		{-MateValue + 4, -2},
		{150, 0},
		{-TermValue, 0},
	}
	for _, tt := range tests {
		if got := MateDistance(tt.score); got != tt.want {
			t.Errorf("MateDistance(%d) = %d, want %d", tt.score, got, tt.want)
		}
	}
}

func TestScoreToString(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, "0.00"},
		{125, "1.25"},
		{-7, "-0.07"},
		{MateValue - 3, "Mate in 2"},
		{-MateValue + 2, "Mated in 1"},
	}
	for _, tt := range tests {
		if got := ScoreToString(tt.score); got != tt.want {
			t.Errorf("ScoreToString(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestHashSizeSupported(t *testing.T) {
	tests := []struct {
		mb   int
		want bool
	}{
		{8, false},
		{16, false},
		{32, true},
		{48, false},
		{64, true},
		{100, false},
		{128, true},
		{4096, true},
		{8192, false},
	}
	for _, tt := range tests {
		if got := HashSizeSupported(tt.mb); got != tt.want {
			t.Errorf("HashSizeSupported(%d) = %v, want %v", tt.mb, got, tt.want)
		}
	}

	eng := NewEngine(32)
	if err := eng.SetHashSize(48); err == nil {
		t.Error("SetHashSize(48) succeeded")
	}
	if eng.HashSize() != 32 {
		t.Errorf("hash size changed to %d after a rejected resize", eng.HashSize())
	}
	if err := eng.SetHashSize(64); err != nil {
		t.Errorf("SetHashSize(64): %v", err)
	}
	if eng.HashSize() != 64 {
		t.Errorf("HashSize() = %d, want 64", eng.HashSize())
	}
}

func TestEnginePerft(t *testing.T) {
	eng := NewEngine(16)
	pos := board.NewPosition()
	want := []uint64{1, 20, 400, 8902}
	for depth, n := range want {
		if got := eng.Perft(pos, depth); got != n {
			t.Errorf("Perft(%d) = %d, want %d", depth, got, n)
		}
	}
}

func TestTimeBudget(t *testing.T) {
	tm := NewTimeManager()
	sec := time.Second
	ms := time.Millisecond

	tests := []struct {
		name   string
		limits Limits
		us     board.Color
		want   TimeBudget
	}{
		{"movetime", Limits{MoveTime: sec, WTime: 60 * sec}, board.White, TimeBudget{Main: sec}},
		{"infinite", Limits{Infinite: true, WTime: 60 * sec}, board.White, TimeBudget{Main: Unlimited}},
		{"depth only", Limits{Depth: 5}, board.White, TimeBudget{Main: Unlimited}},
		{"sudden death", Limits{WTime: 60 * sec, BTime: 60 * sec}, board.White,
			TimeBudget{Main: 2900 * ms, Extra: 1450 * ms}},
		{"increment and movestogo", Limits{WTime: 60 * sec, WInc: sec, MovesToGo: 10}, board.White,
			TimeBudget{Main: 6900 * ms, Extra: 3450 * ms}},
		{"black clock", Limits{WTime: 60 * sec, BTime: 20 * sec}, board.Black,
			TimeBudget{Main: 900 * ms, Extra: 450 * ms}},
		{"below overhead", Limits{WTime: 50 * ms}, board.White,
			TimeBudget{Main: 2500 * time.Microsecond}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tm.Budget(tt.limits, tt.us); got != tt.want {
				t.Errorf("Budget = %+v, want %+v", got, tt.want)
			}
		})
	}
}
