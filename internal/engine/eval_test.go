package engine

import (
	"testing"

	"github.com/hailam/foxsee/internal/board"
)

func mustFEN(t *testing.T, fen string) *board.Position {
	t.Helper()
	pos, err := board.ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return pos
}

func mustMove(t *testing.T, pos *board.Position, uci string) board.Move {
	t.Helper()
	m, err := pos.ParseUCIMove(uci)
	if err != nil {
		t.Fatalf("ParseUCIMove(%q): %v", uci, err)
	}
	return m
}

func TestExtractFeatures(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		check func(t *testing.T, w, b FeatureMap)
	}{
		{
			name: "defended and threatened pieces",
			fen:  "r1b2rk1/pp2ppbp/1qnp2p1/2nP4/P2QPP2/N1P2N2/2B3PP/1RB2RK1 b - - 0 1",
			check: func(t *testing.T, w, b FeatureMap) {
				expect(t, "white defended", w.DefendedPieces, 5)
				expect(t, "white threatened", w.ThreatenedPieces, 1)
				expect(t, "black defended", b.DefendedPieces, 3)
				expect(t, "black threatened", b.ThreatenedPieces, 2)
			},
		},
		{
			name: "mobility",
			fen:  "1q4kn/3r1p1p/1pbN1Pp1/r1ppP1P1/P4R2/2B1P3/2Q4P/3R2K1 b - - 2 29",
			check: func(t *testing.T, w, b FeatureMap) {
				expect(t, "white mobility", w.Mobility, 9)
				expect(t, "black mobility", b.Mobility, 4)
			},
		},
		{
			name: "king exposure and threats",
			fen:  "1kr3r1/pp3p1p/P1pn4/2Bpb3/4p2q/3PP3/PPP1NPPP/R2Q1RK1 b - - 0 1",
			check: func(t *testing.T, w, b FeatureMap) {
				expect(t, "white exposed", w.KingExposed, 1)
				expect(t, "white threats", w.KingThreats, 3)
				expect(t, "black exposed", b.KingExposed, 0)
				expect(t, "black threats", b.KingThreats, 1)
			},
		},
		{
			name: "doubled isolated and backward pawns",
			fen:  "4k3/p1p2pp1/5pp1/8/7P/5PPP/1P3P2/4K3 w - - 0 1",
			check: func(t *testing.T, w, b FeatureMap) {
				expect(t, "white doubled", w.DoubledPawns, 4)
				expect(t, "white isolated", w.IsolatedPawns, 1)
				expect(t, "white behind", w.BehindPawns, 1)
				expect(t, "black doubled", b.DoubledPawns, 4)
				expect(t, "black isolated", b.IsolatedPawns, 2)
				expect(t, "black behind", b.BehindPawns, 0)
			},
		},
		{
			name: "tripled isolated pawns",
			fen:  "7k/p7/1p6/2p5/4P3/4P3/4P3/7K w - - 0 1",
			check: func(t *testing.T, w, b FeatureMap) {
				expect(t, "white doubled", w.DoubledPawns, 3)
				expect(t, "white isolated", w.IsolatedPawns, 3)
				expect(t, "black doubled", b.DoubledPawns, 0)
				expect(t, "black isolated", b.IsolatedPawns, 0)
			},
		},
		{
			name: "passed pawns",
			fen:  "rnbqkbnr/3p4/6P1/3P4/1pp5/1N6/3P4/R1BQKBNR w KQkq - 0 1",
			check: func(t *testing.T, w, b FeatureMap) {
				expect(t, "white passed", w.PassedPawns, 1)
				expect(t, "white passed ranks", w.PassedPawnRanks, 5)
				expect(t, "black passed", b.PassedPawns, 1)
				expect(t, "black passed ranks", b.PassedPawnRanks, 5)
			},
		},
		{
			name: "king controls passer path",
			fen:  "8/8/2K1kp2/8/3P4/8/8/8 w - - 0 1",
			check: func(t *testing.T, w, b FeatureMap) {
				expect(t, "white passed", w.PassedPawns, 1)
				expect(t, "white controlled", w.ControlledPassers, 1)
				expect(t, "black passed", b.PassedPawns, 1)
				expect(t, "black controlled", b.ControlledPassers, 0)
			},
		},
		{
			name: "backward pawns",
			fen:  "rnbqkbnr/ppp3p1/3p1p1p/4p3/2P1P3/P2P4/1P3PPP/RNBQKBNR w KQkq - 0 1",
			check: func(t *testing.T, w, b FeatureMap) {
				expect(t, "white behind", w.BehindPawns, 2)
				expect(t, "black behind", b.BehindPawns, 1)
			},
		},
		{
			name: "king pawn shelter",
			fen:  "1krq1bnr/p1p1ppp1/2P5/8/1P3P2/6pP/2PPP1P1/RNBQR1K1 w Qk - 0 1",
			check: func(t *testing.T, w, b FeatureMap) {
				expect(t, "white exposed", w.KingExposed, 0)
				expect(t, "white pawn threats", w.KingPawnThreats, 2)
				expect(t, "black exposed", b.KingExposed, 2)
				expect(t, "black pawn threats", b.KingPawnThreats, 1)
			},
		},
		{
			name: "semi-open rooks",
			fen:  "1nbqkbrr/p1ppppp1/1p6/8/8/8/RPPPPPPP/RNBQKBN1 w Qk - 0 1",
			check: func(t *testing.T, w, b FeatureMap) {
				expect(t, "white semi-open", w.SemiOpenRooks, 1)
				expect(t, "black semi-open", b.SemiOpenRooks, 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := mustFEN(t, tt.fen)
			w, b := ExtractFeatures(pos)
			tt.check(t, w, b)
		})
	}
}

func expect(t *testing.T, what string, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %d, want %d", what, got, want)
	}
}

func TestUnstoppablePassers(t *testing.T) {
	tests := []struct {
		fen                   string
		wPassed, wUnstoppable int
		bPassed, bUnstoppable int
	}{
		{"8/6k1/8/6p1/1P6/8/1K6/8 w - - 0 1", 1, 1, 1, 0},
		{"8/6k1/8/6p1/1P6/8/1K6/8 b - - 0 1", 1, 0, 1, 1},
		{"8/3k4/8/8/8/8/3K1p2/8 b - - 0 1", 0, 0, 1, 1},
		{"8/1P1k4/8/8/8/2K5/8/8 b - - 0 1", 1, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.fen, func(t *testing.T) {
			w, b := ExtractFeatures(mustFEN(t, tt.fen))
			expect(t, "white passed", w.PassedPawns, tt.wPassed)
			expect(t, "white unstoppable", w.UnstoppablePassers, tt.wUnstoppable)
			expect(t, "black passed", b.PassedPawns, tt.bPassed)
			expect(t, "black unstoppable", b.UnstoppablePassers, tt.bUnstoppable)
		})
	}
}

func TestLostCastlingRights(t *testing.T) {
	pos := mustFEN(t, "r1bqk2r/pppp1ppp/2n2n2/2b1p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 0 1")

	steps := []struct {
		move       string
		white, blk int
	}{
		{"", 0, 0},
		{"e1e2", 1, 0},
		{"h8f8", 1, 0},
		{"e2e1", 1, 0},
		{"a8b8", 1, 1},
	}

	for _, s := range steps {
		if s.move != "" {
			pos.DoMove(mustMove(t, pos, s.move))
		}
		w, b := ExtractFeatures(pos)
		if w.LostCastlingRights != s.white || b.LostCastlingRights != s.blk {
			t.Errorf("after %q: lost castling = %d/%d, want %d/%d",
				s.move, w.LostCastlingRights, b.LostCastlingRights, s.white, s.blk)
		}
	}
}

func TestDrawnMaterial(t *testing.T) {
	fens := []string{
		"8/2k5/8/8/8/4N3/5K2/8 w - - 0 1",   // KN v K
		"8/2k5/8/4N3/8/4N3/5K2/8 w - - 0 1", // KNN v K
		"4b3/2k5/8/5N2/4K3/8/8/8 b - - 0 1", // KB v KN
		"8/2k5/8/8/3B4/8/5K2/8 b - - 0 1",   // KB v K
		"8/2kn4/8/8/3B4/8/5K2/8 w - - 0 1",  // KB v KN
	}
	for _, fen := range fens {
		pos := mustFEN(t, fen)
		score, draw := MaterialScore(pos)
		if !draw || score != 0 {
			t.Errorf("%s: MaterialScore = (%d, %v), want (0, true)", fen, score, draw)
		}
		if e := Evaluate(pos); e != 0 {
			t.Errorf("%s: Evaluate = %d, want 0", fen, e)
		}
	}

	// Two bishops can win.
	pos := mustFEN(t, "8/2k5/8/8/3BB3/8/5K2/8 w - - 0 1")
	if score, draw := MaterialScore(pos); draw || score != 2*BishopValue {
		t.Errorf("KBB v K: MaterialScore = (%d, %v), want (%d, false)", score, draw, 2*BishopValue)
	}
}

func TestMaterialScoreSideToMove(t *testing.T) {
	w := mustFEN(t, "4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	b := mustFEN(t, "4k3/8/8/8/8/8/8/R3K3 b - - 0 1")

	sw, _ := MaterialScore(w)
	sb, _ := MaterialScore(b)
	if sw != RookValue || sb != -RookValue {
		t.Errorf("MaterialScore = %d/%d, want %d/%d", sw, sb, RookValue, -RookValue)
	}
}

func TestEvaluateSymmetry(t *testing.T) {
	tests := []struct {
		fen, mirrored string
	}{
		{
			"r1bqkbnr/pppp1ppp/2n5/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 2 3",
			"rnbqkb1r/pppp1ppp/5n2/4p3/4P3/2N5/PPPP1PPP/R1BQKBNR b KQkq - 2 3",
		},
		{
			"8/5pk1/6p1/8/3P4/6P1/5PK1/8 w - - 0 1",
			"8/5pk1/6p1/3p4/8/6P1/5PK1/8 b - - 0 1",
		},
	}

	for _, tt := range tests {
		a := Evaluate(mustFEN(t, tt.fen))
		b := Evaluate(mustFEN(t, tt.mirrored))
		if a != b {
			t.Errorf("Evaluate(%s) = %d, mirrored = %d", tt.fen, a, b)
		}
	}
}

func TestEvaluateSideFlip(t *testing.T) {
	// Only the point of view and the tempo bonus change with the side to move.
	w := Evaluate(mustFEN(t, "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R w KQkq - 0 2"))
	b := Evaluate(mustFEN(t, "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b KQkq - 0 2"))
	if w+b != 2*TempoBonus {
		t.Errorf("white %d + black %d = %d, want %d", w, b, w+b, 2*TempoBonus)
	}
}

func TestPhase(t *testing.T) {
	if p := Phase(board.NewPosition()); p != TotalPhase {
		t.Errorf("start position phase = %d, want %d", p, TotalPhase)
	}
	if !InEndgame(mustFEN(t, "4k3/pp6/8/8/8/8/PP6/R3K3 w - - 0 1")) {
		t.Error("rook ending should count as endgame")
	}
	if InEndgame(board.NewPosition()) {
		t.Error("start position should not count as endgame")
	}
	// A pawnless side puts the position in the endgame regardless of material.
	if !InEndgame(mustFEN(t, "rnbqkbnr/8/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1")) {
		t.Error("pawnless side should count as endgame")
	}
}

func TestPawnTableTransparent(t *testing.T) {
	fens := []string{
		board.StartFEN,
		"4k3/p1p2pp1/5pp1/8/7P/5PPP/1P3P2/4K3 w - - 0 1",
		"rnbqkbnr/3p4/6P1/3P4/1pp5/1N6/3P4/R1BQKBNR w KQkq - 0 1",
	}
	pt := NewPawnTable(1)

	for _, fen := range fens {
		pos := mustFEN(t, fen)
		material, _ := MaterialScore(pos)
		want := positionalScore(pos, material, nil)
		for i := 0; i < 2; i++ {
			if got := positionalScore(pos, material, pt); got != want {
				t.Errorf("%s pass %d: cached score %d, uncached %d", fen, i, got, want)
			}
		}
	}

	if pt.HitRate() <= 0 {
		t.Errorf("expected cache hits, hit rate %.2f", pt.HitRate())
	}
	t.Logf("pawn table hit rate: %.2f", pt.HitRate())
}

func TestPawnTableProbe(t *testing.T) {
	pt := NewPawnTable(1)
	pos := board.NewPosition()

	if _, ok := pt.Probe(pos.PawnKey); ok {
		t.Fatal("expected miss on empty table")
	}

	e := pawnStructure(pos)
	e.Key = pos.PawnKey
	pt.Store(e)

	got, ok := pt.Probe(pos.PawnKey)
	if !ok {
		t.Fatal("expected hit after store")
	}
	if got.Key != e.Key || got.Sides != e.Sides {
		t.Errorf("probe returned %+v, want %+v", got.Sides, e.Sides)
	}

	// Piece moves leave the pawn key alone; pawn moves change it.
	key := pos.PawnKey
	pos.DoMove(mustMove(t, pos, "g1f3"))
	if pos.PawnKey != key {
		t.Error("knight move changed the pawn key")
	}
	pos.DoMove(mustMove(t, pos, "e7e5"))
	if pos.PawnKey == key {
		t.Error("pawn move did not change the pawn key")
	}

	pt.Clear()
	if _, ok := pt.Probe(key); ok {
		t.Error("expected miss after Clear")
	}
}
