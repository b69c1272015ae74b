package engine

import (
	"testing"

	"github.com/hailam/foxsee/internal/board"
)

func TestSEE(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		move string
		want int
	}{
		{"unguarded pawn", "4k3/8/8/3p4/4P3/8/8/4K3 w - - 0 1", "e4d5", PawnValue},
		{"queen takes guarded pawn", "4k3/8/2p5/3p4/8/8/3Q4/4K3 w - - 0 1", "d2d5", PawnValue - QueenValue},
		{"pawn takes guarded knight", "4k3/8/2p5/3n4/4P3/8/8/4K3 w - - 0 1", "e4d5", KnightValue - PawnValue},
		{"rook trade", "3rk3/8/8/8/8/8/8/3RK2R w - - 0 1", "d1d8", 0},
		{"en passant", "4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1", "e5d6", PawnValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := mustFEN(t, tt.fen)
			fen := pos.FEN()
			got := SEE(pos, mustMove(t, pos, tt.move))
			if got != tt.want {
				t.Errorf("SEE(%s) = %d, want %d", tt.move, got, tt.want)
			}
			if pos.FEN() != fen {
				t.Errorf("SEE did not restore the position: %s", pos.FEN())
			}
		})
	}
}

func TestSEEDefendedCaptureNeverPositive(t *testing.T) {
	// Rook takes a pawn defended by a bishop: the exchange loses the rook.
	pos := mustFEN(t, "4k3/8/2b5/3p4/8/8/8/3RK3 w - - 0 1")
	if got := SEE(pos, mustMove(t, pos, "d1d5")); got > 0 {
		t.Errorf("SEE = %d, want <= 0", got)
	}
}

func TestKillerTable(t *testing.T) {
	var kt killerTable
	a := board.NewMove(board.G1, board.F3, board.KindNormal, board.NoPieceType)
	b := board.NewMove(board.B1, board.C3, board.KindNormal, board.NoPieceType)
	c := board.NewMove(board.E2, board.E3, board.KindNormal, board.NoPieceType)

	kt.update(4, a, 50)
	if p, s := kt.get(4); p != a || s != board.NoMove {
		t.Fatalf("after one update got %v/%v", p, s)
	}

	// Higher score takes the primary slot and demotes the old primary.
	kt.update(4, b, 80)
	if p, s := kt.get(4); p != b || s != a {
		t.Errorf("got %v/%v, want %v/%v", p, s, b, a)
	}

	// Lower score than both leaves the slots unchanged.
	kt.update(4, c, 10)
	if p, s := kt.get(4); p != b || s != a {
		t.Errorf("got %v/%v, want %v/%v", p, s, b, a)
	}

	// Empty plies beyond 2 borrow from two plies earlier.
	if p, s := kt.get(6); p != b || s != a {
		t.Errorf("ply 6 borrowed %v/%v, want %v/%v", p, s, b, a)
	}
	if p, _ := kt.get(1); p != board.NoMove {
		t.Errorf("ply 1 got %v, want no move", p)
	}

	kt.clear()
	if p, s := kt.get(4); p != board.NoMove || s != board.NoMove {
		t.Errorf("after clear got %v/%v", p, s)
	}
}

func TestHistoryTable(t *testing.T) {
	var ht historyTable
	m := board.NewMove(board.G1, board.F3, board.KindNormal, board.NoPieceType)

	ht.update(m, 3)
	ht.update(m, 4)
	if got := ht.score(m); got != 9+16 {
		t.Errorf("score = %d, want 25", got)
	}

	ht[m.From()][m.To()] = maxHistoryScore - 10
	ht.update(m, 5)
	if got := ht.score(m); got != maxHistoryScore-10 {
		t.Errorf("history grew past its cap: %d", got)
	}
}

func TestOrderMoves(t *testing.T) {
	// White can win a queen with a pawn, take a defended pawn with the
	// queen, or play quiet moves.
	pos := mustFEN(t, "4k3/8/2p5/3p1q2/4P3/8/3Q4/4K3 w - - 0 1")
	s := NewSearcher(NewHashTables(16), nil)

	quiet := mustMove(t, pos, "e1d1")
	s.history.update(quiet, 10)

	moves := s.orderMoves(pos, 0, board.NoMove)
	if len(moves) == 0 {
		t.Fatal("no moves generated")
	}

	first := moves[0].move
	if first != mustMove(t, pos, "e4f5") {
		t.Errorf("first move %v does not capture the queen", first)
	}

	// Scores are non-increasing.
	for i := 1; i < len(moves); i++ {
		if moves[i].score > moves[i-1].score {
			t.Fatalf("move %d (%v, %d) outranks move %d (%v, %d)",
				i, moves[i].move, moves[i].score, i-1, moves[i-1].move, moves[i-1].score)
		}
	}

	// The skipped move is left out.
	n := len(moves)
	if got := len(s.orderMoves(pos, 0, first)); got != n-1 {
		t.Errorf("skip left %d moves, want %d", got, n-1)
	}

	// The history move ranks first among quiet moves.
	for _, sm := range moves {
		if isCapture(pos, sm.move) || sm.move.IsPromotion() {
			continue
		}
		if sm.move != quiet {
			t.Errorf("first quiet move is %v, want %v", sm.move, quiet)
		}
		break
	}
}
