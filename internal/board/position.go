package board

import (
	"fmt"
	"strings"
)

// CastlingRights is a set of the four castling options.
type CastlingRights uint8

const (
	WhiteKingSide CastlingRights = 1 << iota
	WhiteQueenSide
	BlackKingSide
	BlackQueenSide

	NoCastling  CastlingRights = 0
	AllCastling                = WhiteKingSide | WhiteQueenSide | BlackKingSide | BlackQueenSide
)

// SideCastling holds the two rights belonging to each color.
var SideCastling = [2]CastlingRights{WhiteKingSide | WhiteQueenSide, BlackKingSide | BlackQueenSide}

func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var sb strings.Builder
	for i, c := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

// castlingKeep[sq] is and-ed into the rights whenever a move touches sq.
var castlingKeep = func() (keep [64]CastlingRights) {
	for i := range keep {
		keep[i] = AllCastling
	}
	keep[E1] &^= WhiteKingSide | WhiteQueenSide
	keep[H1] &^= WhiteKingSide
	keep[A1] &^= WhiteQueenSide
	keep[E8] &^= BlackKingSide | BlackQueenSide
	keep[H8] &^= BlackKingSide
	keep[A8] &^= BlackQueenSide
	return keep
}()

// undoState is pushed by DoMove and DoNullMove and popped by the matching undo.
type undoState struct {
	move           Move
	captured       Piece
	castlingRights CastlingRights
	castleHistory  CastlingRights
	enPassant      Square
	halfMoveClock  int
	hash           uint64
	pawnKey        uint64
	null           bool
}

// Position is a mutable chess position with its own move history.
type Position struct {
	Pieces      [2][6]Bitboard
	Occupied    [2]Bitboard
	AllOccupied Bitboard
	Board       [64]Piece

	SideToMove     Color
	CastlingRights CastlingRights
	EnPassant      Square
	HalfMoveClock  int
	FullMoveNumber int

	// CastleHistory records which castling moves have actually been played,
	// in the same bit layout as CastlingRights.
	CastleHistory CastlingRights

	Hash    uint64
	PawnKey uint64

	history []undoState
}

// NewPosition returns the standard starting position.
func NewPosition() *Position {
	pos, err := ParseFEN(StartFEN)
	if err != nil {
		panic(err)
	}
	return pos
}

// Copy returns an independent deep copy, history included.
func (p *Position) Copy() *Position {
	c := *p
	c.history = append([]undoState(nil), p.history...)
	return &c
}

// PieceAt returns the piece on sq or NoPiece.
func (p *Position) PieceAt(sq Square) Piece { return p.Board[sq] }

// KingSquare returns c's king square, NoSquare if it has none.
func (p *Position) KingSquare(c Color) Square { return p.Pieces[c][King].LSB() }

// Ply returns the number of moves made since the position was set up.
func (p *Position) Ply() int { return len(p.history) }

func (p *Position) putPiece(pc Piece, sq Square) {
	c, pt := pc.Color(), pc.Type()
	bb := SquareBB(sq)
	p.Pieces[c][pt] |= bb
	p.Occupied[c] |= bb
	p.AllOccupied |= bb
	p.Board[sq] = pc
	p.Hash ^= zobristPiece[pc][sq]
	if pt == Pawn {
		p.PawnKey ^= zobristPiece[pc][sq]
	}
}

func (p *Position) removePiece(sq Square) Piece {
	pc := p.Board[sq]
	if pc == NoPiece {
		return NoPiece
	}
	c, pt := pc.Color(), pc.Type()
	bb := SquareBB(sq)
	p.Pieces[c][pt] &^= bb
	p.Occupied[c] &^= bb
	p.AllOccupied &^= bb
	p.Board[sq] = NoPiece
	p.Hash ^= zobristPiece[pc][sq]
	if pt == Pawn {
		p.PawnKey ^= zobristPiece[pc][sq]
	}
	return pc
}

func (p *Position) movePiece(from, to Square) {
	p.putPiece(p.removePiece(from), to)
}

// castleRookSquares maps a king castling destination to the rook's move.
func castleRookSquares(kingTo Square) (Square, Square, CastlingRights) {
	switch kingTo {
	case G1:
		return H1, F1, WhiteKingSide
	case C1:
		return A1, D1, WhiteQueenSide
	case G8:
		return H8, F8, BlackKingSide
	case C8:
		return A8, D8, BlackQueenSide
	}
	panic(fmt.Sprintf("board: castle to %v", kingTo))
}

// DoMove plays a pseudo-legal move. The mover's king may be left in check;
// callers detect that with IsInCheck afterwards.
func (p *Position) DoMove(m Move) {
	from, to := m.From(), m.To()
	us := p.SideToMove
	moving := p.Board[from]

	p.history = append(p.history, undoState{
		move:           m,
		captured:       p.Board[to],
		castlingRights: p.CastlingRights,
		castleHistory:  p.CastleHistory,
		enPassant:      p.EnPassant,
		halfMoveClock:  p.HalfMoveClock,
		hash:           p.Hash,
		pawnKey:        p.PawnKey,
	})
	u := &p.history[len(p.history)-1]

	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
		p.EnPassant = NoSquare
	}
	p.Hash ^= zobristCastling[p.CastlingRights]
	p.HalfMoveClock++

	switch m.Kind() {
	case KindNormal, KindDoublePush:
		if u.captured != NoPiece {
			p.removePiece(to)
		}
		p.movePiece(from, to)
		if m.Kind() == KindDoublePush {
			p.EnPassant = (from + to) / 2
			p.Hash ^= zobristEnPassant[p.EnPassant.File()]
		}
	case KindEnPassant:
		victim := to - 8
		if us == Black {
			victim = to + 8
		}
		u.captured = p.removePiece(victim)
		p.movePiece(from, to)
	case KindCastle:
		rookFrom, rookTo, right := castleRookSquares(to)
		p.movePiece(from, to)
		p.movePiece(rookFrom, rookTo)
		p.CastleHistory |= right
	case KindPromotion:
		if u.captured != NoPiece {
			p.removePiece(to)
		}
		p.removePiece(from)
		p.putPiece(NewPiece(m.Promotion(), us), to)
	default:
		panic(fmt.Sprintf("board: unknown move kind %d in %v", m.Kind(), m))
	}

	if moving.Type() == Pawn || u.captured != NoPiece {
		p.HalfMoveClock = 0
	}
	p.CastlingRights &= castlingKeep[from] & castlingKeep[to]
	p.Hash ^= zobristCastling[p.CastlingRights]

	if us == Black {
		p.FullMoveNumber++
	}
	p.SideToMove = us.Other()
	p.Hash ^= zobristSideToMove
}

// UndoMove takes back the last DoMove.
func (p *Position) UndoMove() {
	n := len(p.history) - 1
	u := p.history[n]
	p.history = p.history[:n]

	p.SideToMove = p.SideToMove.Other()
	us := p.SideToMove
	if us == Black {
		p.FullMoveNumber--
	}

	m := u.move
	from, to := m.From(), m.To()
	switch m.Kind() {
	case KindEnPassant:
		p.movePiece(to, from)
		victim := to - 8
		if us == Black {
			victim = to + 8
		}
		p.putPiece(u.captured, victim)
	case KindCastle:
		rookFrom, rookTo, _ := castleRookSquares(to)
		p.movePiece(rookTo, rookFrom)
		p.movePiece(to, from)
	case KindPromotion:
		p.removePiece(to)
		p.putPiece(NewPiece(Pawn, us), from)
		if u.captured != NoPiece {
			p.putPiece(u.captured, to)
		}
	default:
		p.movePiece(to, from)
		if u.captured != NoPiece {
			p.putPiece(u.captured, to)
		}
	}

	p.CastlingRights = u.castlingRights
	p.CastleHistory = u.castleHistory
	p.EnPassant = u.enPassant
	p.HalfMoveClock = u.halfMoveClock
	p.Hash = u.hash
	p.PawnKey = u.pawnKey
}

// DoNullMove passes the turn.
func (p *Position) DoNullMove() {
	p.history = append(p.history, undoState{
		castlingRights: p.CastlingRights,
		castleHistory:  p.CastleHistory,
		enPassant:      p.EnPassant,
		halfMoveClock:  p.HalfMoveClock,
		hash:           p.Hash,
		pawnKey:        p.PawnKey,
		null:           true,
	})
	if p.EnPassant != NoSquare {
		p.Hash ^= zobristEnPassant[p.EnPassant.File()]
		p.EnPassant = NoSquare
	}
	p.HalfMoveClock++
	p.SideToMove = p.SideToMove.Other()
	p.Hash ^= zobristSideToMove
}

// UndoNullMove takes back the last DoNullMove.
func (p *Position) UndoNullMove() {
	n := len(p.history) - 1
	u := p.history[n]
	p.history = p.history[:n]
	p.SideToMove = p.SideToMove.Other()
	p.EnPassant = u.enPassant
	p.HalfMoveClock = u.halfMoveClock
	p.Hash = u.hash
}

// IsDraw reports a fifty-move draw or a repetition of the current position
// since the last irreversible move. A single repetition is enough.
func (p *Position) IsDraw() bool {
	if p.HalfMoveClock >= 100 {
		return true
	}
	n := len(p.history)
	for back := 2; back <= p.HalfMoveClock && back <= n; back += 2 {
		u := &p.history[n-back]
		if p.history[n-back+1].null || u.null {
			break
		}
		if u.hash == p.Hash {
			return true
		}
	}
	return false
}

// String draws the board from white's side followed by the FEN.
func (p *Position) String() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		sb.WriteString(" +---+---+---+---+---+---+---+---+\n ")
		for file := 0; file < 8; file++ {
			pc := p.Board[NewSquare(file, rank)]
			sym := " "
			if pc != NoPiece {
				sym = pc.String()
			}
			sb.WriteString("| " + sym + " ")
		}
		fmt.Fprintf(&sb, "| %d\n", rank+1)
	}
	sb.WriteString(" +---+---+---+---+---+---+---+---+\n")
	sb.WriteString("   a   b   c   d   e   f   g   h\n\n")
	sb.WriteString("Fen: " + p.FEN() + "\n")
	fmt.Fprintf(&sb, "Key: %016X\n", p.Hash)
	return sb.String()
}
