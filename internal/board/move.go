package board

// Move packs a move into 32 bits:
//
//	bits 0-5   from square
//	bits 6-11  to square
//	bits 12-14 kind
//	bits 15-17 promotion piece type (0 when not a promotion)
//
// The zero value is NoMove. Captures are not flagged; they are implied by
// the occupancy of the destination square.
type Move uint32

// MoveKind distinguishes moves that need special handling in DoMove.
type MoveKind uint8

const (
	KindNormal MoveKind = iota
	KindCastle
	KindEnPassant
	KindDoublePush
	KindPromotion
)

// NoMove means "no move" in tables and move lists.
const NoMove Move = 0

// NewMove encodes a move. promo is ignored unless kind is KindPromotion.
func NewMove(from, to Square, kind MoveKind, promo PieceType) Move {
	m := Move(from) | Move(to)<<6 | Move(kind)<<12
	if kind == KindPromotion {
		m |= Move(promo) << 15
	}
	return m
}

func (m Move) From() Square      { return Square(m & 0x3F) }
func (m Move) To() Square        { return Square((m >> 6) & 0x3F) }
func (m Move) Kind() MoveKind    { return MoveKind((m >> 12) & 7) }
func (m Move) IsPromotion() bool { return m.Kind() == KindPromotion }

// Promotion returns the piece type promoted to, or NoPieceType.
func (m Move) Promotion() PieceType {
	if m.Kind() != KindPromotion {
		return NoPieceType
	}
	return PieceType((m >> 15) & 7)
}

// String renders UCI long algebraic notation.
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string(" nbrq"[m.Promotion()])
	}
	return s
}

// MaxMoves bounds the number of pseudo-legal moves in any position.
const MaxMoves = 256

// MoveList is a fixed-capacity move buffer reused per search node.
type MoveList struct {
	moves [MaxMoves]Move
	count int
}

func (ml *MoveList) Add(m Move)     { ml.moves[ml.count] = m; ml.count++ }
func (ml *MoveList) Len() int       { return ml.count }
func (ml *MoveList) Get(i int) Move { return ml.moves[i] }
func (ml *MoveList) Clear()         { ml.count = 0 }
func (ml *MoveList) Slice() []Move  { return ml.moves[:ml.count] }

// Contains reports whether m is in the list.
func (ml *MoveList) Contains(m Move) bool {
	for _, x := range ml.moves[:ml.count] {
		if x == m {
			return true
		}
	}
	return false
}
