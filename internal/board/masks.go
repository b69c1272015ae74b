package board

// Pawn-structure masks read by the evaluator. "Ahead" is relative to the
// pawn's owner.
var (
	forwardMasks      [2][64]Bitboard
	behindMasks       [2][64]Bitboard
	frontControlMasks [2][64]Bitboard
)

// PawnCoverMask holds the two ranks in front of each side's back rank.
var PawnCoverMask = [2]Bitboard{Rank2 | Rank3, Rank6 | Rank7}

func initEvalMasks() {
	for sq := A1; sq <= H8; sq++ {
		f := sq.File()
		span := Files[f]
		if f > 0 {
			span |= Files[f-1]
		}
		if f < 7 {
			span |= Files[f+1]
		}
		sides := span &^ Files[f]

		for c := White; c <= Black; c++ {
			rel := sq.RelativeRank(c)
			var ahead, notAhead, nextTwo Bitboard
			for r := 0; r < 8; r++ {
				rank := Ranks[r]
				if c == Black {
					rank = Ranks[7-r]
				}
				switch {
				case r > rel:
					ahead |= rank
					if r <= rel+2 {
						nextTwo |= rank
					}
				default:
					notAhead |= rank
				}
			}
			forwardMasks[c][sq] = span & ahead
			behindMasks[c][sq] = sides & notAhead
			if rel < 6 {
				frontControlMasks[c][sq] = span & nextTwo
			}
		}
	}
}

// FileMask returns the whole file of sq.
func FileMask(sq Square) Bitboard { return Files[sq.File()] }

// ForwardMask covers sq's file and both neighbours strictly ahead of sq.
func ForwardMask(c Color, sq Square) Bitboard { return forwardMasks[c][sq] }

// BehindMask covers the neighbouring files on sq's rank and every rank behind it.
func BehindMask(c Color, sq Square) Bitboard { return behindMasks[c][sq] }

// FrontControlMask is the block of squares on the next two ranks in front
// of a pawn; empty once the pawn stands on its seventh rank.
func FrontControlMask(c Color, sq Square) Bitboard { return frontControlMasks[c][sq] }
