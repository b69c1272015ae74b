package board

// Sliding attacks use fancy magic bitboards: each square owns a slice of a
// shared table indexed by ((occ & mask) * magic) >> shift.

type magicEntry struct {
	mask   Bitboard
	magic  uint64
	shift  uint8
	offset uint32
}

type slider struct {
	entries [64]magicEntry
	table   []Bitboard
	dirs    [4][2]int
}

var (
	bishopSlider = slider{dirs: [4][2]int{{1, 1}, {-1, 1}, {1, -1}, {-1, -1}}}
	rookSlider   = slider{dirs: [4][2]int{{0, 1}, {0, -1}, {1, 0}, {-1, 0}}}
)

var bishopMagicNumbers = [64]uint64{
	0x0002020202020200, 0x0002020202020000, 0x0004010202000000, 0x0004040080000000,
	0x0001104000000000, 0x0000821040000000, 0x0000410410400000, 0x0000104104104000,
	0x0000040404040400, 0x0000020202020200, 0x0000040102020000, 0x0000040400800000,
	0x0000011040000000, 0x0000008210400000, 0x0000004104104000, 0x0000002082082000,
	0x0004000808080800, 0x0002000404040400, 0x0001000202020200, 0x0000800802004000,
	0x0000800400A00000, 0x0000200100884000, 0x0000400082082000, 0x0000200041041000,
	0x0002080010101000, 0x0001040008080800, 0x0000208004010400, 0x0000404004010200,
	0x0000840000802000, 0x0000404002011000, 0x0000808001041000, 0x0000404000820800,
	0x0001041000202000, 0x0000820800101000, 0x0000104400080800, 0x0000020080080080,
	0x0000404040040100, 0x0000808100020100, 0x0001010100020800, 0x0000808080010400,
	0x0000820820004000, 0x0000410410002000, 0x0000082088001000, 0x0000002011000800,
	0x0000080100400400, 0x0001010101000200, 0x0002020202000400, 0x0001010101000200,
	0x0000410410400000, 0x0000208208200000, 0x0000002084100000, 0x0000000020880000,
	0x0000001002020000, 0x0000040408020000, 0x0004040404040000, 0x0002020202020000,
	0x0000104104104000, 0x0000002082082000, 0x0000000020841000, 0x0000000000208800,
	0x0000000010020200, 0x0000000404080200, 0x0000040404040400, 0x0002020202020200,
}

var rookMagicNumbers = [64]uint64{
	0x0080001020400080, 0x0040001000200040, 0x0080081000200080, 0x0080040800100080,
	0x0080020400080080, 0x0080010200040080, 0x0080008001000200, 0x0080002040800100,
	0x0000800020400080, 0x0000400020005000, 0x0000801000200080, 0x0000800800100080,
	0x0000800400080080, 0x0000800200040080, 0x0000800100020080, 0x0000800040800100,
	0x0000208000400080, 0x0000404000201000, 0x0000808010002000, 0x0000808008001000,
	0x0000808004000800, 0x0000808002000400, 0x0000010100020004, 0x0000020000408104,
	0x0000208080004000, 0x0000200040005000, 0x0000100080200080, 0x0000080080100080,
	0x0000040080080080, 0x0000020080040080, 0x0000010080800200, 0x0000800080004100,
	0x0000204000800080, 0x0000200040401000, 0x0000100080802000, 0x0000080080801000,
	0x0000040080800800, 0x0000020080800400, 0x0000020001010004, 0x0000800040800100,
	0x0000204000808000, 0x0000200040008080, 0x0000100020008080, 0x0000080010008080,
	0x0000040008008080, 0x0000020004008080, 0x0000010002008080, 0x0000004081020004,
	0x0000204000800080, 0x0000200040008080, 0x0000100020008080, 0x0000080010008080,
	0x0000040008008080, 0x0000020004008080, 0x0000800100020080, 0x0000800041000080,
	0x00FFFCDDFCED714A, 0x007FFCDDFCED714A, 0x003FFFCDFFD88096, 0x0000040810002101,
	0x0001000204080011, 0x0001000204000801, 0x0001000082000401, 0x0001FFFAABFAD1A2,
}

func initSliders() {
	bishopSlider.init(&bishopMagicNumbers)
	rookSlider.init(&rookMagicNumbers)
}

func (s *slider) init(magics *[64]uint64) {
	var offset uint32
	for sq := A1; sq <= H8; sq++ {
		mask := s.relevantMask(sq)
		n := mask.Count()
		e := magicEntry{mask: mask, magic: magics[sq], shift: uint8(64 - n), offset: offset}
		s.entries[sq] = e

		size := uint32(1) << n
		if need := int(offset + size); need > len(s.table) {
			s.table = append(s.table, make([]Bitboard, need-len(s.table))...)
		}

		// Carry-rippler walk over every subset of the mask.
		var occ Bitboard
		for {
			idx := (uint64(occ) * e.magic) >> e.shift
			s.table[offset+uint32(idx)] = s.rays(sq, occ)
			occ = (occ - mask) & mask
			if occ == 0 {
				break
			}
		}
		offset += size
	}
}

// rays casts each direction from sq until it leaves the board or hits occ.
func (s *slider) rays(sq Square, occ Bitboard) Bitboard {
	var attacks Bitboard
	for _, d := range s.dirs {
		f, r := sq.File()+d[0], sq.Rank()+d[1]
		for f >= 0 && f < 8 && r >= 0 && r < 8 {
			to := NewSquare(f, r)
			attacks |= SquareBB(to)
			if occ.Has(to) {
				break
			}
			f, r = f+d[0], r+d[1]
		}
	}
	return attacks
}

// relevantMask drops the last square of each ray; a blocker there never
// changes the attack set.
func (s *slider) relevantMask(sq Square) Bitboard {
	var mask Bitboard
	for _, d := range s.dirs {
		f, r := sq.File()+d[0], sq.Rank()+d[1]
		for {
			nf, nr := f+d[0], r+d[1]
			if nf < 0 || nf > 7 || nr < 0 || nr > 7 || f < 0 || f > 7 || r < 0 || r > 7 {
				break
			}
			mask |= SquareBB(NewSquare(f, r))
			f, r = nf, nr
		}
	}
	return mask
}

func (s *slider) attacks(sq Square, occ Bitboard) Bitboard {
	e := &s.entries[sq]
	return s.table[e.offset+uint32((uint64(occ&e.mask)*e.magic)>>e.shift)]
}

// BishopAttacks returns diagonal rays from sq blocked by occ.
func BishopAttacks(sq Square, occ Bitboard) Bitboard { return bishopSlider.attacks(sq, occ) }

// RookAttacks returns orthogonal rays from sq blocked by occ.
func RookAttacks(sq Square, occ Bitboard) Bitboard { return rookSlider.attacks(sq, occ) }
