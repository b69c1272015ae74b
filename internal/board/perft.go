package board

// Perft counts the leaf nodes of the legal move tree to the given depth.
func (p *Position) Perft(depth int) uint64 {
	if depth == 0 {
		return 1
	}
	var ml MoveList
	p.GeneratePseudoLegalMoves(&ml)
	us := p.SideToMove
	var nodes uint64
	for _, m := range ml.Slice() {
		p.DoMove(m)
		if !p.IsInCheck(us) {
			if depth == 1 {
				nodes++
			} else {
				nodes += p.Perft(depth - 1)
			}
		}
		p.UndoMove()
	}
	return nodes
}

// Divide returns the perft count below each legal root move.
func (p *Position) Divide(depth int) map[Move]uint64 {
	out := make(map[Move]uint64)
	if depth < 1 {
		return out
	}
	for _, m := range p.LegalMoves() {
		p.DoMove(m)
		out[m] = p.Perft(depth - 1)
		p.UndoMove()
	}
	return out
}
