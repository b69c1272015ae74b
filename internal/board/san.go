package board

import "strings"

// MoveToSAN renders m in standard algebraic notation, including check and
// mate markers. m must be legal in p.
func (p *Position) MoveToSAN(m Move) string {
	if m == NoMove {
		return "--"
	}
	from, to := m.From(), m.To()
	pc := p.Board[from]
	if pc == NoPiece {
		return m.String()
	}

	var sb strings.Builder
	switch {
	case m.Kind() == KindCastle && to > from:
		sb.WriteString("O-O")
	case m.Kind() == KindCastle:
		sb.WriteString("O-O-O")
	default:
		capture := p.Board[to] != NoPiece || m.Kind() == KindEnPassant
		if pt := pc.Type(); pt != Pawn {
			sb.WriteByte("PNBRQK"[pt])
			sb.WriteString(p.disambiguation(m, pt))
		} else if capture {
			sb.WriteByte(byte('a' + from.File()))
		}
		if capture {
			sb.WriteByte('x')
		}
		sb.WriteString(to.String())
		if m.IsPromotion() {
			sb.WriteByte('=')
			sb.WriteByte("PNBRQK"[m.Promotion()])
		}
	}

	p.DoMove(m)
	if p.IsInCheck(p.SideToMove) {
		if p.HasLegalMove() {
			sb.WriteByte('+')
		} else {
			sb.WriteByte('#')
		}
	}
	p.UndoMove()
	return sb.String()
}

// disambiguation returns the file, rank or square prefix SAN needs when
// another piece of the same type can reach the same square.
func (p *Position) disambiguation(m Move, pt PieceType) string {
	from := m.From()
	sameFile, sameRank, ambiguous := false, false, false
	for _, other := range p.LegalMoves() {
		of := other.From()
		if other.To() != m.To() || of == from || p.Board[of].Type() != pt {
			continue
		}
		ambiguous = true
		sameFile = sameFile || of.File() == from.File()
		sameRank = sameRank || of.Rank() == from.Rank()
	}
	switch {
	case !ambiguous:
		return ""
	case !sameFile:
		return from.String()[:1]
	case !sameRank:
		return from.String()[1:]
	}
	return from.String()
}

// LineToSAN renders a sequence of moves played from p. p is left unchanged.
func (p *Position) LineToSAN(moves []Move) []string {
	out := make([]string, 0, len(moves))
	played := 0
	for _, m := range moves {
		if !p.IsPseudoLegal(m) || !p.IsLegal(m) {
			break
		}
		out = append(out, p.MoveToSAN(m))
		p.DoMove(m)
		played++
	}
	for ; played > 0; played-- {
		p.UndoMove()
	}
	return out
}

// IsPseudoLegal reports whether m is among the generated moves of p.
func (p *Position) IsPseudoLegal(m Move) bool {
	var ml MoveList
	p.GeneratePseudoLegalMoves(&ml)
	return ml.Contains(m)
}
