package board

// LegalMoves fills ml with every legal move in the position.
func (p *Position) LegalMoves(ml *MoveList) {
	ml.Clear()
	var pseudo MoveList
	p.pseudoMoves(&pseudo, false)
	p.filterLegal(&pseudo, ml)
}

// TacticalMoves fills ml with legal captures and promotions, the move set
// explored by quiescence search outside of check.
func (p *Position) TacticalMoves(ml *MoveList) {
	ml.Clear()
	var pseudo MoveList
	p.pseudoMoves(&pseudo, true)
	p.filterLegal(&pseudo, ml)
}

// HasLegalMoves is a short-circuiting variant used for mate/stalemate checks.
func (p *Position) HasLegalMoves() bool {
	var pseudo MoveList
	p.pseudoMoves(&pseudo, false)
	pinned := p.pinned()
	for i := 0; i < pseudo.Len(); i++ {
		if p.legalFast(pseudo.At(i), pinned) {
			return true
		}
	}
	return false
}

func (p *Position) filterLegal(in, out *MoveList) {
	pinned := p.pinned()
	for i := 0; i < in.Len(); i++ {
		if m := in.At(i); p.legalFast(m, pinned) {
			out.Add(m)
		}
	}
}

// pseudoMoves generates pseudo-legal moves; with tactical set, only captures
// and promotions are produced.
func (p *Position) pseudoMoves(ml *MoveList, tactical bool) {
	us, them := p.side, p.side.Flip()
	occ := p.Occupied()
	enemies := p.byColor[them]

	targets := ^p.byColor[us]
	if tactical {
		targets = enemies
	}

	p.pawnMoves(ml, tactical)

	for b := p.Pieces[us][Knight]; b != 0; {
		from := b.PopLSB()
		addTargets(ml, from, KnightAttacks(from)&targets)
	}
	for b := p.Pieces[us][Bishop]; b != 0; {
		from := b.PopLSB()
		addTargets(ml, from, BishopAttacks(from, occ)&targets)
	}
	for b := p.Pieces[us][Rook]; b != 0; {
		from := b.PopLSB()
		addTargets(ml, from, RookAttacks(from, occ)&targets)
	}
	for b := p.Pieces[us][Queen]; b != 0; {
		from := b.PopLSB()
		addTargets(ml, from, QueenAttacks(from, occ)&targets)
	}

	ksq := p.kingSq[us]
	addTargets(ml, ksq, KingAttacks(ksq)&targets)

	if !tactical {
		p.castleMoves(ml)
	}
}

func addTargets(ml *MoveList, from Square, to Bitboard) {
	for to != 0 {
		ml.Add(NewMove(from, to.PopLSB()))
	}
}

func (p *Position) pawnMoves(ml *MoveList, tactical bool) {
	us := p.side
	pawns := p.Pieces[us][Pawn]
	occ := p.Occupied()
	enemies := p.byColor[us.Flip()]

	var push1, push2, capL, capR, promoRank Bitboard
	var up int
	if us == White {
		push1 = pawns.North() &^ occ
		push2 = (push1 & Rank3BB).North() &^ occ
		capL = pawns.NorthWest() & enemies
		capR = pawns.NorthEast() & enemies
		promoRank = Rank8BB
		up = 8
	} else {
		push1 = pawns.South() &^ occ
		push2 = (push1 & Rank6BB).South() &^ occ
		capL = pawns.SouthWest() & enemies
		capR = pawns.SouthEast() & enemies
		promoRank = Rank1BB
		up = -8
	}

	addPawnBatch := func(to Bitboard, delta int) {
		for promos := to & promoRank; promos != 0; {
			t := promos.PopLSB()
			f := Square(int(t) - delta)
			ml.Add(NewPromotion(f, t, Queen))
			ml.Add(NewPromotion(f, t, Rook))
			ml.Add(NewPromotion(f, t, Bishop))
			ml.Add(NewPromotion(f, t, Knight))
		}
		if tactical && to&promoRank == to {
			return
		}
		for quiet := to &^ promoRank; quiet != 0; {
			t := quiet.PopLSB()
			ml.Add(NewMove(Square(int(t)-delta), t))
		}
	}

	addPawnBatch(capL, up-1)
	addPawnBatch(capR, up+1)
	if !tactical {
		addPawnBatch(push1&^promoRank, up)
		addPawnBatch(push2, 2*up)
	}
	// Quiet promotions count as tactical.
	addPawnBatch(push1&promoRank, up)

	if p.epSquare != SquareNone {
		ep := SquareBB(p.epSquare)
		var attackers Bitboard
		if us == White {
			attackers = (ep.SouthWest() | ep.SouthEast()) & pawns
		} else {
			attackers = (ep.NorthWest() | ep.NorthEast()) & pawns
		}
		for attackers != 0 {
			ml.Add(NewEnPassant(attackers.PopLSB(), p.epSquare))
		}
	}
}

func (p *Position) castleMoves(ml *MoveList) {
	us, them := p.side, p.side.Flip()
	if p.checkers != 0 {
		return
	}

	type side struct {
		right      Castle
		kFrom, kTo Square
		empty      Bitboard
		safe       [2]Square
	}
	var sides [2]side
	if us == White {
		sides[0] = side{CastleWhiteKing, E1, G1, SquareBB(F1) | SquareBB(G1), [2]Square{F1, G1}}
		sides[1] = side{CastleWhiteQueen, E1, C1, SquareBB(B1) | SquareBB(C1) | SquareBB(D1), [2]Square{D1, C1}}
	} else {
		sides[0] = side{CastleBlackKing, E8, G8, SquareBB(F8) | SquareBB(G8), [2]Square{F8, G8}}
		sides[1] = side{CastleBlackQueen, E8, C8, SquareBB(B8) | SquareBB(C8) | SquareBB(D8), [2]Square{D8, C8}}
	}

	occ := p.Occupied()
	for _, s := range sides {
		if p.castling&s.right == 0 || occ&s.empty != 0 {
			continue
		}
		if p.IsAttacked(s.safe[0], them) || p.IsAttacked(s.safe[1], them) {
			continue
		}
		ml.Add(NewCastle(s.kFrom, s.kTo))
	}
}

// pinned returns our pieces pinned to our king.
func (p *Position) pinned() Bitboard {
	us, them := p.side, p.side.Flip()
	ksq := p.kingSq[us]
	occ := p.Occupied()
	var out Bitboard

	snipers := RookAttacks(ksq, 0)&(p.Pieces[them][Rook]|p.Pieces[them][Queen]) |
		BishopAttacks(ksq, 0)&(p.Pieces[them][Bishop]|p.Pieces[them][Queen])
	for snipers != 0 {
		sq := snipers.PopLSB()
		blockers := Between(sq, ksq) & occ
		if blockers.Count() == 1 && blockers&p.byColor[us] != 0 {
			out |= blockers
		}
	}
	return out
}

// legalFast decides legality without make/unmake for everything but
// en passant: non-pinned non-king moves that address any check are legal.
func (p *Position) legalFast(m Move, pinned Bitboard) bool {
	us, them := p.side, p.side.Flip()
	from, to := m.From(), m.To()
	ksq := p.kingSq[us]

	if from == ksq {
		if m.IsCastle() {
			// Path safety was checked during generation.
			return p.checkers == 0
		}
		occ := p.Occupied() &^ SquareBB(from)
		return p.AttackersTo(to, them, occ) == 0
	}

	if p.checkers != 0 {
		if p.checkers.Count() > 1 {
			return false // double check: king moves only
		}
		checker := p.checkers.LSB()

		if m.IsEnPassant() {
			capSq := to - 8
			if us == Black {
				capSq = to + 8
			}
			return capSq == checker && p.legalEnPassant(m)
		}

		// Must capture the checker or interpose.
		if !(SquareBB(checker) | Between(checker, ksq)).Has(to) {
			return false
		}
		return pinned&SquareBB(from) == 0 || Aligned(from, to, ksq)
	}

	if m.IsEnPassant() {
		return p.legalEnPassant(m)
	}
	return pinned&SquareBB(from) == 0 || Aligned(from, to, ksq)
}

// legalEnPassant replays the capture on a scratch copy; the double pawn
// removal can uncover a rank attack the pin scan cannot see.
func (p *Position) legalEnPassant(m Move) bool {
	us, them := p.side, p.side.Flip()
	ksq := p.kingSq[us]
	child := *p
	child.Make(m)
	return child.AttackersTo(ksq, them, child.Occupied()) == 0
}
