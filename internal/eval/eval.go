// Package eval implements the static evaluator: tapered material and
// piece-square scoring from the side to move's perspective.
package eval

import "github.com/egormoroz/gm-bit/internal/board"

// Score packs a middlegame and an endgame value into one int32 so both
// phases accumulate in a single add.
type Score int32

// S builds a packed score from middlegame and endgame components.
func S(mg, eg int16) Score {
	return Score(int32(mg)<<16 + int32(eg))
}

func (s Score) Mg() int16 {
	return int16(uint32(s+0x8000) >> 16)
}

func (s Score) Eg() int16 {
	return int16(s)
}

// phaseWeight maps piece types to game-phase contribution; 24 in total
// for the full set of minor and major pieces.
var phaseWeight = [6]int{0, 1, 1, 2, 4, 0}

const maxPhase = 24

const tempo = 10

// Evaluate scores the position in centipawns for the side to move.
func Evaluate(p *board.Position) int {
	var total Score
	phase := 0

	for c := board.White; c <= board.Black; c++ {
		var side Score
		for pt := board.Pawn; pt <= board.King; pt++ {
			bb := p.Pieces[c][pt]
			phase += phaseWeight[pt] * bb.Count()
			for bb != 0 {
				sq := bb.PopLSB()
				if c == board.White {
					sq = sq.Mirror()
				}
				side += pieceValue[pt] + pieceSquare[pt][sq]
			}
		}
		if c == board.White {
			total += side
		} else {
			total -= side
		}
	}

	if phase > maxPhase {
		phase = maxPhase // promotions can exceed the nominal piece set
	}
	mg, eg := int(total.Mg()), int(total.Eg())
	v := (mg*phase + eg*(maxPhase-phase)) / maxPhase

	if p.SideToMove() == board.Black {
		v = -v
	}
	return v + tempo
}
