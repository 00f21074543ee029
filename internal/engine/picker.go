package engine

import "github.com/egormoroz/gm-bit/internal/board"

// Ordering bands, highest searched first: TT move, winning captures,
// equal captures, killers, counter/followup replies, history-ranked quiets,
// then losing captures at the bottom.
const (
	scoreTTMove     int32 = 1 << 30
	scoreWinCapture int32 = 1 << 24
	scoreEqCapture  int32 = 1 << 22
	scoreKiller0    int32 = 1<<21 + 2
	scoreKiller1    int32 = 1<<21 + 1
	scoreCounter    int32 = 1<<20 + 2
	scoreFollowup   int32 = 1<<20 + 1
	scoreLoseCapture int32 = -(1 << 24)
)

var captureVal = [6]int32{100, 320, 330, 500, 900, 0}

// MovePicker yields legal moves in ordering-score order using lazy
// selection; full sorting is wasted on nodes that cut off early.
type MovePicker struct {
	pos    *board.Position
	moves  board.MoveList
	scores [256]int32
	cur    int
}

// NewMovePicker prepares the full ordered move set for an interior node.
func NewMovePicker(pos *board.Position, ttm board.Move, killers [2]board.Move,
	hist *HistoryTable, counter, followup board.Move) *MovePicker {

	mp := &MovePicker{pos: pos}
	pos.LegalMoves(&mp.moves)

	for i := 0; i < mp.moves.Len(); i++ {
		mp.scores[i] = mp.score(mp.moves.At(i), ttm, killers, hist, counter, followup)
	}
	return mp
}

// NewQuiescencePicker yields tacticals only; in check every legal move is
// an evasion and the full set is generated instead.
func NewQuiescencePicker(pos *board.Position, evasions bool) *MovePicker {
	mp := &MovePicker{pos: pos}
	if evasions {
		pos.LegalMoves(&mp.moves)
	} else {
		pos.TacticalMoves(&mp.moves)
	}

	for i := 0; i < mp.moves.Len(); i++ {
		mp.scores[i] = mp.score(mp.moves.At(i), board.MoveNone,
			[2]board.Move{}, nil, board.MoveNone, board.MoveNone)
	}
	return mp
}

func (mp *MovePicker) score(m, ttm board.Move, killers [2]board.Move,
	hist *HistoryTable, counter, followup board.Move) int32 {

	if m == ttm {
		return scoreTTMove
	}

	if mp.pos.IsCapture(m) {
		attacker := captureVal[mp.pos.PieceAt(m.From()).Type()]
		victim := captureVal[board.Pawn]
		if !m.IsEnPassant() {
			victim = captureVal[mp.pos.PieceAt(m.To()).Type()]
		}
		mvvLva := victim*8 - attacker/10
		switch {
		case victim > attacker:
			return scoreWinCapture + mvvLva
		case victim == attacker:
			return scoreEqCapture + mvvLva
		default:
			return scoreLoseCapture + mvvLva
		}
	}

	if m.IsPromotion() {
		// Queen promotions rank with winning captures, underpromotions low.
		if m.Promotion() == board.Queen {
			return scoreWinCapture + captureVal[board.Queen]
		}
		return scoreLoseCapture + 1
	}

	switch m {
	case killers[0]:
		return scoreKiller0
	case killers[1]:
		return scoreKiller1
	case counter:
		return scoreCounter
	case followup:
		return scoreFollowup
	}

	if hist != nil {
		return hist.Get(mp.pos, m)
	}
	return 0
}

// Next selects the highest-scored remaining move, or MoveNone when done.
func (mp *MovePicker) Next() board.Move {
	if mp.cur >= mp.moves.Len() {
		return board.MoveNone
	}

	best := mp.cur
	for i := mp.cur + 1; i < mp.moves.Len(); i++ {
		if mp.scores[i] > mp.scores[best] {
			best = i
		}
	}
	if best != mp.cur {
		mp.moves.Swap(mp.cur, best)
		mp.scores[mp.cur], mp.scores[best] = mp.scores[best], mp.scores[mp.cur]
	}

	m := mp.moves.At(mp.cur)
	mp.cur++
	return m
}
