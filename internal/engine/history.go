package engine

import "github.com/egormoroz/gm-bit/internal/board"

const historyCap = 1 << 14

// HistoryTable scores quiet moves by (side, piece, destination) from
// observed beta cutoffs. Updates saturate so old bonuses cannot overflow.
type HistoryTable struct {
	v [2][6][64]int32
}

func (h *HistoryTable) Reset() {
	*h = HistoryTable{}
}

// AddBonus credits the move that just proved good; bonus is depth squared
// at the cutoff site.
func (h *HistoryTable) AddBonus(p *board.Position, m board.Move, bonus int32) {
	pt := p.PieceAt(m.From()).Type()
	if pt == board.PieceTypeNone {
		return
	}
	e := &h.v[p.SideToMove()][pt][m.To()]
	*e += bonus
	if *e > historyCap {
		*e = historyCap
	} else if *e < -historyCap {
		*e = -historyCap
	}
}

// Get returns the accumulated score for ordering purposes.
func (h *HistoryTable) Get(p *board.Position, m board.Move) int32 {
	pt := p.PieceAt(m.From()).Type()
	if pt == board.PieceTypeNone {
		return 0
	}
	return h.v[p.SideToMove()][pt][m.To()]
}

// replyTable maps the (from, to) projection of a prior move to a suggested
// reply; used for both counter moves (keyed by the opponent's last move) and
// followups (keyed by our move two plies ago).
type replyTable [4096]board.Move

func (t *replyTable) Reset() {
	*t = replyTable{}
}

func (t *replyTable) Set(prev, reply board.Move) {
	if prev != board.MoveNone {
		t[prev.FromTo()] = reply
	}
}

func (t *replyTable) Get(prev board.Move) board.Move {
	if prev == board.MoveNone {
		return board.MoveNone
	}
	return t[prev.FromTo()]
}
