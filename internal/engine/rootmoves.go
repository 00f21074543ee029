package engine

import (
	"sort"

	"github.com/egormoroz/gm-bit/internal/board"
)

// RootMove tracks one legal root move across iterations.
type RootMove struct {
	Move      board.Move
	Score     int
	PrevScore int
	Nodes     uint64
}

// RootMovePicker owns the ordered root move list for one search. Each
// iteration consumes the list through Next, attributes results through
// UpdateLast, and re-sorts through CompleteIter.
type RootMovePicker struct {
	moves []RootMove
	cur   int
}

// Reset regenerates root moves for a new search, seeded with the TT move so
// the previous best is tried first on the first iteration.
func (rmp *RootMovePicker) Reset(root *board.Position, tt *TranspositionTable) {
	ttm := board.MoveNone
	if e, ok := tt.Probe(root.Key()); ok {
		if m := e.Move(); root.IsValidMove(m) {
			ttm = m
		}
	}

	rmp.moves = rmp.moves[:0]
	rmp.cur = 0

	mp := NewMovePicker(root, ttm, [2]board.Move{}, nil, board.MoveNone, board.MoveNone)
	for m := mp.Next(); m != board.MoveNone; m = mp.Next() {
		rmp.moves = append(rmp.moves, RootMove{Move: m})
	}
}

func (rmp *RootMovePicker) Next() board.Move {
	if rmp.cur >= len(rmp.moves) {
		return board.MoveNone
	}
	m := rmp.moves[rmp.cur].Move
	rmp.cur++
	return m
}

// UpdateLast records the score and node attribution of the move most
// recently returned by Next.
func (rmp *RootMovePicker) UpdateLast(score int, nodes uint64) {
	last := &rmp.moves[rmp.cur-1]
	last.Nodes = nodes
	last.PrevScore = last.Score
	last.Score = score
}

// CompleteIter sorts by score, breaking ties by the previous iteration's
// score, and rewinds for the next iteration.
func (rmp *RootMovePicker) CompleteIter() {
	sort.SliceStable(rmp.moves, func(i, j int) bool {
		if rmp.moves[i].Score != rmp.moves[j].Score {
			return rmp.moves[i].Score > rmp.moves[j].Score
		}
		return rmp.moves[i].PrevScore > rmp.moves[j].PrevScore
	})
	rmp.cur = 0
}

func (rmp *RootMovePicker) NumMoves() int       { return len(rmp.moves) }
func (rmp *RootMovePicker) MoveAt(i int) RootMove { return rmp.moves[i] }

// Best returns the current top root move, MoveNone if there are none.
func (rmp *RootMovePicker) Best() board.Move {
	if len(rmp.moves) == 0 {
		return board.MoveNone
	}
	return rmp.moves[0].Move
}
