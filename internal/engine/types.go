// Package engine implements the search core: transposition table, search
// stack, move ordering heuristics and the iterative deepening driver.
package engine

import (
	"time"

	"github.com/egormoroz/gm-bit/internal/board"
)

const (
	// MaxPlies caps the total stack height: game history plus search depth.
	MaxPlies = 512
	// MaxDepth caps nominal iteration depth; TT entries store 6 bits of depth.
	MaxDepth = 63

	// ValueMate is "mated right now"; scores of magnitude above MateBound
	// encode mate-in-N relative to some ply.
	ValueMate = 32000
	MateBound = ValueMate - MaxPlies
)

// MatedIn returns the score for being checkmated ply moves into the search.
func MatedIn(ply int) int { return -ValueMate + ply }

// Bound classifies a stored score: exact, a lower bound after a fail-high,
// or an upper bound after a fail-low.
type Bound uint8

const (
	BoundUpper Bound = iota
	BoundLower
	BoundExact
)

func determineBound(alpha, beta, oldAlpha int) Bound {
	switch {
	case alpha >= beta:
		return BoundLower
	case alpha > oldAlpha:
		return BoundExact
	default:
		return BoundUpper
	}
}

// Limits carries the constraints of a single "go" request.
type Limits struct {
	Time      [2]time.Duration // remaining clock per color
	Inc       [2]time.Duration // increment per color
	MoveTime  time.Duration    // fixed time for this move
	MaxDepth  int
	MaxNodes  uint64
	Infinite  bool
	Ponder    bool
	Start     time.Time
}

// TimeBounded reports whether the search is constrained by a clock at all.
func (l *Limits) TimeBounded() bool {
	return !l.Infinite && (l.MoveTime > 0 || l.Time[board.White] > 0 || l.Time[board.Black] > 0)
}

// EvalFunc is the static evaluator contract: centipawns for the side to move.
type EvalFunc func(*board.Position) int

type searchStats struct {
	Nodes         uint64
	QNodes        uint64
	FailHigh      uint64
	FailHighFirst uint64
}

func (s *searchStats) reset() { *s = searchStats{} }
