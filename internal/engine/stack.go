package engine

import "github.com/egormoroz/gm-bit/internal/board"

// StackEntry is the per-ply scratch state pushed around each recursion.
type StackEntry struct {
	Key     uint64
	Move    board.Move
	Killers [2]board.Move
	Eval    int16
}

// Stack records the path from the start of the game to the current node:
// entries below start belong to the game history, entries above it to the
// running search. Height is measured from start, TotalHeight from the
// beginning of the history.
type Stack struct {
	entries [MaxPlies]StackEntry
	start   int
	height  int
}

func (s *Stack) Reset() {
	*s = Stack{}
}

// SetStart pins the current total height as the search root, typically after
// the game history has been pushed.
func (s *Stack) SetStart() {
	s.start = s.height
}

// Push records the key of the position a move was played in. Callers must
// check Capped first.
func (s *Stack) Push(key uint64, m board.Move) {
	s.entries[s.height] = StackEntry{Key: key, Move: m}
	s.height++
}

func (s *Stack) Pop() {
	s.height--
}

// At addresses per-ply state relative to the search root; negative plies
// reach into the game history.
func (s *Stack) At(ply int) *StackEntry {
	return &s.entries[s.start+ply]
}

func (s *Stack) Height() int      { return s.height - s.start }
func (s *Stack) TotalHeight() int { return s.height }
func (s *Stack) Capped() bool     { return s.height >= MaxPlies }

// MatedScore is the value of being checkmated at the current height.
func (s *Stack) MatedScore() int { return MatedIn(s.Height()) }

// IsRepetition scans ancestors two plies apart for fold occurrences of the
// position's key. The window is clamped by the fifty-move clock and by the
// plies since the last null move, outside of which no repeat is reachable.
func (s *Stack) IsRepetition(p *board.Position, fold int) bool {
	if s.height == 0 {
		return false
	}

	window := p.HalfMoves()
	if n := p.PliesFromNull(); n < window {
		window = n
	}
	low := s.height - window
	if low < 0 {
		low = 0
	}

	for i := s.height - 2; i >= low && fold > 0; i -= 2 {
		if s.entries[i].Key == p.Key() {
			fold--
		}
	}
	return fold == 0
}
