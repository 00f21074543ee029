package engine

import (
	"testing"

	"github.com/egormoroz/gm-bit/internal/board"
)

func TestStackHeights(t *testing.T) {
	var s Stack

	s.Push(1, board.NewMove(board.E2, board.E4))
	s.Push(2, board.NewMove(board.E7, board.E5))
	s.SetStart()

	if s.Height() != 0 || s.TotalHeight() != 2 {
		t.Fatalf("height %d total %d after SetStart", s.Height(), s.TotalHeight())
	}

	s.Push(3, board.NewMove(board.G1, board.F3))
	if s.Height() != 1 || s.TotalHeight() != 3 {
		t.Fatalf("height %d total %d after push", s.Height(), s.TotalHeight())
	}
	if s.At(0).Key != 3 {
		t.Errorf("At(0).Key = %d", s.At(0).Key)
	}
	if s.At(-1).Key != 2 {
		t.Errorf("At(-1).Key = %d, history not reachable", s.At(-1).Key)
	}

	s.Pop()
	if s.Height() != 0 || s.TotalHeight() != 2 {
		t.Fatalf("height %d total %d after pop", s.Height(), s.TotalHeight())
	}

	if s.Capped() {
		t.Error("stack capped far below MaxPlies")
	}
}

func TestMatedScoreGrowsWithHeight(t *testing.T) {
	var s Stack
	if s.MatedScore() != -ValueMate {
		t.Errorf("mated at root = %d", s.MatedScore())
	}
	s.Push(1, board.MoveNone)
	s.Push(2, board.MoveNone)
	if s.MatedScore() != MatedIn(2) {
		t.Errorf("mated at height 2 = %d, want %d", s.MatedScore(), MatedIn(2))
	}
}

// Knight shuffles repeat the start position every four plies; the key must
// be spotted at plies k, k+4, k+8 within the halfmove window.
func TestRepetitionDetection(t *testing.T) {
	pos := board.StartPos()
	var s Stack

	shuffle := []string{"g1f3", "g8f6", "f3g1", "f6g8", "g1f3", "g8f6", "f3g1", "f6g8"}
	for _, ms := range shuffle {
		m, err := pos.ParseMove(ms)
		if err != nil {
			t.Fatal(err)
		}
		s.Push(pos.Key(), m)
		pos.Make(m)
	}

	if !s.IsRepetition(&pos, 2) {
		t.Error("threefold not detected after two full shuffles")
	}
	if s.IsRepetition(&pos, 3) {
		t.Error("fold=3 should need one more occurrence")
	}

	// A pawn move resets the window: no repetition visible afterwards.
	m, err := pos.ParseMove("e2e4")
	if err != nil {
		t.Fatal(err)
	}
	s.Push(pos.Key(), m)
	pos.Make(m)
	if s.IsRepetition(&pos, 2) {
		t.Error("repetition claimed across an irreversible move")
	}
}

func TestRepetitionWindowRespectsNullMove(t *testing.T) {
	pos := board.StartPos()
	var s Stack

	for _, ms := range []string{"g1f3", "g8f6", "f3g1", "f6g8"} {
		m, err := pos.ParseMove(ms)
		if err != nil {
			t.Fatal(err)
		}
		s.Push(pos.Key(), m)
		pos.Make(m)
	}

	// The position repeats the start position once (fold 1 would match),
	// but a null move fences off the ancestors.
	if !s.IsRepetition(&pos, 1) {
		t.Fatal("single repetition not found")
	}
	s.Push(pos.Key(), board.MoveNone)
	pos.MakeNull()
	s.Push(pos.Key(), board.MoveNone)
	pos.MakeNull()
	if s.IsRepetition(&pos, 1) {
		t.Error("repetition scanned past a null move")
	}
}
