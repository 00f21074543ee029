// Package datagen generates training data by self-play and packs finished
// games into a compact binary record for the archive.
package datagen

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/egormoroz/gm-bit/internal/board"
)

// Result of a finished game from white's point of view.
type Result int8

const (
	BlackWin Result = -1
	Draw     Result = 0
	WhiteWin Result = 1
)

// Game is one finished self-play game: the start position, the moves, the
// search score after each move (white's perspective), and the outcome.
// KeyHash is the XOR of the position keys reached after each move and lets
// the archive be re-validated without trusting the writer.
type Game struct {
	StartFEN string
	Moves    []board.Move
	Scores   []int16
	Outcome  Result
	KeyHash  uint64
}

const packMagic = uint32(0x4B504D47) // "GMPK"

// Pack serializes the game.
func (g *Game) Pack() ([]byte, error) {
	if len(g.Moves) != len(g.Scores) {
		return nil, fmt.Errorf("pack: %d moves but %d scores", len(g.Moves), len(g.Scores))
	}
	if len(g.StartFEN) > 0xFFFF || len(g.Moves) > 0xFFFF {
		return nil, fmt.Errorf("pack: game too large")
	}

	var buf bytes.Buffer
	w := func(v any) { binary.Write(&buf, binary.LittleEndian, v) }

	w(packMagic)
	w(uint16(len(g.StartFEN)))
	buf.WriteString(g.StartFEN)
	w(uint16(len(g.Moves)))
	for i := range g.Moves {
		w(uint16(g.Moves[i]))
		w(g.Scores[i])
	}
	w(int8(g.Outcome))
	w(g.KeyHash)
	return buf.Bytes(), nil
}

// Unpack parses a packed record without validating the moves; use Replay
// to verify it against the rules.
func Unpack(data []byte) (*Game, error) {
	r := bytes.NewReader(data)
	rd := func(v any) error { return binary.Read(r, binary.LittleEndian, v) }

	var magic uint32
	if err := rd(&magic); err != nil || magic != packMagic {
		return nil, fmt.Errorf("unpack: bad magic")
	}

	var fenLen uint16
	if err := rd(&fenLen); err != nil {
		return nil, err
	}
	fen := make([]byte, fenLen)
	if _, err := r.Read(fen); err != nil {
		return nil, err
	}

	var n uint16
	if err := rd(&n); err != nil {
		return nil, err
	}
	g := &Game{StartFEN: string(fen)}
	for i := 0; i < int(n); i++ {
		var m uint16
		var s int16
		if err := rd(&m); err != nil {
			return nil, err
		}
		if err := rd(&s); err != nil {
			return nil, err
		}
		g.Moves = append(g.Moves, board.Move(m))
		g.Scores = append(g.Scores, s)
	}

	var outcome int8
	if err := rd(&outcome); err != nil {
		return nil, err
	}
	g.Outcome = Result(outcome)
	if err := rd(&g.KeyHash); err != nil {
		return nil, err
	}
	return g, nil
}

// Replay walks the game's moves from its start position, checking every
// move for legality and recomputing the key hash. Returns the number of
// positions visited.
func (g *Game) Replay() (int, error) {
	pos, err := board.ParseFEN(g.StartFEN)
	if err != nil {
		return 0, fmt.Errorf("replay: %w", err)
	}

	var hash uint64
	for i, m := range g.Moves {
		if !pos.IsValidMove(m) {
			return i, fmt.Errorf("replay: illegal move %v at ply %d", m, i)
		}
		pos.Make(m)
		hash ^= pos.Key()
	}
	if hash != g.KeyHash {
		return len(g.Moves), fmt.Errorf("replay: key hash mismatch: %016x != %016x", hash, g.KeyHash)
	}
	return len(g.Moves), nil
}

// ArchiveStats aggregates over a whole archive.
type ArchiveStats struct {
	Games     uint64
	Positions uint64
	Hash      uint64 // XOR over all game hashes
}
