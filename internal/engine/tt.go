package engine

import (
	"fmt"

	"github.com/egormoroz/gm-bit/internal/board"
)

// The transposition table is lock free: entries are two words, written data
// first and keyed by key XOR data, so a probe that observes a torn write sees
// a key mismatch and reports a miss instead of garbage (Hyatt/Mann scheme).
//
// data packs, low to high:
//
//	bits  0-15 move
//	bits 16-21 depth (0..63)
//	bits 22-23 bound
//	bit  24    avoid-null flag
//	bits 25-31 age
//	bits 32-47 score, int16, mate scores shifted by storing ply
//	bits 48-63 static eval, int16
type TTEntry struct {
	key  uint64
	data uint64
}

const bucketSize = 3

type ttBucket struct {
	slots [bucketSize]TTEntry
}

const ageMask = 0x7F

// NewTTEntry builds an entry ready for store. Mate scores are normalized to
// be relative to this node: their magnitude grows by ply on the way in, so
// the stored distance to mate counts from this node rather than the root,
// and Score shrinks it again by the probing ply on the way out.
func NewTTEntry(key uint64, score, eval int, b Bound, depth int, m board.Move, ply int, avoidNull bool) TTEntry {
	if score > MateBound {
		score += ply
	} else if score < -MateBound {
		score -= ply
	}
	if depth < 0 {
		depth = 0
	} else if depth > MaxDepth {
		depth = MaxDepth
	}

	data := uint64(uint16(m)) |
		uint64(depth)<<16 |
		uint64(b)<<22 |
		uint64(uint16(int16(score)))<<32 |
		uint64(uint16(int16(eval)))<<48
	if avoidNull {
		data |= 1 << 24
	}
	return TTEntry{key: key, data: data}
}

func (e TTEntry) Move() board.Move { return board.Move(e.data & 0xFFFF) }
func (e TTEntry) Depth() int       { return int(e.data >> 16 & 63) }
func (e TTEntry) Bound() Bound     { return Bound(e.data >> 22 & 3) }
func (e TTEntry) AvoidNull() bool  { return e.data>>24&1 != 0 }
func (e TTEntry) Age() uint8       { return uint8(e.data >> 25 & ageMask) }
func (e TTEntry) Eval() int        { return int(int16(e.data >> 48)) }

// Score undoes the mate normalization relative to the probing ply.
func (e TTEntry) Score(ply int) int {
	s := int(int16(e.data >> 32))
	if s > MateBound {
		s -= ply
	} else if s < -MateBound {
		s += ply
	}
	return s
}

func (e TTEntry) withAge(age uint8) TTEntry {
	e.data = e.data&^(uint64(ageMask)<<25) | uint64(age)<<25
	return e
}

// TranspositionTable is shared by design: probes and stores never lock, and
// resize/clear require the searcher to be quiescent.
type TranspositionTable struct {
	buckets []ttBucket
	age     uint8
}

// NewTranspositionTable allocates a table of the given size in MiB.
func NewTranspositionTable(mbs int) (*TranspositionTable, error) {
	tt := &TranspositionTable{}
	if err := tt.Resize(mbs); err != nil {
		return nil, err
	}
	return tt, nil
}

// Resize reallocates the table, dropping every entry. Not safe to call
// while a search is running.
func (tt *TranspositionTable) Resize(mbs int) (err error) {
	defer func() {
		if recover() != nil {
			err = fmt.Errorf("transposition table: cannot allocate %d MiB", mbs)
		}
	}()

	n := mbs * 1 << 20 / (bucketSize * 16)
	if n < 1 {
		n = 1
	}
	tt.buckets = make([]ttBucket, n)
	return nil
}

// Clear zeroes the table in place.
func (tt *TranspositionTable) Clear() {
	for i := range tt.buckets {
		tt.buckets[i] = ttBucket{}
	}
}

// NewSearch advances the age generation; called once per root search.
func (tt *TranspositionTable) NewSearch() {
	tt.age = (tt.age + 1) & ageMask
}

// Probe returns the first entry in the key's bucket that passes XOR
// validation. The returned copy is stamped with the current age.
func (tt *TranspositionTable) Probe(key uint64) (TTEntry, bool) {
	b := &tt.buckets[key%uint64(len(tt.buckets))]
	for i := 0; i < bucketSize; i++ {
		e := b.slots[i]
		if e.key^e.data == key {
			return e.withAge(tt.age), true
		}
	}
	return TTEntry{}, false
}

// Store writes the entry using depth-preferred, age-aware replacement:
// same key first, then the shallowest stale entry, then the shallowest
// entry overall. Data is written before the XOR'd key.
func (tt *TranspositionTable) Store(e TTEntry) {
	b := &tt.buckets[e.key%uint64(len(tt.buckets))]

	var victim *TTEntry
	for i := 0; i < bucketSize; i++ {
		s := &b.slots[i]
		if s.key^s.data == e.key {
			victim = s
			break
		}
	}
	if victim == nil {
		bestDepth := MaxDepth + 1
		for i := 0; i < bucketSize; i++ {
			s := &b.slots[i]
			if s.Age() != tt.age && s.Depth() < bestDepth {
				victim, bestDepth = s, s.Depth()
			}
		}
		if victim == nil {
			for i := 0; i < bucketSize; i++ {
				s := &b.slots[i]
				if s.Depth() < bestDepth {
					victim, bestDepth = s, s.Depth()
				}
			}
		}
	}

	e = e.withAge(tt.age)
	victim.data = e.data
	victim.key = e.key ^ e.data
}

// Prefetch hints that the bucket for key is about to be probed. Go has no
// prefetch intrinsic, so this only computes the bucket address.
func (tt *TranspositionTable) Prefetch(key uint64) {
	_ = &tt.buckets[key%uint64(len(tt.buckets))]
}

// Hashfull samples the first thousand buckets and reports fill in permille
// of slots populated during the current generation.
func (tt *TranspositionTable) Hashfull() int {
	n := 1000
	if n > len(tt.buckets) {
		n = len(tt.buckets)
	}
	cnt := 0
	for i := 0; i < n; i++ {
		for j := 0; j < bucketSize; j++ {
			e := tt.buckets[i].slots[j]
			if e.Depth() > 0 && e.Age() == tt.age {
				cnt++
			}
		}
	}
	return cnt * 1000 / (n * bucketSize)
}

// ExtractPV walks TT moves from the root position for up to maxLen plies,
// stopping at the first miss or illegal move.
func (tt *TranspositionTable) ExtractPV(root *board.Position, maxLen int) []board.Move {
	var pv []board.Move
	pos := *root
	for len(pv) < maxLen {
		e, ok := tt.Probe(pos.Key())
		if !ok {
			break
		}
		m := e.Move()
		if !pos.IsValidMove(m) {
			break
		}
		pv = append(pv, m)
		pos.Make(m)
	}
	return pv
}
