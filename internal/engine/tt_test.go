package engine

import (
	"testing"

	"github.com/egormoroz/gm-bit/internal/board"
)

func newTestTT(t *testing.T) *TranspositionTable {
	t.Helper()
	tt, err := NewTranspositionTable(1)
	if err != nil {
		t.Fatal(err)
	}
	return tt
}

func TestStoreProbeRoundTrip(t *testing.T) {
	tt := newTestTT(t)

	key := uint64(0xDEADBEEFCAFE1234)
	m := board.NewMove(board.E2, board.E4)
	tt.Store(NewTTEntry(key, 123, -45, BoundExact, 7, m, 3, true))

	e, ok := tt.Probe(key)
	if !ok {
		t.Fatal("probe missed a fresh store")
	}
	if e.Move() != m {
		t.Errorf("move = %v, want %v", e.Move(), m)
	}
	if e.Depth() != 7 {
		t.Errorf("depth = %d, want 7", e.Depth())
	}
	if e.Bound() != BoundExact {
		t.Errorf("bound = %v, want exact", e.Bound())
	}
	if !e.AvoidNull() {
		t.Error("avoidNull flag lost")
	}
	if e.Eval() != -45 {
		t.Errorf("eval = %d, want -45", e.Eval())
	}
	// Non-mate scores are not ply adjusted.
	if got := e.Score(3); got != 123 {
		t.Errorf("score = %d, want 123", got)
	}
	if got := e.Score(9); got != 123 {
		t.Errorf("score at other ply = %d, want 123", got)
	}
}

func TestMateScoreNormalization(t *testing.T) {
	tt := newTestTT(t)

	// A mate 5 plies from the root, stored by a node at ply 3.
	key := uint64(0x1111222233334444)
	mateScore := ValueMate - 5
	tt.Store(NewTTEntry(key, mateScore, 0, BoundExact, 9, board.MoveNone, 3, false))

	e, _ := tt.Probe(key)
	if got := e.Score(3); got != mateScore {
		t.Errorf("same-ply probe: %d, want %d", got, mateScore)
	}

	// Probing from a different ply shifts the distance accordingly:
	// score(p) - score(q) == q - p for positive mate scores.
	for _, pq := range [][2]int{{0, 4}, {1, 7}, {2, 3}} {
		p, q := pq[0], pq[1]
		if d := e.Score(p) - e.Score(q); d != q-p {
			t.Errorf("score(%d)-score(%d) = %d, want %d", p, q, d, q-p)
		}
	}

	// Negative mate scores shift the other way.
	key2 := key + 1
	tt.Store(NewTTEntry(key2, MatedIn(6), 0, BoundExact, 9, board.MoveNone, 2, false))
	e2, _ := tt.Probe(key2)
	if got := e2.Score(2); got != MatedIn(6) {
		t.Errorf("mated score = %d, want %d", got, MatedIn(6))
	}
}

func TestTornEntryIsMiss(t *testing.T) {
	tt := newTestTT(t)

	key := uint64(0xABCDEF0123456789)
	tt.Store(NewTTEntry(key, 50, 0, BoundLower, 5, board.NewMove(board.D2, board.D4), 0, false))
	if _, ok := tt.Probe(key); !ok {
		t.Fatal("probe missed before corruption")
	}

	// Simulate a torn write by flipping a data bit without fixing the key.
	b := &tt.buckets[key%uint64(len(tt.buckets))]
	for i := range b.slots {
		if b.slots[i].key^b.slots[i].data == key {
			b.slots[i].data ^= 1 << 17
		}
	}

	if _, ok := tt.Probe(key); ok {
		t.Error("probe trusted a torn entry")
	}
}

func TestDistinctKeysDoNotAlias(t *testing.T) {
	tt := newTestTT(t)

	// Two keys landing in the same bucket must stay distinguishable.
	n := uint64(len(tt.buckets))
	keyA := uint64(12345)
	keyB := keyA + n // same bucket index
	tt.Store(NewTTEntry(keyA, 10, 0, BoundExact, 3, board.MoveNone, 0, false))
	tt.Store(NewTTEntry(keyB, 20, 0, BoundExact, 4, board.MoveNone, 0, false))

	ea, oka := tt.Probe(keyA)
	eb, okb := tt.Probe(keyB)
	if !oka || !okb {
		t.Fatal("bucket-sharing keys evicted each other unexpectedly")
	}
	if ea.Score(0) != 10 || eb.Score(0) != 20 {
		t.Errorf("scores = %d, %d; want 10, 20", ea.Score(0), eb.Score(0))
	}
}

func TestReplacementPrefersStaleShallow(t *testing.T) {
	tt := newTestTT(t)
	n := uint64(len(tt.buckets))
	base := uint64(777)

	// Fill one bucket in generation 1.
	tt.NewSearch()
	for i := uint64(0); i < bucketSize; i++ {
		tt.Store(NewTTEntry(base+i*n, 0, 0, BoundExact, 10+int(i), board.MoveNone, 0, false))
	}

	// Next generation: the shallowest stale entry (depth 10) is the victim.
	tt.NewSearch()
	newKey := base + bucketSize*n
	tt.Store(NewTTEntry(newKey, 0, 0, BoundExact, 2, board.MoveNone, 0, false))

	if _, ok := tt.Probe(base); ok {
		t.Error("shallowest stale entry survived replacement")
	}
	for i := uint64(1); i < bucketSize; i++ {
		if _, ok := tt.Probe(base + i*n); !ok {
			t.Errorf("deeper entry %d was evicted", i)
		}
	}
	if _, ok := tt.Probe(newKey); !ok {
		t.Error("new entry not stored")
	}
}

func TestSameKeyOverwrites(t *testing.T) {
	tt := newTestTT(t)
	key := uint64(4242)

	tt.Store(NewTTEntry(key, 10, 0, BoundExact, 9, board.MoveNone, 0, false))
	tt.Store(NewTTEntry(key, 30, 0, BoundLower, 2, board.MoveNone, 0, false))

	e, ok := tt.Probe(key)
	if !ok {
		t.Fatal("probe missed")
	}
	if e.Score(0) != 30 || e.Depth() != 2 {
		t.Errorf("entry not overwritten in place: score %d depth %d", e.Score(0), e.Depth())
	}
}

func TestClearAndHashfull(t *testing.T) {
	tt := newTestTT(t)
	tt.NewSearch()

	if hf := tt.Hashfull(); hf != 0 {
		t.Errorf("fresh table hashfull = %d", hf)
	}

	for i := uint64(0); i < 500; i++ {
		tt.Store(NewTTEntry(i*7919, 0, 0, BoundExact, 3, board.MoveNone, 0, false))
	}
	if hf := tt.Hashfull(); hf == 0 {
		t.Error("hashfull stayed zero after stores")
	}

	tt.Clear()
	if hf := tt.Hashfull(); hf != 0 {
		t.Errorf("hashfull after clear = %d", hf)
	}
}

func TestExtractPVFollowsLegalMoves(t *testing.T) {
	tt := newTestTT(t)

	pos := board.StartPos()
	line := []string{"e2e4", "e7e5", "g1f3"}
	cur := pos
	for _, s := range line {
		m, err := cur.ParseMove(s)
		if err != nil {
			t.Fatal(err)
		}
		tt.Store(NewTTEntry(cur.Key(), 0, 0, BoundExact, 5, m, 0, false))
		cur.Make(m)
	}

	pv := tt.ExtractPV(&pos, 10)
	if len(pv) != len(line) {
		t.Fatalf("pv length %d, want %d", len(pv), len(line))
	}
	for i, s := range line {
		if pv[i].String() != s {
			t.Errorf("pv[%d] = %v, want %s", i, pv[i], s)
		}
	}
}

func TestTTCutoffRule(t *testing.T) {
	mk := func(score int, b Bound, depth int) TTEntry {
		return NewTTEntry(1, score, 0, b, depth, board.MoveNone, 0, false)
	}

	// Too shallow: never usable.
	alpha := 0
	if ttCutoff(mk(100, BoundExact, 3), &alpha, 50, 5, 0) {
		t.Error("shallow entry produced a cutoff")
	}

	// Exact: always usable, alpha takes the score.
	alpha = -100
	if !ttCutoff(mk(42, BoundExact, 5), &alpha, 100, 5, 0) || alpha != 42 {
		t.Errorf("exact cutoff failed, alpha = %d", alpha)
	}

	// Upper bound only cuts when score <= alpha.
	alpha = 10
	if ttCutoff(mk(50, BoundUpper, 5), &alpha, 100, 5, 0) {
		t.Error("upper bound above alpha produced a cutoff")
	}
	if !ttCutoff(mk(5, BoundUpper, 5), &alpha, 100, 5, 0) {
		t.Error("upper bound below alpha did not cut")
	}

	// Lower bound only cuts when score >= beta; alpha becomes beta.
	alpha = 0
	if !ttCutoff(mk(120, BoundLower, 5), &alpha, 100, 5, 0) || alpha != 100 {
		t.Errorf("lower bound cutoff failed, alpha = %d", alpha)
	}
	alpha = 0
	if ttCutoff(mk(80, BoundLower, 5), &alpha, 100, 5, 0) {
		t.Error("lower bound below beta produced a cutoff")
	}
}
