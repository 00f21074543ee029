package uci

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/egormoroz/gm-bit/internal/engine"
	"github.com/egormoroz/gm-bit/internal/eval"
	"github.com/egormoroz/gm-bit/internal/storage"
)

func newTestProtocol(t *testing.T) (*Protocol, *bytes.Buffer) {
	t.Helper()
	return newTestProtocolWithStore(t, nil)
}

func newTestProtocolWithStore(t *testing.T, store *storage.Store) (*Protocol, *bytes.Buffer) {
	t.Helper()
	tt, err := engine.NewTranspositionTable(4)
	if err != nil {
		t.Fatal(err)
	}
	out := &bytes.Buffer{}
	worker := engine.NewWorker(tt, eval.Evaluate, nil, out)
	t.Cleanup(worker.Close)
	return New(tt, worker, store, nil, out), out
}

func TestIdentify(t *testing.T) {
	p, out := newTestProtocol(t)
	p.identify()

	s := out.String()
	for _, want := range []string{
		"id name", "id author", "uciok",
		"option name Hash type spin",
		"option name Ponder type check",
		"option name clear hash type button",
		"option name multipv type spin",
		"option name aspdelta type spin",
		"option name aspmindepth type spin",
		"option name lmrcoeff type string",
		"option name evalfile type string",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("uci reply missing %q:\n%s", want, s)
		}
	}
}

func TestPositionStartposWithMoves(t *testing.T) {
	p, _ := newTestProtocol(t)
	p.position(strings.Fields("startpos moves e2e4 e7e5 g1f3"))

	wantFEN := "rnbqkbnr/pppp1ppp/8/4p3/4P3/5N2/PPPP1PPP/RNBQKB1R b"
	if !strings.HasPrefix(p.pos.FEN(), wantFEN) {
		t.Errorf("position after moves = %s", p.pos.FEN())
	}
	if p.stack.TotalHeight() != 3 {
		t.Errorf("stack height = %d, want 3", p.stack.TotalHeight())
	}
	if p.stack.Height() != 0 {
		t.Errorf("search height = %d, want 0 after SetStart", p.stack.Height())
	}
}

func TestPositionFENRoundTrip(t *testing.T) {
	p, _ := newTestProtocol(t)
	fen := "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"
	p.position(append([]string{"fen"}, strings.Fields(fen)...))

	if got := p.pos.FEN(); got != fen {
		t.Errorf("fen round trip:\n in  %s\n out %s", fen, got)
	}
}

func TestPositionIllegalMoveStopsConsumption(t *testing.T) {
	p, _ := newTestProtocol(t)
	p.position(strings.Fields("startpos moves e2e4 e7e5 a1a5 g1f3"))

	// a1a5 is illegal: the position reached so far (after e7e5) stands.
	if h := p.stack.TotalHeight(); h != 2 {
		t.Errorf("stack height = %d, want 2", h)
	}
}

func TestPositionBadFENLeavesStateUntouched(t *testing.T) {
	p, _ := newTestProtocol(t)
	before := p.pos.FEN()
	p.position(strings.Fields("fen not a real fen at all"))

	if p.pos.FEN() != before {
		t.Errorf("position changed on invalid FEN: %s", p.pos.FEN())
	}
}

func TestSetOptionRange(t *testing.T) {
	p, _ := newTestProtocol(t)

	// Below minimum: previous value preserved.
	p.setOption(strings.Fields("name multipv value 0"))
	if got := p.worker.Config().MultiPV; got != 1 {
		t.Errorf("multipv = %d after rejected value, want 1", got)
	}

	p.setOption(strings.Fields("name multipv value 3"))
	if got := p.worker.Config().MultiPV; got != 3 {
		t.Errorf("multipv = %d, want 3", got)
	}

	p.setOption(strings.Fields("name aspdelta value 1000"))
	if got := p.worker.Config().AspDelta; got != 16 {
		t.Errorf("aspdelta = %d after rejected value, want 16", got)
	}

	p.setOption(strings.Fields("name aspmindepth value 8"))
	if got := p.worker.Config().AspMinDepth; got != 8 {
		t.Errorf("aspmindepth = %d, want 8", got)
	}

	// Unknown options are ignored without complaint.
	p.setOption(strings.Fields("name nonsense value 42"))
}

func TestGoDepthProducesBestmove(t *testing.T) {
	p, out := newTestProtocol(t)
	p.position(strings.Fields("fen 6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1"))
	p.go_(strings.Fields("depth 2"))
	p.worker.WaitForCompletion()

	if !strings.Contains(out.String(), "bestmove a1a8") {
		t.Errorf("expected mate-in-one bestmove, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "score mate 1") {
		t.Errorf("expected mate score, got:\n%s", out.String())
	}
}

func TestGoPerft(t *testing.T) {
	p, out := newTestProtocol(t)
	p.position([]string{"startpos"})
	p.go_(strings.Fields("perft 3"))

	if !strings.Contains(out.String(), "8902 nodes") {
		t.Errorf("perft 3 output wrong:\n%s", out.String())
	}
}

func TestEvalFileOptionCachesWeights(t *testing.T) {
	defer eval.ResetWeights()

	store, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	// A weight file on disk, loaded through the option.
	path := filepath.Join(t.TempDir(), "weights.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := eval.SaveFile(f); err != nil {
		t.Fatal(err)
	}
	f.Close()

	p, out := newTestProtocolWithStore(t, store)
	p.setOption(append(strings.Fields("name evalfile value"), path))

	if !strings.Contains(out.String(), "weights loaded from") {
		t.Fatalf("evalfile load failed:\n%s", out.String())
	}
	data, ok, err := store.GetBlob(weightsBlob)
	if err != nil || !ok {
		t.Fatalf("weights not cached: ok=%v err=%v", ok, err)
	}
	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, want) {
		t.Error("cached blob differs from the loaded file")
	}

	// A fresh session restores the cached weights without an evalfile.
	_, out2 := newTestProtocolWithStore(t, store)
	if !strings.Contains(out2.String(), "weights restored from cache") {
		t.Errorf("cache not restored on startup:\n%s", out2.String())
	}
}

// lockedBuffer makes the output readable while the search is still
// writing to it from the worker goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestGoPonderIgnoresClockUntilPonderhit(t *testing.T) {
	tt, err := engine.NewTranspositionTable(4)
	if err != nil {
		t.Fatal(err)
	}
	out := &lockedBuffer{}
	worker := engine.NewWorker(tt, eval.Evaluate, nil, out)
	t.Cleanup(worker.Close)
	p := New(tt, worker, nil, nil, out)
	p.position([]string{"startpos"})

	// The go keyword alone starts pondering; no Ponder option was set, and
	// the tiny clock must be ignored while pondering.
	p.go_(strings.Fields("ponder wtime 10 btime 10"))
	time.Sleep(100 * time.Millisecond)

	if strings.Contains(out.String(), "bestmove") {
		t.Fatalf("ponder search finished on the clock:\n%s", out.String())
	}

	p.worker.PonderHit()
	p.worker.WaitForCompletion()

	if n := strings.Count(out.String(), "bestmove"); n != 1 {
		t.Errorf("%d bestmove lines after ponderhit, want 1", n)
	}
}

func TestQuitStopsCleanly(t *testing.T) {
	tt, err := engine.NewTranspositionTable(4)
	if err != nil {
		t.Fatal(err)
	}
	out := &bytes.Buffer{}
	worker := engine.NewWorker(tt, eval.Evaluate, nil, out)
	t.Cleanup(worker.Close)

	in := strings.NewReader("isready\nposition startpos\ngo depth 1\nquit\n")
	New(tt, worker, nil, in, out).Run()

	if !strings.Contains(out.String(), "readyok") {
		t.Errorf("missing readyok:\n%s", out.String())
	}
}
