// Package uci implements the text command protocol between the engine and
// a GUI or match runner.
package uci

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/egormoroz/gm-bit/internal/board"
	"github.com/egormoroz/gm-bit/internal/engine"
	"github.com/egormoroz/gm-bit/internal/eval"
	"github.com/egormoroz/gm-bit/internal/storage"
)

const (
	engineName    = "gm-bit 1.1"
	engineAuthor  = "egormoroz"

	hashDefault, hashMin, hashMax             = 16, 1, 4096
	multiPVDefault, multiPVMin, multiPVMax    = 1, 1, 64
	aspDeltaDefault, aspDeltaMin, aspDeltaMax = 16, 8, 64
	aspDepthDefault, aspDepthMin, aspDepthMax = 6, 4, 10
	lmrCoeffDefault                           = 21.46

	// weightsBlob keys the cached evalfile contents in the store.
	weightsBlob = "evalweights"
)

// Protocol runs the line-oriented command loop. Malformed input is ignored
// or partially accepted, matching common UCI tolerance; the loop never
// fails on bad input.
type Protocol struct {
	in  io.Reader
	out io.Writer

	tt     *engine.TranspositionTable
	worker *engine.Worker
	store  *storage.Store

	pos    board.Position
	stack  engine.Stack
	ponder bool
}

// New wires a protocol instance to the shared table and worker. store may
// be nil; when present it caches the last loaded evalfile, which is
// restored here so weights survive restarts. Passing nil for in/out
// selects stdin/stdout.
func New(tt *engine.TranspositionTable, worker *engine.Worker, store *storage.Store, in io.Reader, out io.Writer) *Protocol {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	p := &Protocol{
		in:     in,
		out:    out,
		tt:     tt,
		worker: worker,
		store:  store,
		pos:    board.StartPos(),
	}

	if store != nil {
		if data, ok, err := store.GetBlob(weightsBlob); err != nil {
			fmt.Fprintf(p.out, "info string weights cache: %v\n", err)
		} else if ok {
			if err := eval.Load(bytes.NewReader(data)); err != nil {
				fmt.Fprintf(p.out, "info string weights cache: %v\n", err)
			} else {
				fmt.Fprintln(p.out, "info string weights restored from cache")
			}
		}
	}
	return p
}

// Run processes commands until quit or EOF.
func (p *Protocol) Run() {
	scanner := bufio.NewScanner(p.in)
	scanner.Buffer(make([]byte, 1<<16), 1<<20)

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch cmd, args := fields[0], fields[1:]; cmd {
		case "uci":
			p.identify()
		case "isready":
			fmt.Fprintln(p.out, "readyok")
		case "ucinewgame":
			p.newGame()
		case "position":
			p.position(args)
		case "go":
			p.go_(args)
		case "stop":
			p.worker.Stop()
		case "ponderhit":
			p.worker.PonderHit()
		case "setoption":
			p.setOption(args)
		case "d":
			fmt.Fprintln(p.out, p.pos.String())
		case "quit":
			p.worker.Stop()
			p.worker.WaitForCompletion()
			return
		}
	}
}

func (p *Protocol) identify() {
	fmt.Fprintf(p.out, "id name %s\n", engineName)
	fmt.Fprintf(p.out, "id author %s\n", engineAuthor)
	fmt.Fprintf(p.out, "option name Hash type spin default %d min %d max %d\n",
		hashDefault, hashMin, hashMax)
	fmt.Fprintln(p.out, "option name Ponder type check default false")
	fmt.Fprintln(p.out, "option name clear hash type button")
	fmt.Fprintf(p.out, "option name multipv type spin default %d min %d max %d\n",
		multiPVDefault, multiPVMin, multiPVMax)
	fmt.Fprintf(p.out, "option name aspdelta type spin default %d min %d max %d\n",
		aspDeltaDefault, aspDeltaMin, aspDeltaMax)
	fmt.Fprintf(p.out, "option name aspmindepth type spin default %d min %d max %d\n",
		aspDepthDefault, aspDepthMin, aspDepthMax)
	fmt.Fprintf(p.out, "option name lmrcoeff type string default %.2f\n", lmrCoeffDefault)
	fmt.Fprintln(p.out, "option name evalfile type string default <empty>")
	fmt.Fprintln(p.out, "uciok")
}

func (p *Protocol) newGame() {
	p.worker.Stop()
	p.worker.WaitForCompletion()
	p.tt.Clear()
	p.pos = board.StartPos()
	p.stack.Reset()
}

// position [fen <fen> | startpos] [moves m1 m2 ...]
//
// An unparsable FEN leaves the current position untouched; an illegal move
// stops consumption, keeping the position reached so far.
func (p *Protocol) position(args []string) {
	if len(args) == 0 {
		return
	}

	movesAt := -1
	for i, a := range args {
		if a == "moves" {
			movesAt = i
			break
		}
	}

	var pos board.Position
	switch args[0] {
	case "startpos":
		pos = board.StartPos()
	case "fen":
		end := movesAt
		if end == -1 {
			end = len(args)
		}
		parsed, err := board.ParseFEN(strings.Join(args[1:end], " "))
		if err != nil {
			fmt.Fprintf(p.out, "info string %v\n", err)
			return
		}
		pos = parsed
	default:
		return
	}

	p.pos = pos
	p.stack.Reset()

	if movesAt >= 0 {
		for _, s := range args[movesAt+1:] {
			m, err := p.pos.ParseMove(s)
			if err != nil {
				fmt.Fprintf(p.out, "info string %v\n", err)
				break
			}
			// Keep headroom for the search itself on marathon games; the
			// repetition window is clamped by the fifty-move clock, so
			// dropping ancient history is sound.
			if p.stack.TotalHeight() >= engine.MaxPlies-2*engine.MaxDepth {
				p.stack.Reset()
			}
			p.stack.Push(p.pos.Key(), m)
			p.pos.Make(m)
		}
	}
	p.stack.SetStart()
}

func (p *Protocol) go_(args []string) {
	limits := engine.Limits{Start: time.Now()}

	for i := 0; i < len(args); i++ {
		num := func() int {
			if i+1 < len(args) {
				i++
				n, _ := strconv.Atoi(args[i])
				return n
			}
			return 0
		}
		switch args[i] {
		case "wtime":
			limits.Time[board.White] = time.Duration(num()) * time.Millisecond
		case "btime":
			limits.Time[board.Black] = time.Duration(num()) * time.Millisecond
		case "winc":
			limits.Inc[board.White] = time.Duration(num()) * time.Millisecond
		case "binc":
			limits.Inc[board.Black] = time.Duration(num()) * time.Millisecond
		case "movetime":
			limits.MoveTime = time.Duration(num()) * time.Millisecond
		case "depth":
			limits.MaxDepth = num()
		case "nodes":
			limits.MaxNodes = uint64(num())
		case "infinite":
			limits.Infinite = true
		case "ponder":
			// The Ponder option only advertises capability; the go
			// keyword is what actually starts a ponder search.
			limits.Ponder = true
		case "perft":
			p.runPerft(num())
			return
		}
	}

	if !limits.TimeBounded() && limits.MaxDepth == 0 && limits.MaxNodes == 0 {
		limits.Infinite = true
	}

	p.worker.Go(&p.pos, &p.stack, limits)
}

func (p *Protocol) runPerft(depth int) {
	if depth < 1 {
		return
	}
	start := time.Now()
	nodes := perft(&p.pos, depth)
	elapsed := time.Since(start)

	mnps := float64(nodes) / 1e6 / (elapsed.Seconds() + 1e-9)
	fmt.Fprintf(p.out, "%d nodes @ %.1f mn/s\n", nodes, mnps)
}

func perft(pos *board.Position, depth int) uint64 {
	var ml board.MoveList
	pos.LegalMoves(&ml)
	if depth == 1 {
		return uint64(ml.Len())
	}
	var nodes uint64
	for i := 0; i < ml.Len(); i++ {
		child := *pos
		child.Make(ml.At(i))
		nodes += perft(&child, depth-1)
	}
	return nodes
}

// cacheWeights stores the just-loaded weight file so the next session
// starts from it without re-pointing evalfile.
func (p *Protocol) cacheWeights(path string) {
	if p.store == nil {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(p.out, "info string weights cache: %v\n", err)
		return
	}
	if err := p.store.PutBlob(weightsBlob, data); err != nil {
		fmt.Fprintf(p.out, "info string weights cache: %v\n", err)
	}
}

// setoption name <K...> [value <V...>]; out-of-range values are rejected
// and the previous value kept.
func (p *Protocol) setOption(args []string) {
	var name, value []string
	target := &name
	for _, a := range args {
		switch a {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			*target = append(*target, a)
		}
	}

	optName := strings.ToLower(strings.Join(name, " "))
	optValue := strings.Join(value, " ")

	inRange := func(lo, hi int) (int, bool) {
		v, err := strconv.Atoi(optValue)
		return v, err == nil && v >= lo && v <= hi
	}

	switch optName {
	case "hash":
		v, ok := inRange(hashMin, hashMax)
		if !ok {
			return
		}
		p.worker.Stop()
		p.worker.WaitForCompletion()
		if err := p.tt.Resize(v); err != nil {
			// Out of memory for the requested table is not recoverable.
			log.Fatalf("uci: %v", err)
		}

	case "clear hash":
		p.worker.Stop()
		p.worker.WaitForCompletion()
		p.tt.Clear()

	case "ponder":
		p.ponder = optValue == "true"

	case "multipv":
		if v, ok := inRange(multiPVMin, multiPVMax); ok {
			p.worker.Config().MultiPV = v
		}

	case "aspdelta":
		if v, ok := inRange(aspDeltaMin, aspDeltaMax); ok {
			p.worker.Config().AspDelta = v
		}

	case "aspmindepth":
		if v, ok := inRange(aspDepthMin, aspDepthMax); ok {
			p.worker.Config().AspMinDepth = v
		}

	case "lmrcoeff":
		if v, err := strconv.ParseFloat(optValue, 64); err == nil && v >= 0 {
			engine.InitReductions(v)
		}

	case "evalfile":
		path := strings.TrimSpace(optValue)
		p.worker.Stop()
		p.worker.WaitForCompletion()
		if err := eval.LoadFile(path); err != nil {
			fmt.Fprintf(p.out, "info string failed to load weights: %v\n", err)
			return
		}
		fmt.Fprintf(p.out, "info string weights loaded from %s\n", path)
		p.cacheWeights(path)
	}
}
