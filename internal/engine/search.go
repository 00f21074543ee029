package engine

import (
	"fmt"
	"io"
	"math"
	"os"
	"sync/atomic"
	"time"

	"github.com/egormoroz/gm-bit/internal/board"
)

// Config carries the search parameters adjustable over UCI.
type Config struct {
	MultiPV     int
	AspDelta    int
	AspMinDepth int
}

func defaultConfig() Config {
	return Config{MultiPV: 1, AspDelta: 16, AspMinDepth: 6}
}

// lmr[depth][moves] is the extra reduction applied to late quiet moves on
// top of the base one-ply reduction.
var lmr [64][64]int

func init() {
	InitReductions(21.46)
}

// InitReductions rebuilds the reduction table; coeff is what the lmrcoeff
// option sets.
func InitReductions(coeff float64) {
	for d := 1; d < 64; d++ {
		for m := 1; m < 64; m++ {
			lmr[d][m] = int(coeff * math.Log(float64(d)) * math.Log(float64(m)) / 1024.0)
		}
	}
}

// Worker runs the search on its own loop thread. All search state is
// worker-local except the transposition table and the tree recorder.
type Worker struct {
	loop Loop
	tt   *TranspositionTable
	tree *Tree

	evaluate EvalFunc
	out      io.Writer

	root   board.Position
	stack  Stack
	limits Limits
	tm     TimeManager
	cfg    Config

	rmp       RootMovePicker
	hist      HistoryTable
	counters  replyTable
	followups replyTable
	stats     searchStats

	pondering atomic.Bool

	bestMove  board.Move
	bestScore int
}

// NewWorker starts an idle worker bound to the shared table and evaluator.
// The tree recorder may be nil.
func NewWorker(tt *TranspositionTable, evaluate EvalFunc, tree *Tree, out io.Writer) *Worker {
	if out == nil {
		out = os.Stdout
	}
	w := &Worker{
		tt:       tt,
		tree:     tree,
		evaluate: evaluate,
		out:      out,
		root:     board.StartPos(),
		cfg:      defaultConfig(),
	}
	w.loop.Start(w.iterativeDeepening)
	return w
}

// Config exposes the tunable search parameters; mutate only while the
// worker is idle.
func (w *Worker) Config() *Config { return &w.cfg }

// Go starts a search. Any running search is cancelled first; per-search
// state is reset while the loop is idle.
func (w *Worker) Go(root *board.Position, st *Stack, limits Limits) {
	w.loop.Pause()
	w.loop.WaitForCompletion()

	w.root = *root
	if st != nil {
		w.stack = *st
	} else {
		w.stack.Reset()
	}
	w.limits = limits
	if w.limits.MaxDepth <= 0 || w.limits.MaxDepth > MaxDepth {
		w.limits.MaxDepth = MaxDepth
	}
	if w.limits.Start.IsZero() {
		w.limits.Start = time.Now()
	}

	w.stats.reset()
	w.tt.NewSearch()
	w.rmp.Reset(&w.root, w.tt)
	w.hist.Reset()
	w.counters.Reset()
	w.followups.Reset()
	w.tm.Init(&w.limits, w.root.SideToMove(), w.stack.TotalHeight())
	w.pondering.Store(limits.Ponder)

	w.loop.Resume()
}

// Stop requests cooperative cancellation of the running search.
func (w *Worker) Stop() { w.loop.Pause() }

// PonderHit converts a ponder search into a normally timed one.
func (w *Worker) PonderHit() { w.pondering.Store(false) }

// WaitForCompletion blocks until the current search has finished.
func (w *Worker) WaitForCompletion() { w.loop.WaitForCompletion() }

// Close shuts the worker thread down.
func (w *Worker) Close() { w.loop.Close() }

// BestMove returns the move emitted by the last completed search.
func (w *Worker) BestMove() board.Move { return w.bestMove }
func (w *Worker) BestScore() int       { return w.bestScore }
func (w *Worker) Nodes() uint64        { return w.stats.Nodes }

func (w *Worker) unbounded() bool {
	return w.limits.Infinite || w.pondering.Load() || !w.limits.TimeBounded()
}

// checkTime runs every 2048 nodes; it is the only suspension point besides
// recursion entry.
func (w *Worker) checkTime() {
	if w.stats.Nodes&2047 != 0 {
		return
	}
	if !w.loop.KeepGoing() {
		return
	}
	if w.limits.MaxNodes > 0 && w.stats.Nodes >= w.limits.MaxNodes {
		w.loop.Pause()
		return
	}
	if !w.unbounded() && w.tm.OutOfTime() {
		w.loop.Pause()
	}
}

func (w *Worker) iterativeDeepening() {
	var pv []board.Move
	score, ebf := 0, 1
	var nodes, prevNodes uint64

	if w.rmp.NumMoves() == 1 {
		w.bestMove, w.bestScore = w.rmp.Best(), 0
		fmt.Fprintf(w.out, "bestmove %v\n", w.bestMove)
		return
	}

	prevNodes = 1
	score = w.searchRoot(-ValueMate, ValueMate, 1)
	nodes = w.stats.Nodes
	pv = w.report(1, score, ebf)

	for d := 2; d <= w.limits.MaxDepth; d++ {
		w.tree.Clear()
		prevNodes = max(nodes, 1)
		before := w.stats.Nodes
		prevScore := score
		iterStart := time.Now()

		score = w.aspirationWindow(score, d)
		if !w.loop.KeepGoing() {
			break
		}
		pv = w.report(d, score, ebf)

		nodes = w.stats.Nodes - before
		ebf = int((nodes + prevNodes - 1) / prevNodes)

		// No point starting a depth we cannot finish: the next iteration
		// costs at least as much as this one did.
		if !w.unbounded() && abs(score-prevScore) < 8 &&
			time.Since(iterStart) >= w.tm.Remaining() {
			break
		}
		if abs(score) >= ValueMate-d {
			break
		}
	}

	best := board.MoveNone
	if len(pv) > 0 {
		best = pv[0]
	} else {
		best = w.rmp.Best()
	}
	w.bestMove, w.bestScore = best, score
	fmt.Fprintf(w.out, "bestmove %v\n", best)
}

func (w *Worker) aspirationWindow(score, depth int) int {
	if depth < w.cfg.AspMinDepth {
		return w.searchRoot(-ValueMate, ValueMate, depth)
	}

	delta := w.cfg.AspDelta
	alpha, beta := score-delta, score+delta
	for w.loop.KeepGoing() {
		score = w.searchRoot(alpha, beta, depth)

		if score <= alpha {
			beta = (alpha + beta) / 2
			alpha = max(-ValueMate, alpha-delta)
		} else if score >= beta {
			beta = min(ValueMate, beta+delta)
		} else {
			break
		}
		delta += delta / 2
	}
	return score
}

// ttCutoff applies the bounded-score cutoff rule; on success alpha holds
// the returnable score.
func ttCutoff(e TTEntry, alpha *int, beta, depth, ply int) bool {
	if e.Depth() < depth {
		return false
	}

	s := e.Score(ply)
	switch e.Bound() {
	case BoundExact:
		*alpha = s
		return true
	case BoundUpper:
		return s <= *alpha
	case BoundLower:
		if s >= beta {
			*alpha = beta
			return true
		}
	}
	return false
}

func (w *Worker) searchRoot(alpha, beta, depth int) int {
	if w.root.HalfMoves() >= 100 ||
		(w.root.Checkers() == 0 && w.root.IsMaterialDraw()) ||
		w.stack.IsRepetition(&w.root, 2) {
		return 0
	}

	if e, ok := w.tt.Probe(w.root.Key()); ok {
		if ttCutoff(e, &alpha, beta, depth, 0) {
			return alpha
		}
	}

	bestScore, bestMove := -ValueMate, board.MoveNone
	oldAlpha := alpha
	movesTried := 0

	for m := w.rmp.Next(); m != board.MoveNone; m = w.rmp.Next() {
		nodesBefore := w.stats.Nodes
		h := w.tree.BeginNode(m, alpha, beta, depth, 0)
		child := w.root
		child.Make(m)
		w.stack.Push(w.root.Key(), m)

		var score int
		if movesTried == 0 || depth <= 6 {
			score = -w.search(&child, -beta, -alpha, depth-1)
		} else {
			score = -w.search(&child, -(alpha + 1), -alpha, depth-1)
			if score > alpha && score < beta {
				score = -w.search(&child, -beta, -alpha, depth-1)
			}
		}

		movesTried++
		w.stack.Pop()
		w.tree.EndNode(h, score)
		w.rmp.UpdateLast(score, w.stats.Nodes-nodesBefore)

		if score > bestScore {
			bestScore, bestMove = score, m
		}
		if score > alpha {
			alpha = score
		}
		if score >= beta {
			alpha = beta
			break
		}
	}

	w.rmp.CompleteIter()

	if movesTried == 0 {
		if w.root.Checkers() != 0 {
			return w.stack.MatedScore()
		}
		return 0
	}

	if w.loop.KeepGoing() {
		w.tt.Store(NewTTEntry(w.root.Key(), alpha, 0,
			determineBound(alpha, beta, oldAlpha), depth, bestMove, 0, false))
	}
	return alpha
}

func (w *Worker) search(pos *board.Position, alpha, beta, depth int) int {
	ply := w.stack.Height()

	w.checkTime()
	if !w.loop.KeepGoing() {
		return 0
	}

	// Mate distance pruning: neither bound can beat a mate already found
	// closer to the root.
	mated := w.stack.MatedScore()
	alpha = max(alpha, mated)
	beta = min(beta, -mated-1)
	if alpha >= beta {
		return alpha
	}

	if depth <= 0 {
		return w.quiescence(pos, alpha, beta, pos.Checkers() != 0)
	}
	w.stats.Nodes++
	if w.stack.Capped() {
		return w.evaluate(pos)
	}

	w.tt.Prefetch(pos.Key())
	if pos.HalfMoves() >= 100 ||
		(pos.Checkers() == 0 && pos.IsMaterialDraw()) ||
		w.stack.IsRepetition(pos, 2) {
		return 0
	}

	ttm := board.MoveNone
	avoidNull := false
	if e, ok := w.tt.Probe(pos.Key()); ok {
		if m := e.Move(); pos.IsValidMove(m) {
			ttm = m
		}
		avoidNull = e.AvoidNull()

		if ttCutoff(e, &alpha, beta, depth, ply) {
			if ttm != board.MoveNone && pos.IsQuiet(ttm) {
				w.hist.AddBonus(pos, ttm, int32(depth*depth))
			}
			return alpha
		}
	}

	// Null move: hand the opponent a free tempo; if the reduced search
	// still fails high the node is good enough to cut. A failed attempt
	// flags the stored entry so the next visit skips the try.
	nullFailed := false
	if depth >= 3 && pos.Checkers() == 0 && !avoidNull &&
		pos.HasNonPawnMaterial() && beta < MateBound && pos.PliesFromNull() > 0 {
		child := *pos
		child.MakeNull()
		w.stack.Push(pos.Key(), board.MoveNone)
		r := 2 + depth/4
		score := -w.search(&child, -beta, -(beta - 1), depth-1-r)
		w.stack.Pop()
		if !w.loop.KeepGoing() {
			return 0
		}
		if score >= beta {
			return beta
		}
		nullFailed = true
	}

	// Internal iterative deepening: a shallow search to seed the TT with a
	// move when the probe came up empty.
	if ttm == board.MoveNone && depth >= 5 {
		w.search(pos, alpha, beta, depth-2)
		if e, ok := w.tt.Probe(pos.Key()); ok {
			if m := e.Move(); pos.IsValidMove(m) {
				ttm = m
			}
		}
	}

	oppMove := w.stack.At(ply - 1).Move
	prev, followup := board.MoveNone, board.MoveNone
	if ply >= 2 {
		prev = w.stack.At(ply - 2).Move
		followup = w.followups.Get(prev)
	}
	entry := w.stack.At(ply)
	mp := NewMovePicker(pos, ttm, entry.Killers, &w.hist, w.counters.Get(oppMove), followup)

	bestScore, bestMove := -ValueMate, board.MoveNone
	oldAlpha := alpha
	movesTried := 0

	for m := mp.Next(); m != board.MoveNone; m = mp.Next() {
		h := w.tree.BeginNode(m, alpha, beta, depth, ply)
		child := *pos
		child.Make(m)
		w.stack.Push(pos.Key(), m)

		var score int
		if movesTried >= 4 && depth >= 3 && pos.Checkers() == 0 &&
			pos.IsQuiet(m) && child.Checkers() == 0 {
			r := 1 + lmr[min(depth, 63)][min(movesTried, 63)]
			score = -w.search(&child, -(alpha + 1), -alpha, max(1, depth-1-r))
			if score > alpha {
				score = -w.search(&child, -beta, -alpha, depth-1)
			}
		} else {
			score = -w.search(&child, -beta, -alpha, depth-1)
		}

		w.stack.Pop()
		w.tree.EndNode(h, score)
		movesTried++

		if score > bestScore {
			bestScore, bestMove = score, m
		}
		if score > alpha {
			alpha = score
		}
		if score >= beta {
			break
		}
	}

	if movesTried == 0 {
		if pos.Checkers() != 0 {
			return w.stack.MatedScore()
		}
		return 0
	}

	if alpha >= beta {
		alpha = beta
		w.stats.FailHigh++
		if movesTried == 1 {
			w.stats.FailHighFirst++
		}
		if pos.IsQuiet(bestMove) {
			if entry.Killers[0] != bestMove {
				entry.Killers[1] = entry.Killers[0]
				entry.Killers[0] = bestMove
			}
			w.hist.AddBonus(pos, bestMove, int32(depth*depth))
			w.counters.Set(oppMove, bestMove)
			w.followups.Set(prev, bestMove)
		}
	}

	if w.loop.KeepGoing() {
		w.tt.Store(NewTTEntry(pos.Key(), alpha, 0,
			determineBound(alpha, beta, oldAlpha), depth, bestMove, ply, nullFailed))
	}
	return alpha
}

// quiescence stabilizes the horizon by searching tacticals, or every
// evasion while in check.
func (w *Worker) quiescence(pos *board.Position, alpha, beta int, evasions bool) int {
	w.checkTime()
	if !w.loop.KeepGoing() || pos.HalfMoves() >= 100 ||
		pos.IsMaterialDraw() || w.stack.IsRepetition(pos, 2) {
		return 0
	}
	if w.stack.Capped() {
		return w.evaluate(pos)
	}

	w.stats.Nodes++
	w.stats.QNodes++

	mated := w.stack.MatedScore()
	alpha = max(alpha, mated)
	beta = min(beta, -mated-1)
	if alpha >= beta {
		return alpha
	}

	if !evasions {
		standPat := w.evaluate(pos)
		alpha = max(alpha, standPat)
		if alpha >= beta {
			return beta
		}
	}

	mp := NewQuiescencePicker(pos, evasions)
	movesTried := 0

	for m := mp.Next(); m != board.MoveNone; m = mp.Next() {
		h := w.tree.BeginNode(m, alpha, beta, 0, w.stack.Height())
		child := *pos
		child.Make(m)
		w.stack.Push(pos.Key(), m)

		// Entering check switches the child to the evasion variant, which
		// also keeps perpetual-check lines honest.
		var score int
		if !evasions && child.Checkers() != 0 {
			score = -w.quiescence(&child, -beta, -alpha, true)
		} else {
			score = -w.quiescence(&child, -beta, -alpha, false)
		}

		w.stack.Pop()
		w.tree.EndNode(h, score)
		movesTried++

		if score > alpha {
			alpha = score
		}
		if score >= beta {
			return beta
		}
	}

	if evasions && movesTried == 0 {
		return w.stack.MatedScore()
	}
	return alpha
}

func (w *Worker) report(depth, score, ebf int) []board.Move {
	elapsed := time.Since(w.limits.Start).Milliseconds()
	nps := int64(w.stats.Nodes) * 1000 / (elapsed + 1)
	pv := w.tt.ExtractPV(&w.root, depth)
	fhf := float64(w.stats.FailHighFirst) / float64(w.stats.FailHigh+1)

	fmt.Fprintf(w.out, "info score %s depth %d nodes %d time %d nps %d fhf %.2f ebf %d hashfull %d pv%s\n",
		scoreString(score), depth, w.stats.Nodes, elapsed, nps, fhf, ebf,
		w.tt.Hashfull(), pvString(pv))

	if w.cfg.MultiPV > 1 {
		n := min(w.cfg.MultiPV, w.rmp.NumMoves())
		for i := 0; i < n; i++ {
			rm := w.rmp.MoveAt(i)
			fmt.Fprintf(w.out, "info multipv %d depth %d score %s pv %v\n",
				i+1, depth, scoreString(rm.Score), rm.Move)
		}
	}
	return pv
}

func pvString(pv []board.Move) string {
	s := ""
	for _, m := range pv {
		s += " " + m.String()
	}
	return s
}

// scoreString renders a score in UCI form, converting mate-bound scores to
// signed move counts.
func scoreString(score int) string {
	if score > MateBound {
		return fmt.Sprintf("mate %d", (ValueMate-score+1)/2)
	}
	if score < -MateBound {
		return fmt.Sprintf("mate %d", -(ValueMate+score+1)/2)
	}
	return fmt.Sprintf("cp %d", score)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
