package datagen

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/egormoroz/gm-bit/internal/board"
	"github.com/egormoroz/gm-bit/internal/engine"
	"github.com/egormoroz/gm-bit/internal/eval"
	"github.com/egormoroz/gm-bit/internal/storage"
)

// Options configures a self-play run.
type Options struct {
	Games       int
	Depth       int // fixed search depth per move
	Threads     int
	RandomPlies int // random opening prefix for variety
	StoreDir    string
	HashMB      int // per-worker transposition table size
}

const maxGamePlies = 400

// Run plays opts.Games games across opts.Threads workers and appends each
// packed game to the archive. The pipeline is a producer feeding game seeds
// to workers, with a single sink serializing archive writes.
func Run(ctx context.Context, opts Options) error {
	if opts.Depth < 1 {
		return fmt.Errorf("selfplay: depth must be positive")
	}
	if opts.Threads < 1 {
		opts.Threads = 1
	}
	if opts.HashMB < 1 {
		opts.HashMB = 16
	}
	if opts.RandomPlies < 0 {
		opts.RandomPlies = 0
	}

	store, err := storage.Open(opts.StoreDir)
	if err != nil {
		return err
	}
	defer store.Close()

	log.Printf("selfplay: %d games, depth %d, %d threads -> %s",
		opts.Games, opts.Depth, opts.Threads, opts.StoreDir)

	g, ctx := errgroup.WithContext(ctx)

	seeds := make(chan int64, opts.Threads)
	packed := make(chan []byte, opts.Threads)

	g.Go(func() error {
		defer close(seeds)
		for i := 0; i < opts.Games; i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case seeds <- int64(i):
			}
		}
		return nil
	})

	workers, workerCtx := errgroup.WithContext(ctx)
	for t := 0; t < opts.Threads; t++ {
		workers.Go(func() error {
			return playGames(workerCtx, &opts, seeds, packed)
		})
	}
	g.Go(func() error {
		defer close(packed)
		return workers.Wait()
	})

	g.Go(func() error {
		var done int
		for p := range packed {
			if _, err := store.AppendGame(p); err != nil {
				return err
			}
			done++
			if done%50 == 0 {
				log.Printf("selfplay: %d/%d games archived", done, opts.Games)
			}
		}
		return nil
	})

	return g.Wait()
}

// playGames runs one worker: a private transposition table and searcher,
// reused across the games it picks up.
func playGames(ctx context.Context, opts *Options, seeds <-chan int64, out chan<- []byte) error {
	tt, err := engine.NewTranspositionTable(opts.HashMB)
	if err != nil {
		return err
	}
	w := engine.NewWorker(tt, eval.Evaluate, nil, io.Discard)
	defer w.Close()

	for seed := range seeds {
		game, err := playOne(w, tt, opts, seed)
		if err != nil {
			return err
		}
		p, err := game.Pack()
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- p:
		}
	}
	return nil
}

func playOne(w *engine.Worker, tt *engine.TranspositionTable, opts *Options, seed int64) (*Game, error) {
	tt.Clear()
	rng := rand.New(rand.NewSource(seed))

	pos := board.StartPos()
	var st engine.Stack
	game := &Game{StartFEN: pos.FEN()}

	record := func(m board.Move, score int16) {
		st.Push(pos.Key(), m)
		pos.Make(m)
		game.Moves = append(game.Moves, m)
		game.Scores = append(game.Scores, score)
		game.KeyHash ^= pos.Key()
	}

	// A short random prefix keeps the archive from being one game repeated.
	for i := 0; i < opts.RandomPlies; i++ {
		var ml board.MoveList
		pos.LegalMoves(&ml)
		if ml.Len() == 0 {
			break
		}
		record(ml.At(rng.Intn(ml.Len())), 0)
	}

	for len(game.Moves) < maxGamePlies {
		if !pos.HasLegalMoves() {
			if pos.InCheck() {
				if pos.SideToMove() == board.White {
					game.Outcome = BlackWin
				} else {
					game.Outcome = WhiteWin
				}
			} else {
				game.Outcome = Draw
			}
			return game, nil
		}
		if pos.HalfMoves() >= 100 || pos.IsMaterialDraw() || st.IsRepetition(&pos, 2) {
			game.Outcome = Draw
			return game, nil
		}

		st.SetStart()
		w.Go(&pos, &st, engine.Limits{MaxDepth: opts.Depth})
		w.WaitForCompletion()

		m := w.BestMove()
		if m == board.MoveNone || !pos.IsValidMove(m) {
			return nil, fmt.Errorf("selfplay: searcher returned %v in %s", m, pos.FEN())
		}

		score := w.BestScore()
		if pos.SideToMove() == board.Black {
			score = -score
		}
		record(m, int16(clampScore(score)))
	}

	// Length-capped games are adjudicated as draws.
	game.Outcome = Draw
	return game, nil
}

func clampScore(s int) int {
	if s > 32000 {
		return 32000
	}
	if s < -32000 {
		return -32000
	}
	return s
}

// Stats re-reads an archive, replay-validating every game.
func Stats(storeDir string) (ArchiveStats, error) {
	store, err := storage.Open(storeDir)
	if err != nil {
		return ArchiveStats{}, err
	}
	defer store.Close()

	var stats ArchiveStats
	err = store.WalkGames(func(seq uint64, packed []byte) error {
		game, err := Unpack(packed)
		if err != nil {
			return fmt.Errorf("game %d: %w", seq, err)
		}
		n, err := game.Replay()
		if err != nil {
			return fmt.Errorf("game %d: %w", seq, err)
		}
		stats.Games++
		stats.Positions += uint64(n)
		stats.Hash ^= game.KeyHash
		return nil
	})
	return stats, err
}
