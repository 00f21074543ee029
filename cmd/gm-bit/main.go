package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/egormoroz/gm-bit/internal/datagen"
	"github.com/egormoroz/gm-bit/internal/engine"
	"github.com/egormoroz/gm-bit/internal/eval"
	"github.com/egormoroz/gm-bit/internal/storage"
	"github.com/egormoroz/gm-bit/internal/uci"
)

const defaultHashMB = 16

func main() {
	log.SetFlags(0)
	log.SetPrefix("gm-bit: ")

	if len(os.Args) < 2 {
		runUCI()
		return
	}

	var err error
	switch os.Args[1] {
	case "selfplay":
		err = runSelfplay(os.Args[2:])
	case "packstats":
		err = runPackStats(os.Args[2:])
	default:
		err = fmt.Errorf("unknown command %q\nusage: gm-bit [selfplay|packstats]", os.Args[1])
	}
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}
}

func runUCI() {
	tt, err := engine.NewTranspositionTable(defaultHashMB)
	if err != nil {
		log.Fatal(err)
	}
	worker := engine.NewWorker(tt, eval.Evaluate, nil, os.Stdout)
	defer worker.Close()

	// The weight cache is best effort: a locked or unwritable data dir
	// only costs the evalfile persistence.
	store := openWeightCache()
	if store != nil {
		defer store.Close()
	}

	uci.New(tt, worker, store, os.Stdin, os.Stdout).Run()
}

func openWeightCache() *storage.Store {
	dir, err := storage.DefaultCacheDir()
	if err != nil {
		log.Printf("weight cache unavailable: %v", err)
		return nil
	}
	store, err := storage.Open(dir)
	if err != nil {
		log.Printf("weight cache unavailable: %v", err)
		return nil
	}
	return store
}

func runSelfplay(args []string) error {
	fs := flag.NewFlagSet("selfplay", flag.ContinueOnError)
	games := fs.Int("games", 100, "number of games to play")
	depth := fs.Int("depth", 6, "fixed search depth per move")
	threads := fs.Int("threads", 1, "parallel workers")
	randomPlies := fs.Int("random", 4, "random opening plies")
	hashMB := fs.Int("hash", 16, "per-worker hash size in MiB")
	store := fs.String("store", "", "archive directory (default: data dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dir := *store
	if dir == "" {
		var err error
		if dir, err = storage.DefaultArchiveDir(); err != nil {
			return err
		}
	}

	return datagen.Run(context.Background(), datagen.Options{
		Games:       *games,
		Depth:       *depth,
		Threads:     *threads,
		RandomPlies: *randomPlies,
		HashMB:      *hashMB,
		StoreDir:    dir,
	})
}

func runPackStats(args []string) error {
	fs := flag.NewFlagSet("packstats", flag.ContinueOnError)
	store := fs.String("store", "", "archive directory (default: data dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dir := *store
	if dir == "" {
		var err error
		if dir, err = storage.DefaultArchiveDir(); err != nil {
			return err
		}
	}

	stats, err := datagen.Stats(dir)
	if err != nil {
		return fmt.Errorf("archive invalid: %w", err)
	}

	fmt.Printf("games     %d\n", stats.Games)
	fmt.Printf("positions %d\n", stats.Positions)
	fmt.Printf("hash      %016x\n", stats.Hash)
	return nil
}
