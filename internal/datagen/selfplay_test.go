package datagen

import (
	"context"
	"testing"
)

func TestSelfplayProducesValidArchive(t *testing.T) {
	if testing.Short() {
		t.Skip("plays full games")
	}

	dir := t.TempDir()
	opts := Options{
		Games:       2,
		Depth:       2,
		Threads:     2,
		RandomPlies: 2,
		HashMB:      1,
		StoreDir:    dir,
	}
	if err := Run(context.Background(), opts); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stats, err := Stats(dir)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Games != 2 {
		t.Errorf("archived %d games, want 2", stats.Games)
	}
	if stats.Positions == 0 {
		t.Error("archive holds no positions")
	}
}

func TestRunRejectsBadDepth(t *testing.T) {
	err := Run(context.Background(), Options{Games: 1, Depth: 0, StoreDir: t.TempDir()})
	if err == nil {
		t.Fatal("expected error for zero depth")
	}
}
