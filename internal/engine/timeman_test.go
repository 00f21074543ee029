package engine

import (
	"testing"
	"time"

	"github.com/egormoroz/gm-bit/internal/board"
)

func TestFixedMoveTime(t *testing.T) {
	var tm TimeManager
	limits := Limits{
		MoveTime: 100 * time.Millisecond,
		Start:    time.Now().Add(-200 * time.Millisecond),
	}
	tm.Init(&limits, board.White, 0)

	if !tm.OutOfTime() {
		t.Error("fixed move time elapsed but OutOfTime is false")
	}
}

func TestInfiniteNeverExpires(t *testing.T) {
	var tm TimeManager
	limits := Limits{
		Infinite: true,
		Start:    time.Now().Add(-time.Hour),
	}
	tm.Init(&limits, board.White, 0)

	if tm.OutOfTime() {
		t.Error("infinite search reported out of time")
	}
}

func TestClockAllocationIsBounded(t *testing.T) {
	var tm TimeManager
	limits := Limits{
		Time:  [2]time.Duration{time.Minute, time.Minute},
		Inc:   [2]time.Duration{time.Second, time.Second},
		Start: time.Now(),
	}
	tm.Init(&limits, board.Black, 20)

	if tm.maxTime <= 0 {
		t.Fatal("no budget allocated from a live clock")
	}
	// Sanity: a single move never eats most of the clock.
	if tm.maxTime > 48*time.Second {
		t.Errorf("budget %v exceeds the safety margin", tm.maxTime)
	}
	if tm.OutOfTime() {
		t.Error("out of time immediately after init")
	}
}

func TestLaterPliesGetBiggerSlices(t *testing.T) {
	alloc := func(ply int) time.Duration {
		var tm TimeManager
		limits := Limits{
			Time:  [2]time.Duration{time.Minute, time.Minute},
			Start: time.Now(),
		}
		tm.Init(&limits, board.White, ply)
		return tm.maxTime
	}

	if early, late := alloc(0), alloc(80); late < early {
		t.Errorf("allocation shrank as the game progressed: %v -> %v", early, late)
	}
}
