package engine

import (
	"time"

	"github.com/egormoroz/gm-bit/internal/board"
)

// TimeManager allocates the wall-clock budget for one move from a simple
// clock model: fixed move time wins, otherwise a slice of remaining time
// plus most of the increment, capped by a safety margin.
type TimeManager struct {
	start   time.Time
	maxTime time.Duration
}

func (tm *TimeManager) Init(limits *Limits, us board.Color, ply int) {
	tm.start = limits.Start
	if tm.start.IsZero() {
		tm.start = time.Now()
	}

	if limits.MoveTime > 0 {
		tm.maxTime = limits.MoveTime
		return
	}

	remaining := limits.Time[us]
	if limits.Infinite || remaining == 0 {
		tm.maxTime = 0 // unbounded; the driver never consults the clock
		return
	}

	// Estimate how many moves the rest of the game takes, fewer as the
	// game progresses.
	mtg := 40 - ply/4
	if mtg < 12 {
		mtg = 12
	}

	budget := remaining/time.Duration(mtg) + limits.Inc[us]*9/10

	// Never commit more than a large fraction of the clock to one move.
	if margin := remaining * 8 / 10; budget > margin {
		budget = margin
	}
	if budget < 5*time.Millisecond {
		budget = 5 * time.Millisecond
	}
	tm.maxTime = budget
}

func (tm *TimeManager) Elapsed() time.Duration {
	return time.Since(tm.start)
}

// Remaining is the budget left for this move; the driver uses it to skip
// iterations it cannot finish.
func (tm *TimeManager) Remaining() time.Duration {
	return tm.maxTime - tm.Elapsed()
}

func (tm *TimeManager) OutOfTime() bool {
	return tm.maxTime > 0 && tm.Elapsed() >= tm.maxTime
}
