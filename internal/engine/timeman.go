package engine

import (
	"time"

	"github.com/hailam/foxsee/internal/board"
)

// Limits contains the UCI go parameters.
type Limits struct {
	Depth        int           // maximum search depth (0 = engine default)
	MoveTime     time.Duration // fixed time per move (overrides the clock)
	WTime, BTime time.Duration // remaining time for each color
	WInc, BInc   time.Duration // increment per move
	MovesToGo    int           // moves until next time control (0 = use default)
	Infinite     bool          // search until stopped
}

// clock returns the remaining time and increment of color c.
func (l Limits) clock(c board.Color) (remaining, inc time.Duration) {
	if c == board.White {
		return l.WTime, l.WInc
	}
	return l.BTime, l.BInc
}

// TimeBudget is the time a search may spend. Extra is granted at most once,
// when the score drops out of the aspiration window late in an iteration.
type TimeBudget struct {
	Main  time.Duration
	Extra time.Duration
}

// Unlimited is the budget for depth-limited and infinite searches.
const Unlimited = time.Duration(1<<63 - 1)

// Time management defaults.
const (
	DefaultMovesToGo    = 20
	DefaultMoveOverhead = 100 * time.Millisecond
)

// TimeManager turns UCI limits into a TimeBudget.
type TimeManager struct {
	MovesToGo int           // used when the GUI sends no movestogo
	Overhead  time.Duration // subtracted from each clock allocation
}

// NewTimeManager creates a time manager with the default settings.
func NewTimeManager() *TimeManager {
	return &TimeManager{MovesToGo: DefaultMovesToGo, Overhead: DefaultMoveOverhead}
}

// Budget computes the budget for side us.
func (tm *TimeManager) Budget(l Limits, us board.Color) TimeBudget {
	if l.MoveTime > 0 {
		return TimeBudget{Main: l.MoveTime}
	}

	remaining, inc := l.clock(us)
	if l.Infinite || (l.WTime == 0 && l.BTime == 0) {
		return TimeBudget{Main: Unlimited}
	}

	mtg := l.MovesToGo
	if mtg <= 0 {
		mtg = tm.MovesToGo
	}
	if mtg <= 0 {
		mtg = DefaultMovesToGo
	}

	main := min((remaining+time.Duration(mtg)*inc)/time.Duration(mtg), remaining)
	if main > tm.Overhead {
		main -= tm.Overhead
	}

	extra := main / 2
	if left := remaining - main - tm.Overhead; extra > left {
		extra = max(left, 0)
	}
	return TimeBudget{Main: main, Extra: extra}
}
