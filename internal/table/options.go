package table

import (
	rand "math/rand/v2"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
)

const (
	DefaultStartingChips = 1000
	DefaultRemovalDelay  = 3 * time.Second
)

// OccupancyRecorder receives the number of seated players after every
// change. store.OccupancyWriter implements it.
type OccupancyRecorder interface {
	Record(tableID, players int)
}

// EventSink receives events raised outside a caller's request, such as
// busted players being removed or a turn timing out. It is called without
// the table lock held.
type EventSink func(tableID int, events []Event)

// Option configures a Table.
type Option func(*Table)

func WithLogger(logger zerolog.Logger) Option {
	return func(t *Table) {
		t.logger = logger
	}
}

// WithClock sets the clock used for removal and turn timers.
func WithClock(clock quartz.Clock) Option {
	return func(t *Table) {
		t.clock = clock
	}
}

// WithRNG sets the generator used to shuffle every deck.
func WithRNG(rng *rand.Rand) Option {
	return func(t *Table) {
		t.rng = rng
	}
}

func WithOccupancy(rec OccupancyRecorder) Option {
	return func(t *Table) {
		t.occupancy = rec
	}
}

func WithEventSink(sink EventSink) Option {
	return func(t *Table) {
		t.sink = sink
	}
}

// WithTurnTimeout sits out a player who does not act within d. Zero
// disables the timer.
func WithTurnTimeout(d time.Duration) Option {
	return func(t *Table) {
		t.turnTimeout = d
	}
}

// WithRemovalDelay sets how long a busted player stays seated before
// being removed.
func WithRemovalDelay(d time.Duration) Option {
	return func(t *Table) {
		t.removalDelay = d
	}
}

func WithStartingChips(chips int) Option {
	return func(t *Table) {
		t.startingChips = chips
	}
}
