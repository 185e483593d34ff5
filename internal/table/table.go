// Package table seats players around a game.Hand. A Table serialises all
// calls into the engine and rotates the dealer between rounds; busted
// players are removed on a timer.
package table

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"github.com/lox/pokerface/internal/game"
	"github.com/lox/pokerface/internal/randutil"
)

var (
	ErrTableFull       = fmt.Errorf("%w: table is full", game.ErrSeatOccupancy)
	ErrDuplicateName   = fmt.Errorf("%w: name already seated", game.ErrSeatOccupancy)
	ErrInvalidName     = errors.New("player name is required")
	ErrRoundInProgress = errors.New("round in progress")
	ErrNoRound         = errors.New("no round in progress")
	ErrClosed          = errors.New("table closed")
)

// Table is a single table and its seats. It is safe for concurrent use.
type Table struct {
	id   int
	name string
	cfg  game.Config

	logger        zerolog.Logger
	clock         quartz.Clock
	rng           *rand.Rand
	occupancy     OccupancyRecorder
	sink          EventSink
	turnTimeout   time.Duration
	removalDelay  time.Duration
	startingChips int

	mu           sync.RWMutex
	seats        []*game.Player // Indexed by seat, nil when empty
	pendingSitIn map[int]bool
	dealerSeat   int
	hand         *game.Hand
	handNumber   int
	turnTimer    *quartz.Timer
	turnGen      uint64
	removalQueue map[int]*quartz.Timer
	closed       bool
}

// New creates an empty table.
func New(id int, name string, cfg game.Config, opts ...Option) (*Table, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Table{
		id:            id,
		name:          name,
		cfg:           cfg,
		logger:        zerolog.Nop(),
		clock:         quartz.NewReal(),
		removalDelay:  DefaultRemovalDelay,
		startingChips: DefaultStartingChips,
		seats:         make([]*game.Player, cfg.MaxSeats),
		pendingSitIn:  make(map[int]bool),
		dealerSeat:    -1,
		removalQueue:  make(map[int]*quartz.Timer),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.rng == nil {
		t.rng = randutil.New(time.Now().UnixNano())
	}
	t.logger = t.logger.With().Str("component", "table").Int("table_id", id).Str("table", name).Logger()
	return t, nil
}

func (t *Table) ID() int             { return t.id }
func (t *Table) Name() string        { return t.name }
func (t *Table) Config() game.Config { return t.cfg }

// PlayerCount returns the number of occupied seats.
func (t *Table) PlayerCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.countLocked()
}

// HandNumber returns the number of rounds started so far.
func (t *Table) HandNumber() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.handNumber
}

// InProgress reports whether a round is being played.
func (t *Table) InProgress() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.liveLocked()
}

// SeatOf returns the seat of the player called name, ignoring case.
func (t *Table) SeatOf(name string) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i, p := range t.seats {
		if p != nil && strings.EqualFold(p.Name, name) {
			return i, true
		}
	}
	return -1, false
}

// AddPlayer seats name in the lowest free seat with chips, or the table's
// starting chips when chips is zero. A player joining mid-round waits for
// the next round.
func (t *Table) AddPlayer(name string, chips int) (int, []Event, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1, nil, ErrInvalidName
	}
	if chips <= 0 {
		chips = t.startingChips
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return -1, nil, ErrClosed
	}
	seat := -1
	for i, p := range t.seats {
		if p == nil {
			if seat < 0 {
				seat = i
			}
			continue
		}
		if strings.EqualFold(p.Name, name) {
			t.mu.Unlock()
			return -1, nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
	}
	if seat < 0 {
		t.mu.Unlock()
		return -1, nil, ErrTableFull
	}
	t.seats[seat] = &game.Player{Seat: seat, Name: name, Chips: chips}
	count := t.countLocked()
	t.mu.Unlock()

	t.logger.Info().Int("seat", seat).Str("player", name).Int("chips", chips).Msg("Player seated")
	t.recordOccupancy(count)
	return seat, []Event{PlayerJoined{Seat: seat, Name: name, Chips: chips}}, nil
}

// RemovePlayer detaches seat. A player still in the current hand is folded
// first, which may settle the hand.
func (t *Table) RemovePlayer(seat int) ([]Event, error) {
	t.mu.Lock()
	p, err := t.seatLocked(seat)
	if err != nil {
		t.mu.Unlock()
		return nil, err
	}

	var events []Event
	if t.inHandLocked(p) {
		folded, err := t.hand.ForceFold(seat)
		if err != nil {
			t.mu.Unlock()
			return nil, err
		}
		events = t.afterHandLocked(folded)
	}
	t.detachLocked(seat)
	count := t.countLocked()
	t.mu.Unlock()

	t.logger.Info().Int("seat", seat).Str("player", p.Name).Msg("Player left")
	t.recordOccupancy(count)
	return append(events, PlayerRemoved{Seat: seat, Name: p.Name, Reason: ReasonLeft}), nil
}

// SitOut excludes seat from future rounds. In the current hand the player
// is folded when their turn comes, or at once if it is their turn; an
// all-in player plays the hand out.
func (t *Table) SitOut(seat int) ([]Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, err := t.seatLocked(seat)
	if err != nil {
		return nil, err
	}
	delete(t.pendingSitIn, seat)
	if !t.inHandLocked(p) {
		p.SittingOut = true
		return nil, nil
	}
	events, err := t.hand.SitOut(seat)
	if err != nil {
		return nil, err
	}
	return t.afterHandLocked(events), nil
}

// SitIn returns seat to play. During a round it takes effect from the next
// one, or cancels a sit-out still waiting for the player's turn.
func (t *Table) SitIn(seat int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, err := t.seatLocked(seat)
	if err != nil {
		return err
	}
	if t.inHandLocked(p) {
		if p.SitOutPending {
			p.SitOutPending = false
			return nil
		}
		t.pendingSitIn[seat] = true
		return nil
	}
	p.SittingOut = false
	return nil
}

// StartRound deals a new hand to every eligible seat, moving the dealer
// to the next of them.
func (t *Table) StartRound() ([]Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrClosed
	}
	if t.liveLocked() {
		return nil, ErrRoundInProgress
	}

	for seat := range t.pendingSitIn {
		if p := t.seats[seat]; p != nil {
			p.SittingOut = false
		}
	}
	clear(t.pendingSitIn)

	var players []*game.Player
	for _, p := range t.seats {
		if p != nil && !p.SittingOut && !p.PendingRemoval && p.Chips > 0 {
			players = append(players, p)
		}
	}
	if len(players) < 2 {
		return nil, game.ErrNotEnoughPlayers
	}

	dealer := 0
	for i, p := range players {
		if p.Seat > t.dealerSeat {
			dealer = i
			break
		}
	}

	hand, events, err := game.NewHand(t.rng, players, dealer, t.cfg)
	if err != nil {
		return nil, err
	}
	t.hand = hand
	t.dealerSeat = players[dealer].Seat
	t.handNumber++

	t.logger.Info().
		Int("hand", t.handNumber).
		Int("players", len(players)).
		Int("dealer", t.dealerSeat).
		Msg("Round started")
	return t.afterHandLocked(events), nil
}

// SubmitAction applies an action for the seat in turn.
func (t *Table) SubmitAction(seat int, a game.Action) ([]Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.hand == nil {
		return nil, ErrNoRound
	}
	events, err := t.hand.SubmitAction(seat, a)
	if err != nil {
		t.logger.Debug().Err(err).Int("seat", seat).Stringer("action", a).Msg("Action rejected")
		return nil, err
	}
	t.logger.Debug().Int("seat", seat).Stringer("action", a).Msg("Action applied")
	return t.afterHandLocked(events), nil
}

// LegalActions returns the options of the seat in turn and that seat.
func (t *Table) LegalActions() (int, []game.ActionOption) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.liveLocked() {
		return -1, nil
	}
	return t.hand.Turn(), t.hand.LegalActions()
}

// Close stops all timers. Pending removals are dropped.
func (t *Table) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.turnGen++
	if t.turnTimer != nil {
		t.turnTimer.Stop()
		t.turnTimer = nil
	}
	for seat, timer := range t.removalQueue {
		timer.Stop()
		delete(t.removalQueue, seat)
	}
}

// afterHandLocked schedules side effects of engine events and re-arms the
// turn timer. It returns events unchanged.
func (t *Table) afterHandLocked(events []Event) []Event {
	for _, ev := range events {
		switch e := ev.(type) {
		case game.RoundFinished:
			t.logger.Info().
				Int("hand", t.handNumber).
				Int("pot", e.Pot).
				Ints("winners", e.Winners).
				Msg("Round finished")
		case game.PlayerLost:
			t.scheduleRemovalLocked(e.Seat)
		}
	}
	t.armTurnTimerLocked()
	return events
}

func (t *Table) scheduleRemovalLocked(seat int) {
	p := t.seats[seat]
	// The loser may have left and been replaced mid-hand
	if p == nil || t.hand == nil || t.hand.Player(seat) != p {
		return
	}
	if old := t.removalQueue[seat]; old != nil {
		old.Stop()
	}
	t.logger.Info().Int("seat", seat).Str("player", p.Name).Int("chips", p.Chips).Msg("Player lost, removal scheduled")
	t.removalQueue[seat] = t.clock.AfterFunc(t.removalDelay, func() {
		t.removeBusted(seat, p)
	}, "table", "removal")
}

func (t *Table) removeBusted(seat int, p *game.Player) {
	t.mu.Lock()
	if t.closed || t.seats[seat] != p || !p.PendingRemoval || t.inHandLocked(p) {
		t.mu.Unlock()
		return
	}
	t.detachLocked(seat)
	count := t.countLocked()
	t.mu.Unlock()

	t.logger.Info().Int("seat", seat).Str("player", p.Name).Msg("Busted player removed")
	t.recordOccupancy(count)
	t.emit([]Event{PlayerRemoved{Seat: seat, Name: p.Name, Reason: ReasonBusted}})
}

func (t *Table) armTurnTimerLocked() {
	t.turnGen++
	if t.turnTimer != nil {
		t.turnTimer.Stop()
		t.turnTimer = nil
	}
	if t.turnTimeout <= 0 || t.closed || !t.liveLocked() {
		return
	}
	seat, gen := t.hand.Turn(), t.turnGen
	t.turnTimer = t.clock.AfterFunc(t.turnTimeout, func() {
		t.expireTurn(seat, gen)
	}, "table", "turn")
}

func (t *Table) expireTurn(seat int, gen uint64) {
	t.mu.Lock()
	// A stale timer is one whose turn already moved on
	if t.closed || gen != t.turnGen || !t.liveLocked() || t.hand.Turn() != seat {
		t.mu.Unlock()
		return
	}
	p := t.hand.Player(seat)
	sat, err := t.hand.SitOut(seat)
	if err != nil {
		t.mu.Unlock()
		t.logger.Error().Err(err).Int("seat", seat).Msg("Failed to sit out timed out player")
		return
	}
	events := append([]Event{TurnTimedOut{Seat: seat, Name: p.Name}}, t.afterHandLocked(sat)...)
	t.mu.Unlock()

	t.logger.Warn().Int("seat", seat).Str("player", p.Name).Dur("timeout", t.turnTimeout).Msg("Turn timed out, player sitting out")
	t.emit(events)
}

func (t *Table) emit(events []Event) {
	if t.sink != nil && len(events) > 0 {
		t.sink(t.id, events)
	}
}

func (t *Table) recordOccupancy(count int) {
	if t.occupancy != nil {
		t.occupancy.Record(t.id, count)
	}
}

func (t *Table) seatLocked(seat int) (*game.Player, error) {
	if seat < 0 || seat >= len(t.seats) || t.seats[seat] == nil {
		return nil, fmt.Errorf("%w: %d", game.ErrUnknownSeat, seat)
	}
	return t.seats[seat], nil
}

func (t *Table) detachLocked(seat int) {
	t.seats[seat] = nil
	delete(t.pendingSitIn, seat)
	if timer := t.removalQueue[seat]; timer != nil {
		timer.Stop()
		delete(t.removalQueue, seat)
	}
}

func (t *Table) liveLocked() bool {
	return t.hand != nil && !t.hand.Finished()
}

// inHandLocked reports whether p is part of the live hand.
func (t *Table) inHandLocked(p *game.Player) bool {
	return t.liveLocked() && slices.Contains(t.hand.Players, p)
}

func (t *Table) countLocked() int {
	n := 0
	for _, p := range t.seats {
		if p != nil {
			n++
		}
	}
	return n
}
