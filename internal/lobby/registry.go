// Package lobby maps table records to live sessions, seating players by
// name and fanning table events out to subscribers.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lox/pokerface/internal/game"
	"github.com/lox/pokerface/internal/randutil"
	"github.com/lox/pokerface/internal/store"
	"github.com/lox/pokerface/internal/table"
)

var (
	ErrTableFull     = table.ErrTableFull
	ErrDuplicateName = table.ErrDuplicateName
	ErrNoSession     = errors.New("no session for table")
	ErrUnknownPlayer = errors.New("unknown player")
	ErrClosed        = errors.New("lobby closed")
)

const subscriberBuffer = 64

// JoinResult identifies a seated player.
type JoinResult struct {
	PlayerID string `json:"player_id"`
	TableID  int    `json:"table_id"`
	Seat     int    `json:"seat"`
	Name     string `json:"name"`
	Chips    int    `json:"chips"`
}

// Notification carries the events of one table call to subscribers.
type Notification struct {
	TableID int           `json:"table_id"`
	Events  []table.Event `json:"-"`
}

// Change reports a new player count for a table.
type Change struct {
	TableID int `json:"table_id"`
	Players int `json:"players"`
}

type session struct {
	table   *table.Table
	players map[string]int // Player id to seat
}

// Registry owns one session per table that has players.
type Registry struct {
	logger    zerolog.Logger
	store     store.Store
	occupancy table.OccupancyRecorder
	tableOpts []table.Option
	seed      *int64

	mu          sync.RWMutex
	sessions    map[int]*session
	subscribers map[int]map[chan Notification]struct{}
	watchers    map[chan Change]struct{}
	closed      bool
}

// Option configures a Registry.
type Option func(*Registry)

func WithLogger(logger zerolog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithOccupancy forwards every table's player count to rec.
func WithOccupancy(rec table.OccupancyRecorder) Option {
	return func(r *Registry) {
		r.occupancy = rec
	}
}

// WithTableOptions applies opts to every table the registry creates.
func WithTableOptions(opts ...table.Option) Option {
	return func(r *Registry) {
		r.tableOpts = append(r.tableOpts, opts...)
	}
}

// WithSeed makes every table shuffle from a generator derived from seed
// and the table id, so a run can be replayed.
func WithSeed(seed int64) Option {
	return func(r *Registry) {
		r.seed = &seed
	}
}

// NewRegistry creates a registry backed by s.
func NewRegistry(s store.Store, opts ...Option) *Registry {
	r := &Registry{
		logger:      zerolog.Nop(),
		store:       s,
		sessions:    make(map[int]*session),
		subscribers: make(map[int]map[chan Notification]struct{}),
		watchers:    make(map[chan Change]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With().Str("component", "lobby").Logger()
	return r
}

// Join seats name at tableID, creating the session for the first player.
func (r *Registry) Join(ctx context.Context, tableID int, name string) (JoinResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return JoinResult{}, table.ErrInvalidName
	}
	rec, err := r.store.Get(ctx, tableID)
	if err != nil {
		return JoinResult{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return JoinResult{}, ErrClosed
	}

	s, created := r.sessions[tableID], false
	if s == nil {
		t, err := r.newTable(rec)
		if err != nil {
			return JoinResult{}, err
		}
		s, created = &session{table: t, players: make(map[string]int)}, true
	}
	if s.table.PlayerCount() >= s.table.Config().MaxSeats {
		return JoinResult{}, ErrTableFull
	}
	if _, taken := s.table.SeatOf(name); taken {
		return JoinResult{}, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	seat, events, err := s.table.AddPlayer(name, 0)
	if err != nil {
		if created {
			s.table.Close()
		}
		return JoinResult{}, err
	}
	if created {
		r.sessions[tableID] = s
		r.logger.Info().Int("table_id", tableID).Str("table", rec.Name).Msg("Session created")
	}

	id := uuid.NewString()
	s.players[id] = seat
	joined := events[0].(table.PlayerJoined)

	r.publishLocked(tableID, events)
	r.notifyLocked(tableID, s.table.PlayerCount())
	r.logger.Info().
		Int("table_id", tableID).
		Str("player_id", id).
		Str("player", name).
		Int("seat", seat).
		Msg("Player joined")

	return JoinResult{PlayerID: id, TableID: tableID, Seat: seat, Name: joined.Name, Chips: joined.Chips}, nil
}

// Leave removes the player from the table, folding them out of a live
// hand. The session is removed with its last player.
func (r *Registry) Leave(tableID int, playerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, seat, err := r.lookupLocked(tableID, playerID)
	if err != nil {
		return err
	}
	events, err := s.table.RemovePlayer(seat)
	if err != nil {
		return err
	}
	delete(s.players, playerID)

	r.publishLocked(tableID, events)
	r.afterRemovalLocked(tableID, s)
	r.logger.Info().Int("table_id", tableID).Str("player_id", playerID).Int("seat", seat).Msg("Player left")
	return nil
}

// Start begins a round at tableID.
func (r *Registry) Start(tableID int) ([]table.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := r.sessions[tableID]
	if s == nil {
		return nil, fmt.Errorf("%w: %d", ErrNoSession, tableID)
	}
	events, err := s.table.StartRound()
	if err != nil {
		return nil, err
	}
	r.publishLocked(tableID, events)
	return events, nil
}

// Act submits an action for the player.
func (r *Registry) Act(tableID int, playerID string, a game.Action) ([]table.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, seat, err := r.lookupLocked(tableID, playerID)
	if err != nil {
		return nil, err
	}
	events, err := s.table.SubmitAction(seat, a)
	if err != nil {
		return nil, err
	}
	r.publishLocked(tableID, events)
	return events, nil
}

// SitOut and SitIn toggle whether the player is dealt into rounds.
func (r *Registry) SitOut(tableID int, playerID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, seat, err := r.lookupLocked(tableID, playerID)
	if err != nil {
		return err
	}
	events, err := s.table.SitOut(seat)
	if err != nil {
		return err
	}
	r.publishLocked(tableID, events)
	return nil
}

func (r *Registry) SitIn(tableID int, playerID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, seat, err := r.lookupLocked(tableID, playerID)
	if err != nil {
		return err
	}
	return s.table.SitIn(seat)
}

// Snapshot returns the table as seen by playerID, whose hole cards are
// included. An empty playerID hides every hand.
func (r *Registry) Snapshot(tableID int, playerID string) (table.View, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := r.sessions[tableID]
	if s == nil {
		return table.View{}, fmt.Errorf("%w: %d", ErrNoSession, tableID)
	}
	reveal := -1
	if playerID != "" {
		seat, ok := s.players[playerID]
		if !ok {
			return table.View{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
		}
		reveal = seat
	}
	return s.table.Snapshot(reveal), nil
}

// Players returns the number of players seated at tableID.
func (r *Registry) Players(tableID int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s := r.sessions[tableID]; s != nil {
		return s.table.PlayerCount()
	}
	return 0
}

// Sessions returns the ids of tables with a live session in ascending order.
func (r *Registry) Sessions() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Subscribe returns a channel receiving every notification for tableID,
// whether or not a session exists yet. Slow subscribers miss
// notifications rather than blocking the table. The channel is closed by
// cancel or Close.
func (r *Registry) Subscribe(ctx context.Context, tableID int) (<-chan Notification, func(), error) {
	if _, err := r.store.Get(ctx, tableID); err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, nil, ErrClosed
	}
	ch := make(chan Notification, subscriberBuffer)
	if r.subscribers[tableID] == nil {
		r.subscribers[tableID] = make(map[chan Notification]struct{})
	}
	r.subscribers[tableID][ch] = struct{}{}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if _, ok := r.subscribers[tableID][ch]; ok {
				delete(r.subscribers[tableID], ch)
				close(ch)
			}
		})
	}
	return ch, cancel, nil
}

// Watch returns a channel of player count changes across all tables.
func (r *Registry) Watch() (<-chan Change, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan Change, subscriberBuffer)
	if r.closed {
		close(ch)
		return ch, func() {}
	}
	r.watchers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if _, ok := r.watchers[ch]; ok {
				delete(r.watchers, ch)
				close(ch)
			}
		})
	}
}

// Close stops every table and closes all subscriber channels.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for id, s := range r.sessions {
		s.table.Close()
		delete(r.sessions, id)
	}
	for id, subs := range r.subscribers {
		for ch := range subs {
			close(ch)
		}
		delete(r.subscribers, id)
	}
	for ch := range r.watchers {
		close(ch)
		delete(r.watchers, ch)
	}
}

func (r *Registry) newTable(rec store.TableRecord) (*table.Table, error) {
	opts := append([]table.Option{
		table.WithLogger(r.logger),
		table.WithEventSink(r.relay),
	}, r.tableOpts...)
	if r.occupancy != nil {
		opts = append(opts, table.WithOccupancy(r.occupancy))
	}
	if r.seed != nil {
		opts = append(opts, table.WithRNG(randutil.New(randutil.Derive(*r.seed, rec.ID))))
	}
	return table.New(rec.ID, rec.Name, rec.Config(), opts...)
}

// relay receives events raised by table timers.
func (r *Registry) relay(tableID int, events []table.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.sessions[tableID]
	if s == nil {
		return
	}
	r.publishLocked(tableID, events)
	for _, ev := range events {
		if e, ok := ev.(table.PlayerRemoved); ok {
			for id, seat := range s.players {
				if seat == e.Seat {
					delete(s.players, id)
				}
			}
			r.afterRemovalLocked(tableID, s)
		}
	}
}

func (r *Registry) afterRemovalLocked(tableID int, s *session) {
	count := s.table.PlayerCount()
	r.notifyLocked(tableID, count)
	if count > 0 || r.sessions[tableID] != s {
		return
	}
	s.table.Close()
	delete(r.sessions, tableID)
	r.logger.Info().Int("table_id", tableID).Msg("Session removed")
}

func (r *Registry) lookupLocked(tableID int, playerID string) (*session, int, error) {
	s := r.sessions[tableID]
	if s == nil {
		return nil, -1, fmt.Errorf("%w: %d", ErrNoSession, tableID)
	}
	seat, ok := s.players[playerID]
	if !ok {
		return nil, -1, fmt.Errorf("%w: %s", ErrUnknownPlayer, playerID)
	}
	return s, seat, nil
}

// publishLocked requires at least a read lock; sends never block.
func (r *Registry) publishLocked(tableID int, events []table.Event) {
	if len(events) == 0 {
		return
	}
	n := Notification{TableID: tableID, Events: events}
	for ch := range r.subscribers[tableID] {
		select {
		case ch <- n:
		default:
			r.logger.Warn().Int("table_id", tableID).Msg("Subscriber lagging, notification dropped")
		}
	}
}

func (r *Registry) notifyLocked(tableID, players int) {
	c := Change{TableID: tableID, Players: players}
	for ch := range r.watchers {
		select {
		case ch <- c:
		default:
		}
	}
}
