package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLegalActions(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	capped := cfg
	capped.MaxBet = 50

	tests := []struct {
		name   string
		player Player
		ctx    Context
		want   []ActionOption
	}{
		{
			name:   "showdown offers nothing",
			player: Player{Seat: 0, Chips: 100},
			ctx:    Context{Round: Showdown, Config: cfg},
			want:   nil,
		},
		{
			name:   "ante capped at stack",
			player: Player{Seat: 0, Chips: 3},
			ctx:    Context{Round: Ante, Config: cfg, SmallBlindSeat: 1, BigBlindSeat: 2},
			want:   []ActionOption{{Kind: Fold}, {Kind: PostAnte, Amount: 3}},
		},
		{
			name:   "ante already posted",
			player: Player{Seat: 0, Chips: 100, PostedAnte: true},
			ctx:    Context{Round: Ante, Config: cfg},
			want:   []ActionOption{{Kind: Fold}},
		},
		{
			name:   "small blind must post",
			player: Player{Seat: 1, Chips: 100},
			ctx:    Context{Round: PreFlop, Config: cfg, SmallBlindSeat: 1, BigBlindSeat: 2},
			want:   []ActionOption{{Kind: Fold}, {Kind: PostSmallBlind, Amount: 5}},
		},
		{
			name:   "big blind must post",
			player: Player{Seat: 2, Chips: 100},
			ctx:    Context{Round: PreFlop, CurrentBet: 5, Config: cfg, SmallBlindSeat: 1, BigBlindSeat: 2},
			want:   []ActionOption{{Kind: Fold}, {Kind: PostBigBlind, Amount: 10}},
		},
		{
			name:   "open action",
			player: Player{Seat: 0, Chips: 100},
			ctx:    Context{Round: Flop, Config: cfg, SmallBlindSeat: 1, BigBlindSeat: 2},
			want: []ActionOption{
				{Kind: Fold},
				{Kind: Check},
				{Kind: Bet, Amount: 5, Max: 100},
				{Kind: AllIn, Amount: 100},
			},
		},
		{
			name:   "bet capped by max bet",
			player: Player{Seat: 0, Chips: 100},
			ctx:    Context{Round: Flop, Config: capped, SmallBlindSeat: 1, BigBlindSeat: 2},
			want: []ActionOption{
				{Kind: Fold},
				{Kind: Check},
				{Kind: Bet, Amount: 5, Max: 50},
				{Kind: AllIn, Amount: 100},
			},
		},
		{
			name:   "facing a bet",
			player: Player{Seat: 0, Chips: 100},
			ctx:    Context{Round: Turn, CurrentBet: 20, Config: cfg, SmallBlindSeat: 1, BigBlindSeat: 2},
			want: []ActionOption{
				{Kind: Fold},
				{Kind: Call, Amount: 20},
				{Kind: Raise, Amount: 20, Max: 80},
				{Kind: AllIn, Amount: 100},
			},
		},
		{
			name:   "big blind option",
			player: Player{Seat: 2, Chips: 90, Bet: 10, PostedBigBlind: true},
			ctx:    Context{Round: PreFlop, CurrentBet: 10, Config: cfg, SmallBlindSeat: 1, BigBlindSeat: 2},
			want: []ActionOption{
				{Kind: Fold},
				{Kind: Check},
				{Kind: Raise, Amount: 5, Max: 90},
				{Kind: AllIn, Amount: 90},
			},
		},
		{
			name:   "short of the call",
			player: Player{Seat: 0, Chips: 15},
			ctx:    Context{Round: River, CurrentBet: 20, Config: cfg, SmallBlindSeat: 1, BigBlindSeat: 2},
			want:   []ActionOption{{Kind: Fold}, {Kind: AllIn, Amount: 15}},
		},
		{
			name:   "can call but not raise",
			player: Player{Seat: 0, Chips: 30},
			ctx:    Context{Round: River, CurrentBet: 20, Config: cfg, SmallBlindSeat: 1, BigBlindSeat: 2},
			want:   []ActionOption{{Kind: Fold}, {Kind: Call, Amount: 20}, {Kind: AllIn, Amount: 30}},
		},
		{
			name:   "exact stack call",
			player: Player{Seat: 0, Chips: 20},
			ctx:    Context{Round: River, CurrentBet: 20, Config: cfg, SmallBlindSeat: 1, BigBlindSeat: 2},
			want:   []ActionOption{{Kind: Fold}, {Kind: Call, Amount: 20}, {Kind: AllIn, Amount: 20}},
		},
		{
			name:   "short all-in after acting",
			player: Player{Seat: 0, Chips: 80, Bet: 20, Acted: true},
			ctx:    Context{Round: Flop, CurrentBet: 22, Config: cfg, SmallBlindSeat: 1, BigBlindSeat: 2},
			want:   []ActionOption{{Kind: Fold}, {Kind: Call, Amount: 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.player
			got := LegalActions(&p, tt.ctx)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.player, p, "resolver must not modify the player")
		})
	}
}

func TestParseActionKind(t *testing.T) {
	t.Parallel()

	for _, k := range []ActionKind{Fold, Check, Call, Bet, Raise, AllIn, PostAnte, PostSmallBlind, PostBigBlind} {
		got, err := ParseActionKind(k.String())
		assert.NoError(t, err)
		assert.Equal(t, k, got)
	}

	got, err := ParseActionKind(" All-In ")
	assert.NoError(t, err)
	assert.Equal(t, AllIn, got)

	_, err = ParseActionKind("shove")
	assert.True(t, errors.Is(err, ErrInvalidAction))
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, DefaultConfig().Validate())

	bad := []func(*Config){
		func(c *Config) { c.Ante = -1 },
		func(c *Config) { c.SmallBlind = 0 },
		func(c *Config) { c.BigBlind = 2 },
		func(c *Config) { c.MinBet = 0 },
		func(c *Config) { c.MaxBet = 1 },
		func(c *Config) { c.MaxSeats = 1 },
		func(c *Config) { c.MaxSeats = MaxSeatsLimit + 1 },
	}
	for i, mutate := range bad {
		c := DefaultConfig()
		mutate(&c)
		assert.ErrorIs(t, c.Validate(), ErrInvalidConfig, "case %d", i)
	}
}
