package game

import "fmt"

// MaxSeatsLimit bounds table size so a hand can never exhaust the deck:
// 1 + 2*10 hole cards plus 8 board and burn cards.
const MaxSeatsLimit = 10

// Config holds the stakes and size of a table.
type Config struct {
	Ante       int `json:"ante"`
	SmallBlind int `json:"small_blind"`
	BigBlind   int `json:"big_blind"`
	MinBet     int `json:"min_bet"`
	MaxBet     int `json:"max_bet"`
	MaxSeats   int `json:"max_seats"`
}

// DefaultConfig returns the stakes new tables are created with.
func DefaultConfig() Config {
	return Config{
		Ante:       5,
		SmallBlind: 5,
		BigBlind:   10,
		MinBet:     5,
		MaxBet:     10000,
		MaxSeats:   8,
	}
}

// Validate checks that the config describes a playable table.
func (c Config) Validate() error {
	switch {
	case c.Ante < 0:
		return fmt.Errorf("%w: ante must be >= 0, got %d", ErrInvalidConfig, c.Ante)
	case c.SmallBlind <= 0:
		return fmt.Errorf("%w: small blind must be > 0, got %d", ErrInvalidConfig, c.SmallBlind)
	case c.BigBlind < c.SmallBlind:
		return fmt.Errorf("%w: big blind %d below small blind %d", ErrInvalidConfig, c.BigBlind, c.SmallBlind)
	case c.MinBet <= 0:
		return fmt.Errorf("%w: min bet must be > 0, got %d", ErrInvalidConfig, c.MinBet)
	case c.MaxBet < c.MinBet:
		return fmt.Errorf("%w: max bet %d below min bet %d", ErrInvalidConfig, c.MaxBet, c.MinBet)
	case c.MaxSeats < 2 || c.MaxSeats > MaxSeatsLimit:
		return fmt.Errorf("%w: max seats must be between 2 and %d, got %d", ErrInvalidConfig, MaxSeatsLimit, c.MaxSeats)
	}
	return nil
}
