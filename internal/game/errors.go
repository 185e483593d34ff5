package game

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAction is returned when an action is not legal for the
	// current state. The hand is left untouched.
	ErrInvalidAction = errors.New("invalid action")
	ErrNotYourTurn   = fmt.Errorf("%w: not your turn", ErrInvalidAction)
	ErrHandFinished  = fmt.Errorf("%w: hand is finished", ErrInvalidAction)

	// ErrSeatOccupancy covers seating failures: full tables, taken or unknown seats.
	ErrSeatOccupancy = errors.New("seat occupancy")
	ErrUnknownSeat   = fmt.Errorf("%w: unknown seat", ErrSeatOccupancy)

	ErrNotEnoughPlayers = errors.New("at least 2 players required")
	ErrInvalidConfig    = errors.New("invalid table config")
)
