package table

import "github.com/lox/pokerface/internal/game"

// Event is the table's event type; engine events pass through unchanged.
type Event = game.Event

const (
	EventTypePlayerJoined  game.EventType = "player_joined"
	EventTypePlayerRemoved game.EventType = "player_removed"
	EventTypeTurnTimedOut  game.EventType = "turn_timed_out"
)

// Removal reasons
const (
	ReasonLeft   = "left"
	ReasonBusted = "busted"
)

type PlayerJoined struct {
	Seat  int    `json:"seat"`
	Name  string `json:"name"`
	Chips int    `json:"chips"`
}

func (PlayerJoined) EventType() game.EventType { return EventTypePlayerJoined }

type PlayerRemoved struct {
	Seat   int    `json:"seat"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

func (PlayerRemoved) EventType() game.EventType { return EventTypePlayerRemoved }

// TurnTimedOut is emitted before the events of the automatic sit-out.
type TurnTimedOut struct {
	Seat int    `json:"seat"`
	Name string `json:"name"`
}

func (TurnTimedOut) EventType() game.EventType { return EventTypeTurnTimedOut }
