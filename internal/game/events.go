package game

import "github.com/lox/pokerface/poker"

// EventType identifies an engine event on the wire
type EventType string

const (
	EventTypeSessionChanged EventType = "session_changed"
	EventTypeRoundFinished  EventType = "round_finished"
	EventTypePlayerLost     EventType = "player_lost"
)

func (et EventType) String() string {
	return string(et)
}

// Event is produced by engine calls and forwarded by the table's owner.
type Event interface {
	EventType() EventType
}

// SessionChanged is emitted once per engine call that changed the hand.
// Turn is the seat in turn, or -1 once the hand is finished.
type SessionChanged struct {
	Round      Round        `json:"round"`
	Pot        int          `json:"pot"`
	CurrentBet int          `json:"current_bet"`
	Turn       int          `json:"turn"`
	Board      []poker.Card `json:"board"`
}

func (SessionChanged) EventType() EventType { return EventTypeSessionChanged }

// RoundFinished reports the settlement of a hand. Payouts include chips
// returned as uncalled; Shown holds the hole cards of showdown contenders.
type RoundFinished struct {
	Pot       int                  `json:"pot"`
	Winners   []int                `json:"winners"`
	Payouts   map[int]int          `json:"payouts"`
	Results   map[int]string       `json:"results"`
	Shown     map[int][]poker.Card `json:"shown,omitempty"`
	Board     []poker.Card         `json:"board"`
	NoContest bool                 `json:"no_contest,omitempty"`
}

func (RoundFinished) EventType() EventType { return EventTypeRoundFinished }

// PlayerLost is emitted for every seat left with less than the small blind.
type PlayerLost struct {
	Seat  int    `json:"seat"`
	Name  string `json:"name"`
	Chips int    `json:"chips"`
}

func (PlayerLost) EventType() EventType { return EventTypePlayerLost }
