package game

import (
	"fmt"
	"strings"
)

// Round represents the stage of a hand
type Round int

const (
	Ante Round = iota
	PreFlop
	Flop
	Turn
	River
	Showdown
)

func (r Round) String() string {
	if r < Ante || r > Showdown {
		return fmt.Sprintf("round(%d)", int(r))
	}
	return [...]string{"ante", "preflop", "flop", "turn", "river", "showdown"}[r]
}

func (r Round) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ActionKind is the type of a seat action
type ActionKind int

const (
	Fold ActionKind = iota
	Check
	Call
	Bet
	Raise
	AllIn
	PostAnte
	PostSmallBlind
	PostBigBlind
)

var actionNames = [...]string{"fold", "check", "call", "bet", "raise", "allin", "post_ante", "post_small_blind", "post_big_blind"}

func (a ActionKind) String() string {
	if a < Fold || int(a) >= len(actionNames) {
		return fmt.Sprintf("action(%d)", int(a))
	}
	return actionNames[a]
}

// IsPost reports whether the action is a forced ante or blind post.
func (a ActionKind) IsPost() bool {
	return a == PostAnte || a == PostSmallBlind || a == PostBigBlind
}

// ParseActionKind converts a wire name such as "raise" or "allin" into an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "all_in", "all-in":
		return AllIn, nil
	}
	for i, name := range actionNames {
		if name == s {
			return ActionKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown action %q", ErrInvalidAction, s)
}

// MarshalText encodes the kind by name.
func (a ActionKind) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes a kind from its name.
func (a *ActionKind) UnmarshalText(b []byte) error {
	k, err := ParseActionKind(string(b))
	if err != nil {
		return err
	}
	*a = k
	return nil
}

// Action is a decision submitted for the seat in turn. Amount is only read
// for Bet and Raise, where it is the increment above the amount to call.
type Action struct {
	Kind   ActionKind `json:"kind"`
	Amount int        `json:"amount,omitempty"`
}

func (a Action) String() string {
	if a.Amount > 0 {
		return fmt.Sprintf("%s %d", a.Kind, a.Amount)
	}
	return a.Kind.String()
}

// ActionOption is one legal choice for the seat in turn. For Bet and Raise,
// Amount is the minimum and Max the largest accepted increment; for every
// other kind Amount is the exact chip cost.
type ActionOption struct {
	Kind   ActionKind `json:"kind"`
	Amount int        `json:"amount"`
	Max    int        `json:"max,omitempty"`
}
