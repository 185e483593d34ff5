package game

import "github.com/lox/pokerface/poker"

// Player is a seat taking part in a hand. Seat is the stable seat index at
// the table; the flags are reset at the start of every hand.
type Player struct {
	Seat      int
	Name      string
	Chips     int
	HoleCards []poker.Card

	Folded        bool
	SittingOut    bool
	SitOutPending bool // Requested mid-hand, applied on the seat's next turn
	AllIn         bool
	Acted         bool

	PostedAnte       bool
	PostedSmallBlind bool
	PostedBigBlind   bool

	Bet      int // Bet in the current round
	TotalBet int // Total contributed this hand

	PendingRemoval bool
	Result         string
}

// IsActive reports whether the player still contends for the pot.
func (p *Player) IsActive() bool {
	return !p.Folded && !p.SittingOut
}

// CanAct reports whether the player can still put chips in.
func (p *Player) CanAct() bool {
	return p.IsActive() && !p.AllIn
}

func (p *Player) resetForHand() {
	p.HoleCards = nil
	p.Folded = false
	p.SitOutPending = false
	p.AllIn = false
	p.Acted = false
	p.PostedAnte = false
	p.PostedSmallBlind = false
	p.PostedBigBlind = false
	p.Bet = 0
	p.TotalBet = 0
	p.Result = ""
}
