package table

import (
	"slices"

	"github.com/lox/pokerface/internal/game"
	"github.com/lox/pokerface/poker"
)

// SeatView is the public state of one occupied seat.
type SeatView struct {
	Seat           int          `json:"seat"`
	Name           string       `json:"name"`
	Chips          int          `json:"chips"`
	Bet            int          `json:"bet"`
	TotalBet       int          `json:"total_bet"`
	InHand         bool         `json:"in_hand"`
	Folded         bool         `json:"folded"`
	AllIn          bool         `json:"all_in"`
	SittingOut     bool         `json:"sitting_out"`
	PendingRemoval bool         `json:"pending_removal"`
	Dealer         bool         `json:"dealer"`
	SmallBlind     bool         `json:"small_blind"`
	BigBlind       bool         `json:"big_blind"`
	Turn           bool         `json:"turn"`
	HoleCards      []poker.Card `json:"hole_cards,omitempty"`
	Result         string       `json:"result,omitempty"`
}

// View is a point-in-time copy of the table for display.
type View struct {
	ID           int                 `json:"id"`
	Name         string              `json:"name"`
	Config       game.Config         `json:"config"`
	HandNumber   int                 `json:"hand_number"`
	InProgress   bool                `json:"in_progress"`
	Round        string              `json:"round,omitempty"`
	Pot          int                 `json:"pot"`
	CurrentBet   int                 `json:"current_bet"`
	Board        []poker.Card        `json:"board"`
	Turn         int                 `json:"turn"`
	LegalActions []game.ActionOption `json:"legal_actions,omitempty"`
	Winners      []int               `json:"winners,omitempty"`
	Seats        []SeatView          `json:"seats"`
}

// Snapshot copies the table state. Hole cards are only included for the
// seat reveal; pass -1 to hide all of them. Legal actions are included when
// reveal is the seat in turn.
func (t *Table) Snapshot(reveal int) View {
	t.mu.RLock()
	defer t.mu.RUnlock()

	v := View{
		ID:         t.id,
		Name:       t.name,
		Config:     t.cfg,
		HandNumber: t.handNumber,
		Turn:       -1,
		Seats:      make([]SeatView, 0, len(t.seats)),
	}
	h := t.hand
	if h != nil {
		v.InProgress = !h.Finished()
		v.Round = h.Round.String()
		v.Pot = h.Pot
		v.CurrentBet = h.CurrentBet
		v.Board = slices.Clone(h.Board)
		v.Turn = h.Turn()
		v.Winners = slices.Clone(h.Winners)
		if v.Turn >= 0 && v.Turn == reveal {
			v.LegalActions = h.LegalActions()
		}
	}

	for seat, p := range t.seats {
		if p == nil {
			continue
		}
		sv := SeatView{
			Seat:           seat,
			Name:           p.Name,
			Chips:          p.Chips,
			SittingOut:     p.SittingOut || p.SitOutPending,
			PendingRemoval: p.PendingRemoval,
		}
		if h != nil && slices.Contains(h.Players, p) {
			sv.InHand = v.InProgress
			sv.Bet = p.Bet
			sv.TotalBet = p.TotalBet
			sv.Folded = p.Folded
			sv.AllIn = p.AllIn
			sv.Dealer = seat == h.DealerSeat()
			sv.SmallBlind = seat == h.SmallBlindSeat()
			sv.BigBlind = seat == h.BigBlindSeat()
			sv.Turn = seat == v.Turn
			sv.Result = p.Result
			if seat == reveal {
				sv.HoleCards = slices.Clone(p.HoleCards)
			}
		}
		v.Seats = append(v.Seats, sv)
	}
	return v
}
