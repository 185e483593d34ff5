package game

import (
	"fmt"
	"slices"

	"github.com/lox/pokerface/poker"
)

// settle distributes the pot and finishes the hand.
func (h *Hand) settle() {
	h.finished = true
	h.turn = -1
	h.Round = Showdown

	ev := RoundFinished{
		Pot:     h.Pot,
		Payouts: make(map[int]int),
		Results: make(map[int]string),
		Shown:   make(map[int][]poker.Card),
	}

	contenders := h.clockwise(func(p *Player) bool { return p.IsActive() })
	for _, p := range h.Players {
		p.Result = foldedResult(p)
	}

	switch len(contenders) {
	case 0:
		// Nobody left to win: every contribution goes back
		ev.NoContest = true
		for _, p := range h.Players {
			p.Chips += p.TotalBet
			if p.TotalBet > 0 {
				ev.Payouts[p.Seat] = p.TotalBet
			}
			p.Result = fmt.Sprintf("%s: no contest, %d returned", p.Name, p.TotalBet)
		}
	case 1:
		w := contenders[0]
		w.Chips += h.Pot
		ev.Payouts[w.Seat] = h.Pot
		w.Result = fmt.Sprintf("%s wins %d", w.Name, h.Pot)
		h.Winners = []int{w.Seat}
	default:
		h.showdown(contenders, &ev)
	}

	ev.Winners = slices.Clone(h.Winners)
	ev.Board = slices.Clone(h.Board)
	for _, p := range h.Players {
		ev.Results[p.Seat] = p.Result
		p.HoleCards = nil
	}
	h.events = append(h.events, ev)

	for _, p := range h.Players {
		if p.SitOutPending {
			p.SittingOut = true
			p.SitOutPending = false
		}
	}
	for _, p := range h.Players {
		if p.Chips < h.cfg.SmallBlind {
			p.PendingRemoval = true
			h.events = append(h.events, PlayerLost{Seat: p.Seat, Name: p.Name, Chips: p.Chips})
		}
	}
}

func (h *Hand) showdown(contenders []*Player, ev *RoundFinished) {
	for len(h.Board) < 5 {
		h.dealBoard(1)
	}
	returned := h.returnUncalled(ev)

	values := make([]poker.HandValue, len(contenders))
	var best []int // Indexes into contenders, clockwise from the dealer
	for i, p := range contenders {
		cards := append(slices.Clone(p.HoleCards), h.Board...)
		hv, err := poker.EvaluateBestHand(cards)
		if err != nil {
			panic(fmt.Sprintf("game: evaluating seat %d: %v", p.Seat, err))
		}
		values[i] = hv
		ev.Shown[p.Seat] = slices.Clone(p.HoleCards)

		if len(best) == 0 {
			best = []int{i}
			continue
		}
		switch poker.Compare(hv, values[best[0]]) {
		case 1:
			best = []int{i}
		case 0:
			best = append(best, i)
		}
	}

	pot := h.Pot - returned
	share, rem := pot/len(best), pot%len(best)
	h.Winners = make([]int, 0, len(best))
	for i, idx := range best {
		w := contenders[idx]
		amount := share
		if i < rem {
			amount++
		}
		w.Chips += amount
		ev.Payouts[w.Seat] += amount
		h.Winners = append(h.Winners, w.Seat)
		if len(best) == 1 {
			w.Result = fmt.Sprintf("%s wins %d with %s", w.Name, amount, values[idx].Name)
		} else {
			w.Result = fmt.Sprintf("%s splits the pot, wins %d with %s", w.Name, amount, values[idx].Name)
		}
	}
	for i, p := range contenders {
		if !slices.Contains(best, i) {
			p.Result = fmt.Sprintf("%s loses with %s", p.Name, values[i].Name)
		}
	}
}

// returnUncalled gives back the part of the largest contribution that no
// other player matched. It returns the amount taken out of the pot.
func (h *Hand) returnUncalled(ev *RoundFinished) int {
	var top *Player
	second := 0
	for _, p := range h.Players {
		switch {
		case top == nil:
			top = p
		case p.TotalBet > top.TotalBet:
			second = top.TotalBet
			top = p
		default:
			second = max(second, p.TotalBet)
		}
	}
	if top == nil || !top.IsActive() || top.TotalBet <= second {
		return 0
	}
	excess := top.TotalBet - second
	top.Chips += excess
	ev.Payouts[top.Seat] += excess
	return excess
}

// clockwise returns the players matching keep, starting left of the dealer.
func (h *Hand) clockwise(keep func(*Player) bool) []*Player {
	n := len(h.Players)
	out := make([]*Player, 0, n)
	for i := 1; i <= n; i++ {
		p := h.Players[(h.Dealer+i)%n]
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func foldedResult(p *Player) string {
	if p.SittingOut {
		return fmt.Sprintf("%s sat out", p.Name)
	}
	return fmt.Sprintf("%s folded", p.Name)
}
