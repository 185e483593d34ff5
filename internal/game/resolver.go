package game

// Context is the slice of hand state the resolver needs. Blind seats are
// stable seat indexes, not positions in the hand.
type Context struct {
	Round          Round
	CurrentBet     int
	SmallBlindSeat int
	BigBlindSeat   int
	Config         Config
}

// LegalActions returns the actions available to p, in the order they
// should be offered. It does not modify p.
func LegalActions(p *Player, ctx Context) []ActionOption {
	if ctx.Round == Showdown {
		return nil
	}
	opts := []ActionOption{{Kind: Fold}}
	stack := p.Chips

	switch ctx.Round {
	case Ante:
		if ctx.Config.Ante > 0 && !p.PostedAnte {
			opts = append(opts, ActionOption{Kind: PostAnte, Amount: min(ctx.Config.Ante, stack)})
		}
		return opts
	case PreFlop:
		if p.Seat == ctx.SmallBlindSeat && !p.PostedSmallBlind {
			return append(opts, ActionOption{Kind: PostSmallBlind, Amount: min(ctx.Config.SmallBlind, stack)})
		}
		if p.Seat == ctx.BigBlindSeat && !p.PostedBigBlind {
			return append(opts, ActionOption{Kind: PostBigBlind, Amount: min(ctx.Config.BigBlind, stack)})
		}
	}

	call := ctx.CurrentBet - p.Bet
	switch {
	case call <= 0:
		call = 0
		opts = append(opts, ActionOption{Kind: Check})
	case stack >= call:
		opts = append(opts, ActionOption{Kind: Call, Amount: call})
	default:
		return append(opts, ActionOption{Kind: AllIn, Amount: stack})
	}
	if p.Acted && call > 0 {
		// Only short all-ins since p acted, so betting is not reopened
		return opts
	}

	least := minRaise(p, ctx)
	if stack < call+least {
		if stack > 0 {
			opts = append(opts, ActionOption{Kind: AllIn, Amount: stack})
		}
		return opts
	}

	kind := Raise
	if ctx.CurrentBet == 0 {
		kind = Bet
	}
	most := stack - call
	if ctx.Config.MaxBet > 0 {
		most = min(most, ctx.Config.MaxBet)
	}
	opts = append(opts, ActionOption{Kind: kind, Amount: least, Max: max(most, least)})

	if stack > 0 {
		opts = append(opts, ActionOption{Kind: AllIn, Amount: stack})
	}
	return opts
}

// minRaise is the smallest increment over the call that counts as a full
// bet or raise for p.
func minRaise(p *Player, ctx Context) int {
	if ctx.CurrentBet == 0 {
		return ctx.Config.MinBet
	}
	return max(ctx.Config.MinBet, ctx.CurrentBet-p.Bet)
}
