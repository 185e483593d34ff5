package game

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"slices"

	"github.com/lox/pokerface/poker"
)

// Hand is the state of a single hand at a table. It is not safe for
// concurrent use; the owning table serialises calls.
type Hand struct {
	Players    []*Player
	Dealer     int // Positions in Players
	SmallBlind int
	BigBlind   int
	Round      Round
	Pot        int
	CurrentBet int
	Board      []poker.Card
	Winners    []int // Seats, set at settlement

	cfg        Config
	deck       *poker.Deck
	turn       int // Position in turn, -1 once finished
	cardsDealt bool
	finished   bool
	events     []Event
}

// NewHand starts a hand for players with the dealer at position dealer.
// Players must be in seat order and hold chips. The returned events
// describe the initial state; the first seat in turn is waiting on its
// forced post or first decision.
func NewHand(rng *rand.Rand, players []*Player, dealer int, cfg Config, opts ...HandOption) (*Hand, []Event, error) {
	if len(players) < 2 {
		return nil, nil, ErrNotEnoughPlayers
	}
	if dealer < 0 || dealer >= len(players) {
		return nil, nil, fmt.Errorf("dealer position %d out of range", dealer)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	hc := &handConfig{}
	for _, opt := range opts {
		opt(hc)
	}
	d := hc.deck
	if d == nil {
		if rng == nil {
			return nil, nil, errors.New("rng is required when no deck is supplied")
		}
		d = poker.NewDeck(rng)
	}

	seats := make(map[int]bool, len(players))
	for _, p := range players {
		if seats[p.Seat] {
			return nil, nil, fmt.Errorf("%w: seat %d listed twice", ErrSeatOccupancy, p.Seat)
		}
		seats[p.Seat] = true
		if p.Chips <= 0 {
			return nil, nil, fmt.Errorf("%w: seat %d has no chips", ErrSeatOccupancy, p.Seat)
		}
		p.resetForHand()
	}

	n := len(players)
	h := &Hand{
		Players: players,
		Dealer:  dealer,
		cfg:     cfg,
		deck:    d,
		turn:    -1,
	}
	if n == 2 {
		// Heads-up: dealer posts the small blind
		h.SmallBlind = dealer
		h.BigBlind = (dealer + 1) % n
	} else {
		h.SmallBlind = (dealer + 1) % n
		h.BigBlind = (dealer + 2) % n
	}

	if cfg.Ante > 0 {
		h.Round = Ante
	} else {
		h.Round = PreFlop
		h.dealHoleCards()
	}
	h.progress(h.roundStart())
	return h, h.flush(), nil
}

// Config returns the stakes the hand is played at.
func (h *Hand) Config() Config {
	return h.cfg
}

// Finished reports whether the hand has been settled.
func (h *Hand) Finished() bool {
	return h.finished
}

// Turn returns the seat in turn, or -1 once the hand is finished.
func (h *Hand) Turn() int {
	if h.finished || h.turn < 0 {
		return -1
	}
	return h.Players[h.turn].Seat
}

// DealerSeat, SmallBlindSeat and BigBlindSeat return table seat indexes.
func (h *Hand) DealerSeat() int     { return h.Players[h.Dealer].Seat }
func (h *Hand) SmallBlindSeat() int { return h.Players[h.SmallBlind].Seat }
func (h *Hand) BigBlindSeat() int   { return h.Players[h.BigBlind].Seat }

// Player returns the hand's player at seat, or nil.
func (h *Hand) Player(seat int) *Player {
	if pos := h.position(seat); pos >= 0 {
		return h.Players[pos]
	}
	return nil
}

// Context returns the resolver context for the current state.
func (h *Hand) Context() Context {
	return Context{
		Round:          h.Round,
		CurrentBet:     h.CurrentBet,
		SmallBlindSeat: h.SmallBlindSeat(),
		BigBlindSeat:   h.BigBlindSeat(),
		Config:         h.cfg,
	}
}

// LegalActions returns the options of the seat in turn.
func (h *Hand) LegalActions() []ActionOption {
	if h.finished || h.turn < 0 {
		return nil
	}
	return LegalActions(h.Players[h.turn], h.Context())
}

// Contributions returns the chips put in by all players this hand.
// It always equals Pot.
func (h *Hand) Contributions() int {
	total := 0
	for _, p := range h.Players {
		total += p.TotalBet
	}
	return total
}

// CardsRemaining returns the number of undealt cards.
func (h *Hand) CardsRemaining() int {
	return h.deck.CardsRemaining()
}

// SubmitAction applies an action for seat. The action is checked against
// the legal set first; a rejected action leaves the hand untouched. One
// call runs to completion, including auto-folds of sitting-out seats,
// round transitions and settlement.
func (h *Hand) SubmitAction(seat int, a Action) ([]Event, error) {
	if h.finished {
		return nil, ErrHandFinished
	}
	pos := h.turn
	p := h.Players[pos]
	if p.Seat != seat {
		return nil, fmt.Errorf("%w: seat %d is in turn, not %d", ErrNotYourTurn, p.Seat, seat)
	}
	a, err := h.normalize(p, a)
	if err != nil {
		return nil, err
	}
	h.apply(pos, a)
	h.progress(pos + 1)
	return h.flush(), nil
}

// ForceFold folds seat out of turn, as on disconnect or removal.
// Folding an already folded seat or a finished hand is a no-op.
func (h *Hand) ForceFold(seat int) ([]Event, error) {
	pos := h.position(seat)
	if pos < 0 {
		return nil, fmt.Errorf("%w: seat %d is not in the hand", ErrUnknownSeat, seat)
	}
	p := h.Players[pos]
	if h.finished || p.Folded {
		return nil, nil
	}
	p.Folded = true
	p.Acted = true
	h.progress(h.turn)
	return h.flush(), nil
}

// SitOut asks for seat to sit out. The seat keeps contending for the pot
// until its next turn, when it is folded; if it never gets one, as when it
// is all-in, it plays the hand out. Either way it sits out from the next hand.
func (h *Hand) SitOut(seat int) ([]Event, error) {
	pos := h.position(seat)
	if pos < 0 {
		return nil, fmt.Errorf("%w: seat %d is not in the hand", ErrUnknownSeat, seat)
	}
	p := h.Players[pos]
	if h.finished || p.SittingOut || p.SitOutPending {
		return nil, nil
	}
	p.SitOutPending = true
	h.progress(h.turn)
	return h.flush(), nil
}

func (h *Hand) normalize(p *Player, a Action) (Action, error) {
	for _, opt := range LegalActions(p, h.Context()) {
		if opt.Kind != a.Kind {
			continue
		}
		if a.Kind != Bet && a.Kind != Raise {
			return Action{Kind: a.Kind, Amount: opt.Amount}, nil
		}
		amount := a.Amount
		if amount == 0 {
			amount = opt.Amount
		}
		if amount < opt.Amount || amount > opt.Max {
			return Action{}, fmt.Errorf("%w: %s of %d outside [%d, %d]", ErrInvalidAction, a.Kind, amount, opt.Amount, opt.Max)
		}
		return Action{Kind: a.Kind, Amount: amount}, nil
	}
	return Action{}, fmt.Errorf("%w: %s is not available to seat %d", ErrInvalidAction, a.Kind, p.Seat)
}

func (h *Hand) apply(pos int, a Action) {
	p := h.Players[pos]
	switch a.Kind {
	case Fold:
		p.Folded = true
	case Call:
		h.commit(p, a.Amount, true)
	case Bet, Raise:
		h.commit(p, max(h.CurrentBet-p.Bet, 0)+a.Amount, true)
		h.reopen(p)
	case AllIn:
		full := minRaise(p, h.Context())
		h.commit(p, p.Chips, true)
		switch {
		case p.Bet-h.CurrentBet >= full:
			h.reopen(p)
		case p.Bet > h.CurrentBet:
			// Short all-in: seats that already acted may only call or fold
			h.CurrentBet = p.Bet
		}
	case PostAnte:
		h.commit(p, a.Amount, false)
		p.PostedAnte = true
	case PostSmallBlind:
		h.commit(p, a.Amount, true)
		p.PostedSmallBlind = true
		h.CurrentBet = max(h.CurrentBet, p.Bet)
	case PostBigBlind:
		h.commit(p, a.Amount, true)
		p.PostedBigBlind = true
		h.CurrentBet = max(h.CurrentBet, p.Bet)
	}
	if !a.Kind.IsPost() {
		p.Acted = true
	}
}

// commit moves chips from p into the pot. Antes count towards the hand
// total but not the round's bet.
func (h *Hand) commit(p *Player, amount int, roundBet bool) {
	amount = min(amount, p.Chips)
	p.Chips -= amount
	p.TotalBet += amount
	if roundBet {
		p.Bet += amount
	}
	h.Pot += amount
	if p.Chips == 0 {
		p.AllIn = true
	}
}

// reopen makes p's bet the one to match and gives everyone else a new decision.
func (h *Hand) reopen(p *Player) {
	h.CurrentBet = p.Bet
	for _, o := range h.Players {
		o.Acted = o == p
	}
}

// progress advances the hand from position from until a seat must decide
// or the hand is settled.
func (h *Hand) progress(from int) {
	for !h.finished {
		if h.countActive() <= 1 {
			h.settle()
			return
		}
		if h.roundComplete() {
			h.nextRound()
			if h.finished {
				return
			}
			if h.countCanAct() < 2 {
				h.runOut()
				return
			}
			from = h.roundStart()
			continue
		}

		next := h.nextActor(from)
		if next < 0 {
			h.runOut()
			return
		}
		h.turn = next
		p := h.Players[next]
		if !p.SitOutPending {
			return
		}
		p.SittingOut = true
		p.SitOutPending = false
		h.apply(next, Action{Kind: Fold})
		from = next + 1
	}
}

func (h *Hand) needsAction(p *Player) bool {
	if p.Folded || p.AllIn {
		return false
	}
	if h.Round == Ante {
		return !p.PostedAnte
	}
	return !p.Acted || p.Bet < h.CurrentBet
}

func (h *Hand) roundComplete() bool {
	for _, p := range h.Players {
		if p.CanAct() && h.needsAction(p) {
			return false
		}
	}
	return true
}

// nextActor returns the first position at or after from that owes a
// decision, or -1. Seats waiting to sit out are returned so they can be folded.
func (h *Hand) nextActor(from int) int {
	n := len(h.Players)
	for i := 0; i < n; i++ {
		pos := ((from+i)%n + n) % n
		if h.needsAction(h.Players[pos]) {
			return pos
		}
	}
	return -1
}

func (h *Hand) roundStart() int {
	if h.Round == PreFlop {
		return h.SmallBlind
	}
	return h.Dealer + 1
}

func (h *Hand) countActive() int {
	n := 0
	for _, p := range h.Players {
		if p.IsActive() {
			n++
		}
	}
	return n
}

func (h *Hand) countCanAct() int {
	n := 0
	for _, p := range h.Players {
		if p.CanAct() {
			n++
		}
	}
	return n
}

func (h *Hand) nextRound() {
	for _, p := range h.Players {
		p.Acted = false
		p.Bet = 0
	}
	h.CurrentBet = 0

	switch h.Round {
	case Ante:
		h.Round = PreFlop
		h.dealHoleCards()
	case PreFlop:
		h.Round = Flop
		h.dealBoard(3)
	case Flop:
		h.Round = Turn
		h.dealBoard(1)
	case Turn:
		h.Round = River
		h.dealBoard(1)
	case River:
		h.Round = Showdown
		h.settle()
	}
}

// runOut deals the remaining rounds without betting and settles.
func (h *Hand) runOut() {
	for !h.finished {
		h.nextRound()
	}
}

func (h *Hand) dealHoleCards() {
	if h.cardsDealt {
		return
	}
	h.cardsDealt = true
	h.burn()
	n := len(h.Players)
	for i := 1; i <= n; i++ {
		p := h.Players[(h.Dealer+i)%n]
		if !p.IsActive() {
			continue
		}
		p.HoleCards = h.deal(2)
	}
}

func (h *Hand) dealBoard(n int) {
	h.burn()
	h.Board = append(h.Board, h.deal(n)...)
}

// The table size limit guarantees the deck never runs out.
func (h *Hand) burn() {
	if err := h.deck.Burn(); err != nil {
		panic(fmt.Sprintf("game: %v", err))
	}
}

func (h *Hand) deal(n int) []poker.Card {
	cards, err := h.deck.Deal(n)
	if err != nil {
		panic(fmt.Sprintf("game: %v", err))
	}
	return cards
}

func (h *Hand) position(seat int) int {
	for i, p := range h.Players {
		if p.Seat == seat {
			return i
		}
	}
	return -1
}

func (h *Hand) flush() []Event {
	h.events = append(h.events, SessionChanged{
		Round:      h.Round,
		Pot:        h.Pot,
		CurrentBet: h.CurrentBet,
		Turn:       h.Turn(),
		Board:      slices.Clone(h.Board),
	})
	out := h.events
	h.events = nil
	return out
}
