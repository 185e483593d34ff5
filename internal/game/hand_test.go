package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerface/internal/randutil"
	"github.com/lox/pokerface/poker"
)

var testNames = []string{"Alice", "Bob", "Carol", "Dave", "Erin", "Frank"}

func newPlayers(chips ...int) []*Player {
	players := make([]*Player, len(chips))
	for i, c := range chips {
		players[i] = &Player{Seat: i, Name: testNames[i], Chips: c}
	}
	return players
}

func noAnte() Config {
	cfg := DefaultConfig()
	cfg.Ante = 0
	return cfg
}

func stacked(cards string) HandOption {
	return WithDeck(poker.NewStackedDeck(poker.MustParseCards(cards)...))
}

func newTestHand(t *testing.T, players []*Player, dealer int, cfg Config, opts ...HandOption) *Hand {
	t.Helper()
	h, events, err := NewHand(randutil.New(1), players, dealer, cfg, opts...)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assertPot(t, h)
	return h
}

func act(t *testing.T, h *Hand, seat int, kind ActionKind, amount ...int) []Event {
	t.Helper()
	a := Action{Kind: kind}
	if len(amount) > 0 {
		a.Amount = amount[0]
	}
	events, err := h.SubmitAction(seat, a)
	require.NoError(t, err, "seat %d %s", seat, a)
	assertPot(t, h)
	return events
}

func assertPot(t *testing.T, h *Hand) {
	t.Helper()
	require.Equal(t, h.Contributions(), h.Pot, "pot must equal contributions")
}

func totalChips(players []*Player) int {
	total := 0
	for _, p := range players {
		total += p.Chips
	}
	return total
}

func findEvent[T Event](events []Event) (T, bool) {
	for _, e := range events {
		if ev, ok := e.(T); ok {
			return ev, true
		}
	}
	var zero T
	return zero, false
}

func TestHeadsUpBlinds(t *testing.T) {
	t.Parallel()

	players := newPlayers(100, 100)
	h := newTestHand(t, players, 0, noAnte())

	require.Equal(t, PreFlop, h.Round)
	require.Equal(t, 0, h.SmallBlindSeat(), "dealer posts the small blind heads-up")
	require.Equal(t, 0, h.Turn())
	assert.Equal(t, []ActionOption{{Kind: Fold}, {Kind: PostSmallBlind, Amount: 5}}, h.LegalActions())
	assert.Len(t, players[0].HoleCards, 2)
	assert.Len(t, players[1].HoleCards, 2)

	act(t, h, 0, PostSmallBlind)
	require.Equal(t, 1, h.Turn())
	act(t, h, 1, PostBigBlind)

	assert.Equal(t, 10, h.CurrentBet)
	assert.Equal(t, 15, h.Pot)
	assert.Equal(t, 0, h.Turn(), "non-big-blind player acts after the blinds")
	assert.Equal(t, []ActionOption{
		{Kind: Fold},
		{Kind: Call, Amount: 5},
		{Kind: Raise, Amount: 5, Max: 90},
		{Kind: AllIn, Amount: 95},
	}, h.LegalActions())
}

func TestBigBlindKeepsOption(t *testing.T) {
	t.Parallel()

	h := newTestHand(t, newPlayers(100, 100), 0, noAnte())
	act(t, h, 0, PostSmallBlind)
	act(t, h, 1, PostBigBlind)
	act(t, h, 0, Call)

	require.Equal(t, PreFlop, h.Round)
	require.Equal(t, 1, h.Turn())
	opts := h.LegalActions()
	require.Equal(t, Check, opts[1].Kind)

	act(t, h, 1, Check)
	assert.Equal(t, Flop, h.Round)
	assert.Len(t, h.Board, 3)
	assert.Equal(t, 0, h.CurrentBet)
	assert.Equal(t, 20, h.Pot)
	assert.Equal(t, 1, h.Turn(), "big blind acts first after the flop heads-up")
}

func TestAnteRound(t *testing.T) {
	t.Parallel()

	players := newPlayers(100, 100, 100)
	h := newTestHand(t, players, 0, DefaultConfig())

	require.Equal(t, Ante, h.Round)
	require.Equal(t, 1, h.Turn(), "ante starts left of the dealer")
	assert.Empty(t, players[1].HoleCards, "no cards before the ante is in")
	assert.Equal(t, []ActionOption{{Kind: Fold}, {Kind: PostAnte, Amount: 5}}, h.LegalActions())

	act(t, h, 1, PostAnte)
	act(t, h, 2, PostAnte)
	act(t, h, 0, PostAnte)

	require.Equal(t, PreFlop, h.Round)
	assert.Equal(t, 15, h.Pot)
	assert.Equal(t, 0, h.CurrentBet, "antes do not count as a bet to match")
	assert.Equal(t, 1, h.Turn())
	for _, p := range players {
		assert.Len(t, p.HoleCards, 2)
	}
	assert.Equal(t, deckAfterHoleCards(3), h.CardsRemaining())

	act(t, h, 1, PostSmallBlind)
	act(t, h, 2, PostBigBlind)
	assert.Equal(t, 0, h.Turn(), "first voluntary actor sits after the big blind")
	assert.Equal(t, 30, h.Pot)
}

// deckAfterHoleCards is the deck count after one burn and two cards per seat.
func deckAfterHoleCards(seats int) int {
	return poker.DeckSize - 1 - 2*seats
}

func TestRejectedActionsLeaveStateUntouched(t *testing.T) {
	t.Parallel()

	players := newPlayers(100, 30)
	h := newTestHand(t, players, 0, noAnte())
	act(t, h, 0, PostSmallBlind)
	act(t, h, 1, PostBigBlind)

	_, err := h.SubmitAction(1, Action{Kind: Call})
	require.ErrorIs(t, err, ErrNotYourTurn)
	require.ErrorIs(t, err, ErrInvalidAction)

	_, err = h.SubmitAction(0, Action{Kind: Check})
	require.ErrorIs(t, err, ErrInvalidAction)

	_, err = h.SubmitAction(0, Action{Kind: Raise, Amount: 2})
	require.ErrorIs(t, err, ErrInvalidAction, "raise below the minimum")

	_, err = h.SubmitAction(0, Action{Kind: Raise, Amount: 91})
	require.ErrorIs(t, err, ErrInvalidAction, "raise above the stack")

	assert.Equal(t, 15, h.Pot)
	assert.Equal(t, 95, players[0].Chips)
	assert.Equal(t, 0, h.Turn())

	// Raise to 60 leaves seat 1 with 20 behind, short of the 50 call
	act(t, h, 0, Raise, 50)
	require.Equal(t, 60, h.CurrentBet)
	opts := h.LegalActions()
	assert.Equal(t, []ActionOption{{Kind: Fold}, {Kind: AllIn, Amount: 20}}, opts)

	_, err = h.SubmitAction(1, Action{Kind: Call})
	require.ErrorIs(t, err, ErrInvalidAction, "call is not offered when short")
	assert.Equal(t, 70, h.Pot)

	events := act(t, h, 1, AllIn)
	require.True(t, h.Finished(), "no one left to bet, board is run out")
	assert.Len(t, h.Board, 5)
	assert.Equal(t, 130, totalChips(players))

	rf, ok := findEvent[RoundFinished](events)
	require.True(t, ok)
	assert.Equal(t, 90, rf.Pot)
	assert.GreaterOrEqual(t, players[0].Chips, 40+30, "uncalled raise is returned")
}

func TestAllInOnFlopFastForwards(t *testing.T) {
	t.Parallel()

	// burn | Bob | Alice | burn flop | burn turn | burn river
	deck := "2c Ah Ad 7s 2d 3c Kc Qd 9h 4c 8s 5c Jd"
	players := newPlayers(100, 100)
	h := newTestHand(t, players, 0, noAnte(), stacked(deck))

	act(t, h, 0, PostSmallBlind)
	act(t, h, 1, PostBigBlind)
	act(t, h, 0, Call)
	act(t, h, 1, Check)
	require.Equal(t, Flop, h.Round)
	assert.Equal(t, "K♣ Q♦ 9♥", poker.FormatCards(h.Board))

	require.Equal(t, 1, h.Turn())
	act(t, h, 1, AllIn)
	require.Equal(t, 0, h.Turn())
	assert.Contains(t, h.LegalActions(), ActionOption{Kind: Call, Amount: 90})

	events := act(t, h, 0, Call)
	require.True(t, h.Finished())
	assert.Equal(t, Showdown, h.Round)
	assert.Equal(t, "K♣ Q♦ 9♥ 8♠ J♦", poker.FormatCards(h.Board))
	assert.Equal(t, -1, h.Turn())
	assert.Equal(t, []int{1}, h.Winners)
	assert.Equal(t, 200, players[1].Chips)
	assert.Equal(t, 0, players[0].Chips)

	rf, ok := findEvent[RoundFinished](events)
	require.True(t, ok)
	assert.Equal(t, "Bob wins 200 with One Pair, Aces", rf.Results[1])
	assert.Equal(t, "Alice loses with High Card, King", rf.Results[0])
	assert.Len(t, rf.Shown, 2)

	lost, ok := findEvent[PlayerLost](events)
	require.True(t, ok)
	assert.Equal(t, PlayerLost{Seat: 0, Name: "Alice", Chips: 0}, lost)
	assert.True(t, players[0].PendingRemoval)
	assert.Nil(t, players[0].HoleCards, "hole cards are cleared at hand end")
}

func TestLastPlayerStandingTakesPot(t *testing.T) {
	t.Parallel()

	players := newPlayers(100, 100)
	h := newTestHand(t, players, 0, noAnte())
	act(t, h, 0, PostSmallBlind)
	act(t, h, 1, PostBigBlind)
	events := act(t, h, 0, Fold)

	require.True(t, h.Finished())
	assert.Equal(t, 95, players[0].Chips, "folding never refunds")
	assert.Equal(t, 105, players[1].Chips)
	assert.Empty(t, h.Board)

	rf, ok := findEvent[RoundFinished](events)
	require.True(t, ok)
	assert.Equal(t, []int{1}, rf.Winners)
	assert.Equal(t, map[int]int{1: 15}, rf.Payouts)
	assert.Equal(t, "Bob wins 15", rf.Results[1])
	assert.Equal(t, "Alice folded", rf.Results[0])

	_, err := h.SubmitAction(1, Action{Kind: Check})
	assert.ErrorIs(t, err, ErrHandFinished)
}

const royalBoardDeck = "2c 3c 4d 3h 4h 3d 5d 2d As Ks Qs 2h Js 2s Ts"

func TestThreeWayTieSplitsEvenly(t *testing.T) {
	t.Parallel()

	players := newPlayers(100, 100, 100)
	h := newTestHand(t, players, 0, noAnte(), stacked(royalBoardDeck))

	act(t, h, 1, PostSmallBlind)
	act(t, h, 2, PostBigBlind)
	act(t, h, 0, Call)
	act(t, h, 1, Call)
	act(t, h, 2, Check)
	require.Equal(t, 30, h.Pot)

	var events []Event
	for h.Round != Showdown {
		for _, seat := range []int{1, 2, 0} {
			events = act(t, h, seat, Check)
		}
	}

	require.True(t, h.Finished())
	rf, ok := findEvent[RoundFinished](events)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 0}, rf.Winners, "winners listed clockwise from the dealer")
	for _, p := range players {
		assert.Equal(t, 100, p.Chips)
		assert.Equal(t, 10, rf.Payouts[p.Seat])
		assert.True(t, strings.Contains(rf.Results[p.Seat], "wins 10"), rf.Results[p.Seat])
		assert.Contains(t, rf.Results[p.Seat], "Royal Flush")
	}
}

func TestOddChipGoesClockwiseFromDealer(t *testing.T) {
	t.Parallel()

	cfg := noAnte()
	cfg.Ante = 1
	players := newPlayers(100, 100, 100)
	h := newTestHand(t, players, 0, cfg, stacked(royalBoardDeck))

	act(t, h, 1, PostAnte)
	act(t, h, 2, PostAnte)
	act(t, h, 0, PostAnte)
	act(t, h, 1, PostSmallBlind)
	act(t, h, 2, PostBigBlind)
	act(t, h, 0, Fold)
	act(t, h, 1, Call)
	act(t, h, 2, Check)
	require.Equal(t, 23, h.Pot)

	for h.Round != Showdown {
		act(t, h, 1, Check)
		act(t, h, 2, Check)
	}

	assert.Equal(t, []int{1, 2}, h.Winners)
	assert.Equal(t, 101, players[1].Chips, "first winner left of the dealer gets the odd chip")
	assert.Equal(t, 100, players[2].Chips)
	assert.Equal(t, 99, players[0].Chips)
}

func TestSittingOutSeatIsFoldedOnItsTurn(t *testing.T) {
	t.Parallel()

	players := newPlayers(100, 100, 100)
	h := newTestHand(t, players, 0, noAnte())

	_, err := h.SitOut(0)
	require.NoError(t, err)
	require.Equal(t, 1, h.Turn())
	require.False(t, players[0].Folded)

	act(t, h, 1, PostSmallBlind)
	act(t, h, 2, PostBigBlind)

	assert.True(t, players[0].Folded, "sitting-out seat folded when its turn came")
	assert.Equal(t, 1, h.Turn())
	assert.Equal(t, Call, h.LegalActions()[1].Kind)
}

func TestSitOutInTurnFoldsImmediately(t *testing.T) {
	t.Parallel()

	players := newPlayers(100, 100, 100)
	h := newTestHand(t, players, 0, noAnte())

	events, err := h.SitOut(1)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	assert.True(t, players[1].Folded)
	assert.Equal(t, 2, h.Turn())
	assert.Equal(t, []ActionOption{{Kind: Fold}, {Kind: PostBigBlind, Amount: 10}}, h.LegalActions())
}

func TestSitOutWhileAllInKeepsContending(t *testing.T) {
	t.Parallel()

	players := newPlayers(50, 200, 200)
	h := newTestHand(t, players, 0, noAnte())
	act(t, h, 1, PostSmallBlind)
	act(t, h, 2, PostBigBlind)
	act(t, h, 0, AllIn)
	act(t, h, 1, Call)
	act(t, h, 2, Call)
	require.Equal(t, Flop, h.Round)

	_, err := h.SitOut(0)
	require.NoError(t, err)
	assert.False(t, players[0].Folded)
	assert.True(t, players[0].IsActive(), "all-in seat still contends")
	assert.Equal(t, 1, h.Turn())

	var events []Event
	for !h.Finished() {
		events = act(t, h, h.Turn(), Check)
	}

	rf, ok := findEvent[RoundFinished](events)
	require.True(t, ok)
	assert.Contains(t, rf.Shown, 0, "seat 0 reaches showdown")
	assert.Equal(t, 450, totalChips(players))
	assert.True(t, players[0].SittingOut, "sits out from the next hand")
	assert.False(t, players[0].SitOutPending)
}

func TestHeadsUpSitOutWaitsForTurn(t *testing.T) {
	t.Parallel()

	players := newPlayers(100, 100)
	h := newTestHand(t, players, 0, noAnte())
	require.Equal(t, 0, h.Turn())

	_, err := h.SitOut(1)
	require.NoError(t, err)
	require.False(t, h.Finished(), "big blind keeps contending until its turn")
	assert.Equal(t, 0, h.Turn())

	act(t, h, 0, PostSmallBlind)
	require.True(t, h.Finished())
	assert.True(t, players[1].Folded)
	assert.True(t, players[1].SittingOut)
	assert.Equal(t, []int{0}, h.Winners)
	assert.Equal(t, 100, players[0].Chips)
	assert.Equal(t, 100, players[1].Chips)
}

func TestShortAllInDoesNotReopenBetting(t *testing.T) {
	t.Parallel()

	players := newPlayers(100, 100, 27)
	h := newTestHand(t, players, 0, noAnte())
	act(t, h, 1, PostSmallBlind)
	act(t, h, 2, PostBigBlind)
	act(t, h, 0, Call)
	act(t, h, 1, Call)
	act(t, h, 2, Check)
	require.Equal(t, Flop, h.Round)

	act(t, h, 1, Bet, 15)
	act(t, h, 2, AllIn)
	assert.Equal(t, 17, h.CurrentBet)

	// Seat 0 has not acted yet and may still raise
	assert.Contains(t, h.LegalActions(), ActionOption{Kind: Raise, Amount: 17, Max: 73})
	act(t, h, 0, Call)

	require.Equal(t, 1, h.Turn())
	assert.Equal(t, []ActionOption{{Kind: Fold}, {Kind: Call, Amount: 2}}, h.LegalActions())
	_, err := h.SubmitAction(1, Action{Kind: Raise, Amount: 20})
	require.ErrorIs(t, err, ErrInvalidAction)

	act(t, h, 1, Call)
	assert.Equal(t, Turn, h.Round)
}

func TestForceFold(t *testing.T) {
	t.Parallel()

	players := newPlayers(100, 100, 100)
	h := newTestHand(t, players, 0, noAnte())
	act(t, h, 1, PostSmallBlind)
	act(t, h, 2, PostBigBlind)

	// Out of turn: the turn stays with seat 0
	_, err := h.ForceFold(2)
	require.NoError(t, err)
	assert.Equal(t, 0, h.Turn())
	assert.Equal(t, 15, h.Pot, "folded chips stay in the pot")

	// In turn: the last opponent wins
	events, err := h.ForceFold(0)
	require.NoError(t, err)
	require.True(t, h.Finished())
	assert.Equal(t, 110, players[1].Chips)
	_, ok := findEvent[RoundFinished](events)
	assert.True(t, ok)

	_, err = h.ForceFold(7)
	assert.ErrorIs(t, err, ErrUnknownSeat)
}

func TestNewHandValidation(t *testing.T) {
	t.Parallel()

	rng := randutil.New(1)
	_, _, err := NewHand(rng, newPlayers(100), 0, noAnte())
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	_, _, err = NewHand(rng, newPlayers(100, 0), 0, noAnte())
	assert.ErrorIs(t, err, ErrSeatOccupancy)

	_, _, err = NewHand(rng, newPlayers(100, 100), 2, noAnte())
	assert.Error(t, err)

	bad := noAnte()
	bad.MinBet = 0
	_, _, err = NewHand(rng, newPlayers(100, 100), 0, bad)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// TestRandomPlayInvariants drives many hands with random legal actions and
// checks the money and turn invariants after every step.
func TestRandomPlayInvariants(t *testing.T) {
	t.Parallel()

	for seed := int64(0); seed < 300; seed++ {
		rng := randutil.New(seed)
		n := 2 + rng.IntN(5)
		chips := make([]int, n)
		for i := range chips {
			chips[i] = 20 + rng.IntN(200)
		}
		players := newPlayers(chips...)
		start := totalChips(players)

		cfg := DefaultConfig()
		cfg.Ante = rng.IntN(3)
		h, _, err := NewHand(rng, players, rng.IntN(n), cfg)
		require.NoError(t, err)
		satOut := make(map[int]bool)

		for step := 0; !h.Finished(); step++ {
			require.Less(t, step, 1000, "seed %d: hand did not terminate", seed)
			require.Equal(t, h.Contributions(), h.Pot, "seed %d", seed)
			require.Equal(t, start, totalChips(players)+h.Pot, "seed %d: chips not conserved", seed)

			seat := h.Turn()
			require.GreaterOrEqual(t, seat, 0, "seed %d: unfinished hand without a seat in turn", seed)
			p := h.Player(seat)
			require.True(t, p.CanAct(), "seed %d: seat %d in turn cannot act", seed, seat)
			require.False(t, p.SitOutPending, "seed %d: seat %d in turn should have been folded", seed, seat)

			// Disconnects and sit-outs arrive out of turn
			if rng.IntN(8) == 0 {
				target := players[rng.IntN(n)].Seat
				if rng.IntN(2) == 0 {
					_, err = h.ForceFold(target)
				} else {
					_, err = h.SitOut(target)
					satOut[target] = true
				}
				require.NoError(t, err, "seed %d", seed)
				continue
			}

			opts := h.LegalActions()
			require.NotEmpty(t, opts)
			opt := opts[rng.IntN(len(opts))]
			a := Action{Kind: opt.Kind}
			if opt.Kind == Bet || opt.Kind == Raise {
				a.Amount = opt.Amount + rng.IntN(opt.Max-opt.Amount+1)
			}
			_, err = h.SubmitAction(seat, a)
			require.NoError(t, err, "seed %d: seat %d %s", seed, seat, a)
		}

		require.Equal(t, start, totalChips(players), "seed %d: chips not conserved after settlement", seed)
		require.Equal(t, Showdown, h.Round)
		for _, p := range players {
			require.GreaterOrEqual(t, p.Chips, 0)
			require.Equal(t, p.Chips < cfg.SmallBlind, p.PendingRemoval, "seed %d: seat %d", seed, p.Seat)
			require.Equal(t, satOut[p.Seat], p.SittingOut, "seed %d: seat %d", seed, p.Seat)
			require.False(t, p.SitOutPending)
		}
	}
}
