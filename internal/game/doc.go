// Package game implements the betting engine for a single Texas Hold'em hand.
//
// The main type is Hand, which owns the seats taking part, the deck, the
// pot and the round state machine:
//
//	Ante -> PreFlop -> Flop -> Turn -> River -> Showdown
//
// The ante round is skipped when the table has no ante. Blinds are posted as
// actions by the seats in turn, so every chip that enters the pot goes
// through SubmitAction and the pot always equals the sum of contributions.
//
// # Basic Usage
//
//	players := []*game.Player{{Seat: 0, Name: "Alice", Chips: 100}, {Seat: 1, Name: "Bob", Chips: 100}}
//	h, events, err := game.NewHand(rng, players, 0, game.DefaultConfig())
//	for !h.Finished() {
//	    opts := h.LegalActions()
//	    events, err = h.SubmitAction(h.Turn(), game.Action{Kind: opts[1].Kind})
//	}
//
// Every call returns the events it produced: a SessionChanged snapshot,
// plus RoundFinished and PlayerLost once the hand settles. The engine never
// removes players; seats marked PendingRemoval are dropped by the table.
//
// # Deterministic Testing
//
// Pass a seeded generator from internal/randutil, or script the cards with
// WithDeck and poker.NewStackedDeck.
package game
