package game

import "github.com/lox/pokerface/poker"

// HandOption configures a Hand during creation.
type HandOption func(*handConfig)

type handConfig struct {
	deck *poker.Deck // If provided, used instead of shuffling a new deck
}

// WithDeck deals the hand from a prepared deck. Tests use it with
// poker.NewStackedDeck to script hole and board cards; dealing order is one
// burn, two cards per seat clockwise from the dealer, then burn-and-reveal
// for flop, turn and river.
func WithDeck(deck *poker.Deck) HandOption {
	return func(c *handConfig) {
		c.deck = deck
	}
}
