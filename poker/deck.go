package poker

import (
	"errors"
	rand "math/rand/v2"
)

// ErrEmptyDeck is returned when a card is requested from an exhausted deck
var ErrEmptyDeck = errors.New("poker: deck is empty")

// DeckSize is the number of cards in a standard deck
const DeckSize = 52

// Deck represents a standard 52-card deck consumed from the front
type Deck struct {
	cards [DeckSize]Card
	next  int
	rng   *rand.Rand
}

// NewDeck creates a new deck shuffled with the provided RNG
func NewDeck(rng *rand.Rand) *Deck {
	d := &Deck{rng: rng}
	d.fill()
	d.Shuffle()
	return d
}

// NewStackedDeck creates a deck whose first cards are exactly the given cards,
// in order, followed by the remaining cards of a standard deck in a fixed order.
// Used for deterministic tests.
func NewStackedDeck(top ...Card) *Deck {
	d := &Deck{}
	seen := make(map[Card]bool, len(top))
	i := 0
	for _, c := range top {
		if i == DeckSize || seen[c] {
			continue
		}
		seen[c] = true
		d.cards[i] = c
		i++
	}
	for _, c := range orderedCards() {
		if i == DeckSize {
			break
		}
		if !seen[c] {
			d.cards[i] = c
			i++
		}
	}
	return d
}

func (d *Deck) fill() {
	copy(d.cards[:], orderedCards())
	d.next = 0
}

func orderedCards() []Card {
	cards := make([]Card, 0, DeckSize)
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			cards = append(cards, NewCard(rank, suit))
		}
	}
	return cards
}

// Shuffle resets the deck and shuffles it using Fisher-Yates
func (d *Deck) Shuffle() {
	d.fill()
	for i := len(d.cards) - 1; i > 0; i-- {
		var j int
		if d.rng != nil {
			j = d.rng.IntN(i + 1)
		} else {
			j = rand.IntN(i + 1)
		}
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// DealOne removes and returns the front card
func (d *Deck) DealOne() (Card, error) {
	if d.next >= len(d.cards) {
		return Card{}, ErrEmptyDeck
	}
	card := d.cards[d.next]
	d.next++
	return card, nil
}

// Deal deals n cards from the deck
func (d *Deck) Deal(n int) ([]Card, error) {
	if d.next+n > len(d.cards) {
		return nil, ErrEmptyDeck
	}
	cards := make([]Card, n)
	copy(cards, d.cards[d.next:d.next+n])
	d.next += n
	return cards, nil
}

// Burn discards the front card without revealing it
func (d *Deck) Burn() error {
	_, err := d.DealOne()
	return err
}

// CardsRemaining returns the number of cards left in the deck
func (d *Deck) CardsRemaining() int {
	return len(d.cards) - d.next
}

// Remaining returns a copy of the undealt cards in deal order
func (d *Deck) Remaining() []Card {
	out := make([]Card, d.CardsRemaining())
	copy(out, d.cards[d.next:])
	return out
}
