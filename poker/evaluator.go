package poker

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidHand is returned when a hand cannot be evaluated
var ErrInvalidHand = errors.New("poker: invalid hand")

// HandType enumerates the categories of poker hands ordered from weakest to strongest.
type HandType uint8

const (
	HighCard HandType = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

// Base returns the category offset used in HandValue.Rank.
// High card is 100, each stronger category adds another 100.
func (t HandType) Base() int {
	return (int(t) + 1) * 100
}

// String returns a human-readable category name.
func (t HandType) String() string {
	switch t {
	case HighCard:
		return "High Card"
	case Pair:
		return "One Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// HandValue is the evaluated strength of the best five cards of a hand.
// Rank is the category base plus the deciding card value so that most
// comparisons are a single integer compare; Kickers breaks the remaining ties.
type HandValue struct {
	Rank    int      `json:"rank"`
	Type    HandType `json:"type"`
	Kickers []int    `json:"kickers"`
	Name    string   `json:"name"`
}

// Compare returns 1 if a beats b, -1 if b beats a, and 0 for a split.
func Compare(a, b HandValue) int {
	if a.Rank != b.Rank {
		if a.Rank > b.Rank {
			return 1
		}
		return -1
	}
	n := min(len(a.Kickers), len(b.Kickers))
	for i := 0; i < n; i++ {
		if a.Kickers[i] != b.Kickers[i] {
			if a.Kickers[i] > b.Kickers[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

type rankGroup struct {
	rank  Rank
	count int
}

// EvaluateBestHand ranks the best five-card hand contained in 5 to 7 cards.
// Every subset is covered through rank-group and suit analysis.
func EvaluateBestHand(cards []Card) (HandValue, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return HandValue{}, fmt.Errorf("%w: need 5 to 7 cards, got %d", ErrInvalidHand, len(cards))
	}

	var counts [Ace + 1]int
	var bySuit [Clubs + 1][]Rank
	seen := make(map[Card]bool, len(cards))
	for _, c := range cards {
		if !c.Valid() {
			return HandValue{}, fmt.Errorf("%w: invalid card %v", ErrInvalidHand, c)
		}
		if seen[c] {
			return HandValue{}, fmt.Errorf("%w: duplicate card %s", ErrInvalidHand, c)
		}
		seen[c] = true
		counts[c.Rank]++
		bySuit[c.Suit] = append(bySuit[c.Suit], c.Rank)
	}

	// Flush and straight flush are decided within the flush suit only
	for _, ranks := range bySuit {
		if len(ranks) < 5 {
			continue
		}
		var present [Ace + 1]int
		for _, r := range ranks {
			present[r]++
		}
		if high := straightHigh(present); high > 0 {
			name := fmt.Sprintf("Straight Flush, %s high", high.Name())
			if high == Ace {
				name = "Royal Flush"
			}
			return value(StraightFlush, high, []int{int(high)}, name), nil
		}
		sort.Slice(ranks, func(i, j int) bool { return ranks[i] > ranks[j] })
		top := ranksToInts(ranks[:5])
		return value(Flush, ranks[0], top, fmt.Sprintf("Flush, %s high", ranks[0].Name())), nil
	}

	groups := make([]rankGroup, 0, len(cards))
	for r := Ace; r >= Two; r-- {
		if counts[r] > 0 {
			groups = append(groups, rankGroup{rank: r, count: counts[r]})
		}
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].count > groups[j].count
	})

	first := groups[0]
	switch {
	case first.count == 4:
		kicker := highestExcept(counts, first.rank)
		return value(FourOfAKind, first.rank, []int{int(first.rank), int(kicker)},
			fmt.Sprintf("Four of a Kind, %s", plural(first.rank))), nil

	case first.count == 3 && len(groups) > 1 && groups[1].count >= 2:
		pair := groups[1].rank
		return value(FullHouse, first.rank, []int{int(first.rank), int(pair)},
			fmt.Sprintf("Full House, %s over %s", plural(first.rank), plural(pair))), nil
	}

	if high := straightHigh(counts); high > 0 {
		return value(Straight, high, []int{int(high)}, fmt.Sprintf("Straight, %s high", high.Name())), nil
	}

	switch {
	case first.count == 3:
		kickers := append([]int{int(first.rank)}, topKickers(counts, 2, first.rank)...)
		return value(ThreeOfAKind, first.rank, kickers,
			fmt.Sprintf("Three of a Kind, %s", plural(first.rank))), nil

	case first.count == 2 && groups[1].count == 2:
		high, low := first.rank, groups[1].rank
		kickers := append([]int{int(high), int(low)}, topKickers(counts, 1, high, low)...)
		return value(TwoPair, high, kickers,
			fmt.Sprintf("Two Pair, %s and %s", plural(high), plural(low))), nil

	case first.count == 2:
		kickers := append([]int{int(first.rank)}, topKickers(counts, 3, first.rank)...)
		return value(Pair, first.rank, kickers, fmt.Sprintf("One Pair, %s", plural(first.rank))), nil
	}

	kickers := topKickers(counts, 5)
	return value(HighCard, first.rank, kickers, fmt.Sprintf("High Card, %s", first.rank.Name())), nil
}

func value(t HandType, deciding Rank, kickers []int, name string) HandValue {
	return HandValue{
		Rank:    t.Base() + int(deciding),
		Type:    t,
		Kickers: kickers,
		Name:    name,
	}
}

// straightHigh returns the high card of the best straight present, or 0.
// The wheel (A-2-3-4-5) is a five-high straight.
func straightHigh(counts [Ace + 1]int) Rank {
	for high := Ace; high >= Six; high-- {
		run := true
		for r := high; r > high-5; r-- {
			if counts[r] == 0 {
				run = false
				break
			}
		}
		if run {
			return high
		}
	}
	if counts[Ace] > 0 && counts[Two] > 0 && counts[Three] > 0 && counts[Four] > 0 && counts[Five] > 0 {
		return Five
	}
	return 0
}

func highestExcept(counts [Ace + 1]int, used ...Rank) Rank {
	k := topKickers(counts, 1, used...)
	if len(k) == 0 {
		return 0
	}
	return Rank(k[0])
}

// topKickers returns the n highest distinct ranks not in used, highest first.
func topKickers(counts [Ace + 1]int, n int, used ...Rank) []int {
	out := make([]int, 0, n)
	for r := Ace; r >= Two && len(out) < n; r-- {
		if counts[r] == 0 || containsRank(used, r) {
			continue
		}
		out = append(out, int(r))
	}
	return out
}

func containsRank(ranks []Rank, r Rank) bool {
	for _, x := range ranks {
		if x == r {
			return true
		}
	}
	return false
}

func ranksToInts(ranks []Rank) []int {
	out := make([]int, len(ranks))
	for i, r := range ranks {
		out[i] = int(r)
	}
	return out
}

func plural(r Rank) string {
	if r == Six {
		return "Sixes"
	}
	return r.Name() + "s"
}
