package poker

import (
	"errors"
	"reflect"
	"testing"

	phpoker "github.com/paulhankin/poker"

	"github.com/lox/pokerface/internal/randutil"
)

func mustEval(t *testing.T, cards string) HandValue {
	t.Helper()
	hv, err := EvaluateBestHand(MustParseCards(cards))
	if err != nil {
		t.Fatalf("EvaluateBestHand(%s): %v", cards, err)
	}
	return hv
}

func TestEvaluateCategories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cards    string
		wantType HandType
		wantRank int
		wantName string
	}{
		{"royal flush", "As Ks Qs Js Ts 2d 3c", StraightFlush, 914, "Royal Flush"},
		{"straight flush", "9h 8h 7h 6h 5h Ac Ad", StraightFlush, 909, "Straight Flush, 9 high"},
		{"steel wheel", "Ad 2d 3d 4d 5d Kc Qh", StraightFlush, 905, "Straight Flush, 5 high"},
		{"quads", "Kc Kd Kh Ks 2c 3d 9h", FourOfAKind, 813, "Four of a Kind, Kings"},
		{"full house", "Qc Qd Qh 9s 9c 2d 3h", FullHouse, 712, "Full House, Queens over 9s"},
		{"flush", "Ac Jc 8c 4c 2c Kd Qh", Flush, 614, "Flush, Ace high"},
		{"straight", "Tc 9d 8h 7s 6c 2d 2h", Straight, 510, "Straight, Ten high"},
		{"trips", "7c 7d 7h Ks 2c 3d 9h", ThreeOfAKind, 407, "Three of a Kind, 7s"},
		{"two pair", "Jc Jd 4h 4s Ac 3d 9h", TwoPair, 311, "Two Pair, Jacks and 4s"},
		{"pair", "Tc Td 4h 8s Ac 3d 9h", Pair, 210, "One Pair, Tens"},
		{"high card", "Ac Jd 4h 8s 6c 3d 9h", HighCard, 114, "High Card, Ace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hv := mustEval(t, tt.cards)
			if hv.Type != tt.wantType {
				t.Errorf("type = %v, want %v", hv.Type, tt.wantType)
			}
			if hv.Rank != tt.wantRank {
				t.Errorf("rank = %d, want %d", hv.Rank, tt.wantRank)
			}
			if hv.Name != tt.wantName {
				t.Errorf("name = %q, want %q", hv.Name, tt.wantName)
			}
		})
	}
}

func TestCategoryOrdering(t *testing.T) {
	t.Parallel()

	// Strongest first
	hands := []string{
		"As Ks Qs Js Ts 2d 3c",
		"9h 8h 7h 6h 5h Ac Ad",
		"Kc Kd Kh Ks 2c 3d 9h",
		"Qc Qd Qh 9s 9c 2d 3h",
		"Ac Jc 8c 4c 2c Kd Qh",
		"Tc 9d 8h 7s 6c 2d 2h",
		"7c 7d 7h Ks 2c 3d 9h",
		"Jc Jd 4h 4s Ac 3d 9h",
		"Tc Td 4h 8s Ac 3d 9h",
		"Ac Jd 4h 8s 6c 3d 9h",
	}

	values := make([]HandValue, len(hands))
	for i, h := range hands {
		values[i] = mustEval(t, h)
	}
	for i := range values {
		for j := range values {
			got := Compare(values[i], values[j])
			want := 0
			if i < j {
				want = 1
			} else if i > j {
				want = -1
			}
			if got != want {
				t.Errorf("Compare(%s, %s) = %d, want %d", values[i].Name, values[j].Name, got, want)
			}
		}
	}
}

func TestWheelIsFiveHigh(t *testing.T) {
	t.Parallel()

	wheel := mustEval(t, "Ac 2d 3h 4s 5c 9d Kh")
	if wheel.Type != Straight {
		t.Fatalf("expected straight, got %v", wheel.Type)
	}
	if wheel.Rank != Straight.Base()+5 {
		t.Errorf("wheel rank = %d, want %d", wheel.Rank, Straight.Base()+5)
	}

	six := mustEval(t, "2c 3d 4h 5s 6c 9d Kh")
	if Compare(six, wheel) != 1 {
		t.Error("six-high straight should beat the wheel")
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	t.Parallel()

	rng := randutil.New(7)
	for i := 0; i < 200; i++ {
		d := NewDeck(rng)
		cards, err := d.Deal(7)
		if err != nil {
			t.Fatal(err)
		}
		a, err := EvaluateBestHand(cards)
		if err != nil {
			t.Fatal(err)
		}
		b, err := EvaluateBestHand(cards)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("evaluation not idempotent for %s: %+v vs %+v", FormatCards(cards), a, b)
		}
	}
}

func TestKickersBreakTies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		better string
		worse  string
	}{
		{"pair kicker", "Ac Ad Kh 7s 5c 3d 2h", "As Ah Qh 7c 5d 3c 2s"},
		{"two pair kicker", "Kc Kd 8h 8s Ac 3d 2h", "Ks Kh 8c 8d Qc 3h 2s"},
		{"third pair ignored for kicker", "Kc Kd 8h 8s 4c 4d Ah", "Ks Kh 8c 8d 4h 4s Qh"},
		{"flush second card", "Ac Kc 8c 4c 2c", "Ad Qd 8d 4d 2d"},
		{"high card fifth card", "Ac Jd 8h 6s 4c 2d", "Ah Jc 8d 6c 3h 2c"},
		{"trips kicker", "7c 7d 7h Ks 2c", "7s 7c 7h Qs Jc"},
		{"full house pair", "Qc Qd Qh 9s 9c", "Qs Qd Qh 8s 8c"},
		{"quads kicker", "5c 5d 5h 5s Ac", "5c 5d 5h 5s Kc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustEval(t, tt.better)
			w := mustEval(t, tt.worse)
			if Compare(b, w) != 1 {
				t.Errorf("%s (%v) should beat %s (%v)", b.Name, b.Kickers, w.Name, w.Kickers)
			}
			if Compare(w, b) != -1 {
				t.Errorf("comparison not antisymmetric")
			}
		})
	}
}

func TestSplitWhenBoardPlays(t *testing.T) {
	t.Parallel()

	a := mustEval(t, "2c 3d Ah Kh Qh Jh Ts")
	b := mustEval(t, "2h 3s Ah Kh Qh Jh Ts")
	if Compare(a, b) != 0 {
		t.Errorf("board straight should split, got %d", Compare(a, b))
	}
}

func TestEvaluateRejectsBadInput(t *testing.T) {
	t.Parallel()

	if _, err := EvaluateBestHand(MustParseCards("As Ks Qs Js")); !errors.Is(err, ErrInvalidHand) {
		t.Errorf("expected ErrInvalidHand for 4 cards, got %v", err)
	}
	if _, err := EvaluateBestHand(MustParseCards("As As Qs Js Ts")); !errors.Is(err, ErrInvalidHand) {
		t.Errorf("expected ErrInvalidHand for duplicate, got %v", err)
	}
}

func toOracle(t *testing.T, cards []Card) [7]phpoker.Card {
	t.Helper()
	suits := map[Suit]phpoker.Suit{
		Clubs:    phpoker.Club,
		Diamonds: phpoker.Diamond,
		Hearts:   phpoker.Heart,
		Spades:   phpoker.Spade,
	}
	var out [7]phpoker.Card
	for i, c := range cards {
		rank := phpoker.Rank(c.Rank)
		if c.Rank == Ace {
			rank = phpoker.Rank(1) // paulhankin/poker: Ace is 1
		}
		pc, err := phpoker.MakeCard(suits[c.Suit], rank)
		if err != nil {
			t.Fatalf("oracle card %s: %v", c, err)
		}
		out[i] = pc
	}
	return out
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

// TestAgreesWithReferenceEvaluator compares pairwise outcomes against an
// independent 7-card evaluator on random deals.
func TestAgreesWithReferenceEvaluator(t *testing.T) {
	t.Parallel()

	rng := randutil.New(2024)
	for i := 0; i < 2000; i++ {
		d := NewDeck(rng)
		cards, err := d.Deal(9)
		if err != nil {
			t.Fatal(err)
		}
		board := cards[4:]
		a := append(append([]Card{}, cards[0:2]...), board...)
		b := append(append([]Card{}, cards[2:4]...), board...)

		av, err := EvaluateBestHand(a)
		if err != nil {
			t.Fatal(err)
		}
		bv, err := EvaluateBestHand(b)
		if err != nil {
			t.Fatal(err)
		}

		oa, ob := toOracle(t, a), toOracle(t, b)
		want := sign(int(phpoker.Eval7(&oa)) - int(phpoker.Eval7(&ob)))
		if got := Compare(av, bv); got != want {
			t.Fatalf("deal %d: %s (%s) vs %s (%s): got %d, reference %d",
				i, FormatCards(a), av.Name, FormatCards(b), bv.Name, got, want)
		}
	}
}
