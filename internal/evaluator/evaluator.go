package evaluator

import (
	"fmt"
	"sort"

	"github.com/cardroomlabs/holdemd/internal/deck"
)

// Category represents the class of a five-card poker hand, ordered from
// weakest to strongest.
type Category int

const (
	HighCard Category = iota
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns a human-readable hand description
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
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
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Unknown"
	}
}

// Result is the outcome of evaluating a hand: the category, the tiebreak
// vector (length depends on category), and the five cards that form the hand.
// Results compare lexicographically by (category, tiebreaks).
type Result struct {
	Category  Category
	Tiebreaks []int
	Cards     []deck.Card
}

// Compare returns 1 if r beats other, -1 if other beats r, and 0 on a tie.
// A tie means the pot splits.
func (r Result) Compare(other Result) int {
	if r.Category != other.Category {
		if r.Category > other.Category {
			return 1
		}
		return -1
	}
	for i := 0; i < len(r.Tiebreaks) && i < len(other.Tiebreaks); i++ {
		if r.Tiebreaks[i] != other.Tiebreaks[i] {
			if r.Tiebreaks[i] > other.Tiebreaks[i] {
				return 1
			}
			return -1
		}
	}
	return 0
}

// String renders a result like "Flush (A K 9 7 6)".
func (r Result) String() string {
	return fmt.Sprintf("%s (%v)", r.Category, deck.Codes(r.Cards))
}

// Evaluate finds the best five-card hand from five to seven cards by
// enumerating every five-card subset and keeping the maximum.
func Evaluate(cards []deck.Card) (Result, error) {
	n := len(cards)
	if n < 5 || n > 7 {
		return Result{}, fmt.Errorf("evaluator: need 5-7 cards, got %d", n)
	}

	if n == 5 {
		var five [5]deck.Card
		copy(five[:], cards)
		return evaluate5(five), nil
	}

	var best Result
	first := true
	var five [5]deck.Card

	// Choose which (n-5) cards to drop; n is 6 or 7 so this enumerates
	// the 6 or 21 possible subsets.
	for skipA := 0; skipA < n; skipA++ {
		lo := skipA + 1
		hi := n
		if n == 6 {
			// Only one card is dropped.
			lo, hi = skipA, skipA+1
		}
		for skipB := lo; skipB < hi; skipB++ {
			idx := 0
			for i, c := range cards {
				if i == skipA || (n == 7 && i == skipB) {
					continue
				}
				five[idx] = c
				idx++
			}
			result := evaluate5(five)
			if first || result.Compare(best) > 0 {
				best = result
				first = false
			}
		}
	}

	return best, nil
}

// evaluate5 ranks exactly five cards.
func evaluate5(five [5]deck.Card) Result {
	cards := five[:]
	sorted := make([]deck.Card, 5)
	copy(sorted, cards)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Value() > sorted[j].Value()
	})

	flush := true
	for i := 1; i < 5; i++ {
		if sorted[i].Suit != sorted[0].Suit {
			flush = false
			break
		}
	}

	straightHigh := straightHighCard(sorted)

	if flush && straightHigh > 0 {
		if straightHigh == int(deck.Ace) {
			return Result{Category: RoyalFlush, Tiebreaks: []int{}, Cards: sorted}
		}
		return Result{Category: StraightFlush, Tiebreaks: []int{straightHigh}, Cards: straightOrder(sorted, straightHigh)}
	}

	// Group by rank, highest count first, then by rank descending.
	counts := make(map[int]int)
	for _, c := range sorted {
		counts[c.Value()]++
	}
	groups := make([]rankGroup, 0, 5)
	for value, count := range counts {
		groups = append(groups, rankGroup{value, count})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].value > groups[j].value
	})

	ordered := groupOrder(sorted, groups)

	switch {
	case groups[0].count == 4:
		return Result{
			Category:  FourOfAKind,
			Tiebreaks: []int{groups[0].value, groups[1].value},
			Cards:     ordered,
		}
	case groups[0].count == 3 && groups[1].count == 2:
		return Result{
			Category:  FullHouse,
			Tiebreaks: []int{groups[0].value, groups[1].value},
			Cards:     ordered,
		}
	case flush:
		return Result{
			Category:  Flush,
			Tiebreaks: values(sorted),
			Cards:     sorted,
		}
	case straightHigh > 0:
		return Result{
			Category:  Straight,
			Tiebreaks: []int{straightHigh},
			Cards:     straightOrder(sorted, straightHigh),
		}
	case groups[0].count == 3:
		return Result{
			Category:  ThreeOfAKind,
			Tiebreaks: []int{groups[0].value, groups[1].value, groups[2].value},
			Cards:     ordered,
		}
	case groups[0].count == 2 && groups[1].count == 2:
		return Result{
			Category:  TwoPair,
			Tiebreaks: []int{groups[0].value, groups[1].value, groups[2].value},
			Cards:     ordered,
		}
	case groups[0].count == 2:
		return Result{
			Category:  Pair,
			Tiebreaks: []int{groups[0].value, groups[1].value, groups[2].value, groups[3].value},
			Cards:     ordered,
		}
	default:
		return Result{
			Category:  HighCard,
			Tiebreaks: values(sorted),
			Cards:     sorted,
		}
	}
}

// straightHighCard returns the high card value of a straight formed by the
// five cards (sorted descending), or 0 if they do not form one. The wheel
// (A-2-3-4-5) counts as a straight with high card 5.
func straightHighCard(sorted []deck.Card) int {
	run := true
	for i := 1; i < 5; i++ {
		if sorted[i-1].Value() != sorted[i].Value()+1 {
			run = false
			break
		}
	}
	if run {
		return sorted[0].Value()
	}

	// Wheel: A,5,4,3,2 when sorted descending.
	if sorted[0].Value() == int(deck.Ace) &&
		sorted[1].Value() == 5 && sorted[2].Value() == 4 &&
		sorted[3].Value() == 3 && sorted[4].Value() == 2 {
		return 5
	}

	return 0
}

// straightOrder arranges the cards of a straight from its high card down,
// moving the ace to the back for the wheel.
func straightOrder(sorted []deck.Card, high int) []deck.Card {
	out := make([]deck.Card, 5)
	copy(out, sorted)
	if high == 5 && out[0].Value() == int(deck.Ace) {
		ace := out[0]
		copy(out, out[1:])
		out[4] = ace
	}
	return out
}

// rankGroup is a rank value and how many of it the hand holds.
type rankGroup struct {
	value int
	count int
}

// groupOrder arranges cards so the dominant rank groups come first and
// kickers follow in descending order.
func groupOrder(sorted []deck.Card, groups []rankGroup) []deck.Card {
	out := make([]deck.Card, 0, 5)
	for _, g := range groups {
		for _, c := range sorted {
			if c.Value() == g.value {
				out = append(out, c)
			}
		}
	}
	return out
}

func values(cards []deck.Card) []int {
	out := make([]int, len(cards))
	for i, c := range cards {
		out[i] = c.Value()
	}
	return out
}
