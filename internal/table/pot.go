package table

import "sort"

// potLayer is one pot: the main pot or a side pot capped at an all-in level.
type potLayer struct {
	Amount   int
	Cap      int   // committed level this layer covers up to
	Eligible []int // seat indexes that can win it
}

// buildPots layers the seats' committed chips into a main pot and side pots.
// It first refunds the excess of a lone over-bettor (chips nobody could
// match), then cuts one layer per distinct committed level among live seats.
// Folded seats' chips stay in the layers they reached; refunds maps seat
// index to chips returned before layering.
func buildPots(seats []*Seat) ([]potLayer, map[int]int) {
	refunds := make(map[int]int)

	// Lone over-bettor: if exactly one seat committed more than everyone
	// else, the uncalled difference comes straight back to it. A folded
	// seat's chips are dead and never come back.
	var top, second, topSeat = 0, 0, -1
	var topLive bool
	for _, s := range seats {
		if s == nil || s.Committed == 0 {
			continue
		}
		if s.Committed > top {
			second = top
			top = s.Committed
			topSeat = s.Index
			topLive = s.inHand()
		} else if s.Committed > second {
			second = s.Committed
		}
	}
	committed := make(map[int]int)
	for _, s := range seats {
		if s == nil || s.Committed == 0 {
			continue
		}
		committed[s.Index] = s.Committed
	}
	if topSeat >= 0 && top > second && topLive {
		refunds[topSeat] = top - second
		committed[topSeat] = second
	}

	// One cap per distinct committed level among seats still in the hand.
	capSet := make(map[int]bool)
	for _, s := range seats {
		if s != nil && s.inHand() && committed[s.Index] > 0 {
			capSet[committed[s.Index]] = true
		}
	}
	caps := make([]int, 0, len(capSet))
	for c := range capSet {
		caps = append(caps, c)
	}
	sort.Ints(caps)

	var layers []potLayer
	prev := 0
	for _, c := range caps {
		layer := potLayer{Cap: c}
		for _, s := range seats {
			if s == nil {
				continue
			}
			contrib := min(committed[s.Index], c) - min(committed[s.Index], prev)
			layer.Amount += contrib
			if s.inHand() && committed[s.Index] >= c {
				layer.Eligible = append(layer.Eligible, s.Index)
			}
		}
		if layer.Amount > 0 {
			layers = append(layers, layer)
		}
		prev = c
	}

	// Chips above every live cap (only folded seats reach here) fold into
	// the last layer.
	if len(layers) > 0 {
		extra := 0
		for _, s := range seats {
			if s == nil {
				continue
			}
			if committed[s.Index] > prev {
				extra += committed[s.Index] - prev
			}
		}
		layers[len(layers)-1].Amount += extra
	}

	return layers, refunds
}

// splitPot divides amount evenly among the winners, handing odd chips out
// one at a time clockwise starting from the seat left of the button.
// awardOrder is the full clockwise seat order for the table.
func splitPot(amount int, winners []int, awardOrder []int) map[int]int {
	shares := make(map[int]int, len(winners))
	if len(winners) == 0 {
		return shares
	}

	base := amount / len(winners)
	odd := amount % len(winners)
	for _, w := range winners {
		shares[w] = base
	}

	isWinner := make(map[int]bool, len(winners))
	for _, w := range winners {
		isWinner[w] = true
	}
	for _, seat := range awardOrder {
		if odd == 0 {
			break
		}
		if isWinner[seat] {
			shares[seat]++
			odd--
		}
	}

	return shares
}

// clockwiseFrom returns every seat index in clockwise order starting at
// start, for odd-chip distribution.
func clockwiseFrom(start, numSeats int) []int {
	order := make([]int, numSeats)
	for i := 0; i < numSeats; i++ {
		order[i] = (start + i) % numSeats
	}
	return order
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
