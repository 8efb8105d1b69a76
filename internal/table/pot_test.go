package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func committedSeat(index, committed int, folded bool) *Seat {
	s := &Seat{
		Index:     index,
		PlayerID:  string(rune('a' + index)),
		Committed: committed,
		Hole:      cards("2c", "3c"),
		Folded:    folded,
	}
	return s
}

func potTotalOf(layers []potLayer) int {
	total := 0
	for _, l := range layers {
		total += l.Amount
	}
	return total
}

func TestBuildPotsSingleLayer(t *testing.T) {
	seats := []*Seat{
		committedSeat(0, 100, false),
		committedSeat(1, 100, false),
		committedSeat(2, 100, false),
	}

	layers, refunds := buildPots(seats)
	require.Len(t, layers, 1)
	assert.Equal(t, 300, layers[0].Amount)
	assert.Equal(t, []int{0, 1, 2}, layers[0].Eligible)
	assert.Empty(t, refunds)
}

func TestBuildPotsSidePot(t *testing.T) {
	// Short all-in at 300 against two 1000 stacks: main pot 900 for all,
	// side pot 1400 for the two big stacks.
	seats := []*Seat{
		committedSeat(0, 1000, false),
		committedSeat(1, 300, false),
		committedSeat(2, 1000, false),
	}

	layers, refunds := buildPots(seats)
	require.Len(t, layers, 2)
	assert.Equal(t, 900, layers[0].Amount)
	assert.Equal(t, []int{0, 1, 2}, layers[0].Eligible)
	assert.Equal(t, 1400, layers[1].Amount)
	assert.Equal(t, []int{0, 2}, layers[1].Eligible)
	assert.Empty(t, refunds)
	assert.Equal(t, 2300, potTotalOf(layers))
}

func TestBuildPotsLoneOverBettorRefund(t *testing.T) {
	// Nobody could match the 500: the excess over the 200 call comes back.
	seats := []*Seat{
		committedSeat(0, 500, false),
		committedSeat(1, 200, false),
	}

	layers, refunds := buildPots(seats)
	require.Len(t, layers, 1)
	assert.Equal(t, 400, layers[0].Amount)
	assert.Equal(t, map[int]int{0: 300}, refunds)
}

func TestBuildPotsFoldedChipsStayIn(t *testing.T) {
	// The folder's 60 stays in the pot but the folder wins nothing.
	seats := []*Seat{
		committedSeat(0, 100, false),
		committedSeat(1, 60, true),
		committedSeat(2, 100, false),
	}

	layers, refunds := buildPots(seats)
	require.Len(t, layers, 1)
	assert.Equal(t, 260, layers[0].Amount)
	assert.Equal(t, []int{0, 2}, layers[0].Eligible)
	assert.Empty(t, refunds)
}

func TestBuildPotsNoRefundToFoldedOverBettor(t *testing.T) {
	// The big blind folded after committing more than the lone live seat:
	// those chips are dead and go to the pot, not back to the folder.
	seats := []*Seat{
		committedSeat(0, 5, false),
		committedSeat(1, 10, true),
	}

	layers, refunds := buildPots(seats)
	require.Len(t, layers, 1)
	assert.Equal(t, 15, layers[0].Amount)
	assert.Equal(t, []int{0}, layers[0].Eligible)
	assert.Empty(t, refunds)
}

func TestBuildPotsThreeLayers(t *testing.T) {
	seats := []*Seat{
		committedSeat(0, 50, false),
		committedSeat(1, 200, false),
		committedSeat(2, 500, false),
		committedSeat(3, 500, false),
	}

	layers, refunds := buildPots(seats)
	require.Len(t, layers, 3)
	assert.Equal(t, 200, layers[0].Amount) // 50 x 4
	assert.Equal(t, []int{0, 1, 2, 3}, layers[0].Eligible)
	assert.Equal(t, 450, layers[1].Amount) // 150 x 3
	assert.Equal(t, []int{1, 2, 3}, layers[1].Eligible)
	assert.Equal(t, 600, layers[2].Amount) // 300 x 2
	assert.Equal(t, []int{2, 3}, layers[2].Eligible)
	assert.Empty(t, refunds)
	assert.Equal(t, 1250, potTotalOf(layers))
}

func TestBuildPotsConservation(t *testing.T) {
	cases := [][]*Seat{
		{committedSeat(0, 17, false), committedSeat(1, 170, false), committedSeat(2, 99, true)},
		{committedSeat(0, 1, false), committedSeat(1, 1000, false), committedSeat(2, 1000, false)},
		{committedSeat(0, 25, true), committedSeat(1, 300, false), committedSeat(2, 80, false), nil},
	}

	for _, seats := range cases {
		total := 0
		for _, s := range seats {
			if s != nil {
				total += s.Committed
			}
		}
		layers, refunds := buildPots(seats)
		got := potTotalOf(layers)
		for _, r := range refunds {
			got += r
		}
		assert.Equal(t, total, got, "chips in must equal chips out")
	}
}

func TestSplitPotEven(t *testing.T) {
	shares := splitPot(300, []int{0, 2}, clockwiseFrom(1, 8))
	assert.Equal(t, map[int]int{0: 150, 2: 150}, shares)
}

func TestSplitPotOddChipClockwiseFromButtonLeft(t *testing.T) {
	// Odd chip goes to the first winner clockwise from seat left of the
	// button (button at 0 here, order starts at seat 1).
	shares := splitPot(25, []int{0, 2}, clockwiseFrom(1, 8))
	assert.Equal(t, map[int]int{2: 13, 0: 12}, shares)

	// Two odd chips, three winners.
	shares = splitPot(26, []int{0, 2, 5}, clockwiseFrom(1, 8))
	assert.Equal(t, map[int]int{2: 9, 5: 9, 0: 8}, shares)
}

func TestSplitPotNoWinners(t *testing.T) {
	assert.Empty(t, splitPot(100, nil, clockwiseFrom(0, 8)))
}
