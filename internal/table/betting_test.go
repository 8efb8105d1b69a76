package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seatWith(index, stack, roundBet int) *Seat {
	s := &Seat{
		Index:    index,
		PlayerID: string(rune('a' + index)),
		Stack:    stack,
		RoundBet: roundBet,
		Hole:     cards("2c", "3c"),
	}
	s.Committed = roundBet
	return s
}

func kinds(actions []LegalAction) []ActionKind {
	out := make([]ActionKind, len(actions))
	for i, a := range actions {
		out[i] = a.Kind
	}
	return out
}

func TestLegalActionsNoBet(t *testing.T) {
	br := newBettingRound(10, -1)
	s := seatWith(0, 1000, 0)

	actions := br.legalActions(s)
	assert.Equal(t, []ActionKind{Fold, Check, Bet}, kinds(actions))
	for _, a := range actions {
		if a.Kind == Bet {
			assert.Equal(t, 10, a.Min)
			assert.Equal(t, 1000, a.Max)
		}
	}
}

func TestLegalActionsFacingBet(t *testing.T) {
	br := newBettingRound(10, -1)
	br.currentBet = 100
	br.minRaise = 100

	actions := br.legalActions(seatWith(0, 1000, 0))
	assert.Equal(t, []ActionKind{Fold, Call, Raise}, kinds(actions))
	for _, a := range actions {
		if a.Kind == Raise {
			assert.Equal(t, 200, a.Min)
			assert.Equal(t, 1000, a.Max)
		}
	}
}

func TestLegalActionsShortStackFacingBet(t *testing.T) {
	br := newBettingRound(10, -1)
	br.currentBet = 100
	br.minRaise = 100

	// Stack covers the call but not a full raise: all-in is the only way up.
	actions := br.legalActions(seatWith(0, 150, 0))
	assert.Equal(t, []ActionKind{Fold, Call, AllIn}, kinds(actions))
}

func TestCheckRequiresMatchedBet(t *testing.T) {
	br := newBettingRound(10, -1)
	br.currentBet = 50

	_, err := br.apply(seatWith(0, 1000, 0), Check, 0)
	assert.ErrorIs(t, err, ErrIllegalAction)

	_, err = br.apply(seatWith(1, 1000, 50), Check, 0)
	assert.NoError(t, err)
}

func TestBetBelowBigBlindRejected(t *testing.T) {
	br := newBettingRound(10, -1)
	_, err := br.apply(seatWith(0, 1000, 0), Bet, 5)
	assert.ErrorIs(t, err, ErrIllegalAction)
}

func TestShortStackMayOpenAllInBelowBigBlind(t *testing.T) {
	br := newBettingRound(10, -1)
	s := seatWith(0, 7, 0)
	paid, err := br.apply(s, Bet, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, paid)
	assert.True(t, s.AllIn)
	assert.Equal(t, 7, br.currentBet)
}

func TestRaiseBelowMinimumRejected(t *testing.T) {
	br := newBettingRound(10, -1)
	br.currentBet = 100
	br.minRaise = 100

	_, err := br.apply(seatWith(0, 1000, 0), Raise, 150)
	assert.ErrorIs(t, err, ErrIllegalAction)
}

func TestFullRaiseMovesMinRaiseAndReopens(t *testing.T) {
	br := newBettingRound(10, -1)
	a := seatWith(0, 1000, 0)
	b := seatWith(1, 1000, 0)

	_, err := br.apply(a, Bet, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, br.currentBet)
	assert.Equal(t, 100, br.minRaise)
	assert.True(t, br.acted[0])

	_, err = br.apply(b, Raise, 300)
	require.NoError(t, err)
	assert.Equal(t, 300, br.currentBet)
	assert.Equal(t, 200, br.minRaise)
	// Action re-opened for the original bettor.
	assert.False(t, br.acted[0])
	assert.False(t, br.reopenBarred(0))
}

func TestIncompleteAllInRaiseDoesNotReopen(t *testing.T) {
	br := newBettingRound(10, -1)
	a := seatWith(0, 1000, 0)
	b := seatWith(1, 150, 0) // can only all-in to 150 over a 100 bet

	_, err := br.apply(a, Bet, 100)
	require.NoError(t, err)

	paid, err := br.apply(b, AllIn, 0)
	require.NoError(t, err)
	assert.Equal(t, 150, paid)
	assert.True(t, b.AllIn)

	// Price to call moved, minimum raise did not, action did not re-open.
	assert.Equal(t, 150, br.currentBet)
	assert.Equal(t, 100, br.minRaise)
	assert.True(t, br.acted[0])
	assert.True(t, br.reopenBarred(0))

	// The original bettor may only call or fold now.
	actions := br.legalActions(a)
	assert.Equal(t, []ActionKind{Fold, Call}, kinds(actions))
	_, err = br.apply(a, Raise, 300)
	assert.ErrorIs(t, err, ErrIllegalAction)

	paid, err = br.apply(a, Call, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, paid)
}

func TestFullRaiseAfterIncompleteReopensForOthers(t *testing.T) {
	br := newBettingRound(10, -1)
	a := seatWith(0, 1000, 0)
	b := seatWith(1, 150, 0)
	c := seatWith(2, 1000, 0)

	_, err := br.apply(a, Bet, 100)
	require.NoError(t, err)
	_, err = br.apply(b, AllIn, 0)
	require.NoError(t, err)

	// c never acted, so a full raise is open to it: min is 150+100.
	_, err = br.apply(c, Raise, 200)
	assert.ErrorIs(t, err, ErrIllegalAction)
	_, err = br.apply(c, Raise, 250)
	require.NoError(t, err)

	assert.Equal(t, 250, br.currentBet)
	assert.Equal(t, 100, br.minRaise)
	assert.False(t, br.reopenBarred(0))
}

func TestShortAllInCall(t *testing.T) {
	br := newBettingRound(10, -1)
	br.currentBet = 500

	s := seatWith(0, 200, 0)
	paid, err := br.apply(s, AllIn, 0)
	require.NoError(t, err)
	assert.Equal(t, 200, paid)
	assert.True(t, s.AllIn)
	// A short call never moves the bet.
	assert.Equal(t, 500, br.currentBet)
}

func TestRaiseOverStackRejected(t *testing.T) {
	br := newBettingRound(10, -1)
	br.currentBet = 100
	br.minRaise = 100

	_, err := br.apply(seatWith(0, 150, 0), Raise, 300)
	assert.ErrorIs(t, err, ErrIllegalAction)
}

func TestCompleteWaitsForBigBlindOption(t *testing.T) {
	br := newBettingRound(10, 2)
	a := seatWith(0, 990, 0)
	sb := seatWith(1, 995, 5)
	bb := seatWith(2, 990, 10)
	br.currentBet = 10
	seats := []*Seat{a, sb, bb}

	_, err := br.apply(a, Call, 0)
	require.NoError(t, err)
	_, err = br.apply(sb, Call, 0)
	require.NoError(t, err)

	// Everyone matched, but the big blind still has the option.
	assert.False(t, br.complete(seats))

	_, err = br.apply(bb, Check, 0)
	require.NoError(t, err)
	assert.True(t, br.complete(seats))
}

func TestCompleteWhenEveryoneAllInOrFolded(t *testing.T) {
	br := newBettingRound(10, -1)
	a := seatWith(0, 0, 100)
	a.AllIn = true
	b := seatWith(1, 1000, 20)
	b.Folded = true
	assert.True(t, br.complete([]*Seat{a, b, nil}))
}
