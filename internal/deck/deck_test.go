package deck

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroomlabs/holdemd/internal/randutil"
)

func TestNewDeckHas52UniqueCards(t *testing.T) {
	d := New(randutil.New(1))
	require.Equal(t, 52, d.Remaining())

	seen := make(map[Card]bool)
	for d.Remaining() > 0 {
		card, err := d.Draw()
		require.NoError(t, err)
		require.False(t, seen[card], "duplicate card %s", card)
		seen[card] = true
	}
	assert.Len(t, seen, 52)
}

func TestDrawEmpty(t *testing.T) {
	d := NewStacked(NewCard(Spades, Ace))
	_, err := d.Draw()
	require.NoError(t, err)
	_, err = d.Draw()
	assert.ErrorIs(t, err, ErrEmpty)
	assert.ErrorIs(t, d.Burn(), ErrEmpty)
}

func TestBurnDiscardsOne(t *testing.T) {
	d := New(randutil.New(2))
	require.NoError(t, d.Burn())
	assert.Equal(t, 51, d.Remaining())
}

func TestStackedDealsInOrder(t *testing.T) {
	want := []Card{
		NewCard(Spades, Ace),
		NewCard(Hearts, King),
		NewCard(Diamonds, Two),
	}
	d := NewStacked(want...)
	for _, expected := range want {
		got, err := d.Draw()
		require.NoError(t, err)
		assert.Equal(t, expected, got)
	}
}

func TestContentsMatchesDrawOrder(t *testing.T) {
	d := New(randutil.New(3))
	contents := d.Contents()
	require.Len(t, contents, 52)
	for _, expected := range contents {
		got, err := d.Draw()
		require.NoError(t, err)
		assert.Equal(t, expected, got)
	}
}

// TestShuffleUniformFirstCard checks that the first drawn card is uniformly
// distributed across many shuffles. With 100k trials each card should appear
// about 1923 times; a chi-squared statistic above 290 for 51 degrees of
// freedom would be far outside chance (p < 1e-6 is roughly 120).
func TestShuffleUniformFirstCard(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping distribution test in short mode")
	}

	const trials = 100_000
	rng := randutil.New(42)
	counts := make(map[Card]int, 52)

	for i := 0; i < trials; i++ {
		d := New(rng)
		card, err := d.Draw()
		require.NoError(t, err)
		counts[card]++
	}

	require.Len(t, counts, 52, "every card should appear as first card")

	expected := float64(trials) / 52.0
	chi2 := 0.0
	for _, n := range counts {
		diff := float64(n) - expected
		chi2 += diff * diff / expected
	}
	assert.Less(t, chi2, 290.0, "first-card distribution deviates from uniform, chi2=%f", chi2)

	// No single card should deviate wildly either.
	for card, n := range counts {
		assert.InDelta(t, expected, float64(n), 6*math.Sqrt(expected), "card %s count %d", card, n)
	}
}
