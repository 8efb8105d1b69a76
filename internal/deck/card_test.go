package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardString(t *testing.T) {
	assert.Equal(t, "A♠", NewCard(Spades, Ace).String())
	assert.Equal(t, "T♥", NewCard(Hearts, Ten).String())
	assert.Equal(t, "2♣", NewCard(Clubs, Two).String())
}

func TestCardCode(t *testing.T) {
	assert.Equal(t, "As", NewCard(Spades, Ace).Code())
	assert.Equal(t, "9d", NewCard(Diamonds, Nine).Code())
	assert.Equal(t, "Kc", NewCard(Clubs, King).Code())
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		code string
		want Card
	}{
		{"As", NewCard(Spades, Ace)},
		{"Th", NewCard(Hearts, Ten)},
		{"2c", NewCard(Clubs, Two)},
		{"Qd", NewCard(Diamonds, Queen)},
	}

	for _, tt := range tests {
		got, err := ParseCode(tt.code)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseCodeInvalid(t *testing.T) {
	for _, code := range []string{"", "A", "Asd", "1s", "Ax"} {
		_, err := ParseCode(code)
		assert.Error(t, err, "code %q", code)
	}
}

func TestCodesRoundTrip(t *testing.T) {
	cards := []Card{
		NewCard(Spades, Ace),
		NewCard(Hearts, Five),
		NewCard(Diamonds, Jack),
	}
	parsed, err := ParseCodes(Codes(cards))
	require.NoError(t, err)
	assert.Equal(t, cards, parsed)
}

func TestCardValue(t *testing.T) {
	assert.Equal(t, 14, NewCard(Spades, Ace).Value())
	assert.Equal(t, 2, NewCard(Hearts, Two).Value())
	assert.Equal(t, 11, NewCard(Clubs, Jack).Value())
}
