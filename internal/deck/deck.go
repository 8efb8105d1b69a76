package deck

import (
	"errors"
	rand "math/rand/v2"
)

// ErrEmpty is returned when drawing or burning from an exhausted deck.
var ErrEmpty = errors.New("deck: no cards remaining")

// Deck is an ordered set of unique cards. Cards are drawn from the tail.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// New creates a full 52-card deck shuffled with the provided random source.
// Callers seed the source once per table (randutil.NewCrypto in production);
// the deck itself is never reseeded.
func New(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, 52),
		rng:   rng,
	}

	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}

	d.Shuffle()
	return d
}

// NewStacked creates an unshuffled deck that deals the given cards in order.
// Used by tests that need deterministic boards.
func NewStacked(cards ...Card) *Deck {
	d := &Deck{cards: make([]Card, len(cards))}
	// Draw takes from the tail, so store in reverse.
	for i, c := range cards {
		d.cards[len(cards)-1-i] = c
	}
	return d
}

// Shuffle applies a Fisher-Yates shuffle over the injected random source.
func (d *Deck) Shuffle() {
	if d.rng == nil {
		return
	}
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Draw removes and returns the top card.
func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrEmpty
	}
	card := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return card, nil
}

// Burn discards the top card before dealing a street.
func (d *Deck) Burn() error {
	_, err := d.Draw()
	return err
}

// Remaining returns the number of cards left.
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Contents returns the remaining cards in draw order, for snapshots.
func (d *Deck) Contents() []Card {
	out := make([]Card, len(d.cards))
	for i := range d.cards {
		out[i] = d.cards[len(d.cards)-1-i]
	}
	return out
}
