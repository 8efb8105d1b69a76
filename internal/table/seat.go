package table

import "github.com/cardroomlabs/holdemd/internal/deck"

// Seat is one occupied position at the table. All fields are owned by the
// table executor goroutine.
type Seat struct {
	Index    int
	PlayerID string
	Name     string

	Stack     int
	RoundBet  int // chips in front this street
	Committed int // total chips put in this hand

	Folded     bool
	AllIn      bool
	SittingOut bool

	Hole []deck.Card

	handsSatOut int  // consecutive hands missed while broke or sitting out
	departed    bool // left mid-hand; chips stay in the pot, seat clears at hand end
}

// inHand reports whether the seat was dealt in and has not folded.
func (s *Seat) inHand() bool {
	return len(s.Hole) > 0 && !s.Folded
}

// canAct reports whether the seat can still take betting actions.
func (s *Seat) canAct() bool {
	return s.inHand() && !s.AllIn
}

// pay moves up to amount from the stack into the current street's bet,
// returning what was actually paid. Paying the whole stack marks all-in.
func (s *Seat) pay(amount int) int {
	if amount > s.Stack {
		amount = s.Stack
	}
	s.Stack -= amount
	s.RoundBet += amount
	s.Committed += amount
	if s.Stack == 0 {
		s.AllIn = true
	}
	return amount
}

// resetForHand clears per-hand state while keeping the player seated.
func (s *Seat) resetForHand() {
	s.RoundBet = 0
	s.Committed = 0
	s.Folded = false
	s.AllIn = false
	s.Hole = nil
}
