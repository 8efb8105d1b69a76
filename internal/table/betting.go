package table

import (
	"errors"
	"fmt"
)

var (
	ErrNotYourTurn   = errors.New("table: not your turn")
	ErrIllegalAction = errors.New("table: illegal action")
)

// bettingRound holds the state of one betting street.
type bettingRound struct {
	currentBet int
	minRaise   int
	bigBlind   int

	acted map[int]bool

	// bbSeat gets the preflop option: even with all bets matched the big
	// blind may still check or raise. -1 on later streets.
	bbSeat  int
	bbActed bool

	// noReopen is set when an all-in raise fell short of a full raise.
	// Seats that already acted may then only call or fold.
	noReopen bool
}

func newBettingRound(bigBlind, bbSeat int) *bettingRound {
	return &bettingRound{
		minRaise: bigBlind,
		bigBlind: bigBlind,
		bbSeat:   bbSeat,
		acted:    make(map[int]bool),
	}
}

// resetForStreet clears per-street state for the flop, turn, and river.
func (br *bettingRound) resetForStreet() {
	br.currentBet = 0
	br.minRaise = br.bigBlind
	br.bbSeat = -1
	br.acted = make(map[int]bool)
	br.noReopen = false
}

// reopenBarred reports whether the seat is barred from raising because an
// incomplete all-in raise arrived after it already acted.
func (br *bettingRound) reopenBarred(seat int) bool {
	return br.noReopen && br.acted[seat]
}

// legalActions returns the actions open to the seat, with raise-to bounds.
func (br *bettingRound) legalActions(s *Seat) []LegalAction {
	actions := []LegalAction{{Kind: Fold}}
	toCall := br.currentBet - s.RoundBet
	allInTotal := s.Stack + s.RoundBet

	if toCall <= 0 {
		actions = append(actions, LegalAction{Kind: Check})
	} else if s.Stack > 0 {
		actions = append(actions, LegalAction{Kind: Call})
	}

	if br.reopenBarred(s.Index) {
		return actions
	}

	if br.currentBet == 0 {
		if s.Stack > 0 {
			maxBet := allInTotal
			minBet := br.bigBlind
			if minBet > maxBet {
				minBet = maxBet // short stack may open all-in below the big blind
			}
			actions = append(actions, LegalAction{Kind: Bet, Min: minBet, Max: maxBet})
		}
	} else if allInTotal > br.currentBet {
		minRaiseTo := br.currentBet + br.minRaise
		if allInTotal >= minRaiseTo {
			actions = append(actions, LegalAction{Kind: Raise, Min: minRaiseTo, Max: allInTotal})
		} else {
			// Only an incomplete all-in raise is possible.
			actions = append(actions, LegalAction{Kind: AllIn, Min: allInTotal, Max: allInTotal})
		}
	}

	return actions
}

// markActed records that the seat took an action this street, which also
// consumes the big blind's preflop option.
func (br *bettingRound) markActed(idx int) {
	br.acted[idx] = true
	if idx == br.bbSeat {
		br.bbActed = true
	}
}

// apply validates and executes one action for the seat, returning the chips
// the seat paid. amount is the raise-to total for Bet and Raise.
func (br *bettingRound) apply(s *Seat, kind ActionKind, amount int) (int, error) {
	switch kind {
	case Fold:
		s.Folded = true
		br.markActed(s.Index)
		return 0, nil

	case Check:
		if br.currentBet != s.RoundBet {
			return 0, fmt.Errorf("%w: cannot check, %d to call", ErrIllegalAction, br.currentBet-s.RoundBet)
		}
		br.markActed(s.Index)
		return 0, nil

	case Call:
		toCall := br.currentBet - s.RoundBet
		if toCall <= 0 {
			return 0, fmt.Errorf("%w: nothing to call", ErrIllegalAction)
		}
		paid := s.pay(toCall)
		br.markActed(s.Index)
		return paid, nil

	case Bet:
		if br.currentBet != 0 {
			return 0, fmt.Errorf("%w: cannot bet into a live bet, raise instead", ErrIllegalAction)
		}
		return br.applyRaiseTo(s, amount)

	case Raise:
		if br.currentBet == 0 {
			return 0, fmt.Errorf("%w: nothing to raise, bet instead", ErrIllegalAction)
		}
		return br.applyRaiseTo(s, amount)

	case AllIn:
		total := s.Stack + s.RoundBet
		if total <= br.currentBet {
			// Short all-in call.
			paid := s.pay(s.Stack)
			br.markActed(s.Index)
			return paid, nil
		}
		return br.applyRaiseTo(s, total)

	default:
		return 0, fmt.Errorf("%w: unknown action", ErrIllegalAction)
	}
}

// applyRaiseTo moves the current bet to the raise-to total amount, handling
// the incomplete all-in raise rule: an all-in that falls short of a full
// raise updates the price to call but does not move the minimum raise and
// does not re-open action for seats that already acted.
func (br *bettingRound) applyRaiseTo(s *Seat, amount int) (int, error) {
	allInTotal := s.Stack + s.RoundBet

	if amount <= br.currentBet {
		return 0, fmt.Errorf("%w: raise to %d does not exceed current bet %d", ErrIllegalAction, amount, br.currentBet)
	}
	if amount > allInTotal {
		return 0, fmt.Errorf("%w: raise to %d exceeds stack", ErrIllegalAction, amount)
	}
	if br.reopenBarred(s.Index) {
		return 0, fmt.Errorf("%w: action was not re-opened", ErrIllegalAction)
	}

	minRaiseTo := br.currentBet + br.minRaise
	if br.currentBet == 0 && amount < br.bigBlind && amount < allInTotal {
		return 0, fmt.Errorf("%w: bet %d below big blind %d", ErrIllegalAction, amount, br.bigBlind)
	}
	if br.currentBet > 0 && amount < minRaiseTo && amount < allInTotal {
		return 0, fmt.Errorf("%w: raise to %d below minimum %d", ErrIllegalAction, amount, minRaiseTo)
	}

	full := br.currentBet == 0 || amount >= minRaiseTo
	paid := s.pay(amount - s.RoundBet)

	if full {
		br.minRaise = amount - br.currentBet
		if br.currentBet == 0 && br.minRaise < br.bigBlind && !s.AllIn {
			br.minRaise = br.bigBlind
		}
		br.currentBet = amount
		// Everyone gets to act again on a full raise.
		br.acted = make(map[int]bool)
		br.noReopen = false
	} else {
		// Incomplete all-in raise: price moves, action does not re-open.
		br.currentBet = amount
		br.noReopen = true
	}
	br.markActed(s.Index)

	return paid, nil
}

// complete reports whether the street's betting is finished: every seat that
// can still act has acted and matched the current bet, and preflop the big
// blind has had its option.
func (br *bettingRound) complete(seats []*Seat) bool {
	for _, s := range seats {
		if s == nil || !s.canAct() {
			continue
		}
		if !br.acted[s.Index] || s.RoundBet != br.currentBet {
			return false
		}
	}
	if br.bbSeat >= 0 && !br.bbActed {
		for _, s := range seats {
			if s != nil && s.Index == br.bbSeat && s.canAct() {
				return false
			}
		}
	}
	return true
}
