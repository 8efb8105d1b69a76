package table

import (
	"fmt"
	"time"
)

// Phase is the table lifecycle state. Betting streets are phases of their
// own so a snapshot can pin down exactly where a hand stopped.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhasePreflop
	PhaseFlop
	PhaseTurn
	PhaseRiver
	PhaseShowdown
	PhaseHandComplete
	PhaseClosed
)

func (p Phase) String() string {
	return [...]string{"waiting", "preflop", "flop", "turn", "river", "showdown", "handComplete", "closed"}[p]
}

// ParsePhase maps a wire phase name back to a Phase, for snapshot restore.
func ParsePhase(s string) (Phase, error) {
	for p := PhaseWaiting; p <= PhaseClosed; p++ {
		if p.String() == s {
			return p, nil
		}
	}
	return PhaseWaiting, fmt.Errorf("unknown phase %q", s)
}

// ActionKind is a player betting action.
type ActionKind int

const (
	Fold ActionKind = iota
	Check
	Call
	Bet
	Raise
	AllIn
)

func (a ActionKind) String() string {
	return [...]string{"fold", "check", "call", "bet", "raise", "allIn"}[a]
}

// ParseActionKind maps a wire action name back to an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	for a := Fold; a <= AllIn; a++ {
		if a.String() == s {
			return a, nil
		}
	}
	return Fold, fmt.Errorf("unknown action %q", s)
}

// LegalAction is one action currently open to the acting seat. Min and Max
// are raise-to totals for Bet and Raise, zero otherwise.
type LegalAction struct {
	Kind ActionKind
	Min  int
	Max  int
}

// Config holds per-table parameters. Zero values are filled by withDefaults.
type Config struct {
	MaxSeats        int
	SmallBlind      int
	BigBlind        int
	MinBuyIn        int
	MaxBuyIn        int
	TurnTimeout     time.Duration
	PostHandDelay   time.Duration
	SitOutHandLimit int
}

func (c *Config) withDefaults() {
	if c.MaxSeats <= 0 || c.MaxSeats > 8 {
		c.MaxSeats = 8
	}
	if c.SmallBlind <= 0 {
		c.SmallBlind = 5
	}
	if c.BigBlind <= 0 {
		c.BigBlind = c.SmallBlind * 2
	}
	if c.MinBuyIn <= 0 {
		c.MinBuyIn = c.BigBlind * 20
	}
	if c.MaxBuyIn <= 0 {
		c.MaxBuyIn = c.BigBlind * 200
	}
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = 30 * time.Second
	}
	if c.PostHandDelay <= 0 {
		c.PostHandDelay = 10 * time.Second
	}
	if c.SitOutHandLimit <= 0 {
		c.SitOutHandLimit = 3
	}
}
