package table

import (
	"context"
	"fmt"

	"github.com/cardroomlabs/holdemd/internal/deck"
	"github.com/cardroomlabs/holdemd/internal/store"
)

// saveSnapshot persists the table's recovery image. Snapshots are written
// at hand start, at each street, and at hand end, so a restart loses at
// most the betting inside one street.
func (t *Table) saveSnapshot() {
	if t.snaps == nil {
		return
	}

	snap := &store.Snapshot{
		TableID:    t.ID,
		HandNumber: t.handNumber,
		Seq:        t.seq,
		Phase:      t.phase.String(),
		Button:     t.button,
		SmallBlind: t.cfg.SmallBlind,
		BigBlind:   t.cfg.BigBlind,
		Community:  deck.Codes(t.community),
		Actor:      t.actor,
		CreatorID:  t.CreatorID,
		TakenAt:    t.clock.Now().UTC(),
	}
	if t.d != nil {
		snap.DeckRest = deck.Codes(t.d.Contents())
	}
	if t.betting != nil && t.handInProgress() {
		snap.CurrentBet = t.betting.currentBet
		snap.MinRaise = t.betting.minRaise
	}
	for _, s := range t.seats {
		if s == nil || s.departed {
			continue
		}
		snap.Seats = append(snap.Seats, store.SeatSnapshot{
			Seat:       s.Index,
			PlayerID:   s.PlayerID,
			Name:       s.Name,
			Stack:      s.Stack,
			Committed:  s.Committed,
			RoundBet:   s.RoundBet,
			Folded:     s.Folded,
			AllIn:      s.AllIn,
			SittingOut: s.SittingOut,
			Hole:       deck.Codes(s.Hole),
		})
	}

	if err := t.snaps.SaveSnapshot(context.Background(), snap); err != nil {
		t.logger.Error("snapshot save failed", "hand", t.handNumber, "err", err)
	}
}

// Restore rebuilds a table from its recovery snapshot and resumes play. A
// hand stopped mid-street picks up at the snapshot's actor with a fresh
// turn deadline; the stacked remainder of the deck replays the same cards.
func Restore(snap *store.Snapshot, cfg Config, opts Options) (*Table, error) {
	phase, err := ParsePhase(snap.Phase)
	if err != nil {
		return nil, err
	}
	if phase == PhaseClosed {
		return nil, fmt.Errorf("table %s: snapshot is of a closed table", snap.TableID)
	}

	community, err := deck.ParseCodes(snap.Community)
	if err != nil {
		return nil, fmt.Errorf("table %s: bad community cards: %w", snap.TableID, err)
	}
	rest, err := deck.ParseCodes(snap.DeckRest)
	if err != nil {
		return nil, fmt.Errorf("table %s: bad deck remainder: %w", snap.TableID, err)
	}

	t := New(snap.TableID, snap.CreatorID, cfg, opts)

	restoreErr := t.call(func() error {
		t.phase = phase
		t.handNumber = snap.HandNumber
		t.seq = snap.Seq
		t.button = snap.Button
		t.community = community
		t.actor = snap.Actor
		if len(rest) > 0 {
			t.d = deck.NewStacked(rest...)
		}

		t.dealtCards = make(map[deck.Card]bool)
		for _, c := range community {
			t.dealtCards[c] = true
		}

		for _, ss := range snap.Seats {
			if ss.Seat < 0 || ss.Seat >= t.cfg.MaxSeats {
				return fmt.Errorf("seat %d out of range", ss.Seat)
			}
			hole, err := deck.ParseCodes(ss.Hole)
			if err != nil {
				return fmt.Errorf("seat %d: bad hole cards: %w", ss.Seat, err)
			}
			for _, c := range hole {
				t.dealtCards[c] = true
			}
			t.seats[ss.Seat] = &Seat{
				Index:      ss.Seat,
				PlayerID:   ss.PlayerID,
				Name:       ss.Name,
				Stack:      ss.Stack,
				Committed:  ss.Committed,
				RoundBet:   ss.RoundBet,
				Folded:     ss.Folded,
				AllIn:      ss.AllIn,
				SittingOut: ss.SittingOut,
				Hole:       hole,
			}
		}

		if t.handInProgress() {
			bbSeat := -1
			if t.phase == PhasePreflop {
				bbSeat = t.preflopBigBlindSeat()
			}
			t.betting = newBettingRound(t.cfg.BigBlind, bbSeat)
			t.betting.currentBet = snap.CurrentBet
			t.betting.minRaise = snap.MinRaise
			if t.betting.minRaise <= 0 {
				t.betting.minRaise = t.cfg.BigBlind
			}

			for _, s := range t.seats {
				if s != nil && len(s.Hole) > 0 {
					t.sendHoleCards(s)
				}
			}
			if t.actor >= 0 && t.seats[t.actor] != nil && t.seats[t.actor].canAct() {
				t.promptActor()
			} else {
				t.continueFrom(t.button + 1)
			}
		} else if t.phase == PhaseHandComplete {
			t.finishHand()
		}

		t.broadcastState()
		t.logger.Info("table restored", "phase", t.phase, "hand", t.handNumber)
		return nil
	})
	if restoreErr != nil {
		t.Close("restore failed")
		return nil, restoreErr
	}
	return t, nil
}

// preflopBigBlindSeat recomputes which seat holds the big blind from the
// button and the seats dealt into the hand.
func (t *Table) preflopBigBlindSeat() int {
	var dealt []int
	for _, s := range t.seats {
		if s != nil && len(s.Hole) > 0 {
			dealt = append(dealt, s.Index)
		}
	}
	if len(dealt) < 2 {
		return -1
	}
	if len(dealt) == 2 {
		return t.nextSeatIndex(t.button+1, dealt)
	}
	sb := t.nextSeatIndex(t.button+1, dealt)
	return t.nextSeatIndex(sb+1, dealt)
}
