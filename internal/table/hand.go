package table

import (
	"context"
	"fmt"
	"time"

	"github.com/cardroomlabs/holdemd/internal/deck"
	"github.com/cardroomlabs/holdemd/internal/evaluator"
	"github.com/cardroomlabs/holdemd/internal/protocol"
)

// beginHand starts a new hand: rotate the button, post blinds, deal hole
// cards one at a time twice around from the seat left of the button.
func (t *Table) beginHand() {
	dealt := t.dealableSeats()
	if len(dealt) < 2 {
		t.phase = PhaseWaiting
		t.broadcastState()
		return
	}

	t.handNumber++
	t.community = nil
	for _, s := range t.seats {
		if s != nil {
			s.resetForHand()
		}
	}

	t.button = t.nextSeatIndex(t.button+1, dealt)
	if t.d == nil {
		t.d = deck.New(t.rng)
	}

	headsUp := len(dealt) == 2
	var sbSeat, bbSeat int
	if headsUp {
		// Heads-up the button posts the small blind and acts first preflop.
		sbSeat = t.button
		bbSeat = t.nextSeatIndex(t.button+1, dealt)
	} else {
		sbSeat = t.nextSeatIndex(t.button+1, dealt)
		bbSeat = t.nextSeatIndex(sbSeat+1, dealt)
	}

	t.betting = newBettingRound(t.cfg.BigBlind, bbSeat)
	t.phase = PhasePreflop
	t.actor = -1

	t.seq++
	t.broadcast(protocol.TypeHandStarted, protocol.HandStartedData{
		TableID:    t.ID,
		Seq:        t.seq,
		HandNumber: t.handNumber,
		Button:     t.button,
		SmallBlind: t.cfg.SmallBlind,
		BigBlind:   t.cfg.BigBlind,
		Seats:      t.seatViews(),
	})
	t.logger.Info("hand started", "hand", t.handNumber, "button", t.button, "players", len(dealt))

	sbPaid := t.seats[sbSeat].pay(t.cfg.SmallBlind)
	t.logAction(t.seats[sbSeat], "post_small_blind", sbPaid)
	bbPaid := t.seats[bbSeat].pay(t.cfg.BigBlind)
	t.logAction(t.seats[bbSeat], "post_big_blind", bbPaid)
	t.betting.currentBet = t.cfg.BigBlind

	if !t.dealHoleCards(dealt) {
		return // duplicate card, hand aborted
	}
	for _, idx := range dealt {
		t.sendHoleCards(t.seats[idx])
	}

	t.saveSnapshot()
	t.continueFrom(bbSeat + 1)
}

// dealableSeats returns seat indexes dealt into the next hand, in clockwise
// order from the seat left of the button.
func (t *Table) dealableSeats() []int {
	var out []int
	start := t.button + 1
	if t.button < 0 {
		start = 0
	}
	for i := 0; i < t.cfg.MaxSeats; i++ {
		idx := (start + i) % t.cfg.MaxSeats
		s := t.seats[idx]
		if s != nil && s.Stack > 0 && !s.SittingOut && !s.departed {
			out = append(out, idx)
		}
	}
	return out
}

// nextSeatIndex returns the first index in candidates at or after from,
// wrapping clockwise.
func (t *Table) nextSeatIndex(from int, candidates []int) int {
	for i := 0; i < t.cfg.MaxSeats; i++ {
		idx := (from + i) % t.cfg.MaxSeats
		for _, c := range candidates {
			if c == idx {
				return idx
			}
		}
	}
	return -1
}

// dealHoleCards deals one card at a time, twice around, starting left of
// the button. Returns false if a duplicate card aborted the hand.
func (t *Table) dealHoleCards(dealt []int) bool {
	order := make([]int, 0, len(dealt))
	start := t.nextSeatIndex(t.button+1, dealt)
	for i := 0; i < len(dealt); i++ {
		order = append(order, t.nextSeatIndex(start, dealt))
		start = order[len(order)-1] + 1
	}

	seen := make(map[deck.Card]bool, len(dealt)*2+5)
	for round := 0; round < 2; round++ {
		for _, idx := range order {
			card, err := t.d.Draw()
			if err != nil || seen[card] {
				t.abortHand("bad deal: duplicate or missing card")
				t.finishHand()
				return false
			}
			seen[card] = true
			t.seats[idx].Hole = append(t.seats[idx].Hole, card)
		}
	}
	t.dealtCards = seen
	return true
}

// continueFrom advances the hand after an action: end it if at most one
// seat remains, move to the next street when betting is settled, otherwise
// prompt the next seat that still owes action.
func (t *Table) continueFrom(from int) {
	if t.liveCount() <= 1 {
		t.finishUncontested()
		return
	}
	if t.betting.complete(t.seats) {
		t.advanceStreet()
		return
	}
	// With at most one seat still able to act and no bet left to match,
	// betting is over for the hand; run the board out to showdown.
	if t.actableCount() < 2 && !t.betOutstanding() {
		t.advanceStreet()
		return
	}
	t.actor = t.nextNeedingAction(from)
	if t.actor < 0 {
		t.advanceStreet()
		return
	}
	t.promptActor()
}

func (t *Table) actableCount() int {
	n := 0
	for _, s := range t.seats {
		if s != nil && s.canAct() {
			n++
		}
	}
	return n
}

// betOutstanding reports whether any seat that can still act owes chips to
// the current bet.
func (t *Table) betOutstanding() bool {
	for _, s := range t.seats {
		if s != nil && s.canAct() && s.RoundBet != t.betting.currentBet {
			return true
		}
	}
	return false
}

func (t *Table) liveCount() int {
	n := 0
	for _, s := range t.seats {
		if s != nil && s.inHand() {
			n++
		}
	}
	return n
}

// nextNeedingAction finds the next seat clockwise from from that can act
// and has not yet matched the current bet (or still holds the big blind
// option).
func (t *Table) nextNeedingAction(from int) int {
	for i := 0; i < t.cfg.MaxSeats; i++ {
		idx := ((from + i) % t.cfg.MaxSeats + t.cfg.MaxSeats) % t.cfg.MaxSeats
		s := t.seats[idx]
		if s == nil || !s.canAct() {
			continue
		}
		if !t.betting.acted[idx] || s.RoundBet != t.betting.currentBet {
			return idx
		}
	}
	return -1
}

// applyAction validates and executes the actor's move, then advances.
func (t *Table) applyAction(s *Seat, kind ActionKind, amount int, label string) error {
	paid, err := t.betting.apply(s, kind, amount)
	if err != nil {
		return err
	}
	t.stopTurnTimer()
	if kind == AllIn || (paid > 0 && s.AllIn) {
		label = AllIn.String()
	}
	t.logAction(s, label, paid)
	t.continueFrom(s.Index + 1)
	return nil
}

// forceFold folds a seat out of turn, for leaves and disconnect cleanup.
func (t *Table) forceFold(s *Seat, label string) {
	if !s.inHand() {
		return
	}
	wasActor := t.actor == s.Index
	_, _ = t.betting.apply(s, Fold, 0)
	t.logAction(s, label, 0)

	if wasActor {
		t.stopTurnTimer()
		t.continueFrom(s.Index + 1)
		return
	}

	// An out-of-turn fold ends the hand when it leaves one seat standing;
	// otherwise the current actor's turn, deadline, and timer stand as is.
	if t.liveCount() <= 1 {
		t.stopTurnTimer()
		t.finishUncontested()
		return
	}
	if t.actor < 0 {
		t.continueFrom(s.Index + 1)
	}
}

// promptActor schedules the turn deadline and notifies the table and the
// acting player. The token makes a late timer fire for a prior turn moot.
func (t *Table) promptActor() {
	s := t.seats[t.actor]
	t.turnToken++
	token := t.turnToken
	t.deadline = t.clock.Now().Add(t.cfg.TurnTimeout)
	t.turnTimer = t.clock.AfterFunc(t.cfg.TurnTimeout, func() {
		t.post(func() { t.onTurnTimeout(token) })
	})

	t.seq++
	t.broadcast(protocol.TypeTurnChanged, protocol.TurnChangedData{
		TableID:  t.ID,
		Seq:      t.seq,
		Seat:     t.actor,
		Deadline: t.deadline,
	})
	t.sendTurnPrompt(s)
}

// onTurnTimeout applies the default action for an expired turn: check when
// legal, otherwise fold. The seat is marked sitting out.
func (t *Table) onTurnTimeout(token uint64) {
	if token != t.turnToken || !t.handInProgress() || t.actor < 0 {
		return
	}
	s := t.seats[t.actor]
	if s == nil {
		return
	}
	s.SittingOut = true

	kind, label := Fold, "timeout_fold"
	if t.betting.currentBet == s.RoundBet {
		kind, label = Check, "timeout_check"
	}
	t.logger.Info("turn timed out", "hand", t.handNumber, "seat", s.Index, "default", kind)
	if err := t.applyAction(s, kind, 0, label); err != nil {
		t.forceFold(s, "timeout_fold")
	}
}

func (t *Table) stopTurnTimer() {
	if t.turnTimer != nil {
		t.turnTimer.Stop()
		t.turnTimer = nil
	}
	t.turnToken++
	t.deadline = time.Time{}
}

// advanceStreet collects the street's bets and deals the next street,
// running out the board when nobody can act.
func (t *Table) advanceStreet() {
	for _, s := range t.seats {
		if s != nil {
			s.RoundBet = 0
		}
	}
	t.betting.resetForStreet()
	t.actor = -1

	var street string
	var n int
	switch t.phase {
	case PhasePreflop:
		t.phase, street, n = PhaseFlop, "flop", 3
	case PhaseFlop:
		t.phase, street, n = PhaseTurn, "turn", 1
	case PhaseTurn:
		t.phase, street, n = PhaseRiver, "river", 1
	case PhaseRiver:
		t.showdown()
		return
	default:
		return
	}

	if err := t.d.Burn(); err != nil {
		t.abortHand("bad deal: deck exhausted")
		t.finishHand()
		return
	}
	for i := 0; i < n; i++ {
		card, err := t.d.Draw()
		if err != nil || t.dealtCards[card] {
			t.abortHand("bad deal: duplicate or missing card")
			t.finishHand()
			return
		}
		t.dealtCards[card] = true
		t.community = append(t.community, card)
	}

	t.seq++
	t.broadcast(protocol.TypeStreetDealt, protocol.StreetDealtData{
		TableID:   t.ID,
		Seq:       t.seq,
		Street:    street,
		Community: deck.Codes(t.community),
	})
	t.saveSnapshot()

	t.continueFrom(t.button + 1)
}

// finishUncontested awards everything to the last seat standing without a
// showdown. No cards are revealed.
func (t *Table) finishUncontested() {
	var winner *Seat
	for _, s := range t.seats {
		if s != nil && s.inHand() {
			winner = s
			break
		}
	}
	if winner == nil {
		t.abortHand("no live seats")
		t.finishHand()
		return
	}

	layers, refunds := buildPots(t.seats)
	winnings := make(map[int]int)
	var pots []protocol.PotResultView
	for _, layer := range layers {
		winnings[winner.Index] += layer.Amount
		pots = append(pots, protocol.PotResultView{
			Amount: layer.Amount,
			Winners: []protocol.WinnerView{{
				Seat:   winner.Index,
				Name:   winner.Name,
				Amount: layer.Amount,
			}},
		})
	}
	t.resolveHand(winnings, refunds, pots)
}

// showdown builds the pot layers, evaluates every eligible hand, and
// awards each layer to its best hand(s), odd chips clockwise from the seat
// left of the button.
func (t *Table) showdown() {
	t.phase = PhaseShowdown
	t.actor = -1

	layers, refunds := buildPots(t.seats)
	results := make(map[int]evaluator.Result)
	for _, s := range t.seats {
		if s == nil || !s.inHand() {
			continue
		}
		res, err := evaluator.Evaluate(append(append([]deck.Card{}, s.Hole...), t.community...))
		if err != nil {
			t.abortHand(fmt.Sprintf("evaluation failed for seat %d", s.Index))
			t.finishHand()
			return
		}
		results[s.Index] = res
	}

	awardOrder := clockwiseFrom(t.button+1, t.cfg.MaxSeats)
	winnings := make(map[int]int)
	var pots []protocol.PotResultView

	for _, layer := range layers {
		var best []int
		for _, idx := range layer.Eligible {
			if len(best) == 0 {
				best = []int{idx}
				continue
			}
			switch results[idx].Compare(results[best[0]]) {
			case 1:
				best = []int{idx}
			case 0:
				best = append(best, idx)
			}
		}

		shares := splitPot(layer.Amount, best, awardOrder)
		view := protocol.PotResultView{Amount: layer.Amount}
		for _, idx := range best {
			winnings[idx] += shares[idx]
			s := t.seats[idx]
			res := results[idx]
			view.Winners = append(view.Winners, protocol.WinnerView{
				Seat:     idx,
				Name:     s.Name,
				Amount:   shares[idx],
				Cards:    deck.Codes(res.Cards),
				Category: res.Category.String(),
				Hole:     deck.Codes(s.Hole),
			})
		}
		pots = append(pots, view)
	}

	t.resolveHand(winnings, refunds, pots)
}

// resolveHand pays refunds and winnings into stacks, journals settlement,
// and announces the result.
func (t *Table) resolveHand(winnings, refunds map[int]int, pots []protocol.PotResultView) {
	deltas := make(map[string]int64)
	for _, s := range t.seats {
		if s == nil {
			continue
		}
		delta := winnings[s.Index] + refunds[s.Index] - s.Committed
		s.Stack += winnings[s.Index] + refunds[s.Index]
		s.Committed = 0
		s.RoundBet = 0
		if delta != 0 {
			deltas[s.PlayerID] = int64(delta)
		}
	}

	t.seq++
	t.broadcast(protocol.TypeHandResult, protocol.HandResultData{
		TableID:    t.ID,
		Seq:        t.seq,
		HandNumber: t.handNumber,
		Community:  deck.Codes(t.community),
		Pots:       pots,
		Timestamp:  t.clock.Now(),
	})
	t.logger.Info("hand resolved", "hand", t.handNumber, "pots", len(pots))

	t.settle(t.handNumber, deltas)
	t.finishHand()
}

// abortHand refunds every seat's committed chips and voids the hand.
func (t *Table) abortHand(reason string) {
	for _, s := range t.seats {
		if s == nil {
			continue
		}
		s.Stack += s.Committed
		s.Committed = 0
		s.RoundBet = 0
	}
	t.stopTurnTimer()
	t.actor = -1

	t.seq++
	t.broadcast(protocol.TypeHandResult, protocol.HandResultData{
		TableID:    t.ID,
		Seq:        t.seq,
		HandNumber: t.handNumber,
		Community:  deck.Codes(t.community),
		Timestamp:  t.clock.Now(),
		Aborted:    true,
		Reason:     reason,
	})
	t.logger.Error("hand aborted", "hand", t.handNumber, "reason", reason)
}

// finishHand parks the table between hands and schedules the next one.
func (t *Table) finishHand() {
	t.phase = PhaseHandComplete
	t.actor = -1
	t.stopTurnTimer()
	t.d = nil
	t.dealtCards = nil
	t.saveSnapshot()
	t.broadcastState()

	t.nextHandTimer = t.clock.AfterFunc(t.cfg.PostHandDelay, func() {
		t.post(t.beginNextHand)
	})
}

// beginNextHand fires after the post-hand delay: clear departed seats,
// drop seats that sat out too many hands, then deal again or go idle.
func (t *Table) beginNextHand() {
	if t.phase != PhaseHandComplete {
		return
	}
	t.nextHandTimer = nil

	for i, s := range t.seats {
		if s == nil {
			continue
		}
		if s.departed {
			t.seats[i] = nil
			continue
		}
		if s.Stack == 0 || s.SittingOut {
			s.handsSatOut++
			if s.handsSatOut >= t.cfg.SitOutHandLimit {
				t.removeSeat(s)
			}
		} else {
			s.handsSatOut = 0
		}
	}

	if t.occupied() == 0 {
		t.shutdown("empty")
		return
	}
	if t.fundedSeats() >= 2 {
		t.beginHand()
		return
	}
	t.phase = PhaseWaiting
	t.broadcastState()
}

func (t *Table) removeSeat(s *Seat) {
	t.seats[s.Index] = nil
	if t.bank != nil && s.Stack > 0 {
		if err := t.bank.Credit(context.Background(), s.PlayerID, int64(s.Stack), "removed from table "+t.ID); err != nil {
			t.logger.Error("removal credit failed", "player", s.PlayerID, "err", err)
			t.reconcile(fmt.Sprintf("removal credit %d to %s failed: %v", s.Stack, s.PlayerID, err))
		}
	}
	t.logger.Info("seat removed", "player", s.PlayerID, "seat", s.Index, "satOut", s.handsSatOut)
}

// settle journals per-player hand deltas in the background with bounded
// retries; exhaustion leaves a reconciliation row instead of blocking play.
func (t *Table) settle(handNumber uint64, deltas map[string]int64) {
	if t.bank == nil || len(deltas) == 0 {
		return
	}
	go func() {
		backoff := 250 * time.Millisecond
		for attempt := 1; attempt <= 3; attempt++ {
			err := t.bank.SettleHand(context.Background(), t.ID, handNumber, deltas)
			if err == nil {
				return
			}
			t.logger.Warn("settlement failed", "hand", handNumber, "attempt", attempt, "err", err)
			if attempt == 3 {
				t.reconcile(fmt.Sprintf("settlement of hand %d failed: %v", handNumber, err))
				return
			}
			timer := t.clock.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-t.done:
				timer.Stop()
				return
			}
			backoff *= 2
		}
	}()
}
