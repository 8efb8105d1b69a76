package table

import (
	"github.com/cardroomlabs/holdemd/internal/deck"
	"github.com/cardroomlabs/holdemd/internal/protocol"
)

// broadcast marshals and fans out one public event.
func (t *Table) broadcast(msgType protocol.MessageType, data interface{}) {
	msg, err := protocol.NewMessage(msgType, data)
	if err != nil {
		t.logger.Error("encode broadcast failed", "type", msgType, "err", err)
		return
	}
	t.sink.Broadcast(msg)
}

// broadcastState pushes the full sanitized table state to all subscribers.
func (t *Table) broadcastState() {
	t.seq++
	t.broadcast(protocol.TypeTableState, t.publicState())
}

// logAction records an action in the bounded log and announces it.
func (t *Table) logAction(s *Seat, label string, paid int) {
	t.seq++
	entry := protocol.ActionTakenData{
		TableID:  t.ID,
		Seq:      t.seq,
		Seat:     s.Index,
		Action:   label,
		Amount:   paid,
		Stack:    s.Stack,
		RoundBet: s.RoundBet,
		Pot:      t.potTotal(),
	}
	t.actionLog = append(t.actionLog, entry)
	if len(t.actionLog) > actionLogSize {
		t.actionLog = t.actionLog[len(t.actionLog)-actionLogSize:]
	}
	t.broadcast(protocol.TypeActionTaken, entry)
}

func (t *Table) potTotal() int {
	total := 0
	for _, s := range t.seats {
		if s != nil {
			total += s.Committed
		}
	}
	return total
}

// seatViews returns the sanitized public view of every occupied seat. Hole
// cards never appear here.
func (t *Table) seatViews() []protocol.SeatView {
	views := make([]protocol.SeatView, 0, t.cfg.MaxSeats)
	for _, s := range t.seats {
		if s == nil {
			continue
		}
		views = append(views, protocol.SeatView{
			Seat:       s.Index,
			Name:       s.Name,
			Stack:      s.Stack,
			Committed:  s.Committed,
			RoundBet:   s.RoundBet,
			Folded:     s.Folded,
			AllIn:      s.AllIn,
			SittingOut: s.SittingOut,
			HasCards:   s.inHand(),
		})
	}
	return views
}

// publicState is the full sanitized snapshot sent on tableState. The deck,
// hole cards, and timer internals stay private; only the deadline's
// wall-clock expiry is exposed.
func (t *Table) publicState() protocol.TableStateData {
	state := protocol.TableStateData{
		TableID:      t.ID,
		Seq:          t.seq,
		Phase:        t.phase.String(),
		HandNumber:   t.handNumber,
		Button:       t.button,
		SmallBlind:   t.cfg.SmallBlind,
		BigBlind:     t.cfg.BigBlind,
		Community:    deck.Codes(t.community),
		Pot:          t.potTotal(),
		Seats:        t.seatViews(),
		CurrentActor: t.actor,
	}
	if t.betting != nil && t.handInProgress() {
		state.CurrentBet = t.betting.currentBet
		state.MinRaise = t.betting.minRaise
	}
	if t.handInProgress() {
		layers, _ := buildPots(t.seats)
		for _, layer := range layers {
			state.Pots = append(state.Pots, protocol.PotView{
				Amount:   layer.Amount,
				Eligible: layer.Eligible,
			})
		}
	}
	if t.actor >= 0 && !t.deadline.IsZero() {
		deadline := t.deadline
		state.Deadline = &deadline
	}
	return state
}

// sendHoleCards delivers a seat's cards privately.
func (t *Table) sendHoleCards(s *Seat) {
	msg, err := protocol.NewMessage(protocol.TypeHoleCards, protocol.HoleCardsData{
		TableID:    t.ID,
		HandNumber: t.handNumber,
		Seat:       s.Index,
		Cards:      deck.Codes(s.Hole),
	})
	if err != nil {
		t.logger.Error("encode hole cards failed", "err", err)
		return
	}
	t.sink.SendTo(s.PlayerID, msg)
}

// sendTurnPrompt tells the acting player what it may do and by when.
func (t *Table) sendTurnPrompt(s *Seat) {
	legal := t.betting.legalActions(s)
	views := make([]protocol.LegalActionView, 0, len(legal))
	for _, a := range legal {
		views = append(views, protocol.LegalActionView{
			Kind: a.Kind.String(),
			Min:  a.Min,
			Max:  a.Max,
		})
	}

	callAmount := t.betting.currentBet - s.RoundBet
	if callAmount < 0 {
		callAmount = 0
	}
	if callAmount > s.Stack {
		callAmount = s.Stack
	}

	msg, err := protocol.NewMessage(protocol.TypeYourTurn, protocol.YourTurnData{
		TableID:      t.ID,
		Seat:         s.Index,
		LegalActions: views,
		CallAmount:   callAmount,
		MinRaise:     t.betting.currentBet + t.betting.minRaise,
		Deadline:     t.deadline,
	})
	if err != nil {
		t.logger.Error("encode turn prompt failed", "err", err)
		return
	}
	t.sink.SendTo(s.PlayerID, msg)
}
