// Package table implements the poker table: seats, betting, pots, the hand
// state machine, and the turn scheduler. All table state is owned by a
// single executor goroutine; every mutation arrives as a command on the
// table's inbox, including timer fires.
package table

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/cardroomlabs/holdemd/internal/deck"
	"github.com/cardroomlabs/holdemd/internal/protocol"
	"github.com/cardroomlabs/holdemd/internal/randutil"
)

var (
	ErrClosed        = errors.New("table: closed")
	ErrTableFull     = errors.New("table: no free seats")
	ErrAlreadySeated = errors.New("table: player already seated")
	ErrNotSeated     = errors.New("table: player not seated")
	ErrBadPhase      = errors.New("table: operation not allowed in this phase")
	ErrNotCreator    = errors.New("table: only the creator can start the table")
	ErrBuyIn         = errors.New("table: buy-in out of range")
	ErrInsufficient  = errors.New("table: insufficient balance")
)

const (
	inboxSize     = 64
	actionLogSize = 64
)

// Options are the table's injected collaborators. Nil fields get safe
// defaults: discard logger, real clock, crypto-seeded RNG, no-op sink, no
// banking, no snapshots.
type Options struct {
	Logger    *log.Logger
	Clock     quartz.Clock
	RNG       *rand.Rand
	Sink      Sink
	Bank      Bank
	Snapshots SnapshotStore

	// Deck, when set, is dealt for the next hand instead of a fresh
	// shuffle. Deterministic tests stack it with deck.NewStacked.
	Deck *deck.Deck
}

// Table is one poker table. Public methods are safe for concurrent use;
// they forward to the executor goroutine and wait for its answer.
type Table struct {
	ID        string
	CreatorID string

	cfg    Config
	logger *log.Logger
	clock  quartz.Clock
	rng    *rand.Rand
	sink   Sink
	bank   Bank
	snaps  SnapshotStore

	inbox     chan func()
	done      chan struct{}
	closeOnce sync.Once

	// Everything below is owned by the executor goroutine.
	seats      []*Seat
	phase      Phase
	button     int
	handNumber uint64
	seq        uint64

	d          *deck.Deck
	dealtCards map[deck.Card]bool
	community  []deck.Card
	betting    *bettingRound
	actor      int

	deadline      time.Time
	turnToken     uint64
	turnTimer     *quartz.Timer
	nextHandTimer *quartz.Timer

	actionLog []protocol.ActionTakenData
}

// New creates a table and starts its executor goroutine.
func New(id, creatorID string, cfg Config, opts Options) *Table {
	cfg.withDefaults()

	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.RNG == nil {
		opts.RNG = randutil.NewCrypto()
	}
	if opts.Sink == nil {
		opts.Sink = nopSink{}
	}

	t := &Table{
		ID:        id,
		CreatorID: creatorID,
		cfg:       cfg,
		logger:    opts.Logger.WithPrefix("table").With("table", id),
		clock:     opts.Clock,
		rng:       opts.RNG,
		sink:      opts.Sink,
		bank:      opts.Bank,
		snaps:     opts.Snapshots,
		inbox:     make(chan func(), inboxSize),
		done:      make(chan struct{}),
		seats:     make([]*Seat, cfg.MaxSeats),
		phase:     PhaseWaiting,
		button:    -1,
		actor:     -1,
		d:         opts.Deck,
	}

	go t.run()
	return t
}

func (t *Table) run() {
	for {
		select {
		case fn := <-t.inbox:
			fn()
		case <-t.done:
			return
		}
	}
}

// call runs fn on the executor goroutine and waits for its error.
func (t *Table) call(fn func() error) error {
	errc := make(chan error, 1)
	select {
	case t.inbox <- func() { errc <- fn() }:
	case <-t.done:
		return ErrClosed
	}
	select {
	case err := <-errc:
		return err
	case <-t.done:
		return ErrClosed
	}
}

// post runs fn on the executor goroutine without waiting. Used by timer
// fires so a stopped table never blocks a timer goroutine.
func (t *Table) post(fn func()) {
	select {
	case t.inbox <- fn:
	case <-t.done:
	}
}

// Done is closed once the table has shut down.
func (t *Table) Done() <-chan struct{} {
	return t.done
}

// Config returns the table's effective configuration.
func (t *Table) Config() Config {
	return t.cfg
}

// Join seats the player with a buy-in debited from their balance. Allowed
// while waiting or between hands; one seat per player.
func (t *Table) Join(ctx context.Context, playerID, name string, buyIn int) error {
	return t.call(func() error {
		if t.phase != PhaseWaiting && t.phase != PhaseHandComplete {
			return fmt.Errorf("%w: joins only between hands", ErrBadPhase)
		}
		if t.seatOf(playerID) != nil {
			return ErrAlreadySeated
		}
		if buyIn == 0 {
			buyIn = t.cfg.MinBuyIn
		}
		if buyIn < t.cfg.MinBuyIn || buyIn > t.cfg.MaxBuyIn {
			return fmt.Errorf("%w: %d not in [%d, %d]", ErrBuyIn, buyIn, t.cfg.MinBuyIn, t.cfg.MaxBuyIn)
		}

		seat := -1
		for i, s := range t.seats {
			if s == nil {
				seat = i
				break
			}
		}
		if seat < 0 {
			return ErrTableFull
		}

		if t.bank != nil {
			if err := t.bank.Debit(ctx, playerID, int64(buyIn), "buy-in table "+t.ID); err != nil {
				return fmt.Errorf("%w: %v", ErrInsufficient, err)
			}
		}

		if name == "" {
			name = playerID
		}
		t.seats[seat] = &Seat{
			Index:    seat,
			PlayerID: playerID,
			Name:     name,
			Stack:    buyIn,
		}
		t.logger.Info("player joined", "player", playerID, "seat", seat, "buyIn", buyIn)
		t.broadcastState()
		return nil
	})
}

// Leave removes the player. Mid-hand the seat is folded first; the
// remaining stack is credited back. Committed chips stay in the pot.
func (t *Table) Leave(ctx context.Context, playerID string) error {
	return t.call(func() error {
		s := t.seatOf(playerID)
		if s == nil {
			return ErrNotSeated
		}

		stack := s.Stack
		if t.bank != nil && stack > 0 {
			if err := t.bank.Credit(ctx, playerID, int64(stack), "cash-out table "+t.ID); err != nil {
				t.logger.Error("cash-out credit failed", "player", playerID, "amount", stack, "err", err)
				t.reconcile(fmt.Sprintf("cash-out credit %d to %s failed: %v", stack, playerID, err))
			}
		}
		s.Stack = 0

		if t.handInProgress() {
			// Committed chips stay in the pot; the seat shell clears at
			// hand end so pot accounting still sees its contribution.
			s.departed = true
			s.SittingOut = true
			t.logger.Info("player left mid-hand", "player", playerID, "seat", s.Index, "stack", stack)
			if s.inHand() {
				t.forceFold(s, "fold")
			} else {
				t.broadcastState()
			}
			return nil
		}

		t.seats[s.Index] = nil
		t.logger.Info("player left", "player", playerID, "seat", s.Index, "stack", stack)
		t.broadcastState()

		if t.occupied() == 0 {
			t.shutdown("empty")
		}
		return nil
	})
}

// Start begins play. Only the creator may start, and only from Waiting with
// at least two funded seats.
func (t *Table) Start(playerID string) error {
	return t.call(func() error {
		if playerID != t.CreatorID {
			return ErrNotCreator
		}
		if t.phase != PhaseWaiting {
			return fmt.Errorf("%w: table already running", ErrBadPhase)
		}
		if t.fundedSeats() < 2 {
			return fmt.Errorf("%w: need at least 2 funded seats", ErrBadPhase)
		}
		t.beginHand()
		return nil
	})
}

// Act applies a betting action for the player.
func (t *Table) Act(playerID string, kind ActionKind, amount int) error {
	return t.call(func() error {
		if !t.handInProgress() {
			return fmt.Errorf("%w: no hand in progress", ErrBadPhase)
		}
		s := t.seatOf(playerID)
		if s == nil {
			return ErrNotSeated
		}
		if t.actor != s.Index {
			return ErrNotYourTurn
		}
		// Acting in turn proves the player is present again.
		if s.SittingOut && !s.departed {
			s.SittingOut = false
			s.handsSatOut = 0
		}
		return t.applyAction(s, kind, amount, kind.String())
	})
}

// SitIn clears a sitting-out mark, e.g. after a turn timed out while the
// player stayed connected. Seats that left mid-hand stay out.
func (t *Table) SitIn(playerID string) error {
	return t.call(func() error {
		s := t.seatOf(playerID)
		if s == nil {
			return ErrNotSeated
		}
		if s.SittingOut && !s.departed {
			s.SittingOut = false
			s.handsSatOut = 0
			t.logger.Info("player sitting back in", "player", playerID, "seat", s.Index)
			t.broadcastState()
		}
		return nil
	})
}

// SitOut marks the player's seat sitting out, typically on disconnect. A
// seat sitting out mid-hand keeps its cards; the turn timer folds for it.
func (t *Table) SitOut(playerID string) error {
	return t.call(func() error {
		s := t.seatOf(playerID)
		if s == nil {
			return ErrNotSeated
		}
		if !s.SittingOut {
			s.SittingOut = true
			t.logger.Info("player sitting out", "player", playerID, "seat", s.Index)
			t.broadcastState()
		}
		return nil
	})
}

// Reconnect restores a sitting-out seat and resends the player's private
// state: hole cards if a hand is live, and the turn prompt if acting.
func (t *Table) Reconnect(playerID string) error {
	return t.call(func() error {
		s := t.seatOf(playerID)
		if s == nil {
			return ErrNotSeated
		}
		s.SittingOut = false
		s.handsSatOut = 0
		t.broadcastState()

		if len(s.Hole) > 0 {
			t.sendHoleCards(s)
		}
		if t.actor == s.Index {
			t.sendTurnPrompt(s)
		}
		return nil
	})
}

// RequestState sends the full sanitized table state to one player.
func (t *Table) RequestState(playerID string) error {
	return t.call(func() error {
		state := t.publicState()
		state.Recent = append([]protocol.ActionTakenData(nil), t.actionLog...)
		msg, err := protocol.NewMessage(protocol.TypeTableState, state)
		if err != nil {
			return err
		}
		t.sink.SendTo(playerID, msg)
		return nil
	})
}

// State returns the sanitized public state, for the admin inspection
// endpoint.
func (t *Table) State() protocol.TableStateData {
	var state protocol.TableStateData
	err := t.call(func() error {
		state = t.publicState()
		return nil
	})
	if err != nil {
		return protocol.TableStateData{TableID: t.ID, Phase: PhaseClosed.String()}
	}
	return state
}

// Close shuts the table down: any live hand is aborted with refunds, all
// stacks are credited back, and subscribers get a tableEnded event.
func (t *Table) Close(reason string) {
	_ = t.call(func() error {
		t.shutdown(reason)
		return nil
	})
}

// shutdown runs on the executor goroutine.
func (t *Table) shutdown(reason string) {
	if t.phase == PhaseClosed {
		return
	}
	if t.handInProgress() {
		t.abortHand("table closing")
	}
	t.stopTurnTimer()
	if t.nextHandTimer != nil {
		t.nextHandTimer.Stop()
		t.nextHandTimer = nil
	}

	for i, s := range t.seats {
		if s == nil {
			continue
		}
		if t.bank != nil && s.Stack > 0 {
			if err := t.bank.Credit(context.Background(), s.PlayerID, int64(s.Stack), "table closed "+t.ID); err != nil {
				t.logger.Error("close-out credit failed", "player", s.PlayerID, "err", err)
				t.reconcile(fmt.Sprintf("close-out credit %d to %s failed: %v", s.Stack, s.PlayerID, err))
			}
		}
		t.seats[i] = nil
	}

	t.phase = PhaseClosed
	t.seq++
	if msg, err := protocol.NewMessage(protocol.TypeTableEnded, protocol.TableEndedData{
		TableID: t.ID,
		Seq:     t.seq,
		Reason:  reason,
	}); err == nil {
		t.sink.Broadcast(msg)
	}

	if t.snaps != nil {
		if err := t.snaps.DeleteSnapshot(context.Background(), t.ID); err != nil {
			t.logger.Error("snapshot delete failed", "err", err)
		}
	}

	t.logger.Info("table closed", "reason", reason)
	t.closeOnce.Do(func() { close(t.done) })
}

func (t *Table) seatOf(playerID string) *Seat {
	for _, s := range t.seats {
		if s != nil && s.PlayerID == playerID {
			return s
		}
	}
	return nil
}

func (t *Table) occupied() int {
	n := 0
	for _, s := range t.seats {
		if s != nil {
			n++
		}
	}
	return n
}

func (t *Table) fundedSeats() int {
	n := 0
	for _, s := range t.seats {
		if s != nil && s.Stack > 0 && !s.SittingOut && !s.departed {
			n++
		}
	}
	return n
}

func (t *Table) handInProgress() bool {
	return t.phase >= PhasePreflop && t.phase <= PhaseShowdown
}

func (t *Table) reconcile(detail string) {
	if t.bank == nil {
		return
	}
	if err := t.bank.RecordReconciliation(context.Background(), t.ID, t.handNumber, detail); err != nil {
		t.logger.Error("reconciliation record failed", "detail", detail, "err", err)
	}
}
