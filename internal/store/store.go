// Package store persists player balances, the hand settlement journal, and
// table snapshots used for crash recovery.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrInsufficient indicates a debit would take a balance below zero.
	ErrInsufficient = errors.New("store: insufficient balance")
)

// SeatSnapshot is the persisted state of one occupied seat.
type SeatSnapshot struct {
	Seat       int      `json:"seat"`
	PlayerID   string   `json:"playerId"`
	Name       string   `json:"name"`
	Stack      int      `json:"stack"`
	Committed  int      `json:"committed"`
	RoundBet   int      `json:"roundBet"`
	Folded     bool     `json:"folded"`
	AllIn      bool     `json:"allIn"`
	SittingOut bool     `json:"sittingOut"`
	Hole       []string `json:"hole,omitempty"`
}

// Snapshot is a point-in-time image of a table, taken at hand and street
// boundaries. Card fields hold two-character codes like "As"; DeckRest is
// the undealt remainder in draw order so a recovered hand replays the same
// cards.
type Snapshot struct {
	TableID    string         `json:"tableId"`
	HandNumber uint64         `json:"handNumber"`
	Seq        uint64         `json:"seq"`
	Phase      string         `json:"phase"`
	Button     int            `json:"button"`
	SmallBlind int            `json:"smallBlind"`
	BigBlind   int            `json:"bigBlind"`
	Community  []string       `json:"community"`
	DeckRest   []string       `json:"deckRest"`
	Seats      []SeatSnapshot `json:"seats"`
	Actor      int            `json:"actor"`
	CurrentBet int            `json:"currentBet"`
	MinRaise   int            `json:"minRaise"`
	CreatorID  string         `json:"creatorId"`
	TakenAt    time.Time      `json:"takenAt"`
}

// Store is the persistence boundary for the server. Balance operations move
// chips between the bank and table stacks; SettleHand journals per-hand
// deltas for audit; snapshots back crash recovery.
type Store interface {
	// Balance returns a player's bank balance, creating the row at zero if
	// the player is unknown.
	Balance(ctx context.Context, playerID string) (int64, error)

	// Credit adds amount to a player's balance and journals the movement.
	Credit(ctx context.Context, playerID string, amount int64, description string) error

	// Debit subtracts amount from a player's balance, failing with
	// ErrInsufficient when the balance would go negative.
	Debit(ctx context.Context, playerID string, amount int64, description string) error

	// SettleHand atomically journals one row per player for a completed
	// hand. Deltas are net chip movement (positive for winners).
	SettleHand(ctx context.Context, tableID string, handNumber uint64, deltas map[string]int64) error

	// RecordReconciliation logs a settlement that could not be journaled
	// after retries, so an operator can fix the books later.
	RecordReconciliation(ctx context.Context, tableID string, handNumber uint64, detail string) error

	// SaveSnapshot upserts the snapshot for its table.
	SaveSnapshot(ctx context.Context, snap *Snapshot) error

	// LoadSnapshots returns every saved snapshot, for boot recovery.
	LoadSnapshots(ctx context.Context) ([]*Snapshot, error)

	// DeleteSnapshot removes a table's snapshot once the table closes.
	DeleteSnapshot(ctx context.Context, tableID string) error

	Close() error
}
