package table

import (
	"context"

	"github.com/cardroomlabs/holdemd/internal/protocol"
	"github.com/cardroomlabs/holdemd/internal/store"
)

// Sink delivers table events to connected clients. Broadcast goes to every
// subscriber of this table; SendTo only to the named player's session. Both
// must never block the caller: the table executor emits events inline.
type Sink interface {
	Broadcast(msg *protocol.Message)
	SendTo(playerID string, msg *protocol.Message)
}

// Bank moves chips between player balances and table stacks and journals
// per-hand settlement.
type Bank interface {
	Debit(ctx context.Context, playerID string, amount int64, description string) error
	Credit(ctx context.Context, playerID string, amount int64, description string) error
	SettleHand(ctx context.Context, tableID string, handNumber uint64, deltas map[string]int64) error
	RecordReconciliation(ctx context.Context, tableID string, handNumber uint64, detail string) error
}

// SnapshotStore persists the table's recovery snapshot.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *store.Snapshot) error
	DeleteSnapshot(ctx context.Context, tableID string) error
}

// nopSink discards all events; used when a table has no subscribers yet.
type nopSink struct{}

func (nopSink) Broadcast(*protocol.Message)      {}
func (nopSink) SendTo(string, *protocol.Message) {}
