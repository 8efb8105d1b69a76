package table

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroomlabs/holdemd/internal/deck"
	"github.com/cardroomlabs/holdemd/internal/protocol"
	"github.com/cardroomlabs/holdemd/internal/store"
)

// memSnaps keeps the latest snapshot per table in memory.
type memSnaps struct {
	mu    sync.Mutex
	snaps map[string]*store.Snapshot
}

func newMemSnaps() *memSnaps {
	return &memSnaps{snaps: make(map[string]*store.Snapshot)}
}

func (m *memSnaps) SaveSnapshot(_ context.Context, snap *store.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *snap
	m.snaps[snap.TableID] = &copied
	return nil
}

func (m *memSnaps) DeleteSnapshot(_ context.Context, tableID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, tableID)
	return nil
}

func (m *memSnaps) get(tableID string) *store.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snaps[tableID]
}

func TestRestoreResumesMidHand(t *testing.T) {
	snaps := newMemSnaps()
	sink := newTestSink()
	stacked := deck.NewStacked(cards(
		"Kd", "As", "Kc", "Ah",
		"9s", "2d", "7h", "Jc", // burn + flop
		"6c", "3d", // burn + turn
		"7c", "4h", // burn + river
	)...)
	tbl := New("t20", "alice", testConfig(), Options{Sink: sink, Snapshots: snaps, Deck: stacked})

	ctx := context.Background()
	require.NoError(t, tbl.Join(ctx, "alice", "alice", 1000))
	require.NoError(t, tbl.Join(ctx, "bob", "bob", 1000))
	require.NoError(t, tbl.Start("alice"))

	// Reach the flop, then simulate a crash.
	require.NoError(t, tbl.Act("alice", Call, 0))
	require.NoError(t, tbl.Act("bob", Check, 0))
	require.Equal(t, "flop", tbl.State().Phase)

	snap := snaps.get("t20")
	require.NotNil(t, snap)
	assert.Equal(t, "flop", snap.Phase)
	require.Len(t, snap.Community, 3)

	sink2 := newTestSink()
	restored, err := Restore(snap, testConfig(), Options{Sink: sink2, Snapshots: snaps})
	require.NoError(t, err)
	defer restored.Close("test done")

	state := restored.State()
	assert.Equal(t, "flop", state.Phase)
	assert.Equal(t, uint64(1), state.HandNumber)
	assert.Equal(t, []string{"2d", "7h", "Jc"}, state.Community)
	assert.Equal(t, 20, state.Pot)
	// Big blind acts first on the flop heads-up.
	assert.Equal(t, 1, state.CurrentActor)

	// Hole cards are re-sent from the snapshot, not re-dealt.
	var hole protocol.HoleCardsData
	require.True(t, sink2.lastPrivate("alice", protocol.TypeHoleCards, &hole))
	assert.Equal(t, []string{"As", "Ah"}, hole.Cards)

	// The hand plays out on the same stacked remainder of the deck.
	require.NoError(t, restored.Act("bob", Check, 0))
	require.NoError(t, restored.Act("alice", Check, 0))
	require.NoError(t, restored.Act("bob", Check, 0))
	require.NoError(t, restored.Act("alice", Check, 0))
	require.NoError(t, restored.Act("bob", Check, 0))
	require.NoError(t, restored.Act("alice", Check, 0))

	var result protocol.HandResultData
	require.True(t, sink2.lastPublic(protocol.TypeHandResult, &result))
	assert.Equal(t, []string{"2d", "7h", "Jc", "3d", "4h"}, result.Community)
	require.Len(t, result.Pots, 1)
	require.Len(t, result.Pots[0].Winners, 1)
	// Aces take it.
	assert.Equal(t, 0, result.Pots[0].Winners[0].Seat)
	assert.Equal(t, 1010, stackOf(t, restored, 0))
	assert.Equal(t, 990, stackOf(t, restored, 1))

	tbl.Close("crash simulation cleanup")
}

func TestRestoreRejectsCorruptSnapshot(t *testing.T) {
	_, err := Restore(&store.Snapshot{TableID: "bad", Phase: "nonsense"}, testConfig(), Options{})
	assert.Error(t, err)

	_, err = Restore(&store.Snapshot{
		TableID:   "bad2",
		Phase:     "flop",
		Community: []string{"zz"},
	}, testConfig(), Options{})
	assert.Error(t, err)
}
