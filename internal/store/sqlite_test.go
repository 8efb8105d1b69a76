package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "holdemd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBalanceCreatesUnknownPlayerAtZero(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	balance, err := s.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	// Second read hits the existing row.
	balance, err = s.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestCreditAndDebit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Credit(ctx, "alice", 1000, "deposit"))

	balance, err := s.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)

	require.NoError(t, s.Debit(ctx, "alice", 400, "buy-in table deadbe"))

	balance, err = s.Balance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(600), balance)
}

func TestDebitInsufficient(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Credit(ctx, "bob", 100, "deposit"))

	err := s.Debit(ctx, "bob", 200, "buy-in")
	require.ErrorIs(t, err, ErrInsufficient)

	// Failed debit must not move the balance.
	balance, err := s.Balance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)
}

func TestDebitUnknownPlayerFails(t *testing.T) {
	s := openTestStore(t)

	err := s.Debit(context.Background(), "ghost", 1, "buy-in")
	assert.ErrorIs(t, err, ErrInsufficient)
}

func TestNegativeAmountsRejected(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	assert.Error(t, s.Credit(ctx, "alice", -5, "bad"))
	assert.Error(t, s.Debit(ctx, "alice", -5, "bad"))
}

func TestSettleHandJournalsDeltas(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	deltas := map[string]int64{
		"alice": 150,
		"bob":   -100,
		"carol": -50,
	}
	require.NoError(t, s.SettleHand(ctx, "a3f09c", 7, deltas))

	rows, err := s.db.QueryContext(ctx,
		"SELECT player_id, amount FROM transactions WHERE table_id = ? AND hand_number = ?",
		"a3f09c", 7)
	require.NoError(t, err)
	defer rows.Close()

	got := make(map[string]int64)
	for rows.Next() {
		var player string
		var amount int64
		require.NoError(t, rows.Scan(&player, &amount))
		got[player] = amount
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, deltas, got)
}

func TestRecordReconciliation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordReconciliation(ctx, "a3f09c", 7, "settle failed after retries"))

	var count int
	require.NoError(t, s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reconciliations WHERE table_id = ?", "a3f09c").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	snap := &Snapshot{
		TableID:    "deadbe",
		HandNumber: 3,
		Seq:        42,
		Phase:      "flop",
		Button:     1,
		SmallBlind: 5,
		BigBlind:   10,
		Community:  []string{"7s", "8s", "9d"},
		DeckRest:   []string{"Ts", "2c", "6s"},
		Actor:      0,
		CurrentBet: 20,
		MinRaise:   10,
		CreatorID:  "alice",
		Seats: []SeatSnapshot{
			{Seat: 0, PlayerID: "alice", Name: "alice", Stack: 980, Committed: 20, Hole: []string{"As", "Kd"}},
			{Seat: 1, PlayerID: "bob", Name: "bob", Stack: 980, Committed: 20, Hole: []string{"Qh", "Qc"}},
		},
	}
	require.NoError(t, s.SaveSnapshot(ctx, snap))

	snaps, err := s.LoadSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	got := snaps[0]
	assert.Equal(t, "deadbe", got.TableID)
	assert.Equal(t, uint64(3), got.HandNumber)
	assert.Equal(t, "flop", got.Phase)
	assert.Equal(t, []string{"7s", "8s", "9d"}, got.Community)
	assert.Equal(t, []string{"Ts", "2c", "6s"}, got.DeckRest)
	require.Len(t, got.Seats, 2)
	assert.Equal(t, []string{"As", "Kd"}, got.Seats[0].Hole)
	assert.False(t, got.TakenAt.IsZero())
}

func TestSnapshotUpsertReplacesPrior(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSnapshot(ctx, &Snapshot{TableID: "deadbe", Phase: "preflop"}))
	require.NoError(t, s.SaveSnapshot(ctx, &Snapshot{TableID: "deadbe", Phase: "turn"}))

	snaps, err := s.LoadSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "turn", snaps[0].Phase)
}

func TestDeleteSnapshot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSnapshot(ctx, &Snapshot{TableID: "deadbe", Phase: "waiting"}))
	require.NoError(t, s.DeleteSnapshot(ctx, "deadbe"))

	snaps, err := s.LoadSnapshots(ctx)
	require.NoError(t, err)
	assert.Empty(t, snaps)

	// Deleting a missing snapshot is not an error.
	require.NoError(t, s.DeleteSnapshot(ctx, "deadbe"))
}
