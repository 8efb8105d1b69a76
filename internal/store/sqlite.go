package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite implements Store on a single sqlite database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and runs migrations.
// Pass ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// sqlite allows one writer; a single connection avoids SQLITE_BUSY
	// between the balance and snapshot paths.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			balance INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			player_id TEXT NOT NULL,
			amount INTEGER NOT NULL,
			type TEXT NOT NULL,
			description TEXT,
			table_id TEXT,
			hand_number INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (player_id) REFERENCES players(id)
		)`,
		`CREATE TABLE IF NOT EXISTS reconciliations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_id TEXT NOT NULL,
			hand_number INTEGER NOT NULL,
			detail TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS table_snapshots (
			table_id TEXT PRIMARY KEY,
			state BLOB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLite) Balance(ctx context.Context, playerID string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx,
		"SELECT balance FROM players WHERE id = ?", playerID).Scan(&balance)
	if err == sql.ErrNoRows {
		_, err = s.db.ExecContext(ctx,
			"INSERT INTO players (id, balance) VALUES (?, 0) ON CONFLICT(id) DO NOTHING",
			playerID)
		if err != nil {
			return 0, fmt.Errorf("create player: %w", err)
		}
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return balance, nil
}

func (s *SQLite) Credit(ctx context.Context, playerID string, amount int64, description string) error {
	if amount < 0 {
		return fmt.Errorf("credit amount %d is negative", amount)
	}
	return s.move(ctx, playerID, amount, "credit", description)
}

func (s *SQLite) Debit(ctx context.Context, playerID string, amount int64, description string) error {
	if amount < 0 {
		return fmt.Errorf("debit amount %d is negative", amount)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var balance int64
	err = tx.QueryRowContext(ctx,
		"SELECT balance FROM players WHERE id = ?", playerID).Scan(&balance)
	if err == sql.ErrNoRows {
		balance = 0
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO players (id, balance) VALUES (?, 0)", playerID); err != nil {
			return fmt.Errorf("create player: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("get balance: %w", err)
	}

	if balance < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficient, balance, amount)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE players SET balance = balance - ? WHERE id = ?", amount, playerID); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO transactions (player_id, amount, type, description) VALUES (?, ?, ?, ?)",
		playerID, -amount, "debit", description); err != nil {
		return fmt.Errorf("record transaction: %w", err)
	}

	return tx.Commit()
}

// move applies a non-negative balance delta and journals it in one tx.
func (s *SQLite) move(ctx context.Context, playerID string, amount int64, kind, description string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO players (id, balance) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET balance = balance + ?
	`, playerID, amount, amount); err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO transactions (player_id, amount, type, description) VALUES (?, ?, ?, ?)",
		playerID, amount, kind, description); err != nil {
		return fmt.Errorf("record transaction: %w", err)
	}

	return tx.Commit()
}

func (s *SQLite) SettleHand(ctx context.Context, tableID string, handNumber uint64, deltas map[string]int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for playerID, delta := range deltas {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (player_id, amount, type, description, table_id, hand_number)
			VALUES (?, ?, 'settle', ?, ?, ?)
		`, playerID, delta,
			fmt.Sprintf("hand %d at table %s", handNumber, tableID),
			tableID, handNumber); err != nil {
			return fmt.Errorf("journal settlement for %s: %w", playerID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLite) RecordReconciliation(ctx context.Context, tableID string, handNumber uint64, detail string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO reconciliations (table_id, hand_number, detail) VALUES (?, ?, ?)",
		tableID, handNumber, detail)
	if err != nil {
		return fmt.Errorf("record reconciliation: %w", err)
	}
	return nil
}

func (s *SQLite) SaveSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now().UTC()
	}
	blob, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO table_snapshots (table_id, state, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(table_id) DO UPDATE SET state = excluded.state, updated_at = CURRENT_TIMESTAMP
	`, snap.TableID, blob)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *SQLite) LoadSnapshots(ctx context.Context) ([]*Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT state FROM table_snapshots ORDER BY table_id")
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*Snapshot
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var snap Snapshot
		if err := json.Unmarshal(blob, &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		snaps = append(snaps, &snap)
	}
	return snaps, rows.Err()
}

func (s *SQLite) DeleteSnapshot(ctx context.Context, tableID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM table_snapshots WHERE table_id = ?", tableID)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
