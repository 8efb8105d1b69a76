package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/cardroomlabs/holdemd/internal/store"
	"github.com/cardroomlabs/holdemd/internal/table"
)

const tableIDRetries = 5

// TableRegistry owns the set of open tables and their event hubs. It creates
// tables with the server's default parameters, recovers them from snapshots
// at boot, and reaps them when they shut down.
type TableRegistry struct {
	logger   *log.Logger
	clock    quartz.Clock
	sessions *SessionRegistry
	st       store.Store
	metrics  *Metrics
	cfg      table.Config

	mu     sync.RWMutex
	tables map[string]*table.Table
	hubs   map[string]*Hub
}

func NewTableRegistry(logger *log.Logger, clock quartz.Clock, sessions *SessionRegistry, st store.Store, metrics *Metrics, cfg table.Config) *TableRegistry {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &TableRegistry{
		logger:   logger,
		clock:    clock,
		sessions: sessions,
		st:       st,
		metrics:  metrics,
		cfg:      cfg,
		tables:   make(map[string]*table.Table),
		hubs:     make(map[string]*Hub),
	}
}

// newTableID generates a short random table identifier.
func newTableID() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate table ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Create opens a new table owned by creatorID and returns it.
func (r *TableRegistry) Create(creatorID string) (*table.Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var id string
	for attempt := 0; ; attempt++ {
		candidate, err := newTableID()
		if err != nil {
			return nil, err
		}
		if _, taken := r.tables[candidate]; !taken {
			id = candidate
			break
		}
		if attempt >= tableIDRetries {
			return nil, fmt.Errorf("could not allocate a table ID after %d attempts", tableIDRetries)
		}
	}

	hub := newHub(id, r.sessions, r.metrics)
	tbl := table.New(id, creatorID, r.cfg, table.Options{
		Logger:    r.logger,
		Clock:     r.clock,
		Sink:      hub,
		Bank:      r.st,
		Snapshots: r.st,
	})

	r.tables[id] = tbl
	r.hubs[id] = hub
	if r.metrics != nil {
		r.metrics.ActiveTables.Inc()
	}
	go r.reap(tbl)

	r.logger.Info("table created", "table", id, "creator", creatorID)
	return tbl, nil
}

// Recover rebuilds every snapshotted table at boot. Unrecoverable snapshots
// are logged and deleted rather than blocking startup.
func (r *TableRegistry) Recover(ctx context.Context) error {
	if r.st == nil {
		return nil
	}
	snaps, err := r.st.LoadSnapshots(ctx)
	if err != nil {
		return fmt.Errorf("failed to load snapshots: %w", err)
	}

	for _, snap := range snaps {
		hub := newHub(snap.TableID, r.sessions, r.metrics)
		tbl, err := table.Restore(snap, r.cfg, table.Options{
			Logger:    r.logger,
			Clock:     r.clock,
			Sink:      hub,
			Bank:      r.st,
			Snapshots: r.st,
		})
		if err != nil {
			r.logger.Error("snapshot recovery failed, discarding", "table", snap.TableID, "err", err)
			if derr := r.st.DeleteSnapshot(ctx, snap.TableID); derr != nil {
				r.logger.Error("failed to discard snapshot", "table", snap.TableID, "err", derr)
			}
			continue
		}

		r.mu.Lock()
		r.tables[snap.TableID] = tbl
		r.hubs[snap.TableID] = hub
		r.mu.Unlock()
		if r.metrics != nil {
			r.metrics.ActiveTables.Inc()
		}
		go r.reap(tbl)

		// Seated players resubscribe to their recovered table so events
		// reach them as soon as they reconnect.
		for _, seat := range snap.Seats {
			hub.Subscribe(seat.PlayerID)
		}
		r.logger.Info("table recovered", "table", snap.TableID, "hand", snap.HandNumber, "phase", snap.Phase)
	}
	return nil
}

// reap removes the table from the registry once it shuts down.
func (r *TableRegistry) reap(tbl *table.Table) {
	<-tbl.Done()
	r.mu.Lock()
	if _, ok := r.tables[tbl.ID]; ok {
		delete(r.tables, tbl.ID)
		delete(r.hubs, tbl.ID)
		if r.metrics != nil {
			r.metrics.ActiveTables.Dec()
		}
	}
	r.mu.Unlock()
}

// Get returns the table and its hub.
func (r *TableRegistry) Get(id string) (*table.Table, *Hub, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tbl, ok := r.tables[id]
	if !ok {
		return nil, nil, false
	}
	return tbl, r.hubs[id], true
}

// List returns every open table.
func (r *TableRegistry) List() []*table.Table {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tables := make([]*table.Table, 0, len(r.tables))
	for _, tbl := range r.tables {
		tables = append(tables, tbl)
	}
	return tables
}

// Count returns the number of open tables.
func (r *TableRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}

// CloseAll shuts every table down and waits for each to finish.
func (r *TableRegistry) CloseAll(reason string) {
	for _, tbl := range r.List() {
		tbl.Close(reason)
		<-tbl.Done()
	}
}
