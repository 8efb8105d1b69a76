package server

import (
	"sync"

	"github.com/google/uuid"
)

// session binds one player to one live connection.
type session struct {
	ID       string
	PlayerID string
	conn     *Connection
}

// SessionRegistry tracks which connection currently speaks for each player.
// A player registering from a second connection displaces the first; only
// the connection holding the current session ID may deregister it.
type SessionRegistry struct {
	mu       sync.RWMutex
	byPlayer map[string]*session
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{byPlayer: make(map[string]*session)}
}

// Register binds the player to conn and returns the new session ID plus the
// displaced connection, if any. The caller closes the displaced connection
// outside the registry lock.
func (r *SessionRegistry) Register(playerID string, conn *Connection) (string, *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var displaced *Connection
	if prev, ok := r.byPlayer[playerID]; ok {
		displaced = prev.conn
	}

	sess := &session{
		ID:       uuid.New().String(),
		PlayerID: playerID,
		conn:     conn,
	}
	r.byPlayer[playerID] = sess
	return sess.ID, displaced
}

// Deregister removes the player's session, but only if sessionID is still
// current. A stale connection going away must not tear down its successor.
func (r *SessionRegistry) Deregister(playerID, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.byPlayer[playerID]
	if !ok || sess.ID != sessionID {
		return false
	}
	delete(r.byPlayer, playerID)
	return true
}

// Get returns the player's current connection, or nil.
func (r *SessionRegistry) Get(playerID string) *Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if sess, ok := r.byPlayer[playerID]; ok {
		return sess.conn
	}
	return nil
}

// Count returns the number of registered sessions.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPlayer)
}
