package server

import (
	"strings"
	"sync"

	"github.com/cardroomlabs/holdemd/internal/protocol"
)

// Hub fans one table's events out to its subscribed players. It implements
// the table's event sink; Broadcast and SendTo never block because the
// per-connection send buffers are bounded and drop-on-full.
type Hub struct {
	tableID  string
	sessions *SessionRegistry
	metrics  *Metrics

	mu          sync.RWMutex
	subscribers map[string]bool
}

func newHub(tableID string, sessions *SessionRegistry, metrics *Metrics) *Hub {
	return &Hub{
		tableID:     tableID,
		sessions:    sessions,
		metrics:     metrics,
		subscribers: make(map[string]bool),
	}
}

// Subscribe adds the player to this table's broadcast set.
func (h *Hub) Subscribe(playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[playerID] = true
}

// Unsubscribe removes the player from this table's broadcast set.
func (h *Hub) Unsubscribe(playerID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, playerID)
}

// Broadcast delivers msg to every subscriber with a live session.
func (h *Hub) Broadcast(msg *protocol.Message) {
	h.observe(msg)

	h.mu.RLock()
	players := make([]string, 0, len(h.subscribers))
	for playerID := range h.subscribers {
		players = append(players, playerID)
	}
	h.mu.RUnlock()

	for _, playerID := range players {
		h.deliver(playerID, msg)
	}
}

// SendTo delivers msg to one player's session, if connected.
func (h *Hub) SendTo(playerID string, msg *protocol.Message) {
	h.deliver(playerID, msg)
}

func (h *Hub) deliver(playerID string, msg *protocol.Message) {
	conn := h.sessions.Get(playerID)
	if conn == nil {
		return
	}
	if err := conn.SendMessage(msg); err != nil && h.metrics != nil {
		h.metrics.DroppedMessages.Inc()
	}
}

// observe updates counters from the event stream so the table package stays
// free of metrics plumbing.
func (h *Hub) observe(msg *protocol.Message) {
	if h.metrics == nil {
		return
	}
	switch msg.Type {
	case protocol.TypeHandResult:
		var result protocol.HandResultData
		if err := msg.Decode(&result); err == nil && !result.Aborted {
			h.metrics.HandsCompleted.Inc()
		}
	case protocol.TypeActionTaken:
		var action protocol.ActionTakenData
		if err := msg.Decode(&action); err == nil && strings.HasPrefix(action.Action, "timeout_") {
			h.metrics.TurnTimeouts.Inc()
		}
	}
}
