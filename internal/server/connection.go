package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/cardroomlabs/holdemd/internal/auth"
	"github.com/cardroomlabs/holdemd/internal/protocol"
	"github.com/cardroomlabs/holdemd/internal/store"
	"github.com/cardroomlabs/holdemd/internal/table"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn      *websocket.Conn
	send      chan *protocol.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	server    *Server

	playerID  string
	name      string
	sessionID string
	tables    map[string]bool
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, server *Server) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:   conn,
		send:   make(chan *protocol.Message, 256),
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
		server: server,
		tables: make(map[string]bool),
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *protocol.Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, this is expected during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

func (c *Connection) player() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

func (c *Connection) setSession(playerID, name, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
	c.name = name
	c.sessionID = sessionID
}

func (c *Connection) addTable(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[tableID] = true
}

func (c *Connection) removeTable(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, tableID)
}

func (c *Connection) joinedTables() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.tables))
	for id := range c.tables {
		ids = append(ids, id)
	}
	return ids
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() {
		c.teardown()
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg protocol.Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// teardown releases the session when the connection goes away. Seats stay at
// their tables marked sitting out so the player can reconnect; only the
// current session may sit them out, a displaced connection must not touch
// the seats its successor now owns.
func (c *Connection) teardown() {
	c.mu.RLock()
	playerID, sessionID := c.playerID, c.sessionID
	c.mu.RUnlock()
	if playerID == "" {
		return
	}

	if !c.server.sessions.Deregister(playerID, sessionID) {
		return
	}
	c.server.metrics.ConnectedSessions.Set(float64(c.server.sessions.Count()))

	for _, tableID := range c.joinedTables() {
		if tbl, _, ok := c.server.registry.Get(tableID); ok {
			if err := tbl.SitOut(playerID); err != nil && !errors.Is(err, table.ErrNotSeated) && !errors.Is(err, table.ErrClosed) {
				c.logger.Error("sit-out on disconnect failed", "table", tableID, "player", playerID, "error", err)
			}
		}
	}
	c.logger.Info("session ended", "player", playerID)
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *protocol.Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.player())
	c.server.metrics.MessagesReceived.WithLabelValues(msg.Type.String()).Inc()

	if msg.Type != protocol.TypeRegister && c.player() == "" {
		c.sendError(protocol.CodeNotAuthenticated, "Must register first")
		return
	}

	switch msg.Type {
	case protocol.TypeRegister:
		var data protocol.RegisterData
		if err := msg.Decode(&data); err != nil {
			c.sendError(protocol.CodeInvalidMessage, "Failed to parse register data")
			return
		}
		c.handleRegister(data)

	case protocol.TypeCreateTable:
		c.handleCreateTable()

	case protocol.TypeJoinTable:
		var data protocol.JoinTableData
		if err := msg.Decode(&data); err != nil {
			c.sendError(protocol.CodeInvalidMessage, "Failed to parse join table data")
			return
		}
		c.handleJoinTable(data)

	case protocol.TypeStartTable:
		var data protocol.StartTableData
		if err := msg.Decode(&data); err != nil {
			c.sendError(protocol.CodeInvalidMessage, "Failed to parse start table data")
			return
		}
		c.handleStartTable(data)

	case protocol.TypeAction:
		var data protocol.ActionData
		if err := msg.Decode(&data); err != nil {
			c.sendError(protocol.CodeInvalidMessage, "Failed to parse action data")
			return
		}
		c.handleAction(data)

	case protocol.TypeLeaveTable:
		var data protocol.LeaveTableData
		if err := msg.Decode(&data); err != nil {
			c.sendError(protocol.CodeInvalidMessage, "Failed to parse leave table data")
			return
		}
		c.handleLeaveTable(data)

	case protocol.TypeRequestState:
		var data protocol.RequestStateData
		if err := msg.Decode(&data); err != nil {
			c.sendError(protocol.CodeInvalidMessage, "Failed to parse request state data")
			return
		}
		c.handleRequestState(data)

	case protocol.TypeReconnect:
		var data protocol.ReconnectData
		if err := msg.Decode(&data); err != nil {
			c.sendError(protocol.CodeInvalidMessage, "Failed to parse reconnect data")
			return
		}
		c.handleReconnect(data)

	default:
		c.sendError(protocol.CodeInvalidMessage, "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code protocol.ErrorCode, message string) {
	errorMsg, err := protocol.NewMessage(protocol.TypeError, protocol.ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg)
}

// sendTableError translates a table error into a wire error frame.
func (c *Connection) sendTableError(err error) {
	c.sendError(errorCode(err), err.Error())
}

func errorCode(err error) protocol.ErrorCode {
	switch {
	case errors.Is(err, table.ErrNotYourTurn):
		return protocol.CodeNotYourTurn
	case errors.Is(err, table.ErrIllegalAction):
		return protocol.CodeIllegalAction
	case errors.Is(err, table.ErrTableFull):
		return protocol.CodeTableFull
	case errors.Is(err, table.ErrAlreadySeated):
		return protocol.CodeAlreadySeated
	case errors.Is(err, table.ErrNotSeated):
		return protocol.CodeNotSeated
	case errors.Is(err, table.ErrBadPhase):
		return protocol.CodeBadPhase
	case errors.Is(err, table.ErrNotCreator):
		return protocol.CodeNotCreator
	case errors.Is(err, table.ErrInsufficient), errors.Is(err, store.ErrInsufficient):
		return protocol.CodeInsufficient
	case errors.Is(err, table.ErrBuyIn):
		return protocol.CodeInvalidMessage
	case errors.Is(err, table.ErrClosed):
		return protocol.CodeUnknownTable
	default:
		return protocol.CodeInternal
	}
}

func (c *Connection) handleRegister(data protocol.RegisterData) {
	playerID := data.PlayerID
	name := data.Name

	identity, err := c.server.validator.Validate(c.ctx, data.AuthToken)
	if err != nil {
		if errors.Is(err, auth.ErrUnavailable) {
			c.logger.Warn("Auth service unavailable", "player", playerID, "error", err)
			c.sendError(protocol.CodeAuthFailed, "Authentication service unavailable")
		} else {
			c.sendError(protocol.CodeAuthFailed, "Invalid auth token")
		}
		return
	}
	if identity != nil {
		// The auth service's identity wins over whatever the client claims.
		playerID = identity.PlayerID
		if identity.Name != "" {
			name = identity.Name
		}
	}

	if playerID == "" {
		c.sendError(protocol.CodeInvalidMessage, "Player ID required")
		return
	}
	if name == "" {
		name = playerID
	}

	sessionID, displaced := c.server.sessions.Register(playerID, c)
	if displaced != nil && displaced != c {
		c.logger.Info("Displacing previous session", "player", playerID)
		_ = displaced.Close()
	}
	c.setSession(playerID, name, sessionID)
	c.server.metrics.ConnectedSessions.Set(float64(c.server.sessions.Count()))

	c.logger.Info("Player registered", "player", playerID, "name", name)
	response, _ := protocol.NewMessage(protocol.TypeRegistered, protocol.RegisteredData{
		PlayerID:  playerID,
		SessionID: sessionID,
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleCreateTable() {
	tbl, err := c.server.registry.Create(c.player())
	if err != nil {
		c.logger.Error("Failed to create table", "error", err)
		c.sendError(protocol.CodeInternal, "Failed to create table")
		return
	}

	// Creators see table events before they sit down.
	if _, hub, ok := c.server.registry.Get(tbl.ID); ok {
		hub.Subscribe(c.player())
		c.addTable(tbl.ID)
	}

	response, _ := protocol.NewMessage(protocol.TypeTableCreated, protocol.TableCreatedData{
		TableID: tbl.ID,
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleJoinTable(data protocol.JoinTableData) {
	tbl, hub, ok := c.server.registry.Get(data.TableID)
	if !ok {
		c.sendError(protocol.CodeUnknownTable, "Unknown table: "+data.TableID)
		return
	}

	c.mu.RLock()
	playerID, name := c.playerID, c.name
	alreadyWatching := c.tables[data.TableID]
	c.mu.RUnlock()

	// Subscribe before joining so the seat's own join broadcast arrives.
	hub.Subscribe(playerID)
	if err := tbl.Join(c.ctx, playerID, name, data.BuyIn); err != nil {
		if !alreadyWatching {
			hub.Unsubscribe(playerID)
		}
		c.sendTableError(err)
		return
	}
	c.addTable(data.TableID)
}

func (c *Connection) handleStartTable(data protocol.StartTableData) {
	tbl, _, ok := c.server.registry.Get(data.TableID)
	if !ok {
		c.sendError(protocol.CodeUnknownTable, "Unknown table: "+data.TableID)
		return
	}
	if err := tbl.Start(c.player()); err != nil {
		c.sendTableError(err)
	}
}

func (c *Connection) handleAction(data protocol.ActionData) {
	tbl, _, ok := c.server.registry.Get(data.TableID)
	if !ok {
		c.sendError(protocol.CodeUnknownTable, "Unknown table: "+data.TableID)
		return
	}

	kind, err := table.ParseActionKind(data.Kind)
	if err != nil {
		c.sendError(protocol.CodeInvalidMessage, "Unknown action kind: "+data.Kind)
		return
	}
	// A player sending actions over a live session is present; clear any
	// timeout sit-out before applying the action.
	_ = tbl.SitIn(c.player())
	if err := tbl.Act(c.player(), kind, data.Amount); err != nil {
		c.sendTableError(err)
	}
}

func (c *Connection) handleLeaveTable(data protocol.LeaveTableData) {
	tbl, hub, ok := c.server.registry.Get(data.TableID)
	if !ok {
		c.sendError(protocol.CodeUnknownTable, "Unknown table: "+data.TableID)
		return
	}
	if err := tbl.Leave(c.ctx, c.player()); err != nil {
		c.sendTableError(err)
		return
	}
	hub.Unsubscribe(c.player())
	c.removeTable(data.TableID)
}

func (c *Connection) handleRequestState(data protocol.RequestStateData) {
	tbl, hub, ok := c.server.registry.Get(data.TableID)
	if !ok {
		c.sendError(protocol.CodeUnknownTable, "Unknown table: "+data.TableID)
		return
	}
	// Observers may watch a table without sitting down.
	hub.Subscribe(c.player())
	c.addTable(data.TableID)
	if err := tbl.RequestState(c.player()); err != nil {
		c.sendTableError(err)
	}
}

func (c *Connection) handleReconnect(data protocol.ReconnectData) {
	tbl, hub, ok := c.server.registry.Get(data.TableID)
	if !ok {
		c.sendError(protocol.CodeUnknownTable, "Unknown table: "+data.TableID)
		return
	}
	hub.Subscribe(c.player())
	c.addTable(data.TableID)
	if err := tbl.Reconnect(c.player()); err != nil {
		c.sendTableError(err)
	}
}
