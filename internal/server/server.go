// Package server exposes the tables over a WebSocket API: one connection per
// player, a session registry for reconnects, and per-table event hubs.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cardroomlabs/holdemd/internal/auth"
	"github.com/cardroomlabs/holdemd/internal/protocol"
	"github.com/cardroomlabs/holdemd/internal/store"
)

// Server represents the WebSocket server
type Server struct {
	config    *ServerConfig
	upgrader  websocket.Upgrader
	logger    *log.Logger
	validator auth.Validator
	sessions  *SessionRegistry
	registry  *TableRegistry
	metrics   *Metrics
	promReg   *prometheus.Registry

	mu          sync.RWMutex
	connections map[*Connection]bool

	httpServer *http.Server
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewServer creates a new WebSocket server backed by st for balances and
// snapshots. st may be nil for an in-memory dev server.
func NewServer(config *ServerConfig, logger *log.Logger, st store.Store) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	var validator auth.Validator
	if config.Server.AuthURL != "" {
		validator = auth.NewHTTPValidator(config.Server.AuthURL)
	} else {
		validator = auth.NewNoopValidator()
	}

	promReg := prometheus.NewRegistry()
	metrics := NewMetrics(promReg)
	sessions := NewSessionRegistry()
	registry := NewTableRegistry(logger, nil, sessions, st, metrics, config.TableConfig())

	return &Server{
		config: config,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				// In production, implement proper origin checking
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:      logger.WithPrefix("server"),
		validator:   validator,
		sessions:    sessions,
		registry:    registry,
		metrics:     metrics,
		promReg:     promReg,
		connections: make(map[*Connection]bool),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Registry returns the server's table registry.
func (s *Server) Registry() *TableRegistry {
	return s.registry
}

// Recover rebuilds snapshotted tables at boot.
func (s *Server) Recover(ctx context.Context) error {
	return s.registry.Recover(ctx)
}

// Start starts the WebSocket server and blocks until it stops.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/tables", s.handleTables)
	mux.Handle("/metrics", promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:              s.config.GetServerAddress(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting WebSocket server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the server down: every table closes (refunding stacks), every
// connection is dropped, and the HTTP listener drains.
func (s *Server) Stop(ctx context.Context) error {
	s.cancel()

	s.registry.CloseAll("server shutdown")

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s)

	s.mu.Lock()
	s.connections[client] = true
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client connected", "total", total)

	client.Start()

	go func() {
		<-client.ctx.Done()
		s.mu.Lock()
		delete(s.connections, client)
		total := len(s.connections)
		s.mu.Unlock()
		s.logger.Info("Client disconnected", "total", total)
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// handleTables returns the sanitized state of every open table, for
// operator inspection.
func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	tables := s.registry.List()
	states := make([]protocol.TableStateData, 0, len(tables))
	for _, tbl := range tables {
		states = append(states, tbl.State())
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"count":  len(states),
		"tables": states,
	}); err != nil {
		s.logger.Error("Failed to encode table list", "error", err)
	}
}
