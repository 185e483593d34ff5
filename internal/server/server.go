// Package server exposes the lobby over HTTP and streams table events to
// websocket clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lox/pokerface/internal/game"
	"github.com/lox/pokerface/internal/lobby"
	"github.com/lox/pokerface/internal/store"
	"github.com/lox/pokerface/internal/table"
)

const shutdownTimeout = 5 * time.Second

// Server serves the HTTP API and websocket streams
type Server struct {
	logger   zerolog.Logger
	store    store.Store
	lobby    *lobby.Registry
	upgrader websocket.Upgrader
	mux      *http.ServeMux

	mu    sync.Mutex
	conns map[*Connection]struct{}
}

// NewServer creates a server for the tables in s, played through reg
func NewServer(logger zerolog.Logger, s store.Store, reg *lobby.Registry) *Server {
	srv := &Server{
		logger: logger.With().Str("component", "server").Logger(),
		store:  s,
		lobby:  reg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		mux:   http.NewServeMux(),
		conns: make(map[*Connection]struct{}),
	}

	srv.mux.HandleFunc("GET /health", srv.handleHealth)
	srv.mux.HandleFunc("GET /api/tables", srv.handleListTables)
	srv.mux.HandleFunc("GET /api/tables/{id}", srv.handleGetTable)
	srv.mux.HandleFunc("POST /api/tables/{id}/join", srv.handleJoin)
	srv.mux.HandleFunc("POST /api/tables/{id}/start", srv.handleStart)
	srv.mux.HandleFunc("POST /api/tables/{id}/action", srv.handleAction)
	srv.mux.HandleFunc("POST /api/tables/{id}/sitout", srv.handleSitOut)
	srv.mux.HandleFunc("POST /api/tables/{id}/sitin", srv.handleSitIn)
	srv.mux.HandleFunc("POST /api/session/exit", srv.handleExit)
	srv.mux.HandleFunc("GET /ws", srv.handleWebSocket)
	return srv
}

// Handler returns the server's routes
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().Str("addr", addr).Msg("Starting server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.closeConnections()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	records = store.SortedTables(records)
	for i := range records {
		records[i].CurrentPlayers = s.lobby.Players(records[i].ID)
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	id, ok := s.tableID(w, r)
	if !ok {
		return
	}
	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rec.CurrentPlayers = s.lobby.Players(id)

	detail := TableDetail{TableRecord: rec}
	view, err := s.lobby.Snapshot(id, r.URL.Query().Get("player_id"))
	switch {
	case err == nil:
		detail.Session = &view
	case !errors.Is(err, lobby.ErrNoSession):
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	id, ok := s.tableID(w, r)
	if !ok {
		return
	}
	var req JoinRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.lobby.Join(r.Context(), id, req.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id, ok := s.tableID(w, r)
	if !ok {
		return
	}
	events, err := s.lobby.Start(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelopes(events))
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	id, ok := s.tableID(w, r)
	if !ok {
		return
	}
	var req ActionRequest
	if !s.decode(w, r, &req) {
		return
	}
	events, err := s.lobby.Act(id, req.PlayerID, game.Action{Kind: req.Action, Amount: req.Amount})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelopes(events))
}

func (s *Server) handleSitOut(w http.ResponseWriter, r *http.Request) {
	s.handlePlayer(w, r, s.lobby.SitOut)
}

func (s *Server) handleSitIn(w http.ResponseWriter, r *http.Request) {
	s.handlePlayer(w, r, s.lobby.SitIn)
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request, fn func(int, string) error) {
	id, ok := s.tableID(w, r)
	if !ok {
		return
	}
	var req PlayerRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := fn(id, req.PlayerID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExit(w http.ResponseWriter, r *http.Request) {
	var req ExitRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.lobby.Leave(req.SessionID, req.PlayerID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleWebSocket streams the events of ?table= to the client. With
// ?player_id= the client also receives its own view after every event,
// may send actions, and leaves the table when the connection closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get("table"))
	if err != nil {
		http.Error(w, "table query parameter is required", http.StatusBadRequest)
		return
	}
	playerID := r.URL.Query().Get("player_id")
	if playerID != "" {
		if _, err := s.lobby.Snapshot(id, playerID); err != nil {
			s.writeError(w, err)
			return
		}
	}

	notes, cancel, err := s.lobby.Subscribe(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cancel()
		s.logger.Error().Err(err).Msg("Failed to upgrade connection")
		return
	}

	conn := NewConnection(ws, s.logger, s.lobby, id, playerID)
	s.register(conn)
	conn.Start(notes, cancel)

	go func() {
		<-conn.Done()
		s.unregister(conn)
	}()
}

func (s *Server) register(c *Connection) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	total := len(s.conns)
	s.mu.Unlock()
	s.logger.Info().Int("table_id", c.tableID).Str("player_id", c.playerID).Int("total", total).Msg("Client connected")
}

func (s *Server) unregister(c *Connection) {
	s.mu.Lock()
	delete(s.conns, c)
	total := len(s.conns)
	s.mu.Unlock()

	if c.playerID != "" {
		err := s.lobby.Leave(c.tableID, c.playerID)
		if err != nil && !errors.Is(err, lobby.ErrUnknownPlayer) && !errors.Is(err, lobby.ErrNoSession) {
			s.logger.Warn().Err(err).Str("player_id", c.playerID).Msg("Failed to remove disconnected player")
		}
	}
	s.logger.Info().Int("table_id", c.tableID).Str("player_id", c.playerID).Int("total", total).Msg("Client disconnected")
}

func (s *Server) closeConnections() {
	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		_ = c.Close()
	}
}

func (s *Server) tableID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid table id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageSize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// statusFor maps package errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, lobby.ErrNoSession),
		errors.Is(err, lobby.ErrUnknownPlayer):
		return http.StatusNotFound
	case errors.Is(err, game.ErrSeatOccupancy),
		errors.Is(err, table.ErrRoundInProgress),
		errors.Is(err, table.ErrNoRound),
		errors.Is(err, game.ErrNotEnoughPlayers):
		return http.StatusConflict
	case errors.Is(err, game.ErrInvalidAction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, table.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, lobby.ErrClosed), errors.Is(err, table.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, status, ErrorData{Code: http.StatusText(status), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
