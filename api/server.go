// Package api exposes the HTTP surface: the websocket upgrade endpoint, a
// health check, and read-only JSON snapshots of the lobby and live sessions.
// All game mutations go through the event protocol; these endpoints exist
// for the MCP tools and operational checks.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/caio-mrb/project-dad/game/engine"
	"github.com/caio-mrb/project-dad/game/service"
	"github.com/caio-mrb/project-dad/transport/websocket"
)

// Server routes HTTP traffic to the hub and the inspection handlers.
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server.
func NewServer(gameService service.GameService, hub *websocket.Hub) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/games", s.handleListGames).Methods("GET")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/ws", s.hub.ServeWS)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"connections": s.hub.ConnCount(),
	})
}

// handleListGames returns the pending games waiting in the lobby.
func (s *Server) handleListGames(w http.ResponseWriter, r *http.Request) {
	games := s.service.FetchGames(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(games),
		"games": games,
	})
}

// handleListSessions returns every live session.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.service.ListSessions(r.Context())
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// handleGetSession returns one live session by id.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "session id must be numeric")
		return
	}

	session, err := s.service.GetSession(r.Context(), id)
	if err != nil {
		var protoErr *engine.Error
		if errors.As(err, &protoErr) && protoErr.Code == engine.CodeGameNotFound {
			respondError(w, http.StatusNotFound, protoErr.Message)
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, session)
}
