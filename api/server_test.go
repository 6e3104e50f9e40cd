package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/caio-mrb/project-dad/game/engine"
	"github.com/caio-mrb/project-dad/game/lobby"
	"github.com/caio-mrb/project-dad/game/room"
	"github.com/caio-mrb/project-dad/game/service"
	"github.com/caio-mrb/project-dad/transport/websocket"
)

// stubBroadcaster satisfies service.Broadcaster without a network.
type stubBroadcaster struct{}

func (stubBroadcaster) Emit(group, event string, payload any) {}
func (stubBroadcaster) Join(connID, group string) bool        { return true }
func (stubBroadcaster) Leave(connID, group string)            {}

func newTestServer() (*Server, service.GameService) {
	svc := service.NewGameService(lobby.NewRegistry(), room.NewRegistry(), stubBroadcaster{})
	return NewServer(svc, websocket.NewHub()), svc
}

func doGet(t *testing.T, server *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
}

// startSession seeds one live session through the service.
func startSession(t *testing.T, svc service.GameService) *engine.Game {
	t.Helper()
	ctx := context.Background()
	owner := service.Caller{ConnID: "conn1", User: engine.User{ID: 1, Nickname: "owner"}}
	guest := service.Caller{ConnID: "conn2", User: engine.User{ID: 2, Nickname: "guest"}}

	pending := svc.AddGame(ctx, owner)
	if _, err := svc.JoinGame(ctx, guest, pending.ID); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	game, err := svc.StartGame(ctx, owner, pending.ID)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return game
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer()

	rec := doGet(t, server, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var body map[string]any
	decodeBody(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("Expected status 'ok', got %v", body["status"])
	}
	if body["connections"] != float64(0) {
		t.Errorf("Expected 0 connections, got %v", body["connections"])
	}
}

func TestListGames(t *testing.T) {
	server, svc := newTestServer()

	rec := doGet(t, server, "/api/games")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var body struct {
		Count int                  `json:"count"`
		Games []*lobby.PendingGame `json:"games"`
	}
	decodeBody(t, rec, &body)
	if body.Count != 0 {
		t.Errorf("Expected an empty lobby, got count %d", body.Count)
	}

	owner := service.Caller{ConnID: "conn1", User: engine.User{ID: 1}}
	svc.AddGame(context.Background(), owner)

	rec = doGet(t, server, "/api/games")
	decodeBody(t, rec, &body)
	if body.Count != 1 || len(body.Games) != 1 {
		t.Errorf("Expected one pending game, got count %d", body.Count)
	}
	if body.Games[0].Owner().ConnID != "conn1" {
		t.Error("Expected the creator to own the listed game")
	}
}

func TestListSessions(t *testing.T) {
	server, svc := newTestServer()

	rec := doGet(t, server, "/api/sessions")
	var body struct {
		Count    int            `json:"count"`
		Sessions []*engine.Game `json:"sessions"`
	}
	decodeBody(t, rec, &body)
	if body.Count != 0 {
		t.Errorf("Expected no sessions, got count %d", body.Count)
	}

	game := startSession(t, svc)

	rec = doGet(t, server, "/api/sessions")
	decodeBody(t, rec, &body)
	if body.Count != 1 {
		t.Fatalf("Expected one session, got count %d", body.Count)
	}
	if body.Sessions[0].ID != game.ID {
		t.Errorf("Expected session %d, got %d", game.ID, body.Sessions[0].ID)
	}
}

func TestGetSession(t *testing.T) {
	server, svc := newTestServer()
	game := startSession(t, svc)

	rec := doGet(t, server, "/api/sessions/1")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var session engine.Game
	decodeBody(t, rec, &session)
	if session.ID != game.ID {
		t.Errorf("Expected session %d, got %d", game.ID, session.ID)
	}
	if session.Status != engine.StatusPlaying {
		t.Errorf("Expected status %q, got %q", engine.StatusPlaying, session.Status)
	}
}

func TestGetSession_NotFound(t *testing.T) {
	server, _ := newTestServer()

	rec := doGet(t, server, "/api/sessions/42")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestGetSession_BadID(t *testing.T) {
	server, _ := newTestServer()

	rec := doGet(t, server, "/api/sessions/abc")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server, _ := newTestServer()

	req := httptest.NewRequest(http.MethodPost, "/api/games", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", rec.Code)
	}
}
