package service

import (
	"context"

	"github.com/caio-mrb/project-dad/game/engine"
	"github.com/caio-mrb/project-dad/game/lobby"
)

// GameService defines all lobby and session operations exposed over the
// event protocol. Errors returned to callers are *engine.Error values ready
// for the acknowledgement channel.
type GameService interface {
	// Lobby
	FetchGames(ctx context.Context) []*lobby.PendingGame
	AddGame(ctx context.Context, caller Caller) *lobby.PendingGame
	JoinGame(ctx context.Context, caller Caller, gameID int) (*lobby.PendingGame, error)
	LeaveGame(ctx context.Context, caller Caller) []*lobby.PendingGame
	UpdateBoard(ctx context.Context, caller Caller, gameID int, board engine.Board)

	// Sessions
	StartGame(ctx context.Context, caller Caller, gameID int) (*engine.Game, error)
	FetchPlayingGames(ctx context.Context, caller Caller) []*engine.Game
	Play(ctx context.Context, caller Caller, gameID, row, col int) (*PlayResult, error)
	QuitGame(ctx context.Context, caller Caller, gameID int) (*engine.Game, error)
	CloseGame(ctx context.Context, caller Caller, gameID int) (bool, error)

	// Inspection (read-only HTTP/MCP surface)
	ListSessions(ctx context.Context) []*engine.Game
	GetSession(ctx context.Context, gameID int) (*engine.Game, error)

	// Connection lifecycle
	Logout(ctx context.Context, caller Caller)
	Disconnect(connID string)
}

// Caller identifies the authenticated connection issuing a request.
type Caller struct {
	ConnID string
	User   engine.User
}

// Player returns the caller as a seatable player.
func (c Caller) Player() engine.Player {
	return engine.Player{User: c.User, ConnID: c.ConnID}
}

// Broadcaster delivers unsolicited events to broadcast groups and manages
// group membership. The websocket hub implements it; tests substitute a
// recording fake. Emit must capture the payload synchronously so callers may
// invoke it while holding a room lock.
type Broadcaster interface {
	Emit(group, event string, payload any)
	Join(connID, group string) bool
	Leave(connID, group string)
}
