package service

import (
	"fmt"

	"github.com/caio-mrb/project-dad/game/engine"
)

// Broadcast group names. Every authenticated connection is in LobbyGroup and
// its own user group; session participants additionally join the game group.
const LobbyGroup = "lobby"

// GameGroup names the broadcast group of one session.
func GameGroup(gameID int) string {
	return fmt.Sprintf("game_%d", gameID)
}

// UserGroup names the private channel of one user.
func UserGroup(userID int64) string {
	return fmt.Sprintf("user_%d", userID)
}

// Broadcast event names.
const (
	EventLobbyChanged    = "lobbyChanged"
	EventGameStarted     = "gameStarted"
	EventGameChanged     = "gameChanged"
	EventGameEnded       = "gameEnded"
	EventGameQuitted     = "gameQuitted"
	EventGameInterrupted = "gameInterrupted"
)

// PendingFlipbackStatus marks a play acknowledgement whose flip-back
// resolution is deferred.
const PendingFlipbackStatus = "PENDING_FLIPBACK"

// DefaultBoard is the descriptor assigned to a freshly created pending game;
// the owner may resize it before starting.
var DefaultBoard = engine.Board{Rows: 4, Cols: 4}

// PlayResult acknowledges a play request. Status carries
// PendingFlipbackStatus while a flip-back window is open; Game is always the
// post-flip snapshot.
type PlayResult struct {
	Status string       `json:"status,omitempty"`
	Game   *engine.Game `json:"game"`
}

// QuitNotice is the gameQuitted broadcast payload.
type QuitNotice struct {
	UserQuit engine.User  `json:"userQuit"`
	Game     *engine.Game `json:"game"`
}
