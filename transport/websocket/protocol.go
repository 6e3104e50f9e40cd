package websocket

import (
	"encoding/json"

	"github.com/caio-mrb/project-dad/game/engine"
)

// Request is the inbound message envelope. ID is chosen by the client and
// echoed in the acknowledgement, replacing the callback mechanism of
// socket-style transports.
type Request struct {
	ID   int64           `json:"id,omitempty"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Response is the outbound envelope, used both for acknowledgements
// (Type "ack", ID echoing the request) and for unsolicited broadcast events
// (Type is the event name, no ID). Error acknowledgements carry an
// engine.Error as Data, serializing to {errorCode, errorMessage}.
type Response struct {
	ID   int64  `json:"id,omitempty"`
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Inbound request names.
const (
	ReqLogin             = "login"
	ReqLogout            = "logout"
	ReqEcho              = "echo"
	ReqFetchGames        = "fetchGames"
	ReqAddGame           = "addGame"
	ReqJoinGame          = "joinGame"
	ReqLeaveGame         = "leaveGame"
	ReqUpdateBoardSize   = "updateBoardSize"
	ReqStartGame         = "startGame"
	ReqFetchPlayingGames = "fetchPlayingGames"
	ReqPlay              = "play"
	ReqQuitGame          = "quitGame"
	ReqCloseGame         = "closeGame"
)

const ackType = "ack"

// GameRef addresses one pending game or session.
type GameRef struct {
	GameID int `json:"gameId"`
}

// PlayRequest asks to flip the card at (RowIndex, ColIndex).
type PlayRequest struct {
	GameID   int `json:"gameId"`
	RowIndex int `json:"rowIndex"`
	ColIndex int `json:"colIndex"`
}

// BoardUpdate resizes a pending game's board. Owner-only.
type BoardUpdate struct {
	GameID   int          `json:"gameId"`
	NewBoard engine.Board `json:"newBoard"`
}
