package engine

import "time"

// Status represents the lifecycle state of a game
type Status string

const (
	StatusPending     Status = "PE" // waiting in the lobby, not started
	StatusPlaying     Status = "PL"
	StatusEnded       Status = "E"
	StatusInterrupted Status = "I" // a participant disconnected mid-game
)

const (
	// PlayerCapacity is the fixed seat limit for a pending game.
	PlayerCapacity = 4

	// MinPlayers is the minimum number of seated players to start.
	MinPlayers = 2

	// FlipbackDelay is how long two mismatched cards stay visible before
	// they revert face-down.
	FlipbackDelay = 2000 * time.Millisecond
)

// Protocol error codes. The numeric values are part of the wire contract
// shared with clients; codes 2 and 3 are reused with different meanings
// depending on the request, matching the original protocol.
const (
	CodeInsufficientPlayers = 1
	CodeNotAuthenticated    = 2
	CodeNotOwner            = 2
	CodeAlreadyJoined       = 3
	CodeRoomJoinFailed      = 4
	CodeGameFull            = 5
	CodeGameNotFound        = 6
	CodeNotParticipant      = 10
	CodeGameEnded           = 11
	CodeNotYourTurn         = 12
	CodeAlreadyFlipped      = 13
	CodeGameNotEnded        = 14
	CodeCellOutOfRange      = 15
)

// Error is a recoverable protocol error returned to the caller over the
// acknowledgement channel. It never terminates the connection.
type Error struct {
	Code    int    `json:"errorCode"`
	Message string `json:"errorMessage"`
}

func (e *Error) Error() string {
	return e.Message
}

// User is the denormalized display identity bound to a connection by the
// gateway. The engine only uses it as an opaque reference.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name,omitempty"`
	Nickname string `json:"nickname,omitempty"`
}

// Player seats a user in a pending game or session. ConnID is the stable
// opaque handle of the user's connection.
type Player struct {
	User   User   `json:"user"`
	ConnID string `json:"connId"`
}

// Board describes the card grid dimensions. Rows*Cols must be even so every
// card has a pair.
type Board struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// Cells returns the total number of cells on the board.
func (b Board) Cells() int {
	return b.Rows * b.Cols
}

// Valid reports whether the board can hold a whole number of pairs.
func (b Board) Valid() bool {
	return b.Rows > 0 && b.Cols > 0 && b.Cells()%2 == 0
}

// Cell is a single board position. Flipped means the content is currently
// visible to everyone; matched cells stay flipped permanently.
type Cell struct {
	Pair    int  `json:"pair"`
	Flipped bool `json:"flipped"`
	Matched bool `json:"matched"`
}

// cellRef identifies a flipped-and-unresolved cell within a turn.
type cellRef struct {
	Row int `json:"rowIndex"`
	Col int `json:"colIndex"`
}

// FlipOutcome is the result of a legal FlipCard call.
type FlipOutcome int

const (
	// FlipResolved means the flip completed with no deferred work.
	FlipResolved FlipOutcome = iota
	// FlipPending means a flip-back window opened; the caller must arrange
	// for ResolveFlipback to run after FlipbackDelay.
	FlipPending
)
