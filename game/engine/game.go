package engine

import (
	"fmt"
	"math/rand"
	"time"
)

// Game is the authoritative state of one started session. It is mutated only
// through FlipCard, ResolveFlipback, Quit and Interrupt; callers serialize
// access (see the room package).
type Game struct {
	ID      int      `json:"id"`
	Status  Status   `json:"status"`
	Board   Board    `json:"board"`
	Grid    [][]Cell `json:"grid"` // indexed [row][col]
	Players []Player `json:"players"`

	// TurnOrder is a random permutation of seat indices fixed at start.
	// CurrentPlayerIndex and DisplayPlayerIndex are positions within
	// TurnOrder; DisplayPlayerIndex may lead CurrentPlayerIndex while a
	// flip-back window is open.
	TurnOrder          []int `json:"turnOrder"`
	CurrentPlayerIndex int   `json:"currentPlayerIndex"`
	DisplayPlayerIndex int   `json:"displayPlayerIndex"`

	Scores    []int `json:"scores"` // indexed by seat
	MaxPairs  int   `json:"maxPairs"`
	MoveCount int   `json:"moveCount"`
	Winner    int   `json:"winner"` // seat index, -1 while undecided

	FlippedCards    []cellRef `json:"flippedCards"`
	PendingFlipback bool      `json:"pendingFlipback"`

	lastFlipAt       time.Time
	cancelFlipback   bool
	lastPlayWasMatch bool
}

// NewGame initializes a session from a pending game's board and seating. The
// pair keys are duplicated and shuffled uniformly across the grid, and the
// turn order is a uniform permutation of the seats. All cards start
// face-down.
func NewGame(id int, board Board, players []Player, rng *rand.Rand) (*Game, error) {
	if !board.Valid() {
		return nil, fmt.Errorf("board %dx%d does not hold a whole number of pairs", board.Rows, board.Cols)
	}
	if len(players) < MinPlayers || len(players) > PlayerCapacity {
		return nil, fmt.Errorf("game needs %d-%d players, got %d", MinPlayers, PlayerCapacity, len(players))
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	maxPairs := board.Cells() / 2

	values := make([]int, 0, board.Cells())
	for pair := 1; pair <= maxPairs; pair++ {
		values = append(values, pair, pair)
	}
	rng.Shuffle(len(values), func(i, j int) {
		values[i], values[j] = values[j], values[i]
	})

	grid := make([][]Cell, board.Rows)
	idx := 0
	for row := range grid {
		grid[row] = make([]Cell, board.Cols)
		for col := range grid[row] {
			grid[row][col] = Cell{Pair: values[idx]}
			idx++
		}
	}

	order := make([]int, len(players))
	for i := range order {
		order[i] = i
	}
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	return &Game{
		ID:        id,
		Status:    StatusPlaying,
		Board:     board,
		Grid:      grid,
		Players:   append([]Player(nil), players...),
		TurnOrder: order,
		Scores:    make([]int, len(players)),
		MaxPairs:  maxPairs,
		Winner:    -1,
	}, nil
}

// Ended reports whether the game finished normally.
func (g *Game) Ended() bool {
	return g.Status == StatusEnded
}

// Interrupt marks the game as interrupted by the room coordinator. It is a
// terminal status distinct from Ended; no winner is computed.
func (g *Game) Interrupt() {
	g.Status = StatusInterrupted
}

// SeatOf returns the seat index for a connection, or -1 if it is not seated.
func (g *Game) SeatOf(connID string) int {
	for seat, p := range g.Players {
		if p.ConnID == connID {
			return seat
		}
	}
	return -1
}

// connAtTurn returns the connection ID of the player at the given position in
// the turn order.
func (g *Game) connAtTurn(pos int) string {
	return g.Players[g.TurnOrder[pos]].ConnID
}

// CanPlay reports whether the connection may flip a card right now. The
// current player may flip while fewer than two cards are unresolved. The next
// player in turn order may additionally flip while a non-matching flip-back
// window is pending, preempting the timer.
func (g *Game) CanPlay(connID string) bool {
	next := (g.CurrentPlayerIndex + 1) % len(g.Players)
	if connID == g.connAtTurn(g.CurrentPlayerIndex) && len(g.FlippedCards) < 2 {
		return true
	}
	if connID == g.connAtTurn(next) &&
		len(g.FlippedCards) == 2 &&
		g.PendingFlipback &&
		!g.lastPlayWasMatch {
		return true
	}
	return false
}

// FlipCard turns the card at (row, col) face-up for the calling connection.
// It returns FlipPending when the flip completed a non-matching pair and a
// flip-back window opened; the caller must then schedule ResolveFlipback.
func (g *Game) FlipCard(connID string, row, col int) (FlipOutcome, error) {
	if g.SeatOf(connID) < 0 {
		return FlipResolved, &Error{CodeNotParticipant, "You are not playing this game!"}
	}
	if g.Ended() {
		return FlipResolved, &Error{CodeGameEnded, "Game has already ended!"}
	}
	if !g.CanPlay(connID) {
		return FlipResolved, &Error{CodeNotYourTurn, "Invalid play: It is not your turn!"}
	}
	if row < 0 || row >= g.Board.Rows || col < 0 || col >= g.Board.Cols {
		return FlipResolved, &Error{CodeCellOutOfRange, "Card position is outside the board!"}
	}
	if g.Grid[row][col].Flipped {
		return FlipResolved, &Error{CodeAlreadyFlipped, "This card is already flipped!"}
	}

	// A flip by the next player while a window is pending resolves that
	// window immediately instead of waiting out the timer.
	if connID != g.connAtTurn(g.CurrentPlayerIndex) && g.PendingFlipback {
		g.cancelFlipback = true
		g.finishFlipback()
	}

	g.Grid[row][col].Flipped = true
	g.FlippedCards = append(g.FlippedCards, cellRef{Row: row, Col: col})

	if len(g.FlippedCards) == 2 {
		g.MoveCount++
		match := g.resolvePair()
		g.lastPlayWasMatch = match
		if !match {
			g.DisplayPlayerIndex = (g.CurrentPlayerIndex + 1) % len(g.Players)
			g.PendingFlipback = true
			g.lastFlipAt = time.Now()
			return FlipPending, nil
		}
	}

	return FlipResolved, nil
}

// resolvePair compares the two unresolved cards. On a match both are marked
// matched, the current player scores, and terminal conditions are checked;
// the scoring player keeps the turn.
func (g *Game) resolvePair() bool {
	first := &g.Grid[g.FlippedCards[0].Row][g.FlippedCards[0].Col]
	second := &g.Grid[g.FlippedCards[1].Row][g.FlippedCards[1].Col]

	if first.Pair != second.Pair {
		return false
	}

	first.Matched = true
	second.Matched = true

	seat := g.TurnOrder[g.CurrentPlayerIndex]
	g.Scores[seat]++
	g.FlippedCards = nil

	if g.Scores[seat] >= g.MaxPairs || g.boardComplete() {
		g.declareWinner()
	}
	return true
}

// ResolveFlipback finalizes a pending flip-back window. It returns true once
// the window is fully resolved, including the case where a preempting flip
// already cancelled it; the caller may then stop waiting. Before the window
// elapses (or when nothing is pending) it returns false and mutates nothing.
func (g *Game) ResolveFlipback() bool {
	if g.cancelFlipback {
		g.cancelFlipback = false
		return true
	}
	if !g.PendingFlipback || g.lastFlipAt.IsZero() {
		return false
	}
	if time.Since(g.lastFlipAt) < FlipbackDelay {
		return false
	}

	g.finishFlipback()
	g.cancelFlipback = false

	if g.boardComplete() && !g.Ended() {
		g.declareWinner()
	}
	return true
}

// finishFlipback flips the unmatched cards back down, clears the transient
// flip state, and hands the turn to the displayed player. The turn is not
// advanced when the window's pair turned out to be a match, so a match
// followed by a late timer never double-advances.
func (g *Game) finishFlipback() {
	if !g.PendingFlipback {
		return
	}
	for _, ref := range g.FlippedCards {
		cell := &g.Grid[ref.Row][ref.Col]
		if !cell.Matched {
			cell.Flipped = false
		}
	}
	g.FlippedCards = nil
	g.PendingFlipback = false
	g.lastFlipAt = time.Time{}

	if !g.lastPlayWasMatch {
		g.CurrentPlayerIndex = g.DisplayPlayerIndex
	}
	g.lastPlayWasMatch = false
}

// Quit ends the game on behalf of a leaving participant. The winner is the
// highest scorer among the remaining players, lowest seat on ties; in a
// two-player game that is simply the other player.
func (g *Game) Quit(connID string) error {
	quitter := g.SeatOf(connID)
	if quitter < 0 {
		return &Error{CodeNotParticipant, "You are not playing this game!"}
	}
	if g.Ended() {
		return &Error{CodeGameEnded, "Game has already ended!"}
	}

	winner := -1
	best := -1
	for seat := range g.Players {
		if seat == quitter {
			continue
		}
		if g.Scores[seat] > best {
			best = g.Scores[seat]
			winner = seat
		}
	}
	g.Winner = winner
	g.Status = StatusEnded
	return nil
}

// Close validates that a participant may release their view of a finished
// game. The room coordinator performs the actual resource cleanup.
func (g *Game) Close(connID string) error {
	if g.SeatOf(connID) < 0 {
		return &Error{CodeNotParticipant, "You are not playing this game!"}
	}
	if !g.Ended() {
		return &Error{CodeGameNotEnded, "Cannot close a game that has not ended!"}
	}
	return nil
}

// Snapshot returns a deep copy safe to marshal or broadcast after the room
// lock is released.
func (g *Game) Snapshot() *Game {
	cp := *g
	cp.Grid = make([][]Cell, len(g.Grid))
	for i := range g.Grid {
		cp.Grid[i] = append([]Cell(nil), g.Grid[i]...)
	}
	cp.Players = append([]Player(nil), g.Players...)
	cp.TurnOrder = append([]int(nil), g.TurnOrder...)
	cp.Scores = append([]int(nil), g.Scores...)
	cp.FlippedCards = append([]cellRef(nil), g.FlippedCards...)
	return &cp
}

func (g *Game) boardComplete() bool {
	for row := range g.Grid {
		for col := range g.Grid[row] {
			if !g.Grid[row][col].Matched {
				return false
			}
		}
	}
	return true
}

// declareWinner records the highest scorer and ends the game. Ties go to the
// lowest seat index: the scan only replaces the leader on a strictly greater
// score.
func (g *Game) declareWinner() {
	winner := -1
	best := -1
	for seat, score := range g.Scores {
		if score > best {
			best = score
			winner = seat
		}
	}
	g.Winner = winner
	g.Status = StatusEnded
}
