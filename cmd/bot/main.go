// Command bot drives complete games against a running server through the
// public websocket protocol. It connects a configurable number of automated
// players, has the first one create and start a game, and then plays until
// the game ends. Cards already revealed by any player are remembered, and an
// optional mistake rate forces mismatches so the flip-back path gets
// exercised too.
//
// Useful as a smoke test and as a load generator:
//
//	go run ./cmd/bot -url ws://localhost:8086/ws -bots 3 -games 5 -mistakes 0.3
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/caio-mrb/project-dad/game/engine"
	"github.com/caio-mrb/project-dad/game/lobby"
	"github.com/caio-mrb/project-dad/transport/websocket"
)

var (
	serverURL   = flag.String("url", "ws://localhost:8086/ws", "Server websocket URL")
	botCount    = flag.Int("bots", 2, "Number of automated players (2-4)")
	gameCount   = flag.Int("games", 1, "Number of consecutive games to play")
	rows        = flag.Int("rows", 4, "Board rows")
	cols        = flag.Int("cols", 4, "Board columns")
	mistakeRate = flag.Float64("mistakes", 0.0, "Probability of a deliberate mismatch per pair (0-1)")
	delayMs     = flag.Int("delay", 0, "Delay between plays in milliseconds")
	verbose     = flag.Bool("v", false, "Verbose output")
)

// inbound mirrors the server's response envelope with the payload kept raw so
// each handler can decode its own shape.
type inbound struct {
	ID   int64           `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// bot is one automated player on its own connection.
type bot struct {
	name   string
	userID int64
	conn   *gorilla.Conn
	rng    *rand.Rand

	nextID int64
	acks   chan inbound
	events chan inbound
}

func dialBot(n int) (*bot, error) {
	conn, _, err := gorilla.DefaultDialer.Dial(*serverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", *serverURL, err)
	}

	b := &bot{
		name:   fmt.Sprintf("bot%d", n),
		userID: int64(1000 + n),
		conn:   conn,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano() + int64(n))),
		acks:   make(chan inbound, 8),
		events: make(chan inbound, 64),
	}
	go b.readLoop()

	if _, err := b.request(websocket.ReqLogin, engine.User{ID: b.userID, Nickname: b.name}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("login %s: %w", b.name, err)
	}
	return b, nil
}

// readLoop splits the inbound stream into acknowledgements and broadcasts.
func (b *bot) readLoop() {
	defer close(b.events)
	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("%s: malformed message: %v", b.name, err)
			continue
		}
		if msg.Type == "ack" {
			b.acks <- msg
		} else {
			b.events <- msg
		}
	}
}

// request sends one request and waits for its acknowledgement. An ack whose
// payload decodes as a protocol error is returned as that error.
func (b *bot) request(reqType string, data any) (json.RawMessage, error) {
	b.nextID++
	id := b.nextID

	var payload json.RawMessage
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", reqType, err)
		}
		payload = raw
	}
	if err := b.conn.WriteJSON(websocket.Request{ID: id, Type: reqType, Data: payload}); err != nil {
		return nil, fmt.Errorf("send %s: %w", reqType, err)
	}

	for {
		select {
		case ack, ok := <-b.acks:
			if !ok {
				return nil, fmt.Errorf("%s: connection closed", b.name)
			}
			if ack.ID != id {
				continue
			}
			var protoErr engine.Error
			if err := json.Unmarshal(ack.Data, &protoErr); err == nil && protoErr.Code != 0 {
				return nil, &protoErr
			}
			return ack.Data, nil
		case <-time.After(10 * time.Second):
			return nil, fmt.Errorf("%s: timed out waiting for %s ack", b.name, reqType)
		}
	}
}

// play runs the bot's event loop for one game: every state broadcast may
// prompt exactly one flip, so the loop self-corrects from stale state through
// the next broadcast.
func (b *bot) play(gameID int) (*engine.Game, error) {
	for msg := range b.events {
		switch msg.Type {
		case "gameStarted", "gameChanged":
			var game engine.Game
			if err := json.Unmarshal(msg.Data, &game); err != nil {
				log.Printf("%s: bad game payload: %v", b.name, err)
				continue
			}
			if game.ID != gameID {
				continue
			}
			b.maybeFlip(&game)

		case "gameEnded":
			var game engine.Game
			if err := json.Unmarshal(msg.Data, &game); err != nil {
				return nil, fmt.Errorf("%s: bad gameEnded payload: %w", b.name, err)
			}
			if game.ID != gameID {
				continue
			}
			if _, err := b.request(websocket.ReqCloseGame, websocket.GameRef{GameID: gameID}); err != nil {
				log.Printf("%s: close failed: %v", b.name, err)
			}
			return &game, nil

		case "gameInterrupted":
			return nil, fmt.Errorf("%s: game %d was interrupted", b.name, gameID)
		}
	}
	return nil, fmt.Errorf("%s: connection closed mid-game", b.name)
}

// maybeFlip plays one card if the broadcast state says it is this bot's move.
// While a flip-back window is open the displayed player is the one allowed to
// preempt it.
func (b *bot) maybeFlip(game *engine.Game) {
	if game.Status != engine.StatusPlaying {
		return
	}
	active := game.CurrentPlayerIndex
	if game.PendingFlipback {
		active = game.DisplayPlayerIndex
	}
	if game.Players[game.TurnOrder[active]].User.ID != b.userID {
		return
	}

	row, col, ok := b.chooseCard(game)
	if !ok {
		return
	}

	if *delayMs > 0 {
		time.Sleep(time.Duration(*delayMs) * time.Millisecond)
	}
	if *verbose {
		log.Printf("%s: flipping (%d,%d)", b.name, row, col)
	}

	_, err := b.request(websocket.ReqPlay, websocket.PlayRequest{GameID: game.ID, RowIndex: row, ColIndex: col})
	if err != nil {
		// Stale state; the next broadcast carries the truth.
		if *verbose {
			log.Printf("%s: play rejected: %v", b.name, err)
		}
	}
}

// chooseCard picks the next cell to flip. With one card already up it plays
// the partner, or a wrong card at the configured mistake rate; otherwise it
// opens the lowest unmatched pair.
func (b *bot) chooseCard(game *engine.Game) (int, int, bool) {
	type cell struct{ row, col int }
	byPair := make(map[int][]cell)
	var open *cell
	openPair := 0

	for r := range game.Grid {
		for c := range game.Grid[r] {
			card := game.Grid[r][c]
			if card.Matched {
				continue
			}
			if card.Flipped {
				open = &cell{r, c}
				openPair = card.Pair
				continue
			}
			byPair[card.Pair] = append(byPair[card.Pair], cell{r, c})
		}
	}

	if open != nil {
		if b.rng.Float64() < *mistakeRate {
			for pair, cells := range byPair {
				if pair != openPair && len(cells) > 0 {
					return cells[0].row, cells[0].col, true
				}
			}
		}
		partners := byPair[openPair]
		if len(partners) == 0 {
			return 0, 0, false
		}
		return partners[0].row, partners[0].col, true
	}

	best := -1
	for pair, cells := range byPair {
		if len(cells) == 2 && (best == -1 || pair < best) {
			best = pair
		}
	}
	if best == -1 {
		return 0, 0, false
	}
	return byPair[best][0].row, byPair[best][0].col, true
}

func main() {
	flag.Parse()

	if *botCount < engine.MinPlayers || *botCount > engine.PlayerCapacity {
		log.Fatalf("bots must be between %d and %d", engine.MinPlayers, engine.PlayerCapacity)
	}

	log.Printf("Connecting %d bots to %s", *botCount, *serverURL)

	bots := make([]*bot, *botCount)
	for i := range bots {
		b, err := dialBot(i + 1)
		if err != nil {
			log.Fatalf("Failed to connect: %v", err)
		}
		defer b.conn.Close()
		bots[i] = b
	}

	wins := make(map[int64]int)
	for round := 1; round <= *gameCount; round++ {
		log.Printf("=== Game %d/%d ===", round, *gameCount)

		final, err := runGame(bots)
		if err != nil {
			log.Fatalf("Game %d failed: %v", round, err)
		}

		winner := final.Players[final.Winner].User
		wins[winner.ID]++
		log.Printf("Game %d: winner %s after %d moves, scores %v",
			round, winner.Nickname, final.MoveCount, final.Scores)
	}

	log.Printf("Done. Wins per bot: %v", wins)
	os.Exit(0)
}

// runGame sets up one game in the lobby, starts it, and lets every bot play
// to completion.
func runGame(bots []*bot) (*engine.Game, error) {
	owner := bots[0]

	raw, err := owner.request(websocket.ReqAddGame, nil)
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	var pending lobby.PendingGame
	if err := json.Unmarshal(raw, &pending); err != nil {
		return nil, fmt.Errorf("parse pending game: %w", err)
	}

	for _, b := range bots[1:] {
		if _, err := b.request(websocket.ReqJoinGame, websocket.GameRef{GameID: pending.ID}); err != nil {
			return nil, fmt.Errorf("%s join: %w", b.name, err)
		}
	}

	if *rows != 4 || *cols != 4 {
		// Board resizes are not acknowledged, so send without waiting.
		update := websocket.BoardUpdate{GameID: pending.ID, NewBoard: engine.Board{Rows: *rows, Cols: *cols}}
		raw, err := json.Marshal(update)
		if err != nil {
			return nil, fmt.Errorf("marshal resize: %w", err)
		}
		if err := owner.conn.WriteJSON(websocket.Request{Type: websocket.ReqUpdateBoardSize, Data: raw}); err != nil {
			return nil, fmt.Errorf("resize board: %w", err)
		}
	}

	if _, err := owner.request(websocket.ReqStartGame, websocket.GameRef{GameID: pending.ID}); err != nil {
		return nil, fmt.Errorf("start game: %w", err)
	}

	var (
		mu    sync.Mutex
		final *engine.Game
		first error
		wg    sync.WaitGroup
	)
	for _, b := range bots {
		wg.Add(1)
		go func(b *bot) {
			defer wg.Done()
			game, err := b.play(pending.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil && first == nil {
				first = err
			}
			if game != nil {
				final = game
			}
		}(b)
	}
	wg.Wait()

	if first != nil {
		return nil, first
	}
	if final == nil {
		return nil, fmt.Errorf("no bot observed the game ending")
	}
	return final, nil
}
