// Command analyze prints quick, human-readable heuristics about a running
// server. It summarizes the lobby (games waiting, seats filled, which can
// start) and every live session (board progress, score spread, open flip-back
// windows), and highlights games that look stuck.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/caio-mrb/project-dad/game/engine"
	"github.com/caio-mrb/project-dad/game/lobby"
)

var serverURL = flag.String("url", "http://localhost:8086", "Server base URL")

func main() {
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	var lobbyResp struct {
		Count int                  `json:"count"`
		Games []*lobby.PendingGame `json:"games"`
	}
	if err := fetch(client, *serverURL+"/api/games", &lobbyResp); err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching lobby: %v\n", err)
		os.Exit(1)
	}

	var sessionResp struct {
		Count    int            `json:"count"`
		Sessions []*engine.Game `json:"sessions"`
	}
	if err := fetch(client, *serverURL+"/api/sessions", &sessionResp); err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching sessions: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== Lobby (%d pending) ===\n", lobbyResp.Count)
	for _, game := range lobbyResp.Games {
		analyzePending(game)
	}
	if lobbyResp.Count == 0 {
		fmt.Println("No games waiting for players")
	}

	fmt.Printf("\n=== Sessions (%d live) ===\n", sessionResp.Count)
	for _, session := range sessionResp.Sessions {
		analyzeSession(session)
	}
	if sessionResp.Count == 0 {
		fmt.Println("No games in progress")
	}
}

func fetch(client *http.Client, url string, v any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func analyzePending(game *lobby.PendingGame) {
	fmt.Printf("\nGame #%d\n", game.ID)
	fmt.Printf("Owner: %s\n", game.Owner().User.Nickname)
	fmt.Printf("Board: %dx%d (%d pairs)\n", game.Board.Rows, game.Board.Cols, game.Board.Cells()/2)
	fmt.Printf("Seats: %d/%d filled\n", len(game.Players), game.PlayerCapacity)

	if len(game.Players) < engine.MinPlayers {
		fmt.Printf("WARNING: needs %d more player(s) before it can start\n", engine.MinPlayers-len(game.Players))
	} else {
		fmt.Println("Ready to start")
	}
}

func analyzeSession(game *engine.Game) {
	fmt.Printf("\nGame #%d [%s]\n", game.ID, statusName(game.Status))
	fmt.Printf("Board: %dx%d, Moves: %d\n", game.Board.Rows, game.Board.Cols, game.MoveCount)

	matched := 0
	for _, row := range game.Grid {
		for _, cell := range row {
			if cell.Matched {
				matched++
			}
		}
	}
	fmt.Printf("Progress: %d/%d pairs matched\n", matched/2, game.MaxPairs)

	for seat, player := range game.Players {
		marker := ""
		if seat == game.TurnOrder[game.CurrentPlayerIndex] {
			marker = " <- to play"
		}
		fmt.Printf("  %s: %d%s\n", player.User.Nickname, game.Scores[seat], marker)
	}

	if game.PendingFlipback {
		fmt.Println("Open flip-back window (mismatched pair still visible)")
	}
	if game.Winner >= 0 {
		fmt.Printf("Winner: %s\n", game.Players[game.Winner].User.Nickname)
	}
	if game.Status == engine.StatusInterrupted {
		fmt.Println("WARNING: a player disconnected; the game cannot continue")
	}
}

func statusName(s engine.Status) string {
	switch s {
	case engine.StatusPending:
		return "pending"
	case engine.StatusPlaying:
		return "playing"
	case engine.StatusEnded:
		return "ended"
	case engine.StatusInterrupted:
		return "interrupted"
	default:
		return string(s)
	}
}
