// Package lobby holds the registry of pending games waiting for players.
//
// A pending game is owned by its first participant. The registry is safe for
// concurrent use; every operation runs to completion under one mutex so no
// two lobby mutations interleave.
package lobby

import (
	"sort"
	"sync"

	"github.com/caio-mrb/project-dad/game/engine"
)

// PendingGame is a lobby entry awaiting enough players before becoming a live
// session. The first player is the owner.
type PendingGame struct {
	ID             int             `json:"id"`
	Status         engine.Status   `json:"status"`
	Board          engine.Board    `json:"board"`
	Players        []engine.Player `json:"players"`
	PlayerCapacity int             `json:"playerCapacity"`
}

// Owner returns the owning player. A pending game always has at least one
// player; it is deleted when its owner leaves.
func (p *PendingGame) Owner() engine.Player {
	return p.Players[0]
}

// clone returns a copy safe to hand out after the registry lock is released.
func (p *PendingGame) clone() *PendingGame {
	cp := *p
	cp.Players = append([]engine.Player(nil), p.Players...)
	return &cp
}

// HasConn reports whether the connection is seated in this game.
func (p *PendingGame) HasConn(connID string) bool {
	for _, player := range p.Players {
		if player.ConnID == connID {
			return true
		}
	}
	return false
}

// Registry manages the set of not-yet-started games and assigns their IDs.
type Registry struct {
	mu     sync.Mutex
	games  map[int]*PendingGame
	nextID int
}

// NewRegistry creates an empty lobby registry.
func NewRegistry() *Registry {
	return &Registry{
		games:  make(map[int]*PendingGame),
		nextID: 1,
	}
}

// Create allocates a new pending game owned by the caller. Any previous lobby
// membership of the caller is removed first, so creating while owning another
// pending game deletes that game.
func (r *Registry) Create(owner engine.Player, board engine.Board) *PendingGame {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(owner.ConnID)

	game := &PendingGame{
		ID:             r.nextID,
		Status:         engine.StatusPending,
		Board:          board,
		Players:        []engine.Player{owner},
		PlayerCapacity: engine.PlayerCapacity,
	}
	r.nextID++
	r.games[game.ID] = game
	return game.clone()
}

// Join seats a player in the identified pending game, preserving arrival
// order. A player already seated elsewhere is removed from that game first;
// if they owned it, the whole game is deleted.
func (r *Registry) Join(id int, player engine.Player) (*PendingGame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	game, ok := r.games[id]
	if !ok {
		return nil, &engine.Error{Code: engine.CodeGameNotFound, Message: "Game not found!"}
	}
	if game.HasConn(player.ConnID) {
		return nil, &engine.Error{Code: engine.CodeAlreadyJoined, Message: "User cannot join a game that they have already joined!"}
	}

	r.leaveLocked(player.ConnID)

	if len(game.Players) >= game.PlayerCapacity {
		return nil, &engine.Error{Code: engine.CodeGameFull, Message: "Game is already full (max 4 players allowed)!"}
	}

	game.Players = append(game.Players, player)
	return game.clone(), nil
}

// Leave removes the connection from every pending game it belongs to. Games
// owned by the leaving connection are deleted entirely; there is no ownership
// transfer for pending games. It returns the updated game list for broadcast.
func (r *Registry) Leave(connID string) []*PendingGame {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(connID)
	return r.listLocked()
}

// UpdateBoard changes a pending game's board descriptor. Only the owner may
// resize, and only to a board with an even cell count; anything else is a
// no-op. It reports whether the board changed.
func (r *Registry) UpdateBoard(id int, connID string, board engine.Board) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	game, ok := r.games[id]
	if !ok || game.Owner().ConnID != connID || !board.Valid() {
		return false
	}
	game.Board = board
	return true
}

// Remove deletes a pending game. It is idempotent.
func (r *Registry) Remove(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.games, id)
}

// Get returns a snapshot of the pending game with the given id.
func (r *Registry) Get(id int) (*PendingGame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	game, ok := r.games[id]
	if !ok {
		return nil, false
	}
	return game.clone(), true
}

// List returns a consistent snapshot of all pending games ordered by id.
func (r *Registry) List() []*PendingGame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listLocked()
}

func (r *Registry) listLocked() []*PendingGame {
	result := make([]*PendingGame, 0, len(r.games))
	for _, game := range r.games {
		result = append(result, game.clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

func (r *Registry) leaveLocked(connID string) {
	for id, game := range r.games {
		idx := -1
		for i, player := range game.Players {
			if player.ConnID == connID {
				idx = i
				break
			}
		}
		if idx < 0 {
			continue
		}
		if idx == 0 {
			delete(r.games, id)
			continue
		}
		game.Players = append(game.Players[:idx], game.Players[idx+1:]...)
	}
}
