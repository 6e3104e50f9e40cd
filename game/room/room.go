// Package room maps live sessions to the connections physically present in
// them and serializes all mutations of a session's game state.
//
// Each Room carries one mutex; every engine call for that session goes
// through Do, giving the single-mutation-in-flight guarantee the engine
// relies on. Rooms are fully independent, so no cross-room locking exists.
package room

import (
	"sync"

	"github.com/caio-mrb/project-dad/game/engine"
)

// Room is one live session together with the set of connected participants.
type Room struct {
	ID   int
	Game *engine.Game

	mu      sync.Mutex
	members map[string]bool
}

// Do runs fn while holding the room's lock. Every read or mutation of the
// room's game must happen inside fn, including broadcasts derived from it.
func (r *Room) Do(fn func(g *engine.Game)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.Game)
}

// HasMember reports whether the connection is present in the room.
func (r *Room) HasMember(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members[connID]
}

// RemoveMember drops the connection from the room and returns the number of
// members left.
func (r *Room) RemoveMember(connID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, connID)
	return len(r.members)
}

// Registry owns the set of live rooms keyed by session id.
type Registry struct {
	mu    sync.RWMutex
	rooms map[int]*Room
}

// NewRegistry creates an empty room registry.
func NewRegistry() *Registry {
	return &Registry{rooms: make(map[int]*Room)}
}

// Create registers a room for a started game with its initial members. It
// fails if a room for that session already exists.
func (reg *Registry) Create(game *engine.Game) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, exists := reg.rooms[game.ID]; exists {
		return nil, false
	}

	members := make(map[string]bool, len(game.Players))
	for _, p := range game.Players {
		members[p.ConnID] = true
	}
	room := &Room{ID: game.ID, Game: game, members: members}
	reg.rooms[game.ID] = room
	return room, true
}

// Get returns the room for a session id.
func (reg *Registry) Get(id int) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[id]
	return room, ok
}

// Delete reclaims a room. It is idempotent.
func (reg *Registry) Delete(id int) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, id)
}

// All returns every live room.
func (reg *Registry) All() []*Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	result := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		result = append(result, room)
	}
	return result
}

// ForConn returns every room the connection is a member of, for disconnect
// teardown and for listing the games a user is playing.
func (reg *Registry) ForConn(connID string) []*Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	var result []*Room
	for _, room := range reg.rooms {
		if room.HasMember(connID) {
			result = append(result, room)
		}
	}
	return result
}
