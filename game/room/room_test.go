package room

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/caio-mrb/project-dad/game/engine"
)

func testSession(t *testing.T, id, players int) *engine.Game {
	t.Helper()
	seats := make([]engine.Player, players)
	for i := range seats {
		seats[i] = engine.Player{
			User:   engine.User{ID: int64(i + 1)},
			ConnID: fmt.Sprintf("conn%d", i+1),
		}
	}
	g, err := engine.NewGame(id, engine.Board{Rows: 4, Cols: 4}, seats, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("Failed to create game: %v", err)
	}
	return g
}

func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry()
	game := testSession(t, 1, 2)

	room, ok := reg.Create(game)
	if !ok {
		t.Fatal("Expected room creation to succeed")
	}
	if room.ID != game.ID {
		t.Errorf("Expected room id %d, got %d", game.ID, room.ID)
	}
	for _, p := range game.Players {
		if !room.HasMember(p.ConnID) {
			t.Errorf("Expected %s to be a member", p.ConnID)
		}
	}
	if room.HasMember("stranger") {
		t.Error("Expected unknown connections not to be members")
	}

	if _, ok := reg.Create(game); ok {
		t.Error("Expected creating a duplicate room to fail")
	}
}

func TestRegistry_GetAndDelete(t *testing.T) {
	reg := NewRegistry()
	reg.Create(testSession(t, 1, 2))

	if _, ok := reg.Get(1); !ok {
		t.Error("Expected to find room 1")
	}
	if _, ok := reg.Get(2); ok {
		t.Error("Expected room 2 not to exist")
	}

	reg.Delete(1)
	if _, ok := reg.Get(1); ok {
		t.Error("Expected room 1 to be gone")
	}
	reg.Delete(1) // idempotent
}

func TestRoom_RemoveMember(t *testing.T) {
	reg := NewRegistry()
	room, _ := reg.Create(testSession(t, 1, 3))

	if left := room.RemoveMember("conn1"); left != 2 {
		t.Errorf("Expected 2 members left, got %d", left)
	}
	if room.HasMember("conn1") {
		t.Error("Expected conn1 to be removed")
	}
	if left := room.RemoveMember("conn1"); left != 2 {
		t.Errorf("Expected a repeat removal to be a no-op, got %d", left)
	}
	room.RemoveMember("conn2")
	if left := room.RemoveMember("conn3"); left != 0 {
		t.Errorf("Expected an empty room, got %d members", left)
	}
}

func TestRegistry_ForConn(t *testing.T) {
	reg := NewRegistry()
	reg.Create(testSession(t, 1, 2))
	reg.Create(testSession(t, 2, 3))

	// conn3 only exists in the three-player session.
	rooms := reg.ForConn("conn3")
	if len(rooms) != 1 || rooms[0].ID != 2 {
		t.Errorf("Expected only room 2 for conn3, got %v", rooms)
	}

	rooms = reg.ForConn("conn1")
	if len(rooms) != 2 {
		t.Errorf("Expected conn1 in both rooms, got %d", len(rooms))
	}

	if rooms := reg.ForConn("nobody"); len(rooms) != 0 {
		t.Errorf("Expected no rooms for an unknown connection, got %d", len(rooms))
	}
}

func TestRegistry_All(t *testing.T) {
	reg := NewRegistry()
	if len(reg.All()) != 0 {
		t.Error("Expected an empty registry")
	}
	reg.Create(testSession(t, 1, 2))
	reg.Create(testSession(t, 2, 2))
	if got := len(reg.All()); got != 2 {
		t.Errorf("Expected 2 rooms, got %d", got)
	}
}

func TestRoom_DoSerializesAccess(t *testing.T) {
	reg := NewRegistry()
	room, _ := reg.Create(testSession(t, 1, 2))

	const workers = 8
	const iterations = 100

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				room.Do(func(g *engine.Game) {
					g.MoveCount++
				})
			}
		}()
	}
	wg.Wait()

	room.Do(func(g *engine.Game) {
		if g.MoveCount != workers*iterations {
			t.Errorf("Expected %d serialized increments, got %d", workers*iterations, g.MoveCount)
		}
	})
}
