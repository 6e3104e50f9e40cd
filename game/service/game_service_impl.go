package service

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/caio-mrb/project-dad/game/engine"
	"github.com/caio-mrb/project-dad/game/lobby"
	"github.com/caio-mrb/project-dad/game/room"
)

// gameServiceImpl implements the GameService interface.
type gameServiceImpl struct {
	lobby       *lobby.Registry
	rooms       *room.Registry
	broadcaster Broadcaster

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewGameService creates a new game service instance.
func NewGameService(lobbyReg *lobby.Registry, rooms *room.Registry, broadcaster Broadcaster) GameService {
	return &gameServiceImpl{
		lobby:       lobbyReg,
		rooms:       rooms,
		broadcaster: broadcaster,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// FetchGames returns a snapshot of all pending games.
func (s *gameServiceImpl) FetchGames(ctx context.Context) []*lobby.PendingGame {
	return s.lobby.List()
}

// AddGame creates a pending game owned by the caller and announces the new
// lobby state.
func (s *gameServiceImpl) AddGame(ctx context.Context, caller Caller) *lobby.PendingGame {
	game := s.lobby.Create(caller.Player(), DefaultBoard)
	s.broadcaster.Emit(LobbyGroup, EventLobbyChanged, s.lobby.List())
	return game
}

// JoinGame seats the caller in a pending game.
func (s *gameServiceImpl) JoinGame(ctx context.Context, caller Caller, gameID int) (*lobby.PendingGame, error) {
	game, err := s.lobby.Join(gameID, caller.Player())
	if err != nil {
		return nil, err
	}
	s.broadcaster.Emit(LobbyGroup, EventLobbyChanged, s.lobby.List())
	return game, nil
}

// LeaveGame removes the caller from every pending game they belong to.
func (s *gameServiceImpl) LeaveGame(ctx context.Context, caller Caller) []*lobby.PendingGame {
	games := s.lobby.Leave(caller.ConnID)
	s.broadcaster.Emit(LobbyGroup, EventLobbyChanged, games)
	return games
}

// UpdateBoard resizes a pending game's board. Non-owner requests are
// silently ignored.
func (s *gameServiceImpl) UpdateBoard(ctx context.Context, caller Caller, gameID int, board engine.Board) {
	if s.lobby.UpdateBoard(gameID, caller.ConnID, board) {
		s.broadcaster.Emit(LobbyGroup, EventLobbyChanged, s.lobby.List())
	}
}

// StartGame promotes a pending game into a live session. Only the owner may
// start, every seated player's connection must still be registered, and the
// pending game is removed from the lobby on success.
func (s *gameServiceImpl) StartGame(ctx context.Context, caller Caller, gameID int) (*engine.Game, error) {
	pending, ok := s.lobby.Get(gameID)
	if !ok {
		return nil, &engine.Error{Code: engine.CodeGameNotFound, Message: "Game not found!"}
	}
	if pending.Owner().ConnID != caller.ConnID {
		return nil, &engine.Error{Code: engine.CodeNotOwner, Message: "Only the game creator (owner) can start the game."}
	}
	if len(pending.Players) < engine.MinPlayers {
		return nil, &engine.Error{Code: engine.CodeInsufficientPlayers, Message: "Not enough players to start the game!"}
	}

	game, err := s.newGame(pending)
	if err != nil {
		log.Printf("start game %d: %v", gameID, err)
		return nil, &engine.Error{Code: 3, Message: "Failed to create game room"}
	}

	group := GameGroup(game.ID)
	joined := make([]string, 0, len(game.Players))
	for _, p := range game.Players {
		if !s.broadcaster.Join(p.ConnID, group) {
			for _, connID := range joined {
				s.broadcaster.Leave(connID, group)
			}
			return nil, &engine.Error{Code: engine.CodeRoomJoinFailed, Message: "Failed to connect all players to the game room"}
		}
		joined = append(joined, p.ConnID)
	}

	if _, ok := s.rooms.Create(game); !ok {
		return nil, &engine.Error{Code: 3, Message: "Failed to create game room"}
	}
	s.lobby.Remove(gameID)
	s.broadcaster.Emit(LobbyGroup, EventLobbyChanged, s.lobby.List())

	snap := game.Snapshot()
	s.broadcaster.Emit(group, EventGameStarted, snap)
	return snap, nil
}

// FetchPlayingGames lists the sessions the caller currently participates in.
func (s *gameServiceImpl) FetchPlayingGames(ctx context.Context, caller Caller) []*engine.Game {
	games := []*engine.Game{}
	for _, rm := range s.rooms.ForConn(caller.ConnID) {
		rm.Do(func(g *engine.Game) {
			games = append(games, g.Snapshot())
		})
	}
	return games
}

// Play flips one card for the caller. On a mismatching second card the
// result is pending and a deferred resolution is scheduled; the timer fires
// under the room lock and tolerates the window having been cancelled or the
// game having ended in the meantime.
func (s *gameServiceImpl) Play(ctx context.Context, caller Caller, gameID, row, col int) (*PlayResult, error) {
	rm, ok := s.rooms.Get(gameID)
	if !ok {
		return nil, &engine.Error{Code: engine.CodeNotParticipant, Message: "You are not playing this game!"}
	}

	var result *PlayResult
	var playErr error
	rm.Do(func(g *engine.Game) {
		outcome, err := g.FlipCard(caller.ConnID, row, col)
		if err != nil {
			playErr = err
			return
		}

		snap := g.Snapshot()
		s.broadcaster.Emit(GameGroup(gameID), EventGameChanged, snap)

		result = &PlayResult{Game: snap}
		if outcome == engine.FlipPending {
			result.Status = PendingFlipbackStatus
			time.AfterFunc(engine.FlipbackDelay, func() {
				s.resolveFlipback(rm)
			})
		}
		if g.Ended() {
			s.broadcaster.Emit(GameGroup(gameID), EventGameEnded, snap)
		}
	})

	if playErr != nil {
		return nil, playErr
	}
	return result, nil
}

// resolveFlipback runs when a flip-back timer fires. Nothing is broadcast
// when the window is not due, or when a preempting flip already closed it;
// in that case ResolveFlipback only consumes the cancellation and the state
// was announced with the preempting play.
func (s *gameServiceImpl) resolveFlipback(rm *room.Room) {
	rm.Do(func(g *engine.Game) {
		wasPending := g.PendingFlipback
		if !g.ResolveFlipback() || !wasPending {
			return
		}
		snap := g.Snapshot()
		s.broadcaster.Emit(GameGroup(g.ID), EventGameChanged, snap)
		if g.Ended() {
			s.broadcaster.Emit(GameGroup(g.ID), EventGameEnded, snap)
		}
	})
}

// QuitGame ends the session in favor of the remaining players and removes
// the caller from the room.
func (s *gameServiceImpl) QuitGame(ctx context.Context, caller Caller, gameID int) (*engine.Game, error) {
	rm, ok := s.rooms.Get(gameID)
	if !ok {
		return nil, &engine.Error{Code: engine.CodeNotParticipant, Message: "You are not playing this game!"}
	}

	var snap *engine.Game
	var quitErr error
	rm.Do(func(g *engine.Game) {
		if err := g.Quit(caller.ConnID); err != nil {
			quitErr = err
			return
		}
		snap = g.Snapshot()
		group := GameGroup(gameID)
		s.broadcaster.Emit(group, EventGameChanged, snap)
		s.broadcaster.Emit(group, EventGameQuitted, &QuitNotice{UserQuit: caller.User, Game: snap})
		s.broadcaster.Emit(group, EventGameEnded, snap)
	})
	if quitErr != nil {
		return nil, quitErr
	}

	s.leaveRoom(caller.ConnID, rm)
	return snap, nil
}

// CloseGame releases the caller's view of a finished game.
func (s *gameServiceImpl) CloseGame(ctx context.Context, caller Caller, gameID int) (bool, error) {
	rm, ok := s.rooms.Get(gameID)
	if !ok {
		return false, &engine.Error{Code: engine.CodeNotParticipant, Message: "You are not playing this game!"}
	}

	var closeErr error
	rm.Do(func(g *engine.Game) {
		closeErr = g.Close(caller.ConnID)
	})
	if closeErr != nil {
		return false, closeErr
	}

	s.leaveRoom(caller.ConnID, rm)
	return true, nil
}

// ListSessions returns snapshots of every live session.
func (s *gameServiceImpl) ListSessions(ctx context.Context) []*engine.Game {
	games := []*engine.Game{}
	for _, rm := range s.rooms.All() {
		rm.Do(func(g *engine.Game) {
			games = append(games, g.Snapshot())
		})
	}
	return games
}

// GetSession returns a snapshot of one live session.
func (s *gameServiceImpl) GetSession(ctx context.Context, gameID int) (*engine.Game, error) {
	rm, ok := s.rooms.Get(gameID)
	if !ok {
		return nil, &engine.Error{Code: engine.CodeGameNotFound, Message: "Game not found!"}
	}
	var snap *engine.Game
	rm.Do(func(g *engine.Game) {
		snap = g.Snapshot()
	})
	return snap, nil
}

// Logout tears down the caller's lobby and room state before the transport
// unbinds the identity.
func (s *gameServiceImpl) Logout(ctx context.Context, caller Caller) {
	s.Disconnect(caller.ConnID)
}

// Disconnect reacts to a connection going away: lobby membership is removed,
// and every non-ended session the connection was playing is marked
// interrupted and announced to the surviving participants.
func (s *gameServiceImpl) Disconnect(connID string) {
	games := s.lobby.Leave(connID)
	s.broadcaster.Emit(LobbyGroup, EventLobbyChanged, games)

	for _, rm := range s.rooms.ForConn(connID) {
		rm.Do(func(g *engine.Game) {
			if g.Ended() || g.Status == engine.StatusInterrupted {
				return
			}
			g.Interrupt()
			s.broadcaster.Emit(GameGroup(g.ID), EventGameInterrupted, g.Snapshot())
		})
		s.leaveRoom(connID, rm)
	}
}

// leaveRoom drops the connection from the room's broadcast group and
// reclaims the room once the last member is gone.
func (s *gameServiceImpl) leaveRoom(connID string, rm *room.Room) {
	s.broadcaster.Leave(connID, GameGroup(rm.ID))
	if rm.RemoveMember(connID) == 0 {
		s.rooms.Delete(rm.ID)
	}
}

func (s *gameServiceImpl) newGame(pending *lobby.PendingGame) (*engine.Game, error) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return engine.NewGame(pending.ID, pending.Board, pending.Players, s.rng)
}
