// Package engine provides the core game logic for multiplayer memory-match
// sessions.
//
// The engine package implements the game mechanics including:
//   - Board generation with uniformly shuffled card pairs
//   - Randomized turn order for 2-4 seated players
//   - Flip legality, pair matching and per-seat scoring
//   - Timed flip-back windows with preemptive next-player cancellation
//   - Win detection, quit handling and post-game close
//
// Core Types:
//
// Game holds the authoritative state of one started session. NewGame builds it
// from a board descriptor and the seated players; FlipCard, ResolveFlipback,
// Quit and Close are the only mutating operations. Error is the structured
// protocol error carried back over acknowledgements.
//
// Usage:
//
//	game, err := engine.NewGame(id, engine.Board{Rows: 4, Cols: 4}, players, rng)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	outcome, err := game.FlipCard(connID, 0, 0)
//	if outcome == engine.FlipPending {
//		// schedule ResolveFlipback after engine.FlipbackDelay
//	}
//
// Concurrency:
//
// A Game is not safe for concurrent use. Callers must serialize every
// operation on a given Game, including the deferred ResolveFlipback; the
// room package provides that serialization. ResolveFlipback is written so a
// timer may fire late and find nothing to do.
package engine
