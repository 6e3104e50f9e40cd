// Package service orchestrates the lobby, the room coordinator and the game
// engine behind one GameService interface consumed by every transport.
//
// Each method corresponds to one inbound protocol request. Results are
// returned to the caller for acknowledgement while state changes fan out to
// broadcast groups through the Broadcaster interface, keeping the service
// independent of the websocket transport. Deferred flip-back resolution is
// scheduled here with time.AfterFunc; the timer callback re-checks the game
// state under the room lock, so firing late or after cancellation is safe.
package service
