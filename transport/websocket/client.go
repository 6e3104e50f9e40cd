package websocket

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/caio-mrb/project-dad/game/engine"
	"github.com/caio-mrb/project-dad/game/service"
)

// Client is one connected peer. The user field is written only from the
// client's own readPump, so dispatch never races on it.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	id   string
	user *engine.User
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		id:   uuid.NewString(),
	}
}

// readPump reads requests from the connection and dispatches them until the
// peer goes away.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
		c.handleMessage(data)
	}
}

// writePump pumps queued messages to the connection and keeps it alive with
// pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage decodes one request and routes it. Identity requests are
// handled here; everything else requires a bound user and goes to the game
// service.
func (c *Client) handleMessage(data []byte) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		log.Printf("Client %s sent malformed request: %v", c.id, err)
		return
	}

	switch req.Type {
	case ReqLogin:
		c.handleLogin(req)
		return
	case ReqEcho:
		c.ack(req.ID, json.RawMessage(req.Data))
		return
	}

	// Everything below requires an authenticated user.
	if c.user == nil {
		c.ack(req.ID, &engine.Error{Code: engine.CodeNotAuthenticated, Message: "User is not authenticated!"})
		return
	}

	ctx := context.Background()
	caller := service.Caller{ConnID: c.id, User: *c.user}
	svc := c.hub.service

	switch req.Type {
	case ReqLogout:
		svc.Logout(ctx, caller)
		c.hub.Leave(c.id, service.UserGroup(c.user.ID))
		c.hub.Leave(c.id, service.LobbyGroup)
		c.user = nil

	case ReqFetchGames:
		c.ack(req.ID, svc.FetchGames(ctx))

	case ReqAddGame:
		c.ack(req.ID, svc.AddGame(ctx, caller))

	case ReqJoinGame:
		var ref GameRef
		if !c.decode(req, &ref) {
			return
		}
		game, err := svc.JoinGame(ctx, caller, ref.GameID)
		c.ackResult(req.ID, game, err)

	case ReqLeaveGame:
		c.ack(req.ID, svc.LeaveGame(ctx, caller))

	case ReqUpdateBoardSize:
		var update BoardUpdate
		if !c.decode(req, &update) {
			return
		}
		// Owner-only; silently ignored otherwise, so no acknowledgement.
		svc.UpdateBoard(ctx, caller, update.GameID, update.NewBoard)

	case ReqStartGame:
		var ref GameRef
		if !c.decode(req, &ref) {
			return
		}
		game, err := svc.StartGame(ctx, caller, ref.GameID)
		c.ackResult(req.ID, game, err)

	case ReqFetchPlayingGames:
		c.ack(req.ID, svc.FetchPlayingGames(ctx, caller))

	case ReqPlay:
		var play PlayRequest
		if !c.decode(req, &play) {
			return
		}
		result, err := svc.Play(ctx, caller, play.GameID, play.RowIndex, play.ColIndex)
		c.ackResult(req.ID, result, err)

	case ReqQuitGame:
		var ref GameRef
		if !c.decode(req, &ref) {
			return
		}
		game, err := svc.QuitGame(ctx, caller, ref.GameID)
		c.ackResult(req.ID, game, err)

	case ReqCloseGame:
		var ref GameRef
		if !c.decode(req, &ref) {
			return
		}
		closed, err := svc.CloseGame(ctx, caller, ref.GameID)
		c.ackResult(req.ID, closed, err)

	default:
		log.Printf("Client %s sent unknown request type %q", c.id, req.Type)
	}
}

// handleLogin binds the submitted identity to the connection and joins the
// shared lobby group plus the user's private channel.
func (c *Client) handleLogin(req Request) {
	var user engine.User
	if err := json.Unmarshal(req.Data, &user); err != nil || user.ID == 0 {
		log.Printf("Client %s sent invalid login payload", c.id)
		return
	}

	// Relogin rebinds the identity; stop delivering the old user's
	// private channel first.
	if c.user != nil && c.user.ID != user.ID {
		c.hub.Leave(c.id, service.UserGroup(c.user.ID))
	}

	c.user = &user
	c.hub.Join(c.id, service.UserGroup(user.ID))
	c.hub.Join(c.id, service.LobbyGroup)
	c.ack(req.ID, true)
}

// decode unmarshals a request payload, logging and dropping the request when
// the payload does not match the declared shape.
func (c *Client) decode(req Request, v any) bool {
	if err := json.Unmarshal(req.Data, v); err != nil {
		log.Printf("Client %s sent invalid %s payload: %v", c.id, req.Type, err)
		return false
	}
	return true
}

// ackResult acknowledges with the result, or with the structured error when
// the operation was rejected.
func (c *Client) ackResult(id int64, result any, err error) {
	if err != nil {
		c.ack(id, err)
		return
	}
	c.ack(id, result)
}

// ack queues an acknowledgement for one request.
func (c *Client) ack(id int64, data any) {
	payload, err := json.Marshal(&Response{ID: id, Type: ackType, Data: data})
	if err != nil {
		log.Printf("Failed to marshal ack for client %s: %v", c.id, err)
		return
	}
	select {
	case c.send <- payload:
	default:
		log.Printf("Dropping ack for client %s (buffer full)", c.id)
	}
}
