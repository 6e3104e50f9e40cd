// Package mcp exposes read-only inspection tools over the Model Context
// Protocol, proxying the REST API. Game mutations stay on the event
// protocol; these tools are for observing lobbies and sessions.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/caio-mrb/project-dad/game/engine"
	"github.com/caio-mrb/project-dad/game/lobby"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// GetMCPServer returns the underlying MCP server for mounting.
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Memory Match Server",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Memory Match Server - MCP Interface

Read-only inspection of the multiplayer memory-match server. Gameplay itself
runs over the websocket event protocol; these tools observe server state.

AVAILABLE TOOLS:
- list_games: pending games waiting for players in the lobby
- list_sessions: live sessions currently being played
- get_session: full board/score state of one session`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_games",
		Description: "List pending games waiting in the lobby",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListGames)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List live game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get the full state of one live session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "integer",
					"description": "Numeric session ID",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)
}

func (c *Client) handleListGames(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count int                 `json:"count"`
		Games []lobby.PendingGame `json:"games"`
	}

	if err := c.apiCall("GET", "/api/games", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Pending Games (%d):\n\n", response.Count)
	for _, g := range response.Games {
		result += fmt.Sprintf("- #%d owner=%s board=%dx%d players=%d/%d\n",
			g.ID, g.Players[0].User.Nickname, g.Board.Rows, g.Board.Cols,
			len(g.Players), g.PlayerCapacity)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int           `json:"count"`
		Sessions []engine.Game `json:"sessions"`
	}

	if err := c.apiCall("GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Live Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		result += fmt.Sprintf("- #%d status=%s board=%dx%d players=%d pairs=%d/%d\n",
			s.ID, s.Status, s.Board.Rows, s.Board.Cols, len(s.Players),
			sumScores(s.Scores), s.MaxPairs)
	}

	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	sessionID, ok := args["session_id"].(float64)
	if !ok {
		return mcp.NewToolResultError("session_id must be a number"), nil
	}

	var session engine.Game
	if err := c.apiCall("GET", fmt.Sprintf("/api/sessions/%d", int(sessionID)), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(string(data)), nil
}

func sumScores(scores []int) int {
	total := 0
	for _, s := range scores {
		total += s
	}
	return total
}

// apiCall performs an HTTP request against the REST API and decodes the
// JSON response into result.
func (c *Client) apiCall(method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}
