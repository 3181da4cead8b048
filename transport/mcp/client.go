package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/letterquest/client-go/game/room"
	"github.com/letterquest/client-go/game/session"
	"github.com/letterquest/client-go/game/state"
	"github.com/letterquest/client-go/transport/socket"
)

// Dialer controls the realtime connection's lifecycle
type Dialer interface {
	Connect(ctx context.Context, token string) error
	Disconnect()
	State() socket.ConnState
}

// Config carries the facade's collaborators
type Config struct {
	Dialer Dialer
	Rooms  *room.Sync
	Games  *session.Sync
}

// Client is a thin MCP tool server over the realtime synchronizers
type Client struct {
	dialer    Dialer
	rooms     *room.Sync
	games     *session.Sync
	mcpServer *server.MCPServer
}

// NewClient creates the MCP facade over an already-constructed connection
// and synchronizer pair.
func NewClient(cfg Config) *Client {
	c := &Client{
		dialer: cfg.Dialer,
		rooms:  cfg.Rooms,
		games:  cfg.Games,
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"LetterQuest Client",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`LetterQuest realtime client - MCP Interface

Cooperative word-puzzle game client. Connect first, join a room, then play.

TYPICAL FLOW:
1. connect with your bearer token
2. list_rooms / create_room / join_room
3. select_character, toggle_ready until everyone is ready
4. start_game (room creator only)
5. perform_action repeatedly; game_state and action_history show progress

Actions combine two items, e.g. perform_action with item1="water" item2="turtle".`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Connection lifecycle
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "connect",
		Description: "Open the realtime connection using a bearer token",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"token": map[string]interface{}{
					"type":        "string",
					"description": "Bearer token from login",
				},
			},
			Required: []string{"token"},
		},
	}, c.handleConnect)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "disconnect",
		Description: "Close the realtime connection",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleDisconnect)

	// Room discovery and membership
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_rooms",
		Description: "List joinable rooms, newest page first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"status": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"waiting", "playing", "paused", "finished"},
					"description": "Filter by room status (optional)",
				},
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number, 1-based",
				},
				"page_size": map[string]interface{}{
					"type":        "integer",
					"description": "Rooms per page",
				},
			},
		},
	}, c.handleListRooms)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_room",
		Description: "Create a new room and become its creator",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Room name",
				},
				"capacity": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum players",
				},
				"username": map[string]interface{}{
					"type":        "string",
					"description": "Display name inside the room",
				},
			},
			Required: []string{"name", "username"},
		},
	}, c.handleCreateRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "join_room",
		Description: "Join a room by its ID",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"room_id": map[string]interface{}{
					"type":        "string",
					"description": "Room ID to join",
				},
				"username": map[string]interface{}{
					"type":        "string",
					"description": "Display name inside the room",
				},
				"character": map[string]interface{}{
					"type":        "string",
					"description": "Character to claim on join (optional)",
				},
			},
			Required: []string{"room_id", "username"},
		},
	}, c.handleJoinRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "leave_room",
		Description: "Leave the current room",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleLeaveRoom)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "select_character",
		Description: "Claim a character in the current room",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"character": map[string]interface{}{
					"type":        "string",
					"description": "Character name to claim",
				},
			},
			Required: []string{"character"},
		},
	}, c.handleSelectCharacter)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "toggle_ready",
		Description: "Set the local player's ready flag",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"ready": map[string]interface{}{
					"type":        "boolean",
					"description": "Desired ready state",
				},
			},
			Required: []string{"ready"},
		},
	}, c.handleToggleReady)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "start_game",
		Description: "Start the game. Only the room creator may start.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleStartGame)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "perform_action",
		Description: "Perform one game action, combining up to two items",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"action_type": map[string]interface{}{
					"type":        "string",
					"description": "Action type, lowercase with underscores (e.g. combine, use, look)",
				},
				"item1": map[string]interface{}{
					"type":        "string",
					"description": "First item (optional)",
				},
				"item2": map[string]interface{}{
					"type":        "string",
					"description": "Second item (optional)",
				},
				"raw_input": map[string]interface{}{
					"type":        "string",
					"description": "Free-form input; defaults to item1+item2",
				},
			},
			Required: []string{"action_type"},
		},
	}, c.handlePerformAction)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Show the current game snapshot and story so far",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "action_history",
		Description: "Show recent game actions, newest last",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum entries to show (default 20)",
				},
			},
		},
	}, c.handleActionHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "room_status",
		Description: "Show the current room and its roster",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleRoomStatus)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// currentRoomID resolves the room the local player is in.
func (c *Client) currentRoomID() (string, error) {
	current := c.rooms.CurrentRoom()
	if current.IsEmpty() {
		return "", fmt.Errorf("not in a room; join_room first")
	}
	return current.ID, nil
}

// Tool handlers

func (c *Client) handleConnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	token, _ := args["token"].(string)

	if err := c.dialer.Connect(ctx, token); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Connected (%s)", c.dialer.State())), nil
}

func (c *Client) handleDisconnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	c.dialer.Disconnect()
	return mcp.NewToolResultText("Disconnected"), nil
}

func (c *Client) handleListRooms(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	status, _ := args["status"].(string)

	page := 1
	if v, ok := args["page"].(float64); ok {
		page = int(v)
	}
	pageSize := 20
	if v, ok := args["page_size"].(float64); ok {
		pageSize = int(v)
	}

	rooms, err := c.rooms.FetchRooms(ctx, state.RoomStatus(status), page, pageSize)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(rooms) == 0 {
		return mcp.NewToolResultText("No rooms found"), nil
	}

	result := fmt.Sprintf("Rooms (page %d):\n\n", page)
	for _, r := range rooms {
		result += fmt.Sprintf("- %s [%s] %s (%d/%d players, code %s)\n",
			r.ID, r.Status, r.Name, r.Occupancy, r.Capacity, r.Code)
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleCreateRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	name, _ := args["name"].(string)
	username, _ := args["username"].(string)

	capacity := 4
	if v, ok := args["capacity"].(float64); ok {
		capacity = int(v)
	}

	created, err := c.rooms.CreateRoom(ctx, room.CreateRoomSpec{
		Name:     name,
		Capacity: capacity,
		Username: username,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Created room:\n\n" + formatRoom(created)), nil
}

func (c *Client) handleJoinRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	roomID, _ := args["room_id"].(string)
	username, _ := args["username"].(string)
	character, _ := args["character"].(string)

	joined, err := c.rooms.JoinRoom(ctx, room.JoinRoomSpec{
		RoomID:    roomID,
		Username:  username,
		Character: character,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Joined room:\n\n" + formatRoom(joined)), nil
}

func (c *Client) handleLeaveRoom(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomID, err := c.currentRoomID()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := c.rooms.LeaveRoom(ctx, roomID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Leaving the room ends the game session for this client.
	c.games.Reset()

	return mcp.NewToolResultText(fmt.Sprintf("Left room %s", roomID)), nil
}

func (c *Client) handleSelectCharacter(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	character, _ := args["character"].(string)

	roomID, err := c.currentRoomID()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := c.rooms.SelectCharacter(ctx, roomID, character); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("Selected character %q", character)), nil
}

func (c *Client) handleToggleReady(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	ready, _ := args["ready"].(bool)

	roomID, err := c.currentRoomID()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	msg, err := c.rooms.ToggleReady(ctx, roomID, ready)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Ready: %v", ready)
	if msg != "" {
		result += "\n" + msg
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleStartGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	roomID, err := c.currentRoomID()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := c.rooms.StartGame(ctx, roomID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText("Game start requested"), nil
}

func (c *Client) handlePerformAction(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})
	actionType, _ := args["action_type"].(string)
	item1, _ := args["item1"].(string)
	item2, _ := args["item2"].(string)
	rawInput, _ := args["raw_input"].(string)

	roomID, err := c.currentRoomID()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := c.games.PerformAction(ctx, roomID, actionType, item1, item2, rawInput)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatActionResult(result)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	snapshot := c.games.Snapshot()
	story := c.games.Story()

	result := formatGameState(snapshot, c.games.Phase())
	if story != "" {
		result += "\nSTORY SO FAR:\n\n" + story + "\n"
	}
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleActionHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments.(map[string]interface{})

	limit := 20
	if v, ok := args["limit"].(float64); ok && int(v) > 0 {
		limit = int(v)
	}

	history := c.games.ActionHistory()
	if len(history) == 0 {
		return mcp.NewToolResultText("No actions yet"), nil
	}
	if len(history) > limit {
		history = history[len(history)-limit:]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Recent actions (%d):\n\n", len(history))
	for _, entry := range history {
		mark := "✓"
		if !entry.Success {
			mark = "✗"
		}
		fmt.Fprintf(&b, "%s %s %s", mark, entry.PlayerName, entry.ActionType)
		if entry.Input != "" {
			fmt.Fprintf(&b, " (%s)", entry.Input)
		}
		if entry.Message != "" {
			fmt.Fprintf(&b, ": %s", firstLine(entry.Message))
		}
		b.WriteString("\n")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleRoomStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	current := c.rooms.CurrentRoom()
	if current.IsEmpty() {
		return mcp.NewToolResultText("Not in a room"), nil
	}
	return mcp.NewToolResultText(formatRoom(current)), nil
}

// Formatters

func formatRoom(r state.Room) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Room: %s (%s)\n", r.Name, r.ID)
	fmt.Fprintf(&b, "Code: %s\n", r.Code)
	fmt.Fprintf(&b, "Status: %s\n", r.Status)
	fmt.Fprintf(&b, "Players: %d/%d\n", r.Occupancy, r.Capacity)

	for _, p := range r.Players {
		line := "- " + p.Username
		if p.Character != "" {
			line += fmt.Sprintf(" as %s", p.Character)
		}
		if p.ID == r.CreatorID {
			line += " (creator)"
		}
		if p.Ready {
			line += " [ready]"
		}
		if !p.Connected {
			line += " [disconnected]"
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func formatGameState(s state.GameState, phase session.Phase) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Phase: %s\n", phase)
	fmt.Fprintf(&b, "Chapter: %d, Level: %d\n", s.Chapter, s.Level)

	if len(s.CollectedLetters) > 0 {
		fmt.Fprintf(&b, "Letters: %s\n", strings.Join(s.CollectedLetters, " "))
	}
	if len(s.Inventory) > 0 {
		fmt.Fprintf(&b, "Inventory: %s\n", strings.Join(s.Inventory, ", "))
	}
	for _, p := range s.Players {
		fmt.Fprintf(&b, "- %s: %d HP", p.Name, p.HP)
		if p.Status != "" {
			fmt.Fprintf(&b, " (%s)", p.Status)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatActionResult(r state.ActionResult) string {
	prefix := "✓ Action succeeded"
	if !r.Success {
		prefix = "✗ Action failed"
	}
	if r.Message == "" {
		return prefix
	}
	return prefix + "\n\n" + r.Message
}

// firstLine keeps history output one line per action.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
