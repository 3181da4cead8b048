// Package mcp exposes the realtime client as an MCP tool server.
//
// The package is a thin facade: every tool delegates to the connection
// and the room and game synchronizers, then renders the outcome as plain
// text. No game logic lives here.
//
// AVAILABLE TOOLS:
//   - connect: Open the realtime connection with a bearer token
//   - disconnect: Close the realtime connection
//   - list_rooms: Page through the joinable-room directory
//   - create_room: Create a room and become its creator
//   - join_room: Join a room by ID
//   - leave_room: Leave the current room
//   - select_character: Claim a character in the current room
//   - toggle_ready: Set the local ready flag
//   - start_game: Start the game (creator only)
//   - perform_action: Perform one game action
//   - game_state: Show the current game snapshot and story
//   - action_history: Show recent actions
//   - room_status: Show the current room roster
//
// Usage:
//
//	client := mcp.NewClient(mcp.Config{Dialer: conn, Rooms: rooms, Games: games})
//	server.ServeStdio(client.GetMCPServer())
package mcp
