// Package mcp exposes the tank battle server to AI agents over the Model
// Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a request against the
// REST API, and the JSON reply is rendered as plain text an agent can read.
// Boards are drawn with the same ASCII frames the CLI prints.
//
// MCP Tools:
//   - create_match, get_match, list_matches, reset_match
//   - cancel_backward
//   - game_state: board picture and tank status
//   - play_turn: one turn, with actions for manual seats
//   - play_turns, run_match: let the strategies play
//   - match_history: paginated action log
//   - describe_cell: terrain and occupants of one cell
//   - list_boards, list_strategies, standings
//   - game_instructions: the rules
//
// Transport Modes:
//   - Stdio: server.ServeStdio(client.GetMCPServer())
//   - HTTP: POST /mcp on the main server forwards the body to HandleMessage
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
