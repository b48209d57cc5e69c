// Package mcp exposes the LaserStrike console to AI agents over the Model
// Context Protocol.
//
// The Client is a thin proxy: every tool calls the console REST API, so
// an agent and a human on the web UI drive the same session.
//
// MCP Tools:
//   - register_player: register {id, name} and connect
//   - player_status: player, health level, route and connection
//   - strike: send a JPEG (base64 or image_path) and wait for the verdict
//   - leaderboard: ranked players
//   - snapshots: captured image URLs
//   - reset_game: reset for everyone
//   - exit_game: forget the local player
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:3000")
//	server.ServeStdio(client.GetMCPServer())
package mcp
