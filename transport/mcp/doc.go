// Package mcp exposes the match server to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool call becomes a REST request against
// the api package and the JSON response is rendered as text. The same Client
// backs both the /mcp HTTP endpoint and the stdio mode of the binary.
//
// Tools: create_match, list_matches, match_state, step, run_play, run_game,
// match_events, list_configs, list_results and game_rules.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
