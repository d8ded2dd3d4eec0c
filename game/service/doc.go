// Package service is the match layer every transport talks to.
//
// GameService creates matches from named rulesets, advances them one step,
// one play or a whole game at a time, and pages through their event history.
// It sits between the transports (REST, WebSocket, MCP) and match.Controller.
//
// Collaborators are interfaces so the service can run with any mix of them:
//
//   - SessionManager stores live sessions (see package session)
//   - ConfigManager loads rulesets (see package config)
//   - ResultStore records events and final scores (see package store)
//   - Broadcaster pushes events and states to spectators
//   - EventLogOpener opens a per-match append-only log (see package replay)
//
// Each call that advances a match holds the session lock, then writes the
// new events to the store and the event log in one batch, saves the session
// and broadcasts the new state. A finished game is recorded exactly once.
//
// Usage:
//
//	svc := service.NewGameService(sessions, configs,
//		service.WithStore(db),
//		service.WithBroadcaster(hub),
//		service.WithLogger(logger),
//	)
//	info, err := svc.CreateMatch(ctx, service.CreateMatchRequest{Config: "classic"})
//	resp, err := svc.RunPlay(ctx, info.ID)
package service
