// Package engine implements the rules of goblin ball: a turn-based contact
// sport played on a small grid.
//
// The engine package covers:
//   - Grid occupancy and spatial queries
//   - Agents, teams and roster building
//   - DUKE (zone of control) dodge checks
//   - Movement with budget accounting
//   - Blocks, pushes, knockdowns and injuries
//   - Ball possession, pickups, scatter and scoring
//
// Core Types:
//
// Game holds the mutable state of a match and exposes every rule as a method.
// Rules is the configuration value passed to NewGame; DefaultRules returns the
// stock values. All randomness goes through the RNG given to NewGame, so a
// fixed seed replays a match exactly.
//
// Game-rule outcomes such as an occupied cell, a failed dodge or a blocked
// push are reported through result values (MoveResult, BlockResult,
// PickupResult, FieldGoalResult) with a Reason. Broken invariants, such as
// moving an agent that is not on the grid, panic.
//
// Usage:
//
//	rules := engine.DefaultRules()
//	rng := engine.NewRNG(42)
//	bus := engine.NewBus()
//	home := engine.BuildTeam(rng, rules, "Mudskulls", engine.SideHome, nil)
//	away := engine.BuildTeam(rng, rules, "Bogrunners", engine.SideAway, nil)
//
//	game, err := engine.NewGame(rules, home, away, rng, bus)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	carrier, _ := game.BeginPlay()
//	game.BeginTurn()
//	result := game.Move(carrier, carrier.Position.Offset(0, -2))
//
// Events:
//
// Every state change is published to the Emitter given to NewGame as an
// EventType plus a flat Payload. Bus is the stock emitter; it numbers events,
// keeps history and fans out to subscribers synchronously.
package engine
