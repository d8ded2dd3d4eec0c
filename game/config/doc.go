// Package config loads goblin-ball rulesets.
//
// Rulesets live as YAML or JSON files in a config directory, one per file,
// and are addressed by file name without extension:
//
//	name: Classic
//	description: Ten by ten, twenty plays
//	rules:
//	  plays_per_game: 20
//	  stand_up_cost: 2
//
// Every document is checked against an embedded JSON Schema before decoding.
// Keys left out keep the values from engine.DefaultRules, and the merged rules
// must pass Rules.Validate. With WithEnvOverrides, GOBLINBALL_* variables
// (GOBLINBALL_PLAYS_PER_GAME, GOBLINBALL_DODGE_BASE, ...) override individual
// fields after the file is applied.
//
// Usage:
//
//	manager, err := config.NewManager("configs", config.WithEnvOverrides(nil))
//	if err != nil {
//		log.Fatal(err)
//	}
//	classic, err := manager.LoadConfig("classic")
//
// Settings holds the process knobs (listen address, directories, database
// path) and is read from the environment the same way.
package config
