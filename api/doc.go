// Package api serves the REST interface of the goblin-ball match server.
//
// Endpoints:
//
//	GET    /api/health
//	GET    /api/configs                list rulesets
//	POST   /api/configs                save a ruleset
//	GET    /api/configs/{name}         one ruleset
//	POST   /api/matches                create a match {config, seed, home, away}
//	GET    /api/matches                list matches (?active=true, ?limit=)
//	GET    /api/matches/{id}           match summary
//	DELETE /api/matches/{id}
//	GET    /api/matches/{id}/state     board, teams and stats (?format=text)
//	POST   /api/matches/{id}/step      advance {count} steps
//	POST   /api/matches/{id}/play      run to the end of a play
//	POST   /api/matches/{id}/game      run the game out
//	GET    /api/matches/{id}/events    ?page=&limit=&order=&type=&format=text
//	GET    /api/results                finished games, newest first
//	GET    /ws?match={id}              live event stream
//
// Errors are JSON objects {"error": "..."}. Unknown matches and rulesets give
// 404, finished games 409, invalid rules 400, and a missing results store 503.
package api
