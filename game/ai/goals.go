// Package ai picks and executes one action per agent per turn: a goal from
// the board state, a movement style drawn at random, then the best-scoring
// candidate move under the role's feature table.
package ai

import "github.com/Anzelak/goblin-ball/game/engine"

// Goal is what an agent is trying to do this turn.
type Goal string

const (
	GoalScoreTouchdown     Goal = "score_touchdown"
	GoalAttemptFieldGoal   Goal = "attempt_field_goal"
	GoalEvadeDefenders     Goal = "evade_defenders"
	GoalAdvanceDownfield   Goal = "advance_downfield"
	GoalBlockDefender      Goal = "block_defender"
	GoalProtectCarrier     Goal = "protect_carrier"
	GoalAdvanceWithCarrier Goal = "advance_with_carrier"
	GoalTackleCarrier      Goal = "tackle_carrier"
	GoalPursueCarrier      Goal = "pursue_carrier"
	GoalInterceptCarrier   Goal = "intercept_carrier"
	GoalMaintainPosition   Goal = "maintain_position"
	GoalRecoverBall        Goal = "recover_ball"
	GoalIdle               Goal = "idle"
)

// Role is how an agent relates to the ball this turn.
type Role string

const (
	RoleCarrier          Role = "carrier"
	RoleOffensiveBlocker Role = "offensive_blocker"
	RoleDefensiveBlocker Role = "defensive_blocker"
	RoleLooseBall        Role = "loose_ball"
	RoleNone             Role = "none"
)

// RoleOf classifies a by possession. Blockers on the holder's side play
// offense whichever team started the play with the ball. A loose ball is the
// offense's to recover; the defense keeps chasing it as blockers.
func RoleOf(g *engine.Game, a *engine.Agent) Role {
	if !g.PlayLive {
		return RoleNone
	}
	switch g.Ball.State {
	case engine.BallFree:
		if a.Side == g.Offense().Side {
			return RoleLooseBall
		}
		return RoleDefensiveBlocker
	case engine.BallHeld:
		carrier := g.Ball.Holder
		switch {
		case carrier == a:
			return RoleCarrier
		case carrier.Side == a.Side:
			return RoleOffensiveBlocker
		default:
			return RoleDefensiveBlocker
		}
	}
	return RoleNone
}

// SelectGoal is a pure function of the board.
func SelectGoal(g *engine.Game, a *engine.Agent) Goal {
	switch RoleOf(g, a) {
	case RoleCarrier:
		return carrierGoal(g, a)
	case RoleOffensiveBlocker:
		return offensiveGoal(g, a, g.Ball.Holder)
	case RoleDefensiveBlocker:
		if g.Ball.State == engine.BallFree {
			return GoalPursueCarrier
		}
		return defensiveGoal(g, a, g.Ball.Holder)
	case RoleLooseBall:
		return GoalRecoverBall
	}
	return GoalIdle
}

func carrierGoal(g *engine.Game, a *engine.Agent) Goal {
	dist := g.DistanceToEndZone(a.Position, a.Side)
	corridor := CorridorDefenders(g, a)
	switch {
	case g.InFieldGoalRange(a) && dist > a.MovementRemaining:
		// In range with the end zone out of reach this turn: take the shot.
		return GoalAttemptFieldGoal
	case dist <= 3 && corridor < 2:
		return GoalScoreTouchdown
	case FieldGoalFeasible(g, a) && corridor >= 2:
		return GoalAttemptFieldGoal
	case dist <= 3 || corridor == 0:
		return GoalScoreTouchdown
	case len(g.ZoneBlockers(a.Position, a.Side)) >= 2:
		return GoalEvadeDefenders
	}
	return GoalAdvanceDownfield
}

func offensiveGoal(g *engine.Game, a, carrier *engine.Agent) Goal {
	if threat, ok := closestStanding(g.Enemies(a.Side), carrier.Position); ok && engine.IsAdjacent(a.Position, threat.Position) {
		return GoalBlockDefender
	}
	if engine.ManhattanDistance(a.Position, carrier.Position) <= 2 {
		return GoalProtectCarrier
	}
	return GoalAdvanceWithCarrier
}

func defensiveGoal(g *engine.Game, a, carrier *engine.Agent) Goal {
	switch {
	case engine.IsAdjacent(a.Position, carrier.Position):
		return GoalTackleCarrier
	case engine.ManhattanDistance(a.Position, carrier.Position) <= 3:
		return GoalPursueCarrier
	case between(g, a.Position, carrier):
		return GoalMaintainPosition
	}
	return GoalInterceptCarrier
}

// CorridorDefenders counts standing enemies in the rows ahead of the carrier,
// within the corridor half-width of its column, up to and including its end
// zone.
func CorridorDefenders(g *engine.Game, a *engine.Agent) int {
	end := g.EndZoneRow(a.Side)
	step := engine.Forward(a.Side)
	half := g.Rules.CorridorHalfWidth
	n := 0
	for _, e := range g.Enemies(a.Side) {
		if !e.IsStanding() {
			continue
		}
		dx := e.Position.X - a.Position.X
		if dx < -half || dx > half {
			continue
		}
		ahead := (e.Position.Y - a.Position.Y) * step
		if ahead > 0 && ahead <= (end-a.Position.Y)*step {
			n++
		}
	}
	return n
}

// FieldGoalFeasible reports whether a shot from here clears the minimum
// chance and lies within long range.
func FieldGoalFeasible(g *engine.Game, a *engine.Agent) bool {
	if !a.HasBall {
		return false
	}
	if engine.ManhattanDistance(a.Position, g.Hoop(a.Side)) > g.Rules.FieldGoalLongRange {
		return false
	}
	return g.FieldGoalChance(a) >= g.Rules.FieldGoalMinChance
}

// between reports whether p sits between the carrier and its end zone, within
// two columns of the carrier.
func between(g *engine.Game, p engine.Position, carrier *engine.Agent) bool {
	dx := p.X - carrier.Position.X
	if dx < -2 || dx > 2 {
		return false
	}
	end := g.EndZoneRow(carrier.Side)
	if end < carrier.Position.Y {
		return p.Y < carrier.Position.Y && p.Y > end
	}
	return p.Y > carrier.Position.Y && p.Y < end
}

func closestStanding(agents []*engine.Agent, to engine.Position) (*engine.Agent, bool) {
	var best *engine.Agent
	bestDist := 0
	for _, e := range agents {
		if !e.IsStanding() {
			continue
		}
		d := engine.ManhattanDistance(e.Position, to)
		if best == nil || d < bestDist {
			best, bestDist = e, d
		}
	}
	return best, best != nil
}

// nearbyStanding returns the standing agents within dist of p.
func nearbyStanding(agents []*engine.Agent, p engine.Position, dist int) []*engine.Agent {
	var out []*engine.Agent
	for _, e := range agents {
		if e.IsStanding() && engine.ManhattanDistance(e.Position, p) <= dist {
			out = append(out, e)
		}
	}
	return out
}
