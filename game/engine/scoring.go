package engine

// checkTouchdown scores if a carries the ball on its scoring row.
func (g *Game) checkTouchdown(a *Agent) bool {
	if !g.PlayLive || !a.HasBall || a.Position.Y != g.EndZoneRow(a.Side) {
		return false
	}
	team := g.Team(a.Side)
	points := g.Rules.TouchdownPoints
	team.Score += points
	team.Stats.Touchdowns++
	a.Stats.Touchdowns++
	g.killBall()
	g.endPlay(OutcomeTouchdown)
	g.emit(EventTouchdown, Payload{
		"agent_id":   a.ID,
		"agent_name": a.Name,
		"team":       a.Side.String(),
		"team_name":  team.Name,
		"at":         a.Position,
		"points":     points,
		"score":      team.Score,
	})
	return true
}

// FieldGoalDefenders counts standing enemies next to a plus those on the
// straight line between a and its hoop.
func (g *Game) FieldGoalDefenders(a *Agent) int {
	n := len(g.ZoneBlockers(a.Position, a.Side))
	for _, p := range LinePositions(a.Position, g.Hoop(a.Side)) {
		if d, ok := g.Grid.AgentAt(p); ok && a.IsEnemy(d) && d.IsStanding() {
			n++
		}
	}
	return n
}

// FieldGoalChance is a's chance to score from where it stands.
func (g *Game) FieldGoalChance(a *Agent) float64 {
	r := g.Rules
	d := ManhattanDistance(a.Position, g.Hoop(a.Side))
	p := r.FieldGoalBase -
		r.FieldGoalPerDistance*float64(d) +
		r.FieldGoalPerAgility*float64(a.Agility()) -
		r.FieldGoalPerDefender*float64(g.FieldGoalDefenders(a))
	if d > r.FieldGoalLongRange && p > r.FieldGoalLongCap {
		p = r.FieldGoalLongCap
	}
	return clampFloat(r.FieldGoalFloor, r.FieldGoalCeiling, p)
}

// InFieldGoalRange reports whether a is within the configured shooting range
// of its hoop.
func (g *Game) InFieldGoalRange(a *Agent) bool {
	return ManhattanDistance(a.Position, g.Hoop(a.Side)) <= g.Rules.FieldGoalRange
}

// FieldGoalResult reports a shot.
type FieldGoalResult struct {
	Attempted bool    `json:"attempted"`
	Reason    Reason  `json:"reason,omitempty"`
	Distance  int     `json:"distance"`
	Chance    float64 `json:"chance"`
	Roll      float64 `json:"roll"`
	Scored    bool    `json:"scored"`
}

// AttemptFieldGoal shoots at the hoop. Either way the play ends: a make
// scores, a miss turns the ball over where it is with no scatter.
func (g *Game) AttemptFieldGoal(a *Agent) FieldGoalResult {
	if reason := g.actionGate(a); reason != ReasonNone {
		return FieldGoalResult{Reason: reason}
	}
	if !a.HasBall {
		return FieldGoalResult{Reason: ReasonNoBall}
	}
	team := g.Team(a.Side)
	res := FieldGoalResult{
		Attempted: true,
		Distance:  ManhattanDistance(a.Position, g.Hoop(a.Side)),
		Chance:    g.FieldGoalChance(a),
	}
	res.Roll, res.Scored = Chance(g.rng, res.Chance)
	a.Stats.FieldGoalsAttempted++

	payload := Payload{
		"agent_id":   a.ID,
		"agent_name": a.Name,
		"team":       a.Side.String(),
		"team_name":  team.Name,
		"at":         a.Position,
		"hoop":       g.Hoop(a.Side),
		"distance":   res.Distance,
		"chance":     res.Chance,
		"roll":       res.Roll,
	}
	g.killBall()
	if res.Scored {
		team.Score += g.Rules.FieldGoalPoints
		team.Stats.FieldGoals++
		a.Stats.FieldGoalsMade++
		payload["points"] = g.Rules.FieldGoalPoints
		payload["score"] = team.Score
		g.endPlay(OutcomeFieldGoal)
		g.emit(EventFieldGoal, payload)
		return res
	}
	team.Stats.FieldGoalsMissed++
	g.endPlay(OutcomeFieldGoalMiss)
	g.emit(EventFieldGoalMiss, payload)
	return res
}
