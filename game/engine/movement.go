package engine

// MoveResult reports a move attempt. A rejected move leaves the board as it
// was, except after a failed DUKE check, which knocks the mover down.
type MoveResult struct {
	OK     bool         `json:"ok"`
	Reason Reason       `json:"reason,omitempty"`
	From   Position     `json:"from"`
	To     Position     `json:"to"`
	Cost   int          `json:"cost"`
	Checks []DodgeCheck `json:"checks,omitempty"`
	// Block is set when the target held an enemy and the move became a block.
	Block  *BlockResult `json:"block,omitempty"`
	Scored bool         `json:"scored,omitempty"`
}

// Move walks a to target: X axis first, then Y. An enemy on target turns the
// move into a block attempt.
func (g *Game) Move(a *Agent, target Position) MoveResult {
	res := MoveResult{From: a.Position, To: target}
	if reason := g.actionGate(a); reason != ReasonNone {
		res.Reason = reason
		return res
	}
	if !g.Grid.InBounds(target) {
		res.Reason = ReasonOutOfBounds
		return res
	}
	if target == a.Position {
		res.Reason = ReasonSamePosition
		return res
	}
	if occ, ok := g.Grid.OccupantAt(target); ok {
		if other, isAgent := AsAgent(occ); isAgent && a.IsEnemy(other) {
			block := g.Block(a, other)
			res.Block = &block
			res.OK = block.Attempted
			res.Reason = block.Reason
			res.To = a.Position
			return res
		}
		res.Reason = ReasonOccupied
		return res
	}

	cost := ManhattanDistance(a.Position, target)
	res.Cost = cost
	if cost > a.MovementRemaining {
		res.Reason = ReasonInsufficientMovement
		return res
	}

	for i, p := range g.routeChecks(a, target) {
		kind := DodgeCross
		if i == 0 && p == a.Position {
			kind = DodgeLeave
		}
		check := g.rollDodge(a, p, kind)
		res.Checks = append(res.Checks, check)
		if !check.Passed {
			res.Reason = ReasonDodgeFailed
			g.failDodge(a)
			return res
		}
	}

	from := a.Position
	if !g.Grid.Move(a, target) {
		res.Reason = ReasonOccupied
		return res
	}
	a.spend(cost)
	a.Stats.Moves++
	a.Stats.CellsMoved += cost
	g.recordTrail(a, from, target)
	g.emit(EventMove, Payload{
		"agent_id":           a.ID,
		"agent_name":         a.Name,
		"team":               a.Side.String(),
		"from":               from,
		"to":                 target,
		"cost":               cost,
		"movement_remaining": a.MovementRemaining,
		"has_ball":           a.HasBall,
	})
	res.OK = true
	res.Scored = g.checkTouchdown(a)
	return res
}

// failDodge applies the DUKE failure policy: the mover stays put and is
// knocked down; a carrier also loses the ball, which ends the play.
func (g *Game) failDodge(a *Agent) {
	g.knockDown(a, "dodge_failed")
	if a.HasBall {
		g.dropBall("dodge_failed")
		g.endPlay(OutcomeCarrierDown)
	}
}

func (g *Game) knockDown(a *Agent, cause string) {
	a.KnockedDown = true
	a.Stats.TimesKnockedDown++
	g.emit(EventKnockdown, Payload{
		"agent_id":   a.ID,
		"agent_name": a.Name,
		"team":       a.Side.String(),
		"at":         a.Position,
		"cause":      cause,
		"has_ball":   a.HasBall,
	})
}

// StandUp gets a knocked-down agent back on its feet for StandUpCost
// movement. A zero cost disables standing: agents stay down until the next
// play.
func (g *Game) StandUp(a *Agent) bool {
	cost := g.Rules.StandUpCost
	if cost <= 0 || !g.PlayLive || !a.KnockedDown || a.Unavailable || a.OutOfGame || !a.onField {
		return false
	}
	if a.MovementRemaining < cost {
		return false
	}
	a.spend(cost)
	a.KnockedDown = false
	g.emit(EventStandUp, Payload{
		"agent_id":   a.ID,
		"agent_name": a.Name,
		"team":       a.Side.String(),
		"at":         a.Position,
		"cost":       cost,
	})
	return true
}

// probEpsilon absorbs float error when comparing chances to thresholds.
const probEpsilon = 1e-9

// PossibleMoves is the candidate set for a: every empty cell within its
// movement budget whose route never needs a DUKE check below the rules' risk
// threshold.
func (g *Game) PossibleMoves(a *Agent) []Position {
	return g.PossibleMovesWithin(a, g.Rules.RiskThreshold)
}

// PossibleMovesWithin is PossibleMoves with an explicit risk threshold.
// Cells are returned in row-major order.
func (g *Game) PossibleMovesWithin(a *Agent, threshold float64) []Position {
	if !a.CanAct() || !g.PlayLive {
		return nil
	}
	budget := a.MovementRemaining
	var out []Position
	for y := a.Position.Y - budget; y <= a.Position.Y+budget; y++ {
		for x := a.Position.X - budget; x <= a.Position.X+budget; x++ {
			p := Position{X: x, Y: y}
			if p == a.Position || !g.Grid.IsEmpty(p) {
				continue
			}
			if ManhattanDistance(a.Position, p) > budget {
				continue
			}
			if g.RouteSafety(a, p) < threshold-probEpsilon {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
