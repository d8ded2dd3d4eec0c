package ai

import (
	"github.com/Anzelak/goblin-ball/game/engine"
)

// Action names one step an agent took or tried.
type Action string

const (
	ActionIdle      Action = "idle"
	ActionStandUp   Action = "stand_up"
	ActionMove      Action = "move"
	ActionBlock     Action = "block"
	ActionPickup    Action = "pickup"
	ActionFieldGoal Action = "field_goal"
)

// Step is one attempted action inside a turn.
type Step struct {
	Action Action          `json:"action"`
	Target engine.Position `json:"target"`
	OK     bool            `json:"ok"`
	Reason engine.Reason   `json:"reason,omitempty"`
	Score  float64         `json:"score,omitempty"`
}

// Decision records what an agent chose and what came of it.
type Decision struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
	Goal      Goal   `json:"goal"`
	Style     Style  `json:"style,omitempty"`
	Steps     []Step `json:"steps"`
}

// Acted reports whether any step succeeded.
func (d Decision) Acted() bool {
	for _, s := range d.Steps {
		if s.OK {
			return true
		}
	}
	return false
}

func (d *Decision) add(s Step) { d.Steps = append(d.Steps, s) }

// safetyOverride is the score above which the carrier accepts an unscreened
// enemy next to its landing cell.
const safetyOverride = 5000

// Brain holds the feature tables. The zero value is not usable; call NewBrain.
type Brain struct {
	tables map[Role]Table
}

// NewBrain returns a brain with the stock feature tables.
func NewBrain() *Brain {
	return &Brain{tables: map[Role]Table{
		RoleCarrier:          CarrierTable(),
		RoleOffensiveBlocker: OffensiveBlockerTable(),
		RoleDefensiveBlocker: DefensiveBlockerTable(),
		RoleLooseBall:        LooseBallTable(),
	}}
}

// Table returns the feature table for role.
func (b *Brain) Table(role Role) (Table, bool) {
	t, ok := b.tables[role]
	return t, ok
}

// SetTable replaces the feature table for t.Role.
func (b *Brain) SetTable(t Table) { b.tables[t.Role] = t }

// TakeTurn plays a's whole turn against g and reports what happened.
func (b *Brain) TakeTurn(g *engine.Game, a *engine.Agent) Decision {
	d := Decision{AgentID: a.ID, AgentName: a.Name, Goal: GoalIdle}
	if !g.PlayLive || a.Unavailable || a.OutOfGame || !a.OnField() {
		d.add(Step{Action: ActionIdle, Target: a.Position})
		return d
	}
	if a.KnockedDown {
		ok := g.StandUp(a)
		step := Step{Action: ActionStandUp, Target: a.Position, OK: ok}
		if !ok {
			step.Reason = engine.ReasonKnockedDown
		}
		d.add(step)
		return d
	}

	d.Goal = SelectGoal(g, a)
	if d.Goal == GoalIdle {
		d.add(Step{Action: ActionIdle, Target: a.Position})
		return d
	}
	d.Style = SelectStyle(g, a, d.Goal)
	role := RoleOf(g, a)

	if d.Goal == GoalAttemptFieldGoal {
		res := g.AttemptFieldGoal(a)
		d.add(Step{Action: ActionFieldGoal, Target: g.Hoop(a.Side), OK: res.Attempted, Reason: res.Reason, Score: res.Chance})
		if res.Attempted {
			return d
		}
	}

	if d.Goal == GoalBlockDefender || d.Goal == GoalTackleCarrier {
		if b.blockBest(g, a, &d) && !a.CanAct() {
			return d
		}
	}
	if !g.PlayLive {
		return d
	}

	ctx := NewContext(g, a, d.Goal, d.Style)
	table := b.tables[role]
	ranked := Rank(table, ctx, b.candidates(g, a, role))
	if role == RoleCarrier {
		ranked = carrierFilter(g, a, ctx, ranked)
	}
	for _, c := range ranked {
		res := g.Move(a, c.Pos)
		d.add(Step{Action: ActionMove, Target: c.Pos, OK: res.OK, Reason: res.Reason, Score: c.Score})
		if res.OK || a.KnockedDown || !g.PlayLive {
			break
		}
	}
	if !g.PlayLive || !a.CanAct() {
		return d
	}

	switch role {
	case RoleOffensiveBlocker, RoleDefensiveBlocker:
		b.blockBest(g, a, &d)
	case RoleLooseBall:
		if g.Ball.State == engine.BallFree && g.Ball.Position == a.Position {
			res := g.PickUpBall(a)
			d.add(Step{Action: ActionPickup, Target: a.Position, OK: res.OK, Reason: res.Reason, Score: res.Chance})
		}
	}
	if !d.Acted() && g.PlayLive && a.CanAct() {
		if !b.blockBest(g, a, &d) {
			d.add(Step{Action: ActionIdle, Target: a.Position})
		}
	}
	return d
}

// candidates applies the defensive risk threshold near the carrier so
// tacklers accept worse dodges to get in.
func (b *Brain) candidates(g *engine.Game, a *engine.Agent, role Role) []engine.Position {
	if role != RoleDefensiveBlocker {
		return g.PossibleMoves(a)
	}
	carrier, ok := g.Carrier()
	if !ok {
		return g.PossibleMoves(a)
	}
	loose := g.PossibleMovesWithin(a, g.Rules.DefensiveRiskThreshold)
	out := make([]engine.Position, 0, len(loose))
	for _, p := range loose {
		if engine.ManhattanDistance(p, carrier.Position) <= 2 || g.RouteSafety(a, p) >= g.Rules.RiskThreshold {
			out = append(out, p)
		}
	}
	return out
}

// blockBest hits the adjacent standing enemy that matters most: the carrier
// if adjacent, else the enemy closest to our own carrier, else the weakest.
func (b *Brain) blockBest(g *engine.Game, a *engine.Agent, d *Decision) bool {
	var targets []*engine.Agent
	for _, e := range g.ZoneBlockers(a.Position, a.Side) {
		if g.CanBlock(a, e) == engine.ReasonNone {
			targets = append(targets, e)
		}
	}
	if len(targets) == 0 {
		return false
	}
	carrier, _ := g.Carrier()
	target := targets[0]
	for _, e := range targets[1:] {
		if blockPreferred(a, e, target, carrier) {
			target = e
		}
	}
	at := target.Position
	res := g.Block(a, target)
	d.add(Step{Action: ActionBlock, Target: at, OK: res.Attempted, Reason: res.Reason, Score: float64(res.Margin)})
	return res.Attempted
}

func blockPreferred(a, e, cur, carrier *engine.Agent) bool {
	if carrier != nil && carrier.Side != a.Side {
		return e == carrier
	}
	if carrier != nil {
		de := engine.ManhattanDistance(e.Position, carrier.Position)
		dc := engine.ManhattanDistance(cur.Position, carrier.Position)
		if de != dc {
			return de < dc
		}
	}
	return e.Toughness() < cur.Toughness()
}

// carrierFilter drops backward and already-walked cells when anything else
// remains, then vetoes cells next to an enemy no teammate is marking unless
// the cell scores high enough to justify it. The veto can leave nothing, in
// which case the carrier stays put.
func carrierFilter(g *engine.Game, a *engine.Agent, ctx *Context, ranked []Candidate) []Candidate {
	forward := make([]Candidate, 0, len(ranked))
	for _, c := range ranked {
		regress := g.DistanceToEndZone(c.Pos, a.Side) > g.DistanceToEndZone(a.Position, a.Side)
		if !regress && !ctx.trail[c.Pos] {
			forward = append(forward, c)
		}
	}
	if len(forward) == 0 {
		forward = ranked
	}
	safe := make([]Candidate, 0, len(forward))
	for _, c := range forward {
		if c.Score >= safetyOverride || !unscreenedThreat(g, a, c.Pos) {
			safe = append(safe, c)
		}
	}
	return safe
}

func unscreenedThreat(g *engine.Game, a *engine.Agent, p engine.Position) bool {
	for _, e := range g.ZoneBlockers(p, a.Side) {
		screened := false
		for _, n := range g.Grid.AdjacentAgents(e.Position) {
			if n != a && n.Side == a.Side && n.IsStanding() {
				screened = true
				break
			}
		}
		if !screened {
			return true
		}
	}
	return false
}
