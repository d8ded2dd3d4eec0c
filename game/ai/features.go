package ai

import (
	"sort"

	"github.com/Anzelak/goblin-ball/game/engine"
)

// Context is what features see when scoring a candidate cell for one agent.
type Context struct {
	Game    *engine.Game
	Agent   *engine.Agent
	Carrier *engine.Agent
	Goal    Goal
	Style   Style
	// Target is the cell the role is working toward: the carrier for
	// blockers, the ball when it is loose.
	Target engine.Position
	// Threats are the standing enemies the role cares about.
	Threats []*engine.Agent
	trail   map[engine.Position]bool
}

// NewContext gathers the board facts shared by every candidate.
func NewContext(g *engine.Game, a *engine.Agent, goal Goal, style Style) *Context {
	c := &Context{Game: g, Agent: a, Goal: goal, Style: style, trail: make(map[engine.Position]bool)}
	for _, p := range g.Trail(a) {
		c.trail[p] = true
	}
	if carrier, ok := g.Carrier(); ok {
		c.Carrier = carrier
		c.Target = carrier.Position
	} else {
		c.Target = g.Ball.Location()
	}
	switch RoleOf(g, a) {
	case RoleOffensiveBlocker:
		c.Threats = nearbyStanding(g.Enemies(a.Side), c.Target, 3)
	default:
		c.Threats = nearbyStanding(g.Enemies(a.Side), a.Position, a.MovementRemaining+3)
	}
	return c
}

// Feature is one scoring term: Eval returns a raw value that Weight scales.
type Feature struct {
	Name   string
	Weight float64
	Eval   func(c *Context, p engine.Position) float64
}

// Table is the ordered list of features for a role. Jitter scales the rules'
// ScoreJitter into the random spread added to every candidate.
type Table struct {
	Role     Role
	Features []Feature
	Jitter   float64
}

// Score sums the weighted features for p without jitter.
func (t Table) Score(c *Context, p engine.Position) float64 {
	total := 0.0
	for _, f := range t.Features {
		if f.Weight == 0 {
			continue
		}
		total += f.Weight * f.Eval(c, p)
	}
	return total
}

// Breakdown returns each feature's weighted contribution for p.
func (t Table) Breakdown(c *Context, p engine.Position) map[string]float64 {
	out := make(map[string]float64, len(t.Features))
	for _, f := range t.Features {
		out[f.Name] = f.Weight * f.Eval(c, p)
	}
	return out
}

// Weight returns the weight of the named feature, or 0.
func (t Table) Weight(name string) float64 {
	for _, f := range t.Features {
		if f.Name == name {
			return f.Weight
		}
	}
	return 0
}

// Styled returns a copy of t with weights and jitter scaled for s.
func (t Table) Styled(s Style) Table {
	mods := styleModifiers[s]
	out := Table{Role: t.Role, Jitter: t.Jitter, Features: make([]Feature, len(t.Features))}
	copy(out.Features, t.Features)
	for i, f := range out.Features {
		if m, ok := mods[f.Name]; ok {
			out.Features[i].Weight = f.Weight * m
		}
	}
	if m, ok := mods[jitterKey]; ok {
		out.Jitter *= m
	}
	return out
}

const jitterKey = "jitter"

var styleModifiers = map[Style]map[string]float64{
	StyleDirect:     {"progress": 1.5, "lateral": 0, "pressure": 0.5},
	StyleFlanking:   {"lateral": 4, "lane": 1.5},
	StyleCautious:   {"threat": 2, "pressure": 2, "progress": 0.8},
	StyleAggressive: {"progress": 1.3, "threat": 0.5, "pressure": 0.5, "block_ready": 1.5, "tackle_ready": 1.5},
	StyleDeceptive:  {"lateral": 2, jitterKey: 3},
}

// Candidate is a scored destination.
type Candidate struct {
	Pos   engine.Position
	Score float64
}

// Rank scores every cell with t styled by c.Style, adds jitter, and sorts
// best first. Equal scores keep the input order.
func Rank(t Table, c *Context, cells []engine.Position) []Candidate {
	styled := t.Styled(c.Style)
	rng := c.Game.RNG()
	out := make([]Candidate, 0, len(cells))
	for _, p := range cells {
		s := styled.Score(c, p)
		if spread := styled.Jitter * c.Game.Rules.ScoreJitter; spread > 0 {
			s += engine.Uniform(rng, spread)
		}
		out = append(out, Candidate{Pos: p, Score: s})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func rowsToGo(c *Context, p engine.Position, side engine.Side) int {
	return c.Game.DistanceToEndZone(p, side)
}

func adjacentThreats(c *Context, p engine.Position) int {
	return len(c.Game.ZoneBlockers(p, c.Agent.Side))
}

// CarrierTable scores ball-carrier moves.
func CarrierTable() Table {
	return Table{Role: RoleCarrier, Jitter: 0.2, Features: []Feature{
		{Name: "touchdown", Weight: 10000, Eval: func(c *Context, p engine.Position) float64 {
			return b2f(p.Y == c.Game.EndZoneRow(c.Agent.Side))
		}},
		{Name: "progress", Weight: 100, Eval: func(c *Context, p engine.Position) float64 {
			side := c.Agent.Side
			return float64(rowsToGo(c, c.Agent.Position, side) - rowsToGo(c, p, side))
		}},
		{Name: "threat", Weight: -150, Eval: func(c *Context, p engine.Position) float64 {
			return float64(adjacentThreats(c, p))
		}},
		{Name: "pressure", Weight: -20, Eval: func(c *Context, p engine.Position) float64 {
			total := 0
			for _, e := range c.Threats {
				if d := engine.ManhattanDistance(p, e.Position); d <= 3 {
					total += 4 - d
				}
			}
			return float64(total)
		}},
		{Name: "lane", Weight: -25, Eval: func(c *Context, p engine.Position) float64 {
			n := 0
			half := c.Game.Rules.CorridorHalfWidth
			step := engine.Forward(c.Agent.Side)
			for _, e := range c.Threats {
				dx := e.Position.X - p.X
				if dx >= -half && dx <= half && (e.Position.Y-p.Y)*step > 0 {
					n++
				}
			}
			return float64(n)
		}},
		{Name: "lateral", Weight: 5, Eval: func(c *Context, p engine.Position) float64 {
			dx := p.X - c.Agent.Position.X
			if dx < 0 {
				dx = -dx
			}
			return float64(dx)
		}},
		{Name: "regress", Weight: -200, Eval: func(c *Context, p engine.Position) float64 {
			side := c.Agent.Side
			return b2f(rowsToGo(c, p, side) > rowsToGo(c, c.Agent.Position, side))
		}},
		{Name: "revisit", Weight: -30, Eval: func(c *Context, p engine.Position) float64 {
			return b2f(c.trail[p])
		}},
	}}
}

// screeningCells are the cells next to the carrier that face each threat.
func screeningCells(c *Context) map[engine.Position]bool {
	out := make(map[engine.Position]bool)
	if c.Carrier == nil {
		return out
	}
	cp := c.Carrier.Position
	for _, e := range c.Threats {
		s := c.Game.Grid.Clamp(cp.Offset(sign(e.Position.X-cp.X), sign(e.Position.Y-cp.Y)))
		if s != cp {
			out[s] = true
		}
	}
	return out
}

// OffensiveBlockerTable scores moves for teammates of the carrier.
func OffensiveBlockerTable() Table {
	return Table{Role: RoleOffensiveBlocker, Jitter: 1, Features: []Feature{
		{Name: "screen", Weight: 1000, Eval: func(c *Context, p engine.Position) float64 {
			return b2f(screeningCells(c)[p])
		}},
		{Name: "carrier_proximity", Weight: 100, Eval: func(c *Context, p engine.Position) float64 {
			return float64(10 - min(10, engine.ManhattanDistance(p, c.Target)))
		}},
		{Name: "forward", Weight: 10, Eval: func(c *Context, p engine.Position) float64 {
			return float64(10 - min(10, rowsToGo(c, p, c.Agent.Side)))
		}},
		{Name: "between", Weight: 200, Eval: func(c *Context, p engine.Position) float64 {
			if c.Carrier == nil {
				return 0
			}
			cy := c.Carrier.Position.Y
			n := 0
			for _, e := range c.Threats {
				lo, hi := min(cy, e.Position.Y), max(cy, e.Position.Y)
				dx := p.X - e.Position.X
				if p.Y > lo && p.Y < hi && dx >= -1 && dx <= 1 {
					n++
				}
			}
			return float64(n)
		}},
		{Name: "block_ready", Weight: 500, Eval: func(c *Context, p engine.Position) float64 {
			left := c.Agent.MovementRemaining - engine.ManhattanDistance(c.Agent.Position, p)
			if left < c.Game.Rules.BlockingCost {
				return 0
			}
			for _, e := range c.Threats {
				if engine.IsAdjacent(p, e.Position) {
					return 1
				}
			}
			return 0
		}},
		{Name: "regress", Weight: -50, Eval: func(c *Context, p engine.Position) float64 {
			side := c.Agent.Side
			return b2f(rowsToGo(c, p, side) > rowsToGo(c, c.Agent.Position, side))
		}},
	}}
}

func intercepting(c *Context, p engine.Position) bool {
	if c.Carrier == nil {
		return false
	}
	step := engine.Forward(c.Carrier.Side)
	return (p.Y-c.Carrier.Position.Y)*step > 0
}

// DefensiveBlockerTable scores moves for agents chasing an enemy carrier.
func DefensiveBlockerTable() Table {
	return Table{Role: RoleDefensiveBlocker, Jitter: 1, Features: []Feature{
		{Name: "intercept", Weight: 200, Eval: func(c *Context, p engine.Position) float64 {
			return b2f(intercepting(c, p))
		}},
		{Name: "intercept_column", Weight: 300, Eval: func(c *Context, p engine.Position) float64 {
			if !intercepting(c, p) {
				return 0
			}
			dx := p.X - c.Target.X
			return b2f(dx >= -1 && dx <= 1)
		}},
		{Name: "proximity", Weight: 100, Eval: func(c *Context, p engine.Position) float64 {
			if intercepting(c, p) {
				return 0
			}
			return float64(10 - min(10, engine.ManhattanDistance(p, c.Target)))
		}},
		{Name: "goal_side", Weight: 150, Eval: func(c *Context, p engine.Position) float64 {
			if c.Carrier == nil {
				return 0
			}
			side := c.Carrier.Side
			return b2f(rowsToGo(c, p, side) < rowsToGo(c, c.Carrier.Position, side))
		}},
		{Name: "tackle_ready", Weight: 800, Eval: func(c *Context, p engine.Position) float64 {
			if c.Carrier == nil || !engine.IsAdjacent(p, c.Carrier.Position) {
				return 0
			}
			left := c.Agent.MovementRemaining - engine.ManhattanDistance(c.Agent.Position, p)
			return b2f(left >= c.Game.Rules.BlockingCost)
		}},
	}}
}

// LooseBallTable scores moves toward a free ball.
func LooseBallTable() Table {
	return Table{Role: RoleLooseBall, Jitter: 0.4, Features: []Feature{
		{Name: "on_ball", Weight: 1000, Eval: func(c *Context, p engine.Position) float64 {
			return b2f(p == c.Target)
		}},
		{Name: "ball_distance", Weight: -100, Eval: func(c *Context, p engine.Position) float64 {
			return float64(engine.ManhattanDistance(p, c.Target))
		}},
		{Name: "threat", Weight: -30, Eval: func(c *Context, p engine.Position) float64 {
			return float64(adjacentThreats(c, p))
		}},
	}}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
