package engine

// DodgeChance is the probability of passing a DUKE check against blockers
// adjacent standing enemies. With no blockers there is nothing to dodge.
func DodgeChance(r *Rules, blockers, skill int, carrying bool) float64 {
	if blockers <= 0 {
		return 1
	}
	p := r.DodgeBase - r.DodgePerBlocker*float64(blockers-1) + r.DodgePerSkill*float64(skill)
	if carrying {
		p -= r.DodgeCarryPenalty
	}
	return clampFloat(r.DodgeMin, r.DodgeMax, p)
}

// ZoneBlockers returns the standing enemies of side adjacent to p.
func (g *Game) ZoneBlockers(p Position, side Side) []*Agent {
	var out []*Agent
	for _, n := range g.Grid.AdjacentAgents(p) {
		if n.Side != side && n.IsStanding() {
			out = append(out, n)
		}
	}
	return out
}

// InZone reports whether p is under an enemy zone of control for side.
func (g *Game) InZone(p Position, side Side) bool {
	return len(g.ZoneBlockers(p, side)) > 0
}

// DodgeChanceAt is a's chance to leave or cross p.
func (g *Game) DodgeChanceAt(a *Agent, p Position) float64 {
	return DodgeChance(g.Rules, len(g.ZoneBlockers(p, a.Side)), a.Agility(), a.HasBall)
}

// DodgeKind tells whether a check was for leaving the start cell or crossing a
// cell on the way.
type DodgeKind string

const (
	DodgeLeave DodgeKind = "leave"
	DodgeCross DodgeKind = "cross"
)

// DodgeCheck is one resolved DUKE roll.
type DodgeCheck struct {
	Kind     DodgeKind `json:"kind"`
	At       Position  `json:"at"`
	Blockers int       `json:"blockers"`
	Chance   float64   `json:"chance"`
	Roll     float64   `json:"roll"`
	Passed   bool      `json:"passed"`
}

func (g *Game) rollDodge(a *Agent, at Position, kind DodgeKind) DodgeCheck {
	blockers := len(g.ZoneBlockers(at, a.Side))
	chance := DodgeChance(g.Rules, blockers, a.Agility(), a.HasBall)
	roll, passed := Chance(g.rng, chance)
	a.Stats.DodgesAttempted++
	result := "failed"
	if passed {
		a.Stats.DodgesPassed++
		result = "passed"
	}
	g.emit(EventDukeCheck, Payload{
		"agent_id":   a.ID,
		"agent_name": a.Name,
		"team":       a.Side.String(),
		"kind":       string(kind),
		"at":         at,
		"blockers":   blockers,
		"chance":     chance,
		"roll":       roll,
		"result":     result,
		"carrying":   a.HasBall,
	})
	return DodgeCheck{Kind: kind, At: at, Blockers: blockers, Chance: chance, Roll: roll, Passed: passed}
}

// routeChecks lists the cells that need a DUKE check for a to reach target:
// its own cell if under a zone, then every zoned cell strictly between.
func (g *Game) routeChecks(a *Agent, target Position) []Position {
	var cells []Position
	if g.InZone(a.Position, a.Side) {
		cells = append(cells, a.Position)
	}
	for _, p := range AxisPath(a.Position, target) {
		if g.InZone(p, a.Side) {
			cells = append(cells, p)
		}
	}
	return cells
}

// RouteSafety is the lowest single-check chance a would face reaching target,
// or 1 if no check is needed.
func (g *Game) RouteSafety(a *Agent, target Position) float64 {
	safety := 1.0
	for _, p := range g.routeChecks(a, target) {
		if c := g.DodgeChanceAt(a, p); c < safety {
			safety = c
		}
	}
	return safety
}
