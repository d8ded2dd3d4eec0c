package engine

import "fmt"

// BallState is the possession state of the ball.
type BallState int

const (
	// BallDead means no play is live: before the first play, or after a
	// score, turnover or stop.
	BallDead BallState = iota
	BallHeld
	BallFree
)

func (s BallState) String() string {
	switch s {
	case BallHeld:
		return "held"
	case BallFree:
		return "free"
	default:
		return "dead"
	}
}

// MarshalText encodes the state by name.
func (s BallState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a state name.
func (s *BallState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "dead":
		*s = BallDead
	case "held":
		*s = BallHeld
	case "free":
		*s = BallFree
	default:
		return fmt.Errorf("unknown ball state %q", string(b))
	}
	return nil
}

// Ball is the play's single token. Holder is set only when held; Position is
// meaningful only when free.
type Ball struct {
	State    BallState `json:"state"`
	Holder   *Agent    `json:"-"`
	Position Position  `json:"position"`
}

// Location is where the ball currently is on the field.
func (b Ball) Location() Position {
	if b.State == BallHeld && b.Holder != nil {
		return b.Holder.Position
	}
	return b.Position
}

// giveBall hands the ball to a at the start of a play or after a pickup.
func (g *Game) giveBall(a *Agent) {
	if g.Ball.State == BallHeld {
		panic("ball: giving a ball that is already held")
	}
	a.HasBall = true
	g.Ball = Ball{State: BallHeld, Holder: a, Position: a.Position}
}

// dropBall moves the ball from its holder to a scattered free cell.
func (g *Game) dropBall(cause string) Position {
	holder := g.Ball.Holder
	if g.Ball.State != BallHeld || holder == nil {
		panic("ball: dropping a ball that is not held")
	}
	from := holder.Position
	holder.HasBall = false
	to := g.scatter(from, RollBetween(g.rng, g.Rules.DropScatterMin, g.Rules.DropScatterMax))
	g.Ball = Ball{State: BallFree, Position: to}
	g.emit(EventBallDropped, Payload{
		"agent_id":   holder.ID,
		"agent_name": holder.Name,
		"team":       holder.Side.String(),
		"from":       from,
		"to":         to,
		"cause":      cause,
	})
	return to
}

// killBall takes the ball out of play after a score or a turnover.
func (g *Game) killBall() {
	if g.Ball.Holder != nil {
		g.Ball.Holder.HasBall = false
	}
	g.Ball = Ball{State: BallDead, Position: g.Ball.Location()}
}

// scatter moves distance cells from p in a random 8-neighborhood direction,
// clamped to the grid.
func (g *Game) scatter(p Position, distance int) Position {
	d := neighborhood[g.rng.Intn(len(neighborhood))]
	return g.Grid.Clamp(p.Offset(d[0]*distance, d[1]*distance))
}

// PickupResult reports a pickup attempt.
type PickupResult struct {
	OK     bool     `json:"ok"`
	Reason Reason   `json:"reason,omitempty"`
	Chance float64  `json:"chance"`
	Roll   float64  `json:"roll"`
	BallAt Position `json:"ball_at"`
}

// PickupChance is the probability that a picks up a ball lying at p.
func (g *Game) PickupChance(a *Agent, p Position) float64 {
	enemies := 0
	for _, n := range g.Grid.AdjacentAgents(p) {
		if a.IsEnemy(n) && n.IsStanding() {
			enemies++
		}
	}
	r := g.Rules
	return clampFloat(r.PickupMin, r.PickupMax, r.PickupBase-r.PickupPerEnemy*float64(enemies))
}

// PickUpBall tries to take a free ball lying on a's cell. The pickup cost is
// spent whatever the roll; a fumble scatters the ball one cell.
func (g *Game) PickUpBall(a *Agent) PickupResult {
	if reason := g.actionGate(a); reason != ReasonNone {
		return PickupResult{Reason: reason}
	}
	if g.Ball.State != BallFree {
		return PickupResult{Reason: ReasonNoBall}
	}
	if g.Ball.Position != a.Position {
		return PickupResult{Reason: ReasonNotAtBall, BallAt: g.Ball.Position}
	}
	if a.MovementRemaining < g.Rules.PickupCost {
		return PickupResult{Reason: ReasonInsufficientMovement, BallAt: g.Ball.Position}
	}
	a.spend(g.Rules.PickupCost)

	chance := g.PickupChance(a, a.Position)
	roll, ok := Chance(g.rng, chance)
	if ok {
		g.giveBall(a)
		a.Stats.Pickups++
		g.emit(EventBallPickup, Payload{
			"agent_id":   a.ID,
			"agent_name": a.Name,
			"team":       a.Side.String(),
			"at":         a.Position,
			"chance":     chance,
			"roll":       roll,
		})
		return PickupResult{OK: true, Chance: chance, Roll: roll, BallAt: a.Position}
	}

	to := g.scatter(a.Position, g.Rules.FumbleScatter)
	g.Ball.Position = to
	g.emit(EventBallPickupFailed, Payload{
		"agent_id":   a.ID,
		"agent_name": a.Name,
		"team":       a.Side.String(),
		"at":         a.Position,
		"to":         to,
		"chance":     chance,
		"roll":       roll,
	})
	return PickupResult{Reason: ReasonPickupFailed, Chance: chance, Roll: roll, BallAt: to}
}

// actionGate returns why a cannot act at all right now.
func (g *Game) actionGate(a *Agent) Reason {
	switch {
	case !g.PlayLive:
		return ReasonPlayOver
	case a.Unavailable || a.OutOfGame || !a.onField:
		return ReasonUnavailable
	case a.KnockedDown:
		return ReasonKnockedDown
	}
	return ReasonNone
}
