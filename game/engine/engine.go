package engine

import "fmt"

// PlayOutcome records why a play ended.
type PlayOutcome string

const (
	OutcomeNone          PlayOutcome = ""
	OutcomeTouchdown     PlayOutcome = "touchdown"
	OutcomeFieldGoal     PlayOutcome = "field_goal"
	OutcomeFieldGoalMiss PlayOutcome = "field_goal_miss"
	OutcomeCarrierDown   PlayOutcome = "carrier_down"
	OutcomeTurnLimit     PlayOutcome = "turn_limit"
	OutcomeNoCarrier     PlayOutcome = "no_carrier"
)

// Game is the mutable state of one match: the grid, both teams, the ball and
// the play/turn clock. Every rule operation is a method on Game and mutates it
// synchronously; nothing here is safe for concurrent use.
type Game struct {
	Rules *Rules
	Grid  *Grid
	Home  *Team
	Away  *Team
	Ball  Ball

	Play     int
	Turn     int
	PlayLive bool
	Outcome  PlayOutcome

	trails map[string][]Position
	rng    RNG
	events Emitter
}

type nopEmitter struct{}

func (nopEmitter) Emit(EventType, Payload) {}

// NewGame wires a match together. Home must be on SideHome and away on
// SideAway. A nil emitter discards events. Home starts on offense.
func NewGame(rules *Rules, home, away *Team, rng RNG, events Emitter) (*Game, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if home == nil || away == nil {
		return nil, fmt.Errorf("new game: both teams are required")
	}
	if home.Side != SideHome || away.Side != SideAway {
		return nil, fmt.Errorf("new game: teams must be on home and away sides")
	}
	if rng == nil {
		return nil, fmt.Errorf("new game: rng is required")
	}
	if events == nil {
		events = nopEmitter{}
	}
	home.Offense, away.Offense = true, false
	return &Game{
		Rules:  rules,
		Grid:   NewGrid(rules.GridWidth, rules.GridHeight),
		Home:   home,
		Away:   away,
		trails: make(map[string][]Position),
		rng:    rng,
		events: events,
	}, nil
}

// RNG returns the match generator. Every random draw of the match, including
// the decision layer's, goes through it.
func (g *Game) RNG() RNG { return g.rng }

// Offense returns the team currently carrying the ball forward.
func (g *Game) Offense() *Team {
	if g.Away.Offense {
		return g.Away
	}
	return g.Home
}

// Defense returns the team currently defending.
func (g *Game) Defense() *Team {
	if g.Away.Offense {
		return g.Home
	}
	return g.Away
}

// Team returns the team playing side.
func (g *Game) Team(side Side) *Team {
	if side == SideAway {
		return g.Away
	}
	return g.Home
}

// Agents returns both rosters, home first.
func (g *Game) Agents() []*Agent {
	out := make([]*Agent, 0, len(g.Home.Agents)+len(g.Away.Agents))
	out = append(out, g.Home.Agents...)
	return append(out, g.Away.Agents...)
}

// Agent finds a roster member of either team by ID.
func (g *Game) Agent(id string) (*Agent, bool) {
	if a, ok := g.Home.Agent(id); ok {
		return a, true
	}
	return g.Away.Agent(id)
}

// Carrier returns the agent holding the ball.
func (g *Game) Carrier() (*Agent, bool) {
	if g.Ball.State != BallHeld {
		return nil, false
	}
	return g.Ball.Holder, true
}

// EndZoneRow is the row side scores on.
func (g *Game) EndZoneRow(side Side) int {
	if side == SideHome {
		return 0
	}
	return g.Grid.Height() - 1
}

// Hoop is the field goal target for side, centered in its end zone.
func (g *Game) Hoop(side Side) Position {
	return Position{X: g.Grid.Width() / 2, Y: g.EndZoneRow(side)}
}

// DistanceToEndZone counts rows between p and side's scoring row.
func (g *Game) DistanceToEndZone(p Position, side Side) int {
	return abs(p.Y - g.EndZoneRow(side))
}

// Forward returns the row delta that moves side toward its end zone.
func Forward(side Side) int {
	if side == SideHome {
		return -1
	}
	return 1
}

// Enemies returns the on-field agents opposing side.
func (g *Game) Enemies(side Side) []*Agent {
	var out []*Agent
	for _, a := range g.Team(side.Opponent()).Agents {
		if a.onField {
			out = append(out, a)
		}
	}
	return out
}

// Trail returns the last positions visited by a, oldest first.
func (g *Game) Trail(a *Agent) []Position {
	t := g.trails[a.ID]
	out := make([]Position, len(t))
	copy(out, t)
	return out
}

func (g *Game) recordTrail(a *Agent, from, to Position) {
	t := g.trails[a.ID]
	if len(t) == 0 || t[len(t)-1] != from {
		t = append(t, from)
	}
	t = append(t, to)
	if n := g.Rules.TrailLength; len(t) > n {
		t = t[len(t)-n:]
	}
	g.trails[a.ID] = t
}

func (g *Game) emit(t EventType, p Payload) {
	g.events.Emit(t, p)
}

func (g *Game) setClock() {
	if c, ok := g.events.(interface{ SetClock(play, turn int) }); ok {
		c.SetClock(g.Play, g.Turn)
	}
}

func (g *Game) endPlay(outcome PlayOutcome) {
	if !g.PlayLive {
		return
	}
	g.PlayLive = false
	g.Outcome = outcome
}

// CheckInvariants verifies grid occupancy and ball uniqueness. It is cheap
// enough to call after every action in tests.
func (g *Game) CheckInvariants() error {
	seen := make(map[Position]bool)
	for _, a := range g.Agents() {
		if !a.onField {
			continue
		}
		p, ok := g.Grid.PositionOf(a)
		if !ok {
			return fmt.Errorf("agent %s flagged on field but not on grid", a.Name)
		}
		if p != a.Position {
			return fmt.Errorf("agent %s position %v disagrees with grid %v", a.Name, a.Position, p)
		}
		if seen[p] {
			return fmt.Errorf("two agents share %v", p)
		}
		seen[p] = true
		if a.MovementRemaining < 0 {
			return fmt.Errorf("agent %s has negative movement", a.Name)
		}
	}
	holders := 0
	for _, a := range g.Agents() {
		if a.HasBall {
			holders++
			if g.Ball.State != BallHeld || g.Ball.Holder != a {
				return fmt.Errorf("agent %s flagged with ball but ball is %s", a.Name, g.Ball.State)
			}
		}
	}
	if !g.PlayLive {
		if holders > 1 {
			return fmt.Errorf("%d agents hold the ball", holders)
		}
		return nil
	}
	switch g.Ball.State {
	case BallHeld:
		if holders != 1 {
			return fmt.Errorf("ball held but %d agents flagged", holders)
		}
	case BallFree:
		if holders != 0 {
			return fmt.Errorf("ball free but %d agents flagged", holders)
		}
		if !g.Grid.InBounds(g.Ball.Position) {
			return fmt.Errorf("free ball out of bounds at %v", g.Ball.Position)
		}
	default:
		return fmt.Errorf("ball %s during a live play", g.Ball.State)
	}
	return nil
}
