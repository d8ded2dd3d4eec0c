package engine

import "testing"

// scriptedRNG replays fixed draws. Once a queue runs dry it returns 0.5 for
// floats and 0 for ints.
type scriptedRNG struct {
	floats []float64
	ints   []int
}

func (s *scriptedRNG) Float64() float64 {
	if len(s.floats) == 0 {
		return 0.5
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func (s *scriptedRNG) Intn(n int) int {
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	if v >= n {
		v = n - 1
	}
	return v
}

// newTestGame returns an empty live play on a default 10x10 field. The ball
// lies loose in the corner until a test hands it to someone.
func newTestGame(t *testing.T, rng RNG) (*Game, *Bus) {
	t.Helper()
	if rng == nil {
		rng = &scriptedRNG{}
	}
	bus := NewBus()
	g, err := NewGame(DefaultRules(), NewTeam("Home", SideHome), NewTeam("Away", SideAway), rng, bus)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	g.Play = 1
	g.PlayLive = true
	g.Ball = Ball{State: BallFree, Position: Position{X: 0, Y: 0}}
	return g, bus
}

func defaultAttrs() Attributes {
	return Attributes{Strength: 3, Toughness: 3, Agility: 0, BlockSkill: 0, Movement: 4}
}

// addAgent puts a fresh agent of side on p with a full movement budget.
func addAgent(t *testing.T, g *Game, side Side, p Position, attrs Attributes) *Agent {
	t.Helper()
	a := NewAgent("", side, attrs)
	team := g.Team(side)
	team.Add(a)
	a.Name = team.Name + string(rune('A'+len(team.Agents)-1))
	if !g.Grid.Place(a, p) {
		t.Fatalf("could not place %s at %v", a.Name, p)
	}
	a.ResetMovement()
	return a
}

func mustInvariants(t *testing.T, g *Game) {
	t.Helper()
	if err := g.CheckInvariants(); err != nil {
		t.Fatalf("invariant violated: %v", err)
	}
}

func almostEqual(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
