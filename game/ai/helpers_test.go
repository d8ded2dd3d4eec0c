package ai

import (
	"testing"

	"github.com/Anzelak/goblin-ball/game/engine"
)

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

func newBoard(t *testing.T, rng engine.RNG) *engine.Game {
	t.Helper()
	if rng == nil {
		rng = &scriptedRNG{}
	}
	g, err := engine.NewGame(engine.DefaultRules(), engine.NewTeam("Home", engine.SideHome), engine.NewTeam("Away", engine.SideAway), rng, nil)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	g.Play = 1
	g.PlayLive = true
	return g
}

func place(t *testing.T, g *engine.Game, side engine.Side, x, y int) *engine.Agent {
	t.Helper()
	team := g.Team(side)
	a := engine.NewAgent(team.Name+string(rune('A'+len(team.Agents))), side, engine.Attributes{
		Strength: 3, Toughness: 3, Movement: 4,
	})
	team.Add(a)
	if !g.Grid.Place(a, engine.Position{X: x, Y: y}) {
		t.Fatalf("could not place %s at (%d,%d)", a.Name, x, y)
	}
	a.ResetMovement()
	return a
}

func hand(g *engine.Game, a *engine.Agent) {
	a.HasBall = true
	g.Ball = engine.Ball{State: engine.BallHeld, Holder: a, Position: a.Position}
}
