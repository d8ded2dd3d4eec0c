package ai

import (
	"testing"

	"github.com/Anzelak/goblin-ball/game/engine"
)

func TestTakeTurnScoresOnOpenField(t *testing.T) {
	g := newBoard(t, nil)
	c := place(t, g, engine.SideHome, 5, 3)
	hand(g, c)

	d := NewBrain().TakeTurn(g, c)
	if d.Goal != GoalScoreTouchdown {
		t.Errorf("goal = %s, want %s", d.Goal, GoalScoreTouchdown)
	}
	if !d.Acted() {
		t.Fatalf("carrier did not act: %+v", d.Steps)
	}
	if g.PlayLive || g.Outcome != engine.OutcomeTouchdown {
		t.Errorf("play live=%v outcome=%s, want touchdown", g.PlayLive, g.Outcome)
	}
	if g.Home.Score != g.Rules.TouchdownPoints {
		t.Errorf("home score = %d, want %d", g.Home.Score, g.Rules.TouchdownPoints)
	}
}

func TestTakeTurnIdleCases(t *testing.T) {
	tests := []struct {
		name  string
		setup func(g *engine.Game, a *engine.Agent)
	}{
		{"play over", func(g *engine.Game, a *engine.Agent) { g.PlayLive = false }},
		{"unavailable", func(g *engine.Game, a *engine.Agent) { a.Unavailable = true }},
		{"out of game", func(g *engine.Game, a *engine.Agent) { a.OutOfGame = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newBoard(t, nil)
			a := place(t, g, engine.SideHome, 5, 5)
			tt.setup(g, a)
			d := NewBrain().TakeTurn(g, a)
			if d.Goal != GoalIdle || d.Acted() {
				t.Errorf("decision = %+v, want idle", d)
			}
			if a.Position != (engine.Position{X: 5, Y: 5}) {
				t.Errorf("agent moved to %v", a.Position)
			}
		})
	}
}

func TestTakeTurnStandUp(t *testing.T) {
	g := newBoard(t, nil)
	a := place(t, g, engine.SideHome, 5, 5)
	a.KnockedDown = true

	d := NewBrain().TakeTurn(g, a)
	if len(d.Steps) != 1 || d.Steps[0].Action != ActionStandUp || d.Steps[0].OK {
		t.Fatalf("steps = %+v, want one failed stand up", d.Steps)
	}
	if !a.KnockedDown {
		t.Fatal("agent stood up with standing disabled")
	}

	g.Rules.StandUpCost = 1
	d = NewBrain().TakeTurn(g, a)
	if !d.Steps[0].OK || a.KnockedDown {
		t.Errorf("steps = %+v, knocked down = %v", d.Steps, a.KnockedDown)
	}
	if a.MovementRemaining != a.MaxMovement()-1 {
		t.Errorf("movement = %d, want %d", a.MovementRemaining, a.MaxMovement()-1)
	}
}

func TestTakeTurnRecoversBall(t *testing.T) {
	g := newBoard(t, nil)
	a := place(t, g, engine.SideHome, 2, 5)
	g.Ball = engine.Ball{State: engine.BallFree, Position: engine.Position{X: 2, Y: 3}}

	d := NewBrain().TakeTurn(g, a)
	if d.Goal != GoalRecoverBall {
		t.Fatalf("goal = %s, want %s", d.Goal, GoalRecoverBall)
	}
	last := d.Steps[len(d.Steps)-1]
	if last.Action != ActionPickup || !last.OK {
		t.Fatalf("steps = %+v, want a successful pickup last", d.Steps)
	}
	if !a.HasBall || g.Ball.Holder != a {
		t.Error("agent should hold the ball")
	}
}

func TestTakeTurnShootsWhenCrowded(t *testing.T) {
	g := newBoard(t, nil)
	c := place(t, g, engine.SideHome, 5, 3)
	hand(g, c)
	place(t, g, engine.SideAway, 4, 1)
	place(t, g, engine.SideAway, 6, 1)

	d := NewBrain().TakeTurn(g, c)
	if d.Goal != GoalAttemptFieldGoal {
		t.Fatalf("goal = %s, want %s", d.Goal, GoalAttemptFieldGoal)
	}
	if len(d.Steps) != 1 || d.Steps[0].Action != ActionFieldGoal || !d.Steps[0].OK {
		t.Fatalf("steps = %+v, want one field goal attempt", d.Steps)
	}
	if g.PlayLive {
		t.Error("a field goal attempt ends the play")
	}
}

func TestTakeTurnTacklesAdjacentCarrier(t *testing.T) {
	g := newBoard(t, nil)
	c := place(t, g, engine.SideHome, 5, 6)
	hand(g, c)
	d := place(t, g, engine.SideAway, 5, 5)

	dec := NewBrain().TakeTurn(g, d)
	if dec.Goal != GoalTackleCarrier {
		t.Fatalf("goal = %s, want %s", dec.Goal, GoalTackleCarrier)
	}
	first := dec.Steps[0]
	if first.Action != ActionBlock || !first.OK || first.Target != (engine.Position{X: 5, Y: 6}) {
		t.Errorf("first step = %+v, want a block on the carrier", first)
	}
}

func TestCarrierFilterVetoesUnscreenedCells(t *testing.T) {
	g := newBoard(t, nil)
	c := place(t, g, engine.SideHome, 5, 6)
	hand(g, c)
	place(t, g, engine.SideAway, 3, 4)
	ctx := NewContext(g, c, GoalAdvanceDownfield, StyleDirect)

	ranked := []Candidate{
		{Pos: engine.Position{X: 4, Y: 5}, Score: 300},
		{Pos: engine.Position{X: 6, Y: 5}, Score: 200},
	}
	got := carrierFilter(g, c, ctx, ranked)
	if len(got) != 1 || got[0].Pos != (engine.Position{X: 6, Y: 5}) {
		t.Errorf("filtered = %+v, want only (6,5)", got)
	}

	// A teammate marking the defender makes the cell acceptable again.
	place(t, g, engine.SideHome, 2, 3)
	got = carrierFilter(g, c, ctx, ranked)
	if len(got) != 2 {
		t.Errorf("filtered = %+v, want both cells", got)
	}
}

func TestTakeTurnCarrierHoldsWhenEveryCellIsUnscreened(t *testing.T) {
	g := newBoard(t, nil)
	c := place(t, g, engine.SideHome, 5, 5)
	c.Base.Movement = 1
	c.ResetMovement()
	hand(g, c)
	for _, e := range []spot{{5, 3}, {3, 5}, {7, 5}, {5, 7}} {
		place(t, g, engine.SideAway, e.x, e.y)
	}

	d := NewBrain().TakeTurn(g, c)
	for _, s := range d.Steps {
		if s.Action == ActionMove {
			t.Errorf("carrier tried a vetoed move: %+v", s)
		}
	}
	if c.Position != (engine.Position{X: 5, Y: 5}) {
		t.Errorf("carrier moved to %v", c.Position)
	}
	if unscreenedThreat(g, c, c.Position) {
		t.Error("carrier ended next to an unscreened enemy")
	}
	if last := d.Steps[len(d.Steps)-1]; last.Action != ActionIdle {
		t.Errorf("last step = %+v, want idle", last)
	}
}
