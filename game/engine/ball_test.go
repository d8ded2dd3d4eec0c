package engine

import "testing"

func looseBall(g *Game, at Position) {
	g.Ball = Ball{State: BallFree, Position: at}
}

func TestPickUpBall(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		g, bus := newTestGame(t, &scriptedRNG{floats: []float64{0.1}})
		a := addAgent(t, g, SideHome, Position{X: 3, Y: 3}, defaultAttrs())
		looseBall(g, a.Position)

		res := g.PickUpBall(a)
		if !res.OK {
			t.Fatalf("expected pickup, got %q", res.Reason)
		}
		if !a.HasBall || g.Ball.State != BallHeld || g.Ball.Holder != a {
			t.Error("ball and agent flag out of sync")
		}
		if a.MovementRemaining != 3 {
			t.Errorf("expected pickup cost 1, got %d remaining", a.MovementRemaining)
		}
		if bus.Count(EventBallPickup) != 1 {
			t.Error("expected ball_pickup event")
		}
		mustInvariants(t, g)
	})

	t.Run("fumble scatters one cell", func(t *testing.T) {
		g, bus := newTestGame(t, &scriptedRNG{floats: []float64{0.9}, ints: []int{7}})
		a := addAgent(t, g, SideHome, Position{X: 3, Y: 3}, defaultAttrs())
		looseBall(g, a.Position)

		res := g.PickUpBall(a)
		if res.OK || res.Reason != ReasonPickupFailed {
			t.Fatalf("expected fumble, got %+v", res)
		}
		if g.Ball.State != BallFree || g.Ball.Position != (Position{X: 4, Y: 4}) {
			t.Errorf("expected free ball at (4,4), got %s at %v", g.Ball.State, g.Ball.Position)
		}
		if a.MovementRemaining != 3 {
			t.Error("pickup cost must be paid on a fumble")
		}
		if bus.Count(EventBallPickupFailed) != 1 {
			t.Error("expected ball_pickup_failed event")
		}
		mustInvariants(t, g)
	})

	t.Run("not on ball", func(t *testing.T) {
		g, _ := newTestGame(t, nil)
		a := addAgent(t, g, SideHome, Position{X: 3, Y: 3}, defaultAttrs())
		looseBall(g, Position{X: 0, Y: 0})
		if res := g.PickUpBall(a); res.Reason != ReasonNotAtBall {
			t.Errorf("expected not_at_ball, got %q", res.Reason)
		}
	})

	t.Run("ball already held", func(t *testing.T) {
		g, _ := newTestGame(t, nil)
		a := addAgent(t, g, SideHome, Position{X: 3, Y: 3}, defaultAttrs())
		g.giveBall(a)
		if res := g.PickUpBall(a); res.Reason != ReasonNoBall {
			t.Errorf("expected no_ball, got %q", res.Reason)
		}
	})
}

func TestPickupChance_Clamped(t *testing.T) {
	g, _ := newTestGame(t, nil)
	a := addAgent(t, g, SideHome, Position{X: 5, Y: 5}, defaultAttrs())
	if got := g.PickupChance(a, a.Position); !almostEqual(got, 0.7) {
		t.Errorf("expected 0.7 with no enemies, got %.3f", got)
	}
	for i, p := range g.Grid.AdjacentPositions(a.Position) {
		if i == 7 {
			break
		}
		addAgent(t, g, SideAway, p, defaultAttrs())
	}
	if got := g.PickupChance(a, a.Position); !almostEqual(got, 0.2) {
		t.Errorf("expected floor 0.2 with 7 enemies, got %.3f", got)
	}
}

func TestScatter_StaysInBounds(t *testing.T) {
	g, _ := newTestGame(t, NewRNG(3))
	for i := 0; i < 500; i++ {
		p := g.scatter(Position{X: i % 10, Y: (i / 10) % 10}, 1+i%3)
		if !g.Grid.InBounds(p) {
			t.Fatalf("scatter left the grid: %v", p)
		}
	}
}
