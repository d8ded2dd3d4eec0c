package match

import (
	"context"
	"errors"
	"testing"

	"github.com/Anzelak/goblin-ball/game/engine"
)

func newController(t *testing.T, seed int64, mutate func(*engine.Rules)) *Controller {
	t.Helper()
	rules := engine.DefaultRules()
	if mutate != nil {
		mutate(rules)
	}
	c, err := New(rules, WithSeed(seed), WithTeams("Grubs", "Bogs"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestAdvanceStartsPlay(t *testing.T) {
	c := newController(t, 1, nil)
	res, err := c.Advance()
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if res.Kind != StepPlayStart || res.Play != 1 {
		t.Errorf("first step = %+v, want play 1 start", res)
	}
	g := c.Game()
	if !g.PlayLive {
		t.Fatal("play should be live")
	}
	carrier, ok := g.Carrier()
	if !ok || carrier.Side != engine.SideHome {
		t.Errorf("home should start with the ball, carrier = %v", carrier)
	}
	res, err = c.Advance()
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if res.Kind != StepTurn || res.Turn != 1 {
		t.Errorf("second step = %+v, want turn 1", res)
	}
	if len(res.Decisions) == 0 || res.Decisions[0].AgentID != carrier.ID {
		t.Errorf("carrier must act first, decisions = %+v", res.Decisions)
	}
}

func TestRunGameDeterministic(t *testing.T) {
	play := func() ([]engine.Event, engine.GameResult) {
		c := newController(t, 99, nil)
		res, err := c.RunGame(context.Background())
		if err != nil {
			t.Fatalf("RunGame: %v", err)
		}
		return c.Events(), res
	}
	eventsA, resA := play()
	eventsB, resB := play()
	if resA != resB {
		t.Fatalf("results differ: %+v vs %+v", resA, resB)
	}
	if len(eventsA) != len(eventsB) {
		t.Fatalf("event counts differ: %d vs %d", len(eventsA), len(eventsB))
	}
	for i := range eventsA {
		a, b := eventsA[i], eventsB[i]
		if a.Type != b.Type || a.Play != b.Play || a.Turn != b.Turn || a.Describe() != b.Describe() {
			t.Fatalf("event %d differs: %s vs %s", i, a.Describe(), b.Describe())
		}
	}
}

func TestRunGameLifecycle(t *testing.T) {
	c := newController(t, 5, func(r *engine.Rules) { r.PlaysPerGame = 6 })
	g := c.Game()
	for !c.Over() {
		before := g.Play
		res, err := c.Advance()
		if err != nil {
			t.Fatalf("Advance: %v", err)
		}
		if err := g.CheckInvariants(); err != nil {
			t.Fatalf("play %d turn %d: %v", g.Play, g.Turn, err)
		}
		if res.PlayEnded && g.PlayLive {
			t.Fatal("play reported ended but is still live")
		}
		if res.Kind == StepPlayStart && g.Play != before+1 {
			t.Fatalf("play counter jumped from %d to %d", before, g.Play)
		}
	}
	if g.Play != 6 {
		t.Errorf("plays = %d, want 6", g.Play)
	}
	if _, err := c.Advance(); !errors.Is(err, ErrGameOver) {
		t.Errorf("Advance after game over = %v, want ErrGameOver", err)
	}
	res, ok := c.Result()
	if !ok {
		t.Fatal("no result after game over")
	}
	if res.HomeScore != g.Home.Score || res.AwayScore != g.Away.Score {
		t.Errorf("result %+v disagrees with scores %d-%d", res, g.Home.Score, g.Away.Score)
	}
	if got := c.Bus().Count(engine.EventGameEnd); got != 1 {
		t.Errorf("game_end events = %d, want 1", got)
	}
	if got := c.Bus().Count(engine.EventPlayEnd); got != 6 {
		t.Errorf("play_end events = %d, want 6", got)
	}
	stats := c.Stats()
	if stats.PlaysCompleted != 6 {
		t.Errorf("plays completed = %d, want 6", stats.PlaysCompleted)
	}
	if stats.LongestPlay < 1 || stats.LongestPlay > g.Rules.MaxTurnsPerPlay {
		t.Errorf("longest play = %d, want within [1, %d]", stats.LongestPlay, g.Rules.MaxTurnsPerPlay)
	}
}

func TestRolesSwapEveryPlay(t *testing.T) {
	c := newController(t, 3, func(r *engine.Rules) { r.PlaysPerGame = 4 })
	ctx := context.Background()
	want := []engine.Side{engine.SideHome, engine.SideAway, engine.SideHome, engine.SideAway}
	for i, side := range want {
		steps, err := c.RunPlay(ctx)
		if err != nil {
			t.Fatalf("RunPlay %d: %v", i+1, err)
		}
		if steps[0].Kind != StepPlayStart {
			t.Fatalf("play %d began with %s", i+1, steps[0].Kind)
		}
		starts := c.Bus().History()
		var offense string
		for _, e := range starts {
			if e.Type == engine.EventPlayStart && e.Play == i+1 {
				offense, _ = e.Payload["offense_side"].(string)
			}
		}
		if offense != side.String() {
			t.Errorf("play %d offense = %s, want %s", i+1, offense, side)
		}
	}
	if !c.Over() {
		t.Error("game should be over after the last play")
	}
}

func TestTurnLimitEndsPlay(t *testing.T) {
	c := newController(t, 11, func(r *engine.Rules) {
		r.MaxTurnsPerPlay = 1
		r.PlaysPerGame = 2
	})
	steps, err := c.RunPlay(context.Background())
	if err != nil {
		t.Fatalf("RunPlay: %v", err)
	}
	last := steps[len(steps)-1]
	if !last.PlayEnded {
		t.Fatalf("last step = %+v, want play end", last)
	}
	if c.Game().TurnsPlayed() > 1 {
		t.Errorf("turns played = %d, want at most 1", c.Game().TurnsPlayed())
	}
}

func TestRunGameHonoursContext(t *testing.T) {
	c := newController(t, 1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.RunGame(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("RunGame = %v, want context.Canceled", err)
	}
	if c.Steps() != 0 {
		t.Errorf("steps = %d, want 0", c.Steps())
	}
}

func TestRematch(t *testing.T) {
	c := newController(t, 21, func(r *engine.Rules) { r.PlaysPerGame = 2 })
	ctx := context.Background()
	if _, err := c.RunGame(ctx); err != nil {
		t.Fatalf("RunGame: %v", err)
	}
	c.Rematch()
	if c.Over() || c.Game().Play != 0 || c.Game().Home.Score != 0 {
		t.Fatalf("rematch did not reset: over=%v play=%d", c.Over(), c.Game().Play)
	}
	if _, err := c.RunGame(ctx); err != nil {
		t.Fatalf("second RunGame: %v", err)
	}
	for _, a := range c.Game().Home.Agents {
		if a.Stats.GamesPlayed != 2 {
			t.Errorf("%s games played = %d, want 2", a.Name, a.Stats.GamesPlayed)
		}
	}
}

func TestNewRejectsInvalidRules(t *testing.T) {
	rules := engine.DefaultRules()
	rules.GridWidth = 0
	if _, err := New(rules); !errors.Is(err, engine.ErrInvalidRules) {
		t.Errorf("New = %v, want ErrInvalidRules", err)
	}
}

func TestFieldGoalRangeChangesPlay(t *testing.T) {
	shots := func(seed int64, fgRange int) (int, []engine.Event) {
		c := newController(t, seed, func(r *engine.Rules) { r.FieldGoalRange = fgRange })
		if _, err := c.RunGame(context.Background()); err != nil {
			t.Fatalf("RunGame: %v", err)
		}
		return c.Bus().Count(engine.EventFieldGoal) + c.Bus().Count(engine.EventFieldGoalMiss), c.Events()
	}

	differ := false
	long := 0
	for seed := int64(1); seed <= 5; seed++ {
		n0, ev0 := shots(seed, 0)
		n6, ev6 := shots(seed, 6)
		long += n6
		if n0 != n6 || len(ev0) != len(ev6) {
			differ = true
		}
	}
	if long == 0 {
		t.Error("no field goals attempted with a range of 6")
	}
	if !differ {
		t.Error("field_goal_range had no effect on any game")
	}
}
