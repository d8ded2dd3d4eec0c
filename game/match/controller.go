// Package match drives a game: it starts plays, runs turns in the fixed
// order (carrier, offensive blockers, defenders) and closes plays and the
// game when the rules say so.
//
// A match is fully determined by its rules, seed, team names and the number
// of Advance calls made so far, which is what session persistence stores.
package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Anzelak/goblin-ball/game/ai"
	"github.com/Anzelak/goblin-ball/game/engine"
)

// ErrGameOver is returned by Advance once the game has finished.
var ErrGameOver = errors.New("game is over")

// StepKind tells what one Advance call did.
type StepKind string

const (
	StepPlayStart StepKind = "play_start"
	StepTurn      StepKind = "turn"
	StepGameOver  StepKind = "game_over"
)

// StepResult reports one Advance call.
type StepResult struct {
	Kind      StepKind           `json:"kind"`
	Play      int                `json:"play"`
	Turn      int                `json:"turn"`
	Decisions []ai.Decision      `json:"decisions,omitempty"`
	PlayEnded bool               `json:"play_ended"`
	Outcome   engine.PlayOutcome `json:"outcome,omitempty"`
	GameOver  bool               `json:"game_over"`
	Result    *engine.GameResult `json:"result,omitempty"`
}

// Stats are match-level counters the engine does not keep.
type Stats struct {
	PlaysCompleted int                        `json:"plays_completed"`
	TurnsPlayed    int                        `json:"turns_played"`
	LongestPlay    int                        `json:"longest_play"`
	LongestPlayNum int                        `json:"longest_play_number"`
	Outcomes       map[engine.PlayOutcome]int `json:"outcomes"`
}

// Controller owns one Game and advances it step by step. It is not safe for
// concurrent use; callers serialize access.
type Controller struct {
	game   *engine.Game
	bus    *engine.Bus
	brain  *ai.Brain
	log    *zap.Logger
	seed   int64
	steps  int
	over   bool
	result *engine.GameResult
	stats  Stats
}

type options struct {
	seed     int64
	seedSet  bool
	rng      engine.RNG
	bus      *engine.Bus
	logger   *zap.Logger
	namer    engine.Namer
	brain    *ai.Brain
	homeName string
	awayName string
}

// Option configures New.
type Option func(*options)

// WithSeed fixes the RNG seed. Without it the seed is taken from the clock.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed, o.seedSet = seed, true }
}

// WithRNG supplies the random source directly, overriding WithSeed.
func WithRNG(rng engine.RNG) Option {
	return func(o *options) { o.rng = rng }
}

// WithBus publishes events on bus instead of a fresh one.
func WithBus(bus *engine.Bus) Option {
	return func(o *options) { o.bus = bus }
}

// WithLogger logs play boundaries at Info and decisions at Debug.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithNamer names roster members.
func WithNamer(n engine.Namer) Option {
	return func(o *options) { o.namer = n }
}

// WithBrain replaces the decision layer.
func WithBrain(b *ai.Brain) Option {
	return func(o *options) { o.brain = b }
}

// WithTeams sets the team names.
func WithTeams(home, away string) Option {
	return func(o *options) { o.homeName, o.awayName = home, away }
}

// New builds both rosters from the seeded RNG and sets up the game.
func New(rules *engine.Rules, opts ...Option) (*Controller, error) {
	o := options{homeName: "Home", awayName: "Away"}
	for _, opt := range opts {
		opt(&o)
	}
	if rules == nil {
		rules = engine.DefaultRules()
	}
	if !o.seedSet {
		o.seed = time.Now().UnixNano()
	}
	rng := o.rng
	if rng == nil {
		rng = engine.NewRNG(o.seed)
	}
	if o.bus == nil {
		o.bus = engine.NewBus()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.brain == nil {
		o.brain = ai.NewBrain()
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	home := engine.BuildTeam(rng, rules, o.homeName, engine.SideHome, o.namer)
	away := engine.BuildTeam(rng, rules, o.awayName, engine.SideAway, o.namer)
	g, err := engine.NewGame(rules, home, away, rng, o.bus)
	if err != nil {
		return nil, fmt.Errorf("new match: %w", err)
	}
	return &Controller{
		game:  g,
		bus:   o.bus,
		brain: o.brain,
		log:   o.logger,
		seed:  o.seed,
		stats: Stats{Outcomes: make(map[engine.PlayOutcome]int)},
	}, nil
}

// Game exposes the underlying state for read access.
func (c *Controller) Game() *engine.Game { return c.game }

// Bus is the match's event bus.
func (c *Controller) Bus() *engine.Bus { return c.bus }

// Seed is the RNG seed the match was built with.
func (c *Controller) Seed() int64 { return c.seed }

// Steps counts successful Advance calls.
func (c *Controller) Steps() int { return c.steps }

// Over reports whether the game has finished.
func (c *Controller) Over() bool { return c.over }

// Result is the final score, once the game is over.
func (c *Controller) Result() (engine.GameResult, bool) {
	if c.result == nil {
		return engine.GameResult{}, false
	}
	return *c.result, true
}

// Stats returns a copy of the match counters.
func (c *Controller) Stats() Stats {
	out := c.stats
	out.Outcomes = make(map[engine.PlayOutcome]int, len(c.stats.Outcomes))
	for k, v := range c.stats.Outcomes {
		out.Outcomes[k] = v
	}
	return out
}

// Snapshot is the current board view.
func (c *Controller) Snapshot() engine.Snapshot { return c.game.Snapshot() }

// Events returns the bus history.
func (c *Controller) Events() []engine.Event { return c.bus.History() }

// Advance performs the smallest unit of progress: it starts the next play
// when none is live, and otherwise runs one full turn.
func (c *Controller) Advance() (StepResult, error) {
	if c.over {
		return StepResult{}, ErrGameOver
	}
	if !c.game.PlayLive {
		res, err := c.startPlay()
		if err != nil {
			return res, err
		}
		c.steps++
		return res, nil
	}
	c.steps++
	return c.runTurn(), nil
}

func (c *Controller) startPlay() (StepResult, error) {
	g := c.game
	if g.Play >= g.Rules.PlaysPerGame {
		return c.finishGame(StepResult{Kind: StepGameOver, Play: g.Play}), nil
	}
	carrier, err := g.BeginPlay()
	if err != nil {
		return StepResult{}, fmt.Errorf("advance: %w", err)
	}
	res := StepResult{Kind: StepPlayStart, Play: g.Play}
	if carrier == nil {
		c.log.Info("play started without a carrier", zap.Int("play", g.Play), zap.String("offense", g.Offense().Name))
		return c.endPlay(res), nil
	}
	c.log.Info("play started",
		zap.Int("play", g.Play),
		zap.String("offense", g.Offense().Name),
		zap.String("carrier", carrier.Name),
		zap.Stringer("at", carrier.Position),
	)
	return res, nil
}

func (c *Controller) runTurn() StepResult {
	g := c.game
	res := StepResult{Kind: StepTurn, Play: g.Play}
	if !g.BeginTurn() {
		res.Turn = g.TurnsPlayed()
		return c.endPlay(res)
	}
	res.Turn = g.Turn
	c.stats.TurnsPlayed++
	for _, a := range c.turnOrder() {
		if !g.PlayLive {
			break
		}
		d := c.brain.TakeTurn(g, a)
		res.Decisions = append(res.Decisions, d)
		if ce := c.log.Check(zap.DebugLevel, "decision"); ce != nil {
			ce.Write(
				zap.String("agent", d.AgentName),
				zap.String("goal", string(d.Goal)),
				zap.String("style", string(d.Style)),
				zap.Int("steps", len(d.Steps)),
				zap.Bool("acted", d.Acted()),
			)
		}
	}
	g.EndTurn()
	if !g.PlayLive {
		return c.endPlay(res)
	}
	return res
}

// turnOrder is the carrier, then the rest of its team in roster order, then
// the other team in roster order.
func (c *Controller) turnOrder() []*engine.Agent {
	g := c.game
	offense, defense := g.Offense(), g.Defense()
	order := make([]*engine.Agent, 0, len(offense.Agents)+len(defense.Agents))
	carrier, hasCarrier := g.Carrier()
	if hasCarrier {
		order = append(order, carrier)
	}
	for _, a := range offense.Agents {
		if !hasCarrier || a != carrier {
			order = append(order, a)
		}
	}
	return append(order, defense.Agents...)
}

func (c *Controller) endPlay(res StepResult) StepResult {
	g := c.game
	turns := g.TurnsPlayed()
	res.PlayEnded = true
	res.Outcome = g.Outcome
	c.stats.PlaysCompleted++
	c.stats.Outcomes[g.Outcome]++
	if turns > c.stats.LongestPlay {
		c.stats.LongestPlay = turns
		c.stats.LongestPlayNum = g.Play
	}
	c.bus.Emit(engine.EventPlayEnd, engine.Payload{
		"reason":     string(g.Outcome),
		"turns":      turns,
		"offense":    g.Offense().Name,
		"home_score": g.Home.Score,
		"away_score": g.Away.Score,
	})
	c.log.Info("play ended",
		zap.Int("play", g.Play),
		zap.String("outcome", string(g.Outcome)),
		zap.Int("turns", turns),
		zap.Int("home_score", g.Home.Score),
		zap.Int("away_score", g.Away.Score),
	)
	g.SwapRoles()
	if g.Play >= g.Rules.PlaysPerGame {
		return c.finishGame(res)
	}
	return res
}

func (c *Controller) finishGame(res StepResult) StepResult {
	result := c.game.FinishGame()
	c.result = &result
	c.over = true
	res.GameOver = true
	res.Result = &result
	winner := result.Winner
	if result.Tie {
		winner = "tie"
	}
	c.log.Info("game over",
		zap.Int("home_score", result.HomeScore),
		zap.Int("away_score", result.AwayScore),
		zap.String("winner", winner),
		zap.Int("longest_play", c.stats.LongestPlay),
	)
	return res
}

// RunPlay advances until the current or next play ends. It returns every
// step taken.
func (c *Controller) RunPlay(ctx context.Context) ([]StepResult, error) {
	var steps []StepResult
	for {
		if err := ctx.Err(); err != nil {
			return steps, err
		}
		res, err := c.Advance()
		if err != nil {
			return steps, err
		}
		steps = append(steps, res)
		if res.PlayEnded || res.GameOver {
			return steps, nil
		}
	}
}

// RunGame advances until the game is over.
func (c *Controller) RunGame(ctx context.Context) (engine.GameResult, error) {
	for !c.over {
		if err := ctx.Err(); err != nil {
			return engine.GameResult{}, err
		}
		if _, err := c.Advance(); err != nil {
			return engine.GameResult{}, err
		}
	}
	return *c.result, nil
}

// Rematch resets scores and clocks so the same rosters play another game.
// Injuries and career statistics carry over.
func (c *Controller) Rematch() {
	c.game.ResetForGame()
	c.over = false
	c.result = nil
	c.stats = Stats{Outcomes: make(map[engine.PlayOutcome]int)}
}
