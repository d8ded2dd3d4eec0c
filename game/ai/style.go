package ai

import "github.com/Anzelak/goblin-ball/game/engine"

// Style flavors move scoring. It never changes which moves are legal.
type Style string

const (
	StyleDirect     Style = "direct"
	StyleFlanking   Style = "flanking"
	StyleCautious   Style = "cautious"
	StyleAggressive Style = "aggressive"
	StyleDeceptive  Style = "deceptive"
)

// Styles lists every style in draw order.
var Styles = []Style{StyleDirect, StyleFlanking, StyleCautious, StyleAggressive, StyleDeceptive}

const (
	minStyleWeight = 0.05
	maxStyleWeight = 0.9
)

// StyleWeights returns the unjittered weights for a pursuing goal: the rules'
// base weights, the per-goal bias, and for a carrier advancing downfield a
// push toward direct play when few defenders are close.
func StyleWeights(g *engine.Game, a *engine.Agent, goal Goal) map[Style]float64 {
	w := make(map[Style]float64, len(Styles))
	for _, s := range Styles {
		w[s] = g.Rules.StyleWeights[string(s)]
	}
	for s, delta := range g.Rules.GoalStyleBias[string(goal)] {
		w[Style(s)] += delta
	}
	if goal == GoalAdvanceDownfield && a.HasBall {
		active := len(nearbyStanding(g.Enemies(a.Side), a.Position, 4))
		switch {
		case active == 0:
			w[StyleDirect] += 0.4
			w[StyleAggressive] += 0.4
			w[StyleCautious] -= 0.3
			w[StyleDeceptive] -= 0.1
		case active <= 1:
			w[StyleDirect] += 0.3
			w[StyleAggressive] += 0.3
			w[StyleCautious] -= 0.2
		case active <= 3:
			w[StyleDirect] += 0.1
			w[StyleAggressive] += 0.1
			w[StyleCautious] -= 0.1
		}
	}
	return w
}

// SelectStyle jitters the weights, clamps each into [0.05, 0.9] and draws one
// style.
func SelectStyle(g *engine.Game, a *engine.Agent, goal Goal) Style {
	rng := g.RNG()
	w := StyleWeights(g, a, goal)
	total := 0.0
	jittered := make([]float64, len(Styles))
	for i, s := range Styles {
		v := w[s] + engine.Uniform(rng, g.Rules.StyleJitter)
		if v < minStyleWeight {
			v = minStyleWeight
		}
		if v > maxStyleWeight {
			v = maxStyleWeight
		}
		jittered[i] = v
		total += v
	}
	pick := rng.Float64() * total
	for i, v := range jittered {
		if pick < v {
			return Styles[i]
		}
		pick -= v
	}
	return Styles[len(Styles)-1]
}
