package engine

import "fmt"

// BlockOutcome is the result band of a block, ordered by severity.
type BlockOutcome int

const (
	BlockNoEffect BlockOutcome = iota
	BlockPush
	BlockKnockdown
	BlockKnockdownInjury
)

func (o BlockOutcome) String() string {
	switch o {
	case BlockPush:
		return "push"
	case BlockKnockdown:
		return "knockdown"
	case BlockKnockdownInjury:
		return "knockdown_injury"
	default:
		return "no_effect"
	}
}

// MarshalText encodes the outcome by name.
func (o BlockOutcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText decodes an outcome name.
func (o *BlockOutcome) UnmarshalText(b []byte) error {
	switch string(b) {
	case "no_effect":
		*o = BlockNoEffect
	case "push":
		*o = BlockPush
	case "knockdown":
		*o = BlockKnockdown
	case "knockdown_injury":
		*o = BlockKnockdownInjury
	default:
		return fmt.Errorf("unknown block outcome %q", string(b))
	}
	return nil
}

// ClassifyMargin maps a block margin onto its band. It never returns
// BlockKnockdownInjury; that depends on the follow-up injury roll.
func ClassifyMargin(r *Rules, margin int) BlockOutcome {
	switch {
	case margin >= r.KnockdownThreshold:
		return BlockKnockdown
	case margin >= r.PushThreshold:
		return BlockPush
	default:
		return BlockNoEffect
	}
}

// Critical marks a block decided before the dice totals were compared.
type Critical string

const (
	CriticalNone    Critical = ""
	CriticalSuccess Critical = "success"
	CriticalFailure Critical = "failure"
)

// BlockResult reports a block attempt. Attempted is false when the block was
// refused before any cost was paid.
type BlockResult struct {
	Attempted     bool         `json:"attempted"`
	Reason        Reason       `json:"reason,omitempty"`
	AttackerRoll  int          `json:"attacker_roll"`
	DefenderRoll  int          `json:"defender_roll"`
	AttackerTotal int          `json:"attacker_total"`
	DefenderTotal int          `json:"defender_total"`
	Margin        int          `json:"margin"`
	Critical      Critical     `json:"critical,omitempty"`
	Outcome       BlockOutcome `json:"outcome"`
	Pushed        bool         `json:"pushed"`
	PushedTo      Position     `json:"pushed_to"`
	Injury        Injury       `json:"injury,omitempty"`
	InjuryScore   int          `json:"injury_score"`
	BallDropped   bool         `json:"ball_dropped"`
	BallTo        Position     `json:"ball_to"`
}

// CanBlock reports whether attacker could legally block defender now.
func (g *Game) CanBlock(attacker, defender *Agent) Reason {
	if reason := g.actionGate(attacker); reason != ReasonNone {
		return reason
	}
	switch {
	case defender == nil || !defender.onField:
		return ReasonNotAdjacent
	case !attacker.IsEnemy(defender):
		return ReasonFriendlyTarget
	case defender.KnockedDown:
		return ReasonTargetDown
	case !IsAdjacent(attacker.Position, defender.Position):
		return ReasonNotAdjacent
	case attacker.MovementRemaining < g.Rules.BlockingCost:
		return ReasonInsufficientMovement
	}
	return ReasonNone
}

// Block resolves attacker hitting an adjacent defender. The blocking cost is
// paid before the roll.
func (g *Game) Block(attacker, defender *Agent) BlockResult {
	if reason := g.CanBlock(attacker, defender); reason != ReasonNone {
		return BlockResult{Reason: reason}
	}
	r := g.Rules
	attacker.spend(r.BlockingCost)
	attacker.Stats.BlocksAttempted++
	g.Team(attacker.Side).Stats.Blocks++
	g.emit(EventBlockAttempt, Payload{
		"attacker_id":   attacker.ID,
		"attacker_name": attacker.Name,
		"defender_id":   defender.ID,
		"defender_name": defender.Name,
		"team":          attacker.Side.String(),
		"at":            defender.Position,
	})

	res := BlockResult{Attempted: true}
	res.AttackerRoll = RollDie(g.rng, r.BlockDieSides)
	res.DefenderRoll = RollDie(g.rng, r.BlockDieSides)
	res.AttackerTotal = res.AttackerRoll + attacker.Strength() + attacker.BlockSkill()
	res.DefenderTotal = res.DefenderRoll + defender.Toughness() + defender.Agility()
	if defender.HasBall {
		res.DefenderTotal -= r.CarrierPenalty
	}
	res.Margin = res.AttackerTotal - res.DefenderTotal
	res.Outcome = ClassifyMargin(r, res.Margin)

	switch crit := g.rng.Float64(); {
	case crit < r.CriticalSuccessChance:
		res.Critical = CriticalSuccess
		res.Outcome = BlockKnockdown
	case crit >= 1-r.CriticalFailureChance:
		res.Critical = CriticalFailure
		res.Outcome = BlockNoEffect
	}

	switch res.Outcome {
	case BlockPush:
		g.push(attacker, defender, &res)
	case BlockKnockdown:
		g.knockDown(defender, "block")
		attacker.Stats.KnockdownsCaused++
		g.Team(attacker.Side).Stats.Knockdowns++
		res.Injury, res.InjuryScore = g.rollInjury(defender)
		if res.Injury != InjuryNone {
			res.Outcome = BlockKnockdownInjury
			g.applyInjury(defender, res.Injury, res.InjuryScore)
		}
		if defender.HasBall {
			res.BallDropped = true
			res.BallTo = g.dropBall("block")
			g.endPlay(OutcomeCarrierDown)
		}
	}
	if res.Outcome != BlockNoEffect {
		attacker.Stats.BlocksWon++
	}

	g.emit(EventBlock, Payload{
		"attacker_id":    attacker.ID,
		"attacker_name":  attacker.Name,
		"defender_id":    defender.ID,
		"defender_name":  defender.Name,
		"team":           attacker.Side.String(),
		"attacker_roll":  res.AttackerRoll,
		"defender_roll":  res.DefenderRoll,
		"attacker_total": res.AttackerTotal,
		"defender_total": res.DefenderTotal,
		"margin":         res.Margin,
		"critical":       string(res.Critical),
		"result":         res.Outcome.String(),
		"pushed":         res.Pushed,
	})
	return res
}

// push displaces defender one cell directly away from attacker. A blocked or
// out-of-bounds destination leaves the defender where it is.
func (g *Game) push(attacker, defender *Agent, res *BlockResult) {
	from := defender.Position
	dest := from.Offset(sign(from.X-attacker.Position.X), sign(from.Y-attacker.Position.Y))
	if !g.Grid.Move(defender, dest) {
		return
	}
	res.Pushed = true
	res.PushedTo = dest
	g.recordTrail(defender, from, dest)
	g.emit(EventPush, Payload{
		"agent_id":   defender.ID,
		"agent_name": defender.Name,
		"team":       defender.Side.String(),
		"by_id":      attacker.ID,
		"from":       from,
		"to":         dest,
	})
	if defender.HasBall {
		g.checkTouchdown(defender)
	}
}
