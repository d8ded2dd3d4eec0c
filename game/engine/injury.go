package engine

// Injury is the lasting result of a knockdown.
type Injury string

const (
	InjuryNone         Injury = ""
	InjuryDazed        Injury = "dazed"
	InjuryMinor        Injury = "minor"
	InjuryMajor        Injury = "major"
	InjuryCareerEnding Injury = "career_ending"
)

// ClassifyInjury maps an injury score onto its band.
func ClassifyInjury(r *Rules, score int) Injury {
	switch {
	case score >= r.CareerEndingThreshold:
		return InjuryCareerEnding
	case score >= r.MajorThreshold:
		return InjuryMajor
	case score >= r.MinorThreshold:
		return InjuryMinor
	case score >= r.DazedThreshold:
		return InjuryDazed
	}
	return InjuryNone
}

// rollInjury rolls the injury die against a's toughness and resistance.
func (g *Game) rollInjury(a *Agent) (Injury, int) {
	score := RollDie(g.rng, g.Rules.InjuryDieSides) - a.Toughness() - a.Base.InjuryResistance
	return ClassifyInjury(g.Rules, score), score
}

// applyInjury sidelines a. The agent stays on the grid, knocked down, until
// the play ends; Unavailable keeps it out of every later action.
func (g *Game) applyInjury(a *Agent, inj Injury, score int) {
	r := g.Rules
	missed := 0
	switch inj {
	case InjuryDazed:
		missed = r.DazedPlaysMissed
	case InjuryMinor:
		missed = r.MinorPlaysMissed
		a.GamePenalty = r.MinorGamePenalty
	case InjuryMajor:
		missed = RollBetween(g.rng, r.MajorPlaysMissedMin, r.MajorPlaysMissedMax)
		a.PermanentPenalty += r.MajorPermanentPenalty
	case InjuryCareerEnding:
		a.OutOfGame = true
	default:
		return
	}
	a.Injury = inj
	a.Unavailable = true
	if missed > a.MissesPlays {
		a.MissesPlays = missed
	}
	a.Stats.InjuriesSuffered++
	g.Team(a.Side).Stats.InjuriesSuffered++
	g.Team(a.Side.Opponent()).Stats.InjuriesCaused++
	g.emit(EventInjury, Payload{
		"agent_id":     a.ID,
		"agent_name":   a.Name,
		"team":         a.Side.String(),
		"injury":       string(inj),
		"score":        score,
		"plays_missed": missed,
		"permanent":    inj == InjuryCareerEnding || inj == InjuryMajor,
	})
}
