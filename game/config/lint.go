package config

import (
	"fmt"
	"math"

	"github.com/Anzelak/goblin-ball/game/service"
)

// LintResult holds the findings for one ruleset. Errors make a ruleset
// unusable; warnings flag rules that load but play badly.
type LintResult struct {
	Errors   []string
	Warnings []string
	Info     []string
}

// Valid reports whether the ruleset can be played.
func (r LintResult) Valid() bool { return len(r.Errors) == 0 }

// Lint checks a decoded ruleset for playability problems the schema and
// Validate cannot see, and summarizes it.
func Lint(rs *service.Ruleset) LintResult {
	var res LintResult
	if rs == nil || rs.Rules == nil {
		res.Errors = append(res.Errors, "ruleset has no rules")
		return res
	}
	r := rs.Rules
	if err := r.Validate(); err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}
	warn := func(format string, args ...any) {
		res.Warnings = append(res.Warnings, fmt.Sprintf(format, args...))
	}

	// Both teams start StartRowOffset rows from their own end, so a carrier
	// needs to cover HomeStartRow rows to score.
	distance := r.HomeStartRow()
	reach := r.Movement.Max * r.MaxTurnsPerPlay
	if reach < distance {
		warn("touchdowns are impossible: %d turns of at most %d movement cover %d rows, the end zone is %d away",
			r.MaxTurnsPerPlay, r.Movement.Max, reach, distance)
	}
	if r.FieldGoalLongRange >= distance {
		warn("field goals can be attempted from the starting formation (long range %d, distance %d)",
			r.FieldGoalLongRange, distance)
	}

	// Formation columns are clamped to the grid, so an overlong line stacks
	// its last agents on the edge column.
	columns := make(map[int]int, r.RosterSize)
	for i := 0; i < r.RosterSize; i++ {
		x := min(max(r.FormationStartX+r.FormationSpacing*i, 0), r.GridWidth-1)
		columns[x]++
	}
	for x := 0; x < r.GridWidth; x++ {
		if n := columns[x]; n > 1 {
			warn("formation puts %d agents in column %d", n, x)
		}
	}
	if r.StandUpCost > r.Movement.Max {
		warn("stand_up_cost %d exceeds the best movement %d, knocked-down agents never stand",
			r.StandUpCost, r.Movement.Max)
	}
	if r.FieldGoalPoints >= r.TouchdownPoints && r.TouchdownPoints > 0 {
		warn("field goals (%d) are worth at least as much as touchdowns (%d)", r.FieldGoalPoints, r.TouchdownPoints)
	}
	if r.CriticalSuccessChance+r.CriticalFailureChance > 0.5 {
		warn("critical results decide %.0f%% of blocks", 100*(r.CriticalSuccessChance+r.CriticalFailureChance))
	}
	total := 0.0
	for _, w := range r.StyleWeights {
		total += w
	}
	if len(r.StyleWeights) > 0 && math.Abs(total-1) > 1e-9 {
		warn("style weights sum to %.2f and are normalized", total)
	}

	res.Info = append(res.Info,
		fmt.Sprintf("name: %s", rs.Name),
		fmt.Sprintf("grid: %dx%d", r.GridWidth, r.GridHeight),
		fmt.Sprintf("roster: %d a side", r.RosterSize),
		fmt.Sprintf("plays: %d, up to %d turns each", r.PlaysPerGame, r.MaxTurnsPerPlay),
		fmt.Sprintf("points: touchdown %d, field goal %d", r.TouchdownPoints, r.FieldGoalPoints),
	)
	return res
}
