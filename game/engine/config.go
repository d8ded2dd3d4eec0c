package engine

import (
	"errors"
	"fmt"
)

// StatRange is an inclusive range used when rolling new agents.
type StatRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (r StatRange) valid() bool { return r.Min <= r.Max }

// Rules is the full configuration surface of a match. All probability knobs
// are in [0, 1]. Every component receives the same *Rules value; nothing reads
// configuration from package state.
type Rules struct {
	GridWidth       int `json:"grid_width" env:"GRID_WIDTH"`
	GridHeight      int `json:"grid_height" env:"GRID_HEIGHT"`
	RosterSize      int `json:"roster_size" env:"ROSTER_SIZE"`
	PlaysPerGame    int `json:"plays_per_game" env:"PLAYS_PER_GAME"`
	MaxTurnsPerPlay int `json:"max_turns_per_play" env:"MAX_TURNS_PER_PLAY"`
	TouchdownPoints int `json:"touchdown_points" env:"TOUCHDOWN_POINTS"`
	FieldGoalPoints int `json:"field_goal_points" env:"FIELD_GOAL_POINTS"`

	Strength         StatRange `json:"strength"`
	Toughness        StatRange `json:"toughness"`
	Movement         StatRange `json:"movement"`
	Agility          StatRange `json:"agility"`
	BlockSkill       StatRange `json:"block_skill"`
	InjuryResistance StatRange `json:"injury_resistance"`

	// Formation. Home lines up StartRowOffset rows in front of the last row,
	// away StartRowOffset rows in front of row 0.
	StartRowOffset   int `json:"start_row_offset"`
	FormationStartX  int `json:"formation_start_x"`
	FormationSpacing int `json:"formation_spacing"`
	TrailLength      int `json:"trail_length"`

	// Dodge (DUKE) model
	DodgeBase         float64 `json:"dodge_base" env:"DODGE_BASE"`
	DodgePerBlocker   float64 `json:"dodge_per_blocker"`
	DodgePerSkill     float64 `json:"dodge_per_skill"`
	DodgeCarryPenalty float64 `json:"dodge_carry_penalty"`
	DodgeMin          float64 `json:"dodge_min"`
	DodgeMax          float64 `json:"dodge_max"`
	RiskThreshold     float64 `json:"risk_threshold" env:"RISK_THRESHOLD"`

	// DefensiveRiskThreshold applies to defenders heading next to the carrier.
	DefensiveRiskThreshold float64 `json:"defensive_risk_threshold"`
	StandUpCost            int     `json:"stand_up_cost" env:"STAND_UP_COST"`

	// Blocking
	BlockDieSides         int     `json:"block_die_sides"`
	BlockingCost          int     `json:"blocking_cost" env:"BLOCKING_COST"`
	PushThreshold         int     `json:"push_threshold" env:"PUSH_THRESHOLD"`
	KnockdownThreshold    int     `json:"knockdown_threshold" env:"KNOCKDOWN_THRESHOLD"`
	CarrierPenalty        int     `json:"carrier_penalty"`
	CriticalSuccessChance float64 `json:"critical_success_chance"`
	CriticalFailureChance float64 `json:"critical_failure_chance"`

	// Injuries. The injury score is die - toughness - injury resistance.
	InjuryDieSides        int `json:"injury_die_sides"`
	DazedThreshold        int `json:"dazed_threshold"`
	MinorThreshold        int `json:"minor_threshold"`
	MajorThreshold        int `json:"major_threshold"`
	CareerEndingThreshold int `json:"career_ending_threshold"`
	DazedPlaysMissed      int `json:"dazed_plays_missed"`
	MinorPlaysMissed      int `json:"minor_plays_missed"`
	MajorPlaysMissedMin   int `json:"major_plays_missed_min"`
	MajorPlaysMissedMax   int `json:"major_plays_missed_max"`
	MinorGamePenalty      int `json:"minor_injury_game_penalty"`
	MajorPermanentPenalty int `json:"serious_injury_permanent_penalty"`

	// Ball handling
	PickupBase     float64 `json:"pickup_base"`
	PickupPerEnemy float64 `json:"pickup_per_enemy"`
	PickupMin      float64 `json:"pickup_min"`
	PickupMax      float64 `json:"pickup_max"`
	PickupCost     int     `json:"pickup_cost"`
	DropScatterMin int     `json:"drop_scatter_min"`
	DropScatterMax int     `json:"drop_scatter_max"`
	FumbleScatter  int     `json:"fumble_scatter"`

	// Field goals
	FieldGoalRange       int     `json:"field_goal_range" env:"FIELD_GOAL_RANGE"`
	FieldGoalLongRange   int     `json:"field_goal_long_range"`
	FieldGoalBase        float64 `json:"field_goal_base"`
	FieldGoalPerDistance float64 `json:"field_goal_per_distance"`
	FieldGoalPerAgility  float64 `json:"field_goal_per_agility"`
	FieldGoalPerDefender float64 `json:"field_goal_per_defender"`
	FieldGoalFloor       float64 `json:"field_goal_floor"`
	FieldGoalCeiling     float64 `json:"field_goal_ceiling"`
	FieldGoalLongCap     float64 `json:"field_goal_long_cap"`

	// Decision layer
	FieldGoalMinChance float64                       `json:"field_goal_min_chance"`
	CorridorHalfWidth  int                           `json:"corridor_half_width"`
	StyleWeights       map[string]float64            `json:"style_weights"`
	GoalStyleBias      map[string]map[string]float64 `json:"goal_style_bias"`
	StyleJitter        float64                       `json:"style_jitter"`
	ScoreJitter        float64                       `json:"score_jitter"`
}

// DefaultRules returns the stock ruleset.
func DefaultRules() *Rules {
	return &Rules{
		GridWidth:       10,
		GridHeight:      10,
		RosterSize:      5,
		PlaysPerGame:    20,
		MaxTurnsPerPlay: 30,
		TouchdownPoints: 3,
		FieldGoalPoints: 1,

		Strength:         StatRange{Min: 1, Max: 10},
		Toughness:        StatRange{Min: 1, Max: 10},
		Movement:         StatRange{Min: 1, Max: 4},
		Agility:          StatRange{Min: 0, Max: 2},
		BlockSkill:       StatRange{Min: 0, Max: 2},
		InjuryResistance: StatRange{Min: 0, Max: 1},

		StartRowOffset:   1,
		FormationStartX:  2,
		FormationSpacing: 2,
		TrailLength:      10,

		DodgeBase:              0.5,
		DodgePerBlocker:        0.1,
		DodgePerSkill:          0.1,
		DodgeCarryPenalty:      0.2,
		DodgeMin:               0.1,
		DodgeMax:               0.9,
		RiskThreshold:          0.3,
		DefensiveRiskThreshold: 0.2,

		BlockDieSides:         10,
		BlockingCost:          2,
		PushThreshold:         3,
		KnockdownThreshold:    6,
		CarrierPenalty:        3,
		CriticalSuccessChance: 0.05,
		CriticalFailureChance: 0.05,

		InjuryDieSides:        10,
		DazedThreshold:        4,
		MinorThreshold:        6,
		MajorThreshold:        8,
		CareerEndingThreshold: 9,
		DazedPlaysMissed:      1,
		MinorPlaysMissed:      1,
		MajorPlaysMissedMin:   2,
		MajorPlaysMissedMax:   3,
		MinorGamePenalty:      1,
		MajorPermanentPenalty: 1,

		PickupBase:     0.7,
		PickupPerEnemy: 0.1,
		PickupMin:      0.2,
		PickupMax:      0.9,
		PickupCost:     1,
		DropScatterMin: 1,
		DropScatterMax: 3,
		FumbleScatter:  1,

		FieldGoalRange:       3,
		FieldGoalLongRange:   6,
		FieldGoalBase:        0.8,
		FieldGoalPerDistance: 0.1,
		FieldGoalPerAgility:  0.02,
		FieldGoalPerDefender: 0.1,
		FieldGoalFloor:       0.05,
		FieldGoalCeiling:     0.9,
		FieldGoalLongCap:     0.1,

		FieldGoalMinChance: 0.25,
		CorridorHalfWidth:  2,
		StyleWeights: map[string]float64{
			"direct":     0.3,
			"flanking":   0.2,
			"cautious":   0.2,
			"aggressive": 0.2,
			"deceptive":  0.1,
		},
		GoalStyleBias: map[string]map[string]float64{
			"score_touchdown":   {"direct": 0.3, "aggressive": 0.2, "cautious": -0.2},
			"evade_defenders":   {"cautious": 0.3, "deceptive": 0.2, "direct": -0.2},
			"block_defender":    {"aggressive": 0.3, "direct": 0.2, "cautious": -0.2},
			"tackle_carrier":    {"aggressive": 0.3, "direct": 0.2, "cautious": -0.2},
			"protect_carrier":   {"cautious": 0.2, "flanking": 0.1},
			"pursue_carrier":    {"direct": 0.2, "aggressive": 0.1},
			"intercept_carrier": {"flanking": 0.3, "deceptive": 0.1},
		},
		StyleJitter: 0.05,
		ScoreJitter: 25,
	}
}

// HomeStartRow is the row the home team lines up on.
func (r *Rules) HomeStartRow() int { return r.GridHeight - 1 - r.StartRowOffset }

// AwayStartRow is the row the away team lines up on.
func (r *Rules) AwayStartRow() int { return r.StartRowOffset }

// Clone returns a deep copy of r.
func (r *Rules) Clone() *Rules {
	c := *r
	c.StyleWeights = make(map[string]float64, len(r.StyleWeights))
	for k, v := range r.StyleWeights {
		c.StyleWeights[k] = v
	}
	c.GoalStyleBias = make(map[string]map[string]float64, len(r.GoalStyleBias))
	for goal, bias := range r.GoalStyleBias {
		m := make(map[string]float64, len(bias))
		for k, v := range bias {
			m[k] = v
		}
		c.GoalStyleBias[goal] = m
	}
	return &c
}

// ErrInvalidRules is wrapped by every Validate failure.
var ErrInvalidRules = errors.New("invalid rules")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRules, fmt.Sprintf(format, args...))
}

// Validate checks sizes, orderings and probability ranges.
func (r *Rules) Validate() error {
	if r == nil {
		return invalid("rules cannot be nil")
	}
	if r.GridWidth < 3 || r.GridHeight < 4 {
		return invalid("grid must be at least 3x4, got %dx%d", r.GridWidth, r.GridHeight)
	}
	if r.RosterSize < 1 {
		return invalid("roster_size must be positive")
	}
	if r.RosterSize > r.GridWidth {
		return invalid("roster_size %d does not fit a row of width %d", r.RosterSize, r.GridWidth)
	}
	if r.PlaysPerGame < 1 || r.MaxTurnsPerPlay < 1 {
		return invalid("plays_per_game and max_turns_per_play must be positive")
	}
	if r.TouchdownPoints < 0 || r.FieldGoalPoints < 0 {
		return invalid("point values cannot be negative")
	}
	ranges := map[string]StatRange{
		"strength":          r.Strength,
		"toughness":         r.Toughness,
		"movement":          r.Movement,
		"agility":           r.Agility,
		"block_skill":       r.BlockSkill,
		"injury_resistance": r.InjuryResistance,
	}
	for name, sr := range ranges {
		if !sr.valid() || sr.Min < 0 {
			return invalid("%s range [%d, %d] is invalid", name, sr.Min, sr.Max)
		}
	}
	if r.Movement.Min < 1 {
		return invalid("movement minimum must be at least 1")
	}
	if r.StartRowOffset < 1 || 2*r.StartRowOffset >= r.GridHeight-1 {
		return invalid("start_row_offset %d does not fit a grid of height %d", r.StartRowOffset, r.GridHeight)
	}
	if r.FormationSpacing < 1 || r.TrailLength < 1 {
		return invalid("formation_spacing and trail_length must be positive")
	}
	if r.DodgeMin > r.DodgeMax {
		return invalid("dodge_min %.2f above dodge_max %.2f", r.DodgeMin, r.DodgeMax)
	}
	if r.PickupMin > r.PickupMax {
		return invalid("pickup_min %.2f above pickup_max %.2f", r.PickupMin, r.PickupMax)
	}
	if r.FieldGoalFloor > r.FieldGoalCeiling {
		return invalid("field_goal_floor %.2f above field_goal_ceiling %.2f", r.FieldGoalFloor, r.FieldGoalCeiling)
	}
	probs := map[string]float64{
		"dodge_min":                r.DodgeMin,
		"dodge_max":                r.DodgeMax,
		"risk_threshold":           r.RiskThreshold,
		"defensive_risk_threshold": r.DefensiveRiskThreshold,
		"critical_success_chance":  r.CriticalSuccessChance,
		"critical_failure_chance":  r.CriticalFailureChance,
		"pickup_min":               r.PickupMin,
		"pickup_max":               r.PickupMax,
		"field_goal_floor":         r.FieldGoalFloor,
		"field_goal_ceiling":       r.FieldGoalCeiling,
		"field_goal_long_cap":      r.FieldGoalLongCap,
		"field_goal_min_chance":    r.FieldGoalMinChance,
	}
	for name, p := range probs {
		if p < 0 || p > 1 {
			return invalid("%s %.2f outside [0, 1]", name, p)
		}
	}
	if r.CriticalSuccessChance+r.CriticalFailureChance > 1 {
		return invalid("critical chances sum above 1")
	}
	if r.BlockDieSides < 1 || r.InjuryDieSides < 1 {
		return invalid("die sides must be positive")
	}
	if r.BlockingCost < 0 || r.PickupCost < 0 || r.StandUpCost < 0 {
		return invalid("action costs cannot be negative")
	}
	if r.PushThreshold > r.KnockdownThreshold {
		return invalid("push_threshold %d above knockdown_threshold %d", r.PushThreshold, r.KnockdownThreshold)
	}
	if !(r.DazedThreshold <= r.MinorThreshold && r.MinorThreshold <= r.MajorThreshold && r.MajorThreshold <= r.CareerEndingThreshold) {
		return invalid("injury thresholds must be ordered dazed <= minor <= major <= career_ending")
	}
	if r.MajorPlaysMissedMin > r.MajorPlaysMissedMax || r.MajorPlaysMissedMin < 0 {
		return invalid("major plays missed range [%d, %d] is invalid", r.MajorPlaysMissedMin, r.MajorPlaysMissedMax)
	}
	if r.DropScatterMin < 0 || r.DropScatterMin > r.DropScatterMax {
		return invalid("drop scatter range [%d, %d] is invalid", r.DropScatterMin, r.DropScatterMax)
	}
	if r.FieldGoalRange < 0 || r.FieldGoalLongRange < r.FieldGoalRange {
		return invalid("field_goal_long_range must be at least field_goal_range")
	}
	if r.CorridorHalfWidth < 0 {
		return invalid("corridor_half_width cannot be negative")
	}
	total := 0.0
	for style, w := range r.StyleWeights {
		if w < 0 {
			return invalid("style weight %s is negative", style)
		}
		total += w
	}
	if len(r.StyleWeights) > 0 && total <= 0 {
		return invalid("style weights sum to zero")
	}
	return nil
}
