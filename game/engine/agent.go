package engine

import "github.com/google/uuid"

// Attributes are the base ratings of an agent. They only change between
// plays, through injuries.
type Attributes struct {
	Strength         int `json:"strength"`
	Toughness        int `json:"toughness"`
	Agility          int `json:"agility"`
	BlockSkill       int `json:"block_skill"`
	InjuryResistance int `json:"injury_resistance"`
	Movement         int `json:"movement"`
}

// AgentStats are cumulative counters kept across plays and games.
type AgentStats struct {
	Moves               int `json:"moves"`
	CellsMoved          int `json:"cells_moved"`
	BlocksAttempted     int `json:"blocks_attempted"`
	BlocksWon           int `json:"blocks_won"`
	KnockdownsCaused    int `json:"knockdowns_caused"`
	TimesKnockedDown    int `json:"times_knocked_down"`
	InjuriesSuffered    int `json:"injuries_suffered"`
	DodgesAttempted     int `json:"dodges_attempted"`
	DodgesPassed        int `json:"dodges_passed"`
	Carries             int `json:"carries"`
	Touchdowns          int `json:"touchdowns"`
	FieldGoalsAttempted int `json:"field_goals_attempted"`
	FieldGoalsMade      int `json:"field_goals_made"`
	Pickups             int `json:"pickups"`
	GamesPlayed         int `json:"games_played"`
}

// Agent is a roster member. Position and the per-play flags are owned by the
// engine; HasBall in particular is only written by the ball transitions.
type Agent struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Side  Side       `json:"side"`
	Base  Attributes `json:"base"`
	Stats AgentStats `json:"stats"`

	Position          Position `json:"position"`
	MovementRemaining int      `json:"movement_remaining"`
	KnockedDown       bool     `json:"knocked_down"`
	HasBall           bool     `json:"has_ball"`
	Unavailable       bool     `json:"unavailable"`
	MissesPlays       int      `json:"misses_plays"`
	OutOfGame         bool     `json:"out_of_game"`
	Injury            Injury   `json:"injury"`

	// PermanentPenalty is subtracted from strength and toughness.
	PermanentPenalty int `json:"permanent_penalty"`
	// GamePenalty is subtracted from movement until the next game starts.
	GamePenalty int `json:"game_penalty"`

	onField bool
}

// NewAgent returns a standing agent with a fresh ID.
func NewAgent(name string, side Side, attrs Attributes) *Agent {
	return &Agent{
		ID:                uuid.NewString(),
		Name:              name,
		Side:              side,
		Base:              attrs,
		MovementRemaining: attrs.Movement,
	}
}

func (*Agent) occupant() {}

// Strength is the effective strength after permanent injuries.
func (a *Agent) Strength() int { return max(1, a.Base.Strength-a.PermanentPenalty) }

// Toughness is the effective toughness after permanent injuries.
func (a *Agent) Toughness() int { return max(1, a.Base.Toughness-a.PermanentPenalty) }

// Agility is the dodge skill.
func (a *Agent) Agility() int { return a.Base.Agility }

// BlockSkill is the block bonus.
func (a *Agent) BlockSkill() int { return a.Base.BlockSkill }

// MaxMovement is the per-turn movement budget.
func (a *Agent) MaxMovement() int { return max(1, a.Base.Movement-a.GamePenalty) }

// OnField reports whether the agent currently stands on the grid.
func (a *Agent) OnField() bool { return a.onField }

// CanAct reports whether the agent may take any action this turn.
func (a *Agent) CanAct() bool {
	return a.onField && !a.Unavailable && !a.OutOfGame && !a.KnockedDown
}

// IsStanding reports whether the agent projects a zone of control.
func (a *Agent) IsStanding() bool {
	return a.onField && !a.KnockedDown && !a.OutOfGame
}

// ResetMovement refills the movement budget.
func (a *Agent) ResetMovement() {
	a.MovementRemaining = a.MaxMovement()
}

func (a *Agent) spend(cost int) {
	if cost > a.MovementRemaining {
		panic("agent: spending more movement than remaining")
	}
	a.MovementRemaining -= cost
}

// IsEnemy reports whether b plays for the other side.
func (a *Agent) IsEnemy(b *Agent) bool {
	return b != nil && a.Side != b.Side
}
