package engine

// AgentView is a read-only picture of an agent.
type AgentView struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Side              Side       `json:"side"`
	Position          Position   `json:"position"`
	OnField           bool       `json:"on_field"`
	MovementRemaining int        `json:"movement_remaining"`
	MaxMovement       int        `json:"max_movement"`
	KnockedDown       bool       `json:"knocked_down"`
	HasBall           bool       `json:"has_ball"`
	Unavailable       bool       `json:"unavailable"`
	OutOfGame         bool       `json:"out_of_game"`
	MissesPlays       int        `json:"misses_plays"`
	Injury            Injury     `json:"injury,omitempty"`
	Attributes        Attributes `json:"attributes"`
	Trail             []Position `json:"trail,omitempty"`
	Stats             AgentStats `json:"stats"`
}

// TeamView is a read-only picture of a team.
type TeamView struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Side    Side        `json:"side"`
	Score   int         `json:"score"`
	Offense bool        `json:"offense"`
	Agents  []AgentView `json:"agents"`
	Stats   TeamStats   `json:"stats"`
}

// BallView describes the ball.
type BallView struct {
	State    BallState `json:"state"`
	HolderID string    `json:"holder_id,omitempty"`
	Position Position  `json:"position"`
}

// Snapshot is everything a renderer or API client needs about the match.
type Snapshot struct {
	Width    int         `json:"width"`
	Height   int         `json:"height"`
	Play     int         `json:"play"`
	Turn     int         `json:"turn"`
	PlayLive bool        `json:"play_live"`
	Outcome  PlayOutcome `json:"outcome,omitempty"`
	Ball     BallView    `json:"ball"`
	Home     TeamView    `json:"home"`
	Away     TeamView    `json:"away"`
	Board    []string    `json:"board"`
}

// Snapshot captures the current state.
func (g *Game) Snapshot() Snapshot {
	s := Snapshot{
		Width:    g.Grid.Width(),
		Height:   g.Grid.Height(),
		Play:     g.Play,
		Turn:     g.TurnsPlayed(),
		PlayLive: g.PlayLive,
		Outcome:  g.Outcome,
		Ball:     BallView{State: g.Ball.State, Position: g.Ball.Location()},
		Home:     g.teamView(g.Home),
		Away:     g.teamView(g.Away),
		Board:    g.Board(),
	}
	if g.Ball.Holder != nil && g.Ball.State == BallHeld {
		s.Ball.HolderID = g.Ball.Holder.ID
	}
	return s
}

func (g *Game) teamView(t *Team) TeamView {
	v := TeamView{ID: t.ID, Name: t.Name, Side: t.Side, Score: t.Score, Offense: t.Offense, Stats: t.Stats}
	for _, a := range t.Agents {
		v.Agents = append(v.Agents, AgentView{
			ID:                a.ID,
			Name:              a.Name,
			Side:              a.Side,
			Position:          a.Position,
			OnField:           a.onField,
			MovementRemaining: a.MovementRemaining,
			MaxMovement:       a.MaxMovement(),
			KnockedDown:       a.KnockedDown,
			HasBall:           a.HasBall,
			Unavailable:       a.Unavailable,
			OutOfGame:         a.OutOfGame,
			MissesPlays:       a.MissesPlays,
			Injury:            a.Injury,
			Attributes:        a.Base,
			Trail:             g.Trail(a),
			Stats:             a.Stats,
		})
	}
	return v
}

// Board renders the grid one row per string, marking a free ball with 'o'.
func (g *Game) Board() []string {
	rows := make([]string, g.Grid.Height())
	for y := range rows {
		row := make([]byte, g.Grid.Width())
		for x := range row {
			p := Position{X: x, Y: y}
			o, _ := g.Grid.OccupantAt(p)
			row[x] = g.Grid.glyph(o)
			if o == nil && g.Ball.State == BallFree && g.Ball.Position == p {
				row[x] = 'o'
			}
		}
		rows[y] = string(row)
	}
	return rows
}
