package engine

import "github.com/google/uuid"

// TeamStats are cumulative team counters.
type TeamStats struct {
	Touchdowns       int `json:"touchdowns"`
	FieldGoals       int `json:"field_goals"`
	FieldGoalsMissed int `json:"field_goals_missed"`
	Blocks           int `json:"blocks"`
	Knockdowns       int `json:"knockdowns"`
	InjuriesCaused   int `json:"injuries_caused"`
	InjuriesSuffered int `json:"injuries_suffered"`
	Wins             int `json:"wins"`
	Losses           int `json:"losses"`
	Ties             int `json:"ties"`
	SeasonPoints     int `json:"season_points"`
	PointsFor        int `json:"points_for"`
	PointsAgainst    int `json:"points_against"`
}

// Team owns a roster of agents.
type Team struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Side    Side      `json:"side"`
	Agents  []*Agent  `json:"agents"`
	Score   int       `json:"score"`
	Offense bool      `json:"offense"`
	Stats   TeamStats `json:"stats"`

	// lastCarried maps agent IDs to the carry sequence number of their last
	// carry. Agents that never carried are absent.
	lastCarried map[string]int
	carries     int
}

// NewTeam returns an empty team on side.
func NewTeam(name string, side Side) *Team {
	return &Team{
		ID:          uuid.NewString(),
		Name:        name,
		Side:        side,
		lastCarried: make(map[string]int),
	}
}

// Add appends agent to the roster and aligns its side.
func (t *Team) Add(a *Agent) {
	a.Side = t.Side
	t.Agents = append(t.Agents, a)
}

// Agent looks up a roster member by ID.
func (t *Team) Agent(id string) (*Agent, bool) {
	for _, a := range t.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// Carrier returns the team member holding the ball.
func (t *Team) Carrier() (*Agent, bool) {
	for _, a := range t.Agents {
		if a.HasBall {
			return a, true
		}
	}
	return nil, false
}

// Available returns the members that can take part in the current play.
func (t *Team) Available() []*Agent {
	var out []*Agent
	for _, a := range t.Agents {
		if !a.Unavailable && !a.OutOfGame {
			out = append(out, a)
		}
	}
	return out
}

// NextCarrier picks the eligible member that carried least recently, with
// members who never carried first, in roster order. It records the carry.
func (t *Team) NextCarrier() (*Agent, bool) {
	var best *Agent
	bestSeq := 0
	for _, a := range t.Agents {
		if !a.onField || a.Unavailable || a.OutOfGame || a.KnockedDown {
			continue
		}
		seq, carried := t.lastCarried[a.ID]
		if !carried {
			seq = -1
		}
		if best == nil || seq < bestSeq {
			best, bestSeq = a, seq
		}
	}
	if best == nil {
		return nil, false
	}
	t.carries++
	if t.lastCarried == nil {
		t.lastCarried = make(map[string]int)
	}
	t.lastCarried[best.ID] = t.carries
	best.Stats.Carries++
	return best, true
}

// resetForGame clears scores and game-long penalties.
func (t *Team) resetForGame() {
	t.Score = 0
	for _, a := range t.Agents {
		a.GamePenalty = 0
	}
}

// recordResult books the final score against opponent.
func (t *Team) recordResult(opponent int) {
	t.Stats.PointsFor += t.Score
	t.Stats.PointsAgainst += opponent
	switch {
	case t.Score > opponent:
		t.Stats.Wins++
		t.Stats.SeasonPoints += 3
	case t.Score < opponent:
		t.Stats.Losses++
	default:
		t.Stats.Ties++
		t.Stats.SeasonPoints++
	}
	for _, a := range t.Agents {
		if !a.OutOfGame {
			a.Stats.GamesPlayed++
		}
	}
}
