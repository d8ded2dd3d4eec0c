package service

import (
	"time"

	"github.com/Anzelak/goblin-ball/game/engine"
	"github.com/Anzelak/goblin-ball/game/match"
)

// Ruleset is a named rules document.
type Ruleset struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Rules       *engine.Rules `json:"rules"`
}

// ConfigInfo provides information about a ruleset file.
type ConfigInfo struct {
	Filename     string `json:"filename"`
	ConfigID     string `json:"config_id"` // The identifier to use for match creation
	Name         string `json:"name"`
	Description  string `json:"description"`
	GridWidth    int    `json:"grid_width"`
	GridHeight   int    `json:"grid_height"`
	RosterSize   int    `json:"roster_size"`
	PlaysPerGame int    `json:"plays_per_game"`
}

// CreateMatchRequest configures a new match. Zero values pick defaults: the
// default ruleset, a clock seed and "Home"/"Away" team names.
type CreateMatchRequest struct {
	Config string `json:"config,omitempty"`
	Seed   *int64 `json:"seed,omitempty"`
	Home   string `json:"home,omitempty"`
	Away   string `json:"away,omitempty"`
}

// MatchInfo summarizes a match.
type MatchInfo struct {
	ID             string             `json:"id"`
	Config         string             `json:"config"`
	Seed           int64              `json:"seed"`
	Home           string             `json:"home"`
	Away           string             `json:"away"`
	HomeScore      int                `json:"home_score"`
	AwayScore      int                `json:"away_score"`
	Play           int                `json:"play"`
	Turn           int                `json:"turn"`
	PlayLive       bool               `json:"play_live"`
	Steps          int                `json:"steps"`
	GameOver       bool               `json:"game_over"`
	Result         *engine.GameResult `json:"result,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
}

// StepResponse reports one or more Advance calls.
type StepResponse struct {
	Steps    []match.StepResult `json:"steps"`
	Events   []engine.Event     `json:"events"`
	State    engine.Snapshot    `json:"state"`
	GameOver bool               `json:"game_over"`
	Result   *engine.GameResult `json:"result,omitempty"`
}

// StateResponse is the full match view.
type StateResponse struct {
	Match *MatchInfo      `json:"match"`
	State engine.Snapshot `json:"state"`
	Stats match.Stats     `json:"stats"`
}

// EventQuery configures event history retrieval.
type EventQuery struct {
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
	Order string             `json:"order"` // "asc" or "desc"
	Types []engine.EventType `json:"types,omitempty"`
}

// EventPage contains paginated event history.
type EventPage struct {
	Events      []engine.Event `json:"events"`
	TotalEvents int            `json:"total_events"`
	Page        int            `json:"page"`
	PageSize    int            `json:"page_size"`
	TotalPages  int            `json:"total_pages"`
	HasNext     bool           `json:"has_next"`
	HasPrevious bool           `json:"has_previous"`
}

// MatchResult is a finished game as stored.
type MatchResult struct {
	MatchID     string    `json:"match_id"`
	Config      string    `json:"config"`
	Seed        int64     `json:"seed"`
	Home        string    `json:"home"`
	Away        string    `json:"away"`
	HomeScore   int       `json:"home_score"`
	AwayScore   int       `json:"away_score"`
	Winner      string    `json:"winner,omitempty"`
	Tie         bool      `json:"tie"`
	Plays       int       `json:"plays"`
	LongestPlay int       `json:"longest_play"`
	FinishedAt  time.Time `json:"finished_at"`
}
