package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Anzelak/goblin-ball/game/engine"
	"github.com/Anzelak/goblin-ball/game/match"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExists   = errors.New("session already exists")
	ErrNoStore         = errors.New("no results store configured")
	ErrGameOver        = match.ErrGameOver
)

// GameService defines all match operations. Every transport talks to it.
type GameService interface {
	// Match lifecycle
	CreateMatch(ctx context.Context, req CreateMatchRequest) (*MatchInfo, error)
	GetMatch(ctx context.Context, matchID string) (*MatchInfo, error)
	ListMatches(ctx context.Context) ([]*MatchInfo, error)
	DeleteMatch(ctx context.Context, matchID string) error

	// Play
	Step(ctx context.Context, matchID string, count int) (*StepResponse, error)
	RunPlay(ctx context.Context, matchID string) (*StepResponse, error)
	RunGame(ctx context.Context, matchID string) (*StepResponse, error)
	GetState(ctx context.Context, matchID string) (*StateResponse, error)
	GetEvents(ctx context.Context, matchID string, q EventQuery) (*EventPage, error)

	// Rulesets
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, name string) (*Ruleset, error)
	SaveConfig(ctx context.Context, name string, rs *Ruleset) error

	// Results
	ListResults(ctx context.Context, limit int) ([]MatchResult, error)
}

// SessionManager defines session storage operations.
type SessionManager interface {
	Create(id string, spec MatchSpec) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// ConfigManager loads named rulesets.
type ConfigManager interface {
	LoadConfig(name string) (*Ruleset, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *Ruleset
	SaveConfig(name string, rs *Ruleset) error
}

// ResultStore persists events and final scores.
type ResultStore interface {
	RecordEvents(ctx context.Context, matchID string, events []engine.Event) error
	RecordResult(ctx context.Context, r MatchResult) error
	ListResults(ctx context.Context, limit int) ([]MatchResult, error)
}

// Broadcaster pushes live updates to spectators of a match. Implementations
// must not block.
type Broadcaster interface {
	BroadcastEvent(matchID string, e engine.Event)
	BroadcastState(matchID string, state any)
}

// EventLog is an append-only sink for one match's events.
type EventLog interface {
	Append(events []engine.Event) error
	Close() error
}

// EventLogOpener opens the event log for a match.
type EventLogOpener func(matchID string) (EventLog, error)

// MatchSpec is everything needed to rebuild a match from scratch. Together
// with Steps on the session it reproduces the exact state.
type MatchSpec struct {
	Config string        `json:"config"`
	Rules  *engine.Rules `json:"rules"`
	Seed   int64         `json:"seed"`
	Home   string        `json:"home"`
	Away   string        `json:"away"`
}

// Session is one live match.
type Session struct {
	ID             string
	Spec           MatchSpec
	Controller     *match.Controller
	CreatedAt      time.Time
	LastAccessedAt time.Time

	mu       sync.Mutex
	attached bool
	log      EventLog
	recorded bool
}

// Lock serializes access to the controller.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }
