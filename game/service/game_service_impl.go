package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Anzelak/goblin-ball/game/engine"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
	maxStepsPerCall   = 1000
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	configs  ConfigManager
	store    ResultStore
	hub      Broadcaster
	logs     EventLogOpener
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures the service.
type Option func(*gameServiceImpl)

// WithStore records events and results in store.
func WithStore(store ResultStore) Option {
	return func(s *gameServiceImpl) { s.store = store }
}

// WithBroadcaster streams events and states to spectators.
func WithBroadcaster(b Broadcaster) Option {
	return func(s *gameServiceImpl) { s.hub = b }
}

// WithEventLogs appends every match's events to a log opened by open.
func WithEventLogs(open EventLogOpener) Option {
	return func(s *gameServiceImpl) { s.logs = open }
}

// WithLogger sets the service logger. Every engine event is logged at Debug.
func WithLogger(l *zap.Logger) Option {
	return func(s *gameServiceImpl) { s.logger = l }
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, configs ConfigManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		configs:  configs,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateMatch builds a new match from a ruleset and starts it paused before
// the first play.
func (s *gameServiceImpl) CreateMatch(ctx context.Context, req CreateMatchRequest) (*MatchInfo, error) {
	var rs *Ruleset
	var err error
	if req.Config != "" {
		rs, err = s.configs.LoadConfig(req.Config)
		if err != nil {
			return nil, s.configError(req.Config, err)
		}
	} else {
		rs = s.configs.GetDefault()
	}

	spec := MatchSpec{
		Config: configID(req.Config, rs),
		Rules:  rs.Rules.Clone(),
		Home:   orDefault(req.Home, "Home"),
		Away:   orDefault(req.Away, "Away"),
	}
	if req.Seed != nil {
		spec.Seed = *req.Seed
	} else {
		spec.Seed = s.now().UnixNano()
	}

	sess, err := s.sessions.Create("", spec)
	if err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}
	sess.Lock()
	defer sess.Unlock()
	s.attach(sess)
	s.logger.Info("match created",
		zap.String("match", sess.ID),
		zap.String("config", spec.Config),
		zap.Int64("seed", spec.Seed),
		zap.String("home", spec.Home),
		zap.String("away", spec.Away),
	)
	return matchInfo(sess), nil
}

// GetMatch retrieves match information
func (s *gameServiceImpl) GetMatch(ctx context.Context, matchID string) (*MatchInfo, error) {
	sess, err := s.session(matchID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()
	return matchInfo(sess), nil
}

// ListMatches returns all active matches
func (s *gameServiceImpl) ListMatches(ctx context.Context) ([]*MatchInfo, error) {
	sessions := s.sessions.List()
	result := make([]*MatchInfo, 0, len(sessions))
	for _, sess := range sessions {
		sess.Lock()
		result = append(result, matchInfo(sess))
		sess.Unlock()
	}
	return result, nil
}

// DeleteMatch removes a match and closes its event log.
func (s *gameServiceImpl) DeleteMatch(ctx context.Context, matchID string) error {
	sess, err := s.sessions.Get(matchID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, matchID)
	}
	sess.Lock()
	s.closeLog(sess)
	sess.Unlock()
	if err := s.sessions.Delete(matchID); err != nil {
		return err
	}
	s.logger.Info("match deleted", zap.String("match", matchID))
	return nil
}

// Step advances the match count times, stopping early at game over.
func (s *gameServiceImpl) Step(ctx context.Context, matchID string, count int) (*StepResponse, error) {
	if count < 1 {
		count = 1
	}
	if count > maxStepsPerCall {
		count = maxStepsPerCall
	}
	return s.advance(ctx, matchID, func(sess *Session, resp *StepResponse) error {
		for i := 0; i < count; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := sess.Controller.Advance()
			if err != nil {
				return err
			}
			resp.Steps = append(resp.Steps, res)
			if res.GameOver {
				return nil
			}
		}
		return nil
	})
}

// RunPlay advances through the end of the current or next play.
func (s *gameServiceImpl) RunPlay(ctx context.Context, matchID string) (*StepResponse, error) {
	return s.advance(ctx, matchID, func(sess *Session, resp *StepResponse) error {
		steps, err := sess.Controller.RunPlay(ctx)
		resp.Steps = steps
		return err
	})
}

// RunGame plays the match out.
func (s *gameServiceImpl) RunGame(ctx context.Context, matchID string) (*StepResponse, error) {
	return s.advance(ctx, matchID, func(sess *Session, resp *StepResponse) error {
		_, err := sess.Controller.RunGame(ctx)
		return err
	})
}

// advance runs fn under the session lock, then persists the session and
// fans the new events out to the store and the event log.
func (s *gameServiceImpl) advance(ctx context.Context, matchID string, fn func(*Session, *StepResponse) error) (*StepResponse, error) {
	sess, err := s.session(matchID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()
	s.attach(sess)

	c := sess.Controller
	if c.Over() {
		return nil, fmt.Errorf("match %s: %w", matchID, ErrGameOver)
	}
	before := c.Bus().Len()
	resp := &StepResponse{}
	runErr := fn(sess, resp)

	history := c.Events()
	if before < len(history) {
		resp.Events = history[before:]
	} else {
		resp.Events = []engine.Event{}
	}
	resp.State = c.Snapshot()
	if res, ok := c.Result(); ok {
		resp.GameOver = true
		resp.Result = &res
	}

	s.record(ctx, sess, resp.Events)
	if err := s.sessions.Save(sess.ID); err != nil {
		s.logger.Warn("failed to persist match", zap.String("match", sess.ID), zap.Error(err))
	}
	if s.hub != nil {
		s.hub.BroadcastState(sess.ID, resp.State)
	}
	s.logger.Info("match advanced",
		zap.String("match", sess.ID),
		zap.Int("steps", len(resp.Steps)),
		zap.Int("events", len(resp.Events)),
		zap.Int("play", resp.State.Play),
		zap.Int("turn", resp.State.Turn),
		zap.Bool("game_over", resp.GameOver),
	)
	if runErr != nil && !errors.Is(runErr, ErrGameOver) {
		return resp, runErr
	}
	return resp, nil
}

// GetState returns the board, counters and summary.
func (s *gameServiceImpl) GetState(ctx context.Context, matchID string) (*StateResponse, error) {
	sess, err := s.session(matchID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	defer sess.Unlock()
	return &StateResponse{
		Match: matchInfo(sess),
		State: sess.Controller.Snapshot(),
		Stats: sess.Controller.Stats(),
	}, nil
}

// GetEvents pages through the match's event history.
func (s *gameServiceImpl) GetEvents(ctx context.Context, matchID string, q EventQuery) (*EventPage, error) {
	sess, err := s.session(matchID)
	if err != nil {
		return nil, err
	}
	sess.Lock()
	history := sess.Controller.Events()
	sess.Unlock()

	if len(q.Types) > 0 {
		keep := make(map[engine.EventType]bool, len(q.Types))
		for _, t := range q.Types {
			keep[t] = true
		}
		filtered := history[:0:0]
		for _, e := range history {
			if keep[e.Type] {
				filtered = append(filtered, e)
			}
		}
		history = filtered
	}
	return paginate(history, q), nil
}

func paginate(history []engine.Event, q EventQuery) *EventPage {
	total := len(history)

	// Apply defaults
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = defaultEventLimit
	}
	if q.Limit > maxEventLimit {
		q.Limit = maxEventLimit
	}
	if q.Order == "" {
		q.Order = "desc"
	}

	totalPages := (total + q.Limit - 1) / q.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (q.Page - 1) * q.Limit
	end := min(start+q.Limit, total)

	events := []engine.Event{}
	if q.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			events = append(events, history[i])
		}
	} else if start < total {
		events = append(events, history[start:end]...)
	}

	return &EventPage{
		Events:      events,
		TotalEvents: total,
		Page:        q.Page,
		PageSize:    q.Limit,
		TotalPages:  totalPages,
		HasNext:     q.Page < totalPages,
		HasPrevious: q.Page > 1,
	}
}

// ListConfigs returns available rulesets
func (s *gameServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig loads a specific ruleset
func (s *gameServiceImpl) LoadConfig(ctx context.Context, name string) (*Ruleset, error) {
	return s.configs.LoadConfig(name)
}

// SaveConfig saves a ruleset to disk
func (s *gameServiceImpl) SaveConfig(ctx context.Context, name string, rs *Ruleset) error {
	if err := s.configs.SaveConfig(name, rs); err != nil {
		return err
	}
	s.logger.Info("ruleset saved", zap.String("config", name))
	return nil
}

// ListResults returns finished games, newest first.
func (s *gameServiceImpl) ListResults(ctx context.Context, limit int) ([]MatchResult, error) {
	if s.store == nil {
		return nil, ErrNoStore
	}
	return s.store.ListResults(ctx, limit)
}

func (s *gameServiceImpl) session(matchID string) (*Session, error) {
	sess, err := s.sessions.Get(matchID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, matchID)
	}
	if err := s.sessions.UpdateLastAccessed(matchID); err != nil {
		s.logger.Debug("failed to touch match", zap.String("match", matchID), zap.Error(err))
	}
	return sess, nil
}

// attach subscribes the debug logger and the hub to the session's bus once.
// Sessions restored from disk replay their steps before this runs, so the
// replayed events are not broadcast again.
func (s *gameServiceImpl) attach(sess *Session) {
	if sess.attached {
		return
	}
	sess.attached = true
	id := sess.ID
	logger := s.logger.With(zap.String("match", id))
	hub := s.hub
	sess.Controller.Bus().Subscribe(func(e engine.Event) {
		if ce := logger.Check(zap.DebugLevel, "event"); ce != nil {
			fields := make([]zap.Field, 0, len(e.Payload)+4)
			fields = append(fields,
				zap.Int("seq", e.Seq),
				zap.String("type", string(e.Type)),
				zap.Int("play", e.Play),
				zap.Int("turn", e.Turn),
			)
			for k, v := range e.Payload {
				fields = append(fields, zap.Any(k, v))
			}
			ce.Write(fields...)
		}
		if hub != nil {
			hub.BroadcastEvent(id, e)
		}
	})
	if s.logs != nil {
		log, err := s.logs(id)
		if err != nil {
			s.logger.Warn("failed to open event log", zap.String("match", id), zap.Error(err))
			return
		}
		sess.log = log
	}
}

func (s *gameServiceImpl) record(ctx context.Context, sess *Session, events []engine.Event) {
	if s.store != nil && len(events) > 0 {
		if err := s.store.RecordEvents(ctx, sess.ID, events); err != nil {
			s.logger.Warn("failed to store events", zap.String("match", sess.ID), zap.Error(err))
		}
	}
	if sess.log != nil && len(events) > 0 {
		if err := sess.log.Append(events); err != nil {
			s.logger.Warn("failed to append event log", zap.String("match", sess.ID), zap.Error(err))
		}
	}
	res, ok := sess.Controller.Result()
	if !ok || sess.recorded {
		return
	}
	sess.recorded = true
	s.closeLog(sess)
	if s.store == nil {
		return
	}
	stats := sess.Controller.Stats()
	err := s.store.RecordResult(ctx, MatchResult{
		MatchID:     sess.ID,
		Config:      sess.Spec.Config,
		Seed:        sess.Spec.Seed,
		Home:        sess.Spec.Home,
		Away:        sess.Spec.Away,
		HomeScore:   res.HomeScore,
		AwayScore:   res.AwayScore,
		Winner:      res.Winner,
		Tie:         res.Tie,
		Plays:       res.Plays,
		LongestPlay: stats.LongestPlay,
		FinishedAt:  s.now(),
	})
	if err != nil {
		s.logger.Warn("failed to store result", zap.String("match", sess.ID), zap.Error(err))
	}
}

func (s *gameServiceImpl) closeLog(sess *Session) {
	if sess.log == nil {
		return
	}
	if err := sess.log.Close(); err != nil {
		s.logger.Warn("failed to close event log", zap.String("match", sess.ID), zap.Error(err))
	}
	sess.log = nil
}

// configError lists the available rulesets when the name is unknown.
func (s *gameServiceImpl) configError(name string, err error) error {
	if !strings.Contains(err.Error(), "not found") {
		return fmt.Errorf("failed to load config %s: %w", name, err)
	}
	available, listErr := s.configs.ListConfigs()
	if listErr != nil || len(available) == 0 {
		return fmt.Errorf("config '%s' not found, use /api/configs to list rulesets: %w", name, err)
	}
	ids := make([]string, 0, len(available))
	for _, c := range available {
		ids = append(ids, c.ConfigID)
	}
	return fmt.Errorf("config '%s' not found, available: %s: %w", name, strings.Join(ids, ", "), err)
}

func configID(requested string, rs *Ruleset) string {
	if requested != "" {
		for _, ext := range []string{".yaml", ".yml", ".json"} {
			requested = strings.TrimSuffix(requested, ext)
		}
		return requested
	}
	if rs.Name != "" {
		return rs.Name
	}
	return "default"
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func matchInfo(sess *Session) *MatchInfo {
	c := sess.Controller
	g := c.Game()
	info := &MatchInfo{
		ID:             sess.ID,
		Config:         sess.Spec.Config,
		Seed:           sess.Spec.Seed,
		Home:           g.Home.Name,
		Away:           g.Away.Name,
		HomeScore:      g.Home.Score,
		AwayScore:      g.Away.Score,
		Play:           g.Play,
		Turn:           g.Turn,
		PlayLive:       g.PlayLive,
		Steps:          c.Steps(),
		GameOver:       c.Over(),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
	}
	if res, ok := c.Result(); ok {
		info.Result = &res
	}
	return info
}
