package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Anzelak/goblin-ball/game/config"
	"github.com/Anzelak/goblin-ball/game/engine"
	"github.com/Anzelak/goblin-ball/game/service"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	CreateMatchFunc func(ctx context.Context, req service.CreateMatchRequest) (*service.MatchInfo, error)
	GetMatchFunc    func(ctx context.Context, id string) (*service.MatchInfo, error)
	ListMatchesFunc func(ctx context.Context) ([]*service.MatchInfo, error)
	DeleteMatchFunc func(ctx context.Context, id string) error

	StepFunc      func(ctx context.Context, id string, count int) (*service.StepResponse, error)
	RunPlayFunc   func(ctx context.Context, id string) (*service.StepResponse, error)
	RunGameFunc   func(ctx context.Context, id string) (*service.StepResponse, error)
	GetStateFunc  func(ctx context.Context, id string) (*service.StateResponse, error)
	GetEventsFunc func(ctx context.Context, id string, q service.EventQuery) (*service.EventPage, error)

	ListConfigsFunc func(ctx context.Context) ([]*service.ConfigInfo, error)
	LoadConfigFunc  func(ctx context.Context, name string) (*service.Ruleset, error)
	SaveConfigFunc  func(ctx context.Context, name string, rs *service.Ruleset) error

	ListResultsFunc func(ctx context.Context, limit int) ([]service.MatchResult, error)
}

func (m *MockGameService) CreateMatch(ctx context.Context, req service.CreateMatchRequest) (*service.MatchInfo, error) {
	if m.CreateMatchFunc != nil {
		return m.CreateMatchFunc(ctx, req)
	}
	return &service.MatchInfo{ID: "ab12", Config: req.Config}, nil
}

func (m *MockGameService) GetMatch(ctx context.Context, id string) (*service.MatchInfo, error) {
	if m.GetMatchFunc != nil {
		return m.GetMatchFunc(ctx, id)
	}
	return &service.MatchInfo{ID: id}, nil
}

func (m *MockGameService) ListMatches(ctx context.Context) ([]*service.MatchInfo, error) {
	if m.ListMatchesFunc != nil {
		return m.ListMatchesFunc(ctx)
	}
	return []*service.MatchInfo{}, nil
}

func (m *MockGameService) DeleteMatch(ctx context.Context, id string) error {
	if m.DeleteMatchFunc != nil {
		return m.DeleteMatchFunc(ctx, id)
	}
	return nil
}

func (m *MockGameService) Step(ctx context.Context, id string, count int) (*service.StepResponse, error) {
	if m.StepFunc != nil {
		return m.StepFunc(ctx, id, count)
	}
	return &service.StepResponse{}, nil
}

func (m *MockGameService) RunPlay(ctx context.Context, id string) (*service.StepResponse, error) {
	if m.RunPlayFunc != nil {
		return m.RunPlayFunc(ctx, id)
	}
	return &service.StepResponse{}, nil
}

func (m *MockGameService) RunGame(ctx context.Context, id string) (*service.StepResponse, error) {
	if m.RunGameFunc != nil {
		return m.RunGameFunc(ctx, id)
	}
	return &service.StepResponse{GameOver: true}, nil
}

func (m *MockGameService) GetState(ctx context.Context, id string) (*service.StateResponse, error) {
	if m.GetStateFunc != nil {
		return m.GetStateFunc(ctx, id)
	}
	return &service.StateResponse{Match: &service.MatchInfo{ID: id}}, nil
}

func (m *MockGameService) GetEvents(ctx context.Context, id string, q service.EventQuery) (*service.EventPage, error) {
	if m.GetEventsFunc != nil {
		return m.GetEventsFunc(ctx, id, q)
	}
	return &service.EventPage{Events: []engine.Event{}, Page: q.Page, PageSize: q.Limit, TotalPages: 1}, nil
}

func (m *MockGameService) ListConfigs(ctx context.Context) ([]*service.ConfigInfo, error) {
	if m.ListConfigsFunc != nil {
		return m.ListConfigsFunc(ctx)
	}
	return []*service.ConfigInfo{}, nil
}

func (m *MockGameService) LoadConfig(ctx context.Context, name string) (*service.Ruleset, error) {
	if m.LoadConfigFunc != nil {
		return m.LoadConfigFunc(ctx, name)
	}
	return &service.Ruleset{Name: name, Rules: engine.DefaultRules()}, nil
}

func (m *MockGameService) SaveConfig(ctx context.Context, name string, rs *service.Ruleset) error {
	if m.SaveConfigFunc != nil {
		return m.SaveConfigFunc(ctx, name, rs)
	}
	return nil
}

func (m *MockGameService) ListResults(ctx context.Context, limit int) ([]service.MatchResult, error) {
	if m.ListResultsFunc != nil {
		return m.ListResultsFunc(ctx, limit)
	}
	return []service.MatchResult{}, nil
}

type mockHub struct {
	served string
}

func (h *mockHub) ServeWS(w http.ResponseWriter, r *http.Request, matchID string) {
	h.served = matchID
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func setupTestServer(mockService *MockGameService) *Server {
	return NewServer(mockService, &mockHub{})
}

func makeRequest(method, path string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func notFound(ctx context.Context, id string) (*service.MatchInfo, error) {
	return nil, fmt.Errorf("%w: %s", service.ErrSessionNotFound, id)
}

func TestHealth(t *testing.T) {
	server := setupTestServer(&MockGameService{})
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestCreateMatch(t *testing.T) {
	tests := []struct {
		name           string
		body           any
		rawBody        string
		mockFunc       func(ctx context.Context, req service.CreateMatchRequest) (*service.MatchInfo, error)
		expectedStatus int
		check          func(t *testing.T, got service.CreateMatchRequest)
	}{
		{
			name:           "empty body uses defaults",
			expectedStatus: http.StatusCreated,
			check: func(t *testing.T, got service.CreateMatchRequest) {
				if got.Config != "" || got.Seed != nil {
					t.Errorf("request = %+v", got)
				}
			},
		},
		{
			name:           "full request",
			body:           map[string]any{"config": "classic", "seed": 42, "home": "Gobs", "away": "Grots"},
			expectedStatus: http.StatusCreated,
			check: func(t *testing.T, got service.CreateMatchRequest) {
				if got.Config != "classic" || got.Seed == nil || *got.Seed != 42 || got.Home != "Gobs" {
					t.Errorf("request = %+v", got)
				}
			},
		},
		{
			name:           "unknown field",
			rawBody:        `{"board": 5}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "unknown config",
			body: map[string]any{"config": "nope"},
			mockFunc: func(ctx context.Context, req service.CreateMatchRequest) (*service.MatchInfo, error) {
				return nil, fmt.Errorf("config 'nope' not found: %w", config.ErrConfigNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got service.CreateMatchRequest
			mock := &MockGameService{CreateMatchFunc: func(ctx context.Context, req service.CreateMatchRequest) (*service.MatchInfo, error) {
				got = req
				if tt.mockFunc != nil {
					return tt.mockFunc(ctx, req)
				}
				return &service.MatchInfo{ID: "ab12", Config: req.Config}, nil
			}}
			server := setupTestServer(mock)

			req := makeRequest("POST", "/api/matches", tt.body)
			if tt.rawBody != "" {
				req = httptest.NewRequest("POST", "/api/matches", strings.NewReader(tt.rawBody))
			}
			w := httptest.NewRecorder()
			server.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.check != nil {
				tt.check(t, got)
			}
		})
	}
}

func TestListMatches(t *testing.T) {
	mock := &MockGameService{ListMatchesFunc: func(ctx context.Context) ([]*service.MatchInfo, error) {
		return []*service.MatchInfo{{ID: "a"}, {ID: "b", GameOver: true}, {ID: "c"}}, nil
	}}
	server := setupTestServer(mock)

	tests := []struct {
		path      string
		wantCount int
		wantTotal int
	}{
		{"/api/matches", 3, 3},
		{"/api/matches?active=true", 2, 2},
		{"/api/matches?limit=1", 1, 3},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", tt.path, nil))
			var resp struct {
				Count int `json:"count"`
				Total int `json:"total"`
			}
			parseResponse(t, w, &resp)
			if resp.Count != tt.wantCount || resp.Total != tt.wantTotal {
				t.Errorf("count/total = %d/%d, want %d/%d", resp.Count, resp.Total, tt.wantCount, tt.wantTotal)
			}
		})
	}
}

func TestGetAndDeleteMatch(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		server := setupTestServer(&MockGameService{})
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/matches/ab12", nil))
		var info service.MatchInfo
		parseResponse(t, w, &info)
		if w.Code != http.StatusOK || info.ID != "ab12" {
			t.Errorf("status %d, info %+v", w.Code, info)
		}
	})

	t.Run("not found", func(t *testing.T) {
		server := setupTestServer(&MockGameService{GetMatchFunc: notFound})
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/matches/zz", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})

	t.Run("delete", func(t *testing.T) {
		var deleted string
		server := setupTestServer(&MockGameService{DeleteMatchFunc: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		}})
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("DELETE", "/api/matches/ab12", nil))
		if w.Code != http.StatusOK || deleted != "ab12" {
			t.Errorf("status %d, deleted %q", w.Code, deleted)
		}
	})
}

func TestStep(t *testing.T) {
	tests := []struct {
		name           string
		path           string
		body           any
		stepErr        error
		expectedStatus int
		wantCount      int
	}{
		{"default count", "/api/matches/ab12/step", nil, nil, http.StatusOK, 0},
		{"body count", "/api/matches/ab12/step", map[string]int{"count": 5}, nil, http.StatusOK, 5},
		{"query count", "/api/matches/ab12/step?count=3", nil, nil, http.StatusOK, 3},
		{"bad query count", "/api/matches/ab12/step?count=x", nil, nil, http.StatusBadRequest, -1},
		{"game over", "/api/matches/ab12/step", nil, fmt.Errorf("match ab12: %w", service.ErrGameOver), http.StatusConflict, 0},
		{"missing match", "/api/matches/zz/step", nil, service.ErrSessionNotFound, http.StatusNotFound, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotCount := -1
			mock := &MockGameService{StepFunc: func(ctx context.Context, id string, count int) (*service.StepResponse, error) {
				gotCount = count
				if tt.stepErr != nil {
					return nil, tt.stepErr
				}
				return &service.StepResponse{Events: []engine.Event{{Seq: 1, Type: engine.EventPlayStart}}}, nil
			}}
			server := setupTestServer(mock)
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("POST", tt.path, tt.body))

			if w.Code != tt.expectedStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}
			if gotCount != tt.wantCount {
				t.Errorf("count passed = %d, want %d", gotCount, tt.wantCount)
			}
		})
	}
}

func TestRunPlayAndGame(t *testing.T) {
	var calls []string
	mock := &MockGameService{
		RunPlayFunc: func(ctx context.Context, id string) (*service.StepResponse, error) {
			calls = append(calls, "play:"+id)
			return &service.StepResponse{}, nil
		},
		RunGameFunc: func(ctx context.Context, id string) (*service.StepResponse, error) {
			calls = append(calls, "game:"+id)
			res := engine.GameResult{HomeScore: 3, Plays: 20, Winner: "Home"}
			return &service.StepResponse{GameOver: true, Result: &res}, nil
		},
	}
	server := setupTestServer(mock)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/matches/m1/play", nil))
	if w.Code != http.StatusOK {
		t.Errorf("play status %d", w.Code)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("POST", "/api/matches/m1/game", nil))
	var resp service.StepResponse
	parseResponse(t, w, &resp)
	if !resp.GameOver || resp.Result == nil || resp.Result.Winner != "Home" {
		t.Errorf("game response = %+v", resp)
	}
	if strings.Join(calls, ",") != "play:m1,game:m1" {
		t.Errorf("calls = %v", calls)
	}
}

func TestGetState(t *testing.T) {
	mock := &MockGameService{GetStateFunc: func(ctx context.Context, id string) (*service.StateResponse, error) {
		return &service.StateResponse{
			Match: &service.MatchInfo{ID: id},
			State: engine.Snapshot{Width: 3, Height: 2, Board: []string{"a..", "..b"}},
		}, nil
	}}
	server := setupTestServer(mock)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/matches/m1/state", nil))
	var state service.StateResponse
	parseResponse(t, w, &state)
	if state.State.Width != 3 || state.Match.ID != "m1" {
		t.Errorf("state = %+v", state)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/matches/m1/state?format=text", nil))
	if got := w.Body.String(); got != "a..\n..b\n" {
		t.Errorf("text board = %q", got)
	}
}

func TestGetEvents(t *testing.T) {
	var got service.EventQuery
	mock := &MockGameService{GetEventsFunc: func(ctx context.Context, id string, q service.EventQuery) (*service.EventPage, error) {
		got = q
		return &service.EventPage{
			Events: []engine.Event{{Seq: 4, Type: engine.EventTurnStart, Play: 1, Turn: 2}},
			Page:   q.Page, PageSize: q.Limit, TotalEvents: 1, TotalPages: 1,
		}, nil
	}}
	server := setupTestServer(mock)

	tests := []struct {
		name  string
		path  string
		check func(t *testing.T)
	}{
		{"defaults", "/api/matches/m1/events", func(t *testing.T) {
			if got.Page != 1 || got.Limit != 50 || got.Order != "desc" || len(got.Types) != 0 {
				t.Errorf("query = %+v", got)
			}
		}},
		{"params", "/api/matches/m1/events?page=2&limit=10&order=asc&type=move,block&type=touchdown", func(t *testing.T) {
			if got.Page != 2 || got.Limit != 10 || got.Order != "asc" {
				t.Errorf("query = %+v", got)
			}
			want := []engine.EventType{engine.EventMove, engine.EventBlock, engine.EventTouchdown}
			if fmt.Sprint(got.Types) != fmt.Sprint(want) {
				t.Errorf("types = %v, want %v", got.Types, want)
			}
		}},
		{"bad params fall back", "/api/matches/m1/events?page=-1&limit=abc&order=sideways", func(t *testing.T) {
			if got.Page != 1 || got.Limit != 50 || got.Order != "desc" {
				t.Errorf("query = %+v", got)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			server.ServeHTTP(w, makeRequest("GET", tt.path, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("status %d", w.Code)
			}
			tt.check(t)
		})
	}

	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/matches/m1/events?format=text", nil))
	if got := w.Body.String(); got != "#4 p1 t2 turn 2 of play 1\n" {
		t.Errorf("text events = %q", got)
	}
}

func TestConfigs(t *testing.T) {
	t.Run("list", func(t *testing.T) {
		server := setupTestServer(&MockGameService{ListConfigsFunc: func(ctx context.Context) ([]*service.ConfigInfo, error) {
			return []*service.ConfigInfo{{ConfigID: "default"}, {ConfigID: "classic"}}, nil
		}})
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/configs", nil))
		var configs []service.ConfigInfo
		parseResponse(t, w, &configs)
		if len(configs) != 2 {
			t.Errorf("configs = %+v", configs)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		server := setupTestServer(&MockGameService{LoadConfigFunc: func(ctx context.Context, name string) (*service.Ruleset, error) {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, name)
		}})
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/api/configs/none", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})

	t.Run("save merges over defaults", func(t *testing.T) {
		var savedName string
		var saved *service.Ruleset
		server := setupTestServer(&MockGameService{SaveConfigFunc: func(ctx context.Context, name string, rs *service.Ruleset) error {
			savedName, saved = name, rs
			return nil
		}})
		body := map[string]any{"name": "Short Game", "rules": map[string]any{"plays_per_game": 4}}
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/configs", body))
		if w.Code != http.StatusCreated {
			t.Fatalf("status %d: %s", w.Code, w.Body.String())
		}
		if savedName != "short_game" {
			t.Errorf("config id = %q", savedName)
		}
		if saved.Rules.PlaysPerGame != 4 || saved.Rules.GridWidth != 10 {
			t.Errorf("rules = plays %d width %d", saved.Rules.PlaysPerGame, saved.Rules.GridWidth)
		}
	})

	t.Run("save invalid", func(t *testing.T) {
		server := setupTestServer(&MockGameService{SaveConfigFunc: func(ctx context.Context, name string, rs *service.Ruleset) error {
			return fmt.Errorf("%w: grid too small", config.ErrInvalidConfig)
		}})
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/configs", map[string]any{"name": "x"}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("save without name", func(t *testing.T) {
		server := setupTestServer(&MockGameService{})
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("POST", "/api/configs", map[string]any{"description": "x"}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})
}

func TestListResults(t *testing.T) {
	var gotLimit int
	server := setupTestServer(&MockGameService{ListResultsFunc: func(ctx context.Context, limit int) ([]service.MatchResult, error) {
		gotLimit = limit
		return nil, service.ErrNoStore
	}})
	w := httptest.NewRecorder()
	server.ServeHTTP(w, makeRequest("GET", "/api/results?limit=5", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}
	if gotLimit != 5 {
		t.Errorf("limit = %d", gotLimit)
	}
}

func TestWebSocket(t *testing.T) {
	t.Run("missing match parameter", func(t *testing.T) {
		server := setupTestServer(&MockGameService{})
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/ws", nil))
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", w.Code)
		}
	})

	t.Run("unknown match", func(t *testing.T) {
		server := setupTestServer(&MockGameService{GetMatchFunc: notFound})
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/ws?match=zz", nil))
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404, got %d", w.Code)
		}
	})

	t.Run("hands off to the hub", func(t *testing.T) {
		hub := &mockHub{}
		server := NewServer(&MockGameService{}, hub)
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/ws?match=ab12", nil))
		if hub.served != "ab12" {
			t.Errorf("hub served %q", hub.served)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		server := NewServer(&MockGameService{}, nil)
		w := httptest.NewRecorder()
		server.ServeHTTP(w, makeRequest("GET", "/ws?match=ab12", nil))
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected 503, got %d", w.Code)
		}
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrSessionNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", config.ErrConfigNotFound), http.StatusNotFound},
		{service.ErrSessionExists, http.StatusConflict},
		{service.ErrGameOver, http.StatusConflict},
		{engine.ErrInvalidRules, http.StatusBadRequest},
		{context.Canceled, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
