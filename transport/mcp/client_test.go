package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Anzelak/goblin-ball/game/engine"
	"github.com/Anzelak/goblin-ball/game/service"
)

type recordedRequest struct {
	method string
	path   string
	query  string
	body   map[string]any
}

// newBackend serves canned REST responses and records every request.
func newBackend(t *testing.T) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var reqs []recordedRequest
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
	snapshot := engine.Snapshot{
		Width: 4, Height: 2, Play: 1, Turn: 3,
		Board: []string{"H.*.", "..oA"},
		Home:  engine.TeamView{Name: "Gobs", Score: 3, Offense: true, Agents: []engine.AgentView{{Name: "Gobs #1", OnField: true, HasBall: true, MaxMovement: 5}}},
		Away:  engine.TeamView{Name: "Grots", Agents: []engine.AgentView{{Name: "Grots #1", OnField: true, KnockedDown: true, Injury: engine.InjuryMinor}}},
	}

	mux.HandleFunc("/api/matches", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			var req service.CreateMatchRequest
			json.NewDecoder(r.Body).Decode(&req)
			seed := int64(0)
			if req.Seed != nil {
				seed = *req.Seed
			}
			write(w, service.MatchInfo{ID: "ab12", Config: req.Config, Seed: seed, Home: req.Home, Away: req.Away})
			return
		}
		write(w, map[string]any{"count": 1, "matches": []service.MatchInfo{{ID: "ab12", Home: "Gobs", Away: "Grots", HomeScore: 3, GameOver: true}}})
	})
	mux.HandleFunc("/api/matches/ab12/state", func(w http.ResponseWriter, r *http.Request) {
		write(w, service.StateResponse{Match: &service.MatchInfo{ID: "ab12"}, State: snapshot})
	})
	advance := func(w http.ResponseWriter, r *http.Request) {
		resp := service.StepResponse{
			Events: []engine.Event{{Seq: 7, Type: engine.EventTouchdown, Payload: map[string]any{"team_name": "Gobs", "agent_name": "Gobs #1", "points": 3}}},
			State:  snapshot,
		}
		if strings.HasSuffix(r.URL.Path, "/game") {
			resp.GameOver = true
			resp.Result = &engine.GameResult{HomeScore: 3, Winner: "Gobs", Plays: 20}
		}
		write(w, resp)
	}
	mux.HandleFunc("/api/matches/ab12/step", advance)
	mux.HandleFunc("/api/matches/ab12/play", advance)
	mux.HandleFunc("/api/matches/ab12/game", advance)
	mux.HandleFunc("/api/matches/ab12/events", func(w http.ResponseWriter, r *http.Request) {
		write(w, service.EventPage{
			Events: []engine.Event{{Seq: 2, Type: engine.EventTurnStart, Play: 1, Turn: 1}},
			Page:   1, TotalPages: 2, TotalEvents: 60, HasNext: true,
		})
	})
	mux.HandleFunc("/api/matches/missing/state", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		write(w, map[string]string{"error": "session not found: missing"})
	})
	mux.HandleFunc("/api/configs", func(w http.ResponseWriter, r *http.Request) {
		write(w, []service.ConfigInfo{{ConfigID: "classic", Name: "Classic", GridWidth: 10, GridHeight: 10, RosterSize: 5, PlaysPerGame: 20}})
	})
	mux.HandleFunc("/api/results", func(w http.ResponseWriter, r *http.Request) {
		write(w, []service.MatchResult{{MatchID: "ab12", Home: "Gobs", Away: "Grots", HomeScore: 3, Winner: "Gobs", Plays: 20}})
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			json.Unmarshal(data, &rec.body)
			r.Body = io.NopCloser(bytes.NewReader(data))
		}
		reqs = append(reqs, rec)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &reqs
}

func callTool(t *testing.T, c *Client, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
	result, err := handler(context.Background(), request)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if len(result.Content) == 0 {
		t.Fatal("empty result")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Content[0])
	}
	return text.Text, result.IsError
}

func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")
	if client.baseURL != "http://localhost:8080" {
		t.Errorf("baseURL = %q", client.baseURL)
	}
	if client.httpClient == nil || client.GetMCPServer() == nil {
		t.Error("client not initialized")
	}
}

func TestClient_apiCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			json.NewEncoder(w).Encode(map[string]string{"id": "ab12"})
		case "/bad":
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": "game is over"})
		default:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom"))
		}
	}))
	defer srv.Close()
	client := NewClient(srv.URL)
	ctx := context.Background()

	var got map[string]string
	if err := client.apiCall(ctx, "GET", "/ok", nil, &got); err != nil || got["id"] != "ab12" {
		t.Errorf("ok: %v %v", got, err)
	}
	if err := client.apiCall(ctx, "GET", "/bad", nil, nil); err == nil || err.Error() != "game is over" {
		t.Errorf("bad: %v", err)
	}
	if err := client.apiCall(ctx, "GET", "/other", nil, nil); err == nil || !strings.Contains(err.Error(), "500") {
		t.Errorf("other: %v", err)
	}

	unreachable := NewClient("http://127.0.0.1:1")
	if err := unreachable.apiCall(ctx, "GET", "/", nil, nil); err == nil {
		t.Error("expected error for unreachable server")
	}
}

func TestClient_Tools(t *testing.T) {
	srv, reqs := newBackend(t)
	client := NewClient(srv.URL)

	tests := []struct {
		name      string
		handler   func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args      map[string]any
		wantPath  string
		wantQuery string
		wantText  []string
		wantError bool
	}{
		{
			name:     "create match",
			handler:  client.handleCreateMatch,
			args:     map[string]any{"config": "classic", "seed": float64(42), "home": "Gobs", "away": "Grots"},
			wantPath: "/api/matches",
			wantText: []string{"Created match: ab12", "Config: classic", "Seed: 42", "Gobs vs Grots"},
		},
		{
			name:      "list active matches",
			handler:   client.handleListMatches,
			args:      map[string]any{"active": true},
			wantPath:  "/api/matches",
			wantQuery: "active=true",
			wantText:  []string{"Matches (1)", "ab12: Gobs 3 - 0 Grots (final"},
		},
		{
			name:     "match state",
			handler:  client.handleMatchState,
			args:     map[string]any{"match_id": "ab12"},
			wantPath: "/api/matches/ab12/state",
			wantText: []string{"Play 1, turn 3", " 0 H.*.", " 1 ..oA", "Gobs #1 (0,0) mv 0/5 [ball]", "Grots #1 (0,0) mv 0/0 [down, minor]"},
		},
		{
			name:      "missing match",
			handler:   client.handleMatchState,
			args:      map[string]any{"match_id": "missing"},
			wantPath:  "/api/matches/missing/state",
			wantText:  []string{"session not found"},
			wantError: true,
		},
		{
			name:      "no match id",
			handler:   client.handleStep,
			args:      map[string]any{},
			wantText:  []string{"match_id is required"},
			wantError: true,
		},
		{
			name:     "step",
			handler:  client.handleStep,
			args:     map[string]any{"match_id": "ab12", "count": float64(5)},
			wantPath: "/api/matches/ab12/step",
			wantText: []string{"#7 TOUCHDOWN Gobs! Gobs #1 scores 3", "Score: Gobs 3 - 0 Grots", "Play 1, turn 3"},
		},
		{
			name:     "run play",
			handler:  client.handleRunPlay,
			args:     map[string]any{"match_id": "ab12"},
			wantPath: "/api/matches/ab12/play",
			wantText: []string{"Advanced 0 steps, 1 events"},
		},
		{
			name:     "run game",
			handler:  client.handleRunGame,
			args:     map[string]any{"match_id": "ab12"},
			wantPath: "/api/matches/ab12/game",
			wantText: []string{"GAME OVER: Gobs wins after 20 plays"},
		},
		{
			name:      "events",
			handler:   client.handleMatchEvents,
			args:      map[string]any{"match_id": "ab12", "page": float64(1), "order": "asc", "types": []any{"turn_start", "block"}},
			wantPath:  "/api/matches/ab12/events",
			wantQuery: "order=asc&page=1&type=turn_start&type=block",
			wantText:  []string{"Events page 1/2 (60 total)", "#2 p1 t1 turn 1 of play 1", "More events on page 2"},
		},
		{
			name:     "configs",
			handler:  client.handleListConfigs,
			args:     nil,
			wantPath: "/api/configs",
			wantText: []string{"classic (Classic)", "Grid: 10x10, Roster: 5, Plays: 20"},
		},
		{
			name:      "results",
			handler:   client.handleListResults,
			args:      map[string]any{"limit": float64(3)},
			wantPath:  "/api/results",
			wantQuery: "limit=3",
			wantText:  []string{"ab12: Gobs 3 - 0 Grots, Gobs wins (20 plays"},
		},
		{
			name:     "rules",
			handler:  client.handleGameRules,
			wantText: []string{"BOARD LEGEND", "loose ball", "Touchdown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(*reqs)
			text, isErr := callTool(t, client, tt.handler, tt.args)
			if isErr != tt.wantError {
				t.Errorf("IsError = %v, want %v: %s", isErr, tt.wantError, text)
			}
			for _, want := range tt.wantText {
				if !strings.Contains(text, want) {
					t.Errorf("result missing %q:\n%s", want, text)
				}
			}
			if tt.wantPath == "" {
				if len(*reqs) != before {
					t.Errorf("unexpected API call %+v", (*reqs)[before:])
				}
				return
			}
			if len(*reqs) != before+1 {
				t.Fatalf("API calls = %d, want 1", len(*reqs)-before)
			}
			got := (*reqs)[before]
			if got.path != tt.wantPath || got.query != tt.wantQuery {
				t.Errorf("request = %s?%s, want %s?%s", got.path, got.query, tt.wantPath, tt.wantQuery)
			}
		})
	}
}

func TestClient_StepSendsCount(t *testing.T) {
	srv, reqs := newBackend(t)
	client := NewClient(srv.URL)

	callTool(t, client, client.handleStep, map[string]any{"match_id": "ab12"})
	callTool(t, client, client.handleStep, map[string]any{"match_id": "ab12", "count": float64(4)})

	if len(*reqs) != 2 {
		t.Fatalf("requests = %d", len(*reqs))
	}
	if got := (*reqs)[0].body["count"]; got != float64(1) {
		t.Errorf("default count = %v", got)
	}
	if got := (*reqs)[1].body["count"]; got != float64(4) {
		t.Errorf("count = %v", got)
	}
}
