package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Anzelak/goblin-ball/game/engine"
	"github.com/Anzelak/goblin-ball/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Goblin Ball",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Goblin Ball - MCP Interface

Two teams of goblins play a turn-based ball game on a grid. Every agent is
driven by the built-in AI; you create matches and advance them, then read the
board, events and results.

AVAILABLE TOOLS:
- create_match: Start a match with a ruleset, seed and team names
- list_matches: List matches
- match_state: Board, scores and per-agent state
- step: Advance a match one or more steps (a step is one turn or play start)
- run_play: Advance to the end of the current play
- run_game: Play the whole game out
- match_events: Read the event log, filterable by type
- list_configs: List rulesets
- list_results: Finished games, newest first
- game_rules: How the game works and how to read the board

The same seed and ruleset always produce the same game.`),
	)

	c.registerTools()
}

func matchIDProp() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Match ID",
	}
}

func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_match",
		Description: "Create a new match",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"config": map[string]any{
					"type":        "string",
					"description": "Ruleset ID (optional, see list_configs)",
				},
				"seed": map[string]any{
					"type":        "integer",
					"description": "Random seed (optional). Equal seeds replay equal games",
				},
				"home": map[string]any{"type": "string", "description": "Home team name"},
				"away": map[string]any{"type": "string", "description": "Away team name"},
			},
		},
	}, c.handleCreateMatch)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_matches",
		Description: "List matches",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"active": map[string]any{
					"type":        "boolean",
					"description": "Only matches that are not over",
				},
			},
		},
	}, c.handleListMatches)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "match_state",
		Description: "Get the board, scores and agents of a match",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"match_id": matchIDProp()},
			Required:   []string{"match_id"},
		},
	}, c.handleMatchState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "step",
		Description: "Advance a match by count steps",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"match_id": matchIDProp(),
				"count": map[string]any{
					"type":        "integer",
					"description": "Number of steps (default 1)",
				},
			},
			Required: []string{"match_id"},
		},
	}, c.handleStep)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run_play",
		Description: "Advance a match to the end of the current play",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"match_id": matchIDProp()},
			Required:   []string{"match_id"},
		},
	}, c.handleRunPlay)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "run_game",
		Description: "Play a match to the end",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{"match_id": matchIDProp()},
			Required:   []string{"match_id"},
		},
	}, c.handleRunGame)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "match_events",
		Description: "Read a match's event log",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"match_id": matchIDProp(),
				"page":     map[string]any{"type": "integer", "description": "Page number (default 1)"},
				"limit":    map[string]any{"type": "integer", "description": "Events per page (default 50)"},
				"order": map[string]any{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Oldest or newest first (default desc)",
				},
				"types": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Event types to keep, e.g. touchdown, block, injury",
				},
			},
			Required: []string{"match_id"},
		},
	}, c.handleMatchEvents)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_configs",
		Description: "List available rulesets",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]any{}},
	}, c.handleListConfigs)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_results",
		Description: "List finished games, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"limit": map[string]any{"type": "integer", "description": "Maximum results (default 20)"},
			},
		},
	}, c.handleListResults)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_rules",
		Description: "Explain the rules of Goblin Ball and the board legend",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]any{}},
	}, c.handleGameRules)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]any {
	args, _ := request.Params.Arguments.(map[string]any)
	if args == nil {
		return map[string]any{}
	}
	return args
}

// intArg reads a JSON number argument. ok is false when it is absent.
func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	}
	return 0, false
}

func matchPath(args map[string]any, suffix string) (string, error) {
	id, _ := args["match_id"].(string)
	if id == "" {
		return "", fmt.Errorf("match_id is required")
	}
	return "/api/matches/" + url.PathEscape(id) + suffix, nil
}

// Tool handlers

func (c *Client) handleCreateMatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	var body service.CreateMatchRequest
	body.Config, _ = args["config"].(string)
	body.Home, _ = args["home"].(string)
	body.Away, _ = args["away"].(string)
	if seed, ok := intArg(args, "seed"); ok {
		s := int64(seed)
		body.Seed = &s
	}

	var info service.MatchInfo
	if err := c.apiCall(ctx, "POST", "/api/matches", body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created match: %s\nConfig: %s\nSeed: %d\n%s vs %s\n",
		info.ID, info.Config, info.Seed, info.Home, info.Away)), nil
}

func (c *Client) handleListMatches(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/matches"
	if active, _ := arguments(request)["active"].(bool); active {
		path += "?active=true"
	}
	var response struct {
		Count   int                  `json:"count"`
		Matches []*service.MatchInfo `json:"matches"`
	}
	if err := c.apiCall(ctx, "GET", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Matches (%d):\n\n", response.Count)
	for _, m := range response.Matches {
		fmt.Fprintf(&b, "- %s\n", formatMatchLine(m))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleMatchState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := matchPath(arguments(request), "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var state service.StateResponse
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatState(&state)), nil
}

func (c *Client) handleStep(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := matchPath(args, "/step")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	count, ok := intArg(args, "count")
	if !ok || count < 1 {
		count = 1
	}
	return c.advance(ctx, path, map[string]int{"count": count})
}

func (c *Client) handleRunPlay(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := matchPath(arguments(request), "/play")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.advance(ctx, path, nil)
}

func (c *Client) handleRunGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := matchPath(arguments(request), "/game")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return c.advance(ctx, path, nil)
}

func (c *Client) advance(ctx context.Context, path string, body any) (*mcp.CallToolResult, error) {
	var resp service.StepResponse
	if err := c.apiCall(ctx, "POST", path, body, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatAdvance(&resp)), nil
}

func (c *Client) handleMatchEvents(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := matchPath(args, "/events")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", strconv.Itoa(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", strconv.Itoa(limit))
	}
	if order, _ := args["order"].(string); order != "" {
		params.Set("order", order)
	}
	if types, ok := args["types"].([]any); ok {
		for _, t := range types {
			if s, ok := t.(string); ok && s != "" {
				params.Add("type", s)
			}
		}
	}
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var page service.EventPage
	if err := c.apiCall(ctx, "GET", path, nil, &page); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatEvents(&page)), nil
}

func (c *Client) handleListConfigs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var configs []service.ConfigInfo
	if err := c.apiCall(ctx, "GET", "/api/configs", nil, &configs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Rulesets:\n\n")
	for _, cfg := range configs {
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Grid: %dx%d, Roster: %d, Plays: %d\n\n",
			cfg.ConfigID, cfg.Name, cfg.Description, cfg.GridWidth, cfg.GridHeight, cfg.RosterSize, cfg.PlaysPerGame)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListResults(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := "/api/results"
	if limit, ok := intArg(arguments(request), "limit"); ok && limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var results []service.MatchResult
	if err := c.apiCall(ctx, "GET", path, nil, &results); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Results (%d):\n\n", len(results))
	for _, r := range results {
		outcome := "tie"
		if !r.Tie {
			outcome = r.Winner + " wins"
		}
		fmt.Fprintf(&b, "- %s: %s %d - %d %s, %s (%d plays, seed %d, %s)\n",
			r.MatchID, r.Home, r.HomeScore, r.AwayScore, r.Away, outcome, r.Plays, r.Seed, r.Config)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameRules(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(rulesText), nil
}

const rulesText = `Goblin Ball - Rules

THE GAME:
A game is a fixed number of plays. Each play starts with agents in formation,
the offense's carrier holding the ball. Turns alternate between the teams.
Each agent spends its movement on moving, blocking or picking up the ball.

SCORING:
• Touchdown: the carrier reaches the opponent's end zone
• Field goal: the carrier attempts a kick from in range; misses end the play
The play also ends when the carrier is knocked down or the turn limit runs out.

COMBAT:
• Blocks compare strength plus a roll; losers are pushed or knocked down
• Knocked-down agents may be injured: dazed, minor, major or career ending
• Injured agents miss plays; career-ending injuries remove them for the game
• Moving past adjacent enemies risks a dodge roll

BOARD LEGEND:
• H / A  home / away agent
• h / a  knocked-down home / away agent
• *      ball carrier
• o      loose ball
• .      empty cell
• #      obstacle

Rows are printed top (y=0) to bottom. Positions read (x,y).`

// Formatting helpers

func formatMatchLine(m *service.MatchInfo) string {
	status := fmt.Sprintf("play %d turn %d", m.Play, m.Turn)
	if m.GameOver {
		status = "final"
	}
	return fmt.Sprintf("%s: %s %d - %d %s (%s, config %s, seed %d)",
		m.ID, m.Home, m.HomeScore, m.AwayScore, m.Away, status, m.Config, m.Seed)
}

func formatBoard(b *strings.Builder, s engine.Snapshot) {
	b.WriteString("   ")
	for x := 0; x < s.Width; x++ {
		fmt.Fprintf(b, "%d", x%10)
	}
	b.WriteString("\n")
	for y, row := range s.Board {
		fmt.Fprintf(b, "%2d %s\n", y, row)
	}
}

func formatTeam(b *strings.Builder, t engine.TeamView) {
	role := "defense"
	if t.Offense {
		role = "offense"
	}
	fmt.Fprintf(b, "%s (%s) score %d, %s\n", t.Name, t.Side, t.Score, role)
	for _, a := range t.Agents {
		var flags []string
		if a.HasBall {
			flags = append(flags, "ball")
		}
		if a.KnockedDown {
			flags = append(flags, "down")
		}
		if a.Injury != engine.InjuryNone {
			flags = append(flags, string(a.Injury))
		}
		if a.OutOfGame {
			flags = append(flags, "out")
		} else if a.Unavailable {
			flags = append(flags, fmt.Sprintf("misses %d", a.MissesPlays))
		}
		where := a.Position.String()
		if !a.OnField {
			where = "bench"
		}
		line := fmt.Sprintf("  %s %s mv %d/%d", a.Name, where, a.MovementRemaining, a.MaxMovement)
		if len(flags) > 0 {
			line += " [" + strings.Join(flags, ", ") + "]"
		}
		b.WriteString(line + "\n")
	}
}

func formatState(state *service.StateResponse) string {
	var b strings.Builder
	s := state.State
	if state.Match != nil {
		fmt.Fprintf(&b, "Match %s\n", formatMatchLine(state.Match))
	}
	fmt.Fprintf(&b, "Play %d, turn %d, live %v\n", s.Play, s.Turn, s.PlayLive)
	fmt.Fprintf(&b, "Ball: %s at %s\n\n", s.Ball.State, s.Ball.Position)
	formatBoard(&b, s)
	b.WriteString("\n")
	formatTeam(&b, s.Home)
	formatTeam(&b, s.Away)
	st := state.Stats
	fmt.Fprintf(&b, "\nPlays completed %d, turns %d, longest play %d turns\n",
		st.PlaysCompleted, st.TurnsPlayed, st.LongestPlay)
	return b.String()
}

// maxDescribed bounds how many events one tool response spells out.
const maxDescribed = 40

func formatAdvance(resp *service.StepResponse) string {
	var b strings.Builder
	s := resp.State
	fmt.Fprintf(&b, "Advanced %d steps, %d events\n", len(resp.Steps), len(resp.Events))
	events := resp.Events
	if len(events) > maxDescribed {
		fmt.Fprintf(&b, "(showing last %d)\n", maxDescribed)
		events = events[len(events)-maxDescribed:]
	}
	for _, e := range events {
		fmt.Fprintf(&b, "  #%d %s\n", e.Seq, e.Describe())
	}
	fmt.Fprintf(&b, "\nScore: %s %d - %d %s\n", s.Home.Name, s.Home.Score, s.Away.Score, s.Away.Name)
	if resp.GameOver && resp.Result != nil {
		r := resp.Result
		if r.Tie {
			fmt.Fprintf(&b, "GAME OVER: tie after %d plays\n", r.Plays)
		} else {
			fmt.Fprintf(&b, "GAME OVER: %s wins after %d plays\n", r.Winner, r.Plays)
		}
		return b.String()
	}
	fmt.Fprintf(&b, "Play %d, turn %d\n\n", s.Play, s.Turn)
	formatBoard(&b, s)
	return b.String()
}

func formatEvents(page *service.EventPage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Events page %d/%d (%d total)\n\n", page.Page, page.TotalPages, page.TotalEvents)
	for _, e := range page.Events {
		fmt.Fprintf(&b, "#%d p%d t%d %s\n", e.Seq, e.Play, e.Turn, e.Describe())
	}
	if page.HasNext {
		fmt.Fprintf(&b, "\nMore events on page %d\n", page.Page+1)
	}
	return b.String()
}
