// Command watch drives a match on a running server and prints its live event
// stream. It creates a match (or joins one with --match), subscribes to /ws,
// then advances the match over REST one step at a time until the game ends.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"

	"github.com/Anzelak/goblin-ball/game/engine"
	"github.com/Anzelak/goblin-ball/game/service"
	ws "github.com/Anzelak/goblin-ball/transport/websocket"
)

// Client talks to the REST API.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
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
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s %s failed: %s - %s", method, path, resp.Status, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *Client) CreateMatch(ctx context.Context, req service.CreateMatchRequest) (*service.MatchInfo, error) {
	var info service.MatchInfo
	if err := c.do(ctx, http.MethodPost, "/api/matches", req, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) GetMatch(ctx context.Context, id string) (*service.MatchInfo, error) {
	var info service.MatchInfo
	if err := c.do(ctx, http.MethodGet, "/api/matches/"+url.PathEscape(id), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (c *Client) Step(ctx context.Context, id string) (*service.StepResponse, error) {
	var resp service.StepResponse
	if err := c.do(ctx, http.MethodPost, "/api/matches/"+url.PathEscape(id)+"/step", map[string]int{"count": 1}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StreamURL is the websocket address for a match.
func (c *Client) StreamURL(id string) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"match": {id}}.Encode()
	return u.String(), nil
}

// Dial subscribes to a match's event stream.
func (c *Client) Dial(ctx context.Context, id string) (*websocket.Conn, error) {
	wsURL, err := c.StreamURL(id)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket: %w", err)
	}
	return conn, nil
}

// Watch prints every event message from conn until the game ends or the
// connection closes. Only event types in only are printed when it is not
// empty.
func Watch(conn *websocket.Conn, w io.Writer, only map[engine.EventType]bool) error {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		var msg ws.Message
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Kind != ws.KindEvent || msg.Event == nil {
			continue
		}
		e := msg.Event
		if len(only) == 0 || only[e.Type] {
			fmt.Fprintf(w, "#%d p%d t%d %s\n", e.Seq, e.Play, e.Turn, msg.Text)
		}
		if e.Type == engine.EventGameEnd {
			return nil
		}
	}
}

// Drive steps the match until it is over, pausing delay between steps.
func Drive(ctx context.Context, c *Client, id string, delay time.Duration) (*service.StepResponse, error) {
	for {
		resp, err := c.Step(ctx, id)
		if err != nil {
			return nil, err
		}
		if resp.GameOver {
			return resp, nil
		}
		if delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	c := NewClient(cmd.String("url"))
	w := cmd.Root().Writer

	var info *service.MatchInfo
	var err error
	if id := cmd.String("match"); id != "" {
		info, err = c.GetMatch(ctx, id)
	} else {
		req := service.CreateMatchRequest{Config: cmd.String("config"), Home: cmd.String("home"), Away: cmd.String("away")}
		if cmd.IsSet("seed") {
			seed := cmd.Int64("seed")
			req.Seed = &seed
		}
		info, err = c.CreateMatch(ctx, req)
	}
	if err != nil {
		return err
	}
	if info.GameOver {
		return fmt.Errorf("match %s is already over", info.ID)
	}
	fmt.Fprintf(w, "Watching match %s: %s vs %s (config %s, seed %d)\n", info.ID, info.Home, info.Away, info.Config, info.Seed)

	conn, err := c.Dial(ctx, info.ID)
	if err != nil {
		return err
	}
	defer conn.Close()

	only := map[engine.EventType]bool{}
	for _, t := range cmd.StringSlice("type") {
		only[engine.EventType(t)] = true
	}
	watched := make(chan error, 1)
	go func() { watched <- Watch(conn, w, only) }()

	// Give the hub a moment to register the connection.
	time.Sleep(100 * time.Millisecond)

	final, err := Drive(ctx, c, info.ID, cmd.Duration("delay"))
	if err != nil {
		return err
	}

	select {
	case err := <-watched:
		if err != nil {
			fmt.Fprintf(cmd.Root().ErrWriter, "stream ended: %v\n", err)
		}
	case <-time.After(5 * time.Second):
		fmt.Fprintln(cmd.Root().ErrWriter, "stream did not report the end of the game")
	}

	s := final.State
	fmt.Fprintf(w, "Final: %s %d - %d %s\n", s.Home.Name, s.Home.Score, s.Away.Score, s.Away.Name)
	return nil
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Drive a match step by step and print its live event stream",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Server URL"},
			&cli.StringFlag{Name: "match", Usage: "Watch an existing match instead of creating one"},
			&cli.StringFlag{Name: "config", Usage: "Ruleset for a new match"},
			&cli.Int64Flag{Name: "seed", Usage: "Seed for a new match"},
			&cli.StringFlag{Name: "home", Usage: "Home team name"},
			&cli.StringFlag{Name: "away", Usage: "Away team name"},
			&cli.DurationFlag{Name: "delay", Value: 250 * time.Millisecond, Usage: "Pause between steps"},
			&cli.StringSliceFlag{Name: "type", Usage: "Only print these event types"},
		},
		Action: run,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newApp().Run(ctx, os.Args); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
