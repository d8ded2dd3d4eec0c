// Command goblinball runs the goblin-ball match server and its tools.
//
// Commands:
//
//	serve      HTTP server with the REST API, the /ws event stream and an /mcp endpoint
//	mcp        MCP over stdio, against a running server or an internal one
//	simulate   play one game headless and print the result
//	validate   schema-check rules files
//	replay     print a compressed event log
//
// Settings come from GOBLINBALL_* environment variables (and a .env file);
// flags win over both.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"

	"github.com/Anzelak/goblin-ball/api"
	"github.com/Anzelak/goblin-ball/game/config"
	"github.com/Anzelak/goblin-ball/game/engine"
	"github.com/Anzelak/goblin-ball/game/match"
	"github.com/Anzelak/goblin-ball/game/replay"
	"github.com/Anzelak/goblin-ball/game/service"
	"github.com/Anzelak/goblin-ball/game/session"
	"github.com/Anzelak/goblin-ball/game/store"
	"github.com/Anzelak/goblin-ball/transport/mcp"
	"github.com/Anzelak/goblin-ball/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Goblin Ball Server"
)

func main() {
	// A missing .env file is fine.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "goblinball",
		Usage:   AppName,
		Version: Version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			simulateCommand(),
			validateCommand(),
			replayCommand(),
		},
		DefaultCommand: "serve",
	}
}

// globalFlags override config.Settings for every command.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "host", Usage: "HTTP server host"},
		&cli.IntFlag{Name: "port", Usage: "HTTP server port"},
		&cli.StringFlag{Name: "config-dir", Usage: "Directory containing rules files"},
		&cli.StringFlag{Name: "default-config", Usage: "Ruleset used when a match names none"},
		&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
	}
}

// loadSettings reads the environment and lays the flags that were set on top.
func loadSettings(cmd *cli.Command) (config.Settings, error) {
	s, err := config.LoadSettings(nil)
	if err != nil {
		return s, err
	}
	if cmd.IsSet("host") {
		s.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		s.Port = cmd.Int("port")
	}
	if cmd.IsSet("config-dir") {
		s.ConfigDir = cmd.String("config-dir")
	}
	if cmd.IsSet("default-config") {
		s.DefaultConfig = cmd.String("default-config")
	}
	if cmd.IsSet("debug") {
		s.Debug = cmd.Bool("debug")
	}
	if s.Port <= 0 || s.Port > 65535 {
		return s, fmt.Errorf("invalid port %d", s.Port)
	}
	return s, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// stderrLogger logs to stderr so stdout stays free for command output and the
// MCP stdio stream.
func stderrLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// services is everything the HTTP transports share.
type services struct {
	game        service.GameService
	sessions    *session.Manager
	persistence *session.FilePersistence
	configs     *config.Manager
	store       *store.SQLite
	hub         *websocket.Hub
}

func (s *services) Close() error {
	var errs []error
	if err := s.sessions.SaveAllSessions(); err != nil {
		errs = append(errs, err)
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}

// initializeServices wires configs, sessions, the results store, event logs
// and the websocket hub into one game service.
func initializeServices(settings config.Settings, logger *zap.Logger) (*services, error) {
	configManager, err := config.NewManager(settings.ConfigDir,
		config.WithDefaultName(settings.DefaultConfig),
		config.WithEnvOverrides(nil),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create config manager: %w", err)
	}

	persistence, err := session.NewFilePersistence(settings.SessionDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create session persistence: %w", err)
	}
	sessionManager := session.NewManagerWithPersistence(persistence, session.WithLogger(logger))

	if err := sessionManager.LoadPersistedSessions(); err != nil {
		logger.Warn("failed to load persisted sessions", zap.Error(err))
	}

	hub := websocket.NewHub(websocket.WithLogger(logger))
	opts := []service.Option{
		service.WithLogger(logger),
		service.WithBroadcaster(hub),
	}

	var results *store.SQLite
	if settings.DatabasePath != "" {
		results, err = store.Open(settings.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open results store: %w", err)
		}
		opts = append(opts, service.WithStore(results))
	}
	if settings.ReplayDir != "" {
		if err := os.MkdirAll(settings.ReplayDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create replay directory: %w", err)
		}
		opts = append(opts, service.WithEventLogs(replay.Opener(settings.ReplayDir)))
	}

	return &services{
		game:        service.NewGameService(sessionManager, configManager, opts...),
		sessions:    sessionManager,
		persistence: persistence,
		configs:     configManager,
		store:       results,
		hub:         hub,
	}, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server with REST API, WebSocket and MCP endpoint",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "ngrok", Usage: "Enable ngrok tunnel"},
			&cli.StringFlag{Name: "ngrok-auth", Usage: "Ngrok auth token (or NGROK_AUTHTOKEN)"},
			&cli.StringFlag{Name: "ngrok-domain", Usage: "Custom ngrok domain (optional)"},
			&cli.StringFlag{Name: "static", Usage: "Directory of static files served at /"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if cmd.IsSet("ngrok") {
				settings.Ngrok = cmd.Bool("ngrok")
			}
			if cmd.IsSet("ngrok-auth") {
				settings.NgrokAuth = cmd.String("ngrok-auth")
			}
			if cmd.IsSet("ngrok-domain") {
				settings.NgrokDomain = cmd.String("ngrok-domain")
			}
			if settings.NgrokAuth == "" {
				settings.NgrokAuth = os.Getenv("NGROK_AUTH_TOKEN")
			}
			logger, err := newLogger(settings.Debug)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return runHTTPServer(ctx, settings, cmd.String("static"), logger)
		},
	}
}

// newRouter mounts the API and the /mcp endpoint on one mux.
func newRouter(svcs *services, baseURL, static string, logger *zap.Logger) http.Handler {
	apiOpts := []api.Option{api.WithLogger(logger)}
	if static != "" {
		apiOpts = append(apiOpts, api.WithStatic(static))
	}
	apiServer := api.NewServer(svcs.game, svcs.hub, apiOpts...)
	mcpClient := mcp.NewClient(baseURL)

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpClient.GetMCPServer().HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	})
	return mainRouter
}

// runHTTPServer serves until ctx is canceled. With ngrok enabled it also
// serves the same handler through a public tunnel.
func runHTTPServer(ctx context.Context, settings config.Settings, static string, logger *zap.Logger) error {
	svcs, err := initializeServices(settings, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer func() {
		if err := svcs.Close(); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); svcs.hub.Run(ctx) }()
	go func() { defer wg.Done(); sessionCleanupRoutine(ctx, svcs.sessions, settings.SessionTTL, logger) }()
	go func() { defer wg.Done(); filesystemSyncRoutine(ctx, svcs.sessions, svcs.persistence, logger) }()

	addr := net.JoinHostPort(settings.Host, fmt.Sprint(settings.Port))
	handler := newRouter(svcs, "http://"+addr, static, logger)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			zap.String("addr", addr),
			zap.String("api", "http://"+addr+"/api"),
			zap.String("ws", "ws://"+addr+"/ws?match=<match_id>"),
			zap.String("mcp", "http://"+addr+"/mcp"),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	if settings.Ngrok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runNgrok(ctx, settings, handler, logger)
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errc:
		cancel()
		wg.Wait()
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", zap.Error(err))
	}

	wg.Wait()
	logger.Info("server stopped")
	return nil
}

func runNgrok(ctx context.Context, settings config.Settings, handler http.Handler, logger *zap.Logger) {
	if settings.NgrokAuth == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN)")
		return
	}

	var tunnel ngrokConfig.Tunnel
	if settings.NgrokDomain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(settings.NgrokDomain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(settings.NgrokAuth))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}
	go func() {
		<-ctx.Done()
		tun.Close()
	}()

	url := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", url),
		zap.String("api", url+"/api"),
		zap.String("mcp", url+"/mcp"),
	)
	if err := http.Serve(tun, handler); err != nil && ctx.Err() == nil {
		logger.Error("ngrok server", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

// sessionCleanupRoutine drops sessions idle for longer than ttl.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, ttl time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupExpiredSessions(ttl); removed > 0 {
				logger.Info("cleaned up expired sessions", zap.Int("removed", removed))
			}
		}
	}
}

// filesystemSyncRoutine removes sessions from memory when their files are
// deleted from the session directory.
func filesystemSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, logger *zap.Logger) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		pruned := syncWithFilesystem(manager, persistence, logger)
		if pruned > 0 {
			logger.Info("filesystem sync pruned orphaned sessions", zap.Int("pruned", pruned))
		}
	}
}

func syncWithFilesystem(manager *session.Manager, persistence session.SessionPersistence, logger *zap.Logger) int {
	if persistence == nil {
		return 0
	}
	pruned := 0
	for _, s := range manager.List() {
		if persistence.Exists(s.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(s.ID); err == nil {
			pruned++
			logger.Debug("pruned session from memory", zap.String("session", s.ID))
		}
	}
	return pruned
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run an MCP stdio server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "REST API to proxy (default http://<host>:<port>)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			logger, err := stderrLogger(settings.Debug)
			if err != nil {
				return err
			}
			defer logger.Sync()

			externalURL := cmd.String("url")
			if externalURL == "" {
				externalURL = "http://" + net.JoinHostPort(settings.Host, fmt.Sprint(settings.Port))
			}
			return runStdioMCP(ctx, settings, externalURL, logger)
		},
	}
}

// runStdioMCP reuses the API at externalURL when it answers. Otherwise it
// starts an internal API on a random loopback port and proxies to that.
func runStdioMCP(ctx context.Context, settings config.Settings, externalURL string, logger *zap.Logger) error {
	baseURL := externalURL
	if !apiAvailable(ctx, externalURL) {
		logger.Info("no external API server found, starting internal one", zap.String("checked", externalURL))

		svcs, err := initializeServices(settings, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer svcs.Close()
		go svcs.hub.Run(ctx)

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = "http://" + listener.Addr().String()

		httpServer := &http.Server{Handler: api.NewServer(svcs.game, svcs.hub, api.WithLogger(logger))}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server", zap.Error(err))
			}
		}()
		defer httpServer.Close()
	}

	logger.Info("MCP stdio server ready", zap.String("api", baseURL))
	return server.ServeStdio(mcp.NewClient(baseURL).GetMCPServer())
}

func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "Play one game headless and print the result",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "seed", Usage: "Random seed (default: clock)"},
			&cli.StringFlag{Name: "config", Usage: "Ruleset name (default: the default ruleset)"},
			&cli.StringFlag{Name: "home", Value: "Home", Usage: "Home team name"},
			&cli.StringFlag{Name: "away", Value: "Away", Usage: "Away team name"},
			&cli.BoolFlag{Name: "events", Usage: "Print every event"},
			&cli.StringFlag{Name: "replay", Usage: "Write the event log to this file"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			logger, err := stderrLogger(settings.Debug)
			if err != nil {
				return err
			}
			defer logger.Sync()

			configs, err := config.NewManager(settings.ConfigDir,
				config.WithDefaultName(settings.DefaultConfig),
				config.WithEnvOverrides(nil),
			)
			if err != nil {
				return err
			}
			rs := configs.GetDefault()
			if name := cmd.String("config"); name != "" {
				if rs, err = configs.LoadConfig(name); err != nil {
					return err
				}
			}
			seed := time.Now().UnixNano()
			if cmd.IsSet("seed") {
				seed = cmd.Int64("seed")
			}

			return simulate(ctx, cmd.Root().Writer, rs, simulateOptions{
				seed:       seed,
				home:       cmd.String("home"),
				away:       cmd.String("away"),
				events:     cmd.Bool("events"),
				replayPath: cmd.String("replay"),
				logger:     logger,
			})
		},
	}
}

type simulateOptions struct {
	seed       int64
	home, away string
	events     bool
	replayPath string
	logger     *zap.Logger
}

func simulate(ctx context.Context, w io.Writer, rs *service.Ruleset, opts simulateOptions) error {
	c, err := match.New(rs.Rules,
		match.WithSeed(opts.seed),
		match.WithTeams(opts.home, opts.away),
		match.WithLogger(opts.logger),
	)
	if err != nil {
		return err
	}
	result, err := c.RunGame(ctx)
	if err != nil {
		return err
	}

	events := c.Events()
	if opts.events {
		for _, e := range events {
			fmt.Fprintf(w, "#%d p%d t%d %s\n", e.Seq, e.Play, e.Turn, e.Describe())
		}
		fmt.Fprintln(w)
	}
	if opts.replayPath != "" {
		if err := writeReplay(opts.replayPath, events); err != nil {
			return err
		}
	}

	snap := c.Snapshot()
	stats := c.Stats()
	fmt.Fprintf(w, "Ruleset: %s\nSeed: %d\n", rs.Name, opts.seed)
	fmt.Fprintf(w, "Final: %s %d - %d %s\n", snap.Home.Name, result.HomeScore, result.AwayScore, snap.Away.Name)
	if result.Tie {
		fmt.Fprintln(w, "Result: tie")
	} else {
		fmt.Fprintf(w, "Winner: %s\n", result.Winner)
	}
	fmt.Fprintf(w, "Plays: %d, turns: %d, longest play: %d turns (play %d)\n",
		result.Plays, stats.TurnsPlayed, stats.LongestPlay, stats.LongestPlayNum)
	fmt.Fprintf(w, "Events: %d\n", len(events))
	return nil
}

func writeReplay(path string, events []engine.Event) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	lw, err := replay.Create(path)
	if err != nil {
		return err
	}
	if err := lw.Append(events); err != nil {
		lw.Close()
		return err
	}
	return lw.Close()
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check rules files against the schema and rule constraints",
		ArgsUsage: "<file>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "Print a summary of each valid ruleset"},
			&cli.BoolFlag{Name: "strict", Usage: "Treat playability warnings as failures"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				return errors.New("validate: at least one file is required")
			}
			w := cmd.Root().Writer
			failed := 0
			for _, f := range files {
				data, err := os.ReadFile(f)
				var rs *service.Ruleset
				if err == nil {
					rs, err = config.ParseDocument(data)
				}
				if err != nil {
					failed++
					fmt.Fprintf(w, "FAIL %s: %v\n", f, err)
					continue
				}
				res := config.Lint(rs)
				if !res.Valid() || (cmd.Bool("strict") && len(res.Warnings) > 0) {
					failed++
					fmt.Fprintf(w, "FAIL %s\n", f)
				} else {
					fmt.Fprintf(w, "ok   %s\n", f)
				}
				for _, e := range res.Errors {
					fmt.Fprintf(w, "  error: %s\n", e)
				}
				for _, warning := range res.Warnings {
					fmt.Fprintf(w, "  warn: %s\n", warning)
				}
				if cmd.Bool("verbose") {
					for _, line := range res.Info {
						fmt.Fprintf(w, "  %s\n", line)
					}
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files invalid", failed, len(files))
			}
			return nil
		},
	}
}

func replayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Print a compressed event log",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "type", Usage: "Only print these event types"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return errors.New("replay: exactly one file is required")
			}
			events, err := replay.ReadFile(cmd.Args().First())
			if err != nil {
				return err
			}
			keep := map[string]bool{}
			for _, t := range cmd.StringSlice("type") {
				keep[t] = true
			}
			w := cmd.Root().Writer
			for _, e := range events {
				if len(keep) > 0 && !keep[string(e.Type)] {
					continue
				}
				fmt.Fprintf(w, "#%d p%d t%d %s\n", e.Seq, e.Play, e.Turn, e.Describe())
			}
			return nil
		},
	}
}
