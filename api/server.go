package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Anzelak/goblin-ball/game/config"
	"github.com/Anzelak/goblin-ball/game/engine"
	"github.com/Anzelak/goblin-ball/game/service"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Spectators upgrades /ws requests into a live stream for one match.
type Spectators interface {
	ServeWS(w http.ResponseWriter, r *http.Request, matchID string)
}

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     Spectators
	router  *mux.Router
	logger  *zap.Logger
	static  string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithStatic serves files from dir for every path the API does not claim.
func WithStatic(dir string) Option {
	return func(s *Server) { s.static = dir }
}

// NewServer creates a new API server. hub may be nil, which disables /ws.
func NewServer(gameService service.GameService, hub Spectators, opts ...Option) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Matches
	api.HandleFunc("/matches", s.handleCreateMatch).Methods("POST")
	api.HandleFunc("/matches", s.handleListMatches).Methods("GET")
	api.HandleFunc("/matches/{id}", s.handleGetMatch).Methods("GET")
	api.HandleFunc("/matches/{id}", s.handleDeleteMatch).Methods("DELETE")

	// Play
	api.HandleFunc("/matches/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/matches/{id}/step", s.handleStep).Methods("POST")
	api.HandleFunc("/matches/{id}/play", s.handleRunPlay).Methods("POST")
	api.HandleFunc("/matches/{id}/game", s.handleRunGame).Methods("POST")
	api.HandleFunc("/matches/{id}/events", s.handleGetEvents).Methods("GET")

	// Rulesets
	api.HandleFunc("/configs", s.handleListConfigs).Methods("GET")
	api.HandleFunc("/configs", s.handleSaveConfig).Methods("POST")
	api.HandleFunc("/configs/{name}", s.handleGetConfig).Methods("GET")

	api.HandleFunc("/results", s.handleListResults).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)

	if s.static != "" {
		s.router.PathPrefix("/").Handler(http.FileServer(http.Dir(s.static)))
	}
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)),
		)
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusFor maps service and config errors to HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, config.ErrConfigNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSessionExists), errors.Is(err, service.ErrGameOver):
		return http.StatusConflict
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, engine.ErrInvalidRules):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoStore):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	respondError(w, status, err.Error())
}

// decodeBody decodes an optional JSON body. An empty body leaves v as is.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// Match handlers

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req service.CreateMatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.service.CreateMatch(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info("match created via api", zap.String("match", info.ID), zap.String("config", info.Config))
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.service.ListMatches(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	query := r.URL.Query()
	if query.Get("active") == "true" {
		active := matches[:0]
		for _, m := range matches {
			if !m.GameOver {
				active = append(active, m)
			}
		}
		matches = active
	}
	total := len(matches)
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(matches) {
			matches = matches[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(matches),
		"total":   total,
		"matches": matches,
	})
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetMatch(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.service.DeleteMatch(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Match %s deleted", id),
	})
}

// Play handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, strings.Join(state.State.Board, "\n"))
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int `json:"count"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if c := r.URL.Query().Get("count"); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "count must be a positive integer")
			return
		}
		req.Count = n
	}
	id := mux.Vars(r)["id"]
	resp, err := s.service.Step(r.Context(), id, req.Count)
	s.respondAdvance(w, r, "step", id, resp, err)
}

func (s *Server) handleRunPlay(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	resp, err := s.service.RunPlay(r.Context(), id)
	s.respondAdvance(w, r, "play", id, resp, err)
}

func (s *Server) handleRunGame(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	resp, err := s.service.RunGame(r.Context(), id)
	s.respondAdvance(w, r, "game", id, resp, err)
}

func (s *Server) respondAdvance(w http.ResponseWriter, r *http.Request, op, id string, resp *service.StepResponse, err error) {
	if err != nil {
		s.fail(w, r, err)
		return
	}
	st := resp.State
	s.logger.Info("advance",
		zap.String("op", op),
		zap.String("match", id),
		zap.Int("steps", len(resp.Steps)),
		zap.Int("events", len(resp.Events)),
		zap.Int("play", st.Play),
		zap.Int("turn", st.Turn),
		zap.String("score", fmt.Sprintf("%d-%d", st.Home.Score, st.Away.Score)),
		zap.Bool("game_over", resp.GameOver),
	)
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	q := service.EventQuery{Page: 1, Limit: 50, Order: "desc"}
	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			q.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			q.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		q.Order = order
	}
	for _, t := range query["type"] {
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				q.Types = append(q.Types, engine.EventType(part))
			}
		}
	}

	page, err := s.service.GetEvents(r.Context(), mux.Vars(r)["id"], q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if query.Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, e := range page.Events {
			fmt.Fprintf(w, "#%d p%d t%d %s\n", e.Seq, e.Play, e.Turn, e.Describe())
		}
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// Ruleset handlers

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.service.ListConfigs(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	rs, err := s.service.LoadConfig(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rs)
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
		service.Ruleset
	}
	req.Rules = engine.DefaultRules()
	if r.Body == nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "Config name is required")
		return
	}
	id := req.ID
	if id == "" {
		id = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(req.Name), " ", "_"))
	}

	if err := s.service.SaveConfig(r.Context(), id, &req.Ruleset); err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"message":   "Configuration saved successfully",
		"config_id": id,
	})
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	results, err := s.service.ListResults(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "live updates are disabled", http.StatusServiceUnavailable)
		return
	}
	matchID := r.URL.Query().Get("match")
	if matchID == "" {
		http.Error(w, "match parameter required", http.StatusBadRequest)
		return
	}
	if _, err := s.service.GetMatch(r.Context(), matchID); err != nil {
		http.Error(w, "Invalid match", http.StatusNotFound)
		return
	}
	s.hub.ServeWS(w, r, matchID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
