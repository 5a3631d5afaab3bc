package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"github.com/wricardo/mcp-training/tankbattle/game/engine"
	"github.com/wricardo/mcp-training/tankbattle/game/service"
	"github.com/wricardo/mcp-training/tankbattle/game/session"
	"github.com/wricardo/mcp-training/tankbattle/game/strategy"
	"github.com/wricardo/mcp-training/tankbattle/logging"
	"github.com/wricardo/mcp-training/tankbattle/transport/websocket"
)

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	router  *mux.Router
	logger  *log.Logger
}

// NewServer creates a new API server. hub may be nil, which disables /ws.
func NewServer(gameService service.GameService, hub *websocket.Hub, logger *log.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{
		service: gameService,
		hub:     hub,
		router:  mux.NewRouter(),
		logger:  logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	// Matches
	api.HandleFunc("/matches", s.handleCreateMatch).Methods("POST")
	api.HandleFunc("/matches", s.handleListMatches).Methods("GET")
	api.HandleFunc("/matches/{id}", s.handleGetMatch).Methods("GET")
	api.HandleFunc("/matches/{id}", s.handleDeleteMatch).Methods("DELETE")

	// Turn operations
	api.HandleFunc("/matches/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/matches/{id}/turn", s.handlePlayTurn).Methods("POST")
	api.HandleFunc("/matches/{id}/turns", s.handlePlayTurns).Methods("POST")
	api.HandleFunc("/matches/{id}/run", s.handleRunMatch).Methods("POST")
	api.HandleFunc("/matches/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/matches/{id}/tanks/{tank}/cancel_backward", s.handleCancelBackward).Methods("POST")
	api.HandleFunc("/matches/{id}/history", s.handleGetHistory).Methods("GET")

	// Boards
	api.HandleFunc("/boards", s.handleListBoards).Methods("GET")
	api.HandleFunc("/boards", s.handleSaveBoard).Methods("POST")
	api.HandleFunc("/boards/{id}", s.handleGetBoard).Methods("GET")

	// Strategies and results
	api.HandleFunc("/strategies", s.handleListStrategies).Methods("GET")
	api.HandleFunc("/results", s.handleListResults).Methods("GET")
	api.HandleFunc("/standings", s.handleStandings).Methods("GET")

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service errors onto HTTP status codes
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case service.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, service.ErrMatchOver),
		errors.Is(err, service.ErrNoBackward),
		errors.Is(err, session.ErrSessionAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotManual),
		errors.Is(err, service.ErrInvalidTank),
		errors.Is(err, engine.ErrUnknownAction),
		errors.Is(err, engine.ErrInvalidBoard),
		errors.Is(err, strategy.ErrUnknownStrategy),
		errors.Is(err, session.ErrInvalidSessionID):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// Match handlers

func (s *Server) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var spec service.MatchSpec
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	match, err := s.service.CreateMatch(r.Context(), spec)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	s.logger.Info("match created", "match", match.ID, "board", match.Board,
		"player1", match.Player1.Strategy, "player2", match.Player2.Strategy)
	respondJSON(w, http.StatusCreated, match)
}

func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.service.ListMatches(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort") // "created", "accessed" (default)
	order := query.Get("order") // "asc", "desc" (default)
	if sortBy != "created" {
		sortBy = "accessed"
	}
	if order != "asc" {
		order = "desc"
	}

	sort.SliceStable(matches, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = matches[i].CreatedAt, matches[j].CreatedAt
		} else {
			ti, tj = matches[i].LastAccessedAt, matches[j].LastAccessedAt
		}
		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(matches)
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 && l < total {
		matches = matches[:l]
	}

	// State is available per match; keep the listing light
	for _, m := range matches {
		m.GameState = nil
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(matches),
		"total":   total,
		"matches": matches,
		"sort":    sortBy,
		"order":   order,
	})
}

func (s *Server) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	match, err := s.service.GetMatch(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, match)
}

func (s *Server) handleDeleteMatch(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["id"]

	if err := s.service.DeleteMatch(r.Context(), matchID); err != nil {
		respondServiceError(w, err)
		return
	}
	if s.hub != nil {
		s.hub.BroadcastEvent(matchID, websocket.EventDeleted, nil)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Match %s deleted", matchID),
	})
}

// Turn handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handlePlayTurn(w http.ResponseWriter, r *http.Request) {
	var actions service.ManualActions
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&actions); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	result, err := s.service.PlayTurn(r.Context(), mux.Vars(r)["id"], actions)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handlePlayTurns(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Turns int `json:"turns"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Turns < 1 {
		respondError(w, http.StatusBadRequest, "turns must be at least 1")
		return
	}

	result, err := s.service.PlayTurns(r.Context(), mux.Vars(r)["id"], req.Turns)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleRunMatch(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["id"]

	result, err := s.service.RunMatch(r.Context(), matchID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if result.Outcome != nil {
		s.logger.Info("match finished", "match", matchID, "result", string(result.Outcome.Result),
			"reason", string(result.Outcome.Reason), "turns", result.Turn)
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), matchID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if s.hub != nil {
		s.hub.BroadcastEvent(matchID, websocket.EventReset, engine.NewSnapshot(state))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Match reset successfully",
		"state":   state,
	})
}

func (s *Server) handleCancelBackward(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tankID, err := strconv.Atoi(vars["tank"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid tank id")
		return
	}

	state, err := s.service.CancelBackward(r.Context(), vars["id"], tankID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Backward move of tank %d cancelled", tankID),
		"state":   state,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	opts := service.HistoryOptions{
		Page:  1,
		Limit: service.DefaultHistoryLimit,
		Order: "desc",
	}

	query := r.URL.Query()
	if p, err := strconv.Atoi(query.Get("page")); err == nil && p > 0 {
		opts.Page = p
	}
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 {
		opts.Limit = l
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetHistory(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

// Board handlers

func (s *Server) handleListBoards(w http.ResponseWriter, r *http.Request) {
	boards, err := s.service.ListBoards(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, boards)
}

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	board, err := s.service.LoadBoard(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, board)
}

func (s *Server) handleSaveBoard(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID    string        `json:"id"`
		Board *engine.Board `json:"board"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Board == nil {
		respondError(w, http.StatusBadRequest, "board is required")
		return
	}

	id := req.ID
	if id == "" {
		id = req.Board.Name
	}
	if id == "" {
		respondError(w, http.StatusBadRequest, "board id is required")
		return
	}

	if err := s.service.SaveBoard(r.Context(), id, req.Board); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Board saved successfully",
		"board_id": id,
	})
}

// Strategy and result handlers

func (s *Server) handleListStrategies(w http.ResponseWriter, r *http.Request) {
	strategies, err := s.service.ListStrategies(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, strategies)
}

func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := s.service.ListResults(r.Context(), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}

func (s *Server) handleStandings(w http.ResponseWriter, r *http.Request) {
	standings, err := s.service.Standings(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	rows := make([]map[string]interface{}, 0, len(standings))
	for _, st := range standings {
		rows = append(rows, map[string]interface{}{
			"strategy": st.Strategy,
			"played":   st.Played,
			"wins":     st.Wins,
			"losses":   st.Losses,
			"ties":     st.Ties,
			"win_rate": st.WinRate(),
		})
	}
	respondJSON(w, http.StatusOK, rows)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket streaming disabled", http.StatusNotFound)
		return
	}

	matchID := r.URL.Query().Get("match")
	if matchID == "" {
		http.Error(w, "match parameter required", http.StatusBadRequest)
		return
	}

	match, err := s.service.GetMatch(r.Context(), matchID)
	if err != nil {
		http.Error(w, "Invalid match", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, match.ID)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
