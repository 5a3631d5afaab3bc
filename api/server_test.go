package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mcp-training/tankbattle/game/config"
	"github.com/wricardo/mcp-training/tankbattle/game/engine"
	"github.com/wricardo/mcp-training/tankbattle/game/service"
	"github.com/wricardo/mcp-training/tankbattle/game/session"
	"github.com/wricardo/mcp-training/tankbattle/game/strategy"
)

// MockGameService implements service.GameService for testing
type MockGameService struct {
	CreateMatchFunc    func(ctx context.Context, spec service.MatchSpec) (*service.MatchInfo, error)
	GetMatchFunc       func(ctx context.Context, matchID string) (*service.MatchInfo, error)
	ListMatchesFunc    func(ctx context.Context) ([]*service.MatchInfo, error)
	DeleteMatchFunc    func(ctx context.Context, matchID string) error
	PlayTurnFunc       func(ctx context.Context, matchID string, actions service.ManualActions) (*service.TurnResult, error)
	PlayTurnsFunc      func(ctx context.Context, matchID string, turns int) (*service.TurnResult, error)
	RunMatchFunc       func(ctx context.Context, matchID string) (*service.TurnResult, error)
	ResetFunc          func(ctx context.Context, matchID string) (*engine.GameState, error)
	CancelBackwardFunc func(ctx context.Context, matchID string, tankID int) (*engine.GameState, error)
	GetGameStateFunc   func(ctx context.Context, matchID string) (*engine.GameState, error)
	GetHistoryFunc     func(ctx context.Context, matchID string, opts service.HistoryOptions) (*service.HistoryResponse, error)
	ListBoardsFunc     func(ctx context.Context) ([]*service.BoardInfo, error)
	LoadBoardFunc      func(ctx context.Context, boardID string) (*engine.Board, error)
	SaveBoardFunc      func(ctx context.Context, boardID string, board *engine.Board) error
	ListResultsFunc    func(ctx context.Context, limit int) ([]service.MatchResult, error)
	StandingsFunc      func(ctx context.Context) ([]service.Standing, error)
}

func (m *MockGameService) CreateMatch(ctx context.Context, spec service.MatchSpec) (*service.MatchInfo, error) {
	if m.CreateMatchFunc != nil {
		return m.CreateMatchFunc(ctx, spec)
	}
	return &service.MatchInfo{ID: "test-match", Board: spec.Board, CreatedAt: time.Now()}, nil
}

func (m *MockGameService) GetMatch(ctx context.Context, matchID string) (*service.MatchInfo, error) {
	if m.GetMatchFunc != nil {
		return m.GetMatchFunc(ctx, matchID)
	}
	return &service.MatchInfo{ID: matchID, Board: "classic"}, nil
}

func (m *MockGameService) ListMatches(ctx context.Context) ([]*service.MatchInfo, error) {
	if m.ListMatchesFunc != nil {
		return m.ListMatchesFunc(ctx)
	}
	return []*service.MatchInfo{}, nil
}

func (m *MockGameService) DeleteMatch(ctx context.Context, matchID string) error {
	if m.DeleteMatchFunc != nil {
		return m.DeleteMatchFunc(ctx, matchID)
	}
	return nil
}

func (m *MockGameService) PlayTurn(ctx context.Context, matchID string, actions service.ManualActions) (*service.TurnResult, error) {
	if m.PlayTurnFunc != nil {
		return m.PlayTurnFunc(ctx, matchID, actions)
	}
	return &service.TurnResult{MatchID: matchID, TurnsPlayed: 1, Turn: 1}, nil
}

func (m *MockGameService) PlayTurns(ctx context.Context, matchID string, turns int) (*service.TurnResult, error) {
	if m.PlayTurnsFunc != nil {
		return m.PlayTurnsFunc(ctx, matchID, turns)
	}
	return &service.TurnResult{MatchID: matchID, TurnsPlayed: turns, Turn: turns}, nil
}

func (m *MockGameService) RunMatch(ctx context.Context, matchID string) (*service.TurnResult, error) {
	if m.RunMatchFunc != nil {
		return m.RunMatchFunc(ctx, matchID)
	}
	return &service.TurnResult{MatchID: matchID, GameOver: true}, nil
}

func (m *MockGameService) CancelBackward(ctx context.Context, matchID string, tankID int) (*engine.GameState, error) {
	if m.CancelBackwardFunc != nil {
		return m.CancelBackwardFunc(ctx, matchID, tankID)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) Reset(ctx context.Context, matchID string) (*engine.GameState, error) {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, matchID)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) GetGameState(ctx context.Context, matchID string) (*engine.GameState, error) {
	if m.GetGameStateFunc != nil {
		return m.GetGameStateFunc(ctx, matchID)
	}
	return &engine.GameState{}, nil
}

func (m *MockGameService) GetHistory(ctx context.Context, matchID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
	if m.GetHistoryFunc != nil {
		return m.GetHistoryFunc(ctx, matchID, opts)
	}
	return &service.HistoryResponse{Entries: []engine.ActionLogEntry{}, Page: opts.Page, PageSize: opts.Limit}, nil
}

func (m *MockGameService) ListBoards(ctx context.Context) ([]*service.BoardInfo, error) {
	if m.ListBoardsFunc != nil {
		return m.ListBoardsFunc(ctx)
	}
	return []*service.BoardInfo{}, nil
}

func (m *MockGameService) LoadBoard(ctx context.Context, boardID string) (*engine.Board, error) {
	if m.LoadBoardFunc != nil {
		return m.LoadBoardFunc(ctx, boardID)
	}
	return &engine.Board{Name: boardID}, nil
}

func (m *MockGameService) SaveBoard(ctx context.Context, boardID string, board *engine.Board) error {
	if m.SaveBoardFunc != nil {
		return m.SaveBoardFunc(ctx, boardID, board)
	}
	return nil
}

func (m *MockGameService) ListStrategies(ctx context.Context) ([]service.StrategyInfo, error) {
	return []service.StrategyInfo{{Name: "idle", Description: "never acts"}}, nil
}

func (m *MockGameService) ListResults(ctx context.Context, limit int) ([]service.MatchResult, error) {
	if m.ListResultsFunc != nil {
		return m.ListResultsFunc(ctx, limit)
	}
	return []service.MatchResult{}, nil
}

func (m *MockGameService) Standings(ctx context.Context) ([]service.Standing, error) {
	if m.StandingsFunc != nil {
		return m.StandingsFunc(ctx)
	}
	return []service.Standing{}, nil
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
}

func TestServer_CreateMatch(t *testing.T) {
	var got service.MatchSpec
	mock := &MockGameService{
		CreateMatchFunc: func(ctx context.Context, spec service.MatchSpec) (*service.MatchInfo, error) {
			got = spec
			return &service.MatchInfo{ID: "ab12", Board: spec.Board, Player1: spec.Player1, Player2: spec.Player2}, nil
		},
	}
	server := NewServer(mock, nil, nil)

	rr := doRequest(t, server, "POST", "/api/matches", map[string]interface{}{
		"board":   "classic",
		"player1": map[string]interface{}{"strategy": "hunter"},
		"player2": map[string]interface{}{"strategy": "random", "options": map[string]interface{}{"seed": 7}},
		"rules":   map[string]interface{}{"max_turns": 50},
	})

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if got.Board != "classic" || got.Player1.Strategy != "hunter" || got.Player2.Options.Seed != 7 {
		t.Errorf("Unexpected spec: %+v", got)
	}
	if got.Rules == nil || got.Rules.MaxTurns == nil || *got.Rules.MaxTurns != 50 {
		t.Errorf("Expected rules override, got %+v", got.Rules)
	}

	var info service.MatchInfo
	decode(t, rr, &info)
	if info.ID != "ab12" {
		t.Errorf("Expected match ab12, got %s", info.ID)
	}
}

func TestServer_CreateMatchEmptyBody(t *testing.T) {
	server := NewServer(&MockGameService{}, nil, nil)

	req := httptest.NewRequest("POST", "/api/matches", nil)
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Errorf("Expected status 201, got %d", rr.Code)
	}
}

func TestServer_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"match not found", fmt.Errorf("match not found: %w", service.ErrMatchNotFound), http.StatusNotFound},
		{"board not found", service.ErrBoardNotFound, http.StatusNotFound},
		{"match over", service.ErrMatchOver, http.StatusConflict},
		{"duplicate id", session.ErrSessionAlreadyExists, http.StatusConflict},
		{"not manual", service.ErrNotManual, http.StatusBadRequest},
		{"unknown action", fmt.Errorf("%w %q", engine.ErrUnknownAction, "fly"), http.StatusBadRequest},
		{"unknown strategy", strategy.ErrUnknownStrategy, http.StatusBadRequest},
		{"invalid board", engine.ErrInvalidBoard, http.StatusBadRequest},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockGameService{
				PlayTurnFunc: func(ctx context.Context, matchID string, actions service.ManualActions) (*service.TurnResult, error) {
					return nil, tt.err
				},
			}
			server := NewServer(mock, nil, nil)

			rr := doRequest(t, server, "POST", "/api/matches/ab12/turn", service.ManualActions{Player1: engine.Shoot})
			if rr.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, rr.Code)
			}
			var body map[string]string
			decode(t, rr, &body)
			if body["error"] == "" {
				t.Error("Expected error message in body")
			}
		})
	}
}

func TestServer_PlayTurns(t *testing.T) {
	var requested int
	mock := &MockGameService{
		PlayTurnsFunc: func(ctx context.Context, matchID string, turns int) (*service.TurnResult, error) {
			requested = turns
			return &service.TurnResult{MatchID: matchID, TurnsPlayed: turns}, nil
		},
	}
	server := NewServer(mock, nil, nil)

	rr := doRequest(t, server, "POST", "/api/matches/ab12/turns", map[string]int{"turns": 25})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if requested != 25 {
		t.Errorf("Expected 25 turns requested, got %d", requested)
	}

	rr = doRequest(t, server, "POST", "/api/matches/ab12/turns", map[string]int{"turns": 0})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for zero turns, got %d", rr.Code)
	}

	req := httptest.NewRequest("POST", "/api/matches/ab12/turns", bytes.NewBufferString("{bad"))
	rr = httptest.NewRecorder()
	server.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad body, got %d", rr.Code)
	}
}

func TestServer_History(t *testing.T) {
	var got service.HistoryOptions
	mock := &MockGameService{
		GetHistoryFunc: func(ctx context.Context, matchID string, opts service.HistoryOptions) (*service.HistoryResponse, error) {
			got = opts
			return &service.HistoryResponse{Page: opts.Page, PageSize: opts.Limit}, nil
		},
	}
	server := NewServer(mock, nil, nil)

	tests := []struct {
		query string
		want  service.HistoryOptions
	}{
		{"", service.HistoryOptions{Page: 1, Limit: service.DefaultHistoryLimit, Order: "desc"}},
		{"?page=3&limit=5&order=asc", service.HistoryOptions{Page: 3, Limit: 5, Order: "asc"}},
		{"?page=-1&limit=abc&order=sideways", service.HistoryOptions{Page: 1, Limit: service.DefaultHistoryLimit, Order: "desc"}},
	}
	for _, tt := range tests {
		rr := doRequest(t, server, "GET", "/api/matches/ab12/history"+tt.query, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", rr.Code)
		}
		if got != tt.want {
			t.Errorf("query %q: expected %+v, got %+v", tt.query, tt.want, got)
		}
	}
}

func TestServer_ListMatchesSortAndLimit(t *testing.T) {
	now := time.Now()
	mock := &MockGameService{
		ListMatchesFunc: func(ctx context.Context) ([]*service.MatchInfo, error) {
			return []*service.MatchInfo{
				{ID: "a", CreatedAt: now.Add(-3 * time.Hour), LastAccessedAt: now.Add(-1 * time.Hour)},
				{ID: "b", CreatedAt: now.Add(-2 * time.Hour), LastAccessedAt: now.Add(-3 * time.Hour)},
				{ID: "c", CreatedAt: now.Add(-1 * time.Hour), LastAccessedAt: now.Add(-2 * time.Hour)},
			}, nil
		},
	}
	server := NewServer(mock, nil, nil)

	var body struct {
		Count   int                  `json:"count"`
		Total   int                  `json:"total"`
		Matches []*service.MatchInfo `json:"matches"`
	}

	rr := doRequest(t, server, "GET", "/api/matches", nil)
	decode(t, rr, &body)
	ids := []string{body.Matches[0].ID, body.Matches[1].ID, body.Matches[2].ID}
	assert.Equal(t, []string{"a", "c", "b"}, ids)

	rr = doRequest(t, server, "GET", "/api/matches?sort=created&order=asc&limit=2", nil)
	decode(t, rr, &body)
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, 3, body.Total)
	assert.Equal(t, "a", body.Matches[0].ID)
	assert.Equal(t, "b", body.Matches[1].ID)
}

func TestServer_SaveBoard(t *testing.T) {
	var savedID string
	mock := &MockGameService{
		SaveBoardFunc: func(ctx context.Context, boardID string, board *engine.Board) error {
			savedID = boardID
			return nil
		},
	}
	server := NewServer(mock, nil, nil)

	rr := doRequest(t, server, "POST", "/api/boards", map[string]interface{}{
		"board": map[string]interface{}{"name": "pit", "width": 3, "height": 1, "layout": []string{"1 2"}},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if savedID != "pit" {
		t.Errorf("Expected board name as id, got %q", savedID)
	}

	rr = doRequest(t, server, "POST", "/api/boards", map[string]interface{}{"id": "x"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without board, got %d", rr.Code)
	}
}

func TestServer_Standings(t *testing.T) {
	mock := &MockGameService{
		StandingsFunc: func(ctx context.Context) ([]service.Standing, error) {
			return []service.Standing{{Strategy: "hunter", Played: 4, Wins: 3, Losses: 1}}, nil
		},
	}
	server := NewServer(mock, nil, nil)

	rr := doRequest(t, server, "GET", "/api/standings", nil)
	var rows []map[string]interface{}
	decode(t, rr, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, "hunter", rows[0]["strategy"])
	assert.InDelta(t, 0.75, rows[0]["win_rate"], 0.0001)
}

func TestServer_Health(t *testing.T) {
	server := NewServer(&MockGameService{}, nil, nil)
	rr := doRequest(t, server, "GET", "/api/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestServer_WebSocketRequiresMatch(t *testing.T) {
	server := NewServer(&MockGameService{}, nil, nil)
	rr := doRequest(t, server, "GET", "/ws?match=ab12", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_WrongMethod(t *testing.T) {
	server := NewServer(&MockGameService{}, nil, nil)
	rr := doRequest(t, server, "PUT", "/api/matches", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

const duelBoard = `7 3
#######
#1   2#
#######
`

// TestServer_MatchFlow drives a real service through the HTTP surface
func TestServer_MatchFlow(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "duel.txt"), []byte(duelBoard), 0644))

	boards, err := config.NewManager(dir)
	require.NoError(t, err)
	svc := service.NewGameService(session.NewManager(), boards)
	server := NewServer(svc, nil, nil)

	rr := doRequest(t, server, "POST", "/api/matches", map[string]interface{}{
		"board":   "duel",
		"player1": map[string]interface{}{"strategy": "manual"},
		"player2": map[string]interface{}{"strategy": "idle"},
		"rules":   map[string]interface{}{"max_turns": 5},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var match service.MatchInfo
	decode(t, rr, &match)
	base := "/api/matches/" + match.ID

	rr = doRequest(t, server, "POST", base+"/turn", map[string]string{"player1": "rotate_left_quarter"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var turn service.TurnResult
	decode(t, rr, &turn)
	assert.Equal(t, 1, turn.Turn)
	require.Len(t, turn.Snapshot.Tanks, 2)
	assert.Equal(t, engine.Up, turn.Snapshot.Tanks[0].Facing)

	rr = doRequest(t, server, "POST", base+"/turn", map[string]string{"player2": "shoot"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, server, "POST", base+"/turn", map[string]string{"player1": "fly"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, server, "POST", base+"/run", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	decode(t, rr, &turn)
	assert.True(t, turn.GameOver)
	require.NotNil(t, turn.Outcome)
	assert.Equal(t, engine.ReasonMaxTurns, turn.Outcome.Reason)

	rr = doRequest(t, server, "POST", base+"/turns", map[string]int{"turns": 1})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doRequest(t, server, "GET", base+"/history?order=asc&limit=2", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var history service.HistoryResponse
	decode(t, rr, &history)
	assert.Equal(t, 10, history.TotalEntries)
	require.Len(t, history.Entries, 2)
	assert.Equal(t, engine.RotateLeftQuarter, history.Entries[0].Action)

	rr = doRequest(t, server, "POST", base+"/reset", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, server, "GET", base+"/state", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var state engine.GameState
	decode(t, rr, &state)
	assert.Equal(t, 0, state.Turn)

	rr = doRequest(t, server, "POST", base+"/turn", map[string]string{"player1": "move_backward"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var cancelled struct {
		State engine.GameState `json:"state"`
	}
	rr = doRequest(t, server, "POST", base+"/tanks/1/cancel_backward", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	decode(t, rr, &cancelled)
	assert.Equal(t, engine.BackwardNotRequested, cancelled.State.Tank(1).Backward)

	rr = doRequest(t, server, "POST", base+"/tanks/1/cancel_backward", nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	rr = doRequest(t, server, "POST", base+"/tanks/3/cancel_backward", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = doRequest(t, server, "POST", base+"/tanks/one/cancel_backward", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, server, "DELETE", base, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, server, "GET", base, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(t, server, "GET", "/api/boards/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(t, server, "GET", "/api/strategies", nil)
	var strategies []service.StrategyInfo
	decode(t, rr, &strategies)
	assert.NotEmpty(t, strategies)
}
