package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/mcp-training/tankbattle/game/engine"
)

var (
	ErrMatchNotFound = errors.New("match not found")
	ErrBoardNotFound = errors.New("board not found")
	ErrNotManual     = errors.New("player is not manually controlled")
	ErrMatchOver     = errors.New("match is over")
	ErrInvalidTank   = errors.New("tank id must be 1 or 2")
	ErrNoBackward    = errors.New("no pending backward move")
)

// GameService defines all match-related operations
type GameService interface {
	// Match Management
	CreateMatch(ctx context.Context, spec MatchSpec) (*MatchInfo, error)
	GetMatch(ctx context.Context, matchID string) (*MatchInfo, error)
	ListMatches(ctx context.Context) ([]*MatchInfo, error)
	DeleteMatch(ctx context.Context, matchID string) error

	// Turn Operations
	PlayTurn(ctx context.Context, matchID string, actions ManualActions) (*TurnResult, error)
	PlayTurns(ctx context.Context, matchID string, turns int) (*TurnResult, error)
	RunMatch(ctx context.Context, matchID string) (*TurnResult, error)
	Reset(ctx context.Context, matchID string) (*engine.GameState, error)
	CancelBackward(ctx context.Context, matchID string, tankID int) (*engine.GameState, error)

	// Match State
	GetGameState(ctx context.Context, matchID string) (*engine.GameState, error)
	GetHistory(ctx context.Context, matchID string, opts HistoryOptions) (*HistoryResponse, error)

	// Boards
	ListBoards(ctx context.Context) ([]*BoardInfo, error)
	LoadBoard(ctx context.Context, boardID string) (*engine.Board, error)
	SaveBoard(ctx context.Context, boardID string, board *engine.Board) error

	// Strategies and results
	ListStrategies(ctx context.Context) ([]StrategyInfo, error)
	ListResults(ctx context.Context, limit int) ([]MatchResult, error)
	Standings(ctx context.Context) ([]Standing, error)
}

// StrategyInfo describes a selectable controller
type StrategyInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// SessionManager defines match storage operations
type SessionManager interface {
	Create(id string, board *engine.Board, spec MatchSpec, rules engine.Rules) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// BoardManager handles board loading
type BoardManager interface {
	LoadBoard(name string) (*engine.Board, error)
	ListBoards() ([]*BoardInfo, error)
	GetDefault() *engine.Board
	SaveBoard(name string, board *engine.Board) error
}

// ResultStore persists finished match results
type ResultStore interface {
	Record(ctx context.Context, result MatchResult) error
	List(ctx context.Context, limit int) ([]MatchResult, error)
	Standings(ctx context.Context) ([]Standing, error)
}

// TurnPublisher receives every snapshot a match produces
type TurnPublisher interface {
	PublishTurn(matchID string, snap engine.Snapshot)
}

// Session represents an active match
type Session struct {
	ID             string
	Engine         *engine.Engine
	BoardID        string
	Player1        PlayerSpec
	Player2        PlayerSpec
	CreatedAt      time.Time
	LastAccessedAt time.Time
	Recorded       bool // result already written to the store
}

// Player returns the PlayerSpec of tank id
func (s *Session) Player(id int) PlayerSpec {
	if id == 2 {
		return s.Player2
	}
	return s.Player1
}
