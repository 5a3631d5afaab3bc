package service

import (
	"time"

	"github.com/wricardo/mcp-training/tankbattle/game/engine"
	"github.com/wricardo/mcp-training/tankbattle/game/strategy"
)

// PlayerSpec selects the controller of one tank
type PlayerSpec struct {
	Strategy string           `json:"strategy"`
	Options  strategy.Options `json:"options,omitempty"`
}

// RuleOverrides changes selected rules of one match. Nil fields keep the
// server defaults; a zero InitialShells means unarmed tanks and a zero
// ShellRange means unlimited range.
type RuleOverrides struct {
	InitialShells *int `json:"initial_shells,omitempty"`
	ShootCooldown *int `json:"shoot_cooldown,omitempty"`
	MaxTurns      *int `json:"max_turns,omitempty"`
	AmmoTimeout   *int `json:"ammo_timeout,omitempty"`
	ShellRange    *int `json:"shell_range,omitempty"`
}

// Override returns v as a RuleOverrides field
func Override(v int) *int {
	return &v
}

// MatchSpec describes a match to create
type MatchSpec struct {
	Board   string         `json:"board"`
	Player1 PlayerSpec     `json:"player1"`
	Player2 PlayerSpec     `json:"player2"`
	Rules   *RuleOverrides `json:"rules,omitempty"`
}

// MatchInfo provides information about a match
type MatchInfo struct {
	ID             string            `json:"id"`
	Board          string            `json:"board"`
	Player1        PlayerSpec        `json:"player1"`
	Player2        PlayerSpec        `json:"player2"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	Turn           int               `json:"turn"`
	Status         engine.Status     `json:"status"`
	Outcome        *engine.Outcome   `json:"outcome,omitempty"`
	GameState      *engine.GameState `json:"game_state,omitempty"`
}

// TurnResult contains the result of playing one or more turns
type TurnResult struct {
	MatchID     string                  `json:"match_id"`
	TurnsPlayed int                     `json:"turns_played"`
	Turn        int                     `json:"turn"`
	GameOver    bool                    `json:"game_over"`
	Outcome     *engine.Outcome         `json:"outcome,omitempty"`
	Entries     []engine.ActionLogEntry `json:"entries"`
	Snapshot    engine.Snapshot         `json:"snapshot"`
	Truncated   bool                    `json:"truncated,omitempty"`
	Limit       int                     `json:"limit,omitempty"`
}

// ManualActions carries the actions manual players submit for a turn
type ManualActions struct {
	Player1 engine.Action `json:"player1,omitempty"`
	Player2 engine.Action `json:"player2,omitempty"`
}

// HistoryOptions configures action history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated action history
type HistoryResponse struct {
	Entries      []engine.ActionLogEntry `json:"entries"`
	TotalEntries int                     `json:"total_entries"`
	Page         int                     `json:"page"`
	PageSize     int                     `json:"page_size"`
	TotalPages   int                     `json:"total_pages"`
	HasNext      bool                    `json:"has_next"`
	HasPrevious  bool                    `json:"has_previous"`
}

// BoardInfo provides information about a board file
type BoardInfo struct {
	Filename    string        `json:"filename"`
	BoardID     string        `json:"board_id"` // The identifier to use for match creation
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	WrapAround  bool          `json:"wrap_around"`
	Format      engine.Format `json:"format"`
}

// MatchResult is the record of a finished match
type MatchResult struct {
	MatchID    string        `json:"match_id"`
	Board      string        `json:"board"`
	Player1    string        `json:"player1"`
	Player2    string        `json:"player2"`
	Result     engine.Result `json:"result"`
	Reason     engine.Reason `json:"reason"`
	Winner     int           `json:"winner"`
	Turns      int           `json:"turns"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Standing aggregates results per strategy
type Standing struct {
	Strategy string `json:"strategy"`
	Played   int    `json:"played"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Ties     int    `json:"ties"`
}

// WinRate is wins over matches played
func (s Standing) WinRate() float64 {
	if s.Played == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Played)
}

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
	MaxTurnsPerCall     = 1000
)
