package session

import (
	"time"

	"github.com/wricardo/mcp-training/tankbattle/game/engine"
	"github.com/wricardo/mcp-training/tankbattle/game/service"
)

// SessionPersistence defines the interface for persisting matches
type SessionPersistence interface {
	// Save persists a match to storage
	Save(session *service.Session) error

	// Load retrieves a match from storage by ID
	Load(id string) (*service.Session, error)

	// Delete removes a match from storage
	Delete(id string) error

	// ListAll returns all persisted match IDs
	ListAll() ([]string, error)

	// Exists checks if a match exists in storage
	Exists(id string) bool
}

// PersistedSessionData represents the JSON structure for persisted matches.
// The board travels with the match so a restored match does not depend on
// the board directory. Player states hold controller progress (script
// cursor, generator position) so a restored match resumes where it stopped.
type PersistedSessionData struct {
	ID             string             `json:"id"`
	BoardID        string             `json:"board_id"`
	Board          *engine.Board      `json:"board"`
	Player1        service.PlayerSpec `json:"player1"`
	Player2        service.PlayerSpec `json:"player2"`
	Player1State   []byte             `json:"player1_state,omitempty"`
	Player2State   []byte             `json:"player2_state,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	Recorded       bool               `json:"recorded"`
	GameState      *engine.GameState  `json:"game_state"`
}
