package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/mcp-training/tankbattle/game/engine"
	"github.com/wricardo/mcp-training/tankbattle/game/service"
	"github.com/wricardo/mcp-training/tankbattle/game/strategy"
)

// FilePersistence implements SessionPersistence with one JSON file per match
type FilePersistence struct {
	sessionsDir string
}

// NewFilePersistence creates a new file-based persistence layer
func NewFilePersistence(sessionsDir string) (*FilePersistence, error) {
	// Create sessions directory if it doesn't exist
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	return &FilePersistence{sessionsDir: sessionsDir}, nil
}

// Save persists a match to a JSON file
func (fp *FilePersistence) Save(session *service.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	data := PersistedSessionData{
		ID:             session.ID,
		BoardID:        session.BoardID,
		Board:          session.Engine.Board(),
		Player1:        session.Player1,
		Player2:        session.Player2,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		Recorded:       session.Recorded,
		GameState:      session.Engine.State(),
	}

	var err error
	if data.Player1State, err = strategy.SaveState(session.Engine.Controller(1)); err != nil {
		return fmt.Errorf("player 1 state: %w", err)
	}
	if data.Player2State, err = strategy.SaveState(session.Engine.Controller(2)); err != nil {
		return fmt.Errorf("player 2 state: %w", err)
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	// Write through a temp file and rename
	filePath := fp.getFilePath(session.ID)
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Load rebuilds a match from its JSON file. Controllers are recreated from
// the stored strategy names and resume their saved progress; manual queues
// start empty.
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	if !validID(id) {
		return nil, ErrInvalidSessionID
	}
	filePath := fp.getFilePath(id)

	jsonData, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var data PersistedSessionData
	if err := json.Unmarshal(jsonData, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}
	if data.Board == nil || data.GameState == nil {
		return nil, fmt.Errorf("session file %s is missing its board or state", id)
	}

	p1, err := service.NewController(data.Player1)
	if err != nil {
		return nil, fmt.Errorf("player 1: %w", err)
	}
	p2, err := service.NewController(data.Player2)
	if err != nil {
		return nil, fmt.Errorf("player 2: %w", err)
	}
	if err := strategy.RestoreState(p1, data.Player1State); err != nil {
		return nil, fmt.Errorf("player 1 state: %w", err)
	}
	if err := strategy.RestoreState(p2, data.Player2State); err != nil {
		return nil, fmt.Errorf("player 2 state: %w", err)
	}

	eng, err := engine.NewEngine(data.Board, p1, p2, engine.WithRules(data.GameState.Rules))
	if err != nil {
		return nil, fmt.Errorf("failed to create game engine: %w", err)
	}
	if err := eng.SetState(data.GameState); err != nil {
		return nil, fmt.Errorf("failed to set game state: %w", err)
	}

	return &service.Session{
		ID:             data.ID,
		Engine:         eng,
		BoardID:        data.BoardID,
		Player1:        data.Player1,
		Player2:        data.Player2,
		CreatedAt:      data.CreatedAt,
		LastAccessedAt: data.LastAccessedAt,
		Recorded:       data.Recorded,
	}, nil
}

// Delete removes a match file
func (fp *FilePersistence) Delete(id string) error {
	if !fp.Exists(id) {
		return ErrSessionNotFound
	}

	if err := os.Remove(fp.getFilePath(id)); err != nil {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// ListAll returns all persisted match IDs
func (fp *FilePersistence) ListAll() ([]string, error) {
	entries, err := os.ReadDir(fp.sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	var sessionIDs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name := entry.Name(); strings.HasSuffix(name, ".json") {
			sessionIDs = append(sessionIDs, strings.TrimSuffix(name, ".json"))
		}
	}
	return sessionIDs, nil
}

// Exists checks if a match file exists
func (fp *FilePersistence) Exists(id string) bool {
	if !validID(id) {
		return false
	}
	_, err := os.Stat(fp.getFilePath(id))
	return err == nil
}

func (fp *FilePersistence) getFilePath(id string) string {
	return filepath.Join(fp.sessionsDir, fmt.Sprintf("%s.json", strings.ToLower(id)))
}
