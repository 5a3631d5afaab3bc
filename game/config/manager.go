package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/mcp-training/tankbattle/game/engine"
	"github.com/wricardo/mcp-training/tankbattle/game/service"
)

var (
	ErrBoardNotFound = service.ErrBoardNotFound
	ErrInvalidBoard  = engine.ErrInvalidBoard
)

// DefaultBoardID is the board used when a match names none
const DefaultBoardID = "classic"

// extensions are tried in order when a board id carries no extension
var extensions = []string{".json", ".yaml", ".yml", ".txt", ".board"}

// Manager handles board loading and caching
type Manager struct {
	boardDir     string
	defaultBoard *engine.Board
	boards       map[string]*engine.Board
	mu           sync.RWMutex
}

// NewManager creates a new board manager over boardDir
func NewManager(boardDir string) (*Manager, error) {
	// Ensure board directory exists
	if _, err := os.Stat(boardDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("board directory does not exist: %s", boardDir)
	}

	m := &Manager{
		boardDir: boardDir,
		boards:   make(map[string]*engine.Board),
	}

	if err := m.loadDefaultBoard(); err != nil {
		return nil, fmt.Errorf("failed to load default board: %w", err)
	}
	return m, nil
}

// LoadBoard loads a board by id (file name with or without extension)
func (m *Manager) LoadBoard(name string) (*engine.Board, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	id := boardID(name)

	m.mu.RLock()
	// Check cache first
	if board, exists := m.boards[id]; exists {
		m.mu.RUnlock()
		return board, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if board, exists := m.boards[id]; exists {
		return board, nil
	}

	path, format, err := m.resolve(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read board file: %w", err)
	}

	board, err := engine.ParseBoard(id, format, data)
	if err != nil {
		return nil, err
	}

	m.boards[id] = board
	return board, nil
}

// resolve finds the file behind a board id
func (m *Manager) resolve(name string) (string, engine.Format, error) {
	if format, ok := engine.FormatFromExt(filepath.Ext(name)); ok {
		path := filepath.Join(m.boardDir, name)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return "", "", fmt.Errorf("%w: %s", ErrBoardNotFound, name)
			}
			return "", "", err
		}
		return path, format, nil
	}

	for _, ext := range extensions {
		path := filepath.Join(m.boardDir, name+ext)
		if _, err := os.Stat(path); err == nil {
			format, _ := engine.FormatFromExt(ext)
			return path, format, nil
		}
	}
	return "", "", fmt.Errorf("%w: %s", ErrBoardNotFound, name)
}

// ListBoards returns information about every valid board in the directory.
// Invalid files are skipped.
func (m *Manager) ListBoards() ([]*service.BoardInfo, error) {
	entries, err := os.ReadDir(m.boardDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read board directory: %w", err)
	}

	boards := []*service.BoardInfo{}
	seen := map[string]bool{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		format, ok := engine.FormatFromExt(filepath.Ext(entry.Name()))
		if !ok {
			continue
		}

		id := boardID(entry.Name())
		if seen[id] {
			continue
		}

		board, err := m.LoadBoard(entry.Name())
		if err != nil {
			// Skip invalid boards
			continue
		}
		seen[id] = true

		boards = append(boards, &service.BoardInfo{
			Filename:    entry.Name(),
			BoardID:     id,
			Name:        board.Name,
			Description: board.Description,
			Width:       board.Width,
			Height:      board.Height,
			WrapAround:  board.WrapAround,
			Format:      format,
		})
	}

	sort.Slice(boards, func(i, j int) bool { return boards[i].BoardID < boards[j].BoardID })
	return boards, nil
}

// GetDefault returns the default board
func (m *Manager) GetDefault() *engine.Board {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultBoard
}

// SetDefault sets the default board by id
func (m *Manager) SetDefault(name string) error {
	board, err := m.LoadBoard(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultBoard = board
	return nil
}

// RefreshCache drops every cached board and reloads the default
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.boards = make(map[string]*engine.Board)
	m.mu.Unlock()

	return m.loadDefaultBoard()
}

func (m *Manager) loadDefaultBoard() error {
	board, err := m.LoadBoard(DefaultBoardID)
	if err != nil {
		// Fall back to the first available board
		boards, listErr := m.ListBoards()
		if listErr != nil || len(boards) == 0 {
			board = MinimalBoard()
		} else if board, err = m.LoadBoard(boards[0].Filename); err != nil {
			board = MinimalBoard()
		}
	}

	m.mu.Lock()
	m.defaultBoard = board
	m.mu.Unlock()
	return nil
}

// SaveBoard validates a board and writes it to disk. The extension of name
// picks the encoding; names without one are saved as JSON.
func (m *Manager) SaveBoard(name string, board *engine.Board) error {
	if err := checkName(name); err != nil {
		return err
	}
	if board == nil {
		return fmt.Errorf("%w: board is nil", ErrInvalidBoard)
	}
	board.Normalize()
	if err := engine.ValidateBoard(board); err != nil {
		return err
	}

	filename := name
	format, ok := engine.FormatFromExt(filepath.Ext(name))
	if !ok {
		format = engine.FormatJSON
		filename = name + ".json"
	}

	data, err := board.Encode(format)
	if err != nil {
		return fmt.Errorf("failed to encode board: %w", err)
	}

	if err := os.WriteFile(filepath.Join(m.boardDir, filename), data, 0644); err != nil {
		return fmt.Errorf("failed to write board file: %w", err)
	}

	// Update cache
	m.mu.Lock()
	m.boards[boardID(name)] = board
	m.mu.Unlock()
	return nil
}

// MinimalBoard is the built-in five by five arena used when the board
// directory holds nothing usable
func MinimalBoard() *engine.Board {
	return &engine.Board{
		Name:        "default",
		Description: "Built-in five by five arena",
		Width:       5,
		Height:      5,
		Layout: []string{
			"#####",
			"#1  #",
			"#   #",
			"#  2#",
			"#####",
		},
	}
}

func boardID(name string) string {
	if _, ok := engine.FormatFromExt(filepath.Ext(name)); ok {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return fmt.Errorf("%w: %q", ErrBoardNotFound, name)
	}
	return nil
}

// IsNotFound reports whether err is a missing board
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBoardNotFound)
}
