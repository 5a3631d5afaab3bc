package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/wricardo/mcp-training/tankbattle/game/engine"
)

const arenaText = `7 5
#######
#1    #
#  =  #
#    2#
#######
`

const duelYAML = `name: Duel
description: open field
width: 5
height: 3
wrap_around: true
layout:
  - "1   2"
  - "     "
  - "  @  "
player1_facing: right
player2_facing: left
`

func createValidBoard() *engine.Board {
	return &engine.Board{
		Name:        "Test Board",
		Description: "Test board",
		Width:       5,
		Height:      5,
		Layout: []string{
			"#####",
			"#1 @#",
			"# = #",
			"#  2#",
			"#####",
		},
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write board file: %v", err)
	}
}

func TestNewManager(t *testing.T) {
	t.Run("valid directory", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "arena.txt", arenaText)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if got := manager.GetDefault(); got == nil || got.Name != "arena" {
			t.Errorf("Expected first board as default, got %+v", got)
		}
	})

	t.Run("non-existent directory", func(t *testing.T) {
		_, err := NewManager("/non/existent/path")
		if err == nil {
			t.Error("Expected error for non-existent directory")
		}
	})

	t.Run("empty directory uses built-in board", func(t *testing.T) {
		manager, err := NewManager(t.TempDir())
		if err != nil {
			t.Fatalf("NewManager should succeed without board files, got error: %v", err)
		}
		board := manager.GetDefault()
		if board == nil {
			t.Fatal("Expected default board to be available")
		}
		if err := engine.ValidateBoard(board); err != nil {
			t.Errorf("Built-in board should be valid: %v", err)
		}
	})

	t.Run("classic preferred", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "arena.txt", arenaText)
		writeFile(t, dir, "classic.yaml", duelYAML)

		manager, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if got := manager.GetDefault().Name; got != "Duel" {
			t.Errorf("Expected classic board as default, got %q", got)
		}
	})
}

func TestManager_LoadBoard(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "arena.txt", arenaText)
	writeFile(t, dir, "duel.yml", duelYAML)
	writeFile(t, dir, "broken.txt", "3 3\n#1#\n")

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	t.Run("text board", func(t *testing.T) {
		board, err := manager.LoadBoard("arena")
		if err != nil {
			t.Fatalf("Failed to load board: %v", err)
		}
		if board.Width != 7 || board.Height != 5 {
			t.Errorf("Expected 7x5, got %dx%d", board.Width, board.Height)
		}
		if board.Name != "arena" {
			t.Errorf("Expected name from file, got %q", board.Name)
		}
	})

	t.Run("yaml board", func(t *testing.T) {
		board, err := manager.LoadBoard("duel")
		if err != nil {
			t.Fatalf("Failed to load board: %v", err)
		}
		if !board.WrapAround || board.Name != "Duel" {
			t.Errorf("Unexpected board: %+v", board)
		}
	})

	t.Run("with extension", func(t *testing.T) {
		if _, err := manager.LoadBoard("arena.txt"); err != nil {
			t.Fatalf("Failed to load board with extension: %v", err)
		}
	})

	t.Run("load from cache", func(t *testing.T) {
		b1, _ := manager.LoadBoard("arena")
		b2, err := manager.LoadBoard("arena")
		if err != nil {
			t.Fatalf("Failed to load board from cache: %v", err)
		}
		if b1 != b2 {
			t.Error("Expected board to be loaded from cache")
		}
	})

	t.Run("non-existent board", func(t *testing.T) {
		_, err := manager.LoadBoard("non-existent")
		if !errors.Is(err, ErrBoardNotFound) {
			t.Errorf("Expected ErrBoardNotFound, got %v", err)
		}
	})

	t.Run("path traversal rejected", func(t *testing.T) {
		_, err := manager.LoadBoard("../arena")
		if !IsNotFound(err) {
			t.Errorf("Expected not found, got %v", err)
		}
	})

	t.Run("invalid board", func(t *testing.T) {
		_, err := manager.LoadBoard("broken")
		if !errors.Is(err, ErrInvalidBoard) {
			t.Errorf("Expected ErrInvalidBoard, got %v", err)
		}
	})
}

func TestManager_ListBoards(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "arena.txt", arenaText)
	writeFile(t, dir, "duel.yaml", duelYAML)
	writeFile(t, dir, "broken.txt", "0 0\n")
	writeFile(t, dir, "notes.md", "# not a board")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	boards, err := manager.ListBoards()
	if err != nil {
		t.Fatalf("Failed to list boards: %v", err)
	}
	if len(boards) != 2 {
		t.Fatalf("Expected 2 valid boards, got %d", len(boards))
	}
	if boards[0].BoardID != "arena" || boards[1].BoardID != "duel" {
		t.Errorf("Unexpected board ids: %s, %s", boards[0].BoardID, boards[1].BoardID)
	}
	if boards[0].Format != engine.FormatText || boards[1].Format != engine.FormatYAML {
		t.Errorf("Unexpected formats: %s, %s", boards[0].Format, boards[1].Format)
	}
	if boards[1].Width != 5 || boards[1].Height != 3 || !boards[1].WrapAround {
		t.Errorf("Unexpected info: %+v", boards[1])
	}
}

func TestManager_SaveBoard(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	formats := []struct {
		name string
		file string
	}{
		{"saved", "saved.json"},
		{"saved.yaml", "saved.yaml"},
		{"saved.txt", "saved.txt"},
	}
	for _, tt := range formats {
		t.Run(tt.file, func(t *testing.T) {
			board := createValidBoard()
			if err := manager.SaveBoard(tt.name, board); err != nil {
				t.Fatalf("Failed to save board: %v", err)
			}
			if _, err := os.Stat(filepath.Join(dir, tt.file)); err != nil {
				t.Errorf("Expected file %s: %v", tt.file, err)
			}
		})
	}

	t.Run("round trip through disk", func(t *testing.T) {
		fresh, err := NewManager(dir)
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		board, err := fresh.LoadBoard("saved.txt")
		if err != nil {
			t.Fatalf("Failed to reload board: %v", err)
		}
		if board.Layout[2] != "# = #" {
			t.Errorf("Unexpected layout row: %q", board.Layout[2])
		}
	})

	t.Run("invalid board rejected", func(t *testing.T) {
		board := createValidBoard()
		board.Layout[1] = "#1 1#"
		err := manager.SaveBoard("bad", board)
		if !errors.Is(err, ErrInvalidBoard) {
			t.Errorf("Expected ErrInvalidBoard, got %v", err)
		}
		if _, statErr := os.Stat(filepath.Join(dir, "bad.json")); !os.IsNotExist(statErr) {
			t.Error("Invalid board should not be written")
		}
	})
}

func TestManager_SetDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "arena.txt", arenaText)
	writeFile(t, dir, "duel.yaml", duelYAML)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	if err := manager.SetDefault("duel"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}
	if manager.GetDefault().Name != "Duel" {
		t.Errorf("Expected Duel as default, got %q", manager.GetDefault().Name)
	}
	if err := manager.SetDefault("missing"); err == nil {
		t.Error("Expected error for missing board")
	}
	if err := manager.RefreshCache(); err != nil {
		t.Fatalf("RefreshCache failed: %v", err)
	}
	if manager.GetDefault().Name != "arena" {
		t.Errorf("Expected default reset to first board, got %q", manager.GetDefault().Name)
	}
}

func TestManager_ConcurrentLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "arena.txt", arenaText)

	manager, err := NewManager(dir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.LoadBoard("arena"); err != nil {
				t.Errorf("Concurrent load failed: %v", err)
			}
		}()
	}
	wg.Wait()
}
