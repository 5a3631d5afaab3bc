package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validBoard = `7 5
#######
#1    #
#  =  #
#    2#
#######
`

const validYAML = `name: Open Field
width: 5
height: 3
wrap_around: true
layout:
  - "1   2"
  - "     "
  - "  @  "
player1_facing: down
`

func writeBoard(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write board: %v", err)
	}
	return path
}

func TestValidateBoardFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name      string
		file      string
		content   string
		wantValid bool
		wantError string
	}{
		{"valid text", "arena.txt", validBoard, true, ""},
		{"valid yaml", "field.yaml", validYAML, true, ""},
		{"weak wall keeps tanks connected", "weak.txt", "5 1\n1 = 2\n", true, ""},
		{"unsupported extension", "arena.md", validBoard, false, "Unsupported board extension"},
		{"missing tank", "lonely.txt", "3 1\n1  \n", false, "exactly one '1' and one '2'"},
		{"invalid character", "odd.txt", "3 1\n1X2\n", false, "invalid character"},
		{"bad header", "header.txt", "wide tall\n", false, "bad width"},
		{"invalid JSON", "broken.json", `{"name": "test", invalid json}`, false, "invalid"},
		{"bad facing", "facing.yaml", "width: 3\nheight: 1\nlayout: [\"1 2\"]\nplayer2_facing: sideways\n", false, "player2_facing"},
		{"walled off", "walled.txt", "5 1\n1 # 2\n", false, "Connectivity failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeBoard(t, dir, tt.file, tt.content)
			result := validateBoardFile(path)

			if result.File != tt.file {
				t.Errorf("Expected file name %s, got %s", tt.file, result.File)
			}
			if result.Valid != tt.wantValid {
				t.Fatalf("Expected valid=%v, got %v (errors: %v)", tt.wantValid, result.Valid, result.Errors)
			}
			if tt.wantValid {
				if len(result.Errors) != 0 {
					t.Errorf("Valid board should have no errors, got %v", result.Errors)
				}
				if len(result.Info) == 0 {
					t.Error("Valid board should have info lines")
				}
				return
			}
			if !strings.Contains(strings.Join(result.Errors, "\n"), tt.wantError) {
				t.Errorf("Expected error containing %q, got %v", tt.wantError, result.Errors)
			}
		})
	}
}

func TestValidateBoardFile_MissingFile(t *testing.T) {
	result := validateBoardFile(filepath.Join(t.TempDir(), "missing.txt"))
	if result.Valid {
		t.Fatal("Expected missing file to be invalid")
	}
	if !strings.Contains(result.Errors[0], "Failed to read file") {
		t.Errorf("Unexpected error: %v", result.Errors)
	}
}

func TestValidateBoardFile_Info(t *testing.T) {
	path := writeBoard(t, t.TempDir(), "field.yaml", validYAML)
	result := validateBoardFile(path)

	info := strings.Join(result.Info, "\n")
	for _, want := range []string{
		"✓ Name: Open Field",
		"✓ Format: yaml",
		"✓ Grid: 5x3 (wrap around: true)",
		"mines: 1",
		"✓ Tank 1: (0,0) facing down",
		"✓ Tank 2: (4,0) facing left",
	} {
		if !strings.Contains(info, want) {
			t.Errorf("Expected info to contain %q, got:\n%s", want, info)
		}
	}
}

func TestValidateDir(t *testing.T) {
	t.Run("all valid", func(t *testing.T) {
		dir := t.TempDir()
		writeBoard(t, dir, "arena.txt", validBoard)
		writeBoard(t, dir, "field.yml", validYAML)
		writeBoard(t, dir, "README.md", "not a board")

		var out bytes.Buffer
		if err := validateDir(&out, dir); err != nil {
			t.Fatalf("Expected no error, got %v\n%s", err, out.String())
		}
		if strings.Count(out.String(), "✅ VALID") != 2 {
			t.Errorf("Expected 2 valid boards:\n%s", out.String())
		}
		if !strings.Contains(out.String(), "All boards are valid") {
			t.Errorf("Missing summary line:\n%s", out.String())
		}
	})

	t.Run("one invalid", func(t *testing.T) {
		dir := t.TempDir()
		writeBoard(t, dir, "arena.txt", validBoard)
		writeBoard(t, dir, "walled.txt", "5 1\n1 # 2\n")

		var out bytes.Buffer
		if err := validateDir(&out, dir); err == nil {
			t.Fatal("Expected error for invalid board")
		}
		if !strings.Contains(out.String(), "❌ INVALID") {
			t.Errorf("Expected invalid marker:\n%s", out.String())
		}
	})

	t.Run("empty directory", func(t *testing.T) {
		if err := validateDir(&bytes.Buffer{}, t.TempDir()); err == nil {
			t.Error("Expected error for directory without boards")
		}
	})

	t.Run("missing directory", func(t *testing.T) {
		if err := validateDir(&bytes.Buffer{}, "/non/existent/boards"); err == nil {
			t.Error("Expected error for missing directory")
		}
	})
}
