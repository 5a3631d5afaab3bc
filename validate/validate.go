// Command validate checks every board file in a boards directory. It checks:
//   - the file extension names a known format (txt, board, json, yaml)
//   - the board parses and passes engine validation (size, glyphs, one start per tank)
//   - the facings are valid directions
//   - connectivity: the tanks can reach each other over open cells, counting
//     weak walls as open since shells break them
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/tankbattle/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// Errors is empty when Valid is true; Info holds the summary lines.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Info   []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateBoardFile loads and validates a single board file
func validateBoardFile(filePath string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	ext := filepath.Ext(filePath)
	format, ok := engine.FormatFromExt(ext)
	if !ok {
		result.fail("Unsupported board extension %q", ext)
		return result
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	name := strings.TrimSuffix(result.File, ext)
	board, err := engine.ParseBoard(name, format, data)
	if err != nil {
		result.fail("%s", strings.TrimPrefix(err.Error(), engine.ErrInvalidBoard.Error()+": "))
		return result
	}

	state, err := engine.NewState(board, engine.DefaultRules())
	if err != nil {
		result.fail("Cannot build initial state: %v", err)
		return result
	}

	// Connectivity validation
	t1, t2 := state.Tank(1), state.Tank(2)
	if !connected(state.Grid, t1.Position, t2.Position) {
		result.fail("Connectivity failure: tank 2 at %s is unreachable from tank 1 at %s", t2.Position, t1.Position)
		return result
	}

	g := state.Grid
	result.Info = append(result.Info,
		fmt.Sprintf("✓ Name: %s", board.Name),
		fmt.Sprintf("✓ Format: %s", format),
		fmt.Sprintf("✓ Grid: %dx%d (wrap around: %t)", board.Width, board.Height, board.WrapAround),
		fmt.Sprintf("✓ Walls: %d, weak walls: %d, mines: %d", g.Count(engine.Wall), g.Count(engine.WeakWall), g.Count(engine.Mine)),
		fmt.Sprintf("✓ Tank 1: %s facing %s", t1.Position, t1.Facing),
		fmt.Sprintf("✓ Tank 2: %s facing %s", t2.Position, t2.Facing),
		"✓ Connectivity: tanks can reach each other",
	)
	return result
}

// connected flood fills from one start in 8 directions. Weak walls count as
// open because shells clear them.
func connected(g *engine.Grid, from, to engine.Position) bool {
	open := func(p engine.Position) bool {
		return g.Passable(p.X, p.Y) || g.CellAt(p.X, p.Y) == engine.WeakWall
	}

	visited := map[engine.Position]bool{from: true}
	queue := []engine.Position{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == to {
			return true
		}

		for _, dir := range engine.AllDirections() {
			next, ok := g.NormalizePos(current.Add(dir.Offset()))
			if ok && !visited[next] && open(next) {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// validateDir validates every board file in dir and prints a concise report.
// It returns an error when any file is invalid.
func validateDir(w io.Writer, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("error reading boards directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := engine.FormatFromExt(filepath.Ext(entry.Name())); ok {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return fmt.Errorf("no board files found in %s", dir)
	}

	allValid := true
	for _, file := range files {
		result := validateBoardFile(file)

		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)
		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if !allValid {
		fmt.Fprintln(w, "❌ Some boards have errors")
		return errors.New("invalid boards")
	}
	fmt.Fprintln(w, "✅ All boards are valid!")
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "validate the board files in a directory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "boards-dir", Aliases: []string{"d"}, Value: "../boards", Sources: cli.EnvVars("BOARDS_DIR")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return validateDir(cmd.Root().Writer, cmd.String("boards-dir"))
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
