// Command analyze prints quick, human-readable heuristics about the boards in
// a boards directory: dimensions, terrain counts, start positions, whether the
// tanks can ever reach each other, and how far each tank is from its first
// firing position.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/tankbattle/game/config"
	"github.com/wricardo/mcp-training/tankbattle/game/engine"
	"github.com/wricardo/mcp-training/tankbattle/game/strategy"
)

// TankStart is where a tank begins and how far it must travel to shoot
type TankStart struct {
	ID       int
	Position engine.Position
	Facing   engine.Direction
	// FiringSteps is the number of moves to the nearest cell with a clear
	// shot at the opponent, -1 when there is none
	FiringSteps int
}

// Report summarizes one board
type Report struct {
	Name       string
	Width      int
	Height     int
	WrapAround bool
	Walls      int
	WeakWalls  int
	Mines      int
	Open       int
	Tanks      [2]TankStart
	Distance   int
	Connected  bool
	OpenFire   bool
	MinesNear  []engine.Position
}

// Warnings lists the properties that make a board play badly
func (r Report) Warnings() []string {
	var warnings []string
	if !r.Connected && r.Tanks[0].FiringSteps < 0 && r.Tanks[1].FiringSteps < 0 {
		warnings = append(warnings, "tanks can never engage; matches end by ammo timeout or turn limit")
	}
	if r.OpenFire {
		warnings = append(warnings, "tanks start in each other's line of fire")
	}
	for _, p := range r.MinesNear {
		warnings = append(warnings, fmt.Sprintf("mine at %s next to a start position", p))
	}
	return warnings
}

// Analyze builds the report for board
func Analyze(board *engine.Board) (Report, error) {
	gs, err := engine.NewState(board, engine.DefaultRules())
	if err != nil {
		return Report{}, err
	}
	g := gs.Grid

	r := Report{
		Name:       board.Name,
		Width:      g.Width,
		Height:     g.Height,
		WrapAround: g.WrapAround,
		Walls:      g.Count(engine.Wall),
		WeakWalls:  g.Count(engine.WeakWall),
		Mines:      g.Count(engine.Mine),
		Open:       g.Count(engine.Empty),
	}

	t1, t2 := gs.Tank(1), gs.Tank(2)
	r.Distance = g.Distance(t1.Position, t2.Position)
	r.Connected = reachable(g, t1.Position, t2.Position)
	if dir, ok := g.Aligned(t1.Position, t2.Position); ok {
		r.OpenFire = g.LineOfFire(t1.Position, dir, t2.Position, gs.Rules.ShellRange)
	}

	for i, t := range []*engine.Tank{t1, t2} {
		start := TankStart{ID: t.ID, Position: t.Position, Facing: t.Facing, FiringSteps: -1}
		if r.OpenFire {
			start.FiringSteps = 0
		} else if path := strategy.FindFiringPath(engine.NewView(gs, t.ID)); path != nil {
			start.FiringSteps = len(path) - 1
		}
		r.Tanks[i] = start

		for _, dir := range engine.AllDirections() {
			p, ok := g.NormalizePos(t.Position.Add(dir.Offset()))
			if ok && g.CellAt(p.X, p.Y) == engine.Mine {
				r.MinesNear = append(r.MinesNear, p)
			}
		}
	}
	return r, nil
}

// reachable runs a breadth-first search over passable cells in 8 directions
func reachable(g *engine.Grid, from, to engine.Position) bool {
	seen := map[engine.Position]bool{from: true}
	queue := []engine.Position{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == to {
			return true
		}
		for _, dir := range engine.AllDirections() {
			next, ok := g.NormalizePos(current.Add(dir.Offset()))
			if !ok || seen[next] || !g.Passable(next.X, next.Y) {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
		}
	}
	return false
}

// Print writes the report in the same shape for every board
func (r Report) Print(w io.Writer) {
	fmt.Fprintf(w, "Name: %s\n", r.Name)
	fmt.Fprintf(w, "Grid Size: %d x %d (wrap around: %t)\n", r.Width, r.Height, r.WrapAround)
	fmt.Fprintf(w, "Terrain: %d open, %d walls, %d weak walls, %d mines\n", r.Open, r.Walls, r.WeakWalls, r.Mines)
	for _, t := range r.Tanks {
		steps := "no firing position reachable"
		if t.FiringSteps >= 0 {
			steps = fmt.Sprintf("%d moves to a firing position", t.FiringSteps)
		}
		fmt.Fprintf(w, "Tank %d: %s facing %s, %s\n", t.ID, t.Position, t.Facing, steps)
	}
	fmt.Fprintf(w, "Distance between tanks: %d\n", r.Distance)

	warnings := r.Warnings()
	if len(warnings) == 0 {
		fmt.Fprintf(w, "✅ Board looks playable\n")
		return
	}
	for _, warning := range warnings {
		fmt.Fprintf(w, "⚠️  WARNING: %s\n", warning)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	manager, err := config.NewManager(cmd.String("boards-dir"))
	if err != nil {
		return err
	}

	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		boards, err := manager.ListBoards()
		if err != nil {
			return err
		}
		for _, b := range boards {
			ids = append(ids, b.Filename)
		}
	}

	out := cmd.Root().Writer
	failed := 0
	for _, id := range ids {
		fmt.Fprintf(out, "\n=== Analyzing %s ===\n", id)
		board, err := manager.LoadBoard(id)
		if err != nil {
			fmt.Fprintf(out, "Error loading board: %v\n", err)
			failed++
			continue
		}
		report, err := Analyze(board)
		if err != nil {
			fmt.Fprintf(out, "Error analyzing board: %v\n", err)
			failed++
			continue
		}
		report.Print(out)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d boards could not be analyzed", failed, len(ids))
	}
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "print playability heuristics for boards",
		ArgsUsage: "[board id...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "boards-dir", Aliases: []string{"d"}, Value: "boards", Sources: cli.EnvVars("BOARDS_DIR")},
		},
		Action: run,
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
