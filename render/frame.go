// Package render draws match snapshots, either as plain ASCII frames written
// to any io.Writer or on a termbox screen.
package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/wricardo/mcp-training/tankbattle/game/engine"
)

// Frame glyphs
const (
	GlyphEmpty    = ' '
	GlyphWall     = '#'
	GlyphWeakWall = '='
	GlyphMine     = '@'
	GlyphBoom     = '%'
	GlyphShell    = 'o'
	GlyphWreck    = 'x'
)

// Frame renders the grid of a snapshot, one string per row. Tanks are drawn
// as their id, wrecks as 'x', shells as 'o'.
func Frame(snap engine.Snapshot) []string {
	g := snap.Grid
	if g == nil {
		return nil
	}

	rows := make([][]rune, g.Height)
	for y := 0; y < g.Height; y++ {
		rows[y] = make([]rune, g.Width)
		for x := 0; x < g.Width; x++ {
			rows[y][x] = terrainGlyph(g, x, y)
		}
	}

	for _, s := range snap.Shells {
		if p, ok := g.NormalizePos(s.Position); ok && s.Active {
			rows[p.Y][p.X] = GlyphShell
		}
	}
	for _, t := range snap.Tanks {
		p, ok := g.NormalizePos(t.Position)
		if !ok {
			continue
		}
		glyph := rune('0' + t.ID%10)
		if !t.Alive {
			glyph = GlyphWreck
		}
		rows[p.Y][p.X] = glyph
	}

	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = string(r)
	}
	return out
}

func terrainGlyph(g *engine.Grid, x, y int) rune {
	switch g.CellAt(x, y) {
	case engine.Wall:
		return GlyphWall
	case engine.WeakWall:
		return GlyphWeakWall
	case engine.Mine:
		return GlyphMine
	case engine.Boom:
		return GlyphBoom
	}
	return GlyphEmpty
}

// Status summarizes a snapshot on one line
func Status(snap engine.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "turn %d", snap.Turn)
	for _, t := range snap.Tanks {
		state := "alive"
		if !t.Alive {
			state = "destroyed"
		}
		fmt.Fprintf(&b, " | tank %d %s %s %s shells=%d cd=%d", t.ID, state, t.Position, t.Facing, t.Shells, t.Cooldown)
	}
	if snap.Outcome != nil {
		fmt.Fprintf(&b, " | %s", snap.Outcome)
	}
	return b.String()
}

// Writer is an engine observer that prints a frame after every turn
type Writer struct {
	w       io.Writer
	actions bool
	mu      sync.Mutex
}

// NewWriter returns a frame writer. With actions set, every action log line
// is printed as well.
func NewWriter(w io.Writer, actions bool) *Writer {
	return &Writer{w: w, actions: actions}
}

func (fw *Writer) OnAction(entry engine.ActionLogEntry) {
	if !fw.actions {
		return
	}
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fmt.Fprintln(fw.w, entry.String())
}

func (fw *Writer) OnTurn(snap engine.Snapshot) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	for _, row := range Frame(snap) {
		fmt.Fprintln(fw.w, row)
	}
	fmt.Fprintln(fw.w, Status(snap))
	fmt.Fprintln(fw.w)
}
