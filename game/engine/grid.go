package engine

import "fmt"

// Grid owns per-cell terrain and wrap-around indexing
type Grid struct {
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	WrapAround bool     `json:"wrap_around"`
	Cells      [][]Cell `json:"cells"` // indexed [y][x]
}

// NewGrid creates an all-empty grid
func NewGrid(width, height int, wrap bool) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("grid dimensions must be positive, got %dx%d", width, height)
	}

	cells := make([][]Cell, height)
	for y := range cells {
		cells[y] = make([]Cell, width)
		for x := range cells[y] {
			cells[y][x] = Cell{Terrain: Empty}
		}
	}

	return &Grid{
		Width:      width,
		Height:     height,
		WrapAround: wrap,
		Cells:      cells,
	}, nil
}

// Normalize maps (x,y) onto the board. On a wrap-around grid every coordinate
// is valid; otherwise ok is false for off-board coordinates.
func (g *Grid) Normalize(x, y int) (int, int, bool) {
	if g.WrapAround {
		return ((x % g.Width) + g.Width) % g.Width, ((y % g.Height) + g.Height) % g.Height, true
	}
	if x < 0 || x >= g.Width || y < 0 || y >= g.Height {
		return x, y, false
	}
	return x, y, true
}

// NormalizePos is Normalize for a Position
func (g *Grid) NormalizePos(p Position) (Position, bool) {
	x, y, ok := g.Normalize(p.X, p.Y)
	return Position{X: x, Y: y}, ok
}

// InBounds reports whether (x,y) addresses a cell after normalization
func (g *Grid) InBounds(x, y int) bool {
	_, _, ok := g.Normalize(x, y)
	return ok
}

// CellAt returns the terrain at (x,y), or Unknown off-board
func (g *Grid) CellAt(x, y int) Terrain {
	nx, ny, ok := g.Normalize(x, y)
	if !ok {
		return Unknown
	}
	return g.Cells[ny][nx].Terrain
}

// Damage returns the wall damage counter at (x,y)
func (g *Grid) Damage(x, y int) int {
	nx, ny, ok := g.Normalize(x, y)
	if !ok {
		return 0
	}
	return g.Cells[ny][nx].Damage
}

// SetCell writes terrain at (x,y); off-board writes are dropped
func (g *Grid) SetCell(x, y int, t Terrain) {
	nx, ny, ok := g.Normalize(x, y)
	if !ok || t == Unknown {
		return
	}
	damage := 0
	if t == WeakWall {
		damage = 1
	}
	g.Cells[ny][nx] = Cell{Terrain: t, Damage: damage}
}

// Weaken applies one hit to a wall cell. The first hit leaves a weak wall,
// the second clears the cell. Returns true if the cell was a wall.
func (g *Grid) Weaken(x, y int) bool {
	nx, ny, ok := g.Normalize(x, y)
	if !ok {
		return false
	}
	cell := &g.Cells[ny][nx]
	if !cell.Terrain.Blocks() {
		return false
	}

	cell.Damage++
	if cell.Damage >= 2 {
		cell.Terrain = Empty
		cell.Damage = 0
	} else {
		cell.Terrain = WeakWall
	}
	return true
}

// ClearBooms resets transient explosion marks to empty
func (g *Grid) ClearBooms() {
	for y := range g.Cells {
		for x := range g.Cells[y] {
			if g.Cells[y][x].Terrain == Boom {
				g.Cells[y][x] = Cell{Terrain: Empty}
			}
		}
	}
}

// Count returns how many cells carry terrain t
func (g *Grid) Count(t Terrain) int {
	count := 0
	for _, row := range g.Cells {
		for _, cell := range row {
			if cell.Terrain == t {
				count++
			}
		}
	}
	return count
}

// Clone returns a deep copy
func (g *Grid) Clone() *Grid {
	if g == nil {
		return nil
	}
	cells := make([][]Cell, len(g.Cells))
	for y := range g.Cells {
		cells[y] = append([]Cell(nil), g.Cells[y]...)
	}
	return &Grid{
		Width:      g.Width,
		Height:     g.Height,
		WrapAround: g.WrapAround,
		Cells:      cells,
	}
}
