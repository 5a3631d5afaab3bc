package engine

// Delta returns the displacement from one cell to another. On a wrap-around
// grid the shortest way around each axis is taken.
func (g *Grid) Delta(from, to Position) (dx, dy int) {
	dx, dy = to.X-from.X, to.Y-from.Y
	if g.WrapAround {
		dx = shortestWrap(dx, g.Width)
		dy = shortestWrap(dy, g.Height)
	}
	return dx, dy
}

// Distance is the number of king moves between two cells
func (g *Grid) Distance(from, to Position) int {
	dx, dy := g.Delta(from, to)
	return max(abs(dx), abs(dy))
}

func shortestWrap(d, size int) int {
	d %= size
	if d > size/2 {
		d -= size
	} else if d < -size/2 {
		d += size
	}
	return d
}

// Aligned reports whether to lies on one of the 8 rays leaving from, and
// returns the facing of that ray
func (g *Grid) Aligned(from, to Position) (Direction, bool) {
	dx, dy := g.Delta(from, to)
	if dx == 0 && dy == 0 {
		return Up, false
	}
	if dx != 0 && dy != 0 && abs(dx) != abs(dy) {
		return Up, false
	}
	return DirectionTo(dx, dy), true
}

// LineOfFire walks from start along facing and reports whether target is
// reached before a wall, the arena edge or maxRange cells (0 = unlimited).
func (g *Grid) LineOfFire(start Position, facing Direction, target Position, maxRange int) bool {
	limit := g.Width * g.Height
	if maxRange > 0 && maxRange < limit {
		limit = maxRange
	}

	dx, dy := facing.Offset()
	p := start
	for step := 0; step < limit; step++ {
		next, ok := g.NormalizePos(p.Add(dx, dy))
		if !ok || g.CellAt(next.X, next.Y).Blocks() {
			return false
		}
		if next == target {
			return true
		}
		if next == start {
			return false
		}
		p = next
	}
	return false
}

// Ray lists the cells a shell fired from start would cross, stopping before
// the first wall or the arena edge
func (g *Grid) Ray(start Position, facing Direction, maxRange int) []Position {
	limit := g.Width * g.Height
	if maxRange > 0 && maxRange < limit {
		limit = maxRange
	}

	var cells []Position
	dx, dy := facing.Offset()
	p := start
	for step := 0; step < limit; step++ {
		next, ok := g.NormalizePos(p.Add(dx, dy))
		if !ok || next == start || g.CellAt(next.X, next.Y).Blocks() {
			break
		}
		cells = append(cells, next)
		p = next
	}
	return cells
}

// Passable reports whether a tank may enter (x,y) without being destroyed
func (g *Grid) Passable(x, y int) bool {
	t := g.CellAt(x, y)
	return t == Empty || t == Boom
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
