package engine

import "fmt"

// destruction records why each tank died during the current turn
type destruction map[int]string

func (d destruction) add(id int, cause string) {
	if _, seen := d[id]; !seen {
		d[id] = cause
	}
}

// markBoom leaves an explosion mark on an empty cell; terrain is never erased
func markBoom(g *Grid, p Position) {
	if g.CellAt(p.X, p.Y) == Empty {
		g.SetCell(p.X, p.Y, Boom)
	}
}

// moveTank applies a displacement to a tank. Blocked or off-board targets are
// rejected without changing anything. Entering a mine commits the move and
// destroys the tank.
func moveTank(gs *GameState, t *Tank, dx, dy int, dead destruction) (bool, string) {
	target, ok := gs.Grid.NormalizePos(t.Position.Add(dx, dy))
	if !ok {
		return false, "blocked by arena edge"
	}

	terrain := gs.Grid.CellAt(target.X, target.Y)
	if terrain.Blocks() {
		return false, fmt.Sprintf("blocked by %s at %s", terrain, target)
	}

	t.Position = target
	if terrain == Mine {
		t.Destroy()
		gs.Grid.SetCell(target.X, target.Y, Boom)
		dead.add(t.ID, "mine")
		return true, fmt.Sprintf("drove onto mine at %s", target)
	}
	return true, ""
}

// resolveTankCollision destroys both tanks when they share a cell
func resolveTankCollision(gs *GameState, dead destruction) {
	if len(gs.Tanks) < 2 {
		return
	}
	a, b := gs.Tanks[0], gs.Tanks[1]
	if a.Position != b.Position || (!a.Alive && !b.Alive) {
		return
	}
	a.Destroy()
	b.Destroy()
	markBoom(gs.Grid, a.Position)
	dead.add(a.ID, "tank collision")
	dead.add(b.ID, "tank collision")
}

// resolveShells runs one collision pass over the active shells in creation
// order, then drops the inactive ones.
func resolveShells(gs *GameState, dead destruction) {
	g := gs.Grid

	for _, s := range gs.Shells {
		if !s.Active {
			continue
		}
		p := s.Position

		if g.CellAt(p.X, p.Y).Blocks() {
			g.Weaken(p.X, p.Y)
			s.Deactivate()
			continue
		}

		clash := false
		for _, other := range gs.Shells {
			if other != s && other.Active && other.Position == p {
				other.Deactivate()
				clash = true
			}
		}
		if clash {
			s.Deactivate()
			markBoom(g, p)
			continue
		}

		for _, t := range gs.Tanks {
			if t.Alive && t.Position == p {
				t.Destroy()
				markBoom(g, p)
				s.Deactivate()
				dead.add(t.ID, fmt.Sprintf("hit by shell from tank %d", s.Owner))
				break
			}
		}
	}

	gs.Shells = activeShells(gs.Shells)
}

func activeShells(shells []*Shell) []*Shell {
	kept := shells[:0]
	for _, s := range shells {
		if s.Active {
			kept = append(kept, s)
		}
	}
	// clear the tail so dropped shells can be collected
	for i := len(kept); i < len(shells); i++ {
		shells[i] = nil
	}
	return kept
}
