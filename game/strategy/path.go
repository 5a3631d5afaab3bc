package strategy

import "github.com/wricardo/mcp-training/tankbattle/game/engine"

// FindFiringPath runs a breadth-first search over passable cells from the
// controlled tank to the nearest cell with a clear line of fire on the
// opponent. The returned path starts at the tank's own cell; nil means no
// such cell is reachable.
func FindFiringPath(v engine.BattlefieldView) []engine.Position {
	g := v.Grid
	start := v.Self.Position
	target := v.Opponent.Position

	isFiringCell := func(p engine.Position) bool {
		dir, ok := g.Aligned(p, target)
		return ok && g.LineOfFire(p, dir, target, v.Rules.ShellRange)
	}

	cameFrom := map[engine.Position]engine.Position{start: start}
	queue := []engine.Position{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current != start && isFiringCell(current) {
			path := []engine.Position{current}
			for current != start {
				current = cameFrom[current]
				path = append([]engine.Position{current}, path...)
			}
			return path
		}

		for _, dir := range engine.AllDirections() {
			next, ok := g.NormalizePos(current.Add(dir.Offset()))
			if !ok || !g.Passable(next.X, next.Y) || next == target {
				continue
			}
			if _, seen := cameFrom[next]; seen {
				continue
			}
			cameFrom[next] = current
			queue = append(queue, next)
		}
	}
	return nil
}
