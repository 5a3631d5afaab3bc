package strategy

import "github.com/wricardo/mcp-training/tankbattle/game/engine"

// threatHorizon is how many cells ahead of a shell count as danger: two turns
// of flight at two cells per turn
const threatHorizon = 2 * engine.SubStepsPerTurn

// Sniper lines up with the opponent and fires when the path is clear
type Sniper struct{}

func NewSniper() *Sniper { return &Sniper{} }

func (s *Sniper) DecideAction(v engine.BattlefieldView) engine.Action {
	if a, ok := fire(v); ok {
		return a
	}
	return approach(v)
}

// Evasive dodges incoming shells and otherwise plays like Sniper
type Evasive struct {
	fallback Sniper
}

func NewEvasive() *Evasive { return &Evasive{} }

func (e *Evasive) DecideAction(v engine.BattlefieldView) engine.Action {
	if a, ok := dodge(v); ok {
		return a
	}
	return e.fallback.DecideAction(v)
}

// Hunter dodges, fires when it can, and otherwise walks the shortest path to a
// cell with a clear line of fire on the opponent
type Hunter struct{}

func NewHunter() *Hunter { return &Hunter{} }

func (h *Hunter) DecideAction(v engine.BattlefieldView) engine.Action {
	if a, ok := dodge(v); ok {
		return a
	}
	if a, ok := fire(v); ok {
		return a
	}

	path := FindFiringPath(v)
	if len(path) > 1 {
		return stepToward(v, path[1])
	}
	return approach(v)
}

// fire shoots when the opponent is in the line of fire, or turns toward the
// opponent when a clear line exists along another facing
func fire(v engine.BattlefieldView) (engine.Action, bool) {
	self, opp := v.Self, v.Opponent
	if !opp.Alive {
		return engine.DoNothing, false
	}

	if v.Grid.LineOfFire(self.Position, self.Facing, opp.Position, v.Rules.ShellRange) {
		if self.CanShoot() {
			return engine.Shoot, true
		}
		if self.Shells > 0 {
			// hold the aim while reloading
			return engine.DoNothing, true
		}
		return engine.DoNothing, false
	}

	dir, aligned := v.Grid.Aligned(self.Position, opp.Position)
	if aligned && self.Shells > 0 && v.Grid.LineOfFire(self.Position, dir, opp.Position, v.Rules.ShellRange) {
		return turnToward(self.Facing, dir), true
	}
	return engine.DoNothing, false
}

// approach closes in on the opponent. Walls in the way are shot down while
// ammunition lasts; anything else makes it turn.
func approach(v engine.BattlefieldView) engine.Action {
	self := v.Self
	dx, dy := v.Grid.Delta(self.Position, v.Opponent.Position)
	want := engine.DirectionTo(dx, dy)

	if self.Facing != want {
		return turnToward(self.Facing, want)
	}
	if canEnter(v, self.Position, self.Facing) {
		return engine.MoveForward
	}

	ahead, ok := v.Grid.NormalizePos(self.Position.Add(self.Facing.Offset()))
	if ok && v.Grid.CellAt(ahead.X, ahead.Y).Blocks() && self.Shells > 0 {
		if self.CanShoot() {
			return engine.Shoot
		}
		return engine.DoNothing
	}
	return engine.RotateRightEighth
}

// dodge steps off the path of an enemy shell
func dodge(v engine.BattlefieldView) (engine.Action, bool) {
	danger := dangerCells(v)
	if !danger[v.Self.Position] {
		return engine.DoNothing, false
	}

	ahead, ok := v.Grid.NormalizePos(v.Self.Position.Add(v.Self.Facing.Offset()))
	if ok && canEnter(v, v.Self.Position, v.Self.Facing) && !danger[ahead] {
		return engine.MoveForward, true
	}

	// turn toward the nearest facing with a safe cell ahead
	for _, steps := range []int{1, -1, 2, -2, 3, -3, 4} {
		dir := v.Self.Facing.Rotate(steps)
		next, ok := v.Grid.NormalizePos(v.Self.Position.Add(dir.Offset()))
		if ok && canEnter(v, v.Self.Position, dir) && !danger[next] {
			return turnToward(v.Self.Facing, dir), true
		}
	}
	return engine.DoNothing, false
}

// dangerCells marks the cells enemy shells will cross soon
func dangerCells(v engine.BattlefieldView) map[engine.Position]bool {
	danger := map[engine.Position]bool{}
	for _, s := range v.Shells {
		if !s.Active || s.Owner == v.Self.ID {
			continue
		}
		limit := threatHorizon
		if s.MaxRange > 0 && s.MaxRange-s.Distance < limit {
			limit = s.MaxRange - s.Distance
		}
		for _, p := range v.Grid.Ray(s.Position, s.Facing, limit) {
			danger[p] = true
		}
	}
	return danger
}

// canEnter reports whether a forward step along dir is safe terrain
func canEnter(v engine.BattlefieldView, from engine.Position, dir engine.Direction) bool {
	next, ok := v.Grid.NormalizePos(from.Add(dir.Offset()))
	if !ok || !v.Grid.Passable(next.X, next.Y) {
		return false
	}
	return next != v.Opponent.Position || !v.Opponent.Alive
}

// stepToward moves onto an adjacent cell, rotating first if needed
func stepToward(v engine.BattlefieldView, next engine.Position) engine.Action {
	dx, dy := v.Grid.Delta(v.Self.Position, next)
	dir := engine.DirectionTo(dx, dy)
	if v.Self.Facing != dir {
		return turnToward(v.Self.Facing, dir)
	}
	return engine.MoveForward
}

// turnToward picks the rotation that brings facing closest to target
func turnToward(facing, target engine.Direction) engine.Action {
	switch steps := facing.RotationSteps(target); {
	case steps == 0:
		return engine.DoNothing
	case steps >= 2:
		return engine.RotateRightQuarter
	case steps == 1:
		return engine.RotateRightEighth
	case steps == -1:
		return engine.RotateLeftEighth
	default:
		return engine.RotateLeftQuarter
	}
}
