package engine

import (
	"errors"
	"fmt"
)

// Terrain represents the static content of a grid cell
type Terrain string

const (
	Empty    Terrain = "empty"
	Wall     Terrain = "wall"
	WeakWall Terrain = "weak_wall"
	Mine     Terrain = "mine"
	Boom     Terrain = "boom"    // transient explosion mark, cleared next turn
	Unknown  Terrain = "unknown" // returned for off-board reads on bounded grids

	// Validation constants
	MinGridSize = 1
	MaxGridSize = 200

	// Rule defaults
	DefaultInitialShells = 16
	DefaultShootCooldown = 4
	DefaultMaxTurns      = 1000
	DefaultAmmoTimeout   = 40
	DefaultShellDamage   = 1
	SubStepsPerTurn      = 2

	// NoShells in Rules.InitialShells starts both tanks unarmed; zero means
	// the default allotment
	NoShells = -1
)

// Blocks reports whether tanks and shells are stopped by this terrain
func (t Terrain) Blocks() bool {
	return t == Wall || t == WeakWall
}

// Cell represents a single grid cell
type Cell struct {
	Terrain Terrain `json:"terrain"`
	Damage  int     `json:"damage,omitempty"` // hits absorbed, walls only
}

// Position represents x,y coordinates
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Add returns p offset by (dx, dy)
func (p Position) Add(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Action is one entry of the fixed per-turn action vocabulary
type Action string

const (
	MoveForward        Action = "move_forward"
	MoveBackward       Action = "move_backward"
	RotateLeftEighth   Action = "rotate_left_eighth"
	RotateRightEighth  Action = "rotate_right_eighth"
	RotateLeftQuarter  Action = "rotate_left_quarter"
	RotateRightQuarter Action = "rotate_right_quarter"
	Shoot              Action = "shoot"
	DoNothing          Action = "do_nothing"
)

// Actions lists the action vocabulary in a stable order
var Actions = []Action{
	MoveForward,
	MoveBackward,
	RotateLeftEighth,
	RotateRightEighth,
	RotateLeftQuarter,
	RotateRightQuarter,
	Shoot,
	DoNothing,
}

// Valid reports whether a belongs to the action vocabulary
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// ErrUnknownAction is returned for action names outside the action set
var ErrUnknownAction = errors.New("unknown action")

// ParseAction converts a string into an Action
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.Valid() {
		return DoNothing, fmt.Errorf("%w %q", ErrUnknownAction, s)
	}
	return a, nil
}

// Status is the scheduler state
type Status string

const (
	Running Status = "running"
	Over    Status = "over"
)

// Rules holds the tunable constants of a match. Zero fields take the
// defaults; use NoShells for unarmed tanks.
type Rules struct {
	InitialShells int `json:"initial_shells"`
	ShootCooldown int `json:"shoot_cooldown"`
	MaxTurns      int `json:"max_turns"`
	AmmoTimeout   int `json:"ammo_timeout"`
	ShellRange    int `json:"shell_range"` // 0 means unlimited
}

// DefaultRules returns the standard rule set
func DefaultRules() Rules {
	return Rules{
		InitialShells: DefaultInitialShells,
		ShootCooldown: DefaultShootCooldown,
		MaxTurns:      DefaultMaxTurns,
		AmmoTimeout:   DefaultAmmoTimeout,
	}
}

// withDefaults fills zero-valued limits with the defaults
func (r Rules) withDefaults() Rules {
	d := DefaultRules()
	if r.InitialShells == 0 {
		r.InitialShells = d.InitialShells
	}
	if r.ShootCooldown <= 0 {
		r.ShootCooldown = d.ShootCooldown
	}
	if r.MaxTurns <= 0 {
		r.MaxTurns = d.MaxTurns
	}
	if r.AmmoTimeout <= 0 {
		r.AmmoTimeout = d.AmmoTimeout
	}
	if r.InitialShells < 0 {
		r.InitialShells = NoShells
	}
	if r.ShellRange < 0 {
		r.ShellRange = 0
	}
	return r
}

// Shells is the per-tank allotment the rules grant
func (r Rules) Shells() int {
	return max(r.InitialShells, 0)
}

// ActionLogEntry is one human-readable record of an applied action
type ActionLogEntry struct {
	Turn      int      `json:"turn"`
	TankID    int      `json:"tank_id"`
	Action    Action   `json:"action"`
	Applied   bool     `json:"applied"`
	Note      string   `json:"note,omitempty"`
	From      Position `json:"from"`
	To        Position `json:"to"`
	Destroyed bool     `json:"destroyed,omitempty"`
}

func (e ActionLogEntry) String() string {
	status := "ok"
	if !e.Applied {
		status = "ignored"
	}
	line := fmt.Sprintf("turn %d: tank %d %s %s->%s [%s]", e.Turn, e.TankID, e.Action, e.From, e.To, status)
	if e.Note != "" {
		line += " " + e.Note
	}
	if e.Destroyed {
		line += " DESTROYED"
	}
	return line
}

// TurnRecord groups the action log lines of one turn
type TurnRecord struct {
	Turn    int              `json:"turn"`
	Entries []ActionLogEntry `json:"entries"`
}

// GameState represents the complete match state
type GameState struct {
	Grid          *Grid        `json:"grid"`
	Tanks         []*Tank      `json:"tanks"`
	Shells        []*Shell     `json:"shells"`
	Turn          int          `json:"turn"`
	Status        Status       `json:"status"`
	ZeroAmmoTurns int          `json:"zero_ammo_turns"`
	Outcome       *Outcome     `json:"outcome,omitempty"`
	Rules         Rules        `json:"rules"`
	BoardName     string       `json:"board_name"`
	History       []TurnRecord `json:"history"`
	NextShellID   int          `json:"next_shell_id"`
}

// Tank returns the tank with the given id, or nil
func (gs *GameState) Tank(id int) *Tank {
	for _, t := range gs.Tanks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Opponent returns the tank that is not id
func (gs *GameState) Opponent(id int) *Tank {
	for _, t := range gs.Tanks {
		if t.ID != id {
			return t
		}
	}
	return nil
}

// IsOver reports whether the match has ended
func (gs *GameState) IsOver() bool {
	return gs.Status == Over
}

// Clone returns a deep copy of the state
func (gs *GameState) Clone() *GameState {
	c := *gs
	c.Grid = gs.Grid.Clone()
	c.Tanks = make([]*Tank, len(gs.Tanks))
	for i, t := range gs.Tanks {
		c.Tanks[i] = t.Clone()
	}
	c.Shells = make([]*Shell, len(gs.Shells))
	for i, s := range gs.Shells {
		c.Shells[i] = s.Clone()
	}
	if gs.Outcome != nil {
		out := *gs.Outcome
		c.Outcome = &out
	}
	c.History = make([]TurnRecord, len(gs.History))
	for i, rec := range gs.History {
		c.History[i] = TurnRecord{Turn: rec.Turn, Entries: append([]ActionLogEntry(nil), rec.Entries...)}
	}
	return &c
}
