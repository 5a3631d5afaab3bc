package engine

// Kind tags the variant of an Entity
type Kind string

const (
	KindTank  Kind = "tank"
	KindShell Kind = "shell"
)

// Entity holds the fields shared by everything that occupies a cell
type Entity struct {
	Kind     Kind      `json:"kind"`
	Position Position  `json:"position"`
	Facing   Direction `json:"facing"`
}

// BackwardState tracks a deferred backward move
type BackwardState string

const (
	BackwardNotRequested BackwardState = "not_requested"
	BackwardWaiting1     BackwardState = "waiting_1"
	BackwardWaiting2     BackwardState = "waiting_2"
	BackwardMoving       BackwardState = "moving_backward"
)

// Tank is a player-controlled entity
type Tank struct {
	Entity
	ID       int           `json:"id"`
	Alive    bool          `json:"alive"`
	Shells   int           `json:"shells"`
	Cooldown int           `json:"cooldown"`
	Backward BackwardState `json:"backward"`
	Reload   int           `json:"reload"` // cooldown applied after each shot
}

// NewTank creates a live tank with a full magazine
func NewTank(id int, pos Position, facing Direction, rules Rules) *Tank {
	return &Tank{
		Entity:   Entity{Kind: KindTank, Position: pos, Facing: facing},
		ID:       id,
		Alive:    true,
		Shells:   rules.Shells(),
		Backward: BackwardNotRequested,
		Reload:   rules.ShootCooldown,
	}
}

// MoveForward returns the displacement of a forward step; it does not move the tank
func (t *Tank) MoveForward() (dx, dy int) {
	return t.Facing.Offset()
}

// MoveBackward returns the displacement of a backward step; it does not move the tank
func (t *Tank) MoveBackward() (dx, dy int) {
	return t.Facing.Opposite().Offset()
}

func (t *Tank) RotateLeftEighth()   { t.Facing = t.Facing.Rotate(-1) }
func (t *Tank) RotateRightEighth()  { t.Facing = t.Facing.Rotate(1) }
func (t *Tank) RotateLeftQuarter()  { t.Facing = t.Facing.Rotate(-2) }
func (t *Tank) RotateRightQuarter() { t.Facing = t.Facing.Rotate(2) }

// CanShoot reports whether the tank is ready to fire
func (t *Tank) CanShoot() bool {
	return t.Alive && t.Cooldown == 0 && t.Shells > 0
}

// Shoot spawns a shell at the tank's cell with its facing. Returns nil when the
// tank cannot shoot.
func (t *Tank) Shoot(shellRange int) *Shell {
	if !t.CanShoot() {
		return nil
	}
	t.Shells--
	t.Cooldown = t.cooldownReset()
	return NewShell(t.ID, t.Position, t.Facing, shellRange)
}

func (t *Tank) cooldownReset() int {
	if t.Reload <= 0 {
		return DefaultShootCooldown
	}
	return t.Reload
}

// RequestBackward arms a deferred backward move. Ignored unless idle.
func (t *Tank) RequestBackward() bool {
	if t.Backward != BackwardNotRequested {
		return false
	}
	t.Backward = BackwardWaiting1
	return true
}

// CancelBackward drops a pending backward move that has not started yet.
// Turns never call it; callers cancel between turns.
func (t *Tank) CancelBackward() bool {
	if t.Backward != BackwardWaiting1 && t.Backward != BackwardWaiting2 {
		return false
	}
	t.Backward = BackwardNotRequested
	return true
}

// Update runs once per turn after action resolution
func (t *Tank) Update() {
	if t.Cooldown > 0 {
		t.Cooldown--
	}

	switch t.Backward {
	case BackwardWaiting1:
		t.Backward = BackwardWaiting2
	case BackwardWaiting2:
		t.Backward = BackwardMoving
	case BackwardMoving:
		t.Backward = BackwardNotRequested
	}
}

// Destroy marks the tank dead; repeated calls are harmless
func (t *Tank) Destroy() {
	t.Alive = false
}

// Clone returns a copy safe to hand to controllers
func (t *Tank) Clone() *Tank {
	c := *t
	return &c
}

// Shell is a projectile travelling one cell per sub-step
type Shell struct {
	Entity
	ID       int  `json:"id"`
	Owner    int  `json:"owner"`
	Active   bool `json:"active"`
	Damage   int  `json:"damage"`
	MaxRange int  `json:"max_range"` // 0 means unlimited
	Distance int  `json:"distance"`
}

// NewShell creates an active shell at pos
func NewShell(owner int, pos Position, facing Direction, maxRange int) *Shell {
	if maxRange < 0 {
		maxRange = 0
	}
	return &Shell{
		Entity:   Entity{Kind: KindShell, Position: pos, Facing: facing},
		Owner:    owner,
		Active:   true,
		Damage:   DefaultShellDamage,
		MaxRange: maxRange,
	}
}

// Advance moves the shell one cell along its facing. A shell that steps off a
// bounded grid has left the arena and is deactivated.
func (s *Shell) Advance(g *Grid) {
	if !s.Active {
		return
	}

	dx, dy := s.Facing.Offset()
	next, ok := g.NormalizePos(s.Position.Add(dx, dy))
	s.Position = next
	s.Distance++
	if !ok {
		s.Deactivate()
		return
	}
	if s.MaxRange > 0 && s.Distance >= s.MaxRange {
		s.Deactivate()
	}
}

// Deactivate takes the shell out of play; repeated calls are harmless
func (s *Shell) Deactivate() {
	s.Active = false
}

// Clone returns a copy safe to hand to controllers
func (s *Shell) Clone() *Shell {
	c := *s
	return &c
}
