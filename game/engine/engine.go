package engine

import (
	"context"
	"fmt"
	"time"
)

// Engine runs the turn loop of a single match. It is not safe for concurrent
// use; callers serialize access.
type Engine struct {
	board       *Board
	rules       Rules
	state       *GameState
	controllers map[int]Controller
	observer    Observer
	delay       time.Duration
}

// Option configures an Engine
type Option func(*Engine)

// WithRules overrides the default rule set
func WithRules(rules Rules) Option {
	return func(e *Engine) { e.rules = rules.withDefaults() }
}

// WithObserver installs the sink for action lines and turn snapshots
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithTurnDelay sets the pause Run takes between turns
func WithTurnDelay(d time.Duration) Option {
	return func(e *Engine) { e.delay = d }
}

// NewEngine validates the board and builds the initial state. Nil controllers
// behave like Idle.
func NewEngine(board *Board, p1, p2 Controller, opts ...Option) (*Engine, error) {
	e := &Engine{
		board:       board,
		rules:       DefaultRules(),
		controllers: map[int]Controller{1: p1, 2: p2},
	}
	for _, opt := range opts {
		opt(e)
	}

	state, err := NewState(board, e.rules)
	if err != nil {
		return nil, err
	}
	e.state = state
	return e, nil
}

// State returns the live game state
func (e *Engine) State() *GameState {
	return e.state
}

// SetState replaces the game state (used when restoring a persisted match)
func (e *Engine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if state.Grid == nil || len(state.Tanks) != 2 {
		return fmt.Errorf("state must carry a grid and two tanks")
	}
	state.Rules = state.Rules.withDefaults()
	e.state = state
	e.rules = state.Rules
	return nil
}

// Board returns the board the match was built from
func (e *Engine) Board() *Board {
	return e.board
}

// Rules returns the rule set in force
func (e *Engine) Rules() Rules {
	return e.rules
}

// SetObserver replaces the turn observer; nil disables notifications
func (e *Engine) SetObserver(o Observer) {
	e.observer = o
}

// SetController swaps the controller of tank id
func (e *Engine) SetController(id int, c Controller) {
	e.controllers[id] = c
}

// Controller returns the controller of tank id
func (e *Engine) Controller(id int) Controller {
	return e.controllers[id]
}

// Reset rebuilds the initial state from the board
func (e *Engine) Reset() (*GameState, error) {
	state, err := NewState(e.board, e.rules)
	if err != nil {
		return nil, err
	}
	e.state = state
	return state, nil
}

// IsOver reports whether the match has ended
func (e *Engine) IsOver() bool {
	return e.state.IsOver()
}

// Outcome returns the final verdict, or nil while running
func (e *Engine) Outcome() *Outcome {
	return e.state.Outcome
}

// Snapshot returns a copy of the observable state
func (e *Engine) Snapshot() Snapshot {
	return NewSnapshot(e.state)
}

// Step resolves one full turn and returns the resulting snapshot. Calling
// Step on a finished match returns the final snapshot unchanged.
func (e *Engine) Step() Snapshot {
	gs := e.state
	if gs.IsOver() {
		return NewSnapshot(gs)
	}

	gs.Turn++
	gs.Grid.ClearBooms()

	// every controller sees the board as it stood before anyone acted
	actions := make(map[int]Action, len(gs.Tanks))
	for _, t := range gs.Tanks {
		if t.Alive {
			actions[t.ID] = e.decide(t.ID, gs)
		}
	}

	dead := destruction{}
	var entries []ActionLogEntry
	for _, t := range gs.Tanks {
		if !t.Alive {
			continue
		}
		entries = append(entries, e.apply(gs, t, actions[t.ID], dead))
	}

	resolveTankCollision(gs, dead)

	for _, t := range gs.Tanks {
		if t.Alive {
			t.Update()
		}
	}

	for sub := 0; sub < SubStepsPerTurn; sub++ {
		for _, s := range gs.Shells {
			s.Advance(gs.Grid)
		}
		resolveShells(gs, dead)
	}

	for i := range entries {
		if cause, ok := dead[entries[i].TankID]; ok {
			entries[i].Destroyed = true
			if entries[i].Note != "" {
				entries[i].Note += "; "
			}
			entries[i].Note += cause
		}
	}

	e.updateAmmoCounter(gs)
	if shouldStop(gs) {
		gs.Status = Over
		out := Evaluate(gs)
		gs.Outcome = &out
	}

	gs.History = append(gs.History, TurnRecord{Turn: gs.Turn, Entries: entries})

	snap := NewSnapshot(gs)
	if e.observer != nil {
		for _, entry := range entries {
			e.observer.OnAction(entry)
		}
		e.observer.OnTurn(snap)
	}
	return snap
}

// Run plays turns until the match ends. The context is only checked between
// turns; a cancelled run leaves the state consistent and resumable.
func (e *Engine) Run(ctx context.Context) (*Outcome, error) {
	for !e.state.IsOver() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.Step()

		if e.delay > 0 && !e.state.IsOver() {
			timer := time.NewTimer(e.delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}
	return e.state.Outcome, nil
}

func (e *Engine) decide(id int, gs *GameState) Action {
	c := e.controllers[id]
	if c == nil {
		return DoNothing
	}
	return c.DecideAction(NewView(gs, id))
}

// apply executes one tank's action. Actions that cannot take effect are
// logged as not applied and change nothing.
func (e *Engine) apply(gs *GameState, t *Tank, action Action, dead destruction) ActionLogEntry {
	entry := ActionLogEntry{
		Turn:   gs.Turn,
		TankID: t.ID,
		Action: action,
		From:   t.Position,
	}

	if !action.Valid() {
		entry.Note = fmt.Sprintf("unknown action %q", action)
		entry.Action = DoNothing
		entry.To = t.Position
		return entry
	}

	if t.Backward == BackwardMoving {
		dx, dy := t.MoveBackward()
		entry.Action = MoveBackward
		entry.Applied, entry.Note = moveTank(gs, t, dx, dy, dead)
		if entry.Note == "" {
			entry.Note = "deferred backward move"
		} else {
			entry.Note = "deferred backward move, " + entry.Note
		}
		if action != DoNothing && action != MoveBackward {
			entry.Note += fmt.Sprintf(", %s skipped", action)
		}
		entry.To = t.Position
		return entry
	}

	switch action {
	case MoveForward:
		dx, dy := t.MoveForward()
		entry.Applied, entry.Note = moveTank(gs, t, dx, dy, dead)
	case MoveBackward:
		entry.Applied = t.RequestBackward()
		if entry.Applied {
			entry.Note = "backward move armed"
		} else {
			entry.Note = "backward move already pending"
		}
	case RotateLeftEighth:
		t.RotateLeftEighth()
		entry.Applied = true
	case RotateRightEighth:
		t.RotateRightEighth()
		entry.Applied = true
	case RotateLeftQuarter:
		t.RotateLeftQuarter()
		entry.Applied = true
	case RotateRightQuarter:
		t.RotateRightQuarter()
		entry.Applied = true
	case Shoot:
		shell := t.Shoot(gs.Rules.ShellRange)
		if shell == nil {
			entry.Note = shootRefusal(t)
			break
		}
		gs.NextShellID++
		shell.ID = gs.NextShellID
		gs.Shells = append(gs.Shells, shell)
		entry.Applied = true
		entry.Note = fmt.Sprintf("fired %s, %d shells left", t.Facing, t.Shells)
	case DoNothing:
		entry.Applied = true
	}

	entry.To = t.Position
	return entry
}

func shootRefusal(t *Tank) string {
	switch {
	case t.Shells == 0:
		return "out of shells"
	case t.Cooldown > 0:
		return fmt.Sprintf("cooling down (%d)", t.Cooldown)
	}
	return "cannot shoot"
}

func (e *Engine) updateAmmoCounter(gs *GameState) {
	for _, t := range gs.Tanks {
		if t.Shells > 0 {
			gs.ZeroAmmoTurns = 0
			return
		}
	}
	gs.ZeroAmmoTurns++
}

// NewState builds the turn-0 state of a board
func NewState(board *Board, rules Rules) (*GameState, error) {
	if board == nil {
		return nil, fmt.Errorf("%w: board is nil", ErrInvalidBoard)
	}
	if err := ValidateBoard(board); err != nil {
		return nil, err
	}
	rules = rules.withDefaults()

	grid, starts, err := board.layoutGrid()
	if err != nil {
		return nil, err
	}

	f1, f2 := board.facings()
	return &GameState{
		Grid: grid,
		Tanks: []*Tank{
			NewTank(1, starts[1], f1, rules),
			NewTank(2, starts[2], f2, rules),
		},
		Shells:    []*Shell{},
		Status:    Running,
		Rules:     rules,
		BoardName: board.Name,
		History:   []TurnRecord{},
	}, nil
}
