package engine

// BattlefieldView is the read-only picture a controller decides from.
// Every field is a copy; mutating it has no effect on the match.
type BattlefieldView struct {
	Turn     int     `json:"turn"`
	Self     Tank    `json:"self"`
	Opponent Tank    `json:"opponent"`
	Grid     *Grid   `json:"grid"`
	Shells   []Shell `json:"shells"`
	Rules    Rules   `json:"rules"`
}

// NewView builds the view for tank id from the current state
func NewView(gs *GameState, id int) BattlefieldView {
	view := BattlefieldView{
		Turn:  gs.Turn,
		Grid:  gs.Grid.Clone(),
		Rules: gs.Rules,
	}
	if t := gs.Tank(id); t != nil {
		view.Self = *t
	}
	if o := gs.Opponent(id); o != nil {
		view.Opponent = *o
	}
	for _, s := range gs.Shells {
		if s.Active {
			view.Shells = append(view.Shells, *s)
		}
	}
	return view
}

// Controller decides one action per turn for a tank
type Controller interface {
	DecideAction(view BattlefieldView) Action
}

// ControllerFunc adapts a plain function to Controller
type ControllerFunc func(view BattlefieldView) Action

func (f ControllerFunc) DecideAction(view BattlefieldView) Action {
	return f(view)
}

// Idle is a controller that never acts
var Idle Controller = ControllerFunc(func(BattlefieldView) Action { return DoNothing })

// Snapshot is the state published to observers after each turn
type Snapshot struct {
	Turn          int              `json:"turn"`
	Status        Status           `json:"status"`
	BoardName     string           `json:"board_name"`
	Grid          *Grid            `json:"grid"`
	Tanks         []Tank           `json:"tanks"`
	Shells        []Shell          `json:"shells"`
	ZeroAmmoTurns int              `json:"zero_ammo_turns"`
	Outcome       *Outcome         `json:"outcome,omitempty"`
	Entries       []ActionLogEntry `json:"entries,omitempty"`
}

// NewSnapshot copies the observable parts of gs
func NewSnapshot(gs *GameState) Snapshot {
	snap := Snapshot{
		Turn:          gs.Turn,
		Status:        gs.Status,
		BoardName:     gs.BoardName,
		Grid:          gs.Grid.Clone(),
		ZeroAmmoTurns: gs.ZeroAmmoTurns,
	}
	for _, t := range gs.Tanks {
		snap.Tanks = append(snap.Tanks, *t)
	}
	for _, s := range gs.Shells {
		snap.Shells = append(snap.Shells, *s)
	}
	if gs.Outcome != nil {
		out := *gs.Outcome
		snap.Outcome = &out
	}
	if n := len(gs.History); n > 0 && gs.History[n-1].Turn == gs.Turn {
		snap.Entries = append([]ActionLogEntry(nil), gs.History[n-1].Entries...)
	}
	return snap
}

// Observer receives the action log and a snapshot after every turn
type Observer interface {
	OnAction(entry ActionLogEntry)
	OnTurn(snap Snapshot)
}

// Observers fans out to several observers in order
type Observers []Observer

func (obs Observers) OnAction(entry ActionLogEntry) {
	for _, o := range obs {
		if o != nil {
			o.OnAction(entry)
		}
	}
}

func (obs Observers) OnTurn(snap Snapshot) {
	for _, o := range obs {
		if o != nil {
			o.OnTurn(snap)
		}
	}
}

// TurnFunc adapts a snapshot callback to Observer, ignoring action lines
type TurnFunc func(snap Snapshot)

func (f TurnFunc) OnAction(ActionLogEntry) {}

func (f TurnFunc) OnTurn(snap Snapshot) { f(snap) }
