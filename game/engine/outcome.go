package engine

import "fmt"

// Result names the winner of a finished match
type Result string

const (
	Player1Wins Result = "player_1_wins"
	Player2Wins Result = "player_2_wins"
	Tie         Result = "tie"
)

// Reason explains why a match ended
type Reason string

const (
	ReasonTankDestroyed Reason = "tank_destroyed"
	ReasonBothDestroyed Reason = "both_destroyed"
	ReasonMaxTurns      Reason = "max_turns"
	ReasonAmmoExhausted Reason = "ammo_exhausted"
)

// Outcome is the final verdict of a match
type Outcome struct {
	Result Result `json:"result"`
	Reason Reason `json:"reason"`
	Winner int    `json:"winner,omitempty"` // tank id, 0 on a tie
	Turn   int    `json:"turn"`
}

func (o Outcome) String() string {
	return fmt.Sprintf("%s (%s) after %d turns", o.Result, o.Reason, o.Turn)
}

// Evaluate computes the outcome of a state whose loop has exited
func Evaluate(gs *GameState) Outcome {
	t1, t2 := gs.Tank(1), gs.Tank(2)
	out := Outcome{Turn: gs.Turn}

	dead1 := t1 == nil || !t1.Alive
	dead2 := t2 == nil || !t2.Alive

	switch {
	case dead1 && dead2:
		out.Result, out.Reason = Tie, ReasonBothDestroyed
	case dead2:
		out.Result, out.Reason, out.Winner = Player1Wins, ReasonTankDestroyed, 1
	case dead1:
		out.Result, out.Reason, out.Winner = Player2Wins, ReasonTankDestroyed, 2
	case gs.ZeroAmmoTurns >= gs.Rules.AmmoTimeout:
		out.Result, out.Reason = Tie, ReasonAmmoExhausted
	default:
		out.Result, out.Reason = Tie, ReasonMaxTurns
	}
	return out
}

// shouldStop reports whether any termination condition holds
func shouldStop(gs *GameState) bool {
	for _, t := range gs.Tanks {
		if !t.Alive {
			return true
		}
	}
	if gs.ZeroAmmoTurns >= gs.Rules.AmmoTimeout {
		return true
	}
	return gs.Turn >= gs.Rules.MaxTurns
}
