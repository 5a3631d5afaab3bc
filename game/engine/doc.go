// Package engine provides the turn-resolution core of the tank battle game.
//
// The engine package implements the game mechanics including:
//   - Grid terrain with destructible walls, mines and optional wrap-around
//   - Eight-way facings shared by tanks and shells
//   - Tank actions, shooting cooldown and the deferred backward move
//   - Shell flight in two sub-steps per turn with collision resolution
//   - Termination rules and outcome evaluation
//   - Board description parsing (text, JSON, YAML) and validation
//
// Core Types:
//
// Engine owns one match. It is built from a Board and two Controllers, and
// publishes every turn to an Observer. GameState is the serializable match
// state; BattlefieldView is the copy handed to controllers; Snapshot is the
// copy handed to observers.
//
// Usage:
//
//	board, err := engine.ParseBoard("duel", engine.FormatText, data)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	eng, err := engine.NewEngine(board, p1, p2, engine.WithObserver(obs))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	outcome, err := eng.Run(ctx)
//
// Turn Order:
//
// Each turn clears explosion marks, asks both controllers for an action from
// the same pre-turn view, applies tank 1 then tank 2, checks tank collisions,
// ticks cooldowns and backward moves, then advances shells twice with a full
// collision pass after each step. A tank that is dead, both tanks being out of
// ammunition for AmmoTimeout turns, or reaching MaxTurns ends the match.
package engine
