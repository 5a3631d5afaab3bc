// Package service is the match layer between the transports and the engine.
//
// GameService creates matches from a board id and two player specs, steps
// them one turn, n turns or to completion, and exposes state, paginated
// action history, boards, strategies and recorded results. Every call that
// touches a match holds the service mutex, so an engine is never stepped by
// two callers at once.
//
// Collaborators are interfaces: SessionManager stores live matches,
// BoardManager loads board files, ResultStore keeps finished outcomes and
// TurnPublisher receives a snapshot after each turn (the websocket hub).
//
// Usage:
//
//	boards, _ := config.NewManager("boards")
//	svc := service.NewGameService(session.NewManager(), boards,
//		service.WithLogger(logger),
//		service.WithResultStore(results),
//	)
//
//	match, err := svc.CreateMatch(ctx, service.MatchSpec{
//		Board:   "classic",
//		Player1: service.PlayerSpec{Strategy: "hunter"},
//		Player2: service.PlayerSpec{Strategy: "manual"},
//	})
//	res, err := svc.PlayTurn(ctx, match.ID, service.ManualActions{Player2: engine.Shoot})
//
// A finished match is written to the result store exactly once.
package service
