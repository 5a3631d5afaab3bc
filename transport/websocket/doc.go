// Package websocket streams match progress to spectators.
//
// A Hub keeps the connections watching each match. Clients connect to
// /ws?match=<id> and receive one JSON Message per resolved turn:
//
//	{"match_id":"ab12","event":"turn","turn":12,"snapshot":{...}}
//
// The final turn of a match is sent with event "match_over". Resets and
// deletions are announced with "reset" and "deleted" events. The hub
// implements service.TurnPublisher, so the game service pushes turns as the
// engine resolves them.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	svc := service.NewGameService(sessions, boards, service.WithPublisher(hub))
//
// Incoming frames are read only to keep the connection alive.
package websocket
