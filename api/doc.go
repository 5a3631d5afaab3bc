// Package api provides the HTTP REST surface of the tank battle server.
//
// Endpoints:
//
// Matches:
//   - POST /api/matches - Create a match from {board, player1, player2, rules}
//   - GET /api/matches - List matches (sort=created|accessed, order=asc|desc, limit)
//   - GET /api/matches/{id} - Match summary with state
//   - DELETE /api/matches/{id} - Delete a match
//
// Turns:
//   - POST /api/matches/{id}/turn - Resolve one turn, queuing {player1, player2} for manual seats
//   - POST /api/matches/{id}/turns - Resolve {turns} turns (capped per call)
//   - POST /api/matches/{id}/run - Play the match to its end
//   - POST /api/matches/{id}/reset - Restart from turn 0
//   - POST /api/matches/{id}/tanks/{tank}/cancel_backward - Drop a pending backward move
//   - GET /api/matches/{id}/state - Full game state
//   - GET /api/matches/{id}/history - Action log (page, limit, order)
//
// Boards, strategies and results:
//   - GET /api/boards, GET /api/boards/{id}, POST /api/boards
//   - GET /api/strategies
//   - GET /api/results?limit=N
//   - GET /api/standings
//   - GET /api/health
//
// Spectators connect to /ws?match={id}; see package websocket.
//
// Errors are returned as JSON with a matching status code:
//
//	{"error": "match not found: match not found"}
//
// Unknown matches and boards map to 404, bad actions, strategies and boards
// to 400, and turns on a finished match to 409. Rules fields are optional;
// "initial_shells": 0 starts both tanks unarmed.
package api
