// Package session keeps the matches a server is hosting.
//
// A Manager maps short case-insensitive ids to service.Session values, each
// owning its own engine. Generated ids are four hex characters from
// crypto/rand. Access times are tracked so idle matches can be evicted with
// CleanupExpiredSessions.
//
// With a SessionPersistence attached, matches are written on creation and
// after every service call that changes them, and a Get for an id that is not
// in memory falls back to storage. FilePersistence stores one JSON document
// per match holding the board, both player specs and the full game state;
// controllers are rebuilt from their strategy names on load.
package session
