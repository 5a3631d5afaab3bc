// Package strategy provides the tank controllers selectable by name.
//
// Every strategy is an engine.Controller: a black box that maps the
// BattlefieldView of one turn to one Action. Stateful strategies (scripted,
// manual, random) must be built once per tank with New.
//
// Available strategies:
//   - idle: never acts
//   - scripted: replays a fixed action list
//   - manual: plays actions pushed by API or MCP callers
//   - random: seeded uniform choice over the action vocabulary
//   - sniper: aligns with the opponent and fires along clear lines
//   - evasive: dodges incoming shells, otherwise sniper
//   - hunter: dodges, then breadth-first searches a firing position
package strategy
