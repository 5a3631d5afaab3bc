// Package config manages the directory of board files.
//
// Boards are stored one per file and identified by the file name without its
// extension. Three encodings are understood:
//   - .txt / .board: a "<width> <height> [wrap]" header followed by the rows
//   - .json: the engine.Board fields
//   - .yaml / .yml: the same fields in YAML
//
// Layout characters: '#' wall, '=' weak wall, '@' mine, '1' and '2' the tank
// starts, ' ' or '.' empty floor.
//
// Usage:
//
//	manager, err := config.NewManager("boards")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	board, err := manager.LoadBoard("arena")
//	boards, err := manager.ListBoards()
//	fallback := manager.GetDefault()
//
// The default board is "classic" when present, otherwise the first valid
// board, otherwise a built-in five by five arena.
package config
