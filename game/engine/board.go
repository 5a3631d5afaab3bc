package engine

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidBoard is wrapped by every board parsing and validation failure
var ErrInvalidBoard = errors.New("invalid board")

// Board layout characters
const (
	CharEmpty    = ' '
	CharFloor    = '.'
	CharWall     = '#'
	CharWeakWall = '='
	CharMine     = '@'
	CharTank1    = '1'
	CharTank2    = '2'
)

// Board is a parsed board description
type Board struct {
	Name          string   `json:"name" yaml:"name"`
	Description   string   `json:"description,omitempty" yaml:"description,omitempty"`
	Width         int      `json:"width" yaml:"width"`
	Height        int      `json:"height" yaml:"height"`
	WrapAround    bool     `json:"wrap_around" yaml:"wrap_around"`
	Layout        []string `json:"layout" yaml:"layout"`
	Player1Facing string   `json:"player1_facing,omitempty" yaml:"player1_facing,omitempty"`
	Player2Facing string   `json:"player2_facing,omitempty" yaml:"player2_facing,omitempty"`
}

// Format identifies a board file encoding
type Format string

const (
	FormatText Format = "txt"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromExt maps a file extension (with or without the dot) to a Format
func FormatFromExt(ext string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "txt", "board":
		return FormatText, true
	case "json":
		return FormatJSON, true
	case "yaml", "yml":
		return FormatYAML, true
	}
	return "", false
}

// ParseBoard decodes data in the given format, normalizes and validates it
func ParseBoard(name string, format Format, data []byte) (*Board, error) {
	var (
		board *Board
		err   error
	)

	switch format {
	case FormatText:
		board, err = ParseBoardText(strings.NewReader(string(data)))
	case FormatJSON:
		board = &Board{}
		if err = json.Unmarshal(data, board); err != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidBoard, err)
		}
	case FormatYAML:
		board = &Board{}
		if err = yaml.Unmarshal(data, board); err != nil {
			err = fmt.Errorf("%w: %v", ErrInvalidBoard, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidBoard, format)
	}
	if err != nil {
		return nil, err
	}

	if board.Name == "" {
		board.Name = name
	}
	board.Normalize()
	if err := ValidateBoard(board); err != nil {
		return nil, err
	}
	return board, nil
}

// ParseBoardText reads the plain-text format: a header line
// "<width> <height> [wrap]" followed by layout rows. Short rows are padded,
// long rows truncated and missing rows filled with empty cells.
func ParseBoardText(r io.Reader) (*Board, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBoard, err)
		}
		return nil, fmt.Errorf("%w: missing header line", ErrInvalidBoard)
	}

	board, err := parseHeader(scanner.Text())
	if err != nil {
		return nil, err
	}

	for scanner.Scan() && len(board.Layout) < board.Height {
		board.Layout = append(board.Layout, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBoard, err)
	}

	board.Normalize()
	return board, nil
}

func parseHeader(line string) (*Board, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || len(fields) > 3 {
		return nil, fmt.Errorf("%w: header must be \"<width> <height> [wrap]\", got %q", ErrInvalidBoard, line)
	}

	width, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil, fmt.Errorf("%w: bad width %q", ErrInvalidBoard, fields[0])
	}
	height, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("%w: bad height %q", ErrInvalidBoard, fields[1])
	}
	if err := checkDimensions(width, height); err != nil {
		return nil, err
	}

	board := &Board{Width: width, Height: height}
	if len(fields) == 3 {
		switch strings.ToLower(fields[2]) {
		case "wrap", "1", "true":
			board.WrapAround = true
		case "nowrap", "0", "false":
		default:
			return nil, fmt.Errorf("%w: bad wrap flag %q", ErrInvalidBoard, fields[2])
		}
	}
	return board, nil
}

func checkDimensions(width, height int) error {
	if width < MinGridSize || width > MaxGridSize || height < MinGridSize || height > MaxGridSize {
		return fmt.Errorf("%w: dimensions must be between %d and %d, got %dx%d",
			ErrInvalidBoard, MinGridSize, MaxGridSize, width, height)
	}
	return nil
}

// Normalize pads or truncates the layout to exactly Width x Height
func (b *Board) Normalize() {
	if b.Width <= 0 || b.Height <= 0 || b.Width > MaxGridSize || b.Height > MaxGridSize {
		return
	}

	rows := make([]string, b.Height)
	for y := range rows {
		row := ""
		if y < len(b.Layout) {
			row = b.Layout[y]
		}
		if len(row) > b.Width {
			row = row[:b.Width]
		} else if len(row) < b.Width {
			row += strings.Repeat(string(CharEmpty), b.Width-len(row))
		}
		rows[y] = row
	}
	b.Layout = rows
}

// ValidateBoard checks dimensions, legend characters and tank placement
func ValidateBoard(b *Board) error {
	if err := checkDimensions(b.Width, b.Height); err != nil {
		return err
	}
	if len(b.Layout) != b.Height {
		return fmt.Errorf("%w: layout must have %d rows, got %d", ErrInvalidBoard, b.Height, len(b.Layout))
	}

	tanks := map[byte]int{}
	for y, row := range b.Layout {
		if len(row) != b.Width {
			return fmt.Errorf("%w: row %d must have %d characters, got %d", ErrInvalidBoard, y+1, b.Width, len(row))
		}
		for x := 0; x < len(row); x++ {
			switch c := row[x]; c {
			case CharEmpty, CharFloor, CharWall, CharWeakWall, CharMine:
			case CharTank1, CharTank2:
				tanks[c]++
			default:
				return fmt.Errorf("%w: invalid character %q at row %d, col %d", ErrInvalidBoard, c, y+1, x+1)
			}
		}
	}

	if tanks[CharTank1] != 1 || tanks[CharTank2] != 1 {
		return fmt.Errorf("%w: layout needs exactly one '1' and one '2', got %d and %d",
			ErrInvalidBoard, tanks[CharTank1], tanks[CharTank2])
	}

	if b.Player1Facing != "" {
		if _, err := ParseDirection(b.Player1Facing); err != nil {
			return fmt.Errorf("%w: player1_facing: %v", ErrInvalidBoard, err)
		}
	}
	if b.Player2Facing != "" {
		if _, err := ParseDirection(b.Player2Facing); err != nil {
			return fmt.Errorf("%w: player2_facing: %v", ErrInvalidBoard, err)
		}
	}
	return nil
}

// facings returns the starting facings; tank 1 faces right and tank 2 left
// unless the board says otherwise
func (b *Board) facings() (Direction, Direction) {
	f1, f2 := Right, Left
	if d, err := ParseDirection(b.Player1Facing); err == nil {
		f1 = d
	}
	if d, err := ParseDirection(b.Player2Facing); err == nil {
		f2 = d
	}
	return f1, f2
}

// layoutGrid converts a validated layout into terrain and tank start cells
func (b *Board) layoutGrid() (*Grid, map[int]Position, error) {
	grid, err := NewGrid(b.Width, b.Height, b.WrapAround)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidBoard, err)
	}

	starts := map[int]Position{}
	for y, row := range b.Layout {
		for x := 0; x < len(row); x++ {
			switch row[x] {
			case CharWall:
				grid.SetCell(x, y, Wall)
			case CharWeakWall:
				grid.SetCell(x, y, WeakWall)
			case CharMine:
				grid.SetCell(x, y, Mine)
			case CharTank1:
				starts[1] = Position{X: x, Y: y}
			case CharTank2:
				starts[2] = Position{X: x, Y: y}
			}
		}
	}
	return grid, starts, nil
}

// Text encodes the board in the plain-text format
func (b *Board) Text() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d %d", b.Width, b.Height)
	if b.WrapAround {
		sb.WriteString(" wrap")
	}
	sb.WriteByte('\n')
	for _, row := range b.Layout {
		sb.WriteString(strings.TrimRight(row, " "))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Encode serializes the board in the given format
func (b *Board) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatText:
		return []byte(b.Text()), nil
	case FormatJSON:
		return json.MarshalIndent(b, "", "  ")
	case FormatYAML:
		return yaml.Marshal(b)
	}
	return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidBoard, format)
}

// TankStart returns the layout position of tank id
func (b *Board) TankStart(id int) (Position, bool) {
	want := byte(CharTank1)
	if id == 2 {
		want = CharTank2
	}
	for y, row := range b.Layout {
		if x := strings.IndexByte(row, want); x >= 0 {
			return Position{X: x, Y: y}, true
		}
	}
	return Position{}, false
}
