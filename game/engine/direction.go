package engine

import (
	"fmt"
	"math"
)

// Direction is one of the 8 compass facings, in clockwise order starting at Up
type Direction int

const (
	Up Direction = iota
	UpRight
	Right
	DownRight
	Down
	DownLeft
	Left
	UpLeft

	numDirections = 8
)

// offsets is shared by tanks and shells; index == Direction
var offsets = [numDirections]struct{ dx, dy int }{
	{0, -1},
	{1, -1},
	{1, 0},
	{1, 1},
	{0, 1},
	{-1, 1},
	{-1, 0},
	{-1, -1},
}

var directionNames = [numDirections]string{
	"up", "up_right", "right", "down_right", "down", "down_left", "left", "up_left",
}

// AllDirections lists the facings in cyclic order
func AllDirections() []Direction {
	return []Direction{Up, UpRight, Right, DownRight, Down, DownLeft, Left, UpLeft}
}

func (d Direction) normalized() Direction {
	return Direction(((int(d) % numDirections) + numDirections) % numDirections)
}

// Offset returns the one-step displacement for this facing
func (d Direction) Offset() (dx, dy int) {
	o := offsets[d.normalized()]
	return o.dx, o.dy
}

// Rotate turns by steps eighth-turns; positive is clockwise (right)
func (d Direction) Rotate(steps int) Direction {
	return Direction(int(d) + steps).normalized()
}

// Opposite returns the reversed facing
func (d Direction) Opposite() Direction {
	return d.Rotate(4)
}

// Angle returns the compass bearing in degrees (0 = up, clockwise)
func (d Direction) Angle() float64 {
	return float64(d.normalized()) * 45
}

func (d Direction) String() string {
	return directionNames[d.normalized()]
}

// MarshalText encodes the direction by name
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a direction name
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDirection accepts the long names and the short forms U, UR, R, ...
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up", "U", "u":
		return Up, nil
	case "up_right", "UR", "ur":
		return UpRight, nil
	case "right", "R", "r":
		return Right, nil
	case "down_right", "DR", "dr":
		return DownRight, nil
	case "down", "D", "d":
		return Down, nil
	case "down_left", "DL", "dl":
		return DownLeft, nil
	case "left", "L", "l":
		return Left, nil
	case "up_left", "UL", "ul":
		return UpLeft, nil
	}
	return Up, fmt.Errorf("unknown direction %q", s)
}

// FromAngle snaps a compass bearing in degrees to the nearest 45 degree facing
func FromAngle(degrees float64) Direction {
	steps := int(math.Round(degrees / 45))
	return Direction(steps).normalized()
}

// DirectionTo snaps the vector (dx, dy) to the nearest facing.
// The zero vector yields Up.
func DirectionTo(dx, dy int) Direction {
	if dx == 0 && dy == 0 {
		return Up
	}
	// screen coordinates: y grows downward, bearing is clockwise from up
	bearing := math.Atan2(float64(dx), float64(-dy)) * 180 / math.Pi
	return FromAngle(bearing)
}

// RotationSteps returns the shortest signed eighth-turn count from d to target
// (positive is clockwise); an exact reversal returns +4.
func (d Direction) RotationSteps(target Direction) int {
	diff := (int(target.normalized()) - int(d.normalized()) + numDirections) % numDirections
	if diff > 4 {
		diff -= numDirections
	}
	return diff
}
