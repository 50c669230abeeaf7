package geom

import "fmt"

// Pos is a grid cell coordinate. Y grows downward, so North is (0,-1).
type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Pos) Add(d Pos) Pos { return Pos{X: p.X + d.X, Y: p.Y + d.Y} }

func (p Pos) Step(d Direction) Pos { return p.Add(d.Vec()) }

func (p Pos) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

type Direction uint8

const (
	None Direction = iota
	North
	East
	South
	West
)

// Cardinals lists the four directions in clockwise order starting at North.
var Cardinals = [4]Direction{North, East, South, West}

func (d Direction) Vec() Pos {
	switch d {
	case North:
		return Pos{X: 0, Y: -1}
	case East:
		return Pos{X: 1, Y: 0}
	case South:
		return Pos{X: 0, Y: 1}
	case West:
		return Pos{X: -1, Y: 0}
	default:
		return Pos{}
	}
}

func (d Direction) Opposite() Direction {
	switch d {
	case North:
		return South
	case East:
		return West
	case South:
		return North
	case West:
		return East
	default:
		return None
	}
}

// Rotate turns d by steps quarter turns (positive is clockwise). None stays None.
func (d Direction) Rotate(steps int) Direction {
	if d == None {
		return None
	}
	idx := int(d) - int(North)
	idx = ((idx+steps)%4 + 4) % 4
	return Cardinals[idx]
}

func (d Direction) RotateCW() Direction { return d.Rotate(1) }

func (d Direction) Valid() bool { return d <= West }

func (d Direction) String() string {
	switch d {
	case North:
		return "N"
	case East:
		return "E"
	case South:
		return "S"
	case West:
		return "W"
	default:
		return "-"
	}
}

// FromVec maps a unit step back to its direction; anything else is None.
func FromVec(v Pos) Direction {
	switch {
	case v.X == 0 && v.Y < 0:
		return North
	case v.X == 0 && v.Y > 0:
		return South
	case v.Y == 0 && v.X > 0:
		return East
	case v.Y == 0 && v.X < 0:
		return West
	default:
		return None
	}
}

// ParseDirection accepts N/E/S/W or the full names, case-sensitive upper.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "", "-", "NONE":
		return None, nil
	case "N", "NORTH":
		return North, nil
	case "E", "EAST":
		return East, nil
	case "S", "SOUTH":
		return South, nil
	case "W", "WEST":
		return West, nil
	}
	return None, fmt.Errorf("bad direction %q", s)
}

// Relative classifies how an item travelling from `from` into `to` meets a belt
// at `to` facing toFacing: 2 straight, 0 head-on, 1 or 3 from the sides.
func Relative(from, to Pos, toFacing Direction) int {
	t := toFacing.Vec()
	f := Pos{X: to.X - from.X, Y: to.Y - from.Y}
	if f == t {
		return 2
	}
	if f.X == -t.X && f.Y == -t.Y {
		return 0
	}
	if f.X*t.Y-f.Y*t.X > 0 {
		return 1
	}
	return 3
}
