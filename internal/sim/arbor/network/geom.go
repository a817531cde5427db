package network

import "fmt"

type Pos struct {
	X, Y, Z int
}

func (p Pos) Offset(d Dir) Pos {
	v := d.Vec()
	return Pos{X: p.X + v.X, Y: p.Y + v.Y, Z: p.Z + v.Z}
}

func (p Pos) Up() Pos   { return p.Offset(Up) }
func (p Pos) Down() Pos { return p.Offset(Down) }

func (p Pos) ToArray() [3]int { return [3]int{p.X, p.Y, p.Z} }

func PosFromArray(a [3]int) Pos { return Pos{X: a[0], Y: a[1], Z: a[2]} }

func (p Pos) String() string { return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z) }

// Dir is one of the six axis-aligned unit directions. DirNone marks the
// origin of a traversal (no arrival direction).
type Dir int8

const (
	DirNone Dir = iota - 1
	Down
	Up
	North
	South
	West
	East
)

// Dirs is the canonical iteration order. Visitor side effects depend on it.
var Dirs = [6]Dir{Down, Up, North, South, West, East}

// UpFirst is the order used when looking for a free cell to sprout into.
var UpFirst = [6]Dir{Up, Down, North, South, West, East}

var dirVecs = [6]Pos{
	Down:  {Y: -1},
	Up:    {Y: 1},
	North: {Z: -1},
	South: {Z: 1},
	West:  {X: -1},
	East:  {X: 1},
}

var dirNames = [6]string{"down", "up", "north", "south", "west", "east"}

func (d Dir) Valid() bool { return d >= Down && d <= East }

func (d Dir) Vec() Pos {
	if !d.Valid() {
		return Pos{}
	}
	return dirVecs[d]
}

func (d Dir) Opposite() Dir {
	if !d.Valid() {
		return DirNone
	}
	return d ^ 1
}

func (d Dir) String() string {
	if !d.Valid() {
		return "none"
	}
	return dirNames[d]
}

func ParseDir(s string) (Dir, error) {
	if s == "" || s == "none" {
		return DirNone, nil
	}
	for i, n := range dirNames {
		if n == s {
			return Dir(i), nil
		}
	}
	return DirNone, fmt.Errorf("unknown direction %q", s)
}
