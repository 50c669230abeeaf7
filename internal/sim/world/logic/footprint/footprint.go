// Package footprint computes the cells covered by square multi-block
// buildings and the ring of cells around them. The origin is the
// bottom-left cell: a building of size s at (x,y) covers x..x+s-1 and
// y-s+1..y.
package footprint

import "github.com/loguhan/FactoryGame/internal/sim/world/logic/geom"

func Cells(origin geom.Pos, size int) []geom.Pos {
	if size <= 0 {
		size = 1
	}
	out := make([]geom.Pos, 0, size*size)
	for dy := 0; dy < size; dy++ {
		for dx := 0; dx < size; dx++ {
			out = append(out, geom.Pos{X: origin.X + dx, Y: origin.Y - dy})
		}
	}
	return out
}

func Contains(origin geom.Pos, size int, p geom.Pos) bool {
	if size <= 0 {
		size = 1
	}
	return p.X >= origin.X && p.X < origin.X+size && p.Y <= origin.Y && p.Y > origin.Y-size
}

// Edge is a cell touching the footprint from outside. Inward points from
// the edge cell into the building.
type Edge struct {
	Pos    geom.Pos
	Inward geom.Direction
}

// ExternalEdges lists the ring cells in a fixed order: top row, bottom row,
// left column, right column. Corners are not included.
func ExternalEdges(origin geom.Pos, size int) []Edge {
	if size <= 0 {
		size = 1
	}
	out := make([]Edge, 0, 4*size)
	for dx := 0; dx < size; dx++ {
		out = append(out, Edge{Pos: geom.Pos{X: origin.X + dx, Y: origin.Y - size}, Inward: geom.South})
	}
	for dx := 0; dx < size; dx++ {
		out = append(out, Edge{Pos: geom.Pos{X: origin.X + dx, Y: origin.Y + 1}, Inward: geom.North})
	}
	for dy := 0; dy < size; dy++ {
		out = append(out, Edge{Pos: geom.Pos{X: origin.X - 1, Y: origin.Y - dy}, Inward: geom.East})
	}
	for dy := 0; dy < size; dy++ {
		out = append(out, Edge{Pos: geom.Pos{X: origin.X + size, Y: origin.Y - dy}, Inward: geom.West})
	}
	return out
}

// InwardDir returns the direction from p into the building when p is one of
// its external edge cells, else None.
func InwardDir(origin geom.Pos, size int, p geom.Pos) geom.Direction {
	for _, e := range ExternalEdges(origin, size) {
		if e.Pos == p {
			return e.Inward
		}
	}
	return geom.None
}
