package grid

import "fmt"

// Position is a tile coordinate on the match board.
type Position struct {
	X int
	Y int
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Manhattan returns the Manhattan distance between two positions.
// All range and area checks in the game use this metric.
func Manhattan(a, b Position) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Board describes the playable grid extents.
type Board struct {
	Width  int
	Height int
}

// IsValid reports whether the position lies inside the board.
func (b Board) IsValid(p Position) bool {
	return p.X >= 0 && p.X < b.Width && p.Y >= 0 && p.Y < b.Height
}
