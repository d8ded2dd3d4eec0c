package engine

// ManhattanDistance is |dx| + |dy|, the movement cost between two cells.
func ManhattanDistance(from, to Position) int {
	return abs(from.X-to.X) + abs(from.Y-to.Y)
}

// ChebyshevDistance is max(|dx|, |dy|). Two cells are adjacent when it is 1.
func ChebyshevDistance(from, to Position) int {
	dx, dy := abs(from.X-to.X), abs(from.Y-to.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// IsAdjacent reports whether a and b touch in the 8-neighborhood.
func IsAdjacent(a, b Position) bool {
	return ChebyshevDistance(a, b) == 1
}

// AxisPath returns the cells visited moving from one cell to another, X axis
// first and then Y. Both endpoints are excluded.
func AxisPath(from, to Position) []Position {
	var path []Position
	cur := from
	for cur.X != to.X {
		cur.X += sign(to.X - cur.X)
		path = append(path, cur)
	}
	for cur.Y != to.Y {
		cur.Y += sign(to.Y - cur.Y)
		path = append(path, cur)
	}
	if len(path) > 0 {
		path = path[:len(path)-1]
	}
	return path
}

// LinePositions returns the cells on the Bresenham line between from and to,
// endpoints excluded.
func LinePositions(from, to Position) []Position {
	var cells []Position
	dx, dy := abs(to.X-from.X), -abs(to.Y-from.Y)
	sx, sy := sign(to.X-from.X), sign(to.Y-from.Y)
	err := dx + dy
	x, y := from.X, from.Y
	for {
		if x == to.X && y == to.Y {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
		if x == to.X && y == to.Y {
			break
		}
		cells = append(cells, Position{X: x, Y: y})
	}
	return cells
}

func clampFloat(lo, hi, v float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(lo, hi, v int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
