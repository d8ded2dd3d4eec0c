package engine

import (
	"fmt"
	"strings"
)

// Grid is the occupancy table of the field. Each cell holds at most one
// occupant, and every occupant is on at most one cell.
type Grid struct {
	width, height int
	cells         []Occupant
	index         map[Occupant]Position
}

// NewGrid returns an empty width x height grid.
func NewGrid(width, height int) *Grid {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("grid: invalid size %dx%d", width, height))
	}
	return &Grid{
		width:  width,
		height: height,
		cells:  make([]Occupant, width*height),
		index:  make(map[Occupant]Position),
	}
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// InBounds reports whether p is on the grid.
func (g *Grid) InBounds(p Position) bool {
	return p.X >= 0 && p.X < g.width && p.Y >= 0 && p.Y < g.height
}

// Clamp returns the closest in-bounds position to p.
func (g *Grid) Clamp(p Position) Position {
	return Position{X: clampInt(0, g.width-1, p.X), Y: clampInt(0, g.height-1, p.Y)}
}

func (g *Grid) offset(p Position) int {
	if !g.InBounds(p) {
		panic(fmt.Sprintf("grid: position %v out of bounds for %dx%d", p, g.width, g.height))
	}
	return p.Y*g.width + p.X
}

// OccupantAt returns whatever stands on p. Out-of-bounds positions are empty.
func (g *Grid) OccupantAt(p Position) (Occupant, bool) {
	if !g.InBounds(p) {
		return nil, false
	}
	o := g.cells[g.offset(p)]
	return o, o != nil
}

// AgentAt returns the agent standing on p, if any.
func (g *Grid) AgentAt(p Position) (*Agent, bool) {
	o, ok := g.OccupantAt(p)
	if !ok {
		return nil, false
	}
	return AsAgent(o)
}

// IsEmpty reports whether p is in bounds and unoccupied.
func (g *Grid) IsEmpty(p Position) bool {
	if !g.InBounds(p) {
		return false
	}
	return g.cells[g.offset(p)] == nil
}

// PositionOf returns where o stands.
func (g *Grid) PositionOf(o Occupant) (Position, bool) {
	p, ok := g.index[o]
	return p, ok
}

// Contains reports whether o is on the grid.
func (g *Grid) Contains(o Occupant) bool {
	_, ok := g.index[o]
	return ok
}

// Place puts o on p. It returns false without mutating anything when p is out
// of bounds or occupied. Placing an occupant that is already on the grid is a
// contract violation.
func (g *Grid) Place(o Occupant, p Position) bool {
	if o == nil {
		panic("grid: place nil occupant")
	}
	if _, ok := g.index[o]; ok {
		panic(fmt.Sprintf("grid: occupant already placed at %v", g.index[o]))
	}
	if !g.IsEmpty(p) {
		return false
	}
	g.cells[g.offset(p)] = o
	g.index[o] = p
	g.sync(o, p)
	return true
}

// Move relocates o to p with the same failure rules as Place. Moving an
// occupant that is not on the grid panics.
func (g *Grid) Move(o Occupant, p Position) bool {
	from, ok := g.index[o]
	if !ok {
		panic("grid: move of occupant not on grid")
	}
	if !g.IsEmpty(p) {
		return false
	}
	g.cells[g.offset(from)] = nil
	g.cells[g.offset(p)] = o
	g.index[o] = p
	g.sync(o, p)
	return true
}

// Remove takes o off the grid. Removing an occupant that is not on the grid
// panics.
func (g *Grid) Remove(o Occupant) {
	from, ok := g.index[o]
	if !ok {
		panic("grid: remove of occupant not on grid")
	}
	g.cells[g.offset(from)] = nil
	delete(g.index, o)
	if a, ok := AsAgent(o); ok {
		a.onField = false
	}
}

// Clear removes every occupant.
func (g *Grid) Clear() {
	for o := range g.index {
		if a, ok := AsAgent(o); ok {
			a.onField = false
		}
	}
	for i := range g.cells {
		g.cells[i] = nil
	}
	g.index = make(map[Occupant]Position)
}

func (g *Grid) sync(o Occupant, p Position) {
	if a, ok := AsAgent(o); ok {
		a.Position = p
		a.onField = true
	}
}

var neighborhood = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// AdjacentPositions returns the in-bounds 8-neighborhood of p, in row-major
// order.
func (g *Grid) AdjacentPositions(p Position) []Position {
	out := make([]Position, 0, 8)
	for _, d := range neighborhood {
		n := p.Offset(d[0], d[1])
		if g.InBounds(n) {
			out = append(out, n)
		}
	}
	return out
}

// AdjacentAgents returns the agents around p in row-major order.
func (g *Grid) AdjacentAgents(p Position) []*Agent {
	var out []*Agent
	for _, n := range g.AdjacentPositions(p) {
		if a, ok := g.AgentAt(n); ok {
			out = append(out, a)
		}
	}
	return out
}

// Agents returns every agent on the grid in row-major order.
func (g *Grid) Agents() []*Agent {
	var out []*Agent
	for _, o := range g.cells {
		if a, ok := AsAgent(o); ok {
			out = append(out, a)
		}
	}
	return out
}

// String renders the grid with one character per cell: '.' empty, '#'
// obstacle, 'H'/'A' for standing home/away agents, lower case when down,
// and '*' on the carrier.
func (g *Grid) String() string {
	var b strings.Builder
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			b.WriteByte(g.glyph(g.cells[y*g.width+x]))
		}
		if y < g.height-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (g *Grid) glyph(o Occupant) byte {
	if o == nil {
		return '.'
	}
	a, ok := AsAgent(o)
	if !ok {
		return '#'
	}
	if a.HasBall {
		return '*'
	}
	c := byte('H')
	if a.Side == SideAway {
		c = 'A'
	}
	if a.KnockedDown {
		c += 'a' - 'A'
	}
	return c
}
