package layout

import "math"

// HostID identifies a host window. IDs are assigned by the controller and
// never reused within a session.
type HostID uint64

// BestGrid picks a rows x columns partition of area for count windows whose
// shape should stay as close as possible to ratio (width/height).
//
// A grid without empty cells wins over a slightly better ratio when the two
// differ by at most one row and one column: 24 windows tile as 6x4 rather
// than 5x5.
func BestGrid(ratio float64, count int, area Size) (rows, columns int) {
	best := [2]int{0, 0}
	bestExact := [2]int{-1, -1}
	bestDelta := math.Inf(1)
	bestExactDelta := math.Inf(1)

	test := func(r, c int) {
		winRatio := (area.Width / float64(c)) / (area.Height / float64(r))
		delta := winRatio / ratio
		if ratio > winRatio {
			delta = ratio / winRatio
		}
		if delta < bestDelta {
			bestDelta = delta
			best = [2]int{r, c}
		}
		if delta < bestExactDelta && r*c == count {
			bestExactDelta = delta
			bestExact = [2]int{r, c}
		}
	}

	switch {
	case count <= 0:
		return 0, 0
	case count == 1:
		return 1, 1
	case count == 2:
		test(1, 2)
		test(2, 1)
	default:
		limit := int(math.Ceil(math.Sqrt(float64(count))))
		for r := 1; r <= limit; r++ {
			c := (count + r - 1) / r
			test(r, c)
			if r != c {
				test(c, r)
			}
		}
	}

	if bestExact[0] > 0 && absInt(best[0]-bestExact[0]) <= 1 && absInt(best[1]-bestExact[1]) <= 1 {
		return bestExact[0], bestExact[1]
	}
	// Degenerate areas (zero or NaN ratios) never beat +Inf; fall back to a
	// near-square grid.
	if best[0] == 0 {
		c := int(math.Ceil(math.Sqrt(float64(count))))
		return (count + c - 1) / c, c
	}
	return best[0], best[1]
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Grid is the placement of host IDs in rows, top row first. The last rows
// may be shorter than Columns.
type Grid struct {
	Rows    int
	Columns int
	cells   [][]HostID
	count   int
}

// FillByRow fills full rows of columns hosts, leaving the remainder in the
// last row.
func FillByRow(hosts []HostID, rows, columns int) *Grid {
	g := &Grid{Rows: rows, Columns: columns, count: len(hosts)}
	if columns <= 0 {
		return g
	}
	for start := 0; start < len(hosts); start += columns {
		end := min(start+columns, len(hosts))
		g.cells = append(g.cells, append([]HostID(nil), hosts[start:end]...))
	}
	return g
}

// FillByColumns keeps the requested row count: 5 hosts on 4 rows become one
// row of 2 and three rows of 1, instead of a full row of 4 plus a row of 1.
func FillByColumns(hosts []HostID, rows, columns int) *Grid {
	g := &Grid{Rows: rows, Columns: columns, count: len(hosts)}
	if rows <= 0 || columns <= 0 {
		return g
	}
	fullRows := len(hosts) % rows
	if fullRows == 0 {
		fullRows = rows
	}
	for start := 0; start < len(hosts); {
		length := columns
		if len(g.cells) >= fullRows {
			length = columns - 1
		}
		end := min(start+length, len(hosts))
		g.cells = append(g.cells, append([]HostID(nil), hosts[start:end]...))
		start = end
	}
	return g
}

// Count returns the number of hosts placed in the grid.
func (g *Grid) Count() int { return g.count }

// Cells returns the rows of the grid. Callers must not modify it.
func (g *Grid) Cells() [][]HostID { return g.cells }

func (g *Grid) position(id HostID) (row, col int, ok bool) {
	for r, cells := range g.cells {
		for c, v := range cells {
			if v == id {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

// Contains reports whether id is placed in the grid.
func (g *Grid) Contains(id HostID) bool {
	_, _, ok := g.position(id)
	return ok
}

// Above returns the host in the same column one row up, wrapping from the
// top row to the lowest row that has that column.
func (g *Grid) Above(id HostID) (HostID, bool) {
	row, col, ok := g.position(id)
	if !ok {
		return 0, false
	}
	target := row - 1
	if target < 0 {
		target = -1
		for r := len(g.cells) - 1; r >= 0; r-- {
			if col < len(g.cells[r]) {
				target = r
				break
			}
		}
	}
	return g.at(target, col, row)
}

// Below returns the host in the same column one row down, wrapping to the
// top row when the next row is missing or too short.
func (g *Grid) Below(id HostID) (HostID, bool) {
	row, col, ok := g.position(id)
	if !ok {
		return 0, false
	}
	target := row + 1
	if target >= len(g.cells) || col >= len(g.cells[target]) {
		target = 0
	}
	return g.at(target, col, row)
}

// Left returns the previous host in the row, wrapping to the row's end.
func (g *Grid) Left(id HostID) (HostID, bool) {
	row, col, ok := g.position(id)
	if !ok {
		return 0, false
	}
	n := len(g.cells[row])
	c := (col - 1 + n) % n
	if c == col {
		return 0, false
	}
	return g.cells[row][c], true
}

// Right returns the next host in the row, wrapping to the row's start.
func (g *Grid) Right(id HostID) (HostID, bool) {
	row, col, ok := g.position(id)
	if !ok {
		return 0, false
	}
	n := len(g.cells[row])
	c := (col + 1) % n
	if c == col {
		return 0, false
	}
	return g.cells[row][c], true
}

func (g *Grid) at(row, col, from int) (HostID, bool) {
	if row < 0 || row == from || row >= len(g.cells) || col >= len(g.cells[row]) {
		return 0, false
	}
	return g.cells[row][col], true
}
