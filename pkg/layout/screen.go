package layout

import "math"

// Screen is one tileable display area together with its user overrides and
// the result of the last layout pass.
type Screen struct {
	// ID is a stable name for the display (the tmux window id for the tmux
	// backend).
	ID string

	// VisibleFrame is the full usable rectangle of the display.
	VisibleFrame Rect

	active bool

	requestedRows    int
	requestedColumns int
	requestedFrame   *Rect // relative to VisibleFrame's origin

	frame    Rect
	reserved float64
	grid     *Grid
}

// NewScreen returns an inactive screen covering visible.
func NewScreen(id string, visible Rect) *Screen {
	return &Screen{ID: id, VisibleFrame: visible}
}

// Active reports whether the screen received hosts in the last pass.
func (s *Screen) Active() bool { return s.active }

// RequestedRows returns the explicit row override, 0 when unset.
func (s *Screen) RequestedRows() int { return s.requestedRows }

// RequestedColumns returns the explicit column override, 0 when unset.
func (s *Screen) RequestedColumns() int { return s.requestedColumns }

// SetRows forces the row count and clears any column override.
func (s *Screen) SetRows(rows int) {
	s.requestedRows = max(rows, 0)
	s.requestedColumns = 0
}

// SetColumns forces the column count and clears any row override. Passing 0
// returns the screen to ratio based layout.
func (s *Screen) SetColumns(columns int) {
	s.requestedColumns = max(columns, 0)
	s.requestedRows = 0
}

// SetRequestedFrame restricts tiling to frame. An absolute frame is stored
// relative to the screen so it follows the display if it moves.
func (s *Screen) SetRequestedFrame(frame Rect, relative bool) {
	if !relative {
		frame = frame.Offset(-s.VisibleFrame.X, -s.VisibleFrame.Y)
	}
	s.requestedFrame = &frame
}

// ClearRequestedFrame returns the screen to its full visible frame.
func (s *Screen) ClearRequestedFrame() { s.requestedFrame = nil }

// RequestedFrame returns the relative frame override, if any.
func (s *Screen) RequestedFrame() (Rect, bool) {
	if s.requestedFrame == nil {
		return Rect{}, false
	}
	return *s.requestedFrame, true
}

// Frame is the area used by the last layout pass, controller strip included.
func (s *Screen) Frame() Rect { return s.frame }

// HostsFrame is Frame minus the strip reserved for the controller.
func (s *Screen) HostsFrame() Rect {
	if s.reserved <= 0 {
		return s.frame
	}
	_, rest := s.frame.DivideTop(s.reserved)
	return rest
}

// Rows returns the row count of the current grid.
func (s *Screen) Rows() int {
	if s.grid == nil {
		return 0
	}
	return s.grid.Rows
}

// Columns returns the column count of the current grid.
func (s *Screen) Columns() int {
	if s.grid == nil {
		return 0
	}
	return s.grid.Columns
}

// HostCount returns how many hosts the screen holds.
func (s *Screen) HostCount() int {
	if s.grid == nil {
		return 0
	}
	return s.grid.Count()
}

// Grid returns the current grid, or nil.
func (s *Screen) Grid() *Grid { return s.grid }

// Contains reports whether the host is tiled on this screen.
func (s *Screen) Contains(id HostID) bool {
	return s.grid != nil && s.grid.Contains(id)
}

// Above, Below, Left and Right are neighbor queries on the screen grid.
func (s *Screen) Above(id HostID) (HostID, bool) {
	if s.grid == nil {
		return 0, false
	}
	return s.grid.Above(id)
}

func (s *Screen) Below(id HostID) (HostID, bool) {
	if s.grid == nil {
		return 0, false
	}
	return s.grid.Below(id)
}

func (s *Screen) Left(id HostID) (HostID, bool) {
	if s.grid == nil {
		return 0, false
	}
	return s.grid.Left(id)
}

func (s *Screen) Right(id HostID) (HostID, bool) {
	if s.grid == nil {
		return 0, false
	}
	return s.grid.Right(id)
}

func (s *Screen) updateFrame(reserved float64) {
	s.frame = s.VisibleFrame
	if s.requestedFrame != nil {
		if f := s.requestedFrame.Offset(s.VisibleFrame.X, s.VisibleFrame.Y).Intersect(s.VisibleFrame); !f.Empty() {
			s.frame = f
		}
	}
	s.reserved = reserved
}

func (s *Screen) area() float64 { return s.HostsFrame().Area() }

func (s *Screen) setHosts(hosts []HostID, ratio float64) {
	count := len(hosts)
	switch {
	case count == 0:
		s.grid = nil
	case s.requestedColumns > 0:
		columns := min(s.requestedColumns, count)
		rows := (count + columns - 1) / columns
		s.grid = FillByRow(hosts, rows, columns)
	case s.requestedRows > 0:
		rows := min(s.requestedRows, count)
		columns := (count + rows - 1) / rows
		s.grid = FillByColumns(hosts, rows, columns)
	case ratio > 0:
		rows, columns := BestGrid(ratio, count, s.HostsFrame().Size())
		s.grid = FillByRow(hosts, rows, columns)
	default:
		s.grid = nil
	}
}

// place assigns each window of the grid its cell, top row first.
func (s *Screen) place(windows map[HostID]Window) {
	if s.grid == nil || s.grid.Rows == 0 || s.grid.Columns == 0 {
		return
	}
	bounds := s.HostsFrame()
	width := bounds.Width / float64(s.grid.Columns)
	height := bounds.Height / float64(s.grid.Rows)

	y := bounds.MinY()
	for _, row := range s.grid.Cells() {
		x := bounds.MinX()
		for _, id := range row {
			if w, ok := windows[id]; ok {
				w.SetZoomed(false)
				w.SetVisible(true)
				w.SetMiniaturized(false)
				w.SetFrontmost()
				w.SetFrame(Rect{
					X:      math.Floor(x),
					Y:      math.Floor(y),
					Width:  math.Floor(x+width) - math.Floor(x),
					Height: math.Floor(y+height) - math.Floor(y),
				})
			}
			x += width
		}
		y += height
	}
}
