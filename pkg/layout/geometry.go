// Package layout tiles host windows across one or more screens.
//
// Coordinates have their origin at the top-left corner and y grows downward.
// The unit is whatever the window backend uses (terminal cells for tmux).
package layout

import (
	"fmt"
	"math"
)

// Point is a position.
type Point struct {
	X, Y float64
}

// Size is a width and height.
type Size struct {
	Width, Height float64
}

// Rect is an axis aligned rectangle.
type Rect struct {
	X, Y, Width, Height float64
}

func (r Rect) MinX() float64 { return r.X }
func (r Rect) MinY() float64 { return r.Y }
func (r Rect) MaxX() float64 { return r.X + r.Width }
func (r Rect) MaxY() float64 { return r.Y + r.Height }

func (r Rect) Origin() Point { return Point{X: r.X, Y: r.Y} }
func (r Rect) Size() Size    { return Size{Width: r.Width, Height: r.Height} }

// Area returns Width*Height, or 0 for an empty rectangle.
func (r Rect) Area() float64 {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

// Empty reports whether r has no surface.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Offset returns r translated by (dx, dy).
func (r Rect) Offset(dx, dy float64) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// Intersect returns the overlap of r and o, or the zero Rect.
func (r Rect) Intersect(o Rect) Rect {
	x0 := math.Max(r.MinX(), o.MinX())
	y0 := math.Max(r.MinY(), o.MinY())
	x1 := math.Min(r.MaxX(), o.MaxX())
	y1 := math.Min(r.MaxY(), o.MaxY())
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// DivideTop splits r into a strip of the given height at the top and the
// remainder below it.
func (r Rect) DivideTop(height float64) (top, rest Rect) {
	height = math.Max(0, math.Min(height, r.Height))
	top = Rect{X: r.X, Y: r.Y, Width: r.Width, Height: height}
	rest = Rect{X: r.X, Y: r.Y + height, Width: r.Width, Height: r.Height - height}
	return top, rest
}

// String renders the rectangle the way the screen_bounds setting is written.
func (r Rect) String() string {
	return fmt.Sprintf("{ %d, %d, %d, %d }", int(r.X), int(r.Y), int(r.Width), int(r.Height))
}
