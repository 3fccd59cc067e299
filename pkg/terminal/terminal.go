// Package terminal is the window automation bridge: it opens a terminal
// window per host, runs the host command in it, and moves, recolors and
// hides those windows for the controller.
//
// Geometry changes are buffered on each Tab and applied by Terminal.Flush,
// so a layout pass costs one round of backend calls instead of one per
// window property.
package terminal

import (
	"errors"
	"fmt"

	"tmux-cssh/pkg/layout"
)

// ErrUnavailable wraps every failure of the window backend.
var ErrUnavailable = errors.New("terminal unavailable")

// Terminal opens and tracks terminal windows.
type Terminal interface {
	// Open creates a new window running the user's shell.
	Open() (Tab, error)

	// Lookup returns an existing window by backend identifier (a tmux pane
	// id such as "%3").
	Lookup(id string) (Tab, error)

	// Screens returns the frames of the displays windows can be tiled on.
	Screens() ([]layout.Rect, error)

	// Flush applies pending geometry and visibility changes.
	Flush() error
}

// Tab is one terminal window.
type Tab interface {
	layout.Window

	// ID is the backend's numeric window identifier. IDs grow as windows
	// are opened.
	ID() int

	// TTY returns the device of the window's controlling terminal.
	TTY() (Device, error)

	// Run types script into the window's shell. clear prefixes "clear &&",
	// exec replaces the shell so the window closes with the command.
	Run(script string, clear, exec bool) error

	// SetOrigin moves the window without resizing it.
	SetOrigin(layout.Point)

	// SetTextColor and SetBackgroundColor recolor the window. A nil color
	// restores the window's default.
	SetTextColor(*Color) error
	SetBackgroundColor(*Color) error

	Close() error
}

// Device is a character device number.
type Device struct {
	Major uint32
	Minor uint32
}

// IsZero reports whether d is unset.
func (d Device) IsZero() bool { return d == Device{} }

func (d Device) String() string { return fmt.Sprintf("%d:%d", d.Major, d.Minor) }

// Color is an RGB color with 16-bit components.
type Color struct {
	R, G, B uint16
}

// RGB8 builds a Color from 8-bit components.
func RGB8(r, g, b uint8) Color {
	return Color{R: uint16(r) * 0x101, G: uint16(g) * 0x101, B: uint16(b) * 0x101}
}

// Hex renders the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R>>8, c.G>>8, c.B>>8)
}

func (c Color) String() string { return fmt.Sprintf("{%d, %d, %d}", c.R, c.G, c.B) }
