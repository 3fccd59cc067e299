// Package ttyio holds the terminal plumbing shared by the controller and
// host processes: raw mode, input flushing and pty resizing.
package ttyio

import (
	"os"

	"golang.org/x/term"
)

// Console is a terminal that can switch between raw and cooked input.
// When in is not a terminal, mode switches are no-ops.
type Console struct {
	in  *os.File
	out *os.File

	state   *term.State
	flushed bool
}

// NewConsole wraps the controlling terminal.
func NewConsole(in, out *os.File) *Console {
	return &Console{in: in, out: out}
}

func (c *Console) Write(p []byte) (int, error) { return c.out.Write(p) }

// SetRaw switches the input mode. The first switch to raw mode also drops
// pending input.
func (c *Console) SetRaw(raw bool) error {
	fd := int(c.in.Fd())
	if !term.IsTerminal(fd) {
		return nil
	}
	if !raw {
		if c.state == nil {
			return nil
		}
		err := term.Restore(fd, c.state)
		c.state = nil
		return err
	}
	if c.state != nil {
		return nil
	}
	st, err := term.MakeRaw(fd)
	if err != nil {
		return err
	}
	c.state = st
	if !c.flushed {
		c.flushed = true
		DiscardInput(fd)
	}
	return nil
}
