package controller

import (
	"net"

	"tmux-cssh/pkg/clock"
	"tmux-cssh/pkg/hostlist"
	"tmux-cssh/pkg/layout"
	"tmux-cssh/pkg/terminal"
)

type palette int

const (
	paletteNormal palette = iota
	paletteSelected
	paletteDisabled
)

// HostWindow is one remote host: its terminal window, the tty the host
// process runs on and, once the host process has connected back, the
// socket its input is written to.
type HostWindow struct {
	ID     layout.HostID
	Target hostlist.Target

	tab  terminal.Tab
	tty  terminal.Device
	conn net.Conn

	// whenDone resolves the start of the host. It is called exactly once,
	// with nil when the host process connects.
	whenDone func(error)
	timer    *clock.Timer

	enabled  bool
	selected bool
	painted  palette
}

// Enabled reports whether broadcast input reaches the host.
func (h *HostWindow) Enabled() bool { return h.enabled }

// Connected reports whether the host process has connected back.
func (h *HostWindow) Connected() bool { return h.conn != nil }

// Tab returns the host's terminal window.
func (h *HostWindow) Tab() terminal.Tab { return h.tab }

func (h *HostWindow) String() string { return h.Target.ConnectionString() }

func (h *HostWindow) palette() palette {
	switch {
	case h.selected:
		return paletteSelected
	case !h.enabled:
		return paletteDisabled
	}
	return paletteNormal
}

func (h *HostWindow) finish(err error) {
	if h.timer != nil {
		h.timer.Stop()
		h.timer = nil
	}
	if f := h.whenDone; f != nil {
		h.whenDone = nil
		f(err)
	}
}

// disconnect drops the connection. The window is left open: the host
// process exits once its socket closes, and in debug mode the pane stays
// around for inspection.
func (h *HostWindow) disconnect() {
	if h.conn != nil {
		_ = h.conn.Close()
		h.conn = nil
	}
	h.enabled = false
	h.selected = false
}
