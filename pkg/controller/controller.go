// Package controller runs the controller process: it starts one host window
// per target, accepts the host processes' connections on a unix socket and
// forwards keyboard input to every enabled host.
//
// All state is owned by a single event loop. Socket readers, timers and the
// stdin reader post closures to it instead of touching state directly.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"tmux-cssh/pkg/clock"
	"tmux-cssh/pkg/config"
	"tmux-cssh/pkg/hostlist"
	"tmux-cssh/pkg/layout"
	"tmux-cssh/pkg/terminal"
)

var (
	// ErrTimeout is reported when a host process does not connect back in
	// time.
	ErrTimeout = errors.New("host did not connect in time")

	// ErrBusy is returned by Listen when the controller already listens.
	ErrBusy = errors.New("controller already listening")

	// ErrClosed is reported to pending host starts when the controller
	// shuts down.
	ErrClosed = errors.New("controller closed")

	errTerminated = errors.New("host terminated")
)

// DefaultStartTimeout bounds the time between opening a host window and
// its host process connecting back.
const DefaultStartTimeout = 5 * time.Second

// Console is the controller's own terminal.
type Console interface {
	io.Writer
	SetRaw(raw bool) error
}

// Options configure a Controller.
type Options struct {
	Terminal terminal.Terminal
	// Tab is the controller's own window.
	Tab      terminal.Tab
	Console  Console
	Settings config.Settings

	// Socket is the unix socket path host processes connect to.
	Socket string
	// Executable is the binary host windows run ("<exe> host ...").
	Executable string

	Clock        clock.Clock
	Logger       *slog.Logger
	StartTimeout time.Duration
}

// Controller is the controller process state.
type Controller struct {
	term     terminal.Terminal
	tab      terminal.Tab
	console  Console
	settings config.Settings
	socket   string
	exe      string
	clock    clock.Clock
	logger   *slog.Logger
	timeout  time.Duration
	styles   styles
	layout   *layout.Manager

	hosts  []*HostWindow
	nextID layout.HostID
	mode   inputMode
	buf    []byte
	dirty  bool
	closed bool

	events   chan func()
	done     chan struct{}
	listener net.Listener
	peerTTY  func(net.Conn) (terminal.Device, error)
}

// New creates a Controller in the starting mode.
func New(opts Options) (*Controller, error) {
	if opts.Terminal == nil || opts.Tab == nil {
		return nil, errors.New("controller: terminal and controller tab are required")
	}
	if opts.Console == nil {
		return nil, errors.New("controller: console is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = DefaultStartTimeout
	}
	if opts.Executable == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("controller: resolve executable: %w", err)
		}
		opts.Executable = exe
	}

	frames, err := opts.Terminal.Screens()
	if err != nil {
		return nil, fmt.Errorf("controller: list screens: %w", err)
	}
	s := opts.Settings
	cfg := layout.Config{
		Rows:             s.Rows,
		Columns:          s.Columns,
		ControllerHeight: float64(s.ControllerHeight),
		Bounds:           s.ScreenBounds,
	}

	c := &Controller{
		term:     opts.Terminal,
		tab:      opts.Tab,
		console:  opts.Console,
		settings: s,
		socket:   opts.Socket,
		exe:      opts.Executable,
		clock:    opts.Clock,
		logger:   opts.Logger,
		timeout:  opts.StartTimeout,
		styles:   newStyles(opts.Console),
		layout:   layout.NewManager(frames, cfg, opts.Logger),
		mode:     &startingMode{},
		events:   make(chan func(), 256),
		done:     make(chan struct{}),
		peerTTY:  PeerTTY,
	}
	c.applyControllerColors()
	return c, nil
}

// Hosts returns the live hosts in display order.
func (c *Controller) Hosts() []*HostWindow { return c.hosts }

// Done is closed once the controller has shut down.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Run processes events until the controller closes or ctx is done. input
// is the keyboard; its EOF closes the controller.
func (c *Controller) Run(ctx context.Context, input io.Reader) error {
	c.activate()
	if input != nil {
		go c.readInput(input)
	}
	for {
		select {
		case <-ctx.Done():
			c.Close()
			return ctx.Err()
		case <-c.done:
			return nil
		case f := <-c.events:
			f()
			c.commit()
		}
	}
}

// Post runs f on the event loop.
func (c *Controller) Post(f func()) {
	select {
	case c.events <- f:
	case <-c.done:
	}
}

func (c *Controller) readInput(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := append([]byte(nil), buf[:n]...)
			c.Post(func() { c.HandleInput(data) })
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.logger.Warn("reading keyboard", "err", err)
			}
			c.Post(c.Close)
			return
		}
	}
}

// commit applies pending window changes.
func (c *Controller) commit() {
	if !c.dirty || c.closed {
		return
	}
	c.dirty = false
	if err := c.term.Flush(); err != nil {
		c.logger.Warn("applying window changes", "err", err)
	}
}

// StartAll starts every target and leaves the starting mode once each one
// has connected or failed.
func (c *Controller) StartAll(targets []hostlist.Target) {
	if m, ok := c.mode.(*startingMode); ok {
		m.total = len(targets)
	}
	c.printPrompt()
	pending := len(targets)
	if pending == 0 {
		c.Ready()
		return
	}
	for _, t := range targets {
		c.Add(t, func(err error) {
			if err != nil {
				c.logger.Warn("host failed to start", "host", t.ConnectionString(), "err", err)
			}
			pending--
			if _, ok := c.mode.(*startingMode); ok {
				c.printPrompt()
			}
			if pending == 0 {
				c.Ready()
			}
		})
	}
}

// Ready tiles the hosts and switches to broadcast input. It is a no-op
// outside the starting mode.
func (c *Controller) Ready() {
	if _, ok := c.mode.(*startingMode); !ok || c.closed {
		return
	}
	if len(c.hosts) == 0 {
		c.logger.Warn("no hosts started")
		c.Close()
		return
	}
	c.Layout()
	c.setMode(&broadcastMode{})
}

// Add opens a window for target and runs the host process in it. done is
// called on the event loop once the host connects, fails or times out.
func (c *Controller) Add(target hostlist.Target, done func(error)) {
	if done == nil {
		done = func(error) {}
	}
	if c.closed {
		done(ErrClosed)
		return
	}

	tab, err := c.term.Open()
	if err != nil {
		done(fmt.Errorf("open window for %s: %w", target, err))
		return
	}
	c.layout.SetDefaultWindowRatio(tab.Frame())

	tty, err := tab.TTY()
	if err == nil && tty.IsZero() {
		err = errors.New("window has no tty")
	}
	if err != nil {
		_ = tab.Close()
		done(fmt.Errorf("tty for %s: %w", target, err))
		return
	}

	c.nextID++
	h := &HostWindow{
		ID:       c.nextID,
		Target:   target,
		tab:      tab,
		tty:      tty,
		whenDone: done,
		enabled:  true,
	}
	c.hosts = append(c.hosts, h)
	c.dirty = true

	script := terminal.QuoteArgs(c.hostCommand(target))
	if err := tab.Run(script, true, !c.settings.Debug); err != nil {
		c.terminate(h, fmt.Errorf("run host process for %s: %w", target, err))
		return
	}
	h.timer = c.clock.AfterFunc(c.timeout, func() {
		c.Post(func() {
			if h.whenDone != nil {
				c.terminate(h, ErrTimeout)
			}
		})
	})
	c.logger.Debug("host window opened", "host", target.ConnectionString(), "tab", tab.ID(), "tty", tty.String())
}

// hostCommand is the command line typed into a host window.
func (c *Controller) hostCommand(t hostlist.Target) []string {
	s := c.settings
	args := []string{c.exe, "host", "--ssh", s.SSH, "--socket", c.socket, "--hostname", t.Hostname}
	login := t.User
	if login == "" {
		login = s.Login
	}
	if login != "" {
		args = append(args, "--login", login)
	}
	if t.Port != 0 {
		args = append(args, "--port", fmt.Sprint(t.Port))
	}
	if s.SSHArgs != "" {
		args = append(args, "--ssh-args", s.SSHArgs)
	}
	remote := t.Command
	if remote == "" {
		remote = s.RemoteCommand
	}
	if remote != "" {
		args = append(args, "--remote-command", remote)
	}
	if s.Debug {
		args = append(args, "--debug")
	}
	return args
}

// attach binds a connection from a host process to the host whose window
// runs on tty, then releases the host process with a zero byte.
func (c *Controller) attach(conn net.Conn, tty terminal.Device) {
	var h *HostWindow
	for _, v := range c.hosts {
		if v.tty == tty && v.conn == nil {
			h = v
			break
		}
	}
	if h == nil {
		c.logger.Warn("connection from unknown tty", "tty", tty.String())
		_ = conn.Close()
		return
	}
	if _, err := conn.Write([]byte{0}); err != nil {
		_ = conn.Close()
		c.terminate(h, fmt.Errorf("handshake with %s: %w", h, err))
		return
	}
	h.conn = conn
	c.logger.Info("host connected", "host", h.String(), "tty", tty.String())
	go c.monitor(h, conn)
	h.finish(nil)
}

// monitor waits for the host process to hang up.
func (c *Controller) monitor(h *HostWindow, conn net.Conn) {
	buf := make([]byte, 64)
	for {
		if _, err := conn.Read(buf); err != nil {
			c.Post(func() {
				if h.conn == conn {
					c.logger.Info("host disconnected", "host", h.String(), "err", err)
					c.terminate(h, errTerminated)
				}
			})
			return
		}
	}
}

// terminate removes the host. The controller closes with its last host.
func (c *Controller) terminate(h *HostWindow, reason error) {
	i := c.indexOf(h)
	if i < 0 {
		return
	}
	c.hosts = append(c.hosts[:i], c.hosts[i+1:]...)
	h.disconnect()
	c.paint(h)
	h.tab.SetZoomed(false)
	h.tab.SetVisible(false)
	c.dirty = true
	h.finish(reason)

	if c.closed {
		return
	}
	if len(c.hosts) == 0 {
		if _, starting := c.mode.(*startingMode); !starting {
			c.Close()
		}
		return
	}
	if _, starting := c.mode.(*startingMode); !starting {
		c.Layout()
		c.printPrompt()
	}
}

func (c *Controller) indexOf(h *HostWindow) int {
	for i, v := range c.hosts {
		if v == h {
			return i
		}
	}
	return -1
}

// send writes data to every enabled, connected host.
func (c *Controller) send(data []byte) {
	var failed []*HostWindow
	for _, h := range c.hosts {
		if !h.enabled || h.conn == nil {
			continue
		}
		if _, err := h.conn.Write(data); err != nil {
			c.logger.Warn("write to host", "host", h.String(), "err", err)
			failed = append(failed, h)
		}
	}
	for _, h := range failed {
		c.terminate(h, errTerminated)
	}
}

func (c *Controller) sendTo(h *HostWindow, data []byte) {
	if h.conn == nil {
		return
	}
	if _, err := h.conn.Write(data); err != nil {
		c.logger.Warn("write to host", "host", h.String(), "err", err)
		c.terminate(h, errTerminated)
	}
}

// Layout re-tiles the hosts and keeps keyboard focus on the controller.
func (c *Controller) Layout() {
	frames, err := c.term.Screens()
	if err != nil {
		c.logger.Warn("skipping layout", "err", err)
		return
	}
	c.layout.UpdateScreens(frames)
	placements := make([]layout.Placement, len(c.hosts))
	for i, h := range c.hosts {
		placements[i] = layout.Placement{ID: h.ID, Window: h.tab}
	}
	if err := c.layout.Layout(c.tab, placements); err != nil {
		c.logger.Warn("skipping layout", "err", err)
		return
	}
	c.tab.SetFrontmost()
	c.dirty = true
}

func (c *Controller) host(id layout.HostID) *HostWindow {
	for _, h := range c.hosts {
		if h.ID == id {
			return h
		}
	}
	return nil
}

func (c *Controller) setEnabled(h *HostWindow, enabled bool) {
	h.enabled = enabled
	c.paint(h)
}

func (c *Controller) setSelected(h *HostWindow, selected bool) {
	h.selected = selected
	c.paint(h)
}

func (c *Controller) enabledCount() int {
	n := 0
	for _, h := range c.hosts {
		if h.enabled {
			n++
		}
	}
	return n
}

// Close terminates every host and stops the event loop. It is idempotent.
func (c *Controller) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if c.listener != nil {
		_ = c.listener.Close()
	}
	hosts := c.hosts
	c.hosts = nil
	for _, h := range hosts {
		h.disconnect()
		h.finish(ErrClosed)
	}
	if err := c.console.SetRaw(false); err != nil {
		c.logger.Debug("restoring console", "err", err)
	}
	c.logger.Info("controller closed")
	close(c.done)
}
