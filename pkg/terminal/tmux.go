package terminal

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"tmux-cssh/pkg/layout"
)

// Runner executes a tmux subcommand and returns its trimmed standard output.
type Runner interface {
	Run(args ...string) (string, error)
}

// Server runs tmux commands against one server socket.
//
// The TMUX environment variable holds the socket path plus metadata:
//
//	TMUX=/private/tmp/tmux-502/default,35218,0
//
// Forcing `tmux -S <socket>` makes every command reach the server the
// controller runs in, even from shells whose environment was changed.
type Server struct {
	socketPath string
}

// NewServer returns a Server for socketPath. An empty path uses tmux's
// default socket.
func NewServer(socketPath string) *Server {
	return &Server{socketPath: socketPath}
}

// ServerFromEnv returns a Server for the socket named in $TMUX.
func ServerFromEnv() *Server { return NewServer(SocketPathFromEnv()) }

// SocketPathFromEnv parses $TMUX and returns the socket path portion, or ""
// outside tmux.
func SocketPathFromEnv() string {
	t := strings.TrimSpace(os.Getenv("TMUX"))
	if t == "" {
		return ""
	}
	if i := strings.IndexByte(t, ','); i >= 0 {
		return t[:i]
	}
	return t
}

// SocketPath returns the socket this server targets.
func (s *Server) SocketPath() string { return s.socketPath }

func (s *Server) fullArgs(args []string) []string {
	if s.socketPath == "" {
		return args
	}
	return append([]string{"-S", s.socketPath}, args...)
}

// Command builds an exec.Cmd for interactive commands such as attach-session.
func (s *Server) Command(args ...string) *exec.Cmd {
	return exec.Command("tmux", s.fullArgs(args)...)
}

// Run executes a tmux subcommand. Failures wrap ErrUnavailable and carry
// tmux's stderr.
func (s *Server) Run(args ...string) (string, error) {
	cmd := exec.Command("tmux", s.fullArgs(args)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%w: tmux %s: %s", ErrUnavailable, strings.Join(args, " "), msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Tmux implements Terminal with tmux panes.
//
// Host panes are created in their own detached windows ("parked") and
// joined to the controller's window on Flush when visible. Hidden and
// miniaturized panes are parked again. A zoomed pane is shown alone next to
// the controller.
type Tmux struct {
	run        Runner
	logger     *slog.Logger
	shell      string
	session    string
	window     string
	controller *pane
	panes      []*pane
	frontmost  *pane
}

// NewTmux binds a Tmux terminal to the controller pane (such as "%0").
func NewTmux(run Runner, controllerPane string, logger *slog.Logger) (*Tmux, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	t := &Tmux{run: run, logger: logger, shell: UserShell()}

	out, err := run.Run("display-message", "-p", "-t", controllerPane,
		"#{session_id}\t#{window_id}\t#{pane_id}\t#{pane_left}\t#{pane_top}\t#{pane_width}\t#{pane_height}")
	if err != nil {
		return nil, err
	}
	f := strings.Split(out, "\t")
	if len(f) != 7 {
		return nil, fmt.Errorf("%w: unexpected pane description %q", ErrUnavailable, out)
	}
	id, err := parsePaneID(f[2])
	if err != nil {
		return nil, err
	}
	t.session, t.window = f[0], f[1]
	t.controller = &pane{t: t, id: id, controller: true, visible: true, frame: parseFrame(f[3:7])}
	return t, nil
}

// Controller returns the controller pane.
func (t *Tmux) Controller() Tab { return t.controller }

func parsePaneID(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(s), "%"))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid pane id %q", ErrUnavailable, s)
	}
	return n, nil
}

func parseFrame(f []string) layout.Rect {
	v := make([]float64, 4)
	for i := range v {
		if i < len(f) {
			v[i], _ = strconv.ParseFloat(strings.TrimSpace(f[i]), 64)
		}
	}
	return layout.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}
}

// Open creates a parked pane running the user's shell.
func (t *Tmux) Open() (Tab, error) {
	out, err := t.run.Run("new-window", "-d", "-P", "-t", t.session+":", "-n", "cssh",
		"-F", "#{pane_id}\t#{pane_width}\t#{pane_height}")
	if err != nil {
		return nil, err
	}
	f := strings.Split(out, "\t")
	id, err := parsePaneID(f[0])
	if err != nil {
		return nil, err
	}
	p := &pane{t: t, id: id, visible: true, parked: true}
	if len(f) == 3 {
		p.frame = parseFrame([]string{"0", "0", f[1], f[2]})
	}
	t.panes = append(t.panes, p)
	t.logger.Debug("opened pane", "pane", p.target())
	return p, nil
}

// Lookup returns a known pane by id.
func (t *Tmux) Lookup(id string) (Tab, error) {
	n, err := parsePaneID(id)
	if err != nil {
		return nil, err
	}
	if n == t.controller.id {
		return t.controller, nil
	}
	for _, p := range t.panes {
		if p.id == n {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown pane %s", ErrUnavailable, id)
}

// Screens returns the controller window as the only screen.
func (t *Tmux) Screens() ([]layout.Rect, error) {
	w, h, err := t.windowSize()
	if err != nil {
		return nil, err
	}
	return []layout.Rect{{Width: float64(w), Height: float64(h)}}, nil
}

func (t *Tmux) windowSize() (int, int, error) {
	out, err := t.run.Run("display-message", "-p", "-t", t.window, "#{window_width}\t#{window_height}")
	if err != nil {
		return 0, 0, err
	}
	ws, hs, _ := strings.Cut(out, "\t")
	w, err1 := strconv.Atoi(strings.TrimSpace(ws))
	h, err2 := strconv.Atoi(strings.TrimSpace(hs))
	if err1 != nil || err2 != nil {
		return 0, 0, fmt.Errorf("%w: unexpected window size %q", ErrUnavailable, out)
	}
	return w, h, nil
}

// Flush parks and joins panes, then applies every frame with one
// select-layout.
func (t *Tmux) Flush() error {
	if err := t.syncPanes(); err != nil {
		return err
	}

	var zoomed *pane
	for _, p := range t.panes {
		if p.zoomed && p.visible && !p.mini {
			zoomed = p
		}
	}
	show := func(p *pane) bool {
		return p.visible && !p.mini && (zoomed == nil || p == zoomed)
	}

	for _, p := range t.panes {
		if !show(p) && !p.parked {
			if _, err := t.run.Run("break-pane", "-d", "-s", p.target(), "-n", "cssh"); err != nil {
				return err
			}
			p.parked = true
		}
	}

	cells := []LayoutCell{{PaneID: t.controller.id, Frame: t.controller.frame}}
	for _, p := range t.panes {
		if !show(p) {
			continue
		}
		if p.parked {
			if _, err := t.run.Run("join-pane", "-d", "-s", p.target(), "-t", t.controller.target()); err != nil {
				return err
			}
			// Keep room for the next join.
			if _, err := t.run.Run("select-layout", "-t", t.window, "tiled"); err != nil {
				return err
			}
			p.parked = false
		}
		cells = append(cells, LayoutCell{PaneID: p.id, Frame: p.frame})
	}

	w, h, err := t.windowSize()
	if err != nil {
		return err
	}
	spec, order, err := BuildTmuxLayout(w, h, cells)
	if err != nil {
		return err
	}
	if err := t.orderPanes(order); err != nil {
		return err
	}
	if _, err := t.run.Run("select-layout", "-t", t.window, spec); err != nil {
		return err
	}

	if f := t.frontmost; f != nil && !f.parked {
		if _, err := t.run.Run("select-pane", "-t", f.target()); err != nil {
			return err
		}
	}
	t.frontmost = nil
	t.logger.Debug("flushed layout", "panes", len(cells), "layout", spec)
	return nil
}

// syncPanes drops panes whose process exited and refreshes which panes
// live in the controller window.
func (t *Tmux) syncPanes() error {
	out, err := t.run.Run("list-panes", "-s", "-t", t.session, "-F", "#{pane_id}\t#{window_id}")
	if err != nil {
		return err
	}
	where := map[int]string{}
	for _, line := range strings.Split(out, "\n") {
		idStr, win, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		if id, err := parsePaneID(idStr); err == nil {
			where[id] = win
		}
	}
	alive := t.panes[:0]
	for _, p := range t.panes {
		win, ok := where[p.id]
		if !ok {
			t.logger.Debug("pane is gone", "pane", p.target())
			continue
		}
		p.parked = win != t.window
		alive = append(alive, p)
	}
	t.panes = alive
	return nil
}

// orderPanes swaps panes until the window lists them in order.
func (t *Tmux) orderPanes(order []int) error {
	out, err := t.run.Run("list-panes", "-t", t.window, "-F", "#{pane_id}")
	if err != nil {
		return err
	}
	var cur []int
	for _, line := range strings.Split(out, "\n") {
		if id, err := parsePaneID(line); err == nil {
			cur = append(cur, id)
		}
	}
	if len(cur) != len(order) {
		return fmt.Errorf("%w: window has %d panes, layout has %d", ErrUnavailable, len(cur), len(order))
	}
	for i, id := range order {
		if cur[i] == id {
			continue
		}
		j := i + 1
		for j < len(cur) && cur[j] != id {
			j++
		}
		if j == len(cur) {
			return fmt.Errorf("%w: pane %%%d is not in the controller window", ErrUnavailable, id)
		}
		if _, err := t.run.Run("swap-pane", "-d", "-s", paneTarget(id), "-t", paneTarget(cur[i])); err != nil {
			return err
		}
		cur[i], cur[j] = cur[j], cur[i]
	}
	return nil
}

func paneTarget(id int) string { return "%" + strconv.Itoa(id) }

type pane struct {
	t          *Tmux
	id         int
	frame      layout.Rect
	visible    bool
	mini       bool
	zoomed     bool
	parked     bool
	controller bool
	fg, bg     string
}

func (p *pane) target() string { return paneTarget(p.id) }

func (p *pane) ID() int { return p.id }

func (p *pane) TTY() (Device, error) {
	path, err := p.t.run.Run("display-message", "-p", "-t", p.target(), "#{pane_tty}")
	if err != nil {
		return Device{}, err
	}
	dev, err := DeviceOf(path)
	if err != nil {
		return Device{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return dev, nil
}

func (p *pane) Run(script string, clear, exec bool) error {
	line := CommandLine(p.t.shell, script, clear, exec)
	if _, err := p.t.run.Run("send-keys", "-t", p.target(), "-l", line); err != nil {
		return err
	}
	_, err := p.t.run.Run("send-keys", "-t", p.target(), "Enter")
	return err
}

func (p *pane) Frame() layout.Rect          { return p.frame }
func (p *pane) SetFrame(r layout.Rect)      { p.frame = r }
func (p *pane) SetOrigin(pt layout.Point)   { p.frame.X, p.frame.Y = pt.X, pt.Y }
func (p *pane) SetVisible(v bool)           { p.visible = v || p.controller }
func (p *pane) SetMiniaturized(v bool)      { p.mini = v && !p.controller }
func (p *pane) SetZoomed(v bool)            { p.zoomed = v }
func (p *pane) SetFrontmost()               { p.t.frontmost = p }
func (p *pane) SetTextColor(c *Color) error { p.fg = colorStyle(c); return p.applyStyle() }

func (p *pane) SetBackgroundColor(c *Color) error {
	p.bg = colorStyle(c)
	return p.applyStyle()
}

func colorStyle(c *Color) string {
	if c == nil {
		return ""
	}
	return c.Hex()
}

func (p *pane) applyStyle() error {
	fg, bg := p.fg, p.bg
	if fg == "" {
		fg = "default"
	}
	if bg == "" {
		bg = "default"
	}
	_, err := p.t.run.Run("select-pane", "-t", p.target(), "-P", "fg="+fg+",bg="+bg)
	return err
}

// Close kills the pane. A pane that is already gone is not an error.
func (p *pane) Close() error {
	for i, q := range p.t.panes {
		if q == p {
			p.t.panes = append(p.t.panes[:i], p.t.panes[i+1:]...)
			break
		}
	}
	if _, err := p.t.run.Run("kill-pane", "-t", p.target()); err != nil && !strings.Contains(err.Error(), "can't find pane") {
		return err
	}
	return nil
}
