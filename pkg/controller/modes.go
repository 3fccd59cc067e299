package controller

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tmux-cssh/pkg/hostlist"
	"tmux-cssh/pkg/layout"
)

// inputMode is the keyboard state of the controller. The set of modes is
// closed; Controller switches over the concrete types.
type inputMode interface {
	modeName() string
}

type (
	startingMode   struct{ total int }
	broadcastMode  struct{}
	actionMode     struct{}
	addHostMode    struct{}
	sortMode       struct{}
	sendStringMode struct{}

	enableMode struct {
		selection layout.HostID
		has       bool
	}
	boundsMode struct{ screen *layout.Screen }
	gridMode   struct{ screen *layout.Screen }
)

func (*startingMode) modeName() string   { return "starting" }
func (*broadcastMode) modeName() string  { return "input" }
func (*actionMode) modeName() string     { return "action" }
func (*addHostMode) modeName() string    { return "addhost" }
func (*sortMode) modeName() string       { return "sort" }
func (*sendStringMode) modeName() string { return "sendstring" }
func (*enableMode) modeName() string     { return "enable" }
func (*boundsMode) modeName() string     { return "bounds" }
func (*gridMode) modeName() string       { return "grid" }

const (
	clearScreen = "\x1b[H\x1b[2J"
	// boundsStep is the move/resize step in cells; boundsMin the smallest
	// width or height the bounds can shrink to.
	boundsStep = 1
	boundsMin  = 4
)

type styles struct {
	key   lipgloss.Style
	title lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		key:   r.NewStyle().Bold(true).Underline(true),
		title: r.NewStyle().Bold(true),
	}
}

var keyHint = regexp.MustCompile(`\[([^\]]+)\]`)

// menu highlights the [k]ey hints of a menu line.
func (s styles) menu(text string) string {
	return keyHint.ReplaceAllStringFunc(text, func(m string) string {
		return "[" + s.key.Render(m[1:len(m)-1]) + "]"
	})
}

// activate puts the console in the current mode's input discipline and
// shows its prompt.
func (c *Controller) activate() {
	c.applyRaw(c.mode)
	c.printPrompt()
}

func (c *Controller) applyRaw(m inputMode) {
	_, cooked := m.(*addHostMode)
	if err := c.console.SetRaw(!cooked); err != nil {
		c.logger.Warn("switching console mode", "err", err)
	}
}

func (c *Controller) setMode(m inputMode) {
	if m == nil || c.closed || m.modeName() == c.mode.modeName() {
		return
	}
	c.logger.Debug("input mode", "from", c.mode.modeName(), "to", m.modeName())
	c.mode = m
	c.applyRaw(m)
	c.enter(m)
	if !c.closed {
		c.printPrompt()
	}
}

func (c *Controller) write(s string) {
	if _, err := io.WriteString(c.console, s); err != nil {
		c.logger.Debug("console write", "err", err)
	}
}

func (c *Controller) beep() { c.write(string(rune(bel))) }

func (c *Controller) printPrompt() {
	c.write(clearScreen + c.prompt())
}

func (c *Controller) prompt() string {
	s := c.styles
	switch m := c.mode.(type) {
	case *startingMode:
		connected := 0
		for _, h := range c.hosts {
			if h.Connected() {
				connected++
			}
		}
		total := max(m.total, len(c.hosts))
		return fmt.Sprintf("Starting hosts: %d/%d…\r\n", connected, total)
	case *broadcastMode:
		return s.title.Render("Input to terminal:") + " (" + actionKeyName(c.settings.ActionKey) + " to enter control mode)\r\n"
	case *actionMode:
		line := "[c]reate window, [r]etile, s[o]rt, [e]nable/disable input, e[n]able all, "
		if len(c.hosts) > 1 && c.enabledCount() == 1 {
			line += "[Space] Enable next "
		}
		line += "[t]oggle enabled, [m]inimise, [h]ide, [s]end text, change [b]ounds, change [g]rid, e[x]it"
		return s.title.Render("Actions") + " (Esc to exit, " + actionKeyName(c.settings.ActionKey) +
			" to send " + actionKeyName(c.settings.ActionKey) + " to input)\r\n" + s.menu(line) + "\r\n"
	case *addHostMode:
		return s.title.Render("Add Host:") + " "
	case *sortMode:
		return s.title.Render("Choose sort order:") + " (Esc to exit)\r\n" + s.menu("[h]ostname, window [i]d") + "\r\n"
	case *sendStringMode:
		return s.title.Render("Send string to all active windows:") + " (Esc to exit)\r\n" +
			s.menu("[h]ostname, [c]onnection string, window [i]d") + "\r\n"
	case *enableMode:
		return s.title.Render("Select window with Arrow keys or i,j,k,l:") + " (Esc to exit)\r\n" +
			s.menu("[e]nable input, [d]isable input, disable [o]thers, disable [O]thers and zoom, [t]oggle input") + "\r\n"
	case *boundsMode:
		return s.title.Render("Move and resize master with Arrow keys or i,j,k,l:") + " (Enter to accept, Esc to cancel)\r\n" +
			s.menu("Shift+Arrow or I,J,K,L resizes, [f]ull screen, [r]eset, [p]rint bounds") + "\r\n"
	case *gridMode:
		return s.title.Render("Change the rows/columns layout with Arrow keys or i,j,k,l:") + " (Esc to exit)\r\n" +
			s.menu("[r]eset layout") + "\r\n"
	}
	return ""
}

// actionKeyName renders a control byte as Ctrl-X.
func actionKeyName(b byte) string {
	if b < 0x20 {
		return "Ctrl-" + string(rune(b+'@'))
	}
	if b == 0x7f {
		return "Ctrl-?"
	}
	return strconv.QuoteRune(rune(b))
}

func (c *Controller) enter(m inputMode) {
	switch m := m.(type) {
	case *enableMode:
		for _, h := range c.hosts {
			h.tab.SetZoomed(false)
		}
		c.dirty = true
		if len(c.hosts) > 0 {
			c.selectHost(m, c.hosts[0])
		}
	case *boundsMode:
		m.screen = c.layout.ControllerScreen()
		for _, h := range c.hosts {
			h.tab.SetVisible(false)
		}
		c.colorController(c.settings.SetboundsForeground, c.settings.SetboundsBackground)
		if m.screen != nil && !m.screen.Frame().Empty() {
			c.tab.SetFrame(m.screen.Frame())
		}
		c.dirty = true
	case *gridMode:
		m.screen = c.layout.ControllerScreen()
	}
}

// HandleInput feeds keyboard bytes to the current mode. Bytes a mode does
// not consume are kept for the next call.
func (c *Controller) HandleInput(data []byte) {
	c.buf = append(c.buf, data...)
	for len(c.buf) > 0 && !c.closed {
		n, next := c.parse(c.buf)
		c.buf = c.buf[n:]
		if next != nil {
			c.setMode(next)
			continue
		}
		if n == 0 {
			break
		}
	}
	if len(c.buf) == 0 {
		c.buf = nil
	}
}

// parse consumes a prefix of buf. It returns the number of bytes consumed
// and the mode to switch to, if any. (0, nil) means more input is needed.
func (c *Controller) parse(buf []byte) (int, inputMode) {
	switch m := c.mode.(type) {
	case *startingMode:
		return len(buf), nil
	case *broadcastMode:
		return c.parseBroadcast(buf)
	case *actionMode:
		return c.parseAction(buf)
	case *addHostMode:
		return c.parseAddHost(buf)
	case *sortMode:
		return c.parseSort(buf)
	case *sendStringMode:
		return c.parseSendString(buf)
	case *enableMode:
		return c.parseEnable(m, buf)
	case *boundsMode:
		return c.parseBounds(m, buf)
	case *gridMode:
		return c.parseGrid(m, buf)
	}
	return len(buf), nil
}

func (c *Controller) parseBroadcast(buf []byte) (int, inputMode) {
	i := bytes.IndexByte(buf, c.settings.ActionKey)
	if i < 0 {
		c.send(buf)
		return len(buf), nil
	}
	if i > 0 {
		c.send(buf[:i])
	}
	return i + 1, &actionMode{}
}

func (c *Controller) parseAction(buf []byte) (int, inputMode) {
	if buf[0] == c.settings.ActionKey {
		c.send(buf[:1])
		return 1, &broadcastMode{}
	}
	k, n := nextKey(buf)
	if n == 0 {
		return 0, nil
	}
	switch k.kind {
	case keyEscape:
		return n, &broadcastMode{}
	case keyByte:
	default:
		c.beep()
		return n, nil
	}

	switch k.b {
	case 'c':
		return n, &addHostMode{}
	case 'r':
		c.Layout()
		return n, &broadcastMode{}
	case 'o':
		return n, &sortMode{}
	case 'e':
		return n, &enableMode{}
	case 'n':
		for _, h := range c.hosts {
			h.tab.SetZoomed(false)
			c.setEnabled(h, true)
		}
		c.dirty = true
		return n, &broadcastMode{}
	case 't':
		for _, h := range c.hosts {
			c.setEnabled(h, !h.enabled)
		}
		return n, &broadcastMode{}
	case 'm':
		for _, h := range c.hosts {
			h.tab.SetMiniaturized(true)
		}
		c.dirty = true
		return n, &broadcastMode{}
	case 'h':
		for _, h := range c.hosts {
			h.tab.SetVisible(false)
		}
		c.dirty = true
		return n, &broadcastMode{}
	case 's':
		return n, &sendStringMode{}
	case 'b':
		return n, &boundsMode{}
	case 'g':
		return n, &gridMode{}
	case ' ':
		c.enableNext()
		return n, &broadcastMode{}
	case 'x':
		c.Close()
		return n, nil
	}
	c.beep()
	return n, nil
}

// enableNext moves the single enabled host to the next one in order.
func (c *Controller) enableNext() {
	if len(c.hosts) < 2 || c.enabledCount() != 1 {
		return
	}
	for i, h := range c.hosts {
		if h.enabled {
			c.setEnabled(h, false)
			c.setEnabled(c.hosts[(i+1)%len(c.hosts)], true)
			return
		}
	}
}

func (c *Controller) parseAddHost(buf []byte) (int, inputMode) {
	if bytes.IndexByte(buf, esc) >= 0 {
		return len(buf), &broadcastMode{}
	}
	if bytes.IndexAny(buf, "\r\n") < 0 {
		return 0, nil
	}
	line := strings.TrimSpace(string(buf))
	if line != "" {
		target, err := hostlist.ParseTarget(line)
		if err != nil {
			c.logger.Warn("invalid host", "input", line, "err", err)
			c.beep()
		} else {
			c.Add(target, func(err error) {
				if err != nil {
					c.logger.Warn("host failed to start", "host", target.ConnectionString(), "err", err)
					return
				}
				c.Layout()
			})
		}
	}
	return len(buf), &broadcastMode{}
}

func (c *Controller) parseSort(buf []byte) (int, inputMode) {
	k, n := nextKey(buf)
	if n == 0 {
		return 0, nil
	}
	if k.kind == keyEscape {
		return n, &broadcastMode{}
	}
	if k.kind == keyByte {
		switch k.b {
		case 'h':
			sort.SliceStable(c.hosts, func(i, j int) bool {
				return lessTarget(c.hosts[i].Target, c.hosts[j].Target)
			})
			c.Layout()
			return n, &broadcastMode{}
		case 'i':
			sort.SliceStable(c.hosts, func(i, j int) bool {
				return c.hosts[i].tab.ID() < c.hosts[j].tab.ID()
			})
			c.Layout()
			return n, &broadcastMode{}
		}
	}
	c.beep()
	return n, nil
}

func lessTarget(a, b hostlist.Target) bool {
	if a.Hostname != b.Hostname {
		return a.Hostname < b.Hostname
	}
	if a.Port != b.Port {
		return a.Port < b.Port
	}
	return a.User < b.User
}

func (c *Controller) parseSendString(buf []byte) (int, inputMode) {
	k, n := nextKey(buf)
	if n == 0 {
		return 0, nil
	}
	if k.kind == keyEscape {
		return n, &broadcastMode{}
	}
	var text func(*HostWindow) string
	if k.kind == keyByte {
		switch k.b {
		case 'h':
			text = func(h *HostWindow) string { return h.Target.Hostname }
		case 'c':
			text = func(h *HostWindow) string { return h.Target.ConnectionString() }
		case 'i':
			text = func(h *HostWindow) string { return strconv.Itoa(h.tab.ID()) }
		}
	}
	if text == nil {
		c.beep()
		return n, nil
	}
	for _, h := range append([]*HostWindow(nil), c.hosts...) {
		if h.enabled {
			c.sendTo(h, []byte(text(h)))
		}
	}
	return n, &broadcastMode{}
}

func (c *Controller) selectHost(m *enableMode, h *HostWindow) {
	if m.has {
		if prev := c.host(m.selection); prev != nil {
			c.setSelected(prev, false)
		}
	}
	m.selection, m.has = h.ID, true
	c.setSelected(h, true)
}

func (c *Controller) clearSelection(m *enableMode) {
	if m.has {
		if h := c.host(m.selection); h != nil {
			c.setSelected(h, false)
		}
	}
	m.has = false
}

func (c *Controller) parseEnable(m *enableMode, buf []byte) (int, inputMode) {
	k, n := nextKey(buf)
	if n == 0 {
		return 0, nil
	}
	if k.kind == keyEscape || (k.kind == keyByte && k.b == '\r') {
		c.clearSelection(m)
		return n, &broadcastMode{}
	}
	var sel *HostWindow
	if m.has {
		sel = c.host(m.selection)
	}
	if sel == nil {
		c.beep()
		return n, nil
	}

	switch dir := direction(k); dir {
	case keyUp, keyDown, keyLeft, keyRight:
		screen := c.layout.ScreenOf(sel.ID)
		if screen == nil {
			c.beep()
			return n, nil
		}
		var (
			next layout.HostID
			ok   bool
		)
		switch dir {
		case keyUp:
			next, ok = screen.Above(sel.ID)
		case keyDown:
			next, ok = screen.Below(sel.ID)
		case keyLeft:
			next, ok = screen.Left(sel.ID)
		default:
			next, ok = screen.Right(sel.ID)
		}
		if h := c.host(next); ok && h != nil {
			c.selectHost(m, h)
		} else {
			c.beep()
		}
		return n, nil
	}

	if k.kind != keyByte {
		c.beep()
		return n, nil
	}
	switch k.b {
	case 'e':
		c.setEnabled(sel, true)
	case 'd':
		c.setEnabled(sel, false)
	case 't':
		c.setEnabled(sel, !sel.enabled)
	case 'o', 'O':
		for _, h := range c.hosts {
			c.setEnabled(h, h == sel)
		}
		c.clearSelection(m)
		if k.b == 'O' {
			c.zoom(sel)
		}
		return n, &broadcastMode{}
	default:
		c.beep()
	}
	return n, nil
}

// zoom gives a host the whole tiling area of its screen.
func (c *Controller) zoom(h *HostWindow) {
	if screen := c.layout.ScreenOf(h.ID); screen != nil {
		h.tab.SetFrame(screen.HostsFrame())
	}
	h.tab.SetZoomed(true)
	h.tab.SetFrontmost()
	c.tab.SetFrontmost()
	c.dirty = true
}

func (c *Controller) parseBounds(m *boundsMode, buf []byte) (int, inputMode) {
	k, n := nextKey(buf)
	if n == 0 {
		return 0, nil
	}
	if k.kind == keyEscape {
		c.applyControllerColors()
		c.Layout()
		return n, &broadcastMode{}
	}
	if m.screen == nil {
		c.beep()
		return n, nil
	}
	visible := m.screen.VisibleFrame

	switch direction(k) {
	case keyUp:
		c.moveController(visible, 0, -boundsStep)
		return n, nil
	case keyDown:
		c.moveController(visible, 0, boundsStep)
		return n, nil
	case keyLeft:
		c.moveController(visible, -boundsStep, 0)
		return n, nil
	case keyRight:
		c.moveController(visible, boundsStep, 0)
		return n, nil
	case keyShiftUp:
		c.resizeController(visible, 0, -boundsStep)
		return n, nil
	case keyShiftDown:
		c.resizeController(visible, 0, boundsStep)
		return n, nil
	case keyShiftLeft:
		c.resizeController(visible, -boundsStep, 0)
		return n, nil
	case keyShiftRight:
		c.resizeController(visible, boundsStep, 0)
		return n, nil
	}

	if k.kind != keyByte {
		c.beep()
		return n, nil
	}
	switch k.b {
	case '\r', '\n':
		m.screen.SetRequestedFrame(c.tab.Frame(), false)
		c.applyControllerColors()
		c.Layout()
		return n, &broadcastMode{}
	case 'f', 'r':
		c.tab.SetFrame(visible)
		c.dirty = true
	case 'p':
		c.write("\r\n\r\nscreen_bounds = " + c.tab.Frame().String() + "\r\n")
	default:
		c.beep()
	}
	return n, nil
}

func (c *Controller) moveController(visible layout.Rect, dx, dy float64) {
	f := c.tab.Frame()
	x := clamp(f.X+dx, visible.MinX(), visible.MaxX()-f.Width)
	y := clamp(f.Y+dy, visible.MinY(), visible.MaxY()-f.Height)
	c.tab.SetOrigin(layout.Point{X: x, Y: y})
	c.dirty = true
}

func (c *Controller) resizeController(visible layout.Rect, dw, dh float64) {
	f := c.tab.Frame()
	f.Width = clamp(f.Width+dw, boundsMin, visible.MaxX()-f.MinX())
	f.Height = clamp(f.Height+dh, boundsMin, visible.MaxY()-f.MinY())
	c.tab.SetFrame(f)
	c.dirty = true
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		hi = lo
	}
	return min(max(v, lo), hi)
}

func (c *Controller) parseGrid(m *gridMode, buf []byte) (int, inputMode) {
	k, n := nextKey(buf)
	if n == 0 {
		return 0, nil
	}
	if k.kind == keyEscape || (k.kind == keyByte && (k.b == '\r' || k.b == '\n')) {
		return n, &broadcastMode{}
	}
	if m.screen == nil {
		c.beep()
		return n, nil
	}
	s := m.screen
	count := s.HostCount()
	rows, columns := s.Rows(), s.Columns()

	switch direction(k) {
	case keyUp:
		if rows >= count {
			c.beep()
			return n, nil
		}
		s.SetRows(rows + 1)
	case keyDown:
		if rows <= 1 {
			c.beep()
			return n, nil
		}
		s.SetRows(rows - 1)
	case keyRight:
		if columns >= count {
			c.beep()
			return n, nil
		}
		s.SetColumns(columns + 1)
	case keyLeft:
		if columns <= 1 {
			c.beep()
			return n, nil
		}
		s.SetColumns(columns - 1)
	default:
		if k.kind == keyByte && k.b == 'r' {
			s.SetColumns(0)
			break
		}
		c.beep()
		return n, nil
	}
	c.Layout()
	return n, nil
}
