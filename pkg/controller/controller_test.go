package controller

import (
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tmux-cssh/pkg/clock"
	"tmux-cssh/pkg/config"
	"tmux-cssh/pkg/hostlist"
	"tmux-cssh/pkg/layout"
	"tmux-cssh/pkg/terminal"
	"tmux-cssh/pkg/terminal/terminaltest"
)

type fakeConsole struct {
	bytes.Buffer
	raw bool
}

func (f *fakeConsole) SetRaw(raw bool) error {
	f.raw = raw
	return nil
}

// fakeConn records writes and blocks reads until it is closed.
type fakeConn struct {
	mu      sync.Mutex
	written bytes.Buffer
	closed  chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn { return &fakeConn{closed: make(chan struct{})} }

func (f *fakeConn) Read([]byte) (int, error) {
	<-f.closed
	return 0, io.EOF
}

func (f *fakeConn) Write(p []byte) (int, error) {
	select {
	case <-f.closed:
		return 0, net.ErrClosed
	default:
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written.Write(p)
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeConn) String() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written.String()
}

func (f *fakeConn) LocalAddr() net.Addr              { return nil }
func (f *fakeConn) RemoteAddr() net.Addr             { return nil }
func (f *fakeConn) SetDeadline(time.Time) error      { return nil }
func (f *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }

type fixture struct {
	c       *Controller
	term    *terminaltest.Terminal
	console *fakeConsole
	clock   *clock.FakeClock
	conns   map[layout.HostID]*fakeConn
}

func newFixture(t *testing.T, edit func(*config.Settings)) *fixture {
	t.Helper()
	term := terminaltest.New(layout.Rect{Width: 200, Height: 60})
	console := &fakeConsole{}
	clk := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	settings := config.Default()
	if edit != nil {
		edit(&settings)
	}
	c, err := New(Options{
		Terminal:   term,
		Tab:        term.Controller(),
		Console:    console,
		Settings:   settings,
		Socket:     "/tmp/cssh.test.sock",
		Executable: "/usr/local/bin/tmux-cssh",
		Clock:      clk,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.activate()
	return &fixture{c: c, term: term, console: console, clock: clk, conns: map[layout.HostID]*fakeConn{}}
}

// drain runs every queued event the way the event loop would.
func (f *fixture) drain() {
	for {
		select {
		case ev := <-f.c.events:
			ev()
		default:
			f.c.commit()
			return
		}
	}
}

// waitEvent blocks until a goroutine posts an event, then drains.
func (f *fixture) waitEvent(t *testing.T) {
	t.Helper()
	select {
	case ev := <-f.c.events:
		ev()
		f.c.commit()
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for an event")
	}
	f.drain()
}

func (f *fixture) connect(h *HostWindow) *fakeConn {
	conn := newFakeConn()
	f.conns[h.ID] = conn
	f.c.attach(conn, h.tty)
	return conn
}

// start starts the hosts and connects all of them.
func (f *fixture) start(t *testing.T, hosts ...string) {
	t.Helper()
	var targets []hostlist.Target
	for _, h := range hosts {
		tg, err := hostlist.ParseTarget(h)
		if err != nil {
			t.Fatalf("ParseTarget(%q): %v", h, err)
		}
		targets = append(targets, tg)
	}
	f.c.StartAll(targets)
	for _, h := range append([]*HostWindow(nil), f.c.hosts...) {
		f.connect(h)
	}
	f.drain()
	if _, ok := f.c.mode.(*broadcastMode); !ok {
		t.Fatalf("expected input mode after start, got %s", f.c.mode.modeName())
	}
}

func (f *fixture) input(s string) {
	f.c.HandleInput([]byte(s))
	f.c.commit()
}

func (f *fixture) tab(h *HostWindow) *terminaltest.Tab { return h.tab.(*terminaltest.Tab) }

func TestStartAllConnectsAndTiles(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t, "web-1", "admin@web-2:2222", "web-3")

	if len(f.c.hosts) != 3 {
		t.Fatalf("expected 3 hosts, got %d", len(f.c.hosts))
	}
	run := f.tab(f.c.hosts[1]).Runs
	if len(run) != 1 || !run[0].Clear || !run[0].Exec {
		t.Fatalf("expected one clear+exec run, got %+v", run)
	}
	for _, want := range []string{"/usr/local/bin/tmux-cssh host", "--socket /tmp/cssh.test.sock", "--hostname web-2", "--login admin", "--port 2222"} {
		if !strings.Contains(run[0].Script, want) {
			t.Fatalf("expected %q in %q", want, run[0].Script)
		}
	}

	ctl := f.term.Controller()
	if ctl.FrameValue.Height != layout.DefaultControllerHeight || ctl.FrameValue.Y != 0 {
		t.Fatalf("expected controller strip at the top, got %v", ctl.FrameValue)
	}
	for _, h := range f.c.hosts {
		tab := f.tab(h)
		if !tab.Visible || tab.FrameValue.Empty() || tab.FrameValue.Y < layout.DefaultControllerHeight {
			t.Fatalf("host %s not tiled below the controller: %+v", h, tab.FrameValue)
		}
		if got := f.conns[h.ID].String(); got != "\x00" {
			t.Fatalf("expected handshake byte, got %q", got)
		}
	}
	if f.term.Flushes == 0 {
		t.Fatalf("expected window changes to be flushed")
	}
	if !f.console.raw {
		t.Fatalf("expected raw console in input mode")
	}
	if !strings.Contains(f.console.String(), "Input to terminal:") {
		t.Fatalf("expected input prompt, got %q", f.console.String())
	}
}

func TestBroadcastAndActionKey(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t, "a", "b")

	f.input("ls\x01")
	if _, ok := f.c.mode.(*actionMode); !ok {
		t.Fatalf("expected action mode, got %s", f.c.mode.modeName())
	}
	f.input("\x01pwd")
	if _, ok := f.c.mode.(*broadcastMode); !ok {
		t.Fatalf("expected input mode, got %s", f.c.mode.modeName())
	}
	for _, h := range f.c.hosts {
		if got := f.conns[h.ID].String(); got != "\x00ls\x01pwd" {
			t.Fatalf("host %s: expected %q, got %q", h, "\x00ls\x01pwd", got)
		}
	}
}

func TestActionKeyLeavesTrailingBytes(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t, "a")

	// The action key is consumed alone; "t" belongs to the action menu.
	f.input("x\x01t")
	h := f.c.hosts[0]
	if h.enabled {
		t.Fatalf("expected toggle to disable the host")
	}
	if got := f.conns[h.ID].String(); got != "\x00x" {
		t.Fatalf("expected only bytes before the action key, got %q", got)
	}
	if tab := f.tab(h); tab.TextColor == nil || *tab.TextColor != *config.Default().DisabledForeground {
		t.Fatalf("expected disabled colors, got %v", tab.TextColor)
	}

	f.input("y")
	if got := f.conns[h.ID].String(); got != "\x00x" {
		t.Fatalf("expected disabled host to get nothing, got %q", got)
	}

	f.input("\x01n")
	if !h.enabled || f.tab(h).TextColor != nil {
		t.Fatalf("expected enable all to restore the host, enabled=%v color=%v", h.enabled, f.tab(h).TextColor)
	}
}

func TestActionModeEscapeSequences(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t, "a")
	f.input("\x01")

	f.console.Reset()
	f.input("\x1b[5~")
	if _, ok := f.c.mode.(*actionMode); !ok {
		t.Fatalf("expected unknown sequence to be swallowed, got %s", f.c.mode.modeName())
	}
	if !strings.Contains(f.console.String(), "\a") {
		t.Fatalf("expected a beep")
	}

	f.input("\x1b[")
	if len(f.c.buf) != 2 {
		t.Fatalf("expected partial sequence to be kept, got %q", f.c.buf)
	}
	f.input("A")
	if len(f.c.buf) != 0 {
		t.Fatalf("expected sequence to be consumed, got %q", f.c.buf)
	}

	f.input("\x1b")
	if _, ok := f.c.mode.(*broadcastMode); !ok {
		t.Fatalf("expected Esc to return to input mode, got %s", f.c.mode.modeName())
	}
}

func TestUnknownActionBeeps(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t, "a")
	f.input("\x01")
	f.console.Reset()
	f.input("Z")
	if _, ok := f.c.mode.(*actionMode); !ok {
		t.Fatalf("expected to stay in action mode, got %s", f.c.mode.modeName())
	}
	if f.console.String() != "\a" {
		t.Fatalf("expected a single beep, got %q", f.console.String())
	}
}

func TestStartingModeDiscardsInput(t *testing.T) {
	f := newFixture(t, nil)
	tg, err := hostlist.ParseTarget("a")
	if err != nil {
		t.Fatalf("ParseTarget: %v", err)
	}
	f.c.StartAll([]hostlist.Target{tg})
	if _, ok := f.c.mode.(*startingMode); !ok {
		t.Fatalf("expected starting mode, got %s", f.c.mode.modeName())
	}

	f.input("early\x01c")
	if len(f.c.buf) != 0 {
		t.Fatalf("expected input to be discarded, got %q", f.c.buf)
	}

	h := f.c.hosts[0]
	conn := f.connect(h)
	f.drain()
	if _, ok := f.c.mode.(*broadcastMode); !ok {
		t.Fatalf("expected input mode after start, got %s", f.c.mode.modeName())
	}
	if got := conn.String(); got != "\x00" {
		t.Fatalf("expected only the handshake byte, got %q", got)
	}
}

func TestMiniaturizeHideAndRetile(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t, "a", "b")

	f.input("\x01m")
	if _, ok := f.c.mode.(*broadcastMode); !ok {
		t.Fatalf("expected input mode, got %s", f.c.mode.modeName())
	}
	for _, h := range f.c.hosts {
		if !f.tab(h).Miniaturized {
			t.Fatalf("expected host %s miniaturized", h)
		}
	}

	f.input("\x01h")
	for _, h := range f.c.hosts {
		if f.tab(h).Visible {
			t.Fatalf("expected host %s hidden", h)
		}
	}

	f.input("\x01r")
	if _, ok := f.c.mode.(*broadcastMode); !ok {
		t.Fatalf("expected input mode, got %s", f.c.mode.modeName())
	}
	for _, h := range f.c.hosts {
		tab := f.tab(h)
		if !tab.Visible || tab.Miniaturized || tab.FrameValue.Y < layout.DefaultControllerHeight {
			t.Fatalf("expected host %s tiled again, got %+v", h, tab)
		}
	}
	for _, h := range f.c.hosts {
		if got := f.conns[h.ID].String(); got != "\x00" {
			t.Fatalf("expected actions not to reach hosts, got %q", got)
		}
	}
}

func TestEnableNext(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t, "a", "b", "c")
	h := f.c.hosts

	// Only a enabled.
	f.input("\x01e")
	f.input("o")
	if !h[0].enabled || h[1].enabled || h[2].enabled {
		t.Fatalf("expected only a enabled, got %v %v %v", h[0].enabled, h[1].enabled, h[2].enabled)
	}
	f.input("\x01")
	if !strings.Contains(f.c.prompt(), "Enable next") {
		t.Fatalf("expected enable next hint, got %q", f.c.prompt())
	}

	f.input(" ")
	if _, ok := f.c.mode.(*broadcastMode); !ok {
		t.Fatalf("expected input mode, got %s", f.c.mode.modeName())
	}
	if h[0].enabled || !h[1].enabled || h[2].enabled {
		t.Fatalf("expected only b enabled, got %v %v %v", h[0].enabled, h[1].enabled, h[2].enabled)
	}

	f.input("\x01 \x01 ")
	if !h[0].enabled || h[1].enabled || h[2].enabled {
		t.Fatalf("expected wrap back to a, got %v %v %v", h[0].enabled, h[1].enabled, h[2].enabled)
	}
}

func TestEnableNextNeedsSingleEnabledHost(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t, "a", "b", "c")
	h := f.c.hosts

	// Disable a, leaving two enabled.
	f.input("\x01e")
	f.input("d\r")
	if h[0].enabled || !h[1].enabled || !h[2].enabled {
		t.Fatalf("expected b and c enabled, got %v %v %v", h[0].enabled, h[1].enabled, h[2].enabled)
	}
	f.input("\x01")
	if strings.Contains(f.c.prompt(), "Enable next") {
		t.Fatalf("expected no enable next hint with two hosts enabled")
	}

	f.input(" ")
	if _, ok := f.c.mode.(*broadcastMode); !ok {
		t.Fatalf("expected input mode, got %s", f.c.mode.modeName())
	}
	if h[0].enabled || !h[1].enabled || !h[2].enabled {
		t.Fatalf("expected space to change nothing, got %v %v %v", h[0].enabled, h[1].enabled, h[2].enabled)
	}

	single := newFixture(t, nil)
	single.start(t, "only")
	single.input("\x01 ")
	if !single.c.hosts[0].enabled {
		t.Fatalf("expected the only host to stay enabled")
	}
}

func TestEnableModeNavigation(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) { s.Columns = 2 })
	f.start(t, "h1", "h2", "h3", "h4")
	h := f.c.hosts
	selected := *config.Default().SelectedBackground

	f.input("\x01e")
	if bg := f.tab(h[0]).BackgroundColor; bg == nil || *bg != selected {
		t.Fatalf("expected first host selected, got %v", bg)
	}

	f.input("l")
	if f.tab(h[0]).BackgroundColor != nil {
		t.Fatalf("expected previous selection cleared")
	}
	f.input("\x1b[B")
	if !h[3].selected {
		t.Fatalf("expected h4 selected after right, down")
	}

	f.input("d")
	if h[3].enabled {
		t.Fatalf("expected h4 disabled")
	}
	f.input("\x1b")
	if _, ok := f.c.mode.(*broadcastMode); !ok {
		t.Fatalf("expected input mode, got %s", f.c.mode.modeName())
	}
	if h[3].selected || f.tab(h[3]).TextColor == nil {
		t.Fatalf("expected h4 unselected with disabled colors")
	}

	f.input("\x01eO")
	for i, host := range h {
		if host.enabled != (i == 0) {
			t.Fatalf("host %d: expected only h1 enabled", i)
		}
	}
	if !f.tab(h[0]).Zoomed {
		t.Fatalf("expected h1 zoomed")
	}
}

func TestGridMode(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) { s.Columns = 2 })
	f.start(t, "h1", "h2", "h3", "h4")
	screen := f.c.layout.ControllerScreen()

	f.input("\x01g")
	f.input("l")
	if screen.Columns() != 3 {
		t.Fatalf("expected 3 columns, got %d", screen.Columns())
	}
	f.input("ll")
	if screen.Columns() != 4 {
		t.Fatalf("expected columns to stop at the host count, got %d", screen.Columns())
	}
	if !strings.Contains(f.console.String(), "\a") {
		t.Fatalf("expected a beep past the host count")
	}
	f.input("i")
	if screen.Rows() != 2 || screen.RequestedColumns() != 0 {
		t.Fatalf("expected 2 rows, got %d rows %d requested columns", screen.Rows(), screen.RequestedColumns())
	}
	f.input("r")
	if screen.RequestedRows() != 0 || screen.RequestedColumns() != 0 {
		t.Fatalf("expected reset to ratio layout")
	}
	f.input("\r")
	if _, ok := f.c.mode.(*broadcastMode); !ok {
		t.Fatalf("expected input mode, got %s", f.c.mode.modeName())
	}
}

func TestBoundsMode(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t, "h1", "h2")
	ctl := f.term.Controller()

	f.input("\x01b")
	if ctl.FrameValue != (layout.Rect{Width: 200, Height: 60}) {
		t.Fatalf("expected controller to cover the screen, got %v", ctl.FrameValue)
	}
	if ctl.BackgroundColor == nil || *ctl.BackgroundColor != *config.Default().SetboundsBackground {
		t.Fatalf("expected setbounds colors, got %v", ctl.BackgroundColor)
	}
	if f.tab(f.c.hosts[0]).Visible {
		t.Fatalf("expected hosts hidden while setting bounds")
	}

	f.input("\x1b[1;2A")
	f.input("i")
	f.input("k")
	f.input("p")
	if !strings.Contains(f.console.String(), "screen_bounds = { 0, 1, 200, 59 }") {
		t.Fatalf("expected printed bounds, got %q", f.console.String())
	}

	f.input("\r")
	rel, ok := f.c.layout.ControllerScreen().RequestedFrame()
	if !ok || rel != (layout.Rect{Y: 1, Width: 200, Height: 59}) {
		t.Fatalf("expected requested frame to be kept, got %v %v", rel, ok)
	}
	if ctl.FrameValue != (layout.Rect{Y: 1, Width: 200, Height: layout.DefaultControllerHeight}) {
		t.Fatalf("expected controller inside the new bounds, got %v", ctl.FrameValue)
	}
	if ctl.BackgroundColor == nil || *ctl.BackgroundColor != *config.Default().ControllerBackground {
		t.Fatalf("expected controller colors restored, got %v", ctl.BackgroundColor)
	}
}

func TestSortByHostname(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t, "c", "a", "b")
	f.input("\x01oh")
	var got []string
	for _, h := range f.c.hosts {
		got = append(got, h.Target.Hostname)
	}
	if strings.Join(got, ",") != "a,b,c" {
		t.Fatalf("expected sorted hosts, got %v", got)
	}
	f.input("\x01oi")
	if f.c.hosts[0].Target.Hostname != "c" {
		t.Fatalf("expected window id order, got %s first", f.c.hosts[0].Target.Hostname)
	}
}

func TestSendString(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t, "root@a:2200", "b")
	f.input("\x01sc")
	if got := f.conns[f.c.hosts[0].ID].String(); got != "\x00root@a:2200" {
		t.Fatalf("expected connection string, got %q", got)
	}
	if got := f.conns[f.c.hosts[1].ID].String(); got != "\x00b" {
		t.Fatalf("expected connection string, got %q", got)
	}
}

func TestAddHost(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t, "a")

	f.input("\x01c")
	if f.console.raw {
		t.Fatalf("expected cooked console while adding a host")
	}
	f.input("deploy@new-host")
	if _, ok := f.c.mode.(*addHostMode); !ok {
		t.Fatalf("expected to wait for a full line, got %s", f.c.mode.modeName())
	}
	f.input("\n")
	if _, ok := f.c.mode.(*broadcastMode); !ok {
		t.Fatalf("expected input mode, got %s", f.c.mode.modeName())
	}
	if len(f.c.hosts) != 2 || f.c.hosts[1].Target.User != "deploy" {
		t.Fatalf("expected new host, got %v", f.c.hosts)
	}

	f.input("\x01cignored\x1b")
	if len(f.c.hosts) != 2 {
		t.Fatalf("expected Esc to cancel, got %d hosts", len(f.c.hosts))
	}
}

func TestStartTimeout(t *testing.T) {
	f := newFixture(t, nil)
	targets := []hostlist.Target{{Hostname: "fast"}, {Hostname: "slow"}}
	f.c.StartAll(targets)
	fast, slow := f.c.hosts[0], f.c.hosts[1]
	f.connect(fast)

	f.clock.Advance(DefaultStartTimeout)
	f.drain()

	if len(f.c.hosts) != 1 || f.c.hosts[0] != fast {
		t.Fatalf("expected slow host to be dropped, got %v", f.c.hosts)
	}
	if f.tab(slow).Visible {
		t.Fatalf("expected timed out window to be hidden")
	}
	if _, ok := f.c.mode.(*broadcastMode); !ok {
		t.Fatalf("expected input mode once every start resolved, got %s", f.c.mode.modeName())
	}
}

func TestStartFailureReported(t *testing.T) {
	f := newFixture(t, nil)
	f.term.OpenErr = terminal.ErrUnavailable
	var got error
	f.c.Add(hostlist.Target{Hostname: "x"}, func(err error) { got = err })
	if !errors.Is(got, terminal.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", got)
	}
}

func TestAttachUnknownTTY(t *testing.T) {
	f := newFixture(t, nil)
	f.c.StartAll([]hostlist.Target{{Hostname: "a"}})
	conn := newFakeConn()
	f.c.attach(conn, terminal.Device{Major: 4, Minor: 99})
	if !conn.isClosed() {
		t.Fatalf("expected connection from unknown tty to be closed")
	}
	if f.c.hosts[0].Connected() {
		t.Fatalf("expected host to stay unconnected")
	}
}

func TestLastHostDisconnectCloses(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t, "a", "b")
	a, b := f.c.hosts[0], f.c.hosts[1]

	_ = f.conns[a.ID].Close()
	f.waitEvent(t)
	if len(f.c.hosts) != 1 || f.c.hosts[0] != b {
		t.Fatalf("expected a to be removed, got %v", f.c.hosts)
	}

	_ = f.conns[b.ID].Close()
	f.waitEvent(t)
	select {
	case <-f.c.Done():
	default:
		t.Fatalf("expected controller to close with its last host")
	}
	if f.console.raw {
		t.Fatalf("expected console restored on close")
	}
}

func TestExitAction(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t, "a")
	conn := f.conns[f.c.hosts[0].ID]
	f.input("\x01x")
	if !f.c.closed || !conn.isClosed() {
		t.Fatalf("expected exit to close the controller and its hosts")
	}
}

func TestHostCommand(t *testing.T) {
	f := newFixture(t, func(s *config.Settings) {
		s.Login = "ops"
		s.SSHArgs = "-o StrictHostKeyChecking=no"
		s.RemoteCommand = "uptime"
		s.Debug = true
	})
	got := strings.Join(f.c.hostCommand(hostlist.Target{Hostname: "db", Port: 22}), "|")
	want := "/usr/local/bin/tmux-cssh|host|--ssh|ssh|--socket|/tmp/cssh.test.sock|--hostname|db|--login|ops|--port|22|--ssh-args|-o StrictHostKeyChecking=no|--remote-command|uptime|--debug"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	got = strings.Join(f.c.hostCommand(hostlist.Target{User: "me", Hostname: "db", Command: "top"}), "|")
	if !strings.Contains(got, "--login|me") || !strings.Contains(got, "--remote-command|top") {
		t.Fatalf("expected target user and command to win, got %s", got)
	}
}

func TestListenTwice(t *testing.T) {
	dir, err := os.MkdirTemp("", "cssh")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	f := newFixture(t, nil)
	f.c.socket = filepath.Join(dir, "s.sock")
	if err := os.WriteFile(f.c.socket, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := f.c.Listen(); err != nil {
		t.Fatalf("expected stale socket to be replaced, got %v", err)
	}
	defer f.c.Close()
	if err := f.c.Listen(); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	st, err := os.Stat(f.c.socket)
	if err != nil {
		t.Fatal(err)
	}
	if st.Mode().Perm() != 0o700 {
		t.Fatalf("expected socket mode 0700, got %v", st.Mode().Perm())
	}
}
