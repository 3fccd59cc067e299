// Package terminaltest provides an in-memory terminal.Terminal that records
// every window operation.
package terminaltest

import (
	"fmt"
	"strconv"
	"strings"

	"tmux-cssh/pkg/layout"
	"tmux-cssh/pkg/terminal"
)

// Terminal is a fake window backend. Tab 0 is the controller.
type Terminal struct {
	Screen  layout.Rect
	Flushes int

	// OpenErr, when set, is returned by Open.
	OpenErr error

	// OpenFrame is the frame given to newly opened tabs.
	OpenFrame layout.Rect

	tabs []*Tab
}

// New returns a fake terminal with one screen and a controller tab
// covering it.
func New(screen layout.Rect) *Terminal {
	t := &Terminal{Screen: screen, OpenFrame: layout.Rect{Width: 80, Height: 24}}
	t.tabs = append(t.tabs, &Tab{id: 0, Visible: true, FrameValue: screen, Device: terminal.Device{Major: 136, Minor: 0}})
	return t
}

// Controller returns the controller tab.
func (t *Terminal) Controller() *Tab { return t.tabs[0] }

// Tabs returns every tab opened so far, the controller first.
func (t *Terminal) Tabs() []*Tab { return t.tabs }

// Tab returns the tab with the given id, or nil.
func (t *Terminal) Tab(id int) *Tab {
	for _, tab := range t.tabs {
		if tab.id == id {
			return tab
		}
	}
	return nil
}

func (t *Terminal) Open() (terminal.Tab, error) {
	if t.OpenErr != nil {
		return nil, t.OpenErr
	}
	id := len(t.tabs)
	tab := &Tab{
		id:         id,
		FrameValue: t.OpenFrame,
		Visible:    true,
		Device:     terminal.Device{Major: 136, Minor: uint32(id)},
	}
	t.tabs = append(t.tabs, tab)
	return tab, nil
}

func (t *Terminal) Lookup(id string) (terminal.Tab, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(id, "%"))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", terminal.ErrUnavailable, id)
	}
	if tab := t.Tab(n); tab != nil {
		return tab, nil
	}
	return nil, fmt.Errorf("%w: no tab %q", terminal.ErrUnavailable, id)
}

func (t *Terminal) Screens() ([]layout.Rect, error) {
	if t.Screen.Empty() {
		return nil, nil
	}
	return []layout.Rect{t.Screen}, nil
}

func (t *Terminal) Flush() error {
	t.Flushes++
	return nil
}

// RunCall is one recorded Tab.Run.
type RunCall struct {
	Script      string
	Clear, Exec bool
}

// Tab is a fake window.
type Tab struct {
	id int

	FrameValue     layout.Rect
	Visible        bool
	Miniaturized   bool
	Zoomed         bool
	FrontmostCalls int

	TextColor       *terminal.Color
	BackgroundColor *terminal.Color

	Device terminal.Device
	Runs   []RunCall
	Closed bool

	// RunErr and TTYErr, when set, are returned by Run and TTY.
	RunErr error
	TTYErr error
}

func (t *Tab) ID() int { return t.id }

func (t *Tab) TTY() (terminal.Device, error) {
	if t.TTYErr != nil {
		return terminal.Device{}, t.TTYErr
	}
	return t.Device, nil
}

func (t *Tab) Run(script string, clear, exec bool) error {
	if t.RunErr != nil {
		return t.RunErr
	}
	t.Runs = append(t.Runs, RunCall{Script: script, Clear: clear, Exec: exec})
	return nil
}

func (t *Tab) Frame() layout.Rect       { return t.FrameValue }
func (t *Tab) SetFrame(r layout.Rect)   { t.FrameValue = r }
func (t *Tab) SetOrigin(p layout.Point) { t.FrameValue.X, t.FrameValue.Y = p.X, p.Y }
func (t *Tab) SetVisible(v bool)        { t.Visible = v }
func (t *Tab) SetMiniaturized(v bool)   { t.Miniaturized = v }
func (t *Tab) SetZoomed(v bool)         { t.Zoomed = v }
func (t *Tab) SetFrontmost()            { t.FrontmostCalls++ }
func (t *Tab) SetTextColor(c *terminal.Color) error {
	t.TextColor = copyColor(c)
	return nil
}

func (t *Tab) SetBackgroundColor(c *terminal.Color) error {
	t.BackgroundColor = copyColor(c)
	return nil
}

func (t *Tab) Close() error {
	t.Closed = true
	return nil
}

func copyColor(c *terminal.Color) *terminal.Color {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}
