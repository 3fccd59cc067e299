package layout

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
)

// ErrNoScreen is returned when a layout pass has no usable screen.
var ErrNoScreen = errors.New("no usable screen")

// DefaultControllerHeight is the strip kept for the controller, in cells.
const DefaultControllerHeight = 6

// Window is the part of a terminal window the layout engine drives.
type Window interface {
	Frame() Rect
	SetFrame(Rect)
	SetVisible(bool)
	SetMiniaturized(bool)
	SetZoomed(bool)
	SetFrontmost()
}

// Placement pairs a host with its window for a layout pass.
type Placement struct {
	ID     HostID
	Window Window
}

// Config seeds every screen with the user's layout preferences.
type Config struct {
	Rows             int
	Columns          int // wins over Rows when both are set
	ControllerHeight float64

	// Bounds, when set, is the relative tiling frame of the first screen.
	Bounds *Rect
}

// Manager owns the screens and distributes hosts across them.
type Manager struct {
	cfg              Config
	screens          []*Screen
	controllerScreen *Screen
	windowRatio      float64
	logger           *slog.Logger
}

// NewManager creates a Manager over the given display frames, in order.
func NewManager(frames []Rect, cfg Config, logger *slog.Logger) *Manager {
	if cfg.ControllerHeight <= 0 {
		cfg.ControllerHeight = DefaultControllerHeight
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := &Manager{cfg: cfg, logger: logger}
	m.UpdateScreens(frames)
	return m
}

// UpdateScreens refreshes the display frames. Screens keep their overrides
// by position; new positions start from the configured defaults.
func (m *Manager) UpdateScreens(frames []Rect) {
	next := make([]*Screen, 0, len(frames))
	for i, f := range frames {
		if i < len(m.screens) {
			s := m.screens[i]
			s.VisibleFrame = f
			next = append(next, s)
			continue
		}
		s := NewScreen(screenName(i), f)
		if m.cfg.Rows > 0 {
			s.SetRows(m.cfg.Rows)
		}
		if m.cfg.Columns > 0 {
			s.SetColumns(m.cfg.Columns)
		}
		if i == 0 && m.cfg.Bounds != nil {
			s.SetRequestedFrame(*m.cfg.Bounds, true)
		}
		next = append(next, s)
	}
	m.screens = next
	if m.controllerScreen != nil && !m.hasScreen(m.controllerScreen) {
		m.controllerScreen = nil
	}
}

func screenName(i int) string { return fmt.Sprintf("screen-%d", i) }

func (m *Manager) hasScreen(s *Screen) bool {
	for _, v := range m.screens {
		if v == s {
			return true
		}
	}
	return false
}

// Screens returns all known screens.
func (m *Manager) Screens() []*Screen { return m.screens }

// ControllerScreen returns the screen holding the controller after the last
// pass, or nil before the first one.
func (m *Manager) ControllerScreen() *Screen { return m.controllerScreen }

// ControllerHeight returns the height of the controller strip.
func (m *Manager) ControllerHeight() float64 { return m.cfg.ControllerHeight }

// ScreenOf returns the screen the host is tiled on.
func (m *Manager) ScreenOf(id HostID) *Screen {
	for _, s := range m.screens {
		if s.Contains(id) {
			return s
		}
	}
	return nil
}

// SetDefaultWindowRatio records the width/height ratio of a freshly opened
// window. Only the first non-empty frame is kept.
func (m *Manager) SetDefaultWindowRatio(frame Rect) {
	if m.windowRatio > 0 || frame.Empty() {
		return
	}
	m.windowRatio = frame.Width / frame.Height
	m.logger.Debug("window ratio", "ratio", m.windowRatio)
}

// WindowRatio returns the cached window ratio, 0 if none was recorded.
func (m *Manager) WindowRatio() float64 { return m.windowRatio }

// screenFor returns the screen with the largest overlap with frame, falling
// back to the first screen.
func (m *Manager) screenFor(frame Rect) *Screen {
	var best *Screen
	bestScore := 0.0
	for _, s := range m.screens {
		if score := s.VisibleFrame.Intersect(frame).Area(); score > bestScore {
			bestScore = score
			best = s
		}
	}
	if best == nil && len(m.screens) > 0 {
		best = m.screens[0]
	}
	return best
}

// Layout snaps the controller to the top strip of its screen, spreads hosts
// over the active screens in proportion to their area and tiles each one.
func (m *Manager) Layout(controller Window, hosts []Placement) error {
	for _, s := range m.screens {
		s.active = true
	}
	if len(m.screens) == 0 {
		return ErrNoScreen
	}

	if controller != nil {
		controller.SetMiniaturized(false)
		if s := m.screenFor(controller.Frame()); s != nil {
			m.controllerScreen = s
			s.updateFrame(m.cfg.ControllerHeight)
			controller.SetFrame(Rect{X: s.frame.X, Y: s.frame.Y, Width: s.frame.Width, Height: m.cfg.ControllerHeight})
		}
	}

	if len(hosts) == 0 {
		for _, s := range m.screens {
			s.setHosts(nil, 0)
		}
		return nil
	}

	for _, s := range m.screens {
		if s != m.controllerScreen {
			s.updateFrame(0)
		}
	}

	totalArea := 0.0
	for _, s := range m.screens {
		totalArea += s.area()
	}
	if totalArea <= 0 {
		return ErrNoScreen
	}

	ids := make([]HostID, len(hosts))
	windows := make(map[HostID]Window, len(hosts))
	for i, h := range hosts {
		ids[i] = h.ID
		windows[h.ID] = h.Window
	}

	dispatched := 0
	for _, s := range m.screens {
		if dispatched >= len(ids) || totalArea <= 0 {
			s.setHosts(nil, 1)
			s.active = false
			continue
		}
		area := s.area()
		count := int(ceilDiv(float64(len(ids)-dispatched)*area, totalArea))
		count = min(count, len(ids)-dispatched)
		if count <= 0 {
			s.setHosts(nil, 1)
			s.active = false
			continue
		}
		s.setHosts(ids[dispatched:dispatched+count], m.windowRatio)
		totalArea -= area
		dispatched += count
	}

	for _, s := range m.screens {
		if s.active {
			s.place(windows)
		}
	}
	m.logger.Debug("layout", "hosts", len(ids), "screens", len(m.screens))
	return nil
}

// ceilDiv rounds a/b up, ignoring float noise below 1e-9.
func ceilDiv(a, b float64) float64 {
	return math.Ceil(a/b - 1e-9)
}
