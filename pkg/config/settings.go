// Package config holds tmux-cssh settings and the loaders for csshrc
// ("key = value") files and the YAML configuration.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tmux-cssh/pkg/layout"
	"tmux-cssh/pkg/terminal"
)

// ErrInvalidValue is returned when a setting value cannot be parsed.
var ErrInvalidValue = errors.New("invalid value")

// ErrUnknownKey is returned by Settings.Set for keys it does not know.
var ErrUnknownKey = errors.New("unknown key")

// Settings are the effective options of a session.
type Settings struct {
	// ActionKey switches the controller from broadcast to command mode.
	ActionKey byte

	SelectedForeground, SelectedBackground     *terminal.Color
	DisabledForeground, DisabledBackground     *terminal.Color
	ControllerForeground, ControllerBackground *terminal.Color
	SetboundsForeground, SetboundsBackground   *terminal.Color

	// ControllerHeight is the height, in cells, of the strip kept for the
	// controller at the top of its screen.
	ControllerHeight int

	// ScreenBounds restricts tiling on the controller's screen.
	ScreenBounds *layout.Rect

	Rows, Columns int

	SSH           string
	SSHArgs       string
	RemoteCommand string
	Login         string

	Debug      bool
	SessionMax int
	Socket     string
	Interleave int
	SortHosts  bool
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		ActionKey:            0x01,
		SelectedBackground:   &terminal.Color{R: 17990, G: 35209, B: 53456},
		DisabledForeground:   &terminal.Color{R: 37779, G: 37779, B: 37779},
		ControllerForeground: &terminal.Color{R: 65535, G: 65535, B: 65535},
		ControllerBackground: &terminal.Color{R: 38036, G: 0, B: 0},
		SetboundsBackground:  &terminal.Color{R: 17990, G: 35209, B: 53456},
		ControllerHeight:     layout.DefaultControllerHeight,
		SSH:                  "ssh",
		SessionMax:           256,
	}
}

// aliases maps csshX key names onto the canonical ones.
var aliases = map[string]string{
	"master_height":           "controller_height",
	"tile_x":                  "columns",
	"tile_y":                  "rows",
	"sock":                    "socket",
	"sort_hosts":              "sorthosts",
	"color_master_foreground": "color_controller_foreground",
	"color_master_background": "color_controller_background",
}

// ignoredKeys are csshX settings with no meaning under tmux.
var ignoredKeys = map[string]struct{}{
	"screen":              {},
	"space":               {},
	"ping_test":           {},
	"ping_timeout":        {},
	"launchpid":           {},
	"slavehost":           {},
	"slaveid":             {},
	"master_settings_set": {},
	"slave_settings_set":  {},
}

type setter func(s *Settings, value string) error

var setters = map[string]setter{
	"action_key": func(s *Settings, v string) (err error) {
		s.ActionKey, err = ParseActionKey(v)
		return err
	},
	"controller_height": intSetter(func(s *Settings) *int { return &s.ControllerHeight }, 1),
	"rows":              intSetter(func(s *Settings) *int { return &s.Rows }, 0),
	"columns":           intSetter(func(s *Settings) *int { return &s.Columns }, 0),
	"session_max":       intSetter(func(s *Settings) *int { return &s.SessionMax }, 1),
	"interleave":        intSetter(func(s *Settings) *int { return &s.Interleave }, 0),
	"screen_bounds": func(s *Settings, v string) error {
		r, err := ParseBounds(v)
		if err != nil {
			return err
		}
		s.ScreenBounds = &r
		return nil
	},
	"ssh":            stringSetter(func(s *Settings) *string { return &s.SSH }),
	"ssh_args":       stringSetter(func(s *Settings) *string { return &s.SSHArgs }),
	"remote_command": stringSetter(func(s *Settings) *string { return &s.RemoteCommand }),
	"login":          stringSetter(func(s *Settings) *string { return &s.Login }),
	"socket":         stringSetter(func(s *Settings) *string { return &s.Socket }),
	"debug":          boolSetter(func(s *Settings) *bool { return &s.Debug }),
	"sorthosts":      boolSetter(func(s *Settings) *bool { return &s.SortHosts }),

	"color_selected_foreground":   colorSetter(func(s *Settings) **terminal.Color { return &s.SelectedForeground }),
	"color_selected_background":   colorSetter(func(s *Settings) **terminal.Color { return &s.SelectedBackground }),
	"color_disabled_foreground":   colorSetter(func(s *Settings) **terminal.Color { return &s.DisabledForeground }),
	"color_disabled_background":   colorSetter(func(s *Settings) **terminal.Color { return &s.DisabledBackground }),
	"color_controller_foreground": colorSetter(func(s *Settings) **terminal.Color { return &s.ControllerForeground }),
	"color_controller_background": colorSetter(func(s *Settings) **terminal.Color { return &s.ControllerBackground }),
	"color_setbounds_foreground":  colorSetter(func(s *Settings) **terminal.Color { return &s.SetboundsForeground }),
	"color_setbounds_background":  colorSetter(func(s *Settings) **terminal.Color { return &s.SetboundsBackground }),
}

// CanonicalKey lowercases key and resolves csshX aliases.
func CanonicalKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if c, ok := aliases[key]; ok {
		return c
	}
	return key
}

// KnownKey reports whether key is a setting, including ignored csshX keys.
func KnownKey(key string) bool {
	key = CanonicalKey(key)
	_, ok := setters[key]
	_, ignored := ignoredKeys[key]
	return ok || ignored
}

// Set assigns one setting by name. Ignored csshX keys are accepted and
// dropped.
func (s *Settings) Set(key, value string) error {
	key = CanonicalKey(key)
	if _, ok := ignoredKeys[key]; ok {
		return nil
	}
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownKey, key)
	}
	if err := set(s, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func intSetter(field func(*Settings) *int, min int) setter {
	return func(s *Settings, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < min {
			return fmt.Errorf("%w: %q (expected an integer >= %d)", ErrInvalidValue, v, min)
		}
		*field(s) = n
		return nil
	}
}

func stringSetter(field func(*Settings) *string) setter {
	return func(s *Settings, v string) error {
		*field(s) = v
		return nil
	}
}

func boolSetter(field func(*Settings) *bool) setter {
	return func(s *Settings, v string) error {
		b, err := parseBool(v)
		if err != nil {
			return err
		}
		*field(s) = b
		return nil
	}
}

func colorSetter(field func(*Settings) **terminal.Color) setter {
	return func(s *Settings, v string) error {
		if v == "" || strings.EqualFold(v, "default") {
			*field(s) = nil
			return nil
		}
		c, err := ParseColor(v)
		if err != nil {
			return err
		}
		*field(s) = &c
		return nil
	}
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on", "enabled", "enable":
		return true, nil
	case "0", "false", "no", "n", "off", "disabled", "disable", "":
		return false, nil
	}
	// csshX debug levels are integers.
	if n, err := strconv.Atoi(s); err == nil {
		return n > 0, nil
	}
	return false, fmt.Errorf("%w: %q (expected a boolean)", ErrInvalidValue, s)
}

// ParseActionKey accepts an octal escape ("\001"), caret notation ("^A")
// or a single character.
func ParseActionKey(s string) (byte, error) {
	switch {
	case len(s) > 1 && s[0] == '\\':
		n, err := strconv.ParseUint(s[1:], 8, 8)
		if err != nil {
			return 0, fmt.Errorf("%w: action key %q", ErrInvalidValue, s)
		}
		return byte(n), nil
	case len(s) == 2 && s[0] == '^':
		c := s[1]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c < '@' || c > '_' {
			return 0, fmt.Errorf("%w: action key %q", ErrInvalidValue, s)
		}
		return c - '@', nil
	case len(s) == 1:
		return s[0], nil
	}
	return 0, fmt.Errorf("%w: action key %q", ErrInvalidValue, s)
}

// ParseColor accepts "{r,g,b}" with 16-bit components or "#rrggbb".
func ParseColor(s string) (terminal.Color, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		parts, err := braceList(s, 3)
		if err != nil {
			return terminal.Color{}, err
		}
		var rgb [3]uint16
		for i, p := range parts {
			n, err := strconv.ParseUint(p, 10, 16)
			if err != nil {
				return terminal.Color{}, fmt.Errorf("%w: color %q", ErrInvalidValue, s)
			}
			rgb[i] = uint16(n)
		}
		return terminal.Color{R: rgb[0], G: rgb[1], B: rgb[2]}, nil
	}

	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return terminal.Color{}, fmt.Errorf("%w: color %q", ErrInvalidValue, s)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return terminal.Color{}, fmt.Errorf("%w: color %q", ErrInvalidValue, s)
	}
	return terminal.RGB8(uint8(n>>16), uint8(n>>8), uint8(n)), nil
}

// ParseBounds parses "{x, y, w, h}".
func ParseBounds(s string) (layout.Rect, error) {
	parts, err := braceList(s, 4)
	if err != nil {
		return layout.Rect{}, err
	}
	var v [4]float64
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || (i >= 2 && n <= 0) {
			return layout.Rect{}, fmt.Errorf("%w: bounds %q", ErrInvalidValue, s)
		}
		v[i] = float64(n)
	}
	return layout.Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

// FormatBounds renders r the way ParseBounds reads it.
func FormatBounds(r layout.Rect) string { return r.String() }

func braceList(s string, n int) ([]string, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("%w: %q (expected {%s})", ErrInvalidValue, s, strings.TrimSuffix(strings.Repeat("n,", n), ","))
	}
	parts := strings.Split(s[1:len(s)-1], ",")
	if len(parts) != n {
		return nil, fmt.Errorf("%w: %q (expected %d values)", ErrInvalidValue, s, n)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, nil
}
