package terminal

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"testing"

	"tmux-cssh/pkg/layout"
)

func TestQuote(t *testing.T) {
	cases := map[string]string{
		"":                 "''",
		"plain-arg.sock":   "plain-arg.sock",
		"user@host:22":     "user@host:22",
		"two words":        "'two words'",
		"/tmp/foo'bar":     `'/tmp/foo'"'"'bar'`,
		"$HOME":            "'$HOME'",
		"--extra=a,b/c%+d": "--extra=a,b/c%+d",
	}
	for in, want := range cases {
		if got := Quote(in); got != want {
			t.Fatalf("Quote(%q): expected %q, got %q", in, want, got)
		}
	}
	if got := QuoteArgs([]string{"tmux-cssh", "host", "--hostname", "a b"}); got != "tmux-cssh host --hostname 'a b'" {
		t.Fatalf("unexpected QuoteArgs result %q", got)
	}
}

func TestCommandLineHidesFromHistory(t *testing.T) {
	if got := CommandLine("/bin/bash", "ssh h", true, true); got != "history -d $(($HISTCMD-1)) && clear && exec ssh h" {
		t.Fatalf("unexpected bash line %q", got)
	}
	if got := CommandLine("-zsh", "ssh h", false, false); got != " ssh h" {
		t.Fatalf("unexpected zsh line %q", got)
	}
}

func TestColorHex(t *testing.T) {
	c := Color{R: 38036, G: 0, B: 65535}
	if c.Hex() != "#9400ff" {
		t.Fatalf("unexpected hex %q", c.Hex())
	}
	if RGB8(0x12, 0x34, 0x56).Hex() != "#123456" {
		t.Fatalf("expected RGB8 to round trip through Hex, got %q", RGB8(0x12, 0x34, 0x56).Hex())
	}
}

func TestLayoutChecksum(t *testing.T) {
	if got := layoutChecksum("a"); got != 0x0061 {
		t.Fatalf("expected 0x0061, got %#04x", got)
	}
	if got := layoutChecksum("ab"); got != 0x8092 {
		t.Fatalf("expected 0x8092, got %#04x", got)
	}
}

func TestBuildTmuxLayout(t *testing.T) {
	cells := []LayoutCell{
		{PaneID: 2, Frame: layout.Rect{X: 40, Y: 6, Width: 40, Height: 18}},
		{PaneID: 0, Frame: layout.Rect{X: 0, Y: 0, Width: 80, Height: 6}},
		{PaneID: 1, Frame: layout.Rect{X: 0, Y: 6, Width: 40, Height: 18}},
	}
	spec, order, err := BuildTmuxLayout(80, 24, cells)
	if err != nil {
		t.Fatalf("BuildTmuxLayout: %v", err)
	}
	body := "80x24,0,0[80x6,0,0,0,80x17,0,7{40x17,0,7,1,39x17,41,7,2}]"
	want := fmt.Sprintf("%04x,%s", layoutChecksum(body), body)
	if spec != want {
		t.Fatalf("expected %q, got %q", want, spec)
	}
	if fmt.Sprint(order) != "[0 1 2]" {
		t.Fatalf("expected pane order [0 1 2], got %v", order)
	}

	spec, _, err = BuildTmuxLayout(80, 24, []LayoutCell{{PaneID: 7, Frame: layout.Rect{Width: 80, Height: 24}}})
	if err != nil || !strings.HasSuffix(spec, ",80x24,0,0,7") {
		t.Fatalf("expected a single leaf, got %q (%v)", spec, err)
	}

	if _, _, err := BuildTmuxLayout(3, 24, []LayoutCell{
		{PaneID: 1, Frame: layout.Rect{X: 0, Width: 1, Height: 1}},
		{PaneID: 2, Frame: layout.Rect{X: 1, Width: 1, Height: 1}},
		{PaneID: 3, Frame: layout.Rect{X: 2, Width: 1, Height: 1}},
	}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable for a window too small, got %v", err)
	}
}

// fakeTmux models the few tmux commands the backend issues.
type fakeTmux struct {
	calls   []string
	windows map[string][]int
	nextID  int
	nextWin int
}

func newFakeTmux() *fakeTmux {
	return &fakeTmux{windows: map[string][]int{"@0": {0}}, nextID: 1, nextWin: 1}
}

func flagValue(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}

func (f *fakeTmux) remove(id int) {
	for w, panes := range f.windows {
		for i, p := range panes {
			if p == id {
				f.windows[w] = append(panes[:i:i], panes[i+1:]...)
				if len(f.windows[w]) == 0 {
					delete(f.windows, w)
				}
				return
			}
		}
	}
}

func (f *fakeTmux) Run(args ...string) (string, error) {
	f.calls = append(f.calls, strings.Join(args, " "))
	switch args[0] {
	case "display-message":
		format := args[len(args)-1]
		switch {
		case strings.Contains(format, "#{session_id}"):
			return "$0\t@0\t%0\t0\t0\t80\t24", nil
		case strings.Contains(format, "#{window_width}"):
			return "80\t24", nil
		}
	case "new-window":
		id := f.nextID
		f.nextID++
		f.windows["@"+strconv.Itoa(f.nextWin)] = []int{id}
		f.nextWin++
		return fmt.Sprintf("%%%d\t80\t24", id), nil
	case "list-panes":
		var lines []string
		if flagValue(args, "-t") == "@0" {
			for _, id := range f.windows["@0"] {
				lines = append(lines, paneTarget(id))
			}
			return strings.Join(lines, "\n"), nil
		}
		var wins []string
		for w := range f.windows {
			wins = append(wins, w)
		}
		sort.Strings(wins)
		for _, w := range wins {
			for _, id := range f.windows[w] {
				lines = append(lines, paneTarget(id)+"\t"+w)
			}
		}
		return strings.Join(lines, "\n"), nil
	case "join-pane":
		id, _ := parsePaneID(flagValue(args, "-s"))
		f.remove(id)
		f.windows["@0"] = append(f.windows["@0"], id)
	case "break-pane":
		id, _ := parsePaneID(flagValue(args, "-s"))
		f.remove(id)
		f.windows["@"+strconv.Itoa(f.nextWin)] = []int{id}
		f.nextWin++
	case "swap-pane":
		a, _ := parsePaneID(flagValue(args, "-s"))
		b, _ := parsePaneID(flagValue(args, "-t"))
		panes := f.windows["@0"]
		for i := range panes {
			switch panes[i] {
			case a:
				panes[i] = b
			case b:
				panes[i] = a
			}
		}
	}
	return "", nil
}

func (f *fakeTmux) called(prefix string) bool {
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (f *fakeTmux) last(prefix string) string {
	for i := len(f.calls) - 1; i >= 0; i-- {
		if strings.HasPrefix(f.calls[i], prefix) {
			return f.calls[i]
		}
	}
	return ""
}

func TestTmuxFlushJoinsOrdersAndParks(t *testing.T) {
	fake := newFakeTmux()
	term, err := NewTmux(fake, "%0", nil)
	if err != nil {
		t.Fatalf("NewTmux: %v", err)
	}
	ctrl := term.Controller()
	if ctrl.ID() != 0 || ctrl.Frame() != (layout.Rect{Width: 80, Height: 24}) {
		t.Fatalf("unexpected controller pane %d %+v", ctrl.ID(), ctrl.Frame())
	}

	a, err := term.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b, err := term.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if a.ID() != 1 || b.ID() != 2 {
		t.Fatalf("expected pane ids 1 and 2, got %d and %d", a.ID(), b.ID())
	}
	if got, err := term.Lookup("%2"); err != nil || got != b {
		t.Fatalf("expected Lookup to find pane 2, got %v (%v)", got, err)
	}

	ctrl.SetFrame(layout.Rect{Width: 80, Height: 6})
	a.SetFrame(layout.Rect{X: 40, Y: 6, Width: 40, Height: 18})
	b.SetFrame(layout.Rect{X: 0, Y: 6, Width: 40, Height: 18})
	ctrl.SetFrontmost()
	if err := term.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if !fake.called("join-pane -d -s %1 -t %0") || !fake.called("join-pane -d -s %2 -t %0") {
		t.Fatalf("expected both panes to be joined, calls: %v", fake.calls)
	}
	if !fake.called("swap-pane -d -s %2 -t %1") {
		t.Fatalf("expected panes to be reordered, calls: %v", fake.calls)
	}
	body := "80x24,0,0[80x6,0,0,0,80x17,0,7{40x17,0,7,2,39x17,41,7,1}]"
	want := fmt.Sprintf("select-layout -t @0 %04x,%s", layoutChecksum(body), body)
	if got := fake.last("select-layout"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got := fake.last("select-pane"); got != "select-pane -t %0" {
		t.Fatalf("expected controller to be focused, got %q", got)
	}

	a.SetVisible(false)
	fake.calls = nil
	if err := term.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if !fake.called("break-pane -d -s %1") {
		t.Fatalf("expected hidden pane to be parked, calls: %v", fake.calls)
	}
	if fake.called("select-pane") {
		t.Fatalf("expected focus to stay unchanged")
	}
	body = "80x24,0,0[80x6,0,0,0,80x17,0,7,2]"
	if got := fake.last("select-layout"); got != fmt.Sprintf("select-layout -t @0 %04x,%s", layoutChecksum(body), body) {
		t.Fatalf("unexpected layout after hiding: %q", got)
	}
}

func TestTmuxZoomShowsSinglePane(t *testing.T) {
	fake := newFakeTmux()
	term, err := NewTmux(fake, "%0", nil)
	if err != nil {
		t.Fatalf("NewTmux: %v", err)
	}
	a, _ := term.Open()
	b, _ := term.Open()
	term.Controller().SetFrame(layout.Rect{Width: 80, Height: 6})
	a.SetFrame(layout.Rect{Y: 6, Width: 80, Height: 18})
	b.SetFrame(layout.Rect{Y: 6, Width: 80, Height: 18})
	b.SetZoomed(true)
	if err := term.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if fake.called("join-pane -d -s %1") {
		t.Fatalf("expected the non zoomed pane to stay parked")
	}
	body := "80x24,0,0[80x6,0,0,0,80x17,0,7,2]"
	if got := fake.last("select-layout"); got != fmt.Sprintf("select-layout -t @0 %04x,%s", layoutChecksum(body), body) {
		t.Fatalf("unexpected zoomed layout: %q", got)
	}
}

func TestTmuxColorsAndRun(t *testing.T) {
	fake := newFakeTmux()
	term, err := NewTmux(fake, "%0", nil)
	if err != nil {
		t.Fatalf("NewTmux: %v", err)
	}
	term.shell = "zsh"
	a, _ := term.Open()

	red := Color{R: 0xffff}
	if err := a.SetBackgroundColor(&red); err != nil {
		t.Fatalf("SetBackgroundColor: %v", err)
	}
	if got := fake.last("select-pane"); got != "select-pane -t %1 -P fg=default,bg=#ff0000" {
		t.Fatalf("unexpected style call %q", got)
	}
	if err := a.SetBackgroundColor(nil); err != nil {
		t.Fatalf("SetBackgroundColor(nil): %v", err)
	}
	if got := fake.last("select-pane"); got != "select-pane -t %1 -P fg=default,bg=default" {
		t.Fatalf("expected color reset, got %q", got)
	}

	if err := a.Run("ssh host", true, false); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !fake.called("send-keys -t %1 -l  clear && ssh host") || fake.last("send-keys") != "send-keys -t %1 Enter" {
		t.Fatalf("unexpected send-keys calls: %v", fake.calls)
	}
}
