package controller

import (
	"errors"
	"testing"

	"tmux-cssh/pkg/terminal"
)

func TestStatTTY(t *testing.T) {
	// tty_nr 34817 is /dev/pts/1 (major 136, minor 1).
	stat := "4242 (ssh (odd) name) S 1 4242 4242 34817 4242 4194560 100 0 0 0"
	got, err := statTTY(stat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (terminal.Device{Major: 136, Minor: 1}) {
		t.Fatalf("expected 136:1, got %s", got)
	}

	if _, err := statTTY("1 (init) S 0 1 1 0 -1"); !errors.Is(err, errNoTTY) {
		t.Fatalf("expected errNoTTY, got %v", err)
	}
	if _, err := statTTY("garbage"); err == nil {
		t.Fatalf("expected error for malformed stat")
	}
}
