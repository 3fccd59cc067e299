//go:build !windows

package ttyio

import (
	"os"
	"testing"
	"time"
)

func TestFlushInputDrainsLateBytes(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	go func() {
		time.Sleep(30 * time.Millisecond)
		_, _ = w.Write([]byte("\x1b[12;40R"))
	}()
	FlushInput(int(r.Fd()))

	if _, err := w.Write([]byte("x")); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 64)
	n, err := r.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if string(buf[:n]) != "x" {
		t.Fatalf("expected late reply to be drained, got %q", buf[:n])
	}
}
