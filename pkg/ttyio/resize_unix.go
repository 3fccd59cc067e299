//go:build !windows

package ttyio

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/creack/pty"
	"golang.org/x/term"
)

// SyncSize copies the size of the terminal on fd to the pty. It does
// nothing if fd is not a terminal.
func SyncSize(ptmx *os.File, fd int) {
	if ptmx == nil || !term.IsTerminal(fd) {
		return
	}
	if cols, rows, err := term.GetSize(fd); err == nil && rows > 0 && cols > 0 {
		_ = pty.Setsize(ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
	}
}

// WatchResize keeps the pty size in sync with the terminal on fd until ctx
// is done.
func WatchResize(ctx context.Context, ptmx *os.File, fd int) {
	if ptmx == nil {
		return
	}
	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)

	go func() {
		defer signal.Stop(winch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-winch:
				SyncSize(ptmx, fd)
			}
		}
	}()
}
