//go:build !windows

package ttyio

import (
	"time"

	"golang.org/x/sys/unix"
)

// tcflsh is ioctl(TCFLSH); the value is shared by Linux and Darwin.
const tcflsh = 0x540B

// FlushInput discards unread input queued on the terminal fd: keys typed
// while hosts were starting, and replies to terminal queries (OSC, DSR)
// that would otherwise read as typed characters. Best effort.
//
// Replies can land right after the flush, so a short non-blocking drain
// follows it.
func FlushInput(fd int) {
	if fd < 0 {
		return
	}
	DiscardInput(fd)

	if err := unix.SetNonblock(fd, true); err != nil {
		return
	}
	defer func() { _ = unix.SetNonblock(fd, false) }()

	deadline := time.Now().Add(200 * time.Millisecond)
	buf := make([]byte, 512)
	for time.Now().Before(deadline) {
		n, err := unix.Read(fd, buf)
		if n > 0 {
			// Still bursting; wait a little longer for the tail.
			deadline = time.Now().Add(75 * time.Millisecond)
			continue
		}
		if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// DiscardInput is the flush without the drain. It leaves the fd blocking,
// so it is safe while another goroutine reads from it.
func DiscardInput(fd int) {
	_, _, _ = unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(tcflsh), uintptr(unix.TCIFLUSH))
}
