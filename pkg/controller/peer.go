package controller

import (
	"errors"
	"fmt"
	"net"
	"syscall"

	"tmux-cssh/pkg/terminal"
)

var errNoTTY = errors.New("peer has no controlling terminal")

// PeerTTY returns the controlling terminal of the process on the other
// end of a unix socket connection.
func PeerTTY(conn net.Conn) (terminal.Device, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return terminal.Device{}, fmt.Errorf("peer tty: %T is not a socket", conn)
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return terminal.Device{}, fmt.Errorf("peer tty: %w", err)
	}
	var (
		dev  terminal.Device
		perr error
	)
	if err := raw.Control(func(fd uintptr) {
		dev, perr = peerTTY(int(fd))
	}); err != nil {
		return terminal.Device{}, fmt.Errorf("peer tty: %w", err)
	}
	if perr != nil {
		return terminal.Device{}, fmt.Errorf("peer tty: %w", perr)
	}
	return dev, nil
}
