//go:build !linux && !darwin

package controller

import (
	"errors"

	"tmux-cssh/pkg/terminal"
)

func peerTTY(int) (terminal.Device, error) {
	return terminal.Device{}, errors.New("peer credentials are not supported on this platform")
}
