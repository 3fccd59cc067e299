package controller

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"tmux-cssh/pkg/terminal"
)

func peerTTY(fd int) (terminal.Device, error) {
	cred, err := unix.GetsockoptUcred(fd, unix.SOL_SOCKET, unix.SO_PEERCRED)
	if err != nil {
		return terminal.Device{}, err
	}
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", cred.Pid))
	if err != nil {
		return terminal.Device{}, err
	}
	return statTTY(string(data))
}

// statTTY extracts tty_nr from /proc/<pid>/stat. The command name can hold
// spaces and parentheses, so fields are counted from the last ')'.
func statTTY(stat string) (terminal.Device, error) {
	i := strings.LastIndexByte(stat, ')')
	if i < 0 {
		return terminal.Device{}, fmt.Errorf("malformed stat %q", stat)
	}
	// state ppid pgrp session tty_nr
	fields := strings.Fields(stat[i+1:])
	if len(fields) < 5 {
		return terminal.Device{}, fmt.Errorf("malformed stat %q", stat)
	}
	nr, err := strconv.ParseUint(fields[4], 10, 64)
	if err != nil {
		return terminal.Device{}, fmt.Errorf("malformed tty_nr %q: %w", fields[4], err)
	}
	if nr == 0 {
		return terminal.Device{}, errNoTTY
	}
	return terminal.Device{Major: unix.Major(nr), Minor: unix.Minor(nr)}, nil
}
