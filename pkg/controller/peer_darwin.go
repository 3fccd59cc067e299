package controller

import (
	"golang.org/x/sys/unix"

	"tmux-cssh/pkg/terminal"
)

func peerTTY(fd int) (terminal.Device, error) {
	pid, err := unix.GetsockoptInt(fd, unix.SOL_LOCAL, unix.LOCAL_PEERPID)
	if err != nil {
		return terminal.Device{}, err
	}
	kp, err := unix.SysctlKinfoProc("kern.proc.pid", pid)
	if err != nil {
		return terminal.Device{}, err
	}
	tdev := kp.Eproc.Tdev
	if tdev == -1 {
		return terminal.Device{}, errNoTTY
	}
	d := uint64(uint32(tdev))
	return terminal.Device{Major: unix.Major(d), Minor: unix.Minor(d)}, nil
}
