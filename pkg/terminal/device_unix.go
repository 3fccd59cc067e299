//go:build !windows

package terminal

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DeviceOf returns the device number of the character device at path.
func DeviceOf(path string) (Device, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return Device{}, fmt.Errorf("stat %s: %w", path, err)
	}
	rdev := uint64(st.Rdev)
	return Device{Major: unix.Major(rdev), Minor: unix.Minor(rdev)}, nil
}

// DeviceOfFD returns the device number of the terminal open on fd.
func DeviceOfFD(fd int) (Device, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return Device{}, fmt.Errorf("fstat %d: %w", fd, err)
	}
	rdev := uint64(st.Rdev)
	return Device{Major: unix.Major(rdev), Minor: unix.Minor(rdev)}, nil
}
