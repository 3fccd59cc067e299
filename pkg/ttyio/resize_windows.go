//go:build windows

package ttyio

import (
	"context"
	"os"
)

// SyncSize is a no-op on Windows.
func SyncSize(*os.File, int) {}

// WatchResize is a no-op on Windows: there is no SIGWINCH.
func WatchResize(context.Context, *os.File, int) {}
