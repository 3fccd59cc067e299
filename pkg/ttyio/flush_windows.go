//go:build windows

package ttyio

// FlushInput is a no-op on Windows.
func FlushInput(int) {}

// DiscardInput is a no-op on Windows.
func DiscardInput(int) {}
