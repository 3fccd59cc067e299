//go:build windows

package main

import (
	"errors"
	"os"
)

// tmux does not run on Windows; these keep the package building.
func notifyReady(chan<- os.Signal) {}
func stopReady(chan<- os.Signal)   {}
func signalLauncher(int) error     { return errors.New("not supported on windows") }
func ignoreJobSignals()            {}
