//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// The controller tells the launcher it is listening with SIGUSR1.
func notifyReady(ch chan<- os.Signal) { signal.Notify(ch, syscall.SIGUSR1) }
func stopReady(ch chan<- os.Signal)   { signal.Stop(ch) }
func signalLauncher(pid int) error    { return syscall.Kill(pid, syscall.SIGUSR1) }

// ignoreJobSignals keeps Ctrl-C and Ctrl-Z from stopping the controller;
// in raw mode they reach the hosts as bytes.
func ignoreJobSignals() { signal.Ignore(syscall.SIGINT, syscall.SIGTSTP, syscall.SIGPIPE) }
