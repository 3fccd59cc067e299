// Command tmux-cssh opens one tmux pane per host and broadcasts keyboard
// input to all of them from a controller pane.
//
//	tmux-cssh [options] [user@]host[:port] | cluster ...
//
// The same binary runs in three roles: the launcher (what the user runs),
// the controller ("tmux-cssh controller", started by the launcher in its own
// tmux window) and one host process per pane ("tmux-cssh host").
package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/spf13/pflag"

	"tmux-cssh/pkg/config"
	"tmux-cssh/pkg/hostlist"
)

const (
	exitUsage   = 2
	exitTimeout = 124
)

func main() {
	args := os.Args[1:]
	var err error
	switch {
	case len(args) > 0 && args[0] == "controller":
		err = runController(args[1:])
	case len(args) > 0 && args[0] == "host":
		err = runHost(args[1:])
	default:
		err = runLauncher(args)
	}
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		fmt.Fprintf(os.Stderr, "tmux-cssh: %v\n", err)
	}
	os.Exit(exitCodeFromErr(err))
}

// usageError marks errors caused by the command line or the host list.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func exitCodeFromErr(err error) int {
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if status, ok := ee.Sys().(syscall.WaitStatus); ok {
			return status.ExitStatus()
		}
	}
	var ue usageError
	switch {
	case errors.Is(err, errNoController):
		return exitTimeout
	case errors.As(err, &ue),
		errors.Is(err, hostlist.ErrInvalidRange),
		errors.Is(err, hostlist.ErrLimitExceeded),
		errors.Is(err, hostlist.ErrInvalidHostFormat),
		errors.Is(err, config.ErrConfigNotFound):
		return exitUsage
	}
	return 1
}
