package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"tmux-cssh/pkg/hostproc"
	"tmux-cssh/pkg/logs"
)

func runHost(args []string) error {
	var o hostproc.Options
	fs := pflag.NewFlagSet("host", pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.StringVar(&o.SSH, "ssh", "ssh", "ssh binary")
	fs.StringVar(&o.Socket, "socket", "", "Controller socket path")
	fs.StringVar(&o.Hostname, "hostname", "", "Remote host")
	fs.StringVarP(&o.Login, "login", "l", "", "Remote user")
	fs.Uint16VarP(&o.Port, "port", "p", 0, "Remote port")
	fs.StringVar(&o.SSHArgs, "ssh-args", "", "Extra arguments passed to ssh")
	fs.StringVar(&o.RemoteCommand, "remote-command", "", "Command to run on the host")
	fs.BoolVar(&o.Debug, "debug", false, "Print the ssh command and log verbosely")
	fs.BoolVar(&o.Dummy, "dummy", false, "Echo controller input instead of running ssh")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return usageError{err}
	}
	if o.Socket == "" || o.Hostname == "" {
		return usageError{errors.New("usage: tmux-cssh host --socket <path> --hostname <host> [options]")}
	}

	logger, closer := logs.Open(logs.Options{Role: "host", Debug: o.Debug})
	defer closer.Close()
	o.Logger = logger.With("host", o.Hostname)

	err := hostproc.Run(context.Background(), o)
	if err != nil && o.Debug {
		fmt.Fprintf(os.Stderr, "\r\ntmux-cssh host %s: %v\r\n", o.Hostname, err)
	}
	return err
}
