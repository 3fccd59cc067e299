package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"tmux-cssh/pkg/config"
	"tmux-cssh/pkg/hostlist"
)

// sessionFlags are shared by the launcher and the controller: the
// controller is started with the launcher's effective flags.
type sessionFlags struct {
	fs        *pflag.FlagSet
	config    string
	hostFiles []string
}

// settingFlags maps flag names onto the setting keys they override.
var settingFlags = map[string]string{
	"login":          "login",
	"ssh":            "ssh",
	"ssh-args":       "ssh_args",
	"remote-command": "remote_command",
	"session-max":    "session_max",
	"columns":        "columns",
	"rows":           "rows",
	"interleave":     "interleave",
	"sort-hosts":     "sorthosts",
	"debug":          "debug",
	"socket":         "socket",
	"action-key":     "action_key",
}

func newSessionFlags(name string) *sessionFlags {
	sf := &sessionFlags{fs: pflag.NewFlagSet(name, pflag.ContinueOnError)}
	fs := sf.fs
	fs.SetOutput(os.Stderr)

	fs.StringVarP(&sf.config, "config", "c", "", "Extra csshrc or YAML (.yaml/.yml) config file")
	fs.StringArrayVar(&sf.hostFiles, "hosts", nil, "Host file, one [user@]host[:port] [command] per line ('-' reads stdin); repeatable")
	fs.String("socket", "", "Controller socket path (default: a fresh path in $TMPDIR)")
	fs.Bool("debug", false, "Debug logging; host panes stay open after ssh exits")
	fs.StringP("login", "l", "", "Default remote user")
	fs.String("ssh", "", "ssh binary")
	fs.String("ssh-args", "", "Extra arguments passed to ssh")
	fs.String("remote-command", "", "Command to run on every host")
	fs.Int("session-max", 0, "Maximum number of hosts")
	fs.IntP("columns", "x", 0, "Number of columns")
	fs.IntP("rows", "y", 0, "Number of rows")
	fs.Bool("sort-hosts", false, "Sort hosts by name")
	fs.IntP("interleave", "i", 0, "Open every n-th host first")
	fs.String("action-key", "", `Key entering action mode (\001, ^A or a character)`)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "tmux-cssh - cluster ssh on tmux\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n  tmux-cssh [options] [user@]host[:port] | cluster ...\n\nOptions:\n")
		fs.PrintDefaults()
	}
	return sf
}

// load builds the effective settings and resolves the hosts.
func (sf *sessionFlags) load(logger *slog.Logger) (config.Settings, []hostlist.Target, error) {
	l := config.NewLoader(logger)
	if err := l.LoadSystem(); err != nil {
		return config.Settings{}, nil, err
	}
	for _, p := range sf.hostFiles {
		if err := l.LoadHostFile(p); err != nil {
			return config.Settings{}, nil, err
		}
	}
	if sf.config != "" {
		if err := l.LoadConfigFile(sf.config); err != nil {
			return config.Settings{}, nil, err
		}
	}

	s := l.Settings
	var setErr error
	sf.fs.Visit(func(f *pflag.Flag) {
		key, ok := settingFlags[f.Name]
		if !ok || setErr != nil {
			return
		}
		if err := s.Set(key, f.Value.String()); err != nil {
			setErr = usageError{fmt.Errorf("--%s: %w", f.Name, err)}
		}
	})
	if setErr != nil {
		return config.Settings{}, nil, setErr
	}

	specs := l.Hosts
	for _, arg := range sf.fs.Args() {
		spec, err := hostlist.ParseHostSpec(arg, "")
		if err != nil {
			return config.Settings{}, nil, err
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return config.Settings{}, nil, usageError{errors.New("no hosts given")}
	}
	targets, err := hostlist.NewResolver(l.Clusters, logger).Resolve(specs, s.SessionMax)
	if err != nil {
		return config.Settings{}, nil, err
	}
	return s, targets, nil
}

// forward renders the parsed flags back into arguments for the controller.
// hostFiles replaces --hosts, socket forces --socket.
func (sf *sessionFlags) forward(hostFiles []string, socket string) []string {
	var out []string
	sf.fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "hosts", "socket", "launchpid":
			return
		}
		out = append(out, "--"+f.Name+"="+f.Value.String())
	})
	for _, p := range hostFiles {
		out = append(out, "--hosts="+p)
	}
	out = append(out, "--socket="+socket, "--")
	return append(out, sf.fs.Args()...)
}
