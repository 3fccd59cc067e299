package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"tmux-cssh/pkg/logs"
	"tmux-cssh/pkg/terminal"
)

// launchTimeout bounds the wait for the controller's ready signal.
const launchTimeout = 10 * time.Second

var errNoController = errors.New("No controller")

// runLauncher validates the command line, starts the controller in a tmux
// window and waits until it is listening. Outside tmux it creates a
// session and attaches to it.
func runLauncher(args []string) error {
	sf := newSessionFlags("tmux-cssh")
	if err := sf.fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return usageError{err}
	}
	debug, _ := sf.fs.GetBool("debug")
	logger, closer := logs.Open(logs.Options{Role: "launcher", Debug: debug})
	defer closer.Close()

	// Stdin can only be read once; the controller gets a copy.
	hostFiles, cleanup, err := snapshotStdinHosts(sf.hostFiles)
	if err != nil {
		return err
	}
	defer cleanup()
	sf.hostFiles = hostFiles

	settings, targets, err := sf.load(logger)
	if err != nil {
		return err
	}
	socket := settings.Socket
	if socket == "" {
		socket = defaultSocket()
	}

	exe, err := os.Executable()
	if err != nil {
		return err
	}
	argv := append([]string{exe, "controller", "--launchpid=" + strconv.Itoa(os.Getpid())}, sf.forward(hostFiles, socket)...)
	script := terminal.QuoteArgs(argv)
	cwd, _ := os.Getwd()

	ready := make(chan os.Signal, 1)
	notifyReady(ready)
	defer stopReady(ready)

	logger.Info("launching controller", "hosts", len(targets), "socket", socket)
	if terminal.SocketPathFromEnv() != "" {
		server := terminal.ServerFromEnv()
		if _, err := server.Run("new-window", "-n", "cssh", "-c", cwd, script); err != nil {
			return err
		}
		return waitReady(ready)
	}

	server := terminal.NewServer("")
	session := "cssh-" + uuid.NewString()[:8]
	newSession := []string{"new-session", "-d", "-s", session, "-c", cwd}
	if cols, rows, err := term.GetSize(int(os.Stdout.Fd())); err == nil && cols > 0 && rows > 0 {
		newSession = append(newSession, "-x", strconv.Itoa(cols), "-y", strconv.Itoa(rows))
	}
	if _, err := server.Run(append(newSession, script)...); err != nil {
		return err
	}
	if err := waitReady(ready); err != nil {
		_, _ = server.Run("kill-session", "-t", session)
		return err
	}
	cmd := server.Command("attach-session", "-t", session)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	return cmd.Run()
}

// defaultSocket returns a fresh socket path in the temp directory.
func defaultSocket() string {
	return filepath.Join(os.TempDir(), "cssh."+uuid.NewString()+".sock")
}

func waitReady(ready <-chan os.Signal) error {
	select {
	case <-ready:
		return nil
	case <-time.After(launchTimeout):
		return errNoController
	}
}

// snapshotStdinHosts copies a "-" host file to a temporary file.
func snapshotStdinHosts(files []string) ([]string, func(), error) {
	out := append([]string(nil), files...)
	cleanup := func() {}
	for i, p := range out {
		if p != "-" {
			continue
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, cleanup, fmt.Errorf("read hosts from stdin: %w", err)
		}
		f, err := os.CreateTemp("", "cssh-hosts-*")
		if err != nil {
			return nil, cleanup, err
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
			return nil, cleanup, err
		}
		_ = f.Close()
		name := f.Name()
		out[i] = name
		cleanup = func() { _ = os.Remove(name) }
		break
	}
	return out, cleanup, nil
}
