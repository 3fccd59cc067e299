// Package hostproc is the process running in each host window. It connects
// back to the controller, waits for the go-ahead byte, then runs ssh under
// a pty and writes everything the controller sends into it.
package hostproc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/creack/pty"
	"golang.org/x/term"

	"tmux-cssh/pkg/clock"
	"tmux-cssh/pkg/ttyio"
)

// DefaultHandshakeTimeout bounds the wait for the controller's go-ahead.
const DefaultHandshakeTimeout = 5 * time.Second

var (
	// ErrHandshakeTimeout is returned when the controller never answers.
	ErrHandshakeTimeout = errors.New("controller handshake timed out")

	// ErrRejected is returned when the controller answers with anything but
	// the ready byte.
	ErrRejected = errors.New("controller rejected host")
)

// Options describe one host session.
type Options struct {
	SSH           string
	Socket        string
	Hostname      string
	Login         string
	Port          uint16
	SSHArgs       string
	RemoteCommand string

	Debug bool
	// Dummy skips ssh and echoes controller input to Stdout.
	Dummy bool

	Stdin  *os.File
	Stdout *os.File

	Clock            clock.Clock
	Logger           *slog.Logger
	HandshakeTimeout time.Duration
}

func (o *Options) defaults() {
	if o.SSH == "" {
		o.SSH = "ssh"
	}
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Clock == nil {
		o.Clock = clock.Real()
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = DefaultHandshakeTimeout
	}
}

// SSHCommand builds the ssh argv for the session.
func SSHCommand(o Options) []string {
	ssh := o.SSH
	if ssh == "" {
		ssh = "ssh"
	}
	argv := []string{ssh}
	if o.Login != "" {
		argv = append(argv, "-l", o.Login)
	}
	if o.Port != 0 {
		argv = append(argv, "-p", strconv.Itoa(int(o.Port)))
	}
	argv = append(argv, strings.Fields(o.SSHArgs)...)
	argv = append(argv, o.Hostname)
	if c := strings.TrimSpace(o.RemoteCommand); c != "" {
		argv = append(argv, c)
	}
	return argv
}

// Run connects to the controller and runs the session until ssh exits or
// the controller hangs up. The ssh exit status is returned as an
// *exec.ExitError.
func Run(ctx context.Context, opts Options) error {
	opts.defaults()
	if opts.Hostname == "" {
		return errors.New("host: hostname is required")
	}

	conn, err := net.Dial("unix", opts.Socket)
	if err != nil {
		return fmt.Errorf("host: connect to controller: %w", err)
	}
	defer conn.Close()

	if err := AwaitHandshake(conn, opts.Clock, opts.HandshakeTimeout); err != nil {
		return fmt.Errorf("host %s: %w", opts.Hostname, err)
	}
	opts.Logger.Info("host ready", "host", opts.Hostname)

	if opts.Dummy {
		fmt.Fprintf(opts.Stdout, "dummy host %s\r\n", opts.Hostname)
		_, err := io.Copy(opts.Stdout, conn)
		return err
	}
	return runSSH(ctx, opts, conn)
}

// AwaitHandshake reads the controller's first byte. The connection is
// closed if it does not arrive within timeout.
func AwaitHandshake(conn net.Conn, clk clock.Clock, timeout time.Duration) error {
	got := make(chan error, 1)
	go func() {
		var b [1]byte
		if _, err := io.ReadFull(conn, b[:]); err != nil {
			got <- err
			return
		}
		if b[0] != 0 {
			got <- fmt.Errorf("%w: status %d", ErrRejected, b[0])
			return
		}
		got <- nil
	}()

	select {
	case err := <-got:
		return err
	case <-clk.After(timeout):
		_ = conn.Close()
		return ErrHandshakeTimeout
	}
}

func runSSH(ctx context.Context, opts Options, conn net.Conn) error {
	argv := SSHCommand(opts)
	opts.Logger.Debug("starting ssh", "argv", argv)
	if opts.Debug {
		fmt.Fprintf(opts.Stdout, "%s\r\n", strings.Join(argv, " "))
	}

	inFd := int(opts.Stdin.Fd())
	ttyio.FlushInput(inFd)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("host: pty start: %w", err)
	}
	defer func() { _ = ptmx.Close() }()

	outFd := int(opts.Stdout.Fd())
	ttyio.SyncSize(ptmx, outFd)
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	ttyio.WatchResize(watchCtx, ptmx, outFd)

	if term.IsTerminal(inFd) {
		if st, err := term.MakeRaw(inFd); err == nil {
			defer func() { _ = term.Restore(inFd, st) }()
		}
	}

	// Keys typed into the host window itself.
	go func() { _, _ = io.Copy(ptmx, opts.Stdin) }()
	go func() { _, _ = io.Copy(opts.Stdout, ptmx) }()

	// Controller input. EOF means the controller dropped this host.
	go func() {
		if _, err := io.Copy(ptmx, conn); err != nil {
			opts.Logger.Debug("controller stream", "host", opts.Hostname, "err", err)
		}
		opts.Logger.Info("controller hung up", "host", opts.Hostname)
		if cmd.Process != nil {
			_ = cmd.Process.Signal(syscall.SIGTERM)
		}
	}()

	err = cmd.Wait()
	_ = conn.Close()
	opts.Logger.Info("ssh exited", "host", opts.Hostname, "err", err)
	return err
}
