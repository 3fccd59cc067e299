package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"tmux-cssh/pkg/clock"
	"tmux-cssh/pkg/controller"
	"tmux-cssh/pkg/logs"
	"tmux-cssh/pkg/terminal"
	"tmux-cssh/pkg/ttyio"
)

func runController(args []string) error {
	sf := newSessionFlags("controller")
	launchPID := sf.fs.Int("launchpid", 0, "Process to signal once listening")
	_ = sf.fs.MarkHidden("launchpid")
	if err := sf.fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return usageError{err}
	}
	ignoreJobSignals()

	debug, _ := sf.fs.GetBool("debug")
	logger, closer := logs.Open(logs.Options{Role: "controller", Debug: debug})
	defer closer.Close()

	settings, targets, err := sf.load(logger)
	if err != nil {
		return err
	}
	if settings.Socket == "" {
		settings.Socket = defaultSocket()
	}
	targets = controller.Order(targets, settings.SortHosts, settings.Interleave)

	pane := os.Getenv("TMUX_PANE")
	if pane == "" {
		return fmt.Errorf("%w: TMUX_PANE is not set", terminal.ErrUnavailable)
	}
	tm, err := terminal.NewTmux(terminal.ServerFromEnv(), pane, logger)
	if err != nil {
		return err
	}

	c, err := controller.New(controller.Options{
		Terminal: tm,
		Tab:      tm.Controller(),
		Console:  ttyio.NewConsole(os.Stdin, os.Stdout),
		Settings: settings,
		Socket:   settings.Socket,
		Clock:    clock.Real(),
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	if err := c.Listen(); err != nil {
		return err
	}
	if *launchPID > 0 {
		if err := signalLauncher(*launchPID); err != nil {
			logger.Warn("signal launcher", "pid", *launchPID, "err", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	c.Post(func() { c.StartAll(targets) })
	if err := c.Run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
