// Package logs builds the slog loggers used by the launcher, controller and
// host processes.
//
// The controller and host processes own a terminal pane, so nothing is
// logged to stderr. Records go to a daily file:
//
//	$XDG_CONFIG_HOME/tmux-cssh/logs/YYYY-MM-DD.log
//	~/.config/tmux-cssh/logs/YYYY-MM-DD.log
package logs

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	subdir    = "logs"
	ext       = ".log"
	dayFormat = "2006-01-02"
)

// Options controls where and how much is logged.
type Options struct {
	// BaseDir overrides the logs directory.
	BaseDir string

	// Role is attached to every record ("launcher", "controller", "host").
	Role string

	Debug bool

	// Now picks the daily file. Zero means time.Now().
	Now time.Time
}

// BaseDir resolves the logs directory.
func BaseDir(opts Options) (string, error) {
	if d := strings.TrimSpace(opts.BaseDir); d != "" {
		return d, nil
	}
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "tmux-cssh", subdir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "tmux-cssh", subdir), nil
}

// DailyPath returns the log file for the day of opts.Now.
func DailyPath(opts Options) (string, error) {
	base, err := BaseDir(opts)
	if err != nil {
		return "", err
	}
	t := opts.Now
	if t.IsZero() {
		t = time.Now()
	}
	return filepath.Join(base, t.Format(dayFormat)+ext), nil
}

// Open returns a logger appending to the daily file. If the file cannot be
// opened the logger discards everything; logging never blocks startup.
// The returned closer is never nil.
func Open(opts Options) (*slog.Logger, io.Closer) {
	p, err := DailyPath(opts)
	if err != nil {
		return Discard(), nopCloser{}
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return Discard(), nopCloser{}
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return Discard(), nopCloser{}
	}
	return New(f, opts), f
}

// New returns a text logger writing to w.
func New(w io.Writer, opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	if opts.Role != "" {
		logger = logger.With("role", opts.Role, "pid", os.Getpid())
	}
	return logger
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
