// Package logger provides opinionated slog constructors for memoria.
//
// CLI commands use the pretty charmbracelet/log handler when attached to a
// terminal; services and files get slog's JSON handler. Library packages never
// construct their own loggers: they accept a *slog.Logger and fall back to Nop.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
	"golang.org/x/term"
)

type config struct {
	level  slog.Level
	pretty bool
	json   bool
	source bool
	writer io.Writer
}

// New builds a *slog.Logger from the given options.
// The default is an Info level text handler writing to os.Stdout.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:  slog.LevelInfo,
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	w := c.writer

	switch {
	case c.json:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		}))

	case c.pretty:
		h := charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(c.level),
			ReportTimestamp: true,
			ReportCaller:    c.source,
		})
		return slog.New(h)

	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     c.level,
			AddSource: c.source,
		}))
	}
}

// NewCLI returns a logger for interactive commands: pretty on a terminal,
// plain text otherwise. Logs go to stderr so command output stays pipeable.
func NewCLI(debug bool) *slog.Logger {
	return New(
		WithDebug(debug),
		WithPretty(IsTerminal(os.Stderr)),
		WithWriter(os.Stderr),
	)
}

// NewService returns the logger of a long running command: the CLI logger,
// plus JSON records with source locations appended to logFile when it is
// set. The returned close function closes the file.
func NewService(debug bool, logFile string) (*slog.Logger, func() error, error) {
	cli := NewCLI(debug)
	if logFile == "" {
		return cli, func() error { return nil }, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	file := New(
		WithDebug(debug),
		WithJSON(true),
		WithSource(true),
		WithWriter(f),
	)
	return Multi(cli, file), f.Close, nil
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(nopHandler{})
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
