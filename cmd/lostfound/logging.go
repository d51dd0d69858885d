package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/erazemk/lostfound/internal/config"
)

// splitHandler sends records at or above errorLevel to errs and everything
// else to info.
type splitHandler struct {
	min  slog.Leveler
	info slog.Handler
	errs slog.Handler
}

const errorLevel = slog.LevelError

func (h *splitHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.min.Level()
}

func (h *splitHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= errorLevel {
		return h.errs.Handle(ctx, r)
	}
	return h.info.Handle(ctx, r)
}

func (h *splitHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &splitHandler{min: h.min, info: h.info.WithAttrs(attrs), errs: h.errs.WithAttrs(attrs)}
}

func (h *splitHandler) WithGroup(name string) slog.Handler {
	return &splitHandler{min: h.min, info: h.info.WithGroup(name), errs: h.errs.WithGroup(name)}
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// newLogHandler builds the process handler writing to out and errOut.
func newLogHandler(cfg config.LogConfig, out, errOut io.Writer) (slog.Handler, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var build func(io.Writer) slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		build = func(w io.Writer) slog.Handler { return slog.NewTextHandler(w, opts) }
	case "json":
		build = func(w io.Writer) slog.Handler { return slog.NewJSONHandler(w, opts) }
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	return &splitHandler{min: level, info: build(out), errs: build(errOut)}, nil
}

// setupLogger installs the default logger. When cfg.Path is set every record
// is also appended to that file, and the returned cleanup closes it.
func setupLogger(cfg config.LogConfig) (func(), error) {
	out, errOut := io.Writer(os.Stdout), io.Writer(os.Stderr)
	cleanup := func() {}

	if cfg.Path != "" {
		f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		out = io.MultiWriter(os.Stdout, f)
		errOut = io.MultiWriter(os.Stderr, f)
	}

	handler, err := newLogHandler(cfg, out, errOut)
	if err != nil {
		cleanup()
		return nil, err
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}
