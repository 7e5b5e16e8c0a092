package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// newLogger returns a slog.Logger backed by charmbracelet/log. format is
// "text" or "json"; level is any name log.ParseLevel accepts.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}

	opts := log.Options{
		ReportTimestamp: true,
		Level:           lvl,
		Formatter:       log.TextFormatter,
	}
	switch format {
	case "", "text":
	case "json":
		opts.Formatter = log.JSONFormatter
	default:
		return nil, fmt.Errorf("invalid LOG_FORMAT %q", format)
	}

	return slog.New(log.NewWithOptions(w, opts)), nil
}
