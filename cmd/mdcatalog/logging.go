// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"

	"github.com/mdcatalog/mdcatalog/internal/config"
)

// newLogger returns a charmbracelet logger at the configured level; verbose
// forces debug and adds timestamps.
func newLogger(w io.Writer, level config.LogLevel, verbose bool) *log.Logger {
	lvl, err := log.ParseLevel(string(level))
	if err != nil {
		lvl = log.InfoLevel
	}
	if verbose {
		lvl = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Prefix:          "mdcatalog",
		Level:           lvl,
		ReportTimestamp: verbose,
	})
}

// installLogger routes the library packages' slog output through a
// charmbracelet logger.
func installLogger(w io.Writer, level config.LogLevel, verbose bool) {
	slog.SetDefault(slog.New(newLogger(w, level, verbose)))
}
