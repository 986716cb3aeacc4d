// SPDX-License-Identifier: MPL-2.0

package logging

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/log"
)

// Prefix is prepended to every log line.
const Prefix = "mpsplit"

// New returns a logger writing to w. Debug records are emitted only when
// verbose is set.
func New(w io.Writer, verbose bool) *slog.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:  level,
		Prefix: Prefix,
	})
	return slog.New(handler)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
