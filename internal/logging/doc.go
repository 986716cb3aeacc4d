// SPDX-License-Identifier: MPL-2.0

// Package logging builds the process logger: log/slog at call sites, rendered
// by charmbracelet/log.
package logging
