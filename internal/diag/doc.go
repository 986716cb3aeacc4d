// SPDX-License-Identifier: MPL-2.0

// Package diag defines the structured diagnostics produced while classifying
// and rewriting a build, and the append-only sink they are collected in.
//
// Diagnostics are returned to callers (rather than written to stderr) so the
// CLI layer owns the rendering policy. The sink is the only mutable state the
// rewriters share across units of work; it is safe for concurrent use.
package diag
