// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors and a catalog of known problems.
//
// ActionableError carries the failed operation, the resource, and fix-it
// suggestions for CLI display. The catalog maps diagnostic codes to Markdown
// explanations rendered with glamour (mpsplit explain <code>).
package issue
