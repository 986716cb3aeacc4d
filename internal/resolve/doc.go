// SPDX-License-Identifier: MPL-2.0

// Package resolve maps module-load literals to absolute paths.
//
// Resolution applies configured path aliases first, then joins relative
// literals with the importing module's directory and root-anchored literals
// with the project root. Bare package specifiers are never resolved. An
// optional Prober confirms the target exists on disk; probe results are
// memoized per resolver.
package resolve
