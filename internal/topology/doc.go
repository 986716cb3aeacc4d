// SPDX-License-Identifier: MPL-2.0

// Package topology builds the package topology of a mini-program build: the
// set of subpackage roots declared by the application manifest, normalized
// to absolute paths.
//
// A Topology is an immutable value. It is constructed once per build, before
// any manifest or module is classified, and must be rebuilt (never reused)
// for the next build so a stale classification cannot leak across builds.
package topology
