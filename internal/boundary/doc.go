// SPDX-License-Identifier: MPL-2.0

// Package boundary answers the two questions both rewriters are built on:
// which package owns a path, and whether a reference from one path to
// another crosses into a subpackage the referrer does not belong to.
//
// All operations are pure and total: they never fail, and a classifier over
// an empty (or nil) topology classifies every path as main, which turns
// every rewrite into a no-op.
package boundary
