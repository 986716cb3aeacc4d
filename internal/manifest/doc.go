// SPDX-License-Identifier: MPL-2.0

// Package manifest rewrites page and component manifests so that every
// component referenced across a subpackage boundary is declared in
// componentPlaceholder.
//
// The rewrite is a splice: the original document is kept byte for byte and
// only the missing placeholder members are inserted. A manifest without
// cross-package references (or whose references are all declared already)
// is returned unchanged, which makes the rewrite idempotent.
package manifest
