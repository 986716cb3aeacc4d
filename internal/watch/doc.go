// SPDX-License-Identifier: MPL-2.0

// Package watch re-runs a build when files under a directory change.
//
// Events are filtered through doublestar patterns and coalesced: the callback
// fires once per quiet period with the deduplicated set of changed paths.
// Callbacks never overlap; events that arrive while one runs start the next
// quiet period.
package watch
