// SPDX-License-Identifier: MPL-2.0

// Package build runs the rewriters over an emitted mini-program tree.
//
// A run reads app.json first and builds a fresh package topology from it;
// only then are component manifests and script modules processed, each on a
// bounded worker pool. Rewritten content goes through an Emitter, which is
// the overwrite hook of the host build. Storage is accessed through
// github.com/viant/afs, so output trees on local disk and in memory are
// handled alike.
package build
