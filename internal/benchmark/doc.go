// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation.
// They cover the hot paths of a rewrite:
//   - application manifest parsing and path classification
//   - component manifest and source module rewriting
//   - configuration loading
//   - the end-to-end pipeline over an in-memory tree
//
// To generate a profile, run:
//
//	go test ./internal/benchmark -run '^$' -bench . -cpuprofile default.pgo
package benchmark
