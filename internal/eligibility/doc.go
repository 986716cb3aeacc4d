// SPDX-License-Identifier: MPL-2.0

// Package eligibility decides which module identifiers the source rewriter
// may touch.
//
// A module id is a path optionally followed by a "?query" suffix, as produced
// by bundlers for virtual sub-modules (for example "App.vue?vue&type=style").
// Only JS-family script modules are eligible; virtual ids, binary assets,
// style-only modules and configured exclusions are skipped.
package eligibility
