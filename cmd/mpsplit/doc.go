// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the mpsplit command-line interface.
//
// Every command is built by a constructor that receives an *App, so tests
// can execute the tree in-process with their own writers and config
// locations.
package cmd
