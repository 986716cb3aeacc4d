// SPDX-License-Identifier: MPL-2.0

package build

import (
	"github.com/mpsplit/mpsplit/internal/diag"
	"github.com/mpsplit/mpsplit/internal/topology"
)

// Report summarizes one pipeline run.
type Report struct {
	// Platform is the platform the run was configured for.
	Platform string
	// Inactive is set when Platform is not the rewrite target; nothing was
	// read or written.
	Inactive bool
	// Topology is the package topology built for the run.
	Topology *topology.Topology
	// Scanned counts the manifests and modules considered.
	Scanned int
	// Manifests and Modules list the rewritten assets, relative to the
	// output root, sorted.
	Manifests []string
	Modules   []string
	// Failures joins the per-module fatal errors (*srcrewrite.ParseError).
	Failures error
	// Diagnostics are all findings of the run, in arrival order.
	Diagnostics []diag.Diagnostic
}

// Failed reports whether any module failed.
func (r *Report) Failed() bool { return r != nil && r.Failures != nil }

// Changed returns the number of rewritten assets.
func (r *Report) Changed() int {
	if r == nil {
		return 0
	}
	return len(r.Manifests) + len(r.Modules)
}
