// SPDX-License-Identifier: MPL-2.0

package topology

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mpsplit/mpsplit/internal/diag"
	"github.com/mpsplit/mpsplit/pkg/fspath"
	"github.com/mpsplit/mpsplit/pkg/types"
)

// AppManifestName is the file name of the application manifest at the root
// of a build output.
const AppManifestName = "app.json"

// Topology is the set of normalized, absolute, non-overlapping subpackage
// roots of one build. Any path outside every root belongs to the main
// package.
type Topology struct {
	projectRoot types.FilesystemPath
	// roots are kept in declaration order.
	roots []types.FilesystemPath
}

// Empty returns a topology without subpackages. Every path classifies as
// main against it.
func Empty() *Topology {
	return &Topology{}
}

// Parse reads the subPackages declared by an application manifest. Roots are
// resolved against projectRoot. Parse never fails: malformed input yields an
// empty topology together with a warning diagnostic.
func Parse(appManifest []byte, projectRoot types.FilesystemPath) (*Topology, []diag.Diagnostic) {
	source := string(fspath.JoinStr(projectRoot, AppManifestName))
	if !gjson.ValidBytes(appManifest) {
		return emptyAt(projectRoot), []diag.Diagnostic{
			diag.Warning(diag.CodeAppManifestInvalid, source, "application manifest is not valid JSON; treating every path as main package"),
		}
	}
	doc := gjson.ParseBytes(appManifest)
	if !doc.IsObject() {
		return emptyAt(projectRoot), []diag.Diagnostic{
			diag.Warning(diag.CodeAppManifestInvalid, source, "application manifest is not a JSON object"),
		}
	}

	list := doc.Get("subPackages")
	if !list.Exists() {
		list = doc.Get("subpackages")
	}
	if !list.Exists() {
		return emptyAt(projectRoot), nil
	}
	if !list.IsArray() {
		return emptyAt(projectRoot), []diag.Diagnostic{
			diag.Warning(diag.CodeAppManifestInvalid, source, "subPackages must be an array, got %s", list.Type),
		}
	}

	var (
		roots []string
		diags []diag.Diagnostic
	)
	for i, entry := range list.Array() {
		root := entry.Get("root")
		if !entry.IsObject() || root.Type != gjson.String || strings.TrimSpace(root.Str) == "" {
			diags = append(diags, diag.Warning(diag.CodeSubpackageRootMissing, source, "subPackages[%d] has no root; entry ignored", i))
			continue
		}
		roots = append(roots, root.Str)
	}

	t, rootDiags := New(projectRoot, roots...)
	for i := range rootDiags {
		rootDiags[i].Path = source
	}
	return t, append(diags, rootDiags...)
}

// New builds a topology from project-relative roots. Roots nested in (or
// equal to) an earlier root break the non-overlap invariant and are dropped
// with a warning.
func New(projectRoot types.FilesystemPath, roots ...string) (*Topology, []diag.Diagnostic) {
	t := emptyAt(projectRoot)
	var diags []diag.Diagnostic
	for _, r := range roots {
		// Roots are always relative to the project, even when written with a
		// leading slash.
		abs := fspath.Clean(fspath.JoinStr(t.projectRoot, strings.TrimLeft(r, `/\`)))
		if clash, ok := t.overlapping(abs); ok {
			diags = append(diags, diag.Warning(diag.CodeSubpackageRootOverlap, "",
				"subpackage root %q overlaps %q; root ignored", r, string(clash)))
			continue
		}
		t.roots = append(t.roots, abs)
	}
	return t, diags
}

func emptyAt(projectRoot types.FilesystemPath) *Topology {
	root := projectRoot
	if root != "" && !fspath.IsAbs(root) {
		if abs, err := fspath.Abs(root); err == nil {
			root = abs
		}
	}
	if root != "" {
		root = fspath.Clean(root)
	}
	return &Topology{projectRoot: root}
}

func (t *Topology) overlapping(abs types.FilesystemPath) (types.FilesystemPath, bool) {
	for _, existing := range t.roots {
		if fspath.Within(abs, existing) || fspath.Within(existing, abs) {
			return existing, true
		}
	}
	return "", false
}

// ProjectRoot returns the absolute directory roots were resolved against.
func (t *Topology) ProjectRoot() types.FilesystemPath {
	if t == nil {
		return ""
	}
	return t.projectRoot
}

// Roots returns a copy of the subpackage roots in declaration order.
func (t *Topology) Roots() []types.FilesystemPath {
	if t == nil {
		return nil
	}
	return slices.Clone(t.roots)
}

// Len returns the number of subpackage roots.
func (t *Topology) Len() int {
	if t == nil {
		return 0
	}
	return len(t.roots)
}

// String summarizes the topology for logs.
func (t *Topology) String() string {
	if t.Len() == 0 {
		return "topology{main only}"
	}
	parts := make([]string, len(t.roots))
	for i, r := range t.roots {
		parts[i] = string(r)
	}
	return fmt.Sprintf("topology{%s}", strings.Join(parts, ", "))
}
