// SPDX-License-Identifier: MPL-2.0

package boundary

import (
	"cmp"
	"slices"

	"github.com/mpsplit/mpsplit/internal/topology"
	"github.com/mpsplit/mpsplit/pkg/fspath"
	"github.com/mpsplit/mpsplit/pkg/types"
)

// Classifier maps paths to the package that owns them.
type Classifier struct {
	topo *topology.Topology
	// byLength holds the roots longest first so the first hit is the
	// longest-prefix match.
	byLength []types.FilesystemPath
}

// New creates a classifier over topo. A nil topology is treated as empty.
func New(topo *topology.Topology) *Classifier {
	if topo == nil {
		topo = topology.Empty()
	}
	roots := topo.Roots()
	slices.SortStableFunc(roots, func(a, b types.FilesystemPath) int {
		return cmp.Compare(len(b), len(a))
	})
	return &Classifier{topo: topo, byLength: roots}
}

// Topology returns the topology the classifier was built from.
func (c *Classifier) Topology() *topology.Topology {
	if c == nil {
		return topology.Empty()
	}
	return c.topo
}

// Classify returns the subpackage root owning path, or types.MainPackage.
func (c *Classifier) Classify(path types.FilesystemPath) types.PackageID {
	if c == nil {
		return types.MainPackage
	}
	for _, root := range c.byLength {
		if fspath.Within(path, root) {
			return types.PackageID(root)
		}
	}
	return types.MainPackage
}

// SamePackage reports whether a and b are owned by the same package.
func (c *Classifier) SamePackage(a, b types.FilesystemPath) bool {
	return c.Classify(a) == c.Classify(b)
}

// IsCrossPackageReference reports whether a reference from -> to targets a
// subpackage that from does not belong to. References into the main package
// are never cross-package, whatever their origin.
func (c *Classifier) IsCrossPackageReference(from, to types.FilesystemPath) bool {
	target := c.Classify(to)
	if target.IsMain() {
		return false
	}
	return target != c.Classify(from)
}
