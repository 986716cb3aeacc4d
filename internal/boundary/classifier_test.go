// SPDX-License-Identifier: MPL-2.0

package boundary

import (
	"path/filepath"
	"testing"

	"github.com/mpsplit/mpsplit/internal/topology"
	"github.com/mpsplit/mpsplit/pkg/types"
)

func newTestClassifier(t *testing.T, roots ...string) (*Classifier, func(string) types.FilesystemPath) {
	t.Helper()
	base := t.TempDir()
	topo, diags := topology.New(types.FilesystemPath(base), roots...)
	if len(diags) != 0 {
		t.Fatalf("topology.New() diagnostics: %v", diags)
	}
	return New(topo), func(rel string) types.FilesystemPath {
		return types.FilesystemPath(filepath.Join(base, filepath.FromSlash(rel)))
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	c, abs := newTestClassifier(t, "pkgA", "pkgB", "nested/pkgC")

	tests := []struct {
		path string
		want types.PackageID
	}{
		{"pkgA/pages/x.js", types.PackageID(abs("pkgA"))},
		{"pkgA", types.PackageID(abs("pkgA"))},
		{"pkgB/comp/Foo", types.PackageID(abs("pkgB"))},
		{"nested/pkgC/index.js", types.PackageID(abs("nested/pkgC"))},
		{"main/pages/y.js", types.MainPackage},
		{"pkgAB/x.js", types.MainPackage},
		{"nested/other.js", types.MainPackage},
		{"pages/../pkgA/x.js", types.PackageID(abs("pkgA"))},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			if got := c.Classify(abs(tt.path)); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestSamePackageIsReflexive(t *testing.T) {
	t.Parallel()

	c, abs := newTestClassifier(t, "pkgA", "pkgB")
	for _, p := range []string{"pkgA/x.js", "pkgB/y/z.js", "main/pages/y.js", "", "pkgA"} {
		if !c.SamePackage(abs(p), abs(p)) {
			t.Errorf("SamePackage(%q, %q) = false", p, p)
		}
	}
}

func TestIsCrossPackageReference(t *testing.T) {
	t.Parallel()

	c, abs := newTestClassifier(t, "pkgA", "pkgB")

	tests := []struct {
		name     string
		from, to string
		want     bool
	}{
		{"main to subpackage", "main/pages/index.json", "pkgA/comp/Foo", true},
		{"subpackage to other subpackage", "pkgA/pages/x.js", "pkgB/mod.js", true},
		{"main to main", "pages/index.js", "components/hello/index.js", false},
		{"subpackage to main", "pkgA/pages/x.js", "common/util.js", false},
		{"same subpackage", "pkgA/pages/x.js", "pkgA/comp/Foo", false},
		{"prefix sibling is main", "pages/index.js", "pkgAB/x.js", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := c.IsCrossPackageReference(abs(tt.from), abs(tt.to)); got != tt.want {
				t.Errorf("IsCrossPackageReference(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestEmptyTopologyDegradesToMain(t *testing.T) {
	t.Parallel()

	for _, c := range []*Classifier{New(nil), New(topology.Empty()), nil} {
		p := types.FilesystemPath(filepath.FromSlash("/proj/pkgA/x.js"))
		if got := c.Classify(p); got != types.MainPackage {
			t.Errorf("Classify() = %q, want main", got)
		}
		if c.IsCrossPackageReference(types.FilesystemPath(filepath.FromSlash("/proj/pages/a.js")), p) {
			t.Error("IsCrossPackageReference() = true on empty topology")
		}
	}
}
