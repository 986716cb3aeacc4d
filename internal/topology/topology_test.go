// SPDX-License-Identifier: MPL-2.0

package topology

import (
	"path/filepath"
	"slices"
	"testing"

	"github.com/mpsplit/mpsplit/internal/diag"
	"github.com/mpsplit/mpsplit/pkg/types"
)

func TestParse(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	abs := func(rel string) types.FilesystemPath {
		return types.FilesystemPath(filepath.Join(root, filepath.FromSlash(rel)))
	}

	tests := []struct {
		name      string
		manifest  string
		wantRoots []types.FilesystemPath
		wantCodes []string
	}{
		{
			name:      "declared roots",
			manifest:  `{"pages":["pages/index/index"],"subPackages":[{"root":"subA","pages":["x"]},{"root":"./subB/"}]}`,
			wantRoots: []types.FilesystemPath{abs("subA"), abs("subB")},
		},
		{
			name:      "lowercase key",
			manifest:  `{"subpackages":[{"root":"pkgA"}]}`,
			wantRoots: []types.FilesystemPath{abs("pkgA")},
		},
		{
			name:     "no subpackages",
			manifest: `{"pages":["pages/index/index"]}`,
		},
		{
			name:      "not json",
			manifest:  `{"subPackages": [`,
			wantCodes: []string{diag.CodeAppManifestInvalid},
		},
		{
			name:      "not an object",
			manifest:  `["subA"]`,
			wantCodes: []string{diag.CodeAppManifestInvalid},
		},
		{
			name:      "subPackages wrong shape",
			manifest:  `{"subPackages":{"root":"subA"}}`,
			wantCodes: []string{diag.CodeAppManifestInvalid},
		},
		{
			name:      "entry without root",
			manifest:  `{"subPackages":[{"name":"x"},{"root":""},{"root":"subA"},"subB"]}`,
			wantRoots: []types.FilesystemPath{abs("subA")},
			wantCodes: []string{diag.CodeSubpackageRootMissing, diag.CodeSubpackageRootMissing, diag.CodeSubpackageRootMissing},
		},
		{
			name:      "overlapping roots",
			manifest:  `{"subPackages":[{"root":"subA"},{"root":"subA/inner"},{"root":"subA"},{"root":"subAB"}]}`,
			wantRoots: []types.FilesystemPath{abs("subA"), abs("subAB")},
			wantCodes: []string{diag.CodeSubpackageRootOverlap, diag.CodeSubpackageRootOverlap},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			topo, diags := Parse([]byte(tt.manifest), types.FilesystemPath(root))
			if topo == nil {
				t.Fatal("Parse() returned nil topology")
			}
			if got := topo.Roots(); !slices.Equal(got, tt.wantRoots) {
				t.Errorf("Roots() = %v, want %v", got, tt.wantRoots)
			}
			var codes []string
			for _, d := range diags {
				codes = append(codes, d.Code)
				if d.Severity != diag.SeverityWarning {
					t.Errorf("diagnostic %v has severity %q, want warning", d, d.Severity)
				}
			}
			if !slices.Equal(codes, tt.wantCodes) {
				t.Errorf("diagnostic codes = %v, want %v", codes, tt.wantCodes)
			}
		})
	}
}

func TestRootsReturnsCopy(t *testing.T) {
	t.Parallel()

	topo, _ := New(types.FilesystemPath(t.TempDir()), "subA")
	roots := topo.Roots()
	roots[0] = "/tampered"
	if topo.Roots()[0] == "/tampered" {
		t.Error("Roots() exposed internal slice")
	}
}

func TestEmpty(t *testing.T) {
	t.Parallel()

	if Empty().Len() != 0 {
		t.Error("Empty().Len() != 0")
	}
	var nilTopo *Topology
	if nilTopo.Len() != 0 || nilTopo.Roots() != nil || nilTopo.ProjectRoot() != "" {
		t.Error("nil topology should behave as empty")
	}
	if got := Empty().String(); got != "topology{main only}" {
		t.Errorf("String() = %q", got)
	}
}

func TestRelativeProjectRootIsMadeAbsolute(t *testing.T) {
	t.Parallel()

	topo, _ := New("dist", "subA")
	if !filepath.IsAbs(string(topo.ProjectRoot())) {
		t.Errorf("ProjectRoot() = %q, want absolute", topo.ProjectRoot())
	}
	if !filepath.IsAbs(string(topo.Roots()[0])) {
		t.Errorf("root = %q, want absolute", topo.Roots()[0])
	}
}
