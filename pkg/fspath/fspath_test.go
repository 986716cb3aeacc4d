// SPDX-License-Identifier: MPL-2.0

package fspath_test

import (
	"path/filepath"
	"testing"

	"github.com/mpsplit/mpsplit/pkg/fspath"
	"github.com/mpsplit/mpsplit/pkg/types"
)

func TestJoin(t *testing.T) {
	t.Parallel()

	got := fspath.Join(types.FilesystemPath("dist"), types.FilesystemPath("subA"))
	want := types.FilesystemPath(filepath.Join("dist", "subA"))
	if got != want {
		t.Errorf("Join() = %q, want %q", got, want)
	}
}

func TestJoinStr_MultipleSegments(t *testing.T) {
	t.Parallel()

	got := fspath.JoinStr(types.FilesystemPath("dist"), "pages", "../subA/mod.js")
	want := types.FilesystemPath(filepath.Join("dist", "subA", "mod.js"))
	if got != want {
		t.Errorf("JoinStr() = %q, want %q", got, want)
	}
}

func TestDir(t *testing.T) {
	t.Parallel()

	got := fspath.Dir(types.FilesystemPath("dist/pages/index.json"))
	want := types.FilesystemPath(filepath.Dir("dist/pages/index.json"))
	if got != want {
		t.Errorf("Dir() = %q, want %q", got, want)
	}
}

func TestAbs(t *testing.T) {
	t.Parallel()

	got, err := fspath.Abs(types.FilesystemPath("."))
	if err != nil {
		t.Fatalf("Abs() error = %v", err)
	}
	if !fspath.IsAbs(got) {
		t.Errorf("Abs(\".\") = %q, want absolute path", got)
	}
}

func TestAbsFrom(t *testing.T) {
	t.Parallel()

	base := types.FilesystemPath(filepath.FromSlash("/proj/dist"))
	if got, want := fspath.AbsFrom(base, "subA"), types.FilesystemPath(filepath.FromSlash("/proj/dist/subA")); got != want {
		t.Errorf("AbsFrom(relative) = %q, want %q", got, want)
	}
	abs := types.FilesystemPath(filepath.FromSlash("/other/./x"))
	if got, want := fspath.AbsFrom(base, abs), types.FilesystemPath(filepath.FromSlash("/other/x")); got != want {
		t.Errorf("AbsFrom(absolute) = %q, want %q", got, want)
	}
}

func TestWithin(t *testing.T) {
	t.Parallel()

	root := types.FilesystemPath(filepath.FromSlash("/proj/subA"))
	tests := []struct {
		name string
		path string
		want bool
	}{
		{"root itself", "/proj/subA", true},
		{"root with trailing slash", "/proj/subA/", true},
		{"nested file", "/proj/subA/pages/x.js", true},
		{"sibling with shared prefix", "/proj/subAB/x.js", false},
		{"parent", "/proj", false},
		{"dot segments", "/proj/pages/../subA/x.js", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := fspath.Within(types.FilesystemPath(filepath.FromSlash(tt.path)), root); got != tt.want {
				t.Errorf("Within(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
