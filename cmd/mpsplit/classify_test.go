// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestClassifyCommand(t *testing.T) {
	t.Parallel()

	out := sampleOutput(t)
	res := run(t, "classify", "--app-manifest", filepath.Join(out, "app.json"),
		"pkgA/pages/a.js", "pages/index.js", "pkgAB/x.js", filepath.Join(out, "pkgA", "mod.js"))
	if res.err != nil {
		t.Fatalf("classify error = %v", res.err)
	}

	want := []string{
		"pkgA/pages/a.js\tpkgA",
		"pages/index.js\tmain",
		"pkgAB/x.js\tmain",
		filepath.Join(out, "pkgA", "mod.js") + "\tpkgA",
	}
	got := strings.Split(strings.TrimRight(res.stdout, "\n"), "\n")
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("classify output =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestClassifyInvalidManifestIsMainOnly(t *testing.T) {
	t.Parallel()

	out := writeTree(t, map[string]string{"app.json": "{not json"})
	res := run(t, "classify", "--app-manifest", filepath.Join(out, "app.json"), "pkgA/a.js")
	if res.err != nil {
		t.Fatalf("classify error = %v", res.err)
	}
	if res.stdout != "pkgA/a.js\tmain\n" {
		t.Errorf("stdout = %q, want main", res.stdout)
	}
	if !strings.Contains(res.stderr, "app_manifest_invalid") {
		t.Errorf("stderr = %q, want the invalid manifest warning logged", res.stderr)
	}
}

func TestClassifyMissingManifest(t *testing.T) {
	t.Parallel()

	res := run(t, "classify", "--app-manifest", filepath.Join(t.TempDir(), "app.json"), "a.js")
	if res.err == nil {
		t.Fatal("classify error = nil, want missing manifest error")
	}
}
