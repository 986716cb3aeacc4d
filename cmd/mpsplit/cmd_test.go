// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/mpsplit/mpsplit/internal/config"
)

const (
	appJSON   = `{"pages":["pages/index"],"subPackages":[{"root":"pkgA","pages":["pages/a"]}]}`
	indexJSON = `{"usingComponents":{"Foo":"../pkgA/comp/foo","Bar":"/components/bar"}}`
	indexJS   = `const m = require('../pkgA/mod');
require('../pkgA/side');
Page({
  async onLoad() {
    this.value = await m.value;
  }
});
`
	wantIndexJSON = `{"usingComponents":{"Foo":"../pkgA/comp/foo","Bar":"/components/bar"},"componentPlaceholder":{"Foo":"view"}}`
	wantIndexJS   = `const m = require.async('../pkgA/mod');
Page({
  async onLoad() {
    this.value = await m.then(({value}) => value);
  }
});
`
)

type cliResult struct {
	stdout string
	stderr string
	err    error
}

// writeTree creates files under a fresh directory and returns it.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		if err := writeFile(filepath.Join(root, filepath.FromSlash(rel)), content); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func sampleOutput(t *testing.T) string {
	t.Helper()
	return writeTree(t, map[string]string{
		"app.json":           appJSON,
		"pages/index.json":   indexJSON,
		"pages/index.js":     indexJS,
		"pkgA/mod.js":        "module.exports = { value: 1 };\n",
		"pkgA/side.js":       "console.log('side');\n",
		"pkgA/comp/foo.json": `{"component":true,"usingComponents":{"Baz":"./baz"}}`,
		"pkgA/comp/foo.js":   "Component({});\n",
		"pkgA/pages/a.js":    "Page({});\n",
	})
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// run executes the command tree in-process with isolated config locations.
func run(t *testing.T, args ...string) cliResult {
	t.Helper()
	return runWith(t, configIsolation(t), args...)
}

func runWith(t *testing.T, opts config.LoadOptions, args ...string) cliResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app, err := NewApp(Dependencies{
		Stdout:      &stdout,
		Stderr:      &stderr,
		LoadOptions: opts,
	})
	if err != nil {
		t.Fatalf("NewApp() error = %v", err)
	}
	root := newRootCommand(app)
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err = root.ExecuteContext(t.Context())
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func configIsolation(t *testing.T) config.LoadOptions {
	t.Helper()
	return config.LoadOptions{
		ConfigDirPath: t.TempDir(),
		WorkDir:       t.TempDir(),
	}
}
