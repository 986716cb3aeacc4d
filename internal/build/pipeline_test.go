// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/mpsplit/mpsplit/internal/diag"
	"github.com/mpsplit/mpsplit/internal/eligibility"
	"github.com/mpsplit/mpsplit/internal/srcrewrite"
)

const (
	appJSON = `{"pages":["pages/index"],"subPackages":[{"root":"pkgA","pages":["pages/a"]}]}`

	indexJSON = `{"usingComponents":{"Foo":"../pkgA/comp/foo","Bar":"/components/bar"}}`

	indexJS = `const m = require('../pkgA/mod');
require('../pkgA/side');
Page({
  async onLoad() {
    this.value = await m.value;
  }
});
`

	wantIndexJS = `const m = require.async('../pkgA/mod');
Page({
  async onLoad() {
    this.value = await m.then(({value}) => value);
  }
});
`
)

type tree struct {
	fs   afs.Service
	root string
}

func newTree(t *testing.T, files map[string]string) *tree {
	t.Helper()
	tr := &tree{fs: afs.New(), root: "mem://localhost/" + strings.ReplaceAll(t.Name(), "/", "_") + "/dist"}
	for rel, content := range files {
		if err := tr.fs.Upload(t.Context(), url.Join(tr.root, rel), file.DefaultFileOsMode, strings.NewReader(content)); err != nil {
			t.Fatalf("upload %s: %v", rel, err)
		}
	}
	return tr
}

func (tr *tree) read(t *testing.T, rel string) string {
	t.Helper()
	data, err := tr.fs.DownloadWithURL(t.Context(), url.Join(tr.root, rel))
	if err != nil {
		t.Fatalf("download %s: %v", rel, err)
	}
	return string(data)
}

func (tr *tree) pipeline(t *testing.T, mutate func(*Options)) *Pipeline {
	t.Helper()
	opts := Options{
		OutputURL:    tr.root,
		Platform:     TargetPlatform,
		ProbeImports: true,
		Concurrency:  4,
		FS:           tr.fs,
	}
	if mutate != nil {
		mutate(&opts)
	}
	p, err := NewPipeline(opts)
	if err != nil {
		t.Fatalf("NewPipeline() error = %v", err)
	}
	return p
}

func sampleTree(t *testing.T) *tree {
	t.Helper()
	return newTree(t, map[string]string{
		"app.json":             appJSON,
		"project.config.json":  `{"usingComponents":{"X":"pkgA/x"}}`,
		"pages/index.json":     indexJSON,
		"pages/index.js":       indexJS,
		"pages/broken.js":      "const = ;\n",
		"pkgA/mod.js":          "module.exports = { value: 1 };\n",
		"pkgA/side.js":         "console.log('side');\n",
		"pkgA/comp/foo.json":   `{"component":true,"usingComponents":{"Baz":"./baz"}}`,
		"pkgA/comp/foo.js":     "Component({});\n",
		"pkgA/pages/a.js":      "const u = require('../mod');\nPage({ async onLoad() { await u.value; } });\n",
		"common/vendor.js":     "const m = require('../pkgA/mod');\n(async () => { await m.value; })();\n",
		"components/bar.json":  `{"component":true}`,
		"static/logo.png":      "\x89PNG",
		"pages/index.wxss":     ".a{}",
		"pkgA/comp/foo.wxml":   "<view/>",
		"pages/index.wxml":     "<Foo/><Bar/>",
		"components/bar.js":    "Component({});\n",
		"components/bar.wxml":  "<view/>",
		"pkgA/pages/a.json":    `{}`,
		"pkgA/pages/a.wxml":    "<view/>",
		"components/bar.wxss":  "",
		"pkgA/comp/foo.wxss":   "",
		"pkgA/pages/a.wxss":    "",
		"pages/broken.json":    `{"usingComponents":`,
		"pages/broken.wxml":    "<view/>",
		"pkgA/comp/baz.json":   `{"component":true}`,
		"pkgA/comp/baz.js":     "Component({});\n",
		"pkgA/comp/baz.wxml":   "<view/>",
		"sitemap.json":         `{"rules":[]}`,
		"pkgA/comp/baz.wxss":   "",
		"pages/broken.wxss":    "",
		"components/index.txt": "ignored",
	})
}

func TestRunRewritesCrossPackageReferences(t *testing.T) {
	t.Parallel()

	tr := sampleTree(t)
	report, err := tr.pipeline(t, nil).Run(t.Context())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if report.Topology.Len() != 1 {
		t.Errorf("topology = %s, want one subpackage", report.Topology)
	}
	if want := []string{"pages/index.json"}; !slices.Equal(report.Manifests, want) {
		t.Errorf("Manifests = %v, want %v", report.Manifests, want)
	}
	if want := []string{"pages/index.js"}; !slices.Equal(report.Modules, want) {
		t.Errorf("Modules = %v, want %v", report.Modules, want)
	}

	if got := tr.read(t, "pages/index.json"); got != `{"usingComponents":{"Foo":"../pkgA/comp/foo","Bar":"/components/bar"},"componentPlaceholder":{"Foo":"view"}}` {
		t.Errorf("pages/index.json = %s", got)
	}
	if got := tr.read(t, "pages/index.js"); got != wantIndexJS {
		t.Errorf("pages/index.js =\n%s\nwant\n%s", got, wantIndexJS)
	}
	for rel, want := range map[string]string{
		"common/vendor.js":    "const m = require('../pkgA/mod');\n(async () => { await m.value; })();\n",
		"pkgA/pages/a.js":     "const u = require('../mod');\nPage({ async onLoad() { await u.value; } });\n",
		"project.config.json": `{"usingComponents":{"X":"pkgA/x"}}`,
	} {
		if got := tr.read(t, rel); got != want {
			t.Errorf("%s changed:\n%s", rel, got)
		}
	}

	if !report.Failed() {
		t.Fatal("Failed() = false, want the broken module reported")
	}
	var perr *srcrewrite.ParseError
	if !errors.As(report.Failures, &perr) || !strings.HasSuffix(perr.Path, "pages/broken.js") {
		t.Errorf("Failures = %v, want ParseError for pages/broken.js", report.Failures)
	}

	codes := map[string]int{}
	for _, d := range report.Diagnostics {
		codes[d.Code]++
	}
	if codes[diag.CodeModuleParseFailed] != 1 || codes[diag.CodeManifestParseFailed] != 1 {
		t.Errorf("diagnostic codes = %v", codes)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	tr := sampleTree(t)
	p := tr.pipeline(t, nil)
	if _, err := p.Run(t.Context()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	report, err := p.Run(t.Context())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if report.Changed() != 0 {
		t.Errorf("second Run() changed %v %v", report.Manifests, report.Modules)
	}
}

func TestRunDryRunLeavesTreeUntouched(t *testing.T) {
	t.Parallel()

	tr := sampleTree(t)
	rec := NewRecordingEmitter()
	report, err := tr.pipeline(t, func(o *Options) { o.Emitter = rec }).Run(t.Context())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Changed() != 2 {
		t.Errorf("Changed() = %d, want 2", report.Changed())
	}
	var recorded string
	for URL, content := range rec.Files() {
		if strings.HasSuffix(URL, "/pages/index.js") {
			recorded = string(content)
		}
	}
	if recorded != wantIndexJS {
		t.Errorf("recorded pages/index.js =\n%s", recorded)
	}
	if got := tr.read(t, "pages/index.js"); got != indexJS {
		t.Errorf("dry run wrote pages/index.js:\n%s", got)
	}
}

func TestRunInactivePlatform(t *testing.T) {
	t.Parallel()

	tr := sampleTree(t)
	rec := NewRecordingEmitter()
	report, err := tr.pipeline(t, func(o *Options) {
		o.Platform = "h5"
		o.Emitter = rec
	}).Run(t.Context())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !report.Inactive || report.Scanned != 0 {
		t.Errorf("report = %+v, want inactive and nothing scanned", report)
	}
	if len(rec.Files()) != 0 {
		t.Errorf("inactive run emitted %d files", len(rec.Files()))
	}
	if len(report.Diagnostics) != 1 || report.Diagnostics[0].Code != diag.CodePlatformInactive {
		t.Errorf("Diagnostics = %v", report.Diagnostics)
	}
}

func TestRunWithoutAppManifestIsNoop(t *testing.T) {
	t.Parallel()

	tr := newTree(t, map[string]string{
		"pages/index.json": indexJSON,
		"pages/index.js":   indexJS,
		"pkgA/mod.js":      "module.exports = {};\n",
	})
	report, err := tr.pipeline(t, nil).Run(t.Context())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Changed() != 0 {
		t.Errorf("Changed() = %d, want 0", report.Changed())
	}
	if len(report.Diagnostics) == 0 || report.Diagnostics[0].Code != diag.CodeAppManifestMissing {
		t.Errorf("Diagnostics = %v, want %s first", report.Diagnostics, diag.CodeAppManifestMissing)
	}
}

func TestRunUnresolvedImportIsSkipped(t *testing.T) {
	t.Parallel()

	tr := newTree(t, map[string]string{
		"app.json":       appJSON,
		"pages/index.js": "const m = require('../pkgA/gone');\n(async () => { await m; })();\n",
	})
	report, err := tr.pipeline(t, nil).Run(t.Context())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Changed() != 0 {
		t.Errorf("Changed() = %d, want 0", report.Changed())
	}
	found := slices.ContainsFunc(report.Diagnostics, func(d diag.Diagnostic) bool {
		return d.Code == diag.CodeImportUnresolved
	})
	if !found {
		t.Errorf("Diagnostics = %v, want %s", report.Diagnostics, diag.CodeImportUnresolved)
	}
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	tr := sampleTree(t)
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if _, err := tr.pipeline(t, nil).Run(ctx); err == nil {
		t.Error("Run() with cancelled context error = nil")
	}
}

func TestNewPipelineValidates(t *testing.T) {
	t.Parallel()

	if _, err := NewPipeline(Options{}); err == nil {
		t.Error("NewPipeline() without output error = nil")
	}
	if _, err := NewPipeline(Options{OutputURL: "mem://localhost/x", Exclude: eligibilityWithBadGlob()}); err == nil {
		t.Error("NewPipeline() with invalid glob error = nil")
	}
}

func eligibilityWithBadGlob() eligibility.Options {
	return eligibility.Options{ExcludeGlobs: []string{"[oops"}}
}
