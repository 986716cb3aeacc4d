// SPDX-License-Identifier: MPL-2.0

package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/viant/afs"
	"github.com/viant/afs/option"
	"github.com/viant/afs/url"
	"golang.org/x/sync/errgroup"

	"github.com/mpsplit/mpsplit/internal/boundary"
	"github.com/mpsplit/mpsplit/internal/diag"
	"github.com/mpsplit/mpsplit/internal/eligibility"
	"github.com/mpsplit/mpsplit/internal/logging"
	"github.com/mpsplit/mpsplit/internal/manifest"
	"github.com/mpsplit/mpsplit/internal/resolve"
	"github.com/mpsplit/mpsplit/internal/srcrewrite"
	"github.com/mpsplit/mpsplit/internal/topology"
	"github.com/mpsplit/mpsplit/pkg/types"
)

// TargetPlatform is the only platform whose output is rewritten.
const TargetPlatform = "mp-weixin"

// reservedManifests are JSON files at any depth that are not component or
// page manifests.
var reservedManifests = []string{
	topology.AppManifestName,
	"project.config.json",
	"project.private.config.json",
	"sitemap.json",
	"theme.json",
	"ext.json",
}

type (
	// Options configures a Pipeline.
	Options struct {
		// OutputURL is the emitted tree: a local path or an afs URL.
		OutputURL string
		// Platform is the active target platform.
		Platform string
		// ProjectRoot anchors root-relative imports ("/x"). Defaults to the
		// output root.
		ProjectRoot types.FilesystemPath
		// InputDir is the target of the "@/" alias.
		InputDir types.FilesystemPath
		// Aliases maps import prefixes to directories.
		Aliases map[string]string
		// Primitive is the deferred load call.
		Primitive string
		// Concurrency bounds the worker pool. Zero means runtime.NumCPU().
		Concurrency int
		// Exclude configures module eligibility.
		Exclude eligibility.Options
		// ProbeImports requires resolved imports to exist in the tree.
		ProbeImports bool
		// FS is the storage service. Defaults to afs.New().
		FS afs.Service
		// Emitter receives rewritten assets. Defaults to writing in place.
		Emitter Emitter
		// Logger defaults to a discard logger.
		Logger *slog.Logger
	}

	// Pipeline rewrites an output tree. A Pipeline can be run repeatedly;
	// every run rebuilds the topology from scratch.
	Pipeline struct {
		opts   Options
		fs     afs.Service
		filter *eligibility.Filter
		logger *slog.Logger
	}

	// asset is a file of the output tree.
	asset struct {
		URL  string
		Path types.FilesystemPath
		Rel  string
	}

	// collector accumulates results of concurrent workers.
	collector struct {
		mu        sync.Mutex
		manifests []string
		modules   []string
		failures  []error
	}
)

// NewPipeline validates opts and creates a pipeline.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.OutputURL == "" {
		return nil, errors.New("output location is required")
	}
	filter, err := eligibility.New(opts.Exclude)
	if err != nil {
		return nil, fmt.Errorf("exclusion rules: %w", err)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	if opts.Primitive == "" {
		opts.Primitive = srcrewrite.DefaultPrimitive
	}
	fs := opts.FS
	if fs == nil {
		fs = afs.New()
	}
	if opts.Emitter == nil {
		opts.Emitter = NewAFSEmitter(fs)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Pipeline{opts: opts, fs: fs, filter: filter, logger: logger}, nil
}

// Run processes the tree once. The returned error covers storage failures
// and cancellation; module failures are reported in Report.Failures.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	sink := diag.NewSink(p.logger)
	report := &Report{Platform: p.opts.Platform}

	if p.opts.Platform != TargetPlatform {
		sink.Add(diag.Diagnostic{
			Severity: diag.SeverityInfo,
			Code:     diag.CodePlatformInactive,
			Message:  fmt.Sprintf("platform %q is not %q, nothing to rewrite", p.opts.Platform, TargetPlatform),
		})
		report.Inactive = true
		report.Topology = topology.Empty()
		report.Diagnostics = sink.Snapshot()
		return report, nil
	}

	rootURL := strings.TrimRight(p.opts.OutputURL, "/")
	rootPath := types.FilesystemPath(url.Path(rootURL))
	projectRoot := p.opts.ProjectRoot
	if projectRoot == "" {
		projectRoot = rootPath
	}

	// The topology must exist before any other manifest is looked at.
	topo, err := p.loadTopology(ctx, rootURL, rootPath, sink)
	if err != nil {
		return nil, err
	}
	report.Topology = topo

	manifests, modules, err := p.partition(ctx, rootURL, rootPath)
	if err != nil {
		return nil, err
	}
	report.Scanned = len(manifests) + len(modules)

	cls := boundary.New(topo)
	mr := manifest.NewRewriter(cls, manifest.WithLogger(p.logger), manifest.WithSink(sink))
	sr := srcrewrite.New(cls, p.resolver(ctx, rootURL, rootPath, projectRoot),
		srcrewrite.WithPrimitive(p.opts.Primitive),
		srcrewrite.WithLogger(p.logger),
		srcrewrite.WithSink(sink),
	)

	var out collector
	if err := p.each(ctx, manifests, func(ctx context.Context, a asset, content []byte) error {
		res := mr.Rewrite(content, a.Path)
		if !res.Changed {
			return nil
		}
		if err := p.opts.Emitter.Emit(ctx, a.URL, res.Content); err != nil {
			return fmt.Errorf("write %s: %w", a.Rel, err)
		}
		out.addManifest(a.Rel)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := p.each(ctx, modules, func(ctx context.Context, a asset, content []byte) error {
		res, err := sr.Rewrite(content, string(a.Path))
		if err != nil {
			sink.Add(diag.Error(diag.CodeModuleParseFailed, a.Rel, err))
			out.addFailure(err)
			return nil
		}
		if !res.Changed {
			return nil
		}
		if err := p.opts.Emitter.Emit(ctx, a.URL, res.Content); err != nil {
			return fmt.Errorf("write %s: %w", a.Rel, err)
		}
		out.addModule(a.Rel)
		return nil
	}); err != nil {
		return nil, err
	}

	report.Manifests = out.sortedManifests()
	report.Modules = out.sortedModules()
	report.Failures = errors.Join(out.sortedFailures()...)
	report.Diagnostics = sink.Snapshot()
	p.logger.Info("rewrite finished",
		"subpackages", topo.Len(),
		"scanned", report.Scanned,
		"manifests", len(report.Manifests),
		"modules", len(report.Modules),
		"failures", len(out.failures),
	)
	return report, nil
}

func (p *Pipeline) loadTopology(ctx context.Context, rootURL string, rootPath types.FilesystemPath, sink *diag.Sink) (*topology.Topology, error) {
	appURL := url.Join(rootURL, topology.AppManifestName)
	exists, err := p.fs.Exists(ctx, appURL)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", topology.AppManifestName, err)
	}
	if !exists {
		sink.Add(diag.Warning(diag.CodeAppManifestMissing, topology.AppManifestName,
			"no %s in %s, every asset belongs to the main package", topology.AppManifestName, rootURL))
		topo, diags := topology.New(rootPath)
		sink.Add(diags...)
		return topo, nil
	}
	data, err := p.fs.DownloadWithURL(ctx, appURL)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", topology.AppManifestName, err)
	}
	topo, diags := topology.Parse(data, rootPath)
	sink.Add(diags...)
	return topo, nil
}

// partition lists the tree and splits it into component manifests and
// eligible modules.
func (p *Pipeline) partition(ctx context.Context, rootURL string, rootPath types.FilesystemPath) (manifests, modules []asset, err error) {
	objects, err := p.fs.List(ctx, rootURL, option.NewRecursive(true))
	if err != nil {
		return nil, nil, fmt.Errorf("list %s: %w", rootURL, err)
	}
	root := string(rootPath)
	for _, obj := range objects {
		if obj.IsDir() {
			continue
		}
		objPath := url.Path(obj.URL())
		rel := strings.TrimPrefix(strings.TrimPrefix(objPath, root), "/")
		a := asset{URL: obj.URL(), Path: types.FilesystemPath(objPath), Rel: rel}

		if path.Ext(objPath) == ".json" {
			if !slices.Contains(reservedManifests, path.Base(objPath)) {
				manifests = append(manifests, a)
			}
			continue
		}
		if reason := p.filter.Check(objPath); reason != eligibility.Eligible {
			p.logger.Debug("skipping asset", "asset", rel, "reason", string(reason))
			continue
		}
		modules = append(modules, a)
	}
	return manifests, modules, nil
}

// resolver builds the import resolver for one run. Probing goes through afs
// so in-memory trees resolve like local ones.
func (p *Pipeline) resolver(ctx context.Context, rootURL string, rootPath, projectRoot types.FilesystemPath) *resolve.Resolver {
	opts := []resolve.Option{
		resolve.WithProjectRoot(projectRoot),
		resolve.WithAliases(p.opts.Aliases),
	}
	if p.opts.InputDir != "" {
		opts = append(opts, resolve.WithInputDir(p.opts.InputDir))
	}
	if p.opts.ProbeImports {
		base := strings.TrimSuffix(rootURL, string(rootPath))
		opts = append(opts, resolve.WithProber(resolve.ProberFunc(func(target types.FilesystemPath) bool {
			obj, err := p.fs.Object(ctx, base+string(target))
			return err == nil && !obj.IsDir()
		})))
	}
	return resolve.New(opts...)
}

// each downloads every asset and hands it to fn on a bounded pool. The first
// error cancels the remaining work.
func (p *Pipeline) each(ctx context.Context, assets []asset, fn func(context.Context, asset, []byte) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for _, a := range assets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := p.fs.DownloadWithURL(gctx, a.URL)
			if err != nil {
				return fmt.Errorf("read %s: %w", a.Rel, err)
			}
			return fn(gctx, a, content)
		})
	}
	return g.Wait()
}

func (c *collector) addManifest(rel string) {
	c.mu.Lock()
	c.manifests = append(c.manifests, rel)
	c.mu.Unlock()
}

func (c *collector) addModule(rel string) {
	c.mu.Lock()
	c.modules = append(c.modules, rel)
	c.mu.Unlock()
}

func (c *collector) addFailure(err error) {
	c.mu.Lock()
	c.failures = append(c.failures, err)
	c.mu.Unlock()
}

func (c *collector) sortedManifests() []string {
	slices.Sort(c.manifests)
	return c.manifests
}

func (c *collector) sortedFailures() []error {
	slices.SortFunc(c.failures, func(a, b error) int { return strings.Compare(a.Error(), b.Error()) })
	return c.failures
}

func (c *collector) sortedModules() []string {
	slices.Sort(c.modules)
	return c.modules
}
