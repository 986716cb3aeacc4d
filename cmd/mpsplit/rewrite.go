// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/mpsplit/mpsplit/internal/build"
	"github.com/mpsplit/mpsplit/internal/config"
	"github.com/mpsplit/mpsplit/internal/diag"
	"github.com/mpsplit/mpsplit/internal/issue"
	"github.com/mpsplit/mpsplit/pkg/fspath"
	"github.com/mpsplit/mpsplit/pkg/types"
)

// runFlags are the pipeline flags shared by rewrite and watch. A flag only
// overrides the configuration when it was set explicitly.
type runFlags struct {
	platform     string
	projectRoot  string
	inputDir     string
	primitive    string
	concurrency  int
	probeImports bool
}

func newRewriteCommand(app *App) *cobra.Command {
	var (
		flags  runFlags
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "rewrite [output-dir]",
		Short: "Rewrite an emitted mini-program tree in place",
		Long: `Rewrite an emitted mini-program tree in place.

The tree defaults to output_dir from the configuration. Modules that fail to
parse are left unchanged and the command exits with status 2; every other
module is still rewritten.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := ""
			if len(args) == 1 {
				out = args[0]
			}
			return runRewrite(cmd, app, &flags, out, dryRun)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	return cmd
}

func (f *runFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.platform, "platform", "", "build platform (overrides platform and UNI_PLATFORM)")
	fl.StringVar(&f.projectRoot, "project-root", "", "directory root-relative imports resolve against")
	fl.StringVar(&f.inputDir, "input-dir", "", "source directory the @/ alias points at")
	fl.StringVar(&f.primitive, "deferred-primitive", "", "call emitted for deferred loads")
	fl.IntVar(&f.concurrency, "concurrency", 0, "parallel rewrites (0 means one per CPU)")
	fl.BoolVar(&f.probeImports, "probe-imports", true, "only defer imports whose target exists in the output")
}

// apply folds explicitly set flags into cfg and validates the result.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	fl := cmd.Flags()
	if fl.Changed("platform") {
		cfg.Platform = config.Platform(f.platform)
	}
	if fl.Changed("project-root") {
		cfg.ProjectRoot = f.projectRoot
	}
	if fl.Changed("input-dir") {
		cfg.InputDir = f.inputDir
	}
	if fl.Changed("deferred-primitive") {
		cfg.DeferredPrimitive = f.primitive
	}
	if fl.Changed("concurrency") {
		cfg.Concurrency = f.concurrency
	}
	return cfg.Validate()
}

func runRewrite(cmd *cobra.Command, app *App, flags *runFlags, out string, dryRun bool) error {
	ctx := cmd.Context()
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		renderIssue(app.stderr, issue.ConfigLoadFailedId)
		return err
	}
	if err := flags.apply(cmd, cfg); err != nil {
		return err
	}

	opts, err := pipelineOptions(ctx, app, cfg, flags, out)
	if err != nil {
		return err
	}
	var recorder *build.RecordingEmitter
	if dryRun {
		recorder = build.NewRecordingEmitter()
		opts.Emitter = recorder
	}

	pipeline, err := build.NewPipeline(opts)
	if err != nil {
		return err
	}
	report, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	renderReport(app.stdout, report, dryRun)
	if report.Failed() {
		return &ExitError{Code: types.ExitModuleFailure}
	}
	return nil
}

// pipelineOptions turns the effective configuration into pipeline options.
// Local paths are made absolute against the working directory. The output
// tree must exist unless the platform is inactive.
func pipelineOptions(ctx context.Context, app *App, cfg *config.Config, flags *runFlags, out string) (build.Options, error) {
	if out == "" {
		out = cfg.OutputDir
	}
	outURL, err := outputURL(out)
	if err != nil {
		return build.Options{}, err
	}

	opts := build.Options{
		OutputURL:    outURL,
		Platform:     string(cfg.Platform),
		Aliases:      cfg.Aliases,
		Primitive:    cfg.DeferredPrimitive,
		Concurrency:  cfg.Concurrency,
		Exclude:      cfg.ExclusionOptions(),
		ProbeImports: flags.probeImports,
		FS:           app.FS,
		Logger:       app.logger(),
	}
	if cfg.ProjectRoot != "" {
		if opts.ProjectRoot, err = fspath.Abs(types.FilesystemPath(cfg.ProjectRoot)); err != nil {
			return build.Options{}, fmt.Errorf("project root: %w", err)
		}
	}
	if cfg.InputDir != "" {
		if opts.InputDir, err = fspath.Abs(types.FilesystemPath(cfg.InputDir)); err != nil {
			return build.Options{}, fmt.Errorf("input dir: %w", err)
		}
	}

	if opts.Platform != build.TargetPlatform {
		return opts, nil
	}
	exists, err := app.FS.Exists(ctx, outURL)
	if err != nil || !exists {
		renderIssue(app.stderr, issue.OutputNotFoundId)
		cause := fmt.Errorf("output directory not found: %s", out)
		if err != nil {
			cause = errors.Join(cause, err)
		}
		return build.Options{}, issue.NewErrorContext().
			WithOperation("rewrite build output").
			WithResource(out).
			WithSuggestion("Run the uni-app build for mp-weixin first").
			WithSuggestion("Pass the output directory as an argument or set output_dir").
			Wrap(cause).
			BuildError()
	}
	return opts, nil
}

// outputURL returns out unchanged when it carries a storage scheme and as
// an absolute local path otherwise.
func outputURL(out string) (string, error) {
	if strings.Contains(out, "://") {
		return out, nil
	}
	abs, err := fspath.Abs(types.FilesystemPath(out))
	if err != nil {
		return "", fmt.Errorf("output directory %q: %w", out, err)
	}
	return string(abs), nil
}

// localPath returns the local directory behind an output URL, or false for
// remote storage.
func localPath(outURL string) (string, bool) {
	if url.Scheme(outURL, file.Scheme) != file.Scheme {
		return "", false
	}
	return url.Path(outURL), true
}

// renderReport prints the outcome of one pipeline run.
func renderReport(w io.Writer, r *build.Report, dryRun bool) {
	if r.Inactive {
		fmt.Fprintf(w, "%s platform %s is not %s, nothing rewritten\n",
			WarningStyle.Render("!"), CmdStyle.Render(r.Platform), build.TargetPlatform)
		return
	}

	verb := "Rewrote"
	if dryRun {
		verb = "Would rewrite"
	}
	fmt.Fprintf(w, "%s %s %d of %d assets (%d subpackages)\n",
		SuccessStyle.Render(successIcon), verb, r.Changed(), r.Scanned, r.Topology.Len())
	for _, rel := range r.Manifests {
		fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render(changedMark), rel)
	}
	for _, rel := range r.Modules {
		fmt.Fprintf(w, "  %s %s\n", SubtitleStyle.Render(changedMark), rel)
	}

	for _, err := range failures(r.Failures) {
		fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render(errorIcon), err)
	}

	codes := explainableCodes(r.Diagnostics)
	if len(codes) > 0 {
		fmt.Fprintln(w)
		for _, code := range codes {
			fmt.Fprintf(w, "%s %s\n", SubtitleStyle.Render("see:"), CmdStyle.Render("mpsplit explain "+code))
		}
	}
}

// failures flattens a joined error.
func failures(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

// explainableCodes returns the sorted, distinct codes of warnings and errors
// that have an explanation.
func explainableCodes(diags []diag.Diagnostic) []string {
	var codes []string
	for _, d := range diags {
		if d.Severity == diag.SeverityInfo || issue.ForCode(d.Code) == nil {
			continue
		}
		if !slices.Contains(codes, d.Code) {
			codes = append(codes, d.Code)
		}
	}
	slices.Sort(codes)
	return codes
}

// renderIssue prints a catalogued issue to w. Rendering failures are not
// worth surfacing over the error that triggered them.
func renderIssue(w io.Writer, id issue.Id) {
	if rendered, err := issue.Get(id).Render(issueStyle); err == nil {
		fmt.Fprint(w, rendered)
	}
}
