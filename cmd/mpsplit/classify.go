// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/viant/afs/url"

	"github.com/mpsplit/mpsplit/internal/boundary"
	"github.com/mpsplit/mpsplit/internal/diag"
	"github.com/mpsplit/mpsplit/internal/issue"
	"github.com/mpsplit/mpsplit/internal/topology"
	"github.com/mpsplit/mpsplit/pkg/fspath"
	"github.com/mpsplit/mpsplit/pkg/types"
)

func newClassifyCommand(app *App) *cobra.Command {
	var manifestPath string
	cmd := &cobra.Command{
		Use:   "classify <path>...",
		Short: "Print the package that owns each path",
		Long: `Print the package that owns each path according to app.json.

Relative paths are taken relative to the directory holding app.json. The
package is printed as its root, or "main" for everything outside every
subpackage root.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, app, manifestPath, args)
		},
	}
	cmd.Flags().StringVar(&manifestPath, "app-manifest", "", "application manifest (default is app.json in output_dir)")
	return cmd
}

func runClassify(cmd *cobra.Command, app *App, manifestPath string, paths []string) error {
	ctx := cmd.Context()
	if manifestPath == "" {
		cfg, err := app.loadConfig(ctx)
		if err != nil {
			renderIssue(app.stderr, issue.ConfigLoadFailedId)
			return err
		}
		manifestPath = filepath.Join(cfg.OutputDir, topology.AppManifestName)
	}
	manifestURL, err := outputURL(manifestPath)
	if err != nil {
		return err
	}
	data, err := app.FS.DownloadWithURL(ctx, manifestURL)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("read application manifest").
			WithResource(manifestPath).
			WithSuggestion("Pass the manifest with --app-manifest").
			Wrap(err).
			BuildError()
	}

	root := types.FilesystemPath(url.Path(manifestURL))
	root = fspath.Dir(root)
	topo, diags := topology.Parse(data, root)
	diag.NewSink(app.logger()).Add(diags...)

	cls := boundary.New(topo)
	for _, p := range paths {
		abs := fspath.AbsFrom(topo.ProjectRoot(), types.FilesystemPath(p))
		fmt.Fprintf(app.stdout, "%s\t%s\n", p, packageLabel(topo, cls.Classify(abs)))
	}
	return nil
}

// packageLabel renders a package as its root relative to the project, or
// "main".
func packageLabel(topo *topology.Topology, id types.PackageID) string {
	if id.IsMain() {
		return string(types.MainPackage)
	}
	rel, err := fspath.Rel(topo.ProjectRoot(), types.FilesystemPath(id))
	if err != nil {
		return string(id)
	}
	return filepath.ToSlash(string(rel))
}
