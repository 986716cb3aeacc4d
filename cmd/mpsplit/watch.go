// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mpsplit/mpsplit/internal/build"
	"github.com/mpsplit/mpsplit/internal/issue"
	"github.com/mpsplit/mpsplit/internal/watch"
	"github.com/mpsplit/mpsplit/pkg/types"
)

func newWatchCommand(app *App) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "watch [output-dir]",
		Short: "Rewrite the output tree after every rebuild",
		Long: `Rewrite the output tree once, then again whenever the build writes to it.

Rewritten files trigger one more pass, which finds nothing left to change.
Interrupt with Ctrl+C.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := ""
			if len(args) == 1 {
				out = args[0]
			}
			return runWatch(cmd, app, &flags, out)
		},
	}
	flags.register(cmd)
	cmd.Flags().Duration("debounce", 0, "quiet period before rebuilding (overrides watch.debounce)")
	return cmd
}

func runWatch(cmd *cobra.Command, app *App, flags *runFlags, out string) error {
	ctx := cmd.Context()
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		renderIssue(app.stderr, issue.ConfigLoadFailedId)
		return err
	}
	if cmd.Flags().Changed("debounce") {
		if cfg.Watch.Debounce, err = cmd.Flags().GetDuration("debounce"); err != nil {
			return err
		}
	}
	if err := flags.apply(cmd, cfg); err != nil {
		return err
	}

	opts, err := pipelineOptions(ctx, app, cfg, flags, out)
	if err != nil {
		return err
	}
	if opts.Platform != build.TargetPlatform {
		// Nothing would ever be rewritten.
		renderReport(app.stdout, &build.Report{Platform: opts.Platform, Inactive: true}, false)
		return nil
	}
	root, ok := localPath(opts.OutputURL)
	if !ok {
		return fmt.Errorf("watch needs a local output directory, got %s", opts.OutputURL)
	}

	pipeline, err := build.NewPipeline(opts)
	if err != nil {
		return err
	}
	rebuild := func(ctx context.Context, changed []string) error {
		if len(changed) > 0 {
			fmt.Fprintf(app.stdout, "%s %s\n", SubtitleStyle.Render("changed:"), strings.Join(changed, ", "))
		}
		report, err := pipeline.Run(ctx)
		if err != nil {
			return err
		}
		renderReport(app.stdout, report, false)
		return nil
	}
	if err := rebuild(ctx, nil); err != nil {
		return err
	}

	w, err := watch.New(watch.Config{
		Root:     root,
		Ignore:   cfg.Watch.Ignore,
		Debounce: cfg.Watch.Debounce,
		OnChange: rebuild,
		Logger:   opts.Logger,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(app.stdout, "%s watching %s\n", TitleStyle.Render("mpsplit"), CmdStyle.Render(root))
	if err := w.Run(ctx); err != nil {
		return &ExitError{Code: types.ExitFailure, Err: err}
	}
	return nil
}
