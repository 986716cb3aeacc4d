// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mpsplit/mpsplit/internal/config"
	"github.com/mpsplit/mpsplit/internal/issue"
)

// newConfigCommand creates the `mpsplit config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage mpsplit configuration",
		Long: `Manage mpsplit configuration.

The first file found is used:
  - the file given with --config
  - config.cue in the config directory (see 'mpsplit config path')
  - mpsplit.cue in the working directory

MPSPLIT_* environment variables override file values. UNI_PLATFORM and
UNI_INPUT_DIR are honored when the MPSPLIT_ variants are unset.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file locations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(app)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context())
			if err != nil {
				renderIssue(app.stderr, issue.ConfigLoadFailedId)
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App) error {
	cfg, err := app.loadConfig(ctx)
	if err != nil {
		renderIssue(app.stderr, issue.ConfigLoadFailedId)
		return err
	}

	w := app.stdout
	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	row := func(key string, value any) {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render(key), valueStyle.Render(fmt.Sprint(value)))
	}
	list := func(key string, items []string) {
		if len(items) == 0 {
			fmt.Fprintf(w, "%s: %s\n", keyStyle.Render(key), SubtitleStyle.Render("(none)"))
			return
		}
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render(key), valueStyle.Render(strings.Join(items, ", ")))
	}

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)

	path, err := config.FilePath(app.loadOpts)
	if err != nil || path == "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), path)
	}
	fmt.Fprintln(w)

	row("platform", cfg.Platform)
	row("output_dir", cfg.OutputDir)
	row("project_root", orDefault(cfg.ProjectRoot, "(output root)"))
	row("input_dir", orDefault(cfg.InputDir, "(unset)"))
	row("deferred_primitive", cfg.DeferredPrimitive)
	row("concurrency", cfg.Concurrency)
	row("verbose", cfg.Verbose)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("aliases"))
	if len(cfg.Aliases) == 0 {
		fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none configured)"))
	}
	for _, prefix := range slices.Sorted(maps.Keys(cfg.Aliases)) {
		fmt.Fprintf(w, "  %s -> %s\n", valueStyle.Render(prefix), valueStyle.Render(cfg.Aliases[prefix]))
	}

	fmt.Fprintln(w)
	list("exclude.dirs", cfg.Exclude.Dirs)
	list("exclude.globs", cfg.Exclude.Globs)
	list("exclude.extensions", cfg.Exclude.Extensions)
	row("watch.debounce", cfg.Watch.Debounce)
	list("watch.ignore", cfg.Watch.Ignore)

	return nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func showConfigPath(app *App) error {
	cfgDir := app.loadOpts.ConfigDirPath
	if cfgDir == "" {
		var err error
		if cfgDir, err = config.ConfigDir(); err != nil {
			return err
		}
	}

	fmt.Fprintf(app.stdout, "Config directory: %s\n", cfgDir)
	fmt.Fprintf(app.stdout, "Config file: %s\n", filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
	fmt.Fprintf(app.stdout, "Project file: %s\n", config.ProjectFileName)

	path, err := config.FilePath(app.loadOpts)
	if err != nil {
		return err
	}
	if path == "" {
		path = SubtitleStyle.Render("(none, using defaults)")
	}
	fmt.Fprintf(app.stdout, "Active file: %s\n", path)
	return nil
}

func initConfig(app *App) error {
	path, created, err := config.CreateDefaultConfig(app.loadOpts.ConfigDirPath)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if !created {
		fmt.Fprintf(app.stdout, "%s Configuration already exists at %s\n", WarningStyle.Render("!"), path)
		return nil
	}
	fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render(successIcon), path)
	return nil
}
