// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/mpsplit/mpsplit/internal/issue"
	"github.com/mpsplit/mpsplit/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// newRootCommand builds the command tree around app.
func newRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mpsplit",
		Short: "Turn cross-package loads of a mini-program build into deferred loads",
		Long: TitleStyle.Render("mpsplit") + SubtitleStyle.Render(" - subpackage rewriter for uni-app mp-weixin output") + `

mpsplit reads the subpackage roots declared in app.json and rewrites the
emitted tree so that nothing in one package loads another package
synchronously. Component manifests gain placeholders; modules switch to
the platform's asynchronous require.

` + SubtitleStyle.Render("Examples:") + `
  mpsplit rewrite                      Rewrite the configured output_dir
  mpsplit rewrite dist/dev/mp-weixin   Rewrite a specific tree
  mpsplit rewrite --dry-run            List what would change
  mpsplit watch                        Rewrite again after every rebuild
  mpsplit explain module_parse_failed  Describe a diagnostic code`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.loadOpts.ConfigFilePath, "config", app.loadOpts.ConfigFilePath,
		"config file (default is config.cue in the config directory, then ./mpsplit.cue)")

	rootCmd.AddCommand(
		newRewriteCommand(app),
		newWatchCommand(app),
		newClassifyCommand(app),
		newExplainCommand(app),
		newConfigCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process with the command's status.
// This is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(types.ExitFailure))
	}

	if err := fang.Execute(
		context.Background(),
		newRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler(app)),
	); err != nil {
		os.Exit(int(exitCodeOf(err)))
	}
}

// errorHandler prints command errors. An ExitError without a cause was
// already reported by the command and stays silent.
func errorHandler(app *App) fang.ErrorHandler {
	return func(w io.Writer, styles fang.Styles, err error) {
		var exitErr *ExitError
		if errors.As(err, &exitErr) && exitErr.Err == nil {
			return
		}
		var ae *issue.ActionableError
		if errors.As(err, &ae) {
			fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, app.verbose))
			return
		}
		fang.DefaultErrorHandler(w, styles, err)
	}
}

// exitCodeOf maps a command error to the process exit status.
func exitCodeOf(err error) types.ExitCode {
	if err == nil {
		return types.ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return types.ExitFailure
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
