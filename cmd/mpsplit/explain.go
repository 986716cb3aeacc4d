// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mpsplit/mpsplit/internal/issue"
)

// issueStyle picks a dark or light theme on a terminal and plain text
// otherwise.
const issueStyle = "auto"

func newExplainCommand(app *App) *cobra.Command {
	var style string
	cmd := &cobra.Command{
		Use:   "explain [code]",
		Short: "Describe a diagnostic code",
		Long: `Describe a diagnostic code and what to do about it.

Without an argument, every code is listed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				listCodes(app)
				return nil
			}
			return explainCode(app, args[0], style)
		},
	}
	cmd.Flags().StringVar(&style, "style", issueStyle, `glamour style: "auto", "dark", "light", "notty" or a JSON style file`)
	return cmd
}

func listCodes(app *App) {
	fmt.Fprintln(app.stdout, TitleStyle.Render("Diagnostic codes"))
	for _, i := range issue.Values() {
		for _, code := range i.Codes() {
			fmt.Fprintf(app.stdout, "  %s\n", CmdStyle.Render(code))
		}
	}
}

func explainCode(app *App, code, style string) error {
	i := issue.ForCode(code)
	if i == nil {
		return issue.NewErrorContext().
			WithOperation("explain diagnostic").
			WithResource(code).
			WithSuggestion("Run 'mpsplit explain' to list the known codes").
			Wrap(fmt.Errorf("unknown diagnostic code %q", strings.TrimSpace(code))).
			BuildError()
	}
	rendered, err := i.Render(style)
	if err != nil {
		return fmt.Errorf("render %s: %w", code, err)
	}
	fmt.Fprint(app.stdout, rendered)
	return nil
}
