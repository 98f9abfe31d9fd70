// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/mdcatalog/mdcatalog/internal/report"
	"github.com/mdcatalog/mdcatalog/pkg/catalog"
)

func newDumpCommand(app *App, flags *globalFlags) *cobra.Command {
	var (
		markdown bool
		style    string
	)

	dumpCmd := &cobra.Command{
		Use:   "dump <file>",
		Short: "List the exports and imports of every type in a module",
		Long: `List the composition parts of one module: every marked type, sorted by
name, followed by its exported and imported members sorted by kind and token.
The output is stable across runs and can be diffed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd, app, flags, args[0], markdown, style)
		},
	}
	dumpCmd.Flags().BoolVar(&markdown, "markdown", false, "render the dump as styled markdown")
	dumpCmd.Flags().StringVar(&style, "style", "dark", "glamour style used with --markdown (dark, light, notty)")
	return dumpCmd
}

func runDump(cmd *cobra.Command, app *App, flags *globalFlags, path string, markdown bool, style string) error {
	ctx := cmd.Context()
	if _, err := os.Stat(path); err != nil {
		return renderError(cmd, flags, scanFailure(err, "scan module", path))
	}

	s, err := app.newSession(ctx, flags)
	if err != nil {
		return renderError(cmd, flags, err)
	}
	res, err := s.scanFile(ctx, path)
	if err != nil {
		return renderError(cmd, flags, scanFailure(err, "scan module", path))
	}

	out := cmd.OutOrStdout()
	if res.assembly == nil {
		if res.cause != nil {
			return renderError(cmd, flags, scanFailure(res.cause, "read module", path))
		}
		fmt.Fprintln(out, SubtitleStyle.Render(res.path+": not a composition module"))
		return nil
	}

	r := report.Build([]*catalog.Assembly{res.assembly}, nil)
	if !markdown {
		if err := r.WriteText(out); err != nil {
			return renderError(cmd, flags, err)
		}
		return nil
	}

	rendered, err := glamour.Render(r.Markdown(), style)
	if err != nil {
		return renderError(cmd, flags, fmt.Errorf("render markdown: %w", err))
	}
	fmt.Fprint(out, rendered)
	return nil
}
