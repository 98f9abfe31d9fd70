// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newGraphCommand(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "graph <file>",
		Short: "Show the modules a scan visited, dependencies first",
		Long: `Scan a module and print every module its scan visited through assembly
references, in dependency order: each module appears after the modules it
references. Modules that were denylisted or could not be resolved are not
visited.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, app, flags, args[0])
		},
	}
}

func runGraph(cmd *cobra.Command, app *App, flags *globalFlags, path string) error {
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

	order, err := s.discovery.Graph().TopologicalSort()
	if err != nil {
		return renderError(cmd, flags, scanFailure(err, "order module graph", path))
	}
	if len(order) == 0 {
		order = []string{res.path}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, TitleStyle.Render("Scan order"))
	for i, node := range order {
		a, err := s.discovery.ScanPath(node).Wait(ctx)
		status := SubtitleStyle.Render("(not a composition module)")
		switch {
		case err != nil:
			status = ErrorStyle.Render(err.Error())
		case a != nil:
			status = KeyStyle.Render(a.Identity())
		case s.discovery.Cause(node) != nil:
			status = WarningStyle.Render("(unreadable)")
		}
		fmt.Fprintf(out, "%3d. %s  %s\n", i+1, node, status)
	}
	return nil
}
