// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mdcatalog/mdcatalog/internal/issue"
	"github.com/mdcatalog/mdcatalog/pkg/identity"
)

func newResolveCommand(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <identity>",
		Short: "Print the file a module identity resolves to",
		Long: `Resolve a module identity, such as
"Parts, Version=1.0.0.0, Culture=neutral, PublicKeyToken=null", against
--path, the configured search paths and the fallback locations.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, app, flags, args[0])
		},
	}
}

func runResolve(cmd *cobra.Command, app *App, flags *globalFlags, id string) error {
	if _, err := identity.Parse(id); err != nil {
		return renderError(cmd, flags, issue.WrapWithContext(err, "parse identity", id))
	}

	s, err := app.newSession(cmd.Context(), flags)
	if err != nil {
		return renderError(cmd, flags, err)
	}

	path, ok := s.locator.Resolve(id)
	if !ok {
		return renderError(cmd, flags, issue.NewErrorContext().
			WithOperation("resolve identity").
			WithResource(id).
			WithIssue(issue.IdentityUnresolvedId).
			WithSuggestions(
				"add the directory holding the module with --path",
				"list extra directories under search_paths in the configuration",
			).
			BuildError())
	}
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
