// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mdcatalog/mdcatalog/internal/dag"
	"github.com/mdcatalog/mdcatalog/internal/issue"
	"github.com/mdcatalog/mdcatalog/internal/scanner"
	"github.com/mdcatalog/mdcatalog/pkg/metadata"
)

// scanFailure turns a module error into an actionable error linked to the
// matching catalog issue.
func scanFailure(err error, operation, resource string) error {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return err
	}

	ctx := issue.NewErrorContext().
		WithOperation(operation).
		WithResource(resource).
		Wrap(err)

	switch {
	case errors.Is(err, dag.ErrCycle):
		ctx.WithIssue(issue.ReferenceCycleId).
			WithSuggestion("break the reference cycle or denylist one of the modules with known_non_composition")
	case errors.Is(err, scanner.ErrUnsupportedTarget):
		ctx.WithIssue(issue.UnsupportedAttributeTargetId)
	case errors.Is(err, scanner.ErrMissingDeclaringType):
		ctx.WithIssue(issue.MissingDeclaringTypeId)
	case errors.Is(err, filepath.ErrBadPattern):
		ctx.WithIssue(issue.InvalidPatternId).
			WithSuggestion("check the extensions list in the configuration")
	case errors.Is(err, fs.ErrNotExist):
		ctx.WithIssue(issue.ModuleNotFoundId).
			WithSuggestion("check the path, or pass a directory to scan all modules in it")
	case errors.Is(err, metadata.ErrNoMetadata), errors.Is(err, metadata.ErrBadFormat):
		ctx.WithIssue(issue.ModuleUnreadableId).
			WithSuggestion("native images and truncated files cannot be scanned")
	}
	return ctx.BuildError()
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

// renderError prints err to the command's stderr and returns an ExitError so
// that cobra does not print it a second time. In verbose mode the linked
// catalog issue is rendered below the message.
func renderError(cmd *cobra.Command, flags *globalFlags, err error) error {
	stderr := cmd.ErrOrStderr()
	fmt.Fprintln(stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, flags.verbose))

	var ae *issue.ActionableError
	if flags.verbose && errors.As(err, &ae) {
		rendered, renderErr := ae.Explain("dark")
		if renderErr != nil {
			slog.Warn("failed to render issue catalog entry", "issueID", ae.Issue, "error", renderErr)
		} else if rendered != "" {
			fmt.Fprint(stderr, rendered)
		}
	}

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return &ExitError{Code: 1}
}
