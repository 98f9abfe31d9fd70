// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mdcatalog/mdcatalog/internal/discovery"
	"github.com/mdcatalog/mdcatalog/internal/report"
	"github.com/mdcatalog/mdcatalog/pkg/catalog"
)

const (
	formatText = "text"
	formatTOML = "toml"
)

// fileResult is the outcome of scanning one module file. A nil assembly with
// a nil cause is a module that does not use the composition model.
type fileResult struct {
	path     string
	assembly *catalog.Assembly
	cause    error
}

func newScanCommand(app *App, flags *globalFlags) *cobra.Command {
	var format string

	scanCmd := &cobra.Command{
		Use:   "scan <file|dir>...",
		Short: "Scan modules and summarize their composition parts",
		Long: `Scan module files, or every module in a directory, and summarize the
composition parts found. Directories are scanned for the configured
extensions and added to the search paths, so modules in them resolve each
other's references.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, app, flags, format, args)
		},
	}
	scanCmd.Flags().StringVar(&format, "format", formatText, "output format (text, toml)")
	return scanCmd
}

func runScan(cmd *cobra.Command, app *App, flags *globalFlags, format string, args []string) error {
	if format != formatText && format != formatTOML {
		return renderError(cmd, flags, fmt.Errorf("unknown format %q (valid: text, toml)", format))
	}

	ctx := cmd.Context()
	s, err := app.newSession(ctx, flags)
	if err != nil {
		return renderError(cmd, flags, err)
	}

	start := time.Now()
	var (
		assemblies []*catalog.Assembly
		diags      []discovery.Diagnostic
		seen       = make(map[*catalog.Assembly]bool)
	)
	add := func(a *catalog.Assembly) {
		if a != nil && !seen[a] {
			seen[a] = true
			assemblies = append(assemblies, a)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return renderError(cmd, flags, scanFailure(err, "scan module", arg))
		}

		if info.IsDir() {
			res, err := s.scanDir(ctx, arg)
			if err != nil {
				return renderError(cmd, flags, scanFailure(err, "scan directory", arg))
			}
			for _, a := range res.Assemblies {
				add(a)
			}
			diags = append(diags, res.Diagnostics...)
			continue
		}

		res, err := s.scanFile(ctx, arg)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return renderError(cmd, flags, err)
			}
			diags = append(diags, discovery.Diagnostic{
				Severity: discovery.SeverityError,
				Code:     discovery.CodeScanFailed,
				Message:  err.Error(),
				Path:     arg,
				Cause:    err,
			})
		case res.assembly != nil:
			add(res.assembly)
		case res.cause != nil:
			diags = append(diags, discovery.Diagnostic{
				Severity: discovery.SeverityWarning,
				Code:     discovery.CodeModuleUnreadable,
				Message:  fmt.Sprintf("skipped unreadable module: %v", res.cause),
				Path:     res.path,
				Cause:    res.cause,
			})
		}
	}
	slog.Debug("scan finished", "modules", len(assemblies), "problems", len(diags), "elapsed", time.Since(start))

	r := report.Build(assemblies, diags)
	out := cmd.OutOrStdout()
	if format == formatTOML {
		err = r.WriteTOML(out)
	} else {
		err = r.WriteSummary(out)
	}
	if err != nil {
		return renderError(cmd, flags, err)
	}

	for _, d := range diags {
		if d.Severity == discovery.SeverityError {
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true
			return &ExitError{Code: 1}
		}
	}
	return nil
}
