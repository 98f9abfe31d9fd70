// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "mdcatalog",
		Short: "Find composition parts in .NET modules without loading them",
		Long: TitleStyle.Render("mdcatalog") + SubtitleStyle.Render(" - Find composition parts in .NET modules without loading them") + `

mdcatalog reads the metadata tables of managed modules and lists the types
and members that export or import composition parts. Marker attributes
derived in other modules are followed through assembly references, which are
resolved against the module's directory, --path and the configured search
paths.

` + SubtitleStyle.Render("Examples:") + `
  mdcatalog scan ./bin              Summarize every module in ./bin
  mdcatalog dump ./bin/Parts.dll    List exports and imports per type
  mdcatalog graph ./bin/App.dll     Show referenced modules in scan order
  mdcatalog config show             Show current configuration`,
		SilenceUsage: true,
	}
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging and full error chains")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $HOME/.config/mdcatalog/config.cue)")
	rootCmd.PersistentFlags().StringSliceVarP(&flags.paths, "path", "p", nil, "extra directories searched for referenced modules")

	rootCmd.AddCommand(newScanCommand(app, flags))
	rootCmd.AddCommand(newDumpCommand(app, flags))
	rootCmd.AddCommand(newResolveCommand(app, flags))
	rootCmd.AddCommand(newGraphCommand(app, flags))
	rootCmd.AddCommand(newConfigCommand(app, flags))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI. This is called by main.main().
func Execute() {
	rootCmd := NewRootCommand(NewApp(Dependencies{}))
	// fang overrides rootCmd.Version, so the version is passed as an option.
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
