// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mdcatalog/mdcatalog/internal/config"
)

// newConfigCommand creates the `mdcatalog config` command tree.
func newConfigCommand(app *App, flags *globalFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage mdcatalog configuration",
		Long: `Manage mdcatalog configuration.

Configuration is stored in:
  - Linux: ~/.config/mdcatalog/config.cue
  - macOS: ~/Library/Application Support/mdcatalog/config.cue
  - Windows: %APPDATA%\mdcatalog\config.cue

Every key can be overridden with an MDCATALOG_ environment variable, for
example MDCATALOG_MAX_PARALLEL=4 or MDCATALOG_LOG_LEVEL=debug.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, app, flags)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return renderError(cmd, flags, err)
			}
			fmt.Fprint(cmd.OutOrStdout(), config.GenerateCUE(cfg))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return renderError(cmd, flags, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", SuccessStyle.Render("Configuration file:"), path)
			return nil
		},
	})

	return cfgCmd
}

func showConfig(cmd *cobra.Command, app *App, flags *globalFlags) error {
	cfg, err := app.loadConfig(cmd.Context(), flags)
	if err != nil {
		return renderError(cmd, flags, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(out)

	source := SubtitleStyle.Render("(using defaults)")
	if cfg.Source != "" {
		source = cfg.Source
	}
	fmt.Fprintf(out, "%s: %s\n\n", KeyStyle.Render("Config file"), source)

	rows := []struct {
		key   string
		value string
	}{
		{"search_paths", formatList(append(append([]string(nil), flags.paths...), cfg.SearchPaths...))},
		{"extensions", formatList(cfg.Extensions)},
		{"fallback_paths", formatList(cfg.FallbackPaths)},
		{"composition_framework", cfg.CompositionFramework},
		{"known_non_composition", formatList(cfg.KnownNonComposition)},
		{"force_scan", formatList(cfg.ForceScan)},
		{"max_parallel", formatParallel(cfg.MaxParallel)},
		{"resolution_cache_size", strconv.Itoa(cfg.ResolutionCacheSize)},
		{"log.level", string(cfg.Log.Level)},
	}
	for _, row := range rows {
		fmt.Fprintf(out, "%s: %s\n", KeyStyle.Render(row.key), SuccessStyle.Render(row.value))
	}
	return nil
}

func formatList(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	return "[" + strings.Join(values, ", ") + "]"
}

func formatParallel(n int) string {
	if n == 0 {
		return "0 (GOMAXPROCS)"
	}
	return strconv.Itoa(n)
}
