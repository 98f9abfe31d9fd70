// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/mdcatalog/mdcatalog/internal/issue"
	"github.com/mdcatalog/mdcatalog/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "mdcatalog"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides: MDCATALOG_MAX_PARALLEL,
	// MDCATALOG_LOG_LEVEL, MDCATALOG_SEARCH_PATHS (comma separated).
	EnvPrefix = "MDCATALOG"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the mdcatalog configuration directory under the
// platform's user configuration directory.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

// loadWithOptions layers the built-in defaults, the config file and the
// MDCATALOG_* environment, then validates the merged result.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load config canceled: %w", err)
	}

	v := viper.New()
	for key, value := range defaultValues(DefaultConfig()) {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := resolvePath(opts)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := mergeFile(v, path); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestions(
					"Fix the reported field; every key is described by 'mdcatalog config dump'",
					"Remove keys mdcatalog does not know about",
				).
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Source = path

	// The file was checked against the schema already; environment values
	// were not.
	if ok, errs := cfg.IsValid(); !ok {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Check MDCATALOG_* environment variables for out-of-range values").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errs[0]).
			BuildError()
	}
	return cfg, nil
}

// defaultValues flattens d into viper keys.
func defaultValues(d *Config) map[string]any {
	return map[string]any{
		"search_paths":          d.SearchPaths,
		"extensions":            d.Extensions,
		"fallback_paths":        d.FallbackPaths,
		"composition_framework": d.CompositionFramework,
		"known_non_composition": d.KnownNonComposition,
		"force_scan":            d.ForceScan,
		"max_parallel":          d.MaxParallel,
		"resolution_cache_size": d.ResolutionCacheSize,
		"log.level":             string(d.Log.Level),
	}
}

// resolvePath returns the file to load, or "" for defaults only. An
// explicit ConfigFilePath must exist. Otherwise config.cue is looked up in
// the config directory and then in the working directory.
func resolvePath(opts LoadOptions) (string, error) {
	if explicit := opts.ConfigFilePath; explicit != "" {
		if fileExists(explicit) {
			return explicit, nil
		}
		return "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(explicit).
			WithSuggestion("Pass an existing file to --config, or create one with 'mdcatalog config init'").
			Wrap(fmt.Errorf("config file not found: %s", explicit)).
			BuildError()
	}

	dir := opts.ConfigDirPath
	if dir == "" {
		var err error
		if dir, err = ConfigDir(); err != nil {
			return "", err
		}
	}
	name := ConfigFileName + "." + ConfigFileExt
	for _, candidate := range []string{filepath.Join(dir, name), name} {
		if fileExists(candidate) {
			return candidate, nil
		}
	}
	return "", nil
}

// mergeFile checks path against #Config and merges its fields into v.
// Every field is optional, so the file is validated non-concretely and
// decoded into a map.
func mergeFile(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	cctx := cuecontext.New()
	schema := cctx.CompileString(configSchema).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	file := cctx.CompileBytes(data, cue.Filename(path))
	if err := file.Err(); err != nil {
		return cueutil.FormatError(err, path)
	}

	merged := schema.Unify(file)
	if err := merged.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}
	values := map[string]any{}
	if err := merged.Decode(&values); err != nil {
		return cueutil.FormatError(err, path)
	}
	return v.MergeConfigMap(values)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// CreateDefaultConfig writes the defaults to config.cue in the config
// directory and returns its path. An existing file is left untouched.
func CreateDefaultConfig() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if fileExists(path) {
		return path, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", fmt.Errorf("write config file: %w", err)
	}
	return path, nil
}

// GenerateCUE renders cfg as a config file that Load accepts.
func GenerateCUE(cfg *Config) string {
	var b strings.Builder
	b.WriteString("// mdcatalog configuration\n\n")
	lists := []struct {
		key    string
		values []string
	}{
		{"search_paths", cfg.SearchPaths},
		{"extensions", cfg.Extensions},
		{"fallback_paths", cfg.FallbackPaths},
	}
	for _, l := range lists {
		writeList(&b, l.key, l.values)
	}
	fmt.Fprintf(&b, "composition_framework: %q\n", cfg.CompositionFramework)
	writeList(&b, "known_non_composition", cfg.KnownNonComposition)
	writeList(&b, "force_scan", cfg.ForceScan)
	fmt.Fprintf(&b, "max_parallel: %d\nresolution_cache_size: %d\n", cfg.MaxParallel, cfg.ResolutionCacheSize)
	fmt.Fprintf(&b, "\nlog: {\n\tlevel: %q\n}\n", cfg.Log.Level)
	return b.String()
}

func writeList(b *strings.Builder, key string, values []string) {
	if len(values) == 0 {
		fmt.Fprintf(b, "%s: []\n", key)
		return
	}
	fmt.Fprintf(b, "%s: [\n", key)
	for _, v := range values {
		fmt.Fprintf(b, "\t%q,\n", v)
	}
	b.WriteString("]\n")
}
