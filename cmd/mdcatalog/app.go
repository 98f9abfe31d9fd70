// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mdcatalog/mdcatalog/internal/config"
	"github.com/mdcatalog/mdcatalog/internal/discovery"
	"github.com/mdcatalog/mdcatalog/internal/locator"
	"github.com/mdcatalog/mdcatalog/pkg/metadata"
	"github.com/mdcatalog/mdcatalog/pkg/metadata/ecma335"
	"github.com/mdcatalog/mdcatalog/pkg/metadata/manifest"
)

type (
	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and builds a session from it.
	App struct {
		Config ConfigProvider
		Opener metadata.Opener
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config ConfigProvider
		Opener metadata.Opener
		Stdout io.Writer
		Stderr io.Writer
	}

	// globalFlags holds the persistent flags of the root command.
	globalFlags struct {
		configPath string
		verbose    bool
		paths      []string
	}

	// session holds the services built from one loaded configuration. A
	// session lives for one command invocation.
	session struct {
		cfg       *config.Config
		locator   *locator.Locator
		discovery *discovery.Discovery
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Opener == nil {
		deps.Opener = DefaultOpener()
	}
	return &App{
		Config: deps.Config,
		Opener: deps.Opener,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
}

// DefaultOpener reads PE modules with the ECMA-335 reader and *.cue files as
// module manifests.
func DefaultOpener() metadata.Opener {
	return &metadata.ExtensionOpener{
		Default: metadata.OpenerFunc(ecma335.Open),
		ByExtension: map[string]metadata.Opener{
			manifest.Extension: metadata.OpenerFunc(manifest.Open),
		},
	}
}

// loadConfig loads the configuration named by the global flags.
func (a *App) loadConfig(ctx context.Context, flags *globalFlags) (*config.Config, error) {
	return a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
}

// newSession loads the configuration, installs the logger and builds the
// locator and discovery services.
func (a *App) newSession(ctx context.Context, flags *globalFlags) (*session, error) {
	cfg, err := a.loadConfig(ctx, flags)
	if err != nil {
		return nil, err
	}
	installLogger(a.stderr, cfg.Log.Level, flags.verbose)

	dirs := append(append([]string(nil), flags.paths...), cfg.SearchPaths...)
	opts := []locator.Option{
		locator.WithExtensions(cfg.Extensions...),
		locator.WithCacheSize(cfg.ResolutionCacheSize),
	}
	if len(cfg.FallbackPaths) > 0 {
		opts = append(opts, locator.WithFallback(&locator.GACFallback{Roots: cfg.FallbackPaths}))
	}
	loc, err := locator.New(dirs, opts...)
	if err != nil {
		return nil, err
	}

	d := discovery.New(discovery.Config{
		Opener:      a.Opener,
		Resolver:    loc,
		Denylist:    discovery.NewDenylist(cfg.KnownNonComposition, cfg.ForceScan),
		Framework:   cfg.CompositionFramework,
		MaxParallel: cfg.MaxParallel,
	})
	return &session{cfg: cfg, locator: loc, discovery: d}, nil
}

// patterns returns the directory scan globs for the configured extensions.
func (s *session) patterns() []string {
	out := make([]string, len(s.cfg.Extensions))
	for i, ext := range s.cfg.Extensions {
		out[i] = "*" + ext
	}
	return out
}

// scanFile scans one module, registering its directory as a search path so
// that sibling modules resolve.
func (s *session) scanFile(ctx context.Context, path string) (*fileResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	s.locator.AddPath(filepath.Dir(abs))
	result, err := s.discovery.ScanPath(abs).Wait(ctx)
	if err != nil {
		return nil, err
	}
	return &fileResult{path: abs, assembly: result, cause: s.discovery.Cause(abs)}, nil
}

// scanDir scans every module of dir matching the configured extensions.
func (s *session) scanDir(ctx context.Context, dir string) (*discovery.DirectoryResult, error) {
	s.locator.AddPath(dir)
	return s.discovery.ScanDirectory(ctx, dir, s.patterns()...)
}
