// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mdcatalog/mdcatalog/internal/discovery"
	"github.com/mdcatalog/mdcatalog/internal/locator"
)

const (
	// LogLevelDebug logs every scan and resolution step.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs progress of directory scans.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs unreadable modules and unresolved references.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs fatal scan failures only.
	LogLevelError LogLevel = "error"
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidExtension is the sentinel error wrapped by InvalidExtensionError.
	ErrInvalidExtension = errors.New("invalid file extension")
	// ErrInvalidLimit is the sentinel error wrapped by InvalidLimitError.
	ErrInvalidLimit = errors.New("invalid limit")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level of log records written to stderr.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// InvalidExtensionError is returned for an extension without a leading dot.
	InvalidExtensionError struct {
		Value string
	}

	// InvalidLimitError is returned for a negative numeric limit.
	InvalidLimitError struct {
		Field string
		Value int
	}

	// InvalidConfigError collects the field errors of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// SearchPaths lists directories probed, in order, for referenced modules.
		SearchPaths []string `json:"search_paths" mapstructure:"search_paths"`
		// Extensions lists the file extensions tried for each module name.
		Extensions []string `json:"extensions" mapstructure:"extensions"`
		// FallbackPaths lists global assembly cache roots.
		FallbackPaths []string `json:"fallback_paths" mapstructure:"fallback_paths"`
		// CompositionFramework is the simple name a module must reference to be scanned.
		CompositionFramework string `json:"composition_framework" mapstructure:"composition_framework"`
		// KnownNonComposition extends the built-in denylist.
		KnownNonComposition []string `json:"known_non_composition" mapstructure:"known_non_composition"`
		// ForceScan removes names from the built-in denylist.
		ForceScan []string `json:"force_scan" mapstructure:"force_scan"`
		// MaxParallel bounds concurrent scans; 0 uses GOMAXPROCS.
		MaxParallel int `json:"max_parallel" mapstructure:"max_parallel"`
		// ResolutionCacheSize bounds the identity resolution cache.
		ResolutionCacheSize int `json:"resolution_cache_size" mapstructure:"resolution_cache_size"`
		// Log configures logging.
		Log LogConfig `json:"log" mapstructure:"log"`

		// Source is the file the configuration was read from, empty for defaults.
		Source string `json:"-" mapstructure:"-"`
	}

	// LogConfig configures logging.
	LogConfig struct {
		Level LogLevel `json:"level" mapstructure:"level"`
	}
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Error implements the error interface.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// Error implements the error interface.
func (e *InvalidExtensionError) Error() string {
	return fmt.Sprintf("invalid extension %q (must start with a dot)", e.Value)
}

// Unwrap returns ErrInvalidExtension for errors.Is() compatibility.
func (e *InvalidExtensionError) Unwrap() error { return ErrInvalidExtension }

// Error implements the error interface.
func (e *InvalidLimitError) Error() string {
	return fmt.Sprintf("%s: %d must not be negative", e.Field, e.Value)
}

// Unwrap returns ErrInvalidLimit for errors.Is() compatibility.
func (e *InvalidLimitError) Unwrap() error { return ErrInvalidLimit }

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig and the field errors for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// IsValid checks the constraints environment overrides can break after the
// CUE schema has been applied to the file.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Log.Level.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			errs = append(errs, &InvalidExtensionError{Value: ext})
		}
	}
	if c.MaxParallel < 0 {
		errs = append(errs, &InvalidLimitError{Field: "max_parallel", Value: c.MaxParallel})
	}
	if c.ResolutionCacheSize < 0 {
		errs = append(errs, &InvalidLimitError{Field: "resolution_cache_size", Value: c.ResolutionCacheSize})
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SearchPaths:          []string{},
		Extensions:           append([]string(nil), locator.DefaultExtensions...),
		FallbackPaths:        gacRoots(),
		CompositionFramework: discovery.DefaultFramework,
		KnownNonComposition:  []string{},
		ForceScan:            []string{},
		MaxParallel:          0,
		ResolutionCacheSize:  locator.DefaultCacheSize,
		Log: LogConfig{
			Level: LogLevelInfo,
		},
	}
}

// gacRoots returns the global assembly cache roots under %WINDIR% that
// exist on this machine.
func gacRoots() []string {
	roots := []string{}
	windir := os.Getenv("WINDIR")
	if windir == "" {
		return roots
	}
	for _, root := range []string{
		filepath.Join(windir, "Microsoft.NET", "assembly", "GAC_MSIL"),
		filepath.Join(windir, "assembly", "GAC_MSIL"),
	} {
		if info, err := os.Stat(root); err == nil && info.IsDir() {
			roots = append(roots, root)
		}
	}
	return roots
}
