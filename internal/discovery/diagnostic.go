// SPDX-License-Identifier: MPL-2.0

package discovery

import "github.com/mdcatalog/mdcatalog/pkg/catalog"

const (
	// SeverityWarning indicates a module that was skipped.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a module whose scan failed fatally.
	SeverityError Severity = "error"

	// CodeModuleUnreadable is reported for files that could not be opened or
	// whose metadata is malformed.
	CodeModuleUnreadable = "module_unreadable"
	// CodeScanFailed is reported for fatal classification or cycle errors.
	CodeScanFailed = "scan_failed"
)

type (
	// Severity represents discovery diagnostic severity.
	Severity string

	// Diagnostic describes a module that did not produce a result during a
	// directory scan. Diagnostics are returned to callers rather than
	// logged so the CLI decides how to render them.
	Diagnostic struct {
		// Severity is the diagnostic level (warning or error).
		Severity Severity
		// Code is a machine-readable identifier (e.g., "module_unreadable").
		Code string
		// Message is the human-readable description.
		Message string
		// Path is the module file path.
		Path string
		// Cause is the underlying error.
		Cause error
	}

	// DirectoryResult bundles the composition modules of a directory with
	// diagnostics for the files that were skipped or failed.
	DirectoryResult struct {
		Dir         string
		Assemblies  []*catalog.Assembly
		Diagnostics []Diagnostic
	}
)
