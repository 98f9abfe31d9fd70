// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors with user-facing guidance.
//
// An ActionableError carries the failed operation, the module or file
// involved and remediation hints. It may link one of the catalog issues,
// long-form Markdown explanations rendered through glamour.
package issue
