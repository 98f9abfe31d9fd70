// SPDX-License-Identifier: MPL-2.0

// Package locator resolves module identities to file paths.
package locator
