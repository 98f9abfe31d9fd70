// SPDX-License-Identifier: MPL-2.0

// Package report snapshots scan results into a sorted, serializable form and
// renders it as a plain-text composition dump, a markdown document or TOML.
package report
