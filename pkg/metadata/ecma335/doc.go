// SPDX-License-Identifier: MPL-2.0

// Package ecma335 exposes the metadata tables of managed PE modules
// (ECMA-335 partition II) as a metadata.Reader.
//
// PE headers, metadata streams and table rows are decoded by
// github.com/saferwall/pe. This package resolves heap offsets and coded
// indices on top of those rows. Only the compressed table stream (#~) is
// supported; images with a #- stream or pointer tables are rejected as
// malformed.
package ecma335
