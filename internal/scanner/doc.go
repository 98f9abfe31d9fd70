// SPDX-License-Identifier: MPL-2.0

// Package scanner classifies the types and members of one module that carry
// composition marker attributes, reading only its metadata tables.
//
// A scan first merges the marker vocabulary of every referenced module, then
// learns which local attribute types derive from a known marker, and finally
// classifies each custom attribute by its target. Read errors are returned
// as-is; violations of the classifier's contract are returned as
// *ContractError and must not be mistaken for an unreadable module.
package scanner
