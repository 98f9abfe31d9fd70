// SPDX-License-Identifier: MPL-2.0

// Package catalog holds the result model produced by a metadata scan: one
// Assembly per module, the composition-relevant Types it defines and the
// exported/imported Members of each type.
//
// Members are identified by metadata handles (tokens), not live symbols; a
// host binds them back using the same module the scan read. An Assembly is
// written by exactly one scan and becomes read-only once it reaches a
// terminal State.
package catalog
