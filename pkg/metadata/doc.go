// SPDX-License-Identifier: MPL-2.0

// Package metadata defines the read-only view of a module's metadata tables
// that the scanner consumes.
//
// A Reader exposes exactly what classification needs: the assembly identity
// record, the assembly reference table, type definitions and references,
// custom attributes, member references, member ownership and property
// accessors. Handles are metadata tokens, so results can be bound back to
// symbols by any consumer holding the same module.
//
// Backends:
//   - Image / Builder: in-memory modules (fixtures, manifests)
//   - ecma335: PE files carrying ECMA-335 metadata
//   - manifest: CUE-described modules decoded into an Image
package metadata
