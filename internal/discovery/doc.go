// SPDX-License-Identifier: MPL-2.0

// Package discovery schedules module scans across the reference graph and
// caches their results.
//
// Scans run on a bounded worker pool. A scan that awaits its references
// gives its slot back while it waits, and a wait-for graph turns reference
// cycles into *dag.CycleError instead of a deadlock. Requests by identity
// consult the denylist before the resolver, so listed framework modules
// never cause file system access.
//
// File organization:
//   - discovery.go: Discovery, the per-path cache and the scan task
//   - references.go: reference fan-out, slot hand-off and cycle detection
//   - directory.go: ScanDirectory
//   - denylist.go: modules known not to use the composition model
//   - diagnostic.go: per-file diagnostics of directory scans
package discovery
