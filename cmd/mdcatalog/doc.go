// SPDX-License-Identifier: MPL-2.0

// Package cmd implements the mdcatalog command line: scanning modules for
// composition parts, dumping per-type exports and imports, resolving module
// identities, showing the reference graph and managing configuration.
//
// Commands are built around an App, which holds the configuration provider
// and the metadata opener. Each invocation loads the configuration into a
// session that owns a locator and a discovery cache.
package cmd
