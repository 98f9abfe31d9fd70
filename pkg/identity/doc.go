// SPDX-License-Identifier: MPL-2.0

// Package identity canonicalizes module identities.
//
// A module identity is rendered as
//
//	{name}, Version={major.minor.build.revision}, Culture={culture}, PublicKeyToken={token}
//
// which is the exact display name reported by the .NET loader. The string is
// used as a cache key and for matching references against definitions, so
// every producer in this module goes through Canonicalize.
//
// The package also holds the lowercase hex codec used for public key tokens.
package identity
