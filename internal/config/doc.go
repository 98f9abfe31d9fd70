// SPDX-License-Identifier: MPL-2.0

// Package config handles application configuration using Viper with CUE as the file format.
//
// Configuration is loaded from <user config dir>/mdcatalog/config.cue, or
// config.cue in the working directory, and validated against the embedded
// config_schema.cue. Environment variables prefixed with MDCATALOG_ override
// file values. The configuration drives module search paths, the
// composition framework name, the non-composition denylist, scan
// parallelism, the resolution cache and the log level.
package config
