// SPDX-License-Identifier: MPL-2.0

// Package cueutil compiles CUE documents against an embedded schema and
// decodes them into Go values.
//
// Every CUE input of the tool (configuration files and module manifests)
// goes through the same three steps:
//
//  1. Compile the embedded schema and look up its root definition
//  2. Compile the user document and unify it with that definition
//  3. Validate and decode to a Go struct
//
// # Usage
//
//	//go:embed manifest_schema.cue
//	var schema []byte
//
//	result, err := cueutil.ParseFile[Manifest](schema, "Parts.cue", "#Manifest")
//	if err != nil {
//	    return nil, err // carries the file name and the CUE path of each failure
//	}
//	return result.Value, nil
package cueutil
