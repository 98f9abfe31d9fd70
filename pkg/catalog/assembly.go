// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"errors"
	"fmt"

	"github.com/mdcatalog/mdcatalog/pkg/metadata"
)

const (
	// Canonical marker attribute type names.
	ExportAttribute          = "System.ComponentModel.Composition.ExportAttribute"
	InheritedExportAttribute = "System.ComponentModel.Composition.InheritedExportAttribute"
	ImportAttribute          = "System.ComponentModel.Composition.ImportAttribute"
	ImportManyAttribute      = "System.ComponentModel.Composition.ImportManyAttribute"
)

// StateUnscanned is the initial state of every Assembly.
const (
	StateUnscanned State = iota
	StateScanning
	StateScanned
	StateNotComposition
	StateFailed
)

// ErrInvalidTransition is returned when a state change would leave a
// terminal state or skip the scanning state.
var ErrInvalidTransition = errors.New("invalid assembly state transition")

type (
	// State is the lifecycle state of an Assembly.
	State uint8

	// Assembly is the scan result of one module.
	Assembly struct {
		path     string
		identity string
		state    State

		types map[metadata.Handle]*Type
		order []*Type

		exportMarkers    *MarkerSet
		importMarkers    *MarkerSet
		inheritedMarkers *MarkerSet
	}
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnscanned:
		return "unscanned"
	case StateScanning:
		return "scanning"
	case StateScanned:
		return "scanned"
	case StateNotComposition:
		return "not-composition"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s >= StateScanned
}

// NewAssembly returns an unscanned result for the module at path, with
// marker sets seeded with the canonical marker names.
func NewAssembly(path string) *Assembly {
	return &Assembly{
		path:             path,
		types:            make(map[metadata.Handle]*Type),
		exportMarkers:    NewMarkerSet(ExportAttribute, InheritedExportAttribute),
		importMarkers:    NewMarkerSet(ImportAttribute, ImportManyAttribute),
		inheritedMarkers: NewMarkerSet(InheritedExportAttribute),
	}
}

// Path returns the module file path.
func (a *Assembly) Path() string { return a.path }

// Identity returns the canonical identity, or "" until a scan succeeded.
func (a *Assembly) Identity() string { return a.identity }

// State returns the lifecycle state.
func (a *Assembly) State() State { return a.state }

// UsesCompositionModel reports whether the module was scanned successfully.
func (a *Assembly) UsesCompositionModel() bool { return a.state == StateScanned }

// ExportMarkers returns the export-or-derived marker names.
func (a *Assembly) ExportMarkers() *MarkerSet { return a.exportMarkers }

// ImportMarkers returns the import-or-derived marker names.
func (a *Assembly) ImportMarkers() *MarkerSet { return a.importMarkers }

// InheritedExportMarkers returns the subset of export markers that denote
// the inherited export variant.
func (a *Assembly) InheritedExportMarkers() *MarkerSet { return a.inheritedMarkers }

// Types returns the classified types in discovery order.
func (a *Assembly) Types() []*Type { return a.order }

// ExportedTypes returns the exported types in discovery order.
func (a *Assembly) ExportedTypes() []*Type {
	var out []*Type
	for _, t := range a.order {
		if t.IsExported() {
			out = append(out, t)
		}
	}
	return out
}

// Type returns the classified type with the given definition handle.
func (a *Assembly) Type(h metadata.Handle) (*Type, bool) {
	t, ok := a.types[h]
	return t, ok
}

// TypeFor returns the classified type for h, creating it under name on first
// use. Only the scan that owns the assembly may call it.
func (a *Assembly) TypeFor(h metadata.Handle, name string) *Type {
	if t, ok := a.types[h]; ok {
		return t
	}
	t := &Type{handle: h, name: name}
	a.types[h] = t
	a.order = append(a.order, t)
	return t
}

// SetIdentity records the canonical identity.
func (a *Assembly) SetIdentity(id string) { a.identity = id }

// Transition moves the assembly to the next state. Unscanned may move to
// Scanning or directly to a non-scanned terminal state; Scanning may move
// to any terminal state; terminal states never change. Entering a terminal
// state freezes the marker sets.
func (a *Assembly) Transition(to State) error {
	valid := false
	switch a.state {
	case StateUnscanned:
		valid = to == StateScanning || to == StateNotComposition || to == StateFailed
	case StateScanning:
		valid = to.IsTerminal()
	}
	if !valid {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.state, to)
	}
	a.state = to
	if to.IsTerminal() {
		a.exportMarkers.Freeze()
		a.importMarkers.Freeze()
		a.inheritedMarkers.Freeze()
	}
	return nil
}
