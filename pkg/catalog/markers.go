// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// MarkerSet is a set of full attribute type names recognized as composition
// markers. It accepts additions until Freeze is called; afterwards it is
// read-only and may be shared between goroutines.
type MarkerSet struct {
	names  map[string]struct{}
	frozen bool
}

// NewMarkerSet returns a mutable set seeded with the given names.
func NewMarkerSet(seed ...string) *MarkerSet {
	s := &MarkerSet{names: make(map[string]struct{}, len(seed))}
	for _, name := range seed {
		s.names[name] = struct{}{}
	}
	return s
}

// Add inserts name and reports whether the set grew. Adding to a frozen set
// is a no-op.
func (s *MarkerSet) Add(name string) bool {
	if s.frozen {
		return false
	}
	if _, ok := s.names[name]; ok {
		return false
	}
	s.names[name] = struct{}{}
	return true
}

// Union adds every name of other.
func (s *MarkerSet) Union(other *MarkerSet) {
	if other == nil {
		return
	}
	for name := range other.names {
		s.Add(name)
	}
}

// Contains reports whether name is a member. Type names compare ordinally.
func (s *MarkerSet) Contains(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.names[name]
	return ok
}

// Len returns the number of names.
func (s *MarkerSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Names returns the names in sorted order.
func (s *MarkerSet) Names() []string {
	if s == nil {
		return nil
	}
	names := maps.Keys(s.names)
	slices.Sort(names)
	return names
}

// Freeze makes the set read-only.
func (s *MarkerSet) Freeze() {
	s.frozen = true
}

// Frozen reports whether Freeze has been called.
func (s *MarkerSet) Frozen() bool {
	return s.frozen
}
