// SPDX-License-Identifier: MPL-2.0

package scanner

import (
	"errors"

	"github.com/mdcatalog/mdcatalog/pkg/metadata"
)

// classifyTypes extends the working marker sets with every local type whose
// base chain reaches a known marker.
func (s *Scanner) classifyTypes() error {
	for _, h := range s.reader.TypeDefinitions() {
		if err := s.walkBaseChain(h); err != nil {
			return err
		}
	}
	return nil
}

// walkBaseChain follows the base types of h one step at a time. The first
// base that is a known marker makes h a marker of the same kind. Local bases
// are followed further; referenced bases are checked but not followed;
// type specifications and the end of the chain stop the walk.
func (s *Scanner) walkBaseChain(h metadata.Handle) error {
	name, err := metadata.FullTypeName(s.reader, h)
	if err != nil {
		return err
	}

	exports := s.result.ExportMarkers()
	imports := s.result.ImportMarkers()
	inherited := s.result.InheritedExportMarkers()

	visited := map[metadata.Handle]bool{}
	cur := h
	for !visited[cur] {
		visited[cur] = true

		def, err := s.reader.TypeDefinition(cur)
		if err != nil {
			return err
		}
		base := def.BaseType
		if base.IsNil() {
			return nil
		}
		switch base.Table() {
		case metadata.TableTypeDef, metadata.TableTypeRef:
		default:
			return nil
		}

		baseName, err := metadata.FullTypeName(s.reader, base)
		if err != nil {
			return err
		}
		if exports.Contains(baseName) {
			exports.Add(name)
			if inherited.Contains(baseName) {
				inherited.Add(name)
			}
			return nil
		}
		if imports.Contains(baseName) {
			imports.Add(name)
			return nil
		}
		if base.Table() == metadata.TableTypeRef {
			return nil
		}
		cur = base
	}
	return nil
}

// isImportMarker reports whether the attribute type h is an import marker.
func (s *Scanner) isImportMarker(h metadata.Handle) (bool, error) {
	if v, ok := s.imports[h]; ok {
		return v, nil
	}
	name, ok, err := s.attributeName(h)
	if err != nil {
		return false, err
	}
	v := ok && s.result.ImportMarkers().Contains(name)
	s.imports[h] = v
	return v, nil
}

// exportMarker reports whether the attribute type h is an export marker and
// whether it denotes the inherited variant.
func (s *Scanner) exportMarker(h metadata.Handle) (exportMatch, error) {
	if v, ok := s.exports[h]; ok {
		return v, nil
	}
	name, ok, err := s.attributeName(h)
	if err != nil {
		return exportMatch{}, err
	}
	var v exportMatch
	if ok && s.result.ExportMarkers().Contains(name) {
		v.matched = true
		v.inherited = s.result.InheritedExportMarkers().Contains(name)
	}
	s.exports[h] = v
	return v, nil
}

// attributeName returns the full name of an attribute type. Attribute types
// that are type specifications have no plain name and never match.
func (s *Scanner) attributeName(h metadata.Handle) (string, bool, error) {
	name, err := metadata.FullTypeName(s.reader, h)
	if errors.Is(err, metadata.ErrUnsupportedHandle) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}
