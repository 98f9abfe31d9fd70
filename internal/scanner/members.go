// SPDX-License-Identifier: MPL-2.0

package scanner

import (
	"github.com/mdcatalog/mdcatalog/pkg/catalog"
	"github.com/mdcatalog/mdcatalog/pkg/metadata"
)

// member builds the classified member for a Field, Property or MethodDef
// handle and returns it with its declaring type.
func (s *Scanner) member(h metadata.Handle) (*catalog.Member, *catalog.Type, error) {
	var kind catalog.MemberKind
	owned := h
	switch h.Table() {
	case metadata.TableField:
		kind = catalog.MemberField
	case metadata.TableMethodDef:
		kind = catalog.MemberMethod
	case metadata.TableProperty:
		kind = catalog.MemberProperty
		acc, err := s.reader.PropertyAccessors(h)
		if err != nil {
			return nil, nil, err
		}
		owned = acc.Getter
		if owned.IsNil() {
			owned = acc.Setter
		}
		if owned.IsNil() {
			return nil, nil, &ContractError{Op: "resolve property accessor", Handle: h, Err: ErrMissingDeclaringType}
		}
	default:
		return nil, nil, metadata.Unsupported("member", h)
	}

	decl, err := s.reader.DeclaringType(owned)
	if err != nil {
		return nil, nil, err
	}
	if decl.IsNil() {
		return nil, nil, &ContractError{Op: "resolve declaring type", Handle: h, Err: ErrMissingDeclaringType}
	}
	name, err := metadata.FullTypeName(s.reader, decl)
	if err != nil {
		return nil, nil, err
	}

	m := &catalog.Member{Kind: kind, DeclaringType: decl, Handle: h}
	return m, s.result.TypeFor(decl, name), nil
}
