// SPDX-License-Identifier: MPL-2.0

package catalog

import (
	"github.com/mdcatalog/mdcatalog/pkg/metadata"
)

const (
	// MemberField is a field member.
	MemberField MemberKind = iota + 1
	// MemberProperty is a property member.
	MemberProperty
	// MemberMethod is a method member.
	MemberMethod
)

type (
	// MemberKind is the syntactic kind of a classified member.
	MemberKind uint8

	// Member is a field, property or method that carries an export or import
	// marker.
	Member struct {
		Kind          MemberKind
		DeclaringType metadata.Handle
		Handle        metadata.Handle
		owner         *Type
	}

	// Type is a module-local type that carries a marker itself or owns
	// members that do.
	Type struct {
		handle          metadata.Handle
		name            string
		exported        bool
		inheritedExport bool
		exportedMembers []*Member
		importedMembers []*Member
	}
)

// String returns the kind name.
func (k MemberKind) String() string {
	switch k {
	case MemberField:
		return "field"
	case MemberProperty:
		return "property"
	case MemberMethod:
		return "method"
	default:
		return "unknown"
	}
}

// Token returns the member's metadata token.
func (m *Member) Token() uint32 { return m.Handle.Token() }

// Owner returns the type whose list holds the member, or nil before the
// member has been added to one.
func (m *Member) Owner() *Type { return m.owner }

// Handle returns the type's definition handle.
func (t *Type) Handle() metadata.Handle { return t.handle }

// Token returns the type's metadata token.
func (t *Type) Token() uint32 { return t.handle.Token() }

// Name returns the full type name recorded when the type was classified.
func (t *Type) Name() string { return t.name }

// IsExported reports whether the type is exported, either through a
// type-level export marker or through an exported member.
func (t *Type) IsExported() bool { return t.exported }

// HasInheritedExport reports whether an inherited export marker was applied
// to the type. This is bookkeeping only and does not affect IsExported.
func (t *Type) HasInheritedExport() bool { return t.inheritedExport }

// ExportedMembers returns the exported members in discovery order.
func (t *Type) ExportedMembers() []*Member { return t.exportedMembers }

// ImportedMembers returns the imported members in discovery order.
func (t *Type) ImportedMembers() []*Member { return t.importedMembers }

// HasImportedMembers reports whether any member imports.
func (t *Type) HasImportedMembers() bool { return len(t.importedMembers) > 0 }

// MarkExported marks the type itself exported.
func (t *Type) MarkExported() { t.exported = true }

// MarkInheritedExport records an inherited export marker on the type.
func (t *Type) MarkInheritedExport() { t.inheritedExport = true }

// AddExportedMember appends m to the exported list and marks the type
// exported. It reports false when a member with the same handle is already
// listed.
func (t *Type) AddExportedMember(m *Member) bool {
	t.exported = true
	return t.add(&t.exportedMembers, m)
}

// AddImportedMember appends m to the imported list. It reports false when a
// member with the same handle is already listed.
func (t *Type) AddImportedMember(m *Member) bool {
	return t.add(&t.importedMembers, m)
}

func (t *Type) add(list *[]*Member, m *Member) bool {
	for _, existing := range *list {
		if existing.Handle == m.Handle {
			return false
		}
	}
	m.owner = t
	*list = append(*list, m)
	return true
}
