// SPDX-License-Identifier: MPL-2.0

package ecma335

import (
	"github.com/mdcatalog/mdcatalog/pkg/metadata"
)

// noTable fills unused coded index tags.
const noTable metadata.Table = 0xFF

// Coded index kinds read by the reader (II.24.2.6).
const (
	codedTypeDefOrRef codedKind = iota
	codedHasCustomAttribute
	codedMemberRefParent
	codedHasSemantics
	codedCustomAttributeType
	codedResolutionScope
)

type (
	codedKind uint8

	codedIndex struct {
		bits   uint
		tables []metadata.Table
	}
)

func tables(t ...metadata.Table) []metadata.Table { return t }

var codedIndices = [...]codedIndex{
	codedTypeDefOrRef: {bits: 2, tables: tables(metadata.TableTypeDef, metadata.TableTypeRef, metadata.TableTypeSpec)},
	codedHasCustomAttribute: {bits: 5, tables: tables(
		metadata.TableMethodDef, metadata.TableField, metadata.TableTypeRef, metadata.TableTypeDef,
		metadata.TableParam, metadata.TableInterfaceImpl, metadata.TableMemberRef, metadata.TableModule,
		metadata.TableDeclSecurity, metadata.TableProperty, metadata.TableEvent, metadata.TableStandAloneSig,
		metadata.TableModuleRef, metadata.TableTypeSpec, metadata.TableAssembly, metadata.TableAssemblyRef,
		metadata.TableFile, metadata.TableExportedType, metadata.TableManifestResource, metadata.TableGenericParam,
		metadata.TableGenericParamConstraint, metadata.TableMethodSpec,
	)},
	codedMemberRefParent:     {bits: 3, tables: tables(metadata.TableTypeDef, metadata.TableTypeRef, metadata.TableModuleRef, metadata.TableMethodDef, metadata.TableTypeSpec)},
	codedHasSemantics:        {bits: 1, tables: tables(metadata.TableEvent, metadata.TableProperty)},
	codedCustomAttributeType: {bits: 3, tables: tables(noTable, noTable, metadata.TableMethodDef, metadata.TableMemberRef, noTable)},
	codedResolutionScope:     {bits: 2, tables: tables(metadata.TableModule, metadata.TableModuleRef, metadata.TableAssemblyRef, metadata.TableTypeRef)},
}

// decodeCoded turns a raw coded index value into a handle. A zero row
// yields a nil handle; unused tags yield ok=false.
func decodeCoded(k codedKind, v uint32) (metadata.Handle, bool) {
	ci := codedIndices[k]
	tag := v & (1<<ci.bits - 1)
	row := v >> ci.bits
	if int(tag) >= len(ci.tables) || ci.tables[tag] == noTable {
		return 0, false
	}
	if row == 0 {
		return 0, true
	}
	return metadata.NewHandle(ci.tables[tag], row), true
}
