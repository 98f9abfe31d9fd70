// SPDX-License-Identifier: MPL-2.0

package metadata

import "fmt"

// Metadata table identifiers (ECMA-335 II.22). Only tables that a handle
// can point into are listed.
const (
	TableModule                 Table = 0x00
	TableTypeRef                Table = 0x01
	TableTypeDef                Table = 0x02
	TableField                  Table = 0x04
	TableMethodDef              Table = 0x06
	TableParam                  Table = 0x08
	TableInterfaceImpl          Table = 0x09
	TableMemberRef              Table = 0x0A
	TableConstant               Table = 0x0B
	TableCustomAttribute        Table = 0x0C
	TableDeclSecurity           Table = 0x0E
	TableStandAloneSig          Table = 0x11
	TableEvent                  Table = 0x14
	TableProperty               Table = 0x17
	TableMethodSemantics        Table = 0x18
	TableModuleRef              Table = 0x1A
	TableTypeSpec               Table = 0x1B
	TableAssembly               Table = 0x20
	TableAssemblyRef            Table = 0x23
	TableFile                   Table = 0x26
	TableExportedType           Table = 0x27
	TableManifestResource       Table = 0x28
	TableGenericParam           Table = 0x2A
	TableMethodSpec             Table = 0x2B
	TableGenericParamConstraint Table = 0x2C
)

type (
	// Table identifies a metadata table.
	Table uint8

	// Handle addresses one row of one metadata table inside a single module.
	// Its numeric value is the metadata token (table in the high byte, 1-based
	// row in the low 24 bits), so it can be handed to a host that resolves
	// tokens against the same module. Row 0 is the nil handle of its table.
	Handle uint32
)

var tableNames = map[Table]string{
	TableModule:                 "Module",
	TableTypeRef:                "TypeRef",
	TableTypeDef:                "TypeDef",
	TableField:                  "Field",
	TableMethodDef:              "MethodDef",
	TableParam:                  "Param",
	TableInterfaceImpl:          "InterfaceImpl",
	TableMemberRef:              "MemberRef",
	TableConstant:               "Constant",
	TableCustomAttribute:        "CustomAttribute",
	TableDeclSecurity:           "DeclSecurity",
	TableStandAloneSig:          "StandAloneSig",
	TableEvent:                  "Event",
	TableProperty:               "Property",
	TableMethodSemantics:        "MethodSemantics",
	TableModuleRef:              "ModuleRef",
	TableTypeSpec:               "TypeSpec",
	TableAssembly:               "Assembly",
	TableAssemblyRef:            "AssemblyRef",
	TableFile:                   "File",
	TableExportedType:           "ExportedType",
	TableManifestResource:       "ManifestResource",
	TableGenericParam:           "GenericParam",
	TableMethodSpec:             "MethodSpec",
	TableGenericParamConstraint: "GenericParamConstraint",
}

// String returns the ECMA-335 table name.
func (t Table) String() string {
	if name, ok := tableNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Table(0x%02x)", uint8(t))
}

// NewHandle builds the handle of a 1-based row in a table.
func NewHandle(t Table, row uint32) Handle {
	return Handle(uint32(t)<<24 | row&0x00FFFFFF)
}

// Table returns the table the handle points into.
func (h Handle) Table() Table {
	return Table(h >> 24)
}

// Row returns the 1-based row number.
func (h Handle) Row() uint32 {
	return uint32(h) & 0x00FFFFFF
}

// IsNil reports whether the handle points at no row.
func (h Handle) IsNil() bool {
	return h.Row() == 0
}

// Token returns the metadata token of the row.
func (h Handle) Token() uint32 {
	return uint32(h)
}

// String renders the handle as Table[row] for diagnostics.
func (h Handle) String() string {
	return fmt.Sprintf("%s[%d]", h.Table(), h.Row())
}
