// SPDX-License-Identifier: MPL-2.0

package ecma335

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/saferwall/pe"
	pelog "github.com/saferwall/pe/log"

	"github.com/mdcatalog/mdcatalog/pkg/identity"
	"github.com/mdcatalog/mdcatalog/pkg/metadata"
)

const (
	metadataSignature = 0x424A5342 // "BSJB"

	// heap size flag announcing four extra bytes after the row counts
	heapExtraData = 0x40

	semanticsSetter = 0x0001
	semanticsGetter = 0x0002
)

// Reader serves the metadata tables of a managed PE module. Rows are
// decoded by saferwall/pe when the module is opened; heap lookups and
// coded indices are resolved on demand.
type Reader struct {
	heaps
	rowCounts [pe.GenericParamConstraint + 1]uint32

	assemblies   []pe.AssemblyTableRow
	assemblyRefs []pe.AssemblyRefTableRow
	typeRefs     []pe.TypeRefTableRow
	typeDefs     []pe.TypeDefTableRow
	memberRefs   []pe.MemberRefTableRow
	attributes   []pe.CustomAttributeTableRow
	semantics    []pe.MethodSemanticsTableRow

	accessorsOnce sync.Once
	accessors     map[uint32]metadata.PropertyAccessors
}

var _ metadata.Reader = (*Reader)(nil)

// Open implements metadata.OpenerFunc for PE files. The file is mapped
// only while its tables are decoded.
func Open(path string) (metadata.Reader, error) {
	diag := &parserLog{}
	f, err := pe.New(path, parseOptions(diag))
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w: %w", path, metadata.ErrBadFormat, err)
	}
	defer f.Close()

	r, err := load(f, diag)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Parse reads the metadata of the PE image held in data. It returns an error
// wrapping metadata.ErrNoMetadata when the image has no CLI header.
func Parse(data []byte) (*Reader, error) {
	diag := &parserLog{}
	// f borrows data and is never closed: Close unmaps.
	f, err := pe.NewBytes(data, parseOptions(diag))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", metadata.ErrBadFormat, err)
	}
	return load(f, diag)
}

// parseOptions limits parsing to the headers and the CLR directory.
func parseOptions(diag *parserLog) *pe.Options {
	return &pe.Options{
		DisableCertValidation:      true,
		DisableSignatureValidation: true,
		Logger:                     diag,
		OmitExportDirectory:        true,
		OmitImportDirectory:        true,
		OmitExceptionDirectory:     true,
		OmitResourceDirectory:      true,
		OmitSecurityDirectory:      true,
		OmitRelocDirectory:         true,
		OmitDebugDirectory:         true,
		OmitArchitectureDirectory:  true,
		OmitGlobalPtrDirectory:     true,
		OmitTLSDirectory:           true,
		OmitLoadConfigDirectory:    true,
		OmitBoundImportDirectory:   true,
		OmitIATDirectory:           true,
		OmitDelayImportDirectory:   true,
	}
}

// parserLog forwards parser diagnostics to slog at debug level. The parser
// reports a table it could not decode only through its logger, so the first
// warning is kept and fails the load.
type parserLog struct {
	failure string
}

func (l *parserLog) Log(level pelog.Level, keyvals ...any) error {
	slog.Debug("pe parser", append([]any{"parser_level", level.String()}, keyvals...)...)
	if level < pelog.LevelWarn || l.failure != "" {
		return nil
	}
	msg := logMessage(keyvals)
	// rich header damage does not reach the CLR directory
	if strings.HasPrefix(msg, "rich header") {
		return nil
	}
	l.failure = msg
	return nil
}

func logMessage(keyvals []any) string {
	for i := 0; i+1 < len(keyvals); i += 2 {
		if keyvals[i] == pelog.DefaultMessageKey {
			return fmt.Sprint(keyvals[i+1])
		}
	}
	return fmt.Sprint(keyvals...)
}

// load validates the CLR data of a parsed file and copies out the rows
// the reader serves.
func load(f *pe.File, diag *parserLog) (*Reader, error) {
	if err := f.Parse(); err != nil {
		return nil, fmt.Errorf("%w: %w", metadata.ErrBadFormat, err)
	}
	if !f.HasCLR {
		return nil, metadata.ErrNoMetadata
	}
	if diag.failure != "" {
		return nil, fmt.Errorf("%w: %s", metadata.ErrBadFormat, diag.failure)
	}

	clr := &f.CLR
	if clr.MetadataHeader.Signature != metadataSignature {
		return nil, fmt.Errorf("%w: missing metadata signature", metadata.ErrBadFormat)
	}
	if _, ok := clr.MetadataStreams["#-"]; ok {
		return nil, fmt.Errorf("%w: uncompressed metadata tables are not supported", metadata.ErrBadFormat)
	}
	if _, ok := clr.MetadataStreams["#~"]; !ok {
		return nil, fmt.Errorf("%w: no #~ stream", metadata.ErrBadFormat)
	}
	if clr.MetadataTables == nil {
		return nil, fmt.Errorf("%w: unreadable #~ header", metadata.ErrBadFormat)
	}
	header := clr.MetadataTablesStreamHeader
	if header.MaskValid>>(pe.GenericParamConstraint+1) != 0 {
		return nil, fmt.Errorf("%w: unknown table in #~ mask %#x", metadata.ErrBadFormat, header.MaskValid)
	}
	if header.Heaps&heapExtraData != 0 {
		return nil, fmt.Errorf("%w: extra #~ header data is not supported", metadata.ErrBadFormat)
	}

	r := &Reader{heaps: heaps{
		strings: bytes.Clone(clr.MetadataStreams["#Strings"]),
		blobs:   bytes.Clone(clr.MetadataStreams["#Blob"]),
	}}
	for index, table := range clr.MetadataTables {
		// A table the parser skipped leaves every later table misaligned.
		if table.Content == nil && table.CountCols > 0 {
			return nil, fmt.Errorf("%w: %s table could not be decoded", metadata.ErrBadFormat, table.Name)
		}
		r.rowCounts[index] = table.CountCols
	}

	var err error
	if r.assemblies, err = rowsOf[pe.AssemblyTableRow](clr, pe.Assembly); err != nil {
		return nil, err
	}
	if r.assemblyRefs, err = rowsOf[pe.AssemblyRefTableRow](clr, pe.AssemblyRef); err != nil {
		return nil, err
	}
	if r.typeRefs, err = rowsOf[pe.TypeRefTableRow](clr, pe.TypeRef); err != nil {
		return nil, err
	}
	if r.typeDefs, err = rowsOf[pe.TypeDefTableRow](clr, pe.TypeDef); err != nil {
		return nil, err
	}
	if r.memberRefs, err = rowsOf[pe.MemberRefTableRow](clr, pe.MemberRef); err != nil {
		return nil, err
	}
	if r.attributes, err = rowsOf[pe.CustomAttributeTableRow](clr, pe.CustomAttribute); err != nil {
		return nil, err
	}
	if r.semantics, err = rowsOf[pe.MethodSemanticsTableRow](clr, pe.MethodSemantics); err != nil {
		return nil, err
	}
	return r, nil
}

// rowsOf returns the decoded rows of one table, or nil when the module does
// not carry it.
func rowsOf[T any](clr *pe.CLRData, index int) ([]T, error) {
	table, ok := clr.MetadataTables[index]
	if !ok {
		return nil, nil
	}
	rows, ok := table.Content.([]T)
	if !ok || uint32(len(rows)) != table.CountCols {
		return nil, fmt.Errorf("%w: %s table holds %d of %d rows",
			metadata.ErrBadFormat, table.Name, len(rows), table.CountCols)
	}
	return rows, nil
}

func (r *Reader) rows(t metadata.Table) uint32 {
	if int(t) >= len(r.rowCounts) {
		return 0
	}
	return r.rowCounts[t]
}

// check verifies that h addresses an existing row of table t.
func (r *Reader) check(t metadata.Table, h metadata.Handle) error {
	if h.Table() != t {
		return metadata.Unsupported(t.String()+" lookup", h)
	}
	if h.IsNil() || h.Row() > r.rows(t) {
		return &metadata.RowNotFoundError{Handle: h}
	}
	return nil
}

func coded(k codedKind, t metadata.Table, row uint32, v uint32) (metadata.Handle, error) {
	h, ok := decodeCoded(k, v)
	if !ok {
		return 0, fmt.Errorf("%w: %s[%d]: bad coded index %#x", metadata.ErrBadFormat, t, row, v)
	}
	return h, nil
}

// Assembly implements metadata.Reader.
func (r *Reader) Assembly() (metadata.AssemblyDefinition, error) {
	if len(r.assemblies) == 0 {
		return metadata.AssemblyDefinition{}, fmt.Errorf("no assembly manifest: %w", metadata.ErrNoMetadata)
	}
	row := r.assemblies[0]
	key, err := r.blob(row.PublicKey)
	if err != nil {
		return metadata.AssemblyDefinition{}, err
	}
	name, err := r.str(row.Name)
	if err != nil {
		return metadata.AssemblyDefinition{}, err
	}
	culture, err := r.str(row.Culture)
	if err != nil {
		return metadata.AssemblyDefinition{}, err
	}
	return metadata.AssemblyDefinition{
		Name:      name,
		Version:   identity.Version{Major: row.MajorVersion, Minor: row.MinorVersion, Build: row.BuildNumber, Revision: row.RevisionNumber},
		Culture:   culture,
		PublicKey: key,
	}, nil
}

// AssemblyReferences implements metadata.Reader.
func (r *Reader) AssemblyReferences() ([]metadata.AssemblyReference, error) {
	out := make([]metadata.AssemblyReference, 0, len(r.assemblyRefs))
	for _, row := range r.assemblyRefs {
		key, err := r.blob(row.PublicKeyOrToken)
		if err != nil {
			return nil, err
		}
		name, err := r.str(row.Name)
		if err != nil {
			return nil, err
		}
		culture, err := r.str(row.Culture)
		if err != nil {
			return nil, err
		}
		out = append(out, metadata.AssemblyReference{
			Name:             name,
			Version:          identity.Version{Major: row.MajorVersion, Minor: row.MinorVersion, Build: row.BuildNumber, Revision: row.RevisionNumber},
			Culture:          culture,
			PublicKeyOrToken: key,
			Flags:            row.Flags,
		})
	}
	return out, nil
}

// TypeDefinitions implements metadata.Reader.
func (r *Reader) TypeDefinitions() []metadata.Handle {
	return handles(metadata.TableTypeDef, r.rows(metadata.TableTypeDef))
}

// TypeDefinition implements metadata.Reader.
func (r *Reader) TypeDefinition(h metadata.Handle) (metadata.TypeDefinition, error) {
	const t = metadata.TableTypeDef
	if err := r.check(t, h); err != nil {
		return metadata.TypeDefinition{}, err
	}
	row := r.typeDefs[h.Row()-1]
	name, err := r.str(row.TypeName)
	if err != nil {
		return metadata.TypeDefinition{}, err
	}
	ns, err := r.str(row.TypeNamespace)
	if err != nil {
		return metadata.TypeDefinition{}, err
	}
	base, err := coded(codedTypeDefOrRef, t, h.Row(), row.Extends)
	if err != nil {
		return metadata.TypeDefinition{}, err
	}
	return metadata.TypeDefinition{Namespace: ns, Name: name, BaseType: base}, nil
}

// TypeReference implements metadata.Reader.
func (r *Reader) TypeReference(h metadata.Handle) (metadata.TypeReference, error) {
	const t = metadata.TableTypeRef
	if err := r.check(t, h); err != nil {
		return metadata.TypeReference{}, err
	}
	row := r.typeRefs[h.Row()-1]
	scope, err := coded(codedResolutionScope, t, h.Row(), row.ResolutionScope)
	if err != nil {
		return metadata.TypeReference{}, err
	}
	name, err := r.str(row.TypeName)
	if err != nil {
		return metadata.TypeReference{}, err
	}
	ns, err := r.str(row.TypeNamespace)
	if err != nil {
		return metadata.TypeReference{}, err
	}
	return metadata.TypeReference{Namespace: ns, Name: name, ResolutionScope: scope}, nil
}

// CustomAttributes implements metadata.Reader.
func (r *Reader) CustomAttributes() []metadata.Handle {
	return handles(metadata.TableCustomAttribute, r.rows(metadata.TableCustomAttribute))
}

// CustomAttribute implements metadata.Reader.
func (r *Reader) CustomAttribute(h metadata.Handle) (metadata.CustomAttribute, error) {
	const t = metadata.TableCustomAttribute
	if err := r.check(t, h); err != nil {
		return metadata.CustomAttribute{}, err
	}
	row := r.attributes[h.Row()-1]
	parent, err := coded(codedHasCustomAttribute, t, h.Row(), row.Parent)
	if err != nil {
		return metadata.CustomAttribute{}, err
	}
	ctor, err := coded(codedCustomAttributeType, t, h.Row(), row.Type)
	if err != nil {
		return metadata.CustomAttribute{}, err
	}
	return metadata.CustomAttribute{Parent: parent, Constructor: ctor}, nil
}

// MemberReference implements metadata.Reader.
func (r *Reader) MemberReference(h metadata.Handle) (metadata.MemberReference, error) {
	const t = metadata.TableMemberRef
	if err := r.check(t, h); err != nil {
		return metadata.MemberReference{}, err
	}
	row := r.memberRefs[h.Row()-1]
	parent, err := coded(codedMemberRefParent, t, h.Row(), row.Class)
	if err != nil {
		return metadata.MemberReference{}, err
	}
	name, err := r.str(row.Name)
	if err != nil {
		return metadata.MemberReference{}, err
	}
	return metadata.MemberReference{Parent: parent, Name: name}, nil
}

// DeclaringType implements metadata.Reader. Owners are found through the
// FieldList and MethodList runs of the TypeDef table (II.22.37).
func (r *Reader) DeclaringType(member metadata.Handle) (metadata.Handle, error) {
	var start func(pe.TypeDefTableRow) uint32
	switch member.Table() {
	case metadata.TableField:
		start = func(row pe.TypeDefTableRow) uint32 { return row.FieldList }
	case metadata.TableMethodDef:
		start = func(row pe.TypeDefTableRow) uint32 { return row.MethodList }
	default:
		return 0, metadata.Unsupported("declaring type", member)
	}
	if err := r.check(member.Table(), member); err != nil {
		return 0, err
	}

	// first type whose run starts after the member; its predecessor owns it
	next := sort.Search(len(r.typeDefs), func(i int) bool {
		return start(r.typeDefs[i]) > member.Row()
	})
	if next == 0 {
		return 0, nil
	}
	return metadata.NewHandle(metadata.TableTypeDef, uint32(next)), nil
}

// PropertyAccessors implements metadata.Reader.
func (r *Reader) PropertyAccessors(h metadata.Handle) (metadata.PropertyAccessors, error) {
	if err := r.check(metadata.TableProperty, h); err != nil {
		return metadata.PropertyAccessors{}, err
	}
	r.accessorsOnce.Do(r.indexSemantics)
	return r.accessors[h.Row()], nil
}

// indexSemantics maps property rows to their getter and setter from the
// MethodSemantics table.
func (r *Reader) indexSemantics() {
	r.accessors = make(map[uint32]metadata.PropertyAccessors)
	for _, row := range r.semantics {
		assoc, ok := decodeCoded(codedHasSemantics, row.Association)
		if !ok || assoc.Table() != metadata.TableProperty || assoc.IsNil() {
			continue
		}
		method := metadata.NewHandle(metadata.TableMethodDef, row.Method)
		acc := r.accessors[assoc.Row()]
		switch {
		case row.Semantics&semanticsGetter != 0:
			acc.Getter = method
		case row.Semantics&semanticsSetter != 0:
			acc.Setter = method
		}
		r.accessors[assoc.Row()] = acc
	}
}

// Close implements metadata.Reader. The rows were copied at open, so there
// is nothing to release.
func (r *Reader) Close() error {
	return nil
}

func handles(t metadata.Table, n uint32) []metadata.Handle {
	out := make([]metadata.Handle, n)
	for i := range out {
		out[i] = metadata.NewHandle(t, uint32(i+1))
	}
	return out
}
