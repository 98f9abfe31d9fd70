// SPDX-License-Identifier: MPL-2.0

package ecma335

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	pelog "github.com/saferwall/pe/log"

	"github.com/mdcatalog/mdcatalog/pkg/identity"
	"github.com/mdcatalog/mdcatalog/pkg/metadata"
)

const (
	sectionRVA    = 0x2000
	sectionOffset = 0x200
	cliHeaderSize = 72

	tablePropertyMap metadata.Table = 0x15
	tableFieldPtr    metadata.Table = 0x03
)

var ecmaKey = identity.HexToBytes("00000000000000000400000000000000")

// columnWidths gives the cell sizes of the tables the writer emits. Heaps
// and row counts stay small, so every index is two bytes.
var columnWidths = map[metadata.Table][]int{
	metadata.TableModule:          {2, 2, 2, 2, 2},
	metadata.TableTypeRef:         {2, 2, 2},
	metadata.TableTypeDef:         {4, 2, 2, 2, 2, 2},
	tableFieldPtr:                 {2},
	metadata.TableField:           {2, 2, 2},
	metadata.TableMethodDef:       {4, 2, 2, 2, 2, 2},
	metadata.TableParam:           {2, 2, 2},
	metadata.TableMemberRef:       {2, 2, 2},
	metadata.TableCustomAttribute: {2, 2, 2},
	tablePropertyMap:              {2, 2},
	metadata.TableProperty:        {2, 2, 2},
	metadata.TableMethodSemantics: {2, 2, 2},
	metadata.TableAssembly:        {4, 2, 2, 2, 2, 4, 2, 2, 2},
	metadata.TableAssemblyRef:     {2, 2, 2, 2, 4, 2, 2, 2, 2},
}

// moduleWriter assembles a minimal managed PE image for tests.
type moduleWriter struct {
	strs   []byte
	strIdx map[string]uint32
	blobs  []byte
	rows   [64][][]uint32

	// noCLI omits the CLI data directory.
	noCLI bool
	// signature replaces the metadata root signature when set.
	signature uint32
	// extraStream is appended to the stream list when set.
	extraStream string
	// rowOverride replaces a table's row count in the #~ header.
	rowOverride map[metadata.Table]uint32
}

func newModuleWriter() *moduleWriter {
	return &moduleWriter{
		strs:   []byte{0},
		strIdx: map[string]uint32{"": 0},
		blobs:  []byte{0},
	}
}

func (w *moduleWriter) str(s string) uint32 {
	if i, ok := w.strIdx[s]; ok {
		return i
	}
	i := uint32(len(w.strs))
	w.strs = append(append(w.strs, s...), 0)
	w.strIdx[s] = i
	return i
}

func (w *moduleWriter) blob(b []byte) uint32 {
	i := uint32(len(w.blobs))
	w.blobs = append(append(w.blobs, byte(len(b))), b...)
	return i
}

func (w *moduleWriter) add(t metadata.Table, cells ...uint32) metadata.Handle {
	w.rows[t] = append(w.rows[t], cells)
	return metadata.NewHandle(t, uint32(len(w.rows[t])))
}

func encode(k codedKind, h metadata.Handle) uint32 {
	ci := codedIndices[k]
	for tag, t := range ci.tables {
		if t == h.Table() {
			return h.Row()<<ci.bits | uint32(tag)
		}
	}
	panic("table not in coded index: " + h.String())
}

func pad4(b []byte) []byte {
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

func (w *moduleWriter) tableStream() []byte {
	var valid uint64
	for t := range w.rows {
		if len(w.rows[t]) > 0 {
			valid |= 1 << t
		}
	}

	var buf bytes.Buffer
	le := binary.LittleEndian
	buf.Write([]byte{0, 0, 0, 0, 2, 0, 0, 1})
	_ = binary.Write(&buf, le, valid)
	_ = binary.Write(&buf, le, uint64(0))
	for t := range w.rows {
		if len(w.rows[t]) == 0 {
			continue
		}
		n := uint32(len(w.rows[t]))
		if o, ok := w.rowOverride[metadata.Table(t)]; ok {
			n = o
		}
		_ = binary.Write(&buf, le, n)
	}
	for t, table := range w.rows {
		widths := columnWidths[metadata.Table(t)]
		for _, row := range table {
			for c, v := range row {
				if widths[c] == 2 {
					_ = binary.Write(&buf, le, uint16(v))
				} else {
					_ = binary.Write(&buf, le, v)
				}
			}
		}
	}
	return pad4(buf.Bytes())
}

func (w *moduleWriter) metadataRoot() []byte {
	type stream struct {
		name string
		data []byte
	}
	streams := []stream{
		{"#~", w.tableStream()},
		{"#Strings", pad4(w.strs)},
		{"#Blob", pad4(w.blobs)},
	}
	if w.extraStream != "" {
		streams = append(streams, stream{w.extraStream, []byte{0, 0, 0, 0}})
	}

	version := pad4([]byte("v4.0.30319\x00"))
	headerSize := 16 + len(version) + 4
	for _, s := range streams {
		headerSize += 8 + len(pad4(append([]byte(s.name), 0)))
	}

	var buf bytes.Buffer
	le := binary.LittleEndian
	signature := uint32(metadataSignature)
	if w.signature != 0 {
		signature = w.signature
	}
	_ = binary.Write(&buf, le, signature)
	_ = binary.Write(&buf, le, [2]uint16{1, 1})
	_ = binary.Write(&buf, le, uint32(0))
	_ = binary.Write(&buf, le, uint32(len(version)))
	buf.Write(version)
	_ = binary.Write(&buf, le, [2]uint16{0, uint16(len(streams))})

	offset := headerSize
	for _, s := range streams {
		_ = binary.Write(&buf, le, [2]uint32{uint32(offset), uint32(len(s.data))})
		buf.Write(pad4(append([]byte(s.name), 0)))
		offset += len(s.data)
	}
	for _, s := range streams {
		buf.Write(s.data)
	}
	return buf.Bytes()
}

func (w *moduleWriter) bytes() []byte {
	root := w.metadataRoot()
	var section bytes.Buffer
	le := binary.LittleEndian
	_ = binary.Write(&section, le, uint32(cliHeaderSize))
	_ = binary.Write(&section, le, [2]uint16{2, 5})
	_ = binary.Write(&section, le, [2]uint32{sectionRVA + cliHeaderSize, uint32(len(root))})
	section.Write(make([]byte, cliHeaderSize-16))
	section.Write(root)

	var out bytes.Buffer
	dos := make([]byte, 0x80)
	copy(dos, "MZ")
	le.PutUint32(dos[0x3c:], 0x80)
	out.Write(dos)
	out.WriteString("PE\x00\x00")
	_ = binary.Write(&out, le, pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_I386,
		NumberOfSections:     1,
		SizeOfOptionalHeader: uint16(binary.Size(pe.OptionalHeader32{})),
		Characteristics:      pe.IMAGE_FILE_EXECUTABLE_IMAGE | pe.IMAGE_FILE_DLL,
	})
	oh := pe.OptionalHeader32{
		Magic:               0x10b,
		SectionAlignment:    0x2000,
		FileAlignment:       0x200,
		NumberOfRvaAndSizes: 16,
	}
	if !w.noCLI {
		oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_COM_DESCRIPTOR] = pe.DataDirectory{
			VirtualAddress: sectionRVA,
			Size:           cliHeaderSize,
		}
	}
	_ = binary.Write(&out, le, oh)
	sh := pe.SectionHeader32{
		VirtualSize:      uint32(section.Len()),
		VirtualAddress:   sectionRVA,
		SizeOfRawData:    uint32(section.Len()),
		PointerToRawData: sectionOffset,
		Characteristics:  pe.IMAGE_SCN_CNT_CODE | pe.IMAGE_SCN_MEM_READ,
	}
	copy(sh.Name[:], ".text")
	_ = binary.Write(&out, le, sh)
	out.Write(make([]byte, sectionOffset-out.Len()))
	out.Write(section.Bytes())
	return out.Bytes()
}

// partsModule writes a module with an exported type, a derived type, a
// property with both accessors and an attributed constructor parameter.
func partsModule() *moduleWriter {
	w := newModuleWriter()
	w.add(metadata.TableModule, 0, w.str("Parts.dll"), 0, 0, 0)
	w.add(metadata.TableAssembly, 0x8004, 1, 2, 3, 4, 0x0001, w.blob(ecmaKey), w.str("Parts"), 0)
	mef := w.add(metadata.TableAssemblyRef, 4, 0, 0, 0, 0,
		w.blob(identity.HexToBytes("b77a5c561934e089")), w.str("System.ComponentModel.Composition"), 0, 0)
	export := w.add(metadata.TableTypeRef, encode(codedResolutionScope, mef), w.str("ExportAttribute"), w.str("System.ComponentModel.Composition"))

	// <Module>, Widget (field 1, methods 1-2), Derived (method 3)
	w.add(metadata.TableTypeDef, 0, w.str("<Module>"), 0, 0, 1, 1)
	widget := w.add(metadata.TableTypeDef, 0x100001, w.str("Widget"), w.str("Parts"), 0, 1, 1)
	w.add(metadata.TableTypeDef, 0x100001, w.str("Derived"), w.str("Parts"), encode(codedTypeDefOrRef, widget), 2, 3)

	w.add(metadata.TableField, 0x0001, w.str("clock"), w.blob([]byte{0x06, 0x08}))
	getter := w.add(metadata.TableMethodDef, 0, 0, 0x0886, w.str("get_Logger"), w.blob([]byte{0x20, 0, 0x1c}), 1)
	setter := w.add(metadata.TableMethodDef, 0, 0, 0x0886, w.str("set_Logger"), w.blob([]byte{0x20, 1, 0x01, 0x1c}), 1)
	ctor := w.add(metadata.TableMethodDef, 0, 0, 0x1886, w.str(".ctor"), w.blob([]byte{0x20, 1, 0x01, 0x1c}), 1)
	param := w.add(metadata.TableParam, 0, 1, w.str("clock"))

	w.add(tablePropertyMap, widget.Row(), 1)
	logger := w.add(metadata.TableProperty, 0, w.str("Logger"), w.blob([]byte{0x28, 0, 0x1c}))
	w.add(metadata.TableMethodSemantics, semanticsGetter, getter.Row(), encode(codedHasSemantics, logger))
	w.add(metadata.TableMethodSemantics, semanticsSetter, setter.Row(), encode(codedHasSemantics, logger))

	exportCtor := w.add(metadata.TableMemberRef, encode(codedMemberRefParent, export), w.str(".ctor"), w.blob([]byte{0x20, 0, 0x01}))
	w.add(metadata.TableCustomAttribute, encode(codedHasCustomAttribute, widget), encode(codedCustomAttributeType, exportCtor), w.blob([]byte{1, 0, 0, 0}))
	w.add(metadata.TableCustomAttribute, encode(codedHasCustomAttribute, logger), encode(codedCustomAttributeType, exportCtor), w.blob([]byte{1, 0, 0, 0}))
	w.add(metadata.TableCustomAttribute, encode(codedHasCustomAttribute, param), encode(codedCustomAttributeType, ctor), w.blob([]byte{1, 0, 0, 0}))
	return w
}

func TestParse_Module(t *testing.T) {
	t.Parallel()

	r, err := Parse(partsModule().bytes())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	defer r.Close()

	asm, err := r.Assembly()
	if err != nil {
		t.Fatalf("Assembly() error = %v", err)
	}
	if asm.Name != "Parts" || asm.Version != (identity.Version{Major: 1, Minor: 2, Build: 3, Revision: 4}) {
		t.Errorf("Assembly() = %+v", asm)
	}
	if !bytes.Equal(asm.PublicKey, ecmaKey) {
		t.Errorf("PublicKey = %x", asm.PublicKey)
	}
	id, err := metadata.AssemblyIdentity(r)
	if err != nil {
		t.Fatalf("AssemblyIdentity() error = %v", err)
	}
	if want := "Parts, Version=1.2.3.4, Culture=neutral, PublicKeyToken=b77a5c561934e089"; id != want {
		t.Errorf("AssemblyIdentity() = %q, want %q", id, want)
	}

	refs, err := metadata.ReferenceIdentities(r)
	if err != nil {
		t.Fatalf("ReferenceIdentities() error = %v", err)
	}
	if want := "System.ComponentModel.Composition, Version=4.0.0.0, Culture=neutral, PublicKeyToken=b77a5c561934e089"; len(refs) != 1 || refs[0] != want {
		t.Errorf("ReferenceIdentities() = %v", refs)
	}

	if got := len(r.TypeDefinitions()); got != 3 {
		t.Fatalf("len(TypeDefinitions()) = %d, want 3", got)
	}
	derived, err := r.TypeDefinition(metadata.NewHandle(metadata.TableTypeDef, 3))
	if err != nil {
		t.Fatalf("TypeDefinition() error = %v", err)
	}
	if derived.Namespace != "Parts" || derived.Name != "Derived" || derived.BaseType != metadata.NewHandle(metadata.TableTypeDef, 2) {
		t.Errorf("TypeDefinition(Derived) = %+v", derived)
	}
	module, err := r.TypeDefinition(metadata.NewHandle(metadata.TableTypeDef, 1))
	if err != nil {
		t.Fatalf("TypeDefinition() error = %v", err)
	}
	if !module.BaseType.IsNil() {
		t.Errorf("<Module> base = %v, want nil", module.BaseType)
	}
}

func TestParse_Attributes(t *testing.T) {
	t.Parallel()

	r, err := Parse(partsModule().bytes())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	wantParents := []metadata.Handle{
		metadata.NewHandle(metadata.TableTypeDef, 2),
		metadata.NewHandle(metadata.TableProperty, 1),
		metadata.NewHandle(metadata.TableParam, 1),
	}
	attrs := r.CustomAttributes()
	if len(attrs) != len(wantParents) {
		t.Fatalf("len(CustomAttributes()) = %d", len(attrs))
	}
	for i, h := range attrs {
		ca, err := r.CustomAttribute(h)
		if err != nil {
			t.Fatalf("CustomAttribute(%v) error = %v", h, err)
		}
		if ca.Parent != wantParents[i] {
			t.Errorf("attribute %d parent = %v, want %v", i, ca.Parent, wantParents[i])
		}
	}

	ca, _ := r.CustomAttribute(attrs[0])
	typ, err := metadata.AttributeType(r, ca)
	if err != nil {
		t.Fatalf("AttributeType() error = %v", err)
	}
	name, err := metadata.FullTypeName(r, typ)
	if err != nil {
		t.Fatalf("FullTypeName() error = %v", err)
	}
	if name != "System.ComponentModel.Composition.ExportAttribute" {
		t.Errorf("attribute type = %q", name)
	}

	ca, _ = r.CustomAttribute(attrs[2])
	if typ, err = metadata.AttributeType(r, ca); err != nil || typ != metadata.NewHandle(metadata.TableTypeDef, 3) {
		t.Errorf("AttributeType(method ctor) = %v, %v; want TypeDef[3]", typ, err)
	}
}

func TestReader_DeclaringType(t *testing.T) {
	t.Parallel()

	r, err := Parse(partsModule().bytes())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	tests := []struct {
		member  metadata.Handle
		want    metadata.Handle
		wantErr error
	}{
		{member: metadata.NewHandle(metadata.TableField, 1), want: metadata.NewHandle(metadata.TableTypeDef, 2)},
		{member: metadata.NewHandle(metadata.TableMethodDef, 1), want: metadata.NewHandle(metadata.TableTypeDef, 2)},
		{member: metadata.NewHandle(metadata.TableMethodDef, 2), want: metadata.NewHandle(metadata.TableTypeDef, 2)},
		{member: metadata.NewHandle(metadata.TableMethodDef, 3), want: metadata.NewHandle(metadata.TableTypeDef, 3)},
		{member: metadata.NewHandle(metadata.TableMethodDef, 9), wantErr: metadata.ErrRowNotFound},
		{member: metadata.NewHandle(metadata.TableParam, 1), wantErr: metadata.ErrUnsupportedHandle},
	}
	for _, tt := range tests {
		got, err := r.DeclaringType(tt.member)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DeclaringType(%v) error = %v, want %v", tt.member, err, tt.wantErr)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("DeclaringType(%v) = %v, %v; want %v", tt.member, got, err, tt.want)
		}
	}
}

func TestReader_PropertyAccessors(t *testing.T) {
	t.Parallel()

	r, err := Parse(partsModule().bytes())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	acc, err := r.PropertyAccessors(metadata.NewHandle(metadata.TableProperty, 1))
	if err != nil {
		t.Fatalf("PropertyAccessors() error = %v", err)
	}
	if acc.Getter != metadata.NewHandle(metadata.TableMethodDef, 1) || acc.Setter != metadata.NewHandle(metadata.TableMethodDef, 2) {
		t.Errorf("PropertyAccessors() = %+v", acc)
	}
	if _, err := r.PropertyAccessors(metadata.NewHandle(metadata.TableProperty, 2)); !errors.Is(err, metadata.ErrRowNotFound) {
		t.Errorf("missing property error = %v", err)
	}
}

func TestReader_LookupErrors(t *testing.T) {
	t.Parallel()

	r, err := Parse(partsModule().bytes())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if _, err := r.TypeDefinition(metadata.NewHandle(metadata.TableTypeDef, 9)); !errors.Is(err, metadata.ErrRowNotFound) {
		t.Errorf("TypeDefinition(missing) error = %v", err)
	}
	if _, err := r.TypeDefinition(metadata.NewHandle(metadata.TableTypeRef, 1)); !errors.Is(err, metadata.ErrUnsupportedHandle) {
		t.Errorf("TypeDefinition(TypeRef) error = %v", err)
	}
	if _, err := r.MemberReference(metadata.NewHandle(metadata.TableMemberRef, 0)); !errors.Is(err, metadata.ErrRowNotFound) {
		t.Errorf("MemberReference(nil) error = %v", err)
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	noAssembly := partsModule()
	noAssembly.rows[metadata.TableAssembly] = nil

	noCLI := partsModule()
	noCLI.noCLI = true

	uncompressed := partsModule()
	uncompressed.extraStream = "#-"

	oversized := partsModule()
	oversized.rowOverride = map[metadata.Table]uint32{metadata.TableTypeDef: 5000}

	// small enough to be decoded, large enough to run past the end of the file
	truncated := partsModule()
	truncated.rowOverride = map[metadata.Table]uint32{
		metadata.TableMemberRef: uint32(len(partsModule().bytes()) / 6),
	}

	pointerTable := partsModule()
	pointerTable.add(tableFieldPtr, 1)

	badSignature := partsModule()
	badSignature.signature = 0x12345678

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "not a PE file", data: []byte("hello, world"), wantErr: metadata.ErrBadFormat},
		{name: "native image", data: noCLI.bytes(), wantErr: metadata.ErrNoMetadata},
		{name: "uncompressed tables", data: uncompressed.bytes(), wantErr: metadata.ErrBadFormat},
		{name: "unrealistic row count", data: oversized.bytes(), wantErr: metadata.ErrBadFormat},
		{name: "tables exceed file", data: truncated.bytes(), wantErr: metadata.ErrBadFormat},
		{name: "pointer table", data: pointerTable.bytes(), wantErr: metadata.ErrBadFormat},
		{name: "bad signature", data: badSignature.bytes(), wantErr: metadata.ErrBadFormat},
		{name: "empty", data: nil, wantErr: metadata.ErrBadFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Parse(tt.data); !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("netmodule without assembly", func(t *testing.T) {
		t.Parallel()
		r, err := Parse(noAssembly.bytes())
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if _, err := r.Assembly(); !errors.Is(err, metadata.ErrNoMetadata) {
			t.Errorf("Assembly() error = %v", err)
		}
	})
}

func TestParserLog(t *testing.T) {
	t.Parallel()

	var l parserLog
	_ = l.Log(pelog.LevelDebug, pelog.DefaultMessageKey, "coff symbols parsing failed")
	_ = l.Log(pelog.LevelError, pelog.DefaultMessageKey, "rich header parsing failed: bad key")
	if l.failure != "" {
		t.Fatalf("failure = %q, want none", l.failure)
	}
	_ = l.Log(pelog.LevelWarn, pelog.DefaultMessageKey, "unhandled metadata table 3 FieldPtr")
	_ = l.Log(pelog.LevelError, pelog.DefaultMessageKey, "later failure")
	if l.failure != "unhandled metadata table 3 FieldPtr" {
		t.Errorf("failure = %q, want the first warning", l.failure)
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "Parts.dll")
	if err := os.WriteFile(path, partsModule().bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if ok, err := metadata.ReferencesAssembly(r, "system.componentmodel.composition"); err != nil || !ok {
		t.Errorf("ReferencesAssembly() = %v, %v", ok, err)
	}
	if _, err := Open(filepath.Join(dir, "missing.dll")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open(missing) error = %v", err)
	}
}

func TestCompressedUint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     []byte
		want   uint32
		wantN  int
		wantOK bool
	}{
		{in: []byte{0x03}, want: 3, wantN: 1, wantOK: true},
		{in: []byte{0x7F}, want: 0x7F, wantN: 1, wantOK: true},
		{in: []byte{0x80, 0x80}, want: 0x80, wantN: 2, wantOK: true},
		{in: []byte{0xBF, 0xFF}, want: 0x3FFF, wantN: 2, wantOK: true},
		{in: []byte{0xC0, 0x00, 0x40, 0x00}, want: 0x4000, wantN: 4, wantOK: true},
		{in: []byte{0x80}},
		{in: []byte{0xFF}},
		{in: nil},
	}
	for _, tt := range tests {
		v, n, ok := compressedUint(tt.in)
		if v != tt.want || n != tt.wantN || ok != tt.wantOK {
			t.Errorf("compressedUint(%x) = %d, %d, %v; want %d, %d, %v", tt.in, v, n, ok, tt.want, tt.wantN, tt.wantOK)
		}
	}
}

func TestHeaps(t *testing.T) {
	t.Parallel()

	h := heaps{
		strings: []byte("\x00Widget\x00Parts"),
		blobs:   []byte{0x00, 0x02, 0xAB, 0xCD, 0x05, 0x01},
	}
	if s, err := h.str(1); err != nil || s != "Widget" {
		t.Errorf("str(1) = %q, %v", s, err)
	}
	if _, err := h.str(8); !errors.Is(err, metadata.ErrBadFormat) {
		t.Errorf("unterminated str error = %v", err)
	}
	if _, err := h.str(99); !errors.Is(err, metadata.ErrBadFormat) {
		t.Errorf("out of range str error = %v", err)
	}
	if b, err := h.blob(1); err != nil || !bytes.Equal(b, []byte{0xAB, 0xCD}) {
		t.Errorf("blob(1) = %x, %v", b, err)
	}
	if b, err := h.blob(0); err != nil || b != nil {
		t.Errorf("blob(0) = %x, %v", b, err)
	}
	if _, err := h.blob(4); !errors.Is(err, metadata.ErrBadFormat) {
		t.Errorf("truncated blob error = %v", err)
	}
}
