// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"golang.org/x/exp/slices"

	"github.com/mdcatalog/mdcatalog/pkg/identity"
)

type (
	// Image is an in-memory module. It implements Reader and is produced by
	// Builder; manifests and tests use it in place of a binary file.
	Image struct {
		assembly   AssemblyDefinition
		references []AssemblyReference
		typeDefs   []TypeDefinition
		typeRefs   []TypeReference
		fields     []Handle // owner TypeDef per field row
		methods    []Handle // owner TypeDef per method row
		params     []Handle // owner MethodDef per param row
		properties []PropertyAccessors
		memberRefs []MemberReference
		typeSpecs  int
		attributes []CustomAttribute
	}

	// Builder assembles an Image row by row. Every method returns the handle
	// of the row it appended.
	Builder struct {
		img Image
	}
)

// NewBuilder starts an image for the named assembly.
func NewBuilder(name string, version identity.Version) *Builder {
	return &Builder{img: Image{assembly: AssemblyDefinition{Name: name, Version: version}}}
}

// Culture sets the assembly culture.
func (b *Builder) Culture(culture string) *Builder {
	b.img.assembly.Culture = culture
	return b
}

// PublicKey sets the full public key of the assembly.
func (b *Builder) PublicKey(key []byte) *Builder {
	b.img.assembly.PublicKey = slices.Clone(key)
	return b
}

// AssemblyRef appends an assembly reference carrying a token (or nothing).
func (b *Builder) AssemblyRef(name string, version identity.Version, token []byte) Handle {
	b.img.references = append(b.img.references, AssemblyReference{
		Name:             name,
		Version:          version,
		PublicKeyOrToken: slices.Clone(token),
	})
	return NewHandle(TableAssemblyRef, uint32(len(b.img.references)))
}

// TypeRef appends a reference to a type defined in another module.
func (b *Builder) TypeRef(scope Handle, namespace, name string) Handle {
	b.img.typeRefs = append(b.img.typeRefs, TypeReference{Namespace: namespace, Name: name, ResolutionScope: scope})
	return NewHandle(TableTypeRef, uint32(len(b.img.typeRefs)))
}

// TypeDef appends a type definition. base may be nil.
func (b *Builder) TypeDef(namespace, name string, base Handle) Handle {
	b.img.typeDefs = append(b.img.typeDefs, TypeDefinition{Namespace: namespace, Name: name, BaseType: base})
	return NewHandle(TableTypeDef, uint32(len(b.img.typeDefs)))
}

// TypeSpec appends an opaque type specification (generic instantiation).
func (b *Builder) TypeSpec() Handle {
	b.img.typeSpecs++
	return NewHandle(TableTypeSpec, uint32(b.img.typeSpecs))
}

// Field appends a field owned by a type. A nil owner yields an orphan field.
func (b *Builder) Field(owner Handle) Handle {
	b.img.fields = append(b.img.fields, owner)
	return NewHandle(TableField, uint32(len(b.img.fields)))
}

// Method appends a method owned by a type.
func (b *Builder) Method(owner Handle) Handle {
	b.img.methods = append(b.img.methods, owner)
	return NewHandle(TableMethodDef, uint32(len(b.img.methods)))
}

// Param appends a parameter of a method.
func (b *Builder) Param(method Handle) Handle {
	b.img.params = append(b.img.params, method)
	return NewHandle(TableParam, uint32(len(b.img.params)))
}

// Property appends a property with a getter method owned by owner.
func (b *Builder) Property(owner Handle) Handle {
	return b.PropertyWithAccessors(b.Method(owner), 0)
}

// PropertyWithAccessors appends a property with explicit accessors; either
// may be nil.
func (b *Builder) PropertyWithAccessors(getter, setter Handle) Handle {
	b.img.properties = append(b.img.properties, PropertyAccessors{Getter: getter, Setter: setter})
	return NewHandle(TableProperty, uint32(len(b.img.properties)))
}

// MemberRef appends a reference to a member of another type.
func (b *Builder) MemberRef(parent Handle, name string) Handle {
	b.img.memberRefs = append(b.img.memberRefs, MemberReference{Parent: parent, Name: name})
	return NewHandle(TableMemberRef, uint32(len(b.img.memberRefs)))
}

// Attribute applies the attribute whose constructor is ctor to parent.
func (b *Builder) Attribute(parent, ctor Handle) Handle {
	b.img.attributes = append(b.img.attributes, CustomAttribute{Parent: parent, Constructor: ctor})
	return NewHandle(TableCustomAttribute, uint32(len(b.img.attributes)))
}

// Build returns the image. The builder must not be used afterwards.
func (b *Builder) Build() *Image {
	img := b.img
	return &img
}

// Assembly implements Reader.
func (img *Image) Assembly() (AssemblyDefinition, error) {
	return img.assembly, nil
}

// AssemblyReferences implements Reader.
func (img *Image) AssemblyReferences() ([]AssemblyReference, error) {
	return slices.Clone(img.references), nil
}

// TypeDefinitions implements Reader.
func (img *Image) TypeDefinitions() []Handle {
	return handles(TableTypeDef, len(img.typeDefs))
}

// TypeDefinition implements Reader.
func (img *Image) TypeDefinition(h Handle) (TypeDefinition, error) {
	return row(img.typeDefs, TableTypeDef, h)
}

// TypeReference implements Reader.
func (img *Image) TypeReference(h Handle) (TypeReference, error) {
	return row(img.typeRefs, TableTypeRef, h)
}

// CustomAttributes implements Reader.
func (img *Image) CustomAttributes() []Handle {
	return handles(TableCustomAttribute, len(img.attributes))
}

// CustomAttribute implements Reader.
func (img *Image) CustomAttribute(h Handle) (CustomAttribute, error) {
	return row(img.attributes, TableCustomAttribute, h)
}

// MemberReference implements Reader.
func (img *Image) MemberReference(h Handle) (MemberReference, error) {
	return row(img.memberRefs, TableMemberRef, h)
}

// DeclaringType implements Reader.
func (img *Image) DeclaringType(member Handle) (Handle, error) {
	switch member.Table() {
	case TableField:
		return row(img.fields, TableField, member)
	case TableMethodDef:
		return row(img.methods, TableMethodDef, member)
	default:
		return 0, Unsupported("declaring type", member)
	}
}

// PropertyAccessors implements Reader.
func (img *Image) PropertyAccessors(h Handle) (PropertyAccessors, error) {
	return row(img.properties, TableProperty, h)
}

// Close implements Reader. Images hold no resources.
func (img *Image) Close() error {
	return nil
}

func handles(t Table, n int) []Handle {
	out := make([]Handle, n)
	for i := range out {
		out[i] = NewHandle(t, uint32(i+1))
	}
	return out
}

func row[T any](rows []T, t Table, h Handle) (T, error) {
	var zero T
	if h.Table() != t {
		return zero, Unsupported(t.String()+" lookup", h)
	}
	if h.IsNil() || int(h.Row()) > len(rows) {
		return zero, &RowNotFoundError{Handle: h}
	}
	return rows[h.Row()-1], nil
}
