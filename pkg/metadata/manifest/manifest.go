// SPDX-License-Identifier: MPL-2.0

// Package manifest decodes CUE module manifests into in-memory metadata
// images. A manifest lists a module's identity, assembly references, types,
// members and the attributes applied to them; it stands in for a compiled
// module in fixtures and offline experiments.
package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/mdcatalog/mdcatalog/pkg/cueutil"
	"github.com/mdcatalog/mdcatalog/pkg/identity"
	"github.com/mdcatalog/mdcatalog/pkg/metadata"
)

// Extension is the file extension of module manifests.
const Extension = ".cue"

//go:embed manifest_schema.cue
var schema []byte

var (
	// ErrUnknownType is returned when a type name is neither a local type
	// nor qualified with a referenced assembly.
	ErrUnknownType = errors.New("unknown type")
	// ErrUnknownAssembly is returned when a qualified type name names an
	// assembly the manifest does not reference.
	ErrUnknownAssembly = errors.New("unknown assembly reference")
)

type (
	// Manifest is the decoded form of a manifest file.
	Manifest struct {
		Name       string      `json:"name"`
		Version    string      `json:"version,omitempty"`
		Culture    string      `json:"culture,omitempty"`
		PublicKey  string      `json:"public_key,omitempty"`
		References []Reference `json:"references,omitempty"`
		Types      []Type      `json:"types,omitempty"`
	}

	// Reference is an assembly reference.
	Reference struct {
		Name    string `json:"name"`
		Version string `json:"version,omitempty"`
		Culture string `json:"culture,omitempty"`
		Token   string `json:"token,omitempty"`
	}

	// Type is a type definition with its members.
	Type struct {
		Namespace  string     `json:"namespace,omitempty"`
		Name       string     `json:"name"`
		Base       string     `json:"base,omitempty"`
		Attributes []string   `json:"attributes,omitempty"`
		Fields     []Member   `json:"fields,omitempty"`
		Properties []Property `json:"properties,omitempty"`
		Methods    []Method   `json:"methods,omitempty"`
	}

	// Member is a field or parameter.
	Member struct {
		Name       string   `json:"name"`
		Attributes []string `json:"attributes,omitempty"`
	}

	// Property is a property. With neither accessor set it gets a getter.
	Property struct {
		Name       string   `json:"name"`
		Getter     *bool    `json:"getter,omitempty"`
		Setter     bool     `json:"setter,omitempty"`
		Attributes []string `json:"attributes,omitempty"`
	}

	// Method is a method and its parameters.
	Method struct {
		Name       string   `json:"name"`
		Attributes []string `json:"attributes,omitempty"`
		Parameters []Member `json:"parameters,omitempty"`
	}

	// decoder resolves type names while filling a Builder.
	decoder struct {
		b      *metadata.Builder
		scopes map[string]metadata.Handle
		local  map[string]metadata.Handle
		refs   map[string]metadata.Handle
		ctors  map[metadata.Handle]metadata.Handle
	}
)

// Parse validates data against the manifest schema and decodes it.
func Parse(data []byte, filename string) (*Manifest, error) {
	result, err := cueutil.ParseAndDecode[Manifest](schema, data, "#Manifest", cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

// ParseFile reads and decodes the manifest at path.
func ParseFile(path string) (*Manifest, error) {
	result, err := cueutil.ParseFile[Manifest](schema, path, "#Manifest")
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

// Open implements metadata.OpenerFunc for manifest files.
func Open(path string) (metadata.Reader, error) {
	m, err := ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", metadata.ErrBadFormat, err)
	}
	img, err := m.Image()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", path, metadata.ErrBadFormat, err)
	}
	return img, nil
}

// Image builds the metadata image described by the manifest. Rows are
// appended in manifest order, so the n-th type is TypeDef row n.
func (m *Manifest) Image() (*metadata.Image, error) {
	version, err := parseVersion(m.Version)
	if err != nil {
		return nil, err
	}
	d := &decoder{
		b:      metadata.NewBuilder(m.Name, version),
		scopes: make(map[string]metadata.Handle),
		local:  make(map[string]metadata.Handle),
		refs:   make(map[string]metadata.Handle),
		ctors:  make(map[metadata.Handle]metadata.Handle),
	}
	d.b.Culture(m.Culture).PublicKey(identity.HexToBytes(m.PublicKey))

	for _, ref := range m.References {
		v, err := parseVersion(ref.Version)
		if err != nil {
			return nil, fmt.Errorf("reference %s: %w", ref.Name, err)
		}
		h := d.b.AssemblyRef(ref.Name, v, identity.HexToBytes(ref.Token))
		d.scopes[strings.ToLower(ref.Name)] = h
	}

	for i, t := range m.Types {
		d.local[metadata.JoinTypeName(t.Namespace, t.Name)] = metadata.NewHandle(metadata.TableTypeDef, uint32(i+1))
	}
	typeDefs := make([]metadata.Handle, len(m.Types))
	for i, t := range m.Types {
		var base metadata.Handle
		if t.Base != "" {
			if base, err = d.resolve(t.Base); err != nil {
				return nil, fmt.Errorf("type %s: base: %w", t.Name, err)
			}
		}
		typeDefs[i] = d.b.TypeDef(t.Namespace, t.Name, base)
	}

	for i, t := range m.Types {
		if err := d.members(typeDefs[i], t); err != nil {
			return nil, fmt.Errorf("type %s: %w", metadata.JoinTypeName(t.Namespace, t.Name), err)
		}
	}
	return d.b.Build(), nil
}

func (d *decoder) members(owner metadata.Handle, t Type) error {
	if err := d.apply(owner, t.Attributes); err != nil {
		return err
	}
	for _, f := range t.Fields {
		if err := d.apply(d.b.Field(owner), f.Attributes); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	for _, p := range t.Properties {
		var getter, setter metadata.Handle
		if p.Getter == nil || *p.Getter || !p.Setter {
			getter = d.b.Method(owner)
		}
		if p.Setter {
			setter = d.b.Method(owner)
		}
		if err := d.apply(d.b.PropertyWithAccessors(getter, setter), p.Attributes); err != nil {
			return fmt.Errorf("property %s: %w", p.Name, err)
		}
	}
	for _, mt := range t.Methods {
		method := d.b.Method(owner)
		if err := d.apply(method, mt.Attributes); err != nil {
			return fmt.Errorf("method %s: %w", mt.Name, err)
		}
		for _, p := range mt.Parameters {
			if err := d.apply(d.b.Param(method), p.Attributes); err != nil {
				return fmt.Errorf("method %s: parameter %s: %w", mt.Name, p.Name, err)
			}
		}
	}
	return nil
}

// apply adds one custom attribute row per name to parent.
func (d *decoder) apply(parent metadata.Handle, names []string) error {
	for _, name := range names {
		attrType, err := d.resolve(name)
		if err != nil {
			return err
		}
		d.b.Attribute(parent, d.ctor(attrType))
	}
	return nil
}

// ctor returns the constructor of an attribute type: a local method for
// local types, a member reference otherwise.
func (d *decoder) ctor(attrType metadata.Handle) metadata.Handle {
	if h, ok := d.ctors[attrType]; ok {
		return h
	}
	var h metadata.Handle
	if attrType.Table() == metadata.TableTypeDef {
		h = d.b.Method(attrType)
	} else {
		h = d.b.MemberRef(attrType, ".ctor")
	}
	d.ctors[attrType] = h
	return h
}

// resolve maps a local or assembly-qualified type name to a handle.
func (d *decoder) resolve(name string) (metadata.Handle, error) {
	typeName, assembly, qualified := strings.Cut(name, ",")
	typeName = strings.TrimSpace(typeName)
	if !qualified {
		if h, ok := d.local[typeName]; ok {
			return h, nil
		}
		return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}

	assembly = identity.SimpleName(strings.TrimSpace(assembly))
	scope, ok := d.scopes[strings.ToLower(assembly)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownAssembly, assembly)
	}
	key := strings.ToLower(assembly) + "|" + typeName
	if h, ok := d.refs[key]; ok {
		return h, nil
	}
	ns, simple := splitTypeName(typeName)
	h := d.b.TypeRef(scope, ns, simple)
	d.refs[key] = h
	return h, nil
}

func splitTypeName(full string) (namespace, name string) {
	if i := strings.LastIndex(full, "."); i >= 0 {
		return full[:i], full[i+1:]
	}
	return "", full
}

func parseVersion(s string) (identity.Version, error) {
	if s == "" {
		return identity.Version{}, nil
	}
	return identity.ParseVersion(s)
}
