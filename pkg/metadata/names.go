// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"fmt"
	"strings"

	"github.com/mdcatalog/mdcatalog/pkg/identity"
)

// FullTypeName returns "Namespace.Name" (or "Name" for the global namespace)
// of a TypeDef or TypeRef handle.
func FullTypeName(r Reader, h Handle) (string, error) {
	switch h.Table() {
	case TableTypeDef:
		def, err := r.TypeDefinition(h)
		if err != nil {
			return "", err
		}
		return JoinTypeName(def.Namespace, def.Name), nil
	case TableTypeRef:
		ref, err := r.TypeReference(h)
		if err != nil {
			return "", err
		}
		return JoinTypeName(ref.Namespace, ref.Name), nil
	default:
		return "", Unsupported("full type name", h)
	}
}

// JoinTypeName joins a namespace and a type name.
func JoinTypeName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// AttributeType resolves the type of a custom attribute from its
// constructor: a MethodDef constructor is owned by a local type, a MemberRef
// constructor names its parent type.
func AttributeType(r Reader, ca CustomAttribute) (Handle, error) {
	switch ca.Constructor.Table() {
	case TableMemberRef:
		ref, err := r.MemberReference(ca.Constructor)
		if err != nil {
			return 0, err
		}
		return ref.Parent, nil
	case TableMethodDef:
		return r.DeclaringType(ca.Constructor)
	default:
		return 0, Unsupported("attribute constructor", ca.Constructor)
	}
}

// AssemblyIdentity returns the canonical identity of the module itself.
func AssemblyIdentity(r Reader) (string, error) {
	def, err := r.Assembly()
	if err != nil {
		return "", fmt.Errorf("read assembly definition: %w", err)
	}
	return identity.Canonicalize(def.Name, def.Version, def.Culture, def.PublicKey, identity.FullPublicKey), nil
}

// ReferenceIdentity returns the canonical identity of an assembly reference.
func ReferenceIdentity(ref AssemblyReference) string {
	kind := identity.PublicKeyOrToken
	if ref.Flags&AssemblyRefFlagPublicKey != 0 {
		kind = identity.FullPublicKey
	}
	return identity.Canonicalize(ref.Name, ref.Version, ref.Culture, ref.PublicKeyOrToken, kind)
}

// ReferenceIdentities returns the canonical identities of every assembly
// reference in table order.
func ReferenceIdentities(r Reader) ([]string, error) {
	refs, err := r.AssemblyReferences()
	if err != nil {
		return nil, fmt.Errorf("read assembly references: %w", err)
	}
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ReferenceIdentity(ref))
	}
	return ids, nil
}

// ReferencesAssembly reports whether the module references an assembly with
// the given simple name (case-insensitive).
func ReferencesAssembly(r Reader, simpleName string) (bool, error) {
	refs, err := r.AssemblyReferences()
	if err != nil {
		return false, fmt.Errorf("read assembly references: %w", err)
	}
	for _, ref := range refs {
		if strings.EqualFold(ref.Name, simpleName) {
			return true, nil
		}
	}
	return false, nil
}
