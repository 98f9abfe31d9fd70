// SPDX-License-Identifier: MPL-2.0

package metadata

import (
	"errors"
	"fmt"

	"github.com/mdcatalog/mdcatalog/pkg/identity"
)

// AssemblyRefFlagPublicKey is set on assembly references whose key blob is a
// full public key instead of a token.
const AssemblyRefFlagPublicKey uint32 = 0x0001

var (
	// ErrNoMetadata is returned when a file is a valid container without
	// managed metadata (native DLLs).
	ErrNoMetadata = errors.New("module has no metadata")
	// ErrBadFormat is returned when metadata tables or heaps are malformed.
	ErrBadFormat = errors.New("bad metadata format")
	// ErrRowNotFound is the sentinel error wrapped by RowNotFoundError.
	ErrRowNotFound = errors.New("metadata row not found")
	// ErrUnsupportedHandle is returned when an operation receives a handle
	// from a table it does not handle.
	ErrUnsupportedHandle = errors.New("unsupported handle kind")
)

type (
	// AssemblyDefinition is the module's own identity record.
	AssemblyDefinition struct {
		Name      string
		Version   identity.Version
		Culture   string
		PublicKey []byte
	}

	// AssemblyReference is one row of the assembly reference table.
	AssemblyReference struct {
		Name             string
		Version          identity.Version
		Culture          string
		PublicKeyOrToken []byte
		Flags            uint32
	}

	// TypeDefinition is a type defined in the module.
	TypeDefinition struct {
		Namespace string
		Name      string
		// BaseType is a TypeDef, TypeRef or TypeSpec handle, or nil.
		BaseType Handle
	}

	// TypeReference is a type defined elsewhere and referenced by the module.
	TypeReference struct {
		Namespace       string
		Name            string
		ResolutionScope Handle
	}

	// CustomAttribute is one row of the custom attribute table.
	CustomAttribute struct {
		// Parent is the element the attribute is applied to.
		Parent Handle
		// Constructor is a MethodDef or MemberRef handle.
		Constructor Handle
	}

	// MemberReference is a reference to a field or method of another type.
	MemberReference struct {
		Parent Handle
		Name   string
	}

	// PropertyAccessors holds the accessor methods of a property. Either
	// handle may be nil.
	PropertyAccessors struct {
		Getter Handle
		Setter Handle
	}

	// Reader exposes the metadata tables of one open module. Implementations
	// must stay valid until Close and must not be mutated by callers.
	Reader interface {
		// Assembly returns the module's identity record.
		Assembly() (AssemblyDefinition, error)
		// AssemblyReferences returns the assembly reference table in row order.
		AssemblyReferences() ([]AssemblyReference, error)
		// TypeDefinitions returns the handles of all type definitions.
		TypeDefinitions() []Handle
		TypeDefinition(h Handle) (TypeDefinition, error)
		TypeReference(h Handle) (TypeReference, error)
		// CustomAttributes returns the handles of all custom attributes.
		CustomAttributes() []Handle
		CustomAttribute(h Handle) (CustomAttribute, error)
		MemberReference(h Handle) (MemberReference, error)
		// DeclaringType returns the TypeDef owning a MethodDef or Field handle,
		// or a nil handle when no type owns it.
		DeclaringType(member Handle) (Handle, error)
		PropertyAccessors(h Handle) (PropertyAccessors, error)
		// Close releases the underlying file, if any.
		Close() error
	}

	// Opener opens the module stored at a path.
	Opener interface {
		Open(path string) (Reader, error)
	}

	// OpenerFunc adapts a function to the Opener interface.
	OpenerFunc func(path string) (Reader, error)

	// RowNotFoundError is returned when a handle points past the end of its table.
	// It wraps ErrRowNotFound for errors.Is() compatibility.
	RowNotFoundError struct {
		Handle Handle
	}
)

// Open calls f(path).
func (f OpenerFunc) Open(path string) (Reader, error) {
	return f(path)
}

// Error implements the error interface.
func (e *RowNotFoundError) Error() string {
	return fmt.Sprintf("%s: row %d not found", e.Handle.Table(), e.Handle.Row())
}

// Unwrap returns ErrRowNotFound.
func (e *RowNotFoundError) Unwrap() error {
	return ErrRowNotFound
}

// Unsupported builds an ErrUnsupportedHandle error for an operation.
func Unsupported(op string, h Handle) error {
	return fmt.Errorf("%s: %s: %w", op, h, ErrUnsupportedHandle)
}
