// SPDX-License-Identifier: MPL-2.0

package identity

import (
	"crypto/sha1" //nolint:gosec // the public key token is defined over SHA-1
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// NeutralCulture is the culture rendered for modules without one.
	NeutralCulture = "neutral"
	// NullToken is the token rendered for modules without a public key.
	NullToken = "null"

	// tokenSize is the length in bytes of a public key token.
	tokenSize = 8
)

const (
	// FullPublicKey marks a key blob that must be hashed into a token.
	// Assembly definitions always carry full keys.
	FullPublicKey KeyKind = iota
	// PublicKeyOrToken marks a key blob taken from an assembly reference:
	// 8-byte blobs are already tokens, longer blobs are full keys.
	PublicKeyOrToken
)

// ErrInvalidIdentity is returned when an identity string cannot be parsed.
var ErrInvalidIdentity = errors.New("invalid module identity")

type (
	// KeyKind describes how a public key blob should be turned into a token.
	KeyKind int

	// Version is a four-part module version.
	Version struct {
		Major    uint16
		Minor    uint16
		Build    uint16
		Revision uint16
	}

	// Identity is the parsed form of a canonical module identity.
	// Culture and Token hold the rendered strings ("neutral", "null" or hex).
	// Fields left empty by Parse are treated as unspecified when matching.
	Identity struct {
		Name    string
		Version Version
		Culture string
		Token   string
	}

	// InvalidIdentityError describes why an identity string was rejected.
	// It wraps ErrInvalidIdentity for errors.Is() compatibility.
	InvalidIdentityError struct {
		Value  string
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidIdentityError) Error() string {
	return fmt.Sprintf("invalid module identity %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidIdentity.
func (e *InvalidIdentityError) Unwrap() error {
	return ErrInvalidIdentity
}

// String renders the version as major.minor.build.revision.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Build, v.Revision)
}

// IsZero reports whether every component is zero.
func (v Version) IsZero() bool {
	return v == Version{}
}

// Canonicalize renders the canonical identity string of a module:
//
//	{name}, Version={a.b.c.d}, Culture={culture}, PublicKeyToken={token}
//
// The output matches the display name reported by the runtime loader, which
// is what makes it usable as a cache key across resolution paths.
func Canonicalize(name string, version Version, culture string, key []byte, kind KeyKind) string {
	return format(name, version, culture, Token(key, kind))
}

// Token reduces a key blob to its rendered public key token.
func Token(key []byte, kind KeyKind) string {
	if len(key) == 0 {
		return NullToken
	}
	if kind == PublicKeyOrToken && len(key) == tokenSize {
		return BytesToHex(key)
	}
	return BytesToHex(PublicKeyToken(key))
}

// PublicKeyToken computes the 8-byte token of a full public key: the last
// eight bytes of its SHA-1 digest in reverse order.
func PublicKeyToken(publicKey []byte) []byte {
	digest := sha1.Sum(publicKey) //nolint:gosec // see import comment
	token := make([]byte, tokenSize)
	last := len(digest) - 1
	for i := range token {
		token[i] = digest[last-i]
	}
	return token
}

// SimpleName returns the part of an identity string before the first comma.
func SimpleName(s string) string {
	if name, _, found := strings.Cut(s, ","); found {
		return strings.TrimSpace(name)
	}
	return strings.TrimSpace(s)
}

// Parse parses a full or partial identity string such as
// "Foo, Version=1.0.0.0, Culture=neutral, PublicKeyToken=null".
// Unknown attributes (processorArchitecture, Retargetable, ...) are ignored.
func Parse(s string) (Identity, error) {
	parts := strings.Split(s, ",")
	id := Identity{Name: strings.TrimSpace(parts[0])}
	if id.Name == "" {
		return Identity{}, &InvalidIdentityError{Value: s, Reason: "empty name"}
	}

	for _, part := range parts[1:] {
		key, value, found := strings.Cut(part, "=")
		if !found {
			return Identity{}, &InvalidIdentityError{Value: s, Reason: fmt.Sprintf("attribute %q has no value", strings.TrimSpace(part))}
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch {
		case strings.EqualFold(key, "Version"):
			v, err := ParseVersion(value)
			if err != nil {
				return Identity{}, &InvalidIdentityError{Value: s, Reason: err.Error()}
			}
			id.Version = v
		case strings.EqualFold(key, "Culture"):
			id.Culture = value
		case strings.EqualFold(key, "PublicKeyToken"):
			id.Token = strings.ToLower(value)
		}
	}

	return id, nil
}

// ParseVersion parses a dotted version with one to four numeric components.
func ParseVersion(s string) (Version, error) {
	fields := strings.Split(s, ".")
	if len(fields) > 4 {
		return Version{}, fmt.Errorf("version %q has more than four components", s)
	}

	var parts [4]uint16
	for i, f := range fields {
		n, err := strconv.ParseUint(f, 10, 16)
		if err != nil {
			return Version{}, fmt.Errorf("version %q: component %d: %w", s, i, err)
		}
		parts[i] = uint16(n)
	}

	return Version{Major: parts[0], Minor: parts[1], Build: parts[2], Revision: parts[3]}, nil
}

// String renders the canonical identity, filling unspecified culture and
// token with their neutral values.
func (id Identity) String() string {
	return format(id.Name, id.Version, id.Culture, id.Token)
}

// Equal compares two identities the way the runtime does: name, culture and
// token case-insensitively, version exactly.
func (id Identity) Equal(other Identity) bool {
	return strings.EqualFold(id.Name, other.Name) &&
		id.Version == other.Version &&
		strings.EqualFold(orDefault(id.Culture, NeutralCulture), orDefault(other.Culture, NeutralCulture)) &&
		strings.EqualFold(orDefault(id.Token, NullToken), orDefault(other.Token, NullToken))
}

// Equal reports whether two identity strings denote the same module.
// Strings that fail to parse are compared ordinally ignoring case.
func Equal(a, b string) bool {
	ida, errA := Parse(a)
	idb, errB := Parse(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(a, b)
	}
	return ida.Equal(idb)
}

func format(name string, version Version, culture, token string) string {
	return fmt.Sprintf("%s, Version=%s, Culture=%s, PublicKeyToken=%s",
		name, version, orDefault(culture, NeutralCulture), orDefault(token, NullToken))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
