// SPDX-License-Identifier: MPL-2.0

package identity_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/mdcatalog/mdcatalog/pkg/identity"
)

// ecmaKey is the 16-byte ECMA standard public key used by framework assemblies.
var ecmaKey = identity.HexToBytes("00000000000000000400000000000000")

func TestBytesToHex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{name: "empty", in: nil, want: ""},
		{name: "single digit", in: []byte{0x07}, want: "07"},
		{name: "letters are lowercase", in: []byte{0xab, 0xcd, 0xef}, want: "abcdef"},
		{name: "token", in: []byte{0xb7, 0x7a, 0x5c, 0x56, 0x19, 0x34, 0xe0, 0x89}, want: "b77a5c561934e089"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := identity.BytesToHex(tt.in); got != tt.want {
				t.Errorf("BytesToHex(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestHexRoundTrip(t *testing.T) {
	t.Parallel()

	for n := 0; n <= 64; n++ {
		b := make([]byte, n)
		for i := range b {
			b[i] = byte(i*37 + n*11)
		}
		got := identity.HexToBytes(identity.BytesToHex(b))
		if !bytes.Equal(got, b) {
			t.Fatalf("round trip of %d bytes: got %x, want %x", n, got, b)
		}
	}
}

func TestHexToBytes_OddLengthDropsTrailingNibble(t *testing.T) {
	t.Parallel()

	got := identity.HexToBytes("abc")
	if !bytes.Equal(got, []byte{0xab}) {
		t.Errorf("HexToBytes(\"abc\") = %x, want ab", got)
	}
}

func TestPublicKeyToken_ECMAKey(t *testing.T) {
	t.Parallel()

	got := identity.BytesToHex(identity.PublicKeyToken(ecmaKey))
	if got != "b77a5c561934e089" {
		t.Errorf("PublicKeyToken(ecma) = %s, want b77a5c561934e089", got)
	}
}

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	v := identity.Version{Major: 4, Minor: 0, Build: 0, Revision: 0}

	tests := []struct {
		name    string
		culture string
		key     []byte
		kind    identity.KeyKind
		want    string
	}{
		{
			name: "no key, no culture",
			kind: identity.FullPublicKey,
			want: "Foo, Version=4.0.0.0, Culture=neutral, PublicKeyToken=null",
		},
		{
			name:    "culture kept verbatim",
			culture: "en-US",
			kind:    identity.FullPublicKey,
			want:    "Foo, Version=4.0.0.0, Culture=en-US, PublicKeyToken=null",
		},
		{
			name: "full key is hashed",
			key:  ecmaKey,
			kind: identity.FullPublicKey,
			want: "Foo, Version=4.0.0.0, Culture=neutral, PublicKeyToken=b77a5c561934e089",
		},
		{
			name: "reference token used as-is",
			key:  []byte{1, 2, 3, 4, 5, 6, 7, 8},
			kind: identity.PublicKeyOrToken,
			want: "Foo, Version=4.0.0.0, Culture=neutral, PublicKeyToken=0102030405060708",
		},
		{
			name: "reference carrying a full key is hashed",
			key:  ecmaKey,
			kind: identity.PublicKeyOrToken,
			want: "Foo, Version=4.0.0.0, Culture=neutral, PublicKeyToken=b77a5c561934e089",
		},
		{
			name: "eight byte definition key is still hashed",
			key:  []byte{1, 2, 3, 4, 5, 6, 7, 8},
			kind: identity.FullPublicKey,
			want: "Foo, Version=4.0.0.0, Culture=neutral, PublicKeyToken=" +
				identity.BytesToHex(identity.PublicKeyToken([]byte{1, 2, 3, 4, 5, 6, 7, 8})),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := identity.Canonicalize("Foo", v, tt.culture, tt.key, tt.kind)
			if got != tt.want {
				t.Errorf("Canonicalize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	id, err := identity.Parse("System.Core, Version=4.0.0.0, Culture=neutral, PublicKeyToken=B77A5C561934E089, processorArchitecture=MSIL")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if id.Name != "System.Core" {
		t.Errorf("Name = %q", id.Name)
	}
	if id.Version != (identity.Version{Major: 4}) {
		t.Errorf("Version = %v", id.Version)
	}
	if id.Token != "b77a5c561934e089" {
		t.Errorf("Token = %q, want lowercase", id.Token)
	}
	if got := id.String(); got != "System.Core, Version=4.0.0.0, Culture=neutral, PublicKeyToken=b77a5c561934e089" {
		t.Errorf("String() = %q", got)
	}
}

func TestParse_Partial(t *testing.T) {
	t.Parallel()

	id, err := identity.Parse("TestAssemblyA")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if id.Name != "TestAssemblyA" || !id.Version.IsZero() || id.Culture != "" || id.Token != "" {
		t.Errorf("Parse(partial) = %+v", id)
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []string{
		"",
		" , Version=1.0.0.0",
		"Foo, Version",
		"Foo, Version=1.x",
		"Foo, Version=1.2.3.4.5",
	}

	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			t.Parallel()
			_, err := identity.Parse(in)
			if !errors.Is(err, identity.ErrInvalidIdentity) {
				t.Errorf("Parse(%q) error = %v, want ErrInvalidIdentity", in, err)
			}
		})
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want bool
	}{
		{"Foo, Version=1.0.0.0, Culture=neutral, PublicKeyToken=null", "foo, Version=1.0.0.0, Culture=NEUTRAL, PublicKeyToken=null", true},
		{"Foo, Version=1.0.0.0, Culture=neutral, PublicKeyToken=abcdef0123456789", "Foo, Version=1.0.0.0, Culture=neutral, PublicKeyToken=ABCDEF0123456789", true},
		{"Foo, Version=1.0.0.0, Culture=neutral, PublicKeyToken=null", "Foo, Version=1.0.0.1, Culture=neutral, PublicKeyToken=null", false},
		{"Foo, Version=1.0.0.0, Culture=neutral, PublicKeyToken=null", "Bar, Version=1.0.0.0, Culture=neutral, PublicKeyToken=null", false},
	}

	for _, tt := range tests {
		if got := identity.Equal(tt.a, tt.b); got != tt.want {
			t.Errorf("Equal(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSimpleName(t *testing.T) {
	t.Parallel()

	if got := identity.SimpleName("Foo.Bar, Version=1.0.0.0"); got != "Foo.Bar" {
		t.Errorf("SimpleName() = %q", got)
	}
	if got := identity.SimpleName(" Foo "); got != "Foo" {
		t.Errorf("SimpleName() = %q", got)
	}
}
