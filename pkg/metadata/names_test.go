// SPDX-License-Identifier: MPL-2.0

package metadata_test

import (
	"errors"
	"testing"

	"github.com/mdcatalog/mdcatalog/pkg/identity"
	"github.com/mdcatalog/mdcatalog/pkg/metadata"
)

func TestHandle(t *testing.T) {
	t.Parallel()

	h := metadata.NewHandle(metadata.TableTypeDef, 5)
	if h.Token() != 0x02000005 {
		t.Errorf("Token() = %#x, want 0x02000005", h.Token())
	}
	if h.Table() != metadata.TableTypeDef || h.Row() != 5 {
		t.Errorf("Table/Row = %v/%d", h.Table(), h.Row())
	}
	if h.IsNil() {
		t.Error("IsNil() = true for row 5")
	}
	if !metadata.NewHandle(metadata.TableField, 0).IsNil() {
		t.Error("row 0 should be nil")
	}
	if got := h.String(); got != "TypeDef[5]" {
		t.Errorf("String() = %q", got)
	}
}

func TestFullTypeName(t *testing.T) {
	t.Parallel()

	b := metadata.NewBuilder("A", identity.Version{Major: 1})
	scope := b.AssemblyRef("mscorlib", identity.Version{Major: 4}, nil)
	object := b.TypeRef(scope, "System", "Object")
	global := b.TypeDef("", "<Module>", 0)
	local := b.TypeDef("A.Sub", "Thing", object)
	spec := b.TypeSpec()
	img := b.Build()

	tests := []struct {
		name    string
		handle  metadata.Handle
		want    string
		wantErr error
	}{
		{name: "type reference", handle: object, want: "System.Object"},
		{name: "global namespace", handle: global, want: "<Module>"},
		{name: "nested namespace", handle: local, want: "A.Sub.Thing"},
		{name: "type spec unsupported", handle: spec, wantErr: metadata.ErrUnsupportedHandle},
		{name: "missing row", handle: metadata.NewHandle(metadata.TableTypeDef, 99), wantErr: metadata.ErrRowNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := metadata.FullTypeName(img, tt.handle)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("FullTypeName() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FullTypeName() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("FullTypeName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAttributeType(t *testing.T) {
	t.Parallel()

	b := metadata.NewBuilder("A", identity.Version{Major: 1})
	scope := b.AssemblyRef("System.ComponentModel.Composition", identity.Version{Major: 4}, nil)
	export := b.TypeRef(scope, "System.ComponentModel.Composition", "ExportAttribute")
	refCtor := b.MemberRef(export, ".ctor")
	local := b.TypeDef("A", "LocalAttribute", export)
	localCtor := b.Method(local)
	img := b.Build()

	got, err := metadata.AttributeType(img, metadata.CustomAttribute{Constructor: refCtor})
	if err != nil || got != export {
		t.Errorf("AttributeType(memberref) = %v, %v; want %v", got, err, export)
	}

	got, err = metadata.AttributeType(img, metadata.CustomAttribute{Constructor: localCtor})
	if err != nil || got != local {
		t.Errorf("AttributeType(methoddef) = %v, %v; want %v", got, err, local)
	}

	_, err = metadata.AttributeType(img, metadata.CustomAttribute{Constructor: local})
	if !errors.Is(err, metadata.ErrUnsupportedHandle) {
		t.Errorf("AttributeType(typedef) error = %v, want ErrUnsupportedHandle", err)
	}
}

func TestReferenceIdentities(t *testing.T) {
	t.Parallel()

	b := metadata.NewBuilder("A", identity.Version{Major: 1})
	b.AssemblyRef("System.ComponentModel.Composition", identity.Version{Major: 4}, identity.HexToBytes("b77a5c561934e089"))
	b.AssemblyRef("Local", identity.Version{Major: 1, Minor: 2}, nil)
	img := b.Build()

	ids, err := metadata.ReferenceIdentities(img)
	if err != nil {
		t.Fatalf("ReferenceIdentities() error = %v", err)
	}
	want := []string{
		"System.ComponentModel.Composition, Version=4.0.0.0, Culture=neutral, PublicKeyToken=b77a5c561934e089",
		"Local, Version=1.2.0.0, Culture=neutral, PublicKeyToken=null",
	}
	if len(ids) != len(want) {
		t.Fatalf("got %d identities, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}

	ok, err := metadata.ReferencesAssembly(img, "system.componentmodel.composition")
	if err != nil || !ok {
		t.Errorf("ReferencesAssembly() = %v, %v; want true", ok, err)
	}
	ok, _ = metadata.ReferencesAssembly(img, "System.Core")
	if ok {
		t.Error("ReferencesAssembly(System.Core) = true, want false")
	}
}

func TestAssemblyIdentity(t *testing.T) {
	t.Parallel()

	img := metadata.NewBuilder("Signed", identity.Version{Major: 2, Minor: 1}).
		Culture("fr").
		PublicKey(identity.HexToBytes("00000000000000000400000000000000")).
		Build()

	got, err := metadata.AssemblyIdentity(img)
	if err != nil {
		t.Fatalf("AssemblyIdentity() error = %v", err)
	}
	want := "Signed, Version=2.1.0.0, Culture=fr, PublicKeyToken=b77a5c561934e089"
	if got != want {
		t.Errorf("AssemblyIdentity() = %q, want %q", got, want)
	}
}

func TestExtensionOpener(t *testing.T) {
	t.Parallel()

	img := metadata.NewBuilder("X", identity.Version{}).Build()
	var opened string
	o := &metadata.ExtensionOpener{
		Default: metadata.OpenerFunc(func(path string) (metadata.Reader, error) {
			opened = "default:" + path
			return img, nil
		}),
		ByExtension: map[string]metadata.Opener{
			".cue": metadata.OpenerFunc(func(path string) (metadata.Reader, error) {
				opened = "cue:" + path
				return img, nil
			}),
		},
	}

	if _, err := o.Open("mod.CUE"); err != nil || opened != "cue:mod.CUE" {
		t.Errorf("Open(mod.CUE) dispatched to %q (err %v)", opened, err)
	}
	if _, err := o.Open("mod.dll"); err != nil || opened != "default:mod.dll" {
		t.Errorf("Open(mod.dll) dispatched to %q (err %v)", opened, err)
	}
}
