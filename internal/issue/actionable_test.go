// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableError_Message(t *testing.T) {
	t.Parallel()

	notFound := errors.New("no such file")
	tests := []struct {
		name string
		err  *ActionableError
		want string
	}{
		{"operation", NewActionableError("scan directory"), "failed to scan directory"},
		{"resource", &ActionableError{Operation: "scan module", Resource: "bin/Parts.dll"}, "failed to scan module: bin/Parts.dll"},
		{"cause", WrapWithOperation(notFound, "open module"), "failed to open module: no such file"},
		{"all", WrapWithContext(notFound, "open module", "bin/Parts.dll"), "failed to open module: bin/Parts.dll: no such file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActionableError_Chain(t *testing.T) {
	t.Parallel()

	root := errors.New("truncated #~ stream")
	err := WrapWithContext(fmt.Errorf("read tables: %w", root), "scan module", "bin/Parts.dll")
	if !errors.Is(err, root) {
		t.Error("errors.Is should reach the root cause")
	}
	if NewActionableError("scan module").Unwrap() != nil {
		t.Error("Unwrap() without cause should be nil")
	}
	if WrapWithOperation(nil, "scan module") != nil || WrapWithContext(nil, "scan module", "x") != nil {
		t.Error("wrapping a nil error should yield nil")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	err := NewErrorContext().
		WithOperation("resolve identity").
		WithResource("Contracts, Version=1.0.0.0").
		WithSuggestions("pass --path ./lib", "add the directory to search_paths").
		Wrap(WrapWithOperation(errors.New("no candidate file"), "probe search paths")).
		Build()

	plain := err.Format(false)
	for _, want := range []string{
		"failed to resolve identity: Contracts, Version=1.0.0.0",
		"• pass --path ./lib",
		"• add the directory to search_paths",
	} {
		if !strings.Contains(plain, want) {
			t.Errorf("Format(false) missing %q:\n%s", want, plain)
		}
	}
	if strings.Contains(plain, "Error chain:") {
		t.Errorf("Format(false) should omit the chain:\n%s", plain)
	}

	verbose := err.Format(true)
	for _, want := range []string{
		"Error chain:",
		"1. failed to probe search paths: no candidate file",
		"2. no candidate file",
	} {
		if !strings.Contains(verbose, want) {
			t.Errorf("Format(true) missing %q:\n%s", want, verbose)
		}
	}
	if !err.HasSuggestions() || NewActionableError("x").HasSuggestions() {
		t.Error("HasSuggestions() mismatch")
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("bin").Build() != nil {
		t.Error("Build() without operation should be nil")
	}
	if err := NewErrorContext().BuildError(); err != nil {
		t.Errorf("BuildError() without operation = %v, want untyped nil", err)
	}

	cause := errors.New("bad glob")
	ae := NewErrorContext().
		WithOperation("scan directory").
		WithResource("bin").
		WithSuggestion("use *.dll").
		WithIssue(InvalidPatternId).
		Wrap(cause).
		Build()
	if ae.Operation != "scan directory" || ae.Resource != "bin" || len(ae.Suggestions) != 1 ||
		ae.Issue != InvalidPatternId || !errors.Is(ae, cause) {
		t.Errorf("Build() = %+v", ae)
	}
	if NewErrorContext().WithOperation("scan module").Build().Issue != 0 {
		t.Error("Issue should default to zero")
	}

	var target *ActionableError
	if !errors.As(NewErrorContext().WithOperation("scan module").BuildError(), &target) {
		t.Error("BuildError() should return *ActionableError")
	}
}

func TestErrorContext_Reuse(t *testing.T) {
	t.Parallel()

	ctx := NewErrorContext().WithOperation("scan module").WithResource("bin/A.dll")
	first := ctx.Wrap(errors.New("first")).Build()
	second := ctx.Wrap(errors.New("second")).Build()
	if first.Cause.Error() != "first" || second.Cause.Error() != "second" {
		t.Errorf("causes = %v, %v", first.Cause, second.Cause)
	}
	if first.Resource != second.Resource {
		t.Error("reused context should keep the resource")
	}
}

func TestActionableError_Explain(t *testing.T) {
	stubRender(t)

	linked := &ActionableError{Operation: "scan module", Issue: ReferenceCycleId}
	got, err := linked.Explain("")
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if !strings.Contains(got, "Reference cycle") {
		t.Errorf("Explain() = %q", got)
	}

	unlinked := &ActionableError{Operation: "scan module"}
	if got, err := unlinked.Explain(""); err != nil || got != "" {
		t.Errorf("Explain() without issue = %q, %v", got, err)
	}
}
